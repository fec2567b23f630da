package shell

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ExitError reports a command that ran but exited non-zero. The combined
// output is carried alongside the exit code so callers can surface it.
type ExitError struct {
	ExitCode int
	Output   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command failed with exit code %d: %s", e.ExitCode, e.Output)
}

// Runner executes arbitrary shell commands through bash. When Env is
// non-empty it replaces the entire process environment for the command
// rather than extending it.
type Runner struct {
	Env map[string]string
}

// Run executes command via `bash -c` and returns its combined output.
// A non-zero exit yields an *ExitError; any other failure to launch is
// returned as-is.
func (r *Runner) Run(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Env = r.environ()

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	runErr := cmd.Run()
	output := out.String()

	switch e := runErr.(type) {
	case nil:
		return output, nil
	case *exec.ExitError:
		return output, &ExitError{ExitCode: e.ExitCode(), Output: output}
	default:
		return output, runErr
	}
}

func (r *Runner) environ() []string {
	if len(r.Env) == 0 {
		return os.Environ()
	}
	env := make([]string, 0, len(r.Env))
	for k, v := range r.Env {
		env = append(env, k+"="+v)
	}
	return env
}
