package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/me/flowagent/pkg/model"
)

// Launcher starts a flow-run process and returns its pid. Production code
// uses os/exec; tests inject a fake.
type Launcher interface {
	Start(ctx context.Context, command []string, env []string) (pid int, err error)
}

// osLauncher starts a detached subprocess and reaps it in the background.
type osLauncher struct{}

func (osLauncher) Start(ctx context.Context, command []string, env []string) (int, error) {
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Env = env
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	// Reap the child when it exits; the agent does not wait on deploys.
	go cmd.Wait()
	return cmd.Process.Pid, nil
}

// LocalConfig configures the local subprocess backend.
type LocalConfig struct {
	// Command is the executable and arguments used to run a flow run.
	// The flow run id is passed via the FLOW_RUN_ID environment variable.
	Command []string

	// Env are agent-level environment overrides applied to every run.
	Env map[string]string
}

// Local deploys flow runs as subprocesses on the agent host.
type Local struct {
	command  []string
	env      map[string]string
	launcher Launcher
	logger   *slog.Logger
}

// NewLocal creates a local backend.
func NewLocal(cfg LocalConfig, logger *slog.Logger) *Local {
	command := cfg.Command
	if len(command) == 0 {
		command = []string{"flowctl", "execute", "flow-run"}
	}
	return &Local{
		command:  command,
		env:      cfg.Env,
		launcher: osLauncher{},
		logger:   logger.With("component", "backend", "backend", "local"),
	}
}

func (l *Local) Name() string { return "local" }

// Deploy launches the flow run as a host subprocess and returns its pid as
// metadata. The subprocess inherits the host environment, then the agent's
// overrides, then FLOW_RUN_ID.
func (l *Local) Deploy(ctx context.Context, flowRun *model.FlowRun) (string, error) {
	env := os.Environ()
	for k, v := range l.env {
		env = append(env, k+"="+v)
	}
	env = append(env, "FLOW_RUN_ID="+flowRun.ID)

	pid, err := l.launcher.Start(ctx, l.command, env)
	if err != nil {
		return "", fmt.Errorf("launch flow run %s: %w", flowRun.ID, err)
	}

	l.logger.Debug("flow run launched", "flow_run", flowRun.ID, "pid", pid)
	return fmt.Sprintf("PID: %d", pid), nil
}

// Heartbeat is a no-op for the local backend.
func (l *Local) Heartbeat(ctx context.Context) error { return nil }
