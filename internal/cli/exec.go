package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/flowagent/internal/config"
	"github.com/me/flowagent/internal/shell"
)

func newExecCmd() *cobra.Command {
	var flagNoEnv bool

	cmd := &cobra.Command{
		Use:   "exec -- <command>",
		Short: "Run a command with the agent's configured environment",
		Long:  "Runs a command through bash with the env_vars from the agent config applied, the same environment flow runs receive from the local backend.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			runner := &shell.Runner{}
			if !flagNoEnv {
				runner.Env = cfg.EnvVars
			}

			out, err := runner.Run(cmd.Context(), strings.Join(args, " "))
			fmt.Fprint(cmd.OutOrStdout(), out)

			var exitErr *shell.ExitError
			if errors.As(err, &exitErr) {
				return fmt.Errorf("exit code %d", exitErr.ExitCode)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&flagNoEnv, "no-env", false, "Ignore env_vars from config and inherit the process environment")

	return cmd
}
