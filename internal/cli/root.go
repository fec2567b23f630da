package cli

import (
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0-dev"

var (
	flagConfig    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
)

// defaultConfigPath returns the config file path, checking FLOWAGENT_CONFIG
// first.
func defaultConfigPath() string {
	if p := os.Getenv("FLOWAGENT_CONFIG"); p != "" {
		return p
	}
	return ""
}

// NewRootCmd creates the root cobra command for the flowagent CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "flowagent",
		Short:   "flowagent is a scheduling agent for a workflow control plane",
		Long:    "flowagent polls a workflow control plane for due flow runs and hands them to a deployment backend.",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", defaultConfigPath(), "Config file path (or FLOWAGENT_CONFIG env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(
		newStartCmd(),
		newHistoryCmd(),
		newExecCmd(),
	)

	return root
}
