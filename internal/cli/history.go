package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/flowagent/internal/config"
	"github.com/me/flowagent/internal/journal"
	"github.com/me/flowagent/internal/logging"
)

func newHistoryCmd() *cobra.Command {
	var (
		flagJournal string
		flagLimit   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent deploy attempts from the local journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			path := cfg.JournalPath
			if flagJournal != "" {
				path = flagJournal
			}
			if path == "" {
				return fmt.Errorf("no journal configured; set journal_path or pass --journal")
			}

			logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
			j, err := journal.Open(path, logger)
			if err != nil {
				return err
			}
			defer j.Close()

			attempts, err := j.Recent(cmd.Context(), flagLimit)
			if err != nil {
				return err
			}
			if len(attempts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no deploy attempts recorded")
				return nil
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-38s %-8s %-10s %-16s %s\n", "FLOW RUN", "BACKEND", "OUTCOME", "WHEN", "MESSAGE")
			for _, a := range attempts {
				fmt.Fprintf(w, "%-38s %-8s %-10s %-16s %s\n",
					a.FlowRunID, a.Backend, a.Outcome, humanize.Time(a.CreatedAt), a.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagJournal, "journal", "", "Deploy journal SQLite path (overrides config)")
	cmd.Flags().IntVar(&flagLimit, "limit", 20, "Maximum attempts to show")

	return cmd
}
