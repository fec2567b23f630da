package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/flowagent/internal/agent"
	"github.com/me/flowagent/internal/backend"
	"github.com/me/flowagent/internal/client"
	"github.com/me/flowagent/internal/config"
	"github.com/me/flowagent/internal/executor"
	"github.com/me/flowagent/internal/health"
	"github.com/me/flowagent/internal/journal"
	"github.com/me/flowagent/internal/logging"
)

func newStartCmd() *cobra.Command {
	var (
		flagName        string
		flagAPIURL      string
		flagToken       string
		flagLabels      string
		flagBackend     string
		flagPoll        time.Duration
		flagConcurrency int
		flagHealthAddr  string
		flagJournal     string

		flagLocalCommand []string

		flagECSCluster string
		flagECSTaskDef string
		flagECSSubnets []string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the agent poll loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			// Flags override file and environment values.
			if flagAPIURL != "" {
				cfg.APIURL = flagAPIURL
			}
			if flagToken != "" {
				cfg.AuthToken = flagToken
			}
			if flagLabels != "" {
				cfg.Labels = flagLabels
			}
			if flagBackend != "" {
				cfg.Backend = flagBackend
			}
			if flagPoll > 0 {
				cfg.PollInterval = flagPoll
			}
			if flagConcurrency > 0 {
				cfg.MaxConcurrent = flagConcurrency
			}
			if flagHealthAddr != "" {
				cfg.HealthAddr = flagHealthAddr
			}
			if flagJournal != "" {
				cfg.JournalPath = flagJournal
			}
			if flagLogLevel != "" {
				cfg.LogLevel = flagLogLevel
			}
			if flagLogFormat != "" {
				cfg.LogFormat = flagLogFormat
			}

			logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cp := client.New(cfg.APIURL, cfg.AuthToken, logger)

			opts := []agent.Option{}
			if flagName != "" {
				opts = append(opts, agent.WithName(flagName))
			}

			backendName := "none"
			switch cfg.Backend {
			case "local":
				be := backend.NewLocal(backend.LocalConfig{
					Command: flagLocalCommand,
					Env:     cfg.EnvVars,
				}, logger)
				opts = append(opts, agent.WithBackend(be))
				backendName = be.Name()
			case "ecs":
				be, err := backend.NewECS(ctx, backend.ECSConfig{
					Cluster:        flagECSCluster,
					TaskDefinition: flagECSTaskDef,
					Subnets:        flagECSSubnets,
					Env:            cfg.EnvVars,
				}, logger)
				if err != nil {
					return err
				}
				opts = append(opts, agent.WithBackend(be))
				backendName = be.Name()
			case "", "none":
				// Base agent; DeployFlow will refuse until a backend is chosen.
			default:
				return fmt.Errorf("unknown backend %q (want local, ecs, or none)", cfg.Backend)
			}

			if cfg.JournalPath != "" {
				j, err := journal.Open(cfg.JournalPath, logger)
				if err != nil {
					return err
				}
				defer j.Close()
				opts = append(opts, agent.WithJournal(j))
			}

			a := agent.New(cfg, cp, opts...)

			if cfg.HealthAddr != "" {
				hs := health.New(a.Name(), backendName, logger)
				go func() {
					if err := hs.Start(ctx, cfg.HealthAddr); err != nil {
						logger.Warn("health server stopped", "error", err)
					}
				}()
			}

			pool := executor.NewPool(cfg.MaxConcurrent)
			defer pool.Close()

			return a.Run(ctx, pool, agent.LoopConfig{PollInterval: cfg.PollInterval})
		},
	}

	cmd.Flags().StringVar(&flagName, "name", "", "Agent name (overrides config)")
	cmd.Flags().StringVar(&flagAPIURL, "api", "", "Control-plane GraphQL endpoint")
	cmd.Flags().StringVar(&flagToken, "token", "", "Agent auth token")
	cmd.Flags().StringVar(&flagLabels, "labels", "", `Agent labels as a literal list, e.g. "['prod', 'gpu']"`)
	cmd.Flags().StringVar(&flagBackend, "backend", "", "Deployment backend (local, ecs, none)")
	cmd.Flags().DurationVar(&flagPoll, "poll", 0, "Poll interval")
	cmd.Flags().IntVar(&flagConcurrency, "max-concurrent", 0, "Max concurrent deployments")
	cmd.Flags().StringVar(&flagHealthAddr, "health-addr", "", "Health/metrics listen address (empty disables)")
	cmd.Flags().StringVar(&flagJournal, "journal", "", "Deploy journal SQLite path (empty disables)")
	cmd.Flags().StringSliceVar(&flagLocalCommand, "local-command", nil, "Command the local backend runs per flow run")
	cmd.Flags().StringVar(&flagECSCluster, "ecs-cluster", "", "ECS cluster for the ecs backend")
	cmd.Flags().StringVar(&flagECSTaskDef, "ecs-task-definition", "", "ECS task definition for the ecs backend")
	cmd.Flags().StringSliceVar(&flagECSSubnets, "ecs-subnets", nil, "ECS awsvpc subnets (enables Fargate)")

	return cmd
}
