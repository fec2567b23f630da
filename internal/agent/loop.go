package agent

import (
	"context"
	"errors"
	"time"

	"github.com/me/flowagent/internal/executor"
	"github.com/sony/gobreaker/v2"
)

// LoopConfig holds poll-loop configuration.
type LoopConfig struct {
	PollInterval time.Duration
	// BreakerTimeout is how long the poll breaker stays open after repeated
	// discovery failures before a trial cycle is allowed through.
	BreakerTimeout time.Duration
	// BreakerFailures is the consecutive-failure count that opens the breaker.
	BreakerFailures uint32
}

// DefaultLoopConfig returns sensible defaults.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		PollInterval:    10 * time.Second,
		BreakerTimeout:  30 * time.Second,
		BreakerFailures: 3,
	}
}

// Run drives the agent: it validates the credential, resolves the tenant
// through the startup handshake, then polls for due flow runs until ctx is
// cancelled. Startup failures (authorization, connection) abort before any
// polling begins; steady-state discovery failures are absorbed by a circuit
// breaker around the poll cycle.
func (a *Agent) Run(ctx context.Context, pool *executor.Pool, cfg LoopConfig) error {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultLoopConfig().PollInterval
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = DefaultLoopConfig().BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = DefaultLoopConfig().BreakerTimeout
	}

	if _, err := a.QueryTenantID(ctx); err != nil {
		return err
	}
	tenantID, err := a.Connect(ctx)
	if err != nil {
		return err
	}

	a.logger.Info("agent started",
		"tenant", tenantID,
		"labels", a.labels,
		"poll_interval", cfg.PollInterval,
	)

	go a.heartbeatLoop(ctx, cfg.PollInterval)

	breaker := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:    "discovery",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
	})

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("agent stopping")
			return nil
		case <-ticker.C:
			a.metrics.pollsTotal.Inc()
			submitted, err := breaker.Execute(func() (bool, error) {
				return a.Process(ctx, pool, tenantID)
			})
			switch {
			case errors.Is(err, gobreaker.ErrOpenState):
				a.logger.Warn("discovery suspended, breaker open")
			case err != nil:
				a.logger.Error("poll cycle failed", "error", err)
			case submitted:
				a.logger.Debug("poll cycle dispatched work")
			}
		}
	}
}

// heartbeatLoop emits liveness signals at the poll interval until the
// context is cancelled. It runs beside the poll loop so a long dispatch
// cycle never starves the heartbeat, and a failed heartbeat never affects
// polling.
func (a *Agent) heartbeatLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.Heartbeat(ctx); err != nil {
				a.logger.Warn("heartbeat failed", "error", err)
			}
		}
	}
}
