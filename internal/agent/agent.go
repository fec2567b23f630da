package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/flowagent/internal/backend"
	"github.com/me/flowagent/internal/client"
	"github.com/me/flowagent/internal/config"
	"github.com/me/flowagent/internal/executor"
	"github.com/me/flowagent/internal/journal"
	"github.com/me/flowagent/internal/logging"
	"github.com/me/flowagent/pkg/model"
)

// runnerScope is the credential scope required for agent operations.
const runnerScope = "RUNNER"

// ControlPlane is the slice of the control-plane client the agent depends on.
type ControlPlane interface {
	GetAuthToken() string
	Graphql(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error)
	Handshake(ctx context.Context) (string, error)
	WriteRunLogs(ctx context.Context, entries []client.RunLogEntry) error
}

// Agent bridges the workflow control plane and a deployment backend. It
// discovers due flow runs, dispatches each to the executor exactly once, and
// reports resulting state transitions back.
type Agent struct {
	name    string
	labels  []string
	envVars map[string]string
	logger  *slog.Logger

	client     ControlPlane
	backend    backend.Backend
	submitting *SubmittingSet
	journal    *journal.Journal
	metrics    *Metrics
}

// Option configures optional Agent dependencies.
type Option func(*Agent)

// WithName overrides the configured agent name. An explicit name takes
// precedence over the configuration value.
func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

// WithBackend plugs in the deployment backend. Without one, DeployFlow fails
// with backend.ErrNotImplemented.
func WithBackend(b backend.Backend) Option {
	return func(a *Agent) {
		a.backend = b
	}
}

// WithJournal enables the local deploy-attempt journal.
func WithJournal(j *journal.Journal) Option {
	return func(a *Agent) {
		a.journal = j
	}
}

// WithMetrics substitutes the metrics instance, useful in tests needing a
// private registry.
func WithMetrics(m *Metrics) Option {
	return func(a *Agent) {
		a.metrics = m
	}
}

// New creates an Agent. Name precedence is WithName over cfg.Name over the
// "agent" default; the logger for that name is process-wide and gains no
// additional handler when several agents share it.
func New(cfg config.AgentConfig, cp ControlPlane, opts ...Option) *Agent {
	a := &Agent{
		name:       cfg.Name,
		labels:     config.ParseLabels(cfg.Labels),
		envVars:    cfg.EnvVars,
		client:     cp,
		submitting: NewSubmittingSet(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.name == "" {
		a.name = "agent"
	}
	if a.metrics == nil {
		a.metrics = defaultMetrics()
	}
	a.logger = logging.Named(a.name, logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	return a
}

// Name returns the agent's resolved name.
func (a *Agent) Name() string { return a.name }

// Labels returns the labels this agent claims runs for.
func (a *Agent) Labels() []string { return a.labels }

// EnvVars returns the configured environment overrides.
func (a *Agent) EnvVars() map[string]string { return a.envVars }

// Logger returns the agent's process-wide named logger.
func (a *Agent) Logger() *slog.Logger { return a.logger }

// QueryTenantID resolves the tenant bound to the current credential via the
// structured query path. It fails with a model.AuthorizationError when no
// credential is configured or when the credential is not runner-scoped; a
// valid credential with no matching tenant yields an empty id.
func (a *Agent) QueryTenantID(ctx context.Context) (string, error) {
	if a.client.GetAuthToken() == "" {
		return "", &model.AuthorizationError{Message: "no agent auth token configured"}
	}

	data, err := a.client.Graphql(ctx, tenantQuery, nil)
	if err != nil {
		return "", err
	}

	var result struct {
		AuthInfo *struct {
			APITokenScope string `json:"api_token_scope"`
		} `json:"auth_info"`
		Tenant []struct {
			ID string `json:"id"`
		} `json:"tenant"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode tenant query: %w", err)
	}

	if result.AuthInfo != nil && result.AuthInfo.APITokenScope != runnerScope {
		return "", &model.AuthorizationError{
			Message: fmt.Sprintf("token scope %q is not an agent scope", result.AuthInfo.APITokenScope),
		}
	}
	if len(result.Tenant) == 0 {
		return "", nil
	}
	return result.Tenant[0].ID, nil
}

// Connect resolves the tenant through the startup handshake. A handshake
// that carries no tenant identifier fails with a model.ConnectionError; this
// path is distinct from QueryTenantID and not interchangeable with it.
func (a *Agent) Connect(ctx context.Context) (string, error) {
	a.logger.Info("connecting to control plane")

	tenantID, err := a.client.Handshake(ctx)
	if err != nil {
		return "", err
	}
	if tenantID == "" {
		return "", &model.ConnectionError{Message: "handshake returned no tenant id"}
	}

	a.logger.Info("connected", "tenant", tenantID)
	return tenantID, nil
}

// QueryFlowRuns discovers flow runs due for this tenant. Runs already in the
// submitting set are filtered out of the id list before the full-object
// fetch; an empty queue or an empty filtered list short-circuits without a
// second query. Query failures propagate to the caller untouched.
func (a *Agent) QueryFlowRuns(ctx context.Context, tenantID string) ([]model.FlowRun, error) {
	a.logger.Debug("querying for flow runs", "tenant", tenantID)

	data, err := a.client.Graphql(ctx, runsInQueueQuery(tenantID, a.labels), nil)
	if err != nil {
		return nil, err
	}

	var queue struct {
		GetRunsInQueue struct {
			FlowRunIDs []string `json:"flow_run_ids"`
		} `json:"get_runs_in_queue"`
	}
	if err := json.Unmarshal(data, &queue); err != nil {
		return nil, fmt.Errorf("decode runs-in-queue query: %w", err)
	}

	ids := make([]string, 0, len(queue.GetRunsInQueue.FlowRunIDs))
	for _, id := range queue.GetRunsInQueue.FlowRunIDs {
		if a.submitting.Contains(id) {
			a.logger.Debug("skipping flow run already submitting", "flow_run", id)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	data, err = a.client.Graphql(ctx, flowRunQuery(ids), nil)
	if err != nil {
		return nil, err
	}

	var fetched struct {
		FlowRun []model.FlowRun `json:"flow_run"`
	}
	if err := json.Unmarshal(data, &fetched); err != nil {
		return nil, fmt.Errorf("decode flow-run query: %w", err)
	}
	return fetched.FlowRun, nil
}

// Process runs one poll/dispatch cycle: discover due runs and hand each to
// the executor. It returns true iff at least one unit of work was submitted.
// Discovery failures are returned to the caller unmodified; deploy failures
// never surface here.
func (a *Agent) Process(ctx context.Context, pool *executor.Pool, tenantID string) (bool, error) {
	runs, err := a.QueryFlowRuns(ctx, tenantID)
	if err != nil {
		return false, err
	}
	if len(runs) == 0 {
		return false, nil
	}

	for i := range runs {
		flowRun := runs[i]
		a.logger.Info("deploying flow run", "flow_run", flowRun.ID)

		// Insertion must happen before the work is handed over, so the
		// next poll cycle already sees the run as in flight.
		a.submitting.Add(flowRun.ID)
		a.metrics.submitting.Set(float64(a.submitting.Len()))

		future := pool.Submit(func() {
			a.deployAndUpdateFlowRun(ctx, &flowRun)
		})
		future.OnDone(func(*executor.Future) {
			a.onDeployAttemptDone(flowRun.ID)
		})
	}
	return true, nil
}

// onDeployAttemptDone releases the flow run id once its deploy attempt has
// finished, success or failure.
func (a *Agent) onDeployAttemptDone(flowRunID string) {
	a.submitting.Remove(flowRunID)
	a.metrics.submitting.Set(float64(a.submitting.Len()))
	a.logger.Debug("deploy attempt complete", "flow_run", flowRunID)
}

// deployAndUpdateFlowRun hands the flow run to the deployment backend and
// reports the outcome. Runs inside the executor, never on the poll
// goroutine. Deploy errors are fully contained here: they become a remote
// ERROR log line plus a Failed state, and nothing propagates.
func (a *Agent) deployAndUpdateFlowRun(ctx context.Context, flowRun *model.FlowRun) {
	start := time.Now()
	meta, err := a.DeployFlow(ctx, flowRun)
	if err != nil {
		a.metrics.deployDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		a.metrics.runsFailed.Inc()
		a.logger.Error("logging platform error for flow run", "flow_run", flowRun.ID, "error", err)

		if logErr := a.client.WriteRunLogs(ctx, []client.RunLogEntry{{
			FlowRunID: flowRun.ID,
			Level:     "ERROR",
			Message:   err.Error(),
			Name:      a.name,
		}}); logErr != nil {
			a.logger.Error("failed to write failure log to control plane",
				"flow_run", flowRun.ID, "error", logErr)
		}

		a.MarkFailed(ctx, flowRun, err)
		a.record(ctx, flowRun.ID, "failed", err.Error())
		return
	}

	a.metrics.deployDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	a.metrics.runsSubmitted.Inc()
	a.UpdateState(ctx, flowRun, meta)
	a.record(ctx, flowRun.ID, "submitted", meta)
}

// UpdateState marks the flow run and every task run it carries as Submitted,
// attaching the backend's deployment metadata. Each mutation carries the
// entity's last-observed version; a rejected mutation is logged and skipped,
// never retried and never surfaced to the caller.
func (a *Agent) UpdateState(ctx context.Context, flowRun *model.FlowRun, deploymentInfo string) {
	a.logger.Debug("updating states for flow run", "flow_run", flowRun.ID)

	message := "Submitted for execution"
	if deploymentInfo != "" {
		message = fmt.Sprintf("Submitted for execution: %s", deploymentInfo)
	}
	state := model.Submitted(message)

	a.setFlowRunState(ctx, flowRun, state)
	for i := range flowRun.TaskRuns {
		a.setTaskRunState(ctx, &flowRun.TaskRuns[i], state)
	}
}

// MarkFailed transitions the flow run and its task runs to Failed, carrying
// the triggering error's message. Mutation failures follow the same
// logged-and-skipped policy as UpdateState.
func (a *Agent) MarkFailed(ctx context.Context, flowRun *model.FlowRun, cause error) {
	a.logger.Debug("marking flow run failed", "flow_run", flowRun.ID)

	state := model.Failed(cause.Error())
	a.setFlowRunState(ctx, flowRun, state)
	for i := range flowRun.TaskRuns {
		a.setTaskRunState(ctx, &flowRun.TaskRuns[i], state)
	}
}

func (a *Agent) setFlowRunState(ctx context.Context, flowRun *model.FlowRun, state model.State) {
	_, err := a.client.Graphql(ctx, setFlowRunStateMutation, map[string]any{
		"input": map[string]any{
			"id":      flowRun.ID,
			"version": flowRun.Version,
			"state":   state,
		},
	})
	if err != nil {
		a.logger.Warn("flow run state update rejected",
			"flow_run", flowRun.ID, "version", flowRun.Version, "error", err)
	}
}

func (a *Agent) setTaskRunState(ctx context.Context, taskRun *model.TaskRun, state model.State) {
	_, err := a.client.Graphql(ctx, setTaskRunStateMutation, map[string]any{
		"input": map[string]any{
			"id":      taskRun.ID,
			"version": taskRun.Version,
			"state":   state,
		},
	})
	if err != nil {
		a.logger.Warn("task run state update rejected",
			"task_run", taskRun.ID, "version", taskRun.Version, "error", err)
	}
}

// DeployFlow launches the flow run on the configured backend. The base
// agent has no backend and fails with backend.ErrNotImplemented.
func (a *Agent) DeployFlow(ctx context.Context, flowRun *model.FlowRun) (string, error) {
	if a.backend == nil {
		return "", backend.ErrNotImplemented
	}
	return a.backend.Deploy(ctx, flowRun)
}

// Heartbeat emits a liveness signal through the backend. With no backend it
// is a no-op; heartbeat failures never affect polling.
func (a *Agent) Heartbeat(ctx context.Context) error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Heartbeat(ctx)
}

// record writes a deploy attempt to the local journal when one is enabled.
func (a *Agent) record(ctx context.Context, flowRunID, outcome, message string) {
	if a.journal == nil {
		return
	}
	backendName := "none"
	if a.backend != nil {
		backendName = a.backend.Name()
	}
	if err := a.journal.Record(ctx, journal.Attempt{
		FlowRunID: flowRunID,
		Backend:   backendName,
		Outcome:   outcome,
		Message:   message,
	}); err != nil {
		a.logger.Warn("journal write failed", "flow_run", flowRunID, "error", err)
	}
}
