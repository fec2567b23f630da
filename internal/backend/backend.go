package backend

import (
	"context"
	"errors"

	"github.com/me/flowagent/pkg/model"
)

// ErrNotImplemented is returned when deployment is requested from an agent
// that has no backend configured. Every deployable agent variant must plug
// in a Backend.
var ErrNotImplemented = errors.New("deploy flow is not implemented on the base agent")

// Backend launches execution of a flow run. Deploy returns backend-specific
// metadata describing where the run went (a pid, a task ARN); any error means
// the run was not launched.
type Backend interface {
	// Name identifies the backend in logs and the health endpoint.
	Name() string

	// Deploy launches the flow run and returns deployment metadata.
	Deploy(ctx context.Context, flowRun *model.FlowRun) (string, error)

	// Heartbeat emits a backend liveness signal. The base behavior is a
	// no-op; failures must never affect polling.
	Heartbeat(ctx context.Context) error
}
