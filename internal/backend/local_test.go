package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/me/flowagent/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeLauncher struct {
	command []string
	env     []string
	pid     int
	err     error
}

func (f *fakeLauncher) Start(_ context.Context, command []string, env []string) (int, error) {
	f.command = command
	f.env = env
	return f.pid, f.err
}

func TestLocal_Deploy(t *testing.T) {
	launcher := &fakeLauncher{pid: 4242}
	l := NewLocal(LocalConfig{
		Command: []string{"flowctl", "execute", "flow-run"},
		Env:     map[string]string{"AUTH_THING": "foo"},
	}, discard())
	l.launcher = launcher

	meta, err := l.Deploy(context.Background(), &model.FlowRun{ID: "id"})
	require.NoError(t, err)
	assert.Equal(t, "PID: 4242", meta)
	assert.Equal(t, []string{"flowctl", "execute", "flow-run"}, launcher.command)
	assert.Contains(t, launcher.env, "FLOW_RUN_ID=id")
	assert.Contains(t, launcher.env, "AUTH_THING=foo")
}

func TestLocal_DeployLaunchFailure(t *testing.T) {
	launcher := &fakeLauncher{err: errors.New("no such binary")}
	l := NewLocal(LocalConfig{}, discard())
	l.launcher = launcher

	_, err := l.Deploy(context.Background(), &model.FlowRun{ID: "id"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "launch flow run id")
}

func TestLocal_DefaultCommand(t *testing.T) {
	l := NewLocal(LocalConfig{}, discard())
	assert.Equal(t, []string{"flowctl", "execute", "flow-run"}, l.command)
}

func TestLocal_Heartbeat(t *testing.T) {
	l := NewLocal(LocalConfig{}, discard())
	assert.NoError(t, l.Heartbeat(context.Background()))
	assert.Equal(t, "local", l.Name())
}
