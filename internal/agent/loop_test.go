package agent

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/flowagent/internal/executor"
	"github.com/me/flowagent/pkg/model"
)

func TestRun_AbortsOnAuthorizationFailure(t *testing.T) {
	a := newTestAgent(t, &fakeControlPlane{}) // no token configured

	err := a.Run(context.Background(), nil, DefaultLoopConfig())
	var authErr *model.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestRun_AbortsOnHandshakeFailure(t *testing.T) {
	cp := &fakeControlPlane{
		token: "TEST_TOKEN",
		graphqlFn: func(string, map[string]any) (json.RawMessage, error) {
			return json.RawMessage(`{"tenant": [{"id": "id"}]}`), nil
		},
		// handshakeID left empty: no tenant in the handshake response.
	}
	a := newTestAgent(t, cp)

	err := a.Run(context.Background(), nil, DefaultLoopConfig())
	var connErr *model.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestRun_PollsUntilCancelled(t *testing.T) {
	var polls atomic.Int32
	cp := &fakeControlPlane{
		token:       "TEST_TOKEN",
		handshakeID: "id",
		graphqlFn: func(query string, _ map[string]any) (json.RawMessage, error) {
			if strings.Contains(query, "get_runs_in_queue") {
				polls.Add(1)
				return json.RawMessage(`{"get_runs_in_queue": {"flow_run_ids": []}}`), nil
			}
			return json.RawMessage(`{"tenant": [{"id": "id"}]}`), nil
		},
	}
	a := newTestAgent(t, cp)

	pool := executor.NewPool(1)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx, pool, LoopConfig{PollInterval: 5 * time.Millisecond})
	}()

	assert.Eventually(t, func() bool { return polls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_SurvivesDiscoveryFailures(t *testing.T) {
	var calls atomic.Int32
	cp := &fakeControlPlane{
		token:       "TEST_TOKEN",
		handshakeID: "id",
		graphqlFn: func(query string, _ map[string]any) (json.RawMessage, error) {
			if strings.Contains(query, "get_runs_in_queue") {
				calls.Add(1)
				return nil, &model.APIError{Message: "temporarily unavailable"}
			}
			return json.RawMessage(`{"tenant": [{"id": "id"}]}`), nil
		},
	}
	a := newTestAgent(t, cp)

	pool := executor.NewPool(1)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx, pool, LoopConfig{
			PollInterval:    5 * time.Millisecond,
			BreakerFailures: 3,
			BreakerTimeout:  time.Minute,
		})
	}()

	// The loop keeps running through failures; the breaker opens after the
	// configured count and stops hammering the control plane.
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

