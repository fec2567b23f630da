package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStateKind_IsTerminal(t *testing.T) {
	tests := []struct {
		kind StateKind
		want bool
	}{
		{StateScheduled, false},
		{StateSubmitted, false},
		{StateRunning, false},
		{StateSuccess, true},
		{StateFailed, true},
	}
	for _, tt := range tests {
		if got := tt.kind.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestSubmitted(t *testing.T) {
	s := Submitted("Submitted for execution: PID: 1")
	if s.Type != StateSubmitted {
		t.Errorf("type = %s, want Submitted", s.Type)
	}
	if s.Message != "Submitted for execution: PID: 1" {
		t.Errorf("message = %q", s.Message)
	}
	if s.Timestamp == nil || time.Since(*s.Timestamp) > time.Minute {
		t.Errorf("timestamp = %v, want recent", s.Timestamp)
	}
}

func TestFailed(t *testing.T) {
	s := Failed("Error Here")
	if s.Type != StateFailed {
		t.Errorf("type = %s, want Failed", s.Type)
	}
	if s.Message != "Error Here" {
		t.Errorf("message = %q, want Error Here", s.Message)
	}
}

func TestFlowRun_Decode(t *testing.T) {
	raw := `{
		"id": "id",
		"version": 1,
		"serialized_state": {"type": "Scheduled"},
		"task_runs": [
			{"id": "tr", "version": 2, "serialized_state": {"type": "Scheduled"}}
		]
	}`
	var fr FlowRun
	if err := json.Unmarshal([]byte(raw), &fr); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if fr.ID != "id" || fr.Version != 1 {
		t.Errorf("flow run = %+v", fr)
	}
	if fr.SerializedState.Type != StateScheduled {
		t.Errorf("state = %s, want Scheduled", fr.SerializedState.Type)
	}
	if len(fr.TaskRuns) != 1 || fr.TaskRuns[0].Version != 2 {
		t.Errorf("task runs = %+v", fr.TaskRuns)
	}
}
