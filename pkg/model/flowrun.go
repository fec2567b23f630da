package model

// FlowRun is one scheduled execution instance of a workflow, as returned by
// the control plane. The agent holds a read-only copy for a single poll
// cycle; the control plane remains the owner of the canonical record.
type FlowRun struct {
	ID              string    `json:"id"`
	SerializedState State     `json:"serialized_state"`
	Version         int       `json:"version"`
	TaskRuns        []TaskRun `json:"task_runs,omitempty"`
}

// TaskRun is one scheduled execution instance of a single step within a flow
// run. It has no lifecycle independent of its FlowRun.
type TaskRun struct {
	ID              string `json:"id"`
	SerializedState State  `json:"serialized_state"`
	Version         int    `json:"version"`
}
