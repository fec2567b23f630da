package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunsInQueueQuery(t *testing.T) {
	q := runsInQueueQuery("tenant-1", []string{"test", "2"})
	assert.Contains(t, q, `get_runs_in_queue(tenant_id: "tenant-1", labels: ["test","2"])`)

	// No labels renders an empty list, not null.
	q = runsInQueueQuery("tenant-1", nil)
	assert.Contains(t, q, "labels: []")
}

func TestFlowRunQuery(t *testing.T) {
	q := flowRunQuery([]string{"id1"})
	assert.Contains(t, q, `id: { _in: ["id1"] }`)
	assert.Contains(t, q, "task_runs")
	assert.Contains(t, q, "serialized_state")

	q = flowRunQuery([]string{"id1", "id2"})
	assert.Contains(t, q, `id: { _in: ["id1", "id2"] }`)
}
