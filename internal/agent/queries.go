package agent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// tenantQuery resolves the credential scope and the tenant in one round trip.
const tenantQuery = `{
	auth_info { api_token_scope }
	tenant { id }
}`

// setFlowRunStateMutation pushes one flow-run state transition, gated by the
// last-observed version.
const setFlowRunStateMutation = `
mutation($input: SetFlowRunStateInput!) {
	set_flow_run_state(input: $input) { id }
}`

// setTaskRunStateMutation pushes one task-run state transition, gated by the
// last-observed version.
const setTaskRunStateMutation = `
mutation($input: SetTaskRunStateInput!) {
	set_task_run_state(input: $input) { id }
}`

// runsInQueueQuery asks for ids of runs currently queued for the tenant,
// restricted to the agent's labels.
func runsInQueueQuery(tenantID string, labels []string) string {
	if labels == nil {
		labels = []string{}
	}
	lbls, _ := json.Marshal(labels)
	return fmt.Sprintf(`{
	get_runs_in_queue(tenant_id: %s, labels: %s) {
		flow_run_ids
	}
}`, strconv.Quote(tenantID), lbls)
}

// flowRunQuery fetches full flow-run objects, nested task runs included, for
// exactly the given ids.
func flowRunQuery(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = strconv.Quote(id)
	}
	return fmt.Sprintf(`{
	flow_run(where: { id: { _in: [%s] } }) {
		id
		version
		serialized_state
		task_runs {
			id
			version
			serialized_state
		}
	}
}`, strings.Join(quoted, ", "))
}
