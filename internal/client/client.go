package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/me/flowagent/pkg/model"
)

// Client communicates with the workflow control plane on behalf of an agent.
// All structured queries and mutations go through a single GraphQL endpoint;
// the handshake and run-log calls use dedicated routes.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a control-plane client with connection pooling.
func New(apiURL, token string, logger *slog.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		apiURL: apiURL,
		token:  token,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		logger: logger.With("component", "client"),
	}
}

// GetAuthToken returns the credential the client was configured with.
func (c *Client) GetAuthToken() string {
	return c.token
}

// graphqlRequest is the wire shape of a GraphQL POST body.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphqlResponse is the standard GraphQL response envelope.
type graphqlResponse struct {
	Data   json.RawMessage  `json:"data"`
	Errors []model.APIError `json:"errors,omitempty"`
}

// Graphql issues a structured query or mutation and returns the raw data
// payload. A response carrying GraphQL errors is returned as the first error.
func (c *Client) Graphql(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "", body)
	if err != nil {
		return nil, fmt.Errorf("graphql: %w", err)
	}
	defer resp.Body.Close()

	var envelope graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("graphql: decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return envelope.Data, &envelope.Errors[0]
	}

	return envelope.Data, nil
}

// Handshake resolves the tenant identity bound to the agent credential via
// the identity endpoint. It is a lower-level path than the tenant query and
// is used once at connect time. A null tenant comes back as an empty string;
// the caller decides whether that is fatal.
func (c *Client) Handshake(ctx context.Context) (string, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/handshake", nil)
	if err != nil {
		return "", fmt.Errorf("handshake: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		TenantID *string `json:"tenant_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("handshake: decode response: %w", err)
	}
	if payload.TenantID == nil {
		return "", nil
	}
	return *payload.TenantID, nil
}

// RunLogEntry is one line destined for a flow run's log stream on the
// control plane.
type RunLogEntry struct {
	FlowRunID string `json:"flowRunId"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Name      string `json:"name"`
}

// WriteRunLogs appends entries to the control plane's run-log stream.
func (c *Client) WriteRunLogs(ctx context.Context, entries []RunLogEntry) error {
	input, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	_, err = c.Graphql(ctx, `
		mutation($input: [RunLogInput!]!) {
			write_run_logs(input: $input) { success }
		}`, map[string]any{"input": json.RawMessage(input)})
	if err != nil {
		return fmt.Errorf("write run logs: %w", err)
	}
	return nil
}

// doRequest executes an HTTP request and returns the response.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", "req_"+uuid.New().String()[:8])
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody)
	}

	return resp, nil
}
