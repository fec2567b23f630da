package model

import "fmt"

// AuthorizationError reports a missing credential, or a credential whose
// scope does not permit agent operations, during tenant resolution. It is
// fatal to agent startup.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization error: %s", e.Message)
}

// ConnectionError reports a startup handshake that resolved no tenant
// identifier. It is fatal to agent startup.
type ConnectionError struct {
	Message string
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %s", e.Message)
}

// APIError is a structured error returned by the control-plane API.
type APIError struct {
	Message string   `json:"message"`
	Path    []string `json:"path,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}
