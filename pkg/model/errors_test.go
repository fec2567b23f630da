package model

import (
	"errors"
	"strings"
	"testing"
)

func TestAuthorizationError(t *testing.T) {
	var err error = &AuthorizationError{Message: "no agent auth token configured"}
	if !strings.Contains(err.Error(), "authorization error") {
		t.Errorf("Error() = %q", err.Error())
	}

	var authErr *AuthorizationError
	if !errors.As(err, &authErr) {
		t.Error("errors.As should match *AuthorizationError")
	}
}

func TestConnectionError(t *testing.T) {
	var err error = &ConnectionError{Message: "handshake returned no tenant id"}
	if !strings.Contains(err.Error(), "connection error") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAPIError(t *testing.T) {
	err := &APIError{Message: "version conflict"}
	if err.Error() != "version conflict" {
		t.Errorf("Error() = %q", err.Error())
	}
}
