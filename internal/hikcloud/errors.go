package hikcloud

import (
	"fmt"
)

// ErrorKind classifies integration failures.
type ErrorKind string

const (
	KindNotConfigured      ErrorKind = "not_configured"
	KindTokenRefreshFailed ErrorKind = "token_refresh_failed"
	KindRemoteAPI          ErrorKind = "remote_api_error"
	KindTransport          ErrorKind = "transport_error"
	KindBackendQuery       ErrorKind = "backend_query_error"
)

// IntegrationError is the only error type returned by Gateway.Request.
type IntegrationError struct {
	Kind       ErrorKind
	StatusCode int    // RemoteAPI only
	Message    string // safe for display
	Err        error
}

func (e *IntegrationError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%d %s", e.StatusCode, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

// Is matches any IntegrationError of the same kind, so the sentinels below work with errors.Is.
func (e *IntegrationError) Is(target error) bool {
	t, ok := target.(*IntegrationError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotConfigured      = &IntegrationError{Kind: KindNotConfigured, Message: "integration is not configured"}
	ErrTokenRefreshFailed = &IntegrationError{Kind: KindTokenRefreshFailed, Message: "token refresh failed"}
	ErrRemoteAPI          = &IntegrationError{Kind: KindRemoteAPI}
	ErrTransport          = &IntegrationError{Kind: KindTransport}
	ErrBackendQuery       = &IntegrationError{Kind: KindBackendQuery}
)

// BackendQueryError wraps a persistence failure in the integration taxonomy.
func BackendQueryError(op string, err error) *IntegrationError {
	return &IntegrationError{Kind: KindBackendQuery, Message: op, Err: err}
}
