package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnexpectedResponseShape indicates a call succeeded but no usable
	// artifact could be extracted from the reply.
	ErrUnexpectedResponseShape = errors.New("unexpected response shape")
	// ErrTaskNotFound indicates the provider does not (yet) know the task id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrMissingArtifact indicates the provider claimed completion but the
	// result artifact was absent from the reply.
	ErrMissingArtifact = errors.New("completed task missing artifact")
)

// TransportError indicates that both the direct attempt and the proxy
// fallback failed for one logical submission.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport: %s: proxy status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("transport: %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamTimeoutError indicates a bound request exceeded its deadline while
// the caller's own context was still live. Callers use it to offer "try
// again" messaging instead of "provider is down".
type UpstreamTimeoutError struct {
	Endpoint string
	Timeout  time.Duration
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("upstream timeout: %s after %s", e.Endpoint, e.Timeout)
}

// ProviderError carries a failure the provider itself reported in its
// response envelope, as opposed to a transport-level failure.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider failure (code %d)", e.Code)
	}
	return fmt.Sprintf("provider failure: %s (code %d)", e.Message, e.Code)
}
