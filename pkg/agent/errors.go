package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidModel is returned for model ids outside the allow-list
	ErrInvalidModel = errors.New("invalid model")

	// ErrMissingCredential is returned when a question is asked without a credential
	ErrMissingCredential = errors.New("missing credential")

	// ErrEmptyQuestion is returned for empty or whitespace-only questions
	ErrEmptyQuestion = errors.New("empty question")

	// ErrTimeout marks a provider call abandoned because the caller's deadline expired
	ErrTimeout = errors.New("timeout")

	// ErrSessionClosed is returned by Ask after Close
	ErrSessionClosed = errors.New("session closed")

	// ErrAgentClosed is returned by a binding used after it was released
	ErrAgentClosed = errors.New("agent closed")
)

// ProviderError wraps any failure raised by the reasoning provider
type ProviderError struct {
	Cause error
}

func (e *ProviderError) Error() string {
	if e.Cause == nil {
		return "provider error"
	}
	return fmt.Sprintf("provider error: %v", e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError wraps cause; an existing *ProviderError is returned as is
func NewProviderError(cause error) *ProviderError {
	var pe *ProviderError
	if errors.As(cause, &pe) {
		return pe
	}
	return &ProviderError{Cause: cause}
}

// IsProviderError reports whether err originated at the provider boundary
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
