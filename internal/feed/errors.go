package feed

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by Fetch is a *FetchError that matches
// exactly one of these with errors.Is.
var (
	ErrNetwork   = errors.New("network error")
	ErrMalformed = errors.New("malformed response")
	ErrNotFound  = errors.New("train not found")
)

// FetchError describes a failed snapshot fetch
type FetchError struct {
	Kind     error
	EntityID string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v: %v", e.EntityID, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.EntityID, e.Kind)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindName returns a stable identifier for the failure kind
func (e *FetchError) KindName() string {
	switch e.Kind {
	case ErrNetwork:
		return "network_error"
	case ErrMalformed:
		return "malformed_response"
	case ErrNotFound:
		return "not_found"
	}
	return "unknown"
}

// UserMessage returns the message shown when a foreground fetch fails
func (e *FetchError) UserMessage() string {
	switch e.Kind {
	case ErrNotFound:
		return fmt.Sprintf("Train %s was not found. Check the number and search again.", e.EntityID)
	case ErrMalformed:
		return "The live status service sent an unreadable response. Please try again."
	}
	return "Could not reach the live status service. Check your connection and retry."
}

func newError(kind error, entityID string, err error) *FetchError {
	return &FetchError{Kind: kind, EntityID: entityID, Err: err}
}
