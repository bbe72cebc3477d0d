package browser

import (
	"errors"
	"fmt"
)

// ErrorKind classifies session errors for programmatic handling.
type ErrorKind string

const (
	// KindNotInitialized means an action ran before Start or after Close.
	KindNotInitialized ErrorKind = "not_initialized"

	// KindAlreadyStarted means Start was called on a running session.
	KindAlreadyStarted ErrorKind = "already_started"

	// KindTimeout means the engine did not respond within budget.
	KindTimeout ErrorKind = "timeout"

	// KindEngineFailure means the underlying engine call failed.
	KindEngineFailure ErrorKind = "engine_failure"
)

// Error is the structured error every session action returns. Actions
// never panic and never let raw engine errors escape; the original engine
// message is preserved in Message for diagnostics. Suggestion, when set,
// is human-readable advice the calling agent can act on.
type Error struct {
	Kind       ErrorKind
	Message    string
	Suggestion string
	cause      error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

func errNotInitialized() *Error {
	return &Error{
		Kind:    KindNotInitialized,
		Message: "browser not initialized: call start first",
	}
}

func errAlreadyStarted() *Error {
	return &Error{
		Kind:    KindAlreadyStarted,
		Message: "browser already started: close the session before starting a new one",
	}
}

func errEngine(msg string, cause error) *Error {
	kind := KindEngineFailure
	if errors.Is(cause, ErrEngineTimeout) {
		kind = KindTimeout
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("%s: %v", msg, cause),
		cause:   cause,
	}
}
