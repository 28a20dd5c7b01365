package scheduling

import (
	"errors"
	"fmt"
)

// Kind classifies a scheduling failure for the API layer.
type Kind int

const (
	// KindValidation covers malformed or missing input fields.
	KindValidation Kind = iota
	// KindNotFound covers unresolved patient/doctor/appointment references.
	KindNotFound
	// KindConflict covers temporal, business-hours, slot-template,
	// double-booking and daily-cap violations.
	KindConflict
	// KindAuthorization covers actors lacking permission for a transition.
	KindAuthorization
	// KindState covers illegal status transitions.
	KindState
	// KindSystem covers storage/transaction failures.
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	default:
		return "system"
	}
}

// Error is a kind-tagged scheduling failure with a user-facing message.
// System errors additionally wrap the underlying cause, which is logged but
// never surfaced to callers.
type Error struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("scheduling: %s: %s: %v", e.Kind, e.Msg, e.err)
	}
	return fmt.Sprintf("scheduling: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.err }

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func authorizationError(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Msg: fmt.Sprintf(format, args...)}
}

func stateError(format string, args ...any) *Error {
	return &Error{Kind: KindState, Msg: fmt.Sprintf(format, args...)}
}

func systemError(msg string, err error) *Error {
	return &Error{Kind: KindSystem, Msg: msg, err: err}
}

// KindOf extracts the failure kind from an error chain; unknown errors are
// reported as system failures.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindSystem
}

// MessageOf returns the user-facing message for an error chain.
func MessageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		if se.Kind == KindSystem {
			return "internal error"
		}
		return se.Msg
	}
	return "internal error"
}
