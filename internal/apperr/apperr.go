// Package apperr defines the gateway's error taxonomy.
//
// Every failure that can reach an HTTP response is represented as a
// Phase plus a Reason. The phase tells you which stage of a record's
// lifecycle failed (create, update, get, check); the reason is a small
// enumerated cause within that phase. Reasons map deterministically to
// HTTP status codes through HTTPStatus, so handlers never hand-roll a
// status code from a generic error.
//
// Grounded on the registered-code-range idiom in the teacher's
// errors/code.go (CodeError + message registry), simplified to a
// closed enum since the gateway's error space is small and fixed.
package apperr

import "fmt"

// Phase identifies which stage of a record's lifecycle produced an error.
type Phase string

const (
	PhaseCreate Phase = "create"
	PhaseUpdate Phase = "update"
	PhaseGet    Phase = "get"
	PhaseCheck  Phase = "check"
)

// Reason is a small enumerated cause within a Phase.
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonNotFound
	ReasonInvalidInput
	ReasonAccessDenied
	ReasonConflict
	ReasonUpstreamUnavailable
	ReasonUpstreamTimeout
	ReasonQuotaExceeded
	ReasonUnsupportedMediaKind
	ReasonCorrupt
	// ReasonNotDerivedAddress marks a mutable-record write whose body's
	// derived public-key address does not match the URL address - the
	// gateway's derivation guard.
	ReasonNotDerivedAddress
)

func (r Reason) String() string {
	switch r {
	case ReasonNotFound:
		return "not_found"
	case ReasonInvalidInput:
		return "invalid_input"
	case ReasonAccessDenied:
		return "access_denied"
	case ReasonConflict:
		return "conflict"
	case ReasonUpstreamUnavailable:
		return "upstream_unavailable"
	case ReasonUpstreamTimeout:
		return "upstream_timeout"
	case ReasonQuotaExceeded:
		return "quota_exceeded"
	case ReasonUnsupportedMediaKind:
		return "unsupported_media_kind"
	case ReasonCorrupt:
		return "corrupt"
	case ReasonNotDerivedAddress:
		return "not_derived_address"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every internal package
// that can fail in a way an HTTP caller cares about.
type Error struct {
	Phase   Phase
	Reason  Reason
	Op      string
	Parent  error
	Message string
}

func New(phase Phase, reason Reason, op string, parent error) *Error {
	return &Error{Phase: phase, Reason: reason, Op: op, Parent: parent}
}

func Newf(phase Phase, reason Reason, op, format string, args ...any) *Error {
	return &Error{Phase: phase, Reason: reason, Op: op, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Reason.String()
	}
	if e.Parent != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Phase, e.Op, msg, e.Parent)
	}
	return fmt.Sprintf("%s: %s: %s", e.Phase, e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Parent
}

// HTTPStatus maps the error's Reason to an HTTP status code. The Phase
// does not affect the mapping: a not-found is a 404 whether it happened
// on create, update, get or check.
func (e *Error) HTTPStatus() int {
	switch e.Reason {
	case ReasonNotFound:
		return 404
	case ReasonInvalidInput, ReasonUnsupportedMediaKind:
		return 400
	case ReasonAccessDenied:
		return 403
	case ReasonConflict:
		return 409
	case ReasonNotDerivedAddress:
		return 412
	case ReasonQuotaExceeded:
		return 429
	case ReasonUpstreamTimeout:
		return 504
	case ReasonUpstreamUnavailable:
		return 502
	case ReasonCorrupt:
		return 422
	default:
		return 500
	}
}

// As unwraps err looking for an *Error, the way errors.As would, without
// requiring callers to import the standard errors package just for this.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
