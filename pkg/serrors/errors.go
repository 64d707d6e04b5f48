package serrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react without inspecting messages.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindInvalidState    Kind = "invalid_state"
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindInternal        Kind = "internal"
)

// Error is a domain error carrying a stable machine code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithMeta returns a copy of e with the key/value attached.
func (e *Error) WithMeta(key, value string) *Error {
	cp := *e
	cp.Meta = make(map[string]string, len(e.Meta)+1)
	for k, v := range e.Meta {
		cp.Meta[k] = v
	}
	cp.Meta[key] = value
	return &cp
}

func New(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

func InvalidInput(code, message string) *Error {
	return New(KindInvalidInput, code, message, nil)
}

func InvalidState(code, message string) *Error {
	return New(KindInvalidState, code, message, nil)
}

func Unauthenticated(code, message string) *Error {
	return New(KindUnauthenticated, code, message, nil)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message, nil)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message, nil)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message, nil)
}

// NewFieldRequiredError reports a missing mandatory field.
func NewFieldRequiredError(field string) *Error {
	return New(KindInvalidInput, "FIELD_REQUIRED", field+" is required", nil).WithMeta("field", field)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
