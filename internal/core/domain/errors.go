package domain

import (
	"errors"
	"sort"
	"strings"
)

// Kind classifies an error for the transport layer
type Kind string

const (
	KindValidation     Kind = "validation"
	KindConflict       Kind = "conflict"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindRecovery       Kind = "recovery"
	KindNotFound       Kind = "not_found"
	KindRateLimited    Kind = "rate_limited"
)

// Error carries a kind and optional field-level detail
type Error struct {
	Kind     Kind
	Message  string
	Fields   map[string]string
	sentinel error
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

// Is lets errors.Is match against the sentinel the error was built from
func (e *Error) Is(target error) bool {
	return e.sentinel != nil && target == e.sentinel
}

// Coarse, externally visible errors. Authentication, authorization and recovery
// failures never say which check failed.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient role")
	ErrInvalidCode        = errors.New("invalid or expired code")
	ErrInvalidOTP         = errors.New("invalid or expired OTP")
	ErrAccountNotFound    = errors.New("user not found")
	ErrTooManyAttempts    = errors.New("too many attempts, try again later")
)

// NewValidationError builds a validation error with field detail
func NewValidationError(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: ErrValidation.Error(), Fields: fields, sentinel: ErrValidation}
}

// NewConflictError names the field that collided
func NewConflictError(field string) *Error {
	return &Error{
		Kind:     KindConflict,
		Message:  ErrConflict.Error(),
		Fields:   map[string]string{field: "already taken"},
		sentinel: ErrConflict,
	}
}

// KindOf returns the kind of err, or "" for unexpected errors
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthenticated):
		return KindAuthentication
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrInvalidOTP):
		return KindRecovery
	case errors.Is(err, ErrAccountNotFound):
		return KindNotFound
	case errors.Is(err, ErrTooManyAttempts):
		return KindRateLimited
	}
	return ""
}

// FieldsOf returns field detail carried by err, if any
func FieldsOf(err error) map[string]string {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
