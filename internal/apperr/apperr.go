/*
Package apperr defines the error kinds from the spec's error handling design
(§7): Validation, NotFound, Forbidden, Conflict, BusinessRule, Internal. One
boundary handler (internal/httpapi/errors.go) translates a *Error's Kind to
the right HTTP status; nothing upstream of that boundary should know about
status codes.

This replaces the teacher's scattered sentinel-error-plus-struct pattern
(generic/errors.go: ErrInsufficientBalance, ErrPolicyNotFound, ... each with
its own detail struct) with one type carrying a Kind, a message, and an
optional wrapped cause - callers that need errors.Is/errors.As still get it,
since Error wraps Unwrap() and each Kind has a matching sentinel.
*/
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindConflict     Kind = "conflict"
	KindBusinessRule Kind = "business_rule"
	KindInternal     Kind = "internal"
)

// Sentinels usable with errors.Is to classify an error by kind without
// inspecting *Error directly.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrBusinessRule = errors.New("business rule violation")
	ErrInternal     = errors.New("internal error")
)

func sentinelFor(k Kind) error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindForbidden:
		return ErrForbidden
	case KindConflict:
		return ErrConflict
	case KindBusinessRule:
		return ErrBusinessRule
	default:
		return ErrInternal
	}
}

// Error is the single error type business logic raises. Detail carries a
// free-form explanation surfaced to API clients; Cause, when present, is an
// underlying error (e.g. a driver error) that should not itself be exposed.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return sentinelFor(e.Kind)
}

// Is matches the sentinel for e's Kind, so errors.Is classifies an *Error
// by kind even when Unwrap yields its Cause.
func (e *Error) Is(target error) bool { return target == sentinelFor(e.Kind) }

func New(kind Kind, detail string) *Error { return &Error{Kind: kind, Detail: detail} }

func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

func Validation(detail string) *Error   { return New(KindValidation, detail) }
func NotFound(detail string) *Error     { return New(KindNotFound, detail) }
func Forbidden(detail string) *Error    { return New(KindForbidden, detail) }
func Conflict(detail string) *Error     { return New(KindConflict, detail) }
func BusinessRule(detail string) *Error { return New(KindBusinessRule, detail) }
func Internal(detail string, cause error) *Error {
	return Wrap(KindInternal, detail, cause)
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, defaulting
// to KindInternal for anything else - the single place that decides how an
// opaque error should be classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
