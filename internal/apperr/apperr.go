// Package apperr defines the error kinds surfaced by the moderation services
// and their mapping onto HTTP status codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the API boundary.
type Kind string

const (
	KindInternal        Kind = "internal"
	KindValidation      Kind = "validation"
	KindAuthentication  Kind = "authentication"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindAlreadyResolved Kind = "already_resolved"
	KindRateLimited     Kind = "rate_limited"
	KindAnalysis        Kind = "analysis"
	KindPersistence     Kind = "persistence"
)

// Error carries a Kind, a caller-safe message and an optional cause.
type Error struct {
	Kind Kind
	// Field names the offending input for validation errors.
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrAuthentication  = &Error{Kind: KindAuthentication}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrAlreadyResolved = &Error{Kind: KindAlreadyResolved}
	ErrRateLimited     = &Error{Kind: KindRateLimited}
	ErrAnalysis        = &Error{Kind: KindAnalysis}
	ErrPersistence     = &Error{Kind: KindPersistence}
)

func Validation(field, msg string) error {
	return &Error{Kind: KindValidation, Field: field, Msg: msg}
}

func Required(field string) error {
	return Validation(field, field+" is required")
}

func Unauthenticated(msg string) error {
	return &Error{Kind: KindAuthentication, Msg: msg}
}

func Forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func NotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("%s %s not found", entity, id)}
}

func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Msg: msg}
}

func AlreadyResolved(id string) error {
	return &Error{Kind: KindAlreadyResolved, Msg: fmt.Sprintf("queue entry %s is already resolved", id)}
}

func RateLimited(msg string) error {
	return &Error{Kind: KindRateLimited, Msg: msg}
}

func Analysis(err error) error {
	return &Error{Kind: KindAnalysis, Msg: "content analysis failed", Err: err}
}

func Persistence(op string, err error) error {
	return &Error{Kind: KindPersistence, Msg: op, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to its response code.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindAlreadyResolved:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Exposed reports whether the message of err may be shown to callers verbatim.
// Internal, analysis and persistence failures are replaced by generic copy.
func Exposed(k Kind) bool {
	switch k {
	case KindInternal, KindAnalysis, KindPersistence:
		return false
	}
	return true
}
