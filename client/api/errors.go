package api

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindNetwork      Kind = "network"
	KindUnknown      Kind = "unknown"
)

// Error is the single failure shape returned by every client call.
// Status is 0 when no response was received.
type Error struct {
	Kind       Kind
	Status     int
	Code       string
	Message    string
	ConflictID string
	Err        error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s (%d %s): %s", e.Kind, e.Status, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

// AsError returns the *Error inside err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Invalid builds a validation error that was detected before any request was sent.
func Invalid(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// Conflict builds a conflict error detected locally against known state.
func Conflict(code, msg, conflictID string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg, ConflictID: conflictID}
}

func kindOf(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	default:
		return KindUnknown
	}
}

type errorBody struct {
	Message    string `json:"message"`
	Code       string `json:"code"`
	ConflictID string `json:"conflictId"`
}

func fromResponse(status int, raw []byte) *Error {
	e := &Error{Kind: kindOf(status), Status: status}
	var b errorBody
	if len(raw) > 0 && json.Unmarshal(raw, &b) == nil {
		e.Code, e.Message, e.ConflictID = b.Code, b.Message, b.ConflictID
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
