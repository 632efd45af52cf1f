package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service failures so the HTTP layer can pick a status code
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
)

// Error is a classified service failure. Message is safe to show to callers.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrInvalidStatus    = &Error{Kind: KindValidation, Message: "Invalid status"}
	ErrMissingMethod    = &Error{Kind: KindValidation, Message: "Payment method is required when marking a payment as paid"}
	ErrAmountMismatch   = &Error{Kind: KindValidation, Message: "Amount mismatch"}
	ErrOrderNotFound    = &Error{Kind: KindNotFound, Message: "Order not found"}
	ErrPaymentNotFound  = &Error{Kind: KindNotFound, Message: "Payment not found"}
	ErrAlreadyFinalized = &Error{Kind: KindConflict, Message: "Order is already finalized"}
)

func newError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Validation reports bad caller input.
func Validation(msg string) error { return newError(KindValidation, msg, nil) }

// NotFound reports a missing record.
func NotFound(msg string) error { return newError(KindNotFound, msg, nil) }

// Conflict reports a request that clashes with current state.
func Conflict(msg string) error { return newError(KindConflict, msg, nil) }

// Wrap attaches a caller-facing message to a sentinel or cause while keeping errors.Is working.
func Wrap(kind ErrorKind, msg string, cause error) error { return newError(kind, msg, cause) }

// KindOf returns the kind of the outermost *Error in err's chain, KindInternal otherwise.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of err, or fallback for internal failures.
func MessageOf(err error, fallback string) string {
	var se *Error
	if errors.As(err, &se) && se.Kind != KindInternal {
		return se.Message
	}
	return fallback
}
