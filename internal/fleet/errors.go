package fleet

import (
	"errors"
	"fmt"
)

// Error is the single error type surfaced by the registry.
//
// Every Error is recoverable by the caller. Code selects the category;
// transports map it to a status code (404, 409, 410, 422).
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ID identifies the affected entity (code id, device id), if any.
	ID string
}

// ErrorCode categorizes registry errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates missing or malformed input.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeNotFound indicates an unknown id or code.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeExpired indicates an activation code past its TTL.
	ErrCodeExpired ErrorCode = "EXPIRED"

	// ErrCodeAlreadyUsed indicates a code that was already redeemed.
	ErrCodeAlreadyUsed ErrorCode = "ALREADY_USED"

	// ErrCodeInvalidTransition indicates an illegal device status change.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s (id=%s)", e.Code, e.Message, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
func CodeOf(err error) ErrorCode {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == ErrCodeValidation }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsExpired reports whether err is an expired-code error.
func IsExpired(err error) bool { return CodeOf(err) == ErrCodeExpired }

// IsAlreadyUsed reports whether err is an already-used error.
func IsAlreadyUsed(err error) bool { return CodeOf(err) == ErrCodeAlreadyUsed }

// IsInvalidTransition reports whether err is an invalid-transition error.
func IsInvalidTransition(err error) bool { return CodeOf(err) == ErrCodeInvalidTransition }

// NewValidationError creates an Error for missing or malformed input.
func NewValidationError(message string) *Error {
	return &Error{Code: ErrCodeValidation, Message: message}
}

// NewNotFoundError creates an Error for an unknown entity.
func NewNotFoundError(kind, id string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: kind + " not found", ID: id}
}

// NewExpiredError creates an Error for an activation code past its TTL.
func NewExpiredError(id string) *Error {
	return &Error{Code: ErrCodeExpired, Message: "activation code expired", ID: id}
}

// NewAlreadyUsedError creates an Error for a code that was already redeemed.
func NewAlreadyUsedError(id string) *Error {
	return &Error{Code: ErrCodeAlreadyUsed, Message: "activation code already used", ID: id}
}

// NewInvalidTransitionError creates an Error for an illegal status change.
func NewInvalidTransitionError(id string, from, to Status) *Error {
	return &Error{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot change status from %s to %s", from, to),
		ID:      id,
	}
}
