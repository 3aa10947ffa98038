package registry

import (
	"errors"
	"fmt"
)

// Code categorizes registry errors.
type Code string

const (
	// CodeInvalidInput indicates a field exceeds its bound. Detected before
	// any store interaction.
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeAlreadyRegistered indicates the derived key is already occupied.
	CodeAlreadyRegistered Code = "ALREADY_REGISTERED"

	// CodeNotFound indicates a read found no record at the derived key.
	CodeNotFound Code = "NOT_FOUND"

	// CodeStoreUnavailable wraps a failure of the record store.
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"

	// CodeUnauthorized indicates the caller tried to write as another author.
	CodeUnauthorized Code = "UNAUTHORIZED"
)

// Error is the typed error returned by every Service operation.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Field names the offending request field (InvalidInput only).
	Field string

	// Message is a human-readable description.
	Message string

	// Key is the derived key involved, hex encoded, when known.
	Key string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Key != "" {
		msg += fmt.Sprintf(" (key=%s)", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the registry code carried by err, or "" if err is not a
// registry error. Uses errors.As to handle wrapped errors.
func CodeOf(err error) Code {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsInvalidInput reports whether err is an InvalidInput error.
func IsInvalidInput(err error) bool { return CodeOf(err) == CodeInvalidInput }

// IsAlreadyRegistered reports whether err is an AlreadyRegistered error.
func IsAlreadyRegistered(err error) bool { return CodeOf(err) == CodeAlreadyRegistered }

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsStoreUnavailable reports whether err is a StoreUnavailable error.
func IsStoreUnavailable(err error) bool { return CodeOf(err) == CodeStoreUnavailable }

// IsUnauthorized reports whether err is an Unauthorized error.
func IsUnauthorized(err error) bool { return CodeOf(err) == CodeUnauthorized }

func invalidInput(field, message string, cause error) *Error {
	return &Error{Code: CodeInvalidInput, Field: field, Message: message, Err: cause}
}

func storeUnavailable(op, key string, cause error) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: op, Key: key, Err: cause}
}
