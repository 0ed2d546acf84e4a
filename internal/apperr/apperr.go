// Package apperr defines the error kinds shared by the services and the HTTP layer.
// Services wrap a kind with a client-facing message; handlers pick the response
// status with errors.Is.
package apperr

import "errors"

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidInput    = errors.New("invalid input")
)

// Error pairs an error kind with the message shown to the client.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of the given kind carrying a client-facing message.
func New(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Message returns the client-facing message of err.
// Errors that are not *Error return their kind text, or "" for nil.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return err.Error()
}
