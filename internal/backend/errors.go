package backend

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidColumn = errors.New("invalid sort column")
)

// Error is a failure reported by a collaborator. Message is human readable
// and is shown to the user verbatim.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(op, message string, err error) *Error {
	return &Error{Op: op, Message: message, Err: err}
}

// Message extracts the user-facing text of err. Errors that did not come
// from a collaborator fall back to def.
func Message(err error, def string) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return def
}
