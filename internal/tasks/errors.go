package tasks

import "errors"

// MsgTitleRequired is shown when a submission has an empty title.
const MsgTitleRequired = "Task title is required"

var ErrClosed = errors.New("task controller closed")

// ValidationError is raised before any storage call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
