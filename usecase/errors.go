package usecase

import "errors"

// ValidationError reports a problem with caller input. Message is safe to
// show to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(message string) error {
	return &ValidationError{Message: message}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ErrEmptyCompletion is returned when the model replies with no content
var ErrEmptyCompletion = errors.New("no response from language model")

// ErrSessionExists is returned when an import names a session that already
// has a stored interview
var ErrSessionExists = errors.New("interview for this session already exists")
