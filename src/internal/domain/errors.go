package domain

import "errors"

var ErrNotAuthorized = errors.New("Not authorized")
var ErrSessionNotFound = errors.New("Session not found")

// ValidationError is a user-correctable input problem. It is reported back to the
// client as an unsuccessful outcome rather than as a transport error.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) ValidationError {
	return ValidationError{Message: message}
}

// IsValidationError reports whether err carries a ValidationError and returns its message.
func IsValidationError(err error) (string, bool) {
	var verr ValidationError
	if errors.As(err, &verr) {
		return verr.Message, true
	}
	return "", false
}
