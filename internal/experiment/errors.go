package experiment

import (
	"errors"
	"fmt"
)

// ErrExperimentNotFound is returned when an unknown experiment id is
// queried directly.
var ErrExperimentNotFound = errors.New("experiment not found")

// ErrExperimentNotActive is returned by AssignmentService when asked to
// bucket a user into a draft or completed experiment. This is an expected
// steady-state condition, not a failure: the resolver treats it as "skip".
var ErrExperimentNotActive = errors.New("experiment is not active")

// ValidationError reports a malformed field in caller-supplied input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
