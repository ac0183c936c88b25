// Package entity defines the core domain entities for the dialer:
// contacts, call results, and the validation rules they must satisfy.
package entity

import (
	"errors"
	"fmt"
)

// ErrValidationFailed is the sentinel every validation failure unwraps to.
// Callers that only care whether input was rejected can errors.Is against
// it; errors.As with *ValidationError recovers the offending field.
var ErrValidationFailed = errors.New("validation failed")

// ValidationError reports which field of an entity was rejected and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// Unwrap ties every ValidationError into the ErrValidationFailed chain.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}
