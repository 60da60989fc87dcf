// ABOUTME: Error types shared by the persona engine
// ABOUTME: ValidationError rejects whole batches, TaxonomyError signals misconfiguration
package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownField is wrapped by validation failures naming a field outside the taxonomy
	ErrUnknownField = errors.New("unknown field")
	// ErrConfidenceRange is wrapped by validation failures on confidences outside [0,1]
	ErrConfidenceRange = errors.New("confidence out of range")
	// ErrKindMismatch is wrapped when a value's shape does not fit the field's kind
	ErrKindMismatch = errors.New("value does not match field kind")
	// ErrEmptyValue is wrapped when a scalar item carries an empty string
	ErrEmptyValue = errors.New("empty scalar value")
)

// Violation describes one problem found in a batch item
type Violation struct {
	Index int
	Field Field
	Err   error
}

func (v Violation) String() string {
	return fmt.Sprintf("item %d (%s): %v", v.Index, v.Field, v.Err)
}

// ValidationError reports a malformed extraction batch. The whole batch is rejected.
type ValidationError struct {
	ClientID   string
	SessionID  string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	if len(parts) == 0 {
		return fmt.Sprintf("invalid batch for client %q", e.ClientID)
	}
	return fmt.Sprintf("invalid batch for client %q: %s", e.ClientID, strings.Join(parts, "; "))
}

// Is lets errors.Is match the sentinel of any violation
func (e *ValidationError) Is(target error) bool {
	for _, v := range e.Violations {
		if errors.Is(v.Err, target) {
			return true
		}
	}
	return false
}

// TaxonomyError means a field has no kind or category mapping.
// It is a configuration error and must never be defaulted away.
type TaxonomyError struct {
	Field  Field
	Reason string
}

func (e *TaxonomyError) Error() string {
	return fmt.Sprintf("taxonomy misconfigured for field %q: %s", e.Field, e.Reason)
}
