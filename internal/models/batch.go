// ABOUTME: ExtractionBatch carries one session's proposed field updates
// ABOUTME: Validate rejects the entire batch on any malformed item
package models

import (
	"fmt"
	"math"
	"strings"
)

// ExtractionItem is a single proposed field value with its confidence
type ExtractionItem struct {
	Field      Field   `json:"field" yaml:"field"`
	Value      Value   `json:"value" yaml:"value"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ExtractionBatch is applied atomically: every item or none
type ExtractionBatch struct {
	ClientID  string           `json:"client_id" yaml:"client_id"`
	SessionID string           `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Items     []ExtractionItem `json:"items" yaml:"items"`
}

// Validate checks every item and returns a *ValidationError listing all violations
func (b *ExtractionBatch) Validate() error {
	verr := &ValidationError{ClientID: b.ClientID, SessionID: b.SessionID}

	if strings.TrimSpace(b.ClientID) == "" {
		verr.Violations = append(verr.Violations, Violation{Index: -1, Err: fmt.Errorf("client_id is required")})
	}

	for i, item := range b.Items {
		kind, err := item.Field.Kind()
		if err != nil {
			verr.Violations = append(verr.Violations, Violation{Index: i, Field: item.Field, Err: ErrUnknownField})
			continue
		}
		if math.IsNaN(item.Confidence) || item.Confidence < 0 || item.Confidence > 1 {
			verr.Violations = append(verr.Violations, Violation{
				Index: i,
				Field: item.Field,
				Err:   fmt.Errorf("%w: %v", ErrConfidenceRange, item.Confidence),
			})
		}
		if item.Value.Kind != kind {
			verr.Violations = append(verr.Violations, Violation{
				Index: i,
				Field: item.Field,
				Err:   fmt.Errorf("%w: got %s, want %s", ErrKindMismatch, item.Value.Kind, kind),
			})
			continue
		}
		if kind == KindScalar && strings.TrimSpace(item.Value.Text) == "" {
			verr.Violations = append(verr.Violations, Violation{Index: i, Field: item.Field, Err: ErrEmptyValue})
		}
	}

	if len(verr.Violations) > 0 {
		return verr
	}
	return nil
}
