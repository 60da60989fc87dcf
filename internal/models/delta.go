// ABOUTME: FieldDelta is one immutable change event in the persona ledger
// ABOUTME: Created only by the merge engine and never updated afterwards
package models

import "time"

// FieldDelta records a single field transition for a client
type FieldDelta struct {
	ID              string    `json:"id" yaml:"id"`
	Seq             int64     `json:"seq,omitempty" yaml:"seq,omitempty"`
	ClientID        string    `json:"client_id" yaml:"client_id"`
	Field           Field     `json:"field" yaml:"field"`
	OldValue        *Value    `json:"old_value" yaml:"old_value"`
	NewValue        Value     `json:"new_value" yaml:"new_value"`
	Confidence      float64   `json:"confidence" yaml:"confidence"`
	SourceSessionID string    `json:"source_session_id,omitempty" yaml:"source_session_id,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
}

// HasSession reports whether the delta came from a session analysis
func (d FieldDelta) HasSession() bool {
	return d.SourceSessionID != ""
}
