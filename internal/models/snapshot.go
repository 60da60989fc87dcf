// ABOUTME: PersonaSnapshot is the materialised current profile for one client
// ABOUTME: It is always the fold of the client's deltas in stored order
package models

import (
	"math"
	"time"
)

// FieldState is the current value of one field plus the confidence that set it
type FieldState struct {
	Value      Value     `json:"value" yaml:"value"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}

// PersonaSnapshot holds every populated field for a client
type PersonaSnapshot struct {
	ClientID  string               `json:"client_id" yaml:"client_id"`
	Fields    map[Field]FieldState `json:"fields" yaml:"fields"`
	UpdatedAt time.Time            `json:"updated_at" yaml:"updated_at"`
}

// NewSnapshot returns an empty snapshot for a client
func NewSnapshot(clientID string) *PersonaSnapshot {
	return &PersonaSnapshot{
		ClientID: clientID,
		Fields:   make(map[Field]FieldState),
	}
}

// Get returns the state of a field and whether it is populated
func (s *PersonaSnapshot) Get(f Field) (FieldState, bool) {
	st, ok := s.Fields[f]
	return st, ok
}

// Apply projects one delta onto the snapshot
func (s *PersonaSnapshot) Apply(d FieldDelta) {
	if s.Fields == nil {
		s.Fields = make(map[Field]FieldState)
	}
	s.Fields[d.Field] = FieldState{
		Value:      d.NewValue.Clone(),
		Confidence: d.Confidence,
		UpdatedAt:  d.CreatedAt,
	}
	if d.CreatedAt.After(s.UpdatedAt) {
		s.UpdatedAt = d.CreatedAt
	}
}

// Clone deep-copies the snapshot
func (s *PersonaSnapshot) Clone() *PersonaSnapshot {
	c := &PersonaSnapshot{
		ClientID:  s.ClientID,
		Fields:    make(map[Field]FieldState, len(s.Fields)),
		UpdatedAt: s.UpdatedAt,
	}
	for f, st := range s.Fields {
		st.Value = st.Value.Clone()
		c.Fields[f] = st
	}
	return c
}

// Fold rebuilds a snapshot from a client's deltas given oldest first
func Fold(clientID string, deltas []FieldDelta) *PersonaSnapshot {
	snap := NewSnapshot(clientID)
	for _, d := range deltas {
		snap.Apply(d)
	}
	return snap
}

// DiffFields lists fields whose state differs between two snapshots
func DiffFields(a, b *PersonaSnapshot) []Field {
	var diff []Field
	for _, f := range Fields() {
		sa, okA := a.Fields[f]
		sb, okB := b.Fields[f]
		if okA != okB {
			diff = append(diff, f)
			continue
		}
		if !okA {
			continue
		}
		if !sa.Value.Equal(sb.Value) || sa.Confidence != sb.Confidence || !sa.UpdatedAt.Equal(sb.UpdatedAt) {
			diff = append(diff, f)
		}
	}
	return diff
}

// FieldView is a display row with the confidence rounded to whole percent
type FieldView struct {
	Field             Field     `json:"field" yaml:"field"`
	Kind              string    `json:"kind" yaml:"kind"`
	Value             Value     `json:"value" yaml:"value"`
	ConfidencePercent int       `json:"confidence_percent" yaml:"confidence_percent"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"updated_at"`
}

// CategoryView groups populated fields of one category
type CategoryView struct {
	Category Category    `json:"category" yaml:"category"`
	Fields   []FieldView `json:"fields" yaml:"fields"`
}

// SnapshotView is the consumer-facing rendering of a snapshot
type SnapshotView struct {
	ClientID   string         `json:"client_id" yaml:"client_id"`
	UpdatedAt  time.Time      `json:"updated_at" yaml:"updated_at"`
	Categories []CategoryView `json:"categories" yaml:"categories"`
}

// View groups populated fields by category in taxonomy order
func (s *PersonaSnapshot) View() SnapshotView {
	view := SnapshotView{ClientID: s.ClientID, UpdatedAt: s.UpdatedAt, Categories: []CategoryView{}}
	byCategory := make(map[Category][]FieldView)
	for _, f := range Fields() {
		st, ok := s.Fields[f]
		if !ok {
			continue
		}
		entry := taxonomy[f]
		byCategory[entry.category] = append(byCategory[entry.category], FieldView{
			Field:             f,
			Kind:              entry.kind.String(),
			Value:             st.Value,
			ConfidencePercent: ConfidencePercent(st.Confidence),
			UpdatedAt:         st.UpdatedAt,
		})
	}
	for _, c := range Categories {
		if rows := byCategory[c]; len(rows) > 0 {
			view.Categories = append(view.Categories, CategoryView{Category: c, Fields: rows})
		}
	}
	return view
}

// ConfidencePercent rounds a [0,1] confidence to an integer percentage
func ConfidencePercent(c float64) int {
	return int(math.Round(c * 100))
}
