// ABOUTME: Tests for PersonaSnapshot projection and display view
// ABOUTME: Verifies fold order, deep copies, and confidence percent rounding

package models

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFold_LastDeltaWins(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	deltas := []FieldDelta{
		{ClientID: "c1", Field: FieldAgeRange, NewValue: ScalarValue("20-29"), Confidence: 0.4, CreatedAt: t0},
		{ClientID: "c1", Field: FieldGoalsPrimary, NewValue: SetValue("a"), Confidence: 0.7, CreatedAt: t0.Add(time.Hour)},
		{ClientID: "c1", Field: FieldAgeRange, NewValue: ScalarValue("30-39"), Confidence: 0.9, CreatedAt: t0.Add(2 * time.Hour)},
	}

	snap := Fold("c1", deltas)

	want := map[Field]FieldState{
		FieldAgeRange:     {Value: ScalarValue("30-39"), Confidence: 0.9, UpdatedAt: t0.Add(2 * time.Hour)},
		FieldGoalsPrimary: {Value: SetValue("a"), Confidence: 0.7, UpdatedAt: t0.Add(time.Hour)},
	}
	if diff := cmp.Diff(want, snap.Fields); diff != "" {
		t.Errorf("Fold() fields mismatch (-want +got):\n%s", diff)
	}
	if !snap.UpdatedAt.Equal(t0.Add(2 * time.Hour)) {
		t.Errorf("UpdatedAt = %v, want %v", snap.UpdatedAt, t0.Add(2*time.Hour))
	}
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	snap := NewSnapshot("c1")
	snap.Apply(FieldDelta{Field: FieldValues, NewValue: SetValue("family"), Confidence: 0.5})

	c := snap.Clone()
	st := c.Fields[FieldValues]
	st.Value.Items[0] = "mutated"

	if got := snap.Fields[FieldValues].Value.Items[0]; got != "family" {
		t.Errorf("original mutated through clone: %q", got)
	}
}

func TestDiffFields(t *testing.T) {
	now := time.Now().UTC()
	a := NewSnapshot("c1")
	a.Apply(FieldDelta{Field: FieldValues, NewValue: SetValue("x", "y"), Confidence: 0.5, CreatedAt: now})
	b := a.Clone()
	if diff := DiffFields(a, b); len(diff) != 0 {
		t.Fatalf("DiffFields() = %v, want none", diff)
	}

	b.Apply(FieldDelta{Field: FieldAgeRange, NewValue: ScalarValue("40-49"), Confidence: 0.5, CreatedAt: now})
	if diff := DiffFields(a, b); len(diff) != 1 || diff[0] != FieldAgeRange {
		t.Errorf("DiffFields() = %v, want [%s]", diff, FieldAgeRange)
	}
}

func TestSnapshot_View(t *testing.T) {
	snap := NewSnapshot("c1")
	snap.Apply(FieldDelta{Field: FieldAchievements, NewValue: SetValue("ran 10k"), Confidence: 0.876})
	snap.Apply(FieldDelta{Field: FieldAgeRange, NewValue: ScalarValue("30-39"), Confidence: 0.6})

	view := snap.View()

	if len(view.Categories) != 2 {
		t.Fatalf("categories = %d, want 2", len(view.Categories))
	}
	if view.Categories[0].Category != CategoryDemographics {
		t.Errorf("first category = %v, want demographics", view.Categories[0].Category)
	}
	progress := view.Categories[1]
	if progress.Fields[0].ConfidencePercent != 88 {
		t.Errorf("ConfidencePercent = %d, want 88", progress.Fields[0].ConfidencePercent)
	}
	if progress.Fields[0].Kind != "set" {
		t.Errorf("Kind = %q, want set", progress.Fields[0].Kind)
	}
}

func TestConfidencePercent(t *testing.T) {
	tests := map[float64]int{0: 0, 0.005: 1, 0.61: 61, 0.999: 100, 1: 100}
	for in, want := range tests {
		if got := ConfidencePercent(in); got != want {
			t.Errorf("ConfidencePercent(%v) = %d, want %d", in, got, want)
		}
	}
}
