// ABOUTME: Tests for milestone grouping and significance rules
// ABOUTME: Pure helpers are tested directly; Build runs against SQLite history
package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/harper/persona/internal/models"
)

func delta(field models.Field, confidence float64, session string, at time.Time) models.FieldDelta {
	v := models.SetValue("x")
	if k, _ := field.Kind(); k == models.KindScalar {
		v = models.ScalarValue("x")
	}
	return models.FieldDelta{
		ID:              fmt.Sprintf("delta_%s_%d", field, at.UnixNano()),
		ClientID:        "c1",
		Field:           field,
		NewValue:        v,
		Confidence:      confidence,
		SourceSessionID: session,
		CreatedAt:       at,
	}
}

var (
	march = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	april = time.Date(2024, 4, 2, 8, 0, 0, 0, time.UTC)
)

func TestIsSignificant(t *testing.T) {
	tests := []struct {
		name   string
		deltas []models.FieldDelta
		want   bool
	}{
		{
			name: "length rule: five low-confidence deltas",
			deltas: []models.FieldDelta{
				delta(models.FieldValues, 0.5, "", march),
				delta(models.FieldStrengths, 0.5, "", march),
				delta(models.FieldTraits, 0.5, "", march),
				delta(models.FieldFears, 0.5, "", march),
				delta(models.FieldOccupation, 0.5, "", march),
			},
			want: true,
		},
		{
			name:   "key-field rule: one low-confidence goals.primary delta",
			deltas: []models.FieldDelta{delta(models.FieldGoalsPrimary, 0.2, "", march)},
			want:   true,
		},
		{
			name:   "key-field rule: achievements",
			deltas: []models.FieldDelta{delta(models.FieldAchievements, 0.1, "", march)},
			want:   true,
		},
		{
			name:   "confidence rule: average exactly 0.8",
			deltas: []models.FieldDelta{delta(models.FieldValues, 0.8, "", march), delta(models.FieldTraits, 0.8, "", march)},
			want:   true,
		},
		{
			name: "four low-confidence non-key deltas",
			deltas: []models.FieldDelta{
				delta(models.FieldValues, 0.5, "", march),
				delta(models.FieldStrengths, 0.5, "", march),
				delta(models.FieldTraits, 0.5, "", march),
				delta(models.FieldFears, 0.5, "", march),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods, err := BuildMilestones(tt.deltas, models.GranularityMonth)
			if err != nil {
				t.Fatalf("BuildMilestones() error = %v", err)
			}
			if len(periods) != 1 {
				t.Fatalf("periods = %d, want 1", len(periods))
			}
			if periods[0].IsSignificant != tt.want {
				t.Errorf("IsSignificant = %v, want %v (avg %.2f)", periods[0].IsSignificant, tt.want, periods[0].AvgConfidence)
			}
		})
	}
}

func TestBuildMilestonesByMonth(t *testing.T) {
	// Newest first, as the history store returns them.
	deltas := []models.FieldDelta{
		delta(models.FieldValues, 0.6, "s3", april),
		delta(models.FieldOccupation, 1.0, "s2", march.Add(48*time.Hour)),
		delta(models.FieldGoalsPrimary, 0.5, "s1", march),
	}

	periods, err := BuildMilestones(deltas, models.GranularityMonth)
	if err != nil {
		t.Fatalf("BuildMilestones() error = %v", err)
	}

	var keys []string
	for _, p := range periods {
		keys = append(keys, p.PeriodKey)
	}
	if diff := cmp.Diff([]string{"2024-04", "2024-03"}, keys); diff != "" {
		t.Errorf("period keys mismatch (-want +got):\n%s", diff)
	}

	m := periods[1]
	if m.AvgConfidence != 0.75 {
		t.Errorf("March AvgConfidence = %v, want 0.75", m.AvgConfidence)
	}
	if diff := cmp.Diff([]models.Category{models.CategoryDemographics, models.CategoryGoals}, m.Categories); diff != "" {
		t.Errorf("March categories mismatch (-want +got):\n%s", diff)
	}
	if m.CategoryCount != 2 {
		t.Errorf("CategoryCount = %d, want 2", m.CategoryCount)
	}
	if !m.StartedAt.Equal(march) || !m.EndedAt.Equal(march.Add(48*time.Hour)) {
		t.Errorf("March span = %v..%v", m.StartedAt, m.EndedAt)
	}
	if m.Deltas[0].Category != models.CategoryDemographics {
		t.Errorf("entry category = %s, want demographics", m.Deltas[0].Category)
	}
}

func TestBuildMilestonesMonthUsesUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 2024-04-01 02:00 UTC is still March in EST.
	d := delta(models.FieldValues, 0.5, "", time.Date(2024, 3, 31, 21, 0, 0, 0, est))

	periods, err := BuildMilestones([]models.FieldDelta{d}, models.GranularityMonth)
	if err != nil {
		t.Fatalf("BuildMilestones() error = %v", err)
	}
	if periods[0].PeriodKey != "2024-04" {
		t.Errorf("PeriodKey = %s, want 2024-04", periods[0].PeriodKey)
	}
}

func TestBuildMilestonesBySession(t *testing.T) {
	deltas := []models.FieldDelta{
		delta(models.FieldValues, 0.6, "s2", april),
		delta(models.FieldOccupation, 0.9, "", march.Add(time.Hour)),
		delta(models.FieldTraits, 0.5, "s1", march),
	}

	periods, err := BuildMilestones(deltas, models.GranularitySession)
	if err != nil {
		t.Fatalf("BuildMilestones() error = %v", err)
	}

	var keys []string
	for _, p := range periods {
		keys = append(keys, p.PeriodKey)
	}
	if diff := cmp.Diff([]string{"s2", models.UnattributedPeriod, "s1"}, keys); diff != "" {
		t.Errorf("period keys mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildMilestonesUnknownGranularity(t *testing.T) {
	_, err := BuildMilestones([]models.FieldDelta{delta(models.FieldValues, 0.5, "", march)}, models.Granularity("week"))
	if err == nil {
		t.Error("BuildMilestones() with unknown granularity should fail")
	}
}

func TestBuildMilestonesCategoryMissIsFatal(t *testing.T) {
	bad := delta(models.FieldValues, 0.5, "", march)
	bad.Field = models.Field("legacy.mood")

	_, err := BuildMilestones([]models.FieldDelta{bad}, models.GranularityMonth)
	var terr *models.TaxonomyError
	if !errors.As(err, &terr) {
		t.Fatalf("BuildMilestones() error = %v, want *TaxonomyError", err)
	}
	if terr.Field != "legacy.mood" {
		t.Errorf("TaxonomyError.Field = %s, want legacy.mood", terr.Field)
	}
}

func TestBuildMilestonesEmpty(t *testing.T) {
	periods, err := BuildMilestones(nil, models.GranularityMonth)
	if err != nil {
		t.Fatalf("BuildMilestones() error = %v", err)
	}
	if periods == nil || len(periods) != 0 {
		t.Errorf("periods = %v, want empty non-nil slice", periods)
	}
}

func TestAddedItems(t *testing.T) {
	old := models.SetValue("a", "b")
	tests := []struct {
		name string
		d    models.FieldDelta
		want []string
	}{
		{"no old value", models.FieldDelta{NewValue: models.SetValue("a")}, []string{"a"}},
		{"difference", models.FieldDelta{OldValue: &old, NewValue: models.SetValue("a", "b", "c")}, []string{"c"}},
		{"scalar", models.FieldDelta{NewValue: models.ScalarValue("x")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, AddedItems(tt.d)); diff != "" {
				t.Errorf("AddedItems() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTimelineReconstructorBuild(t *testing.T) {
	store := newSQLiteStore(t)
	ing := NewIngestor(store, IngestorOptions{Clock: stepClock(march)})
	ctx := context.Background()

	if _, err := ing.Ingest(ctx, batchOf("c1", "s1", setItem(models.FieldGoalsPrimary, 0.3, "Get promoted"))); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if _, err := ing.Ingest(ctx, batchOf("c1", "s2", setItem(models.FieldValues, 0.3, "family"))); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	r := NewTimelineReconstructor(store, nil)
	periods, err := r.Build(ctx, "c1", TimelineOptions{Granularity: models.GranularitySession})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(periods) != 2 {
		t.Fatalf("periods = %d, want 2", len(periods))
	}
	if periods[0].PeriodKey != "s2" || periods[0].IsSignificant {
		t.Errorf("newest period = (%s, significant %v), want (s2, false)", periods[0].PeriodKey, periods[0].IsSignificant)
	}
	if periods[1].PeriodKey != "s1" || !periods[1].IsSignificant {
		t.Errorf("oldest period = (%s, significant %v), want (s1, true)", periods[1].PeriodKey, periods[1].IsSignificant)
	}

	limited, err := r.Build(ctx, "c1", TimelineOptions{Limit: 1})
	if err != nil {
		t.Fatalf("Build(limit) error = %v", err)
	}
	if len(limited) != 1 || len(limited[0].Deltas) != 1 {
		t.Errorf("Build(limit 1) should see one delta")
	}
}
