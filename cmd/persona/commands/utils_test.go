// ABOUTME: Tests for shared utility functions used by CLI commands
// ABOUTME: Verifies truncate, formatTime, formatValue, batch decoding, and change rendering

package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/harper/persona/internal/models"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "short string unchanged",
			input:  "hello",
			maxLen: 10,
			want:   "hello",
		},
		{
			name:   "exact length unchanged",
			input:  "hello",
			maxLen: 5,
			want:   "hello",
		},
		{
			name:   "long string truncated",
			input:  "hello world",
			maxLen: 8,
			want:   "hello...",
		},
		{
			name:   "very short maxLen",
			input:  "hello",
			maxLen: 2,
			want:   "he",
		},
		{
			name:   "empty string",
			input:  "",
			maxLen: 10,
			want:   "",
		},
		{
			name:   "unicode cut on rune boundary",
			input:  "你好世界！",
			maxLen: 3,
			want:   "你好世",
		},
		{
			name:   "unicode truncated with ellipsis",
			input:  "你好世界你好世界",
			maxLen: 5,
			want:   "你好...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		input    time.Time
		contains string
	}{
		{"just now (seconds ago)", now.Add(-30 * time.Second), "just now"},
		{"minutes ago", now.Add(-5 * time.Minute), "m ago"},
		{"hours ago", now.Add(-3 * time.Hour), "h ago"},
		{"days ago", now.Add(-2 * 24 * time.Hour), "d ago"},
		{"weeks ago (shows date)", now.Add(-14 * 24 * time.Hour), "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatTime(tt.input)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("formatTime() = %q, want to contain %q", got, tt.contains)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value models.Value
		want  string
	}{
		{"scalar", models.ScalarValue("Engineer"), "Engineer"},
		{"set", models.SetValue("honesty", "growth"), "honesty, growth"},
		{"empty set", models.SetValue(), "(none)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValue(tt.value); got != tt.want {
				t.Errorf("formatValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateNonNegativeInt(t *testing.T) {
	tests := []struct {
		n       int
		wantErr bool
	}{
		{5, false},
		{0, false},
		{-1, true},
	}

	for _, tt := range tests {
		err := validateNonNegativeInt(tt.n, "limit")
		if (err != nil) != tt.wantErr {
			t.Errorf("validateNonNegativeInt(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
		}
		if err != nil && !strings.Contains(err.Error(), "limit") {
			t.Errorf("error should name the field, got %q", err)
		}
	}
}

func TestDecodeBatches(t *testing.T) {
	single := `{"client_id": "c1", "session_id": "s1",
		"items": [{"field": "demographics.occupation", "value": "Engineer", "confidence": 0.8}]}`
	batches, err := decodeBatches([]byte(single))
	if err != nil {
		t.Fatalf("decodeBatches(object) error = %v", err)
	}
	if len(batches) != 1 || batches[0].ClientID != "c1" || len(batches[0].Items) != 1 {
		t.Fatalf("decodeBatches(object) = %+v", batches)
	}
	if batches[0].Items[0].Value.Text != "Engineer" {
		t.Errorf("scalar value = %q, want Engineer", batches[0].Items[0].Value.Text)
	}

	array := `  [{"client_id": "c1", "items": []}, {"client_id": "c2", "items": []}]`
	batches, err = decodeBatches([]byte(array))
	if err != nil {
		t.Fatalf("decodeBatches(array) error = %v", err)
	}
	got := []string{batches[0].ClientID, batches[1].ClientID}
	if diff := cmp.Diff([]string{"c1", "c2"}, got); diff != "" {
		t.Errorf("client order mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"", "   ", "{not json", "[{]"} {
		if _, err := decodeBatches([]byte(bad)); err == nil {
			t.Errorf("decodeBatches(%q) expected error", bad)
		}
	}
}

func TestDescribeChange(t *testing.T) {
	old := models.SetValue("honesty")
	oldScalar := models.ScalarValue("Engineer")

	tests := []struct {
		name  string
		delta models.FieldDelta
		want  string
	}{
		{
			name:  "set shows added items",
			delta: models.FieldDelta{Field: models.FieldValues, OldValue: &old, NewValue: models.SetValue("honesty", "growth", "family")},
			want:  "+growth, +family",
		},
		{
			name:  "first scalar",
			delta: models.FieldDelta{Field: models.FieldOccupation, NewValue: models.ScalarValue("Engineer")},
			want:  "Engineer",
		},
		{
			name:  "scalar replacement",
			delta: models.FieldDelta{Field: models.FieldOccupation, OldValue: &oldScalar, NewValue: models.ScalarValue("Manager")},
			want:  "Engineer -> Manager",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeChange(tt.delta); got != tt.want {
				t.Errorf("describeChange() = %q, want %q", got, tt.want)
			}
		})
	}
}
