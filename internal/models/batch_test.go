// ABOUTME: Tests for ExtractionBatch validation and value decoding
// ABOUTME: Verifies whole-batch rejection for unknown fields, bad confidences, and kind mismatches

package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestExtractionBatch_Validate(t *testing.T) {
	tests := []struct {
		name     string
		batch    ExtractionBatch
		wantErr  error
		wantViol int
	}{
		{
			name: "valid scalar and set",
			batch: ExtractionBatch{ClientID: "c1", SessionID: "s1", Items: []ExtractionItem{
				{Field: FieldAgeRange, Value: ScalarValue("30-39"), Confidence: 0.6},
				{Field: FieldGoalsPrimary, Value: SetValue("Get promoted"), Confidence: 0.7},
			}},
		},
		{
			name:  "empty batch is valid",
			batch: ExtractionBatch{ClientID: "c1"},
		},
		{
			name: "unknown field",
			batch: ExtractionBatch{ClientID: "c1", Items: []ExtractionItem{
				{Field: "goals.secret", Value: SetValue("x"), Confidence: 0.5},
			}},
			wantErr:  ErrUnknownField,
			wantViol: 1,
		},
		{
			name: "confidence above one",
			batch: ExtractionBatch{ClientID: "c1", Items: []ExtractionItem{
				{Field: FieldValues, Value: SetValue("family"), Confidence: 1.01},
			}},
			wantErr:  ErrConfidenceRange,
			wantViol: 1,
		},
		{
			name: "negative confidence",
			batch: ExtractionBatch{ClientID: "c1", Items: []ExtractionItem{
				{Field: FieldValues, Value: SetValue("family"), Confidence: -0.1},
			}},
			wantErr:  ErrConfidenceRange,
			wantViol: 1,
		},
		{
			name: "NaN confidence",
			batch: ExtractionBatch{ClientID: "c1", Items: []ExtractionItem{
				{Field: FieldValues, Value: SetValue("family"), Confidence: math.NaN()},
			}},
			wantErr:  ErrConfidenceRange,
			wantViol: 1,
		},
		{
			name: "set value on scalar field",
			batch: ExtractionBatch{ClientID: "c1", Items: []ExtractionItem{
				{Field: FieldAgeRange, Value: SetValue("30-39"), Confidence: 0.5},
			}},
			wantErr:  ErrKindMismatch,
			wantViol: 1,
		},
		{
			name: "empty scalar",
			batch: ExtractionBatch{ClientID: "c1", Items: []ExtractionItem{
				{Field: FieldOccupation, Value: ScalarValue("  "), Confidence: 0.5},
			}},
			wantErr:  ErrEmptyValue,
			wantViol: 1,
		},
		{
			name: "one bad item rejects all",
			batch: ExtractionBatch{ClientID: "c1", Items: []ExtractionItem{
				{Field: FieldGoalsPrimary, Value: SetValue("ok"), Confidence: 0.5},
				{Field: FieldGoalsPrimary, Value: SetValue("bad"), Confidence: 2},
			}},
			wantErr:  ErrConfidenceRange,
			wantViol: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.batch.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want wrapping %v", err, tt.wantErr)
			}
			if len(verr.Violations) != tt.wantViol {
				t.Errorf("violations = %d, want %d", len(verr.Violations), tt.wantViol)
			}
		})
	}
}

func TestExtractionBatch_ValidateMissingClient(t *testing.T) {
	b := ExtractionBatch{Items: []ExtractionItem{{Field: FieldValues, Value: SetValue("x"), Confidence: 0.5}}}
	var verr *ValidationError
	if err := b.Validate(); !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
}

func TestExtractionBatch_UnmarshalJSON(t *testing.T) {
	raw := `{
		"client_id": "c1",
		"session_id": "s1",
		"items": [
			{"field": "goals.primary", "value": ["Get promoted", " Get promoted ", ""], "confidence": 0.7},
			{"field": "demographics.age_range", "value": "30-39", "confidence": 0.6}
		]
	}`

	var b ExtractionBatch
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(b.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(b.Items))
	}
	if got := b.Items[0].Value; got.Kind != KindSet || len(got.Items) != 1 || got.Items[0] != "Get promoted" {
		t.Errorf("set value = %+v, want single normalised item", got)
	}
	if got := b.Items[1].Value; got.Kind != KindScalar || got.Text != "30-39" {
		t.Errorf("scalar value = %+v, want 30-39", got)
	}
	if err := b.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValue_UnmarshalRejectsOtherShapes(t *testing.T) {
	for _, raw := range []string{`null`, `42`, `{"a":1}`, `[1,2]`, `true`} {
		var v Value
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			t.Errorf("Unmarshal(%s) error = nil, want error", raw)
		}
	}
}

func TestValue_Equal(t *testing.T) {
	if !SetValue("a", "b").Equal(SetValue("b", "a")) {
		t.Error("sets with same members should be equal regardless of order")
	}
	if SetValue("a").Equal(SetValue("a", "b")) {
		t.Error("sets with different members should differ")
	}
	if ScalarValue("a").Equal(SetValue("a")) {
		t.Error("values of different kinds should differ")
	}
	if !ScalarValue("x").Equal(ScalarValue("x")) {
		t.Error("equal scalars should be equal")
	}
}

func TestDecodeValue_KindMismatch(t *testing.T) {
	if _, err := DecodeValue(KindScalar, []byte(`["a"]`)); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("DecodeValue() error = %v, want ErrKindMismatch", err)
	}
	v, err := DecodeValue(KindSet, []byte(`[]`))
	if err != nil {
		t.Fatalf("DecodeValue() error = %v", err)
	}
	if v.Kind != KindSet || len(v.Items) != 0 {
		t.Errorf("DecodeValue() = %+v, want empty set", v)
	}
}
