// ABOUTME: Benchmark scenarios for persona evolution
// ABOUTME: Each scenario is a sequence of batches and sessions with the persona they must produce

package evolution

import (
	"github.com/harper/persona/internal/core"
	"github.com/harper/persona/internal/models"
)

// Scenario is one end-to-end benchmark case run against a fresh ledger
type Scenario struct {
	ID          string
	Name        string
	Description string
	Steps       []Step
	GroundTruth GroundTruth
}

// Step applies exactly one of Batch or Session
type Step struct {
	Batch   *models.ExtractionBatch
	Session *core.ResolveInput
	// ExpectRejected marks a batch that must fail validation as a whole
	ExpectRejected bool
}

// GroundTruth is the state a scenario must leave behind
type GroundTruth struct {
	ClientID string

	ExpectedScalars map[models.Field]string
	ExpectedItems   map[models.Field][]string
	AbsentFields    []models.Field

	// ExpectedDeltas is the ledger length after every step
	ExpectedDeltas int

	ExpectedInsights map[string]InsightExpectation
}

// InsightExpectation checks a stored session insight
type InsightExpectation struct {
	OverallScore    float64
	SynthesisParsed bool
}

// Result is the outcome of one scenario
type Result struct {
	ScenarioID        string                 `json:"scenario_id"`
	ScenarioName      string                 `json:"scenario_name"`
	PersonaAccuracy   float64                `json:"persona_accuracy"`
	LedgerConsistency float64                `json:"ledger_consistency"`
	InsightFidelity   float64                `json:"insight_fidelity"`
	OverallScore      float64                `json:"overall_score"`
	Status            string                 `json:"status"`
	Details           map[string]interface{} `json:"details,omitempty"`
	ErrorMessage      string                 `json:"error_message,omitempty"`
}

func batch(client, session string, items ...models.ExtractionItem) *models.ExtractionBatch {
	return &models.ExtractionBatch{ClientID: client, SessionID: session, Items: items}
}

func scalar(field models.Field, text string, confidence float64) models.ExtractionItem {
	return models.ExtractionItem{Field: field, Value: models.ScalarValue(text), Confidence: confidence}
}

func set(field models.Field, confidence float64, items ...string) models.ExtractionItem {
	return models.ExtractionItem{Field: field, Value: models.SetValue(items...), Confidence: confidence}
}

func ptr[T any](v T) *T {
	return &v
}

// ConfidenceGating checks that a scalar only moves on strictly higher confidence
func ConfidenceGating() Scenario {
	const client = "bench-gate"
	return Scenario{
		ID:          "gate_01",
		Name:        "Confidence Gating",
		Description: "Lower or equal confidence claims must not replace a scalar",
		Steps: []Step{
			{Batch: batch(client, "s1", scalar(models.FieldOccupation, "Engineer", 0.8))},
			{Batch: batch(client, "s2", scalar(models.FieldOccupation, "Manager", 0.5))},
			{Batch: batch(client, "s3", scalar(models.FieldOccupation, "Director", 0.8))},
			{Batch: batch(client, "s4", scalar(models.FieldOccupation, "Director", 0.81))},
		},
		GroundTruth: GroundTruth{
			ClientID:        client,
			ExpectedScalars: map[models.Field]string{models.FieldOccupation: "Director"},
			ExpectedDeltas:  2,
		},
	}
}

// SetUnion checks that set fields only grow, whatever the confidence
func SetUnion() Scenario {
	const client = "bench-union"
	return Scenario{
		ID:          "union_01",
		Name:        "Set Union Growth",
		Description: "Set items accumulate across sessions; repeats and whitespace add nothing",
		Steps: []Step{
			{Batch: batch(client, "s1", set(models.FieldValues, 0.7, "honesty", " growth "))},
			{Batch: batch(client, "s2", set(models.FieldValues, 0.2, "growth", "family"))},
			{Batch: batch(client, "s3", set(models.FieldValues, 0.9, "honesty"))},
		},
		GroundTruth: GroundTruth{
			ClientID:       client,
			ExpectedItems:  map[models.Field][]string{models.FieldValues: {"honesty", "growth", "family"}},
			ExpectedDeltas: 2,
		},
	}
}

// LastItemWins checks duplicate fields inside one batch
func LastItemWins() Scenario {
	const client = "bench-batch"
	return Scenario{
		ID:          "batch_01",
		Name:        "Last Item Wins Within a Batch",
		Description: "A field repeated in one batch takes its last value and records one delta",
		Steps: []Step{
			{Batch: batch(client, "s1",
				scalar(models.FieldLocation, "Paris", 0.6),
				scalar(models.FieldIndustry, "Tech", 0.7),
				scalar(models.FieldLocation, "Berlin", 0.65),
			)},
		},
		GroundTruth: GroundTruth{
			ClientID: client,
			ExpectedScalars: map[models.Field]string{
				models.FieldLocation: "Berlin",
				models.FieldIndustry: "Tech",
			},
			ExpectedDeltas: 2,
		},
	}
}

// WholeBatchRejection checks that one bad item discards its whole batch
func WholeBatchRejection() Scenario {
	const client = "bench-reject"
	return Scenario{
		ID:          "reject_01",
		Name:        "Whole Batch Rejection",
		Description: "Invalid items reject their batch without touching the ledger",
		Steps: []Step{
			{
				Batch: batch(client, "s1",
					set(models.FieldGoalsPrimary, 0.7, "Get promoted"),
					scalar(models.Field("personality.mood"), "calm", 0.9),
				),
				ExpectRejected: true,
			},
			{
				Batch:          batch(client, "s2", scalar(models.FieldOccupation, "Engineer", 1.4)),
				ExpectRejected: true,
			},
			{Batch: batch(client, "s3", set(models.FieldGoalsPrimary, 0.7, "Ship v2"))},
		},
		GroundTruth: GroundTruth{
			ClientID:       client,
			ExpectedItems:  map[models.Field][]string{models.FieldGoalsPrimary: {"Ship v2"}},
			AbsentFields:   []models.Field{models.FieldOccupation},
			ExpectedDeltas: 1,
		},
	}
}

// SourcePrecedence checks real-time analysis over synthesis text, field by field
func SourcePrecedence() Scenario {
	const client = "bench-resolve"
	return Scenario{
		ID:          "resolve_01",
		Name:        "Insight Source Precedence",
		Description: "Present real-time fields win; missing ones come from synthesis text",
		Steps: []Step{
			{Session: &core.ResolveInput{
				ClientID:  client,
				SessionID: "s1",
				Realtime: &models.PartialInsight{
					OverallScore: ptr(8.2),
					Goals:        []string{"Lead the team"},
				},
				SynthesisText: ptr(`Summary below.
{"overall_score": 6, "goals": ["Another goal"], "values": ["candour"]}`),
			}},
		},
		GroundTruth: GroundTruth{
			ClientID: client,
			ExpectedItems: map[models.Field][]string{
				models.FieldGoalsPrimary: {"Lead the team"},
				models.FieldValues:       {"candour"},
			},
			ExpectedDeltas: 2,
			ExpectedInsights: map[string]InsightExpectation{
				"s1": {OverallScore: 8.2, SynthesisParsed: true},
			},
		},
	}
}

// UnusableSynthesis checks the neutral fallback for synthesis text without an object
func UnusableSynthesis() Scenario {
	const client = "bench-fallback"
	return Scenario{
		ID:          "resolve_02",
		Name:        "Unusable Synthesis Fallback",
		Description: "Synthesis text without a JSON object yields defaults and no persona change",
		Steps: []Step{
			{Session: &core.ResolveInput{
				ClientID:      client,
				SessionID:     "s1",
				SynthesisText: ptr("The model returned prose only } {"),
			}},
		},
		GroundTruth: GroundTruth{
			ClientID:       client,
			AbsentFields:   []models.Field{models.FieldGoalsPrimary, models.FieldValues},
			ExpectedDeltas: 0,
			ExpectedInsights: map[string]InsightExpectation{
				"s1": {OverallScore: models.DefaultScore, SynthesisParsed: false},
			},
		},
	}
}

// AllScenarios returns every benchmark scenario in run order
func AllScenarios() []Scenario {
	return []Scenario{
		ConfidenceGating(),
		SetUnion(),
		LastItemWins(),
		WholeBatchRejection(),
		SourcePrecedence(),
		UnusableSynthesis(),
	}
}

// ScenarioByID finds a scenario by its ID
func ScenarioByID(id string) (Scenario, bool) {
	for _, s := range AllScenarios() {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}
