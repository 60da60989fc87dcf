// ABOUTME: Scoring for evolution benchmarks against scenario ground truth
// ABOUTME: Deterministic scores for persona accuracy, ledger consistency, and insight fidelity

package evolution

import (
	"fmt"

	"github.com/harper/persona/internal/models"
)

// PassThreshold is the minimum score every metric needs for a PASS
const PassThreshold = 0.9

// MetricsCalculator scores a finished scenario
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CalculatePersonaAccuracy is the share of ground-truth field checks the snapshot satisfies.
// Set fields must hold exactly the expected items, in any order.
func (m *MetricsCalculator) CalculatePersonaAccuracy(snap *models.PersonaSnapshot, truth GroundTruth) (float64, string) {
	checks := len(truth.ExpectedScalars) + len(truth.ExpectedItems) + len(truth.AbsentFields)
	if checks == 0 {
		return 1.0, "No persona checks required"
	}

	var mismatches []string
	for field, want := range truth.ExpectedScalars {
		got, ok := snap.Fields[field]
		if !ok || got.Value.Text != want {
			mismatches = append(mismatches, fmt.Sprintf("%s: got %q, want %q", field, got.Value.Text, want))
		}
	}
	for field, want := range truth.ExpectedItems {
		got, ok := snap.Fields[field]
		if !ok || !got.Value.Equal(models.SetValue(want...)) {
			mismatches = append(mismatches, fmt.Sprintf("%s: got %v, want %v", field, got.Value.Items, want))
		}
	}
	for _, field := range truth.AbsentFields {
		if got, ok := snap.Fields[field]; ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: want absent, got %s", field, got.Value))
		}
	}

	score := float64(checks-len(mismatches)) / float64(checks)
	if len(mismatches) == 0 {
		return score, "Persona matches ground truth"
	}
	return score, fmt.Sprintf("Persona mismatches: %v", mismatches)
}

// CalculateLedgerConsistency checks the ledger length and that the snapshot is the fold of the ledger
func (m *MetricsCalculator) CalculateLedgerConsistency(deltaCount, expectedDeltas int, drift []models.Field) (float64, string) {
	countOK := deltaCount == expectedDeltas
	foldOK := len(drift) == 0

	switch {
	case countOK && foldOK:
		return 1.0, "Ledger length and snapshot fold verified"
	case countOK:
		return 0.5, fmt.Sprintf("Snapshot drifted from ledger in %v", drift)
	case foldOK:
		return 0.5, fmt.Sprintf("Ledger holds %d deltas, want %d", deltaCount, expectedDeltas)
	default:
		return 0.0, fmt.Sprintf("Ledger holds %d deltas, want %d; drift in %v", deltaCount, expectedDeltas, drift)
	}
}

// CalculateInsightFidelity is the share of expected session insights stored as expected
func (m *MetricsCalculator) CalculateInsightFidelity(insights map[string]*models.StoredInsight, expected map[string]InsightExpectation) (float64, string) {
	if len(expected) == 0 {
		return 1.0, "No insight checks required"
	}

	var mismatches []string
	for session, want := range expected {
		got := insights[session]
		switch {
		case got == nil:
			mismatches = append(mismatches, fmt.Sprintf("%s: not stored", session))
		case got.Record.OverallScore != want.OverallScore:
			mismatches = append(mismatches, fmt.Sprintf("%s: overall %.1f, want %.1f", session, got.Record.OverallScore, want.OverallScore))
		case got.SynthesisParsed != want.SynthesisParsed:
			mismatches = append(mismatches, fmt.Sprintf("%s: synthesis parsed %t, want %t", session, got.SynthesisParsed, want.SynthesisParsed))
		}
	}

	score := float64(len(expected)-len(mismatches)) / float64(len(expected))
	if len(mismatches) == 0 {
		return score, "Insights match ground truth"
	}
	return score, fmt.Sprintf("Insight mismatches: %v", mismatches)
}

// Evaluate combines the three metrics into a scenario result
func (m *MetricsCalculator) Evaluate(
	scenario Scenario,
	snap *models.PersonaSnapshot,
	deltaCount int,
	drift []models.Field,
	insights map[string]*models.StoredInsight,
) Result {
	accuracy, accuracyDetail := m.CalculatePersonaAccuracy(snap, scenario.GroundTruth)
	consistency, consistencyDetail := m.CalculateLedgerConsistency(deltaCount, scenario.GroundTruth.ExpectedDeltas, drift)
	fidelity, fidelityDetail := m.CalculateInsightFidelity(insights, scenario.GroundTruth.ExpectedInsights)

	status := "FAIL"
	if accuracy >= PassThreshold && consistency >= PassThreshold && fidelity >= PassThreshold {
		status = "PASS"
	}

	return Result{
		ScenarioID:        scenario.ID,
		ScenarioName:      scenario.Name,
		PersonaAccuracy:   accuracy,
		LedgerConsistency: consistency,
		InsightFidelity:   fidelity,
		OverallScore:      (accuracy + consistency + fidelity) / 3.0,
		Status:            status,
		Details: map[string]interface{}{
			"accuracy_detail":    accuracyDetail,
			"consistency_detail": consistencyDetail,
			"fidelity_detail":    fidelityDetail,
			"deltas":             deltaCount,
			"fields":             len(snap.Fields),
		},
	}
}
