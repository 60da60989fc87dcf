// ABOUTME: Precedence resolver producing a fully-defaulted SessionInsightRecord
// ABOUTME: Real-time analysis beats synthesis text, which beats neutral defaults
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/harper/persona/internal/models"
)

// ErrNoEmbeddedObject means the synthesis text has no {...} span
var ErrNoEmbeddedObject = errors.New("no embedded JSON object in synthesis text")

// ResolveInput bundles everything known about a finished session.
// Realtime and SynthesisText are optional.
type ResolveInput struct {
	ClientID      string                   `json:"client_id"`
	SessionID     string                   `json:"session_id"`
	Transcript    []models.TranscriptEntry `json:"transcript"`
	Realtime      *models.PartialInsight   `json:"realtime,omitempty"`
	SynthesisText *string                  `json:"synthesis_text,omitempty"`
}

// Resolution is the resolved record plus the raw synthesis text kept for diagnostics
type Resolution struct {
	Record          models.SessionInsightRecord
	RawSynthesis    string
	SynthesisParsed bool
	SynthesisErr    error
}

// ResolveInsights runs one synchronous pass. It never fails: a missing or
// unparseable synthesis contributes nothing and the record falls back to defaults.
func ResolveInsights(in ResolveInput, now time.Time) Resolution {
	res := Resolution{}

	var synth *models.PartialInsight
	if in.SynthesisText != nil {
		res.RawSynthesis = *in.SynthesisText
		parsed, err := ExtractSynthesis(*in.SynthesisText)
		if err != nil {
			res.SynthesisErr = err
		} else {
			synth = parsed
			res.SynthesisParsed = true
		}
	}

	rt := in.Realtime
	if rt == nil {
		rt = &models.PartialInsight{}
	}
	if synth == nil {
		synth = &models.PartialInsight{}
	}

	rec := models.NewDefaultInsight(in.ClientID, in.SessionID)

	rec.OverallScore = pickScore(rt.OverallScore, synth.OverallScore)
	rec.EngagementScore = pickScore(rt.EngagementScore, synth.EngagementScore)
	rec.ClarityScore = pickScore(rt.ClarityScore, synth.ClarityScore)
	rec.MomentumScore = pickScore(rt.MomentumScore, synth.MomentumScore)
	rec.BreakthroughScore = pickScore(rt.BreakthroughScore, synth.BreakthroughScore)

	rec.EmotionalTone = pickString(rt.EmotionalTone, synth.EmotionalTone, rec.EmotionalTone)
	rec.SessionPhase = pickString(rt.SessionPhase, synth.SessionPhase, rec.SessionPhase)
	rec.ExecutiveSummary = pickString(rt.ExecutiveSummary, synth.ExecutiveSummary, rec.ExecutiveSummary)
	rec.ClientSummary = pickString(rt.ClientSummary, synth.ClientSummary, rec.ClientSummary)
	rec.CoachNotes = pickString(rt.CoachNotes, synth.CoachNotes, rec.CoachNotes)
	rec.RecommendedFocus = pickString(rt.RecommendedFocus, synth.RecommendedFocus, rec.RecommendedFocus)
	rec.NextSessionFocus = pickString(rt.NextSessionFocus, synth.NextSessionFocus, rec.NextSessionFocus)

	rec.KeyInsights = pickList(rt.KeyInsights, synth.KeyInsights)
	rec.Breakthroughs = pickList(rt.Breakthroughs, synth.Breakthroughs)
	rec.ActionItems = pickList(rt.ActionItems, synth.ActionItems)
	rec.Commitments = pickList(rt.Commitments, synth.Commitments)
	rec.Goals = pickList(rt.Goals, synth.Goals)
	rec.Challenges = pickList(rt.Challenges, synth.Challenges)
	rec.Values = pickList(rt.Values, synth.Values)
	rec.Strengths = pickList(rt.Strengths, synth.Strengths)
	rec.BehaviorPatterns = pickList(rt.BehaviorPatterns, synth.BehaviorPatterns)
	rec.Achievements = pickList(rt.Achievements, synth.Achievements)
	rec.GrowthAreas = pickList(rt.GrowthAreas, synth.GrowthAreas)
	rec.FollowUpQuestions = pickList(rt.FollowUpQuestions, synth.FollowUpQuestions)
	rec.Topics = pickList(rt.Topics, synth.Topics)

	rec.Metrics = ComputeTranscriptMetrics(in.Transcript)
	rec.CreatedAt = now

	res.Record = rec
	return res
}

// ExtractSynthesis parses the span from the first '{' to the last '}'.
// Any failure discards the whole span; no partially decoded value escapes.
func ExtractSynthesis(raw string) (*models.PartialInsight, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, ErrNoEmbeddedObject
	}

	var parsed models.PartialInsight
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse synthesis object: %w", err)
	}
	return &parsed, nil
}

// ComputeTranscriptMetrics derives duration and word counts from final lines
func ComputeTranscriptMetrics(entries []models.TranscriptEntry) models.TranscriptMetrics {
	m := models.TranscriptMetrics{SpeakerWords: map[string]int{}}
	if len(entries) == 0 {
		return m
	}

	first, last := entries[0], entries[len(entries)-1]
	if d := last.EndTime - first.StartTime; d > 0 {
		m.DurationSeconds = d
	}

	for _, e := range entries {
		words := len(strings.Fields(e.Text))
		m.TotalWords += words
		m.SpeakerWords[e.Speaker] += words
	}
	return m
}

// pickScore treats NaN like an absent score.
func pickScore(rt, synth *float64) float64 {
	switch {
	case rt != nil && !math.IsNaN(*rt):
		return clampScore(*rt)
	case synth != nil && !math.IsNaN(*synth):
		return clampScore(*synth)
	default:
		return models.DefaultScore
	}
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return models.DefaultScore
	}
	if v < models.MinScore {
		return models.MinScore
	}
	if v > models.MaxScore {
		return models.MaxScore
	}
	return v
}

// pickString treats blank text as absent so placeholders survive empty answers
func pickString(rt, synth *string, def string) string {
	if rt != nil && strings.TrimSpace(*rt) != "" {
		return strings.TrimSpace(*rt)
	}
	if synth != nil && strings.TrimSpace(*synth) != "" {
		return strings.TrimSpace(*synth)
	}
	return def
}

func pickList(rt, synth []string) []string {
	switch {
	case rt != nil:
		return cleanList(rt)
	case synth != nil:
		return cleanList(synth)
	default:
		return []string{}
	}
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
