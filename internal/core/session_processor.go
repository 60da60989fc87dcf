// ABOUTME: SessionProcessor turns a finished session into an insight record and a persona update
// ABOUTME: Resolves insights, persists them with the raw synthesis, then ingests the profile subset
package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harper/persona/internal/metrics"
	"github.com/harper/persona/internal/models"
)

// Synthesizer asks the generative collaborator for raw synthesis text.
// Retries and timeouts belong to the implementation, not to the resolver.
type Synthesizer interface {
	Synthesize(ctx context.Context, clientID, sessionID string, transcript []models.TranscriptEntry) (string, error)
}

// InsightStore persists one insight record per session
type InsightStore interface {
	SaveInsight(ctx context.Context, insight models.StoredInsight) error
}

// ProcessResult reports the stored insight and the persona change it caused
type ProcessResult struct {
	Insight models.StoredInsight `json:"insight"`
	Ingest  *IngestResult        `json:"ingest,omitempty"`
}

// SessionProcessor wires the resolver in front of the ingestor
type SessionProcessor struct {
	ingestor    *Ingestor
	insights    InsightStore
	synthesizer Synthesizer
	confidence  float64
	logger      *zap.Logger
	metrics     *metrics.Recorder
	clock       func() time.Time
}

// NewSessionProcessor creates a processor. synthesizer may be nil.
func NewSessionProcessor(ingestor *Ingestor, insights InsightStore, synthesizer Synthesizer, confidence float64, logger *zap.Logger, rec *metrics.Recorder) *SessionProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if confidence <= 0 || confidence > 1 {
		confidence = models.DefaultInsightConfidence
	}
	return &SessionProcessor{
		ingestor:    ingestor,
		insights:    insights,
		synthesizer: synthesizer,
		confidence:  confidence,
		logger:      logger,
		metrics:     rec,
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

// Process resolves, stores, and ingests one session
func (p *SessionProcessor) Process(ctx context.Context, in ResolveInput) (*ProcessResult, error) {
	log := p.logger.With(zap.String("client_id", in.ClientID), zap.String("session_id", in.SessionID))

	if in.ClientID == "" || in.SessionID == "" {
		return nil, fmt.Errorf("client_id and session_id are required")
	}

	if in.SynthesisText == nil && p.synthesizer != nil {
		text, err := p.synthesizer.Synthesize(ctx, in.ClientID, in.SessionID, in.Transcript)
		if err != nil {
			// The resolver falls back to defaults; the failure is only logged.
			log.Warn("synthesis unavailable", zap.Error(err))
		} else {
			in.SynthesisText = &text
		}
	}

	res := ResolveInsights(in, p.clock())
	switch {
	case in.SynthesisText == nil:
		p.metrics.Synthesis(metrics.SynthesisAbsent)
	case res.SynthesisParsed:
		p.metrics.Synthesis(metrics.SynthesisParsed)
	default:
		p.metrics.Synthesis(metrics.SynthesisFallback)
		log.Info("synthesis text unusable, using defaults", zap.Error(res.SynthesisErr))
	}

	stored := models.StoredInsight{
		Record:          res.Record,
		RawSynthesis:    res.RawSynthesis,
		SynthesisParsed: res.SynthesisParsed,
	}
	if err := p.insights.SaveInsight(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to save insight: %w", err)
	}

	result := &ProcessResult{Insight: stored}

	batch := ProfileBatch(res.Record, p.confidence)
	if len(batch.Items) == 0 {
		return result, nil
	}

	ingested, err := p.ingestor.Ingest(ctx, batch)
	if err != nil {
		return result, fmt.Errorf("failed to ingest profile batch: %w", err)
	}
	result.Ingest = ingested
	return result, nil
}

// profileFields maps the profile-shaped record lists onto persona fields.
// Session scores never leave the record.
var profileFields = []struct {
	field models.Field
	items func(r models.SessionInsightRecord) []string
}{
	{models.FieldGoalsPrimary, func(r models.SessionInsightRecord) []string { return r.Goals }},
	{models.FieldObstacles, func(r models.SessionInsightRecord) []string { return r.Challenges }},
	{models.FieldValues, func(r models.SessionInsightRecord) []string { return r.Values }},
	{models.FieldStrengths, func(r models.SessionInsightRecord) []string { return r.Strengths }},
	{models.FieldBehaviors, func(r models.SessionInsightRecord) []string { return r.BehaviorPatterns }},
	{models.FieldAchievements, func(r models.SessionInsightRecord) []string { return r.Achievements }},
	{models.FieldBreakthroughs, func(r models.SessionInsightRecord) []string { return r.Breakthroughs }},
	{models.FieldCommitments, func(r models.SessionInsightRecord) []string { return r.Commitments }},
	{models.FieldGrowthAreas, func(r models.SessionInsightRecord) []string { return r.GrowthAreas }},
}

// ProfileBatch builds the extraction batch for the non-empty profile lists of a record
func ProfileBatch(r models.SessionInsightRecord, confidence float64) models.ExtractionBatch {
	batch := models.ExtractionBatch{ClientID: r.ClientID, SessionID: r.SessionID}
	for _, pf := range profileFields {
		value := models.SetValue(pf.items(r)...)
		if value.IsEmpty() {
			continue
		}
		batch.Items = append(batch.Items, models.ExtractionItem{
			Field:      pf.field,
			Value:      value,
			Confidence: confidence,
		})
	}
	return batch
}
