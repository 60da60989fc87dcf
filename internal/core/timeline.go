// ABOUTME: Timeline reconstructor groups ledger deltas into milestone periods
// ABOUTME: Read-only and lock-free; deltas are immutable once visible
package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/harper/persona/internal/models"
)

const (
	// SignificantAvgConfidence flags a period whose mean delta confidence reaches it
	SignificantAvgConfidence = 0.8
	// SignificantDeltaCount flags a period with at least this many deltas
	SignificantDeltaCount = 5
)

// HistoryReader lists a client's deltas newest first. limit <= 0 means all.
type HistoryReader interface {
	ListDeltas(ctx context.Context, clientID string, limit int) ([]models.FieldDelta, error)
}

// TimelineOptions selects period granularity and how much history to read
type TimelineOptions struct {
	Granularity models.Granularity
	Limit       int
}

// TimelineReconstructor builds milestone periods from the ledger
type TimelineReconstructor struct {
	history HistoryReader
	logger  *zap.Logger
}

// NewTimelineReconstructor creates a reconstructor over a history source
func NewTimelineReconstructor(history HistoryReader, logger *zap.Logger) *TimelineReconstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimelineReconstructor{history: history, logger: logger}
}

// Build returns the client's milestone periods, newest first
func (r *TimelineReconstructor) Build(ctx context.Context, clientID string, opts TimelineOptions) ([]models.MilestonePeriod, error) {
	deltas, err := r.history.ListDeltas(ctx, clientID, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list deltas: %w", err)
	}

	periods, err := BuildMilestones(deltas, opts.Granularity)
	if err != nil {
		r.logger.Error("taxonomy does not cover ledger field; timeline aborted",
			zap.String("client_id", clientID), zap.Error(err))
		return nil, err
	}
	return periods, nil
}

// BuildMilestones groups newest-first deltas into newest-first periods
func BuildMilestones(deltas []models.FieldDelta, granularity models.Granularity) ([]models.MilestonePeriod, error) {
	if granularity == "" {
		granularity = models.GranularityMonth
	}

	periods := []models.MilestonePeriod{}
	index := make(map[string]int)
	categories := make(map[string]map[models.Category]bool)

	for _, d := range deltas {
		cat, err := d.Field.Category()
		if err != nil {
			return nil, err
		}

		key, err := PeriodKey(d, granularity)
		if err != nil {
			return nil, err
		}

		i, ok := index[key]
		if !ok {
			i = len(periods)
			index[key] = i
			categories[key] = make(map[models.Category]bool)
			periods = append(periods, models.MilestonePeriod{
				PeriodKey: key,
				StartedAt: d.CreatedAt,
				EndedAt:   d.CreatedAt,
			})
		}

		p := &periods[i]
		p.Deltas = append(p.Deltas, models.TimelineEntry{
			Delta:    d,
			Category: cat,
			Added:    AddedItems(d),
		})
		if d.CreatedAt.Before(p.StartedAt) {
			p.StartedAt = d.CreatedAt
		}
		if d.CreatedAt.After(p.EndedAt) {
			p.EndedAt = d.CreatedAt
		}
		categories[key][cat] = true
	}

	for i := range periods {
		p := &periods[i]
		var sum float64
		for _, e := range p.Deltas {
			sum += e.Delta.Confidence
		}
		p.AvgConfidence = sum / float64(len(p.Deltas))

		seen := categories[p.PeriodKey]
		p.Categories = make([]models.Category, 0, len(seen))
		for _, c := range models.Categories {
			if seen[c] {
				p.Categories = append(p.Categories, c)
			}
		}
		p.CategoryCount = len(p.Categories)
		p.IsSignificant = IsSignificant(*p)
	}

	return periods, nil
}

// IsSignificant applies the milestone rules: high average confidence,
// enough deltas, or any delta on a key field
func IsSignificant(p models.MilestonePeriod) bool {
	if len(p.Deltas) == 0 {
		return false
	}
	if p.AvgConfidence >= SignificantAvgConfidence || len(p.Deltas) >= SignificantDeltaCount {
		return true
	}
	for _, e := range p.Deltas {
		if models.KeyFields[e.Delta.Field] {
			return true
		}
	}
	return false
}

// PeriodKey names the period a delta falls into
func PeriodKey(d models.FieldDelta, granularity models.Granularity) (string, error) {
	switch granularity {
	case models.GranularityMonth, "":
		return d.CreatedAt.UTC().Format("2006-01"), nil
	case models.GranularitySession:
		if !d.HasSession() {
			return models.UnattributedPeriod, nil
		}
		return d.SourceSessionID, nil
	default:
		return "", fmt.Errorf("unknown granularity %q", granularity)
	}
}

// AddedItems returns the set items a delta introduced (new minus old).
// Scalar deltas have no added items.
func AddedItems(d models.FieldDelta) []string {
	if d.NewValue.Kind != models.KindSet {
		return nil
	}
	old := make(map[string]bool)
	if d.OldValue != nil {
		for _, item := range d.OldValue.Items {
			old[item] = true
		}
	}
	added := []string{}
	for _, item := range d.NewValue.Items {
		if !old[item] {
			added = append(added, item)
		}
	}
	return added
}
