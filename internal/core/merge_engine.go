// ABOUTME: MergeEngine applies field-kind-specific merge policy to extraction batches
// ABOUTME: Produces ordered FieldDeltas plus the resulting PersonaSnapshot
package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harper/persona/internal/models"
)

// MergeResult is the outcome of merging one batch. An empty Deltas slice means no changes.
type MergeResult struct {
	Deltas   []models.FieldDelta
	Snapshot *models.PersonaSnapshot
}

// NoChanges reports whether nothing in the batch qualified for a delta
func (r *MergeResult) NoChanges() bool {
	return len(r.Deltas) == 0
}

// MergeEngine is stateless; callers serialise merges per client
type MergeEngine struct {
	newID func() string
}

// NewMergeEngine creates a MergeEngine that assigns "delta_<uuid>" identifiers
func NewMergeEngine() *MergeEngine {
	return &MergeEngine{
		newID: func() string { return "delta_" + uuid.New().String() },
	}
}

// Merge folds a validated batch into a copy of current. current may be nil for a new client.
// All deltas of one batch share the timestamp now.
func (e *MergeEngine) Merge(current *models.PersonaSnapshot, batch models.ExtractionBatch, now time.Time) (*MergeResult, error) {
	var snap *models.PersonaSnapshot
	if current == nil {
		snap = models.NewSnapshot(batch.ClientID)
	} else {
		snap = current.Clone()
	}

	result := &MergeResult{Deltas: []models.FieldDelta{}, Snapshot: snap}

	for _, item := range collapseItems(batch.Items) {
		kind, err := item.Field.Kind()
		if err != nil {
			return nil, err
		}

		existing, ok := snap.Get(item.Field)

		var next models.Value
		var changed bool
		switch kind {
		case models.KindScalar:
			next, changed = mergeScalar(existing, ok, item)
		case models.KindSet:
			next, changed = mergeSet(existing, ok, item)
		default:
			panic(fmt.Sprintf("core: unhandled field kind %v for %s", kind, item.Field))
		}
		if !changed {
			continue
		}

		delta := models.FieldDelta{
			ID:              e.newID(),
			ClientID:        batch.ClientID,
			Field:           item.Field,
			NewValue:        next,
			Confidence:      item.Confidence,
			SourceSessionID: batch.SessionID,
			CreatedAt:       now,
		}
		if ok {
			old := existing.Value.Clone()
			delta.OldValue = &old
		}

		snap.Apply(delta)
		result.Deltas = append(result.Deltas, delta)
	}

	return result, nil
}

// collapseItems keeps one item per field. A later occurrence replaces an
// earlier one but the field keeps the position of its first occurrence.
func collapseItems(items []models.ExtractionItem) []models.ExtractionItem {
	pos := make(map[models.Field]int, len(items))
	out := make([]models.ExtractionItem, 0, len(items))
	for _, item := range items {
		if i, seen := pos[item.Field]; seen {
			out[i] = item
			continue
		}
		pos[item.Field] = len(out)
		out = append(out, item)
	}
	return out
}

// mergeScalar accepts the incoming value only over an empty field or a strictly lower confidence
func mergeScalar(existing models.FieldState, ok bool, item models.ExtractionItem) (models.Value, bool) {
	if ok && item.Confidence <= existing.Confidence {
		return models.Value{}, false
	}
	if ok && existing.Value.Equal(item.Value) {
		return models.Value{}, false
	}
	return item.Value.Clone(), true
}

// mergeSet unions the incoming items into the current set, keeping current order first
func mergeSet(existing models.FieldState, ok bool, item models.ExtractionItem) (models.Value, bool) {
	var current []string
	if ok {
		current = existing.Value.Items
	}

	union := models.SetValue(append(append([]string(nil), current...), item.Value.Items...)...)

	if !ok {
		return union, len(union.Items) > 0
	}
	if union.Equal(existing.Value) {
		return models.Value{}, false
	}
	return union, true
}
