// ABOUTME: Ingestor validates extraction batches and commits merged deltas per client
// ABOUTME: Writes for one client are serialised; different clients run in parallel
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harper/persona/internal/metrics"
	"github.com/harper/persona/internal/models"
)

// WriteMode decides what happens when a client already has a write in flight
type WriteMode string

const (
	// WriteModeQueue waits for the running write to finish
	WriteModeQueue WriteMode = "queue"
	// WriteModeReject fails fast with ErrClientBusy
	WriteModeReject WriteMode = "reject"
)

// ErrClientBusy is the retry signal returned in reject mode
var ErrClientBusy = errors.New("client has a write in progress, retry later")

// PersonaStore persists snapshots and appends deltas. UpdatePersona must run
// the read, the update, and the commit as one write transaction so that
// writers outside this process cannot interleave with a merge.
type PersonaStore interface {
	GetSnapshot(ctx context.Context, clientID string) (*models.PersonaSnapshot, error)
	UpdatePersona(ctx context.Context, clientID string, update func(current *models.PersonaSnapshot) (*models.PersonaSnapshot, []models.FieldDelta, error)) error
}

// SnapshotRebuilder recomputes a stored snapshot from the ledger
type SnapshotRebuilder interface {
	RebuildSnapshot(ctx context.Context, clientID string) (*models.PersonaSnapshot, error)
}

// IngestResult describes what one batch changed
type IngestResult struct {
	ClientID  string                  `json:"client_id"`
	SessionID string                  `json:"session_id,omitempty"`
	Deltas    []models.FieldDelta     `json:"deltas"`
	Snapshot  *models.PersonaSnapshot `json:"snapshot"`
}

// NoChanges reports an explicit empty result
func (r *IngestResult) NoChanges() bool {
	return len(r.Deltas) == 0
}

// IngestorOptions configures an Ingestor. Zero values pick defaults.
type IngestorOptions struct {
	Mode    WriteMode
	Logger  *zap.Logger
	Metrics *metrics.Recorder
	Clock   func() time.Time
	// Parallelism bounds IngestAll fan-out across clients
	Parallelism int
}

// Ingestor is the only entry point that writes to the persona ledger
type Ingestor struct {
	store       PersonaStore
	engine      *MergeEngine
	locks       *ClientLocks
	mode        WriteMode
	logger      *zap.Logger
	metrics     *metrics.Recorder
	clock       func() time.Time
	parallelism int
}

// NewIngestor creates an Ingestor over the given store
func NewIngestor(store PersonaStore, opts IngestorOptions) *Ingestor {
	ing := &Ingestor{
		store:       store,
		engine:      NewMergeEngine(),
		locks:       NewClientLocks(),
		mode:        opts.Mode,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		clock:       opts.Clock,
		parallelism: opts.Parallelism,
	}
	if ing.mode == "" {
		ing.mode = WriteModeQueue
	}
	if ing.logger == nil {
		ing.logger = zap.NewNop()
	}
	if ing.clock == nil {
		ing.clock = func() time.Time { return time.Now().UTC() }
	}
	if ing.parallelism <= 0 {
		ing.parallelism = 8
	}
	return ing
}

// Ingest validates, merges, and commits one batch.
// A *models.ValidationError means nothing was applied.
func (i *Ingestor) Ingest(ctx context.Context, batch models.ExtractionBatch) (*IngestResult, error) {
	log := i.logger.With(zap.String("client_id", batch.ClientID), zap.String("session_id", batch.SessionID))

	if err := batch.Validate(); err != nil {
		i.metrics.Batch(metrics.OutcomeRejected)
		log.Warn("rejected extraction batch", zap.Error(err))
		return nil, err
	}

	release, err := i.acquire(ctx, batch.ClientID)
	if err != nil {
		if errors.Is(err, ErrClientBusy) {
			i.metrics.Batch(metrics.OutcomeBusy)
		}
		return nil, err
	}
	defer release()

	var (
		merged   *MergeResult
		mergeErr error
	)
	start := time.Now()
	err = i.store.UpdatePersona(ctx, batch.ClientID, func(current *models.PersonaSnapshot) (*models.PersonaSnapshot, []models.FieldDelta, error) {
		// Ledger order is created_at then insertion, so timestamps must never go
		// backwards for a client or a later fold would reorder deltas.
		now := i.clock()
		if current != nil && current.UpdatedAt.After(now) {
			now = current.UpdatedAt
		}

		merged, mergeErr = i.engine.Merge(current, batch, now)
		if mergeErr != nil {
			return nil, nil, mergeErr
		}
		return merged.Snapshot, merged.Deltas, nil
	})
	if mergeErr != nil {
		i.metrics.Batch(metrics.OutcomeFailed)
		return nil, fmt.Errorf("failed to merge batch: %w", mergeErr)
	}
	if err != nil {
		i.metrics.Batch(metrics.OutcomeFailed)
		log.Error("commit failed, batch rolled back", zap.Error(err))
		return nil, fmt.Errorf("failed to commit deltas: %w", err)
	}

	result := &IngestResult{
		ClientID:  batch.ClientID,
		SessionID: batch.SessionID,
		Deltas:    merged.Deltas,
		Snapshot:  merged.Snapshot,
	}

	if merged.NoChanges() {
		i.metrics.Batch(metrics.OutcomeUnchanged)
		log.Debug("batch produced no changes", zap.Int("items", len(batch.Items)))
		return result, nil
	}

	i.metrics.ObserveCommit(time.Since(start))
	i.metrics.Batch(metrics.OutcomeApplied)
	for _, d := range merged.Deltas {
		cat, _ := d.Field.Category()
		i.metrics.Delta(string(cat))
	}

	log.Info("persona updated", zap.Int("items", len(batch.Items)), zap.Int("deltas", len(merged.Deltas)))
	return result, nil
}

// Rebuild replaces a client's snapshot with the fold of its ledger while
// holding the client's write slot. It always waits, even in reject mode.
func (i *Ingestor) Rebuild(ctx context.Context, clientID string) (*models.PersonaSnapshot, error) {
	rebuilder, ok := i.store.(SnapshotRebuilder)
	if !ok {
		return nil, fmt.Errorf("store does not support snapshot rebuilds")
	}

	release, err := i.locks.Acquire(ctx, clientID)
	if err != nil {
		return nil, err
	}
	defer release()

	snap, err := rebuilder.RebuildSnapshot(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild snapshot: %w", err)
	}
	i.logger.Info("snapshot rebuilt from ledger", zap.String("client_id", clientID), zap.Int("fields", len(snap.Fields)))
	return snap, nil
}

func (i *Ingestor) acquire(ctx context.Context, clientID string) (func(), error) {
	switch i.mode {
	case WriteModeReject:
		release, ok := i.locks.TryAcquire(clientID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrClientBusy, clientID)
		}
		return release, nil
	default:
		return i.locks.Acquire(ctx, clientID)
	}
}

// IngestOutcome pairs a batch's result with its error
type IngestOutcome struct {
	Result *IngestResult
	Err    error
}

// IngestAll applies batches concurrently across clients. Batches of the same
// client are applied in input order. Outcomes line up with the input slice.
func (i *Ingestor) IngestAll(ctx context.Context, batches []models.ExtractionBatch) ([]IngestOutcome, error) {
	outcomes := make([]IngestOutcome, len(batches))

	var order []string
	byClient := make(map[string][]int)
	for idx, b := range batches {
		if _, ok := byClient[b.ClientID]; !ok {
			order = append(order, b.ClientID)
		}
		byClient[b.ClientID] = append(byClient[b.ClientID], idx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.parallelism)
	for _, clientID := range order {
		indexes := byClient[clientID]
		g.Go(func() error {
			for _, idx := range indexes {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := i.Ingest(gctx, batches[idx])
				outcomes[idx] = IngestOutcome{Result: res, Err: err}
			}
			return nil
		})
	}

	return outcomes, g.Wait()
}
