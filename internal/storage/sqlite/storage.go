// ABOUTME: Unified Storage layer that wraps all SQLite stores
// ABOUTME: Commits ledger deltas and snapshot rows in a single transaction
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harper/persona/internal/models"
)

// Storage manages all persistent persona data using SQLite
type Storage struct {
	db        *DB
	deltas    *DeltaStore
	snapshots *SnapshotStore
	insights  *InsightStore
}

// NewStorage initializes storage at the default XDG path
func NewStorage() (*Storage, error) {
	return NewStorageWithPath(DefaultDBPath())
}

// NewStorageWithPath initializes storage with a custom database path
func NewStorageWithPath(dbPath string) (*Storage, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return newStorage(db), nil
}

// NewStorageInMemory creates an in-memory storage (for testing)
func NewStorageInMemory() (*Storage, error) {
	db, err := OpenInMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return newStorage(db), nil
}

func newStorage(db *DB) *Storage {
	return &Storage{
		db:        db,
		deltas:    NewDeltaStore(db),
		snapshots: NewSnapshotStore(db),
		insights:  NewInsightStore(db),
	}
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB exposes the underlying database
func (s *Storage) DB() *DB {
	return s.db
}

// GetSnapshot loads the materialised snapshot; unknown clients get an empty one
func (s *Storage) GetSnapshot(ctx context.Context, clientID string) (*models.PersonaSnapshot, error) {
	return s.snapshots.Get(ctx, s.db.conn, clientID)
}

// CommitDeltas appends deltas and writes the touched snapshot rows atomically.
// Any failure rolls back both.
func (s *Storage) CommitDeltas(ctx context.Context, snapshot *models.PersonaSnapshot, deltas []models.FieldDelta) error {
	if len(deltas) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.commit(ctx, tx, snapshot, deltas); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdatePersona loads the client's snapshot, passes it to update, and commits
// the returned deltas and snapshot, all inside one write transaction. The
// write lock is held from the read onwards, so writers in other processes
// sharing the file cannot interleave with the merge. Returning no deltas
// rolls back and leaves storage untouched.
func (s *Storage) UpdatePersona(ctx context.Context, clientID string, update func(current *models.PersonaSnapshot) (*models.PersonaSnapshot, []models.FieldDelta, error)) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.snapshots.Get(ctx, tx, clientID)
	if err != nil {
		return err
	}

	snapshot, deltas, err := update(current)
	if err != nil {
		return err
	}
	if len(deltas) == 0 {
		return nil
	}
	if snapshot.ClientID != clientID {
		return fmt.Errorf("snapshot belongs to %s, update was for %s", snapshot.ClientID, clientID)
	}

	if err := s.commit(ctx, tx, snapshot, deltas); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Storage) commit(ctx context.Context, tx *sql.Tx, snapshot *models.PersonaSnapshot, deltas []models.FieldDelta) error {
	for _, d := range deltas {
		if d.ClientID != snapshot.ClientID {
			return fmt.Errorf("delta %s belongs to %s, snapshot to %s", d.ID, d.ClientID, snapshot.ClientID)
		}
	}

	if err := s.deltas.insert(ctx, tx, deltas); err != nil {
		return err
	}

	touched := make([]models.Field, 0, len(deltas))
	seen := make(map[models.Field]bool, len(deltas))
	for _, d := range deltas {
		if !seen[d.Field] {
			seen[d.Field] = true
			touched = append(touched, d.Field)
		}
	}
	return s.snapshots.upsert(ctx, tx, snapshot, touched)
}

// ListDeltas returns a client's deltas newest first. limit <= 0 returns all.
func (s *Storage) ListDeltas(ctx context.Context, clientID string, limit int) ([]models.FieldDelta, error) {
	return s.deltas.ListByClient(ctx, clientID, limit)
}

// ListAllDeltas returns a client's full ledger oldest first
func (s *Storage) ListAllDeltas(ctx context.Context, clientID string) ([]models.FieldDelta, error) {
	return s.deltas.ListChronological(ctx, s.db.conn, clientID)
}

// ListSessionDeltas returns the deltas a session produced
func (s *Storage) ListSessionDeltas(ctx context.Context, sessionID string) ([]models.FieldDelta, error) {
	return s.deltas.ListBySession(ctx, sessionID)
}

// CountDeltas returns the ledger length for a client
func (s *Storage) CountDeltas(ctx context.Context, clientID string) (int, error) {
	return s.deltas.Count(ctx, clientID)
}

// ListClients returns every client with a stored snapshot
func (s *Storage) ListClients(ctx context.Context) ([]string, error) {
	return s.snapshots.ListClients(ctx)
}

// RebuildSnapshot replaces the stored snapshot with the fold of the ledger.
// Callers must hold the client's write lock.
func (s *Storage) RebuildSnapshot(ctx context.Context, clientID string) (*models.PersonaSnapshot, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	deltas, err := s.deltas.ListChronological(ctx, tx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	snap := models.Fold(clientID, deltas)
	if err := s.snapshots.replace(ctx, tx, snap); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return snap, nil
}

// VerifySnapshot folds the ledger and lists fields where the stored snapshot disagrees
func (s *Storage) VerifySnapshot(ctx context.Context, clientID string) ([]models.Field, error) {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	deltas, err := s.deltas.ListChronological(ctx, tx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	stored, err := s.snapshots.Get(ctx, tx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return models.DiffFields(models.Fold(clientID, deltas), stored), nil
}

// SaveInsight stores a session's resolved record
func (s *Storage) SaveInsight(ctx context.Context, insight models.StoredInsight) error {
	return s.insights.Save(ctx, insight)
}

// GetInsight returns a session's record, or nil if none is stored
func (s *Storage) GetInsight(ctx context.Context, sessionID string) (*models.StoredInsight, error) {
	return s.insights.Get(ctx, sessionID)
}

// ListInsights returns a client's records newest first
func (s *Storage) ListInsights(ctx context.Context, clientID string, limit int) ([]models.StoredInsight, error) {
	return s.insights.ListByClient(ctx, clientID, limit)
}
