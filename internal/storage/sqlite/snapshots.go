// ABOUTME: Materialised snapshot operations for SQLite
// ABOUTME: One row per populated field, replaced wholesale on every commit
package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harper/persona/internal/models"
)

// SnapshotStore handles persona_fields persistence
type SnapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a new SnapshotStore
func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Get loads a client's snapshot. A client with no rows gets an empty snapshot.
func (s *SnapshotStore) Get(ctx context.Context, q querier, clientID string) (*models.PersonaSnapshot, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT field, value, confidence, updated_at
		FROM persona_fields
		WHERE client_id = ?
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	snap := models.NewSnapshot(clientID)
	for rows.Next() {
		var (
			field     string
			raw       string
			st        models.FieldState
			updatedAt int64
		)
		if err := rows.Scan(&field, &raw, &st.Confidence, &updatedAt); err != nil {
			return nil, err
		}

		f := models.Field(field)
		kind, err := f.Kind()
		if err != nil {
			return nil, fmt.Errorf("snapshot row for %s: %w", clientID, err)
		}
		if st.Value, err = models.DecodeValue(kind, []byte(raw)); err != nil {
			return nil, fmt.Errorf("snapshot %s.%s: %w", clientID, field, err)
		}
		st.UpdatedAt = time.Unix(0, updatedAt).UTC()

		snap.Fields[f] = st
		if st.UpdatedAt.After(snap.UpdatedAt) {
			snap.UpdatedAt = st.UpdatedAt
		}
	}
	return snap, rows.Err()
}

// upsert writes the given fields of a snapshot
func (s *SnapshotStore) upsert(ctx context.Context, q querier, snap *models.PersonaSnapshot, fields []models.Field) error {
	for _, f := range fields {
		st, ok := snap.Fields[f]
		if !ok {
			continue
		}
		raw, err := json.Marshal(st.Value)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f, err)
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO persona_fields (client_id, field, value, confidence, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(client_id, field) DO UPDATE SET
				value = excluded.value,
				confidence = excluded.confidence,
				updated_at = excluded.updated_at
		`, snap.ClientID, string(f), string(raw), st.Confidence, st.UpdatedAt.UTC().UnixNano()); err != nil {
			return fmt.Errorf("failed to write %s: %w", f, err)
		}
	}
	return nil
}

// replace drops every stored row of the client and writes the snapshot anew
func (s *SnapshotStore) replace(ctx context.Context, q querier, snap *models.PersonaSnapshot) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM persona_fields WHERE client_id = ?`, snap.ClientID); err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}
	return s.upsert(ctx, q, snap, models.Fields())
}

// ListClients returns every client id that has a stored snapshot
func (s *SnapshotStore) ListClients(ctx context.Context) ([]string, error) {
	rows, err := s.db.conn.QueryContext(ctx, `SELECT DISTINCT client_id FROM persona_fields ORDER BY client_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var clients []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		clients = append(clients, id)
	}
	return clients, rows.Err()
}
