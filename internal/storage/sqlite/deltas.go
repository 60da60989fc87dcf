// ABOUTME: Delta ledger operations for SQLite
// ABOUTME: Append-only inserts and ordered reads of field deltas
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harper/persona/internal/models"
)

// DeltaStore handles ledger persistence
type DeltaStore struct {
	db *DB
}

// NewDeltaStore creates a new DeltaStore
func NewDeltaStore(db *DB) *DeltaStore {
	return &DeltaStore{db: db}
}

// insert appends deltas in slice order so seq follows batch order
func (s *DeltaStore) insert(ctx context.Context, q querier, deltas []models.FieldDelta) error {
	for i := range deltas {
		d := &deltas[i]

		newValue, err := json.Marshal(d.NewValue)
		if err != nil {
			return fmt.Errorf("failed to encode new value for %s: %w", d.Field, err)
		}
		var oldValue sql.NullString
		if d.OldValue != nil {
			raw, err := json.Marshal(*d.OldValue)
			if err != nil {
				return fmt.Errorf("failed to encode old value for %s: %w", d.Field, err)
			}
			oldValue = sql.NullString{String: string(raw), Valid: true}
		}

		res, err := q.ExecContext(ctx, `
			INSERT INTO field_deltas (id, client_id, field, old_value, new_value, confidence, source_session_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, d.ID, d.ClientID, string(d.Field), oldValue, string(newValue),
			d.Confidence, nullString(d.SourceSessionID), d.CreatedAt.UTC().UnixNano())
		if err != nil {
			return fmt.Errorf("failed to append delta %s: %w", d.ID, err)
		}

		if seq, err := res.LastInsertId(); err == nil {
			d.Seq = seq
		}
	}
	return nil
}

// ListByClient returns a client's deltas newest first. limit <= 0 returns all.
func (s *DeltaStore) ListByClient(ctx context.Context, clientID string, limit int) ([]models.FieldDelta, error) {
	query := `
		SELECT seq, id, client_id, field, old_value, new_value, confidence, source_session_id, created_at
		FROM field_deltas
		WHERE client_id = ?
		ORDER BY created_at DESC, seq DESC
	`
	args := []interface{}{clientID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(ctx, s.db.conn, query, args...)
}

// ListChronological returns all of a client's deltas oldest first
func (s *DeltaStore) ListChronological(ctx context.Context, q querier, clientID string) ([]models.FieldDelta, error) {
	return s.query(ctx, q, `
		SELECT seq, id, client_id, field, old_value, new_value, confidence, source_session_id, created_at
		FROM field_deltas
		WHERE client_id = ?
		ORDER BY created_at ASC, seq ASC
	`, clientID)
}

// ListBySession returns the deltas attributed to one session in ledger order
func (s *DeltaStore) ListBySession(ctx context.Context, sessionID string) ([]models.FieldDelta, error) {
	return s.query(ctx, s.db.conn, `
		SELECT seq, id, client_id, field, old_value, new_value, confidence, source_session_id, created_at
		FROM field_deltas
		WHERE source_session_id = ?
		ORDER BY created_at ASC, seq ASC
	`, sessionID)
}

// Count returns the number of deltas recorded for a client
func (s *DeltaStore) Count(ctx context.Context, clientID string) (int, error) {
	var n int
	err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM field_deltas WHERE client_id = ?`, clientID).Scan(&n)
	return n, err
}

func (s *DeltaStore) query(ctx context.Context, q querier, query string, args ...interface{}) ([]models.FieldDelta, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	deltas := []models.FieldDelta{}
	for rows.Next() {
		var (
			d         models.FieldDelta
			field     string
			oldValue  sql.NullString
			newValue  string
			sessionID sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&d.Seq, &d.ID, &d.ClientID, &field, &oldValue, &newValue,
			&d.Confidence, &sessionID, &createdAt); err != nil {
			return nil, err
		}

		d.Field = models.Field(field)
		kind, err := d.Field.Kind()
		if err != nil {
			return nil, fmt.Errorf("delta %s: %w", d.ID, err)
		}
		if d.NewValue, err = models.DecodeValue(kind, []byte(newValue)); err != nil {
			return nil, fmt.Errorf("delta %s: failed to decode new value: %w", d.ID, err)
		}
		if oldValue.Valid {
			old, err := models.DecodeValue(kind, []byte(oldValue.String))
			if err != nil {
				return nil, fmt.Errorf("delta %s: failed to decode old value: %w", d.ID, err)
			}
			d.OldValue = &old
		}
		if sessionID.Valid {
			d.SourceSessionID = sessionID.String
		}
		d.CreatedAt = time.Unix(0, createdAt).UTC()

		deltas = append(deltas, d)
	}
	return deltas, rows.Err()
}

// nullString converts empty strings to SQL NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
