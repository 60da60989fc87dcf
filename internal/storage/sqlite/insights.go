// ABOUTME: Session insight storage operations for SQLite
// ABOUTME: One resolved record per session plus the raw synthesis text
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/harper/persona/internal/models"
)

// InsightStore handles session_insights persistence
type InsightStore struct {
	db *DB
}

// NewInsightStore creates a new InsightStore
func NewInsightStore(db *DB) *InsightStore {
	return &InsightStore{db: db}
}

// Save stores an insight. Reprocessing a session replaces its record.
func (s *InsightStore) Save(ctx context.Context, insight models.StoredInsight) error {
	rec := insight.Record
	if rec.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode insight: %w", err)
	}

	_, err = s.db.conn.ExecContext(ctx, `
		INSERT INTO session_insights (session_id, client_id, record, raw_synthesis, synthesis_parsed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			client_id = excluded.client_id,
			record = excluded.record,
			raw_synthesis = excluded.raw_synthesis,
			synthesis_parsed = excluded.synthesis_parsed,
			created_at = excluded.created_at
	`, rec.SessionID, rec.ClientID, string(raw), nullString(insight.RawSynthesis),
		insight.SynthesisParsed, rec.CreatedAt.UTC().UnixNano())
	return err
}

// Get retrieves the insight for a session, or nil if none is stored
func (s *InsightStore) Get(ctx context.Context, sessionID string) (*models.StoredInsight, error) {
	var (
		raw       string
		synthesis sql.NullString
		parsed    bool
	)
	err := s.db.conn.QueryRowContext(ctx, `
		SELECT record, raw_synthesis, synthesis_parsed
		FROM session_insights
		WHERE session_id = ?
	`, sessionID).Scan(&raw, &synthesis, &parsed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeInsight(raw, synthesis, parsed)
}

// ListByClient returns a client's insights newest first
func (s *InsightStore) ListByClient(ctx context.Context, clientID string, limit int) ([]models.StoredInsight, error) {
	query := `
		SELECT record, raw_synthesis, synthesis_parsed
		FROM session_insights
		WHERE client_id = ?
		ORDER BY created_at DESC
	`
	args := []interface{}{clientID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	insights := []models.StoredInsight{}
	for rows.Next() {
		var (
			raw       string
			synthesis sql.NullString
			parsed    bool
		)
		if err := rows.Scan(&raw, &synthesis, &parsed); err != nil {
			return nil, err
		}
		insight, err := decodeInsight(raw, synthesis, parsed)
		if err != nil {
			return nil, err
		}
		insights = append(insights, *insight)
	}
	return insights, rows.Err()
}

func decodeInsight(raw string, synthesis sql.NullString, parsed bool) (*models.StoredInsight, error) {
	var rec models.SessionInsightRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to decode insight: %w", err)
	}
	return &models.StoredInsight{
		Record:          rec,
		RawSynthesis:    synthesis.String,
		SynthesisParsed: parsed,
	}, nil
}
