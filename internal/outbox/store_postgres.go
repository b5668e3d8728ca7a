package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"patientflow/pkg/platform/sentinel"
)

// Postgres persists outbox entries so queued events survive process restarts.
//
// Schema:
//
//	CREATE TABLE outbox (
//	    id         UUID PRIMARY KEY,
//	    key        TEXT NOT NULL,
//	    event_type TEXT NOT NULL,
//	    payload    JSONB NOT NULL,
//	    status     TEXT NOT NULL DEFAULT 'pending',
//	    attempts   INT NOT NULL DEFAULT 0,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    sent_at    TIMESTAMPTZ
//	);
//	CREATE INDEX outbox_pending_idx ON outbox (created_at) WHERE status = 'pending';
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO outbox (id, key, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Key,
		entry.EventType,
		entry.Payload,
		entry.Attempts,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *Postgres) NextBatch(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, key, event_type, payload, attempts, created_at
		FROM outbox
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox batch: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Key, &e.EventType, &e.Payload, &e.Attempts, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

func (s *Postgres) MarkSent(ctx context.Context, entryID uuid.UUID) error {
	query := `UPDATE outbox SET status = 'sent', sent_at = $2 WHERE id = $1 AND status = 'pending'`
	res, err := s.db.ExecContext(ctx, query, entryID, time.Now())
	if err != nil {
		return fmt.Errorf("mark outbox sent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark outbox sent rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) MarkFailed(ctx context.Context, entryID uuid.UUID) error {
	query := `UPDATE outbox SET attempts = attempts + 1 WHERE id = $1 AND status = 'pending'`
	res, err := s.db.ExecContext(ctx, query, entryID)
	if err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark outbox failed rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM outbox WHERE status = 'pending'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending outbox entries: %w", err)
	}
	return count, nil
}
