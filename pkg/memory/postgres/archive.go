// Package postgres provides a PostgreSQL-backed archive for conversation
// snapshots, used to persist sessions across assistant restarts.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vocata-ai/vocata/pkg/memory"
)

// ErrNotFound is returned by Load when no snapshot exists for a session.
var ErrNotFound = errors.New("postgres archive: session not found")

// Archive stores conversation snapshots keyed by session ID. The snapshot
// document is kept as JSONB so the archived shape matches the file export
// format exactly.
//
// All methods are safe for concurrent use.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive establishes a connection pool to the PostgreSQL database at dsn
// and runs [Migrate] to ensure the conversations table exists.
func NewArchive(ctx context.Context, dsn string) (*Archive, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres archive: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres archive: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres archive: migrate: %w", err)
	}

	return &Archive{pool: pool}, nil
}

// Save upserts the snapshot under sessionID.
func (a *Archive) Save(ctx context.Context, sessionID string, snap memory.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("postgres archive: marshal snapshot: %w", err)
	}

	const q = `
		INSERT INTO conversations (session_id, started_at, snapshot, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`

	if _, err := a.pool.Exec(ctx, q, sessionID, snap.StartTime, doc); err != nil {
		return fmt.Errorf("postgres archive: save session %s: %w", sessionID, err)
	}
	return nil
}

// Load returns the snapshot stored under sessionID, or [ErrNotFound].
func (a *Archive) Load(ctx context.Context, sessionID string) (memory.Snapshot, error) {
	const q = `SELECT snapshot FROM conversations WHERE session_id = $1`

	var doc []byte
	err := a.pool.QueryRow(ctx, q, sessionID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return memory.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("postgres archive: load session %s: %w", sessionID, err)
	}

	var snap memory.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return memory.Snapshot{}, fmt.Errorf("postgres archive: unmarshal session %s: %w", sessionID, err)
	}
	return snap, nil
}

// Sessions lists all archived session IDs, most recently updated first.
func (a *Archive) Sessions(ctx context.Context) ([]string, error) {
	const q = `SELECT session_id FROM conversations ORDER BY updated_at DESC`

	rows, err := a.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("postgres archive: list sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres archive: scan sessions: %w", err)
	}
	return ids, nil
}

// Delete removes the snapshot stored under sessionID. Deleting a session
// that does not exist is not an error.
func (a *Archive) Delete(ctx context.Context, sessionID string) error {
	const q = `DELETE FROM conversations WHERE session_id = $1`
	if _, err := a.pool.Exec(ctx, q, sessionID); err != nil {
		return fmt.Errorf("postgres archive: delete session %s: %w", sessionID, err)
	}
	return nil
}

// Close releases all connections held by the underlying pool.
func (a *Archive) Close() {
	a.pool.Close()
}
