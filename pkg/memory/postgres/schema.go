package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlConversations = `
CREATE TABLE IF NOT EXISTS conversations (
    session_id  TEXT         PRIMARY KEY,
    started_at  TIMESTAMPTZ  NOT NULL,
    snapshot    JSONB        NOT NULL,
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated_at
    ON conversations (updated_at);
`

// Migrate creates or ensures the conversations table exists. It is idempotent
// and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlConversations); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
