// Package archive persists finalized captions to PostgreSQL, or to a local
// JSON lines file via [FileStore].
//
// Every finalized caption of every stream is appended to the captions table
// together with its raw transcript text and the reference rewrites that were
// applied, so operators can audit what the canonicalizer changed after a
// service. [Migrate] creates the table and its indexes idempotently.
//
// Usage:
//
//	store, err := archive.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.WriteCaption(ctx, streamID, c)
//	recent, _ := store.Recent(ctx, streamID, 50)
package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlCaptions = `
CREATE TABLE IF NOT EXISTS captions (
    id          BIGSERIAL    PRIMARY KEY,
    stream_id   TEXT         NOT NULL,
    segment_id  TEXT         NOT NULL DEFAULT '',
    raw_text    TEXT         NOT NULL,
    text        TEXT         NOT NULL,
    rewrites    JSONB        NOT NULL DEFAULT '[]'::jsonb,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_captions_stream_id
    ON captions (stream_id, id);

CREATE INDEX IF NOT EXISTS idx_captions_created_at
    ON captions (created_at);
`

// Migrate creates the captions table and indexes when they do not already
// exist. It is safe to call on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlCaptions); err != nil {
		return fmt.Errorf("archive: migrate captions: %w", err)
	}
	return nil
}
