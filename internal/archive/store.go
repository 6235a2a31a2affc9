package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/versecap/internal/caption"
	"github.com/MrWong99/versecap/internal/transcript"
)

var _ transcript.ArchiveSink = (*Store)(nil)

// Record is one archived caption row.
type Record struct {
	ID        int64             `json:"id"`
	StreamID  string            `json:"stream_id"`
	SegmentID string            `json:"segment_id"`
	Raw       string            `json:"raw_text"`
	Text      string            `json:"text"`
	Rewrites  []caption.Rewrite `json:"rewrites"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store is the PostgreSQL caption archive. All methods are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection and
// runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("archive: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// WriteCaption implements [transcript.ArchiveSink]. It appends c to the
// captions table under streamID.
func (s *Store) WriteCaption(ctx context.Context, streamID string, c transcript.Caption) error {
	const q = `
		INSERT INTO captions (stream_id, segment_id, raw_text, text, rewrites)
		VALUES ($1, $2, $3, $4, $5)`

	rewrites := c.Rewrites
	if rewrites == nil {
		rewrites = []caption.Rewrite{}
	}
	payload, err := json.Marshal(rewrites)
	if err != nil {
		return fmt.Errorf("archive: encode rewrites: %w", err)
	}

	if _, err := s.pool.Exec(ctx, q, streamID, c.ID, c.Raw, c.Text, payload); err != nil {
		return fmt.Errorf("archive: write caption: %w", err)
	}
	return nil
}

// Recent returns up to limit of the newest captions archived for streamID,
// oldest first. A limit of zero or less returns every caption of the stream.
func (s *Store) Recent(ctx context.Context, streamID string, limit int) ([]Record, error) {
	q := `
		SELECT id, stream_id, segment_id, raw_text, text, rewrites, created_at
		FROM   captions
		WHERE  stream_id = $1
		ORDER  BY id DESC`
	args := []any{streamID}
	if limit > 0 {
		q += "\nLIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: recent: %w", err)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Ping verifies that the database is reachable. It backs the readiness
// check.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("archive: ping: %w", err)
	}
	return nil
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}

// collectRecords scans pgx rows into Records.
func collectRecords(rows pgx.Rows) ([]Record, error) {
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var (
			r       Record
			payload []byte
		)
		if err := row.Scan(&r.ID, &r.StreamID, &r.SegmentID, &r.Raw, &r.Text, &payload, &r.CreatedAt); err != nil {
			return Record{}, err
		}
		if err := json.Unmarshal(payload, &r.Rewrites); err != nil {
			return Record{}, fmt.Errorf("decode rewrites: %w", err)
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("archive: scan rows: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
