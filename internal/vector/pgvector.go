package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgIndex stores frame entries in PostgreSQL using the pgvector extension.
// Cosine distance queries are answered by the database, so the index survives
// restarts without snapshot files.
type PgIndex struct {
	pool       *pgxpool.Pool
	dimensions int
}

// NewPgIndex connects to connString, ensures the pgvector extension and the
// frame_entries table exist, and returns the index.
func NewPgIndex(ctx context.Context, connString string, dimensions int) (*PgIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	idx := &PgIndex{pool: pool, dimensions: dimensions}
	if err := idx.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (p *PgIndex) ensureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS frame_entries (
			id          TEXT PRIMARY KEY,
			video_id    TEXT NOT NULL,
			frame_index INTEGER NOT NULL,
			ts          DOUBLE PRECISION NOT NULL,
			caption     TEXT NOT NULL,
			embedding   vector(%d) NOT NULL
		)`, p.dimensions)
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create frame_entries table: %w", err)
	}
	if _, err := p.pool.Exec(ctx,
		"CREATE INDEX IF NOT EXISTS frame_entries_video_id_idx ON frame_entries (video_id)"); err != nil {
		return fmt.Errorf("create video_id index: %w", err)
	}
	return nil
}

// Upsert inserts entries, replacing any existing entry with the same ID.
func (p *PgIndex) Upsert(ctx context.Context, entries []Entry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		if len(e.Vector) != p.dimensions {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(e.Vector), p.dimensions)
		}
		batch.Queue(`
			INSERT INTO frame_entries (id, video_id, frame_index, ts, caption, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				video_id = EXCLUDED.video_id,
				frame_index = EXCLUDED.frame_index,
				ts = EXCLUDED.ts,
				caption = EXCLUDED.caption,
				embedding = EXCLUDED.embedding`,
			e.ID, e.VideoID, e.FrameIndex, e.Timestamp, e.Caption, pgvector.NewVector(e.Vector))
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert entries: %w", err)
	}
	return nil
}

// Search returns the top-k entries for videoID by cosine similarity.
func (p *PgIndex) Search(ctx context.Context, videoID string, query []float32, k int) ([]Result, error) {
	if len(query) != p.dimensions {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(query), p.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, video_id, frame_index, ts, caption, embedding,
		       1 - (embedding <=> $1) AS score
		FROM frame_entries
		WHERE video_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(query), videoID, k)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var emb pgvector.Vector
		if err := rows.Scan(&r.Entry.ID, &r.Entry.VideoID, &r.Entry.FrameIndex,
			&r.Entry.Timestamp, &r.Entry.Caption, &emb, &r.Score); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		r.Entry.Vector = emb.Slice()
		// pgvector's cosine distance is in [0, 2]; 1-distance lands in [-1, 1].
		results = append(results, r)
	}
	return results, rows.Err()
}

// Get returns the entry with the given ID, or nil when absent.
func (p *PgIndex) Get(ctx context.Context, id string) (*Entry, error) {
	var e Entry
	var emb pgvector.Vector
	err := p.pool.QueryRow(ctx, `
		SELECT id, video_id, frame_index, ts, caption, embedding
		FROM frame_entries WHERE id = $1`, id).
		Scan(&e.ID, &e.VideoID, &e.FrameIndex, &e.Timestamp, &e.Caption, &emb)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	e.Vector = emb.Slice()
	return &e, nil
}

// DeleteVideo removes all entries for videoID and returns how many were removed.
func (p *PgIndex) DeleteVideo(ctx context.Context, videoID string) (int, error) {
	tag, err := p.pool.Exec(ctx, "DELETE FROM frame_entries WHERE video_id = $1", videoID)
	if err != nil {
		return 0, fmt.Errorf("delete video entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Count returns the number of entries for videoID.
func (p *PgIndex) Count(ctx context.Context, videoID string) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM frame_entries WHERE video_id = $1", videoID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count video entries: %w", err)
	}
	return n, nil
}

// Size returns the total number of entries. Errors report as 0.
func (p *PgIndex) Size() int {
	var n int
	if err := p.pool.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM frame_entries").Scan(&n); err != nil {
		return 0
	}
	return n
}

// Dimensions returns the embedding dimension.
func (p *PgIndex) Dimensions() int {
	return p.dimensions
}

// Save is a no-op; PostgreSQL is the durable store.
func (p *PgIndex) Save(path string) error {
	return nil
}

// Load is a no-op; PostgreSQL is the durable store.
func (p *PgIndex) Load(path string) error {
	return nil
}

// Close releases the connection pool.
func (p *PgIndex) Close() error {
	p.pool.Close()
	return nil
}
