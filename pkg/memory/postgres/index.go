package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/MrWong99/voicegate/pkg/memory"
	"github.com/MrWong99/voicegate/pkg/provider/embeddings"
)

// Compile-time interface check.
var _ memory.SnippetIndex = (*Index)(nil)

// Index is the PostgreSQL-backed snippet index. It holds a single
// [pgxpool.Pool] and an embeddings provider used to vectorise search queries.
//
// All operations are safe for concurrent use.
type Index struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider
}

// NewIndex creates a new Index, establishes a connection pool to the
// PostgreSQL database at dsn, registers pgvector types on every connection,
// and runs [Migrate] to ensure the snippets table and extension exist.
//
// The embedder's Dimensions() determines the vector column width and must
// match the model used to produce [memory.Snippet.Embedding] values.
func NewIndex(ctx context.Context, dsn string, embedder embeddings.Provider) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("postgres index: embedder must not be nil")
	}
	dims := embedder.Dimensions()
	if dims <= 0 {
		return nil, fmt.Errorf("postgres index: embedder reports %d dimensions", dims)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres index: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so that vector columns
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres index: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres index: ping: %w", err)
	}

	if err := Migrate(ctx, pool, dims); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres index: migrate: %w", err)
	}

	return &Index{pool: pool, embedder: embedder}, nil
}

// Index implements [memory.SnippetIndex]. It upserts a pre-embedded snippet;
// a snippet with the same ID is completely replaced.
func (x *Index) Index(ctx context.Context, snippet memory.Snippet) error {
	const q = `
		INSERT INTO snippets
		    (id, content, embedding, source, topic, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
		ON CONFLICT (id) DO UPDATE SET
		    content    = EXCLUDED.content,
		    embedding  = EXCLUDED.embedding,
		    source     = EXCLUDED.source,
		    topic      = EXCLUDED.topic,
		    created_at = EXCLUDED.created_at`

	var createdAt any
	if !snippet.CreatedAt.IsZero() {
		createdAt = snippet.CreatedAt
	}
	_, err := x.pool.Exec(ctx, q,
		snippet.ID,
		snippet.Content,
		pgvector.NewVector(snippet.Embedding),
		snippet.Source,
		snippet.Topic,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("snippet index: index: %w", err)
	}
	return nil
}

// Search implements [memory.SnippetIndex]. It embeds the query text and finds
// the topK snippets whose embeddings are closest (cosine distance) to it.
//
// Results are ordered by ascending cosine distance (most similar first).
func (x *Index) Search(ctx context.Context, query string, topK int) ([]memory.SnippetResult, error) {
	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("snippet index: embed query: %w", err)
	}

	const q = `
		SELECT id, content, embedding, source, topic, created_at,
		       embedding <=> $1 AS distance
		FROM   snippets
		ORDER  BY distance
		LIMIT  $2`

	rows, err := x.pool.Query(ctx, q, pgvector.NewVector(vec), topK)
	if err != nil {
		return nil, fmt.Errorf("snippet index: search: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.SnippetResult, error) {
		var (
			sr  memory.SnippetResult
			emb pgvector.Vector
		)
		if err := row.Scan(
			&sr.Snippet.ID,
			&sr.Snippet.Content,
			&emb,
			&sr.Snippet.Source,
			&sr.Snippet.Topic,
			&sr.Snippet.CreatedAt,
			&sr.Distance,
		); err != nil {
			return memory.SnippetResult{}, err
		}
		sr.Snippet.Embedding = emb.Slice()
		return sr, nil
	})
	if err != nil {
		return nil, fmt.Errorf("snippet index: scan rows: %w", err)
	}
	if results == nil {
		results = []memory.SnippetResult{}
	}
	return results, nil
}

// Ping implements [memory.SnippetIndex].
func (x *Index) Ping(ctx context.Context) error {
	if err := x.pool.Ping(ctx); err != nil {
		return fmt.Errorf("snippet index: ping: %w", err)
	}
	return nil
}

// Close releases all connections held by the underlying connection pool.
// It should be called when the Index is no longer needed, typically via defer.
func (x *Index) Close() {
	x.pool.Close()
}
