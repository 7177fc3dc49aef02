// -----------------------------------------------------------------------
// Postgres pgvector backend for session indexes
// -----------------------------------------------------------------------

package pgvector

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/interfaces"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Connect opens a pool and makes sure the extension and table exist
func Connect(ctx context.Context, dsn, table string, logger arbor.ILogger) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pgvector dsn is required")
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid pgvector table name %q", table)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect pgvector: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pgvector: %w", err)
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	session_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	embedding VECTOR NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, seq)
)`, table),
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("prepare pgvector schema: %w", err)
		}
	}

	logger.Info().Str("table", table).Msg("pgvector backend ready")
	return pool, nil
}

// Store keeps the vectors of one namespace (session) in a shared table
type Store struct {
	pool      *pgxpool.Pool
	table     string
	namespace string
	dimension int
	count     int
	logger    arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.VectorStore = (*Store)(nil)

// NewFactory returns a VectorStoreFactory over pool. Each store starts empty:
// rows left from an earlier build of the same namespace are removed.
func NewFactory(pool *pgxpool.Pool, table string, logger arbor.ILogger) interfaces.VectorStoreFactory {
	return func(ctx context.Context, namespace string, dimension int) (interfaces.VectorStore, error) {
		if namespace == "" {
			return nil, fmt.Errorf("namespace is required")
		}
		s := &Store{
			pool:      pool,
			table:     table,
			namespace: namespace,
			dimension: dimension,
			logger:    logger,
		}
		if err := s.deleteAll(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Add inserts entries in one batch
func (s *Store) Add(ctx context.Context, entries []interfaces.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (session_id, seq, embedding) VALUES ($1, $2, $3)
ON CONFLICT (session_id, seq) DO UPDATE SET embedding = EXCLUDED.embedding`, s.table)

	batch := &pgx.Batch{}
	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return fmt.Errorf("vector for seq %d has dimension %d, want %d", e.Seq, len(e.Vector), s.dimension)
		}
		batch.Queue(query, s.namespace, e.Seq, pgv.NewVector(e.Vector))
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert vector: %w", err)
		}
	}

	s.count += len(entries)
	return nil
}

// Search orders by cosine distance then seq, so ties keep insertion order
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]interfaces.VectorHit, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), s.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	sql := fmt.Sprintf(`SELECT seq, 1 - (embedding <=> $1) AS score
FROM %s
WHERE session_id = $2
ORDER BY embedding <=> $1, seq
LIMIT $3`, s.table)

	rows, err := s.pool.Query(ctx, sql, pgv.NewVector(query), s.namespace, k)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var hits []interfaces.VectorHit
	for rows.Next() {
		var (
			seq   int
			score float64
		)
		if err := rows.Scan(&seq, &score); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		hits = append(hits, interfaces.VectorHit{Seq: seq, Score: float32(score)})
	}
	return hits, rows.Err()
}

// Len returns the number of vectors added through this store
func (s *Store) Len() int {
	return s.count
}

// Close removes the namespace's rows. The pool is owned by the caller.
func (s *Store) Close() error {
	if err := s.deleteAll(context.Background()); err != nil {
		s.logger.Warn().Err(err).Str("session_id", s.namespace).Msg("Failed to remove session vectors")
		return err
	}
	return nil
}

func (s *Store) deleteAll(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE session_id = $1", s.table), s.namespace)
	if err != nil {
		return fmt.Errorf("clear session vectors: %w", err)
	}
	return nil
}
