package vectorindex

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// PgxIndex is a Postgres+pgvector implementation of Searcher. It stores
// normalized technique embeddings and answers cosine KNN queries with an
// optional tactic restriction.
type PgxIndex struct {
	pool  *pgxpool.Pool
	table string
}

// NewPgxIndex connects to Postgres. The table name defaults to
// "attack_techniques" when empty.
func NewPgxIndex(ctx context.Context, connString, table string) (*PgxIndex, error) {
	if table == "" {
		table = "attack_techniques"
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("vectorindex: ping: %w", err)
	}

	return &PgxIndex{pool: pool, table: table}, nil
}

// EnsureSchema creates the pgvector extension and the technique table for
// the given embedding dimension if they do not exist.
func (p *PgxIndex) EnsureSchema(ctx context.Context, dim int) error {
	if dim <= 0 {
		return fmt.Errorf("vectorindex: invalid embedding dimension %d", dim)
	}

	if _, err := p.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("vectorindex: create extension: %w", err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		technique_id text PRIMARY KEY,
		tactics      text[] NOT NULL DEFAULT '{}',
		embedding    vector(%d) NOT NULL
	)`, p.table, dim)
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("vectorindex: create table: %w", err)
	}
	return nil
}

// Upsert implements Writer.
func (p *PgxIndex) Upsert(ctx context.Context, entries []Entry) error {
	sql := fmt.Sprintf(`INSERT INTO %s (technique_id, tactics, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (technique_id) DO UPDATE SET
			tactics = EXCLUDED.tactics,
			embedding = EXCLUDED.embedding`, p.table)

	for _, e := range entries {
		if _, err := p.pool.Exec(ctx, sql, e.TechniqueID, e.Tactics, pgvector.NewVector(e.Vector)); err != nil {
			return fmt.Errorf("vectorindex: upsert %s: %w", e.TechniqueID, err)
		}
	}
	return nil
}

// Count returns the number of indexed techniques.
func (p *PgxIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, p.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("vectorindex: count: %w", err)
	}
	return n, nil
}

// Search implements Searcher using the pgvector cosine distance operator.
// Cosine similarity is recovered as 1 - distance. The tie on equal scores is
// broken by ascending technique id for deterministic ordering.
func (p *PgxIndex) Search(ctx context.Context, vector []float32, k int, filter *Filter) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}

	sql := fmt.Sprintf(`SELECT technique_id, 1 - (embedding <=> $1) AS score
		FROM %s`, p.table)
	args := []any{pgvector.NewVector(vector)}

	if filter != nil && len(filter.Tactics) > 0 {
		sql += ` WHERE tactics && $2`
		args = append(args, filter.Tactics)
	}
	sql += fmt.Sprintf(` ORDER BY score DESC, technique_id ASC LIMIT %d`, k)

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("vectorindex: search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.TechniqueID, &m.Score); err != nil {
			return nil, fmt.Errorf("vectorindex: scan: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vectorindex: search: %w", err)
	}
	return matches, nil
}

// Close releases the connection pool.
func (p *PgxIndex) Close() {
	p.pool.Close()
}
