package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps each collection as one JSONB row of the documents table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a store over an open pool; the schema comes from the
// persistence migrations.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Read(ctx context.Context, collection string) ([]byte, error) {
	const query = `SELECT body FROM documents WHERE name=$1`

	var body []byte
	if err := s.pool.QueryRow(ctx, query, collection).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select %s: %w", collection, err)
	}
	return body, nil
}

func (s *PostgresStore) Write(ctx context.Context, collection string, data []byte) error {
	if err := validateName(collection); err != nil {
		return err
	}

	const query = `
        INSERT INTO documents (name, body, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (name) DO UPDATE SET body=EXCLUDED.body, updated_at=NOW()`

	if _, err := s.pool.Exec(ctx, query, collection, string(data)); err != nil {
		return fmt.Errorf("upsert %s: %w", collection, err)
	}
	return nil
}
