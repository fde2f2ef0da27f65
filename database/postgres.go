package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	code       TEXT NOT NULL DEFAULT '',
	language   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_expires_at_idx ON documents (expires_at);
`

// ConnectPostgres opens a pool, pings it and makes sure the documents table
// exists.
func ConnectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, createDocumentsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to create documents table: %w", err)
	}
	return pool, nil
}

type PostgresStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewPostgresStore(pool *pgxpool.Pool, ttl time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, ttl: ttl}
}

const documentColumns = `id, code, language, created_at, expires_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	if err := row.Scan(&d.ID, &d.Code, &d.Language, &d.CreatedAt, &d.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) Create(ctx context.Context, language string) (*Document, error) {
	now := time.Now().UTC()
	row := s.pool.QueryRow(ctx,
		`INSERT INTO documents (id, code, language, created_at, expires_at)
		 VALUES ($1, '', $2, $3, $4)
		 RETURNING `+documentColumns,
		uuid.NewString(), language, now, now.Add(s.ttl))
	doc, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("error creating document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("error getting document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) Update(ctx context.Context, id, code, language string) (*Document, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE documents
		 SET code = $2, language = COALESCE(NULLIF($3, ''), language)
		 WHERE id = $1
		 RETURNING `+documentColumns,
		id, code, language)
	doc, err := scanDocument(row)
	if errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("error updating document: %w", err)
	}
	return doc, nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("error deleting expired documents: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
