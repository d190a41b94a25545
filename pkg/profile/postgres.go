package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSchema creates the table PostgresStore expects. The record itself is
// stored as a jsonb document so the table never needs to track field-level
// schema changes.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS profile_records (
	id         TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresConfig holds connection settings for the postgres-backed store.
type PostgresConfig struct {
	ConnectionString string        `env:"PROFILE_PG_CONN_URL,required"`
	MaxOpenConns     int32         `env:"PROFILE_PG_MAX_OPEN_CONNS" envDefault:"10"`
	RetryAttempts    int           `env:"PROFILE_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"PROFILE_PG_RETRY_INTERVAL" envDefault:"5s"`
}

var (
	ErrFailedToParsePostgresConfig = errors.New("failed to parse postgres connection string")
	ErrPostgresNotReady            = errors.New("postgres did not become ready within the given attempts")
)

// PostgresStore implements Store on top of PostgreSQL, persisting each record
// as a jsonb document keyed by identity ID.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ConnectPostgres establishes a pool with retries and returns a store bound to it.
func ConnectPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParsePostgresConfig, err)
	}
	connConfig.MaxConns = cfg.MaxOpenConns

	for range max(cfg.RetryAttempts, 1) {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err == nil {
			if err := pool.Ping(ctx); err == nil {
				return NewPostgresStore(pool), nil
			}
			pool.Close()
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrPostgresNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrPostgresNotReady
}

// Get retrieves a record by identity ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*User, error) {
	var user User
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM profile_records WHERE id = $1`, id,
	).Scan(&user)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read profile record: %w", err)
	}
	return &user, nil
}

// Put upserts the record, replacing any existing document entirely.
func (s *PostgresStore) Put(ctx context.Context, user *User) error {
	if user == nil || user.ID == "" {
		return ErrInvalidUser
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO profile_records (id, record, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record, updated_at = now()`,
		user.ID, user,
	)
	if err != nil {
		return fmt.Errorf("failed to write profile record: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

var _ Store = (*PostgresStore)(nil)
