// Package postgres implements storage.Persistence over a PostgreSQL
// database reached through pgxpool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oxidetalis-go/otmpd/storage"
)

// Config holds PostgreSQL connection configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Store implements storage.Persistence for PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new PostgreSQL-backed store. Callers should run
// Migrate before the store is used against a fresh database.
func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Pool exposes the underlying pool, e.g. for the health checker.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the database connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var _ storage.Persistence = (*Store)(nil)
