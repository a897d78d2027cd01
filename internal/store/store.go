// Package store is the data access layer. The public schema (tenants,
// users, refresh tokens) is reached through Store; everything inside a
// tenant schema is reached through a TenantStore obtained from
// Store.ForTenant.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound              = errors.New("resource not found")
	ErrDuplicateKey          = errors.New("duplicate key violation")
	ErrConflict              = errors.New("operation conflicts with existing records")
	ErrInsufficientInventory = errors.New("insufficient available inventory")
	ErrInvalidTenantID       = errors.New("tenant id is not a valid UUID")
)

// Store provides access to the public schema and is the factory for
// tenant-scoped stores.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by the given connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
