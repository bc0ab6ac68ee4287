// Package repository provides Postgres persistence for the nexus core.
// Every race-prone transition is expressed as a conditional statement so
// concurrent writers are resolved by the database, never by a
// read-then-write pair in Go.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guava-nexus/nexus/internal/nexus/model"
)

// ErrNonceNotFound is returned when no nonce row exists for an address.
var ErrNonceNotFound = errors.New("nonce not found")

// NonceRepository persists per-address auth nonces.
type NonceRepository struct {
	db *pgxpool.Pool
}

// NewNonceRepository creates a NonceRepository.
func NewNonceRepository(db *pgxpool.Pool) *NonceRepository {
	return &NonceRepository{db: db}
}

// Upsert stores a nonce for its address, replacing any existing row.
func (r *NonceRepository) Upsert(ctx context.Context, n *model.Nonce) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO auth_nonces (address, nonce, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (address) DO UPDATE
		 SET nonce = EXCLUDED.nonce, expires_at = EXCLUDED.expires_at`,
		n.Address, n.Value, n.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert nonce: %w", err)
	}
	return nil
}

// Get returns the stored nonce for an address.
func (r *NonceRepository) Get(ctx context.Context, address string) (*model.Nonce, error) {
	n := &model.Nonce{}
	err := r.db.QueryRow(ctx,
		`SELECT address, nonce, expires_at FROM auth_nonces WHERE address = $1`,
		address,
	).Scan(&n.Address, &n.Value, &n.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNonceNotFound
		}
		return nil, fmt.Errorf("get nonce: %w", err)
	}
	return n, nil
}

// Delete removes the nonce row only while it still holds the presented
// value. The value guard in the WHERE clause is the compare-and-set that
// makes consumption single-use: of two racing consumers exactly one sees
// a deleted row, the other reports false.
func (r *NonceRepository) Delete(ctx context.Context, address, nonce string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM auth_nonces WHERE address = $1 AND nonce = $2`,
		address, nonce,
	)
	if err != nil {
		return false, fmt.Errorf("delete nonce: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteExpired removes all nonces past their expiry. Returns the number
// of rows removed.
func (r *NonceRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM auth_nonces WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired nonces: %w", err)
	}
	return tag.RowsAffected(), nil
}
