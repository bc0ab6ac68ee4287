package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guava-nexus/nexus/internal/nexus/model"
)

// ErrHashNameNotFound is returned when a hashname does not exist.
var ErrHashNameNotFound = errors.New("hashname not found")

// HashNameRepository persists hashnames and their ownership.
type HashNameRepository struct {
	db *pgxpool.Pool
}

// NewHashNameRepository creates a HashNameRepository.
func NewHashNameRepository(db *pgxpool.Pool) *HashNameRepository {
	return &HashNameRepository{db: db}
}

const hashnameColumns = `hashname_id, handle, owner_address, is_active, created_at`

func scanHashName(row pgx.Row) (*model.HashName, error) {
	h := &model.HashName{}
	err := row.Scan(&h.ID, &h.Handle, &h.OwnerAddress, &h.IsActive, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHashNameNotFound
		}
		return nil, fmt.Errorf("scan hashname: %w", err)
	}
	return h, nil
}

// GetByHandle returns the hashname with the given canonical handle.
func (r *HashNameRepository) GetByHandle(ctx context.Context, handle string) (*model.HashName, error) {
	return scanHashName(r.db.QueryRow(ctx,
		`SELECT `+hashnameColumns+` FROM hashnames WHERE handle = $1`, handle))
}

// GetByID returns the hashname with the given id.
func (r *HashNameRepository) GetByID(ctx context.Context, id int64) (*model.HashName, error) {
	return scanHashName(r.db.QueryRow(ctx,
		`SELECT `+hashnameColumns+` FROM hashnames WHERE hashname_id = $1`, id))
}

// ClaimOwner sets owner_address on an unowned hashname. The WHERE clause
// is the compare-and-set: with two concurrent claimants exactly one update
// matches a row. Returns false when the row was already owned (or gone)
// at write time.
func (r *HashNameRepository) ClaimOwner(ctx context.Context, id int64, owner string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE hashnames SET owner_address = $2
		 WHERE hashname_id = $1 AND owner_address IS NULL`,
		id, owner,
	)
	if err != nil {
		return false, fmt.Errorf("claim hashname owner: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Create inserts a new, unowned hashname. Used by seeding and admin
// tooling; claiming is the only in-band ownership transition.
func (r *HashNameRepository) Create(ctx context.Context, handle string) (*model.HashName, error) {
	return scanHashName(r.db.QueryRow(ctx,
		`INSERT INTO hashnames (handle) VALUES ($1)
		 ON CONFLICT (handle) DO UPDATE SET handle = EXCLUDED.handle
		 RETURNING `+hashnameColumns, handle))
}
