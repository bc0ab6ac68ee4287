package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guava-nexus/nexus/internal/nexus/model"
)

// ErrSeedNotFound is returned when a seed does not exist.
var ErrSeedNotFound = errors.New("seed not found")

// SeedRepository persists seeds and their version history.
type SeedRepository struct {
	db *pgxpool.Pool
}

// NewSeedRepository creates a SeedRepository.
func NewSeedRepository(db *pgxpool.Pool) *SeedRepository {
	return &SeedRepository{db: db}
}

const seedColumns = `seed_id, author_address, content, latest_version, created_at, updated_at`

func scanSeed(row pgx.Row) (*model.Seed, error) {
	s := &model.Seed{}
	err := row.Scan(&s.ID, &s.AuthorAddress, &s.Content, &s.LatestVersion, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSeedNotFound
		}
		return nil, fmt.Errorf("scan seed: %w", err)
	}
	return s, nil
}

// GetByID returns the seed with the given id.
func (r *SeedRepository) GetByID(ctx context.Context, id int64) (*model.Seed, error) {
	return scanSeed(r.db.QueryRow(ctx,
		`SELECT `+seedColumns+` FROM seeds WHERE seed_id = $1`, id))
}

// Create inserts a new seed at version 1 together with its first version
// row, in one transaction.
func (r *SeedRepository) Create(ctx context.Context, content string, authorAddress *string) (*model.Seed, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create seed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	s, err := scanSeed(tx.QueryRow(ctx,
		`INSERT INTO seeds (author_address, content) VALUES ($1, $2)
		 RETURNING `+seedColumns, authorAddress, content))
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO seed_versions (seed_id, version, content) VALUES ($1, 1, $2)`,
		s.ID, content,
	); err != nil {
		return nil, fmt.Errorf("insert seed version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create seed: %w", err)
	}
	return s, nil
}

// UpdateContent replaces the seed's content, bumps latest_version, and
// appends the new revision to seed_versions, all in one transaction.
func (r *SeedRepository) UpdateContent(ctx context.Context, id int64, content string) (*model.Seed, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update seed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	s, err := scanSeed(tx.QueryRow(ctx,
		`UPDATE seeds
		 SET content = $2, latest_version = latest_version + 1, updated_at = now()
		 WHERE seed_id = $1
		 RETURNING `+seedColumns, id, content))
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO seed_versions (seed_id, version, content) VALUES ($1, $2, $3)`,
		s.ID, s.LatestVersion, content,
	); err != nil {
		return nil, fmt.Errorf("insert seed version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update seed: %w", err)
	}
	return s, nil
}

// ListVersions returns all revisions of a seed, newest first.
func (r *SeedRepository) ListVersions(ctx context.Context, id int64) ([]*model.SeedVersion, error) {
	rows, err := r.db.Query(ctx,
		`SELECT seed_id, version, content, created_at
		 FROM seed_versions WHERE seed_id = $1 ORDER BY version DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("list seed versions: %w", err)
	}
	defer rows.Close()

	var versions []*model.SeedVersion
	for rows.Next() {
		v := &model.SeedVersion{}
		if err := rows.Scan(&v.SeedID, &v.Version, &v.Content, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan seed version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
