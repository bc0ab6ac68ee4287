package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guava-nexus/nexus/internal/nexus/model"
)

// Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Sentinel errors for hashroot rows.
var (
	ErrRequestNotFound    = errors.New("hashroot request not found")
	ErrAttachmentNotFound = errors.New("hashroot attachment not found")
	ErrDuplicatePending   = errors.New("pending hashroot request already exists")
)

// HashRootRepository persists attachment requests and approved attachments.
type HashRootRepository struct {
	db *pgxpool.Pool
}

// NewHashRootRepository creates a HashRootRepository.
func NewHashRootRepository(db *pgxpool.Pool) *HashRootRepository {
	return &HashRootRepository{db: db}
}

const requestColumns = `request_id, seed_id, hashname_id, requester_address,
	status, created_at, resolved_at, decision_note`

func scanRequest(row pgx.Row) (*model.HashRootRequest, error) {
	req := &model.HashRootRequest{}
	err := row.Scan(&req.ID, &req.SeedID, &req.HashNameID, &req.RequesterAddress,
		&req.Status, &req.CreatedAt, &req.ResolvedAt, &req.DecisionNote)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("scan hashroot request: %w", err)
	}
	return req, nil
}

// GetRequest returns a request by id.
func (r *HashRootRepository) GetRequest(ctx context.Context, id int64) (*model.HashRootRequest, error) {
	return scanRequest(r.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM hashroot_requests WHERE request_id = $1`, id))
}

// GetPendingRequest returns the pending request for a (seed, hashname)
// pair, if one exists. The workflow guarantees at most one.
func (r *HashRootRepository) GetPendingRequest(ctx context.Context, seedID, hashnameID int64) (*model.HashRootRequest, error) {
	return scanRequest(r.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM hashroot_requests
		 WHERE seed_id = $1 AND hashname_id = $2 AND status = 'pending'
		 ORDER BY created_at LIMIT 1`, seedID, hashnameID))
}

// InsertRequest inserts a new pending request and returns it. The partial
// unique index on pending rows is the transactional guard for the
// at-most-one-pending rule: a racing insert for the same pair trips a
// unique violation, surfaced as ErrDuplicatePending so the caller can
// adopt the winner's row.
func (r *HashRootRepository) InsertRequest(ctx context.Context, seedID, hashnameID int64, requester string) (*model.HashRootRequest, error) {
	req, err := scanRequest(r.db.QueryRow(ctx,
		`INSERT INTO hashroot_requests (seed_id, hashname_id, requester_address, status)
		 VALUES ($1, $2, $3, 'pending')
		 RETURNING `+requestColumns, seedID, hashnameID, requester))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicatePending
		}
		return nil, err
	}
	return req, nil
}

// ResolveRequest flips a request into a terminal status. The status guard
// in the WHERE clause is the compare-and-set: when two resolutions race,
// the second sees zero rows affected and must report already-resolved.
func (r *HashRootRepository) ResolveRequest(ctx context.Context, id int64, status model.RequestStatus, resolvedAt time.Time, note *string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE hashroot_requests
		 SET status = $2, resolved_at = $3, decision_note = $4
		 WHERE request_id = $1 AND status = 'pending'`,
		id, status, resolvedAt, note,
	)
	if err != nil {
		return false, fmt.Errorf("resolve hashroot request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListRequestsByHashName returns all requests against a hashname, newest
// first.
func (r *HashRootRepository) ListRequestsByHashName(ctx context.Context, hashnameID int64) ([]*model.HashRootRequest, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+requestColumns+` FROM hashroot_requests
		 WHERE hashname_id = $1 ORDER BY created_at DESC`, hashnameID)
	if err != nil {
		return nil, fmt.Errorf("list hashroot requests: %w", err)
	}
	defer rows.Close()

	var reqs []*model.HashRootRequest
	for rows.Next() {
		req := &model.HashRootRequest{}
		if err := rows.Scan(&req.ID, &req.SeedID, &req.HashNameID, &req.RequesterAddress,
			&req.Status, &req.CreatedAt, &req.ResolvedAt, &req.DecisionNote); err != nil {
			return nil, fmt.Errorf("scan hashroot request: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// GetAttachment returns the attachment for a (seed, hashname) pair.
func (r *HashRootRepository) GetAttachment(ctx context.Context, seedID, hashnameID int64) (*model.HashRoot, error) {
	a := &model.HashRoot{}
	err := r.db.QueryRow(ctx,
		`SELECT seed_id, hashname_id, attached_by_address, attached_at
		 FROM seed_hashroots WHERE seed_id = $1 AND hashname_id = $2`,
		seedID, hashnameID,
	).Scan(&a.SeedID, &a.HashNameID, &a.AttachedByAddress, &a.AttachedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("get hashroot attachment: %w", err)
	}
	return a, nil
}

// InsertAttachment records an approved attachment. A duplicate insert for
// the natural key is swallowed by ON CONFLICT DO NOTHING; the caller
// treats it as success.
func (r *HashRootRepository) InsertAttachment(ctx context.Context, seedID, hashnameID int64, byAddress string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO seed_hashroots (seed_id, hashname_id, attached_by_address)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (seed_id, hashname_id) DO NOTHING`,
		seedID, hashnameID, byAddress,
	)
	if err != nil {
		return fmt.Errorf("insert hashroot attachment: %w", err)
	}
	return nil
}
