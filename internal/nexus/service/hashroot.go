package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/guava-nexus/nexus/internal/nexus/model"
	"github.com/guava-nexus/nexus/internal/nexus/repository"
)

// Sentinel errors for the hashroot workflow.
var (
	ErrRequestNotFound      = errors.New("hashroot request not found")
	ErrAlreadyResolved      = errors.New("request already resolved")
	ErrNotSeedAuthor        = errors.New("only the seed author can request attachment")
	ErrNotHashNameOwner     = errors.New("only the hashname owner can resolve requests")
	ErrHashNameUnclaimed    = errors.New("hashname must be claimed before resolving requests")
	ErrInvalidResolveAction = errors.New("action must be 'accept' or 'reject'")
)

// ResolveAction selects the terminal state for a pending request.
type ResolveAction string

const (
	ActionAccept ResolveAction = "accept"
	ActionReject ResolveAction = "reject"
)

// hashRootStore is the storage interface required by HashRootService.
// *repository.HashRootRepository satisfies it.
type hashRootStore interface {
	GetRequest(ctx context.Context, id int64) (*model.HashRootRequest, error)
	GetPendingRequest(ctx context.Context, seedID, hashnameID int64) (*model.HashRootRequest, error)
	InsertRequest(ctx context.Context, seedID, hashnameID int64, requester string) (*model.HashRootRequest, error)
	ResolveRequest(ctx context.Context, id int64, status model.RequestStatus, resolvedAt time.Time, note *string) (bool, error)
	ListRequestsByHashName(ctx context.Context, hashnameID int64) ([]*model.HashRootRequest, error)
	GetAttachment(ctx context.Context, seedID, hashnameID int64) (*model.HashRoot, error)
	InsertAttachment(ctx context.Context, seedID, hashnameID int64, byAddress string) error
}

// seedLookup is the seed side of the workflow, satisfied by
// *repository.SeedRepository.
type seedLookup interface {
	GetByID(ctx context.Context, id int64) (*model.Seed, error)
}

// HashRootService runs the attachment state machine for a
// (seed, hashname) pair: none → pending → accepted or rejected.
type HashRootService struct {
	store     hashRootStore
	hashnames hashNameStore
	seeds     seedLookup
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewHashRootService creates a HashRootService.
func NewHashRootService(store hashRootStore, hashnames hashNameStore, seeds seedLookup, logger *zap.Logger) *HashRootService {
	return &HashRootService{
		store:     store,
		hashnames: hashnames,
		seeds:     seeds,
		logger:    logger,
		timeout:   DefaultStoreTimeout,
		now:       time.Now,
	}
}

// SetStoreTimeout overrides the per-call store deadline.
func (s *HashRootService) SetStoreTimeout(d time.Duration) { s.timeout = d }

// SetClock overrides the service's time source. Test hook.
func (s *HashRootService) SetClock(now func() time.Time) { s.now = now }

// RequestResult is the successful outcome of a Request call.
type RequestResult struct {
	// AlreadyAttached is true when the pair already has an approved
	// attachment; Request is nil in that case and no new row was created.
	AlreadyAttached bool
	Request         *model.HashRootRequest
	Handle          string
}

// Request opens (or returns the existing) pending attachment request for a
// seed and a hashname handle. The caller must be the seed's author of
// record. The call is idempotent: an approved pair reports AlreadyAttached
// without inserting, an existing pending request is returned unchanged,
// and only a fully new pair gets a row. A rejected history never blocks.
func (s *HashRootService) Request(ctx context.Context, seedID int64, handle, verifiedAddress string) (*RequestResult, error) {
	canonical := CanonicalHandle(handle)
	if canonical == "" {
		return nil, ErrHashNameNotFound
	}

	sctx, cancel := storeCtx(ctx, s.timeout)
	defer cancel()

	hn, err := s.hashnames.GetByHandle(sctx, canonical)
	if err != nil {
		if errors.Is(err, repository.ErrHashNameNotFound) {
			return nil, ErrHashNameNotFound
		}
		return nil, classify(fmt.Errorf("load hashname: %w", err))
	}
	if !hn.IsActive {
		return nil, ErrHashNameInactive
	}

	seed, err := s.seeds.GetByID(sctx, seedID)
	if err != nil {
		if errors.Is(err, repository.ErrSeedNotFound) {
			return nil, ErrSeedNotFound
		}
		return nil, classify(fmt.Errorf("load seed: %w", err))
	}
	if !seed.AuthoredBy(verifiedAddress) {
		return nil, ErrNotSeedAuthor
	}

	if _, err := s.store.GetAttachment(sctx, seedID, hn.ID); err == nil {
		return &RequestResult{AlreadyAttached: true, Handle: canonical}, nil
	} else if !errors.Is(err, repository.ErrAttachmentNotFound) {
		return nil, classify(fmt.Errorf("check attachment: %w", err))
	}

	if existing, err := s.store.GetPendingRequest(sctx, seedID, hn.ID); err == nil {
		return &RequestResult{Request: existing, Handle: canonical}, nil
	} else if !errors.Is(err, repository.ErrRequestNotFound) {
		return nil, classify(fmt.Errorf("check pending request: %w", err))
	}

	req, err := s.store.InsertRequest(sctx, seedID, hn.ID, verifiedAddress)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			// Lost an insert race for the same pair. Adopt the winner's
			// row, same as finding it in the pre-check.
			existing, rerr := s.store.GetPendingRequest(sctx, seedID, hn.ID)
			if rerr != nil {
				return nil, classify(fmt.Errorf("re-read pending request after insert race: %w", rerr))
			}
			return &RequestResult{Request: existing, Handle: canonical}, nil
		}
		return nil, classify(fmt.Errorf("insert request: %w", err))
	}

	s.logger.Info("hashroot requested",
		zap.Int64("request_id", req.ID),
		zap.Int64("seed_id", seedID),
		zap.String("handle", canonical),
		zap.String("requester", verifiedAddress),
	)
	return &RequestResult{Request: req, Handle: canonical}, nil
}

// ResolveResult is the successful outcome of a Resolve call.
type ResolveResult struct {
	Status model.RequestStatus `json:"status"`
	SeedID int64               `json:"seed_id"`
	Handle string              `json:"hashname_handle"`
}

// Resolve terminates a pending request. Only the owner of the request's
// hashname may resolve; an unclaimed hashname cannot resolve anything.
// Accept inserts the attachment (idempotently) before flipping the request
// status; the flip itself is conditional on the row still being pending,
// so a second racing resolution observes ErrAlreadyResolved instead of
// double-applying.
func (s *HashRootService) Resolve(ctx context.Context, requestID int64, action ResolveAction, verifiedAddress string, note *string) (*ResolveResult, error) {
	if action != ActionAccept && action != ActionReject {
		return nil, ErrInvalidResolveAction
	}

	sctx, cancel := storeCtx(ctx, s.timeout)
	defer cancel()

	req, err := s.store.GetRequest(sctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, classify(fmt.Errorf("load request: %w", err))
	}
	if req.Status != model.StatusPending {
		return nil, ErrAlreadyResolved
	}

	hn, err := s.hashnames.GetByID(sctx, req.HashNameID)
	if err != nil {
		return nil, classify(fmt.Errorf("load hashname: %w", err))
	}
	if hn.OwnerAddress == nil {
		return nil, ErrHashNameUnclaimed
	}
	if !hn.OwnedBy(verifiedAddress) {
		return nil, ErrNotHashNameOwner
	}

	status := model.StatusRejected
	if action == ActionAccept {
		status = model.StatusAccepted
		if err := s.store.InsertAttachment(sctx, req.SeedID, req.HashNameID, verifiedAddress); err != nil {
			return nil, classify(fmt.Errorf("insert attachment: %w", err))
		}
	}

	flipped, err := s.store.ResolveRequest(sctx, requestID, status, s.now(), note)
	if err != nil {
		return nil, classify(fmt.Errorf("resolve request: %w", err))
	}
	if !flipped {
		return nil, ErrAlreadyResolved
	}

	s.logger.Info("hashroot request resolved",
		zap.Int64("request_id", requestID),
		zap.String("status", string(status)),
		zap.String("resolver", verifiedAddress),
	)
	return &ResolveResult{Status: status, SeedID: req.SeedID, Handle: hn.Handle}, nil
}

// ListRequests returns all requests against a hashname handle, newest
// first.
func (s *HashRootService) ListRequests(ctx context.Context, handle string) ([]*model.HashRootRequest, error) {
	canonical := CanonicalHandle(handle)

	sctx, cancel := storeCtx(ctx, s.timeout)
	defer cancel()

	hn, err := s.hashnames.GetByHandle(sctx, canonical)
	if err != nil {
		if errors.Is(err, repository.ErrHashNameNotFound) {
			return nil, ErrHashNameNotFound
		}
		return nil, classify(fmt.Errorf("load hashname: %w", err))
	}

	reqs, err := s.store.ListRequestsByHashName(sctx, hn.ID)
	if err != nil {
		return nil, classify(fmt.Errorf("list requests: %w", err))
	}
	return reqs, nil
}
