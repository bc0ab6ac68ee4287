package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/guava-nexus/nexus/internal/nexus/model"
	"github.com/guava-nexus/nexus/internal/nexus/repository"
)

// Sentinel errors for hashname claiming.
var (
	ErrHashNameNotFound = errors.New("hashname not found")
	ErrHashNameInactive = errors.New("hashname is not active")
	ErrAlreadyClaimed   = errors.New("hashname already claimed by another wallet")
)

// ClaimOutcome describes how a claim call succeeded.
type ClaimOutcome string

const (
	// OutcomeClaimed means this call performed the unowned→owned transition.
	OutcomeClaimed ClaimOutcome = "claimed"
	// OutcomeAlreadyOwned means the caller already owned the hashname;
	// the call was an idempotent no-op.
	OutcomeAlreadyOwned ClaimOutcome = "already_owned"
)

// hashNameStore is the storage interface required by ClaimService.
// *repository.HashNameRepository satisfies it.
type hashNameStore interface {
	GetByHandle(ctx context.Context, handle string) (*model.HashName, error)
	GetByID(ctx context.Context, id int64) (*model.HashName, error)
	ClaimOwner(ctx context.Context, id int64, owner string) (bool, error)
}

// ClaimService performs the race-safe first-claim-wins transition of a
// hashname from unowned to owned.
type ClaimService struct {
	store   hashNameStore
	logger  *zap.Logger
	timeout time.Duration
}

// NewClaimService creates a ClaimService.
func NewClaimService(store hashNameStore, logger *zap.Logger) *ClaimService {
	return &ClaimService{store: store, logger: logger, timeout: DefaultStoreTimeout}
}

// SetStoreTimeout overrides the per-call store deadline.
func (s *ClaimService) SetStoreTimeout(d time.Duration) { s.timeout = d }

// CanonicalHandle normalizes a hashname handle: trimmed, #-prefixed,
// lower-cased. The canonical form is the unique key.
func CanonicalHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	if handle != "" && !strings.HasPrefix(handle, "#") {
		handle = "#" + handle
	}
	return strings.ToLower(handle)
}

// Lookup returns a hashname by handle (canonicalized first).
func (s *ClaimService) Lookup(ctx context.Context, handle string) (*model.HashName, error) {
	sctx, cancel := storeCtx(ctx, s.timeout)
	defer cancel()

	hn, err := s.store.GetByHandle(sctx, CanonicalHandle(handle))
	if err != nil {
		if errors.Is(err, repository.ErrHashNameNotFound) {
			return nil, ErrHashNameNotFound
		}
		return nil, classify(fmt.Errorf("load hashname: %w", err))
	}
	return hn, nil
}

// ClaimResult is the successful outcome of a claim call.
type ClaimResult struct {
	Outcome  ClaimOutcome `json:"outcome"`
	HashName *model.HashName
}

// Claim assigns the hashname to verifiedAddress if it is unowned. The
// write is a conditional update, so of two concurrent claimants exactly
// one wins; the loser re-reads and either discovers its own address (a
// retry racing itself, treated as success) or reports the conflict.
// Claiming a hashname the caller already owns is an idempotent no-op.
func (s *ClaimService) Claim(ctx context.Context, handle, verifiedAddress string) (*ClaimResult, error) {
	canonical := CanonicalHandle(handle)
	if canonical == "" {
		return nil, ErrHashNameNotFound
	}

	sctx, cancel := storeCtx(ctx, s.timeout)
	defer cancel()

	hn, err := s.store.GetByHandle(sctx, canonical)
	if err != nil {
		if errors.Is(err, repository.ErrHashNameNotFound) {
			return nil, ErrHashNameNotFound
		}
		return nil, classify(fmt.Errorf("load hashname: %w", err))
	}
	if !hn.IsActive {
		return nil, ErrHashNameInactive
	}

	switch {
	case hn.OwnerAddress == nil:
		won, err := s.store.ClaimOwner(sctx, hn.ID, verifiedAddress)
		if err != nil {
			return nil, classify(fmt.Errorf("claim hashname: %w", err))
		}
		if won {
			hn.OwnerAddress = &verifiedAddress
			s.logger.Info("hashname claimed",
				zap.String("handle", canonical),
				zap.String("owner", verifiedAddress),
			)
			return &ClaimResult{Outcome: OutcomeClaimed, HashName: hn}, nil
		}

		// Lost the race. Re-read: our own concurrent retry winning is
		// still a success, anyone else is a conflict.
		current, err := s.store.GetByID(sctx, hn.ID)
		if err != nil {
			return nil, classify(fmt.Errorf("re-read hashname after claim race: %w", err))
		}
		if current.OwnedBy(verifiedAddress) {
			return &ClaimResult{Outcome: OutcomeAlreadyOwned, HashName: current}, nil
		}
		return nil, ErrAlreadyClaimed

	case hn.OwnedBy(verifiedAddress):
		return &ClaimResult{Outcome: OutcomeAlreadyOwned, HashName: hn}, nil

	default:
		return nil, ErrAlreadyClaimed
	}
}
