package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/guava-nexus/nexus/internal/auth"
	"github.com/guava-nexus/nexus/internal/nexus/model"
	"github.com/guava-nexus/nexus/internal/nexus/repository"
)

// Sentinel errors for nonce consumption.
var (
	ErrNonceMissing  = errors.New("no nonce issued for this address")
	ErrNonceMismatch = errors.New("nonce does not match the issued value")
	ErrNonceExpired  = errors.New("nonce has expired")
)

// nonceStore is the storage interface required by NonceService.
// *repository.NonceRepository satisfies it.
type nonceStore interface {
	Upsert(ctx context.Context, n *model.Nonce) error
	Get(ctx context.Context, address string) (*model.Nonce, error)
	Delete(ctx context.Context, address, nonce string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// NonceService issues and consumes single-use auth nonces. One live nonce
// per address; issuing again invalidates the previous one.
type NonceService struct {
	store   nonceStore
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewNonceService creates a NonceService. The store is typically
// *repository.NonceRepository.
func NewNonceService(store nonceStore, logger *zap.Logger) *NonceService {
	return &NonceService{
		store:   store,
		logger:  logger,
		timeout: DefaultStoreTimeout,
		now:     time.Now,
	}
}

// SetStoreTimeout overrides the per-call store deadline.
func (s *NonceService) SetStoreTimeout(d time.Duration) { s.timeout = d }

// SetClock overrides the service's time source. Test hook.
func (s *NonceService) SetClock(now func() time.Time) { s.now = now }

// Issue generates a fresh 256-bit nonce for the address, valid for the
// signature window, replacing any previously issued value.
func (s *NonceService) Issue(ctx context.Context, address string) (*model.Nonce, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	n := &model.Nonce{
		Address:   address,
		Value:     hex.EncodeToString(buf),
		ExpiresAt: s.now().Add(auth.SignatureWindow),
	}

	sctx, cancel := storeCtx(ctx, s.timeout)
	defer cancel()
	if err := s.store.Upsert(sctx, n); err != nil {
		return nil, classify(fmt.Errorf("persist nonce: %w", err))
	}

	s.logger.Debug("nonce issued",
		zap.String("address", address),
		zap.Time("expires_at", n.ExpiresAt),
	)
	return n, nil
}

// Consume validates the presented nonce against the stored one and deletes
// it. The delete is conditional on the stored value, so the store resolves
// concurrent consumers: exactly one wins, the rest see ErrNonceMissing.
// Deletion happens on the success path and on the expired path: an expired
// nonce is purged rather than left around for replay attempts.
func (s *NonceService) Consume(ctx context.Context, address, presented string) error {
	sctx, cancel := storeCtx(ctx, s.timeout)
	defer cancel()

	stored, err := s.store.Get(sctx, address)
	if err != nil {
		if errors.Is(err, repository.ErrNonceNotFound) {
			return ErrNonceMissing
		}
		return classify(fmt.Errorf("load nonce: %w", err))
	}

	if stored.Value != presented {
		return ErrNonceMismatch
	}

	deleted, err := s.store.Delete(sctx, address, presented)
	if err != nil {
		return classify(fmt.Errorf("consume nonce: %w", err))
	}
	if !deleted {
		// Lost to a concurrent consumer, or a reissue replaced the value
		// between the read and the delete. Either way the presented nonce
		// no longer backs anything.
		return ErrNonceMissing
	}

	if s.now().After(stored.ExpiresAt) {
		return ErrNonceExpired
	}
	return nil
}

// PruneExpired removes all expired nonces. Returns the number pruned.
func (s *NonceService) PruneExpired(ctx context.Context) (int64, error) {
	sctx, cancel := storeCtx(ctx, s.timeout)
	defer cancel()

	n, err := s.store.DeleteExpired(sctx)
	if err != nil {
		return 0, classify(fmt.Errorf("prune nonces: %w", err))
	}
	if n > 0 {
		s.logger.Info("pruned expired nonces", zap.Int64("count", n))
	}
	return n, nil
}
