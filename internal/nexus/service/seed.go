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

// Sentinel errors for the seed surface.
var (
	ErrSeedNotFound   = errors.New("seed not found")
	ErrEmptyContent   = errors.New("content is required")
	ErrNotSeedUpdater = errors.New("only the seed author can update it")
)

// seedStore is the storage interface required by SeedService.
// *repository.SeedRepository satisfies it.
type seedStore interface {
	GetByID(ctx context.Context, id int64) (*model.Seed, error)
	Create(ctx context.Context, content string, authorAddress *string) (*model.Seed, error)
	UpdateContent(ctx context.Context, id int64, content string) (*model.Seed, error)
	ListVersions(ctx context.Context, id int64) ([]*model.SeedVersion, error)
}

// SeedService manages seed content and its version history. Updates are
// gated on the author of record; the signature check itself happens in the
// auth gate before this service is reached.
type SeedService struct {
	store   seedStore
	logger  *zap.Logger
	timeout time.Duration
}

// NewSeedService creates a SeedService.
func NewSeedService(store seedStore, logger *zap.Logger) *SeedService {
	return &SeedService{store: store, logger: logger, timeout: DefaultStoreTimeout}
}

// SetStoreTimeout overrides the per-call store deadline.
func (s *SeedService) SetStoreTimeout(d time.Duration) { s.timeout = d }

// Create inserts a new seed at version 1. authorAddress may be nil for an
// unattributed seed, which can never be updated or attached.
func (s *SeedService) Create(ctx context.Context, content string, authorAddress *string) (*model.Seed, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}

	sctx, cancel := storeCtx(ctx, s.timeout)
	defer cancel()

	seed, err := s.store.Create(sctx, content, authorAddress)
	if err != nil {
		return nil, classify(fmt.Errorf("create seed: %w", err))
	}

	s.logger.Info("seed created", zap.Int64("seed_id", seed.ID))
	return seed, nil
}

// Get returns a seed by id.
func (s *SeedService) Get(ctx context.Context, id int64) (*model.Seed, error) {
	sctx, cancel := storeCtx(ctx, s.timeout)
	defer cancel()

	seed, err := s.store.GetByID(sctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSeedNotFound) {
			return nil, ErrSeedNotFound
		}
		return nil, classify(fmt.Errorf("get seed: %w", err))
	}
	return seed, nil
}

// Update replaces the seed's content with a new version. The caller must
// be the seed's author of record.
func (s *SeedService) Update(ctx context.Context, id int64, verifiedAddress, content string) (*model.Seed, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}

	sctx, cancel := storeCtx(ctx, s.timeout)
	defer cancel()

	seed, err := s.store.GetByID(sctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSeedNotFound) {
			return nil, ErrSeedNotFound
		}
		return nil, classify(fmt.Errorf("get seed: %w", err))
	}
	if !seed.AuthoredBy(verifiedAddress) {
		return nil, ErrNotSeedUpdater
	}

	updated, err := s.store.UpdateContent(sctx, id, content)
	if err != nil {
		if errors.Is(err, repository.ErrSeedNotFound) {
			return nil, ErrSeedNotFound
		}
		return nil, classify(fmt.Errorf("update seed: %w", err))
	}

	s.logger.Info("seed updated",
		zap.Int64("seed_id", id),
		zap.Int("version", updated.LatestVersion),
	)
	return updated, nil
}

// Versions returns the seed's revision history, newest first.
func (s *SeedService) Versions(ctx context.Context, id int64) ([]*model.SeedVersion, error) {
	sctx, cancel := storeCtx(ctx, s.timeout)
	defer cancel()

	versions, err := s.store.ListVersions(sctx, id)
	if err != nil {
		return nil, classify(fmt.Errorf("list seed versions: %w", err))
	}
	return versions, nil
}
