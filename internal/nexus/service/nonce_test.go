package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/guava-nexus/nexus/internal/nexus/model"
	"github.com/guava-nexus/nexus/internal/nexus/repository"
	"github.com/guava-nexus/nexus/internal/nexus/service"
)

// ── In-memory stub for the nonce store ─────────────────────────────────────

type stubNonceStore struct {
	mu   sync.Mutex
	rows map[string]*model.Nonce
}

func newStubNonceStore() *stubNonceStore {
	return &stubNonceStore{rows: make(map[string]*model.Nonce)}
}

func (s *stubNonceStore) Upsert(_ context.Context, n *model.Nonce) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.rows[n.Address] = &cp
	return nil
}

func (s *stubNonceStore) Get(_ context.Context, address string) (*model.Nonce, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[address]
	if !ok {
		return nil, repository.ErrNonceNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *stubNonceStore) Delete(_ context.Context, address, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[address]
	if !ok || n.Value != nonce {
		return false, nil
	}
	delete(s.rows, address)
	return true, nil
}

func (s *stubNonceStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := time.Now()
	for addr, nonce := range s.rows {
		if now.After(nonce.ExpiresAt) {
			delete(s.rows, addr)
			n++
		}
	}
	return n, nil
}

const testAddr = "0x00112233445566778899aabbccddeeff00112233"

// nonceStore mirrors the unexported service.nonceStore interface so the
// helper can accept both stubNonceStore and gatedNonceStore.
type nonceStore interface {
	Upsert(ctx context.Context, n *model.Nonce) error
	Get(ctx context.Context, address string) (*model.Nonce, error)
	Delete(ctx context.Context, address, nonce string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

func newNonceSvc(store nonceStore) *service.NonceService {
	return service.NewNonceService(store, zap.NewNop())
}

// ── Tests ──────────────────────────────────────────────────────────────────

func TestIssue_generatesUniqueValues(t *testing.T) {
	store := newStubNonceStore()
	svc := newNonceSvc(store)

	a, err := svc.Issue(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	b, err := svc.Issue(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if len(a.Value) != 64 {
		t.Errorf("nonce length = %d, want 64 hex chars", len(a.Value))
	}
	if a.Value == b.Value {
		t.Error("two issued nonces must differ")
	}
	if !a.ExpiresAt.After(time.Now()) {
		t.Error("nonce must expire in the future")
	}
}

func TestIssue_replacesPriorNonce(t *testing.T) {
	store := newStubNonceStore()
	svc := newNonceSvc(store)

	first, _ := svc.Issue(context.Background(), testAddr)
	second, _ := svc.Issue(context.Background(), testAddr)

	// The overwritten value is now rejected.
	if err := svc.Consume(context.Background(), testAddr, first.Value); !errors.Is(err, service.ErrNonceMismatch) {
		t.Errorf("old nonce: err = %v, want ErrNonceMismatch", err)
	}
	// The replacement still works.
	if err := svc.Consume(context.Background(), testAddr, second.Value); err != nil {
		t.Errorf("new nonce: err = %v, want nil", err)
	}
}

func TestConsume_missing(t *testing.T) {
	svc := newNonceSvc(newStubNonceStore())
	if err := svc.Consume(context.Background(), testAddr, "whatever"); !errors.Is(err, service.ErrNonceMissing) {
		t.Errorf("err = %v, want ErrNonceMissing", err)
	}
}

func TestConsume_mismatchKeepsNonce(t *testing.T) {
	store := newStubNonceStore()
	svc := newNonceSvc(store)

	n, _ := svc.Issue(context.Background(), testAddr)
	if err := svc.Consume(context.Background(), testAddr, "wrong"); !errors.Is(err, service.ErrNonceMismatch) {
		t.Fatalf("err = %v, want ErrNonceMismatch", err)
	}
	// A wrong guess must not burn the real nonce.
	if err := svc.Consume(context.Background(), testAddr, n.Value); err != nil {
		t.Errorf("real nonce rejected after a wrong guess: %v", err)
	}
}

func TestConsume_singleUse(t *testing.T) {
	store := newStubNonceStore()
	svc := newNonceSvc(store)

	n, _ := svc.Issue(context.Background(), testAddr)
	if err := svc.Consume(context.Background(), testAddr, n.Value); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if err := svc.Consume(context.Background(), testAddr, n.Value); !errors.Is(err, service.ErrNonceMissing) {
		t.Errorf("second consume: err = %v, want ErrNonceMissing", err)
	}
}

// gatedNonceStore holds every reader at a barrier until all expected
// reads have happened, forcing the worst-case interleaving where both
// consumers observe the same stored value before either deletes.
type gatedNonceStore struct {
	*stubNonceStore
	reads sync.WaitGroup
}

func (s *gatedNonceStore) Get(ctx context.Context, address string) (*model.Nonce, error) {
	n, err := s.stubNonceStore.Get(ctx, address)
	s.reads.Done()
	s.reads.Wait()
	return n, err
}

func TestConsume_concurrentSingleUse(t *testing.T) {
	store := &gatedNonceStore{stubNonceStore: newStubNonceStore()}
	store.reads.Add(2)
	svc := newNonceSvc(store)

	n, err := svc.Issue(context.Background(), testAddr)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			errs <- svc.Consume(context.Background(), testAddr, n.Value)
		}()
	}

	var ok, missing int
	for i := 0; i < 2; i++ {
		switch err := <-errs; {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrNonceMissing):
			missing++
		default:
			t.Fatalf("unexpected consume error: %v", err)
		}
	}
	if ok != 1 || missing != 1 {
		t.Errorf("got %d successes and %d misses, want exactly one of each", ok, missing)
	}
}

func TestConsume_expiredIsPurged(t *testing.T) {
	store := newStubNonceStore()
	svc := newNonceSvc(store)

	n, _ := svc.Issue(context.Background(), testAddr)

	// Jump the clock past expiry.
	svc.SetClock(func() time.Time { return time.Now().Add(11 * time.Minute) })

	if err := svc.Consume(context.Background(), testAddr, n.Value); !errors.Is(err, service.ErrNonceExpired) {
		t.Fatalf("err = %v, want ErrNonceExpired", err)
	}
	// The expired nonce is deleted, not left around for a retry.
	if err := svc.Consume(context.Background(), testAddr, n.Value); !errors.Is(err, service.ErrNonceMissing) {
		t.Errorf("retry after expiry: err = %v, want ErrNonceMissing", err)
	}
}

func TestPruneExpired(t *testing.T) {
	store := newStubNonceStore()
	svc := newNonceSvc(store)

	store.Upsert(context.Background(), &model.Nonce{
		Address:   testAddr,
		Value:     "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	store.Upsert(context.Background(), &model.Nonce{
		Address:   "0xffffffffffffffffffffffffffffffffffffffff",
		Value:     "fresh",
		ExpiresAt: time.Now().Add(time.Minute),
	})

	n, err := svc.PruneExpired(context.Background())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
}
