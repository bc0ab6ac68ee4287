package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/guava-nexus/nexus/internal/auth"
)

// stubNonces records consumption attempts and returns a scripted error.
type stubNonces struct {
	mu       sync.Mutex
	consumed []string
	err      error
}

func (s *stubNonces) Consume(_ context.Context, address, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumed = append(s.consumed, address+"/"+nonce)
	return s.err
}

func (s *stubNonces) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.consumed)
}

func newGate(nonces *stubNonces, now time.Time) *auth.Gate {
	g := auth.NewGate(nonces, zap.NewNop())
	g.SetClock(func() time.Time { return now })
	return g
}

func TestAuthorize_success(t *testing.T) {
	priv, address := testWallet(t)
	nonces := &stubNonces{}
	now := time.Now()
	g := newGate(nonces, now)

	req := auth.Request{
		Address:   address,
		Nonce:     "abc",
		Timestamp: now.Add(-time.Minute).UnixMilli(),
		Action:    "claim_hashname",
	}
	req.Signature = signPersonal(priv, auth.Challenge{
		Address:   address,
		Action:    req.Action,
		Nonce:     req.Nonce,
		Timestamp: req.Timestamp,
	}.Message())

	verified, err := g.Authorize(context.Background(), req)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if verified != address {
		t.Errorf("verified = %s, want %s", verified, address)
	}
	if nonces.count() != 1 {
		t.Errorf("nonce consumed %d times, want 1", nonces.count())
	}
}

func TestAuthorize_badAddress(t *testing.T) {
	nonces := &stubNonces{}
	g := newGate(nonces, time.Now())

	for _, address := range []string{"", "nope", "0x1234"} {
		_, err := g.Authorize(context.Background(), auth.Request{
			Address:   address,
			Timestamp: time.Now().UnixMilli(),
		})
		if !errors.Is(err, auth.ErrBadAddress) {
			t.Errorf("address %q: err = %v, want ErrBadAddress", address, err)
		}
	}
	if nonces.count() != 0 {
		t.Error("nonce consumed despite bad address")
	}
}

func TestAuthorize_staleTimestamp(t *testing.T) {
	_, address := testWallet(t)
	now := time.Now()

	cases := map[string]int64{
		"too old":         now.Add(-11 * time.Minute).UnixMilli(),
		"exactly expired": now.Add(-10 * time.Minute).UnixMilli(),
		"in the future":   now.Add(time.Minute).UnixMilli(),
	}
	for name, ts := range cases {
		nonces := &stubNonces{}
		g := newGate(nonces, now)
		_, err := g.Authorize(context.Background(), auth.Request{
			Address:   address,
			Timestamp: ts,
			Nonce:     "abc",
		})
		if !errors.Is(err, auth.ErrStaleSignature) {
			t.Errorf("%s: err = %v, want ErrStaleSignature", name, err)
		}
		if nonces.count() != 0 {
			t.Errorf("%s: nonce consumed despite stale timestamp", name)
		}
	}
}

func TestAuthorize_nonceFailure(t *testing.T) {
	_, address := testWallet(t)
	now := time.Now()
	nonces := &stubNonces{err: errors.New("no nonce issued for this address")}
	g := newGate(nonces, now)

	_, err := g.Authorize(context.Background(), auth.Request{
		Address:   address,
		Timestamp: now.UnixMilli() - 1000,
		Nonce:     "abc",
	})
	if !errors.Is(err, auth.ErrInvalidNonce) {
		t.Errorf("err = %v, want ErrInvalidNonce", err)
	}
}

func TestAuthorize_badSignatureStillConsumesNonce(t *testing.T) {
	_, address := testWallet(t)
	now := time.Now()
	nonces := &stubNonces{}
	g := newGate(nonces, now)

	_, err := g.Authorize(context.Background(), auth.Request{
		Address:   address,
		Signature: "0xdeadbeef",
		Nonce:     "abc",
		Timestamp: now.UnixMilli() - 1000,
		Action:    "claim_hashname",
	})
	if !errors.Is(err, auth.ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
	if nonces.count() != 1 {
		t.Error("nonce must be consumed even when the signature check fails")
	}
}

func TestAuthorize_normalizesAddress(t *testing.T) {
	priv, address := testWallet(t)
	now := time.Now()
	nonces := &stubNonces{}
	g := newGate(nonces, now)

	ts := now.UnixMilli() - 1000
	// Signature is over the lower-cased address; the request carries it
	// mixed-case.
	sig := signPersonal(priv, auth.Challenge{
		Address:   address,
		Action:    "update_seed",
		Nonce:     "n1",
		Timestamp: ts,
	}.Message())

	mixed := "0x" + flipCase(address[2:])
	verified, err := g.Authorize(context.Background(), auth.Request{
		Address:   mixed,
		Signature: sig,
		Nonce:     "n1",
		Timestamp: ts,
		Action:    "update_seed",
	})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if verified != address {
		t.Errorf("verified = %s, want normalized %s", verified, address)
	}
}

func flipCase(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'a' && r <= 'f' {
			out[i] = r - 32
		}
	}
	return string(out)
}
