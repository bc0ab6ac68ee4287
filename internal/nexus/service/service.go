// Package service contains the authorization-gated state machines of the
// nexus core: nonce issuance and consumption, hashname claiming, hashroot
// request/resolution, and the seed surface they authorize against.
package service

import (
	"context"
	"errors"
	"time"
)

// DefaultStoreTimeout bounds every store call made by a service.
const DefaultStoreTimeout = 10 * time.Second

// ErrStoreTimeout marks a store call that exceeded its deadline. It is a
// transient failure: every mutation in this package is idempotent or
// conditional, so callers may retry unmodified.
var ErrStoreTimeout = errors.New("store operation timed out")

// storeCtx derives a bounded context for one store call.
func storeCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// classify maps context deadline expiry onto ErrStoreTimeout so transport
// layers can distinguish transient store failures from domain errors.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrStoreTimeout
	}
	return err
}
