// Package health tracks readiness of the server's backing store. The
// checker pings the database on an interval and flips between healthy and
// degraded using a consecutive-failure threshold, so a single dropped ping
// does not flap the health endpoint.
package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pinger is the probe side of the checker, satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// Checker runs periodic database pings and exposes the current status.
type Checker struct {
	pinger Pinger
	cfg    Config
	logger *zap.Logger

	mu        sync.RWMutex
	failCount int
	degraded  bool
}

// New creates a Checker. Zero config fields get defaults.
func New(pinger Pinger, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 15 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Checker{pinger: pinger, cfg: cfg, logger: logger}
}

// Start runs the check loop until ctx is cancelled.
func (c *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Check runs one probe and updates the status. Degradation requires
// FailThreshold consecutive failures; a single success recovers.
func (c *Checker) Check(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	err := c.pinger.Ping(pctx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		if c.degraded {
			c.logger.Info("database recovered", zap.Int("fail_count", c.failCount))
		}
		c.failCount = 0
		c.degraded = false
		return
	}

	c.failCount++
	if !c.degraded && c.failCount >= c.cfg.FailThreshold {
		c.degraded = true
		c.logger.Warn("database degraded",
			zap.Int("fail_count", c.failCount),
			zap.Error(err),
		)
	} else if !c.degraded {
		c.logger.Debug("database ping failed",
			zap.Int("fail_count", c.failCount),
			zap.Error(err),
		)
	}
}

// Healthy reports whether the store is currently considered reachable.
func (c *Checker) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.degraded
}

// Status returns "ok" or "degraded" for the health endpoint.
func (c *Checker) Status() string {
	if c.Healthy() {
		return "ok"
	}
	return "degraded"
}
