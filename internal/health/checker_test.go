package health_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/guava-nexus/nexus/internal/health"
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(context.Context) error { return p.err }

func TestChecker_degradesAtThreshold(t *testing.T) {
	pinger := &stubPinger{err: errors.New("connection refused")}
	checker := health.New(pinger, health.Config{FailThreshold: 3}, zap.NewNop())

	if !checker.Healthy() {
		t.Fatal("checker should start healthy")
	}

	checker.Check(context.Background())
	checker.Check(context.Background())
	if !checker.Healthy() {
		t.Error("degraded before reaching the failure threshold")
	}

	checker.Check(context.Background())
	if checker.Healthy() {
		t.Error("still healthy after three consecutive failures")
	}
	if checker.Status() != "degraded" {
		t.Errorf("status = %s, want degraded", checker.Status())
	}
}

func TestChecker_singleSuccessRecovers(t *testing.T) {
	pinger := &stubPinger{err: errors.New("connection refused")}
	checker := health.New(pinger, health.Config{FailThreshold: 1}, zap.NewNop())

	checker.Check(context.Background())
	if checker.Healthy() {
		t.Fatal("want degraded after failure with threshold 1")
	}

	pinger.err = nil
	checker.Check(context.Background())
	if !checker.Healthy() {
		t.Error("one successful ping should recover the checker")
	}
	if checker.Status() != "ok" {
		t.Errorf("status = %s, want ok", checker.Status())
	}
}

func TestChecker_intermittentFailuresDoNotFlap(t *testing.T) {
	pinger := &stubPinger{}
	checker := health.New(pinger, health.Config{FailThreshold: 3}, zap.NewNop())

	// fail, fail, ok, fail, fail: never three in a row.
	for _, err := range []error{
		errors.New("timeout"), errors.New("timeout"), nil,
		errors.New("timeout"), errors.New("timeout"),
	} {
		pinger.err = err
		checker.Check(context.Background())
	}

	if !checker.Healthy() {
		t.Error("intermittent failures below the threshold degraded the checker")
	}
}
