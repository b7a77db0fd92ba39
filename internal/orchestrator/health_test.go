package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestForceHealthCheck_RestoresAfterFailures(t *testing.T) {
	a := newStub("a", 10)
	o := newTestOrchestrator(t, testConfig(), a)

	rec, _ := o.record("a")
	rec.recordOutcome(false, time.Millisecond, "flaky", 0.1, 3)
	rec.recordOutcome(false, time.Millisecond, "flaky", 0.1, 3)

	o.ForceHealthCheck(context.Background())

	h := o.HealthSnapshot()["a"]
	if !h.IsHealthy || h.ConsecutiveFailures != 0 {
		t.Errorf("a successful probe must clear the failure streak: %+v", h)
	}
	if a.probeCalls.Load() != 1 {
		t.Errorf("expected exactly one probe, got %d", a.probeCalls.Load())
	}
}

func TestForceHealthCheck_MarksUnhealthy(t *testing.T) {
	a := newStub("a", 10)
	a.availableFunc = func(ctx context.Context) error {
		return errors.New("connection refused")
	}
	cfg := testConfig()
	cfg.HealthCheck.FailureThreshold = 1
	o := newTestOrchestrator(t, cfg, a)

	o.ForceHealthCheck(context.Background())

	h := o.HealthSnapshot()["a"]
	if h.IsHealthy {
		t.Fatal("a failed probe at threshold 1 must mark the engine unhealthy")
	}
	if h.LastError != "connection refused" {
		t.Errorf("unexpected last error %q", h.LastError)
	}
	if o.IsAvailable() {
		t.Error("no healthy engine means not available")
	}
	if _, err := o.Translate(context.Background(), testRequest()); !IsCode(err, ErrCodeNoEngines) {
		t.Errorf("unhealthy engines must not be selected, got %v", err)
	}
	if a.translateCalls.Load() != 0 {
		t.Error("an unhealthy engine must never be attempted")
	}
}

func TestForceHealthCheck_Idempotent(t *testing.T) {
	a := newStub("a", 10)
	o := newTestOrchestrator(t, testConfig(), a)

	o.ForceHealthCheck(context.Background())
	o.ForceHealthCheck(context.Background())

	h := o.HealthSnapshot()["a"]
	if !h.IsHealthy || h.ConsecutiveFailures != 0 {
		t.Errorf("repeated successful probes must not change health: %+v", h)
	}
	if a.probeCalls.Load() != 2 {
		t.Errorf("expected two probes, got %d", a.probeCalls.Load())
	}
}

func TestProbeOnce_Timeout(t *testing.T) {
	a := newStub("a", 10)
	a.availableFunc = func(ctx context.Context) error {
		time.Sleep(300 * time.Millisecond)
		return nil
	}
	cfg := testConfig()
	cfg.HealthCheck.Timeout = 20 * time.Millisecond
	cfg.HealthCheck.FailureThreshold = 1
	o := newTestOrchestrator(t, cfg, a)

	o.ForceHealthCheck(context.Background())

	h := o.HealthSnapshot()["a"]
	if h.IsHealthy {
		t.Fatal("a probe that overruns its timeout counts as a failure")
	}
	if !strings.Contains(h.LastError, "deadline exceeded") {
		t.Errorf("unexpected last error %q", h.LastError)
	}
}

func TestMonitoring_ProbesPeriodically(t *testing.T) {
	a := newStub("a", 10)
	cfg := testConfig()
	cfg.HealthCheck.Interval = 10 * time.Millisecond
	o := newTestOrchestrator(t, cfg, a)

	o.StartMonitoring(context.Background())
	time.Sleep(80 * time.Millisecond)
	if probes := a.probeCalls.Load(); probes < 2 {
		t.Fatalf("expected at least 2 background probes, got %d", probes)
	}

	o.StopMonitoring()
	settled := a.probeCalls.Load()
	time.Sleep(50 * time.Millisecond)
	// One in-flight cycle may still finish after the stop.
	if probes := a.probeCalls.Load(); probes > settled+1 {
		t.Errorf("probing must stop, got %d probes after %d at stop", probes, settled)
	}
}

func TestMonitoring_StartTwiceIsNoop(t *testing.T) {
	a := newStub("a", 10)
	cfg := testConfig()
	cfg.HealthCheck.Interval = 10 * time.Millisecond
	o := newTestOrchestrator(t, cfg, a)

	o.StartMonitoring(context.Background())
	o.StartMonitoring(context.Background())
	time.Sleep(35 * time.Millisecond)
	o.StopMonitoring()

	o.monitorMu.Lock()
	stopped := o.monitorCancel == nil
	o.monitorMu.Unlock()
	if !stopped {
		t.Error("StopMonitoring must clear the monitor")
	}
}

func TestMonitoring_RecoveryIntervalGatesUnhealthy(t *testing.T) {
	a := newStub("a", 10)
	cfg := testConfig()
	cfg.HealthCheck.Interval = 10 * time.Millisecond
	cfg.HealthCheck.RecoveryInterval = time.Hour
	o := newTestOrchestrator(t, cfg, a)

	rec, _ := o.record("a")
	rec.recordOutcome(false, time.Millisecond, "down", 0.1, 1)
	if o.HealthSnapshot()["a"].IsHealthy {
		t.Fatal("setup: engine should be unhealthy")
	}

	o.StartMonitoring(context.Background())
	time.Sleep(60 * time.Millisecond)
	o.StopMonitoring()

	if probes := a.probeCalls.Load(); probes != 0 {
		t.Errorf("an unhealthy engine inside the recovery interval must not be probed, got %d", probes)
	}

	// A forced check ignores the recovery cadence and can restore health.
	o.ForceHealthCheck(context.Background())
	if h := o.HealthSnapshot()["a"]; !h.IsHealthy {
		t.Errorf("forced probe should have recovered the engine: %+v", h)
	}
}
