package orchestrator

import (
	"context"
	"sync"
	"time"
)

// StartMonitoring launches the background probe loop. A cycle still running
// when the next tick fires is skipped, not queued, so at most one cycle is
// in flight. Calling it again while running is a no-op.
func (o *Orchestrator) StartMonitoring(ctx context.Context) {
	o.monitorMu.Lock()
	defer o.monitorMu.Unlock()
	if o.monitorCancel != nil {
		return
	}
	mctx, cancel := context.WithCancel(ctx)
	o.monitorCancel = cancel

	interval := o.Config().HealthCheck.Interval
	go o.monitorLoop(mctx, interval)
	o.logger.Info("health monitoring started", "interval", interval)
}

// StopMonitoring stops the probe loop. Safe to call when not running.
func (o *Orchestrator) StopMonitoring() {
	o.monitorMu.Lock()
	defer o.monitorMu.Unlock()
	if o.monitorCancel != nil {
		o.monitorCancel()
		o.monitorCancel = nil
	}
}

func (o *Orchestrator) monitorLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !o.probeBusy.CompareAndSwap(false, true) {
				continue
			}
			o.probeCycle(ctx, false)
			o.probeBusy.Store(false)
		}
	}
}

// probeCycle probes the registered engines concurrently. Unhealthy engines
// are probed at the slower recovery cadence unless force is set.
func (o *Orchestrator) probeCycle(ctx context.Context, force bool) {
	cfg := o.Config()
	records := o.snapshotRecords()

	var wg sync.WaitGroup
	for _, rec := range records {
		health := rec.healthSnapshot()
		if !force && !health.IsHealthy &&
			time.Since(health.LastCheck) < cfg.HealthCheck.RecoveryInterval {
			continue
		}
		wg.Add(1)
		go func(rec *engineRecord) {
			defer wg.Done()
			o.probeOnce(ctx, rec, cfg)
		}(rec)
	}
	wg.Wait()
}

// probeOnce runs one availability check bounded by the health-check
// timeout. A probe that does not finish in time counts as a failure. Probe
// outcomes never propagate to callers; they only steer future selection.
func (o *Orchestrator) probeOnce(ctx context.Context, rec *engineRecord, cfg Config) {
	pctx, cancel := context.WithTimeout(ctx, cfg.HealthCheck.Timeout)
	defer cancel()

	start := time.Now()
	ch := make(chan error, 1)
	go func() {
		ch <- rec.engine.IsAvailable(pctx)
	}()

	var err error
	select {
	case err = <-ch:
	case <-pctx.Done():
		err = pctx.Err()
	}
	elapsed := time.Since(start)

	before, after := rec.recordOutcome(err == nil, elapsed, errString(err),
		cfg.SmoothingWeight, cfg.HealthCheck.FailureThreshold)
	o.logHealthTransition(rec.engine.Name(), before, after)
}

// ForceHealthCheck probes every engine immediately, ignoring the recovery
// cadence. It applies the same update rule as the background monitor.
func (o *Orchestrator) ForceHealthCheck(ctx context.Context) {
	o.probeCycle(ctx, true)
}
