// Package orchestrator dispatches translation requests across pluggable
// backend engines. It keeps a rolling health record per engine, selects
// candidates under a configurable strategy, runs them sequentially with
// fallback or in a parallel race, scores the successful results and folds
// every outcome back into the health and usage tables that steer the next
// selection.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/engine"
)

// Orchestrator is safe for concurrent use. The per-engine health and usage
// tables are the only shared mutable state; everything else is request-local.
type Orchestrator struct {
	logger *slog.Logger

	cfgMu sync.RWMutex
	cfg   Config

	mu      sync.RWMutex
	records map[string]*engineRecord
	order   []string
	caps    engine.Capabilities

	// agg aggregates outcomes across all engines for the orchestrator
	// itself, one Record per Translate call.
	agg engine.Stats

	monitorMu     sync.Mutex
	monitorCancel context.CancelFunc
	probeBusy     atomic.Bool
}

func New(cfg Config, logger *slog.Logger) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		logger:  logger,
		cfg:     cfg,
		records: make(map[string]*engineRecord),
	}, nil
}

// Config returns a copy of the active configuration.
func (o *Orchestrator) Config() Config {
	o.cfgMu.RLock()
	defer o.cfgMu.RUnlock()
	cfg := o.cfg
	if cfg.EnginePriorities != nil {
		prios := make(map[string]int, len(cfg.EnginePriorities))
		for k, v := range cfg.EnginePriorities {
			prios[k] = v
		}
		cfg.EnginePriorities = prios
	}
	return cfg
}

// SetConfig swaps the configuration after validating it. In-flight requests
// finish under the snapshot they started with.
func (o *Orchestrator) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfgMu.Lock()
	o.cfg = cfg
	o.cfgMu.Unlock()
	o.logger.Info("orchestrator config updated", "strategy", cfg.Strategy, "fallback", cfg.EnableFallback)
	return nil
}

// Register adds an engine, seeding its health as healthy with a prior
// success rate and empty usage metrics.
func (o *Orchestrator) Register(e engine.Engine) error {
	name := e.Name()
	if name == "" {
		return &Error{Code: ErrCodeInvalidConfig, Message: "engine name must not be empty"}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.records[name]; exists {
		return &Error{Code: ErrCodeDuplicateEngine, Engine: name, Message: "engine already registered"}
	}
	o.records[name] = newEngineRecord(e)
	o.order = append(o.order, name)
	o.caps = o.aggregateLocked()

	o.logger.Info("engine registered",
		"engine", name, "version", e.Version(), "priority", e.Priority())
	return nil
}

// Unregister removes an engine from selection. The engine itself is not
// disposed; the caller still owns it.
func (o *Orchestrator) Unregister(name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.records[name]; !exists {
		return &Error{Code: ErrCodeUnknownEngine, Engine: name, Message: "engine not registered"}
	}
	delete(o.records, name)
	for i, n := range o.order {
		if n == name {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	o.caps = o.aggregateLocked()
	o.logger.Info("engine unregistered", "engine", name)
	return nil
}

// Engines returns the registered engine names in registration order.
func (o *Orchestrator) Engines() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// Capabilities returns the orchestrator's aggregate capability set: the
// union of member languages, the maximum complexity and CPU intensity, the
// summed memory requirement, and requires-network ORed across members.
func (o *Orchestrator) Capabilities() engine.Capabilities {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.caps
}

func (o *Orchestrator) aggregateLocked() engine.Capabilities {
	var agg engine.Capabilities
	seenSource := make(map[dialect.Language]bool)
	seenTarget := make(map[dialect.Language]bool)

	for _, name := range o.order {
		caps := o.records[name].engine.Capabilities()
		for _, l := range caps.SourceLanguages {
			if !seenSource[l] {
				seenSource[l] = true
				agg.SourceLanguages = append(agg.SourceLanguages, l)
			}
		}
		for _, l := range caps.TargetLanguages {
			if !seenTarget[l] {
				seenTarget[l] = true
				agg.TargetLanguages = append(agg.TargetLanguages, l)
			}
		}
		if caps.MaxComplexity > agg.MaxComplexity {
			agg.MaxComplexity = caps.MaxComplexity
		}
		if caps.CPUIntensity > agg.CPUIntensity {
			agg.CPUIntensity = caps.CPUIntensity
		}
		agg.MemoryRequirementMB += caps.MemoryRequirementMB
		agg.RequiresNetwork = agg.RequiresNetwork || caps.RequiresNetwork
		agg.BatchSupport = agg.BatchSupport || caps.BatchSupport
	}
	return agg
}

// IsAvailable reports whether at least one registered engine is currently
// healthy. It is a pure read of the health table.
func (o *Orchestrator) IsAvailable() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, rec := range o.records {
		if rec.healthSnapshot().IsHealthy {
			return true
		}
	}
	return false
}

// HealthSnapshot returns a copy of every engine's health record.
func (o *Orchestrator) HealthSnapshot() map[string]Health {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]Health, len(o.records))
	for name, rec := range o.records {
		out[name] = rec.healthSnapshot()
	}
	return out
}

// EngineMetrics returns the orchestrator-side usage counters per engine.
// Engines additionally keep their own internal metrics.
func (o *Orchestrator) EngineMetrics() map[string]engine.Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]engine.Metrics, len(o.records))
	for name, rec := range o.records {
		out[name] = rec.metricsSnapshot()
	}
	return out
}

// AggregateMetrics returns the orchestrator's own counters, one observation
// per Translate call.
func (o *Orchestrator) AggregateMetrics() engine.Metrics {
	return o.agg.Snapshot()
}

// Translate runs the full pipeline for one request: select candidates, run
// attempts under the configured strategy, score the outcomes and return the
// winner enriched with orchestration metadata.
func (o *Orchestrator) Translate(ctx context.Context, req engine.Request) (*engine.Result, error) {
	cfg := o.Config()
	start := time.Now()
	if req.Unit.ID == "" {
		req.Unit.ID = uuid.NewString()
	}

	sel := o.selectCandidates(ctx, req, cfg)
	if len(sel.Candidates) == 0 {
		o.agg.Record(false, 0, time.Since(start), 0)
		if sel.budgetExcluded > 0 {
			return nil, &Error{
				Code:    ErrCodeInvalidConfig,
				Message: "cost ceiling excludes every eligible engine",
			}
		}
		return nil, &Error{Code: ErrCodeNoEngines, Message: sel.Reasoning}
	}
	o.logger.Debug("engines selected",
		"unit", req.Unit.ID, "strategy", cfg.Strategy,
		"candidates", sel.CandidateNames(), "reasoning", sel.Reasoning)

	var attempts []Attempt
	if cfg.Strategy == StrategyBestResult {
		attempts = o.runParallel(ctx, req, sel, cfg)
	} else {
		attempts = o.runSequential(ctx, req, sel, cfg)
	}

	result, err := o.pickWinner(attempts, sel, cfg)
	if err != nil {
		o.agg.Record(false, 0, time.Since(start), totalCost(attempts))
		return nil, err
	}

	o.agg.Record(true, result.Confidence, time.Since(start), totalCost(attempts))
	o.logger.Info("translation complete",
		"unit", req.Unit.ID, "engine", result.Metadata.Engine,
		"attempts", len(attempts), "confidence", result.Confidence)
	return result, nil
}

// Select produces the candidate plan for a request without running any
// attempt. Exposed for dry-run inspection.
func (o *Orchestrator) Select(ctx context.Context, req engine.Request) Selection {
	return o.selectCandidates(ctx, req, o.Config())
}

// Dispose stops monitoring, disposes every engine and clears the registry.
func (o *Orchestrator) Dispose() error {
	o.StopMonitoring()

	o.mu.Lock()
	defer o.mu.Unlock()
	var firstErr error
	for _, name := range o.order {
		if err := o.records[name].engine.Dispose(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	o.records = make(map[string]*engineRecord)
	o.order = nil
	o.caps = engine.Capabilities{}
	return firstErr
}

func totalCost(attempts []Attempt) float64 {
	sum := 0.0
	for _, att := range attempts {
		sum += att.Cost
	}
	return sum
}

// snapshotRecords returns the records in registration order.
func (o *Orchestrator) snapshotRecords() []*engineRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*engineRecord, 0, len(o.order))
	for _, name := range o.order {
		out = append(out, o.records[name])
	}
	return out
}

func (o *Orchestrator) record(name string) (*engineRecord, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	rec, ok := o.records[name]
	return rec, ok
}
