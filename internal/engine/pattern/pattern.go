// Package pattern implements the learned-pattern translation engine. It
// retrieves the stored translation most similar to the requested unit from
// the sqlite pattern corpus and reuses its target code. The engine only
// reads the corpus; training and persistence happen elsewhere.
package pattern

import (
	"context"
	"fmt"
	"time"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/engine"
	"github.com/valpere/perekod/internal/quality"
	"github.com/valpere/perekod/internal/store"
)

const (
	engineName    = "pattern"
	engineVersion = "0.8.0"

	maxComplexity = 6

	// defaultMinSimilarity is the floor below which a corpus hit is not
	// trustworthy enough to reuse.
	defaultMinSimilarity = 0.72
)

// Engine is the learned-pattern engine. Safe for concurrent use.
type Engine struct {
	priority int
	store    *store.Store
	minSim   float64
	stats    *engine.Stats
}

func New(st *store.Store, priority int) *Engine {
	return &Engine{
		priority: priority,
		store:    st,
		minSim:   defaultMinSimilarity,
		stats:    &engine.Stats{},
	}
}

func (e *Engine) Name() string    { return engineName }
func (e *Engine) Version() string { return engineVersion }
func (e *Engine) Priority() int   { return e.priority }

func (e *Engine) Capabilities() engine.Capabilities {
	langs := dialect.KnownLanguages()
	return engine.Capabilities{
		SourceLanguages:     langs,
		TargetLanguages:     langs,
		MaxComplexity:       maxComplexity,
		BatchSupport:        true,
		RequiresNetwork:     false,
		MemoryRequirementMB: 64,
		CPUIntensity:        3,
	}
}

// Initialize recognizes the min_similarity setting.
func (e *Engine) Initialize(_ context.Context, settings map[string]any) error {
	if v, ok := settings["min_similarity"]; ok {
		sim, ok := v.(float64)
		if !ok || sim <= 0 || sim > 1 {
			return fmt.Errorf("min_similarity must be a float in (0,1], got %v", v)
		}
		e.minSim = sim
	}
	return nil
}

func (e *Engine) IsAvailable(ctx context.Context) error {
	if e.store == nil {
		return fmt.Errorf("pattern engine has no corpus store")
	}
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("pattern corpus unreachable: %w", err)
	}
	return nil
}

func (e *Engine) CanHandle(ctx context.Context, req engine.Request) (bool, error) {
	if req.Unit.Complexity > maxComplexity {
		return false, nil
	}
	n, err := e.store.CountPatterns(ctx, string(req.Unit.Language), string(req.TargetLang))
	if err != nil {
		return false, fmt.Errorf("count patterns: %w", err)
	}
	return n > 0, nil
}

func (e *Engine) Confidence(ctx context.Context, req engine.Request) float64 {
	match, ok, err := e.store.FuzzyBestPattern(ctx,
		req.Unit.Code, string(req.Unit.Language), string(req.TargetLang), e.minSim)
	if err != nil || !ok {
		return 0.15
	}
	return match.Confidence * match.Similarity
}

// EstimateCost is zero: the corpus is local.
func (e *Engine) EstimateCost(engine.Request) float64 { return 0 }

func (e *Engine) EstimateTime(req engine.Request) time.Duration {
	return time.Duration(10+3*req.Unit.Complexity) * time.Millisecond
}

func (e *Engine) Translate(ctx context.Context, req engine.Request) (*engine.Result, error) {
	start := time.Now()

	match, ok, err := e.store.FuzzyBestPattern(ctx,
		req.Unit.Code, string(req.Unit.Language), string(req.TargetLang), e.minSim)
	if err != nil {
		e.stats.Record(false, 0, time.Since(start), 0)
		e.stats.RecordError("store")
		return nil, fmt.Errorf("pattern lookup: %w", err)
	}
	if !ok {
		e.stats.Record(false, 0, time.Since(start), 0)
		e.stats.RecordError("no_pattern")
		e.stats.RecordCache(false)
		return nil, fmt.Errorf("no stored pattern above similarity %.2f", e.minSim)
	}
	e.stats.RecordCache(true)

	targetCode := engine.ApplyLexicon(match.TargetCode, req.Lexicon)
	confidence := match.Confidence * match.Similarity

	result := &engine.Result{
		TargetCode: targetCode,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("reused stored pattern at %.0f%% similarity", match.Similarity*100),
		Quality:    quality.Assess(req.Unit.Code, req.Unit.Language, targetCode, req.TargetLang),
		Metadata: engine.ResultMetadata{
			Engine:         engineName,
			EngineVersion:  engineVersion,
			Timestamp:      start,
			ProcessingTime: time.Since(start),
			Cost:           0,
			CacheHits:      1,
		},
	}
	if match.Similarity < 0.85 {
		result.Warnings = append(result.Warnings,
			"pattern reuse is approximate; review identifier bindings")
	}

	e.stats.Record(true, confidence, time.Since(start), 0)
	return result, nil
}

func (e *Engine) Metrics() engine.Metrics { return e.stats.Snapshot() }

func (e *Engine) Dispose() error { return nil }
