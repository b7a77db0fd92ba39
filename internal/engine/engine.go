// Package engine defines the contract every translation backend implements
// and the data types that cross it. The orchestrator only ever sees this
// interface; backend specifics stay behind it.
package engine

import (
	"context"
	"time"
)

// Engine is a pluggable translation backend.
//
// Name, Version, Priority and Capabilities must be cheap and stable for the
// lifetime of the engine. Everything that can block takes a context and
// honors its cancellation.
type Engine interface {
	// Name returns the unique registry name of the engine.
	Name() string

	// Version identifies the engine build or model revision.
	Version() string

	// Priority is the engine's static rank for priority-ordered selection.
	// Higher is preferred.
	Priority() int

	// Capabilities declares supported language pairs and resource needs.
	Capabilities() Capabilities

	// Initialize prepares the engine with backend-specific settings.
	// Called once before first use.
	Initialize(ctx context.Context, settings map[string]any) error

	// IsAvailable probes whether the backend can serve right now.
	// A nil return means available. It must be cheap; the health monitor
	// calls it on every probe cycle.
	IsAvailable(ctx context.Context) error

	// CanHandle reports whether the engine can translate this request at
	// all, independent of current load or health.
	CanHandle(ctx context.Context, req Request) (bool, error)

	// Confidence estimates, in [0,1], how well the engine expects to
	// translate this request. Zero means no basis for confidence.
	Confidence(ctx context.Context, req Request) float64

	// EstimateCost predicts the monetary cost of translating the request,
	// in abstract cost units. Free engines return 0.
	EstimateCost(req Request) float64

	// EstimateTime predicts wall-clock processing time for the request.
	EstimateTime(req Request) time.Duration

	// Translate performs the translation. A non-nil error means the
	// attempt failed; partial results are not returned.
	Translate(ctx context.Context, req Request) (*Result, error)

	// Metrics returns the engine's own cumulative usage snapshot.
	Metrics() Metrics

	// Dispose releases backend resources. The engine is unusable after.
	Dispose() error
}
