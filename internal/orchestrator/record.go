package orchestrator

import (
	"sync"
	"time"

	"github.com/valpere/perekod/internal/engine"
)

// Health is the rolling availability judgment for one engine. IsHealthy is
// derived: it turns true only through a successful probe or attempt, and
// false only when ConsecutiveFailures reaches the configured threshold.
type Health struct {
	IsHealthy           bool      `json:"is_healthy"`
	LastCheck           time.Time `json:"last_check"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	AverageResponseMs   float64   `json:"average_response_ms"`
	SuccessRate         float64   `json:"success_rate"`
	LastError           string    `json:"last_error,omitempty"`
}

// New engines start healthy with a modest prior so one early failure does
// not zero their success rate.
const seedSuccessRate = 0.5

// engineRecord pairs an engine with its health and usage bookkeeping. All
// mutation happens under mu so timer probes and live traffic cannot race a
// read-modify-write.
type engineRecord struct {
	engine engine.Engine

	mu      sync.Mutex
	health  Health
	metrics engine.Metrics
}

func newEngineRecord(e engine.Engine) *engineRecord {
	return &engineRecord{
		engine: e,
		health: Health{
			IsHealthy:   true,
			LastCheck:   time.Now(),
			SuccessRate: seedSuccessRate,
		},
	}
}

// recordOutcome folds one probe or attempt outcome into the health record.
// Probe failures and attempt failures share this one update rule.
func (r *engineRecord) recordOutcome(succeeded bool, elapsed time.Duration, errMsg string, smoothing float64, failureThreshold int) (healthyBefore, healthyAfter bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	healthyBefore = r.health.IsHealthy
	r.health.LastCheck = time.Now()

	if succeeded {
		r.health.IsHealthy = true
		r.health.ConsecutiveFailures = 0
		r.health.LastError = ""
		r.health.AverageResponseMs = expSmooth(r.health.AverageResponseMs, float64(elapsed.Milliseconds()), smoothing)
		r.health.SuccessRate = expSmooth(r.health.SuccessRate, 1, smoothing)
	} else {
		r.health.ConsecutiveFailures++
		r.health.LastError = errMsg
		r.health.SuccessRate = expSmooth(r.health.SuccessRate, 0, smoothing)
		if r.health.ConsecutiveFailures >= failureThreshold {
			r.health.IsHealthy = false
		}
	}
	return healthyBefore, r.health.IsHealthy
}

// recordAttemptMetrics folds one attempt into the per-engine usage counters.
// Failed attempts contribute duration but no confidence, cost or memory.
func (r *engineRecord) recordAttemptMetrics(att Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := &r.metrics
	m.TotalRequests++
	m.AvgProcessingMs = incrementalMean(m.AvgProcessingMs, float64(att.Duration.Milliseconds()), m.TotalRequests)
	m.LastUsed = time.Now()

	if att.Err != nil {
		m.Failed++
		return
	}
	m.Succeeded++
	m.AvgConfidence = incrementalMean(m.AvgConfidence, att.Result.Confidence, m.Succeeded)
	m.AvgMemoryBytes = incrementalMean(m.AvgMemoryBytes, float64(att.Result.Metadata.MemoryBytes), m.Succeeded)
	m.TotalCost += att.Cost
}

func (r *engineRecord) healthSnapshot() Health {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.health
}

func (r *engineRecord) metricsSnapshot() engine.Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}
