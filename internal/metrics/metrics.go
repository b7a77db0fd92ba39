// Package metrics exposes Prometheus collectors for the translation
// service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels translations that produced a result.
	OutcomeSuccess = "success"
	// OutcomeError labels translations that failed outright.
	OutcomeError = "error"
)

var (
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perekod",
			Name:      "translations_total",
			Help:      "Total number of translation requests handled, partitioned by winning engine and outcome.",
		},
		[]string{"engine", "outcome"},
	)

	translationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "perekod",
			Name:      "translation_seconds",
			Help:      "End-to-end translation latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	translationCost = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "perekod",
			Name:      "translation_cost_units_total",
			Help:      "Accumulated abstract cost units spent on translations.",
		},
	)

	engineHealthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "perekod",
			Name:      "engine_healthy",
			Help:      "Whether an engine is currently considered healthy (1) or not (0).",
		},
		[]string{"engine"},
	)

	engineConsecutiveFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "perekod",
			Name:      "engine_consecutive_failures",
			Help:      "Current consecutive failure streak per engine.",
		},
		[]string{"engine"},
	)

	engineSuccessRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "perekod",
			Name:      "engine_success_rate",
			Help:      "Smoothed per-engine success rate in [0,1].",
		},
		[]string{"engine"},
	)
)

// Register attaches perekod collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		translationsTotal,
		translationSeconds,
		translationCost,
		engineHealthy,
		engineConsecutiveFailures,
		engineSuccessRate,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveTranslation records one finished translation request. The engine
// is the winner's name, or empty when no engine produced a result.
func ObserveTranslation(engine string, duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	if engine == "" {
		engine = "none"
	}
	translationsTotal.WithLabelValues(engine, label).Inc()
	if duration < 0 {
		duration = 0
	}
	translationSeconds.Observe(duration.Seconds())
}

// AddCost accumulates abstract cost units spent on a translation.
func AddCost(units float64) {
	if units > 0 {
		translationCost.Add(units)
	}
}

// SetEngineHealth publishes an engine's current health state.
func SetEngineHealth(engine string, healthy bool, consecutiveFailures int) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	engineHealthy.WithLabelValues(engine).Set(v)
	engineConsecutiveFailures.WithLabelValues(engine).Set(float64(consecutiveFailures))
}

// SetEngineSuccessRate publishes an engine's smoothed success rate.
func SetEngineSuccessRate(engine string, rate float64) {
	engineSuccessRate.WithLabelValues(engine).Set(rate)
}
