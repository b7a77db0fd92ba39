package orchestrator

import (
	"fmt"
	"math"
	"time"
)

// Strategy names the policy used to order candidate engines.
type Strategy string

const (
	StrategyPriority    Strategy = "priority"
	StrategySpeed       Strategy = "speed"
	StrategyCost        Strategy = "cost"
	StrategyQuality     Strategy = "quality"
	StrategyReliability Strategy = "reliability"
	StrategyBestResult  Strategy = "best_result"
)

// Strategies lists every recognized strategy name.
func Strategies() []Strategy {
	return []Strategy{
		StrategyPriority, StrategySpeed, StrategyCost,
		StrategyQuality, StrategyReliability, StrategyBestResult,
	}
}

// QualityThresholds gate early termination of sequential fallback: a result
// must clear every minimum before later candidates are skipped.
type QualityThresholds struct {
	MinSyntacticCorrectness float64 `json:"min_syntactic_correctness" yaml:"min_syntactic_correctness" mapstructure:"min_syntactic_correctness"`
	MinSemanticPreservation float64 `json:"min_semantic_preservation" yaml:"min_semantic_preservation" mapstructure:"min_semantic_preservation"`
	MinOverallQuality       float64 `json:"min_overall_quality" yaml:"min_overall_quality" mapstructure:"min_overall_quality"`
}

// HealthCheckConfig controls the background monitor.
type HealthCheckConfig struct {
	// Interval between probe cycles for healthy engines.
	Interval time.Duration `json:"interval" yaml:"interval" mapstructure:"interval"`

	// Timeout bounds a single availability probe and applicability check.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// FailureThreshold is the consecutive-failure count at which an
	// engine is marked unhealthy.
	FailureThreshold int `json:"failure_threshold" yaml:"failure_threshold" mapstructure:"failure_threshold"`

	// RecoveryInterval is the minimum spacing between probes of an
	// engine that is already unhealthy.
	RecoveryInterval time.Duration `json:"recovery_interval" yaml:"recovery_interval" mapstructure:"recovery_interval"`
}

// ScoreWeights are the result-scoring mix. They must sum to 1.
type ScoreWeights struct {
	Quality    float64 `json:"quality" yaml:"quality" mapstructure:"quality"`
	Confidence float64 `json:"confidence" yaml:"confidence" mapstructure:"confidence"`
	Cost       float64 `json:"cost" yaml:"cost" mapstructure:"cost"`
	Time       float64 `json:"time" yaml:"time" mapstructure:"time"`
}

// Config is the orchestrator's tunable surface. It is copied on read, so a
// SetConfig swap never races an in-flight request.
type Config struct {
	Strategy                 Strategy          `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	EnginePriorities         map[string]int    `json:"engine_priorities,omitempty" yaml:"engine_priorities" mapstructure:"engine_priorities"`
	EnableFallback           bool              `json:"enable_fallback" yaml:"enable_fallback" mapstructure:"enable_fallback"`
	MaxEnginesPerTranslation int               `json:"max_engines_per_translation" yaml:"max_engines_per_translation" mapstructure:"max_engines_per_translation"`
	MinConfidenceThreshold   float64           `json:"min_confidence_threshold" yaml:"min_confidence_threshold" mapstructure:"min_confidence_threshold"`
	MaxCostPerTranslation    float64           `json:"max_cost_per_translation" yaml:"max_cost_per_translation" mapstructure:"max_cost_per_translation"`
	MaxTimePerTranslation    time.Duration     `json:"max_time_per_translation" yaml:"max_time_per_translation" mapstructure:"max_time_per_translation"`
	QualityThresholds        QualityThresholds `json:"quality_thresholds" yaml:"quality_thresholds" mapstructure:"quality_thresholds"`
	HealthCheck              HealthCheckConfig `json:"health_check" yaml:"health_check" mapstructure:"health_check"`

	// ScoreWeights and SmoothingWeight default to the calibration the
	// platform shipped with; they are tunable, not structural.
	ScoreWeights    ScoreWeights `json:"score_weights" yaml:"score_weights" mapstructure:"score_weights"`
	SmoothingWeight float64      `json:"smoothing_weight" yaml:"smoothing_weight" mapstructure:"smoothing_weight"`
}

// DefaultConfig returns the shipped calibration.
func DefaultConfig() Config {
	return Config{
		Strategy:                 StrategyPriority,
		EnableFallback:           true,
		MaxEnginesPerTranslation: 3,
		MinConfidenceThreshold:   0.5,
		MaxCostPerTranslation:    1.0,
		MaxTimePerTranslation:    2 * time.Minute,
		QualityThresholds: QualityThresholds{
			MinSyntacticCorrectness: 0.5,
			MinSemanticPreservation: 0.5,
			MinOverallQuality:       0.5,
		},
		HealthCheck: HealthCheckConfig{
			Interval:         30 * time.Second,
			Timeout:          5 * time.Second,
			FailureThreshold: 3,
			RecoveryInterval: 2 * time.Minute,
		},
		ScoreWeights: ScoreWeights{
			Quality:    0.4,
			Confidence: 0.3,
			Cost:       0.2,
			Time:       0.1,
		},
		SmoothingWeight: 0.1,
	}
}

// Validate rejects configurations under which no engine could ever be
// selected or qualify.
func (c Config) Validate() error {
	valid := false
	for _, s := range Strategies() {
		if c.Strategy == s {
			valid = true
			break
		}
	}
	if !valid {
		return &Error{Code: ErrCodeInvalidConfig, Message: fmt.Sprintf("unknown strategy %q", c.Strategy)}
	}

	if c.MaxEnginesPerTranslation < 1 {
		return &Error{Code: ErrCodeInvalidConfig, Message: "max_engines_per_translation must be at least 1"}
	}
	if c.MaxCostPerTranslation <= 0 {
		return &Error{Code: ErrCodeInvalidConfig, Message: "max_cost_per_translation must be positive"}
	}
	if c.MaxTimePerTranslation <= 0 {
		return &Error{Code: ErrCodeInvalidConfig, Message: "max_time_per_translation must be positive"}
	}
	if c.MinConfidenceThreshold < 0 || c.MinConfidenceThreshold > 1 {
		return &Error{Code: ErrCodeInvalidConfig, Message: "min_confidence_threshold must be in [0,1]"}
	}

	for name, v := range map[string]float64{
		"min_syntactic_correctness": c.QualityThresholds.MinSyntacticCorrectness,
		"min_semantic_preservation": c.QualityThresholds.MinSemanticPreservation,
		"min_overall_quality":       c.QualityThresholds.MinOverallQuality,
	} {
		if v < 0 || v > 1 {
			return &Error{Code: ErrCodeInvalidConfig, Message: fmt.Sprintf("%s must be in [0,1]", name)}
		}
	}

	hc := c.HealthCheck
	if hc.Interval <= 0 || hc.Timeout <= 0 {
		return &Error{Code: ErrCodeInvalidConfig, Message: "health check interval and timeout must be positive"}
	}
	if hc.FailureThreshold < 1 {
		return &Error{Code: ErrCodeInvalidConfig, Message: "health check failure_threshold must be at least 1"}
	}
	if hc.RecoveryInterval < 0 {
		return &Error{Code: ErrCodeInvalidConfig, Message: "health check recovery_interval must not be negative"}
	}

	w := c.ScoreWeights
	if w.Quality < 0 || w.Confidence < 0 || w.Cost < 0 || w.Time < 0 {
		return &Error{Code: ErrCodeInvalidConfig, Message: "score weights must not be negative"}
	}
	if sum := w.Quality + w.Confidence + w.Cost + w.Time; math.Abs(sum-1) > 0.001 {
		return &Error{Code: ErrCodeInvalidConfig, Message: fmt.Sprintf("score weights must sum to 1, got %.3f", sum)}
	}

	if c.SmoothingWeight <= 0 || c.SmoothingWeight >= 1 {
		return &Error{Code: ErrCodeInvalidConfig, Message: "smoothing_weight must be in (0,1)"}
	}
	return nil
}
