// Package config loads perekod settings from a YAML file with
// PEREKOD_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/valpere/perekod/internal/orchestrator"
)

// Config is the top-level perekod configuration.
type Config struct {
	Orchestrator orchestrator.Config `mapstructure:"orchestrator"`
	Engines      EnginesConfig       `mapstructure:"engines"`
	Refiner      RefinerConfig       `mapstructure:"refiner"`
	Store        StoreConfig         `mapstructure:"store"`
	Server       ServerConfig        `mapstructure:"server"`
	Logging      LoggingConfig       `mapstructure:"logging"`
}

// EnginesConfig enables and tunes the builtin translation engines.
type EnginesConfig struct {
	Rule    RuleEngineConfig    `mapstructure:"rule"`
	Pattern PatternEngineConfig `mapstructure:"pattern"`
	LLM     LLMEngineConfig     `mapstructure:"llm"`
}

// RuleEngineConfig covers the deterministic rewrite engine.
type RuleEngineConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Priority int    `mapstructure:"priority"`
	PacksDir string `mapstructure:"packs_dir"`
}

// PatternEngineConfig covers the translation-memory similarity engine.
type PatternEngineConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Priority      int     `mapstructure:"priority"`
	MinSimilarity float64 `mapstructure:"min_similarity"`
}

// LLMEngineConfig covers the Ollama-backed generative engine.
type LLMEngineConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Priority       int    `mapstructure:"priority"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// RefinerConfig controls the optional idiomatic-polish pass applied to
// winning translations.
type RefinerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// StoreConfig locates the translation memory database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig controls the HTTP API listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load reads configuration from path, or from ./perekod.yaml when path is
// empty, with environment overrides (prefix PEREKOD_, dots become
// underscores). A missing default file is not an error; an explicit path
// that cannot be read is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PEREKOD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("perekod")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	oc := orchestrator.DefaultConfig()
	v.SetDefault("orchestrator.strategy", string(oc.Strategy))
	v.SetDefault("orchestrator.enable_fallback", oc.EnableFallback)
	v.SetDefault("orchestrator.max_engines_per_translation", oc.MaxEnginesPerTranslation)
	v.SetDefault("orchestrator.min_confidence_threshold", oc.MinConfidenceThreshold)
	v.SetDefault("orchestrator.max_cost_per_translation", oc.MaxCostPerTranslation)
	v.SetDefault("orchestrator.max_time_per_translation", oc.MaxTimePerTranslation)
	v.SetDefault("orchestrator.quality_thresholds.min_syntactic_correctness", oc.QualityThresholds.MinSyntacticCorrectness)
	v.SetDefault("orchestrator.quality_thresholds.min_semantic_preservation", oc.QualityThresholds.MinSemanticPreservation)
	v.SetDefault("orchestrator.quality_thresholds.min_overall_quality", oc.QualityThresholds.MinOverallQuality)
	v.SetDefault("orchestrator.health_check.interval", oc.HealthCheck.Interval)
	v.SetDefault("orchestrator.health_check.timeout", oc.HealthCheck.Timeout)
	v.SetDefault("orchestrator.health_check.failure_threshold", oc.HealthCheck.FailureThreshold)
	v.SetDefault("orchestrator.health_check.recovery_interval", oc.HealthCheck.RecoveryInterval)
	v.SetDefault("orchestrator.score_weights.quality", oc.ScoreWeights.Quality)
	v.SetDefault("orchestrator.score_weights.confidence", oc.ScoreWeights.Confidence)
	v.SetDefault("orchestrator.score_weights.cost", oc.ScoreWeights.Cost)
	v.SetDefault("orchestrator.score_weights.time", oc.ScoreWeights.Time)
	v.SetDefault("orchestrator.smoothing_weight", oc.SmoothingWeight)

	v.SetDefault("engines.rule.enabled", true)
	v.SetDefault("engines.rule.priority", 90)
	v.SetDefault("engines.pattern.enabled", true)
	v.SetDefault("engines.pattern.priority", 70)
	v.SetDefault("engines.pattern.min_similarity", 0.85)
	v.SetDefault("engines.llm.enabled", true)
	v.SetDefault("engines.llm.priority", 50)
	v.SetDefault("engines.llm.base_url", "http://localhost:11434")
	v.SetDefault("engines.llm.model", "qwen2.5-coder:7b")
	v.SetDefault("engines.llm.timeout_seconds", 120)

	v.SetDefault("refiner.enabled", false)
	v.SetDefault("refiner.base_url", "http://localhost:11434")
	v.SetDefault("refiner.model", "qwen2.5-coder:7b")

	v.SetDefault("store.path", "./data/perekod.db")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.graceful_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)
}

// Validate checks settings that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if err := c.Orchestrator.Validate(); err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	if s := c.Engines.Pattern.MinSimilarity; s <= 0 || s > 1 {
		return fmt.Errorf("config: engines.pattern.min_similarity must be in (0,1], got %g", s)
	}
	if c.Engines.LLM.Enabled && c.Engines.LLM.TimeoutSeconds < 1 {
		return fmt.Errorf("config: engines.llm.timeout_seconds must be at least 1, got %d", c.Engines.LLM.TimeoutSeconds)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("config: store.path must not be empty")
	}
	if c.Server.Address == "" {
		return fmt.Errorf("config: server.address must not be empty")
	}
	if c.Server.GracefulTimeout <= 0 {
		return fmt.Errorf("config: server.graceful_timeout must be positive, got %s", c.Server.GracefulTimeout)
	}
	return nil
}
