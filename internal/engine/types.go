package engine

import (
	"time"

	"github.com/valpere/perekod/internal/dialect"
)

// Kind classifies a translation unit by its structural role in the source.
type Kind string

const (
	KindModule   Kind = "module"
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindSnippet  Kind = "snippet"
)

// Unit is one prepared piece of source code handed to an engine.
type Unit struct {
	ID         string            `json:"id"`
	Language   dialect.Language  `json:"language"`
	Code       string            `json:"code"`
	Kind       Kind              `json:"kind"`
	Complexity int               `json:"complexity"`
	Path       string            `json:"path,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Request carries a unit plus everything an engine needs to translate it.
type Request struct {
	Unit       Unit              `json:"unit"`
	TargetLang dialect.Language  `json:"target_lang"`
	Lexicon    map[string]string `json:"lexicon,omitempty"`
	Context    string            `json:"context,omitempty"`
	Options    map[string]string `json:"options,omitempty"`
}

// QualityMetrics grades one translation result. Every field is in [0,1].
type QualityMetrics struct {
	SyntacticCorrectness float64 `json:"syntactic_correctness"`
	SemanticPreservation float64 `json:"semantic_preservation"`
	IdiomaticQuality     float64 `json:"idiomatic_quality"`
	PerformanceImpact    float64 `json:"performance_impact"`
	SecurityImprovement  float64 `json:"security_improvement"`
	Maintainability      float64 `json:"maintainability"`
	OverallQuality       float64 `json:"overall_quality"`
}

// ResultMetadata records how a result was produced.
type ResultMetadata struct {
	Engine         string            `json:"engine"`
	EngineVersion  string            `json:"engine_version"`
	Timestamp      time.Time         `json:"timestamp"`
	ProcessingTime time.Duration     `json:"processing_time"`
	MemoryBytes    int64             `json:"memory_bytes,omitempty"`
	Cost           float64           `json:"cost"`
	NetworkCalls   int               `json:"network_calls,omitempty"`
	CacheHits      int               `json:"cache_hits,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Alternative is a lower-ranked candidate translation attached to a result.
type Alternative struct {
	TargetCode string  `json:"target_code"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Result is a completed translation of one unit.
type Result struct {
	TargetCode   string         `json:"target_code"`
	Confidence   float64        `json:"confidence"`
	Reasoning    string         `json:"reasoning,omitempty"`
	Alternatives []Alternative  `json:"alternatives,omitempty"`
	AppliedRules []string       `json:"applied_rules,omitempty"`
	Quality      QualityMetrics `json:"quality"`
	Metadata     ResultMetadata `json:"metadata"`
	Warnings     []string       `json:"warnings,omitempty"`
	Improvements []string       `json:"improvements,omitempty"`
}

// Capabilities declares what an engine can take on.
type Capabilities struct {
	SourceLanguages     []dialect.Language `json:"source_languages"`
	TargetLanguages     []dialect.Language `json:"target_languages"`
	MaxComplexity       int                `json:"max_complexity"`
	BatchSupport        bool               `json:"batch_support"`
	RequiresNetwork     bool               `json:"requires_network"`
	MemoryRequirementMB int                `json:"memory_requirement_mb"`
	CPUIntensity        int                `json:"cpu_intensity"`
}

// Supports reports whether the capability set covers the given language pair.
func (c Capabilities) Supports(source, target dialect.Language) bool {
	return containsLang(c.SourceLanguages, source) && containsLang(c.TargetLanguages, target)
}

func containsLang(langs []dialect.Language, want dialect.Language) bool {
	for _, l := range langs {
		if l == want {
			return true
		}
	}
	return false
}

// Metrics is an engine's own cumulative usage snapshot.
type Metrics struct {
	TotalRequests   int64            `json:"total_requests"`
	Succeeded       int64            `json:"succeeded"`
	Failed          int64            `json:"failed"`
	AvgConfidence   float64          `json:"avg_confidence"`
	AvgProcessingMs float64          `json:"avg_processing_ms"`
	AvgMemoryBytes  float64          `json:"avg_memory_bytes,omitempty"`
	TotalCost       float64          `json:"total_cost"`
	CacheHits       int64            `json:"cache_hits,omitempty"`
	CacheMisses     int64            `json:"cache_misses,omitempty"`
	ErrorCounts     map[string]int64 `json:"error_counts,omitempty"`
	LastUsed        time.Time        `json:"last_used"`
}
