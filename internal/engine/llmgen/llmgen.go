// Package llmgen implements the LLM-backed generator engine. It speaks the
// Ollama generate API: string literals and comments are replaced with
// placeholder markers before prompting so the model cannot mangle them, and
// the raw completion is cleaned of fences and reasoning blocks before the
// markers are restored.
package llmgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/engine"
	"github.com/valpere/perekod/internal/placeholder"
	"github.com/valpere/perekod/internal/postprocess"
	"github.com/valpere/perekod/internal/quality"
)

const (
	engineName    = "llmgen"
	engineVersion = "0.5.0"

	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "qwen2.5-coder:7b"

	// The generate API reports no usable token probabilities, so clean
	// generations self-report this confidence.
	baseConfidence = 0.7
)

type Engine struct {
	priority int
	baseURL  string
	model    string
	client   *http.Client
	stats    *engine.Stats
}

func New(baseURL, model string, priority int) *Engine {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Engine{
		priority: priority,
		baseURL:  baseURL,
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
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
		MaxComplexity:       10,
		BatchSupport:        false,
		RequiresNetwork:     true,
		MemoryRequirementMB: 512,
		CPUIntensity:        8,
	}
}

// Initialize recognizes base_url, model and timeout_seconds settings.
func (e *Engine) Initialize(_ context.Context, settings map[string]any) error {
	if v, ok := settings["base_url"].(string); ok && v != "" {
		e.baseURL = strings.TrimRight(v, "/")
	}
	if v, ok := settings["model"].(string); ok && v != "" {
		e.model = v
	}
	if v, ok := settings["timeout_seconds"]; ok {
		secs, ok := v.(float64)
		if !ok || secs <= 0 {
			return fmt.Errorf("timeout_seconds must be a positive number, got %v", v)
		}
		e.client.Timeout = time.Duration(secs * float64(time.Second))
	}
	return nil
}

func (e *Engine) IsAvailable(ctx context.Context) error {
	req, _ := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/api/tags", e.baseURL), nil)
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("llm backend not available: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm backend returned status %d", resp.StatusCode)
	}
	return nil
}

// CanHandle accepts every known language pair; generation quality is the
// orchestrator's problem, applicability is not.
func (e *Engine) CanHandle(_ context.Context, req engine.Request) (bool, error) {
	return req.Unit.Language != dialect.Unknown && req.TargetLang != dialect.Unknown, nil
}

func (e *Engine) Confidence(_ context.Context, req engine.Request) float64 {
	conf := 0.85 - 0.03*float64(req.Unit.Complexity)
	if conf < 0.55 {
		conf = 0.55
	}
	return conf
}

func (e *Engine) EstimateCost(req engine.Request) float64 {
	return 0.01 + 0.0002*float64(len(req.Unit.Code))
}

func (e *Engine) EstimateTime(req engine.Request) time.Duration {
	lines := strings.Count(req.Unit.Code, "\n") + 1
	return time.Duration(800+25*lines) * time.Millisecond
}

func (e *Engine) Translate(ctx context.Context, req engine.Request) (*engine.Result, error) {
	start := time.Now()

	protected, markers := placeholder.Protect(req.Unit.Code)
	prompt := buildPrompt(req, protected)

	genReq := map[string]any{
		"model":  e.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": 0.1,
		},
	}

	jsonData, err := json.Marshal(genReq)
	if err != nil {
		return nil, e.fail(start, "marshal", fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/generate", e.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, e.fail(start, "request", fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, e.fail(start, "network", fmt.Errorf("generate request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, e.fail(start, "status", fmt.Errorf("llm backend returned status %d", resp.StatusCode))
	}

	var genResp struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, e.fail(start, "decode", fmt.Errorf("decode response: %w", err))
	}

	cleaned := postprocess.Clean(genResp.Response)
	missing := placeholder.Validate(cleaned, markers)
	targetCode := placeholder.Restore(cleaned, markers)
	targetCode = engine.ApplyLexicon(targetCode, req.Lexicon)

	confidence := baseConfidence - 0.1*float64(len(missing))
	if confidence < 0.3 {
		confidence = 0.3
	}

	result := &engine.Result{
		TargetCode: targetCode,
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("generated by %s", e.model),
		Quality:    quality.Assess(req.Unit.Code, req.Unit.Language, targetCode, req.TargetLang),
		Metadata: engine.ResultMetadata{
			Engine:         engineName,
			EngineVersion:  engineVersion,
			Timestamp:      start,
			ProcessingTime: time.Since(start),
			Cost:           e.EstimateCost(req),
			NetworkCalls:   1,
			Extra:          map[string]string{"model": e.model},
		},
	}
	if len(missing) > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d protected literals were dropped by the model", len(missing)))
	}

	e.stats.Record(true, confidence, time.Since(start), result.Metadata.Cost)
	return result, nil
}

func (e *Engine) fail(start time.Time, class string, err error) error {
	e.stats.Record(false, 0, time.Since(start), 0)
	e.stats.RecordError(class)
	return err
}

func buildPrompt(req engine.Request, protected string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following %s code to %s.\n", req.Unit.Language, req.TargetLang)
	b.WriteString("Respond with only the translated code, no explanations.\n")
	b.WriteString(placeholder.InstructionHint())
	b.WriteString("\n")

	if len(req.Lexicon) > 0 {
		b.WriteString("\nUse these identifier names in the output:\n")
		for _, line := range engine.LexiconLines(req.Lexicon) {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if req.Context != "" {
		b.WriteString("\nPreceding code for context (do not translate it):\n")
		b.WriteString(req.Context)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nCode:\n%s\n\nTranslation:", protected)
	return b.String()
}

func (e *Engine) Metrics() engine.Metrics { return e.stats.Snapshot() }

func (e *Engine) Dispose() error { return nil }
