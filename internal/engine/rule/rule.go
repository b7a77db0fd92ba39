// Package rule implements the deterministic rule-table translation engine.
// It applies regex rewrite rules from YAML packs, each pack covering one
// source/target language pair. The engine is fast and free but only handles
// low-complexity units, and declines pairs it has no pack for.
package rule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/engine"
	"github.com/valpere/perekod/internal/placeholder"
	"github.com/valpere/perekod/internal/quality"
)

const (
	engineName    = "rule"
	engineVersion = "1.2.0"

	// Units above this complexity are declined; regex rewriting cannot keep
	// up with deeply nested control flow.
	maxComplexity = 4
)

// Pack is one YAML rule pack. Replace templates may reference named capture
// groups from Match as ${name}.
type Pack struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source_language"`
	Target string `yaml:"target_language"`
	Rules  []Rule `yaml:"rules"`
}

type Rule struct {
	Name       string  `yaml:"name"`
	Match      string  `yaml:"match"`
	Replace    string  `yaml:"replace"`
	Confidence float64 `yaml:"confidence"`
}

type compiledRule struct {
	name       string
	re         *regexp.Regexp
	replace    string
	confidence float64
}

type pairKey struct {
	source dialect.Language
	target dialect.Language
}

// Engine is the rule-table engine. Safe for concurrent use after Initialize.
type Engine struct {
	priority int
	packs    map[pairKey][]compiledRule
	stats    *engine.Stats
}

// New returns a rule engine preloaded with the builtin packs.
func New(priority int) (*Engine, error) {
	e := &Engine{
		priority: priority,
		packs:    make(map[pairKey][]compiledRule),
		stats:    &engine.Stats{},
	}
	for _, doc := range builtinPacks {
		var p Pack
		if err := yaml.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("parse builtin pack: %w", err)
		}
		if err := e.AddPack(p); err != nil {
			return nil, fmt.Errorf("load builtin pack %s: %w", p.Name, err)
		}
	}
	return e, nil
}

// AddPack validates and registers a pack. Rules of packs sharing a language
// pair are applied in registration order.
func (e *Engine) AddPack(p Pack) error {
	src, err := dialect.Normalize(p.Source)
	if err != nil {
		return fmt.Errorf("pack %s: %w", p.Name, err)
	}
	tgt, err := dialect.Normalize(p.Target)
	if err != nil {
		return fmt.Errorf("pack %s: %w", p.Name, err)
	}
	if len(p.Rules) == 0 {
		return fmt.Errorf("pack %s: no rules", p.Name)
	}

	compiled := make([]compiledRule, 0, len(p.Rules))
	for _, r := range p.Rules {
		re, err := regexp.Compile(r.Match)
		if err != nil {
			return fmt.Errorf("pack %s rule %s: %w", p.Name, r.Name, err)
		}
		conf := r.Confidence
		if conf <= 0 || conf > 1 {
			conf = 0.5
		}
		compiled = append(compiled, compiledRule{
			name:       r.Name,
			re:         re,
			replace:    r.Replace,
			confidence: conf,
		})
	}

	key := pairKey{source: src, target: tgt}
	e.packs[key] = append(e.packs[key], compiled...)
	return nil
}

// LoadDir loads every .yaml/.yml pack in dir.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read pack dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read pack %s: %w", entry.Name(), err)
		}
		var p Pack
		if err := yaml.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("parse pack %s: %w", entry.Name(), err)
		}
		if err := e.AddPack(p); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) Name() string    { return engineName }
func (e *Engine) Version() string { return engineVersion }
func (e *Engine) Priority() int   { return e.priority }

func (e *Engine) Capabilities() engine.Capabilities {
	sources := map[dialect.Language]bool{}
	targets := map[dialect.Language]bool{}
	for key := range e.packs {
		sources[key.source] = true
		targets[key.target] = true
	}
	return engine.Capabilities{
		SourceLanguages:     sortedLangs(sources),
		TargetLanguages:     sortedLangs(targets),
		MaxComplexity:       maxComplexity,
		BatchSupport:        true,
		RequiresNetwork:     false,
		MemoryRequirementMB: 16,
		CPUIntensity:        2,
	}
}

func sortedLangs(set map[dialect.Language]bool) []dialect.Language {
	out := make([]dialect.Language, 0, len(set))
	for lang := range set {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Initialize recognizes the packs_dir setting for loading extra packs.
func (e *Engine) Initialize(_ context.Context, settings map[string]any) error {
	if dir, ok := settings["packs_dir"].(string); ok && dir != "" {
		if err := e.LoadDir(dir); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) IsAvailable(_ context.Context) error {
	if len(e.packs) == 0 {
		return fmt.Errorf("rule engine has no packs loaded")
	}
	return nil
}

func (e *Engine) CanHandle(_ context.Context, req engine.Request) (bool, error) {
	if req.Unit.Complexity > maxComplexity {
		return false, nil
	}
	_, ok := e.packs[pairKey{source: req.Unit.Language, target: req.TargetLang}]
	return ok, nil
}

func (e *Engine) Confidence(_ context.Context, req engine.Request) float64 {
	rules := e.packs[pairKey{source: req.Unit.Language, target: req.TargetLang}]
	if len(rules) == 0 {
		return 0
	}
	var confs []float64
	for _, r := range rules {
		if r.re.MatchString(req.Unit.Code) {
			confs = append(confs, r.confidence)
		}
	}
	return confidenceFor(confs)
}

// confidenceFor grows with how many rules fired, weighted by their own
// confidence. No rules firing means the output is near-identity.
func confidenceFor(matched []float64) float64 {
	if len(matched) == 0 {
		return 0.2
	}
	sum := 0.0
	for _, c := range matched {
		sum += c
	}
	mean := sum / float64(len(matched))
	conf := mean * (0.6 + 0.1*float64(len(matched)))
	if conf > 0.92 {
		conf = 0.92
	}
	return conf
}

// EstimateCost is zero: rules run locally with no paid backend.
func (e *Engine) EstimateCost(engine.Request) float64 { return 0 }

func (e *Engine) EstimateTime(req engine.Request) time.Duration {
	return time.Duration(req.Unit.Complexity) * 2 * time.Millisecond
}

func (e *Engine) Translate(_ context.Context, req engine.Request) (*engine.Result, error) {
	start := time.Now()
	rules, ok := e.packs[pairKey{source: req.Unit.Language, target: req.TargetLang}]
	if !ok {
		err := fmt.Errorf("no rule pack for %s to %s", req.Unit.Language, req.TargetLang)
		e.stats.Record(false, 0, time.Since(start), 0)
		e.stats.RecordError("no_pack")
		return nil, err
	}

	// Literals and comments must survive rewriting untouched.
	protected, markers := placeholder.Protect(req.Unit.Code)

	var applied []string
	var confs []float64
	for _, r := range rules {
		if !r.re.MatchString(protected) {
			continue
		}
		protected = r.re.ReplaceAllString(protected, r.replace)
		applied = append(applied, r.name)
		confs = append(confs, r.confidence)
	}
	protected = engine.ApplyLexicon(protected, req.Lexicon)

	targetCode := placeholder.Restore(protected, markers)

	result := &engine.Result{
		TargetCode:   targetCode,
		Confidence:   confidenceFor(confs),
		AppliedRules: applied,
		Quality:      quality.Assess(req.Unit.Code, req.Unit.Language, targetCode, req.TargetLang),
		Metadata: engine.ResultMetadata{
			Engine:         engineName,
			EngineVersion:  engineVersion,
			Timestamp:      start,
			ProcessingTime: time.Since(start),
			Cost:           0,
		},
	}
	if len(applied) == 0 {
		result.Reasoning = "no rules matched; output is a near-identity rewrite"
		result.Warnings = append(result.Warnings, "rule engine found no applicable rules for this unit")
	} else {
		result.Reasoning = fmt.Sprintf("applied %d of %d rules", len(applied), len(rules))
	}

	e.stats.Record(true, result.Confidence, time.Since(start), 0)
	return result, nil
}

func (e *Engine) Metrics() engine.Metrics { return e.stats.Snapshot() }

func (e *Engine) Dispose() error { return nil }

// PairCount reports how many language pairs have at least one rule.
func (e *Engine) PairCount() int { return len(e.packs) }
