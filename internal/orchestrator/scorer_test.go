package orchestrator

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestScoreAttempt(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCostPerTranslation = 1.0
	cfg.MaxTimePerTranslation = 2 * time.Minute

	res := okResult("a", "out", 0.8)
	res.Quality.OverallQuality = 0.9
	att := Attempt{
		Engine:   "a",
		Result:   res,
		Duration: 12 * time.Second,
		Cost:     0.1,
	}

	// 0.9*0.4 + 0.8*0.3 + 0.9*0.2 + 0.9*0.1
	want := 0.87
	if got := scoreAttempt(att, cfg); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected score %f, got %f", want, got)
	}
}

func TestScoreAttempt_ClampsOverruns(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCostPerTranslation = 1.0
	cfg.MaxTimePerTranslation = time.Second

	res := okResult("a", "out", 0.8)
	res.Quality.OverallQuality = 0.9
	att := Attempt{
		Engine:   "a",
		Result:   res,
		Duration: 5 * time.Second,
		Cost:     3.0,
	}

	// Cost and time contribute nothing once past their ceilings.
	want := 0.9*0.4 + 0.8*0.3
	if got := scoreAttempt(att, cfg); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected score %f, got %f", want, got)
	}
}

func TestPickWinner_BestScore(t *testing.T) {
	o := newTestOrchestrator(t, testConfig())
	cfg := testConfig()

	weak := Attempt{Engine: "weak", Result: okResult("weak", "weak code", 0.6), Duration: time.Millisecond}
	strong := Attempt{Engine: "strong", Result: okResult("strong", "strong code", 0.95), Duration: time.Millisecond}

	sel := Selection{Reasoning: "strategy=priority: selected weak > strong (0 unhealthy, 0 declined, 0 over budget)"}
	winner, err := o.pickWinner([]Attempt{weak, strong}, sel, cfg)
	if err != nil {
		t.Fatalf("pickWinner: %v", err)
	}
	if winner.TargetCode != "strong code" {
		t.Errorf("expected the higher score to win, got %q", winner.TargetCode)
	}

	extra := winner.Metadata.Extra
	if extra["engines_attempted"] != "2" || extra["engines_succeeded"] != "2" {
		t.Errorf("unexpected bookkeeping %v", extra)
	}
	if extra["fallback_used"] != "true" {
		t.Errorf("expected fallback_used=true, got %q", extra["fallback_used"])
	}
	if extra["selection_reasoning"] != sel.Reasoning {
		t.Errorf("the selection reasoning must ride along, got %q", extra["selection_reasoning"])
	}
	if extra["score"] == "" || extra["strategy"] != string(cfg.Strategy) {
		t.Errorf("missing score or strategy in %v", extra)
	}

	if len(winner.Alternatives) != 1 || winner.Alternatives[0].TargetCode != "weak code" {
		t.Errorf("the runner-up should be attached as an alternative, got %+v", winner.Alternatives)
	}
	if len(winner.Warnings) != 1 || !strings.Contains(winner.Warnings[0], "2 engines attempted, 2 succeeded") {
		t.Errorf("unexpected warnings %v", winner.Warnings)
	}
}

func TestPickWinner_TieKeepsFirstSeen(t *testing.T) {
	o := newTestOrchestrator(t, testConfig())
	cfg := testConfig()

	first := Attempt{Engine: "first", Result: okResult("first", "first code", 0.9), Duration: time.Millisecond}
	second := Attempt{Engine: "second", Result: okResult("second", "second code", 0.9), Duration: time.Millisecond}

	winner, err := o.pickWinner([]Attempt{first, second}, Selection{}, cfg)
	if err != nil {
		t.Fatalf("pickWinner: %v", err)
	}
	if winner.TargetCode != "first code" {
		t.Errorf("score ties must resolve to the first-seen attempt, got %q", winner.TargetCode)
	}
}

func TestPickWinner_AllFailed(t *testing.T) {
	o := newTestOrchestrator(t, testConfig())
	cfg := testConfig()

	errLast := errors.New("network unreachable")
	attempts := []Attempt{
		{Engine: "a", Err: errors.New("parse failure")},
		{Engine: "b", Err: errLast},
	}

	_, err := o.pickWinner(attempts, Selection{}, cfg)
	if !IsCode(err, ErrCodeAllFailed) {
		t.Fatalf("expected all_failed, got %v", err)
	}
	if !strings.Contains(err.Error(), "all 2 engines failed") {
		t.Errorf("unexpected message %v", err)
	}
	if !strings.Contains(err.Error(), "a: parse failure") || !strings.Contains(err.Error(), "b: network unreachable") {
		t.Errorf("every failure should be named: %v", err)
	}
	if !errors.Is(err, errLast) {
		t.Error("the cause chain should surface an underlying error")
	}
}

func TestPickWinner_CapsAlternatives(t *testing.T) {
	o := newTestOrchestrator(t, testConfig())
	cfg := testConfig()

	best := okResult("best", "best code", 0.99)
	best.Alternatives = append(best.Alternatives, alternativeFor(Attempt{
		Engine: "best-internal",
		Result: okResult("best-internal", "internal variant", 0.5),
	}))

	attempts := []Attempt{
		{Engine: "best", Result: best, Duration: time.Millisecond},
		{Engine: "b", Result: okResult("b", "b code", 0.6), Duration: time.Millisecond},
		{Engine: "c", Result: okResult("c", "c code", 0.5), Duration: time.Millisecond},
		{Engine: "d", Result: okResult("d", "d code", 0.4), Duration: time.Millisecond},
	}

	winner, err := o.pickWinner(attempts, Selection{}, cfg)
	if err != nil {
		t.Fatalf("pickWinner: %v", err)
	}
	// One alternative of the engine's own plus at most two runner-ups.
	if len(winner.Alternatives) != 3 {
		t.Fatalf("expected 3 alternatives, got %d", len(winner.Alternatives))
	}
	if winner.Alternatives[0].TargetCode != "internal variant" {
		t.Error("the engine's own alternatives must be kept, not replaced")
	}
}

func TestPickWinner_SingleAttempt(t *testing.T) {
	o := newTestOrchestrator(t, testConfig())
	cfg := testConfig()

	only := Attempt{Engine: "only", Result: okResult("only", "solo code", 0.9), Duration: time.Millisecond}
	winner, err := o.pickWinner([]Attempt{only}, Selection{}, cfg)
	if err != nil {
		t.Fatalf("pickWinner: %v", err)
	}
	if len(winner.Warnings) != 0 {
		t.Errorf("a single attempt is not a fallback, got warnings %v", winner.Warnings)
	}
	if winner.Metadata.Extra["fallback_used"] != "false" {
		t.Errorf("expected fallback_used=false, got %q", winner.Metadata.Extra["fallback_used"])
	}
}
