package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/valpere/perekod/internal/engine"
)

func TestRunSequential_StopsAtQualifyingResult(t *testing.T) {
	a := newStub("a", 100)
	b := newStub("b", 50)
	o := newTestOrchestrator(t, testConfig(), a, b)

	req := testRequest()
	cfg := o.Config()
	sel := o.selectCandidates(context.Background(), req, cfg)

	attempts := o.runSequential(context.Background(), req, sel, cfg)
	if len(attempts) != 1 || attempts[0].Engine != "a" {
		t.Fatalf("expected the chain to stop after the first qualifying result, got %+v", attempts)
	}
	if b.translateCalls.Load() != 0 {
		t.Error("later candidates must stay untouched")
	}
}

func TestRunSequential_ContinuesBelowConfidence(t *testing.T) {
	a := newStub("a", 100)
	a.translateFunc = func(ctx context.Context, req engine.Request) (*engine.Result, error) {
		return okResult("a", "weak", 0.3), nil
	}
	b := newStub("b", 50)
	o := newTestOrchestrator(t, testConfig(), a, b)

	req := testRequest()
	cfg := o.Config()
	sel := o.selectCandidates(context.Background(), req, cfg)

	attempts := o.runSequential(context.Background(), req, sel, cfg)
	if len(attempts) != 2 {
		t.Fatalf("a result under the confidence bar must not stop the chain, got %d attempts", len(attempts))
	}
	if attempts[0].Err != nil {
		t.Error("the low-confidence attempt itself still succeeded")
	}
}

func TestRunSequential_ContinuesBelowQuality(t *testing.T) {
	a := newStub("a", 100)
	a.translateFunc = func(ctx context.Context, req engine.Request) (*engine.Result, error) {
		res := okResult("a", "sloppy", 0.9)
		res.Quality.OverallQuality = 0.2
		return res, nil
	}
	b := newStub("b", 50)
	o := newTestOrchestrator(t, testConfig(), a, b)

	req := testRequest()
	cfg := o.Config()
	sel := o.selectCandidates(context.Background(), req, cfg)

	attempts := o.runSequential(context.Background(), req, sel, cfg)
	if len(attempts) != 2 {
		t.Fatalf("a result under the quality bar must not stop the chain, got %d attempts", len(attempts))
	}
}

func TestRunSequential_FallbackDisabled(t *testing.T) {
	a := newStub("a", 100)
	a.translateFunc = func(ctx context.Context, req engine.Request) (*engine.Result, error) {
		return nil, errors.New("boom")
	}
	b := newStub("b", 50)
	cfg := testConfig()
	cfg.EnableFallback = false
	o := newTestOrchestrator(t, cfg, a, b)

	req := testRequest()
	sel := o.selectCandidates(context.Background(), req, cfg)

	attempts := o.runSequential(context.Background(), req, sel, cfg)
	if len(attempts) != 1 {
		t.Fatalf("with fallback disabled only the first candidate runs, got %d attempts", len(attempts))
	}
	if b.translateCalls.Load() != 0 {
		t.Error("the second candidate must not run")
	}
}

func TestRunParallel_AllCandidatesRun(t *testing.T) {
	a := newStub("a", 30)
	b := newStub("b", 20)
	c := newStub("c", 10)
	cfg := testConfig()
	cfg.Strategy = StrategyBestResult
	o := newTestOrchestrator(t, cfg, a, b, c)

	req := testRequest()
	sel := o.selectCandidates(context.Background(), req, cfg)

	attempts := o.runParallel(context.Background(), req, sel, cfg)
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(attempts))
	}
	// Attempts come back in candidate order regardless of finish order.
	for i, cand := range sel.Candidates {
		if attempts[i].Engine != cand.Name {
			t.Errorf("attempt %d: expected %s, got %s", i, cand.Name, attempts[i].Engine)
		}
	}
}

func TestRunParallel_OneTimeoutDoesNotSinkSiblings(t *testing.T) {
	slow := newStub("slow", 20)
	slow.translateFunc = func(ctx context.Context, req engine.Request) (*engine.Result, error) {
		time.Sleep(500 * time.Millisecond)
		return okResult("slow", "late", 0.9), nil
	}
	quick := newStub("quick", 10)
	cfg := testConfig()
	cfg.Strategy = StrategyBestResult
	cfg.MaxTimePerTranslation = 60 * time.Millisecond
	o := newTestOrchestrator(t, cfg, slow, quick)

	req := testRequest()
	sel := o.selectCandidates(context.Background(), req, cfg)

	attempts := o.runParallel(context.Background(), req, sel, cfg)
	if attempts[0].Err == nil {
		t.Error("the slow engine should have timed out")
	}
	if attempts[1].Err != nil {
		t.Errorf("the quick engine should have finished: %v", attempts[1].Err)
	}
}

func TestAttempt_Timeout(t *testing.T) {
	a := newStub("a", 10)
	a.translateFunc = func(ctx context.Context, req engine.Request) (*engine.Result, error) {
		time.Sleep(400 * time.Millisecond)
		return okResult("a", "late", 0.9), nil
	}
	cfg := testConfig()
	cfg.MaxTimePerTranslation = 50 * time.Millisecond
	o := newTestOrchestrator(t, cfg, a)

	req := testRequest()
	sel := o.selectCandidates(context.Background(), req, cfg)

	att := o.attempt(context.Background(), req, sel.Candidates[0], cfg)
	if att.Err == nil || !strings.Contains(att.Err.Error(), "timed out") {
		t.Fatalf("expected a timeout failure, got %v", att.Err)
	}
	if att.Cost != 0 {
		t.Errorf("a failed attempt must cost nothing, got %f", att.Cost)
	}

	health := o.HealthSnapshot()["a"]
	if health.ConsecutiveFailures != 1 {
		t.Errorf("a timeout must count against health, got %d failures", health.ConsecutiveFailures)
	}
}

func TestAttempt_NilResultIsFailure(t *testing.T) {
	a := newStub("a", 10)
	a.translateFunc = func(ctx context.Context, req engine.Request) (*engine.Result, error) {
		return nil, nil
	}
	cfg := testConfig()
	o := newTestOrchestrator(t, cfg, a)

	req := testRequest()
	sel := o.selectCandidates(context.Background(), req, cfg)

	att := o.attempt(context.Background(), req, sel.Candidates[0], cfg)
	if att.Err == nil || !strings.Contains(att.Err.Error(), "returned no result") {
		t.Fatalf("expected a nil-result failure, got %v", att.Err)
	}
}

func TestAttempt_RecordsCostFromResult(t *testing.T) {
	a := newStub("a", 10)
	a.translateFunc = func(ctx context.Context, req engine.Request) (*engine.Result, error) {
		res := okResult("a", "out", 0.9)
		res.Metadata.Cost = 0.25
		return res, nil
	}
	cfg := testConfig()
	o := newTestOrchestrator(t, cfg, a)

	req := testRequest()
	sel := o.selectCandidates(context.Background(), req, cfg)

	att := o.attempt(context.Background(), req, sel.Candidates[0], cfg)
	if att.Err != nil {
		t.Fatalf("attempt: %v", att.Err)
	}
	if att.Cost != 0.25 {
		t.Errorf("expected the result's actual cost, got %f", att.Cost)
	}
	if m := o.EngineMetrics()["a"]; m.TotalCost != 0.25 {
		t.Errorf("expected metrics to accumulate the cost, got %f", m.TotalCost)
	}
}

func TestMeetsQuality(t *testing.T) {
	thresholds := QualityThresholds{
		MinSyntacticCorrectness: 0.6,
		MinSemanticPreservation: 0.6,
		MinOverallQuality:       0.6,
	}
	good := engine.QualityMetrics{SyntacticCorrectness: 0.8, SemanticPreservation: 0.7, OverallQuality: 0.75}
	if !meetsQuality(good, thresholds) {
		t.Error("expected quality above every bar to pass")
	}
	bad := good
	bad.SemanticPreservation = 0.5
	if meetsQuality(bad, thresholds) {
		t.Error("one dimension under its bar must fail the gate")
	}
}
