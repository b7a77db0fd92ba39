package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/valpere/perekod/internal/engine"
)

func TestSelectCandidates_UnhealthyExcluded(t *testing.T) {
	a := newStub("a", 100)
	b := newStub("b", 50)
	o := newTestOrchestrator(t, testConfig(), a, b)

	rec, _ := o.record("a")
	for i := 0; i < 3; i++ {
		rec.recordOutcome(false, time.Millisecond, "down", 0.1, 3)
	}

	sel := o.Select(context.Background(), testRequest())
	if len(sel.Candidates) != 1 || sel.Candidates[0].Name != "b" {
		t.Fatalf("unexpected candidates %v", sel.CandidateNames())
	}
	if !strings.Contains(sel.Reasoning, "1 unhealthy") {
		t.Errorf("reasoning should count the unhealthy engine: %q", sel.Reasoning)
	}
}

func TestSelectCandidates_DeclineExcluded(t *testing.T) {
	a := newStub("a", 100)
	a.canHandleFunc = func(ctx context.Context, req engine.Request) (bool, error) {
		return false, nil
	}
	b := newStub("b", 50)
	b.canHandleFunc = func(ctx context.Context, req engine.Request) (bool, error) {
		return false, errors.New("probe exploded")
	}
	c := newStub("c", 10)
	o := newTestOrchestrator(t, testConfig(), a, b, c)

	sel := o.Select(context.Background(), testRequest())
	if len(sel.Candidates) != 1 || sel.Candidates[0].Name != "c" {
		t.Fatalf("unexpected candidates %v", sel.CandidateNames())
	}
	if !strings.Contains(sel.Reasoning, "2 declined") {
		t.Errorf("reasoning should count declines and probe errors: %q", sel.Reasoning)
	}
}

func TestSelectCandidates_CanHandleTimeout(t *testing.T) {
	a := newStub("a", 100)
	a.canHandleFunc = func(ctx context.Context, req engine.Request) (bool, error) {
		time.Sleep(300 * time.Millisecond)
		return true, nil
	}
	b := newStub("b", 50)
	cfg := testConfig()
	cfg.HealthCheck.Timeout = 30 * time.Millisecond
	o := newTestOrchestrator(t, cfg, a, b)

	sel := o.Select(context.Background(), testRequest())
	if len(sel.Candidates) != 1 || sel.Candidates[0].Name != "b" {
		t.Fatalf("a stalled applicability probe must only exclude its own engine, got %v", sel.CandidateNames())
	}
}

func TestSelectCandidates_EmptyReasoning(t *testing.T) {
	o := newTestOrchestrator(t, testConfig())

	sel := o.Select(context.Background(), testRequest())
	if sel.Reasoning != "no available engines" {
		t.Errorf("unexpected reasoning %q", sel.Reasoning)
	}
	if len(sel.Candidates) != 0 || sel.EstimatedCost != 0 || sel.EstimatedTime != 0 {
		t.Errorf("empty selection must carry no estimates: %+v", sel)
	}
}

func TestSelectCandidates_MaxEnginesCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEnginesPerTranslation = 2
	o := newTestOrchestrator(t, cfg, newStub("a", 30), newStub("b", 20), newStub("c", 10))

	sel := o.Select(context.Background(), testRequest())
	if len(sel.Candidates) != 2 {
		t.Fatalf("expected the candidate list capped at 2, got %v", sel.CandidateNames())
	}
	if sel.Candidates[0].Name != "a" || sel.Candidates[1].Name != "b" {
		t.Errorf("cap must keep the best-ranked candidates, got %v", sel.CandidateNames())
	}
}

func TestSelectCandidates_OverBudgetCounted(t *testing.T) {
	a := newStub("a", 100)
	a.costVal = 3.0
	b := newStub("b", 50)
	b.costVal = 0.2
	o := newTestOrchestrator(t, testConfig(), a, b)

	sel := o.Select(context.Background(), testRequest())
	if len(sel.Candidates) != 1 || sel.Candidates[0].Name != "b" {
		t.Fatalf("unexpected candidates %v", sel.CandidateNames())
	}
	if !strings.Contains(sel.Reasoning, "1 over budget") {
		t.Errorf("reasoning should count budget exclusions: %q", sel.Reasoning)
	}
}

func TestOrderCandidates_Priority(t *testing.T) {
	o := newTestOrchestrator(t, testConfig(), newStub("low", 10), newStub("high", 90), newStub("mid", 50))

	sel := o.Select(context.Background(), testRequest())
	want := []string{"high", "mid", "low"}
	got := sel.CandidateNames()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
	for i := 1; i < len(sel.Candidates); i++ {
		if sel.Candidates[i].Priority > sel.Candidates[i-1].Priority {
			t.Errorf("priorities must be non-increasing: %v", got)
		}
	}
}

func TestOrderCandidates_Speed(t *testing.T) {
	fast := newStub("fast", 10)
	fast.timeVal = 5 * time.Millisecond
	slow := newStub("slow", 90)
	slow.timeVal = 500 * time.Millisecond
	cfg := testConfig()
	cfg.Strategy = StrategySpeed
	o := newTestOrchestrator(t, cfg, slow, fast)

	sel := o.Select(context.Background(), testRequest())
	if sel.Candidates[0].Name != "fast" {
		t.Errorf("speed strategy must rank the quicker estimate first, got %v", sel.CandidateNames())
	}
}

func TestOrderCandidates_Cost(t *testing.T) {
	cheap := newStub("cheap", 10)
	cheap.costVal = 0.01
	pricey := newStub("pricey", 90)
	pricey.costVal = 0.8
	cfg := testConfig()
	cfg.Strategy = StrategyCost
	o := newTestOrchestrator(t, cfg, pricey, cheap)

	sel := o.Select(context.Background(), testRequest())
	if sel.Candidates[0].Name != "cheap" {
		t.Errorf("cost strategy must rank the cheaper estimate first, got %v", sel.CandidateNames())
	}
}

func TestOrderCandidates_Quality(t *testing.T) {
	sure := newStub("sure", 10)
	sure.confidenceVal = 0.95
	shaky := newStub("shaky", 90)
	shaky.confidenceVal = 0.4
	cfg := testConfig()
	cfg.Strategy = StrategyQuality
	o := newTestOrchestrator(t, cfg, shaky, sure)

	sel := o.Select(context.Background(), testRequest())
	if sel.Candidates[0].Name != "sure" {
		t.Errorf("quality strategy must rank higher expected confidence first, got %v", sel.CandidateNames())
	}
}

func TestOrderCandidates_Reliability(t *testing.T) {
	flaky := newStub("flaky", 90)
	steady := newStub("steady", 10)
	cfg := testConfig()
	cfg.Strategy = StrategyReliability
	o := newTestOrchestrator(t, cfg, flaky, steady)

	rec, _ := o.record("flaky")
	rec.recordOutcome(false, time.Millisecond, "hiccup", 0.1, 3)

	sel := o.Select(context.Background(), testRequest())
	if sel.Candidates[0].Name != "steady" {
		t.Errorf("a recent failure must discount reliability, got %v", sel.CandidateNames())
	}
	if sel.Candidates[1].ConsecutiveFailures != 1 {
		t.Errorf("candidate should carry its failure streak, got %d", sel.Candidates[1].ConsecutiveFailures)
	}
}

func TestReliabilityScore(t *testing.T) {
	c := Candidate{SuccessRate: 0.8, ConsecutiveFailures: 2}
	if got := reliabilityScore(c); got < 0.639 || got > 0.641 {
		t.Errorf("expected 0.8*(1-0.2)=0.64, got %f", got)
	}
	c = Candidate{SuccessRate: 1, ConsecutiveFailures: 15}
	if got := reliabilityScore(c); got != 0 {
		t.Errorf("penalty must saturate at 1, got %f", got)
	}
}

func TestSelection_CostEstimate(t *testing.T) {
	a := newStub("a", 90)
	a.costVal = 0.1
	b := newStub("b", 50)
	b.costVal = 0.3

	cfg := testConfig()
	o := newTestOrchestrator(t, cfg, a, b)
	sel := o.Select(context.Background(), testRequest())
	if sel.EstimatedCost < 0.39 || sel.EstimatedCost > 0.41 {
		t.Errorf("with fallback the estimate covers every candidate, got %f", sel.EstimatedCost)
	}

	cfg.EnableFallback = false
	if err := o.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	sel = o.Select(context.Background(), testRequest())
	if sel.EstimatedCost < 0.09 || sel.EstimatedCost > 0.11 {
		t.Errorf("without fallback only the first candidate is paid for, got %f", sel.EstimatedCost)
	}
}

func TestSelection_TimeEstimate(t *testing.T) {
	a := newStub("a", 90)
	a.timeVal = 10 * time.Millisecond
	b := newStub("b", 50)
	b.timeVal = 80 * time.Millisecond

	cfg := testConfig()
	o := newTestOrchestrator(t, cfg, a, b)
	sel := o.Select(context.Background(), testRequest())
	if sel.EstimatedTime != 10*time.Millisecond {
		t.Errorf("sequential estimate follows the first candidate, got %s", sel.EstimatedTime)
	}

	cfg.Strategy = StrategyBestResult
	if err := o.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	sel = o.Select(context.Background(), testRequest())
	if sel.EstimatedTime != 80*time.Millisecond {
		t.Errorf("a parallel race lasts as long as its slowest member, got %s", sel.EstimatedTime)
	}
}
