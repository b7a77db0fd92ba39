package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/valpere/perekod/internal/engine"
)

// Candidate is one engine slated for an attempt, with its estimates taken
// at selection time.
type Candidate struct {
	Name                string        `json:"name"`
	Priority            int           `json:"priority"`
	Confidence          float64       `json:"confidence"`
	EstimatedCost       float64       `json:"estimated_cost"`
	EstimatedTime       time.Duration `json:"estimated_time"`
	SuccessRate         float64       `json:"success_rate"`
	ConsecutiveFailures int           `json:"consecutive_failures"`

	rec *engineRecord
}

// Selection is the ordered candidate plan for one request. It is ephemeral;
// nothing in it is persisted.
type Selection struct {
	Candidates    []Candidate   `json:"candidates"`
	Reasoning     string        `json:"reasoning"`
	EstimatedCost float64       `json:"estimated_cost"`
	EstimatedTime time.Duration `json:"estimated_time"`

	// budgetExcluded counts engines that passed health and applicability
	// but whose cost estimate exceeds the configured ceiling. A selection
	// emptied solely by the ceiling is a configuration failure, not an
	// availability one.
	budgetExcluded int
}

// CandidateNames lists the candidate engine names in attempt order.
func (s Selection) CandidateNames() []string {
	return candidateNames(s.Candidates)
}

func (o *Orchestrator) selectCandidates(ctx context.Context, req engine.Request, cfg Config) Selection {
	records := o.snapshotRecords()

	var candidates []Candidate
	var unhealthy, declined, overBudget int

	for _, rec := range records {
		health := rec.healthSnapshot()
		if !health.IsHealthy {
			unhealthy++
			continue
		}

		ok, err := boundedCanHandle(ctx, rec.engine, req, cfg.HealthCheck.Timeout)
		if err != nil {
			// An applicability probe failing excludes the engine, never
			// the whole selection.
			o.logger.Debug("applicability check failed",
				"engine", rec.engine.Name(), "error", err)
			declined++
			continue
		}
		if !ok {
			declined++
			continue
		}

		cost := rec.engine.EstimateCost(req)
		if cost > cfg.MaxCostPerTranslation {
			overBudget++
			continue
		}

		name := rec.engine.Name()
		candidates = append(candidates, Candidate{
			Name:                name,
			Priority:            effectivePriority(name, rec.engine.Priority(), cfg),
			Confidence:          rec.engine.Confidence(ctx, req),
			EstimatedCost:       cost,
			EstimatedTime:       rec.engine.EstimateTime(req),
			SuccessRate:         health.SuccessRate,
			ConsecutiveFailures: health.ConsecutiveFailures,
			rec:                 rec,
		})
	}

	if len(candidates) == 0 {
		return Selection{
			Reasoning:      "no available engines",
			budgetExcluded: overBudget,
		}
	}

	orderCandidates(candidates, cfg)

	if len(candidates) > cfg.MaxEnginesPerTranslation {
		candidates = candidates[:cfg.MaxEnginesPerTranslation]
	}

	sel := Selection{
		Candidates: candidates,
		Reasoning: fmt.Sprintf("strategy=%s: selected %s (%d unhealthy, %d declined, %d over budget)",
			cfg.Strategy, strings.Join(candidateNames(candidates), " > "),
			unhealthy, declined, overBudget),
	}

	// Sequential runs stop at the first qualifying result, so later
	// candidates are conditional; parallel runs pay for everyone at once.
	if cfg.EnableFallback {
		for _, c := range candidates {
			sel.EstimatedCost += c.EstimatedCost
		}
	} else {
		sel.EstimatedCost = candidates[0].EstimatedCost
	}
	if cfg.Strategy == StrategyBestResult {
		for _, c := range candidates {
			if c.EstimatedTime > sel.EstimatedTime {
				sel.EstimatedTime = c.EstimatedTime
			}
		}
	} else {
		sel.EstimatedTime = candidates[0].EstimatedTime
	}
	return sel
}

func candidateNames(candidates []Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return names
}

func effectivePriority(name string, static int, cfg Config) int {
	if override, ok := cfg.EnginePriorities[name]; ok {
		return override
	}
	return static
}

// orderCandidates sorts in place per the strategy. Sorting is stable so
// ties keep registration order, which is what breaks score ties later.
func orderCandidates(candidates []Candidate, cfg Config) {
	switch cfg.Strategy {
	case StrategyPriority:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Priority > candidates[j].Priority
		})
	case StrategySpeed:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].EstimatedTime < candidates[j].EstimatedTime
		})
	case StrategyCost:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].EstimatedCost < candidates[j].EstimatedCost
		})
	case StrategyQuality:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Confidence*candidates[i].SuccessRate >
				candidates[j].Confidence*candidates[j].SuccessRate
		})
	case StrategyReliability:
		sort.SliceStable(candidates, func(i, j int) bool {
			return reliabilityScore(candidates[i]) > reliabilityScore(candidates[j])
		})
	case StrategyBestResult:
		// Every survivor races; filter order is kept.
	}
}

func reliabilityScore(c Candidate) float64 {
	penalty := float64(c.ConsecutiveFailures) * 0.1
	if penalty > 1 {
		penalty = 1
	}
	return c.SuccessRate * (1 - penalty)
}

// boundedCanHandle asks the engine whether it can service the request,
// abandoning the probe at the timeout. An abandoned probe counts as a
// decline for this engine only.
func boundedCanHandle(ctx context.Context, e engine.Engine, req engine.Request, timeout time.Duration) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		ok  bool
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		ok, err := e.CanHandle(cctx, req)
		ch <- outcome{ok: ok, err: err}
	}()

	select {
	case out := <-ch:
		return out.ok, out.err
	case <-cctx.Done():
		return false, fmt.Errorf("applicability check timed out: %w", cctx.Err())
	}
}
