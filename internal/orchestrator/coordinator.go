package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/valpere/perekod/internal/engine"
)

// Attempt is one engine try for one request. Cost is zero when the attempt
// failed.
type Attempt struct {
	Engine   string
	Result   *engine.Result
	Err      error
	Duration time.Duration
	Cost     float64
}

// runSequential tries candidates one at a time. A successful attempt that
// clears the confidence and quality bars stops the chain; with fallback
// disabled the chain stops after the first attempt regardless of outcome.
func (o *Orchestrator) runSequential(ctx context.Context, req engine.Request, sel Selection, cfg Config) []Attempt {
	attempts := make([]Attempt, 0, len(sel.Candidates))
	for _, cand := range sel.Candidates {
		att := o.attempt(ctx, req, cand, cfg)
		attempts = append(attempts, att)

		if !cfg.EnableFallback {
			break
		}
		if att.Err == nil &&
			att.Result.Confidence >= cfg.MinConfidenceThreshold &&
			meetsQuality(att.Result.Quality, cfg.QualityThresholds) {
			break
		}
	}
	return attempts
}

// runParallel launches every candidate concurrently, each independently
// time-boxed, and waits for all of them to settle. A candidate timing out
// fails that candidate only; siblings keep running.
func (o *Orchestrator) runParallel(ctx context.Context, req engine.Request, sel Selection, cfg Config) []Attempt {
	type indexed struct {
		index int
		att   Attempt
	}
	results := make(chan indexed, len(sel.Candidates))

	var wg sync.WaitGroup
	for i, cand := range sel.Candidates {
		wg.Add(1)
		go func(index int, cand Candidate) {
			defer wg.Done()
			results <- indexed{index: index, att: o.attempt(ctx, req, cand, cfg)}
		}(i, cand)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Attempts are re-ordered back into candidate order so score ties
	// resolve to the first-seen candidate.
	attempts := make([]Attempt, len(sel.Candidates))
	for r := range results {
		attempts[r.index] = r.att
	}
	return attempts
}

// attempt runs one translation bounded by MaxTimePerTranslation and folds
// the outcome into the engine's health and usage records, win or lose.
func (o *Orchestrator) attempt(ctx context.Context, req engine.Request, cand Candidate, cfg Config) Attempt {
	start := time.Now()
	actx, cancel := context.WithTimeout(ctx, cfg.MaxTimePerTranslation)
	defer cancel()

	type outcome struct {
		res *engine.Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := cand.rec.engine.Translate(actx, req)
		ch <- outcome{res: res, err: err}
	}()

	var res *engine.Result
	var err error
	select {
	case out := <-ch:
		res, err = out.res, out.err
	case <-actx.Done():
		err = fmt.Errorf("attempt timed out after %s: %w", cfg.MaxTimePerTranslation, actx.Err())
	}
	if err == nil && res == nil {
		err = fmt.Errorf("engine %s returned no result", cand.Name)
	}

	att := Attempt{
		Engine:   cand.Name,
		Duration: time.Since(start),
	}
	if err != nil {
		att.Err = err
	} else {
		att.Result = res
		att.Cost = res.Metadata.Cost
	}

	before, after := cand.rec.recordOutcome(err == nil, att.Duration, errString(err),
		cfg.SmoothingWeight, cfg.HealthCheck.FailureThreshold)
	cand.rec.recordAttemptMetrics(att)
	o.logHealthTransition(cand.Name, before, after)

	if err != nil {
		o.logger.Debug("attempt failed",
			"engine", cand.Name, "unit", req.Unit.ID,
			"duration", att.Duration, "error", err)
	} else {
		o.logger.Debug("attempt succeeded",
			"engine", cand.Name, "unit", req.Unit.ID,
			"duration", att.Duration, "confidence", res.Confidence)
	}
	return att
}

func meetsQuality(q engine.QualityMetrics, t QualityThresholds) bool {
	return q.SyntacticCorrectness >= t.MinSyntacticCorrectness &&
		q.SemanticPreservation >= t.MinSemanticPreservation &&
		q.OverallQuality >= t.MinOverallQuality
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (o *Orchestrator) logHealthTransition(name string, before, after bool) {
	switch {
	case before && !after:
		o.logger.Warn("engine became unhealthy", "engine", name)
	case !before && after:
		o.logger.Info("engine recovered", "engine", name)
	}
}
