package orchestrator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valpere/perekod/internal/engine"
)

// scoreAttempt grades a successful attempt. Quality and confidence dominate;
// cost and time contribute what headroom remains under their ceilings.
func scoreAttempt(att Attempt, cfg Config) float64 {
	costTerm := 1 - att.Cost/cfg.MaxCostPerTranslation
	if costTerm < 0 {
		costTerm = 0
	}
	timeTerm := 1 - float64(att.Duration)/float64(cfg.MaxTimePerTranslation)
	if timeTerm < 0 {
		timeTerm = 0
	}

	w := cfg.ScoreWeights
	return att.Result.Quality.OverallQuality*w.Quality +
		att.Result.Confidence*w.Confidence +
		costTerm*w.Cost +
		timeTerm*w.Time
}

// pickWinner scores the successful attempts, selects the best (ties resolve
// to the first-seen candidate) and enriches it with orchestration metadata,
// runner-up alternatives and a fallback notice.
func (o *Orchestrator) pickWinner(attempts []Attempt, sel Selection, cfg Config) (*engine.Result, error) {
	type scored struct {
		att   Attempt
		score float64
	}

	var successes []scored
	var failures []string
	for _, att := range attempts {
		if att.Err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", att.Engine, att.Err))
			continue
		}
		successes = append(successes, scored{att: att, score: scoreAttempt(att, cfg)})
	}

	if len(successes) == 0 {
		var cause error
		for _, att := range attempts {
			if att.Err != nil {
				cause = att.Err
			}
		}
		return nil, &Error{
			Code:    ErrCodeAllFailed,
			Message: fmt.Sprintf("all %d engines failed: %s", len(attempts), strings.Join(failures, "; ")),
			Cause:   cause,
		}
	}

	best := 0
	for i := 1; i < len(successes); i++ {
		if successes[i].score > successes[best].score {
			best = i
		}
	}
	winner := successes[best].att.Result

	var totalCost float64
	var totalTime time.Duration
	for _, att := range attempts {
		totalCost += att.Cost
		totalTime += att.Duration
	}

	if winner.Metadata.Extra == nil {
		winner.Metadata.Extra = make(map[string]string)
	}
	extra := winner.Metadata.Extra
	extra["strategy"] = string(cfg.Strategy)
	extra["selection_reasoning"] = sel.Reasoning
	extra["engines_attempted"] = strconv.Itoa(len(attempts))
	extra["engines_succeeded"] = strconv.Itoa(len(successes))
	extra["total_cost"] = strconv.FormatFloat(totalCost, 'f', 6, 64)
	extra["total_time_ms"] = strconv.FormatInt(totalTime.Milliseconds(), 10)
	extra["fallback_used"] = strconv.FormatBool(len(attempts) > 1)
	extra["score"] = strconv.FormatFloat(successes[best].score, 'f', 4, 64)

	added := 0
	for i, s := range successes {
		if i == best || added == 2 {
			continue
		}
		winner.Alternatives = append(winner.Alternatives, alternativeFor(s.att))
		added++
	}

	if len(attempts) > 1 {
		winner.Warnings = append(winner.Warnings,
			fmt.Sprintf("fallback: %d engines attempted, %d succeeded", len(attempts), len(successes)))
	}
	return winner, nil
}

func alternativeFor(att Attempt) engine.Alternative {
	return engine.Alternative{
		TargetCode: att.Result.TargetCode,
		Confidence: att.Result.Confidence,
		Reasoning: fmt.Sprintf("engine %s: cost %.4f, time %s",
			att.Engine, att.Cost, att.Duration.Round(time.Millisecond)),
	}
}
