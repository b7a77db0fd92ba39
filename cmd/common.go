/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/valpere/perekod/internal/config"
	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/engine"
	"github.com/valpere/perekod/internal/engine/llmgen"
	"github.com/valpere/perekod/internal/engine/pattern"
	"github.com/valpere/perekod/internal/engine/rule"
	"github.com/valpere/perekod/internal/orchestrator"
	"github.com/valpere/perekod/internal/store"
)

// loadConfig reads the file named by --config (or ./perekod.yaml when unset)
// and builds the logger from its logging section.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, config.NewLogger(cfg.Logging.Level, cfg.Logging.JSON), nil
}

// buildEngines constructs every engine enabled in cfg. The pattern engine
// needs the translation memory store and is skipped when db is nil. An
// engine whose Initialize fails is skipped with a warning so one bad engine
// does not block the others.
func buildEngines(ctx context.Context, cfg *config.Config, db *store.Store) ([]engine.Engine, error) {
	var list []engine.Engine

	if cfg.Engines.Rule.Enabled {
		e, err := rule.New(cfg.Engines.Rule.Priority)
		if err != nil {
			return nil, fmt.Errorf("rule engine: %w", err)
		}
		settings := map[string]any{}
		if cfg.Engines.Rule.PacksDir != "" {
			settings["packs_dir"] = cfg.Engines.Rule.PacksDir
		}
		if err := e.Initialize(ctx, settings); err != nil {
			fmt.Fprintf(os.Stderr, "Rule engine failed to initialize: %v, skipping\n", err)
		} else {
			list = append(list, e)
		}
	}

	if cfg.Engines.Pattern.Enabled {
		if db == nil {
			fmt.Fprintf(os.Stderr, "Pattern engine needs the database, skipping\n")
		} else {
			e := pattern.New(db, cfg.Engines.Pattern.Priority)
			if err := e.Initialize(ctx, map[string]any{"min_similarity": cfg.Engines.Pattern.MinSimilarity}); err != nil {
				fmt.Fprintf(os.Stderr, "Pattern engine failed to initialize: %v, skipping\n", err)
			} else {
				list = append(list, e)
			}
		}
	}

	if cfg.Engines.LLM.Enabled {
		e := llmgen.New(cfg.Engines.LLM.BaseURL, cfg.Engines.LLM.Model, cfg.Engines.LLM.Priority)
		settings := map[string]any{
			"timeout_seconds": float64(cfg.Engines.LLM.TimeoutSeconds),
		}
		if err := e.Initialize(ctx, settings); err != nil {
			fmt.Fprintf(os.Stderr, "LLM engine failed to initialize: %v, skipping\n", err)
		} else {
			list = append(list, e)
		}
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("no translation engines configured")
	}
	return list, nil
}

// newOrchestrator builds an orchestrator with every configured engine
// registered. The caller owns Dispose.
func newOrchestrator(ctx context.Context, cfg *config.Config, db *store.Store, logger *slog.Logger) (*orchestrator.Orchestrator, error) {
	engines, err := buildEngines(ctx, cfg, db)
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(cfg.Orchestrator, logger)
	if err != nil {
		return nil, err
	}
	for _, e := range engines {
		if err := orch.Register(e); err != nil {
			orch.Dispose()
			return nil, fmt.Errorf("register engine %s: %w", e.Name(), err)
		}
	}
	return orch, nil
}

// applyEngineFilter narrows the enabled engines to the named ones. Unknown
// names are skipped with a warning.
func applyEngineFilter(cfg *config.Config, names []string) {
	if len(names) == 0 {
		return
	}
	want := make(map[string]bool, len(names))
	for _, name := range names {
		switch name {
		case "rule", "pattern", "llmgen":
			want[name] = true
		default:
			fmt.Fprintf(os.Stderr, "Unknown engine: %s, skipping\n", name)
		}
	}
	cfg.Engines.Rule.Enabled = want["rule"]
	cfg.Engines.Pattern.Enabled = want["pattern"]
	cfg.Engines.LLM.Enabled = want["llmgen"]
}

// writeOutput writes code to path, creating parent directories as needed.
func writeOutput(path, code string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// engineLabel names the engine set that produced a translation, e.g.
// "rule" or "llmgen+rule".
func engineLabel(used map[string]bool) string {
	if len(used) == 0 {
		return "cache"
	}
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "+")
}

// saveUnitAudit records one orchestrated unit translation: the request, the
// winning attempt and the selection outcome. High-confidence results also
// feed the pattern corpus so future similar units can skip the slower
// engines.
func saveUnitAudit(ctx context.Context, db *store.Store, u engine.Unit, src, tgt dialect.Language, res *engine.Result) {
	_ = db.SaveRequest(ctx, u.ID, u.Code, src.String(), tgt.String(), time.Now())
	_ = db.SaveAttempt(ctx, u.ID, res.Metadata.Engine, res.TargetCode, res.Confidence,
		res.Quality.OverallQuality, int(res.Metadata.ProcessingTime.Milliseconds()), res.Metadata.Cost, "")

	extra := res.Metadata.Extra
	score, _ := strconv.ParseFloat(extra["score"], 64)
	_ = db.SaveFinalTranslation(ctx, u.ID, res.Metadata.Engine, res.TargetCode,
		extra["strategy"], extra["fallback_used"] == "true", score, extra["selection_reasoning"])

	if res.Confidence >= 0.8 {
		_ = db.AddPattern(ctx, src.String(), tgt.String(), u.Code, res.TargetCode, res.Confidence)
	}
}
