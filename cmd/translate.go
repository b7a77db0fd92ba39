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
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/engine"
	"github.com/valpere/perekod/internal/orchestrator"
	"github.com/valpere/perekod/internal/quality"
	"github.com/valpere/perekod/internal/refiner"
	"github.com/valpere/perekod/internal/splitter"
	"github.com/valpere/perekod/internal/store"
)

var (
	inputFile  string
	outputFile string
	sourceLang string
	targetLang string

	engineNames []string
	strategy    string

	rulePacksDir string
	ollamaURL    string
	ollamaModel  string

	useRefine    bool
	refinerModel string
	refinerURL   string

	dbPath  string
	noCache bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a source file to another dialect",
	Long: `Translate a source file to another language dialect.

The file is split into translation units (functions, classes, the module
header) and each unit is handed to the orchestrator, which picks among the
configured engines:

  - rule     deterministic rewrite rules (fast, no network)
  - pattern  translation-memory similarity matching
  - llmgen   self-hosted LLM generation via Ollama

Restrict the engines in play: --engines rule,llmgen

Two-pass translation:
  --refine   polish the draft with an LLM pass; the polished code is kept
             only when it scores at least as well as the draft`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		raw, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		code := string(raw)

		ctx := context.Background()

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		if strategy != "" {
			cfg.Orchestrator.Strategy = orchestrator.Strategy(strategy)
			if err := cfg.Orchestrator.Validate(); err != nil {
				return err
			}
		}
		if rulePacksDir != "" {
			cfg.Engines.Rule.PacksDir = rulePacksDir
		}
		if ollamaURL != "" {
			cfg.Engines.LLM.BaseURL = ollamaURL
		}
		if ollamaModel != "" {
			cfg.Engines.LLM.Model = ollamaModel
		}
		applyEngineFilter(cfg, engineNames)

		tgt, err := dialect.Normalize(targetLang)
		if err != nil {
			return fmt.Errorf("invalid target language: %w", err)
		}

		var src dialect.Language
		if sourceLang == "auto" {
			detected, ok := dialect.Detect(code)
			if !ok {
				return fmt.Errorf("could not detect source language, pass --source")
			}
			src = detected
			fmt.Fprintf(os.Stderr, "Detected source language: %s\n", src)
		} else {
			src, err = dialect.Normalize(sourceLang)
			if err != nil {
				return fmt.Errorf("invalid source language: %w", err)
			}
		}

		var db *store.Store
		if !noCache {
			path := cfg.Store.Path
			if dbPath != "" {
				path = dbPath
			}
			db, err = store.New(path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			if cached, found, cacheErr := db.GetCachedTranslation(ctx, code, src.String(), tgt.String()); cacheErr == nil && found {
				fmt.Fprintf(os.Stderr, "Using cached translation\n")
				if err := writeOutput(outputFile, cached); err != nil {
					return err
				}
				fmt.Printf("Successfully translated %s to %s (from cache)\n", src, tgt)
				return nil
			}
		}

		orch, err := newOrchestrator(ctx, cfg, db, logger)
		if err != nil {
			return err
		}
		defer orch.Dispose()

		var lexicon map[string]string
		if db != nil {
			lexicon, err = db.GetLexicon(ctx, src.String(), tgt.String())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to load lexicon: %v\n", err)
			} else if len(lexicon) > 0 {
				fmt.Fprintf(os.Stderr, "Loaded %d lexicon entries\n", len(lexicon))
			}
		}

		units := splitter.Split(code, src)
		if len(units) == 0 {
			return fmt.Errorf("input file contains no code")
		}
		fmt.Fprintf(os.Stderr, "Split input into %d units\n", len(units))

		targets := make([]string, 0, len(units))
		enginesUsed := make(map[string]bool)
		cachedUnits := 0

		for i, u := range units {
			u.ID = uuid.New().String()
			u.Path = inputFile

			if db != nil && len(units) > 1 {
				if cached, found, cacheErr := db.GetCachedTranslation(ctx, u.Code, src.String(), tgt.String()); cacheErr == nil && found {
					targets = append(targets, cached)
					cachedUnits++
					continue
				}
			}

			// Trailing lines of the translated code so far keep naming
			// consistent across unit boundaries.
			var unitContext string
			if len(targets) > 0 {
				unitContext = splitter.ExtractContext(strings.Join(targets, "\n\n"), 0)
			}

			res, err := orch.Translate(ctx, engine.Request{
				Unit:       u,
				TargetLang: tgt,
				Lexicon:    lexicon,
				Context:    unitContext,
			})
			if err != nil {
				return fmt.Errorf("unit %d/%d: %w", i+1, len(units), err)
			}

			fmt.Fprintf(os.Stderr, "Unit %d/%d translated by %s (confidence %.2f)\n",
				i+1, len(units), res.Metadata.Engine, res.Confidence)
			targets = append(targets, res.TargetCode)
			enginesUsed[res.Metadata.Engine] = true

			if db != nil {
				saveUnitAudit(ctx, db, u, src, tgt, res)
				if len(units) > 1 {
					_ = db.SaveToMemory(ctx, u.Code, src.String(), tgt.String(), res.TargetCode, res.TargetCode, res.Metadata.Engine)
				}
			}
		}

		draft := strings.Join(targets, "\n\n")
		finalCode := draft
		refined := false

		// Stage 2: optional idiomatic polish pass.
		if useRefine || cfg.Refiner.Enabled {
			model := cfg.Refiner.Model
			if refinerModel != "" {
				model = refinerModel
			}
			baseURL := cfg.Refiner.BaseURL
			if refinerURL != "" {
				baseURL = refinerURL
			}

			fmt.Fprintf(os.Stderr, "Running refinement pass...\n")
			ref := refiner.NewOllamaRefiner(model, baseURL)
			polished, refErr := ref.Refine(ctx, src, tgt, code, draft)
			if refErr != nil {
				fmt.Fprintf(os.Stderr, "Refiner failed: %v, keeping draft\n", refErr)
			} else {
				draftQ := quality.Assess(code, src, draft, tgt)
				polishedQ := quality.Assess(code, src, polished, tgt)
				if polishedQ.OverallQuality >= draftQ.OverallQuality {
					finalCode = polished
					refined = true
					fmt.Fprintf(os.Stderr, "Refinement complete\n")
				} else {
					fmt.Fprintf(os.Stderr, "Refined code scored lower (%.2f < %.2f), keeping draft\n",
						polishedQ.OverallQuality, draftQ.OverallQuality)
				}
			}
		}

		if db != nil {
			label := engineLabel(enginesUsed)
			_ = db.SaveToMemory(ctx, code, src.String(), tgt.String(), finalCode, draft, label)
			if refined {
				_ = db.SaveDraft(ctx, code, src.String(), tgt.String(), draft, label)
			}
		}

		if err := writeOutput(outputFile, finalCode); err != nil {
			return err
		}

		fmt.Printf("Successfully translated %s to %s\n", src, tgt)
		fmt.Printf("Units translated: %d (%d from cache)\n", len(units), cachedUnits)
		if refined {
			fmt.Printf("Refinement pass applied\n")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to translate (required)")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file for translated code (required)")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "auto", "Source dialect (auto-detected when omitted)")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target dialect (required)")

	translateCmd.Flags().StringSliceVar(&engineNames, "engines", nil, "Engines to use (comma-separated; default: all enabled in config)")
	translateCmd.Flags().StringVar(&strategy, "strategy", "", "Selection strategy: priority, speed, cost, quality, reliability, best_result")

	translateCmd.Flags().StringVar(&rulePacksDir, "rule-packs", "", "Directory of extra rule packs (.yaml)")
	translateCmd.Flags().StringVar(&ollamaURL, "ollama-url", "", "Ollama base URL (overrides config)")
	translateCmd.Flags().StringVar(&ollamaModel, "ollama-model", "", "Ollama model for the LLM engine (overrides config)")

	translateCmd.Flags().BoolVar(&useRefine, "refine", false, "Enable Stage 2 idiomatic polish pass")
	translateCmd.Flags().StringVar(&refinerModel, "refiner-model", "", "Refiner model name (overrides config)")
	translateCmd.Flags().StringVar(&refinerURL, "refiner-url", "", "Refiner Ollama URL (overrides config)")

	translateCmd.Flags().StringVar(&dbPath, "db", "", "Database path (overrides store.path from config)")
	translateCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable translation memory cache")

	translateCmd.MarkFlagRequired("input")
	translateCmd.MarkFlagRequired("output")
	translateCmd.MarkFlagRequired("target")
}
