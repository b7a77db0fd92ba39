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
	"io/fs"
	"os"
	"path/filepath"
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
	dirInputDir   string
	dirOutputDir  string
	dirSourceLang string
	dirTargetLang string

	dirEngineNames []string
	dirStrategy    string

	dirRulePacksDir string
	dirOllamaURL    string
	dirOllamaModel  string

	dirUseRefine    bool
	dirRefinerModel string
	dirRefinerURL   string

	dirDBPath  string
	dirNoCache bool
	dirResume  string
)

// Source file extensions mapped to the dialect they are assumed to hold.
// Python files are assumed Python 3; pass --source python2 for legacy trees.
var sourceExtensions = map[string]dialect.Language{
	".c":    dialect.C17,
	".h":    dialect.C17,
	".cpp":  dialect.Cpp20,
	".cc":   dialect.Cpp20,
	".cxx":  dialect.Cpp20,
	".hpp":  dialect.Cpp20,
	".java": dialect.Java17,
	".go":   dialect.Go119,
	".py":   dialect.Python311,
	".rs":   dialect.Rust2021,
	".pl":   dialect.Perl5,
	".pm":   dialect.Perl5,
	".bas":  dialect.Basic,
}

var targetExtensions = map[dialect.Language]string{
	dialect.C17:       ".c",
	dialect.Cpp20:     ".cpp",
	dialect.Java17:    ".java",
	dialect.Go119:     ".go",
	dialect.Python311: ".py",
	dialect.Rust2021:  ".rs",
	dialect.Python2:   ".py",
	dialect.Perl5:     ".pl",
	dialect.Basic:     ".bas",
}

var dirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Translate every source file in a directory",
	Long: `Translate every recognized source file under a directory tree, writing
results to the same relative paths under the output directory with the
target dialect's file extension.

Each file is split into translation units and every unit is orchestrated
independently. Units that fail keep their original source so no code is
lost; failures are counted in the summary.

A checkpoint ID is printed at the start of each run. If the job is
interrupted, use --resume with that ID to skip already-translated units.

Example:
  perekod translate dir -i ./legacy -o ./modern -t go119
  perekod translate dir -i ./legacy -o ./modern -t go119 --resume cp_123456789`,
	RunE: func(cmd *cobra.Command, args []string) error {
		absIn, err := filepath.Abs(dirInputDir)
		if err != nil {
			return fmt.Errorf("invalid input directory: %w", err)
		}
		absOut, err := filepath.Abs(dirOutputDir)
		if err != nil {
			return fmt.Errorf("invalid output directory: %w", err)
		}
		if absIn == absOut {
			return fmt.Errorf("input directory and output directory cannot be the same")
		}

		ctx := context.Background()

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		if dirStrategy != "" {
			cfg.Orchestrator.Strategy = orchestrator.Strategy(dirStrategy)
			if err := cfg.Orchestrator.Validate(); err != nil {
				return err
			}
		}
		if dirRulePacksDir != "" {
			cfg.Engines.Rule.PacksDir = dirRulePacksDir
		}
		if dirOllamaURL != "" {
			cfg.Engines.LLM.BaseURL = dirOllamaURL
		}
		if dirOllamaModel != "" {
			cfg.Engines.LLM.Model = dirOllamaModel
		}
		applyEngineFilter(cfg, dirEngineNames)

		tgt, err := dialect.Normalize(dirTargetLang)
		if err != nil {
			return fmt.Errorf("invalid target language: %w", err)
		}

		var explicitSrc dialect.Language
		if dirSourceLang != "auto" {
			explicitSrc, err = dialect.Normalize(dirSourceLang)
			if err != nil {
				return fmt.Errorf("invalid source language: %w", err)
			}
		}

		var db *store.Store
		if !dirNoCache {
			path := cfg.Store.Path
			if dirDBPath != "" {
				path = dirDBPath
			}
			db, err = store.New(path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
		}

		// Load or create the checkpoint.
		var checkpointID string
		completedUnits := make(map[string]string)

		if dirResume != "" {
			if db == nil {
				return fmt.Errorf("--resume requires the cache, remove --no-cache")
			}
			if _, cpErr := db.GetBatchCheckpoint(ctx, dirResume); cpErr != nil {
				return fmt.Errorf("failed to load checkpoint: %w", cpErr)
			}
			checkpointID = dirResume
			units, cpErr := db.GetCheckpointUnits(ctx, checkpointID)
			if cpErr != nil {
				return fmt.Errorf("failed to load checkpoint units: %w", cpErr)
			}
			completedUnits = units
			fmt.Fprintf(os.Stderr, "Resuming checkpoint %s (%d units already done)\n", checkpointID, len(completedUnits))
		} else if db != nil {
			checkpointID, err = db.CreateBatchCheckpoint(ctx, dirInputDir, dirOutputDir, dirSourceLang, dirTargetLang)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to create checkpoint: %v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "Checkpoint ID: %s (use --resume %s to resume if interrupted)\n", checkpointID, checkpointID)
			}
		}

		orch, err := newOrchestrator(ctx, cfg, db, logger)
		if err != nil {
			return err
		}
		defer orch.Dispose()

		var (
			filesDone    int
			unitsTotal   int
			unitsCached  int
			unitsResumed int
			unitsFailed  int
		)

		walkErr := filepath.WalkDir(dirInputDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if abs, absErr := filepath.Abs(path); absErr == nil && abs == absOut {
					return filepath.SkipDir
				}
				return nil
			}

			src, recognized := sourceExtensions[strings.ToLower(filepath.Ext(path))]
			if !recognized {
				return nil
			}
			if explicitSrc != dialect.Unknown {
				src = explicitSrc
			}

			rel, err := filepath.Rel(dirInputDir, path)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", rel, err)
			}

			var lexicon map[string]string
			if db != nil {
				lexicon, _ = db.GetLexicon(ctx, src.String(), tgt.String())
			}

			units := splitter.Split(string(raw), src)
			var targets []string

			for idx, u := range units {
				unitsTotal++
				unitKey := fmt.Sprintf("%s:%d", rel, idx)

				if translated, done := completedUnits[unitKey]; done {
					targets = append(targets, translated)
					unitsResumed++
					continue
				}

				if db != nil {
					if cached, found, cacheErr := db.GetCachedTranslation(ctx, u.Code, src.String(), tgt.String()); cacheErr == nil && found {
						targets = append(targets, cached)
						unitsCached++
						if checkpointID != "" {
							_ = db.SaveCheckpointUnit(ctx, checkpointID, rel, idx, cached)
						}
						continue
					}
				}

				u.ID = uuid.New().String()
				u.Path = rel

				var unitContext string
				if len(targets) > 0 {
					unitContext = splitter.ExtractContext(strings.Join(targets, "\n\n"), 0)
				}

				res, trErr := orch.Translate(ctx, engine.Request{
					Unit:       u,
					TargetLang: tgt,
					Lexicon:    lexicon,
					Context:    unitContext,
				})
				if trErr != nil {
					fmt.Fprintf(os.Stderr, "File %s unit %d/%d: %v, keeping original source\n", rel, idx+1, len(units), trErr)
					targets = append(targets, u.Code)
					unitsFailed++
					continue
				}

				targets = append(targets, res.TargetCode)

				if db != nil {
					saveUnitAudit(ctx, db, u, src, tgt, res)
					_ = db.SaveToMemory(ctx, u.Code, src.String(), tgt.String(), res.TargetCode, res.TargetCode, res.Metadata.Engine)
					if checkpointID != "" {
						_ = db.SaveCheckpointUnit(ctx, checkpointID, rel, idx, res.TargetCode)
					}
				}
			}

			finalCode := strings.Join(targets, "\n\n")

			if dirUseRefine || cfg.Refiner.Enabled {
				model := cfg.Refiner.Model
				if dirRefinerModel != "" {
					model = dirRefinerModel
				}
				baseURL := cfg.Refiner.BaseURL
				if dirRefinerURL != "" {
					baseURL = dirRefinerURL
				}

				ref := refiner.NewOllamaRefiner(model, baseURL)
				polished, refErr := ref.Refine(ctx, src, tgt, string(raw), finalCode)
				if refErr != nil {
					fmt.Fprintf(os.Stderr, "Refiner failed on %s: %v, keeping draft\n", rel, refErr)
				} else {
					draftQ := quality.Assess(string(raw), src, finalCode, tgt)
					polishedQ := quality.Assess(string(raw), src, polished, tgt)
					if polishedQ.OverallQuality >= draftQ.OverallQuality {
						finalCode = polished
					}
				}
			}

			outRel := strings.TrimSuffix(rel, filepath.Ext(rel)) + targetExtensions[tgt]
			outPath := filepath.Join(dirOutputDir, outRel)
			if err := writeOutput(outPath, finalCode); err != nil {
				return err
			}

			filesDone++
			fmt.Fprintf(os.Stderr, "Translated %s -> %s (%d units)\n", rel, outRel, len(units))
			return nil
		})
		if walkErr != nil {
			return walkErr
		}

		if filesDone == 0 {
			return fmt.Errorf("no recognized source files under %s", dirInputDir)
		}

		if db != nil && checkpointID != "" {
			_ = db.CompleteBatchCheckpoint(ctx, checkpointID)
		}

		fmt.Printf("Directory translated successfully: %s\n", dirOutputDir)
		fmt.Printf("Files: %d, units: %d (%d from cache, %d resumed, %d failed)\n",
			filesDone, unitsTotal, unitsCached, unitsResumed, unitsFailed)
		return nil
	},
}

func init() {
	translateCmd.AddCommand(dirCmd)

	dirCmd.Flags().StringVarP(&dirInputDir, "input", "i", "", "Input directory (required)")
	dirCmd.Flags().StringVarP(&dirOutputDir, "output", "o", "", "Output directory (required)")
	dirCmd.Flags().StringVarP(&dirSourceLang, "source", "s", "auto", "Source dialect (by file extension when omitted)")
	dirCmd.Flags().StringVarP(&dirTargetLang, "target", "t", "", "Target dialect (required)")

	dirCmd.Flags().StringSliceVar(&dirEngineNames, "engines", nil, "Engines to use (comma-separated; default: all enabled in config)")
	dirCmd.Flags().StringVar(&dirStrategy, "strategy", "", "Selection strategy: priority, speed, cost, quality, reliability, best_result")

	dirCmd.Flags().StringVar(&dirRulePacksDir, "rule-packs", "", "Directory of extra rule packs (.yaml)")
	dirCmd.Flags().StringVar(&dirOllamaURL, "ollama-url", "", "Ollama base URL (overrides config)")
	dirCmd.Flags().StringVar(&dirOllamaModel, "ollama-model", "", "Ollama model for the LLM engine (overrides config)")

	dirCmd.Flags().BoolVar(&dirUseRefine, "refine", false, "Enable Stage 2 idiomatic polish pass per file")
	dirCmd.Flags().StringVar(&dirRefinerModel, "refiner-model", "", "Refiner model name (overrides config)")
	dirCmd.Flags().StringVar(&dirRefinerURL, "refiner-url", "", "Refiner Ollama URL (overrides config)")

	dirCmd.Flags().StringVar(&dirDBPath, "db", "", "Database path (overrides store.path from config)")
	dirCmd.Flags().BoolVar(&dirNoCache, "no-cache", false, "Disable translation memory cache and checkpoints")
	dirCmd.Flags().StringVar(&dirResume, "resume", "", "Resume from checkpoint ID (printed at start of original run)")

	dirCmd.MarkFlagRequired("input")
	dirCmd.MarkFlagRequired("output")
	dirCmd.MarkFlagRequired("target")
}
