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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/store"
)

var enginesDBPath string

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "Inspect the configured translation engines",
	Long: `List the configured translation engines and probe their health.

"engines list" shows each engine's version, priority and language coverage.
"engines check" probes availability and prints the resulting health state.`,
}

var enginesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured engines and their capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}

		db := openEngineStore(cfg.Store.Path)
		if db != nil {
			defer db.Close()
		}

		engines, err := buildEngines(ctx, cfg, db)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tVERSION\tPRIORITY\tSOURCES\tTARGETS\tNETWORK")
		for _, e := range engines {
			caps := e.Capabilities()
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%v\n",
				e.Name(), e.Version(), e.Priority(),
				langList(caps.SourceLanguages), langList(caps.TargetLanguages),
				caps.RequiresNetwork)
		}
		return w.Flush()
	},
}

var enginesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every engine and show its health",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		db := openEngineStore(cfg.Store.Path)
		if db != nil {
			defer db.Close()
		}

		orch, err := newOrchestrator(ctx, cfg, db, logger)
		if err != nil {
			return err
		}
		defer orch.Dispose()

		orch.ForceHealthCheck(ctx)
		health := orch.HealthSnapshot()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tHEALTHY\tRESPONSE MS\tSUCCESS RATE\tFAILURES\tLAST ERROR")
		for _, name := range orch.Engines() {
			h := health[name]
			fmt.Fprintf(w, "%s\t%v\t%.0f\t%.2f\t%d\t%s\n",
				name, h.IsHealthy, h.AverageResponseMs, h.SuccessRate,
				h.ConsecutiveFailures, h.LastError)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if !orch.IsAvailable() {
			return fmt.Errorf("no healthy engines")
		}
		return nil
	},
}

// openEngineStore opens the translation memory database for the pattern
// engine, tolerating failure: the remaining engines still work without it.
func openEngineStore(path string) *store.Store {
	if enginesDBPath != "" {
		path = enginesDBPath
	}
	db, err := store.New(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to open database: %v\n", err)
		return nil
	}
	return db
}

func langList(langs []dialect.Language) string {
	names := make([]string, len(langs))
	for i, l := range langs {
		names[i] = l.String()
	}
	return strings.Join(names, ",")
}

func init() {
	rootCmd.AddCommand(enginesCmd)

	enginesCmd.PersistentFlags().StringVar(&enginesDBPath, "db", "", "Database path (overrides store.path from config)")

	enginesCmd.AddCommand(enginesListCmd)
	enginesCmd.AddCommand(enginesCheckCmd)
}
