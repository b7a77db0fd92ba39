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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/store"
)

var lexiconDBPath string

var lexiconCmd = &cobra.Command{
	Use:   "lexicon",
	Short: "Manage the identifier lexicon",
	Long: `Add, list, and delete identifier lexicon entries.

Lexicon entries pin the translation of specific identifiers so every engine
renders them the same way. Useful for public API names, domain terms, and
identifiers shared across files.`,
}

var (
	lexiconListSource string
	lexiconListTarget string
)

var lexiconListCmd = &cobra.Command{
	Use:   "list",
	Short: "List lexicon entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		srcFilter, tgtFilter := "", ""
		if lexiconListSource != "" {
			src, err := dialect.Normalize(lexiconListSource)
			if err != nil {
				return fmt.Errorf("--source: %w", err)
			}
			srcFilter = src.String()
		}
		if lexiconListTarget != "" {
			tgt, err := dialect.Normalize(lexiconListTarget)
			if err != nil {
				return fmt.Errorf("--target: %w", err)
			}
			tgtFilter = tgt.String()
		}

		db, err := store.New(lexiconDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		// Empty strings list everything; flags narrow the filter.
		entries, err := db.ListLexicon(context.Background(), srcFilter, tgtFilter)
		if err != nil {
			return fmt.Errorf("failed to list lexicon: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("Lexicon is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSOURCE LANG\tTARGET LANG\tSOURCE IDENT\tTARGET IDENT")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.ID, e.SourceLang, e.TargetLang, e.SourceIdent, e.TargetIdent)
		}
		return w.Flush()
	},
}

var (
	lexiconAddSource string
	lexiconAddTarget string
)

var lexiconAddCmd = &cobra.Command{
	Use:   "add <source-ident> <target-ident>",
	Short: "Add or update a lexicon entry",
	Long: `Add a lexicon entry mapping a source identifier to its target rendering.

Example:
  perekod lexicon add "calc_total" "CalcTotal" --source python311 --target go119`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := dialect.Normalize(lexiconAddSource)
		if err != nil {
			return fmt.Errorf("--source: %w", err)
		}
		tgt, err := dialect.Normalize(lexiconAddTarget)
		if err != nil {
			return fmt.Errorf("--target: %w", err)
		}

		db, err := store.New(lexiconDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.AddLexiconEntry(context.Background(), src.String(), tgt.String(), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to add lexicon entry: %w", err)
		}
		fmt.Printf("Added: [%s→%s] %q → %q\n", src, tgt, args[0], args[1])
		return nil
	},
}

var lexiconDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a lexicon entry by ID",
	Long: `Delete a lexicon entry by its ID (shown in "perekod lexicon list").

Example:
  perekod lexicon delete lx_1234567890123456789`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(lexiconDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.DeleteLexiconEntry(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete lexicon entry: %w", err)
		}
		fmt.Printf("Deleted lexicon entry: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lexiconCmd)

	lexiconCmd.PersistentFlags().StringVar(&lexiconDBPath, "db", "./data/perekod.db", "Database path")

	// --source / --target flags on the list subcommand for optional filtering.
	lexiconListCmd.Flags().StringVarP(&lexiconListSource, "source", "s", "", "Filter by source dialect (e.g. python311)")
	lexiconListCmd.Flags().StringVarP(&lexiconListTarget, "target", "t", "", "Filter by target dialect (e.g. go119)")

	// --source / --target are required for add.
	lexiconAddCmd.Flags().StringVarP(&lexiconAddSource, "source", "s", "", "Source dialect (e.g. python311)")
	lexiconAddCmd.Flags().StringVarP(&lexiconAddTarget, "target", "t", "", "Target dialect (e.g. go119)")
	lexiconAddCmd.MarkFlagRequired("source")
	lexiconAddCmd.MarkFlagRequired("target")

	lexiconCmd.AddCommand(lexiconListCmd)
	lexiconCmd.AddCommand(lexiconAddCmd)
	lexiconCmd.AddCommand(lexiconDeleteCmd)
}
