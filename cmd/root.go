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
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "perekod",
	Short: "Source code dialect translator",
	Long: `A code translation tool that rewrites source files between language
dialects using pluggable engines: deterministic rewrite rules, a
translation-memory pattern matcher, and a self-hosted LLM.

An orchestrator coordinates the engines per translation unit: it ranks
candidates by the configured strategy, falls back when an engine fails,
and tracks engine health across requests.

Supported dialects: c17, cpp20, java17, go119, python311, rust2021
and the legacy inputs python2, perl5, basic.

Use "perekod translate --help" for translation options.`,
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./perekod.yaml)")
}
