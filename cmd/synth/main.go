// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command synth runs the Aleutian program synthesizer from the command
// line: solve tasks against a built-in DSL, and grow the DSL from the
// solutions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSynth/pkg/logging"
)

// version is overridden at build time via -ldflags.
var version = "dev"

var (
	logLevel string
	logDir   string
	jsonLogs bool
	quiet    bool

	logger *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "synth",
		Short: "Type-directed program synthesis over evolving DSLs",
		Long: `Synth searches for programs that reproduce input/output examples,
using type-directed beam search over a domain-specific language,
and can compress its solutions into new reusable primitives.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(logging.Config{
				Level:   logging.ParseLevel(logLevel),
				LogDir:  logDir,
				Service: "synth",
				JSON:    jsonLogs,
				Quiet:   quiet,
			})
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Close()
			}
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the synth version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("synth %s\n", version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "directory for JSON log files (disabled when empty)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit stderr logs as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress stderr logs")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(learnCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
