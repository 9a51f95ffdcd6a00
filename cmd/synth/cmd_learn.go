// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSynth/services/synthesis/dsl"
	"github.com/AleutianAI/AleutianSynth/services/synthesis/learning"
)

var (
	strategyName string

	learnCmd = &cobra.Command{
		Use:   "learn",
		Short: "Solve a task file and compress the solutions into new primitives",
		Long: `Learn solves every task in the file, mines the solved programs for
reusable fragments with the chosen compression strategy, and prints
the evolved DSL generation.`,
		RunE: runLearn,
	}
)

func init() {
	learnCmd.Flags().StringVarP(&taskFilePath, "file", "f", "", "task file (JSON)")
	learnCmd.Flags().StringVar(&strategyName, "strategy", "anti_unification",
		"compression strategy (anti_unification|egraph|fragment_grammar)")
	// learn solves the task file before mining it, so it takes the same
	// search flags as solve.
	learnCmd.Flags().IntVar(&beamWidth, "beam", 32, "beam width")
	learnCmd.Flags().IntVar(&maxDepth, "depth", 4, "maximum program depth")
	learnCmd.Flags().DurationVar(&solveTimeout, "timeout", 10*time.Second, "per-task search timeout")
	_ = learnCmd.MarkFlagRequired("file")
}

func parseStrategy(name string) (learning.Strategy, error) {
	for _, s := range []learning.Strategy{learning.AntiUnification, learning.EGraph, learning.FragmentGrammar} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}

func runLearn(cmd *cobra.Command, args []string) error {
	strategy, err := parseStrategy(strategyName)
	if err != nil {
		return err
	}
	d, tasks, err := loadTasks(taskFilePath)
	if err != nil {
		return err
	}

	solved := solveAll(cmd.Context(), tasks)
	if len(solved) == 0 {
		return fmt.Errorf("no tasks solved, nothing to learn from")
	}

	usage := dsl.NewUsageStatistics()
	for _, prog := range solved {
		usage.Record(prog, 1)
	}

	proposals, err := learning.Extract(solved, strategy, &learning.Config{
		MinSupport:      2,
		MaxFragmentSize: 12,
		Logger:          logger.Slog(),
	})
	if err != nil {
		return fmt.Errorf("extracting proposals: %w", err)
	}
	logger.Info("extraction complete", "strategy", strategy.String(), "proposals", len(proposals))

	evolveCfg := dsl.DefaultEvolveConfig()
	evolveCfg.Logger = logger.Slog()
	next, err := dsl.Evolve(d, proposals, usage, evolveCfg)
	if err != nil {
		return fmt.Errorf("evolving dsl: %w", err)
	}

	fmt.Printf("%s: generation %d -> %d\n", next.Name(), d.Generation(), next.Generation())
	for _, prop := range proposals {
		fmt.Printf("  + %s%v -> %v = %s (cost %.2f, support %d)\n",
			prop.Name, prop.ArgTypes, prop.ResultType, prop.Body.String(), prop.Cost, prop.Occurrences)
	}
	return nil
}
