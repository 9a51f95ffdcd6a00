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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSynth/services/synthesis/dsl"
	"github.com/AleutianAI/AleutianSynth/services/synthesis/metta"
	"github.com/AleutianAI/AleutianSynth/services/synthesis/search"
)

var (
	taskFilePath string
	beamWidth    int
	maxDepth     int
	solveTimeout time.Duration
	emitMeTTa    bool

	solveCmd = &cobra.Command{
		Use:   "solve",
		Short: "Synthesize programs for the tasks in a task file",
		Long: `Solve reads a JSON task file, runs beam search for every task, and
prints the programs it finds. Tasks reference a built-in DSL by name:

  {
    "dsl": "arith",
    "tasks": [
      {"name": "doubling",
       "examples": [{"input": 1, "output": 2}, {"input": 3, "output": 6}]}
    ]
  }`,
		RunE: runSolve,
	}
)

func init() {
	solveCmd.Flags().StringVarP(&taskFilePath, "file", "f", "", "task file (JSON)")
	solveCmd.Flags().IntVar(&beamWidth, "beam", 32, "beam width")
	solveCmd.Flags().IntVar(&maxDepth, "depth", 4, "maximum program depth")
	solveCmd.Flags().DurationVar(&solveTimeout, "timeout", 10*time.Second, "per-task search timeout")
	solveCmd.Flags().BoolVar(&emitMeTTa, "metta", false, "also print each program as a MeTTa s-expression")
	_ = solveCmd.MarkFlagRequired("file")
}

// taskFile is the on-disk task format. Only integer examples are
// supported by the built-in DSLs.
type taskFile struct {
	DSL   string     `json:"dsl"`
	Tasks []taskSpec `json:"tasks"`
}

type taskSpec struct {
	Name     string        `json:"name"`
	Domain   string        `json:"domain"`
	Examples []exampleSpec `json:"examples"`
}

type exampleSpec struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
}

func loadTasks(path string) (*dsl.DSL, []*dsl.SynthesisTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading task file: %w", err)
	}
	var tf taskFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, nil, fmt.Errorf("parsing task file: %w", err)
	}
	d, err := builtinDSL(tf.DSL)
	if err != nil {
		return nil, nil, err
	}

	tasks := make([]*dsl.SynthesisTask, 0, len(tf.Tasks))
	for _, spec := range tf.Tasks {
		examples := make([]dsl.InputOutputExample, 0, len(spec.Examples))
		for _, ex := range spec.Examples {
			examples = append(examples, dsl.InputOutputExample{
				Input:  dsl.Int(ex.Input),
				Output: dsl.Int(ex.Output),
			})
		}
		tasks = append(tasks, &dsl.SynthesisTask{
			Name:          spec.Name,
			Domain:        spec.Domain,
			TrainExamples: examples,
			DSL:           d,
		})
	}
	return d, tasks, nil
}

// solveAll runs the synthesizer over every task. Failed tasks are
// reported and skipped; the returned programs are the successes.
func solveAll(ctx context.Context, tasks []*dsl.SynthesisTask) []*dsl.Program {
	synth := search.New(&search.Config{
		BeamWidth: beamWidth,
		MaxDepth:  maxDepth,
		Timeout:   solveTimeout,
		Logger:    logger.Slog(),
	})

	var solved []*dsl.Program
	for _, task := range tasks {
		start := time.Now()
		prog, err := synth.Synthesize(ctx, task)
		if err != nil {
			var serr *search.SynthesisError
			if errors.As(err, &serr) {
				logger.Warn("task failed", "task", task.Name, "kind", serr.Kind.String(), "detail", serr.Detail)
			} else {
				logger.Warn("task failed", "task", task.Name, "error", err)
			}
			continue
		}
		logger.Info("task solved",
			"task", task.Name,
			"program", prog.Tree.String(),
			"cost", prog.Cost,
			"duration", time.Since(start))
		solved = append(solved, prog)
	}
	return solved
}

func runSolve(cmd *cobra.Command, args []string) error {
	_, tasks, err := loadTasks(taskFilePath)
	if err != nil {
		return err
	}

	solved := solveAll(cmd.Context(), tasks)
	for _, prog := range solved {
		fmt.Printf("%s: %s (cost %.2f)\n", prog.Name, prog.Tree.String(), prog.Cost)
		if emitMeTTa {
			rendered, err := metta.TranslateDefinition(prog)
			if err != nil {
				return fmt.Errorf("rendering %s: %w", prog.Name, err)
			}
			fmt.Println("  " + rendered)
		}
	}
	if len(solved) < len(tasks) {
		return fmt.Errorf("solved %d of %d tasks", len(solved), len(tasks))
	}
	return nil
}
