// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianSynth/services/synthesis/dsl"
)

// SolvedPair is one (task, accepted program) training example.
type SolvedPair struct {
	Task    *dsl.SynthesisTask
	Program *dsl.Program
}

// TrainerConfig tunes model training and preference weighting.
type TrainerConfig struct {
	// Tau is the similarity-kernel temperature. Smaller values focus the
	// prior on near-identical tasks. Default: 0.25.
	Tau float64

	// FallbackWeight is the kernel weight given to training pairs whose
	// task could not be embedded, keeping them from vanishing entirely.
	// Default: 0.05.
	FallbackWeight float64

	// Logger receives degraded-mode events. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultTrainerConfig returns the default configuration.
func DefaultTrainerConfig() *TrainerConfig {
	return &TrainerConfig{Tau: 0.25, FallbackWeight: 0.05}
}

// Trainer produces recognition Model generations from a solved corpus.
//
// Thread Safety: Safe for concurrent use; each Train call yields an
// independent immutable Model.
type Trainer struct {
	embedder Embedder
	config   *TrainerConfig
	logger   *slog.Logger
	nextGen  atomic.Int64
}

// NewTrainer creates a trainer. embedder may be nil, in which case every
// trained model degrades to uniform preference.
func NewTrainer(embedder Embedder, config *TrainerConfig) *Trainer {
	if config == nil {
		config = DefaultTrainerConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{embedder: embedder, config: config, logger: logger}
}

// modelEntry is one trained (embedding, primitive counts) pair.
type modelEntry struct {
	embedding []float32 // nil when embedding degraded
	counts    map[string]int
}

// Model is a trained recognition snapshot.
//
// # Description
//
// A Model maps a task embedding to per-primitive preference weights: the
// similarity-kernel-weighted frequency of each primitive across accepted
// programs for nearby tasks. Models are immutable after training; a new
// Train call produces a new generation.
//
// # Thread Safety
//
// Safe for unlimited concurrent readers.
type Model struct {
	id         uuid.UUID
	generation int
	entries    []modelEntry
	tau        float64
	fallback   float64
}

// Train builds a new model generation from solved (task, program) pairs.
//
// # Description
//
// Each task is embedded through the trainer's provider; an embedding
// failure demotes that pair to a small uniform fallback weight instead of
// failing training. Pairs with nil tasks or programs are skipped. An
// empty corpus yields a valid model whose preferences are empty.
func (t *Trainer) Train(ctx context.Context, pairs []SolvedPair) (*Model, error) {
	entries := make([]modelEntry, 0, len(pairs))
	for _, pair := range pairs {
		if pair.Task == nil || pair.Program == nil {
			continue
		}
		embedding := t.embedTask(ctx, pair.Task)
		entries = append(entries, modelEntry{
			embedding: embedding,
			counts:    pair.Program.PrimitiveCounts(),
		})
	}
	return &Model{
		id:         uuid.New(),
		generation: int(t.nextGen.Add(1)),
		entries:    entries,
		tau:        t.config.Tau,
		fallback:   t.config.FallbackWeight,
	}, nil
}

// EmbedTask embeds a task for preference lookup. Failure degrades to a
// nil vector; the search then runs with uniform preference.
func (t *Trainer) EmbedTask(ctx context.Context, task *dsl.SynthesisTask) []float32 {
	return t.embedTask(ctx, task)
}

func (t *Trainer) embedTask(ctx context.Context, task *dsl.SynthesisTask) []float32 {
	if t.embedder == nil || task == nil {
		return nil
	}
	vec, err := t.embedder.Embed(ctx, RenderTask(task))
	if err != nil {
		t.logger.Debug("task embedding failed, degrading to uniform preference",
			"task", task.Name, "error", err)
		return nil
	}
	return vec
}

// Similarity computes the cosine similarity of two tasks' embeddings,
// in [-1, 1]. Callers use it to warm-start new searches from solutions
// to similar past tasks; it is not required for correctness.
func (t *Trainer) Similarity(ctx context.Context, a, b *dsl.SynthesisTask) (float64, error) {
	va := t.embedTask(ctx, a)
	vb := t.embedTask(ctx, b)
	if va == nil || vb == nil {
		return 0, fmt.Errorf("%w: task could not be embedded", ErrInvalidInput)
	}
	return Cosine(va, vb), nil
}

// ID returns the unique snapshot identifier.
func (m *Model) ID() uuid.UUID { return m.id }

// Generation returns the training generation, starting at 1.
func (m *Model) Generation() int { return m.generation }

// Preferences maps a task embedding to per-primitive preference weights
// in [0, 1], 1 meaning strongest preference.
//
// A nil embedding returns nil: the caller falls back to uniform
// preference, which changes search order but never correctness.
func (m *Model) Preferences(embedding []float32) map[string]float64 {
	if embedding == nil || len(m.entries) == 0 {
		return nil
	}
	weights := make(map[string]float64)
	for _, entry := range m.entries {
		var kernel float64
		if entry.embedding == nil {
			kernel = m.fallback
		} else {
			// exp((sim-1)/tau) maps sim=1 to weight 1, decaying fast.
			sim := Cosine(embedding, entry.embedding)
			kernel = math.Exp((sim - 1) / m.tau)
		}
		for name, count := range entry.counts {
			weights[name] += kernel * float64(count)
		}
	}
	max := 0.0
	for _, w := range weights {
		if w > max {
			max = w
		}
	}
	if max <= 0 {
		return nil
	}
	for name := range weights {
		weights[name] /= max
	}
	return weights
}

// RenderTask renders a task to the deterministic text that gets embedded.
func RenderTask(task *dsl.SynthesisTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "task %s domain %s\n", task.Name, task.Domain)
	for _, ex := range task.TrainExamples {
		fmt.Fprintf(&b, "%s -> %s\n", ex.Input, ex.Output)
	}
	return b.String()
}

// Cosine computes the cosine similarity between two vectors, in [-1, 1].
// Mismatched or zero-length vectors yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
