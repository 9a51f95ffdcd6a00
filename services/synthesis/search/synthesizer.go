// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search implements the type-directed, cost-bounded beam-search
// synthesizer.
//
// # Algorithm
//
// The search is bottom-up: the beam holds complete, well-typed candidate
// trees of every type the DSL can produce. Each depth combines beam
// members as arguments into every primitive whose declared argument types
// match (ill-typed combinations are never generated), scores the results,
// evaluates candidates of the required result type against the training
// examples, and truncates back to the beam width under a deterministic
// total order. The first depth that yields an accepted solution finishes
// in full, so the cheapest solution at that depth wins regardless of
// internal parallelism.
//
// # Determinism
//
// Candidate evaluation may run on several goroutines, but each worker
// writes only to its own candidates and the winner is selected by a
// deterministic comparison (score, then tree size, then root primitive
// name, then canonical rendering) in a sequential pass. Identical inputs
// yield an identical chosen Program.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianSynth/services/synthesis/dsl"
	"github.com/AleutianAI/AleutianSynth/services/synthesis/eval"
	"github.com/AleutianAI/AleutianSynth/services/synthesis/recognition"
	"github.com/AleutianAI/AleutianSynth/services/synthesis/telemetry"
)

// EqualFunc compares a candidate output against an expected output.
// Implementations must be safe for concurrent use.
type EqualFunc func(got, want dsl.Value) bool

// Config tunes the beam search. Scoring weights shape search order only;
// they are not part of the correctness contract.
type Config struct {
	// BeamWidth is the number of candidates retained per depth.
	// Default: 32.
	BeamWidth int

	// MaxDepth is the maximum expansion depth. Default: 4.
	MaxDepth int

	// Timeout bounds one Synthesize call. Zero relies on the caller's
	// context alone. Default: 10s.
	Timeout time.Duration

	// SizePenalty is the per-node cost added to a candidate's score,
	// preferring smaller trees. Default: 0.05.
	SizePenalty float64

	// RecognitionWeight scales the recognition bonus subtracted from a
	// candidate's score. Default: 0.5.
	RecognitionWeight float64

	// Parallelism is the number of evaluation workers. Default:
	// runtime.GOMAXPROCS(0).
	Parallelism int

	// EvalSteps is the per-candidate evaluation step budget. Zero uses
	// the evaluator default.
	EvalSteps int

	// Equal is the output equality predicate. Default: exact Value
	// equality.
	Equal EqualFunc

	// Logger receives search progress at debug level. Default:
	// slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BeamWidth:         32,
		MaxDepth:          4,
		Timeout:           10 * time.Second,
		SizePenalty:       0.05,
		RecognitionWeight: 0.5,
		Parallelism:       runtime.GOMAXPROCS(0),
	}
}

// Synthesizer searches for programs consistent with example sets.
//
// # Description
//
// A Synthesizer is stateless across calls: Synthesize is a pure function
// of its inputs plus the optionally injected immutable recognition model,
// so every call is independently retryable and calls against the same
// DSL/model snapshots run concurrently without locks.
//
// # Thread Safety
//
// Safe for concurrent use.
type Synthesizer struct {
	config   *Config
	logger   *slog.Logger
	model    *recognition.Model
	embedder recognition.Embedder
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
}

// New creates a synthesizer. If config is nil, DefaultConfig is used.
func New(config *Config) *Synthesizer {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.BeamWidth <= 0 {
		cfg.BeamWidth = 32
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 4
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = runtime.GOMAXPROCS(0)
	}
	if cfg.Equal == nil {
		cfg.Equal = func(got, want dsl.Value) bool { return got.Equal(want) }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		config: &cfg,
		logger: logger,
		tracer: telemetry.Tracer(),
	}
}

// WithRecognition injects a trained recognition model and the embedder
// used to embed incoming tasks. Disabling recognition only changes search
// order, never correctness.
func (s *Synthesizer) WithRecognition(model *recognition.Model, embedder recognition.Embedder) *Synthesizer {
	s.model = model
	s.embedder = embedder
	return s
}

// WithMetrics injects telemetry instruments. Optional.
func (s *Synthesizer) WithMetrics(m *telemetry.Metrics) *Synthesizer {
	s.metrics = m
	return s
}

// candidate is one complete, well-typed tree in the beam.
type candidate struct {
	node    *dsl.ASTNode
	typ     dsl.Type
	cost    float64 // sum of primitive costs in the tree
	size    int
	bonus   float64 // accumulated recognition preference
	score   float64
	faulted bool
	solved  bool
}

// rootName orders candidates with equal score and size.
func (c *candidate) rootName() string {
	if c.node.Kind == dsl.NodeLiteral {
		return c.node.Literal.String()
	}
	return c.node.Name
}

// less is the deterministic total order over candidates.
func less(a, b *candidate) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	if a.size != b.size {
		return a.size < b.size
	}
	if an, bn := a.rootName(), b.rootName(); an != bn {
		return an < bn
	}
	return a.node.String() < b.node.String()
}

// Synthesize searches for a program consistent with the task's training
// examples.
//
// # Description
//
// Implements type-directed, cost-bounded beam search. Failures are typed:
// inconsistent examples fail before any search, an unproducible result
// type fails with ErrTypeMismatch, expiry of the budget with the beam
// still live is ErrTimeout, and exhausting depth/beam without a solution
// is ErrNoSolutionInBudget. Per-candidate evaluation faults are contained
// (the candidate's score becomes +Inf) and never abort the search.
//
// On cancellation the best already-accepted solution, if any, is returned
// promptly instead of an error.
//
// # Inputs
//
//   - ctx: cancellation; combined with Config.Timeout.
//   - task: examples plus the DSL generation to search in.
//
// # Outputs
//
//   - *dsl.Program: the accepted program, locally optimal among all
//     complete correct candidates expanded within budget.
//   - error: a *SynthesisError matching one of this package's sentinels.
func (s *Synthesizer) Synthesize(ctx context.Context, task *dsl.SynthesisTask) (*dsl.Program, error) {
	if task == nil || task.DSL == nil {
		return nil, fmt.Errorf("%w: nil task or DSL", ErrInvalidTask)
	}
	if len(task.TrainExamples) == 0 {
		return nil, fmt.Errorf("%w: no training examples", ErrInvalidTask)
	}

	ctx, span := s.tracer.Start(ctx, "synthesis.Synthesize",
		trace.WithAttributes(
			attribute.String("task", task.Name),
			attribute.String("dsl", task.DSL.Name()),
			attribute.Int("dsl_generation", task.DSL.Generation()),
		))
	defer span.End()

	start := time.Now()
	prog, err := s.search(ctx, task)
	s.recordOutcome(ctx, err, time.Since(start))
	return prog, err
}

func (s *Synthesizer) recordOutcome(ctx context.Context, err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := "solved"
	if err != nil {
		outcome = "failed"
		var serr *SynthesisError
		if errors.As(err, &serr) {
			outcome = serr.Kind.String()
		}
	}
	s.metrics.SearchesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	s.metrics.SearchDuration.Record(ctx, elapsed.Seconds())
}

func (s *Synthesizer) search(ctx context.Context, task *dsl.SynthesisTask) (*dsl.Program, error) {
	d := task.DSL
	eq := s.config.Equal

	// Eager inconsistency detection, before any search.
	for i := 0; i < len(task.TrainExamples); i++ {
		for j := i + 1; j < len(task.TrainExamples); j++ {
			a, b := task.TrainExamples[i], task.TrainExamples[j]
			if a.Input.Equal(b.Input) && !eq(a.Output, b.Output) {
				return nil, failure(KindInconsistentExamples, task.Name,
					fmt.Sprintf("input %s maps to both %s and %s", a.Input, a.Output, b.Output), nil)
			}
		}
	}

	required := task.TrainExamples[0].Output.Type()
	inputType := task.TrainExamples[0].Input.Type()
	if inputType != required && len(d.PrimitivesProducing(required)) == 0 {
		return nil, failure(KindTypeMismatch, task.Name,
			fmt.Sprintf("no primitive produces %q", required), nil)
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	prefs := s.preferences(ctx, task)

	beam := s.seed(d, inputType, prefs)
	if err := s.evaluate(ctx, task, d, beam, required, eq); err != nil {
		return nil, timedOut(task, 0, err)
	}
	if best := bestSolved(beam); best != nil {
		return s.accept(task, best, 0)
	}

	for depth := 1; depth <= s.config.MaxDepth; depth++ {
		if ctx.Err() != nil {
			return nil, timedOut(task, depth, ctx.Err())
		}

		generated := s.expand(ctx, d, beam, prefs)
		if len(generated) == 0 {
			break // beam exhausted, nothing new is derivable
		}
		if s.metrics != nil {
			s.metrics.CandidatesExpanded.Add(ctx, int64(len(generated)))
		}

		if err := s.evaluate(ctx, task, d, generated, required, eq); err != nil {
			return nil, timedOut(task, depth, err)
		}
		if best := bestSolved(generated); best != nil {
			if s.metrics != nil {
				s.metrics.SearchDepthReached.Record(ctx, int64(depth))
			}
			return s.accept(task, best, depth)
		}

		beam = truncate(append(beam, generated...), s.config.BeamWidth)
		s.logger.Debug("beam depth complete",
			"task", task.Name, "depth", depth, "generated", len(generated), "beam", len(beam))
	}

	return nil, failure(KindNoSolutionInBudget, task.Name,
		fmt.Sprintf("depth %d, beam %d", s.config.MaxDepth, s.config.BeamWidth), nil)
}

// preferences embeds the task and consults the recognition model. Any
// failure degrades to uniform preference.
func (s *Synthesizer) preferences(ctx context.Context, task *dsl.SynthesisTask) map[string]float64 {
	if s.model == nil || s.embedder == nil {
		return nil
	}
	vec, err := s.embedder.Embed(ctx, recognition.RenderTask(task))
	if err != nil {
		s.logger.Debug("task embedding failed, searching with uniform preference",
			"task", task.Name, "error", err)
		if s.metrics != nil {
			s.metrics.EmbeddingFailures.Add(ctx, 1)
		}
		return nil
	}
	return s.model.Preferences(vec)
}

// seed builds the depth-0 beam: the input variable and every zero-arity
// primitive. Terminals of all types stay in the beam so they can feed
// argument slots of later combinations.
func (s *Synthesizer) seed(d *dsl.DSL, inputType dsl.Type, prefs map[string]float64) []*candidate {
	seeds := []*candidate{s.newCandidate(dsl.NewVariableNode(dsl.InputVariable), inputType, 0, 1, 0)}
	for _, p := range d.Primitives() {
		if p.Arity() != 0 {
			continue
		}
		node := &dsl.ASTNode{Kind: dsl.NodePrimitive, Name: p.Name}
		seeds = append(seeds, s.newCandidate(node, p.ResultType, p.Cost, 1, prefs[p.Name]))
	}
	return seeds
}

func (s *Synthesizer) newCandidate(node *dsl.ASTNode, typ dsl.Type, cost float64, size int, bonus float64) *candidate {
	return &candidate{
		node:  node,
		typ:   typ,
		cost:  cost,
		size:  size,
		bonus: bonus,
		score: cost + s.config.SizePenalty*float64(size) - s.config.RecognitionWeight*bonus,
	}
}

// expand combines beam members as arguments into every primitive whose
// declared argument types match. Ill-typed combinations are never
// generated.
func (s *Synthesizer) expand(ctx context.Context, d *dsl.DSL, beam []*candidate, prefs map[string]float64) []*candidate {
	var out []*candidate
	args := make([]*candidate, 0, 4)
	for _, p := range d.Primitives() {
		if p.Arity() == 0 {
			continue
		}
		if ctx.Err() != nil {
			return out
		}
		s.combine(ctx, p, beam, args, prefs, &out)
	}
	return out
}

// combine enumerates typed argument tuples for p recursively, in beam
// order, so generation order is deterministic. Tuple enumeration is
// O(beam^arity), so the context is re-checked at every recursion level,
// not just once per primitive.
func (s *Synthesizer) combine(ctx context.Context, p dsl.Primitive, beam []*candidate, args []*candidate, prefs map[string]float64, out *[]*candidate) {
	if ctx.Err() != nil {
		return
	}
	slot := len(args)
	if slot == p.Arity() {
		cost := p.Cost
		size := 1
		bonus := prefs[p.Name]
		children := make([]*dsl.ASTNode, len(args))
		for i, a := range args {
			cost += a.cost
			size += a.size
			bonus += a.bonus
			children[i] = a.node
		}
		node := &dsl.ASTNode{Kind: dsl.NodePrimitive, Name: p.Name, Children: children}
		*out = append(*out, s.newCandidate(node, p.ResultType, cost, size, bonus))
		return
	}
	want := p.ArgTypes[slot]
	for _, member := range beam {
		if member.faulted || member.typ != want {
			continue
		}
		s.combine(ctx, p, beam, append(args, member), prefs, out)
	}
}

// evaluate runs every required-type candidate against all training
// examples, in parallel, marking solutions and containing faults. Workers
// write only to their own candidates; selection happens afterwards in a
// deterministic sequential pass.
func (s *Synthesizer) evaluate(ctx context.Context, task *dsl.SynthesisTask, d *dsl.DSL, cands []*candidate, required dsl.Type, eq EqualFunc) error {
	var evalCfg *eval.Config
	if s.config.EvalSteps > 0 {
		evalCfg = &eval.Config{MaxSteps: s.config.EvalSteps}
	}

	workers := s.config.Parallelism
	if workers > len(cands) {
		workers = len(cands)
	}
	if workers < 1 {
		workers = 1
	}

	var faults atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := w; i < len(cands); i += workers {
				c := cands[i]
				if c.typ != required || c.faulted {
					continue
				}
				solved := true
				for _, ex := range task.TrainExamples {
					bindings := map[string]dsl.Value{dsl.InputVariable: ex.Input}
					got, err := eval.Evaluate(gctx, c.node, d, bindings, evalCfg)
					if err != nil {
						if gctx.Err() != nil {
							return gctx.Err()
						}
						// Contained: the candidate is silently pruned.
						c.faulted = true
						c.score = math.Inf(1)
						faults.Add(1)
						solved = false
						break
					}
					if !eq(got, ex.Output) {
						solved = false
						break
					}
				}
				c.solved = solved
			}
			return nil
		})
	}
	err := g.Wait()
	if n := faults.Load(); n > 0 && s.metrics != nil {
		s.metrics.EvaluationFaultsTotal.Add(ctx, n)
	}
	return err
}

// bestSolved picks the winning solution under the deterministic order.
func bestSolved(cands []*candidate) *candidate {
	var best *candidate
	for _, c := range cands {
		if !c.solved {
			continue
		}
		if best == nil || less(c, best) {
			best = c
		}
	}
	return best
}

// truncate sorts candidates under the deterministic order, drops
// duplicates of the same canonical rendering, and keeps the top
// beamWidth.
func truncate(cands []*candidate, beamWidth int) []*candidate {
	sort.SliceStable(cands, func(i, j int) bool { return less(cands[i], cands[j]) })
	seen := make(map[string]bool, len(cands))
	kept := cands[:0]
	for _, c := range cands {
		if c.faulted {
			continue
		}
		key := c.node.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, c)
		if len(kept) == beamWidth {
			break
		}
	}
	return kept
}

// accept freezes the winning candidate into a Program snapshot.
func (s *Synthesizer) accept(task *dsl.SynthesisTask, c *candidate, depth int) (*dsl.Program, error) {
	tree, err := dsl.NewTree(c.node.Clone())
	if err != nil {
		return nil, failure(KindEvaluationFault, task.Name, "accepted candidate had no body", err)
	}
	provenance := fmt.Sprintf("beam(width=%d,depth=%d,dsl=%s@gen%d)",
		s.config.BeamWidth, depth, task.DSL.Name(), task.DSL.Generation())
	prog, err := dsl.NewProgram(task.Name, tree, task.DSL, c.cost, provenance)
	if err != nil {
		return nil, failure(KindEvaluationFault, task.Name, "program construction failed", err)
	}
	s.logger.Debug("solution accepted",
		"task", task.Name, "program", tree.String(), "cost", c.cost, "depth", depth)
	return prog, nil
}

// timedOut converts budget expiry into the typed timeout failure.
// Accepted solutions are returned the moment their depth completes, so
// expiry here always means nothing was accepted yet.
func timedOut(task *dsl.SynthesisTask, depth int, cause error) error {
	return failure(KindTimeout, task.Name,
		fmt.Sprintf("budget expired at depth %d", depth), cause)
}
