// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package learning compresses a corpus of solved programs into reusable
// primitive proposals - the library-learning half of DSL growth.
//
// # Strategies
//
// Three interchangeable strategies share one contract:
//
//   - AntiUnification: pairwise least-general-generalization of corpus
//     trees; shared structure survives, diverging subtrees become holes.
//   - EGraph: equality saturation over corpus subtrees under the DSL's
//     rewrite rules; well-supported equivalence classes propose their
//     canonical representative.
//   - FragmentGrammar: a probabilistic tree-substitution view; a subtree
//     is proposed when its estimated reuse value is positive.
//
// Every strategy degrades to an empty proposal list on insufficient data
// (fewer than two programs); that is never an error. Proposal names are
// deterministic functions of the fragment, so repeated extraction over
// the same corpus yields identical proposals.
package learning

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/AleutianSynth/services/synthesis/dsl"
	"github.com/AleutianAI/AleutianSynth/services/synthesis/eval"
	"github.com/AleutianAI/AleutianSynth/services/synthesis/telemetry"
)

// ErrUnknownStrategy is returned for an unrecognized Strategy value.
var ErrUnknownStrategy = errors.New("unknown compression strategy")

// Strategy selects a compression algorithm.
type Strategy int

const (
	// AntiUnification generalizes program pairs into shared fragments.
	AntiUnification Strategy = iota
	// EGraph merges subtrees equivalent under the DSL's rewrite rules.
	EGraph
	// FragmentGrammar proposes subtrees with positive reuse value.
	FragmentGrammar
)

// String returns the string representation of a Strategy.
func (s Strategy) String() string {
	switch s {
	case AntiUnification:
		return "anti_unification"
	case EGraph:
		return "egraph"
	case FragmentGrammar:
		return "fragment_grammar"
	default:
		return fmt.Sprintf("strategy(%d)", s)
	}
}

// Config tunes extraction. Defaults suit small corpora.
type Config struct {
	// MinSupport is the minimum number of corpus programs a fragment
	// must appear in. FragmentGrammar ignores it: reuse within a single
	// program is exactly what that strategy rewards, so it filters on
	// reuse value alone. Default: 2.
	MinSupport int

	// MaxFragmentSize bounds proposed fragment size in nodes.
	// Default: 12.
	MaxFragmentSize int

	// EvalSteps is the step budget for evaluating a learned primitive's
	// body on application. Zero uses the evaluator default.
	EvalSteps int

	// Logger receives extraction progress at debug level. Default:
	// slog.Default().
	Logger *slog.Logger

	// Metrics, when non-nil, receives per-strategy proposal counts.
	Metrics *telemetry.Metrics
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{MinSupport: 2, MaxFragmentSize: 12}
}

// Extract mines primitive proposals from a corpus of solved programs.
//
// # Description
//
// Uniform contract across strategies: fewer than two programs yields an
// empty proposal list and no error, and the proposals come back sorted
// by name so callers can feed them straight into dsl.Evolve
// deterministically. The corpus is expected to share one DSL generation;
// fragments are typed against the generation of the program they were
// mined from.
//
// # Outputs
//
//   - []dsl.PrimitiveProposal: possibly empty, never nil on success.
//   - error: only for an unrecognized strategy.
func Extract(programs []*dsl.Program, strategy Strategy, config *Config) ([]dsl.PrimitiveProposal, error) {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.MinSupport <= 0 {
		cfg.MinSupport = 2
	}
	if cfg.MaxFragmentSize <= 0 {
		cfg.MaxFragmentSize = 12
	}
	config = &cfg
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(programs) < 2 {
		return []dsl.PrimitiveProposal{}, nil
	}

	var fragments []*fragment
	switch strategy {
	case AntiUnification:
		fragments = extractAntiUnification(programs, config)
	case EGraph:
		fragments = extractEGraph(programs, config)
	case FragmentGrammar:
		fragments = extractFragmentGrammar(programs, config)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(strategy))
	}

	// FragmentGrammar already filtered on reuse value, which counts
	// repetition inside a single program; a distinct-program support
	// floor would silently discard those fragments.
	minSupport := config.MinSupport
	if strategy == FragmentGrammar {
		minSupport = 1
	}

	proposals := make([]dsl.PrimitiveProposal, 0, len(fragments))
	seen := make(map[string]bool, len(fragments))
	for _, f := range fragments {
		prop, ok := f.proposal(len(programs), minSupport, config)
		if !ok || seen[prop.Name] {
			continue
		}
		seen[prop.Name] = true
		proposals = append(proposals, prop)
	}
	sort.Slice(proposals, func(i, j int) bool { return proposals[i].Name < proposals[j].Name })

	if config.Metrics != nil {
		config.Metrics.ProposalsTotal.Add(context.Background(), int64(len(proposals)),
			metric.WithAttributes(attribute.String("strategy", strategy.String())))
	}
	logger.Debug("extraction complete",
		"strategy", strategy.String(), "corpus", len(programs), "proposals", len(proposals))
	return proposals, nil
}

// fragment is a generalized subtree with holes, plus the evidence
// gathered for it.
type fragment struct {
	// body has hole variables hole0..holeN in pre-order positions.
	body *dsl.ASTNode

	// argTypes are the hole types, inferred from enclosing primitives.
	argTypes []dsl.Type

	// resultType is the root primitive's declared result type.
	resultType dsl.Type

	// d is the DSL generation the fragment is typed against.
	d *dsl.DSL

	// support is the number of distinct corpus programs containing an
	// instance of the fragment.
	support int
}

// holeName is the canonical name of the i-th argument hole.
func holeName(i int) string { return fmt.Sprintf("hole%d", i) }

// proposal converts a supported fragment into a primitive proposal.
// Cost follows -log(support/corpus), clamped non-negative.
func (f *fragment) proposal(corpusSize, minSupport int, config *Config) (dsl.PrimitiveProposal, bool) {
	if f.support < minSupport {
		return dsl.PrimitiveProposal{}, false
	}
	cost := -math.Log(float64(f.support) / float64(corpusSize))
	if cost < 0 {
		cost = 0
	}

	body := f.body
	d := f.d
	holes := len(f.argTypes)
	var evalCfg *eval.Config
	if config.EvalSteps > 0 {
		evalCfg = &eval.Config{MaxSteps: config.EvalSteps}
	}
	apply := func(args []dsl.Value) (dsl.Value, error) {
		if len(args) != holes {
			return dsl.Value{}, fmt.Errorf("learned primitive wants %d args, got %d", holes, len(args))
		}
		bindings := make(map[string]dsl.Value, holes)
		for i, v := range args {
			bindings[holeName(i)] = v
		}
		return eval.Evaluate(context.Background(), body, d, bindings, evalCfg)
	}

	return dsl.PrimitiveProposal{
		Name:        fragmentName(f.d.Generation()+1, body),
		ArgTypes:    f.argTypes,
		ResultType:  f.resultType,
		Cost:        cost,
		Body:        body,
		Apply:       apply,
		Occurrences: f.support,
	}, true
}

// fragmentName derives the deterministic "gen<N>_<hash>" proposal name
// from the fragment's canonical rendering.
func fragmentName(generation int, body *dsl.ASTNode) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(body.String()))
	return fmt.Sprintf("gen%d_%08x", generation, h.Sum32())
}

// abstract rewrites a generalized tree into fragment form: every
// variable node becomes a positional hole, typed by the argument slot it
// occupies. Returns false for trees that cannot stand as a primitive
// (hole at the root, untypable hole, or no primitive structure at all).
func abstract(root *dsl.ASTNode, d *dsl.DSL) (*fragment, bool) {
	if root == nil || root.Kind != dsl.NodePrimitive {
		return nil, false
	}
	rootPrim, ok := d.Primitive(root.Name)
	if !ok {
		return nil, false
	}

	body := root.Clone()
	var argTypes []dsl.Type
	okTyping := true

	var walk func(n *dsl.ASTNode)
	walk = func(n *dsl.ASTNode) {
		prim, found := d.Primitive(n.Name)
		if !found {
			okTyping = false
			return
		}
		for i, c := range n.Children {
			switch c.Kind {
			case dsl.NodeVariable:
				c.Name = holeName(len(argTypes))
				argTypes = append(argTypes, prim.ArgTypes[i])
			case dsl.NodePrimitive:
				walk(c)
			}
		}
	}
	walk(body)

	if !okTyping {
		return nil, false
	}
	return &fragment{
		body:       body,
		argTypes:   argTypes,
		resultType: rootPrim.ResultType,
		d:          d,
	}, true
}

// matches reports whether node is an instance of the fragment body,
// with holes standing for arbitrary subtrees.
func matches(pattern, node *dsl.ASTNode) bool {
	if pattern == nil || node == nil {
		return pattern == node
	}
	if pattern.Kind == dsl.NodeVariable {
		return true
	}
	if pattern.Kind != node.Kind || pattern.Name != node.Name {
		return false
	}
	if pattern.Kind == dsl.NodeLiteral && !pattern.Literal.Equal(node.Literal) {
		return false
	}
	if len(pattern.Children) != len(node.Children) {
		return false
	}
	for i := range pattern.Children {
		if !matches(pattern.Children[i], node.Children[i]) {
			return false
		}
	}
	return true
}

// supportOf counts the corpus programs containing an instance of the
// fragment body.
func supportOf(body *dsl.ASTNode, programs []*dsl.Program) int {
	support := 0
	for _, p := range programs {
		found := false
		p.Tree.Root.Walk(func(n *dsl.ASTNode) {
			if !found && matches(body, n) {
				found = true
			}
		})
		if found {
			support++
		}
	}
	return support
}

// subtrees yields every subtree of the corpus in deterministic order.
func subtrees(programs []*dsl.Program, visit func(progIdx int, n *dsl.ASTNode)) {
	for i, p := range programs {
		p.Tree.Root.Walk(func(n *dsl.ASTNode) { visit(i, n) })
	}
}
