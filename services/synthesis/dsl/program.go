// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dsl

import (
	"fmt"

	"github.com/google/uuid"
)

// Program is a solved synthesis result.
//
// A Program is created by the synthesizer, or copy-derived during library
// learning, and never mutated afterwards. It pins the exact DSL generation
// it was built against so later DSL evolution cannot invalidate it.
type Program struct {
	// ID uniquely identifies the snapshot.
	ID uuid.UUID

	// Name labels the program, usually after its task.
	Name string

	// Tree is the program body. Immutable.
	Tree *AbstractSyntaxTree

	// DSL is the generation the program was built against.
	DSL *DSL

	// Cost is the search cost of the chosen candidate.
	Cost float64

	// Provenance records how the program was found, e.g.
	// "beam(width=10,depth=3)".
	Provenance string
}

// NewProgram builds a program snapshot. The tree is not copied; callers
// hand over ownership.
func NewProgram(name string, tree *AbstractSyntaxTree, d *DSL, cost float64, provenance string) (*Program, error) {
	if tree == nil || tree.Root == nil {
		return nil, ErrNilNode
	}
	if d == nil {
		return nil, fmt.Errorf("%w: program %q built without a DSL", ErrUnknownPrimitive, name)
	}
	return &Program{
		ID:         uuid.New(),
		Name:       name,
		Tree:       tree,
		DSL:        d,
		Cost:       cost,
		Provenance: provenance,
	}, nil
}

// PrimitiveCounts tallies primitive occurrences in the program body.
func (p *Program) PrimitiveCounts() map[string]int {
	counts := make(map[string]int)
	p.Tree.Root.Walk(func(n *ASTNode) {
		if n.Kind == NodePrimitive {
			counts[n.Name]++
		}
	})
	return counts
}

// InputOutputExample is one training or validation pair. Input binds the
// task's input variable; Output is the expected result.
type InputOutputExample struct {
	Input  Value
	Output Value
}

// InputVariable is the name examples bind their input to. Candidate
// programs reference the input through a variable node with this name.
const InputVariable = "x"

// SynthesisTask is one unit of work for the synthesizer.
type SynthesisTask struct {
	// Name labels the task.
	Name string

	// Domain groups related tasks; it feeds the task embedding.
	Domain string

	// TrainExamples drive the search; a candidate must reproduce every
	// training output exactly (or per the caller's equality predicate).
	TrainExamples []InputOutputExample

	// ValExamples are held out for the caller; the search never reads
	// them.
	ValExamples []InputOutputExample

	// DSL is the language generation to search in.
	DSL *DSL
}

// UsageStatistics accumulates primitive usage across many searches.
//
// The caller owns accumulation; one UsageStatistics is typically fed into
// a single Evolve call and then discarded. Not safe for concurrent use.
type UsageStatistics struct {
	// PrimitiveCounts is how often each primitive appeared in accepted
	// programs.
	PrimitiveCounts map[string]int

	// PrimitiveScores is an accumulated quality score per primitive,
	// e.g. summed task reward.
	PrimitiveScores map[string]float64

	// TotalUsage is the sum of all counts.
	TotalUsage int
}

// NewUsageStatistics returns empty statistics.
func NewUsageStatistics() *UsageStatistics {
	return &UsageStatistics{
		PrimitiveCounts: make(map[string]int),
		PrimitiveScores: make(map[string]float64),
	}
}

// Record folds one accepted program into the statistics with the given
// quality score.
func (u *UsageStatistics) Record(p *Program, score float64) {
	if p == nil {
		return
	}
	// Zero-value statistics work too; only NewUsageStatistics pre-sizes.
	if u.PrimitiveCounts == nil {
		u.PrimitiveCounts = make(map[string]int)
	}
	if u.PrimitiveScores == nil {
		u.PrimitiveScores = make(map[string]float64)
	}
	for name, count := range p.PrimitiveCounts() {
		u.PrimitiveCounts[name] += count
		u.PrimitiveScores[name] += score * float64(count)
		u.TotalUsage += count
	}
}

// Empty reports whether nothing has been recorded.
func (u *UsageStatistics) Empty() bool {
	return u == nil || u.TotalUsage == 0
}

// PrimitiveProposal is a candidate primitive extracted by library
// learning, not yet part of any DSL.
type PrimitiveProposal struct {
	// Name is the deterministic generated name, e.g. "gen1_a3f09c2d".
	Name string

	// ArgTypes and ResultType form the inferred signature.
	ArgTypes   []Type
	ResultType Type

	// Cost is the proposed search cost, typically
	// -log(occurrences/corpus_size).
	Cost float64

	// Body is the generalized fragment; variable nodes are the argument
	// holes, in positional order.
	Body *ASTNode

	// Apply evaluates Body with arguments bound to the holes. Filled by
	// the learning package.
	Apply ApplyFunc

	// Occurrences is how many corpus programs contained the fragment.
	Occurrences int
}

// Primitive converts the proposal into a DSL primitive.
func (p PrimitiveProposal) Primitive() Primitive {
	args := make([]Type, len(p.ArgTypes))
	copy(args, p.ArgTypes)
	return Primitive{
		Name:       p.Name,
		ArgTypes:   args,
		ResultType: p.ResultType,
		Apply:      p.Apply,
		Cost:       p.Cost,
	}
}
