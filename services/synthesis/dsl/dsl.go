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
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Errors reported by DSL construction.
var (
	// ErrEmptyName is returned when the DSL or a primitive has no name.
	ErrEmptyName = errors.New("empty name")

	// ErrDuplicatePrimitive is returned when two primitives share a name.
	ErrDuplicatePrimitive = errors.New("duplicate primitive name")

	// ErrNegativeCost is returned when a primitive declares a negative cost.
	ErrNegativeCost = errors.New("primitive cost must be non-negative")

	// ErrNilApply is returned when a primitive has no implementation.
	ErrNilApply = errors.New("primitive has no implementation")

	// ErrRuleMismatch is returned when a TypeRule disagrees with the
	// signature of the primitive it describes.
	ErrRuleMismatch = errors.New("type rule disagrees with primitive signature")

	// ErrDanglingRule is returned when a TypeRule names a primitive the
	// DSL does not define.
	ErrDanglingRule = errors.New("type rule names unknown primitive")

	// ErrDuplicateRule is returned when two explicit TypeRules name the
	// same constructor.
	ErrDuplicateRule = errors.New("duplicate type rule")
)

// DSL is an immutable snapshot of a domain-specific language.
//
// # Description
//
// A DSL bundles the typed primitives, type rules and rewrite rules
// available to one synthesis domain. Snapshots are versioned: generation 0
// is caller-supplied, and every learning cycle produces generation N+1 via
// Evolve. A value is never mutated after New returns - accessors hand out
// copies, so an in-flight search holding a reference observes a frozen
// language for its whole lifetime.
//
// # Thread Safety
//
// Safe for unlimited concurrent readers. There are no writers.
type DSL struct {
	name       string
	generation int
	id         uuid.UUID

	primitives []Primitive
	rules      []TypeRule
	rewrites   []RewriteRule

	byName   map[string]int
	byResult map[Type][]int
}

// New builds generation 0 of a DSL, validating every primitive against its
// type rule.
//
// # Description
//
// Validation enforces, at construction time, the invariants the evaluator
// and synthesizer rely on:
//
//   - primitive names are unique and non-empty
//   - every primitive has an implementation and a non-negative cost
//   - every supplied TypeRule matches its primitive's signature exactly
//
// A primitive without an explicit TypeRule gets one derived from its own
// signature, so callers only write rules when they want the independent
// declaration.
//
// # Inputs
//
//   - name: the DSL name, e.g. "arith".
//   - primitives: the typed operations. Copied; the caller's slice is not
//     retained.
//   - rules: optional explicit type rules.
//   - rewrites: optional equivalence rewrites for the e-graph learner.
//
// # Outputs
//
//   - *DSL: the immutable generation-0 snapshot.
//   - error: non-nil if any invariant fails; the DSL is unusable then.
func New(name string, primitives []Primitive, rules []TypeRule, rewrites []RewriteRule) (*DSL, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: dsl", ErrEmptyName)
	}
	byName := make(map[string]int, len(primitives))
	prims := make([]Primitive, 0, len(primitives))
	for _, p := range primitives {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: primitive", ErrEmptyName)
		}
		if _, dup := byName[p.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePrimitive, p.Name)
		}
		if p.Cost < 0 {
			return nil, fmt.Errorf("%w: %q has cost %g", ErrNegativeCost, p.Name, p.Cost)
		}
		if p.Apply == nil {
			return nil, fmt.Errorf("%w: %q", ErrNilApply, p.Name)
		}
		byName[p.Name] = len(prims)
		prims = append(prims, p.clone())
	}

	explicit := make(map[string]bool, len(rules))
	allRules := make([]TypeRule, 0, len(prims))
	for _, r := range rules {
		idx, ok := byName[r.Constructor]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrDanglingRule, r.Constructor)
		}
		if !r.matches(prims[idx]) {
			return nil, fmt.Errorf("%w: %q", ErrRuleMismatch, r.Constructor)
		}
		if explicit[r.Constructor] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRule, r.Constructor)
		}
		explicit[r.Constructor] = true
		allRules = append(allRules, ruleFor(prims[idx]))
	}
	for _, p := range prims {
		if !explicit[p.Name] {
			allRules = append(allRules, ruleFor(p))
		}
	}

	byResult := make(map[Type][]int)
	for i, p := range prims {
		byResult[p.ResultType] = append(byResult[p.ResultType], i)
	}

	cpRewrites := make([]RewriteRule, len(rewrites))
	copy(cpRewrites, rewrites)

	return &DSL{
		name:       name,
		generation: 0,
		id:         uuid.New(),
		primitives: prims,
		rules:      allRules,
		rewrites:   cpRewrites,
		byName:     byName,
		byResult:   byResult,
	}, nil
}

// Name returns the DSL name.
func (d *DSL) Name() string { return d.name }

// Generation returns the snapshot generation, starting at 0.
func (d *DSL) Generation() int { return d.generation }

// ID returns the unique snapshot identifier.
func (d *DSL) ID() uuid.UUID { return d.id }

// Len returns the primitive count.
func (d *DSL) Len() int { return len(d.primitives) }

// Primitive looks up a primitive by name.
func (d *DSL) Primitive(name string) (Primitive, bool) {
	idx, ok := d.byName[name]
	if !ok {
		return Primitive{}, false
	}
	return d.primitives[idx].clone(), true
}

// Primitives returns a copy of all primitives in declaration order.
func (d *DSL) Primitives() []Primitive {
	out := make([]Primitive, len(d.primitives))
	for i, p := range d.primitives {
		out[i] = p.clone()
	}
	return out
}

// PrimitivesProducing returns the primitives whose result type is t, in
// declaration order. Used by the synthesizer's type-directed filtering.
func (d *DSL) PrimitivesProducing(t Type) []Primitive {
	idxs := d.byResult[t]
	out := make([]Primitive, len(idxs))
	for i, idx := range idxs {
		out[i] = d.primitives[idx].clone()
	}
	return out
}

// TypeRules returns a copy of all type rules.
func (d *DSL) TypeRules() []TypeRule {
	out := make([]TypeRule, len(d.rules))
	copy(out, d.rules)
	return out
}

// RewriteRules returns a copy of all rewrite rules. The rule ASTs are
// shared; rewrite rules are immutable by convention.
func (d *DSL) RewriteRules() []RewriteRule {
	out := make([]RewriteRule, len(d.rewrites))
	copy(out, d.rewrites)
	return out
}

// derive builds the next generation around a new primitive set, carrying
// the name and rewrite rules forward. Used by Evolve.
func (d *DSL) derive(primitives []Primitive) (*DSL, error) {
	next, err := New(d.name, primitives, nil, d.rewrites)
	if err != nil {
		return nil, err
	}
	next.generation = d.generation + 1
	return next, nil
}
