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

// ApplyFunc is the implementation of a primitive.
//
// It receives exactly as many arguments as the primitive declares, already
// type-checked by the evaluator against the primitive's TypeRule. Returning
// an error marks the enclosing candidate as faulted; it never aborts a
// search.
type ApplyFunc func(args []Value) (Value, error)

// Primitive is one typed operation of a domain-specific language.
//
// # Description
//
// A Primitive pairs a declared type signature with an implementation and a
// search cost. Cost is a non-negative real, lower meaning preferred;
// libraries learned from a corpus use -log(frequency) so that common
// fragments become cheap.
//
// Primitives are value types. A DSL copies them at construction, so a
// caller mutating its own Primitive after building a DSL does not affect
// any in-flight search.
type Primitive struct {
	// Name uniquely identifies the primitive inside one DSL.
	Name string

	// ArgTypes are the declared argument types, in call order.
	// A zero-arity primitive acts as a typed literal during search.
	ArgTypes []Type

	// ResultType is the declared result type.
	ResultType Type

	// Apply is the implementation. Required.
	Apply ApplyFunc

	// Cost is the search cost. Must be non-negative.
	Cost float64
}

// Arity returns the declared argument count.
func (p Primitive) Arity() int { return len(p.ArgTypes) }

// clone returns a deep copy with its own ArgTypes slice.
func (p Primitive) clone() Primitive {
	cp := p
	cp.ArgTypes = make([]Type, len(p.ArgTypes))
	copy(cp.ArgTypes, p.ArgTypes)
	return cp
}

// TypeRule declares the arity and typing of a constructor independently of
// any implementation. DSL construction cross-checks every primitive against
// its rule, turning an ill-typed apply from a runtime failure into a
// construction-time error.
type TypeRule struct {
	// Constructor is the primitive name the rule describes.
	Constructor string

	// ArgTypes are the declared argument types, in order.
	ArgTypes []Type

	// ResultType is the declared result type.
	ResultType Type
}

// Arity returns the declared argument count.
func (r TypeRule) Arity() int { return len(r.ArgTypes) }

// matches reports whether a primitive signature agrees with the rule.
func (r TypeRule) matches(p Primitive) bool {
	if r.Constructor != p.Name || r.ResultType != p.ResultType {
		return false
	}
	if len(r.ArgTypes) != len(p.ArgTypes) {
		return false
	}
	for i := range r.ArgTypes {
		if r.ArgTypes[i] != p.ArgTypes[i] {
			return false
		}
	}
	return true
}

// ruleFor derives a TypeRule from a primitive's own signature. Used when
// the caller supplies primitives without explicit rules.
func ruleFor(p Primitive) TypeRule {
	args := make([]Type, len(p.ArgTypes))
	copy(args, p.ArgTypes)
	return TypeRule{Constructor: p.Name, ArgTypes: args, ResultType: p.ResultType}
}

// RewriteRule is an equivalence-preserving AST rewrite.
//
// Pattern and Replacement are AST fragments in which variable nodes act as
// wildcards: a variable binds any subtree on the pattern side and is
// substituted on the replacement side. Only the e-graph compression
// strategy consumes rewrite rules; search and evaluation ignore them.
type RewriteRule struct {
	// Name labels the rule for logs.
	Name string

	// Pattern is the left-hand side.
	Pattern *ASTNode

	// Replacement is the right-hand side. Every variable appearing in
	// Replacement must also appear in Pattern.
	Replacement *ASTNode
}
