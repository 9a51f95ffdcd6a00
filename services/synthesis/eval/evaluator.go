// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package eval executes DSL abstract syntax trees against bound inputs.
//
// Evaluation is purely functional and step-bounded: a pathological or
// non-terminating primitive exhausts the step budget and yields a fault
// instead of hanging the surrounding beam search. Faults are ordinary
// typed errors; the synthesizer contains them per candidate.
package eval

import (
	"context"
	"errors"
	"fmt"

	"github.com/AleutianAI/AleutianSynth/services/synthesis/dsl"
)

// Evaluation errors. All are wrapped in a *Fault carrying the offending
// node, so errors.Is works against both.
var (
	// ErrStepBudget is returned when evaluation exceeds MaxSteps.
	ErrStepBudget = errors.New("evaluation step budget exceeded")

	// ErrUnboundVariable is returned when a variable node has no binding.
	ErrUnboundVariable = errors.New("unbound variable")

	// ErrUnknownPrimitive is returned when a node references a primitive
	// missing from the DSL generation being evaluated against.
	ErrUnknownPrimitive = errors.New("unknown primitive")

	// ErrArity is returned when a node's child count disagrees with the
	// primitive's declared arity. Trees built through the dsl
	// constructors never trip this.
	ErrArity = errors.New("arity mismatch")

	// ErrApplyFault is returned when a primitive implementation fails or
	// panics.
	ErrApplyFault = errors.New("primitive application fault")

	// ErrNilInput is returned for nil nodes or DSLs.
	ErrNilInput = errors.New("nil evaluation input")
)

// Fault is an evaluation failure annotated with the node that produced it.
type Fault struct {
	// Node is the canonical rendering of the failing subtree.
	Node string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (f *Fault) Error() string {
	return fmt.Sprintf("evaluation fault at %s: %v", f.Node, f.Err)
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (f *Fault) Unwrap() error { return f.Err }

// Config tunes evaluation.
type Config struct {
	// MaxSteps bounds the number of node visits per evaluation.
	// Default: 10000.
	MaxSteps int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{MaxSteps: 10_000}
}

// ctxCheckInterval is how many steps pass between context checks.
const ctxCheckInterval = 64

// evaluator carries the per-call step counter. One evaluator per
// Evaluate call; never shared.
type evaluator struct {
	d        *dsl.DSL
	bindings map[string]dsl.Value
	maxSteps int
	steps    int
}

// Evaluate runs an AST against bound inputs using the DSL's primitive
// implementations.
//
// # Description
//
// Recursively evaluates children, then applies the node's primitive.
// Evaluation never mutates the tree, the DSL, or the bindings, so many
// evaluations of shared structures run concurrently without locks.
//
// # Inputs
//
//   - ctx: cancellation; checked every few steps.
//   - node: the root of the tree to evaluate.
//   - d: the DSL generation the tree was built against.
//   - bindings: variable name → input value.
//   - config: optional; nil uses DefaultConfig.
//
// # Outputs
//
//   - dsl.Value: the result.
//   - error: a *Fault wrapping one of this package's sentinel errors, or
//     the context error on cancellation.
func Evaluate(ctx context.Context, node *dsl.ASTNode, d *dsl.DSL, bindings map[string]dsl.Value, config *Config) (dsl.Value, error) {
	if node == nil || d == nil {
		return dsl.Value{}, &Fault{Node: "()", Err: ErrNilInput}
	}
	if config == nil {
		config = DefaultConfig()
	}
	e := &evaluator{d: d, bindings: bindings, maxSteps: config.MaxSteps}
	return e.eval(ctx, node)
}

// EvaluateTree is Evaluate for a cached tree.
func EvaluateTree(ctx context.Context, tree *dsl.AbstractSyntaxTree, d *dsl.DSL, bindings map[string]dsl.Value, config *Config) (dsl.Value, error) {
	if tree == nil {
		return dsl.Value{}, &Fault{Node: "()", Err: ErrNilInput}
	}
	return Evaluate(ctx, tree.Root, d, bindings, config)
}

// EvaluateProgram runs a solved program on a single input, bound to the
// task input variable.
func EvaluateProgram(ctx context.Context, p *dsl.Program, input dsl.Value, config *Config) (dsl.Value, error) {
	if p == nil {
		return dsl.Value{}, &Fault{Node: "()", Err: ErrNilInput}
	}
	bindings := map[string]dsl.Value{dsl.InputVariable: input}
	return EvaluateTree(ctx, p.Tree, p.DSL, bindings, config)
}

func (e *evaluator) eval(ctx context.Context, node *dsl.ASTNode) (dsl.Value, error) {
	e.steps++
	if e.steps > e.maxSteps {
		return dsl.Value{}, &Fault{Node: node.String(), Err: ErrStepBudget}
	}
	if e.steps%ctxCheckInterval == 0 {
		select {
		case <-ctx.Done():
			return dsl.Value{}, ctx.Err()
		default:
		}
	}

	switch node.Kind {
	case dsl.NodeLiteral:
		return node.Literal, nil

	case dsl.NodeVariable:
		v, ok := e.bindings[node.Name]
		if !ok {
			return dsl.Value{}, &Fault{Node: node.String(), Err: fmt.Errorf("%w: %q", ErrUnboundVariable, node.Name)}
		}
		return v, nil

	default:
		prim, ok := e.d.Primitive(node.Name)
		if !ok {
			return dsl.Value{}, &Fault{Node: node.String(), Err: fmt.Errorf("%w: %q", ErrUnknownPrimitive, node.Name)}
		}
		if len(node.Children) != prim.Arity() {
			return dsl.Value{}, &Fault{Node: node.String(), Err: fmt.Errorf("%w: %q wants %d args, got %d",
				ErrArity, node.Name, prim.Arity(), len(node.Children))}
		}
		args := make([]dsl.Value, len(node.Children))
		for i, c := range node.Children {
			v, err := e.eval(ctx, c)
			if err != nil {
				return dsl.Value{}, err
			}
			args[i] = v
		}
		return e.apply(prim, args, node)
	}
}

// apply invokes a primitive, converting panics into faults so a buggy
// implementation cannot take down a search.
func (e *evaluator) apply(prim dsl.Primitive, args []dsl.Value, node *dsl.ASTNode) (result dsl.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = dsl.Value{}
			err = &Fault{Node: node.String(), Err: fmt.Errorf("%w: panic in %q: %v", ErrApplyFault, prim.Name, r)}
		}
	}()
	v, applyErr := prim.Apply(args)
	if applyErr != nil {
		return dsl.Value{}, &Fault{Node: node.String(), Err: fmt.Errorf("%w: %q: %v", ErrApplyFault, prim.Name, applyErr)}
	}
	return v, nil
}
