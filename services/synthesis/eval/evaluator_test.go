// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/AleutianAI/AleutianSynth/services/synthesis/dsl"
)

func newArithDSL(t *testing.T) *dsl.DSL {
	t.Helper()
	prims := []dsl.Primitive{
		{
			Name: "double", ArgTypes: []dsl.Type{dsl.TypeInt}, ResultType: dsl.TypeInt, Cost: 1,
			Apply: func(args []dsl.Value) (dsl.Value, error) { return dsl.Int(args[0].Int() * 2), nil },
		},
		{
			Name: "add", ArgTypes: []dsl.Type{dsl.TypeInt, dsl.TypeInt}, ResultType: dsl.TypeInt, Cost: 1.5,
			Apply: func(args []dsl.Value) (dsl.Value, error) { return dsl.Int(args[0].Int() + args[1].Int()), nil },
		},
		{
			Name: "div", ArgTypes: []dsl.Type{dsl.TypeInt, dsl.TypeInt}, ResultType: dsl.TypeInt, Cost: 2,
			Apply: func(args []dsl.Value) (dsl.Value, error) {
				if args[1].Int() == 0 {
					return dsl.Value{}, fmt.Errorf("division by zero")
				}
				return dsl.Int(args[0].Int() / args[1].Int()), nil
			},
		},
		{
			Name: "boom", ArgTypes: []dsl.Type{dsl.TypeInt}, ResultType: dsl.TypeInt, Cost: 1,
			Apply: func(args []dsl.Value) (dsl.Value, error) { panic("bad primitive") },
		},
	}
	d, err := dsl.New("arith", prims, nil, nil)
	if err != nil {
		t.Fatalf("dsl.New failed: %v", err)
	}
	return d
}

func mustNode(t *testing.T, d *dsl.DSL, name string, children ...*dsl.ASTNode) *dsl.ASTNode {
	t.Helper()
	n, err := dsl.NewPrimitiveNode(d, name, children...)
	if err != nil {
		t.Fatalf("NewPrimitiveNode(%s) failed: %v", name, err)
	}
	return n
}

func TestEvaluate(t *testing.T) {
	d := newArithDSL(t)
	ctx := context.Background()
	x := map[string]dsl.Value{dsl.InputVariable: dsl.Int(3)}

	t.Run("evaluates nested applications", func(t *testing.T) {
		// (add (double x) x) with x=3 → 9
		root := mustNode(t, d, "add",
			mustNode(t, d, "double", dsl.NewVariableNode(dsl.InputVariable)),
			dsl.NewVariableNode(dsl.InputVariable))
		got, err := Evaluate(ctx, root, d, x, nil)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if !got.Equal(dsl.Int(9)) {
			t.Errorf("expected 9, got %s", got)
		}
	})

	t.Run("literals evaluate to themselves", func(t *testing.T) {
		got, err := Evaluate(ctx, dsl.NewLiteralNode(dsl.Str("hi")), d, nil, nil)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if !got.Equal(dsl.Str("hi")) {
			t.Errorf("expected \"hi\", got %s", got)
		}
	})

	t.Run("unbound variable faults", func(t *testing.T) {
		_, err := Evaluate(ctx, dsl.NewVariableNode("y"), d, x, nil)
		if !errors.Is(err, ErrUnboundVariable) {
			t.Errorf("expected ErrUnboundVariable, got %v", err)
		}
		var fault *Fault
		if !errors.As(err, &fault) {
			t.Error("expected a *Fault")
		}
	})

	t.Run("apply error becomes a fault, not a crash", func(t *testing.T) {
		root := mustNode(t, d, "div",
			dsl.NewVariableNode(dsl.InputVariable),
			dsl.NewLiteralNode(dsl.Int(0)))
		_, err := Evaluate(ctx, root, d, x, nil)
		if !errors.Is(err, ErrApplyFault) {
			t.Errorf("expected ErrApplyFault, got %v", err)
		}
	})

	t.Run("panicking primitive becomes a fault", func(t *testing.T) {
		root := mustNode(t, d, "boom", dsl.NewVariableNode(dsl.InputVariable))
		_, err := Evaluate(ctx, root, d, x, nil)
		if !errors.Is(err, ErrApplyFault) {
			t.Errorf("expected ErrApplyFault, got %v", err)
		}
	})

	t.Run("step budget bounds evaluation", func(t *testing.T) {
		// Deep chain of doubles exceeding a tiny budget.
		node := dsl.NewVariableNode(dsl.InputVariable)
		for i := 0; i < 10; i++ {
			node = mustNode(t, d, "double", node)
		}
		_, err := Evaluate(ctx, node, d, x, &Config{MaxSteps: 5})
		if !errors.Is(err, ErrStepBudget) {
			t.Errorf("expected ErrStepBudget, got %v", err)
		}
	})

	t.Run("observes cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		node := dsl.NewVariableNode(dsl.InputVariable)
		for i := 0; i < 200; i++ {
			node = mustNode(t, d, "double", node)
		}
		_, err := Evaluate(cancelled, node, d, x, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestEvaluateProgram(t *testing.T) {
	d := newArithDSL(t)
	root := mustNode(t, d, "double", dsl.NewVariableNode(dsl.InputVariable))
	tree, err := dsl.NewTree(root)
	if err != nil {
		t.Fatalf("NewTree failed: %v", err)
	}
	prog, err := dsl.NewProgram("double", tree, d, 1.0, "test")
	if err != nil {
		t.Fatalf("NewProgram failed: %v", err)
	}

	got, err := EvaluateProgram(context.Background(), prog, dsl.Int(21), nil)
	if err != nil {
		t.Fatalf("EvaluateProgram failed: %v", err)
	}
	if !got.Equal(dsl.Int(42)) {
		t.Errorf("expected 42, got %s", got)
	}
}
