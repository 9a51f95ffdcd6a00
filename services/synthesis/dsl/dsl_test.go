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
	"testing"
)

func identityPrim() Primitive {
	return Primitive{
		Name:       "identity",
		ArgTypes:   []Type{TypeInt},
		ResultType: TypeInt,
		Apply:      func(args []Value) (Value, error) { return args[0], nil },
		Cost:       0.5,
	}
}

func doublePrim() Primitive {
	return Primitive{
		Name:       "double",
		ArgTypes:   []Type{TypeInt},
		ResultType: TypeInt,
		Apply:      func(args []Value) (Value, error) { return Int(args[0].Int() * 2), nil },
		Cost:       1.0,
	}
}

func addPrim() Primitive {
	return Primitive{
		Name:       "add",
		ArgTypes:   []Type{TypeInt, TypeInt},
		ResultType: TypeInt,
		Apply:      func(args []Value) (Value, error) { return Int(args[0].Int() + args[1].Int()), nil },
		Cost:       1.5,
	}
}

func newArithDSL(t *testing.T) *DSL {
	t.Helper()
	d, err := New("arith", []Primitive{identityPrim(), doublePrim(), addPrim()}, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func TestNew(t *testing.T) {
	t.Run("builds generation zero", func(t *testing.T) {
		d := newArithDSL(t)
		if d.Generation() != 0 {
			t.Errorf("expected generation 0, got %d", d.Generation())
		}
		if d.Len() != 3 {
			t.Errorf("expected 3 primitives, got %d", d.Len())
		}
		if _, ok := d.Primitive("double"); !ok {
			t.Error("expected double to be defined")
		}
	})

	t.Run("derives type rules when absent", func(t *testing.T) {
		d := newArithDSL(t)
		rules := d.TypeRules()
		if len(rules) != 3 {
			t.Fatalf("expected 3 derived rules, got %d", len(rules))
		}
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := New("arith", []Primitive{doublePrim(), doublePrim()}, nil, nil)
		if !errors.Is(err, ErrDuplicatePrimitive) {
			t.Errorf("expected ErrDuplicatePrimitive, got %v", err)
		}
	})

	t.Run("rejects negative cost", func(t *testing.T) {
		p := doublePrim()
		p.Cost = -1
		_, err := New("arith", []Primitive{p}, nil, nil)
		if !errors.Is(err, ErrNegativeCost) {
			t.Errorf("expected ErrNegativeCost, got %v", err)
		}
	})

	t.Run("rejects missing implementation", func(t *testing.T) {
		p := doublePrim()
		p.Apply = nil
		_, err := New("arith", []Primitive{p}, nil, nil)
		if !errors.Is(err, ErrNilApply) {
			t.Errorf("expected ErrNilApply, got %v", err)
		}
	})

	t.Run("rejects rule disagreeing with primitive", func(t *testing.T) {
		rule := TypeRule{Constructor: "double", ArgTypes: []Type{TypeInt, TypeInt}, ResultType: TypeInt}
		_, err := New("arith", []Primitive{doublePrim()}, []TypeRule{rule}, nil)
		if !errors.Is(err, ErrRuleMismatch) {
			t.Errorf("expected ErrRuleMismatch, got %v", err)
		}
	})

	t.Run("rejects rule naming unknown primitive", func(t *testing.T) {
		rule := TypeRule{Constructor: "triple", ArgTypes: []Type{TypeInt}, ResultType: TypeInt}
		_, err := New("arith", []Primitive{doublePrim()}, []TypeRule{rule}, nil)
		if !errors.Is(err, ErrDanglingRule) {
			t.Errorf("expected ErrDanglingRule, got %v", err)
		}
	})

	t.Run("rejects repeated rule for one constructor", func(t *testing.T) {
		rule := TypeRule{Constructor: "double", ArgTypes: []Type{TypeInt}, ResultType: TypeInt}
		_, err := New("arith", []Primitive{doublePrim()}, []TypeRule{rule, rule}, nil)
		if !errors.Is(err, ErrDuplicateRule) {
			t.Errorf("expected ErrDuplicateRule, got %v", err)
		}
		d, err := New("arith", []Primitive{doublePrim()}, []TypeRule{rule}, nil)
		if err != nil {
			t.Fatalf("single explicit rule rejected: %v", err)
		}
		if got := len(d.TypeRules()); got != 1 {
			t.Errorf("expected 1 type rule, got %d", got)
		}
	})
}

func TestDSL_Immutability(t *testing.T) {
	t.Run("accessor copies do not alias internals", func(t *testing.T) {
		d := newArithDSL(t)
		prims := d.Primitives()
		prims[0].Cost = 99
		prims[0].ArgTypes[0] = TypeBool

		fresh, _ := d.Primitive(prims[0].Name)
		if fresh.Cost == 99 || fresh.ArgTypes[0] == TypeBool {
			t.Error("mutating an accessor copy leaked into the DSL")
		}
	})

	t.Run("type-directed index", func(t *testing.T) {
		d := newArithDSL(t)
		ints := d.PrimitivesProducing(TypeInt)
		if len(ints) != 3 {
			t.Errorf("expected 3 int producers, got %d", len(ints))
		}
		if bools := d.PrimitivesProducing(TypeBool); len(bools) != 0 {
			t.Errorf("expected no bool producers, got %d", len(bools))
		}
	})
}

func TestValue(t *testing.T) {
	t.Run("equality is deep", func(t *testing.T) {
		a := List(Int(1), List(Str("a"), Bool(true)))
		b := List(Int(1), List(Str("a"), Bool(true)))
		c := List(Int(1), List(Str("b"), Bool(true)))
		if !a.Equal(b) {
			t.Error("expected a == b")
		}
		if a.Equal(c) {
			t.Error("expected a != c")
		}
	})

	t.Run("kind mismatch is never equal", func(t *testing.T) {
		if Int(1).Equal(Float(1)) {
			t.Error("int and float must not compare equal")
		}
	})

	t.Run("list constructor copies elements", func(t *testing.T) {
		elems := []Value{Int(1), Int(2)}
		v := List(elems...)
		elems[0] = Int(42)
		if v.Elems()[0].Int() != 1 {
			t.Error("List aliased the caller's slice")
		}
	})

	t.Run("rendering", func(t *testing.T) {
		v := List(Int(3), Str("hi"), Float(2.5))
		if got := v.String(); got != `[3 "hi" 2.5]` {
			t.Errorf("unexpected rendering %q", got)
		}
	})
}

func TestUsageStatistics_Record(t *testing.T) {
	d := newArithDSL(t)
	x := NewVariableNode(InputVariable)
	dbl, err := NewPrimitiveNode(d, "double", x)
	if err != nil {
		t.Fatalf("NewPrimitiveNode failed: %v", err)
	}
	tree, err := NewTree(dbl)
	if err != nil {
		t.Fatalf("NewTree failed: %v", err)
	}
	prog, err := NewProgram("t", tree, d, 1.0, "test")
	if err != nil {
		t.Fatalf("NewProgram failed: %v", err)
	}

	usage := NewUsageStatistics()
	if !usage.Empty() {
		t.Error("fresh statistics should be empty")
	}
	usage.Record(prog, 1.0)
	usage.Record(prog, 0.5)
	if usage.PrimitiveCounts["double"] != 2 {
		t.Errorf("expected count 2, got %d", usage.PrimitiveCounts["double"])
	}
	if usage.TotalUsage != 2 {
		t.Errorf("expected total 2, got %d", usage.TotalUsage)
	}
	if usage.PrimitiveScores["double"] != 1.5 {
		t.Errorf("expected score 1.5, got %g", usage.PrimitiveScores["double"])
	}

	t.Run("zero value records without panicking", func(t *testing.T) {
		var zero UsageStatistics
		zero.Record(prog, 1.0)
		if zero.PrimitiveCounts["double"] != 1 {
			t.Errorf("expected count 1, got %d", zero.PrimitiveCounts["double"])
		}
		if zero.Empty() {
			t.Error("statistics should not be empty after Record")
		}
	})
}
