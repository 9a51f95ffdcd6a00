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
	"testing"
)

func proposalNamed(name string) PrimitiveProposal {
	return PrimitiveProposal{
		Name:       name,
		ArgTypes:   []Type{TypeInt},
		ResultType: TypeInt,
		Cost:       2.0,
		Apply:      func(args []Value) (Value, error) { return args[0], nil },
	}
}

func TestEvolve(t *testing.T) {
	t.Run("empty input is a semantic no-op", func(t *testing.T) {
		d := newArithDSL(t)
		next, err := Evolve(d, nil, NewUsageStatistics(), nil)
		if err != nil {
			t.Fatalf("Evolve failed: %v", err)
		}
		if !d.EquivalentTo(next) {
			t.Error("expected a semantically identical DSL")
		}
		if next.Generation() != 1 {
			t.Errorf("expected generation 1, got %d", next.Generation())
		}
		if next.ID() == d.ID() {
			t.Error("expected a fresh snapshot ID")
		}
	})

	t.Run("input DSL is untouched", func(t *testing.T) {
		d := newArithDSL(t)
		usage := NewUsageStatistics()
		usage.PrimitiveCounts["double"] = 10
		usage.TotalUsage = 10
		before, _ := d.Primitive("double")

		if _, err := Evolve(d, []PrimitiveProposal{proposalNamed("gen1_abc")}, usage, nil); err != nil {
			t.Fatalf("Evolve failed: %v", err)
		}
		after, _ := d.Primitive("double")
		if before.Cost != after.Cost || d.Len() != 3 {
			t.Error("evolution mutated the input snapshot")
		}
	})

	t.Run("adds proposals", func(t *testing.T) {
		d := newArithDSL(t)
		next, err := Evolve(d, []PrimitiveProposal{proposalNamed("gen1_abc")}, NewUsageStatistics(), nil)
		if err != nil {
			t.Fatalf("Evolve failed: %v", err)
		}
		if _, ok := next.Primitive("gen1_abc"); !ok {
			t.Error("expected proposal to be added")
		}
	})

	t.Run("renames on collision", func(t *testing.T) {
		d := newArithDSL(t)
		next, err := Evolve(d, []PrimitiveProposal{proposalNamed("double")}, NewUsageStatistics(), nil)
		if err != nil {
			t.Fatalf("Evolve failed: %v", err)
		}
		if _, ok := next.Primitive("double_g1"); !ok {
			t.Error("expected colliding proposal to be renamed double_g1")
		}
		if next.Len() != 4 {
			t.Errorf("expected 4 primitives, got %d", next.Len())
		}
	})

	t.Run("rejects proposal without implementation", func(t *testing.T) {
		d := newArithDSL(t)
		bad := proposalNamed("gen1_bad")
		bad.Apply = nil
		if _, err := Evolve(d, []PrimitiveProposal{bad}, NewUsageStatistics(), nil); err == nil {
			t.Error("expected an error for a proposal without Apply")
		}
	})

	t.Run("usage lowers the cost of hot primitives", func(t *testing.T) {
		d := newArithDSL(t)
		usage := NewUsageStatistics()
		usage.PrimitiveCounts["double"] = 50
		usage.PrimitiveCounts["add"] = 1
		usage.TotalUsage = 51

		next, err := Evolve(d, nil, usage, nil)
		if err != nil {
			t.Fatalf("Evolve failed: %v", err)
		}
		hot, _ := next.Primitive("double")
		cold, _ := next.Primitive("add")
		if hot.Cost >= cold.Cost {
			t.Errorf("expected double (%g) cheaper than add (%g)", hot.Cost, cold.Cost)
		}
		unused, _ := next.Primitive("identity")
		if unused.Cost != 0.5 {
			t.Errorf("unused primitive cost should be unchanged, got %g", unused.Cost)
		}
	})

	t.Run("size cap prunes cold primitives first", func(t *testing.T) {
		d := newArithDSL(t)
		usage := NewUsageStatistics()
		usage.PrimitiveCounts["double"] = 10
		usage.PrimitiveCounts["add"] = 10
		usage.TotalUsage = 20 // identity never used

		config := DefaultEvolveConfig()
		config.MaxPrimitives = 3
		proposals := []PrimitiveProposal{proposalNamed("gen1_abc")}
		next, err := Evolve(d, proposals, usage, config)
		if err != nil {
			t.Fatalf("Evolve failed: %v", err)
		}
		if next.Len() != 3 {
			t.Fatalf("expected 3 primitives after pruning, got %d", next.Len())
		}
		if _, ok := next.Primitive("identity"); ok {
			t.Error("expected cold identity to be pruned")
		}
		if _, ok := next.Primitive("gen1_abc"); !ok {
			t.Error("fresh proposals must survive pruning")
		}
	})

	t.Run("generations chain deterministically", func(t *testing.T) {
		d := newArithDSL(t)
		for gen := 1; gen <= 3; gen++ {
			next, err := Evolve(d, []PrimitiveProposal{proposalNamed(fmt.Sprintf("gen%d_f", gen))}, NewUsageStatistics(), nil)
			if err != nil {
				t.Fatalf("Evolve failed at generation %d: %v", gen, err)
			}
			if next.Generation() != gen {
				t.Errorf("expected generation %d, got %d", gen, next.Generation())
			}
			d = next
		}
		if d.Len() != 6 {
			t.Errorf("expected 6 primitives after 3 cycles, got %d", d.Len())
		}
	})
}
