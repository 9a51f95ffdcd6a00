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

// addOfDoubles builds (add (double x) (double x)) against the arith DSL.
func addOfDoubles(t *testing.T, d *DSL) *ASTNode {
	t.Helper()
	x := NewVariableNode(InputVariable)
	left, err := NewPrimitiveNode(d, "double", x)
	if err != nil {
		t.Fatalf("NewPrimitiveNode failed: %v", err)
	}
	right, err := NewPrimitiveNode(d, "double", NewVariableNode(InputVariable))
	if err != nil {
		t.Fatalf("NewPrimitiveNode failed: %v", err)
	}
	root, err := NewPrimitiveNode(d, "add", left, right)
	if err != nil {
		t.Fatalf("NewPrimitiveNode failed: %v", err)
	}
	return root
}

func TestNewPrimitiveNode(t *testing.T) {
	d := newArithDSL(t)

	t.Run("enforces declared arity", func(t *testing.T) {
		_, err := NewPrimitiveNode(d, "add", NewVariableNode(InputVariable))
		if !errors.Is(err, ErrArityMismatch) {
			t.Errorf("expected ErrArityMismatch, got %v", err)
		}
	})

	t.Run("rejects unknown primitives", func(t *testing.T) {
		_, err := NewPrimitiveNode(d, "triple", NewVariableNode(InputVariable))
		if !errors.Is(err, ErrUnknownPrimitive) {
			t.Errorf("expected ErrUnknownPrimitive, got %v", err)
		}
	})

	t.Run("rejects nil children", func(t *testing.T) {
		_, err := NewPrimitiveNode(d, "double", nil)
		if !errors.Is(err, ErrNilNode) {
			t.Errorf("expected ErrNilNode, got %v", err)
		}
	})
}

func TestASTNode_Metrics(t *testing.T) {
	d := newArithDSL(t)
	root := addOfDoubles(t, d)

	if got := root.Size(); got != 5 {
		t.Errorf("expected size 5, got %d", got)
	}
	if got := root.Depth(); got != 3 {
		t.Errorf("expected depth 3, got %d", got)
	}
	if got := root.String(); got != "(add (double x) (double x))" {
		t.Errorf("unexpected rendering %q", got)
	}
}

func TestASTNode_CloneAndEqual(t *testing.T) {
	d := newArithDSL(t)
	root := addOfDoubles(t, d)
	clone := root.Clone()

	if !root.Equal(clone) {
		t.Fatal("clone should be structurally equal")
	}
	clone.Children[0].Name = "identity"
	if root.Equal(clone) {
		t.Error("mutating the clone must not affect equality with the original")
	}
	if root.Children[0].Name != "double" {
		t.Error("clone aliased the original's children")
	}
}

func TestAbstractSyntaxTree(t *testing.T) {
	d := newArithDSL(t)

	t.Run("caches match structure", func(t *testing.T) {
		tree, err := NewTree(addOfDoubles(t, d))
		if err != nil {
			t.Fatalf("NewTree failed: %v", err)
		}
		if tree.Depth() != 3 || tree.Size() != 5 {
			t.Errorf("unexpected caches depth=%d size=%d", tree.Depth(), tree.Size())
		}
		if err := tree.Validate(); err != nil {
			t.Errorf("Validate failed: %v", err)
		}
	})

	t.Run("validate detects out-of-protocol mutation", func(t *testing.T) {
		tree, err := NewTree(addOfDoubles(t, d))
		if err != nil {
			t.Fatalf("NewTree failed: %v", err)
		}
		tree.Root.Children = tree.Root.Children[:1] // simulate a buggy caller
		if err := tree.Validate(); !errors.Is(err, ErrCacheMismatch) {
			t.Errorf("expected ErrCacheMismatch, got %v", err)
		}
	})

	t.Run("rejects nil root", func(t *testing.T) {
		if _, err := NewTree(nil); !errors.Is(err, ErrNilNode) {
			t.Errorf("expected ErrNilNode, got %v", err)
		}
	})
}
