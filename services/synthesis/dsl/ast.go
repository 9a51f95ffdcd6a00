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
	"strings"
)

// Errors shared by AST construction and validation.
var (
	// ErrArityMismatch is returned when a node's child count disagrees
	// with the referenced primitive's declared arity.
	ErrArityMismatch = errors.New("child count does not match declared arity")

	// ErrUnknownPrimitive is returned when a node references a primitive
	// the DSL does not define.
	ErrUnknownPrimitive = errors.New("unknown primitive")

	// ErrNilNode is returned when a nil node appears where a subtree is
	// required.
	ErrNilNode = errors.New("nil AST node")

	// ErrCacheMismatch is returned by tree validation when cached depth or
	// size disagree with the structure.
	ErrCacheMismatch = errors.New("cached tree metrics disagree with structure")
)

// NodeKind discriminates AST node variants.
type NodeKind int

const (
	// NodePrimitive applies a DSL primitive to its children.
	NodePrimitive NodeKind = iota
	// NodeVariable references a named input binding.
	NodeVariable
	// NodeLiteral embeds a constant Value.
	NodeLiteral
)

// String returns the string representation of a NodeKind.
func (k NodeKind) String() string {
	switch k {
	case NodePrimitive:
		return "primitive"
	case NodeVariable:
		return "variable"
	case NodeLiteral:
		return "literal"
	default:
		return fmt.Sprintf("node_kind(%d)", k)
	}
}

// ASTNode is one node of a candidate program.
//
// # Description
//
// A node is either a primitive application, a variable reference, or a
// literal. For primitive nodes the child count must equal the arity the
// DSL's TypeRule declares for that primitive; the constructors enforce
// this, so a well-formed tree can be evaluated without arity checks on the
// hot path.
//
// Nodes are treated as immutable once they enter a Program, a beam, or a
// rewrite rule. Code that needs to modify a tree clones it first.
type ASTNode struct {
	// Kind is the node variant.
	Kind NodeKind

	// Name is the primitive name (NodePrimitive) or the variable name
	// (NodeVariable). Empty for literals.
	Name string

	// Literal is the embedded constant for NodeLiteral nodes.
	Literal Value

	// Children are the argument subtrees, in declaration order.
	Children []*ASTNode
}

// NewPrimitiveNode builds a primitive-application node, checking the child
// count against the arity the DSL declares for the primitive.
func NewPrimitiveNode(d *DSL, name string, children ...*ASTNode) (*ASTNode, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil DSL", ErrUnknownPrimitive)
	}
	prim, ok := d.Primitive(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrimitive, name)
	}
	if len(children) != prim.Arity() {
		return nil, fmt.Errorf("%w: %q wants %d children, got %d",
			ErrArityMismatch, name, prim.Arity(), len(children))
	}
	for _, c := range children {
		if c == nil {
			return nil, fmt.Errorf("%w: child of %q", ErrNilNode, name)
		}
	}
	return &ASTNode{Kind: NodePrimitive, Name: name, Children: children}, nil
}

// NewVariableNode builds a variable-reference node.
func NewVariableNode(name string) *ASTNode {
	return &ASTNode{Kind: NodeVariable, Name: name}
}

// NewLiteralNode builds a literal node.
func NewLiteralNode(v Value) *ASTNode {
	return &ASTNode{Kind: NodeLiteral, Literal: v}
}

// Size returns the number of nodes in the subtree.
func (n *ASTNode) Size() int {
	if n == nil {
		return 0
	}
	size := 1
	for _, c := range n.Children {
		size += c.Size()
	}
	return size
}

// Depth returns the height of the subtree. A leaf has depth 1.
func (n *ASTNode) Depth() int {
	if n == nil {
		return 0
	}
	max := 0
	for _, c := range n.Children {
		if d := c.Depth(); d > max {
			max = d
		}
	}
	return max + 1
}

// Clone returns a deep copy of the subtree.
func (n *ASTNode) Clone() *ASTNode {
	if n == nil {
		return nil
	}
	cp := &ASTNode{Kind: n.Kind, Name: n.Name, Literal: n.Literal}
	if len(n.Children) > 0 {
		cp.Children = make([]*ASTNode, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return cp
}

// Walk visits the subtree pre-order.
func (n *ASTNode) Walk(visit func(*ASTNode)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// Equal reports structural equality between two subtrees.
func (n *ASTNode) Equal(other *ASTNode) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind || n.Name != other.Name {
		return false
	}
	if n.Kind == NodeLiteral && !n.Literal.Equal(other.Literal) {
		return false
	}
	if len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// String renders the subtree as a canonical s-expression. The rendering is
// deterministic and doubles as the hashing key for learned fragments.
func (n *ASTNode) String() string {
	if n == nil {
		return "()"
	}
	switch n.Kind {
	case NodeVariable:
		return n.Name
	case NodeLiteral:
		return n.Literal.String()
	default:
		if len(n.Children) == 0 {
			return "(" + n.Name + ")"
		}
		parts := make([]string, 0, len(n.Children)+1)
		parts = append(parts, n.Name)
		for _, c := range n.Children {
			parts = append(parts, c.String())
		}
		return "(" + strings.Join(parts, " ") + ")"
	}
}

// AbstractSyntaxTree pairs a root node with cached structural metrics.
//
// The cached depth and size are computed once at construction. Validate
// recomputes them from the structure; a disagreement means the tree was
// mutated after construction, which the immutability protocol forbids.
type AbstractSyntaxTree struct {
	// Root is the root node. Treat the whole tree as immutable.
	Root *ASTNode

	depth int
	size  int
}

// NewTree builds a tree around root and caches its metrics.
func NewTree(root *ASTNode) (*AbstractSyntaxTree, error) {
	if root == nil {
		return nil, ErrNilNode
	}
	return &AbstractSyntaxTree{Root: root, depth: root.Depth(), size: root.Size()}, nil
}

// Depth returns the cached tree height.
func (t *AbstractSyntaxTree) Depth() int { return t.depth }

// Size returns the cached node count.
func (t *AbstractSyntaxTree) Size() int { return t.size }

// Clone returns a deep copy sharing no nodes with the original.
func (t *AbstractSyntaxTree) Clone() *AbstractSyntaxTree {
	return &AbstractSyntaxTree{Root: t.Root.Clone(), depth: t.depth, size: t.size}
}

// Validate recomputes depth and size from the structure and compares them
// against the cached values.
func (t *AbstractSyntaxTree) Validate() error {
	if t.Root == nil {
		return ErrNilNode
	}
	if d := t.Root.Depth(); d != t.depth {
		return fmt.Errorf("%w: depth cached=%d actual=%d", ErrCacheMismatch, t.depth, d)
	}
	if s := t.Root.Size(); s != t.size {
		return fmt.Errorf("%w: size cached=%d actual=%d", ErrCacheMismatch, t.size, s)
	}
	return nil
}

// String renders the tree's canonical s-expression.
func (t *AbstractSyntaxTree) String() string { return t.Root.String() }
