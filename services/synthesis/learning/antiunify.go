// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package learning

import (
	"github.com/AleutianAI/AleutianSynth/services/synthesis/dsl"
)

// extractAntiUnification mines fragments by least-general-generalization
// of subtree pairs drawn from distinct programs. Structure shared by
// both subtrees survives into the generalization; anywhere they diverge
// becomes a hole. Generalizations that retain no primitive structure are
// discarded, the rest are deduplicated by canonical rendering and scored
// by corpus support.
func extractAntiUnification(programs []*dsl.Program, config *Config) []*fragment {
	seen := make(map[string]bool)
	var fragments []*fragment

	for i := 0; i < len(programs); i++ {
		var left []*dsl.ASTNode
		programs[i].Tree.Root.Walk(func(n *dsl.ASTNode) {
			if n.Kind == dsl.NodePrimitive {
				left = append(left, n)
			}
		})
		d := programs[i].DSL
		for j := i + 1; j < len(programs); j++ {
			programs[j].Tree.Root.Walk(func(right *dsl.ASTNode) {
				if right.Kind != dsl.NodePrimitive {
					return
				}
				for _, a := range left {
					g := antiUnify(a, right)
					if g == nil || g.Kind != dsl.NodePrimitive {
						continue
					}
					if g.Size() < 2 || g.Size() > config.MaxFragmentSize {
						continue
					}
					f, ok := abstract(g, d)
					if !ok {
						continue
					}
					key := f.body.String()
					if seen[key] {
						continue
					}
					seen[key] = true
					f.support = supportOf(f.body, programs)
					fragments = append(fragments, f)
				}
			})
		}
	}
	return fragments
}

// antiUnify computes the least general generalization of two trees.
// Matching primitives recurse into their children; equal literals and
// identically-named variables are kept; any other disagreement yields a
// hole marker.
func antiUnify(a, b *dsl.ASTNode) *dsl.ASTNode {
	if a == nil || b == nil {
		return nil
	}
	if a.Kind != b.Kind {
		return holeMarker()
	}
	switch a.Kind {
	case dsl.NodePrimitive:
		if a.Name != b.Name || len(a.Children) != len(b.Children) {
			return holeMarker()
		}
		children := make([]*dsl.ASTNode, len(a.Children))
		for i := range a.Children {
			children[i] = antiUnify(a.Children[i], b.Children[i])
		}
		return &dsl.ASTNode{Kind: dsl.NodePrimitive, Name: a.Name, Children: children}
	case dsl.NodeVariable:
		if a.Name == b.Name {
			return &dsl.ASTNode{Kind: dsl.NodeVariable, Name: a.Name}
		}
		return holeMarker()
	case dsl.NodeLiteral:
		if a.Literal.Equal(b.Literal) {
			return &dsl.ASTNode{Kind: dsl.NodeLiteral, Literal: a.Literal}
		}
		return holeMarker()
	default:
		return holeMarker()
	}
}

// holeMarker is a placeholder variable; abstract renames it to a
// canonical positional hole.
func holeMarker() *dsl.ASTNode {
	return &dsl.ASTNode{Kind: dsl.NodeVariable, Name: "_"}
}
