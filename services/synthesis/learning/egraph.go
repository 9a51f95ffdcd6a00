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
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianSynth/services/synthesis/dsl"
)

// saturationRounds bounds rewrite application. Corpus trees are small;
// equality saturation converges in a handful of rounds or not at all.
const saturationRounds = 8

// extractEGraph mines fragments through equality saturation. All corpus
// subtrees are hashconsed into equivalence classes, the DSL's rewrite
// rules merge classes of provably equivalent trees, and congruence
// closure propagates the merges upward. Each surviving class counts the
// programs touching ANY of its members, so syntactic variants of one
// idea pool their support. The class's smallest member (ties broken
// lexicographically) becomes the proposed fragment.
func extractEGraph(programs []*dsl.Program, config *Config) []*fragment {
	g := newEGraph()
	d := programs[0].DSL

	// classPrograms records, per original class id, which programs
	// contributed a subtree. Merged later through find.
	classPrograms := make(map[int]map[int]bool)
	subtrees(programs, func(progIdx int, n *dsl.ASTNode) {
		id := g.add(n)
		if classPrograms[id] == nil {
			classPrograms[id] = make(map[int]bool)
		}
		classPrograms[id][progIdx] = true
	})

	for round := 0; round < saturationRounds; round++ {
		if !g.applyRules(d.RewriteRules()) {
			break
		}
		g.rebuild()
	}

	var fragments []*fragment
	seen := make(map[string]bool)
	for _, id := range g.classOrder {
		if g.find(id) != id {
			continue
		}
		rep := g.representative(id, config)
		if rep == nil {
			continue
		}
		f, ok := abstract(rep, d)
		if !ok || seen[f.body.String()] {
			continue
		}
		seen[f.body.String()] = true

		support := make(map[int]bool)
		for orig, progs := range classPrograms {
			if g.find(orig) != id {
				continue
			}
			for p := range progs {
				support[p] = true
			}
		}
		f.support = len(support)
		fragments = append(fragments, f)
	}
	return fragments
}

// egraph is a hashconsed union-find over AST subtrees.
//
// Thread Safety: not safe for concurrent use; extraction is
// single-threaded.
type egraph struct {
	parent     []int
	memo       map[string]int           // enode key -> class id
	members    map[int][]*dsl.ASTNode   // concrete trees per class
	memberKeys map[int]map[string]bool  // dedupe within a class
	nodeClass  map[*dsl.ASTNode]int     // every added tree -> its class
	classOrder []int                    // ids in creation order
}

func newEGraph() *egraph {
	return &egraph{
		memo:       make(map[string]int),
		members:    make(map[int][]*dsl.ASTNode),
		memberKeys: make(map[int]map[string]bool),
		nodeClass:  make(map[*dsl.ASTNode]int),
	}
}

// find returns the canonical id for a class.
func (g *egraph) find(id int) int {
	for g.parent[id] != id {
		g.parent[id] = g.parent[g.parent[id]]
		id = g.parent[id]
	}
	return id
}

// union merges two classes, keeping the lower id canonical so class
// enumeration stays deterministic.
func (g *egraph) union(a, b int) int {
	a, b = g.find(a), g.find(b)
	if a == b {
		return a
	}
	if b < a {
		a, b = b, a
	}
	g.parent[b] = a
	for _, m := range g.members[b] {
		g.addMember(a, m)
	}
	delete(g.members, b)
	delete(g.memberKeys, b)
	return a
}

// add hashconses a tree into the graph and returns its class id.
func (g *egraph) add(n *dsl.ASTNode) int {
	childIDs := make([]int, len(n.Children))
	for i, c := range n.Children {
		childIDs[i] = g.add(c)
	}
	key := enodeKey(n, childIDs)
	if id, ok := g.memo[key]; ok {
		id = g.find(id)
		g.addMember(id, n)
		g.nodeClass[n] = id
		return id
	}
	id := len(g.parent)
	g.parent = append(g.parent, id)
	g.memo[key] = id
	g.classOrder = append(g.classOrder, id)
	g.addMember(id, n)
	g.nodeClass[n] = id
	return id
}

func (g *egraph) addMember(id int, n *dsl.ASTNode) {
	if g.memberKeys[id] == nil {
		g.memberKeys[id] = make(map[string]bool)
	}
	key := n.String()
	if g.memberKeys[id][key] {
		return
	}
	g.memberKeys[id][key] = true
	g.members[id] = append(g.members[id], n)
}

// enodeKey renders an e-node: operator plus canonical child class ids.
func enodeKey(n *dsl.ASTNode, childIDs []int) string {
	var sb strings.Builder
	switch n.Kind {
	case dsl.NodePrimitive:
		sb.WriteString("p:")
		sb.WriteString(n.Name)
	case dsl.NodeVariable:
		sb.WriteString("v:")
		sb.WriteString(n.Name)
	case dsl.NodeLiteral:
		sb.WriteString("l:")
		sb.WriteString(n.Literal.String())
	}
	for _, id := range childIDs {
		fmt.Fprintf(&sb, "|%d", id)
	}
	return sb.String()
}

// applyRules matches every rule against every class member and unions
// the member's class with its rewritten form. Reports whether any new
// merge happened.
func (g *egraph) applyRules(rules []dsl.RewriteRule) bool {
	merged := false
	for _, rule := range rules {
		if rule.Pattern == nil || rule.Replacement == nil {
			continue
		}
		// Snapshot ids and members: unions during the pass mutate the
		// class tables.
		ids := append([]int(nil), g.classOrder...)
		for _, id := range ids {
			if g.find(id) != id {
				continue
			}
			trees := append([]*dsl.ASTNode(nil), g.members[id]...)
			for _, tree := range trees {
				bindings := make(map[string]*dsl.ASTNode)
				if !matchPattern(rule.Pattern, tree, bindings) {
					continue
				}
				rewritten := substitute(rule.Replacement, bindings)
				other := g.add(rewritten)
				if g.find(other) != g.find(id) {
					g.union(id, other)
					merged = true
				}
			}
		}
	}
	return merged
}

// rebuild restores congruence: e-nodes whose children became equal are
// re-keyed under canonical child ids and their classes merged, to
// fixpoint.
func (g *egraph) rebuild() {
	for {
		changed := false
		fresh := make(map[string]int, len(g.memo))
		for _, id := range g.classOrder {
			if g.find(id) != id {
				continue
			}
			for _, m := range g.members[id] {
				childIDs := make([]int, len(m.Children))
				for i, c := range m.Children {
					childIDs[i] = g.find(g.nodeClass[c])
				}
				key := enodeKey(m, childIDs)
				if prev, ok := fresh[key]; ok {
					if g.find(prev) != g.find(id) {
						g.union(prev, id)
						changed = true
					}
				} else {
					fresh[key] = g.find(id)
				}
			}
		}
		g.memo = fresh
		if !changed {
			return
		}
	}
}

// representative picks the class member to propose: smallest tree,
// lexicographic rendering as the tiebreak, primitive-rooted and within
// the size window.
func (g *egraph) representative(id int, config *Config) *dsl.ASTNode {
	var best *dsl.ASTNode
	for _, m := range g.members[id] {
		if m.Kind != dsl.NodePrimitive {
			continue
		}
		size := m.Size()
		if size < 2 || size > config.MaxFragmentSize {
			continue
		}
		if best == nil || size < best.Size() ||
			(size == best.Size() && m.String() < best.String()) {
			best = m
		}
	}
	return best
}

// matchPattern binds pattern variables to concrete subtrees. A variable
// repeated in the pattern must bind equal subtrees.
func matchPattern(pattern, node *dsl.ASTNode, bindings map[string]*dsl.ASTNode) bool {
	if pattern == nil || node == nil {
		return false
	}
	if pattern.Kind == dsl.NodeVariable {
		if bound, ok := bindings[pattern.Name]; ok {
			return bound.Equal(node)
		}
		bindings[pattern.Name] = node
		return true
	}
	if pattern.Kind != node.Kind || pattern.Name != node.Name {
		return false
	}
	if pattern.Kind == dsl.NodeLiteral && !pattern.Literal.Equal(node.Literal) {
		return false
	}
	if len(pattern.Children) != len(node.Children) {
		return false
	}
	for i := range pattern.Children {
		if !matchPattern(pattern.Children[i], node.Children[i], bindings) {
			return false
		}
	}
	return true
}

// substitute instantiates a replacement template under bindings.
// Unbound variables pass through unchanged.
func substitute(template *dsl.ASTNode, bindings map[string]*dsl.ASTNode) *dsl.ASTNode {
	if template.Kind == dsl.NodeVariable {
		if bound, ok := bindings[template.Name]; ok {
			return bound.Clone()
		}
		return template.Clone()
	}
	out := &dsl.ASTNode{Kind: template.Kind, Name: template.Name, Literal: template.Literal}
	for _, c := range template.Children {
		out.Children = append(out.Children, substitute(c, bindings))
	}
	return out
}
