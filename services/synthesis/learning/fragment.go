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
	"math"

	"github.com/AleutianAI/AleutianSynth/services/synthesis/dsl"
)

// fragmentStats accumulates evidence for one abstracted subtree.
type fragmentStats struct {
	frag        *fragment
	occurrences int
	programs    map[int]bool
}

// extractFragmentGrammar mines fragments with a tree-substitution
// grammar view of the corpus. Every primitive-rooted subtree within the
// size window is abstracted and counted; a fragment is proposed only
// when its reuse value is positive, that is, the cost the corpus would
// save by invoking the fragment as a single primitive exceeds the cost
// of carrying its definition.
func extractFragmentGrammar(programs []*dsl.Program, config *Config) []*fragment {
	d := programs[0].DSL

	stats := make(map[string]*fragmentStats)
	var order []string
	subtrees(programs, func(progIdx int, n *dsl.ASTNode) {
		if n.Kind != dsl.NodePrimitive {
			return
		}
		size := n.Size()
		if size < 2 || size > config.MaxFragmentSize {
			return
		}
		f, ok := abstract(n, d)
		if !ok {
			return
		}
		key := f.body.String()
		st := stats[key]
		if st == nil {
			st = &fragmentStats{frag: f, programs: make(map[int]bool)}
			stats[key] = st
			order = append(order, key)
		}
		st.occurrences++
		st.programs[progIdx] = true
	})

	var fragments []*fragment
	for _, key := range order {
		st := stats[key]
		st.frag.support = len(st.programs)
		if reuseValue(st, len(programs), d) <= 0 {
			continue
		}
		fragments = append(fragments, st.frag)
	}
	return fragments
}

// reuseValue estimates the net cost change from adopting a fragment:
// each occurrence is rewritten from its inline primitive cost down to
// the fragment's own description-length cost, and the definition itself
// costs one inline copy to carry.
func reuseValue(st *fragmentStats, corpusSize int, d *dsl.DSL) float64 {
	inline := inlineCost(st.frag.body, d)
	proposed := -math.Log(float64(st.frag.support) / float64(corpusSize))
	if proposed < 0 {
		proposed = 0
	}
	return float64(st.occurrences)*(inline-proposed) - inline
}

// inlineCost sums the primitive costs of a fragment body.
func inlineCost(body *dsl.ASTNode, d *dsl.DSL) float64 {
	total := 0.0
	body.Walk(func(n *dsl.ASTNode) {
		if n.Kind != dsl.NodePrimitive {
			return
		}
		if p, ok := d.Primitive(n.Name); ok {
			total += p.Cost
		}
	})
	return total
}
