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
	"log/slog"
	"math"
	"sort"
)

// ErrNilDSL is returned when Evolve is called without a base DSL.
var ErrNilDSL = errors.New("nil DSL")

// EvolveConfig tunes DSL evolution. The weighting constants shape search
// preference only; they are not part of the correctness contract.
type EvolveConfig struct {
	// MaxPrimitives caps the grammar size across generations. When the
	// merged primitive set exceeds the cap, under-used primitives are
	// pruned. Default: 256.
	MaxPrimitives int

	// UsageFloor is the usage count below which a primitive becomes
	// eligible for pruning. Default: 2.
	UsageFloor int

	// SmoothingAlpha is the additive smoothing applied when converting
	// usage frequencies to costs. Default: 1.0.
	SmoothingAlpha float64

	// MinCost is the lower bound on a re-weighted cost, keeping costs
	// strictly positive so deeper trees always cost more. Default: 0.05.
	MinCost float64

	// Logger receives pruning and collision events. Default:
	// slog.Default().
	Logger *slog.Logger
}

// DefaultEvolveConfig returns the default configuration.
func DefaultEvolveConfig() *EvolveConfig {
	return &EvolveConfig{
		MaxPrimitives:  256,
		UsageFloor:     2,
		SmoothingAlpha: 1.0,
		MinCost:        0.05,
	}
}

// Evolve folds learned proposals and usage statistics into the next DSL
// generation.
//
// # Description
//
// Produces a new immutable snapshot with generation N+1:
//
//   - existing primitive costs are re-weighted from usage so that
//     frequently and successfully used primitives become cheaper
//   - proposals are added, renamed with a "_g<N+1>" suffix on collision
//   - when the merged set exceeds the size cap, primitives whose usage
//     fell below the floor are pruned, least-used first
//
// Evolving with no proposals and empty statistics is a no-op: the result
// is semantically identical to the input (same primitives, same costs),
// only the generation counter advances.
//
// The input DSL is never touched; searches holding it keep a frozen view.
//
// # Outputs
//
//   - *DSL: the next generation.
//   - error: non-nil only on construction-level faults (nil base DSL, a
//     proposal without an implementation). Insufficient data is not an
//     error.
func Evolve(d *DSL, proposals []PrimitiveProposal, usage *UsageStatistics, config *EvolveConfig) (*DSL, error) {
	if d == nil {
		return nil, ErrNilDSL
	}
	if config == nil {
		config = DefaultEvolveConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	nextGen := d.generation + 1

	prims := d.Primitives()
	if !usage.Empty() {
		reweight(prims, usage, config)
	}

	// Deterministic insertion order regardless of learner iteration order.
	sorted := make([]PrimitiveProposal, len(proposals))
	copy(sorted, proposals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	taken := make(map[string]bool, len(prims))
	for _, p := range prims {
		taken[p.Name] = true
	}
	added := make(map[string]bool, len(sorted))
	for _, prop := range sorted {
		if prop.Apply == nil {
			return nil, fmt.Errorf("%w: proposal %q", ErrNilApply, prop.Name)
		}
		prim := prop.Primitive()
		if taken[prim.Name] {
			renamed := fmt.Sprintf("%s_g%d", prim.Name, nextGen)
			for n := 2; taken[renamed]; n++ {
				renamed = fmt.Sprintf("%s_g%d_%d", prim.Name, nextGen, n)
			}
			logger.Debug("renaming colliding proposal",
				"proposal", prim.Name, "renamed", renamed, "generation", nextGen)
			prim.Name = renamed
		}
		taken[prim.Name] = true
		added[prim.Name] = true
		prims = append(prims, prim)
	}

	if len(prims) > config.MaxPrimitives && !usage.Empty() {
		prims = prune(prims, usage, added, config, logger)
	}

	return d.derive(prims)
}

// reweight lowers the cost of frequently and successfully used primitives
// using smoothed negative log-frequency. Primitives with no recorded usage
// keep their current cost.
func reweight(prims []Primitive, usage *UsageStatistics, config *EvolveConfig) {
	alpha := config.SmoothingAlpha
	total := 0.0
	for i := range prims {
		total += usageWeight(prims[i].Name, usage)
	}
	if total <= 0 {
		return
	}
	denom := total + alpha*float64(len(prims))
	for i := range prims {
		w := usageWeight(prims[i].Name, usage)
		if w <= 0 {
			continue
		}
		cost := -math.Log((w + alpha) / denom)
		if cost < config.MinCost {
			cost = config.MinCost
		}
		prims[i].Cost = cost
	}
}

// usageWeight combines raw count and accumulated score so that a primitive
// that appears often in low-reward programs does not crowd out one that
// appears in consistently good ones.
func usageWeight(name string, usage *UsageStatistics) float64 {
	w := float64(usage.PrimitiveCounts[name])
	if s := usage.PrimitiveScores[name]; s > 0 {
		w += s
	}
	return w
}

// prune drops under-used primitives, least-used first, until the cap is
// met or no primitive remains below the floor. Primitives added in this
// generation are exempt; they have had no chance to accumulate usage.
func prune(prims []Primitive, usage *UsageStatistics, added map[string]bool, config *EvolveConfig, logger *slog.Logger) []Primitive {
	type candidate struct {
		name  string
		count int
	}
	var candidates []candidate
	for _, p := range prims {
		if added[p.Name] {
			continue
		}
		if count := usage.PrimitiveCounts[p.Name]; count < config.UsageFloor {
			candidates = append(candidates, candidate{name: p.Name, count: count})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count < candidates[j].count
		}
		return candidates[i].name < candidates[j].name
	})

	drop := make(map[string]bool)
	for _, c := range candidates {
		if len(prims)-len(drop) <= config.MaxPrimitives {
			break
		}
		drop[c.name] = true
		logger.Debug("pruning under-used primitive",
			"primitive", c.name, "count", c.count, "floor", config.UsageFloor)
	}
	if len(drop) == 0 {
		return prims
	}
	kept := prims[:0]
	for _, p := range prims {
		if !drop[p.Name] {
			kept = append(kept, p)
		}
	}
	return kept
}

// EquivalentTo reports semantic equality between two DSL snapshots: same
// name and the same primitives with identical signatures and costs,
// ignoring generation counters and snapshot IDs.
func (d *DSL) EquivalentTo(other *DSL) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.name != other.name || len(d.primitives) != len(other.primitives) {
		return false
	}
	for i, p := range d.primitives {
		q := other.primitives[i]
		if p.Name != q.Name || p.ResultType != q.ResultType || p.Cost != q.Cost {
			return false
		}
		if len(p.ArgTypes) != len(q.ArgTypes) {
			return false
		}
		for j := range p.ArgTypes {
			if p.ArgTypes[j] != q.ArgTypes[j] {
				return false
			}
		}
	}
	return true
}
