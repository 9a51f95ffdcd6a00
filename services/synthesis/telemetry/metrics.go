// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry provides OpenTelemetry instruments for the synthesis
// service. Exporter wiring is a caller concern; this package only defines
// the instruments and the tracer the service emits against.
package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for synthesis spans.
const TracerName = "aleutian.synthesis"

// Tracer returns the service tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// Metrics contains pre-defined metrics for the synthesis service.
//
// Description:
//
//	Provides counters and histograms for searches, candidate expansion,
//	evaluation faults, library learning, and embedding cache traffic.
//	All metrics use the "synthesis_" prefix for consistent naming.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- Search Metrics ---

	// SearchesTotal counts synthesize calls by outcome.
	SearchesTotal metric.Int64Counter

	// SearchDuration records synthesize call duration in seconds.
	SearchDuration metric.Float64Histogram

	// CandidatesExpanded counts candidate trees generated during search.
	CandidatesExpanded metric.Int64Counter

	// EvaluationFaultsTotal counts candidates pruned for evaluation faults.
	EvaluationFaultsTotal metric.Int64Counter

	// SearchDepthReached records the depth at which searches terminate.
	SearchDepthReached metric.Int64Histogram

	// --- Learning Metrics ---

	// ProposalsTotal counts primitive proposals emitted by strategy.
	ProposalsTotal metric.Int64Counter

	// --- Recognition Metrics ---

	// EmbeddingCacheHits counts embedding cache hits.
	EmbeddingCacheHits metric.Int64Counter

	// EmbeddingCacheMisses counts embedding cache misses.
	EmbeddingCacheMisses metric.Int64Counter

	// EmbeddingFailures counts degraded-mode embedding failures.
	EmbeddingFailures metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all instruments registered
// against the provided meter.
//
// Thread Safety: Safe for concurrent use after creation.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- Search Metrics ---
	m.SearchesTotal, err = meter.Int64Counter(
		"synthesis_searches_total",
		metric.WithDescription("Total synthesize calls by outcome"),
		metric.WithUnit("{search}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create searches_total: %w", err)
	}

	m.SearchDuration, err = meter.Float64Histogram(
		"synthesis_search_duration_seconds",
		metric.WithDescription("Synthesize call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("create search_duration: %w", err)
	}

	m.CandidatesExpanded, err = meter.Int64Counter(
		"synthesis_candidates_expanded_total",
		metric.WithDescription("Candidate trees generated during search"),
		metric.WithUnit("{candidate}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create candidates_expanded: %w", err)
	}

	m.EvaluationFaultsTotal, err = meter.Int64Counter(
		"synthesis_evaluation_faults_total",
		metric.WithDescription("Candidates pruned for evaluation faults"),
		metric.WithUnit("{fault}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create evaluation_faults_total: %w", err)
	}

	m.SearchDepthReached, err = meter.Int64Histogram(
		"synthesis_search_depth_reached",
		metric.WithDescription("Depth at which searches terminate"),
		metric.WithUnit("{level}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 6, 8, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create search_depth_reached: %w", err)
	}

	// --- Learning Metrics ---
	m.ProposalsTotal, err = meter.Int64Counter(
		"synthesis_proposals_total",
		metric.WithDescription("Primitive proposals emitted by strategy"),
		metric.WithUnit("{proposal}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create proposals_total: %w", err)
	}

	// --- Recognition Metrics ---
	m.EmbeddingCacheHits, err = meter.Int64Counter(
		"synthesis_embedding_cache_hits_total",
		metric.WithDescription("Embedding cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding_cache_hits: %w", err)
	}

	m.EmbeddingCacheMisses, err = meter.Int64Counter(
		"synthesis_embedding_cache_misses_total",
		metric.WithDescription("Embedding cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding_cache_misses: %w", err)
	}

	m.EmbeddingFailures, err = meter.Int64Counter(
		"synthesis_embedding_failures_total",
		metric.WithDescription("Degraded-mode embedding failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding_failures: %w", err)
	}

	return m, nil
}
