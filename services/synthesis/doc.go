// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package synthesis is the root of the Aleutian program-synthesis service.
//
// # Architecture Overview
//
// Given a handful of input/output examples and a domain-specific language
// (DSL) of typed primitives, the service searches for a small program
// consistent with the examples, and - across many solved tasks - compresses
// recurring program fragments into new reusable primitives, growing the DSL
// over time.
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│                            CALLER                                 │
//	│   (supplies SynthesisTasks, accumulates Programs and usage,       │
//	│    persists DSL / model generations across sessions)              │
//	└───────────────┬──────────────────────────────────▲───────────────┘
//	                │ SynthesisTask                     │ Program / error
//	                ▼                                   │
//	┌──────────────────────────────────────────────────┴───────────────┐
//	│  search.Synthesizer   - type-directed, cost-bounded beam search   │
//	│      │ consults (optional)                                        │
//	│      ▼                                                            │
//	│  recognition.Model    - embedding-biased primitive preferences    │
//	│      │ evaluates candidates via                                   │
//	│      ▼                                                            │
//	│  eval.Evaluate        - step-bounded, purely functional           │
//	└──────────────────────────────────────────────────────────────────┘
//	                │ solved Program corpus (batched, out-of-band)
//	                ▼
//	┌──────────────────────────────────────────────────────────────────┐
//	│  learning.Extract     - anti-unification / e-graph / fragments    │
//	│      │ PrimitiveProposals                                         │
//	│      ▼                                                            │
//	│  dsl.Evolve           - new immutable DSL generation              │
//	└──────────────────────────────────────────────────────────────────┘
//
// # Immutability Protocol
//
// DomainSpecificLanguage, Program and recognition.Model values are versioned
// snapshots: evolution and retraining always produce a new generation, and an
// in-flight search holds a reference to exactly one generation for its whole
// lifetime. There is no shared mutable state, so independent searches against
// the same snapshots run concurrently without locks.
//
// Subpackages:
//
//   - dsl:         program representation (values, primitives, ASTs, evolution)
//   - eval:        the step-bounded AST evaluator
//   - search:      the beam-search synthesizer and its error taxonomy
//   - recognition: task embeddings and the learned primitive prior
//   - learning:    the three library-compression strategies
//   - metta:       Program → MeTTa s-expression bridge for symbolic consumers
//   - telemetry:   OpenTelemetry instruments for the service
package synthesis
