// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dsl is the program representation for the synthesis service:
// the tagged-union Value, typed Primitives with TypeRules, immutable
// DomainSpecificLanguage snapshots, AST nodes and trees, solved Programs,
// and the Evolve step that folds learned primitives into the next DSL
// generation.
//
// # Snapshot Protocol
//
// Every aggregate here is a versioned snapshot, never mutated in place:
//
//	caller DSL (gen 0) ──Evolve──▶ gen 1 ──Evolve──▶ gen 2 ── ...
//
// A search pins one generation for its lifetime; learning and evolution
// run out-of-band and future searches opt into new generations
// explicitly. This is what lets many searches share snapshots without
// locks.
package dsl
