// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the synthesis failure taxonomy. All synthesis
// failures are typed return values; batch callers iterate many tasks and
// dispatch with errors.Is without one failure aborting the batch.
var (
	// ErrTimeout is returned when the budget expired before any
	// acceptable candidate was found.
	ErrTimeout = errors.New("synthesis timed out")

	// ErrNoSolutionInBudget is returned when the search space was
	// exhausted within depth and beam limits without a solution.
	ErrNoSolutionInBudget = errors.New("no solution within search budget")

	// ErrTypeMismatch is returned when no primitive or variable can
	// produce the required result type.
	ErrTypeMismatch = errors.New("no primitive produces the required type")

	// ErrInconsistentExamples is returned when two examples share an
	// input but disagree on the output. Detected before any search.
	ErrInconsistentExamples = errors.New("inconsistent examples")

	// ErrEvaluationFault is returned when a fault escapes candidate
	// containment, e.g. the accepted solution fails re-evaluation.
	ErrEvaluationFault = errors.New("evaluation fault")

	// ErrInvalidTask is returned for malformed input (nil task or DSL,
	// no training examples). Not part of the search-failure taxonomy.
	ErrInvalidTask = errors.New("invalid synthesis task")
)

// ErrorKind discriminates SynthesisError variants.
type ErrorKind int

const (
	// KindTimeout maps to ErrTimeout.
	KindTimeout ErrorKind = iota + 1
	// KindNoSolutionInBudget maps to ErrNoSolutionInBudget.
	KindNoSolutionInBudget
	// KindTypeMismatch maps to ErrTypeMismatch.
	KindTypeMismatch
	// KindInconsistentExamples maps to ErrInconsistentExamples.
	KindInconsistentExamples
	// KindEvaluationFault maps to ErrEvaluationFault.
	KindEvaluationFault
)

// String returns the string representation of an ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNoSolutionInBudget:
		return "no_solution_in_budget"
	case KindTypeMismatch:
		return "type_mismatch"
	case KindInconsistentExamples:
		return "inconsistent_examples"
	case KindEvaluationFault:
		return "evaluation_fault"
	default:
		return fmt.Sprintf("error_kind(%d)", k)
	}
}

// sentinel returns the sentinel error a kind unwraps to.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindNoSolutionInBudget:
		return ErrNoSolutionInBudget
	case KindTypeMismatch:
		return ErrTypeMismatch
	case KindInconsistentExamples:
		return ErrInconsistentExamples
	case KindEvaluationFault:
		return ErrEvaluationFault
	default:
		return nil
	}
}

// SynthesisError is a typed synthesis failure with diagnostic detail.
// It unwraps to its kind's sentinel, so errors.Is(err, ErrTimeout) and
// friends work on the wrapped form.
type SynthesisError struct {
	// Kind selects the taxonomy entry.
	Kind ErrorKind

	// Task is the failing task name.
	Task string

	// Detail is a human-readable diagnostic.
	Detail string

	// Err is an optional underlying cause (e.g. the context error).
	Err error
}

// Error implements error.
func (e *SynthesisError) Error() string {
	msg := fmt.Sprintf("synthesis of %q failed: %s", e.Task, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the kind sentinel and any underlying cause.
func (e *SynthesisError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// failure builds a SynthesisError for a task.
func failure(kind ErrorKind, task, detail string, cause error) *SynthesisError {
	return &SynthesisError{Kind: kind, Task: task, Detail: detail, Err: cause}
}
