// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/AleutianSynth/services/synthesis/dsl"
)

var errUnknownDSL = errors.New("unknown built-in DSL")

// builtinDSL returns a named generation-0 DSL. Primitive apply bodies
// live here because a DSL cannot be deserialized from data; task files
// reference these by name.
func builtinDSL(name string) (*dsl.DSL, error) {
	switch name {
	case "", "arith":
		return arithDSL()
	default:
		return nil, fmt.Errorf("%w: %q (have: arith)", errUnknownDSL, name)
	}
}

// arithDSL is integer arithmetic over the task input. Costs approximate
// -log of expected usage frequency.
func arithDSL() (*dsl.DSL, error) {
	primitives := []dsl.Primitive{
		{
			Name: "identity", ArgTypes: []dsl.Type{dsl.TypeInt}, ResultType: dsl.TypeInt, Cost: 0.5,
			Apply: func(args []dsl.Value) (dsl.Value, error) { return args[0], nil },
		},
		{
			Name: "succ", ArgTypes: []dsl.Type{dsl.TypeInt}, ResultType: dsl.TypeInt, Cost: 0.7,
			Apply: func(args []dsl.Value) (dsl.Value, error) { return dsl.Int(args[0].Int() + 1), nil },
		},
		{
			Name: "double", ArgTypes: []dsl.Type{dsl.TypeInt}, ResultType: dsl.TypeInt, Cost: 1.0,
			Apply: func(args []dsl.Value) (dsl.Value, error) { return dsl.Int(2 * args[0].Int()), nil },
		},
		{
			Name: "negate", ArgTypes: []dsl.Type{dsl.TypeInt}, ResultType: dsl.TypeInt, Cost: 1.0,
			Apply: func(args []dsl.Value) (dsl.Value, error) { return dsl.Int(-args[0].Int()), nil },
		},
		{
			Name: "add", ArgTypes: []dsl.Type{dsl.TypeInt, dsl.TypeInt}, ResultType: dsl.TypeInt, Cost: 1.5,
			Apply: func(args []dsl.Value) (dsl.Value, error) {
				return dsl.Int(args[0].Int() + args[1].Int()), nil
			},
		},
		{
			Name: "mul", ArgTypes: []dsl.Type{dsl.TypeInt, dsl.TypeInt}, ResultType: dsl.TypeInt, Cost: 1.8,
			Apply: func(args []dsl.Value) (dsl.Value, error) {
				return dsl.Int(args[0].Int() * args[1].Int()), nil
			},
		},
	}

	a := dsl.NewVariableNode("a")
	rewrites := []dsl.RewriteRule{
		{
			Name:        "add_self_is_double",
			Pattern:     &dsl.ASTNode{Kind: dsl.NodePrimitive, Name: "add", Children: []*dsl.ASTNode{a, a}},
			Replacement: &dsl.ASTNode{Kind: dsl.NodePrimitive, Name: "double", Children: []*dsl.ASTNode{a}},
		},
		{
			Name:        "identity_elim",
			Pattern:     &dsl.ASTNode{Kind: dsl.NodePrimitive, Name: "identity", Children: []*dsl.ASTNode{a}},
			Replacement: a,
		},
	}

	return dsl.New("arith", primitives, nil, rewrites)
}
