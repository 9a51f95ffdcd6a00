// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package metta renders synthesized programs as MeTTa s-expressions so
// downstream symbolic reasoners can consume them.
//
// Translation is a pure function: no I/O, no clock, no randomness. The
// same program always yields byte-identical output.
//
// Rendering rules:
//
//   - variables carry a "$" sigil: x becomes $x
//   - primitive applications nest: (add (double $x) $x)
//   - booleans render as MeTTa's True/False atoms
//   - strings are double-quoted with Go escaping
//   - lists render as nested expressions: (1 2 3)
package metta

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianSynth/services/synthesis/dsl"
)

// Errors returned by translation.
var (
	ErrNilProgram   = errors.New("nil program")
	ErrInvalidValue = errors.New("invalid literal value")
)

// Translate renders a program's AST as a MeTTa s-expression.
//
// # Example
//
//	s, _ := metta.Translate(prog)
//	// s == "(add (double $x) $x)"
func Translate(p *dsl.Program) (string, error) {
	if p == nil || p.Tree == nil || p.Tree.Root == nil {
		return "", ErrNilProgram
	}
	var sb strings.Builder
	if err := render(&sb, p.Tree.Root); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// TranslateDefinition renders a program as a MeTTa equality over the
// input variable, suitable for loading into an atomspace:
//
//	(= (triple $x) (add (double $x) $x))
func TranslateDefinition(p *dsl.Program) (string, error) {
	body, err := Translate(p)
	if err != nil {
		return "", err
	}
	name := p.Name
	if name == "" {
		name = "program"
	}
	return fmt.Sprintf("(= (%s $%s) %s)", name, dsl.InputVariable, body), nil
}

func render(sb *strings.Builder, n *dsl.ASTNode) error {
	switch n.Kind {
	case dsl.NodeVariable:
		sb.WriteByte('$')
		sb.WriteString(n.Name)
		return nil
	case dsl.NodeLiteral:
		return renderValue(sb, n.Literal)
	case dsl.NodePrimitive:
		sb.WriteByte('(')
		sb.WriteString(n.Name)
		for _, c := range n.Children {
			sb.WriteByte(' ')
			if err := render(sb, c); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
		return nil
	default:
		return fmt.Errorf("%w: node kind %v", ErrInvalidValue, n.Kind)
	}
}

func renderValue(sb *strings.Builder, v dsl.Value) error {
	switch v.Kind() {
	case dsl.KindInt:
		sb.WriteString(strconv.FormatInt(v.Int(), 10))
	case dsl.KindFloat:
		sb.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	case dsl.KindBool:
		if v.Bool() {
			sb.WriteString("True")
		} else {
			sb.WriteString("False")
		}
	case dsl.KindString:
		sb.WriteString(strconv.Quote(v.Str()))
	case dsl.KindList:
		sb.WriteByte('(')
		for i, e := range v.Elems() {
			if i > 0 {
				sb.WriteByte(' ')
			}
			if err := renderValue(sb, e); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
	default:
		return fmt.Errorf("%w: kind %v", ErrInvalidValue, v.Kind())
	}
	return nil
}
