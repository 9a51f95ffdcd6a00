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
	"fmt"
	"strconv"
	"strings"
)

// Type names a value type in a domain-specific language.
//
// Types are first-order: a Type is a flat name with no function or
// parametric structure. Primitives declare concrete argument and result
// types, which is what makes type-directed search possible.
type Type string

// Built-in scalar and container types.
const (
	TypeInvalid Type = ""
	TypeInt     Type = "int"
	TypeFloat   Type = "float"
	TypeBool    Type = "bool"
	TypeString  Type = "string"
	TypeList    Type = "list"
)

// Kind discriminates the variants of the Value tagged union.
type Kind int

const (
	// KindInvalid is the zero value, indicating an unset Value.
	KindInvalid Kind = iota
	// KindInt holds a 64-bit signed integer.
	KindInt
	// KindFloat holds a 64-bit float.
	KindFloat
	// KindBool holds a boolean.
	KindBool
	// KindString holds a string.
	KindString
	// KindList holds an ordered list of Values.
	KindList
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Type returns the DSL type name corresponding to a Kind.
func (k Kind) Type() Type {
	switch k {
	case KindInt:
		return TypeInt
	case KindFloat:
		return TypeFloat
	case KindBool:
		return TypeBool
	case KindString:
		return TypeString
	case KindList:
		return TypeList
	default:
		return TypeInvalid
	}
}

// Value is the tagged union flowing through primitive application.
//
// # Description
//
// Every input, output and intermediate result of program evaluation is a
// Value. The tag is fixed at construction; accessors for the wrong variant
// return the variant's zero value rather than panicking, so a mistyped read
// surfaces as a wrong answer in example checking, never as a crash inside
// a search.
//
// # Thread Safety
//
// Values are immutable after construction and safe to share across
// goroutines. List preserves this by copying the backing slice.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
	list []Value
}

// Int constructs an integer Value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float constructs a float Value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool constructs a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Str constructs a string Value.
func Str(v string) Value { return Value{kind: KindString, s: v} }

// List constructs a list Value. The elements are copied.
func List(elems ...Value) Value {
	cp := make([]Value, len(elems))
	copy(cp, elems)
	return Value{kind: KindList, list: cp}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Type returns the DSL type name of the Value.
func (v Value) Type() Type { return v.kind.Type() }

// IsValid reports whether the Value carries a variant.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Int returns the integer payload, or 0 for other variants.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload, or 0 for other variants.
func (v Value) Float() float64 { return v.f }

// Bool returns the boolean payload, or false for other variants.
func (v Value) Bool() bool { return v.b }

// Str returns the string payload, or "" for other variants.
func (v Value) Str() string { return v.s }

// Elems returns a copy of the list payload, or nil for other variants.
func (v Value) Elems() []Value {
	if v.kind != KindList {
		return nil
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp
}

// Len returns the list length, or 0 for other variants.
func (v Value) Len() int { return len(v.list) }

// Equal reports deep structural equality between two Values.
//
// Floats compare with ==; callers that need tolerance-based comparison
// supply their own equality predicate to the synthesizer.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindBool:
		return v.b == other.b
	case KindString:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders the Value for logs and canonical AST printing.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return strconv.Quote(v.s)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	default:
		return "<invalid>"
	}
}
