// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package descriptor extracts fully-qualified type names from JVM type
// descriptors and generic signatures.
//
// A descriptor such as
//
//	Ljava/util/List<Ljava/util/Map<Ljava/lang/String;TV;>;>;
//
// references java.util.List, java.util.Map and java.lang.String. Type
// variables (TV;), primitives, wildcards and array markers reference nothing.
//
// # Grammar
//
//	TypeSig  = { '[' } ( ClassSig | 'T' Ident ';' | Primitive )
//	ClassSig = 'L' Path [ TypeArgs ] { '.' Ident [ TypeArgs ] } ';'
//	TypeArgs = '<' { '*' | [ '+' | '-' ] TypeSig } '>'
//
// A nested class continuation ('.' Ident) joins the preceding name into a
// single reference. Type arguments are reported after their enclosing type,
// in order of appearance.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package descriptor

import (
	"regexp"
	"strings"
)

// standard matches one plain object descriptor, optionally array typed.
var standard = regexp.MustCompile(`^\[*L[\p{L}\p{N}_/$.]+;$`)

// IsStandard reports whether s is a single non-generic object descriptor,
// such as "Ljava/lang/String;" or "[Ljava/lang/Object;".
func IsStandard(s string) bool {
	return standard.MatchString(s)
}

// BinaryNameToFQN converts an internal binary name ("java/util/Map$Entry")
// into a dotted name ("java.util.Map.Entry").
func BinaryNameToFQN(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '$' {
			return '.'
		}
		return r
	}, name)
}

// Parse returns the type names referenced by a stream of concatenated type
// descriptors, duplicates included, in order of appearance.
//
// Description:
//
//	Each descriptor in s is parsed with the TypeSig grammar. Referenced
//	class types are rendered with '.' separators.
//
// Inputs:
//
//	s - Zero or more concatenated descriptors. The empty string yields no references.
//
// Outputs:
//
//	[]string - Referenced fully-qualified names.
//	error - A *SyntaxError wrapping ErrMalformedDescriptor on unbalanced
//	        '<'/'>', a missing ';' or an unexpected character.
//
// Example:
//
//	refs, err := descriptor.Parse("Lorg/x/Outer<TE;>.Inner;")
//	// refs == []string{"org.x.Outer.Inner"}
func Parse(s string) ([]string, error) {
	p := &parser{input: s}
	for !p.done() {
		if err := p.typeSignature(); err != nil {
			return nil, err
		}
	}
	return p.refs, nil
}

// ParseMethod returns the type names referenced by a method descriptor or
// generic method signature: formal type parameter bounds, parameter types,
// the return type and thrown types, in that order.
func ParseMethod(s string) ([]string, error) {
	p := &parser{input: s}
	if err := p.formalTypeParameters(); err != nil {
		return nil, err
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}
	for p.peek() != ')' {
		if p.done() {
			return nil, p.fail("missing ')'")
		}
		if err := p.typeSignature(); err != nil {
			return nil, err
		}
	}
	p.pos++
	if err := p.typeSignature(); err != nil {
		return nil, err
	}
	for !p.done() {
		if err := p.expect('^'); err != nil {
			return nil, err
		}
		if err := p.typeSignature(); err != nil {
			return nil, err
		}
	}
	return p.refs, nil
}

// ParseClassSignature returns the type names referenced by a generic class
// signature: formal type parameter bounds, then the super class and the
// interfaces.
func ParseClassSignature(s string) ([]string, error) {
	p := &parser{input: s}
	if err := p.formalTypeParameters(); err != nil {
		return nil, err
	}
	for !p.done() {
		if err := p.typeSignature(); err != nil {
			return nil, err
		}
	}
	return p.refs, nil
}

type parser struct {
	input string
	pos   int
	refs  []string
}

func (p *parser) done() bool { return p.pos >= len(p.input) }

func (p *parser) peek() byte {
	if p.done() {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) fail(reason string) error {
	return &SyntaxError{Input: p.input, Offset: p.pos, Reason: reason}
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		return p.fail("expected '" + string(c) + "'")
	}
	p.pos++
	return nil
}

func isPrimitive(c byte) bool {
	switch c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		return true
	}
	return false
}

func (p *parser) typeSignature() error {
	for p.peek() == '[' {
		p.pos++
	}
	if p.done() {
		return p.fail("missing component type")
	}
	switch c := p.peek(); {
	case c == 'L':
		return p.classType()
	case c == 'T':
		return p.typeVariable()
	case isPrimitive(c):
		p.pos++
		return nil
	default:
		return p.fail("unexpected '" + string(c) + "'")
	}
}

// classType parses 'L' ... ';'. References found in type arguments are held
// back and appended after the enclosing name.
func (p *parser) classType() error {
	p.pos++
	var name strings.Builder
	var inner []string
	for {
		if p.done() {
			return p.fail("missing ';'")
		}
		switch c := p.input[p.pos]; c {
		case ';':
			if name.Len() == 0 {
				return p.fail("empty class name")
			}
			p.pos++
			p.refs = append(p.refs, name.String())
			p.refs = append(p.refs, inner...)
			return nil
		case '<':
			p.pos++
			mark := len(p.refs)
			if err := p.typeArguments(); err != nil {
				return err
			}
			inner = append(inner, p.refs[mark:]...)
			p.refs = p.refs[:mark]
			if c := p.peek(); c != '.' && c != ';' {
				return p.fail("expected '.' or ';' after type arguments")
			}
		case '>':
			return p.fail("unbalanced '>'")
		case '/', '$', '.':
			name.WriteByte('.')
			p.pos++
		default:
			name.WriteByte(c)
			p.pos++
		}
	}
}

// typeArguments parses up to and including the closing '>'.
func (p *parser) typeArguments() error {
	for {
		if p.done() {
			return p.fail("unbalanced '<'")
		}
		switch p.peek() {
		case '>':
			p.pos++
			return nil
		case '*':
			p.pos++
		case '+', '-':
			p.pos++
			if err := p.typeSignature(); err != nil {
				return err
			}
		default:
			if err := p.typeSignature(); err != nil {
				return err
			}
		}
	}
}

func (p *parser) typeVariable() error {
	p.pos++
	start := p.pos
	for !p.done() {
		switch p.input[p.pos] {
		case ';':
			if p.pos == start {
				return p.fail("empty type variable")
			}
			p.pos++
			return nil
		case '<', '>', '/', '[':
			return p.fail("missing ';' after type variable")
		}
		p.pos++
	}
	return p.fail("missing ';' after type variable")
}

// formalTypeParameters parses an optional '<' Ident ':' [Bound] {':' Bound} ... '>'.
func (p *parser) formalTypeParameters() error {
	if p.peek() != '<' {
		return nil
	}
	p.pos++
	for {
		if p.done() {
			return p.fail("unbalanced '<'")
		}
		if p.peek() == '>' {
			p.pos++
			return nil
		}
		start := p.pos
		for !p.done() && p.peek() != ':' {
			p.pos++
		}
		if p.done() || p.pos == start {
			return p.fail("malformed type parameter")
		}
		for p.peek() == ':' {
			p.pos++
			if c := p.peek(); c == ':' || c == '>' {
				continue
			}
			if err := p.typeSignature(); err != nil {
				return err
			}
		}
	}
}
