// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
)

// WriteOptions configures graph writers.
type WriteOptions struct {
	// Packed adds a "packed" attribute with the graph.Packed rendering of
	// each edge weight. Only meaningful for type graphs.
	Packed bool
}

// WriteGML encodes g as GML. Node ids are 1-based in vertex insertion order.
func WriteGML(w io.Writer, g *graph.Graph[string], opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, `Creator "typegraph"`)
	fmt.Fprintln(bw, "Version 1")
	fmt.Fprintln(bw, "graph")
	fmt.Fprintln(bw, "[")
	fmt.Fprintln(bw, "\tdirected 1")
	for _, v := range g.Vertices() {
		fmt.Fprintln(bw, "\tnode")
		fmt.Fprintln(bw, "\t[")
		fmt.Fprintf(bw, "\t\tid %d\n", v.ID()+1)
		fmt.Fprintf(bw, "\t\tlabel %s\n", quote(v.Value()))
		fmt.Fprintf(bw, "\t\tweight %d\n", g.OutWeight(v.ID()))
		fmt.Fprintln(bw, "\t]")
	}
	id := 0
	for e := range g.Edges() {
		id++
		fmt.Fprintln(bw, "\tedge")
		fmt.Fprintln(bw, "\t[")
		fmt.Fprintf(bw, "\t\tid %d\n", id)
		fmt.Fprintf(bw, "\t\tsource %d\n", e.From+1)
		fmt.Fprintf(bw, "\t\ttarget %d\n", e.To+1)
		fmt.Fprintf(bw, "\t\tweight %d\n", e.Weight)
		if opts.Packed {
			fmt.Fprintf(bw, "\t\tpacked %s\n", quote(graph.Packed(uint32(e.Weight)).String()))
		}
		fmt.Fprintln(bw, "\t]")
	}
	fmt.Fprintln(bw, "]")
	return bw.Flush()
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// ReadGML decodes a GML graph. Vertices are named by their label, or by
// their id when unlabeled; edges without a weight get weight 1.
func ReadGML(r io.Reader) (*graph.Graph[string], error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p := &gmlParser{lex: lexer{src: string(data), line: 1}}
	root, err := p.list(false)
	if err != nil {
		return nil, err
	}

	body := root.find("graph")
	if body == nil || body.kind != valueList {
		return nil, &SyntaxError{Reason: "missing graph block"}
	}

	g := graph.New[string]()
	names := make(map[string]string)
	labels := make(map[string]string)
	for _, kv := range body.list {
		if kv.key != "node" {
			continue
		}
		if kv.val.kind != valueList {
			return nil, &SyntaxError{Line: kv.line, Reason: "node is not a list"}
		}
		id := kv.val.find("id")
		if id == nil || id.kind != valueNumber {
			return nil, &SyntaxError{Line: kv.line, Reason: "node without numeric id"}
		}
		name := id.text
		if label := kv.val.find("label"); label != nil {
			name = label.text
		}
		if _, dup := names[id.text]; dup {
			return nil, &SyntaxError{Line: kv.line, Reason: "duplicate node id " + id.text}
		}
		if other, dup := labels[name]; dup {
			return nil, &SyntaxError{Line: kv.line, Reason: fmt.Sprintf("nodes %s and %s share label %q", other, id.text, name)}
		}
		names[id.text] = name
		labels[name] = id.text
		g.AddVertex(name)
	}

	for _, kv := range body.list {
		if kv.key != "edge" {
			continue
		}
		if kv.val.kind != valueList {
			return nil, &SyntaxError{Line: kv.line, Reason: "edge is not a list"}
		}
		from, err := endpoint(kv, "source", names)
		if err != nil {
			return nil, err
		}
		to, err := endpoint(kv, "target", names)
		if err != nil {
			return nil, err
		}
		weight := int64(1)
		if w := kv.val.find("weight"); w != nil {
			weight, err = w.asInt64()
			if err != nil {
				return nil, &SyntaxError{Line: kv.line, Reason: "bad weight: " + err.Error()}
			}
		}
		g.AddEdge(from, to, weight)
	}
	return g, nil
}

func endpoint(kv keyValue, key string, names map[string]string) (string, error) {
	ref := kv.val.find(key)
	if ref == nil {
		return "", &SyntaxError{Line: kv.line, Reason: "edge without " + key}
	}
	name, ok := names[ref.text]
	if !ok {
		return "", &SyntaxError{Line: kv.line, Reason: fmt.Sprintf("edge %s %s is not a node", key, ref.text)}
	}
	return name, nil
}

type valueKind int

const (
	valueNumber valueKind = iota
	valueString
	valueList
)

type value struct {
	kind valueKind
	text string
	list []keyValue
}

type keyValue struct {
	key  string
	val  value
	line int
}

// find returns the first value stored under key.
func (v *value) find(key string) *value {
	for i := range v.list {
		if v.list[i].key == key {
			return &v.list[i].val
		}
	}
	return nil
}

func (v *value) asInt64() (int64, error) {
	if v.kind != valueNumber {
		return 0, fmt.Errorf("%q is not a number", v.text)
	}
	if n, err := strconv.ParseInt(v.text, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v.text, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%s is not an integer", v.text)
	}
	return int64(f), nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokKey
	tokNumber
	tokString
	tokOpen
	tokClose
)

type token struct {
	kind tokenKind
	text string
	line int
}

type lexer struct {
	src  string
	pos  int
	line int
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		default:
			return l.token()
		}
	}
	return token{kind: tokEOF, line: l.line}, nil
}

func (l *lexer) token() (token, error) {
	start := l.pos
	c := l.src[l.pos]
	switch {
	case c == '[':
		l.pos++
		return token{kind: tokOpen, line: l.line}, nil
	case c == ']':
		l.pos++
		return token{kind: tokClose, line: l.line}, nil
	case c == '"':
		return l.str()
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		l.pos++
		for l.pos < len(l.src) && strings.IndexByte("0123456789.eE+-", l.src[l.pos]) >= 0 {
			l.pos++
		}
		return token{kind: tokNumber, text: l.src[start:l.pos], line: l.line}, nil
	case isLetter(c):
		for l.pos < len(l.src) && (isLetter(l.src[l.pos]) || isDigit(l.src[l.pos])) {
			l.pos++
		}
		return token{kind: tokKey, text: l.src[start:l.pos], line: l.line}, nil
	default:
		return token{}, &SyntaxError{Line: l.line, Reason: fmt.Sprintf("unexpected %q", c)}
	}
}

func (l *lexer) str() (token, error) {
	line := l.line
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case '"':
			l.pos++
			return token{kind: tokString, text: sb.String(), line: line}, nil
		case '\\':
			if l.pos+1 < len(l.src) {
				l.pos++
				c = l.src[l.pos]
			}
		case '\n':
			l.line++
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, &SyntaxError{Line: line, Reason: "unterminated string"}
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') }

type gmlParser struct {
	lex lexer
}

// list parses key/value pairs up to ']' (nested) or end of input (top level).
func (p *gmlParser) list(nested bool) (value, error) {
	v := value{kind: valueList}
	for {
		tok, err := p.lex.next()
		if err != nil {
			return value{}, err
		}
		switch tok.kind {
		case tokEOF:
			if nested {
				return value{}, &SyntaxError{Line: tok.line, Reason: "unbalanced '['"}
			}
			return v, nil
		case tokClose:
			if !nested {
				return value{}, &SyntaxError{Line: tok.line, Reason: "unbalanced ']'"}
			}
			return v, nil
		case tokKey:
			val, err := p.value()
			if err != nil {
				return value{}, err
			}
			v.list = append(v.list, keyValue{key: tok.text, val: val, line: tok.line})
		default:
			return value{}, &SyntaxError{Line: tok.line, Reason: "expected key"}
		}
	}
}

func (p *gmlParser) value() (value, error) {
	tok, err := p.lex.next()
	if err != nil {
		return value{}, err
	}
	switch tok.kind {
	case tokNumber:
		return value{kind: valueNumber, text: tok.text}, nil
	case tokString:
		return value{kind: valueString, text: tok.text}, nil
	case tokOpen:
		return p.list(true)
	default:
		return value{}, &SyntaxError{Line: tok.line, Reason: "expected value"}
	}
}
