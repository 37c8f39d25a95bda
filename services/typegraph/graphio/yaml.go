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
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
)

// Document is the YAML form of a graph.
type Document struct {
	Vertices []string      `yaml:"vertices"`
	Edges    []EdgeElement `yaml:"edges"`
}

// EdgeElement is one YAML edge. A missing weight means 1.
type EdgeElement struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Weight *int64 `yaml:"weight,omitempty"`

	// Packed is informational; readers ignore it.
	Packed string `yaml:"packed,omitempty"`
}

// NewDocument converts g into its YAML form.
func NewDocument(g *graph.Graph[string], opts WriteOptions) Document {
	doc := Document{Vertices: make([]string, 0, g.Len())}
	for _, v := range g.Vertices() {
		doc.Vertices = append(doc.Vertices, v.Value())
	}
	for e := range g.Edges() {
		w := e.Weight
		el := EdgeElement{From: g.At(e.From).Value(), To: g.At(e.To).Value(), Weight: &w}
		if opts.Packed {
			el.Packed = graph.Packed(uint32(e.Weight)).String()
		}
		doc.Edges = append(doc.Edges, el)
	}
	return doc
}

// Graph builds the graph described by the document. Edge endpoints not
// listed as vertices are added in edge order.
func (d Document) Graph() (*graph.Graph[string], error) {
	g := graph.New[string](graph.WithCapacity(len(d.Vertices)))
	for _, v := range d.Vertices {
		g.AddVertex(v)
	}
	for i, e := range d.Edges {
		if e.From == "" || e.To == "" {
			return nil, &SyntaxError{Reason: fmt.Sprintf("edge %d has an empty endpoint", i)}
		}
		weight := int64(1)
		if e.Weight != nil {
			weight = *e.Weight
		}
		g.AddEdge(e.From, e.To, weight)
	}
	return g, nil
}

// WriteYAML encodes g as YAML.
func WriteYAML(w io.Writer, g *graph.Graph[string], opts WriteOptions) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(g, opts)); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}

// ReadYAML decodes a YAML graph.
func ReadYAML(r io.Reader) (*graph.Graph[string], error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return graph.New[string](), nil
		}
		return nil, &SyntaxError{Reason: err.Error()}
	}
	return doc.Graph()
}
