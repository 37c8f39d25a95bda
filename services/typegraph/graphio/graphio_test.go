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
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
)

func fixture() *graph.Graph[string] {
	g := graph.New[string]()
	g.AddEdge("org.x.A", "org.x.B", int64(graph.Of(graph.CategoryField, 2)))
	g.AddEdge("org.x.B", "org.x.A", 3)
	g.AddEdge("org.x.B", `we"ird\name`, 1)
	g.AddVertex("org.x.Lonely")
	return g
}

func assertSameGraph(t *testing.T, want, got *graph.Graph[string]) {
	t.Helper()
	require.Equal(t, want.Len(), got.Len())
	for i, v := range want.Vertices() {
		assert.Equal(t, v.Value(), got.At(graph.VertexID(i)).Value())
		assert.Equal(t, want.EdgesOf(v.Value()), got.EdgesOf(v.Value()))
	}
	assert.Equal(t, want.EdgeCount(), got.EdgeCount())
}

func TestGML_RoundTrip(t *testing.T) {
	g := fixture()
	var buf bytes.Buffer
	require.NoError(t, WriteGML(&buf, g, WriteOptions{Packed: true}))

	out := buf.String()
	assert.Contains(t, out, `label "org.x.A"`)
	assert.Contains(t, out, `packed "F2"`)
	// Node weight is the sum of outgoing weights.
	assert.Contains(t, out, "id 2\n\t\tlabel \"org.x.B\"\n\t\tweight 4\n")

	got, err := ReadGML(&buf)
	require.NoError(t, err)
	assertSameGraph(t, g, got)
}

func TestReadGML_JGraphTExport(t *testing.T) {
	src := `Creator "JGraphT GML Exporter"
Version 1
graph
[
	label ""
	directed 1
	node
	[
		id 1
		label "a.A"
		weight 5
	]
	node
	[
		id 2
	]
	# comment line
	edge
	[
		id 1
		source 1
		target 2
		weight 5
	]
	edge
	[
		id 2
		source 2
		target 1
	]
]
`
	g, err := ReadGML(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"2": 5}, g.EdgesOf("a.A"))
	assert.Equal(t, map[string]int64{"a.A": 1}, g.EdgesOf("2"))
}

func TestReadGML_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no graph", `Version 1`},
		{"unbalanced", "graph [ node [ id 1 ]"},
		{"stray close", "graph [ ] ]"},
		{"unknown node", "graph [ node [ id 1 ] edge [ source 1 target 9 ] ]"},
		{"node without id", `graph [ node [ label "x" ] ]`},
		{"unterminated string", `graph [ node [ id 1 label "x ] ]`},
		{"bad character", "graph [ node [ id 1 ] @ ]"},
		{"fractional weight", "graph [ node [ id 1 ] edge [ source 1 target 1 weight 1.5 ] ]"},
		{"infinite weight", "graph [ node [ id 1 ] edge [ source 1 target 1 weight 1e400 ] ]"},
		{"string weight", `graph [ node [ id 1 ] edge [ source 1 target 1 weight "2" ] ]`},
		{"duplicate id", "graph [ node [ id 1 ] node [ id 1 ] ]"},
		{"duplicate label", `graph [ node [ id 1 label "x" ] node [ id 2 label "x" ] ]`},
		{"label equals unlabeled id", `graph [ node [ id 2 ] node [ id 3 label "2" ] ]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGML(strings.NewReader(tt.src))
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}

func TestReadGML_IntegralFloatWeight(t *testing.T) {
	g, err := ReadGML(strings.NewReader(`graph [ node [ id 1 label "a" ] node [ id 2 label "b" ] edge [ source 1 target 2 weight 2.0 ] edge [ source 2 target 1 weight 1e2 ] ]`))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"b": 2}, g.EdgesOf("a"))
	assert.Equal(t, map[string]int64{"a": 100}, g.EdgesOf("b"))
}

func TestYAML_RoundTrip(t *testing.T) {
	g := fixture()
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, g, WriteOptions{}))

	got, err := ReadYAML(&buf)
	require.NoError(t, err)
	assertSameGraph(t, g, got)
}

func TestReadYAML(t *testing.T) {
	t.Run("default weight and implicit vertices", func(t *testing.T) {
		src := "vertices: [a]\nedges:\n  - {from: b, to: a}\n  - {from: a, to: c, weight: 7}\n"
		g, err := ReadYAML(strings.NewReader(src))
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b", "c"}, []string{g.At(0).Value(), g.At(1).Value(), g.At(2).Value()})
		assert.Equal(t, map[string]int64{"a": 1}, g.EdgesOf("b"))
		assert.Equal(t, map[string]int64{"c": 7}, g.EdgesOf("a"))
	})

	t.Run("empty document", func(t *testing.T) {
		g, err := ReadYAML(strings.NewReader(""))
		require.NoError(t, err)
		assert.Zero(t, g.Len())
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := ReadYAML(strings.NewReader("nodes: [a]\n"))
		assert.ErrorIs(t, err, ErrSyntax)
	})

	t.Run("empty endpoint", func(t *testing.T) {
		_, err := ReadYAML(strings.NewReader("edges:\n  - {from: a}\n"))
		assert.ErrorIs(t, err, ErrSyntax)
	})
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	g := fixture()

	for _, name := range []string{"g.gml", "g.yaml", "g.YML"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, WriteFile(path, g, WriteOptions{}))

			got, err := ReadFile(path)
			require.NoError(t, err)
			assertSameGraph(t, g, got)
		})
	}

	_, err := ReadFile(filepath.Join(dir, "g.txt"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.ErrorIs(t, WriteFile(filepath.Join(dir, "g.dot"), g, WriteOptions{}), ErrUnknownFormat)
}
