// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_AddEdge(t *testing.T) {
	t.Run("accumulates repeated edges", func(t *testing.T) {
		g := New[string]()
		g.AddEdge("a", "b", 2)
		g.AddEdge("a", "b", 3)

		w, ok := g.Weight("a", "b")
		require.True(t, ok)
		assert.Equal(t, int64(5), w)
		assert.Equal(t, 1, g.EdgeCount())
	})

	t.Run("vertices in insertion order", func(t *testing.T) {
		g := New[string]()
		g.AddEdge("c", "a", 1)
		g.AddEdge("b", "c", 1)
		g.AddVertex("d")

		var names []string
		for _, v := range g.Vertices() {
			names = append(names, v.Value())
		}
		assert.Equal(t, []string{"c", "a", "b", "d"}, names)
		assert.Equal(t, 4, g.Len())
	})

	t.Run("self loop is an edge", func(t *testing.T) {
		g := New[string]()
		g.AddEdge("a", "a", 1)

		assert.Equal(t, 1, g.Len())
		assert.Equal(t, map[string]int64{"a": 1}, g.EdgesOf("a"))
	})

	t.Run("custom merge", func(t *testing.T) {
		g := New[string](WithMerge(func(current, added int64) int64 {
			return max(current, added)
		}))
		g.AddEdge("a", "b", 7)
		g.AddEdge("a", "b", 3)

		w, _ := g.Weight("a", "b")
		assert.Equal(t, int64(7), w)
	})
}

func TestGraph_EdgesOf(t *testing.T) {
	g := New[string]()
	g.AddEdge("a", "b", 1)
	g.AddEdge("a", "c", 4)
	g.AddEdge("b", "c", 2)

	assert.Equal(t, map[string]int64{"b": 1, "c": 4}, g.EdgesOf("a"))
	assert.Empty(t, g.EdgesOf("c"))
	assert.Nil(t, g.EdgesOf("missing"))
}

func TestGraph_SuccessorsSortedByID(t *testing.T) {
	g := New[string]()
	g.AddVertex("x")
	g.AddVertex("y")
	g.AddVertex("z")
	g.AddEdge("x", "z", 3)
	g.AddEdge("x", "y", 1)

	src, _ := g.Vertex("x")
	var targets []string
	for to, w := range g.Successors(src.ID()) {
		targets = append(targets, g.At(to).Value())
		assert.Positive(t, w)
	}
	assert.Equal(t, []string{"y", "z"}, targets)
	assert.Equal(t, int64(4), g.OutWeight(src.ID()))
	assert.Equal(t, 2, g.OutDegree(src.ID()))
}

func TestGraph_Edges(t *testing.T) {
	g := New[int]()
	g.AddEdge(2, 1, 5)
	g.AddEdge(1, 2, 6)
	g.AddEdge(2, 3, 7)

	var edges []Edge
	for e := range g.Edges() {
		edges = append(edges, e)
	}
	require.Len(t, edges, 3)
	// ids: 2->0, 1->1, 3->2
	assert.Equal(t, Edge{From: 0, To: 1, Weight: 5}, edges[0])
	assert.Equal(t, Edge{From: 0, To: 2, Weight: 7}, edges[1])
	assert.Equal(t, Edge{From: 1, To: 0, Weight: 6}, edges[2])
}

func TestVertex_Equality(t *testing.T) {
	g := New[string]()
	a1 := g.AddVertex("a")
	a2, ok := g.Vertex("a")
	require.True(t, ok)

	assert.Equal(t, a1, a2)
	assert.Equal(t, "a", a1.String())

	_, ok = g.Vertex("b")
	assert.False(t, ok)
}
