// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package shortest

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
)

type weighted struct {
	to     int
	weight int64
}

func fixedEdges(adj map[int][]weighted) EdgeFunc {
	return func(v int) iter.Seq2[int, int64] {
		return func(yield func(int, int64) bool) {
			for _, e := range adj[v] {
				if !yield(e.to, e.weight) {
					return
				}
			}
		}
	}
}

func diamond() EdgeFunc {
	return fixedEdges(map[int][]weighted{
		0: {{1, 1}, {2, 4}, {3, 5}},
		1: {{2, 2}},
		2: {{3, 1}},
	})
}

func TestDistances(t *testing.T) {
	tests := []struct {
		source int
		want   []int64
	}{
		{0, []int64{0, 1, 3, 4}},
		{1, []int64{Infinity, 0, 2, 3}},
		{2, []int64{Infinity, Infinity, 0, 1}},
		{3, []int64{Infinity, Infinity, Infinity, 0}},
	}
	for _, tt := range tests {
		t.Run("from "+string(rune('0'+tt.source)), func(t *testing.T) {
			assert.Equal(t, tt.want, Distances(4, diamond(), tt.source))
		})
	}
}

func TestDistances_SourceOutOfRange(t *testing.T) {
	got := Distances(2, diamond(), 7)
	assert.Equal(t, []int64{Infinity, Infinity}, got)
}

func TestSearch_Path(t *testing.T) {
	tree := Search(4, diamond(), 0)

	assert.Equal(t, []int{0, 1, 2, 3}, tree.Path(3))
	assert.Equal(t, []int{0}, tree.Path(0))

	fromTwo := Search(4, diamond(), 2)
	assert.Nil(t, fromTwo.Path(0))
}

func TestFromGraph(t *testing.T) {
	g := graph.New[string]()
	g.AddEdge("a", "b", 1)
	g.AddEdge("a", "c", 4)
	g.AddEdge("b", "c", 2)
	g.AddVertex("island")

	dist, err := FromGraph(g, "a")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 0, "b": 1, "c": 3, "island": Infinity}, dist)

	_, err = FromGraph(g, "nope")
	assert.ErrorIs(t, err, ErrUnknownVertex)
}

func TestSaturatingAdd(t *testing.T) {
	assert.Equal(t, Infinity, saturatingAdd(Infinity-1, 5))
	assert.Equal(t, int64(7), saturatingAdd(3, 4))
}
