// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package shortest computes single-source shortest distances over index
// adjacency with non-negative weights.
package shortest

import (
	"container/heap"
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
)

// Infinity is the distance reported for unreachable vertices.
const Infinity int64 = math.MaxInt64

// ErrUnknownVertex is returned by FromGraph when the source is not a vertex.
var ErrUnknownVertex = errors.New("unknown source vertex")

// EdgeFunc yields the (neighbor, weight) pairs of a vertex index.
type EdgeFunc func(v int) iter.Seq2[int, int64]

// Tree holds the distances and the shortest-path predecessors from one source.
type Tree struct {
	// Source is the start index.
	Source int

	// Dist[v] is the distance from Source to v, or Infinity.
	Dist []int64

	// Prev[v] is the predecessor of v on a shortest path, or -1.
	Prev []int
}

// Path returns the vertex indexes from Source to target, both included.
// It returns nil when target is unreachable.
func (t *Tree) Path(target int) []int {
	if target < 0 || target >= len(t.Dist) || t.Dist[target] == Infinity {
		return nil
	}
	var path []int
	for v := target; v != -1; v = t.Prev[v] {
		path = append(path, v)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Distances returns the shortest distance from source to every vertex 0..n-1.
//
// Description:
//
//	Classic Dijkstra relaxation with a binary-heap frontier. Edges leading
//	outside 0..n-1 are ignored. Distances saturate at Infinity.
//
// Inputs:
//
//	n - Number of vertices.
//	edges - Lazy adjacency for each vertex. Weights must be non-negative.
//	source - Start index in 0..n-1.
//
// Outputs:
//
//	[]int64 - Distance per vertex; Infinity when unreachable. Every entry is
//	          Infinity when source is out of range.
func Distances(n int, edges EdgeFunc, source int) []int64 {
	return Search(n, edges, source).Dist
}

// Search is Distances with predecessor tracking.
func Search(n int, edges EdgeFunc, source int) *Tree {
	t := &Tree{
		Source: source,
		Dist:   make([]int64, n),
		Prev:   make([]int, n),
	}
	for i := range t.Dist {
		t.Dist[i] = Infinity
		t.Prev[i] = -1
	}
	if source < 0 || source >= n {
		return t
	}

	t.Dist[source] = 0
	frontier := &queue{{vertex: source, dist: 0}}
	settled := make([]bool, n)

	for frontier.Len() > 0 {
		cur := heap.Pop(frontier).(item)
		if settled[cur.vertex] {
			continue
		}
		settled[cur.vertex] = true

		for next, w := range edges(cur.vertex) {
			if next < 0 || next >= n || settled[next] {
				continue
			}
			d := saturatingAdd(cur.dist, w)
			if d < t.Dist[next] {
				t.Dist[next] = d
				t.Prev[next] = cur.vertex
				heap.Push(frontier, item{vertex: next, dist: d})
			}
		}
	}
	return t
}

// FromGraph runs Distances over g, starting at source.
//
// The result maps every reachable vertex to its distance; unreachable
// vertices map to Infinity.
func FromGraph[T comparable](g *graph.Graph[T], source T) (map[T]int64, error) {
	src, ok := g.Vertex(source)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownVertex, source)
	}
	dist := Distances(g.Len(), Adjacency(g), int(src.ID()))

	result := make(map[T]int64, len(dist))
	for i, d := range dist {
		result[g.At(graph.VertexID(i)).Value()] = d
	}
	return result, nil
}

// Adjacency adapts the outgoing edges of g to an EdgeFunc over vertex ids.
func Adjacency[T comparable](g *graph.Graph[T]) EdgeFunc {
	return func(v int) iter.Seq2[int, int64] {
		return func(yield func(int, int64) bool) {
			for to, w := range g.Successors(graph.VertexID(v)) {
				if !yield(int(to), w) {
					return
				}
			}
		}
	}
}

func saturatingAdd(a, b int64) int64 {
	if b > 0 && a > Infinity-b {
		return Infinity
	}
	return a + b
}

type item struct {
	vertex int
	dist   int64
}

// queue is a min-heap of items by distance, then vertex index.
type queue []item

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].vertex < q[j].vertex
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(item)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
