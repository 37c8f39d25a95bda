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
	"fmt"
	"iter"
	"slices"
)

// VertexID is the stable arena index of a vertex, assigned in insertion order.
type VertexID int

// Vertex is an immutable wrapper around an opaque identity value.
//
// Two vertices obtained from the same graph are equal exactly when their
// identity values are equal.
type Vertex[T comparable] struct {
	id    VertexID
	value T
}

// ID returns the arena index of the vertex.
func (v Vertex[T]) ID() VertexID { return v.id }

// Value returns the wrapped identity.
func (v Vertex[T]) Value() T { return v.value }

// String renders the wrapped identity.
func (v Vertex[T]) String() string { return fmt.Sprint(v.value) }

// Edge is one aggregated, directed, weighted edge.
type Edge struct {
	From   VertexID
	To     VertexID
	Weight int64
}

// arc is an outgoing adjacency entry; slices of arcs are kept sorted by target.
type arc struct {
	to     VertexID
	weight int64
}

// MergeFunc combines the stored weight of an edge with a newly added weight.
type MergeFunc func(current, added int64) int64

// AddWeights is the default MergeFunc.
func AddWeights(current, added int64) int64 { return current + added }

// Options configures Graph behavior.
type Options struct {
	// Merge combines weights of repeated edges.
	// Default: AddWeights
	Merge MergeFunc

	// Capacity pre-sizes the vertex arena.
	// Default: 0
	Capacity int
}

// Option is a functional option for configuring Graph.
type Option func(*Options)

// WithMerge sets the function used to merge weights of repeated edges.
func WithMerge(fn MergeFunc) Option {
	return func(o *Options) {
		o.Merge = fn
	}
}

// WithCapacity pre-sizes the vertex arena.
func WithCapacity(n int) Option {
	return func(o *Options) {
		o.Capacity = n
	}
}

// Graph is a directed weighted graph without parallel edges.
//
// Thread Safety:
//
//	Not safe for concurrent mutation. Safe for concurrent reads once
//	population is finished.
type Graph[T comparable] struct {
	values    []T
	index     map[T]VertexID
	out       [][]arc
	edgeCount int
	merge     MergeFunc
}

// New creates an empty graph.
func New[T comparable](opts ...Option) *Graph[T] {
	options := Options{Merge: AddWeights}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Merge == nil {
		options.Merge = AddWeights
	}
	return &Graph[T]{
		values: make([]T, 0, options.Capacity),
		index:  make(map[T]VertexID, options.Capacity),
		out:    make([][]arc, 0, options.Capacity),
		merge:  options.Merge,
	}
}

// AddVertex adds value to the graph if absent and returns its vertex.
func (g *Graph[T]) AddVertex(value T) Vertex[T] {
	if id, ok := g.index[value]; ok {
		return Vertex[T]{id: id, value: value}
	}
	id := VertexID(len(g.values))
	g.values = append(g.values, value)
	g.out = append(g.out, nil)
	g.index[value] = id
	return Vertex[T]{id: id, value: value}
}

// AddEdge inserts the edge from -> to, or merges weight into the existing one.
//
// Both endpoints are added as vertices when absent. The source is added
// first, so insertion order follows the order in which identities appear.
func (g *Graph[T]) AddEdge(from, to T, weight int64) {
	src := g.AddVertex(from).id
	dst := g.AddVertex(to).id
	g.addArc(src, dst, weight)
}

func (g *Graph[T]) addArc(src, dst VertexID, weight int64) {
	arcs := g.out[src]
	i, found := slices.BinarySearchFunc(arcs, dst, func(a arc, t VertexID) int {
		return int(a.to - t)
	})
	if found {
		arcs[i].weight = g.merge(arcs[i].weight, weight)
		return
	}
	g.out[src] = slices.Insert(arcs, i, arc{to: dst, weight: weight})
	g.edgeCount++
}

// Vertex returns the vertex wrapping value.
func (g *Graph[T]) Vertex(value T) (Vertex[T], bool) {
	id, ok := g.index[value]
	if !ok {
		return Vertex[T]{}, false
	}
	return Vertex[T]{id: id, value: value}, true
}

// At returns the vertex with the given id. It panics when id is out of range.
func (g *Graph[T]) At(id VertexID) Vertex[T] {
	return Vertex[T]{id: id, value: g.values[id]}
}

// Len returns the number of vertices.
func (g *Graph[T]) Len() int { return len(g.values) }

// EdgeCount returns the number of distinct ordered pairs with an edge.
func (g *Graph[T]) EdgeCount() int { return g.edgeCount }

// Vertices returns every vertex touched as source or target, in insertion order.
func (g *Graph[T]) Vertices() []Vertex[T] {
	result := make([]Vertex[T], len(g.values))
	for i, v := range g.values {
		result[i] = Vertex[T]{id: VertexID(i), value: v}
	}
	return result
}

// EdgesOf returns the outgoing mapping of from. The map is a copy; it is
// nil when from is not a vertex of the graph.
func (g *Graph[T]) EdgesOf(from T) map[T]int64 {
	id, ok := g.index[from]
	if !ok {
		return nil
	}
	result := make(map[T]int64, len(g.out[id]))
	for _, a := range g.out[id] {
		result[g.values[a.to]] = a.weight
	}
	return result
}

// Weight returns the aggregated weight of from -> to.
func (g *Graph[T]) Weight(from, to T) (int64, bool) {
	src, ok := g.index[from]
	if !ok {
		return 0, false
	}
	dst, ok := g.index[to]
	if !ok {
		return 0, false
	}
	arcs := g.out[src]
	i, found := slices.BinarySearchFunc(arcs, dst, func(a arc, t VertexID) int {
		return int(a.to - t)
	})
	if !found {
		return 0, false
	}
	return arcs[i].weight, true
}

// Successors yields the targets of id with their weights, by ascending target id.
func (g *Graph[T]) Successors(id VertexID) iter.Seq2[VertexID, int64] {
	return func(yield func(VertexID, int64) bool) {
		for _, a := range g.out[id] {
			if !yield(a.to, a.weight) {
				return
			}
		}
	}
}

// OutDegree returns the number of outgoing edges of id.
func (g *Graph[T]) OutDegree(id VertexID) int { return len(g.out[id]) }

// OutWeight returns the plain sum of the outgoing edge weights of id.
func (g *Graph[T]) OutWeight(id VertexID) int64 {
	var sum int64
	for _, a := range g.out[id] {
		sum += a.weight
	}
	return sum
}

// Edges yields every edge, ordered by source id and then target id.
func (g *Graph[T]) Edges() iter.Seq[Edge] {
	return func(yield func(Edge) bool) {
		for src, arcs := range g.out {
			for _, a := range arcs {
				if !yield(Edge{From: VertexID(src), To: a.to, Weight: a.weight}) {
					return
				}
			}
		}
	}
}
