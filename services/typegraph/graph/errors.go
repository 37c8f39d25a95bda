// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the weighted dependency graph shared by the
// type-graph builder, the linearization engine and the shortest-path utility.
//
// The graph maps a source vertex to its targets, each with one aggregated
// int64 weight. Repeated insertions of the same ordered pair are merged
// through the graph's MergeFunc (addition by default, SumPacked for type
// graphs whose weights are Packed category counters).
//
// # Ownership Model
//
// Vertices live in an arena and are addressed by a stable VertexID. Adjacency
// is index based (source id -> sorted slice of target ids), so cyclic graphs
// never form cyclic object references. Identity values are stored as given and
// MUST NOT be mutated after insertion.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent mutation. It is built by a single writer
// and may then be read from many goroutines, provided no further AddVertex or
// AddEdge calls are made.
//
// # Lifecycle
//
//  1. Create with New[T]()
//  2. Populate with AddEdge() (and AddVertex() for isolated vertices)
//  3. Hand the graph to consumers, which treat it as read-only
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrVertexNotFound is returned when an identity is not part of the graph.
	ErrVertexNotFound = errors.New("vertex not found")

	// ErrCountOverflow is returned when a category count does not fit its
	// bit range in a Packed value.
	ErrCountOverflow = errors.New("category count overflows packed range")
)
