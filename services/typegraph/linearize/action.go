// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package linearize

import (
	"fmt"
	"sync"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
)

// ActionKind classifies an Action.
type ActionKind int

const (
	// Accepted places a conflict-free singleton component.
	Accepted ActionKind = iota

	// EdgeRemoved drops one edge from a cyclic component.
	EdgeRemoved

	// VertexRemoved drops one vertex and its component-internal edges. The
	// vertex is still placed, after the rest of its component.
	VertexRemoved
)

func (k ActionKind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case EdgeRemoved:
		return "edge_removed"
	case VertexRemoved:
		return "vertex_removed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ActionKind) UnmarshalText(text []byte) error {
	for _, known := range []ActionKind{Accepted, EdgeRemoved, VertexRemoved} {
		if known.String() == string(text) {
			*k = known
			return nil
		}
	}
	return fmt.Errorf("unknown action kind %q", text)
}

// Action is one entry of the action log.
type Action[T comparable] struct {
	// Kind is the decision taken.
	Kind ActionKind `json:"kind"`

	// Vertex is the placed or removed vertex, or the source of a removed edge.
	Vertex graph.Vertex[T] `json:"-"`

	// Target is the target of a removed edge; zero for other kinds.
	Target graph.Vertex[T] `json:"-"`

	// Weight is the removed edge weight or the removed vertex's aggregate weight.
	Weight int64 `json:"weight,omitempty"`

	// Component is the index of the top-level component the action belongs
	// to, in dependency order.
	Component int `json:"component"`

	// Depth is the number of reductions applied to the component before this action.
	Depth int `json:"depth"`
}

func (a Action[T]) String() string {
	switch a.Kind {
	case EdgeRemoved:
		return fmt.Sprintf("remove edge %v -> %v (weight %d, component %d, depth %d)",
			a.Vertex, a.Target, a.Weight, a.Component, a.Depth)
	case VertexRemoved:
		return fmt.Sprintf("remove vertex %v (weight %d, component %d, depth %d)",
			a.Vertex, a.Weight, a.Component, a.Depth)
	default:
		return fmt.Sprintf("accept %v (component %d)", a.Vertex, a.Component)
	}
}

// ActionCounts tallies a log by kind.
type ActionCounts struct {
	Accepted        int `json:"accepted"`
	EdgesRemoved    int `json:"edges_removed"`
	VerticesRemoved int `json:"vertices_removed"`
}

// Total returns the number of actions.
func (c ActionCounts) Total() int {
	return c.Accepted + c.EdgesRemoved + c.VerticesRemoved
}

// actionLog is an append-only log safe for concurrent appends. Entries from
// one goroutine keep their relative order.
type actionLog[T comparable] struct {
	mu       sync.Mutex
	entries  []Action[T]
	maxCycle int
}

func (l *actionLog[T]) append(a Action[T]) {
	l.mu.Lock()
	l.entries = append(l.entries, a)
	l.mu.Unlock()
}

// observeCycle records the size of a cyclic component before reduction.
func (l *actionLog[T]) observeCycle(size int) {
	l.mu.Lock()
	l.maxCycle = max(l.maxCycle, size)
	l.mu.Unlock()
}
