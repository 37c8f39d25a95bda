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
	"slices"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
)

type warc struct {
	to     graph.VertexID
	weight int64
}

// working is the engine's private, mutable copy of a graph's adjacency.
//
// Thread Safety:
//
//	out[v] is only mutated by the task owning v's component. Disjoint
//	components may be reduced concurrently.
type working struct {
	out [][]warc
}

func newWorking[T comparable](g *graph.Graph[T]) *working {
	w := &working{out: make([][]warc, g.Len())}
	for v := range w.out {
		arcs := make([]warc, 0, g.OutDegree(graph.VertexID(v)))
		for to, weight := range g.Successors(graph.VertexID(v)) {
			arcs = append(arcs, warc{to: to, weight: weight})
		}
		w.out[v] = arcs
	}
	return w
}

func (w *working) find(from, to graph.VertexID) (int, bool) {
	return slices.BinarySearchFunc(w.out[from], to, func(a warc, t graph.VertexID) int {
		return int(a.to - t)
	})
}

func (w *working) hasSelfLoop(v graph.VertexID) bool {
	_, ok := w.find(v, v)
	return ok
}

func (w *working) removeEdge(from, to graph.VertexID) {
	i, ok := w.find(from, to)
	if !ok {
		invariant("removing absent edge %d -> %d", from, to)
	}
	w.out[from] = slices.Delete(w.out[from], i, i+1)
}

// memberSet marks the vertices of one component.
type memberSet map[graph.VertexID]struct{}

func newMemberSet(members []graph.VertexID) memberSet {
	set := make(memberSet, len(members))
	for _, v := range members {
		set[v] = struct{}{}
	}
	return set
}

func (s memberSet) has(v graph.VertexID) bool {
	_, ok := s[v]
	return ok
}

// sccState holds Tarjan's bookkeeping for one decomposition.
type sccState struct {
	w       *working
	members memberSet
	index   map[graph.VertexID]int
	lowlink map[graph.VertexID]int
	onStack map[graph.VertexID]bool
	stack   []graph.VertexID
	next    int
	comps   [][]graph.VertexID
}

// components decomposes the subgraph induced by members into strongly
// connected components.
//
// Description:
//
//	Roots are tried in the order of members, successors by ascending id.
//	Components are returned in Tarjan emission order, which places every
//	component after the components it has edges into. Each component's
//	vertices are sorted by id.
//
// Inputs:
//
//	w - Working adjacency.
//	members - Vertex ids, ascending.
//
// Outputs:
//
//	[][]graph.VertexID - Components, dependencies first.
func components(w *working, members []graph.VertexID) [][]graph.VertexID {
	st := &sccState{
		w:       w,
		members: newMemberSet(members),
		index:   make(map[graph.VertexID]int, len(members)),
		lowlink: make(map[graph.VertexID]int, len(members)),
		onStack: make(map[graph.VertexID]bool, len(members)),
	}
	for _, v := range members {
		if _, visited := st.index[v]; !visited {
			st.strongConnect(v)
		}
	}
	return st.comps
}

func (st *sccState) strongConnect(v graph.VertexID) {
	st.index[v] = st.next
	st.lowlink[v] = st.next
	st.next++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	for _, a := range st.w.out[v] {
		if !st.members.has(a.to) {
			continue
		}
		if _, visited := st.index[a.to]; !visited {
			st.strongConnect(a.to)
			st.lowlink[v] = min(st.lowlink[v], st.lowlink[a.to])
		} else if st.onStack[a.to] {
			st.lowlink[v] = min(st.lowlink[v], st.index[a.to])
		}
	}

	if st.lowlink[v] != st.index[v] {
		return
	}
	var comp []graph.VertexID
	for {
		top := st.stack[len(st.stack)-1]
		st.stack = st.stack[:len(st.stack)-1]
		st.onStack[top] = false
		comp = append(comp, top)
		if top == v {
			break
		}
	}
	slices.Sort(comp)
	st.comps = append(st.comps, comp)
}

// largestComponent returns the size of the largest component of the whole
// working graph, or 0 when it has no vertices.
func largestComponent(w *working) int {
	all := make([]graph.VertexID, len(w.out))
	for i := range all {
		all[i] = graph.VertexID(i)
	}
	largest := 0
	for _, comp := range components(w, all) {
		largest = max(largest, len(comp))
	}
	return largest
}
