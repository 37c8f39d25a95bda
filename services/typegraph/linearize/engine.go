// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package linearize orders the vertices of a directed weighted graph so that
// dependencies come first, breaking cycles deterministically.
//
// An edge A -> B means A depends on B, so B is placed before A. Strongly
// connected components are found with Tarjan's algorithm. Acyclic singletons
// are placed directly. Every cyclic component is reduced one decision at a
// time (an edge or a vertex is removed, per Strategy) and decomposed again
// until only acyclic singletons remain. Each decision is recorded in the
// action log.
//
// # Ownership Model
//
// The engine copies the adjacency of the input graph; the input is never
// modified and may be linearized repeatedly.
//
// # Thread Safety
//
// An Engine is safe for concurrent use. Under the Parallel strategy the
// action log is the only state shared between workers.
package linearize

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
)

// VertexWeightFunc aggregates the component-internal incoming and outgoing
// edge weights of a vertex for the VertexWeight strategy.
type VertexWeightFunc func(in, out int64) int64

// IncomingWeight is the default VertexWeightFunc. Removing the vertex that
// the rest of its component depends on least violates the fewest dependencies.
func IncomingWeight(in, _ int64) int64 { return in }

// IncidentWeight aggregates both directions, so a vertex that depends
// heavily on its component is as protected as one that is depended on.
func IncidentWeight(in, out int64) int64 { return in + out }

// Config configures an Engine.
type Config struct {
	// Strategy selects how cyclic components are reduced.
	// Default: Sequential
	Strategy Strategy

	// Workers bounds the number of components reduced concurrently by the
	// Parallel strategy.
	// Default: runtime.GOMAXPROCS(0)
	Workers int

	// VertexWeight aggregates vertex weights for the VertexWeight strategy.
	// Default: IncomingWeight
	VertexWeight VertexWeightFunc

	// Logger receives debug output. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:     Sequential,
		Workers:      runtime.GOMAXPROCS(0),
		VertexWeight: IncomingWeight,
	}
}

// Engine linearizes graphs whose vertices wrap values of type T.
type Engine[T comparable] struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an engine. Zero fields of cfg take their defaults.
func New[T comparable](cfg Config) *Engine[T] {
	def := DefaultConfig()
	if cfg.Strategy == "" {
		cfg.Strategy = def.Strategy
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.VertexWeight == nil {
		cfg.VertexWeight = def.VertexWeight
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine[T]{cfg: cfg, logger: logger}
}

// Run linearizes g with a fresh engine built from cfg.
func Run[T comparable](ctx context.Context, g *graph.Graph[T], cfg Config) *Result[T] {
	return New[T](cfg).Run(ctx, g)
}

// Result is the outcome of one linearization.
type Result[T comparable] struct {
	// RunID identifies the run in logs and traces.
	RunID string

	// Strategy is the strategy the run used.
	Strategy Strategy

	// Order contains every vertex of the input exactly once, dependencies first.
	Order []graph.Vertex[T]

	// Log holds every decision. Under Parallel, entries of different
	// components may interleave.
	Log []Action[T]

	// MaxCycleSize is the largest cyclic component seen before reduction;
	// 0 for an empty graph, 1 for a non-empty acyclic graph.
	MaxCycleSize int

	// ResidualCycleSize is the largest component left after every removal:
	// 1 for a non-empty graph, 0 for an empty one.
	ResidualCycleSize int

	// Duration is the wall time of the run.
	Duration time.Duration
}

// Counts tallies the action log by kind.
func (r *Result[T]) Counts() ActionCounts {
	var c ActionCounts
	for _, a := range r.Log {
		switch a.Kind {
		case Accepted:
			c.Accepted++
		case EdgeRemoved:
			c.EdgesRemoved++
		case VertexRemoved:
			c.VerticesRemoved++
		}
	}
	return c
}

// Violations returns the edges of g whose target is placed after their
// source. Self loops are never violations. Edges between vertices absent
// from the order are ignored.
func (r *Result[T]) Violations(g *graph.Graph[T]) []graph.Edge {
	pos := make(map[T]int, len(r.Order))
	for i, v := range r.Order {
		pos[v.Value()] = i
	}
	var violations []graph.Edge
	for e := range g.Edges() {
		from, okFrom := pos[g.At(e.From).Value()]
		to, okTo := pos[g.At(e.To).Value()]
		if okFrom && okTo && to > from {
			violations = append(violations, e)
		}
	}
	return violations
}

// run is the state of one Engine.Run invocation.
type run[T comparable] struct {
	engine *Engine[T]
	g      *graph.Graph[T]
	w      *working
	log    actionLog[T]
}

// Run linearizes g.
//
// Description:
//
//	Decomposes g into strongly connected components, places acyclic
//	singletons and reduces every cyclic component with the configured
//	strategy. The context only carries tracing; a run always completes.
//
// Inputs:
//
//	ctx - Context for tracing.
//	g - Graph to linearize. Not modified.
//
// Outputs:
//
//	*Result[T] - Never nil. An empty graph yields an empty result.
//
// Limitations:
//
//	Panics when an internal invariant is violated.
func (e *Engine[T]) Run(ctx context.Context, g *graph.Graph[T]) *Result[T] {
	start := time.Now()
	ctx, span := startRunSpan(ctx, e.cfg.Strategy, g.Len(), g.EdgeCount())
	defer span.End()

	r := &run[T]{engine: e, g: g, w: newWorking(g)}

	all := make([]graph.VertexID, g.Len())
	for i := range all {
		all[i] = graph.VertexID(i)
	}

	var order []graph.VertexID
	if e.cfg.Strategy == Parallel {
		order = r.resolveParallel(all)
	} else {
		order = r.resolveTop(all)
	}
	if len(order) != g.Len() {
		invariant("placed %d of %d vertices", len(order), g.Len())
	}

	result := &Result[T]{
		RunID:             uuid.NewString(),
		Strategy:          e.cfg.Strategy,
		Order:             make([]graph.Vertex[T], len(order)),
		Log:               r.log.entries,
		MaxCycleSize:      r.log.maxCycle,
		ResidualCycleSize: largestComponent(r.w),
	}
	for i, id := range order {
		result.Order[i] = g.At(id)
	}
	if g.Len() > 0 && result.MaxCycleSize == 0 {
		result.MaxCycleSize = 1
	}
	if result.ResidualCycleSize > 1 {
		invariant("residual component of size %d", result.ResidualCycleSize)
	}
	result.Duration = time.Since(start)

	counts := result.Counts()
	setRunSpanResult(span, counts, result.MaxCycleSize, result.ResidualCycleSize)
	recordRunMetrics(ctx, e.cfg.Strategy, result.Duration, counts, result.MaxCycleSize)

	e.logger.Debug("linearize: run complete",
		slog.String("run_id", result.RunID),
		slog.String("strategy", e.cfg.Strategy.String()),
		slog.Int("vertices", len(result.Order)),
		slog.Int("actions", counts.Total()),
		slog.Int("max_cycle_size", result.MaxCycleSize),
		slog.Duration("duration", result.Duration),
	)
	return result
}

// resolveTop resolves all top-level components one after another.
func (r *run[T]) resolveTop(all []graph.VertexID) []graph.VertexID {
	var order []graph.VertexID
	for comp, members := range components(r.w, all) {
		order = append(order, r.resolveComponent(members, comp)...)
	}
	return order
}

// resolveParallel reduces cyclic top-level components on a bounded pool.
// Each component's sub-order is slotted at the component's position, so the
// order matches resolveTop.
func (r *run[T]) resolveParallel(all []graph.VertexID) []graph.VertexID {
	comps := components(r.w, all)
	slots := make([][]graph.VertexID, len(comps))

	var eg errgroup.Group
	eg.SetLimit(r.engine.cfg.Workers)
	for comp, members := range comps {
		if !r.cyclic(members) {
			slots[comp] = r.resolveComponent(members, comp)
			continue
		}
		eg.Go(func() error {
			slots[comp] = r.resolveComponent(members, comp)
			return nil
		})
	}
	_ = eg.Wait()

	var order []graph.VertexID
	for _, slot := range slots {
		order = append(order, slot...)
	}
	return order
}

func (r *run[T]) cyclic(members []graph.VertexID) bool {
	return len(members) > 1 || r.w.hasSelfLoop(members[0])
}

// resolveComponent places one top-level component.
func (r *run[T]) resolveComponent(members []graph.VertexID, comp int) []graph.VertexID {
	if !r.cyclic(members) {
		r.log.append(Action[T]{Kind: Accepted, Vertex: r.g.At(members[0]), Component: comp})
		return members
	}
	return r.reduce(members, comp, 0)
}

// resolve decomposes members again and places every piece.
func (r *run[T]) resolve(members []graph.VertexID, comp, depth int) []graph.VertexID {
	order := make([]graph.VertexID, 0, len(members))
	for _, sub := range components(r.w, members) {
		if !r.cyclic(sub) {
			r.log.append(Action[T]{Kind: Accepted, Vertex: r.g.At(sub[0]), Component: comp, Depth: depth})
			order = append(order, sub[0])
			continue
		}
		order = append(order, r.reduce(sub, comp, depth)...)
	}
	if len(order) != len(members) {
		invariant("component %d placed %d of %d vertices", comp, len(order), len(members))
	}
	return order
}

// reduce applies one decision to a cyclic component and resolves the rest.
func (r *run[T]) reduce(members []graph.VertexID, comp, depth int) []graph.VertexID {
	r.log.observeCycle(len(members))

	if r.engine.cfg.Strategy.removesEdges() {
		from, to, weight := r.lightestEdge(members)
		r.w.removeEdge(from, to)
		r.log.append(Action[T]{
			Kind:      EdgeRemoved,
			Vertex:    r.g.At(from),
			Target:    r.g.At(to),
			Weight:    weight,
			Component: comp,
			Depth:     depth,
		})
		r.engine.logger.Debug("linearize: edge removed",
			slog.Int("component", comp),
			slog.Int("depth", depth),
			slog.Int("size", len(members)),
			slog.Int64("weight", weight),
		)
		return r.resolve(members, comp, depth+1)
	}

	victim, weight := r.lightestVertex(members)
	set := newMemberSet(members)
	for _, v := range members {
		if v == victim {
			continue
		}
		if _, ok := r.w.find(v, victim); ok {
			r.w.removeEdge(v, victim)
		}
	}
	var outgoing []graph.VertexID
	for _, a := range r.w.out[victim] {
		if set.has(a.to) {
			outgoing = append(outgoing, a.to)
		}
	}
	for _, to := range outgoing {
		r.w.removeEdge(victim, to)
	}
	r.log.append(Action[T]{
		Kind:      VertexRemoved,
		Vertex:    r.g.At(victim),
		Weight:    weight,
		Component: comp,
		Depth:     depth,
	})
	r.engine.logger.Debug("linearize: vertex removed",
		slog.Int("component", comp),
		slog.Int("depth", depth),
		slog.Int("size", len(members)),
		slog.Int64("weight", weight),
	)

	rest := make([]graph.VertexID, 0, len(members)-1)
	for _, v := range members {
		if v != victim {
			rest = append(rest, v)
		}
	}
	return append(r.resolve(rest, comp, depth+1), victim)
}

// lightestEdge returns the component-internal edge with the lowest weight.
// Ties go to the lower source id, then the lower target id, which is the
// scan order of vertex insertion order then ascending weight.
func (r *run[T]) lightestEdge(members []graph.VertexID) (graph.VertexID, graph.VertexID, int64) {
	set := newMemberSet(members)
	found := false
	var bestFrom, bestTo graph.VertexID
	var best int64
	for _, v := range members {
		for _, a := range r.w.out[v] {
			if !set.has(a.to) {
				continue
			}
			if !found || a.weight < best {
				found, bestFrom, bestTo, best = true, v, a.to, a.weight
			}
		}
	}
	if !found {
		invariant("cyclic component of %d vertices has no internal edge", len(members))
	}
	return bestFrom, bestTo, best
}

// lightestVertex returns the member with the lowest aggregate weight; ties
// go to the earliest inserted vertex.
func (r *run[T]) lightestVertex(members []graph.VertexID) (graph.VertexID, int64) {
	set := newMemberSet(members)
	in := make(map[graph.VertexID]int64, len(members))
	out := make(map[graph.VertexID]int64, len(members))
	for _, v := range members {
		for _, a := range r.w.out[v] {
			if set.has(a.to) {
				out[v] += a.weight
				in[a.to] += a.weight
			}
		}
	}
	victim := members[0]
	best := r.engine.cfg.VertexWeight(in[victim], out[victim])
	for _, v := range members[1:] {
		if w := r.engine.cfg.VertexWeight(in[v], out[v]); w < best {
			victim, best = v, w
		}
	}
	return victim, best
}

func invariant(format string, args ...any) {
	panic(fmt.Sprintf("linearize: invariant violated: "+format, args...))
}
