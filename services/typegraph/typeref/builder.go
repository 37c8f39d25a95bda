// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package typeref builds type-reference graphs from compiled JVM classes.
//
// Every class becomes a vertex named by its fully-qualified name. An edge
// A -> B carries a graph.Packed weight counting how often A refers to B, per
// category: super class and interfaces count as Hierarchy, field types as
// Field, method signatures, thrown types, type instructions and local
// variable signatures as Method, and the members accessed by bytecode as
// Expression.
//
// BuildExternal reads several archives and keeps only the references that
// leave the archive defining the referring class.
package typeref

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/typegraph/services/typegraph/classfile"
	"github.com/AleutianAI/typegraph/services/typegraph/descriptor"
	"github.com/AleutianAI/typegraph/services/typegraph/graph"
)

// Default builder configuration values.
const (
	// DefaultExcludedPrefix drops references to the implicitly imported package.
	DefaultExcludedPrefix = "java.lang."

	// DefaultParseCacheSize is the number of parsed descriptors kept.
	DefaultParseCacheSize = 4096
)

// Options configures Builder behavior.
type Options struct {
	// ExcludedPrefixes drops every reference whose target starts with one
	// of the prefixes.
	// Default: ["java.lang."]
	ExcludedPrefixes []string

	// Strict aborts the build on the first unreadable class or malformed
	// descriptor. Otherwise they are skipped and counted.
	// Default: false
	Strict bool

	// InternalOnly keeps only edges whose target is defined by one of the
	// sources being built.
	// Default: false
	InternalOnly bool

	// ParseCacheSize bounds the descriptor parse cache.
	// Default: 4096
	ParseCacheSize int

	// Workers is the number of classes parsed concurrently.
	// Default: runtime.NumCPU()
	Workers int

	// Logger receives skip warnings. Nil uses slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default builder options.
func DefaultOptions() Options {
	return Options{
		ExcludedPrefixes: []string{DefaultExcludedPrefix},
		ParseCacheSize:   DefaultParseCacheSize,
		Workers:          runtime.NumCPU(),
	}
}

// Option is a functional option for configuring Builder.
type Option func(*Options)

// WithExcludedPrefixes replaces the excluded target prefixes.
func WithExcludedPrefixes(prefixes ...string) Option {
	return func(o *Options) {
		o.ExcludedPrefixes = prefixes
	}
}

// WithStrict aborts on malformed input instead of skipping it.
func WithStrict(strict bool) Option {
	return func(o *Options) {
		o.Strict = strict
	}
}

// WithInternalOnly keeps only references between classes of the source.
func WithInternalOnly(internal bool) Option {
	return func(o *Options) {
		o.InternalOnly = internal
	}
}

// WithParseCacheSize sets the descriptor parse cache size.
func WithParseCacheSize(n int) Option {
	return func(o *Options) {
		o.ParseCacheSize = n
	}
}

// WithWorkers sets the number of concurrent class parsers.
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Workers = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// Stats summarizes one build.
type Stats struct {
	Sources              int           `json:"sources"`
	Classes              int           `json:"classes"`
	SkippedClasses       int           `json:"skipped_classes"`
	Descriptors          int           `json:"descriptors"`
	MalformedDescriptors int           `json:"malformed_descriptors"`
	ExcludedReferences   int           `json:"excluded_references"`
	InternalReferences   int           `json:"internal_references,omitempty"`
	Vertices             int           `json:"vertices"`
	Edges                int           `json:"edges"`
	CacheHits            int           `json:"cache_hits"`
	Duration             time.Duration `json:"duration"`
}

// Builder turns class files into a type-reference graph.
//
// Thread Safety:
//
//	Safe for concurrent use; the parse cache is shared across builds.
type Builder struct {
	opts   Options
	cache  *lru.Cache[string, []string]
	logger *slog.Logger
}

// NewBuilder creates a builder.
func NewBuilder(opts ...Option) (*Builder, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.ParseCacheSize <= 0 {
		return nil, fmt.Errorf("%w: parse cache size %d", ErrInvalidOptions, options.ParseCacheSize)
	}
	if options.Workers <= 0 {
		options.Workers = runtime.NumCPU()
	}
	cache, err := lru.New[string, []string](options.ParseCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating parse cache: %w", err)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{opts: options, cache: cache, logger: logger}, nil
}

// reference is one extracted dependency of a class.
type reference struct {
	target   string
	category graph.Category
}

// extracted is the per-class outcome of the parallel phase.
type extracted struct {
	name      string
	refs      []reference
	skipped   bool
	malformed int
	parsed    int
	cacheHits int
}

// Build reads every class of src and returns its type-reference graph.
//
// Description:
//
//	Entries are collected from src, parsed concurrently, then added to the
//	graph in entry order so vertex insertion order is deterministic. Edge
//	weights are packed per category and merged with graph.SumPacked.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing.
//	src - Class files to read.
//
// Outputs:
//
//	*graph.Graph[string] - Vertices are fully-qualified type names.
//	*Stats - Build statistics.
//	error - Non-nil when src fails, ctx is cancelled, or, in strict mode,
//	        when a class or descriptor is malformed (an *EntryError).
func (b *Builder) Build(ctx context.Context, src Source) (*graph.Graph[string], *Stats, error) {
	return b.build(ctx, []Source{src}, false)
}

// BuildExternal reads several sources and keeps only the references that
// cross from one source to another or to a type none of them defines.
//
// Description:
//
//	Each type belongs to the first source that defines it. A reference
//	from class A to type B is kept unless B belongs to A's source. Every
//	class is still a vertex, so classes without external references stay
//	in the graph.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing.
//	srcs - Archives to read, in priority order. At least one.
//
// Outputs:
//
//	*graph.Graph[string] - The cross-archive type graph.
//	*Stats - Build statistics; InternalReferences counts dropped references.
//	error - As for Build, or ErrInvalidOptions when srcs is empty.
func (b *Builder) BuildExternal(ctx context.Context, srcs ...Source) (*graph.Graph[string], *Stats, error) {
	if len(srcs) == 0 {
		return nil, nil, fmt.Errorf("%w: no sources", ErrInvalidOptions)
	}
	return b.build(ctx, srcs, true)
}

func (b *Builder) build(ctx context.Context, srcs []Source, external bool) (*graph.Graph[string], *Stats, error) {
	start := time.Now()
	ctx, span := startBuildSpan(ctx)
	defer span.End()

	sets := make([][]extracted, len(srcs))
	for i, src := range srcs {
		results, err := b.collect(ctx, src)
		if err != nil {
			recordBuildMetrics(ctx, time.Since(start), 0, 0, false)
			return nil, nil, err
		}
		sets[i] = results
	}

	g, stats := b.assemble(sets, external)
	stats.Duration = time.Since(start)

	setBuildSpanResult(span, stats)
	recordBuildMetrics(ctx, stats.Duration, stats.Vertices, stats.Edges, true)
	b.logger.Info("typeref: graph built",
		slog.Int("sources", stats.Sources),
		slog.Int("classes", stats.Classes),
		slog.Int("skipped", stats.SkippedClasses),
		slog.Int("vertices", stats.Vertices),
		slog.Int("edges", stats.Edges),
		slog.Bool("external", external),
		slog.Duration("duration", stats.Duration),
	)
	return g, stats, nil
}

// collect parses every class of src concurrently. Results keep entry order.
func (b *Builder) collect(ctx context.Context, src Source) ([]extracted, error) {
	var entries []Entry
	if err := src.Walk(ctx, func(e Entry) error {
		entries = append(entries, e)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("walking source: %w", err)
	}

	results := make([]extracted, len(entries))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.opts.Workers)
	for i, e := range entries {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			res, err := b.extract(e)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Builder) assemble(sets [][]extracted, external bool) (*graph.Graph[string], *Stats) {
	stats := &Stats{Sources: len(sets)}

	// home is the first source defining each type.
	home := make(map[string]int)
	capacity := 0
	for i, results := range sets {
		capacity += len(results)
		for _, r := range results {
			if _, ok := home[r.name]; !ok && !r.skipped {
				home[r.name] = i
			}
		}
	}

	g := graph.New[string](graph.WithMerge(graph.SumPacked), graph.WithCapacity(capacity))
	for _, results := range sets {
		for _, r := range results {
			stats.MalformedDescriptors += r.malformed
			stats.Descriptors += r.parsed
			stats.CacheHits += r.cacheHits
			if r.skipped {
				stats.SkippedClasses++
				continue
			}
			stats.Classes++
			g.AddVertex(r.name)
			for _, ref := range r.refs {
				if ref.target == r.name {
					continue
				}
				if b.excluded(ref.target) {
					stats.ExcludedReferences++
					continue
				}
				target, defined := home[ref.target]
				if b.opts.InternalOnly && !defined {
					continue
				}
				if external && defined && target == home[r.name] {
					stats.InternalReferences++
					continue
				}
				g.AddEdge(r.name, ref.target, int64(graph.Of(ref.category, 1)))
			}
		}
	}
	stats.Vertices = g.Len()
	stats.Edges = g.EdgeCount()
	return g, stats
}

func (b *Builder) excluded(target string) bool {
	return slices.ContainsFunc(b.opts.ExcludedPrefixes, func(prefix string) bool {
		return prefix != "" && strings.HasPrefix(target, prefix)
	})
}

// descriptorKind selects the grammar used for a descriptor string.
type descriptorKind byte

const (
	kindField  descriptorKind = 'f'
	kindMethod descriptorKind = 'm'
	kindClass  descriptorKind = 'c'
)

// extractor accumulates the references of one class.
type extractor struct {
	b   *Builder
	res *extracted
	err error
}

func (x *extractor) add(target string, c graph.Category) {
	x.res.refs = append(x.res.refs, reference{target: target, category: c})
}

func (x *extractor) addClass(binaryName string, c graph.Category) {
	if strings.HasPrefix(binaryName, "[") {
		x.addDescriptor(kindField, binaryName, c)
		return
	}
	x.add(descriptor.BinaryNameToFQN(binaryName), c)
}

func (x *extractor) addDescriptor(kind descriptorKind, s string, c graph.Category) {
	if s == "" || x.err != nil {
		return
	}
	refs, err := x.b.parse(kind, s, x.res)
	if err != nil {
		if x.b.opts.Strict {
			x.err = err
			return
		}
		x.res.malformed++
		x.b.logger.Warn("typeref: skipping malformed descriptor",
			slog.String("class", x.res.name),
			slog.String("descriptor", s),
			slog.String("error", err.Error()),
		)
		return
	}
	for _, r := range refs {
		x.add(r, c)
	}
}

// addCode records what a method body refers to.
func (x *extractor) addCode(code *classfile.Code) {
	for _, name := range code.TypeRefs {
		x.addClass(name, graph.CategoryMethod)
	}
	for _, d := range code.ArrayDescriptors {
		x.addDescriptor(kindField, d, graph.CategoryExpression)
	}
	for _, ref := range code.MemberRefs {
		x.addClass(ref.Owner, graph.CategoryExpression)
		if ref.IsField() {
			x.addDescriptor(kindField, ref.Descriptor, graph.CategoryExpression)
		} else {
			x.addDescriptor(kindMethod, ref.Descriptor, graph.CategoryExpression)
		}
	}
	for _, sig := range code.LocalSignatures {
		x.addDescriptor(kindField, sig, graph.CategoryMethod)
	}
}

func (b *Builder) parse(kind descriptorKind, s string, res *extracted) ([]string, error) {
	res.parsed++
	key := string(kind) + s
	if refs, ok := b.cache.Get(key); ok {
		res.cacheHits++
		return refs, nil
	}
	var refs []string
	var err error
	switch kind {
	case kindMethod:
		refs, err = descriptor.ParseMethod(s)
	case kindClass:
		refs, err = descriptor.ParseClassSignature(s)
	default:
		refs, err = descriptor.Parse(s)
	}
	if err != nil {
		return nil, err
	}
	b.cache.Add(key, refs)
	return refs, nil
}

// extract reads one class file into its references.
func (b *Builder) extract(e Entry) (extracted, error) {
	cf, err := classfile.Parse(e.Data)
	if err != nil {
		if b.opts.Strict {
			return extracted{}, &EntryError{Entry: e.Name, Err: err}
		}
		b.logger.Warn("typeref: skipping unreadable class",
			slog.String("entry", e.Name),
			slog.String("error", err.Error()),
		)
		return extracted{name: e.Name, skipped: true}, nil
	}

	res := extracted{name: descriptor.BinaryNameToFQN(cf.Name)}
	x := &extractor{b: b, res: &res}

	if cf.SuperName != "" {
		x.addClass(cf.SuperName, graph.CategoryHierarchy)
	}
	for _, iface := range cf.Interfaces {
		x.addClass(iface, graph.CategoryHierarchy)
	}
	x.addDescriptor(kindClass, cf.Signature, graph.CategoryHierarchy)

	for _, f := range cf.Fields {
		x.addDescriptor(kindField, f.Descriptor, graph.CategoryField)
		x.addDescriptor(kindField, f.Signature, graph.CategoryField)
	}
	for _, m := range cf.Methods {
		x.addDescriptor(kindMethod, m.Descriptor, graph.CategoryMethod)
		x.addDescriptor(kindMethod, m.Signature, graph.CategoryMethod)
		for _, ex := range m.Exceptions {
			x.addClass(ex, graph.CategoryMethod)
		}
		if m.Code != nil {
			x.addCode(m.Code)
		}
	}

	if x.err != nil {
		return extracted{}, &EntryError{Entry: e.Name, Err: x.err}
	}
	return res, nil
}

// IsEntryError reports whether err was attributed to an archive entry.
func IsEntryError(err error) bool {
	var entryErr *EntryError
	return errors.As(err, &entryErr)
}
