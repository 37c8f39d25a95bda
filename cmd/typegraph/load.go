// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
	"github.com/AleutianAI/typegraph/services/typegraph/graphio"
	"github.com/AleutianAI/typegraph/services/typegraph/storage/badger"
	"github.com/AleutianAI/typegraph/services/typegraph/typeref"
)

// loaded is a graph together with how it was obtained.
type loaded struct {
	graph  *graph.Graph[string]
	stats  *typeref.Stats // nil unless built from classes
	cached bool
	// packed is true when edge weights are category counts.
	packed bool
}

// isGraphFile reports whether the locator names a graph interchange file.
func isGraphFile(locator string) bool {
	_, err := graphio.FormatOf(locator)
	return err == nil
}

// loadGraph reads a graph file or builds a type graph from an archive or
// class directory.
func (a *app) loadGraph(ctx context.Context, locator string) (*loaded, error) {
	if isGraphFile(locator) {
		g, err := graphio.ReadFile(locator)
		if err != nil {
			return nil, err
		}
		return &loaded{graph: g}, nil
	}
	return a.buildGraph(ctx, buildRequest{archives: []string{locator}})
}

// buildRequest names the archives of one build.
type buildRequest struct {
	archives []string

	// external keeps only references that leave the archive of the
	// referring class.
	external bool
}

// buildGraph extracts the type graph of one or more archives, going through
// the badger cache when storage.cache_dir is set. Directories bypass the
// cache.
func (a *app) buildGraph(ctx context.Context, req buildRequest) (*loaded, error) {
	builder, err := typeref.NewBuilder(a.cfg.BuilderOptions(a.logger)...)
	if err != nil {
		return nil, err
	}

	store, key, closeStore, err := a.openCache(req)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	if store != nil {
		g, ok, err := store.Get(ctx, key)
		if err != nil {
			a.logger.Warn("graph cache read failed", slog.String("error", err.Error()))
		} else if ok {
			a.logger.Debug("graph cache hit", slog.Any("archives", req.archives))
			return &loaded{graph: g, cached: true, packed: true}, nil
		}
	}

	srcs := make([]typeref.Source, len(req.archives))
	for i, archive := range req.archives {
		if srcs[i], err = typeref.OpenSource(archive); err != nil {
			return nil, err
		}
	}
	var (
		g     *graph.Graph[string]
		stats *typeref.Stats
	)
	switch {
	case req.external:
		g, stats, err = builder.BuildExternal(ctx, srcs...)
	case len(srcs) == 1:
		g, stats, err = builder.Build(ctx, srcs[0])
	default:
		g, stats, err = builder.Build(ctx, typeref.MultiSource(srcs))
	}
	if err != nil {
		return nil, err
	}

	if store != nil {
		if err := store.Put(ctx, key, g); err != nil {
			a.logger.Warn("graph cache write failed", slog.String("error", err.Error()))
		}
	}
	return &loaded{graph: g, stats: stats, packed: true}, nil
}

// openCache opens the graph store when every archive is a regular file.
// All results are zero with a no-op closer when caching does not apply.
func (a *app) openCache(req buildRequest) (*badger.GraphStore, string, func(), error) {
	noop := func() {}
	storeCfg, enabled := a.cfg.StoreConfig(a.logger)
	if !enabled {
		return nil, "", noop, nil
	}
	digests := make([]string, len(req.archives))
	for i, archive := range req.archives {
		info, err := os.Stat(archive)
		if err != nil {
			return nil, "", noop, err
		}
		if info.IsDir() {
			return nil, "", noop, nil
		}
		if digests[i], err = badger.DigestFile(archive); err != nil {
			return nil, "", noop, err
		}
	}

	db, err := badger.Open(storeCfg)
	if err != nil {
		return nil, "", noop, fmt.Errorf("open graph cache: %w", err)
	}
	store, err := badger.NewGraphStore(db, storeCfg.TTL, a.logger)
	if err != nil {
		db.Close()
		return nil, "", noop, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			a.logger.Warn("closing graph cache", slog.String("error", err.Error()))
		}
	}
	key := badger.Key(strings.Join(digests, "+"), a.builderFingerprint(req.external)...)
	return store, key, closeDB, nil
}

// builderFingerprint lists the builder settings that change the graph.
func (a *app) builderFingerprint(external bool) []string {
	b := a.cfg.Builder
	return []string{
		"excluded=" + strings.Join(b.ExcludedPrefixes, ","),
		"strict=" + strconv.FormatBool(b.Strict),
		"internal=" + strconv.FormatBool(b.InternalOnly),
		"external=" + strconv.FormatBool(external),
	}
}
