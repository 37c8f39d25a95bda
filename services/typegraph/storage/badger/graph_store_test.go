// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
)

func newStore(t *testing.T) *GraphStore {
	t.Helper()
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewGraphStore(db, time.Hour, nil)
	require.NoError(t, err)
	return store
}

func TestGraphStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	g := graph.New[string]()
	g.AddEdge("a.A", "a.B", int64(graph.Of(graph.CategoryHierarchy, 1)))
	g.AddEdge("a.B", "a.A", 2)
	g.AddVertex("a.C")

	key := Key("digest", "java.lang.", "internal=false")
	require.NoError(t, store.Put(ctx, key, g))

	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, g.Len(), got.Len())
	assert.Equal(t, g.EdgesOf("a.A"), got.EdgesOf("a.A"))
	assert.Equal(t, "a.C", got.At(2).Value())

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{key}, keys)

	require.NoError(t, store.Delete(ctx, key))
	_, ok, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGraphStore_Miss(t *testing.T) {
	_, ok, err := newStore(t).Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGraphStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newStore(t).Put(ctx, "k", graph.New[string]())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("d", "x"), Key("d", "x"))
	assert.NotEqual(t, Key("d", "x"), Key("d", "y"))
	assert.NotEqual(t, Key("d", "ab"), Key("d", "a", "b"))
	assert.Len(t, Key("d"), 64)
}

func TestDigestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jar")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	digest, err := DigestFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", digest)

	_, err = DigestFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)

	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "cache")})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewGraphStore(nil, 0, nil)
	assert.ErrorIs(t, err, ErrNilDB)
}
