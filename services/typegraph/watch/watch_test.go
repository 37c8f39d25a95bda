// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "graph.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(fixture, []byte("vertices: []\n"), 0o644))

	batches := make(chan []string, 4)
	w, err := New([]string{fixture}, func(_ context.Context, changed []string) {
		batches <- changed
	}, Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	for range 3 {
		require.NoError(t, os.WriteFile(fixture, []byte("vertices: [a]\n"), 0o644))
	}

	select {
	case got := <-batches:
		abs, _ := filepath.Abs(fixture)
		assert.Equal(t, []string{abs}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.NoError(t, w.Close())

	select {
	case extra := <-batches:
		t.Fatalf("unexpected second batch %v", extra)
	default:
	}
}

func TestWatcher_CloseEndsRun(t *testing.T) {
	dir := t.TempDir()
	w, err := New([]string{filepath.Join(dir, "g.gml")}, func(context.Context, []string) {}, Options{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	require.NoError(t, w.Close())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, nil, Options{})
	assert.ErrorIs(t, err, ErrNoPaths)

	_, err = New([]string{filepath.Join(t.TempDir(), "missing", "g.gml")}, nil, Options{})
	assert.Error(t, err)
}
