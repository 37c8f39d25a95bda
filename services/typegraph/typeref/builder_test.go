// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package typeref

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/typegraph/services/typegraph/classfile"
	"github.com/AleutianAI/typegraph/services/typegraph/classfile/classfiletest"
	"github.com/AleutianAI/typegraph/services/typegraph/descriptor"
	"github.com/AleutianAI/typegraph/services/typegraph/graph"
	"github.com/AleutianAI/typegraph/services/typegraph/linearize"
)

func entry(c classfiletest.Class) Entry {
	return Entry{Name: c.Name + ".class", Data: c.Bytes()}
}

func zipArchive(t *testing.T, entries ...Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		require.NoError(t, err)
		_, err = w.Write(e.Data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// generatedArchive holds 500 classes referencing 69 external types.
func generatedArchive(t *testing.T) []byte {
	t.Helper()
	entries := []Entry{{Name: "module-info.class", Data: []byte("not a class")}}
	for i := 0; i < 500; i++ {
		c := classfiletest.Class{
			Name:  fmt.Sprintf("org/gen/C%03d", i),
			Super: "java/lang/Object",
			Fields: []classfiletest.Member{
				{Name: "next", Descriptor: fmt.Sprintf("Lorg/gen/C%03d;", (i+1)%500)},
				{Name: "label", Descriptor: "Ljava/lang/String;"},
			},
			Methods: []classfiletest.Member{{
				Name:       "use",
				Descriptor: fmt.Sprintf("(Lext/T%02d;)Ljava/lang/Integer;", i%69),
				Exceptions: []string{"java/lang/Exception"},
				Code: []classfiletest.Insn{
					{Op: classfile.OpNew, Class: "java/lang/StringBuilder"},
					{Op: classfile.OpInvokeVirtual, Ref: classfiletest.Ref{Owner: "java/lang/StringBuilder", Name: "append", Descriptor: "(I)Ljava/lang/StringBuilder;"}},
					{Op: classfile.OpReturn},
				},
			}},
		}
		entries = append(entries, entry(c))
	}
	return zipArchive(t, entries...)
}

func newTestBuilder(t *testing.T, opts ...Option) *Builder {
	t.Helper()
	b, err := NewBuilder(opts...)
	require.NoError(t, err)
	return b
}

func TestBuild_ExcludedPrefixNeverTargeted(t *testing.T) {
	b := newTestBuilder(t)

	g, stats, err := b.Build(context.Background(), NewBytesSource(generatedArchive(t)))
	require.NoError(t, err)

	assert.Equal(t, 569, g.Len())
	assert.Equal(t, 500, stats.Classes)
	assert.Zero(t, stats.SkippedClasses)
	assert.Positive(t, stats.ExcludedReferences)
	for e := range g.Edges() {
		target := g.At(e.To).Value()
		assert.False(t, strings.HasPrefix(target, DefaultExcludedPrefix), "edge to %s", target)
	}
}

func TestBuild_CategoryWeights(t *testing.T) {
	a := classfiletest.Class{
		Name:       "org/x/A",
		Super:      "org/x/Base",
		Interfaces: []string{"org/x/Iface"},
		Fields:     []classfiletest.Member{{Name: "dep", Descriptor: "Lorg/x/Dep;"}},
		Methods: []classfiletest.Member{{
			Name:       "take",
			Descriptor: "(Lorg/x/Dep;)V",
			Code: []classfiletest.Insn{
				{Op: classfile.OpNew, Class: "org/x/Made"},
				{Op: classfile.OpLdc, Class: "org/x/Literal"},
				{Op: classfile.OpAload0},
				{Op: classfile.OpInvokeVirtual, Ref: classfiletest.Ref{Owner: "org/x/Dep", Name: "get", Descriptor: "()Lorg/x/Result;"}},
				{Op: classfile.OpMultiANewArray, Descriptor: "[[Lorg/x/Cell;", Dims: 2},
				{Op: classfile.OpReturn},
			},
			LocalSignatures: []string{"Ljava/util/List<Lorg/x/Item;>;", "TT;"},
		}},
	}
	b := newTestBuilder(t)

	g, _, err := b.Build(context.Background(), MemorySource{entry(a)})
	require.NoError(t, err)

	weight := func(to string) graph.Packed {
		w, ok := g.Weight("org.x.A", to)
		require.True(t, ok, "missing edge to %s", to)
		return graph.Packed(w)
	}
	assert.Equal(t, "H1", weight("org.x.Base").String())
	assert.Equal(t, "H1", weight("org.x.Iface").String())
	assert.Equal(t, "F1 M1 E1", weight("org.x.Dep").String())
	assert.Equal(t, "M1", weight("org.x.Made").String())
	assert.Equal(t, "M1", weight("org.x.Literal").String())
	assert.Equal(t, "E1", weight("org.x.Result").String())
	assert.Equal(t, "E1", weight("org.x.Cell").String())
	assert.Equal(t, "M1", weight("java.util.List").String())
	assert.Equal(t, "M1", weight("org.x.Item").String())
	assert.Equal(t, "org.x.A", g.Vertices()[0].Value())
}

func TestBuild_InnerClassAndGenerics(t *testing.T) {
	c := classfiletest.Class{
		Name:      "org/x/Outer$Inner",
		Super:     "org/x/Base",
		Signature: "<T:Lorg/x/Bound;>Lorg/x/Base;",
		Fields: []classfiletest.Member{{
			Name:       "items",
			Descriptor: "Ljava/util/List;",
			Signature:  "Ljava/util/List<Lorg/x/Item;>;",
		}},
	}
	b := newTestBuilder(t)

	g, _, err := b.Build(context.Background(), MemorySource{entry(c)})
	require.NoError(t, err)

	edges := g.EdgesOf("org.x.Outer.Inner")
	require.NotNil(t, edges)
	assert.Equal(t, "H2", graph.Packed(edges["org.x.Base"]).String())
	assert.Equal(t, "H1", graph.Packed(edges["org.x.Bound"]).String())
	assert.Equal(t, "F2", graph.Packed(edges["java.util.List"]).String())
	assert.Equal(t, "F1", graph.Packed(edges["org.x.Item"]).String())
}

func TestBuild_NestAttributesAddNoEdges(t *testing.T) {
	nest := []classfiletest.InnerClass{{Inner: "a/Outer$Inner", Outer: "a/Outer", Name: "Inner"}}
	outer := classfiletest.Class{
		Name:         "a/Outer",
		Super:        "java/lang/Object",
		InnerClasses: nest,
		NestMembers:  []string{"a/Outer$Inner"},
	}
	inner := classfiletest.Class{
		Name:         "a/Outer$Inner",
		Super:        "java/lang/Object",
		InnerClasses: nest,
		NestHost:     "a/Outer",
	}

	g, _, err := newTestBuilder(t).Build(context.Background(), MemorySource{entry(outer), entry(inner)})
	require.NoError(t, err)

	assert.Equal(t, 2, g.Len())
	assert.Zero(t, g.EdgeCount())

	res := linearize.Run(context.Background(), g, linearize.Config{})
	assert.Equal(t, 1, res.MaxCycleSize)
	assert.Equal(t, 2, res.Counts().Accepted)
	assert.Zero(t, res.Counts().EdgesRemoved)
}

func TestBuild_LocalVariableSignatures(t *testing.T) {
	c := classfiletest.Class{
		Name: "org/x/Loop",
		Methods: []classfiletest.Member{{
			Name:            "each",
			Descriptor:      "()V",
			LocalSignatures: []string{"Ljava/util/Map<Lorg/x/Key;Ljava/util/List<Lorg/x/Value;>;>;"},
		}},
	}

	g, _, err := newTestBuilder(t).Build(context.Background(), MemorySource{entry(c)})
	require.NoError(t, err)

	m1 := int64(graph.Of(graph.CategoryMethod, 1))
	assert.Equal(t, map[string]int64{
		"java.util.Map":  m1,
		"java.util.List": m1,
		"org.x.Key":      m1,
		"org.x.Value":    m1,
	}, g.EdgesOf("org.x.Loop"))
}

func TestBuildExternal(t *testing.T) {
	lib := MemorySource{
		entry(classfiletest.Class{Name: "org/lib/Api", Fields: []classfiletest.Member{
			{Name: "impl", Descriptor: "Lorg/lib/Impl;"},
			{Name: "shared", Descriptor: "Lorg/lib/Shared;"},
		}}),
		entry(classfiletest.Class{Name: "org/lib/Impl", Fields: []classfiletest.Member{{Name: "dep", Descriptor: "Lcom/ext/Dep;"}}}),
		entry(classfiletest.Class{Name: "org/lib/Shared"}),
	}
	app := MemorySource{
		entry(classfiletest.Class{Name: "org/app/Main", Fields: []classfiletest.Member{
			{Name: "helper", Descriptor: "Lorg/app/Helper;"},
			{Name: "api", Descriptor: "Lorg/lib/Api;"},
			{Name: "shared", Descriptor: "Lorg/lib/Shared;"},
		}}),
		entry(classfiletest.Class{Name: "org/app/Helper"}),
		// A second copy belongs to the archive read first.
		entry(classfiletest.Class{Name: "org/lib/Shared"}),
	}
	f1 := int64(graph.Of(graph.CategoryField, 1))

	g, stats, err := newTestBuilder(t).BuildExternal(context.Background(), lib, app)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Sources)
	assert.Equal(t, 6, stats.Classes)
	assert.Equal(t, 3, stats.InternalReferences)
	assert.Empty(t, g.EdgesOf("org.lib.Api"))
	assert.Equal(t, map[string]int64{"com.ext.Dep": f1}, g.EdgesOf("org.lib.Impl"))
	assert.Equal(t, map[string]int64{"org.lib.Api": f1, "org.lib.Shared": f1}, g.EdgesOf("org.app.Main"))
	assert.Equal(t, 6, g.Len())

	t.Run("single source keeps only undefined targets", func(t *testing.T) {
		g, _, err := newTestBuilder(t).BuildExternal(context.Background(), lib)
		require.NoError(t, err)
		assert.Equal(t, 1, g.EdgeCount())
		assert.Equal(t, map[string]int64{"com.ext.Dep": f1}, g.EdgesOf("org.lib.Impl"))
	})

	t.Run("merged build keeps everything", func(t *testing.T) {
		g, stats, err := newTestBuilder(t).Build(context.Background(), MultiSource{lib, app})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Sources)
		assert.Zero(t, stats.InternalReferences)
		assert.Len(t, g.EdgesOf("org.app.Main"), 3)
		assert.Len(t, g.EdgesOf("org.lib.Api"), 2)
	})

	t.Run("no sources", func(t *testing.T) {
		_, _, err := newTestBuilder(t).BuildExternal(context.Background())
		assert.ErrorIs(t, err, ErrInvalidOptions)
	})
}

func TestBuild_InternalOnly(t *testing.T) {
	a := classfiletest.Class{
		Name:   "org/x/A",
		Fields: []classfiletest.Member{{Name: "b", Descriptor: "Lorg/x/B;"}, {Name: "ext", Descriptor: "Lcom/other/Ext;"}},
	}
	bClass := classfiletest.Class{Name: "org/x/B"}
	b := newTestBuilder(t, WithInternalOnly(true))

	g, _, err := b.Build(context.Background(), MemorySource{entry(a), entry(bClass)})
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"org.x.B": int64(graph.Of(graph.CategoryField, 1))}, g.EdgesOf("org.x.A"))
	_, ok := g.Vertex("com.other.Ext")
	assert.False(t, ok)
}

func TestBuild_MalformedDescriptor(t *testing.T) {
	broken := classfiletest.Class{
		Name:   "org/x/Broken",
		Fields: []classfiletest.Member{{Name: "f", Descriptor: "Lorg/x/Missing"}, {Name: "ok", Descriptor: "Lorg/x/Fine;"}},
	}

	t.Run("skipped by default", func(t *testing.T) {
		g, stats, err := newTestBuilder(t).Build(context.Background(), MemorySource{entry(broken)})
		require.NoError(t, err)

		assert.Equal(t, 1, stats.MalformedDescriptors)
		assert.Equal(t, []string{"org.x.Broken", "org.x.Fine"}, []string{g.At(0).Value(), g.At(1).Value()})
	})

	t.Run("strict aborts", func(t *testing.T) {
		_, _, err := newTestBuilder(t, WithStrict(true)).Build(context.Background(), MemorySource{entry(broken)})
		require.Error(t, err)
		assert.ErrorIs(t, err, descriptor.ErrMalformedDescriptor)
		assert.True(t, IsEntryError(err))
	})
}

func TestBuild_UnreadableClass(t *testing.T) {
	src := MemorySource{
		{Name: "bad.class", Data: []byte{1, 2, 3}},
		entry(classfiletest.Class{Name: "org/x/Good"}),
		{Name: "README.md", Data: []byte("ignored")},
	}

	g, stats, err := newTestBuilder(t).Build(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.SkippedClasses)
	assert.Equal(t, 1, stats.Classes)
	assert.Equal(t, 1, g.Len())

	_, _, err = newTestBuilder(t, WithStrict(true)).Build(context.Background(), src)
	assert.ErrorIs(t, err, classfile.ErrNotClassFile)
}

func TestBuild_ParseCache(t *testing.T) {
	src := MemorySource{
		entry(classfiletest.Class{Name: "org/x/A", Fields: []classfiletest.Member{{Name: "m", Descriptor: "Ljava/util/Map;"}}}),
		entry(classfiletest.Class{Name: "org/x/B", Fields: []classfiletest.Member{{Name: "m", Descriptor: "Ljava/util/Map;"}}}),
	}
	b := newTestBuilder(t, WithWorkers(1))

	_, stats, err := b.Build(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Descriptors)
	assert.Equal(t, 1, stats.CacheHits)
}

func TestBuild_DirSourceMatchesArchive(t *testing.T) {
	classes := []classfiletest.Class{
		{Name: "org/x/A", Fields: []classfiletest.Member{{Name: "b", Descriptor: "Lorg/x/B;"}}},
		{Name: "org/x/B", Fields: []classfiletest.Member{{Name: "a", Descriptor: "Lorg/x/A;"}}},
	}
	dir := t.TempDir()
	var entries []Entry
	for _, c := range classes {
		e := entry(c)
		entries = append(entries, e)
		p := filepath.Join(dir, filepath.FromSlash(e.Name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, e.Data, 0o644))
	}
	archive := filepath.Join(t.TempDir(), "classes.jar")
	require.NoError(t, os.WriteFile(archive, zipArchive(t, entries...), 0o644))

	b := newTestBuilder(t)
	fromDir, _, err := b.Build(context.Background(), DirSource{Root: dir})
	require.NoError(t, err)

	src, err := OpenSource(archive)
	require.NoError(t, err)
	fromZip, _, err := b.Build(context.Background(), src)
	require.NoError(t, err)

	for _, name := range []string{"org.x.A", "org.x.B"} {
		assert.Equal(t, fromZip.EdgesOf(name), fromDir.EdgesOf(name))
	}
	assert.Equal(t, 2, fromDir.EdgeCount())
}

func TestNewBuilder_InvalidCacheSize(t *testing.T) {
	_, err := NewBuilder(WithParseCacheSize(0))
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestIsClassEntry(t *testing.T) {
	assert.True(t, IsClassEntry("a/B.class"))
	assert.False(t, IsClassEntry("module-info.class"))
	assert.False(t, IsClassEntry("META-INF/versions/9/module-info.class"))
	assert.False(t, IsClassEntry("a/B.java"))
}
