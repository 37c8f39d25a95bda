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
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// moduleInfo is the class name of a module descriptor, which declares no type.
const moduleInfo = "module-info.class"

// Entry is one named class buffer.
type Entry struct {
	Name string
	Data []byte
}

// WalkFunc receives each entry of a Source. Returning an error stops the walk.
type WalkFunc func(e Entry) error

// Source enumerates the class files of an archive or directory.
//
// Implementations yield only names ending in ".class", skip module-info,
// and yield entries in a deterministic order.
type Source interface {
	Walk(ctx context.Context, fn WalkFunc) error
}

// IsClassEntry reports whether name is a class file worth reading.
func IsClassEntry(name string) bool {
	return strings.HasSuffix(name, ".class") && path.Base(name) != moduleInfo
}

// ZipSource reads class files from a jar or zip archive on disk.
type ZipSource struct {
	Path string
}

// Walk implements Source.
func (s ZipSource) Walk(ctx context.Context, fn WalkFunc) error {
	rc, err := zip.OpenReader(s.Path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", s.Path, err)
	}
	defer rc.Close()
	return walkZip(ctx, &rc.Reader, fn)
}

// ReaderSource reads class files from an in-memory archive.
type ReaderSource struct {
	ReaderAt io.ReaderAt
	Size     int64
}

// NewBytesSource wraps archive bytes.
func NewBytesSource(data []byte) ReaderSource {
	return ReaderSource{ReaderAt: bytes.NewReader(data), Size: int64(len(data))}
}

// Walk implements Source.
func (s ReaderSource) Walk(ctx context.Context, fn WalkFunc) error {
	zr, err := zip.NewReader(s.ReaderAt, s.Size)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	return walkZip(ctx, zr, fn)
}

func walkZip(ctx context.Context, zr *zip.Reader, fn WalkFunc) error {
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() || !IsClassEntry(f.Name) {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Name, err)
		}
		if err := fn(Entry{Name: f.Name, Data: data}); err != nil {
			return err
		}
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// DirSource reads class files below a directory, in lexical order.
type DirSource struct {
	Root string
}

// Walk implements Source.
func (s DirSource) Walk(ctx context.Context, fn WalkFunc) error {
	return filepath.WalkDir(s.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !IsClassEntry(d.Name()) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		return fn(Entry{Name: filepath.ToSlash(rel), Data: data})
	})
}

// MemorySource serves entries from memory, filtered like an archive.
type MemorySource []Entry

// Walk implements Source.
func (s MemorySource) Walk(ctx context.Context, fn WalkFunc) error {
	for _, e := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !IsClassEntry(e.Name) {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// MultiSource walks several sources in order, as one.
type MultiSource []Source

// Walk implements Source.
func (s MultiSource) Walk(ctx context.Context, fn WalkFunc) error {
	for _, src := range s {
		if err := src.Walk(ctx, fn); err != nil {
			return err
		}
	}
	return nil
}

// OpenSource picks a Source for a path: directories are walked, anything
// else is read as a zip archive.
func OpenSource(p string) (Source, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return DirSource{Root: p}, nil
	}
	return ZipSource{Path: p}, nil
}
