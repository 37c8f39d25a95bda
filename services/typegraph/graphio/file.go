// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
)

// Format names a graph encoding.
type Format string

const (
	FormatGML  Format = "gml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gml":
		return FormatGML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Read decodes a graph in the given format.
func Read(r io.Reader, f Format) (*graph.Graph[string], error) {
	switch f {
	case FormatGML:
		return ReadGML(r)
	case FormatYAML:
		return ReadYAML(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// Write encodes a graph in the given format.
func Write(w io.Writer, g *graph.Graph[string], f Format, opts WriteOptions) error {
	switch f {
	case FormatGML:
		return WriteGML(w, g, opts)
	case FormatYAML:
		return WriteYAML(w, g, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// ReadFile loads a graph, choosing the format by extension.
func ReadFile(path string) (*graph.Graph[string], error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	g, err := Read(file, f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return g, nil
}

// WriteFile stores a graph, choosing the format by extension.
func WriteFile(path string, g *graph.Graph[string], opts WriteOptions) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(file, g, f, opts); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}
