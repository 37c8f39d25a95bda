// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphio persists string-keyed graphs as GML or YAML fixtures.
//
// GML follows the layout of the JGraphT exporter: one node block per vertex
// with a label and the summed outgoing weight, one edge block per edge with
// its weight. YAML lists vertices and {from, to, weight} edges.
package graphio

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFormat is returned when a path has no recognized extension.
	ErrUnknownFormat = errors.New("unknown graph format")

	// ErrSyntax is wrapped by every decoding failure.
	ErrSyntax = errors.New("graph syntax error")
)

// SyntaxError locates a decoding failure.
type SyntaxError struct {
	Line   int
	Reason string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d: %s", ErrSyntax, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrSyntax, e.Reason)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}
