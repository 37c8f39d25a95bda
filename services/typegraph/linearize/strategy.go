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
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStrategy is returned by ParseStrategy for unrecognized tokens.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy selects how cyclic components are reduced.
type Strategy string

const (
	// Sequential removes the lowest-weight edge of one component at a time.
	Sequential Strategy = "SEQUENTIAL"

	// Parallel uses the Sequential selection but reduces independent
	// top-level components concurrently.
	Parallel Strategy = "PARALLEL"

	// VertexWeight removes the vertex with the lowest aggregate weight,
	// together with all of its edges inside the component.
	VertexWeight Strategy = "VERTEX_WEIGHT"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{Sequential, Parallel, VertexWeight}

// ParseStrategy converts a token into a Strategy. Matching is case
// insensitive; the empty token selects Sequential.
func ParseStrategy(token string) (Strategy, error) {
	if strings.TrimSpace(token) == "" {
		return Sequential, nil
	}
	s := Strategy(strings.ToUpper(strings.TrimSpace(token)))
	for _, known := range Strategies {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of SEQUENTIAL, PARALLEL, VERTEX_WEIGHT)", ErrUnknownStrategy, token)
}

// String returns the strategy token.
func (s Strategy) String() string { return string(s) }

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Strategy) removesEdges() bool {
	return s != VertexWeight
}
