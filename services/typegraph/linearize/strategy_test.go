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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"", Sequential},
		{"SEQUENTIAL", Sequential},
		{"parallel", Parallel},
		{" Vertex_Weight ", VertexWeight},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategy(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStrategy("RANDOM")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestStrategy_Text(t *testing.T) {
	var s Strategy
	require.NoError(t, s.UnmarshalText([]byte("parallel")))
	assert.Equal(t, Parallel, s)

	text, err := VertexWeight.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "VERTEX_WEIGHT", string(text))

	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}

func TestActionKind_String(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "edge_removed", EdgeRemoved.String())
	assert.Equal(t, "vertex_removed", VertexRemoved.String())
	assert.Equal(t, "unknown", ActionKind(9).String())

	var k ActionKind
	require.NoError(t, k.UnmarshalText([]byte("vertex_removed")))
	assert.Equal(t, VertexRemoved, k)
	assert.Error(t, k.UnmarshalText([]byte("unknown")))
}

func TestNew_Defaults(t *testing.T) {
	e := New[string](Config{})

	assert.Equal(t, Sequential, e.cfg.Strategy)
	assert.Positive(t, e.cfg.Workers)
	assert.NotNil(t, e.cfg.VertexWeight)
	assert.NotNil(t, e.logger)
	assert.Equal(t, int64(3), IncomingWeight(3, 9))
	assert.Equal(t, int64(12), IncidentWeight(3, 9))
}
