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
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/typegraph/services/typegraph/graph"
	"github.com/AleutianAI/typegraph/services/typegraph/linearize"
	"github.com/AleutianAI/typegraph/services/typegraph/typeref"
)

var (
	colorTeal    = lipgloss.Color("#2CD7C7")
	colorSlate   = lipgloss.Color("#2C4A54")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorTeal),
	Label:   lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(colorSlate),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
}

// weightFormat renders an edge weight. Type graphs carry packed category
// counts; other graphs carry plain integers.
type weightFormat func(int64) string

func plainWeight(w int64) string { return strconv.FormatInt(w, 10) }

func packedWeight(w int64) string {
	if w < 0 || w > int64(^uint32(0)) {
		return plainWeight(w)
	}
	return graph.Packed(uint32(w)).String()
}

func weightFormatter(packed bool) weightFormat {
	if packed {
		return packedWeight
	}
	return plainWeight
}

func printResult(w io.Writer, res *linearize.Result[string], showLog bool, fmtWeight weightFormat) {
	counts := res.Counts()
	fmt.Fprintln(w, styles.Title.Render(fmt.Sprintf("Linearization (%s)", res.Strategy)))
	fmt.Fprintf(w, "%s %d\n", styles.Label.Render("vertices:"), len(res.Order))
	fmt.Fprintf(w, "%s %d\n", styles.Label.Render("max cycle:"), res.MaxCycleSize)
	fmt.Fprintf(w, "%s %d\n", styles.Label.Render("residual cycle:"), res.ResidualCycleSize)
	fmt.Fprintf(w, "%s %d accepted, %d edges removed, %d vertices removed\n",
		styles.Label.Render("actions:"), counts.Accepted, counts.EdgesRemoved, counts.VerticesRemoved)
	fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("run %s in %s", res.RunID, res.Duration)))

	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.Title.Render("Order"))
	for i, v := range res.Order {
		fmt.Fprintf(w, "%4d  %s\n", i+1, v.Value())
	}

	if !showLog {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.Title.Render("Actions"))
	for _, act := range res.Log {
		fmt.Fprintln(w, formatAction(act, fmtWeight))
	}
}

func formatAction(act linearize.Action[string], fmtWeight weightFormat) string {
	where := styles.Muted.Render(fmt.Sprintf("[component %d, depth %d]", act.Component, act.Depth))
	switch act.Kind {
	case linearize.EdgeRemoved:
		return fmt.Sprintf("%s %s -> %s (%s) %s", styles.Warning.Render("remove edge"),
			act.Vertex.Value(), act.Target.Value(), fmtWeight(act.Weight), where)
	case linearize.VertexRemoved:
		return fmt.Sprintf("%s %s (%s) %s", styles.Warning.Render("remove vertex"),
			act.Vertex.Value(), fmtWeight(act.Weight), where)
	default:
		return fmt.Sprintf("accept %s %s", act.Vertex.Value(), where)
	}
}

type actionJSON struct {
	Kind      linearize.ActionKind `json:"kind"`
	Vertex    string               `json:"vertex"`
	Target    string               `json:"target,omitempty"`
	Weight    int64                `json:"weight,omitempty"`
	Component int                  `json:"component"`
	Depth     int                  `json:"depth"`
}

type resultJSON struct {
	RunID             string                 `json:"run_id"`
	Strategy          linearize.Strategy     `json:"strategy"`
	Order             []string               `json:"order"`
	MaxCycleSize      int                    `json:"max_cycle_size"`
	ResidualCycleSize int                    `json:"residual_cycle_size"`
	Counts            linearize.ActionCounts `json:"counts"`
	Log               []actionJSON           `json:"log,omitempty"`
	DurationMS        float64                `json:"duration_ms"`
}

func printResultJSON(w io.Writer, res *linearize.Result[string], showLog bool) error {
	out := resultJSON{
		RunID:             res.RunID,
		Strategy:          res.Strategy,
		Order:             make([]string, len(res.Order)),
		MaxCycleSize:      res.MaxCycleSize,
		ResidualCycleSize: res.ResidualCycleSize,
		Counts:            res.Counts(),
		DurationMS:        float64(res.Duration.Microseconds()) / 1000,
	}
	for i, v := range res.Order {
		out.Order[i] = v.Value()
	}
	if showLog {
		out.Log = make([]actionJSON, len(res.Log))
		for i, act := range res.Log {
			out.Log[i] = actionJSON{
				Kind:      act.Kind,
				Vertex:    act.Vertex.Value(),
				Weight:    act.Weight,
				Component: act.Component,
				Depth:     act.Depth,
			}
			if act.Kind == linearize.EdgeRemoved {
				out.Log[i].Target = act.Target.Value()
			}
		}
	}
	return writeJSON(w, out)
}

func printStats(w io.Writer, stats *typeref.Stats) {
	fmt.Fprintln(w, styles.Title.Render("Type graph"))
	if stats.Sources > 1 {
		fmt.Fprintf(w, "%s %d\n", styles.Label.Render("archives:"), stats.Sources)
	}
	fmt.Fprintf(w, "%s %d (%d skipped)\n", styles.Label.Render("classes:"), stats.Classes, stats.SkippedClasses)
	fmt.Fprintf(w, "%s %d vertices, %d edges\n", styles.Label.Render("graph:"), stats.Vertices, stats.Edges)
	fmt.Fprintf(w, "%s %d parsed, %d malformed, %d cache hits\n", styles.Label.Render("descriptors:"),
		stats.Descriptors, stats.MalformedDescriptors, stats.CacheHits)
	fmt.Fprintf(w, "%s %d\n", styles.Label.Render("excluded references:"), stats.ExcludedReferences)
	if stats.InternalReferences > 0 {
		fmt.Fprintf(w, "%s %d\n", styles.Label.Render("archive-internal references:"), stats.InternalReferences)
	}
	fmt.Fprintln(w, styles.Muted.Render(fmt.Sprintf("built in %s", stats.Duration)))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
