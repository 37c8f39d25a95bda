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
	"cmp"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/typegraph/services/typegraph/shortest"
)

type distance struct {
	Vertex   string `json:"vertex"`
	Distance *int64 `json:"distance"`
}

func newPathsCmd(a *app) *cobra.Command {
	var asJSON, all bool
	cmd := &cobra.Command{
		Use:   "paths LOCATOR FROM",
		Short: "Print shortest weighted distances from a vertex",
		Long: `Compute the shortest distance from FROM to every vertex, summing edge
weights along the path. Reachable vertices are listed nearest first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.loadGraph(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dist, err := shortest.FromGraph(l.graph, args[1])
			if err != nil {
				return err
			}

			rows := sortedDistances(dist, all)
			if asJSON {
				return writeJSON(a.stdout, rows)
			}
			for _, r := range rows {
				d := styles.Muted.Render("unreachable")
				if r.Distance != nil {
					d = fmt.Sprint(*r.Distance)
				}
				fmt.Fprintf(a.stdout, "%12s  %s\n", d, r.Vertex)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print distances as JSON")
	cmd.Flags().BoolVar(&all, "all", false, "include unreachable vertices")
	return cmd
}

// sortedDistances orders by distance then name; unreachable vertices come
// last and only when all is set.
func sortedDistances(dist map[string]int64, all bool) []distance {
	rows := make([]distance, 0, len(dist))
	for v, d := range dist {
		if d == shortest.Infinity {
			if all {
				rows = append(rows, distance{Vertex: v})
			}
			continue
		}
		rows = append(rows, distance{Vertex: v, Distance: &d})
	}
	slices.SortFunc(rows, func(x, y distance) int {
		switch {
		case x.Distance == nil && y.Distance != nil:
			return 1
		case x.Distance != nil && y.Distance == nil:
			return -1
		case x.Distance != nil && *x.Distance != *y.Distance:
			return cmp.Compare(*x.Distance, *y.Distance)
		}
		return cmp.Compare(x.Vertex, y.Vertex)
	})
	return rows
}
