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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/typegraph/services/typegraph/graphio"
	"github.com/AleutianAI/typegraph/services/typegraph/linearize"
)

type buildFlags struct {
	output       string
	linearize    bool
	strategy     string
	cacheDir     string
	internalOnly bool
	external     bool
	strict       bool
	packed       bool
}

func newBuildCmd(a *app) *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "build ARCHIVE... -o FILE",
		Short: "Extract the type-reference graph of one or more jars",
		Long: `Read every class in each ARCHIVE (a jar/zip or a directory of class files),
collect the types each class refers to and write the graph to FILE.

Several archives are merged into one graph. With --external only the
references that leave the archive defining the referring class are kept;
a type defined by several archives belongs to the first one listed.

Edge weights count references per category (hierarchy, field, method,
expression); the format is chosen by FILE's extension (.gml, .yaml).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := graphio.FormatOf(flags.output); err != nil {
				return err
			}
			if cmd.Flags().Changed("cache-dir") {
				a.cfg.Storage.CacheDir = flags.cacheDir
			}
			if cmd.Flags().Changed("internal-only") {
				a.cfg.Builder.InternalOnly = flags.internalOnly
			}
			if cmd.Flags().Changed("strict") {
				a.cfg.Builder.Strict = flags.strict
			}

			ctx := cmd.Context()
			l, err := a.buildGraph(ctx, buildRequest{archives: args, external: flags.external})
			if err != nil {
				return err
			}
			if err := graphio.WriteFile(flags.output, l.graph, graphio.WriteOptions{Packed: flags.packed}); err != nil {
				return err
			}

			if l.cached {
				fmt.Fprintln(a.stdout, styles.Muted.Render(fmt.Sprintf("type graph loaded from cache: %d vertices, %d edges",
					l.graph.Len(), l.graph.EdgeCount())))
			} else {
				printStats(a.stdout, l.stats)
			}
			fmt.Fprintf(a.stdout, "%s %s\n", styles.Label.Render("written:"), flags.output)

			if !flags.linearize {
				return nil
			}
			strategy, err := strategyArg(nil, flags.strategy)
			if err != nil {
				return err
			}
			engineCfg := a.cfg.EngineConfig(a.logger)
			engineCfg.Strategy = strategy
			fmt.Fprintln(a.stdout)
			printResult(a.stdout, linearize.Run(ctx, l.graph, engineCfg), false, packedWeight)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "graph file to write (.gml, .yaml)")
	cmd.MarkFlagRequired("output")
	cmd.Flags().BoolVar(&flags.linearize, "linearize", false, "also linearize the built graph")
	cmd.Flags().StringVar(&flags.strategy, "strategy", linearize.Sequential.String(), "strategy for --linearize")
	cmd.Flags().StringVar(&flags.cacheDir, "cache-dir", "", "cache built graphs in this directory (overrides storage.cache_dir)")
	cmd.Flags().BoolVar(&flags.internalOnly, "internal-only", false, "keep only references to classes defined by the archives")
	cmd.Flags().BoolVar(&flags.external, "external", false, "keep only references that cross archive boundaries")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "fail on the first unreadable class or malformed descriptor")
	cmd.Flags().BoolVar(&flags.packed, "packed", false, "annotate GML edges with category counts")
	return cmd
}
