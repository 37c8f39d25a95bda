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
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/typegraph/services/typegraph/linearize"
	"github.com/AleutianAI/typegraph/services/typegraph/watch"
)

type linearizeFlags struct {
	json    bool
	log     bool
	watch   bool
	packed  bool
	workers int
}

func newLinearizeCmd(a *app) *cobra.Command {
	var flags linearizeFlags
	cmd := &cobra.Command{
		Use:   "linearize LOCATOR [SEQUENTIAL|PARALLEL|VERTEX_WEIGHT]",
		Short: "Order a graph's vertices dependencies first",
		Long: `Linearize a dependency graph. Cycles are broken with the chosen strategy:

  SEQUENTIAL     remove the lightest edge of each cycle, one at a time (default)
  PARALLEL       as SEQUENTIAL, reducing independent components concurrently
  VERTEX_WEIGHT  remove the vertex with the lightest incoming weight

LOCATOR is a .gml/.yaml graph file, a jar/zip archive or a class directory.`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: strategyNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := strategyArg(args, a.cfg.Linearize.Strategy)
			if err != nil {
				return err
			}
			engineCfg := a.cfg.EngineConfig(a.logger)
			engineCfg.Strategy = strategy
			if flags.workers > 0 {
				engineCfg.Workers = flags.workers
			}
			engine := linearize.New[string](engineCfg)

			once := func(ctx context.Context) error {
				l, err := a.loadGraph(ctx, args[0])
				if err != nil {
					return err
				}
				res := engine.Run(ctx, l.graph)
				if flags.json {
					return printResultJSON(a.stdout, res, flags.log)
				}
				printResult(a.stdout, res, flags.log, weightFormatter(flags.packed || l.packed))
				return nil
			}

			if !flags.watch {
				return once(cmd.Context())
			}
			return a.watchAndRun(cmd.Context(), args[0], once)
		},
	}
	cmd.Flags().BoolVar(&flags.json, "json", false, "print the result as JSON")
	cmd.Flags().BoolVar(&flags.log, "log", false, "include the action log")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "re-run whenever LOCATOR changes")
	cmd.Flags().BoolVar(&flags.packed, "packed", false, "show weights as category counts")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "PARALLEL worker bound (overrides linearize.workers)")
	return cmd
}

// strategyArg resolves the optional STRATEGY argument, falling back to the
// configured strategy.
func strategyArg(args []string, configured string) (linearize.Strategy, error) {
	token := configured
	if len(args) > 1 {
		token = args[1]
	}
	return linearize.ParseStrategy(token)
}

func strategyNames() []string {
	names := make([]string, len(linearize.Strategies))
	for i, s := range linearize.Strategies {
		names[i] = s.String()
	}
	return names
}

// watchAndRun runs once now and again after every change to path, until
// the context is cancelled. Failed runs are logged and do not stop watching.
func (a *app) watchAndRun(ctx context.Context, path string, once func(context.Context) error) error {
	report := func(ctx context.Context) {
		if err := once(ctx); err != nil {
			a.logger.Error("run failed", slog.String("locator", path), slog.String("error", err.Error()))
		}
	}
	report(ctx)

	w, err := watch.New([]string{path}, func(ctx context.Context, _ []string) {
		report(ctx)
	}, watch.Options{Logger: a.logger})
	if err != nil {
		return err
	}
	defer w.Close()

	a.logger.Info("watching for changes", slog.String("locator", path))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
