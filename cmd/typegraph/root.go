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
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/typegraph/services/typegraph/config"
	"github.com/AleutianAI/typegraph/services/typegraph/telemetry"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configFile string
	logLevel   string

	cfg      *config.Config
	logger   *slog.Logger
	shutdown func(context.Context) error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, logger: slog.Default()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "typegraph",
		Short: "Build and linearize dependency graphs",
		Long: `typegraph extracts type-reference graphs from jar files and orders the
vertices of any weighted dependency graph so that dependencies come first,
breaking cycles by removing the lightest edges or vertices.

Graph files are GML (.gml) or YAML (.yaml, .yml). Anything else given as a
LOCATOR is read as a jar/zip archive or a directory of class files.

Examples:
  typegraph linearize deps.yaml
  typegraph linearize app.jar VERTEX_WEIGHT --log
  typegraph build app.jar -o app.gml --linearize
  typegraph paths deps.gml org.example.Main`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "",
		"config file (default: ./typegraph.yaml, then $HOME/.typegraph/typegraph.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"log level: debug, info, warn or error (overrides log.level)")

	root.AddCommand(
		newLinearizeCmd(a),
		newBuildCmd(a),
		newPathsCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup loads configuration, installs the logger and starts telemetry.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.LoadOptions{File: a.configFile})
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.logger = newLogger(a.stderr, cfg.SlogLevel(), cfg.Log.Format)
	slog.SetDefault(a.logger)

	shutdown, err := telemetry.Init(cmd.Context(), cfg.TelemetryConfig())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	a.shutdown = shutdown
	return nil
}

// close flushes telemetry and writes the metrics file, if configured.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
		a.shutdown = nil
	}
	if a.cfg != nil && a.cfg.Telemetry.MetricsFile != "" {
		errs = append(errs, telemetry.WriteMetricsFile(a.cfg.Telemetry.MetricsFile))
	}
	return errors.Join(errs...)
}

// newLogger returns a text handler on terminals and JSON otherwise, unless
// format forces one.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "auto" {
		format = "json"
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			format = "text"
		}
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
