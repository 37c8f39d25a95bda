// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads typegraph settings from defaults, a YAML file, a
// .env file and TYPEGRAPH_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/typegraph/services/typegraph/linearize"
	"github.com/AleutianAI/typegraph/services/typegraph/storage/badger"
	"github.com/AleutianAI/typegraph/services/typegraph/telemetry"
	"github.com/AleutianAI/typegraph/services/typegraph/typeref"
)

// EnvPrefix prefixes environment overrides, e.g. TYPEGRAPH_LINEARIZE_STRATEGY.
const EnvPrefix = "TYPEGRAPH"

// FileName is the config file name searched for without an explicit path.
const FileName = "typegraph.yaml"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete typegraph configuration.
type Config struct {
	Linearize LinearizeConfig `mapstructure:"linearize" yaml:"linearize"`
	Builder   BuilderConfig   `mapstructure:"builder" yaml:"builder"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// LinearizeConfig controls the linearization engine.
type LinearizeConfig struct {
	// Strategy is SEQUENTIAL, PARALLEL or VERTEX_WEIGHT, any case.
	Strategy string `mapstructure:"strategy" yaml:"strategy" validate:"strategy"`
	// Workers bounds PARALLEL; 0 means GOMAXPROCS.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=0"`
}

// BuilderConfig controls type graph extraction.
type BuilderConfig struct {
	ExcludedPrefixes []string `mapstructure:"excluded_prefixes" yaml:"excluded_prefixes"`
	Strict           bool     `mapstructure:"strict" yaml:"strict"`
	InternalOnly     bool     `mapstructure:"internal_only" yaml:"internal_only"`
	ParseCacheSize   int      `mapstructure:"parse_cache_size" yaml:"parse_cache_size" validate:"gte=0"`
	// Workers bounds concurrent class parsing; 0 means NumCPU.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=0"`
}

// StorageConfig controls the built-graph cache.
type StorageConfig struct {
	// CacheDir enables the cache when non-empty.
	CacheDir string        `mapstructure:"cache_dir" yaml:"cache_dir"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"gte=0"`
}

// TelemetryConfig selects exporters.
type TelemetryConfig struct {
	TraceExporter  string `mapstructure:"trace_exporter" yaml:"trace_exporter" validate:"oneof=none stdout otlp"`
	MetricExporter string `mapstructure:"metric_exporter" yaml:"metric_exporter" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
	// MetricsFile receives a Prometheus text dump at exit when set.
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
}

// LogConfig controls the CLI log handler.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	// Format is auto (text on a terminal, JSON otherwise), text or json.
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=auto text json"`
}

// Default returns the built-in configuration.
func Default() *Config {
	tel := telemetry.DefaultConfig()
	return &Config{
		Linearize: LinearizeConfig{
			Strategy: linearize.Sequential.String(),
		},
		Builder: BuilderConfig{
			ExcludedPrefixes: []string{typeref.DefaultExcludedPrefix},
			ParseCacheSize:   typeref.DefaultParseCacheSize,
		},
		Storage: StorageConfig{
			TTL: badger.DefaultConfig().TTL,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  tel.TraceExporter,
			MetricExporter: tel.MetricExporter,
			OTLPEndpoint:   tel.OTLPEndpoint,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// SetDefaults registers every default on v so env overrides and Unmarshal
// see the full key set.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("linearize.strategy", d.Linearize.Strategy)
	v.SetDefault("linearize.workers", d.Linearize.Workers)

	v.SetDefault("builder.excluded_prefixes", d.Builder.ExcludedPrefixes)
	v.SetDefault("builder.strict", d.Builder.Strict)
	v.SetDefault("builder.internal_only", d.Builder.InternalOnly)
	v.SetDefault("builder.parse_cache_size", d.Builder.ParseCacheSize)
	v.SetDefault("builder.workers", d.Builder.Workers)

	v.SetDefault("storage.cache_dir", d.Storage.CacheDir)
	v.SetDefault("storage.ttl", d.Storage.TTL)

	v.SetDefault("telemetry.trace_exporter", d.Telemetry.TraceExporter)
	v.SetDefault("telemetry.metric_exporter", d.Telemetry.MetricExporter)
	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.metrics_file", d.Telemetry.MetricsFile)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// File is an explicit config path. Empty searches the working
	// directory and $HOME/.typegraph for typegraph.yaml.
	File string

	// EnvFile is loaded into the environment first when it exists.
	// Default: ".env"
	EnvFile string
}

// Load reads the configuration and validates it.
//
// Description:
//
//	Applies defaults, then the config file (missing is fine unless File was
//	given explicitly), then TYPEGRAPH_* variables. A .env file only fills
//	variables that are not already set.
//
// Outputs:
//
//	*Config - The validated configuration.
//	error - Non-nil if the file is unreadable or validation fails
//	        (errors.Is(err, ErrInvalidConfig)).
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".typegraph"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("strategy", func(fl validator.FieldLevel) bool {
		_, err := linearize.ParseStrategy(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// WriteDefault writes the default configuration as YAML to path, creating
// parent directories.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// EngineConfig converts the linearize section.
func (c *Config) EngineConfig(logger *slog.Logger) linearize.Config {
	cfg := linearize.DefaultConfig()
	// Validate already accepted the token.
	cfg.Strategy, _ = linearize.ParseStrategy(c.Linearize.Strategy)
	if c.Linearize.Workers > 0 {
		cfg.Workers = c.Linearize.Workers
	}
	cfg.Logger = logger
	return cfg
}

// BuilderOptions converts the builder section.
func (c *Config) BuilderOptions(logger *slog.Logger) []typeref.Option {
	opts := []typeref.Option{
		typeref.WithExcludedPrefixes(c.Builder.ExcludedPrefixes...),
		typeref.WithStrict(c.Builder.Strict),
		typeref.WithInternalOnly(c.Builder.InternalOnly),
		typeref.WithParseCacheSize(c.Builder.ParseCacheSize),
		typeref.WithLogger(logger),
	}
	if c.Builder.Workers > 0 {
		opts = append(opts, typeref.WithWorkers(c.Builder.Workers))
	} else {
		opts = append(opts, typeref.WithWorkers(runtime.NumCPU()))
	}
	return opts
}

// TelemetryConfig converts the telemetry section.
func (c *Config) TelemetryConfig() telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.TraceExporter = c.Telemetry.TraceExporter
	cfg.MetricExporter = c.Telemetry.MetricExporter
	cfg.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	return cfg
}

// StoreConfig converts the storage section. The boolean is false when the
// cache is disabled.
func (c *Config) StoreConfig(logger *slog.Logger) (badger.Config, bool) {
	cfg := badger.DefaultConfig()
	cfg.Path = c.Storage.CacheDir
	cfg.TTL = c.Storage.TTL
	cfg.Logger = logger
	return cfg, c.Storage.CacheDir != ""
}

// SlogLevel maps the log level name.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
