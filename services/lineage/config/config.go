// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the lineage server configuration from YAML and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/trackmystarter/pkg/logging"
	"github.com/AleutianAI/trackmystarter/services/lineage"
	badgerstore "github.com/AleutianAI/trackmystarter/services/lineage/storage/badger"
	"github.com/AleutianAI/trackmystarter/services/lineage/telemetry"
	"github.com/AleutianAI/trackmystarter/services/lineage/words"
)

// Environment variables that override file values.
const (
	EnvPort     = "LINEAGE_PORT"
	EnvDataDir  = "LINEAGE_DATA_DIR"
	EnvInMemory = "LINEAGE_IN_MEMORY"
	EnvLogLevel = "LINEAGE_LOG_LEVEL"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// AllowedOrigins lists CORS origins. Empty or "*" allows all.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// WriteRateLimit is create requests per second across all clients.
	// Zero disables limiting.
	WriteRateLimit float64 `yaml:"write_rate_limit"`
	WriteBurst     int     `yaml:"write_burst"`
}

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig          `yaml:"server"`
	Storage   badgerstore.Config    `yaml:"storage"`
	Words     words.Source          `yaml:"words"`
	Lineage   lineage.ServiceConfig `yaml:"lineage"`
	Telemetry telemetry.Config      `yaml:"telemetry"`
	Logging   logging.Config        `yaml:"logging"`
}

var (
	// Global is the process-wide configuration, populated by LoadGlobal.
	Global Config

	once    sync.Once
	loadErr error
)

// DefaultConfig returns the configuration used when no file is given.
//
// Environment defaults from the words and telemetry packages are applied
// here (WORDS_FILE, OTEL_*).
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
			WriteRateLimit:  20,
			WriteBurst:      40,
		},
		Storage:   badgerstore.DefaultConfig(DefaultDataDir()),
		Words:     words.DefaultSource(),
		Lineage:   lineage.DefaultServiceConfig(),
		Telemetry: telemetry.DefaultConfig(),
		Logging: logging.Config{
			Level:   logging.LevelInfo,
			Service: "lineage",
			JSON:    true,
		},
	}
}

// DefaultDataDir returns ~/.trackmystarter/data, or ./data without a home
// directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "data"
	}
	return filepath.Join(home, ".trackmystarter", "data")
}

// Load reads configuration.
//
// Description:
//
//	Starts from DefaultConfig, overlays the YAML file at path when path is
//	non-empty, applies LINEAGE_* environment overrides, then validates.
//	A path that does not exist is an error: an explicit config file is
//	never silently ignored.
//
// Inputs:
//
//	path - YAML file path, or "" for defaults plus environment.
//
// Outputs:
//
//	Config - The effective configuration.
//	error - Read, parse, override or validation failure.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadGlobal loads path into Global exactly once. Later calls return the
// first call's error and ignore their path.
func LoadGlobal(path string) error {
	once.Do(func() {
		Global, loadErr = Load(path)
	})
	return loadErr
}

// applyEnv overlays LINEAGE_* variables. WORDS_FILE and OTEL_* are read by
// the words and telemetry defaults; they are re-applied here so they also
// win over file values.
func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a port", ErrInvalid, EnvPort, v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv(EnvInMemory); v != "" {
		inMem, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, EnvInMemory, v)
		}
		cfg.Storage.InMemory = inMem
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		level, err := logging.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, EnvLogLevel, err)
		}
		cfg.Logging.Level = level
	}
	if v := os.Getenv(words.EnvWordsFile); v != "" {
		cfg.Words.Override = v
	}
	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.Telemetry.TraceExporter = v
	}
	if v := os.Getenv("OTEL_METRICS_EXPORTER"); v != "" {
		cfg.Telemetry.MetricExporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.WriteRateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.write_rate_limit must not be negative"))
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		errs = append(errs, fmt.Errorf("storage.path is required unless storage.in_memory is set"))
	}
	if c.Words.WordLength <= 0 {
		errs = append(errs, fmt.Errorf("words.word_length must be positive"))
	}

	limits := []struct {
		name  string
		value int
	}{
		{"lineage.max_tree_nodes", c.Lineage.MaxTreeNodes},
		{"lineage.children_page_size", c.Lineage.ChildrenPageSize},
		{"lineage.summary_limit", c.Lineage.SummaryLimit},
		{"lineage.allocation_max_attempts", c.Lineage.AllocationMaxAttempts},
		{"lineage.insert_retries", c.Lineage.InsertRetries},
	}
	for _, l := range limits {
		if l.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", l.name, l.value))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// WriteDefault writes DefaultConfig as YAML to path, creating parent
// directories. An existing file is left untouched and reported.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
