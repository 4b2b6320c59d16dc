// Package config defines the application configuration for the batch
// remediation pipeline and its loading order: built-in defaults, then an
// optional JSON config file, then environment variable overrides (prefix
// BF_, with .env support for development).
//
// The core consumes these values as opaque strings and numbers; validation
// lives in validate.go and is surfaced by the CLI before any phase runs.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppConfig carries every tunable of a pipeline run.
type AppConfig struct {
	// Source selects the data-source backend and its connection string.
	Source SourceConfig `json:"source"`

	// SelectionQuery enumerates candidate rows for remediation. Its column
	// list is parsed textually for name-based column resolution, so it must
	// stay a flat SELECT ... FROM ... statement.
	SelectionQuery string `json:"selection_query" env:"SELECTION_QUERY"`

	// UpdateQueryTemplate is the statement skeleton for the template
	// strategy. Placeholders: {{key}} for the first column, {{field1}},
	// {{field2}}, ... for the rest, in column order. Values are substituted
	// literally; templates must pre-quote literals.
	UpdateQueryTemplate string `json:"update_query_template" env:"UPDATE_QUERY_TEMPLATE"`

	// Strategy selects how statements are derived: "template", "fips"
	// (repair county against the 3-digit FIPS code), or "county" (repair
	// against the 2-digit county code).
	Strategy string `json:"strategy" env:"STRATEGY"`

	// BatchSize is the fixed row-batch size of the cursor reader.
	BatchSize int `json:"batch_size" env:"BATCH_SIZE"`

	// TimeoutSeconds bounds connection establishment.
	TimeoutSeconds int `json:"timeout_seconds" env:"TIMEOUT_SECONDS"`

	// DataPath is the processed-records log location.
	DataPath string `json:"data_path" env:"DATA_PATH"`

	// CheckAgainAfter is the continuous-mode wait between cycles, seconds.
	CheckAgainAfter int `json:"check_again_after" env:"CHECK_AGAIN_AFTER"`

	// Field-name bindings for the lookup-repair strategies. Each must appear
	// in the selection statement's column list.
	KeyFieldName    string `json:"key_field_name" env:"KEY_FIELD_NAME"`
	ZipFieldName    string `json:"zip_field_name" env:"ZIP_FIELD_NAME"`
	CountyFieldName string `json:"county_field_name" env:"COUNTY_FIELD_NAME"`

	// NoRowsIsFailure controls how the executor classifies a statement that
	// ran without a driver error but affected zero rows. The default keeps
	// such jobs Completed.
	NoRowsIsFailure bool `json:"no_rows_is_failure" env:"NO_ROWS_IS_FAILURE"`

	// Metrics selects an optional metrics backend. Disabled when Kind is
	// empty.
	Metrics MetricsConfig `json:"metrics"`
}

// MetricsConfig identifies the metrics backend, if any.
type MetricsConfig struct {
	// Kind selects the backend: "prometheus" (Pushgateway) or "datadog".
	Kind string `json:"kind" env:"METRICS_KIND"`

	// Addr is the Pushgateway base URL or the DogStatsD address.
	Addr string `json:"addr" env:"METRICS_ADDR"`

	// Namespace is an optional prefix for Datadog metric names.
	Namespace string `json:"namespace" env:"METRICS_NAMESPACE"`
}

// SourceConfig identifies the data-source backend.
type SourceConfig struct {
	// Kind selects the driver: "mysql", "mssql", "postgres", or "sqlite".
	Kind string `json:"kind" env:"SOURCE_KIND"`

	// DSN is the driver-specific connection string.
	DSN string `json:"dsn" env:"SOURCE_DSN"`
}

// EnvPrefix is prepended to every env tag above (e.g. BF_SELECTION_QUERY).
const EnvPrefix = "BF_"

// Default returns the built-in configuration. The query defaults are
// deliberately generic placeholders that fail validation loudly rather than
// touching real data.
func Default() AppConfig {
	return AppConfig{
		Source:              SourceConfig{Kind: "sqlite", DSN: ""},
		SelectionQuery:      "SELECT key_field, field1, field2 FROM table_name WHERE condition = 't'",
		UpdateQueryTemplate: "UPDATE table_name SET field1 = 'new_value' WHERE key_field = '{{key}}'",
		Strategy:            "template",
		BatchSize:           100,
		TimeoutSeconds:      30,
		DataPath:            "processed_records.json",
		CheckAgainAfter:     1800,
		KeyFieldName:        "key_field",
		ZipFieldName:        "zip_code",
		CountyFieldName:     "county",
	}
}

// Load resolves the configuration: defaults, then the JSON file at path when
// it exists (a missing file falls back to defaults plus environment), then
// BF_-prefixed environment variables. A .env file in the working directory
// is honored for development.
func Load(path string) (AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(b, &cfg); err != nil {
				return AppConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// fall back to defaults + env
		default:
			return AppConfig{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return AppConfig{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
