package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoad_Defaults verifies a missing config file yields the built-in
// defaults.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

/*
TestLoad_FileThenEnv verifies the resolution order: values from the JSON
file override defaults, and BF_-prefixed environment variables override the
file.
*/
func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"source": {"kind": "mysql", "dsn": "user:pw@tcp(db:3306)/claims"},
		"batch_size": 250,
		"strategy": "county"
	}`), 0o644))

	t.Setenv("BF_BATCH_SIZE", "500")
	t.Setenv("BF_SOURCE_DSN", "user:pw@tcp(replica:3306)/claims")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "mysql", cfg.Source.Kind)                       // from file
	require.Equal(t, "user:pw@tcp(replica:3306)/claims", cfg.Source.DSN) // env wins
	require.Equal(t, 500, cfg.BatchSize)                             // env wins
	require.Equal(t, "county", cfg.Strategy)                         // from file
	require.Equal(t, 30, cfg.TimeoutSeconds)                         // default preserved
}

// TestLoad_BadJSON verifies a malformed config file is a hard error.
func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

/*
TestValidate_Table exercises the config lint:
  - a fully valid lookup config produces no issues,
  - missing DSN, bad batch size, unknown strategy, and unresolvable field
    bindings produce errors,
  - unknown source kind and missing {{key}} placeholder are warnings.
*/
func TestValidate_Table(t *testing.T) {
	valid := Default()
	valid.Source = SourceConfig{Kind: "sqlite", DSN: "file:claims.db"}
	valid.Strategy = "county"
	valid.SelectionQuery = "SELECT key_field, zip_code, county FROM member_address WHERE zip_code IS NOT NULL"

	cases := []struct {
		name     string
		mutate   func(*AppConfig)
		wantErrs int
		wantWarn int
	}{
		{"valid lookup config", func(c *AppConfig) {}, 0, 0},
		{"missing dsn", func(c *AppConfig) { c.Source.DSN = "" }, 1, 0},
		{"unknown source kind", func(c *AppConfig) { c.Source.Kind = "oracle" }, 0, 1},
		{"zero batch size", func(c *AppConfig) { c.BatchSize = 0 }, 1, 0},
		{"unknown strategy", func(c *AppConfig) { c.Strategy = "yolo" }, 1, 0},
		{"selection missing FROM", func(c *AppConfig) { c.SelectionQuery = "SELECT a, b" }, 1, 0},
		{"unbound county field", func(c *AppConfig) { c.CountyFieldName = "fips" }, 1, 0},
		{"template without key placeholder", func(c *AppConfig) {
			c.Strategy = "template"
			c.UpdateQueryTemplate = "UPDATE t SET a = 'x' WHERE b = 'y'"
		}, 0, 1},
		{"non-positive poll interval", func(c *AppConfig) { c.CheckAgainAfter = 0 }, 0, 1},
		{"metrics backend without address", func(c *AppConfig) { c.Metrics.Kind = "prometheus" }, 1, 0},
		{"unknown metrics backend", func(c *AppConfig) { c.Metrics.Kind = "statsd" }, 1, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)

			var errs, warns int
			for _, iss := range Validate(cfg) {
				switch iss.Severity {
				case SeverityError:
					errs++
				case SeverityWarning:
					warns++
				}
			}
			require.Equal(t, tc.wantErrs, errs, "errors: %v", Validate(cfg))
			require.Equal(t, tc.wantWarn, warns, "warnings: %v", Validate(cfg))
		})
	}
}
