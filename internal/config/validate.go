// This file adds a lightweight linter/validator for AppConfig values. It
// performs static checks over a loaded configuration and returns a list of
// issues (errors and warnings) that the CLI surfaces before any phase runs.
package config

import (
	"fmt"
	"strings"

	"batchfix/internal/sqlparse"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that is surfaced to
	// users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "source.kind", "batch_size").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error where needed.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// knownStrategies lists the query-synthesis strategies with implementations.
var knownStrategies = map[string]struct{}{
	"template": {},
	"fips":     {},
	"county":   {},
}

// knownSourceKinds lists the data-source backends compiled into the binary.
var knownSourceKinds = map[string]struct{}{
	"mysql":    {},
	"mssql":    {},
	"postgres": {},
	"sqlite":   {},
}

// Validate performs static validation of an AppConfig. It does not mutate
// the config; callers decide whether warnings are fatal.
func Validate(c AppConfig) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Source.Kind) == "" {
		issues = append(issues, Issue{SeverityError, "source.kind", "source.kind must not be empty"})
	} else if _, ok := knownSourceKinds[c.Source.Kind]; !ok {
		issues = append(issues, Issue{
			SeverityWarning, "source.kind",
			fmt.Sprintf("unknown source kind %q; ensure a matching backend is registered", c.Source.Kind),
		})
	}
	if strings.TrimSpace(c.Source.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "source.dsn", "source.dsn must not be empty"})
	}

	issues = append(issues, validateSelection(c)...)

	if _, ok := knownStrategies[c.Strategy]; !ok {
		issues = append(issues, Issue{
			SeverityError, "strategy",
			fmt.Sprintf("unknown strategy %q (want template, fips, or county)", c.Strategy),
		})
	}

	if c.Strategy == "template" && !strings.Contains(c.UpdateQueryTemplate, "{{key}}") {
		issues = append(issues, Issue{
			SeverityWarning, "update_query_template",
			"template has no {{key}} placeholder; every generated statement will be identical",
		})
	}

	if c.BatchSize <= 0 {
		issues = append(issues, Issue{
			SeverityError, "batch_size",
			fmt.Sprintf("batch_size=%d; must be positive", c.BatchSize),
		})
	}
	if c.CheckAgainAfter <= 0 {
		issues = append(issues, Issue{
			SeverityWarning, "check_again_after",
			fmt.Sprintf("check_again_after=%d; continuous mode will spin without waiting", c.CheckAgainAfter),
		})
	}
	if strings.TrimSpace(c.DataPath) == "" {
		issues = append(issues, Issue{SeverityWarning, "data_path", "no processed-records path; runs will not track handled keys"})
	}

	switch c.Metrics.Kind {
	case "", "prometheus", "datadog":
		if c.Metrics.Kind != "" && strings.TrimSpace(c.Metrics.Addr) == "" {
			issues = append(issues, Issue{
				SeverityError, "metrics.addr",
				fmt.Sprintf("metrics.addr must be set for the %q backend", c.Metrics.Kind),
			})
		}
	default:
		issues = append(issues, Issue{
			SeverityError, "metrics.kind",
			fmt.Sprintf("unknown metrics kind %q (want prometheus or datadog)", c.Metrics.Kind),
		})
	}

	return issues
}

// validateSelection checks the selection statement and, for the lookup
// strategies, that each bound field name resolves to a column.
func validateSelection(c AppConfig) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.SelectionQuery) == "" {
		issues = append(issues, Issue{SeverityError, "selection_query", "selection_query must not be empty"})
		return issues
	}
	if _, err := sqlparse.Columns(c.SelectionQuery); err != nil {
		issues = append(issues, Issue{SeverityError, "selection_query", err.Error()})
		return issues
	}

	if c.Strategy != "fips" && c.Strategy != "county" {
		return issues
	}
	for _, b := range []struct {
		path, name string
	}{
		{"key_field_name", c.KeyFieldName},
		{"zip_field_name", c.ZipFieldName},
		{"county_field_name", c.CountyFieldName},
	} {
		if strings.TrimSpace(b.name) == "" {
			issues = append(issues, Issue{SeverityError, b.path, b.path + " must not be empty for lookup strategies"})
			continue
		}
		if _, err := sqlparse.ColumnIndex(c.SelectionQuery, b.name); err != nil {
			issues = append(issues, Issue{SeverityError, b.path, err.Error()})
		}
	}
	return issues
}
