// Package synth turns fetched rows into job records. One synthesizer covers
// the three statement-derivation strategies:
//
//   - template: placeholder substitution of a configured statement skeleton,
//   - fips: repair the county field against the 3-digit county FIPS code,
//   - county: repair the county field against the 2-digit county code.
//
// The two lookup strategies share all of their logic except which canonical
// value they compare and write; they skip rows whose postal code is missing
// or unmapped, and rows already carrying the canonical value.
package synth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"batchfix/internal/jobstore"
	"batchfix/internal/refdata"
	"batchfix/internal/source"
	"batchfix/internal/sqlparse"
)

// Strategy selects how a row becomes a statement.
type Strategy string

const (
	// StrategyTemplate renders the configured update template per row.
	StrategyTemplate Strategy = "template"
	// StrategyFIPS repairs the county field to the 3-digit FIPS code.
	StrategyFIPS Strategy = "fips"
	// StrategyCounty repairs the county field to the 2-digit county code.
	StrategyCounty Strategy = "county"
)

// ParseStrategy maps a configuration string onto a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyTemplate, StrategyFIPS, StrategyCounty:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown strategy %q (want template, fips, or county)", s)
}

// Params configures a Synthesizer.
type Params struct {
	Strategy       Strategy
	SelectionQuery string

	// Template is the update-statement skeleton for StrategyTemplate.
	Template string

	// Field bindings for the lookup strategies; resolved against the
	// selection statement's column list.
	KeyField    string
	ZipField    string
	CountyField string

	// BatchSize is the fixed row-batch size for cursor consumption.
	BatchSize int

	// Table is the ZIP→county reference table. Nil means the built-in table.
	Table refdata.Table
}

// Stats summarizes one generation pass.
type Stats struct {
	// Scanned counts rows fetched from the selection result.
	Scanned int
	// Generated counts job records written.
	Generated int
	// Skipped counts rows excluded by the skip rules (missing or unmapped
	// postal code, value already canonical, unusable key).
	Skipped int
}

// Synthesizer derives one job record per qualifying row. Column positions
// and the target table name are resolved once, at construction, so that a
// malformed selection statement surfaces before any row processing begins.
type Synthesizer struct {
	p   Params
	log logrus.FieldLogger

	keyIdx    int
	zipIdx    int
	countyIdx int
	table     string
}

// New resolves the strategy's column bindings against the selection
// statement. Resolution failures are configuration errors; nothing has
// touched the data source yet.
func New(p Params, log logrus.FieldLogger) (*Synthesizer, error) {
	if p.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", p.BatchSize)
	}
	if p.Table == nil {
		p.Table = refdata.Load()
	}
	s := &Synthesizer{p: p, log: log}

	switch p.Strategy {
	case StrategyTemplate:
		// First column is the key; remaining columns bind positionally.
		if _, err := sqlparse.Columns(p.SelectionQuery); err != nil {
			return nil, err
		}
	case StrategyFIPS, StrategyCounty:
		var err error
		if s.keyIdx, err = sqlparse.ColumnIndex(p.SelectionQuery, p.KeyField); err != nil {
			return nil, err
		}
		if s.zipIdx, err = sqlparse.ColumnIndex(p.SelectionQuery, p.ZipField); err != nil {
			return nil, err
		}
		if s.countyIdx, err = sqlparse.ColumnIndex(p.SelectionQuery, p.CountyField); err != nil {
			return nil, err
		}
		s.table = sqlparse.TableName(p.SelectionQuery)
	default:
		return nil, fmt.Errorf("unknown strategy %q", p.Strategy)
	}
	return s, nil
}

// Run streams the selection result and writes one Pending job file per
// produced statement. Per-row skips never abort the pass; only cursor and
// store I/O errors propagate.
func (s *Synthesizer) Run(ctx context.Context, conn *source.Conn, store *jobstore.Store) (Stats, error) {
	var stats Stats

	rows, err := conn.Query(ctx, s.p.SelectionQuery)
	if err != nil {
		return stats, err
	}
	reader, err := source.NewBatchReader(rows, s.p.BatchSize)
	if err != nil {
		_ = rows.Close()
		return stats, err
	}
	defer reader.Close()

	for {
		batch, err := reader.Next()
		if err != nil {
			return stats, err
		}
		if batch == nil {
			break
		}
		for row := 0; row < batch.NumRows(); row++ {
			stats.Scanned++

			job, ok := s.synthesize(batch, row)
			if !ok {
				stats.Skipped++
				continue
			}
			if err := store.Save(job); err != nil {
				if errors.Is(err, jobstore.ErrBadKey) {
					s.log.WithField("key", job.Key).Warn("skipping row: key not usable as file name")
					stats.Skipped++
					continue
				}
				return stats, err
			}
			stats.Generated++
		}
	}
	return stats, nil
}

// synthesize derives the job for one row, or reports that the row is
// skipped.
func (s *Synthesizer) synthesize(batch *source.Batch, row int) (jobstore.Job, bool) {
	if s.p.Strategy == StrategyTemplate {
		return s.fromTemplate(batch, row)
	}
	return s.fromLookup(batch, row)
}

// fromTemplate binds the first column to {{key}} and the remaining columns
// to {{field1}}, {{field2}}, ... in column order, then renders the template.
func (s *Synthesizer) fromTemplate(batch *source.Batch, row int) (jobstore.Job, bool) {
	key := batch.At(0, row)

	values := map[string]string{"key": key}
	for col := 1; col < batch.NumCols(); col++ {
		values["field"+strconv.Itoa(col)] = batch.At(col, row)
	}

	return jobstore.Job{
		Key:    key,
		Query:  RenderTemplate(s.p.Template, values),
		Status: jobstore.StatusPending,
	}, true
}

// fromLookup applies the mismatch-detection filter: rows with a missing or
// unmapped postal code are skipped, as are rows whose current value already
// matches the canonical one.
func (s *Synthesizer) fromLookup(batch *source.Batch, row int) (jobstore.Job, bool) {
	key := batch.At(s.keyIdx, row)
	zip := batch.At(s.zipIdx, row)
	current := batch.At(s.countyIdx, row)

	if zip == "" {
		s.log.WithField("key", key).Debug("skipping row: empty postal code")
		return jobstore.Job{}, false
	}

	zip5 := refdata.NormalizeZip(zip)
	entry, ok := s.p.Table.Lookup(zip5)
	if !ok {
		s.log.WithFields(logrus.Fields{"key": key, "zip": zip5}).
			Warn("skipping row: postal code not in reference table")
		return jobstore.Job{}, false
	}

	canonical := entry.CountyCode
	if s.p.Strategy == StrategyFIPS {
		canonical = entry.FIPSCode
	}
	if current == canonical {
		return jobstore.Job{}, false
	}

	s.log.WithFields(logrus.Fields{
		"key": key, "zip": zip5, "from": current, "to": canonical,
	}).Info("generated repair statement")

	return jobstore.Job{
		Key: key,
		Query: fmt.Sprintf("UPDATE %s SET %s = '%s' WHERE %s = '%s'",
			s.table, s.p.CountyField, canonical, s.p.KeyField, key),
		Status: jobstore.StatusPending,
	}, true
}

// RenderTemplate replaces every {{name}} occurrence with its mapped value,
// literally and unconditionally. Unmatched placeholders stay verbatim in the
// output; no escaping or quoting is applied, so templates must pre-quote
// literals.
func RenderTemplate(template string, values map[string]string) string {
	out := template
	for name, value := range values {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}
