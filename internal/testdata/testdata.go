// Package testdata seeds the data source with disposable rows so a repair
// run has something to find, and clears them again afterwards. Seeded rows
// are recognizable by their key prefix and nothing else is ever touched.
package testdata

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"batchfix/internal/refdata"
	"batchfix/internal/source"
	"batchfix/internal/synth"
)

// KeyPrefix marks every seeded row. Clean deletes by this prefix only.
const KeyPrefix = "testkey_"

// Params describes one seeding run.
type Params struct {
	// Table is the target table name, typically derived from the
	// configured selection statement.
	Table string

	KeyField    string
	ZipField    string
	CountyField string

	// Strategy picks which canonical code lands in the county column:
	// the 3-digit FIPS code for StrategyFIPS, the 2-digit county code
	// otherwise.
	Strategy synth.Strategy

	Count int

	// Refdata overrides the packaged reference table. Nil loads it.
	Refdata refdata.Table

	// Rand lets tests pin the sequence. Nil seeds from the clock.
	Rand *rand.Rand
}

// Setup inserts p.Count rows keyed testkey_1..testkey_N, each with a random
// zip+4 drawn from the reference table. Roughly a quarter of the rows get a
// deliberately wrong county code so a subsequent repair run produces jobs.
// Per-row insert failures are logged and skipped; the returned count is the
// number of rows actually inserted.
func Setup(ctx context.Context, conn *source.Conn, p Params, log logrus.FieldLogger) (int, error) {
	if p.Count <= 0 {
		return 0, fmt.Errorf("row count must be positive, got %d", p.Count)
	}

	ref := p.Refdata
	if ref == nil {
		ref = refdata.Load()
	}
	if len(ref) == 0 {
		return 0, fmt.Errorf("reference table is empty")
	}

	// Sorted key order keeps a pinned Rand deterministic across runs.
	zips := make([]string, 0, len(ref))
	for zip := range ref {
		zips = append(zips, zip)
	}
	sort.Strings(zips)

	rng := p.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	inserted := 0
	for i := 1; i <= p.Count; i++ {
		zip := zips[rng.Intn(len(zips))]
		entry := ref[zip]

		code := entry.CountyCode
		if p.Strategy == synth.StrategyFIPS {
			code = entry.FIPSCode
		}
		// A wrong code now is a repair job later.
		if rng.Intn(4) == 0 {
			code = "00"
		}

		key := fmt.Sprintf("%s%d", KeyPrefix, i)
		cond := "t"
		if rng.Intn(5) == 0 {
			cond = "f"
		}
		stmt := fmt.Sprintf(
			"INSERT INTO %s (%s, field1, field2, condition, %s, %s) VALUES ('%s', 'value_%d', 'data_%d', '%s', '%s', '%s-%04d')",
			p.Table, p.KeyField, p.CountyField, p.ZipField,
			key, 1000+rng.Intn(9000), 100+rng.Intn(900), cond, code, zip, rng.Intn(10000),
		)

		if _, err := conn.Exec(ctx, stmt); err != nil {
			log.WithError(err).WithField("key", key).Error("insert failed, continuing")
			continue
		}
		inserted++
	}

	log.WithField("count", inserted).Info("test rows inserted")
	return inserted, nil
}

// Clean deletes every row whose key carries the seeding prefix. The returned
// count is whatever the driver reports for the delete.
func Clean(ctx context.Context, conn *source.Conn, table, keyField string) (int64, error) {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s LIKE '%s%%'", table, keyField, KeyPrefix)
	return conn.Exec(ctx, stmt)
}
