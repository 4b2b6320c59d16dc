package pipeline

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"batchfix/internal/config"
	"batchfix/internal/jobstore"
	"batchfix/internal/source"
	_ "batchfix/internal/source/sqlite"
	"batchfix/internal/synth"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newPipeline wires a pipeline to a file-backed throwaway database so that
// the per-phase connections all see the same data.
func newPipeline(t *testing.T, seed ...string) *Pipeline {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Source = config.SourceConfig{Kind: "sqlite", DSN: filepath.Join(dir, "data.db")}
	cfg.SelectionQuery = "SELECT policy_id, zip_code, county FROM member_address WHERE active = 't'"
	cfg.Strategy = "county"
	cfg.KeyFieldName = "policy_id"
	cfg.BatchSize = 2
	cfg.DataPath = filepath.Join(dir, "processed_records.json")

	conn, err := source.Open(context.Background(), source.Config{Kind: cfg.Source.Kind, DSN: cfg.Source.DSN})
	require.NoError(t, err)
	for _, stmt := range seed {
		_, err := conn.Exec(context.Background(), stmt)
		require.NoError(t, err)
	}
	require.NoError(t, conn.Close())

	store, err := jobstore.Open(filepath.Join(dir, "results"), false)
	require.NoError(t, err)

	return &Pipeline{Config: cfg, Store: store, Log: quietLogger()}
}

func querySingle(t *testing.T, p *Pipeline, stmt string) string {
	t.Helper()
	conn, err := source.Open(context.Background(), source.Config{Kind: p.Config.Source.Kind, DSN: p.Config.Source.DSN})
	require.NoError(t, err)
	defer conn.Close()
	rows, err := conn.Query(context.Background(), stmt)
	require.NoError(t, err)
	r, err := source.NewBatchReader(rows, 1)
	require.NoError(t, err)
	defer r.Close()
	b, err := r.Next()
	require.NoError(t, err)
	require.NotNil(t, b)
	return b.At(0, 0)
}

const createMemberAddress = `CREATE TABLE member_address (
	policy_id TEXT, zip_code TEXT, county TEXT, active TEXT
)`

/*
TestGenerateThenExecute drives both phases end to end against a seeded
database: one row with a wrong 2-digit county code (99403 belongs to county
02), one already canonical. One job is generated, executing it repairs the
row, and a second execute pass skips the now-Completed job.
*/
func TestGenerateThenExecute(t *testing.T) {
	p := newPipeline(t,
		createMemberAddress,
		`INSERT INTO member_address VALUES ('p1', '99403-1234', '00', 't')`,
		`INSERT INTO member_address VALUES ('p2', '99403-0000', '02', 't')`,
	)

	stats, err := p.Generate(context.Background())
	require.NoError(t, err)
	require.Equal(t, synth.Stats{Scanned: 2, Generated: 1, Skipped: 1}, stats)

	job, err := p.Store.Load("p1")
	require.NoError(t, err)
	require.Equal(t, jobstore.StatusPending, job.Status)
	require.Equal(t, "UPDATE MEMBER_ADDRESS SET county = '02' WHERE policy_id = 'p1'", job.Query)

	sum, err := p.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sum.Succeeded)
	require.Equal(t, "02", querySingle(t, p, "SELECT county FROM member_address WHERE policy_id = 'p1'"))

	sum, err = p.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sum.SkippedCompleted)

	// The processed log recorded the generated key, then its update.
	proc := jobstore.LoadProcessed(p.Config.DataPath)
	require.True(t, proc.Seen("p1"))
	action, err := proc.Action("p1")
	require.NoError(t, err)
	require.Equal(t, "generated", action)
}

/*
TestTest_GeneratesAndValidatesWithoutExecuting checks the default command:
jobs are derived and linted but never submitted, so the data and job statuses
are untouched.
*/
func TestTest_GeneratesAndValidatesWithoutExecuting(t *testing.T) {
	p := newPipeline(t,
		createMemberAddress,
		`INSERT INTO member_address VALUES ('p1', '99403-1234', '00', 't')`,
	)

	stats, vsum, err := p.Test(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Generated)
	require.Equal(t, ValidationSummary{Total: 1, Valid: 1}, vsum)

	job, err := p.Store.Load("p1")
	require.NoError(t, err)
	require.Equal(t, jobstore.StatusPending, job.Status)
	require.Equal(t, "00", querySingle(t, p, "SELECT county FROM member_address WHERE policy_id = 'p1'"))
}

// TestValidate_FlagsBrokenStatements plants a malformed statement directly
// in the store and checks it is counted without being mutated.
func TestValidate_FlagsBrokenStatements(t *testing.T) {
	p := newPipeline(t, createMemberAddress)
	require.NoError(t, p.Store.Save(jobstore.Job{
		Key: "ok", Query: "UPDATE t SET a='x' WHERE k='1'", Status: jobstore.StatusPending,
	}))
	require.NoError(t, p.Store.Save(jobstore.Job{
		Key: "broken", Query: "UPDATE t SET a='x", Status: jobstore.StatusPending,
	}))

	vsum, err := p.Validate()
	require.NoError(t, err)
	require.Equal(t, ValidationSummary{Total: 2, Valid: 1, Invalid: 1}, vsum)

	job, err := p.Store.Load("broken")
	require.NoError(t, err)
	require.Equal(t, jobstore.StatusPending, job.Status)
}

// TestRepair_NoMismatches verifies the repair path stops after generation
// when every row is already canonical.
func TestRepair_NoMismatches(t *testing.T) {
	p := newPipeline(t,
		createMemberAddress,
		`INSERT INTO member_address VALUES ('p1', '99403-0000', '003', 't')`,
	)

	require.NoError(t, p.Repair(context.Background(), synth.StrategyFIPS, nil))
	paths, err := p.Store.List()
	require.NoError(t, err)
	require.Empty(t, paths)
}

// TestRepair_FixesMismatches runs the FIPS variant end to end.
func TestRepair_FixesMismatches(t *testing.T) {
	p := newPipeline(t,
		createMemberAddress,
		`INSERT INTO member_address VALUES ('p1', '99403-0000', '000', 't')`,
	)

	require.NoError(t, p.Repair(context.Background(), synth.StrategyFIPS, nil))
	require.Equal(t, "003", querySingle(t, p, "SELECT county FROM member_address WHERE policy_id = 'p1'"))

	job, err := p.Store.Load("p1")
	require.NoError(t, err)
	require.Equal(t, jobstore.StatusCompleted, job.Status)
}

// TestRepair_DeclinedConfirmLeavesJobsPending covers the interactive variant:
// a declined confirmation keeps the statements on disk for a later execute.
func TestRepair_DeclinedConfirmLeavesJobsPending(t *testing.T) {
	p := newPipeline(t,
		createMemberAddress,
		`INSERT INTO member_address VALUES ('p1', '99403-0000', '00', 't')`,
	)

	declined := false
	confirm := func() bool {
		declined = true
		return false
	}
	require.NoError(t, p.Repair(context.Background(), synth.StrategyCounty, confirm))
	require.True(t, declined)

	require.Equal(t, "00", querySingle(t, p, "SELECT county FROM member_address WHERE policy_id = 'p1'"))
	job, err := p.Store.Load("p1")
	require.NoError(t, err)
	require.Equal(t, jobstore.StatusPending, job.Status)

	sum, err := p.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sum.Succeeded)
	require.Equal(t, "02", querySingle(t, p, "SELECT county FROM member_address WHERE policy_id = 'p1'"))
}

/*
TestContinuous_TriggerAndCancel starts continuous mode with a long wait
interval, then proves the wait loop is responsive: a blocking send on the
trigger channel is only possible while the loop is polling, and cancelling
the context afterwards ends the run.
*/
func TestContinuous_TriggerAndCancel(t *testing.T) {
	p := newPipeline(t,
		createMemberAddress,
		`INSERT INTO member_address VALUES ('p1', '99403-1234', '00', 't')`,
	)
	p.Config.CheckAgainAfter = 3600
	p.Poll = 5 * time.Millisecond

	trigger := make(chan struct{})
	p.Trigger = trigger

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Continuous(ctx) }()

	// Accepted only once the first cycle finished and the wait loop is
	// selecting on the channel.
	select {
	case trigger <- struct{}{}:
	case <-time.After(10 * time.Second):
		t.Fatal("continuous mode never reached its wait loop")
	}

	// The triggered second cycle brings us back to another wait; cancel it.
	select {
	case trigger <- struct{}{}:
	case <-time.After(10 * time.Second):
		t.Fatal("manual trigger did not start another cycle")
	}
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("continuous mode did not stop on cancellation")
	}

	// The first cycle repaired the row.
	require.Equal(t, "02", querySingle(t, p, "SELECT county FROM member_address WHERE policy_id = 'p1'"))
}

// TestGenerate_BadStrategyConfig surfaces configuration errors before any
// data-source work.
func TestGenerate_BadStrategyConfig(t *testing.T) {
	p := newPipeline(t, createMemberAddress)
	p.Config.Strategy = "bogus"
	_, err := p.Generate(context.Background())
	require.Error(t, err)
}
