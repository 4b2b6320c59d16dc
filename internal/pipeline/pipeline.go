// Package pipeline sequences the remediation phases over one working
// directory: generate derives and persists job records, validate lints them
// offline, execute replays them against the data source. Continuous mode
// alternates generate and execute with a pollable wait in between.
//
// Phases are strictly sequential and each data-source connection lives for
// exactly one phase; nothing is held across the wait interval.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"batchfix/internal/config"
	"batchfix/internal/executor"
	"batchfix/internal/jobstore"
	"batchfix/internal/metrics"
	"batchfix/internal/source"
	"batchfix/internal/sqllint"
	"batchfix/internal/synth"
)

// defaultPoll is the trigger polling interval of the continuous-mode wait.
const defaultPoll = 100 * time.Millisecond

// ValidationSummary is the once-per-pass result of the validate phase.
type ValidationSummary struct {
	Total   int
	Valid   int
	Invalid int
}

// Pipeline runs phases against one store with one configuration. The zero
// value is not usable; populate Config, Store, and Log.
type Pipeline struct {
	Config config.AppConfig
	Store  *jobstore.Store
	Log    logrus.FieldLogger

	// Out receives the per-phase human summaries. Nil discards them.
	Out io.Writer

	// Trigger wakes a continuous run for an immediate next cycle. Nil means
	// no manual trigger.
	Trigger <-chan struct{}

	// Poll overrides the wait-loop polling interval. Zero means 100ms.
	Poll time.Duration
}

func (p *Pipeline) printf(format string, args ...any) {
	if p.Out != nil {
		fmt.Fprintf(p.Out, format+"\n", args...)
	}
}

// connect opens the configured data source with the configured connection
// timeout. The caller owns the returned handle for the current phase only.
func (p *Pipeline) connect(ctx context.Context) (*source.Conn, error) {
	return source.Open(ctx, source.Config{
		Kind:           p.Config.Source.Kind,
		DSN:            p.Config.Source.DSN,
		ConnectTimeout: time.Duration(p.Config.TimeoutSeconds) * time.Second,
	})
}

// synthParams maps the configuration onto synthesizer parameters, with the
// strategy forced by the caller (the repair subcommands override whatever
// the config says).
func (p *Pipeline) synthParams(strat synth.Strategy) synth.Params {
	return synth.Params{
		Strategy:       strat,
		SelectionQuery: p.Config.SelectionQuery,
		Template:       p.Config.UpdateQueryTemplate,
		KeyField:       p.Config.KeyFieldName,
		ZipField:       p.Config.ZipFieldName,
		CountyField:    p.Config.CountyFieldName,
		BatchSize:      p.Config.BatchSize,
	}
}

// Generate runs the synthesizer over the configured selection and writes one
// Pending job file per produced statement.
func (p *Pipeline) Generate(ctx context.Context) (synth.Stats, error) {
	strat, err := synth.ParseStrategy(p.Config.Strategy)
	if err != nil {
		return synth.Stats{}, err
	}
	return p.generate(ctx, strat)
}

func (p *Pipeline) generate(ctx context.Context, strat synth.Strategy) (stats synth.Stats, err error) {
	start := time.Now()
	defer func() { metrics.RecordPhase("generate", err, time.Since(start)) }()

	p.printf("Starting query generation phase")
	p.Log.WithField("strategy", string(strat)).Info("starting query generation phase")

	proc := jobstore.LoadProcessed(p.Config.DataPath)

	conn, err := p.connect(ctx)
	if err != nil {
		return synth.Stats{}, err
	}
	defer conn.Close()

	syn, err := synth.New(p.synthParams(strat), p.Log)
	if err != nil {
		return synth.Stats{}, err
	}

	stats, err = syn.Run(ctx, conn, p.Store)
	if err != nil {
		return stats, err
	}
	metrics.RecordJobs("generate", "scanned", int64(stats.Scanned))
	metrics.RecordJobs("generate", "generated", int64(stats.Generated))
	metrics.RecordJobs("generate", "skipped", int64(stats.Skipped))

	p.recordProcessed(proc, jobstore.StatusPending, "generated")
	if err := proc.Save(p.Config.DataPath); err != nil {
		p.Log.WithError(err).Warn("processed-records log not saved")
	}

	p.printf("Generated %d queries (%d rows scanned, %d skipped)",
		stats.Generated, stats.Scanned, stats.Skipped)
	return stats, nil
}

// Validate lints every stored statement offline. Job files are never
// mutated; invalid statements are logged, not printed.
func (p *Pipeline) Validate() (vsum ValidationSummary, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordPhase("validate", err, time.Since(start))
		metrics.RecordJobs("validate", "valid", int64(vsum.Valid))
		metrics.RecordJobs("validate", "invalid", int64(vsum.Invalid))
	}()

	p.printf("Starting query test phase")
	p.Log.Info("starting query test phase")

	paths, err := p.Store.List()
	if err != nil {
		return ValidationSummary{}, err
	}

	var sum ValidationSummary
	for _, path := range paths {
		sum.Total++
		job, err := jobstore.LoadFile(path)
		if err != nil {
			p.Log.WithError(err).WithField("file", path).Warn("unreadable job file")
			sum.Invalid++
			continue
		}
		if err := sqllint.Check(job.Query); err != nil {
			p.Log.WithError(err).WithField("key", job.Key).Warn("statement failed validation")
			sum.Invalid++
			continue
		}
		sum.Valid++
	}

	p.printf("Tested %d queries (%d valid, %d invalid)", sum.Total, sum.Valid, sum.Invalid)
	return sum, nil
}

// Test runs Generate then Validate in one invocation. This is the default
// command: it exercises the whole derivation path without touching a single
// row.
func (p *Pipeline) Test(ctx context.Context) (synth.Stats, ValidationSummary, error) {
	stats, err := p.Generate(ctx)
	if err != nil {
		return stats, ValidationSummary{}, err
	}
	vsum, err := p.Validate()
	return stats, vsum, err
}

// Execute replays every stored job against the data source and rewrites each
// touched job file with its terminal state.
func (p *Pipeline) Execute(ctx context.Context) (sum executor.Summary, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordPhase("execute", err, time.Since(start))
		metrics.RecordJobs("execute", "succeeded", int64(sum.Succeeded))
		metrics.RecordJobs("execute", "failed", int64(sum.Failed))
	}()

	p.printf("Starting query execution phase")
	p.Log.Info("starting query execution phase")

	proc := jobstore.LoadProcessed(p.Config.DataPath)

	conn, err := p.connect(ctx)
	if err != nil {
		return executor.Summary{}, err
	}
	defer conn.Close()

	e := &executor.Executor{NoRowsIsFailure: p.Config.NoRowsIsFailure, Log: p.Log}
	sum, err = e.Run(ctx, conn, p.Store)
	if err != nil {
		return sum, err
	}

	p.recordProcessed(proc, jobstore.StatusCompleted, "updated")
	p.recordProcessed(proc, jobstore.StatusFailed, "failed")
	if err := proc.Save(p.Config.DataPath); err != nil {
		p.Log.WithError(err).Warn("processed-records log not saved")
	}

	p.printf("Executed %d queries (%d successful, %d failed)",
		sum.Succeeded+sum.Failed, sum.Succeeded, sum.Failed)
	return sum, nil
}

// Repair generates lookup-repair statements with the given strategy and,
// when any were produced, executes them in the same invocation. A non-nil
// confirm hook is consulted between the two steps; declining leaves the
// generated jobs Pending for a later execute pass.
func (p *Pipeline) Repair(ctx context.Context, strat synth.Strategy, confirm func() bool) error {
	stats, err := p.generate(ctx, strat)
	if err != nil {
		return err
	}
	if stats.Generated == 0 {
		p.printf("No county code updates needed")
		return nil
	}
	p.printf("Found %d records with mismatched county codes", stats.Generated)

	if confirm != nil && !confirm() {
		p.printf("Update queries generated but not executed; run the execute command to apply them")
		p.Log.Info("repair statements generated but not executed")
		return nil
	}
	_, err = p.Execute(ctx)
	return err
}

// Continuous loops generate then execute until ctx is cancelled. Between
// cycles it waits check_again_after seconds, polling the trigger channel in
// short intervals; a trigger starts the next cycle immediately. Phase errors
// abort the loop, matching single-shot behavior.
func (p *Pipeline) Continuous(ctx context.Context) error {
	for {
		if _, err := p.Generate(ctx); err != nil {
			return err
		}
		if _, err := p.Execute(ctx); err != nil {
			return err
		}

		next := time.Now().Add(time.Duration(p.Config.CheckAgainAfter) * time.Second)
		p.printf("Batch processing complete, checking again at: %s",
			next.Format("2006-01-02 15:04:05"))

		if err := p.wait(ctx); err != nil {
			return err
		}
	}
}

// wait blocks for the configured interval, accumulating elapsed poll slices
// so a manual trigger is noticed within one polling interval.
func (p *Pipeline) wait(ctx context.Context) error {
	poll := p.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	total := time.Duration(p.Config.CheckAgainAfter) * time.Second

	var elapsed time.Duration
	for elapsed < total {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.Trigger:
			p.printf("Manual check triggered")
			p.Log.Info("manual check triggered")
			return nil
		case <-time.After(poll):
			elapsed += poll
		}
	}
	return nil
}

// recordProcessed notes every stored job currently in the given status. The
// log is advisory; unreadable files are simply skipped here because the
// phase that owns them already reported the problem.
func (p *Pipeline) recordProcessed(proc *jobstore.ProcessedLog, status jobstore.Status, action string) {
	paths, err := p.Store.List()
	if err != nil {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, path := range paths {
		job, err := jobstore.LoadFile(path)
		if err != nil || job.Status != status {
			continue
		}
		proc.Add(job.Key, now, action)
	}
}
