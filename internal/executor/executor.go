// Package executor replays stored job statements against the data source,
// classifies each outcome, and rewrites every touched job file in place with
// its terminal status, result text, and timestamp. Failures are duplicated
// into the run's shared error log.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"batchfix/internal/jobstore"
	"batchfix/internal/source"
)

// Summary is the once-per-pass result of an execute run.
type Summary struct {
	// Total counts job files visited, including unreadable ones.
	Total int
	// Succeeded counts jobs classified Completed this pass.
	Succeeded int
	// Failed counts driver rejections plus unreadable job files.
	Failed int
	// SkippedCompleted counts jobs that were already Completed and were not
	// re-submitted.
	SkippedCompleted int
}

// Executor runs one execute pass over a working directory.
type Executor struct {
	// NoRowsIsFailure classifies a statement that ran without a driver error
	// but affected zero rows as Failed instead of Completed.
	NoRowsIsFailure bool

	Log logrus.FieldLogger
}

// Run visits every job file in the store. Per-job failures are contained:
// the pass always continues to the next job, and only store-level errors
// (unreadable directory, unwritable error log) propagate.
//
// Idempotence: a job already Completed is skipped with no state change and
// no data-source call. Failed and Pending jobs are (re-)submitted.
func (e *Executor) Run(ctx context.Context, conn *source.Conn, store *jobstore.Store) (Summary, error) {
	paths, err := store.List()
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, path := range paths {
		sum.Total++

		job, err := jobstore.LoadFile(path)
		if err != nil {
			// The file could not be loaded, so it is not rewritten either;
			// no silent data loss via overwrite.
			e.Log.WithError(err).WithField("file", path).Error("unreadable job file")
			sum.Failed++
			continue
		}

		if job.Status == jobstore.StatusCompleted {
			e.Log.WithField("key", job.Key).Debug("skipping already completed job")
			sum.SkippedCompleted++
			continue
		}

		now := time.Now().UTC().Format(time.RFC3339)
		affected, execErr := conn.Exec(ctx, job.Query)

		switch {
		case execErr != nil:
			job.Status = jobstore.StatusFailed
			msg := fmt.Sprintf("error: %v", execErr)
			job.Result = &msg
			sum.Failed++

			if err := store.AppendError(jobstore.ErrorRecord{
				Key:       job.Key,
				File:      filepath.Base(path),
				Error:     execErr.Error(),
				Timestamp: now,
			}); err != nil {
				return sum, err
			}
			e.Log.WithError(execErr).WithField("key", job.Key).Error("statement rejected by data source")

		case affected == 0 && e.NoRowsIsFailure:
			job.Status = jobstore.StatusFailed
			msg := "error: no rows affected"
			job.Result = &msg
			sum.Failed++

			if err := store.AppendError(jobstore.ErrorRecord{
				Key:       job.Key,
				File:      filepath.Base(path),
				Error:     "no rows affected",
				Timestamp: now,
			}); err != nil {
				return sum, err
			}
			e.Log.WithField("key", job.Key).Error("statement affected no rows")

		case affected == 0:
			job.Status = jobstore.StatusCompleted
			msg := "success - no rows affected"
			job.Result = &msg
			sum.Succeeded++
			e.Log.WithField("key", job.Key).Info("statement completed, no rows affected")

		default:
			job.Status = jobstore.StatusCompleted
			msg := fmt.Sprintf("success - %d row(s) affected", affected)
			if affected == source.RowsUnknown {
				msg = "success - operation completed"
			}
			job.Result = &msg
			sum.Succeeded++
			e.Log.WithField("key", job.Key).Info("statement completed")
		}

		job.Timestamp = &now
		if err := store.Save(job); err != nil {
			return sum, err
		}
	}

	return sum, nil
}
