package source

import (
	"database/sql"
	"fmt"
)

// Batch is one fixed-size window of fetched rows. Cells are raw text; an
// absent or NULL value collapses to the empty string, and the distinction is
// not preserved.
type Batch struct {
	cols  int
	cells [][]string // row-major
}

// NumRows returns the number of rows in the batch.
func (b *Batch) NumRows() int { return len(b.cells) }

// NumCols returns the number of columns per row.
func (b *Batch) NumCols() int { return b.cols }

// At returns the cell text at (column index, row index). Out-of-range
// indices collapse to the empty string, like NULLs.
func (b *Batch) At(col, row int) string {
	if row < 0 || row >= len(b.cells) || col < 0 || col >= b.cols {
		return ""
	}
	return b.cells[row][col]
}

// BatchReader wraps a streaming row cursor and exposes it as a lazy sequence
// of fixed-size batches. The sequence is forward-only; restarting means
// reissuing the selection statement.
type BatchReader struct {
	rows *sql.Rows
	size int
	cols int
	done bool
}

// NewBatchReader prepares a reader that yields batches of up to batchSize
// rows from the cursor.
func NewBatchReader(rows *sql.Rows, batchSize int) (*BatchReader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("result columns: %w", err)
	}
	return &BatchReader{rows: rows, size: batchSize, cols: len(cols)}, nil
}

// Next fetches the next batch. It returns (nil, nil) once the result set is
// exhausted; an empty result set yields zero batches, which callers treat as
// success with a zero count.
func (r *BatchReader) Next() (*Batch, error) {
	if r.done {
		return nil, nil
	}

	batch := &Batch{cols: r.cols}
	vals := make([]sql.NullString, r.cols)
	dest := make([]any, r.cols)
	for i := range vals {
		dest[i] = &vals[i]
	}

	for len(batch.cells) < r.size {
		if !r.rows.Next() {
			r.done = true
			if err := r.rows.Err(); err != nil {
				return nil, fmt.Errorf("fetch row: %w", err)
			}
			break
		}
		if err := r.rows.Scan(dest...); err != nil {
			r.done = true
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]string, r.cols)
		for i, v := range vals {
			if v.Valid {
				row[i] = v.String
			}
		}
		batch.cells = append(batch.cells, row)
	}

	if len(batch.cells) == 0 {
		return nil, nil
	}
	return batch, nil
}

// Close releases the underlying cursor.
func (r *BatchReader) Close() error { return r.rows.Close() }
