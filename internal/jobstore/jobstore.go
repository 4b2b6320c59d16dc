// Package jobstore persists jobs as one JSON file per source-row key inside a
// run's working directory, plus a shared append-only error log (errors.json)
// and a processed-records log.
//
// A job is created once as Pending during generation and rewritten in place
// exactly once more when the execute phase classifies it. Jobs are never
// deleted by the pipeline; housekeeping is external.
package jobstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Status is the lifecycle state of a job.
type Status string

const (
	// StatusPending marks a freshly generated, not yet executed job.
	StatusPending Status = "Pending"
	// StatusCompleted marks a job whose statement executed without a driver
	// error. Completed jobs are skipped on re-runs.
	StatusCompleted Status = "Completed"
	// StatusFailed marks a job rejected by the data source. Failed jobs stay
	// eligible for a future execute pass.
	StatusFailed Status = "Failed"
)

// Job is one persisted unit of work: a single corrective SQL statement tied
// to one source row's key. Result and Timestamp stay null until an execute
// pass touches the record.
type Job struct {
	Key       string  `json:"key"`
	Query     string  `json:"query"`
	Status    Status  `json:"status"`
	Result    *string `json:"result"`
	Timestamp *string `json:"timestamp"`
}

// ErrorRecord is one entry in the shared error log.
type ErrorRecord struct {
	Key       string `json:"key"`
	File      string `json:"file"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// errorLogName is the shared error log file, excluded from job enumeration.
const errorLogName = "errors.json"

// ErrBadKey is returned when a job key cannot be used as a file name.
var ErrBadKey = errors.New("job key is not usable as a file name")

// ValidateKey rejects keys that are empty or would escape the working
// directory when used verbatim as a file name.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty key", ErrBadKey)
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return nil
}

// Store manages the job files of one run's working directory.
type Store struct {
	dir string
}

// Open prepares dir as a working directory, creating it if needed. With
// clean set, any existing contents are removed first.
func Open(dir string, clean bool) (*Store, error) {
	if clean {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("clean working directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the working directory path.
func (s *Store) Dir() string { return s.dir }

// ErrorLogPath returns the path of the shared error log.
func (s *Store) ErrorLogPath() string { return filepath.Join(s.dir, errorLogName) }

// jobPath maps a key to its job file path.
func (s *Store) jobPath(key string) string { return filepath.Join(s.dir, key+".json") }

// Save writes the job as pretty-printed JSON under "<key>.json". A second
// save with the same key overwrites the first.
func (s *Store) Save(j Job) error {
	if err := ValidateKey(j.Key); err != nil {
		return err
	}
	b, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal job %q: %w", j.Key, err)
	}
	if err := os.WriteFile(s.jobPath(j.Key), b, 0o644); err != nil {
		return fmt.Errorf("write job %q: %w", j.Key, err)
	}
	return nil
}

// Load reads a job record by key.
func (s *Store) Load(key string) (Job, error) {
	if err := ValidateKey(key); err != nil {
		return Job{}, err
	}
	return LoadFile(s.jobPath(key))
}

// LoadFile reads a job record from an explicit path.
func LoadFile(path string) (Job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("read job file %s: %w", path, err)
	}
	var j Job
	if err := json.Unmarshal(b, &j); err != nil {
		return Job{}, fmt.Errorf("parse job file %s: %w", path, err)
	}
	return j, nil
}

// List enumerates the job file paths of the working directory, sorted by
// file name, excluding the shared error log. Non-JSON files are ignored.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read working directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == errorLogName || !strings.HasSuffix(name, ".json") {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, name))
	}
	return paths, nil
}

// AppendError appends rec to the shared error log. The existing entries are
// read, the new entry appended, and the whole array rewritten.
func (s *Store) AppendError(rec ErrorRecord) error {
	path := s.ErrorLogPath()

	var records []ErrorRecord
	if b, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(b, &records); err != nil {
			return fmt.Errorf("parse error log: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read error log: %w", err)
	}

	records = append(records, rec)
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal error log: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write error log: %w", err)
	}
	return nil
}

// Errors reads back the shared error log; a missing log yields no records.
func (s *Store) Errors() ([]ErrorRecord, error) {
	b, err := os.ReadFile(s.ErrorLogPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read error log: %w", err)
	}
	var records []ErrorRecord
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("parse error log: %w", err)
	}
	return records, nil
}
