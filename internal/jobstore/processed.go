package jobstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ProcessedRecord notes one key handled by a phase and the action taken.
type ProcessedRecord struct {
	Key       string `json:"key"`
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
}

// ProcessedLog tracks handled keys across runs so repeated passes over the
// same data can tell what has been seen before. It is loaded at phase start
// and saved at phase end.
type ProcessedLog struct {
	Processed []ProcessedRecord `json:"processed"`
}

// LoadProcessed reads a processed-records log from path. A missing or
// unparsable file yields an empty log; the log is advisory and must never
// block a phase.
func LoadProcessed(path string) *ProcessedLog {
	var log ProcessedLog
	b, err := os.ReadFile(path)
	if err != nil {
		return &log
	}
	if err := json.Unmarshal(b, &log); err != nil {
		return &ProcessedLog{}
	}
	return &log
}

// Save writes the log back to path as pretty-printed JSON.
func (p *ProcessedLog) Save(path string) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal processed records: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write processed records: %w", err)
	}
	return nil
}

// Add records a key with its action unless an identical entry exists.
func (p *ProcessedLog) Add(key, timestamp, action string) {
	rec := ProcessedRecord{Key: key, Timestamp: timestamp, Action: action}
	for _, r := range p.Processed {
		if r == rec {
			return
		}
	}
	p.Processed = append(p.Processed, rec)
}

// Seen reports whether key appears in the log.
func (p *ProcessedLog) Seen(key string) bool {
	for _, r := range p.Processed {
		if r.Key == key {
			return true
		}
	}
	return false
}

// Action returns the recorded action for key, or an error when the key has
// not been processed.
func (p *ProcessedLog) Action(key string) (string, error) {
	for _, r := range p.Processed {
		if r.Key == key {
			return r.Action, nil
		}
	}
	return "", errors.New("key not processed: " + key)
}
