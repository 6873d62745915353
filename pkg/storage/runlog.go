package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prasanthmj/inboxtriage/pkg/triage"
	"go.uber.org/zap"
)

// RunLog stores triage outcomes as one JSON array file per calendar date.
// Dates are taken in the caller's local time zone.
type RunLog struct {
	dir    string
	logger *zap.Logger
}

// NewRunLog creates a run log rooted at dir
func NewRunLog(dir string, logger *zap.Logger) *RunLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunLog{dir: dir, logger: logger}
}

// Path returns the log file for date
func (l *RunLog) Path(date time.Time) string {
	return filepath.Join(l.dir, date.Format("20060102")+".json")
}

// Load returns the outcomes recorded for date. A missing or corrupt file
// yields an empty log; individual entries that no longer decode are skipped.
func (l *RunLog) Load(date time.Time) ([]triage.RunOutcome, error) {
	entries, err := l.loadRaw(date)
	if err != nil {
		return nil, err
	}

	outcomes := make([]triage.RunOutcome, 0, len(entries))
	for i, entry := range entries {
		var o triage.RunOutcome
		if err := json.Unmarshal(entry, &o); err != nil {
			l.logger.Debug("skipping run log entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

// Append adds outcomes after the entries already recorded for date. The
// merged log replaces the old file in a single rename. Existing entries are
// carried over verbatim and nothing is deduplicated.
func (l *RunLog) Append(date time.Time, outcomes []triage.RunOutcome) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", l.dir, err)
	}

	merged, err := l.loadRaw(date)
	if err != nil {
		return err
	}
	if merged == nil {
		merged = []json.RawMessage{}
	}
	for _, o := range outcomes {
		entry, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("failed to marshal outcome %s: %w", o.MessageID, err)
		}
		merged = append(merged, entry)
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run log: %w", err)
	}

	return writeFileAtomic(l.Path(date), data)
}

// loadRaw reads the day's entries without decoding them, so records
// written by older versions survive the rewrite.
func (l *RunLog) loadRaw(date time.Time) ([]json.RawMessage, error) {
	path := l.Path(date)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		l.logger.Warn("discarding unreadable run log", zap.String("path", path), zap.Error(err))
		return nil, nil
	}
	return entries, nil
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write run log: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync run log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close run log: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set run log permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace run log: %w", err)
	}
	return nil
}
