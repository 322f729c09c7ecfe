package runstate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lecture-downloader/internal/model"
)

const (
	appStateDirName  = "lecture-downloader"
	progressFileName = "progress.json"

	storeLockStaleAfter = 10 * time.Second
	storeLockTimeout    = 5 * time.Second
	storeLockRetry      = 25 * time.Millisecond
)

// DefaultProgressPath is the machine-wide location of the shared progress
// file. Any process can read it; workers from any batch write to it.
func DefaultProgressPath() string {
	return filepath.Join(os.TempDir(), appStateDirName, progressFileName)
}

// ProgressStore is a file-backed map of sanitized lecture name to progress
// record, shared by every worker process and readable by external pollers.
// Each write replaces the whole file atomically; mutations are serialized
// through a sidecar lock file.
type ProgressStore struct {
	path string
}

func NewProgressStore(path string) ProgressStore {
	if strings.TrimSpace(path) == "" {
		path = DefaultProgressPath()
	}
	return ProgressStore{path: path}
}

func (s ProgressStore) Path() string {
	return s.path
}

// Reset clears the store. Called once at the start of every batch.
func (s ProgressStore) Reset() error {
	return WriteJSON(s.path, map[string]model.ProgressRecord{})
}

// Delete removes the store file entirely; the cancellation sweep uses this.
func (s ProgressStore) Delete() error {
	_ = os.Remove(s.path + lockSuffix)
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete progress store %s: %w", s.path, err)
	}
	return nil
}

// Snapshot returns the current records. A store that does not exist yet (or
// was just swept away) reads as empty rather than failing, so pollers can run
// at any time.
func (s ProgressStore) Snapshot() (map[string]model.ProgressRecord, error) {
	var records map[string]model.ProgressRecord
	if err := ReadJSON(s.path, &records); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]model.ProgressRecord{}, nil
		}
		return nil, err
	}
	if records == nil {
		records = map[string]model.ProgressRecord{}
	}
	return records, nil
}

// Update read-modify-writes one record under the sidecar lock. Progress never
// moves backwards: a late writer cannot lower current or regress status for a
// lecture.
func (s ProgressStore) Update(name string, rec model.ProgressRecord) error {
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	records, err := s.Snapshot()
	if err != nil {
		return err
	}
	if prev, ok := records[name]; ok {
		if rec.Current < prev.Current {
			rec.Current = prev.Current
			rec.Percentage = model.Percent(rec.Current, rec.Total)
		}
		if !model.CanTransitionProgress(prev.Status, rec.Status) {
			rec.Status = prev.Status
		}
	}
	records[name] = rec
	return WriteJSON(s.path, records)
}

// lock serializes mutations across processes with an O_EXCL sidecar file. A
// lock older than storeLockStaleAfter belongs to a dead writer and is broken.
func (s ProgressStore) lock() (func(), error) {
	if err := Mkdir(filepath.Dir(s.path)); err != nil {
		return nil, err
	}
	lockPath := s.path + lockSuffix
	deadline := time.Now().Add(storeLockTimeout)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("lock progress store %s: %w", s.path, err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > storeLockStaleAfter {
			_ = os.Remove(lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock progress store %s: timed out", s.path)
		}
		time.Sleep(storeLockRetry)
	}
}
