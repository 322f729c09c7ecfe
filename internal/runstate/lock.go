package runstate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Output locks are zero-byte marker files next to the final output path. A
// present lock, or a present output file, means "do not start a new download
// for this path" — the only mutual exclusion between independent program
// instances sharing an output directory. A lock left behind by a crash or a
// mux failure blocks reruns until an operator removes it.

const lockSuffix = ".lock"

func LockPath(outputPath string) string {
	return outputPath + lockSuffix
}

// ShouldSkip reports whether a download for outputPath must not start because
// the lock or the finished file already exists.
func ShouldSkip(outputPath string) bool {
	if _, err := os.Stat(LockPath(outputPath)); err == nil {
		return true
	}
	if _, err := os.Stat(outputPath); err == nil {
		return true
	}
	return false
}

type OutputLock struct {
	path string
}

// AcquireOutputLock creates the lock marker with O_EXCL, failing if another
// holder got there first or the output already exists.
func AcquireOutputLock(outputPath string) (OutputLock, error) {
	if strings.TrimSpace(outputPath) == "" {
		return OutputLock{}, fmt.Errorf("output path is required")
	}
	if _, err := os.Stat(outputPath); err == nil {
		return OutputLock{}, fmt.Errorf("output already exists: %s", outputPath)
	}
	path := LockPath(outputPath)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return OutputLock{}, fmt.Errorf("output is locked: %s", path)
		}
		return OutputLock{}, fmt.Errorf("acquire output lock for %s: %w", outputPath, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return OutputLock{}, fmt.Errorf("acquire output lock for %s: %w", outputPath, err)
	}
	return OutputLock{path: path}, nil
}

// OutputLockAt wraps a lock marker that was created by another process, so a
// worker can release the lock its orchestrator acquired on its behalf.
func OutputLockAt(outputPath string) OutputLock {
	return OutputLock{path: LockPath(outputPath)}
}

func (l OutputLock) Path() string {
	return l.path
}

func (l OutputLock) Release() error {
	if strings.TrimSpace(l.path) == "" {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release output lock %s: %w", l.path, err)
	}
	return nil
}

// LockInfo describes a lock marker found on disk, for operator-facing reports.
type LockInfo struct {
	Path string
	Age  time.Duration
}

// FindLocks lists every lock marker under outputDir. Stale entries are the
// operator's cue to inspect and remove before rerunning.
func FindLocks(outputDir string) ([]LockInfo, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output directory %s: %w", outputDir, err)
	}
	var locks []LockInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), lockSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		locks = append(locks, LockInfo{
			Path: filepath.Join(outputDir, e.Name()),
			Age:  time.Since(info.ModTime()),
		})
	}
	return locks, nil
}
