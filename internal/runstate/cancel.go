package runstate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

const cancelMarkerName = "cancel"

// CancelFlag is the batch-wide cancellation token: an atomic boolean inside
// the process, mirrored by a marker file in the batch control directory so
// every worker process (and any later cancel invocation) observes the same
// state. Set once per batch, never reset.
type CancelFlag struct {
	path  string
	fired atomic.Bool
}

func NewCancelFlag(batchDir string) *CancelFlag {
	return &CancelFlag{path: filepath.Join(batchDir, cancelMarkerName)}
}

// Set raises the flag for every process watching the batch directory.
// Idempotent.
func (c *CancelFlag) Set() error {
	c.fired.Store(true)
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("set cancel flag %s: %w", c.path, err)
	}
	return f.Close()
}

// IsSet checks the in-process bit first and falls back to the marker file, so
// a flag raised by a sibling process is observed without any IPC channel
// beyond the filesystem. Once observed, the result is latched.
func (c *CancelFlag) IsSet() bool {
	if c.fired.Load() {
		return true
	}
	if _, err := os.Stat(c.path); err == nil {
		c.fired.Store(true)
		return true
	}
	return false
}
