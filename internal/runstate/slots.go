package runstate

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

const (
	slotsDirName  = "slots"
	slotRetryBase = 150 * time.Millisecond
)

// SlotSemaphore is the cross-process counting semaphore that bounds how many
// lectures download and mux at once. Each slot is a file in the batch control
// directory acquired with O_EXCL; worker processes from any orchestrator
// instance of the same batch contend on the same files.
type SlotSemaphore struct {
	dir  string
	size int
}

func NewSlotSemaphore(batchDir string, size int) SlotSemaphore {
	if size < 1 {
		size = 1
	}
	return SlotSemaphore{dir: filepath.Join(batchDir, slotsDirName), size: size}
}

// Acquire blocks until a slot is free or the cancel flag fires. The second
// return value is false when the wait was abandoned due to cancellation.
func (s SlotSemaphore) Acquire(cancel *CancelFlag) (Slot, bool, error) {
	if err := Mkdir(s.dir); err != nil {
		return Slot{}, false, err
	}
	for {
		if cancel != nil && cancel.IsSet() {
			return Slot{}, false, nil
		}
		for i := 0; i < s.size; i++ {
			path := filepath.Join(s.dir, fmt.Sprintf("slot-%02d.lock", i))
			f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
			if err == nil {
				_ = f.Close()
				return Slot{path: path}, true, nil
			}
			if !os.IsExist(err) {
				return Slot{}, false, fmt.Errorf("acquire download slot: %w", err)
			}
		}
		// Jitter keeps a herd of blocked workers from sweeping in lockstep.
		time.Sleep(slotRetryBase + time.Duration(rand.Int63n(int64(slotRetryBase))))
	}
}

type Slot struct {
	path string
}

func (s Slot) Release() error {
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release download slot %s: %w", s.path, err)
	}
	return nil
}
