package runstate

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const ErrorLogName = "download_errors.log"

// ErrorLog is the append-only failure journal in the output directory: one
// timestamped line per segment or mux failure. Lines are written with a single
// O_APPEND syscall so concurrent workers do not interleave partial lines.
type ErrorLog struct {
	path string
	mu   sync.Mutex
}

func NewErrorLog(outputDir string) *ErrorLog {
	return &ErrorLog{path: filepath.Join(outputDir, ErrorLogName)}
}

func (l *ErrorLog) Path() string {
	return l.path
}

func (l *ErrorLog) Append(lecture, detail string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open error log %s: %w", l.path, err)
	}
	line := fmt.Sprintf("%s %s: %s\n", time.Now().UTC().Format(time.RFC3339), lecture, detail)
	_, writeErr := f.WriteString(line)
	closeErr := f.Close()
	if writeErr != nil {
		return fmt.Errorf("append to error log %s: %w", l.path, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close error log %s: %w", l.path, closeErr)
	}
	return nil
}
