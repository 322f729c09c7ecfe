package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultMaxParallel matches the historical default of three lectures
	// downloading at once; the hard ceiling protects bandwidth and disk.
	DefaultMaxParallel = 3
	MinParallel        = 1
	MaxParallel        = 16

	appTmpDirName = "lecture-downloader"
)

// Settings is the validated runtime configuration for a download batch,
// constructed once at startup. Flags take priority; everything else falls
// back to defaults in Normalize.
type Settings struct {
	OutputDir   string
	TmpDir      string
	MaxParallel int
	LimitMBps   float64
}

func DefaultTmpDir() string {
	return filepath.Join(os.TempDir(), appTmpDirName)
}

func ClampParallel(n int) int {
	if n < MinParallel {
		return MinParallel
	}
	if n > MaxParallel {
		return MaxParallel
	}
	return n
}

func (s Settings) Normalize() Settings {
	out := s
	out.OutputDir = strings.TrimSpace(out.OutputDir)
	out.TmpDir = strings.TrimSpace(out.TmpDir)
	if out.TmpDir == "" {
		out.TmpDir = DefaultTmpDir()
	}
	if out.MaxParallel == 0 {
		out.MaxParallel = DefaultMaxParallel
	}
	out.MaxParallel = ClampParallel(out.MaxParallel)
	if out.LimitMBps < 0 {
		out.LimitMBps = 0
	}
	return out
}

func (s Settings) Validate() error {
	if s.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	return nil
}

// EnsureDirs creates the output and temp directories if needed.
func (s Settings) EnsureDirs() error {
	if err := os.MkdirAll(s.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", s.OutputDir, err)
	}
	if err := os.MkdirAll(s.TmpDir, 0o755); err != nil {
		return fmt.Errorf("create temp directory %s: %w", s.TmpDir, err)
	}
	return nil
}
