// Package ffmpeg drives the external remux tool as a black-box subprocess:
// exit code zero is success, anything else fails the lecture with the tool's
// full output preserved for diagnosis.
package ffmpeg

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"lecture-downloader/internal/runstate"
)

// ConcatListName is the concat-demuxer input file written into the working
// directory.
const ConcatListName = "segments.txt"

type MuxOptions struct {
	// WorkDir holds the fetched segments; ffmpeg runs with this as its
	// working directory so the concat list can reference bare filenames.
	WorkDir string
	// SegmentPaths in ascending index order.
	SegmentPaths []string
	// OutputName of the muxed file inside WorkDir.
	OutputName string
	// PlaylistURL is carried for diagnostics only.
	PlaylistURL string
}

// WriteConcatList writes the concat manifest: one "file '<name>'" line per
// segment, bare filenames, ascending index order.
func WriteConcatList(workDir string, segmentPaths []string) (string, error) {
	var b strings.Builder
	for _, p := range segmentPaths {
		fmt.Fprintf(&b, "file '%s'\n", filepath.Base(p))
	}
	listPath := filepath.Join(workDir, ConcatListName)
	if err := runstate.WriteBytes(listPath, []byte(b.String())); err != nil {
		return "", err
	}
	return listPath, nil
}

// Mux concatenates the segments into a single container without re-encoding.
func Mux(opts MuxOptions) error {
	if len(opts.SegmentPaths) == 0 {
		return fmt.Errorf("mux %s: no segments to concatenate", opts.OutputName)
	}
	if _, err := WriteConcatList(opts.WorkDir, opts.SegmentPaths); err != nil {
		return err
	}

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-protocol_whitelist", "file,http,https,tcp,tls",
		"-hwaccel", "auto",
		"-i", ConcatListName,
		"-c", "copy",
		"-movflags", "+faststart",
		opts.OutputName,
	}
	cmd := exec.Command("ffmpeg", args...)
	cmd.Dir = opts.WorkDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf(
			"ffmpeg failed for %s: %w\nplaylist: %s\nwork dir: %s\noutput: %s\nstdout:\n%s\nstderr:\n%s",
			opts.OutputName, err,
			opts.PlaylistURL,
			opts.WorkDir,
			filepath.Join(opts.WorkDir, opts.OutputName),
			stdout.String(),
			stderr.String(),
		)
	}
	return nil
}

type DependencyReport struct {
	FFmpegFound bool   `json:"ffmpeg_found"`
	FFmpegPath  string `json:"ffmpeg_path,omitempty"`
}

func DependencyStatus() DependencyReport {
	report := DependencyReport{}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		report.FFmpegFound = true
		report.FFmpegPath = path
	}
	return report
}

func CheckDependencies() error {
	if !DependencyStatus().FFmpegFound {
		return fmt.Errorf("missing dependency: ffmpeg is not installed or not on PATH")
	}
	return nil
}
