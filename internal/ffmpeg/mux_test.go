package ffmpeg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// installFakeFFmpeg puts a scripted ffmpeg on PATH ahead of the real one.
func installFakeFFmpeg(t *testing.T, script string) {
	t.Helper()
	binDir := filepath.Join(t.TempDir(), "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(binDir, "ffmpeg"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
}

func writeSegments(t *testing.T, workDir string, names ...string) []string {
	t.Helper()
	paths := make([]string, 0, len(names))
	for _, name := range names {
		p := filepath.Join(workDir, name)
		if err := os.WriteFile(p, []byte(name+"-data"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestWriteConcatListKeepsIndexOrder(t *testing.T) {
	workDir := t.TempDir()
	paths := writeSegments(t, workDir, "00000.ts", "00001.ts", "00002.ts")

	listPath, err := WriteConcatList(workDir, paths)
	if err != nil {
		t.Fatalf("write concat list: %v", err)
	}
	data, err := os.ReadFile(listPath)
	if err != nil {
		t.Fatal(err)
	}
	want := "file '00000.ts'\nfile '00001.ts'\nfile '00002.ts'\n"
	if string(data) != want {
		t.Fatalf("concat list = %q, want %q", data, want)
	}
}

func TestMuxInvokesToolAndSucceeds(t *testing.T) {
	installFakeFFmpeg(t, `#!/usr/bin/env bash
set -euo pipefail
for last in "$@"; do :; done
cat 0*.ts > "$last"
`)

	workDir := t.TempDir()
	paths := writeSegments(t, workDir, "00000.ts", "00001.ts")

	err := Mux(MuxOptions{
		WorkDir:      workDir,
		SegmentPaths: paths,
		OutputName:   "Lecture_1.mp4",
		PlaylistURL:  "https://example.com/lecture.m3u8",
	})
	if err != nil {
		t.Fatalf("mux: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(workDir, "Lecture_1.mp4"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "00000.ts-data00001.ts-data" {
		t.Fatalf("muxed output content = %q", data)
	}
}

func TestMuxFailureCapturesDiagnostics(t *testing.T) {
	installFakeFFmpeg(t, `#!/usr/bin/env bash
echo "frame info"
echo "moov atom not found" >&2
exit 1
`)

	workDir := t.TempDir()
	paths := writeSegments(t, workDir, "00000.ts")

	err := Mux(MuxOptions{
		WorkDir:      workDir,
		SegmentPaths: paths,
		OutputName:   "Lecture_1.mp4",
		PlaylistURL:  "https://example.com/lecture.m3u8",
	})
	if err == nil {
		t.Fatal("expected mux failure")
	}
	msg := err.Error()
	for _, want := range []string{"moov atom not found", "frame info", "https://example.com/lecture.m3u8", workDir} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error missing %q:\n%s", want, msg)
		}
	}
}

func TestMuxRejectsEmptySegmentList(t *testing.T) {
	if err := Mux(MuxOptions{WorkDir: t.TempDir(), OutputName: "x.mp4"}); err == nil {
		t.Fatal("expected error for empty segment list")
	}
}

func TestCheckDependencies(t *testing.T) {
	installFakeFFmpeg(t, "#!/usr/bin/env bash\nexit 0\n")
	if err := CheckDependencies(); err != nil {
		t.Fatalf("ffmpeg on PATH must pass the check: %v", err)
	}
	report := DependencyStatus()
	if !report.FFmpegFound || report.FFmpegPath == "" {
		t.Fatalf("unexpected report: %+v", report)
	}
}
