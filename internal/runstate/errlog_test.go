package runstate

import (
	"os"
	"strings"
	"testing"
)

func TestErrorLogAppendsLines(t *testing.T) {
	dir := t.TempDir()
	log := NewErrorLog(dir)

	if err := log.Append("Lecture_1.mp4", "segment 3 failed: boom"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := log.Append("Lecture_1.mp4", "segment 7 failed: boom"); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(log.Path())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "segment 3") || !strings.Contains(lines[1], "segment 7") {
		t.Fatalf("unexpected log content: %q", lines)
	}
	for _, line := range lines {
		if !strings.Contains(line, "Lecture_1.mp4") {
			t.Fatalf("line missing lecture name: %q", line)
		}
	}
}
