package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCollectJobsFromFileAndArgs(t *testing.T) {
	jobsPath := filepath.Join(t.TempDir(), "jobs.json")
	payload := `[
  {"display_name": "Lecture: 1/10", "playlist_url": "https://example.com/1.m3u8"},
  {"display_name": "Lecture: 2/10", "playlist_url": "https://example.com/2.m3u8"}
]`
	if err := os.WriteFile(jobsPath, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	jobs, err := collectJobs(jobsPath, []string{"Extra Lecture=https://example.com/3.m3u8"})
	if err != nil {
		t.Fatalf("collect jobs: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}
	if jobs[0].DisplayName != "Lecture: 1/10" {
		t.Fatalf("file jobs must come first, got %q", jobs[0].DisplayName)
	}
	if jobs[2].DisplayName != "Extra Lecture" || jobs[2].PlaylistURL != "https://example.com/3.m3u8" {
		t.Fatalf("positional job parsed wrong: %+v", jobs[2])
	}
}

func TestCollectJobsRejectsMalformedArgs(t *testing.T) {
	if _, err := collectJobs("", []string{"no-equals-sign"}); err == nil {
		t.Fatal("expected error for argument without =")
	}
	if _, err := collectJobs("", []string{"=https://example.com/1.m3u8"}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := collectJobs("", nil); err == nil {
		t.Fatal("expected error when no jobs are given")
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	if err := Run([]string{"frobnicate"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
