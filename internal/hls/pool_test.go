package hls

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"lecture-downloader/internal/model"
	"lecture-downloader/internal/runstate"
)

// fakeFetcher writes the segment name as content and fails the configured
// indices every time.
type fakeFetcher struct {
	mu      sync.Mutex
	failing map[string]bool
	calls   atomic.Int64
}

func (f *fakeFetcher) Fetch(url, dest string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	failing := f.failing[url]
	f.mu.Unlock()
	if failing {
		return "", fmt.Errorf("fetch %s after 5 attempts: boom", url)
	}
	if err := os.WriteFile(dest, []byte(filepath.Base(dest)), 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

func makeSegments(n int) []model.Segment {
	segments := make([]model.Segment, n)
	for i := range segments {
		segments[i] = model.Segment{Index: i, URL: fmt.Sprintf("https://example.com/%05d.ts", i)}
	}
	return segments
}

func TestDownloadFetchesEverySegment(t *testing.T) {
	workDir := t.TempDir()
	pool := &Pool{
		Fetcher: &fakeFetcher{},
		WorkDir: workDir,
		Lecture: "Lecture_1.mp4",
	}

	paths, missing := pool.Download(makeSegments(40))
	if missing != 0 {
		t.Fatalf("missing = %d, want 0", missing)
	}
	if len(paths) != 40 {
		t.Fatalf("got %d paths, want 40", len(paths))
	}

	sort.Strings(paths)
	for i, p := range paths {
		if want := fmt.Sprintf("%05d.ts", i); filepath.Base(p) != want {
			t.Fatalf("sorted path %d = %q, want %q", i, filepath.Base(p), want)
		}
	}
}

func TestDownloadToleratesPartialFailure(t *testing.T) {
	workDir := t.TempDir()
	outputDir := t.TempDir()
	errLog := runstate.NewErrorLog(outputDir)

	fetcher := &fakeFetcher{failing: map[string]bool{
		"https://example.com/00003.ts": true,
		"https://example.com/00007.ts": true,
	}}
	pool := &Pool{
		Fetcher:  fetcher,
		WorkDir:  workDir,
		Lecture:  "Lecture_1.mp4",
		ErrorLog: errLog,
	}

	paths, missing := pool.Download(makeSegments(10))
	if missing != 2 {
		t.Fatalf("missing = %d, want 2", missing)
	}
	if len(paths) != 8 {
		t.Fatalf("got %d paths, want 8", len(paths))
	}

	data, err := os.ReadFile(errLog.Path())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected exactly 2 error log entries, got %d: %q", len(lines), lines)
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "segment 3") || !strings.Contains(joined, "segment 7") {
		t.Fatalf("error log must reference segments 3 and 7: %q", joined)
	}
}

func TestDownloadReportsFineGrainedProgress(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	pool := &Pool{
		Fetcher: &fakeFetcher{},
		WorkDir: t.TempDir(),
		Lecture: "Lecture_1.mp4",
		OnSegment: func(done, total int) {
			if total != 12 {
				t.Errorf("total = %d, want 12", total)
			}
			mu.Lock()
			seen = append(seen, done)
			mu.Unlock()
		},
	}

	if _, missing := pool.Download(makeSegments(12)); missing != 0 {
		t.Fatalf("missing = %d", missing)
	}
	if len(seen) != 12 {
		t.Fatalf("expected 12 progress callbacks, got %d", len(seen))
	}
	sort.Ints(seen)
	for i, v := range seen {
		if v != i+1 {
			t.Fatalf("progress counts must cover 1..12, got %v", seen)
		}
	}
}

func TestDownloadSkipsAlreadyFetchedSegments(t *testing.T) {
	workDir := t.TempDir()

	// Segments 0..4 are already on disk from an interrupted run.
	for i := 0; i < 5; i++ {
		name := filepath.Join(workDir, fmt.Sprintf("%05d.ts", i))
		if err := os.WriteFile(name, []byte("cached"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	fetcher := fastFetcher(nil)
	var requests atomic.Int64
	srv := newCountingSegmentServer(t, &requests)
	defer srv.Close()

	segments := make([]model.Segment, 8)
	for i := range segments {
		segments[i] = model.Segment{Index: i, URL: srv.URL + fmt.Sprintf("/%05d.ts", i)}
	}

	pool := &Pool{Fetcher: fetcher, WorkDir: workDir, Lecture: "Lecture_1.mp4"}
	paths, missing := pool.Download(segments)
	if missing != 0 {
		t.Fatalf("missing = %d", missing)
	}
	if len(paths) != 8 {
		t.Fatalf("got %d paths, want 8", len(paths))
	}
	if requests.Load() != 3 {
		t.Fatalf("expected network fetches only for segments 5..7, got %d requests", requests.Load())
	}
}

func newCountingSegmentServer(t *testing.T, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, "segment-data")
	}))
}
