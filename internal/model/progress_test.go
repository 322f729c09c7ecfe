package model

import "testing"

func TestPercent(t *testing.T) {
	cases := []struct {
		current, total, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{0, 10, 0},
		{1, 3, 33},
		{2, 3, 67},
		{10, 10, 100},
	}
	for _, c := range cases {
		if got := Percent(c.current, c.total); got != c.want {
			t.Fatalf("Percent(%d, %d) = %d, want %d", c.current, c.total, got, c.want)
		}
	}
}

func TestProgressTransitions(t *testing.T) {
	if !CanTransitionProgress(ProgressQueued, ProgressStarting) {
		t.Fatal("queued -> starting must be allowed")
	}
	if !CanTransitionProgress(ProgressDownloading, ProgressCompleted) {
		t.Fatal("downloading -> completed must be allowed")
	}
	if CanTransitionProgress(ProgressCompleted, ProgressDownloading) {
		t.Fatal("completed -> downloading must be rejected")
	}
	if CanTransitionProgress(ProgressDownloading, ProgressQueued) {
		t.Fatal("downloading -> queued must be rejected")
	}
	if CanTransitionProgress("bogus", ProgressQueued) {
		t.Fatal("unknown source status must be rejected")
	}
}

func TestNewProgressRecordAppliesInvariant(t *testing.T) {
	rec := NewProgressRecord(ProgressDownloading, 3, 10, 1.5)
	if rec.Percentage != 30 {
		t.Fatalf("percentage = %d, want 30", rec.Percentage)
	}
	if rec.LastUpdate == "" {
		t.Fatal("last update timestamp missing")
	}
}
