package model

import (
	"math"
	"time"
)

const (
	ProgressQueued      = "queued"
	ProgressStarting    = "starting"
	ProgressDownloading = "downloading"
	ProgressCompleted   = "completed"
)

// Progress for a lecture only ever moves forward. Writers racing across
// process boundaries must not be able to regress a record.
var progressTransitions = map[string]map[string]bool{
	"": {
		ProgressQueued:      true,
		ProgressStarting:    true,
		ProgressDownloading: true,
		ProgressCompleted:   true,
	},
	ProgressQueued: {
		ProgressQueued:      true,
		ProgressStarting:    true,
		ProgressDownloading: true,
		ProgressCompleted:   true,
	},
	ProgressStarting: {
		ProgressStarting:    true,
		ProgressDownloading: true,
		ProgressCompleted:   true,
	},
	ProgressDownloading: {
		ProgressDownloading: true,
		ProgressCompleted:   true,
	},
	ProgressCompleted: {
		ProgressCompleted: true,
	},
}

func IsKnownProgressStatus(status string) bool {
	_, ok := progressTransitions[status]
	return ok
}

func CanTransitionProgress(from, to string) bool {
	next, ok := progressTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// ProgressRecord is one entry in the shared progress store, keyed by the
// lecture's sanitized output filename.
type ProgressRecord struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage int     `json:"percentage"`
	Rate       float64 `json:"rate"`
	Status     string  `json:"status"`
	LastUpdate string  `json:"last_update"`
}

// Percent computes the rounded completion percentage; a zero total reads as 0.
func Percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(current) / float64(total)))
}

// NewProgressRecord builds a record with the percentage invariant applied and
// the update timestamp set to now.
func NewProgressRecord(status string, current, total int, rate float64) ProgressRecord {
	return ProgressRecord{
		Current:    current,
		Total:      total,
		Percentage: Percent(current, total),
		Rate:       rate,
		Status:     status,
		LastUpdate: time.Now().UTC().Format(time.RFC3339),
	}
}
