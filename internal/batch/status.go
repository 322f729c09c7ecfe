package batch

import (
	"sort"

	"lecture-downloader/internal/model"
	"lecture-downloader/internal/runstate"
)

// LectureStatus pairs a manifest worker entry with its live progress record.
type LectureStatus struct {
	Lecture  string
	PID      int
	Alive    bool
	Progress model.ProgressRecord
}

// Report is a point-in-time view of one batch, assembled from the batch
// manifest, process liveness, and the shared progress store. A worker that
// exited without reaching completed counts as failed, whatever its last
// store status was.
type Report struct {
	Manifest    runstate.BatchManifest
	Lectures    []LectureStatus
	Queued      int
	Downloading int
	Completed   int
	Failed      int
}

// Status reads a batch from disk. It works from any process: the manifest
// names the workers, a zero-signal probe tells which are still alive, and the
// progress store supplies the counters.
func Status(batchDir string, store runstate.ProgressStore) (Report, error) {
	mf, err := runstate.LoadBatchManifest(batchDir)
	if err != nil {
		return Report{}, err
	}
	records, err := store.Snapshot()
	if err != nil {
		return Report{}, err
	}

	report := Report{Manifest: mf}
	for _, w := range mf.Workers {
		ls := LectureStatus{
			Lecture:  w.Lecture,
			PID:      w.PID,
			Alive:    Alive(w.PID),
			Progress: records[w.Lecture],
		}
		report.Lectures = append(report.Lectures, ls)
		switch {
		case ls.Progress.Status == model.ProgressCompleted:
			report.Completed++
		case !ls.Alive:
			report.Failed++
		case ls.Progress.Status == model.ProgressDownloading || ls.Progress.Status == model.ProgressStarting:
			report.Downloading++
		default:
			report.Queued++
		}
	}
	sort.Slice(report.Lectures, func(i, j int) bool {
		return report.Lectures[i].Lecture < report.Lectures[j].Lecture
	})
	return report, nil
}
