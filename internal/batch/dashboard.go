package batch

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"lecture-downloader/internal/model"
	"lecture-downloader/internal/runstate"
)

const dashboardBarWidth = 30

// Dashboard periodically rereads the batch from disk and repaints a full-screen
// text view while the orchestrator waits for its workers. It observes the same
// files any external process would, so it shows exactly what `status` shows.
type Dashboard struct {
	BatchDir string
	Store    runstate.ProgressStore

	// Out defaults to stdout; tests point it at a buffer.
	Out io.Writer

	stop chan struct{}
}

func NewDashboard(batchDir string, store runstate.ProgressStore) *Dashboard {
	return &Dashboard{
		BatchDir: batchDir,
		Store:    store,
		stop:     make(chan struct{}),
	}
}

func (d *Dashboard) Start() {
	go func() {
		t := time.NewTicker(700 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-d.stop:
				return
			case <-t.C:
				d.render()
			}
		}
	}()
}

func (d *Dashboard) Stop() {
	close(d.stop)
	d.render()
}

func (d *Dashboard) out() io.Writer {
	if d.Out != nil {
		return d.Out
	}
	return os.Stdout
}

func (d *Dashboard) render() {
	report, err := Status(d.BatchDir, d.Store)
	if err != nil {
		return
	}

	var b strings.Builder
	b.WriteString("\033[H\033[2J")
	b.WriteString(fmt.Sprintf("lecture-downloader | batch %.8s | queued %d | downloading %d | failed %d | completed %d/%d\n",
		report.Manifest.BatchID, report.Queued, report.Downloading, report.Failed, report.Completed, len(report.Lectures)))
	b.WriteString(strings.Repeat("-", 100) + "\n")

	if len(report.Lectures) == 0 {
		b.WriteString("(no workers in this batch)\n")
	}
	for _, ls := range report.Lectures {
		b.WriteString(renderLectureLine(ls) + "\n")
	}

	fmt.Fprint(d.out(), b.String())
}

func renderLectureLine(ls LectureStatus) string {
	p := ls.Progress
	switch p.Status {
	case model.ProgressCompleted:
		return fmt.Sprintf("%-50s [%s] done", ls.Lecture, strings.Repeat("=", dashboardBarWidth))
	case model.ProgressDownloading:
		filled := 0
		if p.Total > 0 {
			filled = dashboardBarWidth * p.Current / p.Total
		}
		bar := strings.Repeat("=", filled) + strings.Repeat(" ", dashboardBarWidth-filled)
		return fmt.Sprintf("%-50s [%s] %3d%% %d/%d @ %.1f seg/s",
			ls.Lecture, bar, p.Percentage, p.Current, p.Total, p.Rate)
	case model.ProgressStarting:
		return fmt.Sprintf("%-50s resolving playlist", ls.Lecture)
	default:
		state := "queued"
		if !ls.Alive {
			state = "exited"
		}
		return fmt.Sprintf("%-50s %s", ls.Lecture, state)
	}
}
