package cli

import (
	"flag"
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"lecture-downloader/internal/batch"
	"lecture-downloader/internal/config"
	"lecture-downloader/internal/model"
	"lecture-downloader/internal/runstate"
)

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	tmpDir := fs.String("tmp-dir", "", "working directory the batch was started with")
	batchID := fs.String("batch", "", "batch id or prefix (default: latest batch)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	watch := fs.Bool("watch", false, "live view, refreshed every second (q to quit)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	store := runstate.NewProgressStore("")
	if *watch {
		return runWatch(store)
	}

	settings := config.Settings{TmpDir: *tmpDir}.Normalize()
	if batchDir, err := runstate.FindBatchDir(settings.TmpDir, *batchID); err == nil {
		if report, rerr := batch.Status(batchDir, store); rerr == nil {
			if *jsonOut {
				return printJSON(report)
			}
			printBatchReport(report)
			return nil
		}
	}

	// No batch on disk; report from the shared store alone.
	records, err := store.Snapshot()
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(records)
	}
	if len(records) == 0 {
		fmt.Println("no progress recorded")
		return nil
	}
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printProgressLine(name, records[name])
	}
	return nil
}

func printBatchReport(report batch.Report) {
	fmt.Printf("batch %.8s created %s | queued %d | downloading %d | failed %d | completed %d/%d\n",
		report.Manifest.BatchID,
		relTime(report.Manifest.CreatedAt),
		report.Queued, report.Downloading, report.Failed, report.Completed, len(report.Lectures))
	for _, ls := range report.Lectures {
		liveness := "exited"
		if ls.Alive {
			liveness = fmt.Sprintf("pid %d", ls.PID)
		}
		fmt.Printf("  %-10s ", liveness)
		printProgressLine(ls.Lecture, ls.Progress)
	}
}

func printProgressLine(name string, rec model.ProgressRecord) {
	status := rec.Status
	if status == "" {
		status = "unknown"
	}
	fmt.Printf("%-50s %-12s %3d%% (%d/%d) %.1f seg/s updated %s\n",
		name, status, rec.Percentage, rec.Current, rec.Total, rec.Rate, relTime(rec.LastUpdate))
}

func relTime(stamp string) string {
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return "-"
	}
	return humanize.Time(t)
}
