package cli

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lecture-downloader/internal/batch"
	"lecture-downloader/internal/config"
	"lecture-downloader/internal/runstate"
)

// cancelGrace is how long a SIGINT gives workers to observe the cancel flag
// before their process groups are killed.
const cancelGrace = 5 * time.Second

func runDownload(args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	jobsPath := fs.String("jobs", "", "JSON file of {display_name, playlist_url} jobs")
	outputDir := fs.String("output-dir", "", "directory finished videos are published into")
	tmpDir := fs.String("tmp-dir", "", "working directory for segments and batch state (default: system temp)")
	maxParallel := fs.Int("max-parallel", config.DefaultMaxParallel, "lectures downloading at once, clamped to [1,16]")
	limitMBps := fs.Float64("limit-mbps", 0, "per-worker download rate limit in MB/s (0 = unlimited)")
	showProgress := fs.Bool("progress", false, "render a live dashboard while the batch runs")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	jobs, err := collectJobs(*jobsPath, fs.Args())
	if err != nil {
		return err
	}

	settings := config.Settings{
		OutputDir:   *outputDir,
		TmpDir:      *tmpDir,
		MaxParallel: *maxParallel,
		LimitMBps:   *limitMBps,
	}.Normalize()
	if err := settings.Validate(); err != nil {
		fs.Usage()
		return err
	}

	store := runstate.NewProgressStore("")
	o := &batch.Orchestrator{Settings: settings, Store: store}
	if err := o.Start(jobs); err != nil {
		return err
	}
	for _, name := range o.Skipped() {
		fmt.Printf("skipping %s: already downloaded or locked\n", name)
	}
	started := len(jobs) - len(o.Skipped())
	if started == 0 {
		fmt.Println("nothing to do")
		return os.RemoveAll(o.BatchDir())
	}
	fmt.Printf("batch %.8s: %d lecture(s), max %d in parallel\n", o.BatchID(), started, settings.MaxParallel)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	done := make(chan error, 1)
	go func() { done <- o.Wait() }()

	var dash *batch.Dashboard
	if *showProgress {
		dash = batch.NewDashboard(o.BatchDir(), store)
		dash.Start()
	}

	select {
	case err := <-done:
		if dash != nil {
			dash.Stop()
		}
		if err != nil {
			return err
		}
		fmt.Println("batch complete")
		return nil
	case <-sig:
		if dash != nil {
			dash.Stop()
		}
		fmt.Println("\ninterrupt received, cancelling batch")
		if err := o.Cancel(cancelGrace); err != nil {
			return err
		}
		return fmt.Errorf("batch cancelled")
	}
}
