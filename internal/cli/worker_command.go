package cli

import (
	"flag"

	"lecture-downloader/internal/model"
	"lecture-downloader/internal/worker"
)

// runWorker is the hidden per-lecture entry point: the download command
// re-executes this binary with `worker` once per lecture. Not listed in usage.
func runWorker(args []string) error {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	name := fs.String("name", "", "lecture display name")
	url := fs.String("url", "", "playlist URL")
	outputDir := fs.String("output-dir", "", "output directory")
	tmpDir := fs.String("tmp-dir", "", "working directory")
	batchDir := fs.String("batch-dir", "", "batch control directory")
	maxParallel := fs.Int("max-parallel", 0, "slot count of the batch semaphore")
	limitMBps := fs.Float64("limit-mbps", 0, "download rate limit in MB/s")
	progressPath := fs.String("progress", "", "progress store path")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	return worker.Run(worker.Options{
		Job:          model.LectureJob{DisplayName: *name, PlaylistURL: *url},
		OutputDir:    *outputDir,
		TmpDir:       *tmpDir,
		BatchDir:     *batchDir,
		MaxParallel:  *maxParallel,
		LimitMBps:    *limitMBps,
		ProgressPath: *progressPath,
	})
}
