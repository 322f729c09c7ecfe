// Package worker runs the lifecycle of a single lecture download inside its
// own process: wait for a slot, resolve the playlist, fetch segments, mux, and
// publish the finished video. The orchestrator acquires the output lock before
// spawning; the worker owns it from there and releases it on every exit path
// except a mux failure, which deliberately leaves the lock as a poison marker.
package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"lecture-downloader/internal/ffmpeg"
	"lecture-downloader/internal/hls"
	"lecture-downloader/internal/model"
	"lecture-downloader/internal/runstate"
)

// workDirSuffix is appended to the output filename to form the per-lecture
// segment directory under the temp dir.
const workDirSuffix = "_ts"

// WorkerLogName is the per-lecture journal inside the work directory. It lives
// and dies with the directory: gone after publish, kept for diagnosis when a
// mux failure preserves the directory.
const WorkerLogName = "worker.log"

type runLog struct {
	path string
}

func (l runLog) printf(format string, args ...any) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "%s %s\n", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	_ = f.Close()
}

type Options struct {
	Job         model.LectureJob
	OutputDir   string
	TmpDir      string
	BatchDir    string
	MaxParallel int
	LimitMBps   float64

	// ProgressPath overrides the machine-wide progress store location in tests.
	ProgressPath string
}

// WorkDirFor returns the segment directory a lecture downloads into.
func WorkDirFor(tmpDir string, job model.LectureJob) string {
	return filepath.Join(tmpDir, job.OutputName()+workDirSuffix)
}

// Run executes one lecture download to completion. A cancelled batch returns
// nil: the cancellation sweep owns cleanup of locks, work directories and
// progress, so the worker just stops touching them.
func Run(opts Options) error {
	if err := opts.Job.Validate(); err != nil {
		return err
	}

	outputName := opts.Job.OutputName()
	outputPath := filepath.Join(opts.OutputDir, outputName)
	lock := runstate.OutputLockAt(outputPath)
	cancel := runstate.NewCancelFlag(opts.BatchDir)
	errLog := runstate.NewErrorLog(opts.OutputDir)
	store := runstate.NewProgressStore(opts.ProgressPath)

	if cancel.IsSet() {
		return lock.Release()
	}

	sem := runstate.NewSlotSemaphore(opts.BatchDir, opts.MaxParallel)
	slot, ok, err := sem.Acquire(cancel)
	if err != nil {
		_ = lock.Release()
		return err
	}
	if !ok {
		return lock.Release()
	}
	defer func() {
		_ = slot.Release()
	}()
	if cancel.IsSet() {
		return lock.Release()
	}

	_ = store.Update(outputName, model.NewProgressRecord(model.ProgressStarting, 0, 0, 0))

	workDir := WorkDirFor(opts.TmpDir, opts.Job)
	if err := runstate.Mkdir(workDir); err != nil {
		_ = errLog.Append(outputName, err.Error())
		_ = lock.Release()
		return err
	}
	wlog := runLog{path: filepath.Join(workDir, WorkerLogName)}
	wlog.printf("starting %s (%s)", outputName, opts.Job.PlaylistURL)

	resolver := &hls.Resolver{}
	segments, err := resolver.Resolve(opts.Job.PlaylistURL)
	if err != nil {
		wlog.printf("resolve playlist: %v", err)
		_ = errLog.Append(outputName, fmt.Sprintf("resolve playlist: %v", err))
		_ = lock.Release()
		return fmt.Errorf("resolve playlist for %s: %w", outputName, err)
	}
	wlog.printf("resolved %d segments", len(segments))

	start := time.Now()
	publish := func(done, total int) {
		elapsed := time.Since(start).Seconds()
		var rate float64
		if elapsed > 0 {
			rate = float64(done) / elapsed
		}
		_ = store.Update(outputName, model.NewProgressRecord(model.ProgressDownloading, done, total, rate))
	}
	publish(0, len(segments))

	pool := &hls.Pool{
		Fetcher:   hls.NewFetcher(cancel, opts.LimitMBps),
		WorkDir:   workDir,
		Lecture:   outputName,
		ErrorLog:  errLog,
		OnSegment: publish,
	}
	paths, missing := pool.Download(segments)
	wlog.printf("downloaded %d of %d segments", len(paths), len(segments))

	if cancel.IsSet() {
		return nil
	}
	if len(paths) == 0 {
		_ = errLog.Append(outputName, "no segments could be downloaded")
		_ = lock.Release()
		return fmt.Errorf("download %s: no segments could be downloaded", outputName)
	}
	if missing > 0 {
		_ = errLog.Append(outputName, fmt.Sprintf("%d of %d segments missing, muxing partial video", missing, len(segments)))
	}

	// Completion order back to manifest order; the zero-padded names make this
	// a plain lexical sort.
	sort.Strings(paths)

	err = ffmpeg.Mux(ffmpeg.MuxOptions{
		WorkDir:      workDir,
		SegmentPaths: paths,
		OutputName:   outputName,
		PlaylistURL:  opts.Job.PlaylistURL,
	})
	if err != nil {
		// The lock stays behind on purpose: a failed mux means the segments
		// are suspect, and reruns must not silently retry until an operator
		// has looked at the work directory.
		wlog.printf("mux failed: %v", err)
		_ = errLog.Append(outputName, err.Error())
		return err
	}
	if err := runstate.CopyFile(filepath.Join(workDir, outputName), outputPath); err != nil {
		_ = errLog.Append(outputName, err.Error())
		return err
	}
	if err := os.RemoveAll(workDir); err != nil {
		return fmt.Errorf("remove work directory %s: %w", workDir, err)
	}
	if err := lock.Release(); err != nil {
		return err
	}
	return store.Update(outputName, model.NewProgressRecord(model.ProgressCompleted, len(paths), len(paths), 0))
}
