// Package batch spawns, observes, cancels and sweeps the worker processes of
// one download batch. Every worker runs in its own process group so that
// cancellation can kill the worker together with any ffmpeg child it started.
package batch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"lecture-downloader/internal/config"
	"lecture-downloader/internal/model"
	"lecture-downloader/internal/runstate"
	"lecture-downloader/internal/worker"
)

// WorkerCommandFunc builds the subprocess for one lecture. Tests substitute
// scripts; production uses the program's own hidden worker subcommand.
type WorkerCommandFunc func(job model.LectureJob, batchDir string) *exec.Cmd

type Orchestrator struct {
	Settings config.Settings
	Store    runstate.ProgressStore

	// WorkerCommand overrides the self-exec worker invocation in tests.
	WorkerCommand WorkerCommandFunc

	batchDir string
	manifest runstate.BatchManifest
	cancel   *runstate.CancelFlag
	procs    []*workerProc
	skipped  []string
}

type workerProc struct {
	entry runstate.WorkerEntry
	cmd   *exec.Cmd
	done  chan error
}

func (o *Orchestrator) BatchDir() string {
	return o.batchDir
}

func (o *Orchestrator) BatchID() string {
	return o.manifest.BatchID
}

// Skipped lists the output names that were not started because their lock or
// finished file already existed.
func (o *Orchestrator) Skipped() []string {
	return o.skipped
}

// Start creates the batch control directory, resets the shared progress store,
// and spawns one worker process per job in input order. Jobs whose output is
// locked or already published are skipped, which is what makes rerunning a
// batch over a half-finished output directory safe.
func (o *Orchestrator) Start(jobs []model.LectureJob) error {
	if err := o.Settings.Validate(); err != nil {
		return err
	}
	if err := o.Settings.EnsureDirs(); err != nil {
		return err
	}

	batchDir, id, err := runstate.NewBatchDir(o.Settings.TmpDir)
	if err != nil {
		return err
	}
	o.batchDir = batchDir
	o.cancel = runstate.NewCancelFlag(batchDir)
	o.manifest = runstate.BatchManifest{
		BatchID:     id,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
		OutputDir:   o.Settings.OutputDir,
		TmpDir:      o.Settings.TmpDir,
		MaxParallel: o.Settings.MaxParallel,
	}

	if err := o.Store.Reset(); err != nil {
		return err
	}

	buildCmd := o.WorkerCommand
	if buildCmd == nil {
		buildCmd = o.selfWorkerCommand
	}

	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return err
		}
		outputName := job.OutputName()
		outputPath := filepath.Join(o.Settings.OutputDir, outputName)

		if runstate.ShouldSkip(outputPath) {
			o.skipped = append(o.skipped, outputName)
			continue
		}
		lock, err := runstate.AcquireOutputLock(outputPath)
		if err != nil {
			// Lost the race to another instance between the check and the
			// create; treat it the same as the check firing.
			o.skipped = append(o.skipped, outputName)
			continue
		}

		cmd := buildCmd(job, batchDir)
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		if err := cmd.Start(); err != nil {
			_ = lock.Release()
			return fmt.Errorf("start worker for %s: %w", outputName, err)
		}

		proc := &workerProc{
			entry: runstate.WorkerEntry{
				Lecture:  outputName,
				PID:      cmd.Process.Pid,
				LockPath: lock.Path(),
				WorkDir:  worker.WorkDirFor(o.Settings.TmpDir, job),
			},
			cmd:  cmd,
			done: make(chan error, 1),
		}
		go func() {
			proc.done <- cmd.Wait()
			close(proc.done)
		}()
		o.procs = append(o.procs, proc)
		o.manifest.Workers = append(o.manifest.Workers, proc.entry)

		_ = o.Store.Update(outputName, model.NewProgressRecord(model.ProgressQueued, 0, 0, 0))
	}

	return runstate.SaveBatchManifest(batchDir, o.manifest)
}

// selfWorkerCommand re-executes this binary with the hidden worker subcommand.
func (o *Orchestrator) selfWorkerCommand(job model.LectureJob, batchDir string) *exec.Cmd {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	cmd := exec.Command(exe, "worker",
		"--name", job.DisplayName,
		"--url", job.PlaylistURL,
		"--output-dir", o.Settings.OutputDir,
		"--tmp-dir", o.Settings.TmpDir,
		"--batch-dir", batchDir,
		"--max-parallel", strconv.Itoa(o.Settings.MaxParallel),
		"--limit-mbps", strconv.FormatFloat(o.Settings.LimitMBps, 'f', -1, 64),
		"--progress", o.Store.Path(),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// Wait joins every spawned worker. Worker failures are joined into one error;
// a failed lecture never aborts its siblings.
func (o *Orchestrator) Wait() error {
	var errs []error
	for _, p := range o.procs {
		if err := <-p.done; err != nil {
			errs = append(errs, fmt.Errorf("worker for %s: %w", p.entry.Lecture, err))
		}
	}
	return errors.Join(errs...)
}

// Cancel raises the batch cancel flag, gives workers a grace period to observe
// it and exit, then SIGKILLs the process group of every worker still running.
// Afterwards the batch is swept: locks, work directories, the progress file and
// the batch control directory are all removed.
func (o *Orchestrator) Cancel(grace time.Duration) error {
	if o.cancel == nil {
		return fmt.Errorf("batch was never started")
	}
	if err := o.cancel.Set(); err != nil {
		return err
	}

	expired := make(chan struct{})
	timer := time.AfterFunc(grace, func() { close(expired) })
	defer timer.Stop()

	for _, p := range o.procs {
		select {
		case <-p.done:
		case <-expired:
			KillGroup(p.entry.PID)
			<-p.done
		}
	}

	return Sweep(o.batchDir, o.manifest, o.Store)
}

// KillGroup force-kills a worker's whole process group, descendants included.
func KillGroup(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// Alive reports whether a process still exists.
func Alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// Sweep removes every on-disk trace of a batch: output locks, per-lecture work
// directories, the shared progress file, and the batch control directory. Run
// after the workers are confirmed dead.
func Sweep(batchDir string, mf runstate.BatchManifest, store runstate.ProgressStore) error {
	var errs []error
	for _, w := range mf.Workers {
		if err := os.Remove(w.LockPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove lock %s: %w", w.LockPath, err))
		}
		if err := os.RemoveAll(w.WorkDir); err != nil {
			errs = append(errs, fmt.Errorf("remove work directory %s: %w", w.WorkDir, err))
		}
	}
	if err := store.Delete(); err != nil {
		errs = append(errs, err)
	}
	if err := os.RemoveAll(batchDir); err != nil {
		errs = append(errs, fmt.Errorf("remove batch directory %s: %w", batchDir, err))
	}
	return errors.Join(errs...)
}
