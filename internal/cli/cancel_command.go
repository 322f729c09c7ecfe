package cli

import (
	"flag"
	"fmt"
	"time"

	"lecture-downloader/internal/batch"
	"lecture-downloader/internal/config"
	"lecture-downloader/internal/runstate"
)

// runCancel cancels a batch from a separate process: it raises the cancel flag
// in the batch control directory, gives the recorded workers a grace period,
// kills whichever process groups are still alive, and sweeps the batch.
func runCancel(args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	tmpDir := fs.String("tmp-dir", "", "working directory the batch was started with")
	batchID := fs.String("batch", "", "batch id or prefix (default: latest batch)")
	grace := fs.Duration("grace", 5*time.Second, "how long workers get to exit on their own")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings := config.Settings{TmpDir: *tmpDir}.Normalize()
	batchDir, err := runstate.FindBatchDir(settings.TmpDir, *batchID)
	if err != nil {
		return err
	}
	mf, err := runstate.LoadBatchManifest(batchDir)
	if err != nil {
		return err
	}

	if err := runstate.NewCancelFlag(batchDir).Set(); err != nil {
		return err
	}
	fmt.Printf("cancelling batch %.8s (%d workers)\n", mf.BatchID, len(mf.Workers))

	deadline := time.Now().Add(*grace)
	for time.Now().Before(deadline) && anyAlive(mf.Workers) {
		time.Sleep(200 * time.Millisecond)
	}
	killed := 0
	for _, w := range mf.Workers {
		if batch.Alive(w.PID) {
			batch.KillGroup(w.PID)
			killed++
		}
	}
	if killed > 0 {
		fmt.Printf("killed %d worker process group(s)\n", killed)
	}

	store := runstate.NewProgressStore("")
	if err := batch.Sweep(batchDir, mf, store); err != nil {
		return err
	}
	fmt.Println("batch cancelled and swept")
	return nil
}

func anyAlive(workers []runstate.WorkerEntry) bool {
	for _, w := range workers {
		if batch.Alive(w.PID) {
			return true
		}
	}
	return false
}
