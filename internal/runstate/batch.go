package runstate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	batchesDirName    = "batches"
	batchManifestName = "batch.json"
)

// BatchManifest is the control record for one download batch, persisted in
// the batch directory. It carries everything a separate process needs to
// observe or cancel the batch: the spawned workers' process IDs, their lock
// paths, and their working directories.
type BatchManifest struct {
	BatchID     string        `json:"batch_id"`
	CreatedAt   string        `json:"created_at"`
	OutputDir   string        `json:"output_dir"`
	TmpDir      string        `json:"tmp_dir"`
	MaxParallel int           `json:"max_parallel"`
	Workers     []WorkerEntry `json:"workers,omitempty"`
}

// WorkerEntry records one spawned worker process. PID doubles as the process
// group ID because workers are started in their own group, so killing -PID
// takes the worker's ffmpeg children with it.
type WorkerEntry struct {
	Lecture  string `json:"lecture"`
	PID      int    `json:"pid"`
	LockPath string `json:"lock_path"`
	WorkDir  string `json:"work_dir"`
}

func BatchesDir(tmpDir string) string {
	return filepath.Join(tmpDir, batchesDirName)
}

// NewBatchDir creates a fresh batch control directory. The directory name is
// prefixed with a sortable timestamp so "latest batch" is a lexical question.
func NewBatchDir(tmpDir string) (string, string, error) {
	id := uuid.NewString()
	name := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102T150405"), id[:8])
	dir := filepath.Join(BatchesDir(tmpDir), name)
	if err := Mkdir(dir); err != nil {
		return "", "", err
	}
	return dir, id, nil
}

func BatchManifestPath(batchDir string) string {
	return filepath.Join(batchDir, batchManifestName)
}

func LoadBatchManifest(batchDir string) (BatchManifest, error) {
	var mf BatchManifest
	if err := ReadJSON(BatchManifestPath(batchDir), &mf); err != nil {
		return BatchManifest{}, err
	}
	return mf, nil
}

func SaveBatchManifest(batchDir string, mf BatchManifest) error {
	return WriteJSON(BatchManifestPath(batchDir), mf)
}

func ListBatchDirs(tmpDir string) ([]string, error) {
	root := BatchesDir(tmpDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read batches directory %s: %w", root, err)
	}
	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

func LatestBatchDir(tmpDir string) (string, error) {
	dirs, err := ListBatchDirs(tmpDir)
	if err != nil {
		return "", err
	}
	if len(dirs) == 0 {
		return "", fmt.Errorf("no batch directories found under %s", BatchesDir(tmpDir))
	}
	return dirs[len(dirs)-1], nil
}

// FindBatchDir resolves a batch by its ID prefix, or the latest batch when id
// is empty.
func FindBatchDir(tmpDir, id string) (string, error) {
	if id == "" {
		return LatestBatchDir(tmpDir)
	}
	dirs, err := ListBatchDirs(tmpDir)
	if err != nil {
		return "", err
	}
	for _, dir := range dirs {
		mf, err := LoadBatchManifest(dir)
		if err != nil {
			continue
		}
		if mf.BatchID == id || (len(id) >= 8 && strings.HasPrefix(mf.BatchID, id)) {
			return dir, nil
		}
	}
	return "", fmt.Errorf("no batch with id %q under %s", id, BatchesDir(tmpDir))
}
