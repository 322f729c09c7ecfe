package hls

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"lecture-downloader/internal/model"
	"lecture-downloader/internal/runstate"
)

// PoolConcurrency is the fixed number of parallel segment fetches per
// lecture, independent of how many segments the manifest lists.
const PoolConcurrency = 16

type segmentFetcher interface {
	Fetch(url, dest string) (string, error)
}

// Pool downloads every segment of one lecture with bounded concurrency and
// absorbs per-segment failures: a partial video beats no video, and the gaps
// are journaled in the error log.
type Pool struct {
	Fetcher  segmentFetcher
	WorkDir  string
	Lecture  string
	ErrorLog *runstate.ErrorLog

	// OnSegment fires after each successful fetch with the running completion
	// count; workers push it straight into the progress store.
	OnSegment func(done, total int)

	// Workers overrides PoolConcurrency in tests.
	Workers int
}

// Download fetches all segments and returns the local paths of the ones that
// succeeded plus the number missing. The returned order is completion order;
// callers sort by filename (== manifest order) before muxing.
func (p *Pool) Download(segments []model.Segment) ([]string, int) {
	workers := p.Workers
	if workers <= 0 {
		workers = PoolConcurrency
	}

	jobs := make(chan model.Segment)
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		paths = make([]string, 0, len(segments))
		done  int
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range jobs {
				dest := filepath.Join(p.WorkDir, seg.LocalName())
				path, err := p.Fetcher.Fetch(seg.URL, dest)
				if err != nil {
					if errors.Is(err, ErrCancelled) {
						continue
					}
					if p.ErrorLog != nil {
						_ = p.ErrorLog.Append(p.Lecture, fmt.Sprintf("segment %d failed: %v", seg.Index, err))
					}
					continue
				}

				mu.Lock()
				paths = append(paths, path)
				done++
				current := done
				mu.Unlock()

				if p.OnSegment != nil {
					p.OnSegment(current, len(segments))
				}
			}
		}()
	}

	for _, seg := range segments {
		jobs <- seg
	}
	close(jobs)
	wg.Wait()

	return paths, len(segments) - len(paths)
}
