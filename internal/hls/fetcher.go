package hls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"lecture-downloader/internal/runstate"
)

// ErrCancelled marks a fetch abandoned because the batch cancel flag fired.
// It is not a retryable failure and never reaches the error log.
var ErrCancelled = errors.New("download cancelled")

const (
	fetchAttempts  = 5
	fetchChunkSize = 1 << 20

	// Connection and header latency are bounded; body streaming is not. A
	// total-request deadline would turn every segment larger than
	// rate x deadline into a guaranteed permanent failure once the
	// bandwidth limiter (or a slow link) stretches the transfer.
	fetchDialTimeout   = 15 * time.Second
	fetchHeaderTimeout = 15 * time.Second
)

func newFetchClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: fetchDialTimeout,
			}).DialContext,
			ResponseHeaderTimeout: fetchHeaderTimeout,
		},
	}
}

// Fetcher downloads single segments to local files. Completed segments are
// never re-fetched: a destination that already exists is returned without any
// network access, which is what makes interrupted lectures resumable.
type Fetcher struct {
	Client  *http.Client
	Limiter *rate.Limiter
	Cancel  *runstate.CancelFlag

	// BackoffUnit is the base of the exponential retry sleep; it defaults to
	// one second and is overridden in tests.
	BackoffUnit time.Duration
}

func NewFetcher(cancel *runstate.CancelFlag, limitMBps float64) *Fetcher {
	f := &Fetcher{
		Client:      newFetchClient(),
		Cancel:      cancel,
		BackoffUnit: time.Second,
	}
	if limitMBps > 0 {
		bytesPerSecond := limitMBps * 1_000_000
		burst := fetchChunkSize
		if int(bytesPerSecond) > burst {
			burst = int(bytesPerSecond)
		}
		f.Limiter = rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
	}
	return f
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *Fetcher) cancelled() bool {
	return f.Cancel != nil && f.Cancel.IsSet()
}

// Fetch streams url into dest and returns dest. Up to five attempts with
// exponential backoff (1, 2, 4, 8, 16 seconds); cancellation returns
// ErrCancelled immediately, any other error means every attempt was
// exhausted and the segment is missing.
func (f *Fetcher) Fetch(url, dest string) (string, error) {
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if f.cancelled() {
			return "", ErrCancelled
		}
		err := f.fetchOnce(url, dest)
		if err == nil {
			return dest, nil
		}
		if errors.Is(err, ErrCancelled) {
			return "", ErrCancelled
		}
		lastErr = err
		if attempt < fetchAttempts-1 {
			unit := f.BackoffUnit
			if unit <= 0 {
				unit = time.Second
			}
			time.Sleep(unit << attempt)
		}
	}
	return "", fmt.Errorf("fetch %s after %d attempts: %w", url, fetchAttempts, lastErr)
}

func (f *Fetcher) fetchOnce(url, dest string) error {
	resp, err := f.client().Get(url)
	if err != nil {
		return fmt.Errorf("request segment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("request segment: unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".partial-*")
	if err != nil {
		return fmt.Errorf("create temp segment file: %w", err)
	}
	tmpPath := tmp.Name()
	discard := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	buf := make([]byte, fetchChunkSize)
	var written int64
	for {
		if f.cancelled() {
			discard()
			return ErrCancelled
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if f.Limiter != nil {
				_ = f.Limiter.WaitN(context.Background(), n)
			}
			if _, writeErr := tmp.Write(buf[:n]); writeErr != nil {
				discard()
				return fmt.Errorf("write temp segment file: %w", writeErr)
			}
			written += int64(n)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			discard()
			return fmt.Errorf("read segment body: %w", readErr)
		}
	}
	if written == 0 {
		discard()
		return fmt.Errorf("segment response was empty")
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp segment file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("atomic rename for %s: %w", dest, err)
	}
	return nil
}
