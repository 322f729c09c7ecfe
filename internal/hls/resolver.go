// Package hls turns a lecture's playlist URL into a directory of local
// segment files: manifest resolution, single-segment fetch with retries, and
// the bounded-concurrency download pool.
package hls

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/grafov/m3u8"

	"lecture-downloader/internal/model"
)

const (
	resolverTimeout = 15 * time.Second

	// A master playlist may point at another master; don't chase forever.
	maxVariantHops = 3
)

// Resolver fetches and parses a playlist into the ordered segment list for
// one lecture. Any network or parse error aborts the whole lecture job; a
// partial manifest is never acted on.
type Resolver struct {
	Client *http.Client
}

func (r *Resolver) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return &http.Client{Timeout: resolverTimeout}
}

func (r *Resolver) Resolve(playlistURL string) ([]model.Segment, error) {
	return r.resolve(playlistURL, 0)
}

func (r *Resolver) resolve(playlistURL string, hops int) ([]model.Segment, error) {
	if hops >= maxVariantHops {
		return nil, fmt.Errorf("playlist %s: too many variant redirections", playlistURL)
	}
	base, err := url.Parse(playlistURL)
	if err != nil {
		return nil, fmt.Errorf("parse playlist URL %s: %w", playlistURL, err)
	}

	resp, err := r.client().Get(playlistURL)
	if err != nil {
		return nil, fmt.Errorf("request playlist %s: %w", playlistURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request playlist %s: unexpected status %s", playlistURL, resp.Status)
	}

	playlist, listType, err := m3u8.DecodeFrom(resp.Body, true)
	if err != nil {
		return nil, fmt.Errorf("decode playlist %s: %w", playlistURL, err)
	}

	switch listType {
	case m3u8.MEDIA:
		media := playlist.(*m3u8.MediaPlaylist)
		segments := make([]model.Segment, 0, media.Count())
		for _, seg := range media.Segments {
			if seg == nil {
				continue
			}
			absolute, err := resolveURI(base, seg.URI)
			if err != nil {
				return nil, err
			}
			segments = append(segments, model.Segment{Index: len(segments), URL: absolute})
		}
		if len(segments) == 0 {
			return nil, fmt.Errorf("playlist %s contains no segments", playlistURL)
		}
		return segments, nil
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		variant := bestVariant(master.Variants)
		if variant == nil {
			return nil, fmt.Errorf("master playlist %s has no variants", playlistURL)
		}
		variantURL, err := resolveURI(base, variant.URI)
		if err != nil {
			return nil, err
		}
		return r.resolve(variantURL, hops+1)
	default:
		return nil, fmt.Errorf("playlist %s has unknown list type", playlistURL)
	}
}

// bestVariant picks the highest-bandwidth rendition of a master playlist.
func bestVariant(variants []*m3u8.Variant) *m3u8.Variant {
	var best *m3u8.Variant
	for _, v := range variants {
		if v == nil {
			continue
		}
		if best == nil || v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best
}

// resolveURI joins a manifest URI against the manifest's own URL unless it is
// already absolute.
func resolveURI(base *url.URL, uri string) (string, error) {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return uri, nil
	}
	ref, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse segment URI %q: %w", uri, err)
	}
	return base.ResolveReference(ref).String(), nil
}
