package model

import (
	"fmt"
	"strings"
)

// LectureJob identifies one video to acquire. Jobs come from the scraper as
// (display name, playlist URL) pairs; each job is consumed by exactly one
// worker process.
type LectureJob struct {
	DisplayName string `json:"display_name"`
	PlaylistURL string `json:"playlist_url"`
}

func (j LectureJob) Validate() error {
	if strings.TrimSpace(j.DisplayName) == "" {
		return fmt.Errorf("lecture display name is required")
	}
	if strings.TrimSpace(j.PlaylistURL) == "" {
		return fmt.Errorf("playlist URL is required for %q", j.DisplayName)
	}
	return nil
}

// OutputName returns the filesystem-safe filename the finished video is
// published under.
func (j LectureJob) OutputName() string {
	return SanitizeFilename(j.DisplayName) + ".mp4"
}

// SanitizeFilename replaces every character that is illegal or risky in a
// filename (\ / : * ? " < > | and all runes at or below 0x20) with an
// underscore.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r <= 0x20 || strings.ContainsRune(`\/:*?"<>|`, r) {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Segment is one fetch unit of a lecture stream. Index is the position in
// manifest order and the ordering key for reassembly.
type Segment struct {
	Index int
	URL   string
}

// LocalName returns the zero-padded segment filename. The padding is fixed
// width so lexical order of the names equals manifest order.
func (s Segment) LocalName() string {
	return fmt.Sprintf("%05d.ts", s.Index)
}
