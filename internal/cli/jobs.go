package cli

import (
	"fmt"
	"strings"

	"lecture-downloader/internal/model"
	"lecture-downloader/internal/runstate"
)

// collectJobs merges the --jobs file (the scraper's JSON output) with any
// positional name=url arguments, in that order.
func collectJobs(jobsPath string, args []string) ([]model.LectureJob, error) {
	var jobs []model.LectureJob

	if strings.TrimSpace(jobsPath) != "" {
		var fromFile []model.LectureJob
		if err := runstate.ReadJSON(jobsPath, &fromFile); err != nil {
			return nil, fmt.Errorf("load jobs file: %w", err)
		}
		jobs = append(jobs, fromFile...)
	}

	for _, arg := range args {
		name, url, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(url) == "" {
			return nil, fmt.Errorf("invalid job argument %q: expected name=url", arg)
		}
		jobs = append(jobs, model.LectureJob{
			DisplayName: strings.TrimSpace(name),
			PlaylistURL: strings.TrimSpace(url),
		})
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("no jobs given: pass --jobs <file> or name=url arguments")
	}
	for _, j := range jobs {
		if err := j.Validate(); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}
