package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"lecture-downloader/internal/config"
	"lecture-downloader/internal/ffmpeg"
	"lecture-downloader/internal/runstate"
)

type doctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type doctorResult struct {
	OK     bool          `json:"ok"`
	Checks []doctorCheck `json:"checks"`
	Locks  []string      `json:"locks,omitempty"`
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	outputDir := fs.String("output-dir", ".", "output directory to check")
	tmpDir := fs.String("tmp-dir", "", "working directory to check (default: system temp)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings := config.Settings{OutputDir: *outputDir, TmpDir: *tmpDir}.Normalize()
	res := doctorResult{OK: true}
	add := func(name string, ok bool, message string) {
		res.Checks = append(res.Checks, doctorCheck{Name: name, OK: ok, Message: message})
		if !ok {
			res.OK = false
		}
	}

	if report := ffmpeg.DependencyStatus(); report.FFmpegFound {
		add("ffmpeg", true, report.FFmpegPath)
	} else {
		add("ffmpeg", false, "not found on PATH")
	}
	add("output-dir", dirWritable(settings.OutputDir), settings.OutputDir)
	add("tmp-dir", dirWritable(settings.TmpDir), settings.TmpDir)

	locks, err := runstate.FindLocks(settings.OutputDir)
	if err != nil {
		return err
	}
	for _, l := range locks {
		age := humanize.RelTime(time.Now().Add(-l.Age), time.Now(), "old", "")
		res.Locks = append(res.Locks, fmt.Sprintf("%s (%s)", l.Path, age))
	}

	if *jsonOut {
		return printJSON(res)
	}
	for _, c := range res.Checks {
		status := "ok"
		if !c.OK {
			status = "fail"
		}
		fmt.Printf("%s: %s (%s)\n", c.Name, status, c.Message)
	}
	if len(res.Locks) > 0 {
		fmt.Println("leftover output locks (remove after inspecting, they block retries):")
		for _, l := range res.Locks {
			fmt.Printf("  %s\n", l)
		}
	}
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Println("doctor: all checks passed")
	return nil
}

func dirWritable(dir string) bool {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return false
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(filepath.Clean(name))
	return true
}
