// Package cli dispatches subcommands and owns everything user-facing:
// flag parsing, usage text, and output formatting.
package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "download":
		return runDownload(args[1:])
	case "worker":
		return runWorker(args[1:])
	case "status":
		return runStatus(args[1:])
	case "cancel":
		return runCancel(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("lecture-downloader: parallel HLS lecture video downloader")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  lecture-downloader doctor")
	fmt.Println("  lecture-downloader download --jobs lectures.json --output-dir ./videos")
	fmt.Println("  lecture-downloader status --watch")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  download  download a batch of lectures in parallel worker processes")
	fmt.Println("  status    show per-lecture and aggregate progress")
	fmt.Println("  cancel    cancel a running batch, kill its workers, sweep its files")
	fmt.Println("  doctor    run dependency and filesystem preflight checks")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Jobs are {\"display_name\": ..., \"playlist_url\": ...} pairs, either as a")
	fmt.Println("    JSON file (--jobs) or positional name=url arguments")
	fmt.Println("  - Use --json on status for machine-readable output")
	fmt.Println("  - A leftover <video>.mp4.lock after a failed run blocks retries until removed;")
	fmt.Println("    doctor lists them with their age")
}
