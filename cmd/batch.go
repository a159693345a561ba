package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/filedown/internal/output"
	"github.com/tanq16/filedown/internal/scheduler"
	"github.com/tanq16/filedown/internal/utils"
)

const maxConnections = 64

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Download every entry of a YAML list",
		Long: `Download every entry of a YAML list, --workers at a time.

The file is a list of entries:
  - link: https://example.com/a.iso
    op: isos/a.iso
  - link: https://example.com/b.tar.gz`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if code := runBatch(args[0]); code != 0 {
				os.Exit(code)
			}
		},
	}
	return cmd
}

// runBatch downloads every entry of the list file and returns the process exit code.
func runBatch(listFile string) int {
	validateCounts()
	entries, err := utils.ReadDownloadList(listFile)
	if err != nil {
		output.PrintError(err.Error())
		return 1
	}
	if len(entries) == 0 {
		output.PrintError("No valid entries found in the batch file")
		return 1
	}
	connectionsPerLink := connections
	if workers*connectionsPerLink > maxConnections {
		connectionsPerLink = max(maxConnections/workers, 1)
		output.PrintWarning(fmt.Sprintf("Limiting to %d connections per download (%d total)", connectionsPerLink, maxConnections))
	}
	output.PrintHeader(fmt.Sprintf("Downloading %d file(s) with %d worker(s)", len(entries), workers))
	jobs := make([]utils.FiledownJob, 0, len(entries))
	for _, entry := range entries {
		job := newJob(entry.URL, entry.OutputPath)
		job.Connections = connectionsPerLink
		jobs = append(jobs, job)
	}
	ctx, cancel := signalContext()
	defer cancel()
	if err := scheduler.Run(ctx, jobs, workers, fileLog); err != nil {
		fmt.Println()
		output.PrintError("Encountered failed operation(s)")
		return 1
	}
	return 0
}
