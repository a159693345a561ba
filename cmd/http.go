package cmd

import (
	u "net/url"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tanq16/filedown/internal/output"
	"github.com/tanq16/filedown/internal/scheduler"
	"github.com/tanq16/filedown/internal/utils"
)

func newHTTPCmd() *cobra.Command {
	var outputPath string
	var bar bool

	cmd := &cobra.Command{
		Use:   "http [URL] [--output OUTPUT_PATH]",
		Short: "Download a file via HTTP/HTTPS range requests",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if code := runHTTP(cmd, args[0], outputPath, bar); code != 0 {
				os.Exit(code)
			}
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path")
	cmd.Flags().BoolVar(&bar, "bar", false, "Show a single progress bar instead of the live job display")
	return cmd
}

// runHTTP downloads one URL and returns the process exit code.
func runHTTP(cmd *cobra.Command, url, outputPath string, bar bool) int {
	validateCounts()
	if _, err := u.Parse(url); err != nil {
		output.PrintError("Invalid URL format")
		return 1
	}
	job := newJob(url, outputPath)
	mgr := output.NewManager()
	if bar {
		reporter := output.NewBarReporter("Downloading")
		job.ProgressFunc = reporter.Update
		defer reporter.Finish()
		mgr.SetOutput(cmd.ErrOrStderr())
	}

	ctx, cancel := signalContext()
	defer cancel()
	if err := scheduler.RunWithManager(ctx, []utils.FiledownJob{job}, 1, fileLog, mgr); err != nil {
		output.PrintError("Encountered failed operation(s)")
		return 1
	}
	return 0
}

func newJob(url, outputPath string) utils.FiledownJob {
	return utils.FiledownJob{
		ID:               uuid.NewString(),
		JobType:          "http",
		URL:              url,
		OutputPath:       outputPath,
		Connections:      connections,
		ChunkSize:        parseChunkSize(),
		Attempts:         attempts,
		HTTPClientConfig: buildHTTPClientConfig(),
		Metadata:         make(map[string]any),
	}
}
