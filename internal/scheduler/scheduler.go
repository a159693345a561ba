package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	filedownhttp "github.com/tanq16/filedown/internal/downloaders/http"
	"github.com/tanq16/filedown/internal/output"
	"github.com/tanq16/filedown/internal/utils"
)

// downloaderRegistry maps job types to their respective downloader implementations
var downloaderRegistry = map[string]utils.Downloader{
	"http": &filedownhttp.HTTPDownloader{},
}

// Run executes every job on numWorkers goroutines and returns an error if any job failed.
func Run(ctx context.Context, jobs []utils.FiledownJob, numWorkers int, fileLog bool) error {
	return RunWithManager(ctx, jobs, numWorkers, fileLog, output.NewManager())
}

func RunWithManager(ctx context.Context, jobs []utils.FiledownJob, numWorkers int, fileLog bool, outputMgr *output.Manager) error {
	// console logs would tear the live display
	if logsToFile(fileLog, outputMgr.Live()) {
		restore, err := utils.RedirectLogsToFile(utils.LogFile)
		if err != nil {
			return err
		}
		defer restore()
	}
	outputMgr.StartDisplay()
	claims := &pathClaims{paths: make(map[string]bool)}

	jobCh := make(chan utils.FiledownJob, len(jobs))
	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)

	var wg sync.WaitGroup
	for n := max(numWorkers, 1); n > 0; n-- {
		wg.Add(1)
		go func() {
			defer wg.Done()
			processJobs(ctx, jobCh, outputMgr, claims)
		}()
	}
	wg.Wait()
	outputMgr.StopDisplay()

	if _, failed, total := outputMgr.Counts(); failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, total)
	}
	return nil
}

func logsToFile(fileLog, live bool) bool {
	return fileLog || live
}

// pathClaims hands each output path to at most one job of a run.
type pathClaims struct {
	mu    sync.Mutex
	paths map[string]bool
}

// claim returns outputPath if no other job holds it, otherwise a renamed free path.
func (c *pathClaims) claim(outputPath string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paths[claimKey(outputPath)] {
		outputPath = utils.RenewOutputPath(outputPath, func(candidate string) bool {
			return c.paths[claimKey(candidate)]
		})
	}
	c.paths[claimKey(outputPath)] = true
	return outputPath
}

func claimKey(outputPath string) string {
	if abs, err := filepath.Abs(outputPath); err == nil {
		return abs
	}
	return filepath.Clean(outputPath)
}

func processJobs(ctx context.Context, jobCh <-chan utils.FiledownJob, outputMgr *output.Manager, claims *pathClaims) {
	for job := range jobCh {
		label := job.OutputPath
		if label == "" {
			label = job.URL
		}
		jobID := outputMgr.RegisterJob(label)
		if ctx.Err() != nil {
			outputMgr.ReportError(jobID, ctx.Err())
			continue
		}
		downloader, exists := downloaderRegistry[job.JobType]
		if !exists {
			outputMgr.ReportError(jobID, fmt.Errorf("unknown job type: %s", job.JobType))
			continue
		}
		if job.Metadata == nil {
			job.Metadata = make(map[string]any)
		}
		logger := utils.GetLogger("scheduler").With().Str("job", job.ID).Logger()

		outputMgr.SetMessage(jobID, fmt.Sprintf("Validating %s", job.URL))
		if err := downloader.ValidateJob(ctx, &job); err != nil {
			logger.Error().Err(err).Msg("Validation failed")
			outputMgr.ReportError(jobID, fmt.Errorf("validation failed: %w", err))
			continue
		}

		outputMgr.SetMessage(jobID, fmt.Sprintf("Probing %s", job.URL))
		if err := downloader.BuildJob(ctx, &job); err != nil {
			logger.Error().Err(err).Msg("Build failed")
			outputMgr.ReportError(jobID, fmt.Errorf("build failed: %w", err))
			continue
		}
		if claimed := claims.claim(job.OutputPath); claimed != job.OutputPath {
			logger.Warn().Str("requested", job.OutputPath).Str("output", claimed).Msg("Output path already used by another job, renaming")
			job.OutputPath = claimed
		}
		outputMgr.SetLabel(jobID, job.OutputPath)

		outputMgr.SetMessage(jobID, fmt.Sprintf("Downloading %s", job.OutputPath))
		userProgress := job.ProgressFunc
		job.ProgressFunc = func(downloaded, total int64) {
			outputMgr.SetProgress(jobID, downloaded, total)
			if userProgress != nil {
				userProgress(downloaded, total)
			}
		}
		if err := downloader.Download(ctx, &job); err != nil {
			logger.Error().Err(err).Msg("Download failed")
			outputMgr.ReportError(jobID, err)
			continue
		}
		size, _ := job.Metadata["fileSize"].(int64)
		logger.Info().Str("output", job.OutputPath).Msg("Download complete")
		outputMgr.Complete(jobID, fmt.Sprintf("Completed %s (%s)", job.OutputPath, utils.FormatBytes(uint64(size))))
	}
}
