package filedownhttp

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/filedown/internal/utils"
)

type Result struct {
	Path    string
	Size    int64
	Chunks  int
	Retries int
	Reused  bool
	Elapsed time.Duration
}

// Download probes the URL, allocates the target and fetches every chunk. The returned error
// wraps utils.ErrProbe, utils.ErrUnknownLength, utils.ErrAllocation or is a *utils.ChunkFailure.
func Download(ctx context.Context, client utils.HTTPDoer, task utils.DownloadTask, progress ProgressFunc) (*Result, error) {
	probe, err := Probe(ctx, client, task.URL)
	if err != nil {
		return nil, err
	}
	return Transfer(ctx, client, task, probe, progress)
}

// Transfer runs the chunked download for an already probed resource.
func Transfer(ctx context.Context, client utils.HTTPDoer, task utils.DownloadTask, probe ProbeResult, progress ProgressFunc) (*Result, error) {
	startTime := time.Now()
	task = withDefaults(task, probe)
	target, err := Allocate(task.OutputPath, task.TotalLength)
	if err != nil {
		return nil, err
	}
	ranges, err := PlanChunks(task.TotalLength, task.ChunkSize)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("op", "http/download").Str("output", target.Path).Int("chunks", len(ranges)).Int("connections", task.Concurrency).Str("chunkSize", utils.FormatBytes(uint64(task.ChunkSize))).Msg("Download divided into chunks")

	aggregator := NewAggregator(task.TotalLength, len(ranges), progress)
	aggregator.Start()
	workers := make([]*Worker, min(task.Concurrency, len(ranges)))
	for i := range workers {
		workers[i] = NewWorker(client, task.URL, target, task.Timeout)
	}
	pool := NewPool(workers, task.Attempts, utils.DefaultRetryBackoff, aggregator)
	poolResult, err := pool.Run(ctx, ranges)
	aggregator.Close()

	result := &Result{
		Path:    target.Path,
		Size:    target.Size,
		Chunks:  poolResult.Chunks,
		Retries: poolResult.Retries,
		Reused:  target.Reused,
		Elapsed: time.Since(startTime),
	}
	if err != nil {
		return result, fmt.Errorf("download of %s incomplete: %w", target.Path, err)
	}
	if !aggregator.Complete() {
		done, total := aggregator.Snapshot()
		return result, fmt.Errorf("download of %s incomplete: %d of %d bytes written", target.Path, done, total)
	}
	log.Info().Str("op", "http/download").Str("output", target.Path).Int("retries", result.Retries).Msgf("Chunked download successful for %s", target.Path)
	return result, nil
}

func withDefaults(task utils.DownloadTask, probe ProbeResult) utils.DownloadTask {
	task.TotalLength = probe.Size
	if task.OutputPath == "" {
		task.OutputPath = probe.FileName
	}
	if task.OutputPath == "" {
		task.OutputPath = utils.OutputPathFromURL(task.URL)
	}
	if task.ChunkSize <= 0 {
		task.ChunkSize = utils.DefaultChunkSize
	}
	if task.Concurrency <= 0 {
		task.Concurrency = utils.DefaultConnections
	}
	if task.Attempts <= 0 {
		task.Attempts = utils.DefaultAttempts
	}
	if probe.RangesDisabled {
		// one whole-file request on a single worker
		task.ChunkSize = task.TotalLength
		task.Concurrency = 1
	}
	return task
}

type HTTPDownloader struct{}

// jobClient returns the client shared by every request of a job, so cookies set while
// resolving redirects or probing are sent with the chunk requests.
func jobClient(job *utils.FiledownJob) *utils.FiledownHTTPClient {
	if job.Metadata == nil {
		job.Metadata = make(map[string]any)
	}
	if client, ok := job.Metadata["client"].(*utils.FiledownHTTPClient); ok {
		return client
	}
	job.HTTPClientConfig.HighThreadMode = job.Connections > 5
	job.HTTPClientConfig.PoolSize = job.Connections
	client := utils.NewFiledownHTTPClient(job.HTTPClientConfig)
	job.Metadata["client"] = client
	return client
}

func (d *HTTPDownloader) ValidateJob(ctx context.Context, job *utils.FiledownJob) error {
	parsedURL, err := url.Parse(job.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)
	}
	finalURL, err := resolveRedirects(ctx, jobClient(job), job.URL)
	if err != nil {
		return err
	}
	job.URL = finalURL
	return nil
}

func (d *HTTPDownloader) BuildJob(ctx context.Context, job *utils.FiledownJob) error {
	probe, err := Probe(ctx, jobClient(job), job.URL)
	if err != nil {
		return err
	}
	if job.OutputPath == "" {
		job.OutputPath = probe.FileName
	}
	if job.OutputPath == "" {
		job.OutputPath = utils.OutputPathFromURL(job.URL)
	}
	job.Metadata["probe"] = probe
	job.Metadata["fileSize"] = probe.Size
	return nil
}

func (d *HTTPDownloader) Download(ctx context.Context, job *utils.FiledownJob) error {
	probe, ok := job.Metadata["probe"].(ProbeResult)
	if !ok {
		return fmt.Errorf("job for %s was not built", job.URL)
	}
	client := jobClient(job)
	defer client.CloseIdleConnections()

	task := utils.DownloadTask{
		URL:         job.URL,
		OutputPath:  job.OutputPath,
		ChunkSize:   job.ChunkSize,
		Concurrency: job.Connections,
		Attempts:    job.Attempts,
		Timeout:     job.HTTPClientConfig.Timeout,
	}
	result, err := Transfer(ctx, client, task, probe, job.ProgressFunc)
	if result != nil {
		job.Metadata["totalTime"] = result.Elapsed.Seconds()
		job.Metadata["retries"] = result.Retries
		job.Metadata["reused"] = result.Reused
		if err == nil && result.Elapsed > 0 {
			job.Metadata["downloadSpeed"] = float64(result.Size) / result.Elapsed.Seconds()
		}
	}
	return err
}
