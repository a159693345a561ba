package utils

import (
	"context"
	"fmt"
	"time"
)

type Downloader interface {
	Download(ctx context.Context, job *FiledownJob) error
	BuildJob(ctx context.Context, job *FiledownJob) error
	ValidateJob(ctx context.Context, job *FiledownJob) error
}

type FiledownJob struct {
	ID               string
	JobType          string
	URL              string
	OutputPath       string
	Connections      int
	ChunkSize        int64
	Attempts         int
	ProgressFunc     func(downloaded, total int64)
	Metadata         map[string]any
	HTTPClientConfig HTTPClientConfig
}

// ByteRange is the half-open span [Start, End) of the remote resource.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Len() int64 {
	return r.End - r.Start
}

// Header renders the range in the inclusive form used by the Range header.
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End-1)
}

func (r ByteRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End-1)
}

type DownloadTask struct {
	URL         string
	OutputPath  string
	TotalLength int64
	ChunkSize   int64
	Concurrency int
	Attempts    int
	Timeout     time.Duration
}

type ChunkResult struct {
	Range   ByteRange
	Written int64
	Attempt int
	Err     error
}

type DownloadEntry struct {
	OutputPath string `yaml:"op"`
	URL        string `yaml:"link"`
}
