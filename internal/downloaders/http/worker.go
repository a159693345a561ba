package filedownhttp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/filedown/internal/utils"
)

const workerBufferSize = 256 * 1024

// Worker fetches one range at a time and writes it into the target file. A Worker is not
// safe for concurrent use; the pool owns one per slot.
type Worker struct {
	client  utils.HTTPDoer
	url     string
	target  *TargetFile
	timeout time.Duration
	buf     []byte
}

func NewWorker(client utils.HTTPDoer, url string, target *TargetFile, timeout time.Duration) *Worker {
	return &Worker{
		client:  client,
		url:     url,
		target:  target,
		timeout: timeout,
		buf:     make([]byte, workerBufferSize),
	}
}

// FetchAndWrite performs one attempt for rng. On success Written equals rng.Len().
func (w *Worker) FetchAndWrite(ctx context.Context, rng utils.ByteRange, attempt int) utils.ChunkResult {
	result := utils.ChunkResult{Range: rng, Attempt: attempt}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	written, err := w.fetch(ctx, rng)
	if err != nil {
		result.Err = err
		return result
	}
	result.Written = written
	return result
}

func (w *Worker) fetch(ctx context.Context, rng utils.ByteRange) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: error creating request: %v", utils.ErrChunkTransient, err)
	}
	req.Header.Set("Range", rng.Header())
	req.Header.Set("Connection", "keep-alive")
	resp, err := w.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", utils.ErrChunkTransient, err)
	}
	defer resp.Body.Close()
	if err := w.checkResponse(resp, rng); err != nil {
		return 0, err
	}
	return w.writeAt(resp.Body, rng)
}

func (w *Worker) checkResponse(resp *http.Response, rng utils.ByteRange) error {
	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return fmt.Errorf("%w: status %d to %q", utils.ErrRedirectEncountered, resp.StatusCode, resp.Header.Get("Location"))
	case resp.StatusCode == http.StatusPartialContent:
		contentRange := resp.Header.Get("Content-Range")
		if contentRange == "" {
			return nil
		}
		start, end, total, err := parseContentRange(contentRange)
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrChunkTransient, err)
		}
		if start != rng.Start || end != rng.End-1 {
			return fmt.Errorf("%w: server sent bytes %d-%d for requested %s", utils.ErrChunkTransient, start, end, rng)
		}
		// the resource changed size after the probe
		if total >= 0 && total != w.target.Size {
			return fmt.Errorf("%w: server reports %d total bytes, expected %d", utils.ErrChunkTransient, total, w.target.Size)
		}
		return nil
	case resp.StatusCode == http.StatusOK:
		// a full-body response is only the requested range when the range is the whole file
		if rng.Start == 0 && rng.End == w.target.Size {
			return nil
		}
		return fmt.Errorf("%w: server ignored range request", utils.ErrChunkTransient)
	default:
		return fmt.Errorf("%w: unexpected status code: %d", utils.ErrChunkTransient, resp.StatusCode)
	}
}

// writeAt opens the target for this chunk only, so workers never share a file handle.
func (w *Worker) writeAt(body io.Reader, rng utils.ByteRange) (int64, error) {
	f, err := os.OpenFile(w.target.Path, os.O_WRONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: error opening target file: %v", utils.ErrChunkTransient, err)
	}
	defer f.Close()

	written, err := io.CopyBuffer(io.NewOffsetWriter(f, rng.Start), io.LimitReader(body, rng.Len()), w.buf)
	if err != nil {
		return written, fmt.Errorf("%w: error writing bytes %s: %v", utils.ErrChunkTransient, rng, err)
	}
	if written != rng.Len() {
		return written, fmt.Errorf("%w: size mismatch: expected %d bytes, got %d", utils.ErrChunkTransient, rng.Len(), written)
	}
	if err := f.Close(); err != nil {
		return written, fmt.Errorf("%w: error closing target file: %v", utils.ErrChunkTransient, err)
	}
	log.Debug().Str("op", "http/worker").Str("range", rng.String()).Int64("bytes", written).Msg("Chunk written")
	return written, nil
}

// parseContentRange parses "bytes start-end/total"; total is -1 when the server sends "*".
func parseContentRange(header string) (start, end, total int64, err error) {
	header = strings.TrimPrefix(strings.TrimSpace(header), "bytes ")
	span, size, ok := strings.Cut(header, "/")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	first, last, ok := strings.Cut(span, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}
	if start, err = strconv.ParseInt(first, 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
	}
	if end, err = strconv.ParseInt(last, 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
	}
	if size == "*" {
		return start, end, -1, nil
	}
	if total, err = strconv.ParseInt(size, 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
	}
	return start, end, total, nil
}
