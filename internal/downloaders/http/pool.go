package filedownhttp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/filedown/internal/utils"
	"golang.org/x/sync/errgroup"
)

type Notifier interface {
	Notify(bytes int64)
}

type PoolResult struct {
	Written int64
	Chunks  int
	Retries int
}

type Pool struct {
	workers      []*Worker
	attempts     int
	retryBackoff time.Duration
	progress     Notifier
}

type pendingChunk struct {
	rng     utils.ByteRange
	attempt int
}

func NewPool(workers []*Worker, attempts int, retryBackoff time.Duration, progress Notifier) *Pool {
	if attempts <= 0 {
		attempts = utils.DefaultAttempts
	}
	return &Pool{
		workers:      workers,
		attempts:     attempts,
		retryBackoff: retryBackoff,
		progress:     progress,
	}
}

// Run blocks until every range is written, or until one range exhausts its attempts, in
// which case the remaining ranges are discarded and a *utils.ChunkFailure is returned.
func (p *Pool) Run(ctx context.Context, ranges []utils.ByteRange) (PoolResult, error) {
	if len(ranges) == 0 {
		return PoolResult{}, nil
	}
	if len(p.workers) == 0 {
		return PoolResult{}, errors.New("worker pool has no workers")
	}

	// every range is either queued or in flight, so the buffer never fills
	queue := make(chan pendingChunk, len(ranges))
	for _, rng := range ranges {
		queue <- pendingChunk{rng: rng, attempt: 1}
	}
	var remaining, written, retries atomic.Int64
	remaining.Store(int64(len(ranges)))

	g, gctx := errgroup.WithContext(ctx)
	for id, worker := range p.workers {
		id, worker := id, worker
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case item, ok := <-queue:
					if !ok {
						return nil
					}
					result := worker.FetchAndWrite(gctx, item.rng, item.attempt)
					if result.Err == nil {
						written.Add(result.Written)
						if p.progress != nil {
							p.progress.Notify(result.Written)
						}
						if remaining.Add(-1) == 0 {
							close(queue)
						}
						continue
					}
					if gctx.Err() != nil {
						return gctx.Err()
					}
					if errors.Is(result.Err, utils.ErrRedirectEncountered) || item.attempt >= p.attempts {
						log.Error().Str("op", "http/pool").Int("worker", id).Str("range", item.rng.String()).Err(result.Err).Msg("Chunk failed")
						return &utils.ChunkFailure{Range: item.rng, Attempts: item.attempt, Err: result.Err}
					}
					log.Warn().Str("op", "http/pool").Int("worker", id).Str("range", item.rng.String()).Err(result.Err).Msgf("Retrying chunk (attempt %d/%d)", item.attempt+1, p.attempts)
					if err := p.wait(gctx, item.attempt); err != nil {
						return err
					}
					retries.Add(1)
					queue <- pendingChunk{rng: item.rng, attempt: item.attempt + 1}
				}
			}
		})
	}

	err := g.Wait()
	result := PoolResult{
		Written: written.Load(),
		Chunks:  len(ranges) - int(remaining.Load()),
		Retries: int(retries.Load()),
	}
	if err != nil {
		var failure *utils.ChunkFailure
		if errors.As(err, &failure) {
			return result, failure
		}
		return result, fmt.Errorf("download aborted: %w", err)
	}
	return result, nil
}

// wait sleeps retryBackoff*attempt scaled by a random factor in [0.5, 1.5).
func (p *Pool) wait(ctx context.Context, attempt int) error {
	if p.retryBackoff <= 0 {
		return nil
	}
	delay := time.Duration(float64(p.retryBackoff*time.Duration(attempt)) * (0.5 + rand.Float64()))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
