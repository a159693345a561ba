package filedownhttp

import (
	"sync/atomic"
	"time"
)

type ProgressFunc func(downloaded, total int64)

// Aggregator sums per-chunk completions from all workers. Its consumer goroutine is the only
// writer of the running total; Snapshot may be called from anywhere.
type Aggregator struct {
	total    int64
	done     atomic.Int64
	events   chan int64
	report   ProgressFunc
	interval time.Duration
	finished chan struct{}
}

// NewAggregator sizes the event buffer to capacity (the number of chunks) so Notify never blocks.
func NewAggregator(total int64, capacity int, report ProgressFunc) *Aggregator {
	return &Aggregator{
		total:    total,
		events:   make(chan int64, max(capacity, 1)),
		report:   report,
		interval: 100 * time.Millisecond,
		finished: make(chan struct{}),
	}
}

func (a *Aggregator) Start() {
	go a.consume()
}

func (a *Aggregator) Notify(bytes int64) {
	a.events <- bytes
}

func (a *Aggregator) Snapshot() (downloaded, total int64) {
	return a.done.Load(), a.total
}

// Done is closed once the consumer stops, either at the total or after Close.
func (a *Aggregator) Done() <-chan struct{} {
	return a.finished
}

func (a *Aggregator) Complete() bool {
	return a.done.Load() == a.total
}

// Close stops intake and waits for the final report. No Notify may follow.
func (a *Aggregator) Close() {
	close(a.events)
	<-a.finished
}

func (a *Aggregator) consume() {
	defer close(a.finished)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	lastReported := int64(-1)
	for {
		select {
		case bytes, ok := <-a.events:
			if !ok {
				a.emit()
				return
			}
			if a.done.Add(bytes) >= a.total {
				a.emit()
				return
			}
		case <-ticker.C:
			// Periodic update for smooth progress display
			if current := a.done.Load(); current != lastReported {
				a.emit()
				lastReported = current
			}
		}
	}
}

func (a *Aggregator) emit() {
	if a.report != nil {
		a.report(a.done.Load(), a.total)
	}
}
