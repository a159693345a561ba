package output

import "github.com/schollz/progressbar/v3"

// BarReporter drives a single byte-count progress bar for one download.
type BarReporter struct {
	description string
	bar         *progressbar.ProgressBar
	last        int64
}

func NewBarReporter(description string) *BarReporter {
	return &BarReporter{description: description}
}

// Update matches the downloader's progress callback; it is called from a single goroutine.
func (b *BarReporter) Update(downloaded, total int64) {
	if b.bar == nil {
		b.bar = progressbar.DefaultBytes(total, b.description)
	}
	if delta := downloaded - b.last; delta > 0 {
		_ = b.bar.Add64(delta)
		b.last = downloaded
	}
}

func (b *BarReporter) Finish() {
	if b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}
