package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tanq16/filedown/internal/utils"
)

type jobStatus string

const (
	statusPending jobStatus = "pending"
	statusActive  jobStatus = "active"
	statusSuccess jobStatus = "success"
	statusError   jobStatus = "error"
)

type jobOutput struct {
	index       int
	label       string
	status      jobStatus
	message     string
	downloaded  int64
	total       int64
	startTime   time.Time
	lastUpdated time.Time
	err         error
}

type ErrorReport struct {
	Label string
	Error error
	Time  time.Time
}

// Manager renders one line (plus a progress line) per registered job and redraws them on a
// ticker. Without a terminal it only prints the final state of each job.
type Manager struct {
	mutex       sync.RWMutex
	out         io.Writer
	jobs        map[int]*jobOutput
	jobCount    int
	errors      []ErrorReport
	numLines    int
	live        bool
	displayTick time.Duration
	doneCh      chan struct{}
	displayWg   sync.WaitGroup
}

func NewManager() *Manager {
	return &Manager{
		out:         os.Stdout,
		jobs:        make(map[int]*jobOutput),
		live:        IsTerminal(),
		displayTick: 300 * time.Millisecond,
		doneCh:      make(chan struct{}),
	}
}

// SetOutput replaces stdout and disables live redraws.
func (m *Manager) SetOutput(w io.Writer) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.out = w
	m.live = false
}

func (m *Manager) Live() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.live
}

func (m *Manager) RegisterJob(label string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.jobCount++
	m.jobs[m.jobCount] = &jobOutput{
		index:       m.jobCount,
		label:       label,
		status:      statusPending,
		startTime:   time.Now(),
		lastUpdated: time.Now(),
	}
	return m.jobCount
}

func (m *Manager) SetMessage(id int, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if job, exists := m.jobs[id]; exists {
		job.message = message
		job.lastUpdated = time.Now()
	}
}

func (m *Manager) SetLabel(id int, label string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if job, exists := m.jobs[id]; exists {
		job.label = label
	}
}

func (m *Manager) SetProgress(id int, downloaded, total int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if job, exists := m.jobs[id]; exists {
		if job.status == statusPending {
			job.status = statusActive
		}
		job.downloaded = downloaded
		job.total = total
		job.lastUpdated = time.Now()
	}
}

func (m *Manager) Complete(id int, message string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	job, exists := m.jobs[id]
	if !exists {
		return
	}
	if message == "" {
		message = fmt.Sprintf("Completed %s", job.label)
	}
	job.message = message
	job.status = statusSuccess
	job.lastUpdated = time.Now()
	if !m.live {
		fmt.Fprintf(m.out, "%s %s\n", indicator(job.status), successStyle.Render(message))
	}
}

func (m *Manager) ReportError(id int, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	job, exists := m.jobs[id]
	if !exists {
		return
	}
	job.status = statusError
	job.err = err
	job.lastUpdated = time.Now()
	m.errors = append(m.errors, ErrorReport{Label: job.label, Error: err, Time: time.Now()})
	if !m.live {
		fmt.Fprintf(m.out, "%s %s\n", indicator(job.status), errorStyle.Render(fmt.Sprintf("%s: %v", job.label, err)))
	}
}

func (m *Manager) Errors() []ErrorReport {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return append([]ErrorReport(nil), m.errors...)
}

func (m *Manager) Counts() (succeeded, failed, total int) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, job := range m.jobs {
		switch job.status {
		case statusSuccess:
			succeeded++
		case statusError:
			failed++
		}
	}
	return succeeded, failed, len(m.jobs)
}

func indicator(status jobStatus) string {
	switch status {
	case statusSuccess:
		return successStyle.Render(symbolPass)
	case statusError:
		return errorStyle.Render(symbolFail)
	case statusActive:
		return activeStyle.Render(symbolActive)
	default:
		return waitingStyle.Render(symbolBullet)
	}
}

func (m *Manager) sortedJobs() []*jobOutput {
	jobs := make([]*jobOutput, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].index < jobs[j].index
	})
	return jobs
}

func (m *Manager) updateDisplay() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	available := terminalHeight() - 3
	if m.numLines > 0 {
		fmt.Fprintf(m.out, "\033[%dA\033[J", m.numLines)
	}
	lines := 0
	for _, job := range m.sortedJobs() {
		if lines >= available {
			break
		}
		elapsed := time.Since(job.startTime).Round(time.Second)
		if job.status == statusSuccess || job.status == statusError {
			elapsed = job.lastUpdated.Sub(job.startTime).Round(time.Second)
		}
		message := job.message
		style := activeStyle
		switch job.status {
		case statusSuccess:
			style = successStyle
		case statusError:
			style = errorStyle
			message = fmt.Sprintf("%s: %v", job.label, job.err)
		case statusPending:
			if message == "" {
				message = "Waiting..."
			}
		}
		fmt.Fprintf(m.out, "  %s %s %s\n", indicator(job.status), elapsedStyle.Render(elapsed.String()), style.Render(message))
		lines++
		if job.status == statusActive && job.total > 0 && lines < available {
			speed := utils.FormatSpeed(job.downloaded, time.Since(job.startTime).Seconds())
			fmt.Fprintf(m.out, "%s%s\n", strings.Repeat(" ", 6), barStyle.Render(ProgressBarLine(job.downloaded, job.total, 30)+" "+symbolBullet+" "+speed))
			lines++
		}
	}
	m.numLines = lines
}

func (m *Manager) StartDisplay() {
	if !m.Live() {
		return
	}
	m.displayWg.Add(1)
	go func() {
		defer m.displayWg.Done()
		ticker := time.NewTicker(m.displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.updateDisplay()
			case <-m.doneCh:
				m.updateDisplay()
				return
			}
		}
	}()
}

func (m *Manager) StopDisplay() {
	close(m.doneCh)
	m.displayWg.Wait()
	m.ShowSummary()
}

func (m *Manager) ShowSummary() {
	succeeded, failed, total := m.Counts()
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  "+summaryStyle.Render(fmt.Sprintf("Completed %d of %d", succeeded, total)))
	if failed == 0 {
		fmt.Fprintln(m.out)
		return
	}
	fmt.Fprintln(m.out, "  "+errorStyle.Render(fmt.Sprintf("Failed %d of %d", failed, total)))
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "  "+errorStyle.Bold(true).Render("Errors:"))
	for i, report := range m.errors {
		fmt.Fprintf(m.out, "    %s %s %s\n",
			errorStyle.Render(fmt.Sprintf("%d.", i+1)),
			elapsedStyle.Render(fmt.Sprintf("[%s]", report.Time.Format("15:04:05"))),
			errorStyle.Render(report.Label))
		fmt.Fprintf(m.out, "      %s\n", errorStyle.Render(fmt.Sprintf("Error: %v", report.Error)))
	}
	fmt.Fprintln(m.out)
}
