package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestManagerNonLiveOutput(t *testing.T) {
	var buf bytes.Buffer
	mgr := NewManager()
	mgr.SetOutput(&buf)
	if mgr.Live() {
		t.Fatal("SetOutput should disable live mode")
	}

	first := mgr.RegisterJob("a.iso")
	second := mgr.RegisterJob("b.iso")
	mgr.SetProgress(first, 50, 100)
	mgr.Complete(first, "Completed a.iso (100 B)")
	mgr.ReportError(second, errors.New("bytes 0-99 failed after 3 attempt(s)"))

	mgr.StartDisplay()
	mgr.StopDisplay()

	succeeded, failed, total := mgr.Counts()
	if succeeded != 1 || failed != 1 || total != 2 {
		t.Errorf("unexpected counts: %d succeeded, %d failed, %d total", succeeded, failed, total)
	}
	out := buf.String()
	for _, want := range []string{"Completed a.iso (100 B)", "b.iso: bytes 0-99 failed", "Completed 1 of 2", "Failed 1 of 2", "Errors:"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if reports := mgr.Errors(); len(reports) != 1 || reports[0].Label != "b.iso" {
		t.Errorf("unexpected error reports: %+v", reports)
	}
}

func TestManagerIgnoresUnknownJobs(t *testing.T) {
	var buf bytes.Buffer
	mgr := NewManager()
	mgr.SetOutput(&buf)
	mgr.SetProgress(42, 1, 2)
	mgr.SetMessage(42, "nothing")
	mgr.Complete(42, "nothing")
	mgr.ReportError(42, errors.New("nothing"))
	if _, _, total := mgr.Counts(); total != 0 {
		t.Errorf("expected no jobs, got %d", total)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestProgressBarLine(t *testing.T) {
	line := ProgressBarLine(512, 1024, 10)
	if !strings.Contains(line, "50.0%") {
		t.Errorf("expected 50.0%%, got %q", line)
	}
	if strings.Count(line, symbolBarFill) != 5 {
		t.Errorf("expected 5 filled cells, got %q", line)
	}
	if !strings.Contains(line, "512 B / 1.00 KB") {
		t.Errorf("expected byte counts, got %q", line)
	}
	if over := ProgressBarLine(5000, 1024, 10); !strings.Contains(over, "100.0%") {
		t.Errorf("expected progress to be clamped, got %q", over)
	}
}
