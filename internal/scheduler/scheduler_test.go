package scheduler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tanq16/filedown/internal/output"
	"github.com/tanq16/filedown/internal/utils"
)

func newTestJob(url, outputPath string) utils.FiledownJob {
	return utils.FiledownJob{
		JobType:          "http",
		URL:              url,
		OutputPath:       outputPath,
		Connections:      2,
		ChunkSize:        256,
		Attempts:         2,
		Metadata:         make(map[string]any),
		HTTPClientConfig: utils.HTTPClientConfig{Timeout: 5 * time.Second},
	}
}

func TestRunWithManager(t *testing.T) {
	content := bytes.Repeat([]byte("filedown"), 300)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
	}))
	defer server.Close()

	dir := t.TempDir()
	jobs := []utils.FiledownJob{
		newTestJob(server.URL+"/one.bin", filepath.Join(dir, "one.bin")),
		newTestJob(server.URL+"/two.bin", filepath.Join(dir, "two.bin")),
		newTestJob(server.URL+"/missing", filepath.Join(dir, "missing.bin")),
		{JobType: "s3", URL: "s3://bucket/key"},
	}

	var buf bytes.Buffer
	mgr := output.NewManager()
	mgr.SetOutput(&buf)
	err := RunWithManager(context.Background(), jobs, 2, false, mgr)
	if err == nil || !strings.Contains(err.Error(), "2 of 4") {
		t.Fatalf("expected 2 of 4 failures, got %v", err)
	}
	for _, name := range []string{"one.bin", "two.bin"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing output %s: %v", name, err)
		}
		if !bytes.Equal(data, content) {
			t.Errorf("%s content mismatch", name)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "missing.bin")); !os.IsNotExist(err) {
		t.Error("expected no file for the missing URL")
	}
	if !strings.Contains(buf.String(), "unknown job type: s3") {
		t.Errorf("expected an unknown job type error, got:\n%s", buf.String())
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	mgr := output.NewManager()
	mgr.SetOutput(&buf)
	jobs := []utils.FiledownJob{newTestJob("http://127.0.0.1:1/file", filepath.Join(t.TempDir(), "file"))}
	if err := RunWithManager(ctx, jobs, 1, false, mgr); err == nil {
		t.Fatal("expected an error for a cancelled run")
	}
	if !strings.Contains(buf.String(), "context canceled") {
		t.Errorf("expected the cancellation to be reported, got:\n%s", buf.String())
	}
}

func TestRunWithManagerSharedOutputPath(t *testing.T) {
	newServer := func(fill byte) *httptest.Server {
		content := bytes.Repeat([]byte{fill}, 200_000)
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
		}))
	}
	serverA, serverB := newServer('A'), newServer('B')
	defer serverA.Close()
	defer serverB.Close()

	dir := t.TempDir()
	shared := filepath.Join(dir, "shared.bin")
	jobs := []utils.FiledownJob{
		newTestJob(serverA.URL+"/shared.bin", shared),
		newTestJob(serverB.URL+"/shared.bin", shared),
	}
	for i := range jobs {
		jobs[i].ChunkSize = 10_000
	}

	var buf bytes.Buffer
	mgr := output.NewManager()
	mgr.SetOutput(&buf)
	if err := RunWithManager(context.Background(), jobs, 2, false, mgr); err != nil {
		t.Fatalf("RunWithManager failed: %v\n%s", err, buf.String())
	}

	renamed := filepath.Join(dir, "shared-(1).bin")
	seen := map[byte]bool{}
	for _, path := range []string{shared, renamed} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("missing output %s: %v", path, err)
		}
		if len(data) != 200_000 {
			t.Fatalf("%s has %d bytes, expected 200000", path, len(data))
		}
		if n := bytes.Count(data, data[:1]); n != len(data) {
			t.Errorf("%s mixes two resources: only %d of %d bytes are %q", path, n, len(data), data[0])
		}
		seen[data[0]] = true
	}
	if !seen['A'] || !seen['B'] {
		t.Errorf("expected one file per resource, got %v", seen)
	}
}

func TestLogsToFile(t *testing.T) {
	tests := []struct {
		fileLog, live, expected bool
	}{
		{false, false, false},
		{true, false, true},
		{false, true, true},
		{true, true, true},
	}
	for _, tt := range tests {
		if got := logsToFile(tt.fileLog, tt.live); got != tt.expected {
			t.Errorf("logsToFile(%v, %v) = %v, expected %v", tt.fileLog, tt.live, got, tt.expected)
		}
	}
}

func TestRunWithManagerWritesLogFile(t *testing.T) {
	content := bytes.Repeat([]byte("log"), 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
	}))
	defer server.Close()
	dir := t.TempDir()
	prevDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prevDir) })

	var buf bytes.Buffer
	mgr := output.NewManager()
	mgr.SetOutput(&buf)
	jobs := []utils.FiledownJob{newTestJob(server.URL+"/file.bin", "file.bin")}
	if err := RunWithManager(context.Background(), jobs, 1, true, mgr); err != nil {
		t.Fatalf("RunWithManager failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, utils.LogFile))
	if err != nil {
		t.Fatalf("expected a log file: %v", err)
	}
	if !strings.Contains(string(data), "Download complete") {
		t.Errorf("expected job logs in the log file, got %q", data)
	}
}
