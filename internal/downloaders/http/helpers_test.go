package filedownhttp

import (
	"bytes"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tanq16/filedown/internal/utils"
)

// rangeServer serves content with range support. failures maps a Range header value to the
// number of GET requests for it that should fail with a 500 before it is served.
type rangeServer struct {
	*httptest.Server
	content  []byte
	gets     atomic.Int64
	jitter   bool
	mu       sync.Mutex
	failures map[string]int
}

func newRangeServer(t *testing.T, content []byte) *rangeServer {
	t.Helper()
	rs := &rangeServer{content: content, failures: make(map[string]int)}
	rs.Server = httptest.NewServer(http.HandlerFunc(rs.handle))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *rangeServer) failFor(rangeHeader string, times int) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.failures[rangeHeader] = times
}

func (rs *rangeServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		rs.gets.Add(1)
		rs.mu.Lock()
		remaining := rs.failures[r.Header.Get("Range")]
		if remaining > 0 {
			rs.failures[r.Header.Get("Range")] = remaining - 1
		}
		rs.mu.Unlock()
		if remaining > 0 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		if rs.jitter {
			time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
		}
	}
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(rs.content))
}

func testContent(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + i/251)
	}
	return data
}

func testClient() *utils.FiledownHTTPClient {
	return utils.NewFiledownHTTPClient(utils.HTTPClientConfig{Timeout: 5 * time.Second})
}

func allocateTemp(t *testing.T, size int64) *TargetFile {
	t.Helper()
	target, err := Allocate(t.TempDir()+"/out.bin", size)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	return target
}

func assertFileContent(t *testing.T, path string, expected []byte) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if !bytes.Equal(data, expected) {
		t.Fatalf("content mismatch: got %d bytes, expected %d", len(data), len(expected))
	}
}

// countingNotifier records every Notify call.
type countingNotifier struct {
	mu    sync.Mutex
	calls []int64
}

func (c *countingNotifier) Notify(bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, bytes)
}

func (c *countingNotifier) total() (sum int64, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range c.calls {
		sum += n
	}
	return sum, len(c.calls)
}

type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}
