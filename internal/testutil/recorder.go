package testutil

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// RecordingConn is an in-memory player connection that keeps everything sent to it
type RecordingConn struct {
	Addr string

	mu     sync.Mutex
	output strings.Builder
}

// NewRecordingConn creates a RecordingConn reporting addr as its remote address
func NewRecordingConn(addr string) *RecordingConn {
	return &RecordingConn{Addr: addr}
}

func (c *RecordingConn) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.output.WriteString(text)
	return nil
}

func (c *RecordingConn) Close() error {
	return nil
}

func (c *RecordingConn) RemoteAddr() string {
	return c.Addr
}

// Output returns everything sent so far
func (c *RecordingConn) Output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output.String()
}

// Count returns how many times substr was sent
func (c *RecordingConn) Count(substr string) int {
	return strings.Count(c.Output(), substr)
}

// WaitForCount blocks until substr was sent at least n times
func (c *RecordingConn) WaitForCount(t testing.TB, substr string, n int) {
	t.Helper()
	deadline := time.Now().Add(WaitTimeout)
	for c.Count(substr) < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d x %q, got:\n%s", n, substr, c.Output())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// WaitFor blocks until substr was sent
func (c *RecordingConn) WaitFor(t testing.TB, substr string) {
	t.Helper()
	c.WaitForCount(t, substr, 1)
}
