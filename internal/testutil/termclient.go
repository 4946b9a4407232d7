package testutil

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// WaitTimeout bounds every wait performed by a TermClient
const WaitTimeout = 3 * time.Second

// TermClient plays the part of a terminal user connected over a raw socket.
// Everything the server sends is accumulated and can be waited on.
type TermClient struct {
	conn net.Conn

	mu     sync.Mutex
	output strings.Builder
	closed chan struct{}
}

// NewTermClient starts reading from conn
func NewTermClient(conn net.Conn) *TermClient {
	c := &TermClient{conn: conn, closed: make(chan struct{})}
	go c.read()
	return c
}

// DialTermClient connects to a TCP address
func DialTermClient(t testing.TB, addr string) *TermClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, WaitTimeout)
	require.NoError(t, err)
	c := NewTermClient(conn)
	t.Cleanup(c.Close)
	return c
}

func (c *TermClient) read() {
	defer close(c.closed)
	buf := make([]byte, 1024)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.output.Write(buf[:n])
			c.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Send writes a line terminated by a newline
func (c *TermClient) Send(t testing.TB, line string) {
	t.Helper()
	c.SendRaw(t, []byte(line+"\n"))
}

// SendRaw writes bytes as they are
func (c *TermClient) SendRaw(t testing.TB, data []byte) {
	t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(WaitTimeout))
	_, err := c.conn.Write(data)
	require.NoError(t, err)
}

// Output returns everything received so far
func (c *TermClient) Output() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output.String()
}

// Count returns how many times substr was received
func (c *TermClient) Count(substr string) int {
	return strings.Count(c.Output(), substr)
}

// WaitFor blocks until substr has been received at least once
func (c *TermClient) WaitFor(t testing.TB, substr string) {
	t.Helper()
	c.WaitForCount(t, substr, 1)
}

// WaitForCount blocks until substr has been received n times
func (c *TermClient) WaitForCount(t testing.TB, substr string, n int) {
	t.Helper()
	deadline := time.Now().Add(WaitTimeout)
	for c.Count(substr) < n {
		if time.Now().After(deadline) {
			t.Fatalf("waiting for %d x %q, got:\n%s", n, substr, c.Output())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// WaitClosed blocks until the server closes the connection
func (c *TermClient) WaitClosed(t testing.TB) {
	t.Helper()
	select {
	case <-c.closed:
	case <-time.After(WaitTimeout):
		t.Fatalf("connection still open, output:\n%s", c.Output())
	}
}

// Close hangs up
func (c *TermClient) Close() {
	_ = c.conn.Close()
}
