package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/wire"
)

const (
	// Buffer size for outgoing messages
	outboxSize = 256

	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to flush queued messages on close
	flushWait = 2 * time.Second

	drainChunk = 512
)

var connIDs atomic.Uint64

// Conn is a line-oriented player connection. Reads happen on the owning
// goroutine; writes are queued and performed by a dedicated write pump so
// output to one socket is serialized whichever task sends it.
type Conn struct {
	id      uint64
	raw     net.Conn
	reader  *bufio.Reader
	codec   wire.Codec
	maxLine int
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	outbox chan []byte
	done   chan struct{}
}

// Ensure Conn implements model.Conn
var _ model.Conn = (*Conn)(nil)

// Inbound is one line, or a read failure, observed on a connection
type Inbound struct {
	Conn *Conn
	Text string
	Err  error
}

// NewConn wraps raw and starts its write pump
func NewConn(raw net.Conn, codec wire.Codec, maxLine int, logger *slog.Logger) *Conn {
	c := &Conn{
		id:      connIDs.Add(1),
		raw:     raw,
		reader:  bufio.NewReader(raw),
		codec:   codec,
		maxLine: maxLine,
		outbox:  make(chan []byte, outboxSize),
		done:    make(chan struct{}),
	}
	c.logger = logger.With(slog.Uint64("conn", c.id), slog.String("remote", raw.RemoteAddr().String()))
	go c.writePump()
	return c
}

// ID identifies the connection in logs
func (c *Conn) ID() uint64 {
	return c.id
}

// RemoteAddr returns the peer host without the port
func (c *Conn) RemoteAddr() string {
	addr := c.raw.RemoteAddr().String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// Send queues text for the peer. A peer too slow to keep up with its
// outbox is disconnected.
func (c *Conn) Send(text string) error {
	data, err := c.codec.Encode(text)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return model.ErrPeerGone
	}
	select {
	case c.outbox <- data:
		return nil
	default:
		c.logger.Warn("outbox full, disconnecting slow peer")
		c.closeLocked()
		_ = c.raw.Close()
		return model.ErrPeerGone
	}
}

// Close flushes queued output in the background and then closes the socket
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closeLocked()
	go func() {
		timer := time.NewTimer(flushWait)
		defer timer.Stop()
		select {
		case <-c.done:
		case <-timer.C:
		}
		_ = c.raw.Close()
	}()
	return nil
}

// Abort closes the socket immediately, discarding queued output
func (c *Conn) Abort() {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()
	_ = c.raw.Close()
}

func (c *Conn) closeLocked() {
	if !c.closed {
		c.closed = true
		close(c.outbox)
	}
}

func (c *Conn) writePump() {
	defer close(c.done)
	failed := false
	for data := range c.outbox {
		if failed {
			continue
		}
		_ = c.raw.SetWriteDeadline(time.Now().Add(writeWait))
		if _, err := c.raw.Write(data); err != nil {
			c.logger.Debug("write failed", slog.String("error", err.Error()))
			failed = true
			_ = c.raw.Close()
		}
	}
}

// SetReadDeadline bounds the next reads; the zero time clears it
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.raw.SetReadDeadline(t)
}

// ReadLine reads and decodes one line. Failures are classified as
// model.ErrDecodeFailure or model.ErrProtocolViolation (the line was dropped,
// the connection is usable) or model.ErrPeerGone (the connection is dead).
func (c *Conn) ReadLine() (string, error) {
	line, err := wire.ReadLine(c.reader, c.maxLine)
	if err != nil {
		return "", classifyReadError(err)
	}
	return c.codec.Decode(line)
}

// Drain discards everything the peer sends during window
func (c *Conn) Drain(window time.Duration) error {
	if window <= 0 {
		return nil
	}
	if err := c.raw.SetReadDeadline(time.Now().Add(window)); err != nil {
		return classifyReadError(err)
	}
	defer func() { _ = c.raw.SetReadDeadline(time.Time{}) }()

	buf := make([]byte, drainChunk)
	for {
		if _, err := c.reader.Read(buf); err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return nil
			}
			return classifyReadError(err)
		}
	}
}

// Pump forwards every line read from the connection to out until the peer
// goes away or ctx is cancelled
func (c *Conn) Pump(ctx context.Context, out chan<- Inbound) {
	for {
		text, err := c.ReadLine()
		select {
		case out <- Inbound{Conn: c, Text: text, Err: err}:
		case <-ctx.Done():
			return
		}
		if errors.Is(err, model.ErrPeerGone) {
			return
		}
	}
}

func classifyReadError(err error) error {
	switch {
	case errors.Is(err, model.ErrProtocolViolation):
		return err
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: closed by peer", model.ErrPeerGone)
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return fmt.Errorf("%w: %v", model.ErrPeerReset, err)
	default:
		return fmt.Errorf("%w: %v", model.ErrPeerGone, err)
	}
}
