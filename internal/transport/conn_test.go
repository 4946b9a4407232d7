package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/testutil"
	"github.com/mcoot/nethang/internal/wire"
)

func pipeConn(t *testing.T) (*Conn, *testutil.TermClient) {
	t.Helper()
	codec, err := wire.NewCodec(wire.EncodingLatin1)
	require.NoError(t, err)
	serverSide, clientSide := net.Pipe()
	client := testutil.NewTermClient(clientSide)
	t.Cleanup(client.Close)
	return NewConn(serverSide, codec, 64, testutil.NopLogger()), client
}

func TestConnSendPreservesOrder(t *testing.T) {
	conn, client := pipeConn(t)
	for _, msg := range []string{"one ", "two ", "three"} {
		require.NoError(t, conn.Send(msg))
	}
	client.WaitFor(t, "one two three")
}

func TestConnCloseFlushesQueuedOutput(t *testing.T) {
	conn, client := pipeConn(t)
	require.NoError(t, conn.Send("goodbye\n"))
	require.NoError(t, conn.Close())

	client.WaitFor(t, "goodbye")
	client.WaitClosed(t)
	assert.ErrorIs(t, conn.Send("late"), model.ErrPeerGone)
	assert.NoError(t, conn.Close())
}

func TestConnPumpForwardsLinesThenPeerGone(t *testing.T) {
	conn, client := pipeConn(t)
	out := make(chan Inbound, 4)
	go conn.Pump(context.Background(), out)

	client.Send(t, "hello")
	client.Send(t, "world")
	client.Close()

	var got []Inbound
	for len(got) < 3 {
		select {
		case in := <-out:
			got = append(got, in)
		case <-time.After(testutil.WaitTimeout):
			t.Fatal("pump stalled")
		}
	}
	assert.Equal(t, "hello", got[0].Text)
	assert.NoError(t, got[0].Err)
	assert.Equal(t, "world", got[1].Text)
	assert.ErrorIs(t, got[2].Err, model.ErrPeerGone)
}

func TestConnRemoteAddrStripsPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	go func() {
		c, err := net.Dial("tcp", l.Addr().String())
		if err == nil {
			time.Sleep(100 * time.Millisecond)
			_ = c.Close()
		}
	}()
	raw, err := l.Accept()
	require.NoError(t, err)

	codec, _ := wire.NewCodec(wire.EncodingLatin1)
	conn := NewConn(raw, codec, 64, testutil.NopLogger())
	defer conn.Abort()
	assert.Equal(t, "127.0.0.1", conn.RemoteAddr())
}
