package sse

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/testutil"
)

func TestFormatSSEMessage(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:      "single line data",
			eventName: "chat",
			data:      `{"text":"hi"}`,
			expected:  "event: chat\ndata: {\"text\":\"hi\"}\n\n",
		},
		{
			name:      "multi-line data",
			eventName: "notice",
			data:      "line1\nline2",
			expected:  "event: notice\ndata: line1\ndata: line2\n\n",
		},
		{
			name:      "empty data",
			eventName: "ping",
			data:      "",
			expected:  "event: ping\ndata: \n\n",
		},
		{
			name:      "carriage returns and trailing newline",
			eventName: "test",
			data:      "line1\r\nline2\n",
			expected:  "event: test\ndata: line1\ndata: line2\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(formatSSEMessage(tt.eventName, tt.data)))
		})
	}
}

func newHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(testutil.NopLogger())
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub
}

func TestHubDeliversToRegisteredClients(t *testing.T) {
	hub := newHub(t)
	client := NewClient("test")
	require.True(t, hub.Register(client))
	assert.Equal(t, 1, hub.ClientCount())

	hub.Publish(model.Event{Type: model.EventPlayerJoined, Nickname: "Alice"})

	select {
	case msg := <-client.send:
		assert.Contains(t, string(msg), "event: player_joined\n")
		assert.Contains(t, string(msg), `"nickname":"Alice"`)
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}

	hub.Unregister(client)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := newHub(t)
	client := NewClient("test")
	require.True(t, hub.Register(client))

	hub.Close()
	select {
	case _, ok := <-client.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("client channel not closed")
	}
	assert.False(t, hub.Register(NewClient("late")))
}

func TestServeSSEStreamsEvents(t *testing.T) {
	hub := newHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, hub)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	hub.Publish(model.Event{Type: model.EventGameStarted, GameID: "g1"})

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: game_started") {
			break
		}
	}
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"game_id":"g1"`)
}
