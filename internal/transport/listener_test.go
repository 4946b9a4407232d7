package transport

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/testutil"
)

func occupiedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l.Addr().(*net.TCPAddr).Port
}

func TestListenFallsBackToNextCandidate(t *testing.T) {
	busy := occupiedPort(t)

	l, err := Listen(context.Background(), "127.0.0.1", []int{busy, AutoPort}, 4, testutil.NopLogger())
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	port := l.Addr().(*net.TCPAddr).Port
	assert.NotEqual(t, busy, port)
	assert.NotZero(t, port)
}

func TestListenAllCandidatesBusy(t *testing.T) {
	busy := occupiedPort(t)

	_, err := Listen(context.Background(), "127.0.0.1", []int{busy, busy}, 0, testutil.NopLogger())
	assert.ErrorIs(t, err, model.ErrBindFailure)
}

func TestListenNoCandidates(t *testing.T) {
	_, err := Listen(context.Background(), "127.0.0.1", nil, 0, testutil.NopLogger())
	assert.ErrorIs(t, err, model.ErrBindFailure)
}
