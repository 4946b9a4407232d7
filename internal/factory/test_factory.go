package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/mcoot/nethang/internal/dependencies/mocks"
	"github.com/mcoot/nethang/internal/server"
	"github.com/mcoot/nethang/internal/services/auth"
	"github.com/mcoot/nethang/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Memory     *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp(srvCfg server.Config, authCfg auth.Config) *TestApp {
	store := memory.New(10)
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	app := newWithDependencies(srvCfg, store, mockClock, mockRandom, authCfg, logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Memory:     store,
	}
}
