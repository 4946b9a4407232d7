package factory

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/nethang/internal/api"
	"github.com/mcoot/nethang/internal/api/sse"
	"github.com/mcoot/nethang/internal/dependencies/clock"
	"github.com/mcoot/nethang/internal/dependencies/random"
	"github.com/mcoot/nethang/internal/server"
	"github.com/mcoot/nethang/internal/services/auth"
	"github.com/mcoot/nethang/internal/storage"
	"github.com/mcoot/nethang/internal/storage/memory"
	redisstorage "github.com/mcoot/nethang/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	AuthService *auth.Service
	Hub         *sse.Hub
	Server      *server.Server

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Server holds the game server settings
	// If zero value, defaults to server.DefaultConfig()
	Server *server.Config
	// AuthConfig holds configuration for the admin token check (optional)
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// HistoryLimit caps the in-memory game history (optional)
	HistoryLimit int
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New(cfg.HistoryLimit)
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	srvCfg := server.DefaultConfig()
	if cfg.Server != nil {
		srvCfg = *cfg.Server
	}

	return newWithDependencies(srvCfg, store, clock.New(), random.New(), cfg.AuthConfig, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	srvCfg server.Config,
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	authCfg auth.Config,
	logger *slog.Logger,
) *App {
	hub := sse.NewHub(logger)
	go hub.Run()

	return &App{
		Storage:     store,
		Clock:       clk,
		Random:      rnd,
		AuthService: auth.New(clk, authCfg, logger),
		Hub:         hub,
		Server:      server.New(srvCfg, store, hub, clk, rnd, logger),
		logger:      logger,
	}
}

// Router builds the status API handler over the app's components
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      a.logger,
		Control:     a.Server,
		Storage:     a.Storage,
		AuthService: a.AuthService,
		Hub:         a.Hub,
	})
}

// Close releases the hub and the storage. Stop the server first.
func (a *App) Close() error {
	a.Hub.Close()
	return a.Storage.Close()
}
