package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/transport"
)

func load(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return Load(fs)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, []string{"29111", "29112", "29113"}, cfg.Ports)
	assert.Equal(t, 20, cfg.MaxConnections)
	assert.False(t, cfg.AllowSameSourceIP)
	assert.Equal(t, time.Second, cfg.DrainWindow)
	assert.Equal(t, 30*time.Second, cfg.LobbyWait)
	assert.Equal(t, 3, cfg.RoundsPerGame)
	assert.Equal(t, 60*time.Second, cfg.TurnTimeout)
	assert.Equal(t, "round-robin", cfg.GameMode)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Empty(t, cfg.Status.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("NETHANG_MAX_CONNECTIONS", "8")
	t.Setenv("NETHANG_LOBBY_WAIT", "10s")
	t.Setenv("NETHANG_ALLOW_SAME_SOURCE_IP", "true")
	t.Setenv("NETHANG_STORAGE_TYPE", "redis")
	t.Setenv("NETHANG_STATUS_ADDR", "127.0.0.1:8080")

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.MaxConnections)
	assert.Equal(t, 10*time.Second, cfg.LobbyWait)
	assert.True(t, cfg.AllowSameSourceIP)
	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.Equal(t, "127.0.0.1:8080", cfg.Status.Addr)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("NETHANG_ROUNDS_PER_GAME", "7")

	cfg, err := load(t, "--rounds", "2", "--ports", "auto", "--log-format", "text")
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.RoundsPerGame)
	assert.Equal(t, []string{"auto"}, cfg.Ports)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nethang.yaml")
	content := `
ports: ["4000", "auto"]
turn_timeout: 45s
denylist: ["10.0.0.7"]
storage:
  history_limit: 5
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := load(t, "--config", path)
	require.NoError(t, err)

	assert.Equal(t, []string{"4000", "auto"}, cfg.Ports)
	assert.Equal(t, 45*time.Second, cfg.TurnTimeout)
	assert.Equal(t, []string{"10.0.0.7"}, cfg.Denylist)
	assert.Equal(t, 5, cfg.Storage.HistoryLimit)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := load(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "bad port", mutate: func(c *Config) { c.Ports = []string{"70000"} }},
		{name: "no ports", mutate: func(c *Config) { c.Ports = nil }},
		{name: "no connections", mutate: func(c *Config) { c.MaxConnections = 0 }},
		{name: "no workers", mutate: func(c *Config) { c.HandshakeWorkers = 0 }},
		{name: "unknown encoding", mutate: func(c *Config) { c.Encoding = "ebcdic" }},
		{name: "short lobby wait", mutate: func(c *Config) { c.LobbyWait = 0 }},
		{name: "no rounds", mutate: func(c *Config) { c.RoundsPerGame = 0 }},
		{name: "unknown mode", mutate: func(c *Config) { c.GameMode = "speedrun" }},
		{name: "negative chat rate", mutate: func(c *Config) { c.ChatRate = -1 }},
		{name: "bad denylist entry", mutate: func(c *Config) { c.Denylist = []string{"example.com"} }},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Type = "postgres" }},
		{name: "redis without url", mutate: func(c *Config) {
			c.Storage.Type = StorageRedis
			c.Storage.RedisURL = ""
		}},
		{name: "bad status addr", mutate: func(c *Config) { c.Status.Addr = "8080" }},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestPortList(t *testing.T) {
	cfg := Default()
	cfg.Ports = []string{"29111", " AUTO "}

	ports, err := cfg.PortList()
	require.NoError(t, err)
	assert.Equal(t, []int{29111, transport.AutoPort}, ports)
}

func TestServerConversion(t *testing.T) {
	cfg := Default()
	cfg.Host = "127.0.0.1"
	cfg.Ports = []string{"4000"}
	cfg.AllowSameSourceIP = true
	cfg.Denylist = []string{"10.1.1.1"}
	cfg.RoundsPerGame = 5
	cfg.TurnTimeout = 20 * time.Second
	cfg.GameMode = "Wordlist"
	require.NoError(t, cfg.Validate())

	srv := cfg.Server()
	assert.Equal(t, "127.0.0.1", srv.Host)
	assert.Equal(t, []int{4000}, srv.Ports)
	assert.True(t, srv.AllowSameAddress)
	assert.Equal(t, []string{"10.1.1.1"}, srv.Denylist)
	assert.Equal(t, 5, srv.Game.Rounds)
	assert.Equal(t, 20*time.Second, srv.Game.TurnTimeout)
	assert.Equal(t, model.ModeWordlist, srv.Game.Mode)
	assert.Equal(t, time.Second, srv.TickInterval)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "text"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}
