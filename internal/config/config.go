// Package config loads server settings from defaults, an optional config
// file, NETHANG_* environment variables and command line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mcoot/nethang/internal/model"
	"github.com/mcoot/nethang/internal/server"
	"github.com/mcoot/nethang/internal/services/game"
	"github.com/mcoot/nethang/internal/transport"
	"github.com/mcoot/nethang/internal/wire"
)

// EnvPrefix prefixes every environment variable the server reads
const EnvPrefix = "NETHANG"

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// PortAuto selects an ephemeral port
const PortAuto = "auto"

// Config is the complete server configuration
type Config struct {
	Host              string        `mapstructure:"host"`
	Ports             []string      `mapstructure:"ports"`
	MaxConnections    int           `mapstructure:"max_connections"`
	AllowSameSourceIP bool          `mapstructure:"allow_same_source_ip"`
	HandshakeWorkers  int           `mapstructure:"handshake_workers"`
	DrainWindow       time.Duration `mapstructure:"drain_window"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	MaxLineLength     int           `mapstructure:"max_line_length"`
	Encoding          string        `mapstructure:"encoding"`
	Color             bool          `mapstructure:"color"`
	Denylist          []string      `mapstructure:"denylist"`
	LobbyWait         time.Duration `mapstructure:"lobby_wait"`
	RoundsPerGame     int           `mapstructure:"rounds_per_game"`
	TurnTimeout       time.Duration `mapstructure:"turn_timeout"`
	WordTimeout       time.Duration `mapstructure:"word_timeout"`
	GameMode          string        `mapstructure:"game_mode"`
	ChatRate          float64       `mapstructure:"chat_rate"`
	ChatBurst         int           `mapstructure:"chat_burst"`
	GracePeriod       time.Duration `mapstructure:"grace_period"`

	Storage StorageConfig `mapstructure:"storage"`
	Status  StatusConfig  `mapstructure:"status"`
	Log     LogConfig     `mapstructure:"log"`
}

// StorageConfig selects where finished games are kept
type StorageConfig struct {
	Type         string `mapstructure:"type"`
	RedisURL     string `mapstructure:"redis_url"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

// StatusConfig configures the HTTP status API
type StatusConfig struct {
	// Addr is host:port to serve on; empty disables the API
	Addr           string `mapstructure:"addr"`
	AdminTokenHash string `mapstructure:"admin_token_hash"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"host":                 "host",
	"ports":                "ports",
	"max-connections":      "max_connections",
	"allow-same-source-ip": "allow_same_source_ip",
	"handshake-workers":    "handshake_workers",
	"drain-window":         "drain_window",
	"handshake-timeout":    "handshake_timeout",
	"encoding":             "encoding",
	"color":                "color",
	"denylist":             "denylist",
	"lobby-wait":           "lobby_wait",
	"rounds":               "rounds_per_game",
	"turn-timeout":         "turn_timeout",
	"game-mode":            "game_mode",
	"storage":              "storage.type",
	"redis-url":            "storage.redis_url",
	"status-addr":          "status.addr",
	"admin-token-hash":     "status.admin_token_hash",
	"log-level":            "log.level",
	"log-format":           "log.format",
	"grace-period":         "grace_period",
	"chat-rate":            "chat_rate",
	"chat-burst":           "chat_burst",
	"history-limit":        "storage.history_limit",
	"word-timeout":         "word_timeout",
	"max-line-length":      "max_line_length",
}

// Default returns the built-in configuration
func Default() Config {
	srv := server.DefaultConfig()
	ports := make([]string, len(srv.Ports))
	for i, p := range srv.Ports {
		ports[i] = strconv.Itoa(p)
	}
	return Config{
		Host:             "",
		Ports:            ports,
		MaxConnections:   srv.MaxConnections,
		HandshakeWorkers: srv.HandshakeWorkers,
		DrainWindow:      srv.DrainWindow,
		HandshakeTimeout: srv.HandshakeTimeout,
		MaxLineLength:    srv.MaxLineLength,
		Encoding:         srv.Encoding,
		Color:            srv.Color,
		Denylist:         []string{},
		LobbyWait:        srv.LobbyWait,
		RoundsPerGame:    srv.Game.Rounds,
		TurnTimeout:      srv.Game.TurnTimeout,
		WordTimeout:      srv.Game.WordTimeout,
		GameMode:         string(srv.Game.Mode),
		ChatRate:         srv.ChatRate,
		ChatBurst:        srv.ChatBurst,
		GracePeriod:      srv.GracePeriod,
		Storage: StorageConfig{
			Type:         StorageMemory,
			RedisURL:     "redis://localhost:6379",
			HistoryLimit: 50,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// RegisterFlags adds the server flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to a YAML or JSON config file (env: NETHANG_CONFIG)")
	fs.String("host", d.Host, "address to listen on, empty for all interfaces")
	fs.StringSlice("ports", d.Ports, `candidate ports tried in order, or "auto"`)
	fs.Int("max-connections", d.MaxConnections, "maximum registered players")
	fs.Bool("allow-same-source-ip", d.AllowSameSourceIP, "allow several players from one address")
	fs.Int("handshake-workers", d.HandshakeWorkers, "goroutines negotiating new connections")
	fs.Duration("drain-window", d.DrainWindow, "time to discard input sent before the first prompt")
	fs.Duration("handshake-timeout", d.HandshakeTimeout, "maximum time to pick a nickname")
	fs.Int("max-line-length", d.MaxLineLength, "longest accepted input line in bytes")
	fs.String("encoding", d.Encoding, "wire encoding: latin1 or utf8")
	fs.Bool("color", d.Color, "send ANSI colors")
	fs.StringSlice("denylist", d.Denylist, "client addresses refused at connect")
	fs.Duration("lobby-wait", d.LobbyWait, "lobby countdown before a game starts")
	fs.Int("rounds", d.RoundsPerGame, "rounds per game")
	fs.Duration("turn-timeout", d.TurnTimeout, "time a guesser has to answer")
	fs.Duration("word-timeout", d.WordTimeout, "time the hanger has to choose a word")
	fs.String("game-mode", d.GameMode, "round-robin, king-of-the-hill, wordlist or time-attack")
	fs.Float64("chat-rate", d.ChatRate, "lobby lines per second per player, 0 for no limit")
	fs.Int("chat-burst", d.ChatBurst, "lobby lines a player may send at once")
	fs.Duration("grace-period", d.GracePeriod, "time a running game gets to finish on shutdown")
	fs.String("storage", d.Storage.Type, "game history storage: memory or redis")
	fs.String("redis-url", d.Storage.RedisURL, "redis connection URL")
	fs.Int("history-limit", d.Storage.HistoryLimit, "finished games kept in history")
	fs.String("status-addr", d.Status.Addr, "status API listen address, empty disables it")
	fs.String("admin-token-hash", d.Status.AdminTokenHash, "bcrypt hash of the status API admin token")
	fs.String("log-level", d.Log.Level, "debug, info, warn or error")
	fs.String("log-format", d.Log.Format, "json or text")
}

// Load resolves the configuration. fs must have been set up by RegisterFlags
// and parsed; flags the user did not set fall back to the environment, the
// config file and then the defaults.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			bindErr = errors.Join(bindErr, v.BindPFlag(key, f))
		}
	})
	if bindErr != nil {
		return nil, fmt.Errorf("bind flags: %w", bindErr)
	}

	path, _ := fs.GetString("config")
	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("host", d.Host)
	v.SetDefault("ports", d.Ports)
	v.SetDefault("max_connections", d.MaxConnections)
	v.SetDefault("allow_same_source_ip", d.AllowSameSourceIP)
	v.SetDefault("handshake_workers", d.HandshakeWorkers)
	v.SetDefault("drain_window", d.DrainWindow)
	v.SetDefault("handshake_timeout", d.HandshakeTimeout)
	v.SetDefault("max_line_length", d.MaxLineLength)
	v.SetDefault("encoding", d.Encoding)
	v.SetDefault("color", d.Color)
	v.SetDefault("denylist", d.Denylist)
	v.SetDefault("lobby_wait", d.LobbyWait)
	v.SetDefault("rounds_per_game", d.RoundsPerGame)
	v.SetDefault("turn_timeout", d.TurnTimeout)
	v.SetDefault("word_timeout", d.WordTimeout)
	v.SetDefault("game_mode", d.GameMode)
	v.SetDefault("chat_rate", d.ChatRate)
	v.SetDefault("chat_burst", d.ChatBurst)
	v.SetDefault("grace_period", d.GracePeriod)
	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.redis_url", d.Storage.RedisURL)
	v.SetDefault("storage.history_limit", d.Storage.HistoryLimit)
	v.SetDefault("status.addr", d.Status.Addr)
	v.SetDefault("status.admin_token_hash", d.Status.AdminTokenHash)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.PortList(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxConnections < 1 {
		errs = append(errs, fmt.Errorf("max_connections must be at least 1, got %d", c.MaxConnections))
	}
	if c.HandshakeWorkers < 1 {
		errs = append(errs, fmt.Errorf("handshake_workers must be at least 1, got %d", c.HandshakeWorkers))
	}
	if c.MaxLineLength < 1 {
		errs = append(errs, fmt.Errorf("max_line_length must be at least 1, got %d", c.MaxLineLength))
	}
	if _, err := wire.NewCodec(c.Encoding); err != nil {
		errs = append(errs, err)
	}
	if c.LobbyWait < time.Second {
		errs = append(errs, fmt.Errorf("lobby_wait must be at least 1s, got %s", c.LobbyWait))
	}
	if c.RoundsPerGame < 1 {
		errs = append(errs, fmt.Errorf("rounds_per_game must be at least 1, got %d", c.RoundsPerGame))
	}
	if c.TurnTimeout <= 0 || c.WordTimeout <= 0 {
		errs = append(errs, errors.New("turn_timeout and word_timeout must be positive"))
	}
	if _, err := model.ParseGameMode(c.GameMode); err != nil {
		errs = append(errs, err)
	}
	if c.ChatRate < 0 || c.ChatBurst < 0 {
		errs = append(errs, errors.New("chat_rate and chat_burst must not be negative"))
	}
	if c.GracePeriod < 0 || c.DrainWindow < 0 || c.HandshakeTimeout < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	for _, addr := range c.Denylist {
		if net.ParseIP(addr) == nil {
			errs = append(errs, fmt.Errorf("denylist entry %q is not an IP address", addr))
		}
	}
	switch c.Storage.Type {
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("storage.redis_url is required for redis storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be %q or %q, got %q", StorageMemory, StorageRedis, c.Storage.Type))
	}
	if c.Storage.HistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("storage.history_limit must be at least 1, got %d", c.Storage.HistoryLimit))
	}
	if c.Status.Addr != "" {
		if _, _, err := c.Status.HostPort(); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "json" && f != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", f))
	}
	return errors.Join(errs...)
}

// PortList resolves the configured ports; "auto" maps to an ephemeral port
func (c *Config) PortList() ([]int, error) {
	if len(c.Ports) == 0 {
		return nil, errors.New("ports must list at least one port or \"auto\"")
	}
	ports := make([]int, 0, len(c.Ports))
	for _, raw := range c.Ports {
		raw = strings.TrimSpace(raw)
		if strings.EqualFold(raw, PortAuto) {
			ports = append(ports, transport.AutoPort)
			continue
		}
		port, err := strconv.Atoi(raw)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid port %q (must be 1-65535 or %q)", raw, PortAuto)
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// Server converts the configuration into game server settings. Call
// Validate first.
func (c *Config) Server() server.Config {
	ports, _ := c.PortList()
	mode, _ := model.ParseGameMode(c.GameMode)

	srv := server.DefaultConfig()
	srv.Host = c.Host
	srv.Ports = ports
	srv.MaxConnections = c.MaxConnections
	srv.AllowSameAddress = c.AllowSameSourceIP
	srv.HandshakeWorkers = c.HandshakeWorkers
	srv.DrainWindow = c.DrainWindow
	srv.HandshakeTimeout = c.HandshakeTimeout
	srv.MaxLineLength = c.MaxLineLength
	srv.Encoding = c.Encoding
	srv.Color = c.Color
	srv.Denylist = append([]string(nil), c.Denylist...)
	srv.LobbyWait = c.LobbyWait
	srv.ChatRate = c.ChatRate
	srv.ChatBurst = c.ChatBurst
	srv.GracePeriod = c.GracePeriod

	rules := game.DefaultConfig()
	rules.Mode = mode
	rules.Rounds = c.RoundsPerGame
	rules.TurnTimeout = c.TurnTimeout
	rules.WordTimeout = c.WordTimeout
	srv.Game = rules
	return srv
}

// HostPort splits the status API address
func (s StatusConfig) HostPort() (string, int, error) {
	host, portStr, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return "", 0, fmt.Errorf("status.addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, fmt.Errorf("status.addr: invalid port %q", portStr)
	}
	return host, port, nil
}

// NewLogger builds the process logger described by the log settings
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
