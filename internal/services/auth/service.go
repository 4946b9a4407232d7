package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/nethang/internal/dependencies/clock"
)

// Errors
var (
	ErrInvalidToken  = errors.New("invalid admin token")
	ErrAdminDisabled = errors.New("admin access is not configured")
)

const tokenBytes = 24

// Service checks admin bearer tokens against a bcrypt hash. Tokens that
// verified recently are remembered so repeated calls skip bcrypt.
type Service struct {
	hash   []byte
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	verified map[string]time.Time

	cacheDuration time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	// TokenHash is the bcrypt hash of the admin token; empty disables admin access
	TokenHash     string
	CacheDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		CacheDuration: 10 * time.Minute,
	}
}

// New creates a new auth Service
func New(clk clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.CacheDuration == 0 {
		cfg.CacheDuration = DefaultConfig().CacheDuration
	}
	var hash []byte
	if cfg.TokenHash != "" {
		hash = []byte(cfg.TokenHash)
	}
	return &Service{
		hash:          hash,
		clock:         clk,
		logger:        logger.With(slog.String("component", "auth")),
		verified:      make(map[string]time.Time),
		cacheDuration: cfg.CacheDuration,
	}
}

// Enabled reports whether an admin token hash is configured
func (s *Service) Enabled() bool {
	return len(s.hash) > 0
}

// Authenticate checks token against the configured hash
func (s *Service) Authenticate(token string) error {
	if !s.Enabled() {
		return ErrAdminDisabled
	}
	if token == "" {
		return ErrInvalidToken
	}

	now := s.clock.Now()
	s.mu.Lock()
	expiresAt, ok := s.verified[token]
	s.mu.Unlock()
	if ok && now.Before(expiresAt) {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(token)); err != nil {
		s.logger.Warn("admin token rejected")
		return ErrInvalidToken
	}

	s.mu.Lock()
	s.verified[token] = now.Add(s.cacheDuration)
	s.mu.Unlock()
	return nil
}

// CleanExpired forgets tokens whose verification has lapsed
func (s *Service) CleanExpired() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, expiresAt := range s.verified {
		if !now.Before(expiresAt) {
			delete(s.verified, token)
		}
	}
}

// GenerateToken creates a random admin token and its bcrypt hash
func GenerateToken() (token, hash string, err error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	hash, err = HashToken(token)
	return token, hash, err
}

// HashToken returns the bcrypt hash to configure for token
func HashToken(token string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
