package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultServerURL = "http://localhost:8080"

	keyServer    = "server"
	keyToken     = "token"
	keyTokenFile = "token-file"
	keyOutput    = "output"
)

// Config is the resolved CLI configuration
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	Output    string
}

// envKeys maps config keys to the environment variables that may set them
var envKeys = map[string]string{
	keyServer:    "NETHANG_API",
	keyToken:     "NETHANG_ADMIN_TOKEN",
	keyTokenFile: "NETHANG_TOKEN_FILE",
}

func registerGlobalFlags(fs *pflag.FlagSet) {
	fs.String(keyServer, defaultServerURL, "Status API URL (env: NETHANG_API)")
	fs.String(keyToken, "", "Admin token (env: NETHANG_ADMIN_TOKEN)")
	fs.String(keyTokenFile, defaultTokenFile(), "Admin token file path (env: NETHANG_TOKEN_FILE)")
	fs.StringP(keyOutput, "o", "text", "Output format: text, json")
}

// loadConfig resolves flags over environment over defaults, then falls back
// to the token file when no token was given
func loadConfig(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}

	c := &Config{
		ServerURL: strings.TrimRight(v.GetString(keyServer), "/"),
		Token:     strings.TrimSpace(v.GetString(keyToken)),
		TokenFile: v.GetString(keyTokenFile),
		Output:    v.GetString(keyOutput),
	}
	if c.Output != "text" && c.Output != "json" {
		return nil, fmt.Errorf("unknown output format %q", c.Output)
	}
	if c.Token == "" {
		token, err := readTokenFile(c.TokenFile)
		if err != nil {
			return nil, err
		}
		c.Token = token
	}
	return c, nil
}

func readTokenFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".nethang", "admin-token")
	}
	return filepath.Join(home, ".nethang", "admin-token")
}
