package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// Config is the CLI settings file, ~/.welfare/config.toml by default.
type Config struct {
	ServerURL      string `toml:"server_url"`
	SessionID      string `toml:"session_id"`
	StateBackend   string `toml:"state_backend"`
	SQLitePath     string `toml:"sqlite_path"`
	DynamoDBTable  string `toml:"dynamodb_table"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func DefaultConfig() Config {
	return Config{
		ServerURL:      "http://localhost:8080",
		SessionID:      "default",
		StateBackend:   BackendSQLite,
		TimeoutSeconds: 30,
	}
}

func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".welfare", "config.toml"), nil
}

// LoadConfig reads path over the defaults. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServerURL) == "" {
		return errors.New("config: server_url must not be empty")
	}
	if strings.TrimSpace(c.SessionID) == "" {
		return errors.New("config: session_id must not be empty")
	}
	switch c.StateBackend {
	case BackendSQLite:
	case BackendDynamoDB:
		if strings.TrimSpace(c.DynamoDBTable) == "" {
			return errors.New("config: dynamodb_table is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("config: unknown state_backend %q", c.StateBackend)
	}
	if c.TimeoutSeconds < 0 {
		return errors.New("config: timeout_seconds must not be negative")
	}
	return nil
}

// SaveConfig writes cfg to path, creating the parent directory.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	raw, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, raw, 0o600)
}
