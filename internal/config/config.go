// Package config reads the server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultModel = "gpt-4o-mini"
	DefaultPort  = 8080
)

type Server struct {
	// OpenAIAPIKey takes precedence over the parameter store lookup.
	OpenAIAPIKey string
	// ParamPrefix locates <prefix>/open-ai-token in SSM when no key is set.
	ParamPrefix   string
	Model         string
	BaseURL       string
	ReferenceDate time.Time
	Port          int
	LogLevel      slog.Level
}

// FromEnv builds the server config. getenv is usually os.Getenv.
func FromEnv(getenv func(string) string) (Server, error) {
	cfg := Server{
		OpenAIAPIKey: strings.TrimSpace(getenv("OPENAI_API_KEY")),
		ParamPrefix:  strings.TrimSpace(getenv("PARAM_PREFIX")),
		Model:        envString(getenv, "OPENAI_MODEL", DefaultModel),
		BaseURL:      strings.TrimSpace(getenv("OPENAI_BASE_URL")),
		Port:         envInt(getenv, "PORT", DefaultPort),
	}

	if raw := strings.TrimSpace(getenv("WELFARE_REFERENCE_DATE")); raw != "" {
		ref, err := time.ParseInLocation(time.DateOnly, raw, seoul())
		if err != nil {
			return Server{}, fmt.Errorf("config: WELFARE_REFERENCE_DATE must be YYYY-MM-DD: %w", err)
		}
		cfg.ReferenceDate = ref
	}

	if raw := strings.TrimSpace(getenv("LOG_LEVEL")); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return Server{}, fmt.Errorf("config: LOG_LEVEL: %w", err)
		}
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given files without overriding ones
// already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// NewLogger returns the JSON slog logger used by every entrypoint.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func envString(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(getenv func(string) string, key string, def int) int {
	v := getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func seoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}
