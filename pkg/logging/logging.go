// Package logging configures the zerolog logger shared by spamid commands.
//
//	logging.Init(logging.Config{Level: "debug", Format: "console"})
//	logging.WithComponent("milter").Info().Str("addr", addr).Msg("listening")
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds logging configuration
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error
	Level string
	// Format is json or console
	Format string
	// Output defaults to os.Stderr
	Output io.Writer
	// RunID, when set, is attached to every entry as run_id
	RunID string
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: os.Stderr,
	}
}

var (
	mu     sync.RWMutex
	logger = New(DefaultConfig())
)

// New builds a logger from cfg without touching the global one
func New(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if strings.ToLower(cfg.Format) == "console" {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.RunID != "" {
		ctx = ctx.Str("run_id", cfg.RunID)
	}
	return ctx.Logger()
}

// Init replaces the global logger
func Init(cfg Config) {
	l := New(cfg)

	mu.Lock()
	logger = l
	mu.Unlock()
}

// Open returns a writer for path, or os.Stderr when path is empty
func Open(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stderr}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Logger returns the global logger
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithComponent returns a child of the global logger tagged with component
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// NewRunID returns a short random identifier for correlating one run's logs
func NewRunID() string {
	return uuid.New().String()[:8]
}
