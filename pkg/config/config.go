package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents spamid configuration
type Config struct {
	// Classifier settings
	Classifier ClassifierConfig `yaml:"classifier" toml:"classifier"`

	// Tokenizer settings
	Tokenizer TokenizerConfig `yaml:"tokenizer" toml:"tokenizer"`

	// Corpus location
	Data DataConfig `yaml:"data" toml:"data"`

	// Result sinks
	Results ResultsConfig `yaml:"results" toml:"results"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" toml:"logging"`

	// Milter server settings
	Milter MilterConfig `yaml:"milter" toml:"milter"`

	// Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// ClassifierConfig contains classifier settings
type ClassifierConfig struct {
	// Labels holds the label written for each class index: spam first, ham second
	Labels []string `yaml:"labels" toml:"labels"`
}

// TokenizerConfig controls how documents are split into words
type TokenizerConfig struct {
	// SplitLineBreaks makes CR and LF end a word in addition to space
	SplitLineBreaks bool `yaml:"split_line_breaks" toml:"split_line_breaks"`
}

// DataConfig locates numbered corpus files: <dir>/<pattern><n><suffix>
type DataConfig struct {
	Dir    string `yaml:"dir" toml:"dir"`
	Suffix string `yaml:"suffix" toml:"suffix"`
}

// ResultsConfig contains result sink settings
type ResultsConfig struct {
	Redis RedisConfig `yaml:"redis" toml:"redis"`
}

// RedisConfig configures the Redis result sink
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	URL        string `yaml:"url" toml:"url"`                 // redis://localhost:6379/0
	Key        string `yaml:"key" toml:"key"`                 // hash receiving name -> label
	TTLSeconds int    `yaml:"ttl_seconds" toml:"ttl_seconds"` // 0 = no expiry
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`   // trace, debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // json or console
	File   string `yaml:"file" toml:"file"`     // empty = stderr
}

// MilterConfig contains milter server settings
type MilterConfig struct {
	// Network and address for milter socket
	Network string `yaml:"network" toml:"network"` // "tcp" or "unix"
	Address string `yaml:"address" toml:"address"` // "127.0.0.1:7357" or "/tmp/spamid.sock"

	// Connection settings
	ReadTimeoutMs           int `yaml:"read_timeout_ms" toml:"read_timeout_ms"`
	WriteTimeoutMs          int `yaml:"write_timeout_ms" toml:"write_timeout_ms"`
	GracefulShutdownTimeout int `yaml:"graceful_shutdown_timeout_ms" toml:"graceful_shutdown_timeout_ms"`

	// Header modifications
	HeaderPrefix string `yaml:"header_prefix" toml:"header_prefix"` // "X-Spamid-"

	// Response modes
	RejectLabels  []string `yaml:"reject_labels" toml:"reject_labels"`
	RejectMessage string   `yaml:"reject_message" toml:"reject_message"`

	// Corpus learnt at startup
	Training TrainingConfig `yaml:"training" toml:"training"`
}

// TrainingConfig names the spam and ham corpus learnt by long-running commands
type TrainingConfig struct {
	SpamPattern string `yaml:"spam_pattern" toml:"spam_pattern"`
	SpamCount   int    `yaml:"spam_count" toml:"spam_count"`
	HamPattern  string `yaml:"ham_pattern" toml:"ham_pattern"`
	HamCount    int    `yaml:"ham_count" toml:"ham_count"`
}

// MetricsConfig contains Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Address string `yaml:"address" toml:"address"` // ":9108"
}

// DefaultConfig returns spamid default configuration
func DefaultConfig() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			Labels: []string{"S", "H"},
		},
		Tokenizer: TokenizerConfig{
			SplitLineBreaks: false,
		},
		Data: DataConfig{
			Dir:    "data",
			Suffix: ".txt",
		},
		Results: ResultsConfig{
			Redis: RedisConfig{
				Enabled: false,
				URL:     "redis://localhost:6379/0",
				Key:     "spamid:results",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Milter: MilterConfig{
			Network:                 "tcp",
			Address:                 "127.0.0.1:7357",
			ReadTimeoutMs:           10000,
			WriteTimeoutMs:          10000,
			GracefulShutdownTimeout: 30000,
			HeaderPrefix:            "X-Spamid-",
			RejectLabels:            []string{},
			RejectMessage:           "Message rejected as spam",
			Training: TrainingConfig{
				SpamPattern: "spam",
				SpamCount:   1,
				HamPattern:  "ham",
				HamCount:    1,
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9108",
		},
	}
}

// isTOML reports whether path should be parsed as TOML
func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// If no config file specified, return defaults
	if configPath == "" {
		return config, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isTOML(configPath) {
		err = toml.Unmarshal(data, config)
	} else {
		err = yaml.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to file, as TOML when the path ends in .toml
func (c *Config) SaveConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal(isTOML(configPath))
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal encodes the configuration as YAML, or TOML when asTOML is set
func (c *Config) Marshal(asTOML bool) ([]byte, error) {
	if asTOML {
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(c); err != nil {
			return nil, fmt.Errorf("failed to marshal config: %w", err)
		}
		return []byte(sb.String()), nil
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Two classes: spam and ham
	if len(c.Classifier.Labels) != 2 {
		return fmt.Errorf("classifier labels must name exactly 2 classes, got %d", len(c.Classifier.Labels))
	}
	seen := make(map[string]bool, len(c.Classifier.Labels))
	for _, label := range c.Classifier.Labels {
		if label == "" || strings.ContainsAny(label, "\t\n") {
			return fmt.Errorf("invalid classifier label: %q", label)
		}
		if seen[label] {
			return fmt.Errorf("duplicate classifier label: %s", label)
		}
		seen[label] = true
	}

	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	validLevel := false
	for _, level := range validLevels {
		if c.Logging.Level == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console'")
	}

	if c.Results.Redis.Enabled {
		if c.Results.Redis.URL == "" {
			return fmt.Errorf("redis url cannot be empty when enabled")
		}
		if c.Results.Redis.Key == "" {
			return fmt.Errorf("redis key cannot be empty when enabled")
		}
		if c.Results.Redis.TTLSeconds < 0 {
			return fmt.Errorf("redis ttl_seconds must be >= 0")
		}
	}

	if c.Milter.Network != "tcp" && c.Milter.Network != "unix" {
		return fmt.Errorf("milter network must be 'tcp' or 'unix'")
	}

	if c.Milter.Address == "" {
		return fmt.Errorf("milter address cannot be empty")
	}

	if c.Milter.ReadTimeoutMs < 1000 {
		return fmt.Errorf("milter read_timeout_ms must be >= 1000")
	}

	if c.Milter.WriteTimeoutMs < 1000 {
		return fmt.Errorf("milter write_timeout_ms must be >= 1000")
	}

	if c.Milter.GracefulShutdownTimeout < 0 {
		return fmt.Errorf("milter graceful_shutdown_timeout_ms must be >= 0")
	}

	for _, label := range c.Milter.RejectLabels {
		if !seen[label] {
			return fmt.Errorf("milter reject label %s is not a classifier label", label)
		}
	}

	if c.Milter.Training.SpamCount < 1 || c.Milter.Training.HamCount < 1 {
		return fmt.Errorf("milter training counts must be >= 1")
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics address cannot be empty when enabled")
	}

	return nil
}

// LabelOf returns the label of class, or "?" for an unknown class
func (c *Config) LabelOf(class int) string {
	if class < 0 || class >= len(c.Classifier.Labels) {
		return "?"
	}
	return c.Classifier.Labels[class]
}

// ShouldReject reports whether the milter rejects messages with label
func (c *Config) ShouldReject(label string) bool {
	for _, l := range c.Milter.RejectLabels {
		if l == label {
			return true
		}
	}
	return false
}
