// Package config provides configuration types for the extractor.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Common errors.
var (
	ErrInvalidChunkSize = errors.New("invalid chunk size")
	ErrInvalidCodec     = errors.New("codec must be a four-character code")
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// Config holds all application configuration.
type Config struct {
	// Extraction
	UseBackground     bool          `yaml:"use_background"`
	ChunkSize         int           `yaml:"chunk_size"`          // background read size
	FallbackChunkSize int           `yaml:"fallback_chunk_size"` // in-context read size
	Codec             string        `yaml:"codec"`
	MaxBandwidth      int64         `yaml:"max_bandwidth"` // bytes per second, 0 = unlimited
	HTTPTimeout       time.Duration `yaml:"http_timeout"` // wait for response headers

	// Host zone used to correct the capture start time.
	Location *time.Location `yaml:"-"`

	// Output
	OutputDir string `yaml:"output_dir"`
	Threads   int    `yaml:"threads"`

	// UI/Logging
	NoProgress  bool   `yaml:"no_progress"`
	Verbose     bool   `yaml:"verbose"`
	LogFile     string `yaml:"log_file"`
	LogFormat   string `yaml:"log_format"` // text, json
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default configuration values.
const (
	DefaultChunkSize         = 16 * 1024 * 1024
	DefaultFallbackChunkSize = 2 * 1024 * 1024
	LowMemoryChunkSize       = 512 * 1024
	DefaultCodec             = "gpmd"
	DefaultThreads           = 4
	DefaultLogFormat         = "text"
	DefaultLogLevel          = "info"
	DefaultHTTPTimeout       = 30 * time.Second

	MinChunkSize = 64 * 1024
	MaxChunkSize = 256 * 1024 * 1024
	MaxThreads   = 64
	MinThreads   = 1
)

// New returns a Config with sensible defaults.
func New() *Config {
	return &Config{
		UseBackground:     true,
		ChunkSize:         DefaultChunkSize,
		FallbackChunkSize: DefaultFallbackChunkSize,
		Codec:             DefaultCodec,
		HTTPTimeout:       DefaultHTTPTimeout,
		Location:          time.Local,
		OutputDir:         ".",
		Threads:           DefaultThreads,
		LogFormat:         DefaultLogFormat,
		LogLevel:          DefaultLogLevel,
	}
}

// Validate checks if the configuration is valid and normalizes values.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 || c.FallbackChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	c.ChunkSize = clamp(c.ChunkSize, MinChunkSize, MaxChunkSize)
	c.FallbackChunkSize = clamp(c.FallbackChunkSize, MinChunkSize, MaxChunkSize)

	if len(c.Codec) != 4 {
		return fmt.Errorf("%w: %q", ErrInvalidCodec, c.Codec)
	}

	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat)
	}

	// Clamp threads to valid range
	c.Threads = clamp(c.Threads, MinThreads, MaxThreads)

	if c.Location == nil {
		c.Location = time.Local
	}
	if c.MaxBandwidth < 0 {
		c.MaxBandwidth = 0
	}
	return nil
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return cfg, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
