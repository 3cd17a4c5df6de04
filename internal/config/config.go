// Package config handles configuration loading for the viewer.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dspacex/msview/internal/scene"
	"github.com/dspacex/msview/pkg/viewer"
)

// Config represents the viewer configuration.
type Config struct {
	Server        ServerConfig     `yaml:"server"`
	Decomposition scene.Descriptor `yaml:"decomposition"`
	Model         ModelConfig      `yaml:"model"`
	View          ViewConfig       `yaml:"view"`
	Log           LogConfig        `yaml:"log"`
	Metrics       MetricsConfig    `yaml:"metrics"`
}

// ServerConfig contains the dSpaceX backend settings.
type ServerConfig struct {
	URL                string        `yaml:"url"`
	DialTimeout        time.Duration `yaml:"dial_timeout"`
	PartitionCacheSize int           `yaml:"partition_cache_size"`
}

// ModelConfig contains model evaluation settings.
type ModelConfig struct {
	// SampleCount is the size of a drawer batch
	SampleCount int `yaml:"sample_count"`
	// ScrubSampleCount is the number of samples per scrub evaluation
	ScrubSampleCount int  `yaml:"scrub_sample_count"`
	Validate         bool `yaml:"validate"`
}

// ViewConfig contains window settings.
type ViewConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Camera string `yaml:"camera"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig contains the prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads configuration from a YAML file. An empty path or a missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// LoadDescriptor reads a file holding only a decomposition
func LoadDescriptor(path string) (scene.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scene.Descriptor{}, fmt.Errorf("read decomposition: %w", err)
	}
	var d scene.Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return scene.Descriptor{}, fmt.Errorf("parse decomposition %s: %w", path, err)
	}
	if err := validateDescriptor(d); err != nil {
		return scene.Descriptor{}, err
	}
	return d, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:                "ws://localhost:7681",
			DialTimeout:        30 * time.Second,
			PartitionCacheSize: 128,
		},
		Model: ModelConfig{
			SampleCount:      50,
			ScrubSampleCount: 1,
		},
		View: ViewConfig{
			Width:  1024,
			Height: 768,
			Camera: viewer.Orthographic.String(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.URL == "" {
		cfg.Server.URL = defaults.Server.URL
	}
	if cfg.Server.DialTimeout == 0 {
		cfg.Server.DialTimeout = defaults.Server.DialTimeout
	}
	if cfg.Server.PartitionCacheSize == 0 {
		cfg.Server.PartitionCacheSize = defaults.Server.PartitionCacheSize
	}
	if cfg.Model.SampleCount == 0 {
		cfg.Model.SampleCount = defaults.Model.SampleCount
	}
	if cfg.Model.ScrubSampleCount == 0 {
		cfg.Model.ScrubSampleCount = defaults.Model.ScrubSampleCount
	}
	if cfg.View.Width == 0 {
		cfg.View.Width = defaults.View.Width
	}
	if cfg.View.Height == 0 {
		cfg.View.Height = defaults.View.Height
	}
	if cfg.View.Camera == "" {
		cfg.View.Camera = defaults.View.Camera
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
}

// Validate checks values that have no sensible fallback
func (c *Config) Validate() error {
	if _, ok := viewer.ParseCameraMode(c.View.Camera); !ok {
		return fmt.Errorf("unknown camera %q", c.View.Camera)
	}
	if c.Server.PartitionCacheSize < 0 {
		return fmt.Errorf("partition cache size must not be negative, got %d", c.Server.PartitionCacheSize)
	}
	if c.Model.SampleCount < 1 || c.Model.ScrubSampleCount < 1 {
		return errors.New("sample counts must be positive")
	}
	if c.View.Width < 0 || c.View.Height < 0 {
		return fmt.Errorf("invalid window size %dx%d", c.View.Width, c.View.Height)
	}
	if c.Decomposition.IsZero() {
		return nil
	}
	return validateDescriptor(c.Decomposition)
}

func validateDescriptor(d scene.Descriptor) error {
	if d.K < 1 {
		return fmt.Errorf("k must be at least 1, got %d", d.K)
	}
	if d.PersistenceLevel < 0 {
		return fmt.Errorf("persistence level must not be negative, got %d", d.PersistenceLevel)
	}
	return nil
}
