// Package config provides configuration for the minidas tool.
//
// Every setting has a documented default; users override them via a
// YAML file passed with -config.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete tool configuration.
type Config struct {
	// Write configures how containers are written.
	Write WriteConfig `yaml:"write"`

	// Export configures Parquet export.
	Export ExportConfig `yaml:"export"`

	// Stats configures per-channel summary statistics.
	Stats StatsConfig `yaml:"stats"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`
}

// WriteConfig configures how containers are written.
type WriteConfig struct {
	// Codec is the chunk compression: zstd, none.
	Codec string `yaml:"codec"`

	// CodecLevel is the zstd compression level (1-22).
	CodecLevel int `yaml:"codec_level"`

	// Concurrency is the number of chunks compressed in parallel.
	// Zero means one worker per CPU.
	Concurrency int `yaml:"concurrency"`

	// Overwrite allows replacing an existing destination file.
	Overwrite bool `yaml:"overwrite"`
}

// ExportConfig configures Parquet export.
type ExportConfig struct {
	// Compression is the Parquet page compression: snappy, zstd, lz4,
	// gzip, none.
	Compression string `yaml:"compression"`

	// BatchRows is the number of rows buffered per write call.
	BatchRows int `yaml:"batch_rows"`
}

// StatsConfig configures per-channel summary statistics.
type StatsConfig struct {
	// Accuracy is the DDSketch relative accuracy (0.01 = 1% error).
	Accuracy float64 `yaml:"accuracy"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches output from text to JSON lines.
	JSON bool `yaml:"json"`
}

// Load loads configuration from a YAML file, layered over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Write: WriteConfig{
			Codec:      "zstd",
			CodecLevel: 3,
		},
		Export: ExportConfig{
			Compression: "zstd",
			BatchRows:   65536,
		},
		Stats: StatsConfig{
			Accuracy: 0.01,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Write.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("write: %w", err))
	}
	if err := c.Export.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("export: %w", err))
	}
	if err := c.Stats.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("stats: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the write configuration.
func (c *WriteConfig) Validate() error {
	var errs []error

	switch c.Codec {
	case "zstd", "none", "":
	default:
		errs = append(errs, fmt.Errorf("unknown codec %q", c.Codec))
	}
	if c.CodecLevel < 0 || c.CodecLevel > 22 {
		errs = append(errs, errors.New("codec_level must be in 0-22"))
	}
	if c.Concurrency < 0 {
		errs = append(errs, errors.New("concurrency must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the export configuration.
func (c *ExportConfig) Validate() error {
	var errs []error

	switch c.Compression {
	case "snappy", "zstd", "lz4", "gzip", "none", "":
	default:
		errs = append(errs, fmt.Errorf("unknown compression %q", c.Compression))
	}
	if c.BatchRows <= 0 {
		errs = append(errs, errors.New("batch_rows must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the stats configuration.
func (c *StatsConfig) Validate() error {
	if c.Accuracy <= 0 || c.Accuracy >= 1 {
		return errors.New("accuracy must be in (0, 1)")
	}
	return nil
}

// Validate checks the log configuration.
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error", "":
		return nil
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
}
