package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"pixelize/internal/logger"
	"pixelize/pkg/pixelize"
)

// Config represents the main configuration
type Config struct {
	Effect  pixelize.Settings `yaml:"effect"`
	Window  WindowConfig      `yaml:"window"`
	Scene   SceneConfig       `yaml:"scene"`
	Logging LoggingConfig     `yaml:"logging"`
	Metrics MetricsConfig     `yaml:"metrics"`
}

// WindowConfig contains the demo window configuration
type WindowConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Title      string `yaml:"title"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
	FrameRate  int    `yaml:"framerate"` // 0 means uncapped
}

// SceneConfig contains procedural scene configuration
type SceneConfig struct {
	Seed    int64   `yaml:"seed"`
	Scale   float64 `yaml:"scale"`
	Octaves int     `yaml:"octaves"`
	// Speed multiplies wall-clock time for the animated scene; 0 freezes it.
	Speed float64 `yaml:"speed"`
}

// LoggingConfig contains logger configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error, fatal, silent
	File  string `yaml:"file"`  // empty logs to the console only
}

// MetricsConfig contains the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// DefaultConfig creates a default configuration
func DefaultConfig() *Config {
	return &Config{
		Effect: pixelize.DefaultSettings(),
		Window: WindowConfig{
			Width:     1280,
			Height:    720,
			Title:     "Pixelize",
			VSync:     true,
			FrameRate: 60,
		},
		Scene: SceneConfig{
			Seed:    1,
			Scale:   4,
			Octaves: 5,
			Speed:   1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}

// LoadConfig loads the configuration from a file and validates it. On any
// error the returned config holds the defaults merged with whatever was
// parsed.
func LoadConfig(filePath string) (*Config, error) {
	config, err := ReadConfig(filePath)
	if err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// ReadConfig merges a file over the defaults without validating, for
// callers that apply overrides first.
func ReadConfig(filePath string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return config, fmt.Errorf("config file not found, using defaults: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, fmt.Errorf("error parsing config: %w", err)
	}
	return config, nil
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, filePath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error serializing config: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Validate reports every invalid field, joined.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Effect.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, &pixelize.ConfigurationError{
			Field:  "window",
			Value:  fmt.Sprintf("%dx%d", c.Window.Width, c.Window.Height),
			Reason: "size must be positive",
		})
	}
	if c.Window.FrameRate < 0 {
		errs = append(errs, &pixelize.ConfigurationError{
			Field: "window.framerate", Value: fmt.Sprint(c.Window.FrameRate), Reason: "must not be negative",
		})
	}
	if c.Scene.Scale < 0 || c.Scene.Octaves < 0 {
		errs = append(errs, &pixelize.ConfigurationError{
			Field:  "scene",
			Value:  fmt.Sprintf("scale=%g octaves=%d", c.Scene.Scale, c.Scene.Octaves),
			Reason: "must not be negative",
		})
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, &pixelize.ConfigurationError{
			Field: "logging.level", Value: c.Logging.Level, Reason: err.Error(),
		})
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, &pixelize.ConfigurationError{
			Field: "metrics.addr", Reason: "required when metrics are enabled",
		})
	}
	return errors.Join(errs...)
}
