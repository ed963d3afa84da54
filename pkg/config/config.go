// Package config provides configuration loading and management for ctvolume.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"gopkg.in/yaml.v3"

	"ctvolume/pkg/visualization"
	"ctvolume/pkg/volume"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Input controls how slice directories are assembled
	Input struct {
		// Extension is the file extension recognised as a slice
		Extension string `yaml:"extension"`

		// StrictGeometry rejects directories whose slices disagree on
		// size, pixel spacing or thickness
		StrictGeometry bool `yaml:"strictGeometry"`
	} `yaml:"input"`

	// Output parameters
	Output struct {
		// Overwrite allows replacing existing output files
		Overwrite bool `yaml:"overwrite"`

		// Extension is appended to image outputs named without one
		Extension string `yaml:"extension"`
	} `yaml:"output"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for resampling
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Render controls slice images
	Render struct {
		WindowCenter float64   `yaml:"windowCenter"`
		WindowWidth  float64   `yaml:"windowWidth"`
		JPEGQuality  int       `yaml:"jpegQuality"`
		DoseLevels   []float64 `yaml:"doseLevels"`
		DoseAlpha    float64   `yaml:"doseAlpha"`
	} `yaml:"render"`

	Logging struct {
		// Level is one of the logrus level names
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Input.Extension = ".dcm"
	cfg.Input.StrictGeometry = false

	cfg.Output.Overwrite = false
	cfg.Output.Extension = ".img"

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	style := visualization.DefaultStyle()
	cfg.Render.WindowCenter = style.Window.Center
	cfg.Render.WindowWidth = style.Window.Width
	cfg.Render.JPEGQuality = style.JPEGQuality
	cfg.Render.DoseLevels = style.DoseLevels
	cfg.Render.DoseAlpha = style.DoseAlpha

	cfg.Logging.Level = "info"

	return cfg
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Processing.NumCores < 0 {
		errs = append(errs, fmt.Errorf("processing.numCores must not be negative, got %d", c.Processing.NumCores))
	}
	if c.Render.WindowWidth <= 0 {
		errs = append(errs, fmt.Errorf("render.windowWidth must be positive, got %g", c.Render.WindowWidth))
	}
	if q := c.Render.JPEGQuality; q < 1 || q > 100 {
		errs = append(errs, fmt.Errorf("render.jpegQuality must be in [1, 100], got %d", q))
	}
	if a := c.Render.DoseAlpha; a < 0 || a > 1 {
		errs = append(errs, fmt.Errorf("render.doseAlpha must be in [0, 1], got %g", a))
	}
	if len(c.Render.DoseLevels) < 2 || !sort.Float64sAreSorted(c.Render.DoseLevels) {
		errs = append(errs, errors.New("render.doseLevels must hold at least two ascending values"))
	}
	return errors.Join(errs...)
}

// VolumeOptions converts the input and output sections into volume options.
func (c *Config) VolumeOptions() []volume.Option {
	opts := []volume.Option{volume.WithExtension(c.Input.Extension)}
	if c.Input.StrictGeometry {
		opts = append(opts, volume.WithStrictGeometry())
	}
	if c.Output.Overwrite {
		opts = append(opts, volume.WithOverwrite())
	}
	return opts
}

// Style converts the render section into a visualization style.
func (c *Config) Style() visualization.Style {
	return visualization.Style{
		Window:      visualization.Window{Center: c.Render.WindowCenter, Width: c.Render.WindowWidth},
		DoseLevels:  c.Render.DoseLevels,
		DoseAlpha:   c.Render.DoseAlpha,
		JPEGQuality: c.Render.JPEGQuality,
	}
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
