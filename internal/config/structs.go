package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/readout/internal/capture"
	"github.com/MeKo-Tech/readout/internal/scan"
	"github.com/MeKo-Tech/readout/internal/session"
)

// Config represents the complete configuration for the readout
// application. It supports loading from configuration files,
// environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Recognition engine settings
	Engine EngineConfig `mapstructure:"engine" yaml:"engine" json:"engine"`

	// Scan session settings
	Scan ScanConfig `mapstructure:"scan" yaml:"scan" json:"scan"`

	// Per-kind plausibility ranges
	Ranges RangesConfig `mapstructure:"ranges" yaml:"ranges" json:"ranges"`

	// Default crop region
	Crop CropConfig `mapstructure:"crop" yaml:"crop" json:"crop"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// EngineConfig selects and tunes the recognition backend.
type EngineConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend" json:"backend"`
	ModelPath  string `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	NumThreads int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
	InputSize  int    `mapstructure:"input_size" yaml:"input_size" json:"input_size"`
}

// ScanConfig contains scan session settings.
type ScanConfig struct {
	IntervalMS        int     `mapstructure:"interval_ms" yaml:"interval_ms" json:"interval_ms"`
	ConfirmConfidence float64 `mapstructure:"confirm_confidence" yaml:"confirm_confidence" json:"confirm_confidence"`
	ConfirmInclusive  bool    `mapstructure:"confirm_inclusive" yaml:"confirm_inclusive" json:"confirm_inclusive"`
}

// RangeConfig bounds plausible values for one reading kind.
type RangeConfig struct {
	Min float64 `mapstructure:"min" yaml:"min" json:"min"`
	Max float64 `mapstructure:"max" yaml:"max" json:"max"`
}

// RangesConfig holds per-kind plausibility ranges.
type RangesConfig struct {
	Temperature RangeConfig `mapstructure:"temperature" yaml:"temperature" json:"temperature"`
	Humidity    RangeConfig `mapstructure:"humidity" yaml:"humidity" json:"humidity"`
}

// CropConfig holds the default fractional crop rectangle.
type CropConfig struct {
	X      float64 `mapstructure:"x" yaml:"x" json:"x"`
	Y      float64 `mapstructure:"y" yaml:"y" json:"y"`
	Width  float64 `mapstructure:"width" yaml:"width" json:"width"`
	Height float64 `mapstructure:"height" yaml:"height" json:"height"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format              string `mapstructure:"format" yaml:"format" json:"format"`
	File                string `mapstructure:"file" yaml:"file" json:"file"`
	ConfidencePrecision int    `mapstructure:"confidence_precision" yaml:"confidence_precision" json:"confidence_precision"`
	DebugDir            string `mapstructure:"debug_dir" yaml:"debug_dir" json:"debug_dir"`
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Engine.Backend {
	case "template", "tesseract", "sevenseg-onnx":
	case "":
		return errors.New("engine backend cannot be empty")
	default:
		return fmt.Errorf("unknown engine backend: %q", c.Engine.Backend)
	}
	if c.Engine.Backend == "sevenseg-onnx" && c.Engine.ModelPath == "" {
		return errors.New("sevenseg-onnx backend requires engine.model_path")
	}
	if c.Scan.IntervalMS <= 0 {
		return errors.New("scan interval must be positive")
	}
	if c.Scan.ConfirmConfidence < 0 || c.Scan.ConfirmConfidence > 100 {
		return fmt.Errorf("confirm confidence %g outside [0,100]", c.Scan.ConfirmConfidence)
	}
	for kind, r := range map[string]RangeConfig{
		"temperature": c.Ranges.Temperature,
		"humidity":    c.Ranges.Humidity,
	} {
		if r.Min >= r.Max {
			return fmt.Errorf("%s range [%g,%g] is empty", kind, r.Min, r.Max)
		}
	}
	if err := c.CropRegion().Validate(); err != nil {
		return fmt.Errorf("invalid crop configuration: %w", err)
	}
	switch c.Output.Format {
	case "", "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format: %q", c.Output.Format)
	}
	return nil
}

// CropRegion converts the crop configuration to a capture region.
func (c *Config) CropRegion() capture.CropRegion {
	return capture.CropRegion{X: c.Crop.X, Y: c.Crop.Y, Width: c.Crop.Width, Height: c.Crop.Height}
}

// SessionConfig converts the scan and range settings into the session
// package's configuration.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		Interval:          time.Duration(c.Scan.IntervalMS) * time.Millisecond,
		ConfirmConfidence: c.Scan.ConfirmConfidence,
		ConfirmInclusive:  c.Scan.ConfirmInclusive,
		Temperature:       scan.ValueRange{Min: c.Ranges.Temperature.Min, Max: c.Ranges.Temperature.Max},
		Humidity:          scan.ValueRange{Min: c.Ranges.Humidity.Min, Max: c.Ranges.Humidity.Max},
	}
}
