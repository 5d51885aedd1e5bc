package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "readout"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "READOUT"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader. It uses the global
// viper instance so that cobra flag bindings take effect.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// GetViper returns the underlying viper instance.
func (l *Loader) GetViper() *viper.Viper { return l.v }

// Load loads configuration from files, environment variables, and
// defaults, then validates it.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// Absence of a config file is fine; defaults and env vars apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.unmarshal()
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// addConfigPaths registers the config file search locations.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".config", "readout"))
	}
	l.v.AddConfigPath("/etc/readout")
}

// setupEnvironmentVariables enables READOUT_* environment overrides.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

// setDefaults registers the default value for every setting.
func (l *Loader) setDefaults() {
	l.v.SetDefault("log_level", "info")
	l.v.SetDefault("verbose", false)

	l.v.SetDefault("engine.backend", "template")
	l.v.SetDefault("engine.model_path", "")
	l.v.SetDefault("engine.num_threads", 0)
	l.v.SetDefault("engine.input_size", 224)

	l.v.SetDefault("scan.interval_ms", 1000)
	l.v.SetDefault("scan.confirm_confidence", 50.0)
	l.v.SetDefault("scan.confirm_inclusive", false)

	l.v.SetDefault("ranges.temperature.min", 0.0)
	l.v.SetDefault("ranges.temperature.max", 200.0)
	l.v.SetDefault("ranges.humidity.min", 0.0)
	l.v.SetDefault("ranges.humidity.max", 100.0)

	l.v.SetDefault("crop.x", 0.25)
	l.v.SetDefault("crop.y", 0.35)
	l.v.SetDefault("crop.width", 0.5)
	l.v.SetDefault("crop.height", 0.3)

	l.v.SetDefault("output.format", "text")
	l.v.SetDefault("output.file", "")
	l.v.SetDefault("output.confidence_precision", 1)
	l.v.SetDefault("output.debug_dir", "")
}

// Default returns the configuration produced purely from defaults.
func Default() *Config {
	v := viper.New()
	l := &Loader{v: v}
	l.setDefaults()
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults always unmarshal; a failure here is a programming error.
		panic(err)
	}
	return &cfg
}
