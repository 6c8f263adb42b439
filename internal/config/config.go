// Package config loads soma_eq settings from flags, environment variables
// and an optional YAML file.
package config

import (
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"soma_eq/internal/eq"
)

// EnvPrefix is the prefix of environment variables, e.g. SOMA_EQ_MAX_WIDTH.
const EnvPrefix = "SOMA_EQ"

// Config represents the application configuration.
type Config struct {
	// SampleRate is the capture rate for the microphone. Streams use their
	// own decoded rate.
	SampleRate int `mapstructure:"sample_rate"`
	// BufferSize is the number of samples per frame.
	BufferSize int `mapstructure:"buffer_size"`
	// MaxWidth is the length of a full-scale bar.
	MaxWidth int `mapstructure:"max_width"`
	// Fill is the bar character.
	Fill string `mapstructure:"fill"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`
	// Play sends stream audio to the speaker while visualizing.
	Play bool `mapstructure:"play"`
	// StationsFile replaces the built-in station list.
	StationsFile string `mapstructure:"stations_file"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	def := eq.DefaultConfig()

	v.SetDefault("sample_rate", def.SampleRate)
	v.SetDefault("buffer_size", def.BufferSize)
	v.SetDefault("max_width", def.MaxWidth)
	v.SetDefault("fill", string(def.Fill))
	v.SetDefault("log_level", "warn")
	v.SetDefault("play", false)
	v.SetDefault("stations_file", "")
}

// BindEnv makes every key readable from SOMA_EQ_* variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if utf8.RuneCountInString(c.Fill) != 1 {
		return errors.Errorf("fill must be a single character, got %q", c.Fill)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return c.Visualizer().Validate()
}

// Visualizer returns the visualizer settings. The sample rate is the
// configured one; callers replace it with the rate of the actual source.
func (c *Config) Visualizer() eq.Config {
	fill, _ := utf8.DecodeRuneInString(c.Fill)
	return eq.Config{
		SampleRate: c.SampleRate,
		BufferSize: c.BufferSize,
		MaxWidth:   c.MaxWidth,
		Fill:       fill,
	}
}

// Level parses LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, errors.Errorf("unknown log level %q", c.LogLevel)
	}
}
