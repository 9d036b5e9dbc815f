// Package config loads the harness configuration from an optional YAML file,
// an optional .env file and HARNESS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/CZERTAINLY/harness/internal/log"
)

const (
	EnvPrefix = "HARNESS"

	LogCLI    = "cli"
	LogStdout = "stdout"
	LogNull   = "null"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Log       Log       `mapstructure:"log"`
	Heartbeat Heartbeat `mapstructure:"heartbeat"`

	// ConfigFilePath is the file the configuration was read from, if any.
	ConfigFilePath string `mapstructure:"-"`
}

type Log struct {
	log.Config `mapstructure:",squash"`
	// Destination is one of cli, stdout or null.
	Destination string `mapstructure:"destination"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
}

type Heartbeat struct {
	Interval time.Duration `mapstructure:"interval"`
	Message  string        `mapstructure:"message"`
}

// Load reads the configuration. An empty path looks for harness.yaml in the
// working directory and in the user config directory; a missing file is not
// an error.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("harness")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if d, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(d, "harness"))
		}
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.ConfigFilePath = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.destination", LogCLI)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", log.FormatJSON)
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 5)

	v.SetDefault("heartbeat.interval", 10*time.Second)
	v.SetDefault("heartbeat.message", "alive")
}

func (c Config) Validate() error {
	var errs []error
	switch c.Log.Destination {
	case LogCLI, LogStdout, LogNull:
	default:
		errs = append(errs, fmt.Errorf("log.destination: expected one of %s, %s, %s, got %q", LogCLI, LogStdout, LogNull, c.Log.Destination))
	}
	switch strings.ToLower(c.Log.Format) {
	case log.FormatJSON, log.FormatText:
	default:
		errs = append(errs, fmt.Errorf("log.format: expected %s or %s, got %q", log.FormatJSON, log.FormatText, c.Log.Format))
	}
	if c.Log.MaxSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("log.max_size_mb: must be positive, got %d", c.Log.MaxSizeMB))
	}
	if c.Log.MaxBackups < 0 {
		errs = append(errs, fmt.Errorf("log.max_backups: must not be negative, got %d", c.Log.MaxBackups))
	}
	if c.Heartbeat.Interval <= 0 {
		errs = append(errs, fmt.Errorf("heartbeat.interval: must be positive, got %s", c.Heartbeat.Interval))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
