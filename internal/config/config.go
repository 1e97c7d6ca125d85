// Package config loads dbobject settings from TOML files and the
// environment.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the working directory when no
// path is given.
const FileName = "dbobject.toml"

// EnvPrefix prefixes environment overrides, e.g. DBOBJECT_DATABASE_PATH.
const EnvPrefix = "DBOBJECT"

// Config is the full configuration.
type Config struct {
	Database Database `mapstructure:"database" toml:"database"`
	Log      Log      `mapstructure:"log" toml:"log"`
	Schema   Schema   `mapstructure:"schema" toml:"schema"`
}

// Database configures the SQLite store.
type Database struct {
	Path          string `mapstructure:"path" toml:"path"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms" toml:"busy_timeout_ms"`
	JournalMode   string `mapstructure:"journal_mode" toml:"journal_mode"`
}

// Log configures the logger.
type Log struct {
	Level string `mapstructure:"level" toml:"level"`
	JSON  bool   `mapstructure:"json" toml:"json"`
}

// Schema locates the CUE record type definitions.
type Schema struct {
	Dir string `mapstructure:"dir" toml:"dir"`
}

// SetDefaults configures default values for all options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "dbobject.db")
	v.SetDefault("database.busy_timeout_ms", 5000)
	v.SetDefault("database.journal_mode", "WAL")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("schema.dir", "schema")
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration from path, or from FileName in the working
// directory when path is empty. A missing default file is not an error; a
// missing explicit file is. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
	} else if _, err := os.Stat(FileName); err == nil {
		v.SetConfigFile(FileName)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", FileName)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the store cannot use.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path must be set")
	}
	if c.Database.BusyTimeoutMS < 0 {
		return errors.Newf("database.busy_timeout_ms must not be negative, got %d", c.Database.BusyTimeoutMS)
	}
	switch strings.ToUpper(c.Database.JournalMode) {
	case "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF":
	default:
		return errors.Newf("database.journal_mode %q is not a SQLite journal mode", c.Database.JournalMode)
	}
	return nil
}

// WriteDefault writes the default configuration as TOML to path. An
// existing file is left alone and reported as an error.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Newf("config file %s already exists", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrap(err, "failed to create config directory")
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to create config file")
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(Default()); err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	return nil
}
