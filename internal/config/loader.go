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
	configDir  = ".minagis"
	configFile = "config"
	configType = "yaml"
	logFile    = "minagis.log"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// Dir returns ~/.minagis.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}

// Load reads the configuration from ~/.minagis/config.yaml.
// Returns an empty config if the file does not exist.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}
	return LoadFrom(dir)
}

// LoadFrom reads config.yaml from dir. MINAGIS_* environment variables
// override preferences, e.g. MINAGIS_PREFERENCES_LOG_LEVEL=debug.
func LoadFrom(dir string) (*Config, error) {
	v := newViper(dir)

	cfg := &Config{}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Preferences.LogFile == "" {
		cfg.Preferences.LogFile = filepath.Join(dir, logFile)
	}

	return cfg, nil
}

// Save writes the configuration to ~/.minagis/config.yaml.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return fmt.Errorf("config dir: %w", err)
	}
	return SaveTo(dir, cfg)
}

// SaveTo writes config.yaml into dir.
func SaveTo(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.Set("connections", cfg.Connections)
	v.Set("preferences", cfg.Preferences)

	path := filepath.Join(dir, configFile+"."+configType)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveConnection adds conn to the stored configuration unless a profile with
// the same name exists. Passwords go to the keyring when it is available.
func SaveConnection(cfg *Config, conn Connection) error {
	dir, err := Dir()
	if err != nil {
		return fmt.Errorf("config dir: %w", err)
	}
	return saveConnection(dir, cfg, conn)
}

func saveConnection(dir string, cfg *Config, conn Connection) error {
	if cfg.HasConnection(conn.Name) {
		return nil
	}
	// A missing keyring (headless hosts) keeps the password in the file.
	_ = conn.StorePassword()

	cfg.AddConnection(conn)
	return SaveTo(dir, cfg)
}

// DefaultConnection returns the default connection from config, or the first one.
func DefaultConnection(cfg *Config) *Connection {
	if len(cfg.Connections) == 0 {
		return nil
	}

	if c := cfg.Connection(cfg.Preferences.DefaultConnection); c != nil {
		return c
	}

	return &cfg.Connections[0]
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(configFile)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)

	v.SetEnvPrefix("minagis")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(envKeyReplacer)

	// Defaults
	v.SetDefault("preferences.theme", "default")
	v.SetDefault("preferences.log_level", "info")
	v.SetDefault("preferences.log_file", "")
	v.SetDefault("preferences.default_connection", "")
	v.SetDefault("preferences.driver", "pgx")

	return v
}
