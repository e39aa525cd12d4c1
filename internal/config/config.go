package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/joacominatel/minagis/internal/database"
)

// keyringService is the service name passwords are stored under.
const keyringService = "minagis"

// Config represents the application configuration.
type Config struct {
	Connections []Connection `mapstructure:"connections" yaml:"connections"`
	Preferences Preferences  `mapstructure:"preferences" yaml:"preferences"`
}

// Connection represents a saved database connection profile.
type Connection struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Host     string `mapstructure:"host" yaml:"host,omitempty"`
	Port     int    `mapstructure:"port" yaml:"port,omitempty"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
	Username string `mapstructure:"username" yaml:"username,omitempty"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	SSLMode  string `mapstructure:"sslmode" yaml:"sslmode,omitempty"`

	// Keyring means the password lives in the system keyring under Name.
	Keyring bool `mapstructure:"keyring" yaml:"keyring,omitempty"`
}

// Preferences holds user preferences.
type Preferences struct {
	Theme             string `mapstructure:"theme" yaml:"theme"`
	DefaultConnection string `mapstructure:"default_connection" yaml:"default_connection"`
	LogLevel          string `mapstructure:"log_level" yaml:"log_level"`
	LogFile           string `mapstructure:"log_file" yaml:"log_file,omitempty"`

	// Driver selects the database/sql driver: "pgx" or "postgres" (lib/pq).
	Driver string `mapstructure:"driver" yaml:"driver,omitempty"`
}

// Descriptor turns the profile into a connection descriptor, reading the
// password from the keyring when the profile says so.
func (c Connection) Descriptor() (database.Descriptor, error) {
	password := c.Password
	if c.Keyring && password == "" {
		p, err := keyring.Get(keyringService, c.Name)
		switch {
		case errors.Is(err, keyring.ErrNotFound):
		case err != nil:
			return database.Descriptor{}, fmt.Errorf("keyring: %w", err)
		default:
			password = p
		}
	}

	return database.Descriptor{
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		User:     c.Username,
		Password: password,
		SSLMode:  c.SSLMode,
	}, nil
}

// StorePassword moves the profile password into the system keyring so it is
// not written to the config file.
func (c *Connection) StorePassword() error {
	if c.Password == "" {
		return nil
	}
	if err := keyring.Set(keyringService, c.Name, c.Password); err != nil {
		return fmt.Errorf("keyring: %w", err)
	}
	c.Password = ""
	c.Keyring = true
	return nil
}

// DisplayString returns a human-readable summary of the connection.
func (c Connection) DisplayString() string {
	s := c.Host
	if s == "" {
		s = "local"
	}
	if c.Port > 0 {
		s += ":" + strconv.Itoa(c.Port)
	}
	db := c.Database
	if db == "" {
		db = c.Username
	}
	s += "/" + db
	if c.Username != "" {
		s = c.Username + "@" + s
	}
	return s
}

// ParseDSN parses a postgres:// or postgresql:// URL into a Connection.
func ParseDSN(dsn string) (Connection, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return Connection{}, fmt.Errorf("invalid DSN: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return Connection{}, fmt.Errorf("invalid DSN: unsupported scheme %q", u.Scheme)
	}

	conn := Connection{
		Host:     u.Hostname(),
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  u.Query().Get("sslmode"),
	}

	if u.User != nil {
		conn.Username = u.User.Username()
		if p, ok := u.User.Password(); ok {
			conn.Password = p
		}
	}

	if portStr := u.Port(); portStr != "" {
		conn.Port, err = strconv.Atoi(portStr)
		if err != nil {
			return Connection{}, fmt.Errorf("invalid DSN port %q: %w", portStr, err)
		}
	}
	if conn.Port == 0 {
		conn.Port = 5432
	}

	// Auto-generate a name
	conn.Name = fmt.Sprintf("postgis-%s-%d-%s", conn.Host, conn.Port, conn.Database)

	return conn, nil
}

// HasConnection checks if a connection with the given name already exists.
func (cfg *Config) HasConnection(name string) bool {
	return cfg.Connection(name) != nil
}

// Connection returns the profile called name, or nil.
func (cfg *Config) Connection(name string) *Connection {
	for i := range cfg.Connections {
		if cfg.Connections[i].Name == name {
			return &cfg.Connections[i]
		}
	}
	return nil
}

// AddConnection appends a connection if it doesn't already exist.
func (cfg *Config) AddConnection(conn Connection) {
	if !cfg.HasConnection(conn.Name) {
		cfg.Connections = append(cfg.Connections, conn)
	}
}
