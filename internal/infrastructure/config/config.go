package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SchemaPolicy controls how the storage layer reconciles the database schema
// at startup.
type SchemaPolicy string

const (
	// SchemaValidate only checks that the required tables exist and fails
	// construction if they do not.
	SchemaValidate SchemaPolicy = "validate"

	// SchemaCreate applies the schema if it has not been applied yet.
	SchemaCreate SchemaPolicy = "create"

	// SchemaUpdate runs all pending versioned migrations.
	SchemaUpdate SchemaPolicy = "update"

	// SchemaRecreate drops the known tables and applies the schema from
	// scratch. Destroys data; meant for development.
	SchemaRecreate SchemaPolicy = "recreate"
)

// Config holds all application configuration. It is loaded once at process
// start and treated as immutable afterwards.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Type selects the backend: "memory", "sqlite", or "mysql".
	Type string `yaml:"type"`

	// SchemaPolicy is the schema reconciliation policy applied at startup.
	SchemaPolicy SchemaPolicy `yaml:"schema_policy"`

	SQLite SQLiteConfig `yaml:"sqlite"`
	MySQL  MySQLConfig  `yaml:"mysql"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"` // Database file path, use ":memory:" for in-memory
}

// MySQLConfig holds MySQL-specific settings.
type MySQLConfig struct {
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	Database  string          `yaml:"database"`
	Username  string          `yaml:"username"`
	Password  string          `yaml:"password"`
	Charset   string          `yaml:"charset"`
	ParseTime bool            `yaml:"parse_time"`
	Timeout   time.Duration   `yaml:"timeout"`
	Pool      MySQLPoolConfig `yaml:"pool"`
}

// MySQLPoolConfig holds connection pool settings.
type MySQLPoolConfig struct {
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text

	// EchoSQL logs every statement sent to the storage backend at debug
	// level. Diagnostic aid only.
	EchoSQL bool `yaml:"echo_sql"`
}

// Load reads configuration from a YAML file, applies environment overrides
// and defaults, and validates the result. A missing file is not an error:
// defaults plus environment are enough to run against the memory backend.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg.overrideFromEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// overrideFromEnv overrides config values from environment variables.
func (c *Config) overrideFromEnv() {
	// Storage
	if v := os.Getenv("CREDSTORE_STORAGE_TYPE"); v != "" {
		c.Storage.Type = v
	}
	if v := os.Getenv("CREDSTORE_SCHEMA_POLICY"); v != "" {
		c.Storage.SchemaPolicy = SchemaPolicy(v)
	}
	if v := os.Getenv("CREDSTORE_SQLITE_PATH"); v != "" {
		c.Storage.SQLite.Path = v
	}

	// MySQL
	if v := os.Getenv("CREDSTORE_MYSQL_HOST"); v != "" {
		c.Storage.MySQL.Host = v
	}
	if v := os.Getenv("CREDSTORE_MYSQL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Storage.MySQL.Port = port
		}
	}
	if v := os.Getenv("CREDSTORE_MYSQL_DATABASE"); v != "" {
		c.Storage.MySQL.Database = v
	}
	if v := os.Getenv("CREDSTORE_MYSQL_USERNAME"); v != "" {
		c.Storage.MySQL.Username = v
	}
	if v := os.Getenv("CREDSTORE_MYSQL_PASSWORD"); v != "" {
		c.Storage.MySQL.Password = v
	}

	// Logging
	if v := os.Getenv("CREDSTORE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CREDSTORE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("CREDSTORE_ECHO_SQL"); v != "" {
		c.Logging.EchoSQL = strings.ToLower(v) == "true"
	}
}

// applyDefaults fills in defaults for unset values.
func (c *Config) applyDefaults() {
	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}
	if c.Storage.SchemaPolicy == "" {
		c.Storage.SchemaPolicy = SchemaCreate
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = "data/credstore.db"
	}

	if c.Storage.MySQL.Port == 0 {
		c.Storage.MySQL.Port = 3306
	}
	if c.Storage.MySQL.Charset == "" {
		c.Storage.MySQL.Charset = "utf8mb4"
	}
	if c.Storage.MySQL.Timeout == 0 {
		c.Storage.MySQL.Timeout = 5 * time.Second
	}
	if c.Storage.MySQL.Pool.MaxOpenConns == 0 {
		c.Storage.MySQL.Pool.MaxOpenConns = 10
	}
	if c.Storage.MySQL.Pool.MaxIdleConns == 0 {
		c.Storage.MySQL.Pool.MaxIdleConns = 5
	}
	if c.Storage.MySQL.Pool.ConnMaxLifetime == 0 {
		c.Storage.MySQL.Pool.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Storage.MySQL.Pool.ConnMaxIdleTime == 0 {
		c.Storage.MySQL.Pool.ConnMaxIdleTime = 5 * time.Minute
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}
