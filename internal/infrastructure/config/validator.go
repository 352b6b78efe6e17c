package config

import "fmt"

// validate checks the loaded configuration for consistency. Called by Load
// after defaults are applied, so empty-by-default fields are already filled.
func (c *Config) validate() error {
	switch c.Storage.Type {
	case "memory", "sqlite", "mysql":
	default:
		return fmt.Errorf("unknown storage type: %s (must be memory, sqlite, or mysql)", c.Storage.Type)
	}

	switch c.Storage.SchemaPolicy {
	case SchemaValidate, SchemaCreate, SchemaUpdate, SchemaRecreate:
	default:
		return fmt.Errorf("unknown schema policy: %s (must be validate, create, update, or recreate)", c.Storage.SchemaPolicy)
	}

	if c.Storage.Type == "sqlite" && c.Storage.SQLite.Path == "" {
		return fmt.Errorf("sqlite path cannot be empty")
	}

	if c.Storage.Type == "mysql" {
		if c.Storage.MySQL.Host == "" {
			return fmt.Errorf("mysql host cannot be empty")
		}
		if c.Storage.MySQL.Database == "" {
			return fmt.Errorf("mysql database cannot be empty")
		}
		if c.Storage.MySQL.Username == "" {
			return fmt.Errorf("mysql username cannot be empty")
		}
		if err := validatePort(c.Storage.MySQL.Port); err != nil {
			return fmt.Errorf("mysql port: %w", err)
		}
	}

	if err := ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	return ValidateLogFormat(c.Logging.Format)
}

// ValidateLogLevel checks if the log level is valid.
func ValidateLogLevel(level string) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
	return nil
}

// ValidateLogFormat checks if the log format is valid.
func ValidateLogFormat(format string) error {
	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[format] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", format)
	}
	return nil
}

func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
