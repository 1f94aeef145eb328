package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "database.max_conns"
	Message string // e.g., "must be positive"
	Hint    string // e.g., "set max_conns >= min_conns"
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate performs comprehensive validation of the entire config.
// It aggregates all errors and returns them, allowing the caller to print all issues at once.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func (c *Config) validateDatabase() []error {
	var errs []error
	dc := c.Database

	if dc.DSN == "" {
		if dc.User == "" {
			errs = append(errs, ValidationError{
				Path:    "database.user",
				Message: "must not be empty when dsn is not set",
			})
		}
		if dc.Database == "" {
			errs = append(errs, ValidationError{
				Path:    "database.database",
				Message: "must not be empty when dsn is not set",
			})
		}
		switch dc.SSLMode {
		case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			errs = append(errs, ValidationError{
				Path:    "database.ssl_mode",
				Message: fmt.Sprintf("unknown mode %q", dc.SSLMode),
				Hint:    "expected one of disable, allow, prefer, require, verify-ca, verify-full",
			})
		}
	} else if !strings.HasPrefix(dc.DSN, "postgres://") && !strings.HasPrefix(dc.DSN, "postgresql://") && !strings.Contains(dc.DSN, "=") {
		errs = append(errs, ValidationError{
			Path:    "database.dsn",
			Message: "not a recognized connection string",
			Hint:    "expected postgres://... URL or key=value pairs",
		})
	}

	if dc.MaxConns < 0 {
		errs = append(errs, ValidationError{
			Path:    "database.max_conns",
			Message: "must not be negative",
		})
	}
	if dc.MinConns < 0 {
		errs = append(errs, ValidationError{
			Path:    "database.min_conns",
			Message: "must not be negative",
		})
	}
	if dc.MaxConns > 0 && dc.MinConns > dc.MaxConns {
		errs = append(errs, ValidationError{
			Path:    "database.min_conns",
			Message: fmt.Sprintf("min_conns (%d) exceeds max_conns (%d)", dc.MinConns, dc.MaxConns),
		})
	}
	if dc.AcquireTimeout < 0 {
		errs = append(errs, ValidationError{
			Path:    "database.acquire_timeout",
			Message: "must not be negative",
		})
	}
	if dc.StatementTimeout < 0 {
		errs = append(errs, ValidationError{
			Path:    "database.statement_timeout",
			Message: "must not be negative",
		})
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error
	lc := c.Logging

	switch lc.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("unknown level %q", lc.Level),
			Hint:    "expected one of debug, info, warn, error",
		})
	}

	switch lc.Format {
	case "", "json", "console":
	default:
		errs = append(errs, ValidationError{
			Path:    "logging.format",
			Message: fmt.Sprintf("unknown format %q", lc.Format),
			Hint:    "expected json or console",
		})
	}

	return errs
}
