package config

import (
	"fmt"

	"github.com/law-makers/dealcrawl/internal/engine"
)

var (
	logLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	providers = map[string]bool{"auto": true, "openai": true, "rules": true}
)

// Validate checks ranges and enumerations. Failures are config errors.
func (c *Config) Validate() error {
	invalid := func(msg string, args ...interface{}) error {
		return engine.ConfigError("validate", fmt.Sprintf(msg, args...), nil)
	}

	if !logLevels[c.Logging.Level] {
		return invalid("unknown log level %q", c.Logging.Level)
	}
	if c.Loop.MaxActions <= 0 {
		return invalid("max actions must be > 0")
	}
	if c.Loop.FailureThreshold <= 0 {
		return invalid("failure threshold must be > 0")
	}
	if c.Loop.MinActionDelay < 0 {
		return invalid("min action delay must be >= 0")
	}
	if c.Loop.Timeout <= 0 {
		return invalid("run timeout must be > 0")
	}
	if c.Browser.MaxTabs <= 0 || c.Browser.MaxTabs > DefaultMaxTabsLimit {
		return invalid("max tabs must be between 1 and %d", DefaultMaxTabsLimit)
	}
	if c.Browser.OpenSettleMin < 0 || c.Browser.OpenSettleMax < c.Browser.OpenSettleMin {
		return invalid("open settle range is invalid")
	}
	if c.Browser.ActionTimeout <= 0 {
		return invalid("action timeout must be > 0")
	}
	if !providers[c.Oracle.Provider] {
		return invalid("unknown oracle provider %q", c.Oracle.Provider)
	}
	if c.Oracle.Temperature < 0 || c.Oracle.Temperature > 2 {
		return invalid("oracle temperature must be between 0 and 2")
	}
	if c.Oracle.CacheMaxBytes <= 0 {
		return invalid("cache max size must be > 0")
	}
	if !c.Store.Disabled && c.Store.DatabaseURL == "" {
		return invalid("database url is required unless the store is disabled")
	}
	return nil
}
