package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration values
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Browser BrowserConfig `yaml:"browser"`
	Loop    LoopConfig    `yaml:"loop"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Store   StoreConfig   `yaml:"store"`
	// SitesFile points at a YAML file of site definitions; empty uses the
	// built-in sites
	SitesFile string `yaml:"sites_file"`
}

// LoggingConfig selects level and format
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// BrowserConfig configures Chrome and tab pacing
type BrowserConfig struct {
	Headless      bool          `yaml:"headless"`
	ChromePath    string        `yaml:"chrome_path"`
	UserAgent     string        `yaml:"user_agent"`
	Proxies       []string      `yaml:"proxies"`
	ProxyCooldown time.Duration `yaml:"proxy_cooldown"`
	// Headers are extra request headers in "Key: Value" form
	Headers       []string      `yaml:"headers"`
	MaxTabs       int           `yaml:"max_tabs"`
	OpenSettleMin time.Duration `yaml:"open_settle_min"`
	OpenSettleMax time.Duration `yaml:"open_settle_max"`
	ActionSettle  time.Duration `yaml:"action_settle"`
	WaitTimeout   time.Duration `yaml:"wait_timeout"`
	// ActionTimeout bounds every browser call made for one action
	ActionTimeout time.Duration `yaml:"action_timeout"`
}

// LoopConfig bounds each agent run
type LoopConfig struct {
	MaxActions       int           `yaml:"max_actions"`
	FailureThreshold int           `yaml:"failure_threshold"`
	MinActionDelay   time.Duration `yaml:"min_action_delay"`
	PromptHTMLChars  int           `yaml:"prompt_html_chars"`
	// Concurrency caps parallel runs in crawl; 0 picks from the machine
	Concurrency      int           `yaml:"concurrency"`
	Timeout          time.Duration `yaml:"timeout"`
}

// OracleConfig selects the decision backend
type OracleConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"-"`
	MaxTokens         int           `yaml:"max_tokens"`
	Temperature       float64       `yaml:"temperature"`
	PromptTokenBudget int           `yaml:"prompt_token_budget"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	CacheMaxBytes     int64         `yaml:"cache_max_bytes"`
}

// StoreConfig selects the record store
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url"`
	Disabled    bool   `yaml:"disabled"`
}

// Defaults returns a Config with every default applied
func Defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
			JSON:  DefaultJSONLog,
		},
		Browser: BrowserConfig{
			Headless:      DefaultHeadless,
			UserAgent:     DefaultUserAgent,
			ProxyCooldown: DefaultProxyCooldown,
			MaxTabs:       DefaultMaxTabs,
			OpenSettleMin: DefaultOpenSettleMin,
			OpenSettleMax: DefaultOpenSettleMax,
			ActionSettle:  DefaultActionSettle,
			WaitTimeout:   DefaultWaitTimeout,
			ActionTimeout: DefaultActionTimeout,
		},
		Loop: LoopConfig{
			MaxActions:       DefaultMaxActions,
			FailureThreshold: DefaultFailureThreshold,
			MinActionDelay:   DefaultMinActionDelay,
			PromptHTMLChars:  DefaultPromptHTMLChars,
			Timeout:          DefaultRunTimeout,
		},
		Oracle: OracleConfig{
			Provider:          DefaultOracleProvider,
			Model:             DefaultOracleModel,
			MaxTokens:         DefaultOracleMaxTokens,
			Temperature:       DefaultOracleTemperature,
			PromptTokenBudget: DefaultPromptTokenBudget,
			CacheTTL:          DefaultOracleCacheTTL,
			CacheMaxBytes:     DefaultCacheMaxSizeBytes,
		},
		Store: StoreConfig{
			DatabaseURL: DefaultDatabaseURL,
		},
	}
}

// Load builds a Config by combining defaults, an optional config file, environment variables, and CLI flags.
// Caller should pass the executing *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Defaults()

	path := os.Getenv("DEALCRAWL_CONFIG")
	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
			path = f.Value.String()
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv(os.Getenv)
	if cmd != nil {
		cfg.applyFlags(cmd)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.ConfigError("load", "failed to read config file", err).WithDetail("path", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return engine.ConfigError("load", "failed to parse config file", err).WithDetail("path", path)
	}
	return nil
}

// applyEnv overrides values from environment variables. Unprefixed names
// are accepted for the settings other tools commonly export.
func (c *Config) applyEnv(getenv func(string) string) {
	env := func(names ...string) string {
		for _, n := range names {
			if v := getenv(n); v != "" {
				return v
			}
		}
		return ""
	}

	if v := env("DEALCRAWL_LOG_LEVEL", "LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := env("DEALCRAWL_HEADLESS", "HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if v := env("DEALCRAWL_CHROME_PATH"); v != "" {
		c.Browser.ChromePath = v
	}
	if v := env("DEALCRAWL_USER_AGENT"); v != "" {
		c.Browser.UserAgent = v
	}
	if v := env("DEALCRAWL_PROXIES"); v != "" {
		c.Browser.Proxies = splitList(v)
	}
	if v := env("DEALCRAWL_MAX_ACTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Loop.MaxActions = n
		}
	}
	if v := env("DEALCRAWL_ORACLE"); v != "" {
		c.Oracle.Provider = v
	}
	if v := env("DEALCRAWL_MODEL", "OPENAI_MODEL"); v != "" {
		c.Oracle.Model = v
	}
	if v := env("OPENAI_BASE_URL"); v != "" {
		c.Oracle.BaseURL = v
	}
	if v := env("DEALCRAWL_OPENAI_API_KEY", "OPENAI_API_KEY"); v != "" {
		c.Oracle.APIKey = v
	}
	if v := env("DEALCRAWL_DATABASE_URL", "DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := env("DEALCRAWL_SITES"); v != "" {
		c.SitesFile = v
	}
}

func (c *Config) applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	str := func(name string) (string, bool) {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			return "", false
		}
		return f.Value.String(), true
	}

	if v, ok := str("verbose"); ok && v == "true" {
		c.Logging.Level = "debug"
	}
	if v, ok := str("quiet"); ok && v == "true" {
		c.Logging.Level = "error"
	}
	if v, ok := str("json"); ok && v == "true" {
		c.Logging.JSON = true
	}
	if v, ok := str("headless"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Browser.Headless = b
		}
	}
	if v, ok := str("user-agent"); ok && v != "" {
		c.Browser.UserAgent = v
	}
	if v, ok := str("proxy"); ok && v != "" {
		c.Browser.Proxies = splitList(v)
	}
	if v, ok := str("oracle"); ok && v != "" {
		c.Oracle.Provider = v
	}
	if v, ok := str("model"); ok && v != "" {
		c.Oracle.Model = v
	}
	if v, ok := str("database"); ok && v != "" {
		c.Store.DatabaseURL = v
	}
	if v, ok := str("no-store"); ok && v == "true" {
		c.Store.Disabled = true
	}
	if v, ok := str("sites"); ok && v != "" {
		c.SitesFile = v
	}
	if v, ok := str("max-actions"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Loop.MaxActions = n
		}
	}
	if v, ok := str("failure-threshold"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Loop.FailureThreshold = n
		}
	}
	if v, ok := str("timeout"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.Loop.Timeout = d
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
