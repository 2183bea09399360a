package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/law-makers/dealcrawl/internal/engine"
	"github.com/spf13/cobra"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"DEALCRAWL_CONFIG", "DEALCRAWL_LOG_LEVEL", "LOG_LEVEL", "DEALCRAWL_HEADLESS", "HEADLESS",
		"DEALCRAWL_PROXIES", "DEALCRAWL_MAX_ACTIONS", "DEALCRAWL_ORACLE", "DEALCRAWL_DATABASE_URL",
		"DATABASE_URL", "DEALCRAWL_SITES", "DEALCRAWL_MODEL", "OPENAI_MODEL",
	} {
		t.Setenv(name, "")
	}
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Loop.MaxActions != 20 || cfg.Loop.FailureThreshold != 3 {
		t.Errorf("unexpected loop defaults: %+v", cfg.Loop)
	}
	if cfg.Browser.MaxTabs != 5 {
		t.Errorf("expected 5 tabs, got %d", cfg.Browser.MaxTabs)
	}
	if cfg.Store.DatabaseURL != DefaultDatabaseURL {
		t.Errorf("unexpected database url %q", cfg.Store.DatabaseURL)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "dealcrawl.yaml")
	content := `
logging:
  level: debug
browser:
  headless: false
  max_tabs: 3
  proxies: ["http://10.0.0.1:8080"]
loop:
  max_actions: 7
  min_action_delay: 250ms
oracle:
  provider: rules
store:
  database_url: "file::memory:"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEALCRAWL_CONFIG", path)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug, got %q", cfg.Logging.Level)
	}
	if cfg.Browser.Headless {
		t.Error("expected headless=false from file")
	}
	if cfg.Browser.MaxTabs != 3 || len(cfg.Browser.Proxies) != 1 {
		t.Errorf("unexpected browser config: %+v", cfg.Browser)
	}
	if cfg.Loop.MaxActions != 7 || cfg.Loop.MinActionDelay != 250*time.Millisecond {
		t.Errorf("unexpected loop config: %+v", cfg.Loop)
	}
	// Unset keys keep their defaults
	if cfg.Loop.FailureThreshold != DefaultFailureThreshold {
		t.Errorf("expected default threshold, got %d", cfg.Loop.FailureThreshold)
	}
	if cfg.Oracle.Provider != "rules" {
		t.Errorf("expected rules provider, got %q", cfg.Oracle.Provider)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEALCRAWL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load(nil)
	if engine.KindOf(err) != engine.KindConfig {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"LOG_LEVEL":         "WARN",
		"HEADLESS":          "false",
		"DEALCRAWL_PROXIES": "http://a:1, socks5://b:2",
		"DATABASE_URL":      "mysql://u:p@tcp(db:3306)/deals",
		"OPENAI_API_KEY":    "sk-test",
	}
	cfg := Defaults()
	cfg.applyEnv(func(k string) string { return env[k] })

	if cfg.Logging.Level != "warn" {
		t.Errorf("expected warn, got %q", cfg.Logging.Level)
	}
	if cfg.Browser.Headless {
		t.Error("expected headless=false")
	}
	if len(cfg.Browser.Proxies) != 2 || cfg.Browser.Proxies[1] != "socks5://b:2" {
		t.Errorf("unexpected proxies: %v", cfg.Browser.Proxies)
	}
	if cfg.Store.DatabaseURL != env["DATABASE_URL"] {
		t.Errorf("unexpected database url %q", cfg.Store.DatabaseURL)
	}
	if cfg.Oracle.APIKey != "sk-test" {
		t.Errorf("expected api key from env")
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEALCRAWL_MAX_ACTIONS", "50")

	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
	RegisterFlags(cmd)
	cmd.PersistentFlags().Int("max-actions", DefaultMaxActions, "")
	if err := cmd.ParseFlags([]string{"--max-actions=4", "--verbose", "--oracle=rules", "--no-store"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Loop.MaxActions != 4 {
		t.Errorf("expected flag to win, got %d", cfg.Loop.MaxActions)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug from --verbose, got %q", cfg.Logging.Level)
	}
	if cfg.Oracle.Provider != "rules" || !cfg.Store.Disabled {
		t.Errorf("unexpected config: %+v %+v", cfg.Oracle, cfg.Store)
	}
}

func TestUnchangedFlagsKeepEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEALCRAWL_HEADLESS", "false")

	cmd := &cobra.Command{Use: "test"}
	RegisterFlags(cmd)
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cmd)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Browser.Headless {
		t.Error("default flag value should not override env")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max actions", func(c *Config) { c.Loop.MaxActions = 0 }},
		{"zero threshold", func(c *Config) { c.Loop.FailureThreshold = 0 }},
		{"too many tabs", func(c *Config) { c.Browser.MaxTabs = DefaultMaxTabsLimit + 1 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad provider", func(c *Config) { c.Oracle.Provider = "magic" }},
		{"settle range", func(c *Config) { c.Browser.OpenSettleMax = time.Millisecond }},
		{"no action timeout", func(c *Config) { c.Browser.ActionTimeout = 0 }},
		{"temperature", func(c *Config) { c.Oracle.Temperature = 3 }},
		{"no database", func(c *Config) { c.Store.DatabaseURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if engine.KindOf(err) != engine.KindConfig {
				t.Errorf("expected config kind, got %v", engine.KindOf(err))
			}
		})
	}

	cfg := Defaults()
	cfg.Store.DatabaseURL = ""
	cfg.Store.Disabled = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled store needs no url: %v", err)
	}
}
