package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel  = "info"
	DefaultJSONLog   = false
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	DefaultHeadless      = true
	DefaultMaxTabs       = 5
	DefaultMaxTabsLimit  = 20
	DefaultOpenSettleMin = 2 * time.Second
	DefaultOpenSettleMax = 5 * time.Second
	DefaultActionSettle  = 500 * time.Millisecond
	DefaultWaitTimeout   = 10 * time.Second
	DefaultActionTimeout = 15 * time.Second
	DefaultProxyCooldown = 5 * time.Minute

	DefaultMaxActions       = 20
	DefaultFailureThreshold = 3
	DefaultMinActionDelay   = time.Second
	DefaultPromptHTMLChars  = 1000
	DefaultRunTimeout       = 30 * time.Minute

	DefaultOracleProvider    = "auto"
	DefaultOracleModel       = "gpt-4o-mini"
	DefaultOracleMaxTokens   = 1000
	DefaultOracleTemperature = 0.7
	DefaultPromptTokenBudget = 3000
	DefaultOracleCacheTTL    = 10 * time.Minute
	DefaultCacheMaxSizeBytes = 16 * 1024 * 1024 // 16MB

	DefaultDatabaseURL = "file:dealcrawl.db"
)
