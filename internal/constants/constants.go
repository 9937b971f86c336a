package constants

import "time"

const (
	// CacheMaxAge is how long a cached player observation stays usable.
	CacheMaxAge = 1 * time.Hour
	// CacheFlushEvery triggers a durable save every Nth cache upsert.
	CacheFlushEvery = 10
)

const (
	// DefaultRequestsPerSecond spaces outbound Riot API calls.
	DefaultRequestsPerSecond = 20
	// RateLimitCooldown is the wait applied after an upstream 429.
	RateLimitCooldown = 120 * time.Second
	// RateLimitPollInterval slices the cool-down so aborts are noticed.
	RateLimitPollInterval = 1 * time.Second
	// RateLimitMaxRetries bounds the retry loop on repeated 429s.
	RateLimitMaxRetries = 5
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	SearchTimeout      = 30 * time.Minute
)

// MaxPageCeiling is the initial page-count estimate per search combination,
// tightened downward as empty pages are observed.
const MaxPageCeiling = 25

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	RecentRunsLimit = 10
)
