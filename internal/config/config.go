package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	RiotAPIKey string

	// Platform is the platform routing value for league/summoner
	// endpoints, e.g. "euw1", "na1".
	Platform string
	// Routing is the continental routing value for account/match
	// endpoints, e.g. "europe", "americas".
	Routing string

	CachePath string
	DBPath    string
	LogLevel  string

	RequestsPerSecond int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	rps, err := strconv.Atoi(getEnv("REQUESTS_PER_SECOND", "20"))
	if err != nil || rps < 1 {
		return nil, fmt.Errorf("REQUESTS_PER_SECOND must be a positive integer")
	}

	cfg := &Config{
		RiotAPIKey:        getEnv("RIOT_API_KEY", ""),
		Platform:          getEnv("PLATFORM_REGION", "euw1"),
		Routing:           getEnv("ROUTING_REGION", "europe"),
		CachePath:         getEnv("CACHE_PATH", "players_cache.json"),
		DBPath:            getEnv("DB_PATH", "finder.db"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RequestsPerSecond: rps,
	}

	if cfg.RiotAPIKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}

	logger.Info().
		Str("platform", cfg.Platform).
		Str("routing", cfg.Routing).
		Str("cache_path", cfg.CachePath).
		Str("db_path", cfg.DBPath).
		Str("log_level", cfg.LogLevel).
		Int("requests_per_second", cfg.RequestsPerSecond).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// LPRange is a parsed "min-max" total-LP window.
type LPRange struct {
	Min int
	Max int
}

var lpRangePattern = regexp.MustCompile(`^(\d+)-(\d+)$`)

// ParseLPRange validates a textual LP range once at the boundary so the
// search never has to deal with malformed filter strings.
func ParseLPRange(s string) (LPRange, error) {
	m := lpRangePattern.FindStringSubmatch(s)
	if m == nil {
		return LPRange{}, fmt.Errorf("invalid LP range %q: expected \"min-max\", e.g. \"800-1000\"", s)
	}
	min, err := strconv.Atoi(m[1])
	if err != nil {
		return LPRange{}, fmt.Errorf("invalid LP range %q: %w", s, err)
	}
	max, err := strconv.Atoi(m[2])
	if err != nil {
		return LPRange{}, fmt.Errorf("invalid LP range %q: %w", s, err)
	}
	if min > max {
		return LPRange{}, fmt.Errorf("invalid LP range %q: min exceeds max", s)
	}
	return LPRange{Min: min, Max: max}, nil
}

var Module = fx.Provide(Load)
