// Package cache is a time-bounded freshness cache of previously observed
// players, persisted as a single JSON file keyed by PUUID.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ezflow997/lol-finder/internal/config"
	"github.com/ezflow997/lol-finder/internal/constants"
	"github.com/ezflow997/lol-finder/internal/domain"
)

// Criteria are the constraints a cached record must still satisfy, after
// adjusting its activity clock for the time elapsed since capture.
type Criteria struct {
	ActiveWithinMinutes int
	MinWinRate          float64
	MinLP               int
	MaxLP               int
	HasLPRange          bool
}

type Cache struct {
	path    string
	records map[string]domain.PlayerRecord
	dirty   int
	logger  zerolog.Logger

	// now is swappable so tests can move the clock.
	now func() time.Time
}

// New loads the durable file into memory. A missing or corrupt file
// degrades to an empty cache with a warning, never a fatal error.
func New(cfg *config.Config, logger zerolog.Logger) *Cache {
	return Open(cfg.CachePath, logger)
}

func Open(path string, logger zerolog.Logger) *Cache {
	c := &Cache{
		path:    path,
		records: make(map[string]domain.PlayerRecord),
		logger:  logger,
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Str("path", path).Msg("failed to read cache file, starting empty")
		}
		return c
	}
	if err := json.Unmarshal(data, &c.records); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("corrupt cache file, starting empty")
		c.records = make(map[string]domain.PlayerRecord)
		return c
	}

	logger.Info().Int("records", len(c.records)).Str("path", path).Msg("player cache loaded")
	return c
}

// Get returns the record for puuid if it is still within the freshness
// window. Stale entries are skipped, not evicted.
func (c *Cache) Get(puuid string) (domain.PlayerRecord, bool) {
	rec, ok := c.records[puuid]
	if !ok {
		return domain.PlayerRecord{}, false
	}
	if c.now().Sub(rec.CapturedAt) > constants.CacheMaxAge {
		return domain.PlayerRecord{}, false
	}
	return rec, true
}

// MeetsCriteria checks a cached record against a fresh query. The stored
// activity age is advanced by the minutes elapsed since capture before the
// activity window is applied.
func (c *Cache) MeetsCriteria(rec domain.PlayerRecord, crit Criteria) bool {
	adjusted := c.AdjustedLastActive(rec)
	if adjusted > crit.ActiveWithinMinutes {
		return false
	}
	winRate := 0.0
	if games := rec.Wins + rec.Losses; games > 0 {
		winRate = float64(rec.Wins) / float64(games)
	}
	if winRate < crit.MinWinRate {
		return false
	}
	if crit.HasLPRange && (rec.TotalLP < crit.MinLP || rec.TotalLP > crit.MaxLP) {
		return false
	}
	return true
}

// AdjustedLastActive is the record's minutes-since-active as of now.
func (c *Cache) AdjustedLastActive(rec domain.PlayerRecord) int {
	elapsed := int(c.now().Sub(rec.CapturedAt).Minutes())
	return rec.LastActive + elapsed
}

// Put upserts a record with a fresh capture timestamp and flushes to disk
// every Nth upsert. A final Save is still mandatory at search end.
func (c *Cache) Put(puuid string, rec domain.PlayerRecord) {
	rec.CapturedAt = c.now()
	c.records[puuid] = rec
	c.dirty++
	if c.dirty >= constants.CacheFlushEvery {
		if err := c.Save(); err != nil {
			c.logger.Warn().Err(err).Msg("periodic cache flush failed")
		}
	}
}

// Save writes the whole cache atomically (temp file + rename).
func (c *Cache) Save() error {
	data, err := json.MarshalIndent(c.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	c.dirty = 0
	c.logger.Debug().Int("records", len(c.records)).Str("path", c.path).Msg("player cache saved")
	return nil
}

// Len reports how many records are held, fresh or stale.
func (c *Cache) Len() int {
	return len(c.records)
}
