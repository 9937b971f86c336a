package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezflow997/lol-finder/internal/constants"
	"github.com/ezflow997/lol-finder/internal/domain"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	return Open(filepath.Join(t.TempDir(), "cache.json"), zerolog.Nop())
}

func record(wins, losses, lastActive int) domain.PlayerRecord {
	return domain.PlayerRecord{
		Name:       "Tester#EUW",
		Region:     "euw1",
		Queue:      "RANKED_SOLO_5x5",
		Rank:       "GOLD II",
		LP:         40,
		TotalLP:    1440,
		Wins:       wins,
		Losses:     losses,
		WinRate:    "60.0%",
		LastActive: lastActive,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := testCache(t)
	c.Put("puuid-1", record(6, 4, 10))

	got, ok := c.Get("puuid-1")
	require.True(t, ok)
	assert.Equal(t, "Tester#EUW", got.Name)
	assert.False(t, got.CapturedAt.IsZero())
}

func TestGetEvictsByAge(t *testing.T) {
	c := testCache(t)
	c.Put("puuid-1", record(6, 4, 10))

	// 61 minutes later the record is past the freshness window.
	c.now = func() time.Time { return time.Now().Add(61 * time.Minute) }
	_, ok := c.Get("puuid-1")
	assert.False(t, ok)
}

func TestGetWithinAge(t *testing.T) {
	c := testCache(t)
	c.Put("puuid-1", record(6, 4, 10))

	c.now = func() time.Time { return time.Now().Add(59 * time.Minute) }
	_, ok := c.Get("puuid-1")
	assert.True(t, ok)
}

func TestMeetsCriteriaAdjustsActivity(t *testing.T) {
	c := testCache(t)
	c.Put("puuid-1", record(6, 4, 10))

	// 59 minutes after capture the adjusted activity age is 10+59=69.
	c.now = func() time.Time { return time.Now().Add(59 * time.Minute) }
	rec, ok := c.Get("puuid-1")
	require.True(t, ok)

	assert.True(t, c.MeetsCriteria(rec, Criteria{ActiveWithinMinutes: 70}))
	assert.False(t, c.MeetsCriteria(rec, Criteria{ActiveWithinMinutes: 60}))
}

func TestMeetsCriteriaWinRate(t *testing.T) {
	c := testCache(t)

	rec := record(6, 4, 0)
	rec.CapturedAt = time.Now()
	assert.True(t, c.MeetsCriteria(rec, Criteria{ActiveWithinMinutes: 60, MinWinRate: 0.5}))
	assert.False(t, c.MeetsCriteria(rec, Criteria{ActiveWithinMinutes: 60, MinWinRate: 0.7}))

	// No games on record counts as a zero win rate.
	empty := record(0, 0, 0)
	empty.CapturedAt = time.Now()
	assert.False(t, c.MeetsCriteria(empty, Criteria{ActiveWithinMinutes: 60, MinWinRate: 0.5}))
}

func TestMeetsCriteriaLPRange(t *testing.T) {
	c := testCache(t)

	rec := record(6, 4, 0)
	rec.CapturedAt = time.Now()
	rec.TotalLP = 1440

	in := Criteria{ActiveWithinMinutes: 60, HasLPRange: true, MinLP: 1400, MaxLP: 1500}
	out := Criteria{ActiveWithinMinutes: 60, HasLPRange: true, MinLP: 800, MaxLP: 1000}
	assert.True(t, c.MeetsCriteria(rec, in))
	assert.False(t, c.MeetsCriteria(rec, out))
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	logger := zerolog.Nop()

	c := Open(path, logger)
	c.Put("puuid-1", record(6, 4, 10))
	require.NoError(t, c.Save())

	reloaded := Open(path, logger)
	got, ok := reloaded.Get("puuid-1")
	require.True(t, ok)
	assert.Equal(t, "Tester#EUW", got.Name)
}

func TestCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := Open(path, zerolog.Nop())
	assert.Equal(t, 0, c.Len())
}

func TestBatchFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := Open(path, zerolog.Nop())

	for i := 0; i < constants.CacheFlushEvery-1; i++ {
		c.Put(string(rune('a'+i)), record(6, 4, 10))
	}
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no flush before the batch threshold")

	c.Put("last", record(6, 4, 10))
	_, err = os.Stat(path)
	assert.NoError(t, err, "the Nth upsert flushes to disk")
}
