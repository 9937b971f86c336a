package scout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezflow997/lol-finder/internal/api"
)

type fakeAPI struct {
	matchIDs map[string][]string
	matches  map[string]*api.Match
}

func (f *fakeAPI) MatchIDs(_ context.Context, puuid string, _, _ int) ([]string, error) {
	return f.matchIDs[puuid], nil
}

func (f *fakeAPI) Match(_ context.Context, matchID string) (*api.Match, error) {
	match, ok := f.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("no match %s", matchID)
	}
	return match, nil
}

func testService(f *fakeAPI) *Service {
	return &Service{api: f, logger: zerolog.Nop()}
}

func buildMatch(id string, participants ...api.Participant) *api.Match {
	return &api.Match{
		Metadata: api.MatchMetadata{MatchID: id},
		Info: api.MatchInfo{
			GameMode:         "CLASSIC",
			GameDuration:     1860, // 31 minutes
			GameEndTimestamp: time.Date(2026, 8, 20, 18, 30, 0, 0, time.UTC).UnixMilli(),
			Participants:     participants,
		},
	}
}

func TestExtractPlayerStatsZeroDeaths(t *testing.T) {
	match := buildMatch("m1", api.Participant{
		Puuid: "p1", Kills: 5, Assists: 3, Deaths: 0,
		ChampionName: "Ahri", TeamPosition: "MIDDLE", Win: true,
		TotalMinionsKilled: 180, NeutralMinionsKilled: 20,
	})

	stats, ok := ExtractPlayerStats(match, "p1")
	require.True(t, ok)
	assert.Equal(t, 8.0, stats.KDA, "zero deaths counts kills+assists")
	assert.Equal(t, "8.00", stats.KDAString())
	assert.Equal(t, 200, stats.CS)
	assert.Equal(t, 31, stats.DurationMinutes)
	assert.Equal(t, "Ahri", stats.Champion)
	assert.Equal(t, "MIDDLE", stats.Position)
	assert.NotEmpty(t, stats.EndedAt)
}

func TestExtractPlayerStatsRatio(t *testing.T) {
	match := buildMatch("m1", api.Participant{Puuid: "p1", Kills: 5, Assists: 3, Deaths: 2})

	stats, ok := ExtractPlayerStats(match, "p1")
	require.True(t, ok)
	assert.Equal(t, 4.0, stats.KDA)
	assert.Equal(t, "4.00", stats.KDAString())
}

func TestExtractPlayerStatsAbsentParticipant(t *testing.T) {
	match := buildMatch("m1", api.Participant{Puuid: "p1"})

	_, ok := ExtractPlayerStats(match, "someone-else")
	assert.False(t, ok)
}

func TestExtractPlayerStatsPositionFallback(t *testing.T) {
	match := buildMatch("m1", api.Participant{Puuid: "p1", IndividualPosition: "JUNGLE"})

	stats, ok := ExtractPlayerStats(match, "p1")
	require.True(t, ok)
	assert.Equal(t, "JUNGLE", stats.Position)
}

func TestDeepScoutAveragesPerMatchKDA(t *testing.T) {
	f := &fakeAPI{
		matchIDs: map[string][]string{"p1": {"m1", "m2"}},
		matches: map[string]*api.Match{
			// KDA 8 (zero deaths) and KDA 4: mean of ratios is 6, not the
			// ratio of summed totals.
			"m1": buildMatch("m1", api.Participant{Puuid: "p1", Kills: 5, Assists: 3, Deaths: 0, ChampionName: "Ahri", TeamPosition: "MIDDLE", Win: true}),
			"m2": buildMatch("m2", api.Participant{Puuid: "p1", Kills: 5, Assists: 3, Deaths: 2, ChampionName: "Lux", TeamPosition: "MIDDLE", Win: false}),
		},
	}

	report, err := testService(f).DeepScout(context.Background(), "p1", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, report.GamesAnalyzed)
	assert.InDelta(t, 6.0, report.AvgKDA, 0.001)
	assert.InDelta(t, 0.5, report.WinRate, 0.001)
	assert.Equal(t, []string{"Ahri", "Lux"}, report.Champions)
	assert.Equal(t, []string{"MIDDLE"}, report.Positions)
	assert.Len(t, report.RecentMatches, 2)
}

func TestDeepScoutSkipsFailedMatches(t *testing.T) {
	f := &fakeAPI{
		matchIDs: map[string][]string{"p1": {"m1", "missing"}},
		matches: map[string]*api.Match{
			"m1": buildMatch("m1", api.Participant{Puuid: "p1", Kills: 2, Assists: 2, Deaths: 2, Win: true}),
		},
	}

	report, err := testService(f).DeepScout(context.Background(), "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, report.GamesAnalyzed)
}

func duoParticipant(puuid, name string, team, kills, deaths int, win bool, champion string) api.Participant {
	return api.Participant{
		Puuid:          puuid,
		RiotIDGameName: name,
		TeamID:         team,
		Kills:          kills,
		Deaths:         deaths,
		Win:            win,
		ChampionName:   champion,
		TeamPosition:   "TOP",
	}
}

func TestFindDuosSortsByGamesThenKDA(t *testing.T) {
	me := func(win bool) api.Participant {
		return duoParticipant("me", "Me", 100, 8, 2, win, "Jax")
	}
	f := &fakeAPI{
		matchIDs: map[string][]string{"me": {"m1", "m2", "m3"}},
		matches: map[string]*api.Match{
			"m1": buildMatch("m1",
				me(true),
				duoParticipant("steady", "Steady", 100, 6, 2, true, "Leona"),
				duoParticipant("flash", "Flash", 100, 12, 1, true, "Zed"),
				duoParticipant("enemy", "Enemy", 200, 20, 0, false, "Teemo"),
			),
			"m2": buildMatch("m2",
				me(true),
				duoParticipant("steady", "Steady", 100, 4, 2, true, "Leona"),
			),
			"m3": buildMatch("m3",
				me(false),
				duoParticipant("ignored", "Ignored", 100, 30, 1, false, "Yi"),
			),
		},
	}

	candidates, err := testService(f).FindDuosFromHistory(context.Background(), "me", 3, 2.0, true)
	require.NoError(t, err)

	// m3 is a loss and onlyWins is set, so "ignored" never appears; the
	// enemy-team player never appears regardless of KDA.
	require.Len(t, candidates, 2)
	assert.Equal(t, "steady", candidates[0].Puuid)
	assert.Equal(t, 2, candidates[0].GamesTogether)
	assert.Equal(t, 2, candidates[0].Wins)
	assert.Equal(t, []string{"Leona"}, candidates[0].Champions)
	assert.Equal(t, "flash", candidates[1].Puuid)
	assert.Equal(t, 1, candidates[1].GamesTogether)
}

func TestFindDuosTieBreaksByKDA(t *testing.T) {
	f := &fakeAPI{
		matchIDs: map[string][]string{"me": {"m1"}},
		matches: map[string]*api.Match{
			"m1": buildMatch("m1",
				duoParticipant("me", "Me", 100, 8, 2, true, "Jax"),
				duoParticipant("low", "Low", 100, 6, 2, true, "Leona"),   // KDA 3
				duoParticipant("high", "High", 100, 12, 2, true, "Zed"), // KDA 6
			),
		},
	}

	candidates, err := testService(f).FindDuosFromHistory(context.Background(), "me", 1, 2.0, false)
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	assert.Equal(t, "high", candidates[0].Puuid)
	assert.Equal(t, "low", candidates[1].Puuid)
}

func TestFindDuosSkipsWhenOwnKDATooLow(t *testing.T) {
	f := &fakeAPI{
		matchIDs: map[string][]string{"me": {"m1"}},
		matches: map[string]*api.Match{
			"m1": buildMatch("m1",
				duoParticipant("me", "Me", 100, 1, 5, true, "Jax"), // KDA 0.2
				duoParticipant("good", "Good", 100, 10, 1, true, "Zed"),
			),
		},
	}

	candidates, err := testService(f).FindDuosFromHistory(context.Background(), "me", 1, 2.0, false)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
