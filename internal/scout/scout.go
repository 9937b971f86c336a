// Package scout derives per-match performance metrics for a single player
// and aggregates them into deep-scout reports and duo-partner tallies.
package scout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ezflow997/lol-finder/internal/api"
)

// API is the slice of the Riot client the extractor consumes.
type API interface {
	MatchIDs(ctx context.Context, puuid string, start, count int) ([]string, error)
	Match(ctx context.Context, matchID string) (*api.Match, error)
}

// MatchStatSummary is one identity's derived metrics for one match.
// Computed on demand, never persisted.
type MatchStatSummary struct {
	MatchID         string
	Win             bool
	Kills           int
	Deaths          int
	Assists         int
	KDA             float64
	Champion        string
	Position        string
	CS              int
	DurationMinutes int
	EndedAt         string
}

// KDAString renders the ratio with two decimals.
func (s MatchStatSummary) KDAString() string {
	return fmt.Sprintf("%.2f", s.KDA)
}

// Report is the outcome of a deep scout over a player's recent matches.
type Report struct {
	RecentMatches []MatchStatSummary
	AvgKDA        float64
	WinRate       float64
	Positions     []string
	Champions     []string
	GamesAnalyzed int
}

// DuoCandidate aggregates one same-team participant across the caller's
// qualifying matches.
type DuoCandidate struct {
	Puuid         string
	Name          string
	GamesTogether int
	Wins          int
	AvgKDA        float64
	Champions     []string
	Positions     []string
}

type Service struct {
	api    API
	logger zerolog.Logger
}

func NewService(client *api.Client, logger zerolog.Logger) *Service {
	return &Service{api: client, logger: logger}
}

// kda treats zero deaths as kills+assists rather than dividing.
func kda(kills, deaths, assists int) float64 {
	if deaths == 0 {
		return float64(kills + assists)
	}
	return float64(kills+assists) / float64(deaths)
}

// ExtractPlayerStats derives a summary for puuid within match. The second
// return is false when puuid is not a participant.
func ExtractPlayerStats(match *api.Match, puuid string) (MatchStatSummary, bool) {
	for _, p := range match.Info.Participants {
		if p.Puuid != puuid {
			continue
		}
		position := p.TeamPosition
		if position == "" {
			position = p.IndividualPosition
		}
		return MatchStatSummary{
			MatchID:         match.Metadata.MatchID,
			Win:             p.Win,
			Kills:           p.Kills,
			Deaths:          p.Deaths,
			Assists:         p.Assists,
			KDA:             kda(p.Kills, p.Deaths, p.Assists),
			Champion:        p.ChampionName,
			Position:        position,
			CS:              p.CS(),
			DurationMinutes: int(match.Info.GameDuration / 60),
			EndedAt:         time.UnixMilli(match.Info.GameEndTimestamp).Format(time.RFC3339),
		}, true
	}
	return MatchStatSummary{}, false
}

// DeepScout summarizes the player's N most recent matches. The aggregate
// KDA is the arithmetic mean of per-match KDA values, not a ratio of raw
// totals.
func (s *Service) DeepScout(ctx context.Context, puuid string, matchCount int) (*Report, error) {
	ids, err := s.api.MatchIDs(ctx, puuid, 0, matchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch match ids: %w", err)
	}

	report := &Report{}
	positions := make(map[string]bool)
	champions := make(map[string]bool)
	wins := 0
	kdaSum := 0.0

	for _, id := range ids {
		match, err := s.api.Match(ctx, id)
		if err != nil {
			s.logger.Debug().Err(err).Str("match_id", id).Msg("match fetch failed, skipping")
			continue
		}
		stats, ok := ExtractPlayerStats(match, puuid)
		if !ok {
			s.logger.Debug().Str("match_id", id).Str("puuid", puuid).Msg("player not in match, skipping")
			continue
		}

		report.RecentMatches = append(report.RecentMatches, stats)
		kdaSum += stats.KDA
		if stats.Win {
			wins++
		}
		if stats.Position != "" {
			positions[stats.Position] = true
		}
		if stats.Champion != "" {
			champions[stats.Champion] = true
		}
	}

	report.GamesAnalyzed = len(report.RecentMatches)
	if report.GamesAnalyzed > 0 {
		report.AvgKDA = kdaSum / float64(report.GamesAnalyzed)
		report.WinRate = float64(wins) / float64(report.GamesAnalyzed)
	}
	report.Positions = sortedKeys(positions)
	report.Champions = sortedKeys(champions)

	s.logger.Info().
		Str("puuid", puuid).
		Int("games", report.GamesAnalyzed).
		Float64("avg_kda", report.AvgKDA).
		Float64("win_rate", report.WinRate).
		Msg("deep scout completed")
	return report, nil
}

// FindDuosFromHistory scans the caller's recent matches and tallies every
// same-team participant meeting the KDA threshold, for matches where the
// caller's own KDA/win constraints pass. Sorted by games together, then
// average KDA, both descending.
func (s *Service) FindDuosFromHistory(ctx context.Context, puuid string, matchCount int, minKDA float64, onlyWins bool) ([]DuoCandidate, error) {
	ids, err := s.api.MatchIDs(ctx, puuid, 0, matchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch match ids: %w", err)
	}

	type tally struct {
		name      string
		games     int
		wins      int
		kdaSum    float64
		champions map[string]bool
		positions map[string]bool
	}
	tallies := make(map[string]*tally)

	for _, id := range ids {
		match, err := s.api.Match(ctx, id)
		if err != nil {
			s.logger.Debug().Err(err).Str("match_id", id).Msg("match fetch failed, skipping")
			continue
		}

		var own *api.Participant
		for i := range match.Info.Participants {
			if match.Info.Participants[i].Puuid == puuid {
				own = &match.Info.Participants[i]
				break
			}
		}
		if own == nil {
			continue
		}
		if onlyWins && !own.Win {
			continue
		}
		if kda(own.Kills, own.Deaths, own.Assists) < minKDA {
			continue
		}

		for _, p := range match.Info.Participants {
			if p.Puuid == puuid || p.Puuid == "" || p.TeamID != own.TeamID {
				continue
			}
			ratio := kda(p.Kills, p.Deaths, p.Assists)
			if ratio < minKDA {
				continue
			}

			t, ok := tallies[p.Puuid]
			if !ok {
				t = &tally{
					name:      p.RiotIDGameName,
					champions: make(map[string]bool),
					positions: make(map[string]bool),
				}
				tallies[p.Puuid] = t
			}
			t.games++
			if p.Win {
				t.wins++
			}
			t.kdaSum += ratio
			if p.ChampionName != "" {
				t.champions[p.ChampionName] = true
			}
			position := p.TeamPosition
			if position == "" {
				position = p.IndividualPosition
			}
			if position != "" {
				t.positions[position] = true
			}
		}
	}

	candidates := make([]DuoCandidate, 0, len(tallies))
	for id, t := range tallies {
		candidates = append(candidates, DuoCandidate{
			Puuid:         id,
			Name:          t.name,
			GamesTogether: t.games,
			Wins:          t.wins,
			AvgKDA:        t.kdaSum / float64(t.games),
			Champions:     sortedKeys(t.champions),
			Positions:     sortedKeys(t.positions),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].GamesTogether != candidates[j].GamesTogether {
			return candidates[i].GamesTogether > candidates[j].GamesTogether
		}
		return candidates[i].AvgKDA > candidates[j].AvgKDA
	})

	s.logger.Info().Str("puuid", puuid).Int("candidates", len(candidates)).Msg("duo scan completed")
	return candidates, nil
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
