// Package store archives completed search runs, their discovered players
// and scout report headers in SQLite for later browsing.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/ezflow997/lol-finder/internal/constants"
	"github.com/ezflow997/lol-finder/internal/domain"
)

type Archive struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewArchive(db *sql.DB, logger zerolog.Logger) *Archive {
	return &Archive{db: db, logger: logger}
}

// SaveRun writes a run header and its players in one transaction.
func (a *Archive) SaveRun(ctx context.Context, run domain.SearchRun, players []domain.DiscoveredPlayer) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO search_runs (id, queues, tier, division, min_lp, max_lp, max_players, found_total, from_cache, fresh, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Queues, run.Tier, run.Division, run.MinLP, run.MaxLP,
		run.MaxPlayers, run.FoundTotal, run.FromCache, run.Fresh,
		run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert search run: %w", err)
	}

	for i := 0; i < len(players); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(players) {
			end = len(players)
		}

		for _, p := range players[i:end] {
			_, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO discovered_players (run_id, puuid, name, region, queue, rank_label, lp, total_lp, wins, losses, win_rate, last_active_minutes, game_mode, source, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, p.Puuid, p.Record.Name, p.Record.Region, p.Record.Queue,
				p.Record.Rank, p.Record.LP, p.Record.TotalLP, p.Record.Wins,
				p.Record.Losses, p.Record.WinRate, p.Record.LastActive,
				p.Record.GameMode, string(p.Source), p.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert discovered player %s: %w", p.Puuid, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	a.logger.Debug().Str("run_id", run.ID).Int("players", len(players)).Msg("search run archived")
	return nil
}

// SaveScoutReport archives a deep-scout header under a fresh nanoid.
func (a *Archive) SaveScoutReport(ctx context.Context, report domain.ScoutReport) (string, error) {
	id := report.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return "", fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}

	createdAt := report.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO scout_reports (id, puuid, games_analyzed, avg_kda, win_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, report.Puuid, report.GamesAnalyzed, report.AvgKDA, report.WinRate, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert scout report: %w", err)
	}
	return id, nil
}

// RecentRuns lists the latest archived run headers, newest first.
func (a *Archive) RecentRuns(ctx context.Context, limit int) ([]domain.SearchRun, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, queues, tier, division, min_lp, max_lp, max_players, found_total, from_cache, fresh, started_at, completed_at
		FROM search_runs
		ORDER BY completed_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query search runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SearchRun
	for rows.Next() {
		var r domain.SearchRun
		if err := rows.Scan(&r.ID, &r.Queues, &r.Tier, &r.Division, &r.MinLP, &r.MaxLP,
			&r.MaxPlayers, &r.FoundTotal, &r.FromCache, &r.Fresh, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// PlayersForRun returns the players archived under one run.
func (a *Archive) PlayersForRun(ctx context.Context, runID string) ([]domain.DiscoveredPlayer, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT puuid, name, region, queue, rank_label, lp, total_lp, wins, losses, win_rate, last_active_minutes, game_mode, source, updated_at
		FROM discovered_players
		WHERE run_id = ?
		ORDER BY updated_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query discovered players: %w", err)
	}
	defer rows.Close()

	var players []domain.DiscoveredPlayer
	for rows.Next() {
		var p domain.DiscoveredPlayer
		var source string
		if err := rows.Scan(&p.Puuid, &p.Record.Name, &p.Record.Region, &p.Record.Queue,
			&p.Record.Rank, &p.Record.LP, &p.Record.TotalLP, &p.Record.Wins, &p.Record.Losses,
			&p.Record.WinRate, &p.Record.LastActive, &p.Record.GameMode, &source, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan discovered player: %w", err)
		}
		p.Source = domain.Source(source)
		players = append(players, p)
	}
	return players, rows.Err()
}
