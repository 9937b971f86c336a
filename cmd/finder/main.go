package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"github.com/ezflow997/lol-finder/internal/api"
	"github.com/ezflow997/lol-finder/internal/cache"
	"github.com/ezflow997/lol-finder/internal/config"
	"github.com/ezflow997/lol-finder/internal/constants"
	"github.com/ezflow997/lol-finder/internal/domain"
	fxmodules "github.com/ezflow997/lol-finder/internal/fx"
	"github.com/ezflow997/lol-finder/internal/scout"
	"github.com/ezflow997/lol-finder/internal/search"
	"github.com/ezflow997/lol-finder/internal/store"
)

// Options are the parsed CLI flags. Flag parsing is thin glue; everything
// interesting happens in the internal packages.
type Options struct {
	Mode string // search, scout, duos, runs

	Queue      string
	Tier       string
	Division   string
	LPRange    string
	MaxPlayers int
	ActiveMins int
	MinWinRate float64

	Puuid      string
	MatchCount int
	MinKDA     float64
	OnlyWins   bool
}

func parseFlags() *Options {
	opts := &Options{}
	flag.StringVar(&opts.Mode, "mode", "search", "search | scout | duos | runs")
	flag.StringVar(&opts.Queue, "queue", "solo", "solo | flex | both")
	flag.StringVar(&opts.Tier, "tier", "", "explicit tier, e.g. GOLD")
	flag.StringVar(&opts.Division, "division", "", "explicit division, e.g. II")
	flag.StringVar(&opts.LPRange, "lp", "", "total LP range, e.g. 800-1000")
	flag.IntVar(&opts.MaxPlayers, "max", 5, "target number of players")
	flag.IntVar(&opts.ActiveMins, "active-mins", 60, "activity window in minutes")
	flag.Float64Var(&opts.MinWinRate, "min-winrate", 0.5, "minimum win rate in [0,1]")
	flag.StringVar(&opts.Puuid, "puuid", "", "player identifier for scout/duos modes")
	flag.IntVar(&opts.MatchCount, "count", 10, "matches to analyze in scout/duos modes")
	flag.Float64Var(&opts.MinKDA, "min-kda", 2.0, "minimum KDA for duo candidates")
	flag.BoolVar(&opts.OnlyWins, "only-wins", false, "only consider won matches for duos")
	flag.Parse()
	return opts
}

func main() {
	opts := parseFlags()

	fx.New(
		fxmodules.Module,
		fx.Supply(opts),
		fx.Invoke(run),
	).Run()
}

func run(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	opts *Options,
	engine *search.Engine,
	scoutSvc *scout.Service,
	archive *store.Archive,
	playerCache *cache.Cache,
	logger zerolog.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := execute(ctx, opts, engine, scoutSvc, archive, logger); err != nil {
					logger.Error().Err(err).Msg("command failed")
				}
				if err := shutdowner.Shutdown(); err != nil {
					logger.Error().Err(err).Msg("shutdown failed")
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			if err := playerCache.Save(); err != nil {
				logger.Warn().Err(err).Msg("failed to save cache on shutdown")
			}
			return nil
		},
	})
}

func execute(
	ctx context.Context,
	opts *Options,
	engine *search.Engine,
	scoutSvc *scout.Service,
	archive *store.Archive,
	logger zerolog.Logger,
) error {
	switch opts.Mode {
	case "search":
		return runSearch(ctx, opts, engine, archive, logger)
	case "scout":
		return runScout(ctx, opts, scoutSvc, archive, logger)
	case "duos":
		return runDuos(ctx, opts, scoutSvc, logger)
	case "runs":
		return listRuns(ctx, archive, logger)
	default:
		return fmt.Errorf("unknown mode %q", opts.Mode)
	}
}

func runSearch(ctx context.Context, opts *Options, engine *search.Engine, archive *store.Archive, logger zerolog.Logger) error {
	cfg := search.Config{
		Queues:              queues(opts.Queue),
		Tier:                opts.Tier,
		Division:            opts.Division,
		MaxPlayers:          opts.MaxPlayers,
		ActiveWithinMinutes: opts.ActiveMins,
		MinWinRate:          opts.MinWinRate,
	}
	if opts.LPRange != "" {
		lpRange, err := config.ParseLPRange(opts.LPRange)
		if err != nil {
			return err
		}
		cfg.LPRange = &lpRange
	}

	obs := newCLIObserver(logger)
	defer obs.close()

	ctx, cancel := context.WithTimeout(ctx, constants.SearchTimeout)
	defer cancel()

	startedAt := time.Now()
	result, err := engine.Run(ctx, cfg, obs)
	if err != nil {
		return err
	}

	run := domain.SearchRun{
		ID:          uuid.New().String(),
		Queues:      opts.Queue,
		Tier:        opts.Tier,
		Division:    opts.Division,
		MaxPlayers:  opts.MaxPlayers,
		FoundTotal:  len(result.Players),
		FromCache:   result.FromCache,
		Fresh:       result.Fresh,
		StartedAt:   startedAt,
		CompletedAt: time.Now(),
	}
	if cfg.LPRange != nil {
		run.MinLP = cfg.LPRange.Min
		run.MaxLP = cfg.LPRange.Max
	}

	g := new(errgroup.Group)
	g.Go(func() error {
		dbCtx, dbCancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
		defer dbCancel()
		return archive.SaveRun(dbCtx, run, result.Players)
	})
	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Msg("failed to archive search run")
	}

	logger.Info().
		Int("found", len(result.Players)).
		Int("from_cache", result.FromCache).
		Int("fresh", result.Fresh).
		Msg("search complete")
	return nil
}

func runScout(ctx context.Context, opts *Options, scoutSvc *scout.Service, archive *store.Archive, logger zerolog.Logger) error {
	if opts.Puuid == "" {
		return fmt.Errorf("-puuid is required for scout mode")
	}

	ctx, cancel := context.WithTimeout(ctx, constants.SearchTimeout)
	defer cancel()

	report, err := scoutSvc.DeepScout(ctx, opts.Puuid, opts.MatchCount)
	if err != nil {
		return err
	}

	for _, m := range report.RecentMatches {
		logger.Info().
			Str("match_id", m.MatchID).
			Bool("win", m.Win).
			Str("kda", m.KDAString()).
			Str("champion", m.Champion).
			Str("position", m.Position).
			Int("cs", m.CS).
			Int("minutes", m.DurationMinutes).
			Str("ended_at", m.EndedAt).
			Msg("match")
	}
	logger.Info().
		Int("games", report.GamesAnalyzed).
		Float64("avg_kda", report.AvgKDA).
		Float64("win_rate", report.WinRate).
		Strs("positions", report.Positions).
		Strs("champions", report.Champions).
		Msg("scout summary")

	dbCtx, dbCancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer dbCancel()
	id, err := archive.SaveScoutReport(dbCtx, domain.ScoutReport{
		Puuid:         opts.Puuid,
		GamesAnalyzed: report.GamesAnalyzed,
		AvgKDA:        report.AvgKDA,
		WinRate:       report.WinRate,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to archive scout report")
		return nil
	}
	logger.Debug().Str("report_id", id).Msg("scout report archived")
	return nil
}

func runDuos(ctx context.Context, opts *Options, scoutSvc *scout.Service, logger zerolog.Logger) error {
	if opts.Puuid == "" {
		return fmt.Errorf("-puuid is required for duos mode")
	}

	ctx, cancel := context.WithTimeout(ctx, constants.SearchTimeout)
	defer cancel()

	candidates, err := scoutSvc.FindDuosFromHistory(ctx, opts.Puuid, opts.MatchCount, opts.MinKDA, opts.OnlyWins)
	if err != nil {
		return err
	}

	for _, c := range candidates {
		logger.Info().
			Str("puuid", c.Puuid).
			Str("name", c.Name).
			Int("games_together", c.GamesTogether).
			Int("wins", c.Wins).
			Float64("avg_kda", c.AvgKDA).
			Strs("champions", c.Champions).
			Strs("positions", c.Positions).
			Msg("duo candidate")
	}
	return nil
}

func listRuns(ctx context.Context, archive *store.Archive, logger zerolog.Logger) error {
	dbCtx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	runs, err := archive.RecentRuns(dbCtx, constants.RecentRunsLimit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		logger.Info().
			Str("run_id", r.ID).
			Str("queues", r.Queues).
			Str("tier", r.Tier).
			Str("division", r.Division).
			Int("found", r.FoundTotal).
			Int("from_cache", r.FromCache).
			Int("fresh", r.Fresh).
			Time("completed_at", r.CompletedAt).
			Msg("archived run")
	}
	return nil
}

func queues(selector string) []string {
	switch selector {
	case "flex":
		return []string{api.QueueFlex}
	case "both":
		return []string{api.QueueSolo, api.QueueFlex}
	default:
		return []string{api.QueueSolo}
	}
}

// cliObserver streams progress to the log and turns the first SIGINT into
// a cooperative abort so partial results still come back.
type cliObserver struct {
	logger  zerolog.Logger
	aborted atomic.Bool
	signals chan os.Signal
	done    chan struct{}
}

func newCLIObserver(logger zerolog.Logger) *cliObserver {
	o := &cliObserver{
		logger:  logger,
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
	signal.Notify(o.signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-o.signals:
			o.logger.Warn().Msg("abort requested, finishing up")
			o.aborted.Store(true)
		case <-o.done:
		}
	}()
	return o
}

func (o *cliObserver) close() {
	signal.Stop(o.signals)
	close(o.done)
}

func (o *cliObserver) PlayerFound(p domain.DiscoveredPlayer) {
	o.logger.Info().
		Str("puuid", p.Puuid).
		Str("name", p.Record.Name).
		Str("queue", p.Record.Queue).
		Str("rank", p.Record.Rank).
		Int("lp", p.Record.LP).
		Str("win_rate", p.Record.WinRate).
		Int("last_active_minutes", p.Record.LastActive).
		Str("source", string(p.Source)).
		Msg("player found")
}

func (o *cliObserver) RateLimitChanged(limited bool, remainingSeconds int) {
	if limited {
		o.logger.Warn().Int("cooldown_seconds", remainingSeconds).Msg("rate limited, cooling down")
		return
	}
	o.logger.Info().Msg("cool-down finished, resuming")
}

func (o *cliObserver) Aborted() bool {
	return o.aborted.Load()
}
