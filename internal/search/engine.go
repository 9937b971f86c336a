// Package search drives ranked-player discovery: randomized exploration of
// (queue, tier, division, page) combinations against the ladder endpoints,
// cache-first candidate acceptance, and teammate expansion through the
// most recent match of each freshly accepted player.
package search

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ezflow997/lol-finder/internal/api"
	"github.com/ezflow997/lol-finder/internal/cache"
	"github.com/ezflow997/lol-finder/internal/config"
	"github.com/ezflow997/lol-finder/internal/constants"
	"github.com/ezflow997/lol-finder/internal/domain"
	"github.com/ezflow997/lol-finder/internal/rank"
)

// API is the slice of the Riot client the engine consumes.
type API interface {
	SetObserver(o api.RateLimitObserver)
	LeagueEntries(ctx context.Context, queue, tier, division string, page int) ([]api.LeagueEntry, error)
	LeagueEntriesByPUUID(ctx context.Context, puuid string) ([]api.LeagueEntry, error)
	AccountByPUUID(ctx context.Context, puuid string) (*api.Account, error)
	MatchIDs(ctx context.Context, puuid string, start, count int) ([]string, error)
	Match(ctx context.Context, matchID string) (*api.Match, error)
}

// Result is the outcome of one search. FromCache and Fresh split the
// players by provenance; teammate finds count as fresh.
type Result struct {
	Players   []domain.DiscoveredPlayer
	FromCache int
	Fresh     int
}

type Engine struct {
	api     API
	cache   *cache.Cache
	region  string
	maxPage int
	logger  zerolog.Logger
	rng     *rand.Rand
}

func NewEngine(client *api.Client, c *cache.Cache, cfg *config.Config, logger zerolog.Logger) *Engine {
	return &Engine{
		api:     client,
		cache:   c,
		region:  cfg.Platform,
		maxPage: constants.MaxPageCeiling,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// run carries the mutable state of a single search invocation so the
// engine itself stays reusable.
type run struct {
	cfg      Config
	crit     cache.Criteria
	obs      Observer
	combos   []*combination
	seen     map[string]bool
	expanded map[string]bool
	result   Result
	logger   zerolog.Logger
}

// Run explores the ladder until the target count is reached, every
// combination is exhausted, or the observer aborts. Exhaustion and abort
// are normal completions with partial results. The cache is saved on every
// exit path.
func (e *Engine) Run(ctx context.Context, cfg Config, obs Observer) (*Result, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid search config: %w", err)
	}

	e.api.SetObserver(obs)
	defer e.api.SetObserver(nil)

	r := &run{
		cfg:      cfg,
		crit:     criteria(cfg),
		obs:      obs,
		combos:   e.buildCombinations(cfg),
		seen:     make(map[string]bool),
		expanded: make(map[string]bool),
		logger:   e.logger.With().Str("run_id", uuid.New().String()).Logger(),
	}

	r.logger.Info().
		Strs("queues", cfg.Queues).
		Int("combinations", len(r.combos)).
		Int("max_players", cfg.MaxPlayers).
		Int("active_within_minutes", cfg.ActiveWithinMinutes).
		Float64("min_win_rate", cfg.MinWinRate).
		Msg("search started")

	err := e.explore(ctx, r)

	if saveErr := e.cache.Save(); saveErr != nil {
		r.logger.Warn().Err(saveErr).Msg("failed to save cache at search end")
	}

	r.logger.Info().
		Int("found", len(r.result.Players)).
		Int("from_cache", r.result.FromCache).
		Int("fresh", r.result.Fresh).
		Msg("search finished")

	if err != nil {
		return &r.result, err
	}
	return &r.result, nil
}

func (e *Engine) explore(ctx context.Context, r *run) error {
	for len(r.result.Players) < r.cfg.MaxPlayers && !r.obs.Aborted() {
		if ctx.Err() != nil {
			return nil
		}

		var active []*combination
		for _, c := range r.combos {
			if !c.exhausted {
				active = append(active, c)
			}
		}
		if len(active) == 0 {
			r.logger.Debug().Msg("all combinations exhausted")
			return nil
		}

		c := active[e.rng.Intn(len(active))]
		pages := c.untriedPages()
		if len(pages) == 0 {
			c.exhausted = true
			continue
		}
		page := pages[e.rng.Intn(len(pages))]
		c.tried[page] = true

		entries, err := e.api.LeagueEntries(ctx, c.queue, c.tier, c.division, page)
		if err != nil {
			if fatal, stop := classify(err); stop {
				if fatal != nil {
					return fatal
				}
				return nil
			}
			r.logger.Debug().Err(err).
				Str("queue", c.queue).Str("tier", c.tier).Str("division", c.division).Int("page", page).
				Msg("page fetch failed, skipping")
			continue
		}

		if len(entries) == 0 {
			c.maxPage = page - 1
			if c.maxPage < 1 || c.allTried() {
				c.exhausted = true
			}
			r.logger.Debug().
				Str("queue", c.queue).Str("tier", c.tier).Str("division", c.division).
				Int("max_page", c.maxPage).Bool("exhausted", c.exhausted).
				Msg("empty page, tightened page estimate")
			continue
		}

		e.rng.Shuffle(len(entries), func(i, j int) {
			entries[i], entries[j] = entries[j], entries[i]
		})

		for _, entry := range entries {
			if len(r.result.Players) >= r.cfg.MaxPlayers || r.obs.Aborted() || ctx.Err() != nil {
				break
			}
			if err := e.processEntry(ctx, r, c, entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// processEntry runs one ladder entry through the filter chain and, on
// acceptance, through teammate expansion. Only fatal errors propagate.
func (e *Engine) processEntry(ctx context.Context, r *run, c *combination, entry api.LeagueEntry) error {
	if entry.Puuid == "" {
		return nil
	}
	if r.cfg.LPRange != nil {
		total, err := rank.EntryTotalPoints(entry.Tier, entry.Rank, entry.LeaguePoints)
		if err != nil || total < r.cfg.LPRange.Min || total > r.cfg.LPRange.Max {
			return nil
		}
	}
	if entry.WinRate() < r.cfg.MinWinRate {
		return nil
	}
	if r.seen[entry.Puuid] {
		return nil
	}
	r.seen[entry.Puuid] = true

	if e.acceptFromCache(r, entry.Puuid) {
		return nil
	}

	minutes, match, err := e.lastActive(ctx, entry.Puuid)
	if err != nil {
		if fatal, stop := classify(err); stop {
			return fatal
		}
		r.logger.Debug().Err(err).Str("puuid", entry.Puuid).Msg("last-active lookup failed, skipping candidate")
		return nil
	}
	if minutes > r.cfg.ActiveWithinMinutes {
		r.logger.Debug().Str("puuid", entry.Puuid).Int("minutes", minutes).Msg("candidate not recently active")
		return nil
	}

	name := e.resolveName(ctx, entry.Puuid, match)
	rec := e.record(name, c.queue, entry, minutes, match.Info.GameMode)
	e.accept(r, entry.Puuid, rec, domain.SourceLive)

	return e.expandTeammates(ctx, r, entry.Puuid, match, minutes)
}

// expandTeammates walks the other participants of a freshly accepted
// player's triggering match. A match is expanded at most once per search
// and each teammate contributes at most one entry. Individual lookup
// failures skip that teammate only.
func (e *Engine) expandTeammates(ctx context.Context, r *run, foundPuuid string, match *api.Match, minutes int) error {
	if r.expanded[match.Metadata.MatchID] {
		return nil
	}
	r.expanded[match.Metadata.MatchID] = true

	for _, p := range match.Info.Participants {
		if len(r.result.Players) >= r.cfg.MaxPlayers || r.obs.Aborted() || ctx.Err() != nil {
			return nil
		}
		if p.Puuid == "" || p.Puuid == foundPuuid || r.seen[p.Puuid] {
			continue
		}
		r.seen[p.Puuid] = true

		if e.acceptFromCache(r, p.Puuid) {
			continue
		}

		standings, err := e.api.LeagueEntriesByPUUID(ctx, p.Puuid)
		if err != nil {
			if fatal, stop := classify(err); stop {
				return fatal
			}
			r.logger.Debug().Err(err).Str("puuid", p.Puuid).Msg("teammate standings lookup failed, skipping")
			continue
		}

		for _, s := range standings {
			if s.QueueType != api.QueueSolo && s.QueueType != api.QueueFlex {
				continue
			}
			if r.cfg.LPRange != nil {
				total, err := rank.EntryTotalPoints(s.Tier, s.Rank, s.LeaguePoints)
				if err != nil || total < r.cfg.LPRange.Min || total > r.cfg.LPRange.Max {
					continue
				}
			}
			if s.WinRate() < r.cfg.MinWinRate {
				continue
			}

			name := participantName(p)
			// Teammates share the triggering match, so they inherit its
			// activity timestamp.
			rec := e.record(name, s.QueueType, s, minutes, match.Info.GameMode)
			e.accept(r, p.Puuid, rec, domain.SourceTeammate)
			break
		}
	}
	return nil
}

// acceptFromCache admits a candidate from the freshness cache when a
// usable record still meets the current criteria. No network call is made.
func (e *Engine) acceptFromCache(r *run, puuid string) bool {
	rec, ok := e.cache.Get(puuid)
	if !ok || !e.cache.MeetsCriteria(rec, r.crit) {
		return false
	}
	rec.LastActive = e.cache.AdjustedLastActive(rec)
	player := domain.DiscoveredPlayer{
		Puuid:     puuid,
		Record:    rec,
		Source:    domain.SourceCache,
		UpdatedAt: time.Now(),
	}
	r.result.Players = append(r.result.Players, player)
	r.result.FromCache++
	r.obs.PlayerFound(player)
	r.logger.Debug().Str("puuid", puuid).Str("name", rec.Name).Msg("accepted from cache")
	return true
}

func (e *Engine) accept(r *run, puuid string, rec domain.PlayerRecord, source domain.Source) {
	e.cache.Put(puuid, rec)
	rec, _ = e.cache.Get(puuid)
	player := domain.DiscoveredPlayer{
		Puuid:     puuid,
		Record:    rec,
		Source:    source,
		UpdatedAt: time.Now(),
	}
	r.result.Players = append(r.result.Players, player)
	r.result.Fresh++
	r.obs.PlayerFound(player)
	r.logger.Info().
		Str("puuid", puuid).
		Str("name", rec.Name).
		Str("source", string(source)).
		Int("found", len(r.result.Players)).
		Msg("player found")
}

// lastActive fetches the candidate's most recent match of any game mode
// and reports the minutes elapsed since it ended.
func (e *Engine) lastActive(ctx context.Context, puuid string) (int, *api.Match, error) {
	ids, err := e.api.MatchIDs(ctx, puuid, 0, 1)
	if err != nil {
		return 0, nil, err
	}
	if len(ids) == 0 {
		return 0, nil, fmt.Errorf("no match history for %s", puuid)
	}
	match, err := e.api.Match(ctx, ids[0])
	if err != nil {
		return 0, nil, err
	}
	minutes := int(time.Since(time.UnixMilli(match.Info.GameEndTimestamp)).Minutes())
	return minutes, match, nil
}

// resolveName is best effort. Failures degrade to a placeholder, never
// abort the search.
func (e *Engine) resolveName(ctx context.Context, puuid string, match *api.Match) string {
	for _, p := range match.Info.Participants {
		if p.Puuid == puuid {
			if name := participantName(p); name != "Unknown" {
				return name
			}
			break
		}
	}
	account, err := e.api.AccountByPUUID(ctx, puuid)
	if err != nil {
		e.logger.Debug().Err(err).Str("puuid", puuid).Msg("name resolution failed, using placeholder")
		return "Unknown"
	}
	return account.RiotID()
}

func (e *Engine) record(name, queue string, entry api.LeagueEntry, minutes int, gameMode string) domain.PlayerRecord {
	total, err := rank.EntryTotalPoints(entry.Tier, entry.Rank, entry.LeaguePoints)
	if err != nil {
		total = 0
	}
	label := entry.Tier
	if !rank.IsApex(entry.Tier) {
		label = entry.Tier + " " + entry.Rank
	}
	return domain.PlayerRecord{
		Name:       name,
		Region:     e.region,
		Queue:      queue,
		Rank:       label,
		LP:         entry.LeaguePoints,
		TotalLP:    total,
		Wins:       entry.Wins,
		Losses:     entry.Losses,
		WinRate:    fmt.Sprintf("%.1f%%", entry.WinRate()*100),
		LastActive: minutes,
		GameMode:   gameMode,
		HotStreak:  entry.HotStreak,
		Veteran:    entry.Veteran,
		FreshBlood: entry.FreshBlood,
	}
}

func (e *Engine) buildCombinations(cfg Config) []*combination {
	var combos []*combination
	for _, queue := range cfg.Queues {
		for _, pair := range cfg.pairs() {
			combos = append(combos, &combination{
				queue:    queue,
				tier:     pair.Tier,
				division: pair.Division,
				tried:    make(map[int]bool),
				maxPage:  e.maxPage,
			})
		}
	}
	// One uniform shuffle up front keeps run-to-run exploration order from
	// biasing toward the same combinations.
	e.rng.Shuffle(len(combos), func(i, j int) {
		combos[i], combos[j] = combos[j], combos[i]
	})
	return combos
}

func criteria(cfg Config) cache.Criteria {
	crit := cache.Criteria{
		ActiveWithinMinutes: cfg.ActiveWithinMinutes,
		MinWinRate:          cfg.MinWinRate,
	}
	if cfg.LPRange != nil {
		crit.HasLPRange = true
		crit.MinLP = cfg.LPRange.Min
		crit.MaxLP = cfg.LPRange.Max
	}
	return crit
}

// classify sorts request errors into the engine's taxonomy: (fatal, stop)
// for bad credentials, (nil, stop) for abort and cancellation, and
// (nil, false) for everything skippable.
func classify(err error) (error, bool) {
	switch {
	case errors.Is(err, api.ErrInvalidAPIKey):
		return err, true
	case errors.Is(err, api.ErrAborted), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, true
	default:
		return nil, false
	}
}

func participantName(p api.Participant) string {
	if p.RiotIDGameName == "" {
		return "Unknown"
	}
	if p.RiotIDTagline == "" {
		return p.RiotIDGameName
	}
	return p.RiotIDGameName + "#" + p.RiotIDTagline
}
