// Package api is the Riot API client. All outbound calls pass through a
// single request gate that enforces a minimum inter-request spacing and
// absorbs upstream 429 responses with a bounded wait-and-retry, so callers
// never need retry logic of their own.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/ezflow997/lol-finder/internal/config"
	"github.com/ezflow997/lol-finder/internal/constants"
)

// Ranked queue identifiers accepted by the league endpoints.
const (
	QueueSolo = "RANKED_SOLO_5x5"
	QueueFlex = "RANKED_FLEX_SR"
)

// ErrInvalidAPIKey marks an upstream 403. The credential is presumed
// invalid or expired, so the request is never retried.
var ErrInvalidAPIKey = errors.New("riot api: invalid or expired API key")

// ErrAborted is returned when the caller's abort predicate fires during a
// rate-limit cool-down.
var ErrAborted = errors.New("riot api: aborted during cool-down")

// APIError carries any other non-success upstream status.
type APIError struct {
	Status     int
	StatusText string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("riot api: %d %s (%s)", e.Status, e.StatusText, e.URL)
}

// RateLimitObserver is notified around the 429 cool-down and polled for
// abort between cool-down slices.
type RateLimitObserver interface {
	RateLimitChanged(limited bool, remainingSeconds int)
	Aborted() bool
}

// NopObserver satisfies RateLimitObserver for headless use.
type NopObserver struct{}

func (NopObserver) RateLimitChanged(bool, int) {}
func (NopObserver) Aborted() bool              { return false }

type Client struct {
	apiKey       string
	platformBase string
	routingBase  string
	client       *fasthttp.Client
	logger       zerolog.Logger
	observer     RateLimitObserver

	interval     time.Duration
	cooldown     time.Duration
	pollInterval time.Duration
	maxRetries   int

	mu          sync.Mutex
	lastRequest time.Time
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return newClient(
		cfg.RiotAPIKey,
		fmt.Sprintf("https://%s.api.riotgames.com", cfg.Platform),
		fmt.Sprintf("https://%s.api.riotgames.com", cfg.Routing),
		cfg.RequestsPerSecond,
		logger,
	)
}

func newClient(apiKey, platformBase, routingBase string, rps int, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:       apiKey,
		platformBase: platformBase,
		routingBase:  routingBase,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger:       logger,
		observer:     NopObserver{},
		interval:     time.Second / time.Duration(rps),
		cooldown:     constants.RateLimitCooldown,
		pollInterval: constants.RateLimitPollInterval,
		maxRetries:   constants.RateLimitMaxRetries,
	}
}

// SetObserver binds the gate's rate-limit notifications and abort polling
// to o for the duration of a search. The system runs one search at a time.
func (c *Client) SetObserver(o RateLimitObserver) {
	if o == nil {
		o = NopObserver{}
	}
	c.observer = o
}

// wait blocks until the minimum inter-request interval has elapsed since
// the previous permitted request. One conservative interval covers every
// request type.
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	next := c.lastRequest.Add(c.interval)
	c.mu.Unlock()

	if d := time.Until(next); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	c.lastRequest = time.Now()
	c.mu.Unlock()
	return nil
}

// coolDown sleeps through the 429 back-off in small slices, polling the
// abort predicate so a caller can cancel a multi-minute wait.
func (c *Client) coolDown(ctx context.Context) error {
	deadline := time.Now().Add(c.cooldown)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		if c.observer.Aborted() {
			return ErrAborted
		}
		slice := c.pollInterval
		if remaining < slice {
			slice = remaining
		}
		select {
		case <-time.After(slice):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) do(ctx context.Context, requestURL string) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("X-Riot-Token", c.apiKey)

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			return 0, nil, err
		}
	} else {
		if err := c.client.Do(req, resp); err != nil {
			return 0, nil, err
		}
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return resp.StatusCode(), body, nil
}

func doRequest[T any](ctx context.Context, c *Client, requestURL string) (*T, error) {
	for attempt := 0; ; attempt++ {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		status, body, err := c.do(ctx, requestURL)
		if err != nil {
			return nil, err
		}

		switch {
		case status == fasthttp.StatusOK:
			var result T
			if err := json.Unmarshal(body, &result); err != nil {
				return nil, fmt.Errorf("failed to decode response from %s: %w", requestURL, err)
			}
			return &result, nil

		case status == fasthttp.StatusForbidden:
			return nil, ErrInvalidAPIKey

		case status == fasthttp.StatusTooManyRequests:
			if attempt >= c.maxRetries {
				return nil, &APIError{Status: status, StatusText: statusText(status), URL: requestURL}
			}
			c.logger.Warn().
				Str("url", requestURL).
				Dur("cooldown", c.cooldown).
				Int("attempt", attempt+1).
				Msg("rate limited by upstream, backing off")
			c.observer.RateLimitChanged(true, int(c.cooldown.Seconds()))
			err := c.coolDown(ctx)
			c.observer.RateLimitChanged(false, 0)
			if err != nil {
				return nil, err
			}

		default:
			return nil, &APIError{Status: status, StatusText: statusText(status), URL: requestURL}
		}
	}
}

func statusText(status int) string {
	return fasthttp.StatusMessage(status)
}

// LeagueEntries fetches one page of the ranked ladder for a queue, tier
// and division. An empty page means the ladder has no more entries there.
func (c *Client) LeagueEntries(ctx context.Context, queue, tier, division string, page int) ([]LeagueEntry, error) {
	u := fmt.Sprintf("%s/lol/league-exp/v4/entries/%s/%s/%s?page=%d",
		c.platformBase, queue, tier, division, page)
	entries, err := doRequest[[]LeagueEntry](ctx, c, u)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

// LeagueEntriesByPUUID fetches a player's current ranked standings across
// all queues.
func (c *Client) LeagueEntriesByPUUID(ctx context.Context, puuid string) ([]LeagueEntry, error) {
	u := fmt.Sprintf("%s/lol/league/v4/entries/by-puuid/%s", c.platformBase, url.PathEscape(puuid))
	entries, err := doRequest[[]LeagueEntry](ctx, c, u)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

// AccountByPUUID resolves a player's display name.
func (c *Client) AccountByPUUID(ctx context.Context, puuid string) (*Account, error) {
	u := fmt.Sprintf("%s/riot/account/v1/accounts/by-puuid/%s", c.routingBase, url.PathEscape(puuid))
	return doRequest[Account](ctx, c, u)
}

// MatchIDs fetches a window of the player's most recent match identifiers,
// any game mode.
func (c *Client) MatchIDs(ctx context.Context, puuid string, start, count int) ([]string, error) {
	u := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?start=%d&count=%d",
		c.routingBase, url.PathEscape(puuid), start, count)
	ids, err := doRequest[[]string](ctx, c, u)
	if err != nil {
		return nil, err
	}
	return *ids, nil
}

// Match fetches full match detail.
func (c *Client) Match(ctx context.Context, matchID string) (*Match, error) {
	u := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.routingBase, url.PathEscape(matchID))
	return doRequest[Match](ctx, c, u)
}
