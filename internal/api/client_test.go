package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string, rps int) *Client {
	c := newClient("test-key", baseURL, baseURL, rps, zerolog.Nop())
	c.cooldown = 300 * time.Millisecond
	c.pollInterval = 50 * time.Millisecond
	return c
}

type recordingObserver struct {
	mu      sync.Mutex
	events  [][2]int // limited (0/1), seconds
	aborted bool
}

func (o *recordingObserver) RateLimitChanged(limited bool, seconds int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	l := 0
	if limited {
		l = 1
	}
	o.events = append(o.events, [2]int{l, seconds})
}

func (o *recordingObserver) Aborted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.aborted
}

func TestRequestSpacing(t *testing.T) {
	var mu sync.Mutex
	var hits []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	// 5 req/s means at least 200ms between underlying calls.
	c := testClient(srv.URL, 5)
	ctx := context.Background()

	_, err := c.LeagueEntries(ctx, QueueSolo, "GOLD", "II", 1)
	require.NoError(t, err)
	_, err = c.LeagueEntries(ctx, QueueSolo, "GOLD", "II", 2)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, hits, 2)
	assert.GreaterOrEqual(t, hits[1].Sub(hits[0]), 150*time.Millisecond)
}

func TestAuthHeaderSent(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Riot-Token")
		w.Write([]byte(`{"puuid":"p1","gameName":"Tester","tagLine":"EUW"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 1000)
	account, err := c.AccountByPUUID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "Tester#EUW", account.RiotID())
}

func TestForbiddenIsFatal(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 1000)
	_, err := c.MatchIDs(context.Background(), "p1", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
	assert.Equal(t, 1, calls, "403 is never retried")
}

func TestOtherStatusCarriesDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 1000)
	_, err := c.Match(context.Background(), "EUW1_123")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.NotEmpty(t, apiErr.StatusText)
	assert.Contains(t, apiErr.URL, "EUW1_123")
}

func TestOverloadRetryProtocol(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`["EUW1_1"]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 1000)
	obs := &recordingObserver{}
	c.SetObserver(obs)

	start := time.Now()
	ids, err := c.MatchIDs(context.Background(), "p1", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"EUW1_1"}, ids)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), c.cooldown, "the full cool-down is waited out")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Len(t, obs.events, 2)
	assert.Equal(t, [2]int{1, int(c.cooldown.Seconds())}, obs.events[0])
	assert.Equal(t, [2]int{0, 0}, obs.events[1])
}

func TestOverloadRetryBounded(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 1000)
	c.cooldown = 10 * time.Millisecond
	c.pollInterval = 5 * time.Millisecond
	c.maxRetries = 2

	_, err := c.MatchIDs(context.Background(), "p1", 0, 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, 3, calls, "initial attempt plus bounded retries")
}

func TestCooldownAbortable(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 1000)
	c.cooldown = 10 * time.Second
	obs := &recordingObserver{aborted: true}
	c.SetObserver(obs)

	start := time.Now()
	_, err := c.MatchIDs(context.Background(), "p1", 0, 1)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.Less(t, time.Since(start), 2*time.Second, "abort cuts the cool-down short")
	assert.Equal(t, 1, calls)
}
