package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hetulpatel/sportsarb/internal/feed"
	"github.com/hetulpatel/sportsarb/internal/logging"
	"github.com/hetulpatel/sportsarb/internal/odds"
)

const defaultBaseURL = "https://api.the-odds-api.com/v4"

// Client fetches odds from the-odds-api.com and normalizes them into
// snapshots. It tracks the monthly request budget locally and refuses to
// fetch once it is spent; the server-reported quota counters come back in
// response headers and are passed through untouched.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	maxMonthly int
	staleAfter time.Duration

	requestsMade int
	lastQuota    feed.Quota
}

// Config controls optional overrides for the client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxMonthly int
	StaleAfter time.Duration
}

// NewClient builds an Odds API client with sane defaults.
func NewClient(cfg Config) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	maxMonthly := cfg.MaxMonthly
	if maxMonthly <= 0 {
		maxMonthly = 500
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	return &Client{
		baseURL:    base,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		maxMonthly: maxMonthly,
		staleAfter: staleAfter,
	}
}

func (c *Client) Name() string {
	return "the-odds-api"
}

// Fetch retrieves odds for every requested sport. A sport that fails is
// skipped, not fatal; the whole fetch fails only when every sport does.
func (c *Client) Fetch(ctx context.Context, opts feed.FetchOptions) ([]odds.Event, feed.Quota, error) {
	var events []odds.Event
	failures := 0
	for _, sport := range opts.Sports {
		select {
		case <-ctx.Done():
			return nil, c.lastQuota, ctx.Err()
		default:
		}

		fetched, err := c.fetchSport(ctx, sport, opts)
		if err != nil {
			logging.Errorf("[oddsapi] fetch %s failed: %v", sport, err)
			failures++
			continue
		}
		events = append(events, fetched...)
	}
	if failures > 0 && failures == len(opts.Sports) {
		return nil, c.lastQuota, fmt.Errorf("all %d sport fetches failed", failures)
	}
	return events, c.lastQuota, nil
}

func (c *Client) fetchSport(ctx context.Context, sport string, opts feed.FetchOptions) ([]odds.Event, error) {
	if c.requestsMade >= c.maxMonthly {
		return nil, fmt.Errorf("monthly request budget exhausted (%d)", c.maxMonthly)
	}

	endpoint := fmt.Sprintf("%s/sports/%s/odds", c.baseURL, url.PathEscape(sport))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	q := req.URL.Query()
	q.Set("apiKey", c.apiKey)
	q.Set("regions", strings.Join(opts.Regions, ","))
	q.Set("markets", strings.Join(opts.Markets, ","))
	q.Set("oddsFormat", "decimal")
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", sport, err)
	}
	defer resp.Body.Close()
	c.requestsMade++
	c.recordQuota(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("odds api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw []apiEvent
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", sport, err)
	}

	now := time.Now().UTC()
	events := make([]odds.Event, 0, len(raw))
	for _, ev := range raw {
		normalized := c.normalizeEvent(ev, now)
		if len(normalized.Snapshots) > 0 {
			events = append(events, normalized)
		}
	}
	logging.Infof("[oddsapi] fetched %d events for %s", len(events), sport)
	return events, nil
}

func (c *Client) recordQuota(h http.Header) {
	if used, err := strconv.Atoi(h.Get("x-requests-used")); err == nil {
		c.lastQuota.Used = used
	}
	if remaining, err := strconv.Atoi(h.Get("x-requests-remaining")); err == nil {
		c.lastQuota.Remaining = remaining
	}
}

// normalizeEvent flattens the API's bookmakers/markets/outcomes nesting
// into snapshots, skipping quotes whose bookmaker has not updated within
// the staleness horizon.
func (c *Client) normalizeEvent(ev apiEvent, now time.Time) odds.Event {
	out := odds.Event{
		EventID:      ev.ID,
		SportKey:     ev.SportKey,
		SportTitle:   ev.SportTitle,
		HomeTeam:     ev.HomeTeam,
		AwayTeam:     ev.AwayTeam,
		CommenceTime: ev.CommenceTime,
	}
	for _, bm := range ev.Bookmakers {
		if !bm.LastUpdate.IsZero() && now.Sub(bm.LastUpdate) > c.staleAfter {
			logging.Debugf("[oddsapi] skipping stale quotes from %s on %s", bm.Key, ev.ID)
			continue
		}
		observed := bm.LastUpdate
		if observed.IsZero() {
			observed = now
		}
		for _, market := range bm.Markets {
			marketType, ok := marketTypeFor(market.Key, len(market.Outcomes))
			if !ok {
				continue
			}
			for _, outcome := range market.Outcomes {
				out.Snapshots = append(out.Snapshots, odds.Snapshot{
					EventID:    ev.ID,
					Market:     marketType,
					Outcome:    outcome.Name,
					Point:      outcome.Point,
					Bookmaker:  bm.Key,
					Price:      outcome.Price,
					ObservedAt: observed,
				})
			}
		}
	}
	return out
}

// marketTypeFor maps an API market key to the internal market enum. A
// head-to-head market with a draw outcome is a three-way market.
func marketTypeFor(key string, outcomes int) (odds.Market, bool) {
	switch key {
	case "h2h":
		if outcomes >= 3 {
			return odds.MarketThreeWay, true
		}
		return odds.MarketMoneyline, true
	case "totals":
		return odds.MarketTotals, true
	case "spreads":
		return odds.MarketSpread, true
	default:
		return "", false
	}
}

type apiEvent struct {
	ID           string         `json:"id"`
	SportKey     string         `json:"sport_key"`
	SportTitle   string         `json:"sport_title"`
	CommenceTime time.Time      `json:"commence_time"`
	HomeTeam     string         `json:"home_team"`
	AwayTeam     string         `json:"away_team"`
	Bookmakers   []apiBookmaker `json:"bookmakers"`
}

type apiBookmaker struct {
	Key        string      `json:"key"`
	Title      string      `json:"title"`
	LastUpdate time.Time   `json:"last_update"`
	Markets    []apiMarket `json:"markets"`
}

type apiMarket struct {
	Key      string       `json:"key"`
	Outcomes []apiOutcome `json:"outcomes"`
}

type apiOutcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Point float64 `json:"point,omitempty"`
}
