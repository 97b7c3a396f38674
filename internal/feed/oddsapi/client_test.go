package oddsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hetulpatel/sportsarb/internal/feed"
	"github.com/hetulpatel/sportsarb/internal/odds"
)

func apiPayload(lastUpdate string) string {
	return fmt.Sprintf(`[
  {
    "id": "evt-1",
    "sport_key": "basketball_nba",
    "sport_title": "NBA",
    "commence_time": "2026-03-02T19:00:00Z",
    "home_team": "Lakers",
    "away_team": "Celtics",
    "bookmakers": [
      {
        "key": "pinnacle",
        "title": "Pinnacle",
        "last_update": %q,
        "markets": [
          {
            "key": "h2h",
            "outcomes": [
              {"name": "Lakers", "price": 2.10},
              {"name": "Celtics", "price": 1.80}
            ]
          },
          {
            "key": "totals",
            "outcomes": [
              {"name": "Over", "price": 1.95, "point": 215.5},
              {"name": "Under", "price": 1.92, "point": 215.5}
            ]
          },
          {
            "key": "outrights",
            "outcomes": [{"name": "Lakers", "price": 5.0}]
          }
        ]
      }
    ]
  }
]`, lastUpdate)
}

func TestFetchNormalizesEvents(t *testing.T) {
	fresh := time.Now().UTC().Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("oddsFormat"); got != "decimal" {
			t.Errorf("oddsFormat = %q, want decimal", got)
		}
		if got := r.URL.Query().Get("apiKey"); got != "test-key" {
			t.Errorf("apiKey = %q", got)
		}
		w.Header().Set("x-requests-used", "12")
		w.Header().Set("x-requests-remaining", "488")
		fmt.Fprint(w, apiPayload(fresh))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
	events, quota, err := client.Fetch(context.Background(), feed.FetchOptions{
		Sports:  []string{"basketball_nba"},
		Regions: []string{"eu"},
		Markets: []string{"h2h"},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if quota.Used != 12 || quota.Remaining != 488 {
		t.Errorf("quota = %+v, want 12 used / 488 remaining", quota)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}

	ev := events[0]
	if ev.EventID != "evt-1" || ev.SportKey != "basketball_nba" {
		t.Errorf("event = %+v", ev)
	}
	// The unsupported outrights market is dropped; two h2h and two
	// totals quotes remain.
	if len(ev.Snapshots) != 4 {
		t.Fatalf("got %d snapshots, want 4", len(ev.Snapshots))
	}
	for _, s := range ev.Snapshots {
		if s.Bookmaker != "pinnacle" {
			t.Errorf("bookmaker = %q", s.Bookmaker)
		}
		switch s.Market {
		case odds.MarketMoneyline:
			if s.Point != 0 {
				t.Errorf("moneyline quote carries line %.1f", s.Point)
			}
		case odds.MarketTotals:
			// The betting line must survive normalization or quotes
			// from different lines become indistinguishable.
			if s.Point != 215.5 {
				t.Errorf("totals quote line = %.1f, want 215.5", s.Point)
			}
		default:
			t.Errorf("unexpected market %q", s.Market)
		}
	}
}

func TestFetchSkipsStaleBookmakers(t *testing.T) {
	stale := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, apiPayload(stale))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", StaleAfter: 5 * time.Minute})
	events, _, err := client.Fetch(context.Background(), feed.FetchOptions{
		Sports: []string{"basketball_nba"},
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// The only bookmaker is stale, so the event carries no snapshots and
	// is dropped entirely.
	if len(events) != 0 {
		t.Errorf("stale quotes survived: %d events", len(events))
	}
}

func TestFetchPartialFailureIsTolerated(t *testing.T) {
	fresh := time.Now().UTC().Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sports/soccer_epl/odds" {
			http.Error(w, "unknown sport", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, apiPayload(fresh))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
	events, _, err := client.Fetch(context.Background(), feed.FetchOptions{
		Sports: []string{"basketball_nba", "soccer_epl"},
	})
	if err != nil {
		t.Fatalf("one failed sport must not fail the fetch: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("got %d events, want 1 from the healthy sport", len(events))
	}
}

func TestFetchFailsWhenAllSportsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "bad-key"})
	_, _, err := client.Fetch(context.Background(), feed.FetchOptions{
		Sports: []string{"basketball_nba", "soccer_epl"},
	})
	if err == nil {
		t.Fatal("expected an error when every sport fails")
	}
}

func TestMonthlyBudgetGuard(t *testing.T) {
	calls := 0
	fresh := time.Now().UTC().Format(time.RFC3339)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, apiPayload(fresh))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", MaxMonthly: 2})
	opts := feed.FetchOptions{Sports: []string{"basketball_nba"}}

	for i := 0; i < 2; i++ {
		if _, _, err := client.Fetch(context.Background(), opts); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	// The third fetch is refused locally without touching the API.
	if _, _, err := client.Fetch(context.Background(), opts); err == nil {
		t.Fatal("expected the budget guard to refuse the fetch")
	}
	if calls != 2 {
		t.Errorf("server saw %d calls, want 2", calls)
	}
}

func TestMarketTypeFor(t *testing.T) {
	cases := []struct {
		key      string
		outcomes int
		want     odds.Market
		ok       bool
	}{
		{"h2h", 2, odds.MarketMoneyline, true},
		{"h2h", 3, odds.MarketThreeWay, true},
		{"totals", 2, odds.MarketTotals, true},
		{"spreads", 2, odds.MarketSpread, true},
		{"outrights", 10, "", false},
	}
	for _, tc := range cases {
		got, ok := marketTypeFor(tc.key, tc.outcomes)
		if got != tc.want || ok != tc.ok {
			t.Errorf("marketTypeFor(%q, %d) = %q/%v, want %q/%v", tc.key, tc.outcomes, got, ok, tc.want, tc.ok)
		}
	}
}
