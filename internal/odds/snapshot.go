package odds

import (
	"strings"
	"time"

	"github.com/hetulpatel/sportsarb/internal/logging"
)

// Market identifies the market type a quote belongs to.
type Market string

const (
	MarketMoneyline Market = "moneyline"
	MarketTotals    Market = "totals"
	MarketSpread    Market = "spread"
	MarketThreeWay  Market = "three_way"
)

// Snapshot is one bookmaker's decimal price for one outcome of one event
// at one point in time. Snapshots are immutable values; the drift tracker
// keeps old ones as history but never mutates them.
type Snapshot struct {
	EventID    string    `json:"event_id"`
	Market     Market    `json:"market"`
	Outcome    string    `json:"outcome"`
	Point      float64   `json:"point,omitempty"` // betting line for totals/spreads
	Bookmaker  string    `json:"bookmaker"`
	Price      float64   `json:"price"` // decimal odds, must be > 1.0
	ObservedAt time.Time `json:"observed_at"`
}

// Event groups all snapshots fetched for one fixture in one poll.
type Event struct {
	EventID      string     `json:"event_id"`
	SportKey     string     `json:"sport_key"`
	SportTitle   string     `json:"sport_title"`
	HomeTeam     string     `json:"home_team"`
	AwayTeam     string     `json:"away_team"`
	CommenceTime time.Time  `json:"commence_time"`
	Snapshots    []Snapshot `json:"snapshots"`
}

// Name returns a human-readable fixture label.
func (e *Event) Name() string {
	if e.HomeTeam == "" && e.AwayTeam == "" {
		return e.EventID
	}
	return e.HomeTeam + " vs " + e.AwayTeam
}

// Family maps a sport key to its settlement-rule market family,
// e.g. "basketball_nba" -> "basketball".
func Family(sportKey string) string {
	if idx := strings.IndexByte(sportKey, '_'); idx > 0 {
		return sportKey[:idx]
	}
	return sportKey
}

// Clean drops malformed quotes (decimal odds <= 1.0, missing outcome or
// bookmaker) and returns the surviving snapshots plus the drop count.
// Bad quotes are a data error, never a fatal one.
func Clean(snaps []Snapshot) ([]Snapshot, int) {
	kept := make([]Snapshot, 0, len(snaps))
	dropped := 0
	for _, s := range snaps {
		if s.Price <= 1.0 || s.Outcome == "" || s.Bookmaker == "" {
			logging.Warnf("[odds] dropping malformed quote event=%s bookmaker=%q outcome=%q price=%.3f",
				s.EventID, s.Bookmaker, s.Outcome, s.Price)
			dropped++
			continue
		}
		kept = append(kept, s)
	}
	return kept, dropped
}

// GroupByMarket splits an event's snapshots per market, preserving the
// incoming order within each group.
func GroupByMarket(snaps []Snapshot) map[Market][]Snapshot {
	out := make(map[Market][]Snapshot)
	for _, s := range snaps {
		out[s.Market] = append(out[s.Market], s)
	}
	return out
}
