package arb

import (
	"math"
	"sort"
	"time"

	"github.com/hetulpatel/sportsarb/internal/bookies"
	"github.com/hetulpatel/sportsarb/internal/logging"
	"github.com/hetulpatel/sportsarb/internal/odds"
	"github.com/hetulpatel/sportsarb/internal/risk"
)

const epsilon = 1e-9

// Config holds the ROI acceptance band and staking parameters.
type Config struct {
	MinROIPercent   float64
	MaxROIPercent   float64
	TotalInvestment float64
	SmartRounding   bool
}

// Leg is one bet of an opportunity: an outcome backed at one bookmaker.
// Point carries the betting line for totals and spread legs.
type Leg struct {
	Outcome   string  `json:"outcome"`
	Bookmaker string  `json:"bookmaker"`
	Point     float64 `json:"point,omitempty"`
	Odds      float64 `json:"odds"`
	Stake     float64 `json:"stake"`
}

// Opportunity is a covering combination with guaranteed positive return.
// It exists only inside the alert pipeline; nothing mutates it after the
// detector emits it.
type Opportunity struct {
	EventID          string                `json:"event_id"`
	EventName        string                `json:"event_name"`
	SportKey         string                `json:"sport_key"`
	Market           odds.Market           `json:"market"`
	CommenceTime     time.Time             `json:"commence_time"`
	Legs             []Leg                 `json:"legs"`
	ImpliedSum       float64               `json:"implied_sum"`
	ROIPercent       float64               `json:"roi_percent"`
	TotalStake       float64               `json:"total_stake"`
	GuaranteedProfit float64               `json:"guaranteed_profit"`
	Confidence       bookies.ConfidenceTag `json:"confidence"`
	RiskVerdict      risk.Verdict          `json:"risk_verdict,omitempty"`
}

// Bookmakers lists the leg bookmakers in leg order.
func (o *Opportunity) Bookmakers() []string {
	out := make([]string, len(o.Legs))
	for i, leg := range o.Legs {
		out[i] = leg.Bookmaker
	}
	return out
}

// Detector finds 2-way and 3-way covering combinations. It holds no
// cross-call state: feeding the same snapshots twice yields the same
// opportunities.
type Detector struct {
	cfg        Config
	classifier *bookies.Classifier
}

func NewDetector(cfg Config, classifier *bookies.Classifier) *Detector {
	if cfg.TotalInvestment <= 0 {
		cfg.TotalInvestment = 1000
	}
	return &Detector{cfg: cfg, classifier: classifier}
}

// Detect scans one event's snapshots, one market at a time. Quotes in
// lined markets combine only within the same line. Markets with quotes
// from fewer than two bookmakers yield nothing; that is the expected
// common case, not an error.
func (d *Detector) Detect(ev *odds.Event) []Opportunity {
	var opps []Opportunity
	for market, snaps := range odds.GroupByMarket(ev.Snapshots) {
		for _, group := range splitByLine(market, snaps) {
			if opp := d.detectMarket(ev, market, group); opp != nil {
				opps = append(opps, *opp)
			}
		}
	}
	return opps
}

// splitByLine partitions totals and spread quotes by betting line: an
// Over 3.5 cannot cover an Under 2.5, since a total of 3 loses both
// legs. Totals share one line; spread handicaps mirror each other, so
// the line is the magnitude. Other markets stay in one group.
func splitByLine(market odds.Market, snaps []odds.Snapshot) [][]odds.Snapshot {
	switch market {
	case odds.MarketTotals, odds.MarketSpread:
	default:
		return [][]odds.Snapshot{snaps}
	}

	groups := make(map[float64][]odds.Snapshot)
	var order []float64
	for _, s := range snaps {
		line := s.Point
		if market == odds.MarketSpread {
			line = math.Abs(s.Point)
		}
		if _, ok := groups[line]; !ok {
			order = append(order, line)
		}
		groups[line] = append(groups[line], s)
	}

	out := make([][]odds.Snapshot, 0, len(order))
	for _, line := range order {
		out = append(out, groups[line])
	}
	return out
}

// detectMarket keeps the best quote per outcome and tests the single
// resulting N-leg combination; dominated pairings can never beat it. The
// same routine covers 2-way and 3-way markets.
func (d *Detector) detectMarket(ev *odds.Event, market odds.Market, snaps []odds.Snapshot) *Opportunity {
	best, order := bestPerOutcome(snaps)
	if len(order) < 2 || len(order) > 3 {
		return nil
	}

	legs := make([]Leg, 0, len(order))
	distinct := make(map[string]struct{}, len(order))
	implied := 0.0
	for _, outcome := range order {
		quote := best[outcome]
		implied += 1 / quote.Price
		distinct[bookies.Normalize(quote.Bookmaker)] = struct{}{}
		legs = append(legs, Leg{
			Outcome:   outcome,
			Bookmaker: quote.Bookmaker,
			Point:     quote.Point,
			Odds:      quote.Price,
		})
	}

	// A single bookmaker quoting every leg is just its own margin.
	if len(distinct) < 2 {
		return nil
	}
	// Spread handicaps must mirror: a -3.5 pairs only with a +3.5 on
	// the other side, or one leg can lose without the other winning.
	if market == odds.MarketSpread {
		pointSum := 0.0
		for _, leg := range legs {
			pointSum += leg.Point
		}
		if math.Abs(pointSum) > epsilon {
			return nil
		}
	}
	if implied <= epsilon || implied >= 1.0 {
		return nil
	}

	roi := (1/implied - 1) * 100
	if roi < d.cfg.MinROIPercent {
		logging.Debugf("[arb] %s %s below minimum profit (roi=%.2f%%)", ev.Name(), market, roi)
		return nil
	}
	if roi > d.cfg.MaxROIPercent {
		// Palpable error: gaps this wide are presumed pricing typos the
		// bookmaker will void. Hard reject.
		logging.Debugf("[arb] %s %s rejected as palpable error (roi=%.2f%%)", ev.Name(), market, roi)
		return nil
	}

	stakes := d.stakes(legs, implied)
	totalStake := 0.0
	minPayout := math.Inf(1)
	for i := range legs {
		legs[i].Stake = stakes[i]
		totalStake += stakes[i]
		if payout := stakes[i] * legs[i].Odds; payout < minPayout {
			minPayout = payout
		}
	}

	opp := &Opportunity{
		EventID:          ev.EventID,
		EventName:        ev.Name(),
		SportKey:         ev.SportKey,
		Market:           market,
		CommenceTime:     ev.CommenceTime,
		Legs:             legs,
		ImpliedSum:       implied,
		ROIPercent:       roi,
		TotalStake:       totalStake,
		GuaranteedProfit: minPayout - totalStake,
	}
	opp.Confidence = d.classifier.GroupTag(opp.Bookmakers())
	return opp
}

// bestPerOutcome picks the highest quote per outcome, preserving the
// order outcomes were first seen in.
func bestPerOutcome(snaps []odds.Snapshot) (map[string]odds.Snapshot, []string) {
	best := make(map[string]odds.Snapshot, 3)
	var order []string
	for _, s := range snaps {
		current, ok := best[s.Outcome]
		if !ok {
			order = append(order, s.Outcome)
			best[s.Outcome] = s
			continue
		}
		if s.Price > current.Price {
			best[s.Outcome] = s
		}
	}
	return best, order
}

// stakes distributes the configured investment so every leg pays out the
// same amount: stake_i = total * (1/odds_i) / implied. The float residual
// goes to the leg with the largest raw stake; smart rounding then snaps
// each stake to a human-looking unit, after which profit is recomputed
// from the rounded stakes so it is a lower bound.
func (d *Detector) stakes(legs []Leg, implied float64) []float64 {
	raw := make([]float64, len(legs))
	sum := 0.0
	largest := 0
	for i, leg := range legs {
		raw[i] = d.cfg.TotalInvestment * (1 / leg.Odds) / implied
		sum += raw[i]
		if raw[i] > raw[largest] {
			largest = i
		}
	}
	raw[largest] += d.cfg.TotalInvestment - sum

	if d.cfg.SmartRounding {
		for i := range raw {
			raw[i] = smartRound(raw[i])
		}
	}
	return raw
}

// smartRound snaps a stake to a unit scaled by its magnitude so the bets
// look hand-placed: coarse for large stakes, fine for small ones.
func smartRound(amount float64) float64 {
	switch {
	case amount > 1000:
		return math.Round(amount/100) * 100
	case amount > 100:
		return math.Round(amount/50) * 50
	default:
		return math.Round(amount/5) * 5
	}
}

// Sort orders opportunities by descending ROI; ties break on the sooner
// event start, then on insertion order.
func Sort(opps []Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].ROIPercent != opps[j].ROIPercent {
			return opps[i].ROIPercent > opps[j].ROIPercent
		}
		ti, tj := opps[i].CommenceTime, opps[j].CommenceTime
		if ti.IsZero() || tj.IsZero() {
			return false
		}
		return ti.Before(tj)
	})
}
