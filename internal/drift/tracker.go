package drift

import (
	"math"
	"time"

	"github.com/hetulpatel/sportsarb/internal/bookies"
	"github.com/hetulpatel/sportsarb/internal/logging"
	"github.com/hetulpatel/sportsarb/internal/odds"
)

// ValueSignal flags a soft bookmaker that has not followed a sharp price
// drop: betting the soft side captures the move before an arbitrage gap
// fully opens.
type ValueSignal struct {
	EventID        string      `json:"event_id"`
	EventName      string      `json:"event_name"`
	Market         odds.Market `json:"market"`
	Outcome        string      `json:"outcome"`
	Point          float64     `json:"point,omitempty"`
	SharpBookmaker string      `json:"sharp_bookmaker"`
	SharpPrice     float64     `json:"sharp_price"`
	SoftBookmaker  string      `json:"soft_bookmaker"`
	SoftPrice      float64     `json:"soft_price"`
	EdgePercent    float64     `json:"edge_percent"`
	ObservedAt     time.Time   `json:"observed_at"`
}

// Config tunes drop detection and history retention.
type Config struct {
	ValueThresholdPercent float64       // minimum soft-vs-sharp edge to signal
	DropEpsilon           float64       // minimum absolute price fall to open an episode
	HistoryWindow         int           // retained points per (event, outcome, bookmaker)
	EventGrace            time.Duration // retention past the event's scheduled start
	FallbackHorizon       time.Duration // retention when no start time is known
}

func (c *Config) applyDefaults() {
	if c.ValueThresholdPercent <= 0 {
		c.ValueThresholdPercent = 5.0
	}
	if c.DropEpsilon <= 0 {
		c.DropEpsilon = 0.01
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 8
	}
	if c.EventGrace <= 0 {
		c.EventGrace = 2 * time.Hour
	}
	if c.FallbackHorizon <= 0 {
		c.FallbackHorizon = 6 * time.Hour
	}
}

type historyKey struct {
	eventID   string
	outcome   string
	point     float64
	bookmaker string
}

type episodeKey struct {
	eventID string
	market  odds.Market
	outcome string
	point   float64
}

type pricePoint struct {
	price float64
	at    time.Time
}

// episode is an open sharp drop: the sharp side fell from preDrop to
// current and the soft side has not yet followed.
type episode struct {
	sharpBookmaker string
	preDrop        float64
	current        float64
	openedAt       time.Time
	alerted        map[string]float64 // soft bookmaker -> price at last alert
}

// Tracker owns the cross-cycle DriftHistory. It is read and written only
// from the single cycle goroutine, so it carries no lock.
type Tracker struct {
	cfg        Config
	classifier *bookies.Classifier
	history    map[historyKey][]pricePoint
	sharpLast  map[episodeKey]pricePoint
	episodes   map[episodeKey]*episode
	starts     map[string]time.Time
}

func NewTracker(cfg Config, classifier *bookies.Classifier) *Tracker {
	cfg.applyDefaults()
	return &Tracker{
		cfg:        cfg,
		classifier: classifier,
		history:    make(map[historyKey][]pricePoint),
		sharpLast:  make(map[episodeKey]pricePoint),
		episodes:   make(map[episodeKey]*episode),
		starts:     make(map[string]time.Time),
	}
}

// Observe records one snapshot in ingestion order and returns a value
// signal when a soft bookmaker still prices above an open sharp drop.
// At most one signal is emitted per (event, outcome, soft bookmaker) per
// episode; an unchanged soft price stays suppressed.
func (t *Tracker) Observe(ev *odds.Event, snap odds.Snapshot) *ValueSignal {
	if !ev.CommenceTime.IsZero() {
		t.starts[snap.EventID] = ev.CommenceTime
	}
	t.append(snap)

	switch t.classifier.Classify(snap.Bookmaker) {
	case bookies.TierSharp:
		t.observeSharp(snap)
		return nil
	case bookies.TierSoft:
		return t.observeSoft(ev, snap)
	default:
		return nil
	}
}

func (t *Tracker) append(snap odds.Snapshot) {
	key := historyKey{snap.EventID, snap.Outcome, snap.Point, snap.Bookmaker}
	points := append(t.history[key], pricePoint{price: snap.Price, at: snap.ObservedAt})
	if len(points) > t.cfg.HistoryWindow {
		points = points[len(points)-t.cfg.HistoryWindow:]
	}
	t.history[key] = points
}

func (t *Tracker) observeSharp(snap odds.Snapshot) {
	key := episodeKey{snap.EventID, snap.Market, snap.Outcome, snap.Point}
	prev, seen := t.sharpLast[key]
	t.sharpLast[key] = pricePoint{price: snap.Price, at: snap.ObservedAt}
	if !seen {
		return
	}

	if prev.price-snap.Price > t.cfg.DropEpsilon {
		ep := t.episodes[key]
		if ep == nil {
			ep = &episode{
				sharpBookmaker: snap.Bookmaker,
				preDrop:        prev.price,
				openedAt:       snap.ObservedAt,
				alerted:        make(map[string]float64),
			}
			t.episodes[key] = ep
			logging.Warnf("[drift] sharp drop %s %s: %.2f -> %.2f (%s)",
				snap.EventID, snap.Outcome, prev.price, snap.Price, snap.Bookmaker)
		}
		ep.current = snap.Price
		return
	}

	// A sharp price back at the pre-drop level invalidates the episode.
	if ep, ok := t.episodes[key]; ok && snap.Price >= ep.preDrop-t.cfg.DropEpsilon {
		delete(t.episodes, key)
	}
}

func (t *Tracker) observeSoft(ev *odds.Event, snap odds.Snapshot) *ValueSignal {
	key := episodeKey{snap.EventID, snap.Market, snap.Outcome, snap.Point}
	ep, ok := t.episodes[key]
	if !ok {
		return nil
	}
	// The soft side must still sit at or above the pre-drop sharp level.
	if snap.Price < ep.preDrop-t.cfg.DropEpsilon {
		return nil
	}
	if last, alerted := ep.alerted[snap.Bookmaker]; alerted && math.Abs(snap.Price-last) <= t.cfg.DropEpsilon {
		return nil
	}
	if ep.current <= 0 {
		return nil
	}
	edge := (snap.Price - ep.current) / ep.current * 100
	if edge < t.cfg.ValueThresholdPercent {
		return nil
	}

	ep.alerted[snap.Bookmaker] = snap.Price
	return &ValueSignal{
		EventID:        snap.EventID,
		EventName:      ev.Name(),
		Market:         snap.Market,
		Outcome:        snap.Outcome,
		Point:          snap.Point,
		SharpBookmaker: ep.sharpBookmaker,
		SharpPrice:     ep.current,
		SoftBookmaker:  snap.Bookmaker,
		SoftPrice:      snap.Price,
		EdgePercent:    edge,
		ObservedAt:     snap.ObservedAt,
	}
}

// Sweep evicts state for events past their start plus the grace period,
// or older than the fallback horizon when no start time was ever seen.
// The history is bounded: nothing survives a sweep forever.
func (t *Tracker) Sweep(now time.Time) {
	expired := func(eventID string, lastSeen time.Time) bool {
		if start, ok := t.starts[eventID]; ok {
			return now.After(start.Add(t.cfg.EventGrace))
		}
		return now.Sub(lastSeen) > t.cfg.FallbackHorizon
	}

	for key, points := range t.history {
		if len(points) == 0 || expired(key.eventID, points[len(points)-1].at) {
			delete(t.history, key)
		}
	}
	for key, point := range t.sharpLast {
		if expired(key.eventID, point.at) {
			delete(t.sharpLast, key)
			delete(t.episodes, key)
		}
	}
	for key, ep := range t.episodes {
		if expired(key.eventID, ep.openedAt) {
			delete(t.episodes, key)
		}
	}
	for eventID, start := range t.starts {
		if now.After(start.Add(t.cfg.EventGrace)) {
			delete(t.starts, eventID)
		}
	}
}

// HistoryLen reports the retained point count for one key.
func (t *Tracker) HistoryLen(eventID, outcome string, point float64, bookmaker string) int {
	return len(t.history[historyKey{eventID, outcome, point, bookmaker}])
}
