package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hetulpatel/sportsarb/internal/alerts"
	"github.com/hetulpatel/sportsarb/internal/arb"
	"github.com/hetulpatel/sportsarb/internal/cache"
	"github.com/hetulpatel/sportsarb/internal/drift"
	"github.com/hetulpatel/sportsarb/internal/feed"
	"github.com/hetulpatel/sportsarb/internal/logging"
	"github.com/hetulpatel/sportsarb/internal/odds"
	"github.com/hetulpatel/sportsarb/internal/risk"
	"github.com/hetulpatel/sportsarb/internal/schedule"
)

// ErrBusy is returned when a cycle is triggered while another is still
// running. Triggers are rejected, never queued.
var ErrBusy = errors.New("scan already in progress")

// Summary is the cycle report handed back to whoever triggered the scan.
type Summary struct {
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	Markets            []string  `json:"markets"`
	SnapshotsProcessed int       `json:"snapshots_processed"`
	SnapshotsDropped   int       `json:"snapshots_dropped"`
	OpportunitiesFound int       `json:"opportunities_found"`
	SignalsFound       int       `json:"signals_found"`
	QuotaRemaining     int       `json:"quota_remaining"`
}

// Store persists alerts and cycle summaries for auditing. Optional.
type Store interface {
	InsertOpportunity(ctx context.Context, opp *arb.Opportunity) error
	InsertValueSignal(ctx context.Context, sig *drift.ValueSignal) error
	InsertCycleSummary(ctx context.Context, summary Summary) error
}

// Config is the engine's operating surface, already validated.
type Config struct {
	Sports          []string
	Regions         []string
	Markets         []string
	Schedule        schedule.Schedule
	PeakInterval    time.Duration
	OffPeakInterval time.Duration
	Location        *time.Location
}

// Engine runs the single-threaded poll cycle: scheduler decision, fetch,
// classify, detect, drift-observe, risk-check, hand off to the sink.
// DriftHistory is the only cross-cycle mutable state and is owned by the
// tracker; the busy flag guarantees at most one active cycle.
type Engine struct {
	cfg      Config
	provider feed.Provider
	detector *arb.Detector
	tracker  *drift.Tracker
	reporter *risk.Reporter
	sink     alerts.Sink
	store    Store
	cooldown cache.AlertCache
	busy     atomic.Bool
	now      func() time.Time
}

func New(cfg Config, provider feed.Provider, detector *arb.Detector, tracker *drift.Tracker, reporter *risk.Reporter, sink alerts.Sink, store Store, cooldown cache.AlertCache) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.PeakInterval <= 0 {
		cfg.PeakInterval = time.Minute
	}
	if cfg.OffPeakInterval <= 0 {
		cfg.OffPeakInterval = 30 * time.Minute
	}
	return &Engine{
		cfg:      cfg,
		provider: provider,
		detector: detector,
		tracker:  tracker,
		reporter: reporter,
		sink:     sink,
		store:    store,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Busy reports whether a cycle is currently running.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// PollInterval returns the cadence the scheduler wants right now.
func (e *Engine) PollInterval(now time.Time) time.Duration {
	return schedule.PollInterval(now.In(e.cfg.Location), e.cfg.Sports, e.cfg.Schedule,
		e.cfg.PeakInterval, e.cfg.OffPeakInterval)
}

// RunCycle runs one scheduled cycle over the markets currently inside a
// peak window. Off-peak, that set is empty and the cycle is a cheap no-op.
func (e *Engine) RunCycle(ctx context.Context) (Summary, error) {
	now := e.now().In(e.cfg.Location)
	return e.run(ctx, schedule.ActiveMarkets(now, e.cfg.Sports, e.cfg.Schedule))
}

// RunOnDemand runs one cycle over every configured market regardless of
// the schedule, for out-of-band triggers.
func (e *Engine) RunOnDemand(ctx context.Context) (Summary, error) {
	return e.run(ctx, e.cfg.Sports)
}

func (e *Engine) run(ctx context.Context, sports []string) (summary Summary, err error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Summary{}, ErrBusy
	}
	defer e.busy.Store(false)

	now := e.now()
	summary = Summary{StartedAt: now.UTC(), Markets: sports}
	defer func() {
		summary.FinishedAt = e.now().UTC()
	}()

	if len(sports) == 0 {
		logging.Infof("[engine] no markets in a peak window, skipping fetch")
		return summary, nil
	}

	events, quota, err := e.provider.Fetch(ctx, feed.FetchOptions{
		Sports:  sports,
		Regions: e.cfg.Regions,
		Markets: e.cfg.Markets,
	})
	summary.QuotaRemaining = quota.Remaining
	if err != nil {
		// A failed fetch is an empty cycle, never a crashed one.
		logging.Errorf("[engine] fetch failed, treating cycle as empty: %v", err)
		return summary, nil
	}
	logging.Infof("[engine] fetched %d events from %s (quota remaining: %d)",
		len(events), e.provider.Name(), quota.Remaining)

	e.tracker.Sweep(now)

	var opportunities []arb.Opportunity
	var signals []drift.ValueSignal
	for i := range events {
		ev := &events[i]
		clean, dropped := odds.Clean(ev.Snapshots)
		ev.Snapshots = clean
		summary.SnapshotsProcessed += len(clean)
		summary.SnapshotsDropped += dropped

		for _, snap := range clean {
			if sig := e.tracker.Observe(ev, snap); sig != nil {
				signals = append(signals, *sig)
			}
		}
		opportunities = append(opportunities, e.detector.Detect(ev)...)
	}

	for i := range opportunities {
		opp := &opportunities[i]
		opp.RiskVerdict = e.reporter.Check(odds.Family(opp.SportKey), opp.Bookmakers())
	}
	arb.Sort(opportunities)

	summary.OpportunitiesFound = len(opportunities)
	summary.SignalsFound = len(signals)

	e.persist(ctx, opportunities, signals, &summary)
	e.publish(ctx, opportunities, signals)
	return summary, nil
}

func (e *Engine) persist(ctx context.Context, opps []arb.Opportunity, sigs []drift.ValueSignal, summary *Summary) {
	if e.store == nil {
		return
	}
	for i := range opps {
		if err := e.store.InsertOpportunity(ctx, &opps[i]); err != nil {
			logging.Errorf("[engine] store opportunity: %v", err)
		}
	}
	for i := range sigs {
		if err := e.store.InsertValueSignal(ctx, &sigs[i]); err != nil {
			logging.Errorf("[engine] store signal: %v", err)
		}
	}
	summary.FinishedAt = e.now().UTC()
	if err := e.store.InsertCycleSummary(ctx, *summary); err != nil {
		logging.Errorf("[engine] store cycle summary: %v", err)
	}
}

// publish hands the surviving alerts to the sink, skipping anything the
// cooldown cache has seen recently. Alerts are logged either way so a
// dry run (nil sink) still shows what was found.
func (e *Engine) publish(ctx context.Context, opps []arb.Opportunity, sigs []drift.ValueSignal) {
	fresh := opps[:0:0]
	for i := range opps {
		opp := &opps[i]
		logging.Infof("[engine] ARB %s %s roi=%.2f%% tag=%s verdict=%s",
			opp.EventName, opp.Market, opp.ROIPercent, opp.Confidence, opp.RiskVerdict)
		if e.onCooldown(ctx, alerts.OpportunityKey(opp)) {
			continue
		}
		fresh = append(fresh, *opp)
	}

	freshSigs := sigs[:0:0]
	for i := range sigs {
		sig := &sigs[i]
		logging.Infof("[engine] VALUE %s %s soft=%s@%.2f sharp=%s@%.2f edge=%.1f%%",
			sig.EventName, sig.Outcome, sig.SoftBookmaker, sig.SoftPrice,
			sig.SharpBookmaker, sig.SharpPrice, sig.EdgePercent)
		if e.onCooldown(ctx, alerts.SignalKey(sig)) {
			continue
		}
		freshSigs = append(freshSigs, *sig)
	}

	if e.sink == nil {
		return
	}
	if err := e.sink.PublishOpportunities(ctx, fresh); err != nil {
		logging.Errorf("[engine] publish opportunities: %v", err)
	}
	if err := e.sink.PublishSignals(ctx, freshSigs); err != nil {
		logging.Errorf("[engine] publish signals: %v", err)
	}
}

// onCooldown checks and arms the duplicate-alert guard for one digest.
// Cache failures never block an alert.
func (e *Engine) onCooldown(ctx context.Context, key string) bool {
	if e.cooldown == nil {
		return false
	}
	seen, err := e.cooldown.Seen(ctx, key)
	if err != nil {
		logging.Errorf("[engine] cooldown check: %v", err)
		return false
	}
	if seen {
		return true
	}
	if err := e.cooldown.Mark(ctx, key); err != nil {
		logging.Errorf("[engine] cooldown mark: %v", err)
	}
	return false
}
