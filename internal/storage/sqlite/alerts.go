package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hetulpatel/sportsarb/internal/arb"
	"github.com/hetulpatel/sportsarb/internal/drift"
	"github.com/hetulpatel/sportsarb/internal/engine"
)

// InsertOpportunity appends one detected opportunity to the audit trail.
func (s *Store) InsertOpportunity(ctx context.Context, opp *arb.Opportunity) error {
	if s == nil || s.db == nil || opp == nil {
		return fmt.Errorf("sqlite store not initialized or opportunity nil")
	}
	legsJSON, err := json.Marshal(opp.Legs)
	if err != nil {
		return fmt.Errorf("marshal legs: %w", err)
	}

	const query = `
INSERT INTO opportunities (
	event_id, event_name, sport_key, market, commence_time,
	implied_sum, roi_percent, total_stake, guaranteed_profit,
	confidence, risk_verdict, legs_json, detected_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	_, err = s.db.ExecContext(
		ctx,
		query,
		opp.EventID,
		opp.EventName,
		opp.SportKey,
		string(opp.Market),
		formatTime(opp.CommenceTime),
		opp.ImpliedSum,
		opp.ROIPercent,
		opp.TotalStake,
		opp.GuaranteedProfit,
		string(opp.Confidence),
		string(opp.RiskVerdict),
		string(legsJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// InsertValueSignal appends one drift value signal to the audit trail.
func (s *Store) InsertValueSignal(ctx context.Context, sig *drift.ValueSignal) error {
	if s == nil || s.db == nil || sig == nil {
		return fmt.Errorf("sqlite store not initialized or signal nil")
	}

	const query = `
INSERT INTO value_signals (
	event_id, event_name, market, outcome, point,
	sharp_bookmaker, sharp_price, soft_bookmaker, soft_price,
	edge_percent, observed_at, detected_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	_, err := s.db.ExecContext(
		ctx,
		query,
		sig.EventID,
		sig.EventName,
		string(sig.Market),
		sig.Outcome,
		sig.Point,
		sig.SharpBookmaker,
		sig.SharpPrice,
		sig.SoftBookmaker,
		sig.SoftPrice,
		sig.EdgePercent,
		formatTime(sig.ObservedAt),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// InsertCycleSummary records the outcome of one poll cycle.
func (s *Store) InsertCycleSummary(ctx context.Context, summary engine.Summary) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialized")
	}

	const query = `
INSERT INTO cycles (
	started_at, finished_at, snapshots_processed, snapshots_dropped,
	opportunities_found, signals_found, quota_remaining
) VALUES (?, ?, ?, ?, ?, ?, ?)
`
	_, err := s.db.ExecContext(
		ctx,
		query,
		formatTime(summary.StartedAt),
		formatTime(summary.FinishedAt),
		summary.SnapshotsProcessed,
		summary.SnapshotsDropped,
		summary.OpportunitiesFound,
		summary.SignalsFound,
		summary.QuotaRemaining,
	)
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
