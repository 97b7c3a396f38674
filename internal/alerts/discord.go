package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hetulpatel/sportsarb/internal/arb"
	"github.com/hetulpatel/sportsarb/internal/bookies"
	"github.com/hetulpatel/sportsarb/internal/drift"
	"github.com/hetulpatel/sportsarb/internal/odds"
	"github.com/hetulpatel/sportsarb/internal/risk"
)

// DiscordSink posts formatted alert messages to a Discord webhook.
type DiscordSink struct {
	webhookURL string
	httpClient *http.Client
}

func NewDiscordSink(webhookURL string, timeout time.Duration) *DiscordSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DiscordSink{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type webhookMessage struct {
	Content string `json:"content"`
}

func (s *DiscordSink) PublishOpportunities(ctx context.Context, opps []arb.Opportunity) error {
	if s == nil || s.webhookURL == "" {
		return nil
	}
	for i := range opps {
		if err := s.post(ctx, formatOpportunity(&opps[i])); err != nil {
			return err
		}
	}
	return nil
}

func (s *DiscordSink) PublishSignals(ctx context.Context, sigs []drift.ValueSignal) error {
	if s == nil || s.webhookURL == "" {
		return nil
	}
	for i := range sigs {
		if err := s.post(ctx, formatSignal(&sigs[i])); err != nil {
			return err
		}
	}
	return nil
}

func (s *DiscordSink) post(ctx context.Context, content string) error {
	body, err := json.Marshal(webhookMessage{Content: content})
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}

func formatOpportunity(opp *arb.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s **ARBITRAGE** %s (%s %s)\n", confidenceBadge(opp.Confidence), opp.EventName, opp.SportKey, opp.Market)
	fmt.Fprintf(&b, "ROI: %.2f%% | stake %.2f | guaranteed profit %.2f\n", opp.ROIPercent, opp.TotalStake, opp.GuaranteedProfit)
	for _, leg := range opp.Legs {
		fmt.Fprintf(&b, "- %s @ %.2f on %s, stake %.2f\n", legLabel(opp.Market, leg), leg.Odds, leg.Bookmaker, leg.Stake)
	}
	fmt.Fprintf(&b, "Risk: %s", riskLine(opp.RiskVerdict))
	if !opp.CommenceTime.IsZero() {
		fmt.Fprintf(&b, " | starts %s", opp.CommenceTime.UTC().Format(time.RFC822))
	}
	return b.String()
}

func formatSignal(sig *drift.ValueSignal) string {
	outcome := sig.Outcome
	if sig.Point != 0 {
		outcome = fmt.Sprintf("%s %.1f", sig.Outcome, sig.Point)
	}
	return fmt.Sprintf("💎 **VALUE BET** %s - %s\nBet %s @ %.2f on %s. Sharp consensus (%s) is %.2f: +%.1f%% edge.",
		sig.EventName, outcome,
		outcome, sig.SoftPrice, sig.SoftBookmaker,
		sig.SharpBookmaker, sig.SharpPrice, sig.EdgePercent)
}

// legLabel renders a leg's outcome with its betting line when it has
// one, e.g. "Over 2.5" or "Lakers -3.5".
func legLabel(market odds.Market, leg arb.Leg) string {
	if leg.Point == 0 {
		return leg.Outcome
	}
	if market == odds.MarketSpread {
		return fmt.Sprintf("%s %+.1f", leg.Outcome, leg.Point)
	}
	return fmt.Sprintf("%s %.1f", leg.Outcome, leg.Point)
}

func confidenceBadge(tag bookies.ConfidenceTag) string {
	switch tag {
	case bookies.TagHighConfidence:
		return "⭐"
	case bookies.TagFastMove:
		return "⚡"
	case bookies.TagSharpArb:
		return "🔹"
	default:
		return "📊"
	}
}

func riskLine(v risk.Verdict) string {
	switch v {
	case risk.VerdictSafe:
		return "rules match"
	case risk.VerdictRuleMismatch:
		return "RULE MISMATCH - verify settlement terms on both sites"
	case risk.VerdictHighRisk:
		return "HIGH RISK bookmaker - verify manually"
	case risk.VerdictUnknownRules:
		return "unknown settlement rules - check both sites"
	default:
		return string(v)
	}
}
