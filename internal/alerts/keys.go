package alerts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/hetulpatel/sportsarb/internal/arb"
	"github.com/hetulpatel/sportsarb/internal/drift"
)

func digest(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// OpportunityKey is the cooldown digest for an opportunity: same event,
// market, legs and prices hash to the same key, so an unchanged gap is
// alerted once per cooldown window.
func OpportunityKey(opp *arb.Opportunity) string {
	parts := []string{"opp", opp.EventID, string(opp.Market)}
	for _, leg := range opp.Legs {
		parts = append(parts, fmt.Sprintf("%s/%.2f@%s:%.3f", leg.Outcome, leg.Point, leg.Bookmaker, leg.Odds))
	}
	return digest(parts...)
}

// SignalKey is the cooldown digest for a value signal, keyed by the soft
// bookmaker's current price.
func SignalKey(sig *drift.ValueSignal) string {
	return digest("signal", sig.EventID, string(sig.Market), sig.Outcome,
		fmt.Sprintf("%.2f", sig.Point),
		sig.SoftBookmaker, fmt.Sprintf("%.3f", sig.SoftPrice))
}
