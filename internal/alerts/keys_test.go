package alerts

import (
	"testing"

	"github.com/hetulpatel/sportsarb/internal/arb"
	"github.com/hetulpatel/sportsarb/internal/drift"
	"github.com/hetulpatel/sportsarb/internal/odds"
)

func sampleOpportunity() *arb.Opportunity {
	return &arb.Opportunity{
		EventID: "evt-1",
		Market:  odds.MarketMoneyline,
		Legs: []arb.Leg{
			{Outcome: "Lakers", Bookmaker: "pinnacle_eu", Odds: 2.10},
			{Outcome: "Celtics", Bookmaker: "bet365_eu", Odds: 2.05},
		},
	}
}

func TestOpportunityKeyIsStable(t *testing.T) {
	a, b := sampleOpportunity(), sampleOpportunity()
	if OpportunityKey(a) != OpportunityKey(b) {
		t.Error("identical opportunities must share a digest")
	}
}

func TestOpportunityKeyChangesWithOdds(t *testing.T) {
	a, b := sampleOpportunity(), sampleOpportunity()
	b.Legs[0].Odds = 2.12
	if OpportunityKey(a) == OpportunityKey(b) {
		t.Error("a moved price must produce a new digest")
	}

	c := sampleOpportunity()
	c.Legs[0].Bookmaker = "betfair_uk"
	if OpportunityKey(a) == OpportunityKey(c) {
		t.Error("a different bookmaker must produce a new digest")
	}

	d := sampleOpportunity()
	d.Legs[0].Point = 2.5
	d.Legs[1].Point = 2.5
	if OpportunityKey(a) == OpportunityKey(d) {
		t.Error("a different betting line must produce a new digest")
	}
}

func TestSignalKey(t *testing.T) {
	sig := drift.ValueSignal{
		EventID:       "evt-1",
		Market:        odds.MarketMoneyline,
		Outcome:       "Lakers",
		SoftBookmaker: "bet365_eu",
		SoftPrice:     1.90,
	}
	same := sig
	if SignalKey(&sig) != SignalKey(&same) {
		t.Error("identical signals must share a digest")
	}

	moved := sig
	moved.SoftPrice = 1.95
	if SignalKey(&sig) == SignalKey(&moved) {
		t.Error("a moved soft price must produce a new digest")
	}
}
