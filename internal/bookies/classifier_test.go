package bookies

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"pinnacle":    "pinnacle",
		"Pinnacle":    "pinnacle",
		"unibet_us":   "unibet",
		"unibet_eu":   "unibet",
		"betfair_ex_": "betfair",
		"_weird":      "_weird",
		"":            "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassifyIsTotal(t *testing.T) {
	c := NewClassifier([]string{"pinnacle", "betfair_ex_eu"}, []string{"bet365", "Unibet_us"})

	if got := c.Classify("pinnacle_eu"); got != TierSharp {
		t.Errorf("pinnacle_eu = %v, want sharp", got)
	}
	if got := c.Classify("betfair_ex_uk"); got != TierSharp {
		t.Errorf("betfair_ex_uk = %v, want sharp", got)
	}
	if got := c.Classify("BET365"); got != TierSoft {
		t.Errorf("BET365 = %v, want soft", got)
	}
	if got := c.Classify("unibet_eu"); got != TierSoft {
		t.Errorf("unibet_eu = %v, want soft", got)
	}
	if got := c.Classify("somebookie_nobody_configured"); got != TierUnclassified {
		t.Errorf("unknown bookmaker = %v, want unclassified", got)
	}
	if got := c.Classify(""); got != TierUnclassified {
		t.Errorf("empty bookmaker = %v, want unclassified", got)
	}
}

func TestPairTagSymmetry(t *testing.T) {
	tiers := []Tier{TierUnclassified, TierSoft, TierSharp}
	for _, a := range tiers {
		for _, b := range tiers {
			if PairTag(a, b) != PairTag(b, a) {
				t.Errorf("PairTag(%v, %v) != PairTag(%v, %v)", a, b, b, a)
			}
		}
	}
}

func TestPairTagMapping(t *testing.T) {
	cases := []struct {
		a, b Tier
		want ConfidenceTag
	}{
		{TierSharp, TierSoft, TagHighConfidence},
		{TierSoft, TierSoft, TagFastMove},
		{TierSharp, TierSharp, TagSharpArb},
		{TierUnclassified, TierSharp, TagMixed},
		{TierUnclassified, TierSoft, TagMixed},
		{TierUnclassified, TierUnclassified, TagMixed},
	}
	for _, tc := range cases {
		if got := PairTag(tc.a, tc.b); got != tc.want {
			t.Errorf("PairTag(%v, %v) = %q, want %q", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestGroupTag(t *testing.T) {
	c := NewClassifier([]string{"pinnacle", "betfair"}, []string{"bet365", "unibet"})

	cases := []struct {
		name       string
		bookmakers []string
		want       ConfidenceTag
	}{
		{"sharp vs soft", []string{"pinnacle_eu", "bet365_eu"}, TagHighConfidence},
		{"two softs", []string{"bet365", "unibet_us"}, TagFastMove},
		{"two sharps", []string{"pinnacle", "betfair_uk"}, TagSharpArb},
		{"three way sharp sharp soft", []string{"pinnacle", "betfair", "bet365"}, TagHighConfidence},
		{"one unknown leg", []string{"pinnacle", "mysterybook"}, TagMixed},
		{"empty", nil, TagMixed},
	}
	for _, tc := range cases {
		if got := c.GroupTag(tc.bookmakers); got != tc.want {
			t.Errorf("%s: GroupTag = %q, want %q", tc.name, got, tc.want)
		}
	}
}
