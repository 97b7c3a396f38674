package bookies

import "strings"

// Tier is a bookmaker's configured pricing tier. Sharps set prices,
// softs follow them; anything not configured is unclassified.
type Tier int

const (
	TierUnclassified Tier = iota
	TierSoft
	TierSharp
)

func (t Tier) String() string {
	switch t {
	case TierSharp:
		return "sharp"
	case TierSoft:
		return "soft"
	default:
		return "unclassified"
	}
}

// ConfidenceTag labels an opportunity by the tiers of its legs.
type ConfidenceTag string

const (
	TagHighConfidence ConfidenceTag = "high_confidence"
	TagFastMove       ConfidenceTag = "fast_move"
	TagSharpArb       ConfidenceTag = "sharp_arb"
	TagMixed          ConfidenceTag = "mixed"
)

// Normalize strips the region suffix from an API bookmaker key and
// lowercases it, e.g. "Unibet_us" -> "unibet".
func Normalize(bookmaker string) string {
	clean := bookmaker
	if idx := strings.IndexByte(clean, '_'); idx > 0 {
		clean = clean[:idx]
	}
	return strings.ToLower(clean)
}

// Classifier maps bookmaker identifiers to tiers from a configured list.
// Classification is a static label, never learned or cached.
type Classifier struct {
	sharps map[string]struct{}
	softs  map[string]struct{}
}

func NewClassifier(sharp, soft []string) *Classifier {
	c := &Classifier{
		sharps: make(map[string]struct{}, len(sharp)),
		softs:  make(map[string]struct{}, len(soft)),
	}
	for _, b := range sharp {
		c.sharps[Normalize(b)] = struct{}{}
	}
	for _, b := range soft {
		c.softs[Normalize(b)] = struct{}{}
	}
	return c
}

// Classify is total: unknown identifiers map to TierUnclassified.
func (c *Classifier) Classify(bookmaker string) Tier {
	key := Normalize(bookmaker)
	if _, ok := c.sharps[key]; ok {
		return TierSharp
	}
	if _, ok := c.softs[key]; ok {
		return TierSoft
	}
	return TierUnclassified
}

// PairTag maps two leg tiers to a confidence tag. Symmetric in its
// arguments; any unclassified participant yields TagMixed.
func PairTag(a, b Tier) ConfidenceTag {
	if a == TierUnclassified || b == TierUnclassified {
		return TagMixed
	}
	switch {
	case a == TierSharp && b == TierSharp:
		return TagSharpArb
	case a == TierSoft && b == TierSoft:
		return TagFastMove
	default:
		return TagHighConfidence
	}
}

// GroupTag tags a multi-leg opportunity from the most-sharp and most-soft
// legs present, so a three-way sharp/sharp/soft combination still reads
// as sharp-vs-soft.
func (c *Classifier) GroupTag(bookmakers []string) ConfidenceTag {
	if len(bookmakers) == 0 {
		return TagMixed
	}
	lo, hi := TierSharp, TierUnclassified
	for _, b := range bookmakers {
		tier := c.Classify(b)
		if tier == TierUnclassified {
			return TagMixed
		}
		if tier < lo {
			lo = tier
		}
		if tier > hi {
			hi = tier
		}
	}
	return PairTag(lo, hi)
}
