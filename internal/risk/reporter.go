package risk

import (
	"github.com/hetulpatel/sportsarb/internal/bookies"
)

// Verdict is the settlement-risk label attached to an opportunity.
type Verdict string

const (
	VerdictSafe         Verdict = "safe"
	VerdictUnknownRules Verdict = "unknown_rules"
	VerdictHighRisk     Verdict = "high_risk_bookmaker"
	VerdictRuleMismatch Verdict = "rule_mismatch"
)

// RuleUnknown is returned when no settlement rule is configured for a
// bookmaker in a market family. Unknown is never upgraded to safe.
const RuleUnknown = "unknown"

// Reporter cross-checks settlement-rule metadata between the bookmakers
// of a candidate opportunity. Rules are static configuration keyed by
// market family (e.g. "basketball" -> "includes_overtime").
type Reporter struct {
	rules    map[string]map[string]string
	highRisk map[string]struct{}
}

func NewReporter(rules map[string]map[string]string, highRisk []string) *Reporter {
	normalized := make(map[string]map[string]string, len(rules))
	for family, table := range rules {
		byBookie := make(map[string]string, len(table))
		for bookmaker, rule := range table {
			byBookie[bookies.Normalize(bookmaker)] = rule
		}
		normalized[family] = byBookie
	}
	risky := make(map[string]struct{}, len(highRisk))
	for _, b := range highRisk {
		risky[bookies.Normalize(b)] = struct{}{}
	}
	return &Reporter{rules: normalized, highRisk: risky}
}

// Rule looks up the configured settlement rule for a bookmaker in a
// market family, returning RuleUnknown when nothing is configured.
func (r *Reporter) Rule(family, bookmaker string) string {
	table, ok := r.rules[family]
	if !ok {
		return RuleUnknown
	}
	rule, ok := table[bookies.Normalize(bookmaker)]
	if !ok || rule == "" {
		return RuleUnknown
	}
	return rule
}

// Check computes the combined verdict for the legs of an opportunity.
// Precedence: rule_mismatch > high_risk_bookmaker > unknown_rules > safe.
func (r *Reporter) Check(family string, bookmakers []string) Verdict {
	seen := make(map[string]struct{}, len(bookmakers))
	unknown := false
	risky := false
	for _, b := range bookmakers {
		rule := r.Rule(family, b)
		if rule == RuleUnknown {
			unknown = true
		} else {
			seen[rule] = struct{}{}
		}
		if _, ok := r.highRisk[bookies.Normalize(b)]; ok {
			risky = true
		}
	}
	if len(seen) > 1 {
		return VerdictRuleMismatch
	}
	if risky {
		return VerdictHighRisk
	}
	if unknown {
		return VerdictUnknownRules
	}
	return VerdictSafe
}
