// Package effect evaluates card conditions and interprets effect payloads
// into results the game engine applies.
package effect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/peterkuimelis/shadowgov/internal/card"
)

// Snapshot is the read-only view of game state a card resolves against,
// taken from the acting player's perspective.
type Snapshot struct {
	Truth      int
	IP         int
	OpponentIP int
	Zones      int // states controlled by the acting player
	HandSize   int
	Round      int

	// Target is the resolved target state id. TargetAliases holds other
	// names the same state answers to (abbreviation, FIPS code, name).
	Target        string
	TargetAliases []string
}

func (s Snapshot) targetIs(ref string) bool {
	if s.Target != "" && strings.EqualFold(s.Target, ref) {
		return true
	}
	for _, a := range s.TargetAliases {
		if strings.EqualFold(a, ref) {
			return true
		}
	}
	return false
}

// Evaluate reports whether every predicate present in c holds for s.
// A condition without predicates always holds.
func Evaluate(c *card.Condition, s Snapshot) bool {
	if c == nil {
		return true
	}
	atLeast := func(bound *int, v int) bool { return bound == nil || v >= *bound }
	atMost := func(bound *int, v int) bool { return bound == nil || v <= *bound }
	truth := float64(s.Truth)

	switch {
	case c.TruthAtLeast != nil && truth < *c.TruthAtLeast, c.TruthAtMost != nil && truth > *c.TruthAtMost:
		return false
	case !atLeast(c.ZonesAtLeast, s.Zones), !atMost(c.ZonesAtMost, s.Zones):
		return false
	case !atLeast(c.IPAtLeast, s.IP), !atMost(c.IPAtMost, s.IP):
		return false
	case !atLeast(c.OpponentIPAtLeast, s.OpponentIP), !atMost(c.OpponentIPAtMost, s.OpponentIP):
		return false
	case !atLeast(c.HandSizeAtLeast, s.HandSize), !atMost(c.HandSizeAtMost, s.HandSize):
		return false
	case !atLeast(c.RoundAtLeast, s.Round):
		return false
	}
	if c.TargetStateIs != "" && !s.targetIs(c.TargetStateIs) {
		return false
	}
	return true
}

// Describe renders a condition for logs, e.g. "Truth ≥ 60% AND IP ≥ 10".
func Describe(c *card.Condition) string {
	if c == nil || c.IsEmpty() {
		return "Always"
	}
	var parts []string
	add := func(bound *int, format string) {
		if bound != nil {
			parts = append(parts, fmt.Sprintf(format, *bound))
		}
	}
	addTruth := func(bound *float64, format string) {
		if bound != nil {
			parts = append(parts, fmt.Sprintf(format, strconv.FormatFloat(*bound, 'f', -1, 64)))
		}
	}
	addTruth(c.TruthAtLeast, "Truth ≥ %s%%")
	addTruth(c.TruthAtMost, "Truth ≤ %s%%")
	add(c.ZonesAtLeast, "Zones ≥ %d")
	add(c.ZonesAtMost, "Zones ≤ %d")
	add(c.IPAtLeast, "IP ≥ %d")
	add(c.IPAtMost, "IP ≤ %d")
	add(c.OpponentIPAtLeast, "Opponent IP ≥ %d")
	add(c.OpponentIPAtMost, "Opponent IP ≤ %d")
	add(c.HandSizeAtLeast, "Hand ≥ %d")
	add(c.HandSizeAtMost, "Hand ≤ %d")
	add(c.RoundAtLeast, "Round ≥ %d")
	if c.TargetStateIs != "" {
		parts = append(parts, "Target is "+strings.ToUpper(c.TargetStateIs))
	}
	return strings.Join(parts, " AND ")
}
