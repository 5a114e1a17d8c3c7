package effect

import (
	"fmt"
	"math"
	"strconv"

	"github.com/peterkuimelis/shadowgov/internal/card"
)

// Result accumulates everything a card does. It is a plan: applying it to
// a game is the engine's job.
type Result struct {
	CardName string

	// TruthDelta is the card's total truth change in whole points. Authored
	// deltas may be fractional; their sum is rounded half away from zero.
	TruthDelta int
	// IPDelta.Self is gained by the acting player; IPDelta.Opponent is
	// lost by the opponent.
	IPDelta         card.IPDelta
	Draw            int
	DiscardSelf     int
	DiscardOpponent int
	PressureDelta   int
	ZoneDefense     int
	CaptureBonus    int
	Damage          int
	Income          []card.IncomeBonus
	Block           bool
	Immune          bool

	// AppliedConditionals lists every conditional evaluated, as
	// "<description>: TRUE|FALSE".
	AppliedConditionals []string
	Logs                []string

	// RequiresTarget is set for ZONE cards.
	RequiresTarget bool

	truth float64
}

func (r *Result) logf(format string, args ...any) {
	r.Logs = append(r.Logs, fmt.Sprintf(format, args...))
}

// Interpreter walks effect trees. The only state it holds is the random
// source used for ranged damage.
type Interpreter struct {
	rng RNG
}

// NewInterpreter returns an interpreter drawing from rng. A nil rng gets a
// randomly seeded generator.
func NewInterpreter(rng RNG) *Interpreter {
	if rng == nil {
		rng = NewRNG(0)
	}
	return &Interpreter{rng: rng}
}

// Interpret resolves e against s. Conditionals are evaluated against the
// snapshot as it was when the card was played, never against partial
// results of the same card.
func (in *Interpreter) Interpret(e card.Effects, s Snapshot, cardName string) *Result {
	r := &Result{CardName: cardName}
	r.logf("Processing %s...", cardName)
	if e == nil {
		return r
	}
	r.RequiresTarget = e.Type() == card.TypeZone
	in.walk(e, s, r)
	r.TruthDelta = int(math.Round(r.truth))
	return r
}

func (in *Interpreter) walk(e card.Effects, s Snapshot, r *Result) {
	switch v := e.(type) {
	case *card.AttackEffects:
		if v.TruthDelta != nil {
			in.truth(*v.TruthDelta, r)
		}
		if v.IPDelta != nil {
			in.ip(*v.IPDelta, r)
		}
		if v.DiscardOpponent > 0 {
			r.DiscardOpponent += v.DiscardOpponent
			r.logf("Opponent discards %d card(s)", v.DiscardOpponent)
		}
		if v.Reaction != nil {
			if v.Reaction.Block {
				r.Block = true
				r.logf("Next incoming ATTACK is blocked")
			}
			if v.Reaction.Immune {
				r.Immune = true
				r.logf("Immune to opponent drain until next turn")
			}
		}
	case *card.MediaEffects:
		if v.TruthDelta != nil {
			in.truth(*v.TruthDelta, r)
		}
	case *card.ZoneEffects:
		if v.PressureDelta > 0 {
			r.PressureDelta += v.PressureDelta
			r.logf("+%d Pressure to target", v.PressureDelta)
		}
	}

	in.extras(e.Extra(), r)

	for _, c := range e.Conditionals() {
		desc := Describe(&c.Condition)
		met := Evaluate(&c.Condition, s)
		if met {
			r.AppliedConditionals = append(r.AppliedConditionals, desc+": TRUE")
			if c.Then != nil {
				r.logf("Condition met: %s", desc)
				in.walk(c.Then, s, r)
			}
			continue
		}
		r.AppliedConditionals = append(r.AppliedConditionals, desc+": FALSE")
		if c.Else != nil {
			r.logf("Condition not met: %s", desc)
			in.walk(c.Else, s, r)
		}
	}
}

func (in *Interpreter) truth(delta float64, r *Result) {
	if delta == 0 {
		return
	}
	r.truth += delta
	r.logf("Truth %s%%", signed(delta))
}

func signed(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if f > 0 {
		s = "+" + s
	}
	return s
}

func (in *Interpreter) ip(d card.IPDelta, r *Result) {
	if d.Self != 0 {
		r.IPDelta.Self += d.Self
		r.logf("IP %+d", d.Self)
	}
	if d.Opponent != 0 {
		r.IPDelta.Opponent += d.Opponent
		if d.Opponent > 0 {
			r.logf("Opponent loses %d IP", d.Opponent)
		} else {
			r.logf("Opponent gains %d IP", -d.Opponent)
		}
	}
}

func (in *Interpreter) extras(x *card.Extras, r *Result) {
	if x.Draw > 0 {
		r.Draw += x.Draw
		r.logf("Draw %d card(s)", x.Draw)
	}
	if x.DiscardSelf > 0 {
		r.DiscardSelf += x.DiscardSelf
		r.logf("Discard %d card(s)", x.DiscardSelf)
	}
	if x.ZoneDefense > 0 {
		r.ZoneDefense += x.ZoneDefense
		r.logf("+%d Defense to controlled states", x.ZoneDefense)
	}
	if x.CaptureBonus > 0 {
		r.CaptureBonus += x.CaptureBonus
		r.logf("+%d IP when capturing states", x.CaptureBonus)
	}
	if x.Damage != nil {
		if dmg := in.rollDamage(x.Damage); dmg > 0 {
			r.Damage += dmg
			r.logf("Deal %d damage", dmg)
		}
	}
	if x.IncomeBonus != nil {
		r.Income = append(r.Income, *x.IncomeBonus)
		r.logf("+%d IP per turn for %d turns", x.IncomeBonus.IP, x.IncomeBonus.Duration)
	}
}

// rollDamage resolves fixed damage, or one uniform draw over [min, max].
// A missing min counts as zero; a missing max means exactly min.
func (in *Interpreter) rollDamage(d *card.Damage) int {
	if d.Fixed != nil {
		return *d.Fixed
	}
	lo := 0
	if d.Min != nil {
		lo = *d.Min
	}
	if d.Max == nil {
		return lo
	}
	hi := *d.Max
	if hi <= lo {
		return lo
	}
	return lo + in.rng.Intn(hi-lo+1)
}
