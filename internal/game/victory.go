package game

import (
	"fmt"

	"github.com/peterkuimelis/shadowgov/internal/card"
)

// Victory is the outcome of a victory check. Winner is nil while the game
// continues.
type Victory struct {
	Winner *Side  `json:"winner,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Won reports whether someone has won.
func (v Victory) Won() bool { return v.Winner != nil }

// CheckVictory evaluates the win conditions in priority order: state
// control, then the truth meter, then IP. Within a tier P1 is checked
// before P2.
func (e *Engine) CheckVictory(gs *GameState) Victory {
	vr := e.rules.Victory
	win := func(s Side, format string, args ...any) Victory {
		return Victory{Winner: &s, Reason: fmt.Sprintf(format, args...)}
	}
	sides := [2]Side{SidePlayer, SideAI}

	for _, s := range sides {
		if n := len(gs.Players[s].States); n >= vr.States {
			return win(s, "controls %d states", n)
		}
	}
	for _, s := range sides {
		f := gs.Players[s].Faction
		if f == card.FactionTruth && gs.Truth >= vr.TruthHigh {
			return win(s, "truth reached %d%%", gs.Truth)
		}
		if f == card.FactionGovernment && gs.Truth <= vr.TruthLow {
			return win(s, "truth suppressed to %d%%", gs.Truth)
		}
	}
	for _, s := range sides {
		if ip := gs.Players[s].IP; ip >= vr.IP {
			return win(s, "amassed %d IP", ip)
		}
	}
	return Victory{}
}
