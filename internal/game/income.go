package game

import (
	"fmt"
	"strings"
)

// Income is the breakdown of one turn's IP income.
type Income struct {
	Base        int `json:"base"`
	States      int `json:"states"`
	Maintenance int `json:"maintenance"`
	SwingTax    int `json:"swingTax"`
	CatchUp     int `json:"catchUp"`
	Ongoing     int `json:"ongoing"`
	Net         int `json:"net"`
}

// String renders the breakdown the way income events show it, e.g.
// "base 5; states 2; maintenance -1".
func (in Income) String() string {
	parts := []string{fmt.Sprintf("base %d", in.Base)}
	if in.States != 0 {
		parts = append(parts, fmt.Sprintf("states %d", in.States))
	}
	if in.Maintenance != 0 {
		parts = append(parts, fmt.Sprintf("maintenance -%d", in.Maintenance))
	}
	if in.SwingTax != 0 {
		parts = append(parts, fmt.Sprintf("swing tax -%d", in.SwingTax))
	}
	if in.CatchUp != 0 {
		parts = append(parts, fmt.Sprintf("catch-up +%d", in.CatchUp))
	}
	if in.Ongoing != 0 {
		parts = append(parts, fmt.Sprintf("ongoing +%d", in.Ongoing))
	}
	return strings.Join(parts, "; ")
}

// ComputeIncome returns the income me collects at the start of a turn.
// The turn income is base + states - maintenance - swing tax + catch-up,
// floored at zero, plus ongoing income effects.
func (r Rules) ComputeIncome(me, opp *PlayerState) Income {
	in := Income{
		Base:   r.BaseIP,
		States: r.IPPerState * len(me.States),
	}
	if r.Maintenance.Enabled && r.Maintenance.Divisor > 0 {
		in.Maintenance = max(0, me.IP-r.Maintenance.Threshold) / r.Maintenance.Divisor
	}
	if r.CatchUp.Enabled {
		in.SwingTax, in.CatchUp = r.catchUp(me, opp)
	}
	for _, e := range me.Income {
		if e.TurnsLeft > 0 {
			in.Ongoing += e.IP
		}
	}
	in.Net = max(0, in.Base+in.States-in.Maintenance-in.SwingTax+in.CatchUp) + in.Ongoing
	return in
}

// catchUp turns the IP and state gaps into a tax on the leader or a bonus
// for the trailer. Each is capped at MaxModifier.
func (r Rules) catchUp(me, opp *PlayerState) (tax, bonus int) {
	c := r.CatchUp
	gapScore := func(gap int) int {
		score := 0
		if gap > c.IPGrace && c.IPStep > 0 {
			score += (gap - c.IPGrace) / c.IPStep
		}
		return score
	}

	ipGap := me.IP - opp.IP
	stateGap := len(me.States) - len(opp.States)

	var lead, behind int
	if ipGap > 0 {
		lead += gapScore(ipGap)
	} else {
		behind += gapScore(-ipGap)
	}
	if stateGap > c.StateGrace {
		lead += stateGap - c.StateGrace
	} else if -stateGap > c.StateGrace {
		behind += -stateGap - c.StateGrace
	}
	return min(lead, c.MaxModifier), min(behind, c.MaxModifier)
}
