package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/effect"
	"github.com/peterkuimelis/shadowgov/internal/log"
)

// apply folds an interpreted effect into gs for the acting side and
// returns the resolve metadata recorded in TurnPlays.
func (e *Engine) apply(gs *GameState, side Side, c *card.Card, target string, r *effect.Result, res *PlayResult) map[string]string {
	me, opp := gs.Players[side], gs.Players[side.Other()]
	turn, actor := gs.Turn, int(side)
	meta := map[string]string{}
	emit := func(ev log.GameEvent) { res.Events = append(res.Events, ev) }

	for _, line := range r.Logs {
		emit(log.NewEffectEvent(turn, actor, c.Name, line))
	}
	if len(r.AppliedConditionals) > 0 {
		meta["conditionals"] = strings.Join(r.AppliedConditionals, "; ")
	}

	if c.Type == card.TypeAttack && opp.BlockAttack {
		opp.BlockAttack = false
		meta["blocked"] = "true"
		emit(log.NewReactionEvent(turn, int(side.Other()), c.Name,
			fmt.Sprintf("%s blocks %s", side.Other(), c.Name)))
		return meta
	}

	if r.TruthDelta != 0 {
		old := gs.Truth
		gs.Truth = clamp(old+r.TruthDelta, 0, 100)
		meta["truth"] = strconv.Itoa(gs.Truth - old)
		emit(log.NewTruthChangeEvent(turn, actor, old, gs.Truth, c.Name))
	}

	if r.IPDelta.Self != 0 {
		old := me.IP
		me.IP = max(0, me.IP+r.IPDelta.Self)
		emit(log.NewIPChangeEvent(turn, log.PhaseMain, actor, old, me.IP, c.Name))
	}

	if drain := r.IPDelta.Opponent + r.Damage; drain != 0 {
		if drain > 0 && opp.Immune {
			meta["immune"] = "true"
			emit(log.NewReactionEvent(turn, int(side.Other()), c.Name,
				fmt.Sprintf("%s is immune to %s", side.Other(), c.Name)))
		} else {
			old := opp.IP
			opp.IP = max(0, opp.IP-drain)
			meta["damage"] = strconv.Itoa(old - opp.IP)
			emit(log.NewIPChangeEvent(turn, log.PhaseMain, int(side.Other()), old, opp.IP, c.Name))
		}
	}

	if r.DiscardOpponent > 0 && !opp.Immune {
		n := e.randomDiscard(gs, side.Other(), r.DiscardOpponent, c.Name, res)
		meta["discard"] = strconv.Itoa(n)
	}

	if r.Draw > 0 {
		for _, d := range me.draw(r.Draw) {
			emit(log.NewDrawEvent(turn, log.PhaseMain, actor, d.Name))
		}
	}
	if r.DiscardSelf > 0 {
		e.randomDiscard(gs, side, r.DiscardSelf, c.Name, res)
	}

	me.ZoneDefenseBonus += r.ZoneDefense
	for _, ib := range r.Income {
		me.Income = append(me.Income, IncomeEffect{IP: ib.IP, TurnsLeft: ib.Duration, Source: c.Name})
	}
	me.BlockAttack = me.BlockAttack || r.Block
	me.Immune = me.Immune || r.Immune

	if r.PressureDelta > 0 && target != "" {
		e.pressure(gs, side, c, target, r, res, meta)
	}
	return meta
}

// pressure adds pressure to target and hands the state over on capture.
func (e *Engine) pressure(gs *GameState, side Side, c *card.Card, target string, r *effect.Result, res *PlayResult, meta map[string]string) {
	turn, actor := gs.Turn, int(side)
	bonus := 0
	if owner, ok := gs.Board.States[target].Owner.Side(); ok {
		bonus = gs.Players[owner].ZoneDefenseBonus
	}
	cr, err := gs.Board.ApplyPressure(target, side, r.PressureDelta, bonus)
	if err != nil {
		e.logger.Warn().Err(err).Str("game", gs.ID).Msg("pressure not applied")
		res.Events = append(res.Events, log.NewWarningEvent(turn, log.PhaseMain, actor, err.Error()))
		return
	}
	res.Capture = &cr
	meta["target"] = target
	meta["pressure"] = strconv.Itoa(r.PressureDelta)
	res.Events = append(res.Events, log.NewPressureEvent(turn, actor, c.Name, target, cr.Pressure, cr.Defense))
	if !cr.Captured {
		return
	}

	meta["captured"] = "true"
	me := gs.Players[side]
	me.addState(target)
	if from, ok := cr.From.Side(); ok {
		gs.Players[from].removeState(target)
	}
	res.Events = append(res.Events, log.NewCaptureEvent(turn, actor, c.Name, target, cr.From.String()))
	if r.CaptureBonus > 0 {
		old := me.IP
		me.IP += r.CaptureBonus
		res.Events = append(res.Events, log.NewIPChangeEvent(turn, log.PhaseMain, actor, old, me.IP, "capture bonus"))
	}
}

// randomDiscard discards up to n random cards from side's hand and
// returns how many were discarded.
func (e *Engine) randomDiscard(gs *GameState, side Side, n int, source string, res *PlayResult) int {
	p := gs.Players[side]
	count := 0
	for ; count < n && len(p.Hand) > 0; count++ {
		c := p.removeFromHand(e.rng.Intn(len(p.Hand)))
		p.Discard = append(p.Discard, c)
		res.Events = append(res.Events, log.NewDiscardEvent(gs.Turn, log.PhaseMain, int(side), c.Name, source))
	}
	return count
}
