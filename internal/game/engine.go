package game

import (
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/peterkuimelis/shadowgov/internal/capture"
	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/effect"
	"github.com/peterkuimelis/shadowgov/internal/log"
)

// Engine applies the rules to game states. It holds no game state of its
// own: every transition takes a state and returns a new one, leaving the
// input untouched. The only mutable thing it owns is the random source.
type Engine struct {
	rules  Rules
	rng    effect.RNG
	interp *effect.Interpreter
	logger zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRNG sets the random source for shuffles, random discards and
// damage rolls.
func WithRNG(rng effect.RNG) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithSeed seeds a fresh random source. Zero picks a random seed.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rng = effect.NewRNG(seed) }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine for rules.
func NewEngine(rules Rules, opts ...Option) *Engine {
	e := &Engine{rules: rules, logger: zerolog.Nop()}
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		e.rng = effect.NewRNG(0)
	}
	e.interp = effect.NewInterpreter(e.rng)
	return e
}

// Rules returns the rules the engine enforces.
func (e *Engine) Rules() Rules { return e.rules }

// --- Setup ---

// Setup describes a new game.
type Setup struct {
	ID             string // generated when empty
	Factions       [2]card.Faction
	Decks          [2][]*card.Card
	Board          *capture.Board // a neutral USA board when nil
	StartingPlayer Side
	NoShuffle      bool // keep deck order (for deterministic tests)
}

// NewGame shuffles both decks and deals opening hands. The first turn has
// not started yet; call StartTurn.
func (e *Engine) NewGame(s Setup) (*GameState, []log.GameEvent, error) {
	if !s.StartingPlayer.Valid() {
		return nil, nil, fmt.Errorf("invalid starting player %d", s.StartingPlayer)
	}
	board := s.Board
	if board == nil {
		board = capture.NewUSABoard()
	} else {
		board = board.Clone()
	}
	id := s.ID
	if id == "" {
		id = ulid.Make().String()
	}

	gs := &GameState{
		ID:             id,
		Truth:          e.rules.StartingTruth,
		CurrentPlayer:  s.StartingPlayer,
		StartingPlayer: s.StartingPlayer,
		Turn:           1,
		Round:          1,
		Board:          board,
	}
	var events []log.GameEvent
	for i := range gs.Players {
		deck := append([]*card.Card(nil), s.Decks[i]...)
		if len(deck) < e.rules.HandSize {
			return nil, nil, fmt.Errorf("player %d has insufficient cards for initial hand (%d < %d)", i, len(deck), e.rules.HandSize)
		}
		if !s.NoShuffle {
			effect.Shuffle(e.rng, len(deck), func(a, b int) { deck[a], deck[b] = deck[b], deck[a] })
			events = append(events, log.NewShuffleEvent(0, log.PhaseTurnStart, i))
		}
		p := &PlayerState{
			Faction:          s.Factions[i],
			Deck:             deck,
			Discard:          []*card.Card{},
			IP:               e.rules.StartingIP,
			States:           board.OwnedBy(capture.OwnerOf(Side(i))),
			FreeDiscardsLeft: e.rules.FreeDiscardsPerTurn,
		}
		if p.States == nil {
			p.States = []string{}
		}
		p.draw(e.rules.HandSize)
		gs.Players[i] = p
	}
	e.logger.Debug().Str("game", id).Stringer("first", s.StartingPlayer).Msg("new game")
	return gs, events, nil
}

// --- Turn start ---

// TurnStart reports what happened at the start of a turn.
type TurnStart struct {
	Income  Income
	Drawn   []string
	Victory Victory
	Events  []log.GameEvent
}

// StartTurn collects income for the current player, expires their
// reactions, refills their hand and resets the per-turn counters.
func (e *Engine) StartTurn(gs *GameState) (*GameState, TurnStart, error) {
	if gs.Over {
		return gs, TurnStart{}, ErrGameOver
	}
	if gs.TurnStarted {
		return gs, TurnStart{}, errors.New("turn already started")
	}
	ns := gs.Clone()
	side := ns.CurrentPlayer
	p, opp := ns.Current(), ns.Opponent()
	var ts TurnStart
	ts.Events = append(ts.Events, log.NewTurnEvent(ns.Turn, ns.Round, int(side)))

	p.BlockAttack = false
	p.Immune = false

	ts.Income = e.rules.ComputeIncome(p, opp)
	old := p.IP
	p.IP += ts.Income.Net
	ts.Events = append(ts.Events, log.NewIncomeEvent(ns.Turn, int(side), ts.Income.Net, p.IP, ts.Income.String()))
	e.logger.Debug().Int("turn", ns.Turn).Stringer("side", side).Int("from", old).Int("to", p.IP).Str("breakdown", ts.Income.String()).Msg("income")

	var keep []IncomeEffect
	for _, ie := range p.Income {
		ie.TurnsLeft--
		if ie.TurnsLeft > 0 {
			keep = append(keep, ie)
		}
	}
	p.Income = keep

	if need := e.rules.HandSize - len(p.Hand); need > 0 {
		drawn := p.draw(need)
		for _, c := range drawn {
			ts.Drawn = append(ts.Drawn, c.ID)
			ts.Events = append(ts.Events, log.NewDrawEvent(ns.Turn, log.PhaseTurnStart, int(side), c.Name))
		}
		if len(drawn) < need {
			ts.Events = append(ts.Events, log.NewWarningEvent(ns.Turn, log.PhaseTurnStart, int(side),
				fmt.Sprintf("deck exhausted, drew %d of %d", len(drawn), need)))
		}
	}

	ns.PlaysThisTurn = 0
	p.FreeDiscardsLeft = e.rules.FreeDiscardsPerTurn
	ns.TurnPlays = nil
	ns.TurnStarted = true

	ts.Victory = e.finish(ns, log.PhaseTurnStart, &ts.Events)
	return ns, ts, nil
}

// --- Playing cards ---

// CanPlay reports why side may not play the card with the given id on
// target, or ReasonNone. The checks run in a fixed order and the first
// failure wins.
func (e *Engine) CanPlay(gs *GameState, side Side, cardID, target string) (Reason, string) {
	if gs.Over {
		return ReasonGameOver, "the game is over"
	}
	if side != gs.CurrentPlayer {
		return ReasonNotYourTurn, fmt.Sprintf("it is %s's turn", gs.CurrentPlayer)
	}
	if gs.PlaysThisTurn >= e.rules.MaxPlaysPerTurn {
		return ReasonPlayLimit, fmt.Sprintf("already played %d cards this turn", gs.PlaysThisTurn)
	}
	p := gs.Players[side]
	i := p.HandIndex(cardID)
	if i < 0 {
		return ReasonCardNotInHand, fmt.Sprintf("card %s is not in hand", cardID)
	}
	c := p.Hand[i]
	if p.IP < c.Cost {
		return ReasonInsufficientIP, fmt.Sprintf("%s costs %d IP, have %d", c.Name, c.Cost, p.IP)
	}
	if c.RequiresTarget() {
		if target == "" {
			return ReasonMissingTarget, fmt.Sprintf("%s needs a target state", c.Name)
		}
		st, _ := gs.Board.Resolve(target)
		if st == nil {
			return ReasonInvalidTarget, fmt.Sprintf("unknown state %q", target)
		}
		if owner, ok := st.Owner.Side(); ok && owner == side {
			return ReasonInvalidTarget, fmt.Sprintf("%s is already under your control", st.ID)
		}
	}
	return ReasonNone, ""
}

// PlayResult reports the outcome of PlayCard.
type PlayResult struct {
	Success bool
	Reason  Reason
	Message string
	Card    *card.Card
	Target  string // canonical state id
	Effect  *effect.Result
	Capture *capture.Result
	Victory Victory
	Events  []log.GameEvent
}

// PlayCard pays for and resolves a card. A refused play returns gs itself
// and a result carrying the reason.
func (e *Engine) PlayCard(gs *GameState, side Side, cardID, target string) (*GameState, PlayResult) {
	if reason, msg := e.CanPlay(gs, side, cardID, target); reason != ReasonNone {
		name := cardID
		if side.Valid() {
			if i := gs.Players[side].HandIndex(cardID); i >= 0 {
				name = gs.Players[side].Hand[i].Name
			}
		}
		return gs, PlayResult{
			Reason:  reason,
			Message: msg,
			Events:  []log.GameEvent{log.NewPlayRefusedEvent(gs.Turn, int(side), name, string(reason), msg)},
		}
	}

	ns := gs.Clone()
	p := ns.Players[side]
	c := p.removeFromHand(p.HandIndex(cardID))
	var res PlayResult
	res.Card = c

	var state *capture.State
	if c.RequiresTarget() {
		var exact bool
		state, exact = ns.Board.Resolve(target)
		res.Target = state.ID
		if !exact {
			res.Events = append(res.Events, log.NewWarningEvent(ns.Turn, log.PhaseMain, int(side),
				fmt.Sprintf("target %q resolved to %s", target, state.ID)))
		}
	}

	p.IP -= c.Cost
	p.Discard = append(p.Discard, c)
	ns.PlaysThisTurn++
	ns.TurnPlays = append(ns.TurnPlays, e.turnPlay(ns, side, c, "play", res.Target, nil))
	res.Events = append(res.Events, log.NewPlayEvent(ns.Turn, int(side), c.Name, c.Cost, res.Target))

	snap := effect.Snapshot{
		Truth:      ns.Truth,
		IP:         p.IP,
		OpponentIP: ns.Players[side.Other()].IP,
		Zones:      len(p.States),
		HandSize:   len(p.Hand),
		Round:      ns.Round,
	}
	if state != nil {
		snap.Target = state.ID
		snap.TargetAliases = state.Aliases()
	}
	res.Effect = e.interp.Interpret(c.Effects, snap, c.Name)

	meta := e.apply(ns, side, c, res.Target, res.Effect, &res)
	ns.TurnPlays = append(ns.TurnPlays, e.turnPlay(ns, side, c, "resolve", res.Target, meta))

	res.Success = true
	res.Message = fmt.Sprintf("%s played %s", side, c.Name)
	res.Victory = e.finish(ns, log.PhaseMain, &res.Events)
	e.logger.Debug().Str("game", ns.ID).Stringer("side", side).Str("card", c.ID).Str("target", res.Target).Msg("card played")
	return ns, res
}

func (e *Engine) turnPlay(gs *GameState, side Side, c *card.Card, stage, target string, meta map[string]string) TurnPlay {
	if len(meta) == 0 {
		meta = nil // omitted from JSON, so keep clones and round trips equal
	}
	return TurnPlay{
		Sequence: len(gs.TurnPlays) + 1,
		Stage:    stage,
		Owner:    side,
		CardID:   c.ID,
		CardName: c.Name,
		CardType: c.Type,
		Rarity:   c.Rarity,
		Cost:     c.Cost,
		Target:   target,
		Metadata: meta,
	}
}

// --- Discards ---

// DiscardResult reports the outcome of DiscardCards.
type DiscardResult struct {
	Success  bool
	Reason   Reason
	Message  string
	CostPaid int
	Victory  Victory
	Events   []log.GameEvent
}

// DiscardCards discards the given cards from the current player's hand.
// The first FreeDiscardsPerTurn discards of a turn are free and each
// further card costs ExtraDiscardCost IP; IP never drops below zero.
func (e *Engine) DiscardCards(gs *GameState, side Side, cardIDs []string) (*GameState, DiscardResult) {
	refuse := func(r Reason, msg string) (*GameState, DiscardResult) {
		return gs, DiscardResult{Reason: r, Message: msg}
	}
	switch {
	case gs.Over:
		return refuse(ReasonGameOver, "the game is over")
	case side != gs.CurrentPlayer:
		return refuse(ReasonNotYourTurn, fmt.Sprintf("it is %s's turn", gs.CurrentPlayer))
	case len(cardIDs) == 0:
		return refuse(ReasonNoCards, "no cards selected")
	}

	ns := gs.Clone()
	p := ns.Players[side]
	var discarded []*card.Card
	for _, id := range cardIDs {
		i := p.HandIndex(id)
		if i < 0 {
			return refuse(ReasonCardNotInHand, fmt.Sprintf("card %s is not in hand", id))
		}
		discarded = append(discarded, p.removeFromHand(i))
	}

	free := min(len(discarded), p.FreeDiscardsLeft)
	p.FreeDiscardsLeft -= free
	cost := (len(discarded) - free) * e.rules.ExtraDiscardCost
	paid := min(cost, p.IP)

	var res DiscardResult
	for _, c := range discarded {
		p.Discard = append(p.Discard, c)
		res.Events = append(res.Events, log.NewDiscardEvent(ns.Turn, log.PhaseMain, int(side), c.Name, "voluntary"))
	}
	if paid > 0 {
		old := p.IP
		p.IP -= paid
		res.Events = append(res.Events, log.NewIPChangeEvent(ns.Turn, log.PhaseMain, int(side), old, p.IP, "extra discards"))
	}

	res.Success = true
	res.CostPaid = paid
	res.Message = fmt.Sprintf("Discarded %d card(s) (paid %d IP)", len(discarded), paid)
	res.Victory = e.finish(ns, log.PhaseMain, &res.Events)
	return ns, res
}

// --- Turn end ---

// EndTurn passes play to the other side. The round advances whenever play
// returns to the starting player.
func (e *Engine) EndTurn(gs *GameState) (*GameState, error) {
	if gs.Over {
		return gs, ErrGameOver
	}
	ns := gs.Clone()
	ns.CurrentPlayer = ns.CurrentPlayer.Other()
	ns.Turn++
	if ns.CurrentPlayer == ns.StartingPlayer {
		ns.Round++
	}
	ns.PlaysThisTurn = 0
	ns.TurnStarted = false
	return ns, nil
}

// finish runs the victory check and, on a win, closes the game.
func (e *Engine) finish(gs *GameState, phase string, events *[]log.GameEvent) Victory {
	v := e.CheckVictory(gs)
	if !v.Won() {
		return v
	}
	gs.Over = true
	w := *v.Winner
	gs.Winner = &w
	gs.Result = v.Reason
	*events = append(*events, log.NewWinEvent(gs.Turn, phase, int(w), v.Reason))
	e.logger.Info().Str("game", gs.ID).Stringer("winner", w).Str("reason", v.Reason).Msg("game over")
	return v
}

// --- Legal actions ---

// LegalActions lists what the current player may do: one play action per
// playable card in hand (ZONE plays carry their candidate targets), a
// discard action while the hand is non-empty, and ending the turn.
func (e *Engine) LegalActions(gs *GameState) []Action {
	if gs.Over {
		return nil
	}
	side := gs.CurrentPlayer
	p := gs.Players[side]
	var actions []Action
	seen := make(map[string]bool)
	for _, c := range p.Hand {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		a := Action{Type: ActionPlayCard, Player: side, Card: c}
		if c.RequiresTarget() {
			a.Targets = e.targets(gs, side)
			if len(a.Targets) == 0 {
				continue
			}
			if r, _ := e.CanPlay(gs, side, c.ID, a.Targets[0]); r != ReasonNone {
				continue
			}
		} else if r, _ := e.CanPlay(gs, side, c.ID, ""); r != ReasonNone {
			continue
		}
		actions = append(actions, a)
	}
	if len(p.Hand) > 0 {
		actions = append(actions, Action{Type: ActionDiscard, Player: side})
	}
	actions = append(actions, Action{Type: ActionEndTurn, Player: side})
	return actions
}

// targets lists the states side does not control, sorted by id.
func (e *Engine) targets(gs *GameState, side Side) []string {
	var out []string
	for _, id := range gs.Board.IDs() {
		if owner, ok := gs.Board.States[id].Owner.Side(); ok && owner == side {
			continue
		}
		out = append(out, id)
	}
	return out
}
