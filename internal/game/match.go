package game

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/peterkuimelis/shadowgov/internal/capture"
	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/log"
)

// PlayerController is the interface that human (TCP/WebSocket), AI (MCP)
// and scripted players implement.
type PlayerController interface {
	// ChooseAction presents available actions and waits for the player to pick one.
	ChooseAction(ctx context.Context, state *GameState, actions []Action) (Action, error)

	// ChooseCards asks the player to select cards from a list (e.g., cards to discard).
	ChooseCards(ctx context.Context, state *GameState, prompt string, candidates []*card.Card, min, max int) ([]*card.Card, error)

	// ChooseTarget asks the player which state a ZONE card should pressure.
	ChooseTarget(ctx context.Context, state *GameState, c *card.Card, candidates []string) (string, error)

	// Notify sends a game event notification (no response needed).
	Notify(ctx context.Context, event log.GameEvent) error
}

// MatchConfig holds configuration for creating a new match.
type MatchConfig struct {
	ID        string
	Deck0     []*card.Card // Player 0's deck
	Deck1     []*card.Card // Player 1's deck
	Faction0  card.Faction
	Faction1  card.Faction
	Rules     Rules
	Board     *capture.Board
	Logger    log.EventLogger
	Diag      zerolog.Logger
	Seed      int64 // RNG seed (0 for random)
	NoShuffle bool  // skip deck shuffle (for deterministic tests)
	MaxTurns  int   // stop after this many turns (0 = 200)
}

// maxRefusals ends a turn after this many consecutive refused actions so a
// confused controller cannot stall the match.
const maxRefusals = 3

// Match drives a game between two controllers.
type Match struct {
	State       *GameState
	Engine      *Engine
	Controllers [2]PlayerController
	Logger      log.EventLogger
	ctx         context.Context
	maxTurns    int
}

// NewMatch deals a new game from the given config.
func NewMatch(cfg MatchConfig, p0, p1 PlayerController) (*Match, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewMemoryLogger()
	}
	eng := NewEngine(cfg.Rules, WithSeed(cfg.Seed), WithLogger(cfg.Diag))
	gs, events, err := eng.NewGame(Setup{
		ID:        cfg.ID,
		Factions:  [2]card.Faction{cfg.Faction0, cfg.Faction1},
		Decks:     [2][]*card.Card{cfg.Deck0, cfg.Deck1},
		Board:     cfg.Board,
		NoShuffle: cfg.NoShuffle,
	})
	if err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns == 0 {
		maxTurns = 200 // safety limit
	}
	m := &Match{
		State:       gs,
		Engine:      eng,
		Controllers: [2]PlayerController{p0, p1},
		Logger:      logger,
		ctx:         context.Background(),
		maxTurns:    maxTurns,
	}
	for _, ev := range events {
		m.log(ev)
	}
	return m, nil
}

// Run executes the match loop. Returns the winner (0, 1, or -1 for draw).
func (m *Match) Run(ctx context.Context) (int, error) {
	m.ctx = ctx
	for !m.State.Over {
		if m.State.Turn > m.maxTurns {
			m.State.Over = true
			m.State.Result = fmt.Sprintf("Turn limit reached (%d turns)", m.maxTurns)
			m.log(log.NewTieEvent(m.State.Turn, m.State.Result))
			break
		}
		if err := m.runTurn(); err != nil {
			return m.winner(), err
		}
		if err := m.ctx.Err(); err != nil {
			return -1, err
		}
	}
	return m.winner(), nil
}

func (m *Match) winner() int {
	if m.State.Winner == nil {
		return -1
	}
	return int(*m.State.Winner)
}

// runTurn executes a single turn for the current player.
func (m *Match) runTurn() error {
	gs, ts, err := m.Engine.StartTurn(m.State)
	if err != nil {
		return err
	}
	m.commit(gs, ts.Events)
	if m.State.Over {
		return nil
	}

	side := m.State.CurrentPlayer
	ctrl := m.Controllers[side]
	refusals := 0
	for !m.State.Over && refusals < maxRefusals {
		actions := m.Engine.LegalActions(m.State)
		if len(actions) == 0 {
			break
		}
		chosen, err := ctrl.ChooseAction(m.ctx, m.State, actions)
		if err != nil {
			return err
		}

		var ok bool
		switch chosen.Type {
		case ActionPlayCard:
			ok, err = m.executePlay(chosen)
		case ActionDiscard:
			ok, err = m.executeDiscard(chosen)
		case ActionEndTurn:
			return m.endTurn()
		default:
			return fmt.Errorf("unknown action type %d", chosen.Type)
		}
		if err != nil {
			return err
		}
		if ok {
			refusals = 0
		} else {
			refusals++
		}
	}
	if m.State.Over {
		return nil
	}
	return m.endTurn()
}

func (m *Match) executePlay(a Action) (bool, error) {
	if a.Card == nil {
		return false, fmt.Errorf("play action without a card")
	}
	side := m.State.CurrentPlayer
	target := a.Target
	if a.Card.RequiresTarget() && target == "" {
		var err error
		target, err = m.Controllers[side].ChooseTarget(m.ctx, m.State, a.Card, a.Targets)
		if err != nil {
			return false, err
		}
	}
	gs, res := m.Engine.PlayCard(m.State, side, a.Card.ID, target)
	m.commit(gs, res.Events)
	return res.Success, nil
}

func (m *Match) executeDiscard(a Action) (bool, error) {
	side := m.State.CurrentPlayer
	ids := a.Discards
	if len(ids) == 0 {
		p := m.State.Current()
		prompt := fmt.Sprintf("Discard cards (%d free, then %d IP each)", p.FreeDiscardsLeft, m.Engine.rules.ExtraDiscardCost)
		chosen, err := m.Controllers[side].ChooseCards(m.ctx, m.State, prompt, p.Hand, 0, len(p.Hand))
		if err != nil {
			return false, err
		}
		for _, c := range chosen {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return false, nil
	}
	gs, res := m.Engine.DiscardCards(m.State, side, ids)
	if !res.Success {
		m.log(log.NewWarningEvent(m.State.Turn, log.PhaseMain, int(side), res.Message))
	}
	m.commit(gs, res.Events)
	return res.Success, nil
}

func (m *Match) endTurn() error {
	gs, err := m.Engine.EndTurn(m.State)
	if err != nil {
		return err
	}
	m.State = gs
	return nil
}

// commit installs a new state and publishes its events.
func (m *Match) commit(gs *GameState, events []log.GameEvent) {
	m.State = gs
	for _, ev := range events {
		m.log(ev)
	}
}

// log emits a game event through the logger and notifies both players.
func (m *Match) log(event log.GameEvent) {
	m.Logger.Log(event)
	// Notify controllers (ignore errors for notifications)
	for i := 0; i < 2; i++ {
		if m.Controllers[i] != nil {
			_ = m.Controllers[i].Notify(m.ctx, event)
		}
	}
}
