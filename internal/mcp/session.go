package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/effect"
	"github.com/peterkuimelis/shadowgov/internal/game"
	"github.com/peterkuimelis/shadowgov/internal/log"
	sgnet "github.com/peterkuimelis/shadowgov/internal/net"
	"github.com/peterkuimelis/shadowgov/internal/store"

	stdnet "net"
)

// DecisionType identifies what kind of decision the game engine is waiting for.
type DecisionType string

const (
	DecisionChooseAction DecisionType = "choose_action"
	DecisionGameOver     DecisionType = "game_over"
)

// Opponent kinds accepted by start_game.
const (
	OpponentRandom = "random"
	OpponentHuman  = "human"
)

// PendingDecision represents a decision the game engine is waiting for.
type PendingDecision struct {
	Type    DecisionType       `json:"type"`
	Player  game.Side          `json:"player"`
	State   *sgnet.StateView   `json:"state"`
	Actions []sgnet.ActionView `json:"actions,omitempty"`

	snap  *game.GameState // the state the decision was offered on
	legal []game.Action
}

// ToolResponse is the JSON envelope returned by the turn tools.
type ToolResponse struct {
	GameID   string            `json:"game_id"`
	Events   []sgnet.EventView `json:"events"`
	State    *sgnet.StateView  `json:"state,omitempty"`
	Pending  *PendingView      `json:"pending,omitempty"`
	GameOver bool              `json:"game_over"`
	Winner   int               `json:"winner"` // -1 while running or on a draw
	Result   string            `json:"result,omitempty"`
	Port     string            `json:"port,omitempty"`
}

// PendingView is the pending decision as presented in the tool response JSON.
type PendingView struct {
	Type      DecisionType       `json:"type"`
	ForPlayer string             `json:"for_player"`
	Actions   []sgnet.ActionView `json:"actions,omitempty"`
}

// SessionConfig describes one game started from start_game.
type SessionConfig struct {
	Rules     game.Rules
	Cards     *card.Database
	DecksFile string
	AIDeck    int
	AIPlayer  game.Side
	Opponent  string // OpponentRandom or OpponentHuman
	Addr      string // listen address for a human opponent
	Seed      int64
	Diag      zerolog.Logger
	Store     *store.Store
}

// GameSession holds the state of a single MCP game session.
type GameSession struct {
	id       string
	match    *game.Match
	aiCtrl   *MCPController
	aiPlayer game.Side
	humanCtl *sgnet.NetworkController
	store    *store.Store
	diag     zerolog.Logger

	listener  stdnet.Listener
	humanConn stdnet.Conn

	pendingCh      chan *PendingDecision
	currentPending *PendingDecision

	mu       sync.Mutex
	events   []sgnet.EventView
	gameOver bool
	winner   int
	result   string
	last     *game.GameState
}

// NewGameSession deals a match and starts it. With a human opponent it
// first waits for `sgts join` on cfg.Addr.
func NewGameSession(ctx context.Context, cfg SessionConfig) (*GameSession, error) {
	aiDeck, err := game.DeckByNumber(cfg.DecksFile, cfg.AIDeck, cfg.Cards)
	if err != nil {
		return nil, fmt.Errorf("load AI deck: %w", err)
	}

	sess := &GameSession{
		aiPlayer:  cfg.AIPlayer,
		pendingCh: make(chan *PendingDecision, 1),
		winner:    -1,
		store:     cfg.Store,
		diag:      cfg.Diag.With().Str("component", "mcp").Logger(),
	}
	sess.aiCtrl = NewMCPController(cfg.AIPlayer, sess)

	var (
		opponent     game.PlayerController
		opponentDeck game.Deck
	)
	switch cfg.Opponent {
	case OpponentHuman:
		ln, err := stdnet.Listen("tcp", cfg.Addr)
		if err != nil {
			return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
		}
		// Blocks until the human runs `sgts join`.
		conn, err := ln.Accept()
		if err != nil {
			ln.Close()
			return nil, fmt.Errorf("accept: %w", err)
		}
		dec := json.NewDecoder(conn)
		var joinMsg sgnet.ClientMessage
		if err := dec.Decode(&joinMsg); err != nil {
			conn.Close()
			ln.Close()
			return nil, fmt.Errorf("read join message: %w", err)
		}
		humanDeck := joinMsg.DeckNumber
		if humanDeck == 0 {
			humanDeck = 2
		}
		opponentDeck, err = game.DeckByNumber(cfg.DecksFile, humanDeck, cfg.Cards)
		if err != nil {
			conn.Close()
			ln.Close()
			return nil, fmt.Errorf("load human deck: %w", err)
		}
		sess.listener, sess.humanConn = ln, conn
		sess.humanCtl = sgnet.NewNetworkController(conn, cfg.AIPlayer.Other())
		opponent = sess.humanCtl
	case OpponentRandom, "":
		n := 2
		if cfg.AIDeck == 2 {
			n = 1
		}
		opponentDeck, err = game.DeckByNumber(cfg.DecksFile, n, cfg.Cards)
		if err != nil {
			return nil, fmt.Errorf("load opponent deck: %w", err)
		}
		opponent = game.NewRandomController(effect.NewRNG(cfg.Seed + 1))
	default:
		return nil, fmt.Errorf("unknown opponent %q", cfg.Opponent)
	}

	// Assign decks and controllers to player indices
	mc := game.MatchConfig{
		Rules:  cfg.Rules,
		Seed:   cfg.Seed,
		Logger: log.NewMemoryLogger(),
		Diag:   cfg.Diag,
	}
	ctrl := [2]game.PlayerController{}
	ctrl[cfg.AIPlayer] = sess.aiCtrl
	ctrl[cfg.AIPlayer.Other()] = opponent
	decks := [2]game.Deck{}
	decks[cfg.AIPlayer] = aiDeck
	decks[cfg.AIPlayer.Other()] = opponentDeck
	mc.Deck0, mc.Faction0 = decks[0].Cards, decks[0].Faction
	mc.Deck1, mc.Faction1 = decks[1].Cards, decks[1].Faction

	sess.match, err = game.NewMatch(mc, ctrl[0], ctrl[1])
	if err != nil {
		sess.closeConn()
		return nil, err
	}
	sess.id = sess.match.State.ID
	sess.last = sess.match.State

	// The match outlives the start_game call.
	go sess.run(context.WithoutCancel(ctx))
	return sess, nil
}

// run plays the match to the end and reports game over to both sides.
func (s *GameSession) run(ctx context.Context) {
	winner, err := s.match.Run(ctx)
	final := s.match.State

	result := final.Result
	if err != nil {
		result = fmt.Sprintf("error: %v", err)
	} else if result == "" {
		result = fmt.Sprintf("Game over. Winner: player %d", winner)
	}

	if s.store != nil {
		if _, err := s.store.Save(ctx, final); err != nil {
			s.diag.Error().Err(err).Str("game", final.ID).Msg("save finished game")
		}
	}
	if s.humanCtl != nil {
		_ = s.humanCtl.SendGameOver(winner, result)
	}
	s.closeConn()

	s.mu.Lock()
	s.gameOver = true
	s.winner = winner
	s.result = result
	s.last = final
	s.mu.Unlock()

	s.pendingCh <- &PendingDecision{
		Type:   DecisionGameOver,
		Player: s.aiPlayer,
		State:  sgnet.BuildStateView(final, s.aiPlayer),
		snap:   final,
	}
}

func (s *GameSession) closeConn() {
	if s.humanConn != nil {
		s.humanConn.Close()
	}
	if s.listener != nil {
		s.listener.Close()
	}
}

// ID is the match's game id.
func (s *GameSession) ID() string {
	return s.id
}

// appendEvent adds an event to the session's event log. Thread-safe.
func (s *GameSession) appendEvent(ev *sgnet.EventView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
}

// drainEvents returns all accumulated events and clears the buffer.
func (s *GameSession) drainEvents() []sgnet.EventView {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events
	s.events = nil
	if events == nil {
		events = []sgnet.EventView{}
	}
	return events
}

func (s *GameSession) isOver() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameOver
}

// snapshot is the latest state the AI has been shown.
func (s *GameSession) snapshot() *game.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// waitForPending blocks until the next decision arrives from the game engine,
// then builds a ToolResponse with accumulated events + the pending decision.
func (s *GameSession) waitForPending(ctx context.Context) (*ToolResponse, error) {
	var pending *PendingDecision
	select {
	case pending = <-s.pendingCh:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.currentPending = pending

	resp := &ToolResponse{
		GameID: s.ID(),
		Events: s.drainEvents(),
		State:  pending.State,
		Winner: -1,
	}

	if pending.Type == DecisionGameOver {
		s.mu.Lock()
		resp.GameOver = true
		resp.Winner = s.winner
		resp.Result = s.result
		s.mu.Unlock()
		return resp, nil
	}

	resp.Pending = &PendingView{
		Type:      pending.Type,
		ForPlayer: s.playerLabel(pending.Player),
		Actions:   pending.Actions,
	}
	return resp, nil
}

// playerLabel returns "ai" or "opponent" for the given player.
func (s *GameSession) playerLabel(player game.Side) string {
	if player == s.aiPlayer {
		return "ai"
	}
	return "opponent"
}

// respondJSON marshals a ToolResponse to a JSON string.
func respondJSON(resp any) string {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal error: %v"}`, err)
	}
	return string(data)
}
