package net

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/peterkuimelis/shadowgov/internal/capture"
	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/game"
	"github.com/peterkuimelis/shadowgov/internal/log"
)

// NetworkController implements game.PlayerController over a TCP connection.
type NetworkController struct {
	conn   net.Conn
	enc    *json.Encoder
	dec    *json.Decoder
	player game.Side
	mu     sync.Mutex
}

// NewNetworkController creates a new controller for the given connection.
func NewNetworkController(conn net.Conn, player game.Side) *NetworkController {
	return &NetworkController{
		conn:   conn,
		enc:    json.NewEncoder(conn),
		dec:    json.NewDecoder(conn),
		player: player,
	}
}

// BuildStateView creates a StateView from the perspective of the given player.
func BuildStateView(state *game.GameState, player game.Side) *StateView {
	me := state.Player(player)
	opp := state.Player(player.Other())

	sv := &StateView{
		Truth:      state.Truth,
		Turn:       state.Turn,
		Round:      state.Round,
		PlaysMade:  state.PlaysThisTurn,
		IsYourTurn: state.CurrentPlayer == player,
		You:        playerView(me),
		Opponent:   playerView(opp),
	}
	// Only the owner sees their hand.
	for i, c := range me.Hand {
		sv.You.Hand = append(sv.You.Hand, CardViewOf(i, c))
	}

	if state.Board != nil {
		for _, id := range state.Board.IDs() {
			st := state.Board.States[id]
			if st.Pressure.Player == 0 && st.Pressure.AI == 0 {
				continue
			}
			sv.Contested = append(sv.Contested, ZoneView{
				ID:            st.ID,
				Name:          st.Name,
				Owner:         ownerLabel(st.Owner, player),
				Defense:       st.Defense,
				YourPressure:  st.Pressure.Of(player),
				TheirPressure: st.Pressure.Of(player.Other()),
			})
		}
	}
	return sv
}

func playerView(p *game.PlayerState) PlayerView {
	return PlayerView{
		Faction:      p.Faction.String(),
		IP:           p.IP,
		HandCount:    len(p.Hand),
		DeckCount:    len(p.Deck),
		DiscardCount: len(p.Discard),
		States:       append([]string{}, p.States...),
		FreeDiscards: p.FreeDiscardsLeft,
		BlockAttack:  p.BlockAttack,
		Immune:       p.Immune,
	}
}

func ownerLabel(o capture.Owner, viewer game.Side) string {
	s, ok := o.Side()
	switch {
	case !ok:
		return "neutral"
	case s == viewer:
		return "you"
	default:
		return "opponent"
	}
}

// CardViewOf describes a card at position i of a list.
func CardViewOf(i int, c *card.Card) CardView {
	return CardView{
		Index:  i,
		ID:     c.ID,
		Name:   c.Name,
		Type:   c.Type.String(),
		Rarity: c.Rarity.String(),
		Cost:   c.Cost,
		Text:   c.Text,
	}
}

// EventViewOf converts a game event for the wire.
func EventViewOf(event log.GameEvent) *EventView {
	return &EventView{
		Turn:    event.Turn,
		Phase:   event.Phase,
		Player:  event.Player,
		Type:    event.Type.String(),
		Card:    event.Card,
		State:   event.State,
		Details: event.Details,
	}
}

// buildStateView creates a StateView from the perspective of this controller's player.
func (nc *NetworkController) buildStateView(state *game.GameState) *StateView {
	return BuildStateView(state, nc.player)
}

// send sends a server message to the client. Must be called with mu held.
func (nc *NetworkController) send(msg ServerMessage) error {
	return nc.enc.Encode(msg)
}

// recv reads a client message. Must be called with mu held.
func (nc *NetworkController) recv() (ClientMessage, error) {
	var msg ClientMessage
	err := nc.dec.Decode(&msg)
	return msg, err
}

// ChooseAction implements game.PlayerController.
func (nc *NetworkController) ChooseAction(ctx context.Context, state *game.GameState, actions []game.Action) (game.Action, error) {
	nc.mu.Lock()
	defer nc.mu.Unlock()

	var views []ActionView
	for i, a := range actions {
		views = append(views, ActionView{Index: i, Desc: a.String()})
	}

	msg := ServerMessage{
		Type:    MsgChooseAction,
		Actions: views,
		State:   nc.buildStateView(state),
	}
	if err := nc.send(msg); err != nil {
		return game.Action{}, fmt.Errorf("send choose_action: %w", err)
	}

	resp, err := nc.recv()
	if err != nil {
		return game.Action{}, fmt.Errorf("recv action: %w", err)
	}

	if resp.Index < 0 || resp.Index >= len(actions) {
		return actions[len(actions)-1], nil // fall back to ending the turn
	}
	return actions[resp.Index], nil
}

// ChooseCards implements game.PlayerController.
func (nc *NetworkController) ChooseCards(ctx context.Context, state *game.GameState, prompt string, candidates []*card.Card, min, max int) ([]*card.Card, error) {
	nc.mu.Lock()
	defer nc.mu.Unlock()

	var views []CardView
	for i, c := range candidates {
		views = append(views, CardViewOf(i, c))
	}

	msg := ServerMessage{
		Type:       MsgChooseCards,
		Prompt:     prompt,
		Candidates: views,
		Min:        min,
		Max:        max,
		State:      nc.buildStateView(state),
	}
	if err := nc.send(msg); err != nil {
		return nil, fmt.Errorf("send choose_cards: %w", err)
	}

	resp, err := nc.recv()
	if err != nil {
		return nil, fmt.Errorf("recv cards: %w", err)
	}

	var result []*card.Card
	seen := make(map[int]bool)
	for _, idx := range resp.Indices {
		if idx >= 0 && idx < len(candidates) && !seen[idx] {
			seen[idx] = true
			result = append(result, candidates[idx])
		}
	}
	if len(result) > max {
		result = result[:max]
	}
	return result, nil
}

// ChooseTarget implements game.PlayerController. The answer is passed to
// the engine as typed, so FIPS codes and names work too.
func (nc *NetworkController) ChooseTarget(ctx context.Context, state *game.GameState, c *card.Card, candidates []string) (string, error) {
	nc.mu.Lock()
	defer nc.mu.Unlock()

	cv := CardViewOf(0, c)
	msg := ServerMessage{
		Type:    MsgChooseTarget,
		Prompt:  fmt.Sprintf("Choose a state for %s", c.Name),
		Card:    &cv,
		Targets: candidates,
		State:   nc.buildStateView(state),
	}
	if err := nc.send(msg); err != nil {
		return "", fmt.Errorf("send choose_target: %w", err)
	}

	resp, err := nc.recv()
	if err != nil {
		return "", fmt.Errorf("recv target: %w", err)
	}
	return resp.Target, nil
}

// SendGameOver sends a game_over message to the client.
func (nc *NetworkController) SendGameOver(winner int, result string) error {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.send(ServerMessage{Type: MsgGameOver, Winner: winner, Result: result})
}

// Notify implements game.PlayerController.
func (nc *NetworkController) Notify(ctx context.Context, event log.GameEvent) error {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	return nc.send(ServerMessage{Type: MsgNotify, Event: EventViewOf(event)})
}
