package mcp

import (
	"context"

	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/game"
	"github.com/peterkuimelis/shadowgov/internal/log"
	"github.com/peterkuimelis/shadowgov/internal/net"
)

// MCPController implements game.PlayerController by sending decisions
// to the MCP session's pending channel and blocking on a response channel.
// The tools answer with a complete action, so the follow-up prompts for
// cards and targets are never needed.
type MCPController struct {
	player     game.Side
	session    *GameSession
	responseCh chan game.Action
}

// NewMCPController creates a controller for the given player.
func NewMCPController(player game.Side, session *GameSession) *MCPController {
	return &MCPController{
		player:     player,
		session:    session,
		responseCh: make(chan game.Action),
	}
}

// ChooseAction implements game.PlayerController.
func (c *MCPController) ChooseAction(ctx context.Context, state *game.GameState, actions []game.Action) (game.Action, error) {
	var views []net.ActionView
	for i, a := range actions {
		views = append(views, net.ActionView{Index: i, Desc: a.String()})
	}

	c.session.mu.Lock()
	c.session.last = state
	c.session.mu.Unlock()

	c.session.pendingCh <- &PendingDecision{
		Type:    DecisionChooseAction,
		Player:  c.player,
		State:   net.BuildStateView(state, c.player),
		Actions: views,
		snap:    state,
		legal:   actions,
	}

	select {
	case a := <-c.responseCh:
		return a, nil
	case <-ctx.Done():
		return game.Action{}, ctx.Err()
	}
}

// ChooseCards implements game.PlayerController. discard_cards always names
// its cards, so an empty selection means nothing to discard.
func (c *MCPController) ChooseCards(ctx context.Context, state *game.GameState, prompt string, candidates []*card.Card, min, max int) ([]*card.Card, error) {
	return nil, nil
}

// ChooseTarget implements game.PlayerController. A ZONE card played
// without a target is refused by the engine with missing-target.
func (c *MCPController) ChooseTarget(ctx context.Context, state *game.GameState, cd *card.Card, candidates []string) (string, error) {
	return "", nil
}

// Notify implements game.PlayerController.
func (c *MCPController) Notify(ctx context.Context, event log.GameEvent) error {
	c.session.appendEvent(net.EventViewOf(event))
	return nil
}
