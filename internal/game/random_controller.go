package game

import (
	"context"

	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/effect"
	"github.com/peterkuimelis/shadowgov/internal/log"
)

// RandomController plays a random affordable card each time it is asked
// and ends the turn when nothing is playable. It never discards
// voluntarily. Used for simulations and as a stand-in opponent.
type RandomController struct {
	rng effect.RNG
}

func NewRandomController(rng effect.RNG) *RandomController {
	if rng == nil {
		rng = effect.NewRNG(0)
	}
	return &RandomController{rng: rng}
}

func (rc *RandomController) ChooseAction(ctx context.Context, state *GameState, actions []Action) (Action, error) {
	var plays []Action
	var end Action
	for _, a := range actions {
		switch a.Type {
		case ActionPlayCard:
			plays = append(plays, a)
		case ActionEndTurn:
			end = a
		}
	}
	if len(plays) == 0 {
		return end, nil
	}
	return plays[rc.rng.Intn(len(plays))], nil
}

func (rc *RandomController) ChooseCards(ctx context.Context, state *GameState, prompt string, candidates []*card.Card, min, max int) ([]*card.Card, error) {
	if min > len(candidates) {
		min = len(candidates)
	}
	return candidates[:min], nil
}

func (rc *RandomController) ChooseTarget(ctx context.Context, state *GameState, c *card.Card, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}
	return candidates[rc.rng.Intn(len(candidates))], nil
}

func (rc *RandomController) Notify(ctx context.Context, event log.GameEvent) error {
	return nil
}
