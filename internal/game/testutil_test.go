package game

import (
	"context"
	"fmt"
	"testing"

	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/log"
)

// ScriptedController is a PlayerController that follows a predefined script of actions.
// Used in tests to deterministically drive the game.
type ScriptedController struct {
	t       *testing.T
	name    string
	actions []ScriptedAction
	pos     int

	// For ChooseCards prompts
	cardChoices []ScriptedCardChoice
	cardPos     int

	events []log.GameEvent
}

type ScriptedAction struct {
	// Match by ActionType: picks the first action of this type
	Type ActionType
	// Optional: match by card name or id as well
	CardName string
	// Optional: target state for ZONE plays
	Target string
}

type ScriptedCardChoice struct {
	// Choose cards by name
	Names []string
}

func NewScriptedController(t *testing.T, name string) *ScriptedController {
	return &ScriptedController{t: t, name: name}
}

func (sc *ScriptedController) AddAction(actionType ActionType, cardName string) *ScriptedController {
	sc.actions = append(sc.actions, ScriptedAction{Type: actionType, CardName: cardName})
	return sc
}

func (sc *ScriptedController) AddPlay(cardName, target string) *ScriptedController {
	sc.actions = append(sc.actions, ScriptedAction{Type: ActionPlayCard, CardName: cardName, Target: target})
	return sc
}

func (sc *ScriptedController) AddEndTurn() *ScriptedController {
	sc.actions = append(sc.actions, ScriptedAction{Type: ActionEndTurn})
	return sc
}

func (sc *ScriptedController) AddCardChoice(names ...string) *ScriptedController {
	sc.cardChoices = append(sc.cardChoices, ScriptedCardChoice{Names: names})
	return sc
}

func (sc *ScriptedController) ChooseAction(ctx context.Context, state *GameState, actions []Action) (Action, error) {
	if sc.pos >= len(sc.actions) {
		return endTurnAction(actions), nil
	}

	// Peek at next scripted action; only consume it if it matches an available action.
	// This allows scripts to span multiple turns without needing to explicitly script "EndTurn".
	scripted := sc.actions[sc.pos]
	for _, a := range actions {
		if a.Type != scripted.Type {
			continue
		}
		if scripted.CardName != "" && (a.Card == nil || (a.Card.Name != scripted.CardName && a.Card.ID != scripted.CardName)) {
			continue
		}
		// Found match: consume and return
		sc.pos++
		a.Target = scripted.Target
		return a, nil
	}

	// Scripted action not yet available (probably a future turn)
	return endTurnAction(actions), nil
}

func endTurnAction(actions []Action) Action {
	for _, a := range actions {
		if a.Type == ActionEndTurn {
			return a
		}
	}
	return actions[len(actions)-1]
}

func (sc *ScriptedController) ChooseCards(ctx context.Context, state *GameState, prompt string, candidates []*card.Card, min, max int) ([]*card.Card, error) {
	if sc.cardPos >= len(sc.cardChoices) {
		// Default: choose the first min candidates
		if min > len(candidates) {
			min = len(candidates)
		}
		return candidates[:min], nil
	}

	choice := sc.cardChoices[sc.cardPos]
	sc.cardPos++

	var result []*card.Card
	used := make(map[int]bool)
	for _, name := range choice.Names {
		for i, c := range candidates {
			if !used[i] && c.Name == name {
				used[i] = true
				result = append(result, c)
				break
			}
		}
	}

	if len(result) < min {
		return nil, fmt.Errorf("[%s] card choice: wanted %v but only found %d in candidates", sc.name, choice.Names, len(result))
	}
	return result, nil
}

func (sc *ScriptedController) ChooseTarget(ctx context.Context, state *GameState, c *card.Card, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("[%s] no targets for %s", sc.name, c.Name)
	}
	return candidates[0], nil
}

func (sc *ScriptedController) Notify(ctx context.Context, event log.GameEvent) error {
	sc.events = append(sc.events, event)
	return nil
}

// --- Test card helpers ---

func buildCard(raw map[string]any) *card.Card {
	if _, ok := raw["faction"]; !ok {
		raw["faction"] = "truth"
	}
	if _, ok := raw["rarity"]; !ok {
		raw["rarity"] = "common"
	}
	return card.Builder{Mode: card.ModeExtended}.MustBuild(raw)
}

func attackCard(id, name string, cost, drain int) *card.Card {
	return buildCard(map[string]any{
		"id": id, "name": name, "type": "ATTACK", "cost": cost,
		"effects": map[string]any{"ipDelta": map[string]any{"opponent": drain}},
	})
}

func mediaCard(id, name string, cost, truth int) *card.Card {
	return buildCard(map[string]any{
		"id": id, "name": name, "type": "MEDIA", "cost": cost,
		"effects": map[string]any{"truthDelta": truth},
	})
}

func zoneCard(id, name string, cost, pressure int) *card.Card {
	return buildCard(map[string]any{
		"id": id, "name": name, "type": "ZONE", "cost": cost,
		"effects": map[string]any{"pressureDelta": pressure},
		"target":  map[string]any{"scope": "state", "count": 1},
	})
}

// fillerCard is too expensive to ever be played.
var fillerCard = mediaCard("TEST-FILLER", "Filler Memo", 999, 1)

// makePaddedDeck creates a deck with specified cards on top (drawn first) and filler to reach a minimum size.
// topCards are ordered so that index 0 is drawn first.
func makePaddedDeck(topCards []*card.Card, minSize int) []*card.Card {
	deck := make([]*card.Card, 0, minSize)
	deck = append(deck, topCards...)
	for len(deck) < minSize {
		deck = append(deck, fillerCard)
	}
	return deck
}

// fixedRNG returns queued values, then zeros.
type fixedRNG struct{ values []int }

func (f *fixedRNG) Intn(n int) int {
	if len(f.values) == 0 {
		return 0
	}
	v := f.values[0]
	f.values = f.values[1:]
	return v % n
}

// newTestGame deals an unshuffled game where each player's opening hand
// is hand0/hand1 padded with filler. Truth faction is P1.
func newTestGame(t *testing.T, rules Rules, hand0, hand1 []*card.Card) (*Engine, *GameState) {
	t.Helper()
	eng := NewEngine(rules, WithRNG(&fixedRNG{}))
	gs, _, err := eng.NewGame(Setup{
		ID:        "test",
		Factions:  [2]card.Faction{card.FactionTruth, card.FactionGovernment},
		Decks:     [2][]*card.Card{makePaddedDeck(hand0, 20), makePaddedDeck(hand1, 20)},
		NoShuffle: true,
	})
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	gs.TurnStarted = true
	return eng, gs
}

// runMatchToCompletion runs a match and returns the logger for inspection.
func runMatchToCompletion(t *testing.T, cfg MatchConfig, p0, p1 PlayerController) (*Match, *log.MemoryLogger) {
	t.Helper()
	logger := log.NewMemoryLogger()
	cfg.Logger = logger
	if cfg.Rules == (Rules{}) {
		cfg.Rules = DefaultRules()
	}
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = 100 // reasonable default for tests
	}

	m, err := NewMatch(cfg, p0, p1)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	winner, err := m.Run(context.Background())
	if err != nil {
		t.Logf("Event log:\n%s", log.FormatAll(logger.Events()))
		t.Fatalf("Match error: %v", err)
	}

	t.Logf("Match result: winner=%d (%s)", winner, m.State.Result)
	t.Logf("Event log:\n%s", log.FormatAll(logger.Events()))
	return m, logger
}
