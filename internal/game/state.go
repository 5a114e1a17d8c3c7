package game

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/peterkuimelis/shadowgov/internal/capture"
	"github.com/peterkuimelis/shadowgov/internal/card"
)

// IncomeEffect is an ongoing per-turn IP bonus granted by a card.
type IncomeEffect struct {
	IP        int    `json:"ip"`
	TurnsLeft int    `json:"turnsLeft"`
	Source    string `json:"source,omitempty"`
}

// PlayerState represents one player's entire state.
type PlayerState struct {
	Faction card.Faction `json:"faction"`
	Hand    []*card.Card `json:"hand"`
	Deck    []*card.Card `json:"deck"` // top of deck is the first element
	Discard []*card.Card `json:"discard"`
	IP      int          `json:"ip"`
	States  []string     `json:"states"`

	FreeDiscardsLeft int            `json:"freeDiscardsLeft"`
	ZoneDefenseBonus int            `json:"zoneDefenseBonus,omitempty"`
	Income           []IncomeEffect `json:"income,omitempty"`

	// BlockAttack cancels the next opposing ATTACK. Immune shields the
	// player from drain and forced discards until their next turn.
	BlockAttack bool `json:"blockAttack,omitempty"`
	Immune      bool `json:"immune,omitempty"`
}

// HandIndex returns the position of the first card with the given id, or -1.
func (p *PlayerState) HandIndex(id string) int {
	for i, c := range p.Hand {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// removeFromHand takes the card at index i out of the hand.
func (p *PlayerState) removeFromHand(i int) *card.Card {
	c := p.Hand[i]
	p.Hand = slices.Delete(p.Hand, i, i+1)
	return c
}

// draw moves up to n cards from the top of the deck to the hand.
func (p *PlayerState) draw(n int) []*card.Card {
	if n > len(p.Deck) {
		n = len(p.Deck)
	}
	drawn := p.Deck[:n:n]
	p.Deck = slices.Clone(p.Deck[n:])
	p.Hand = append(p.Hand, drawn...)
	return drawn
}

func (p *PlayerState) hasState(id string) bool {
	return slices.Contains(p.States, id)
}

func (p *PlayerState) addState(id string) {
	if !p.hasState(id) {
		p.States = append(p.States, id)
		slices.Sort(p.States)
	}
}

func (p *PlayerState) removeState(id string) {
	if i := slices.Index(p.States, id); i >= 0 {
		p.States = slices.Delete(p.States, i, i+1)
	}
}

func (p *PlayerState) clone() *PlayerState {
	c := *p
	c.Hand = slices.Clone(p.Hand)
	c.Deck = slices.Clone(p.Deck)
	c.Discard = slices.Clone(p.Discard)
	c.States = slices.Clone(p.States)
	c.Income = slices.Clone(p.Income)
	return &c
}

// TurnPlay is one entry of the per-turn play record. Each played card
// adds a "play" entry when paid for and a "resolve" entry once applied.
type TurnPlay struct {
	Sequence int               `json:"sequence"`
	Stage    string            `json:"stage"`
	Owner    Side              `json:"owner"`
	CardID   string            `json:"cardId"`
	CardName string            `json:"cardName"`
	CardType card.Type         `json:"cardType"`
	Rarity   card.Rarity       `json:"cardRarity"`
	Cost     int               `json:"cost"`
	Target   string            `json:"targetStateId,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// GameState is the full state of a match. Engine transitions never
// mutate a GameState in place; they return a modified clone.
type GameState struct {
	ID             string          `json:"id"`
	Players        [2]*PlayerState `json:"players"`
	Truth          int             `json:"truth"`
	CurrentPlayer  Side            `json:"currentPlayer"`
	StartingPlayer Side            `json:"startingPlayer"`
	Turn           int             `json:"turn"`
	Round          int             `json:"round"`
	PlaysThisTurn  int             `json:"playsThisTurn"`
	TurnStarted    bool            `json:"turnStarted"`
	Board          *capture.Board  `json:"board"`
	TurnPlays      []TurnPlay      `json:"turnPlays,omitempty"`

	Over   bool   `json:"over"`
	Winner *Side  `json:"winner,omitempty"` // nil while running or on a draw
	Result string `json:"result,omitempty"`
}

// Player returns the state of side s.
func (gs *GameState) Player(s Side) *PlayerState {
	return gs.Players[s]
}

// Current returns the player whose turn it is.
func (gs *GameState) Current() *PlayerState {
	return gs.Players[gs.CurrentPlayer]
}

// Opponent returns the player waiting for their turn.
func (gs *GameState) Opponent() *PlayerState {
	return gs.Players[gs.CurrentPlayer.Other()]
}

// Clone returns a deep copy. Card definitions are immutable and shared.
func (gs *GameState) Clone() *GameState {
	c := *gs
	for i, p := range gs.Players {
		if p != nil {
			c.Players[i] = p.clone()
		}
	}
	c.Board = gs.Board.Clone()
	c.TurnPlays = slices.Clone(gs.TurnPlays)
	for i := range c.TurnPlays {
		if m := gs.TurnPlays[i].Metadata; m != nil {
			cp := make(map[string]string, len(m))
			for k, v := range m {
				cp[k] = v
			}
			c.TurnPlays[i].Metadata = cp
		}
	}
	if gs.Winner != nil {
		w := *gs.Winner
		c.Winner = &w
	}
	return &c
}

// --- Serialization ---

// Marshal encodes the state as JSON.
func (gs *GameState) Marshal() ([]byte, error) {
	return json.Marshal(gs)
}

// Unmarshal decodes a state written by Marshal. Out-of-range values are
// repaired rather than rejected and each repair is reported as a warning:
// truth is clamped to 0..100, negative IP is raised to zero, and the
// players' state lists are rebuilt from board ownership.
func Unmarshal(data []byte) (*GameState, []string, error) {
	var gs GameState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, nil, fmt.Errorf("decode game state: %w", err)
	}
	if gs.Players[0] == nil || gs.Players[1] == nil {
		return nil, nil, fmt.Errorf("decode game state: missing player")
	}
	if !gs.CurrentPlayer.Valid() || !gs.StartingPlayer.Valid() {
		return nil, nil, fmt.Errorf("decode game state: invalid current player %d", gs.CurrentPlayer)
	}
	if gs.Board == nil {
		gs.Board = capture.NewUSABoard()
	}
	warnings := normalize(&gs)
	return &gs, warnings, nil
}

func normalize(gs *GameState) []string {
	var warnings []string
	warnf := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if t := clamp(gs.Truth, 0, 100); t != gs.Truth {
		warnf("truth %d clamped to %d", gs.Truth, t)
		gs.Truth = t
	}
	for i, p := range gs.Players {
		if p.IP < 0 {
			warnf("P%d IP %d raised to 0", i+1, p.IP)
			p.IP = 0
		}
		side := Side(i)
		owned := gs.Board.OwnedBy(capture.OwnerOf(side))
		for _, id := range p.States {
			if !slices.Contains(owned, id) {
				warnf("P%d listed state %q it does not own on the board", i+1, id)
			}
		}
		for _, id := range owned {
			if !p.hasState(id) {
				warnf("P%d owns %s on the board but did not list it", i+1, id)
			}
		}
		if owned == nil {
			owned = []string{}
		}
		p.States = owned
	}
	if gs.Turn < 1 {
		gs.Turn = 1
	}
	if gs.Round < 1 {
		gs.Round = 1
	}
	return warnings
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
