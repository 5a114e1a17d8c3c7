package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/peterkuimelis/shadowgov/internal/capture"
	"github.com/peterkuimelis/shadowgov/internal/card"
)

// Side is one of the two players. SidePlayer is "P1".
type Side = capture.Side

const (
	SidePlayer = capture.SidePlayer
	SideAI     = capture.SideAI
)

// ErrGameOver is returned when a transition is attempted on a finished game.
var ErrGameOver = errors.New("game is over")

// --- Refusal reasons ---

// Reason is the machine-readable code attached to a refused action.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonGameOver       Reason = "game-over"
	ReasonNotYourTurn    Reason = "not-your-turn"
	ReasonPlayLimit      Reason = "play-limit"
	ReasonCardNotInHand  Reason = "card-not-in-hand"
	ReasonInsufficientIP Reason = "insufficient-ip"
	ReasonMissingTarget  Reason = "missing-target"
	ReasonInvalidTarget  Reason = "invalid-target"
	ReasonNoCards        Reason = "no-cards"
)

// --- Action types ---

type ActionType int

const (
	ActionPlayCard ActionType = iota
	ActionDiscard
	ActionEndTurn
)

func (a ActionType) String() string {
	switch a {
	case ActionPlayCard:
		return "Play"
	case ActionDiscard:
		return "Discard"
	case ActionEndTurn:
		return "End Turn"
	default:
		return "Unknown"
	}
}

// Action represents a player action with all necessary details.
type Action struct {
	Type   ActionType
	Player Side
	Card   *card.Card // card being played

	// Target is the chosen state for a ZONE play. Targets lists the
	// candidates offered when the action was computed.
	Target  string
	Targets []string

	// Discards are the card ids to discard for ActionDiscard.
	Discards []string
	Desc     string // human-readable description
}

func (a Action) String() string {
	if a.Desc != "" {
		return a.Desc
	}
	switch a.Type {
	case ActionPlayCard:
		if a.Card == nil {
			break
		}
		if a.Target != "" {
			return fmt.Sprintf("Play %s on %s", a.Card, a.Target)
		}
		return fmt.Sprintf("Play %s", a.Card)
	case ActionDiscard:
		if len(a.Discards) > 0 {
			return "Discard " + strings.Join(a.Discards, ", ")
		}
	}
	return a.Type.String()
}
