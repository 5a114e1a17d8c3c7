package log

import "fmt"

// EventType enumerates all observable game events.
type EventType int

const (
	EventNewTurn EventType = iota
	EventIncome
	EventDraw
	EventShuffle
	EventPlay
	EventPlayRefused
	EventEffect
	EventTruthChange
	EventIPChange
	EventPressure
	EventCapture
	EventDiscard
	EventReaction
	EventWarning
	EventWin
	EventDraw_Tie
)

func (e EventType) String() string {
	switch e {
	case EventNewTurn:
		return "NewTurn"
	case EventIncome:
		return "Income"
	case EventDraw:
		return "Draw"
	case EventShuffle:
		return "Shuffle"
	case EventPlay:
		return "Play"
	case EventPlayRefused:
		return "PlayRefused"
	case EventEffect:
		return "Effect"
	case EventTruthChange:
		return "TruthChange"
	case EventIPChange:
		return "IPChange"
	case EventPressure:
		return "Pressure"
	case EventCapture:
		return "Capture"
	case EventDiscard:
		return "Discard"
	case EventReaction:
		return "Reaction"
	case EventWarning:
		return "Warning"
	case EventWin:
		return "Win"
	case EventDraw_Tie:
		return "Draw(tie)"
	default:
		return "Unknown"
	}
}

// GameEvent represents a single observable event in a match.
type GameEvent struct {
	Seq     int       `json:"seq"`             // monotonic sequence number
	Turn    int       `json:"turn"`            // which turn (1-based)
	Phase   string    `json:"phase"`           // "Turn Start", "Main" or "Turn End"
	Player  int       `json:"player"`          // acting player (0 or 1)
	Type    EventType `json:"type"`            // event type
	Card    string    `json:"card,omitempty"`  // card name (if applicable)
	State   string    `json:"state,omitempty"` // state id (pressure and capture)
	Details string    `json:"details"`         // human-readable detail string
}

func (e EventType) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

func (e *EventType) UnmarshalText(b []byte) error {
	for t := EventNewTurn; t <= EventDraw_Tie; t++ {
		if t.String() == string(b) {
			*e = t
			return nil
		}
	}
	return fmt.Errorf("unknown event type %q", b)
}
