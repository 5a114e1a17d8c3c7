package net

// Message types for the JSON protocol over TCP.

const (
	MsgNotify       = "notify"
	MsgChooseAction = "choose_action"
	MsgChooseCards  = "choose_cards"
	MsgChooseTarget = "choose_target"
	MsgGameOver     = "game_over"

	MsgJoin   = "join"
	MsgAction = "action"
	MsgCards  = "cards"
	MsgTarget = "target"
)

// --- Server → Client messages ---

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type string `json:"type"`

	// For "notify"
	Event *EventView `json:"event,omitempty"`

	// For "choose_action"
	Actions []ActionView `json:"actions,omitempty"`
	State   *StateView   `json:"state,omitempty"`

	// For "choose_cards"
	Prompt     string     `json:"prompt,omitempty"`
	Candidates []CardView `json:"candidates,omitempty"`
	Min        int        `json:"min,omitempty"`
	Max        int        `json:"max,omitempty"`

	// For "choose_target"
	Card    *CardView `json:"card,omitempty"`
	Targets []string  `json:"targets,omitempty"`

	// For "game_over"; Winner is -1 on a draw.
	Winner int    `json:"winner"`
	Result string `json:"result,omitempty"`
}

// EventView is a simplified game event for the client.
type EventView struct {
	Turn    int    `json:"turn"`
	Phase   string `json:"phase"`
	Player  int    `json:"player"`
	Type    string `json:"type"`
	Card    string `json:"card,omitempty"`
	State   string `json:"state,omitempty"`
	Details string `json:"details"`
}

// ActionView is a numbered action choice.
type ActionView struct {
	Index int    `json:"index"`
	Desc  string `json:"desc"`
}

// CardView describes a card in hand or a candidate for selection.
type CardView struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Rarity string `json:"rarity"`
	Cost   int    `json:"cost"`
	Text   string `json:"text,omitempty"`
}

// StateView is the game state from one player's perspective.
type StateView struct {
	You        PlayerView `json:"you"`
	Opponent   PlayerView `json:"opponent"`
	Truth      int        `json:"truth"`
	Turn       int        `json:"turn"`
	Round      int        `json:"round"`
	PlaysMade  int        `json:"plays_made"`
	IsYourTurn bool       `json:"is_your_turn"`
	Contested  []ZoneView `json:"contested,omitempty"`
}

// PlayerView shows one side of the table.
type PlayerView struct {
	Faction      string     `json:"faction"`
	IP           int        `json:"ip"`
	HandCount    int        `json:"hand_count"`
	Hand         []CardView `json:"hand,omitempty"` // only for "you"
	DeckCount    int        `json:"deck_count"`
	DiscardCount int        `json:"discard_count"`
	States       []string   `json:"states"`
	FreeDiscards int        `json:"free_discards"`
	BlockAttack  bool       `json:"block_attack,omitempty"`
	Immune       bool       `json:"immune,omitempty"`
}

// ZoneView is a state with pressure on it, seen from one side.
type ZoneView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Owner         string `json:"owner"`
	Defense       int    `json:"defense"`
	YourPressure  int    `json:"your_pressure"`
	TheirPressure int    `json:"their_pressure"`
}

// --- Client → Server messages ---

// ClientMessage is the envelope for all client-to-server messages.
type ClientMessage struct {
	Type string `json:"type"`

	// For "action"
	Index int `json:"index,omitempty"`

	// For "cards"
	Indices []int `json:"indices,omitempty"`

	// For "target"
	Target string `json:"target,omitempty"`

	// For "join" (initial handshake)
	DeckNumber int `json:"deck_number,omitempty"`
}
