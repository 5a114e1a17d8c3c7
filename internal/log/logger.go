package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// EventLogger is the interface for logging game events.
type EventLogger interface {
	Log(event GameEvent)
	Events() []GameEvent
}

// Phase names used in events.
const (
	PhaseTurnStart = "Turn Start"
	PhaseMain      = "Main"
	PhaseTurnEnd   = "Turn End"
)

// --- MemoryLogger: stores events in memory for test assertions ---

type MemoryLogger struct {
	events []GameEvent
	seq    int
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(event GameEvent) {
	l.seq++
	event.Seq = l.seq
	l.events = append(l.events, event)
}

func (l *MemoryLogger) Events() []GameEvent {
	return l.events
}

// EventsOfType returns all events matching the given type.
func (l *MemoryLogger) EventsOfType(t EventType) []GameEvent {
	var result []GameEvent
	for _, e := range l.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// LastEvent returns the most recent event, or a zero event if none.
func (l *MemoryLogger) LastEvent() GameEvent {
	if len(l.events) == 0 {
		return GameEvent{}
	}
	return l.events[len(l.events)-1]
}

// --- TextLogger: writes human-readable lines to an io.Writer ---

type TextLogger struct {
	MemoryLogger
	w io.Writer
}

func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{w: w}
}

func (l *TextLogger) Log(event GameEvent) {
	l.MemoryLogger.Log(event)
	fmt.Fprintln(l.w, FormatEvent(event))
}

// --- ZerologLogger: mirrors events into a structured log ---

type ZerologLogger struct {
	MemoryLogger
	zl zerolog.Logger
}

func NewZerologLogger(zl zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{zl: zl}
}

func (l *ZerologLogger) Log(event GameEvent) {
	l.MemoryLogger.Log(event)
	ev := l.zl.Info()
	if event.Type == EventWarning {
		ev = l.zl.Warn()
	}
	ev.Int("seq", l.seq).
		Int("turn", event.Turn).
		Str("phase", event.Phase).
		Int("player", event.Player).
		Stringer("type", event.Type).
		Str("card", event.Card).
		Str("state", event.State).
		Msg(event.Details)
}

// --- Formatting ---

// playerName returns "P1" or "P2" for display.
func playerName(p int) string {
	return fmt.Sprintf("P%d", p+1)
}

// FormatEvent formats a single event as a human-readable line.
func FormatEvent(e GameEvent) string {
	phase := e.Phase
	if phase == "" {
		phase = "          "
	}
	// Pad phase to 12 chars for alignment
	for len(phase) < 12 {
		phase += " "
	}

	return fmt.Sprintf("T%-3d %s| %s", e.Turn, phase, e.Details)
}

// FormatAll formats all events as a multi-line string.
func FormatAll(events []GameEvent) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(FormatEvent(e))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// --- Helper constructors for common events ---

func NewTurnEvent(turn, round int, player int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   PhaseTurnStart,
		Player:  player,
		Type:    EventNewTurn,
		Details: fmt.Sprintf("=== Turn %d, round %d (%s) ===", turn, round, playerName(player)),
	}
}

// NewIncomeEvent records turn income. breakdown is the parenthesised
// explanation, e.g. "base 5; states 2".
func NewIncomeEvent(turn int, player int, amount, newIP int, breakdown string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   PhaseTurnStart,
		Player:  player,
		Type:    EventIncome,
		Details: fmt.Sprintf("%s income %+d IP (%s) → %d IP", playerName(player), amount, breakdown, newIP),
	}
}

func NewDrawEvent(turn int, phase string, player int, cardName string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventDraw,
		Card:    cardName,
		Details: fmt.Sprintf("%s draws %s", playerName(player), cardName),
	}
}

func NewShuffleEvent(turn int, phase string, player int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventShuffle,
		Details: fmt.Sprintf("%s shuffled their deck", playerName(player)),
	}
}

func NewPlayEvent(turn int, player int, cardName string, cost int, target string) GameEvent {
	details := fmt.Sprintf("%s plays %s (cost %d IP)", playerName(player), cardName, cost)
	if target != "" {
		details = fmt.Sprintf("%s plays %s on %s (cost %d IP)", playerName(player), cardName, target, cost)
	}
	return GameEvent{
		Turn:    turn,
		Phase:   PhaseMain,
		Player:  player,
		Type:    EventPlay,
		Card:    cardName,
		State:   target,
		Details: details,
	}
}

func NewPlayRefusedEvent(turn int, player int, cardName string, reason, message string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   PhaseMain,
		Player:  player,
		Type:    EventPlayRefused,
		Card:    cardName,
		Details: fmt.Sprintf("%s cannot play %s: %s (%s)", playerName(player), cardName, message, reason),
	}
}

// NewEffectEvent carries one interpreter log line for a resolving card.
func NewEffectEvent(turn int, player int, cardName string, line string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   PhaseMain,
		Player:  player,
		Type:    EventEffect,
		Card:    cardName,
		Details: fmt.Sprintf("[%s] %s", cardName, line),
	}
}

func NewTruthChangeEvent(turn int, player int, oldTruth, newTruth int, cardName string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   PhaseMain,
		Player:  player,
		Type:    EventTruthChange,
		Card:    cardName,
		Details: fmt.Sprintf("Truth: %d%% → %d%% (%s)", oldTruth, newTruth, cardName),
	}
}

func NewIPChangeEvent(turn int, phase string, player int, oldIP, newIP int, reason string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventIPChange,
		Details: fmt.Sprintf("%s IP: %d → %d (%s)", playerName(player), oldIP, newIP, reason),
	}
}

func NewPressureEvent(turn int, player int, cardName, state string, pressure, defense int) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   PhaseMain,
		Player:  player,
		Type:    EventPressure,
		Card:    cardName,
		State:   state,
		Details: fmt.Sprintf("%s pressure on %s: %d/%d", playerName(player), state, pressure, defense),
	}
}

// NewCaptureEvent records a state changing hands. from is the previous
// owner ("neutral", "player" or "ai").
func NewCaptureEvent(turn int, player int, cardName, state, from string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   PhaseMain,
		Player:  player,
		Type:    EventCapture,
		Card:    cardName,
		State:   state,
		Details: fmt.Sprintf("%s captures %s (from %s)", playerName(player), state, from),
	}
}

func NewDiscardEvent(turn int, phase string, player int, cardName string, reason string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventDiscard,
		Card:    cardName,
		Details: fmt.Sprintf("%s discards %s (%s)", playerName(player), cardName, reason),
	}
}

func NewReactionEvent(turn int, player int, cardName string, details string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   PhaseMain,
		Player:  player,
		Type:    EventReaction,
		Card:    cardName,
		Details: details,
	}
}

func NewWarningEvent(turn int, phase string, player int, details string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventWarning,
		Details: "warning: " + details,
	}
}

func NewWinEvent(turn int, phase string, winner int, reason string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   phase,
		Player:  winner,
		Type:    EventWin,
		Details: fmt.Sprintf("%s wins! (%s)", playerName(winner), reason),
	}
}

func NewTieEvent(turn int, reason string) GameEvent {
	return GameEvent{
		Turn:    turn,
		Phase:   PhaseTurnEnd,
		Type:    EventDraw_Tie,
		Details: fmt.Sprintf("Game ends in a draw (%s)", reason),
	}
}
