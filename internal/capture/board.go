// Package capture tracks per-state pressure and ownership. Ownership of a
// state changes only through Board.ApplyPressure.
package capture

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultDefense is used for states defined without a defense value.
const DefaultDefense = 3

// Side is one of the two players.
type Side int

const (
	SidePlayer Side = iota
	SideAI
)

func (s Side) String() string {
	if s == SidePlayer {
		return "player"
	}
	return "ai"
}

// Other returns the opposing side.
func (s Side) Other() Side {
	return 1 - s
}

func (s Side) Valid() bool {
	return s == SidePlayer || s == SideAI
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "player", "p1", "0":
		*s = SidePlayer
	case "ai", "p2", "1":
		*s = SideAI
	default:
		return fmt.Errorf("unknown side %q", b)
	}
	return nil
}

// Owner is who controls a state.
type Owner int

const (
	OwnerNeutral Owner = iota
	OwnerPlayer
	OwnerAI
)

// OwnerOf converts a side into the matching owner.
func OwnerOf(s Side) Owner {
	if s == SidePlayer {
		return OwnerPlayer
	}
	return OwnerAI
}

// Side returns the side that owns the state, or false for neutral.
func (o Owner) Side() (Side, bool) {
	switch o {
	case OwnerPlayer:
		return SidePlayer, true
	case OwnerAI:
		return SideAI, true
	}
	return 0, false
}

func (o Owner) String() string {
	switch o {
	case OwnerPlayer:
		return "player"
	case OwnerAI:
		return "ai"
	default:
		return "neutral"
	}
}

func (o Owner) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Owner) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "player":
		*o = OwnerPlayer
	case "ai":
		*o = OwnerAI
	case "neutral", "":
		*o = OwnerNeutral
	default:
		return fmt.Errorf("unknown owner %q", b)
	}
	return nil
}

// Pressure is the accumulated pressure of each side on one state.
type Pressure struct {
	Player int `json:"player" yaml:"player"`
	AI     int `json:"ai" yaml:"ai"`
}

func (p Pressure) Of(s Side) int {
	if s == SidePlayer {
		return p.Player
	}
	return p.AI
}

func (p *Pressure) add(s Side, n int) {
	if s == SidePlayer {
		p.Player += n
	} else {
		p.AI += n
	}
}

// State is one capturable territory.
type State struct {
	ID       string   `json:"id" yaml:"id"`
	FIPS     string   `json:"fips,omitempty" yaml:"fips"`
	Name     string   `json:"name" yaml:"name"`
	Defense  int      `json:"defense" yaml:"defense"`
	Owner    Owner    `json:"owner" yaml:"owner"`
	Pressure Pressure `json:"pressure" yaml:"pressure"`
}

// Aliases lists the other identifiers the state answers to.
func (s *State) Aliases() []string {
	var out []string
	if s.FIPS != "" {
		out = append(out, s.FIPS)
	}
	if s.Name != "" {
		out = append(out, s.Name)
	}
	return out
}

// Board holds every state in play, keyed by id.
type Board struct {
	States map[string]*State `json:"states"`
}

// NewBoard copies states into a fresh board with zero pressure.
func NewBoard(states []State) *Board {
	b := &Board{States: make(map[string]*State, len(states))}
	for _, s := range states {
		s := s
		if s.Defense <= 0 {
			s.Defense = DefaultDefense
		}
		s.Pressure = Pressure{}
		b.States[s.ID] = &s
	}
	return b
}

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	c := &Board{States: make(map[string]*State, len(b.States))}
	for id, s := range b.States {
		cp := *s
		c.States[id] = &cp
	}
	return c
}

// IDs returns the state ids in sorted order.
func (b *Board) IDs() []string {
	ids := make([]string, 0, len(b.States))
	for id := range b.States {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve finds a state by exact id, then case-insensitively by id, FIPS
// code or name. exact is false when the fallback matched, so callers can
// warn about drifted identifiers.
func (b *Board) Resolve(ref string) (s *State, exact bool) {
	if s, ok := b.States[ref]; ok {
		return s, true
	}
	ref = strings.TrimSpace(ref)
	for _, id := range b.IDs() {
		s := b.States[id]
		if strings.EqualFold(s.ID, ref) || (s.FIPS != "" && s.FIPS == ref) || strings.EqualFold(s.Name, ref) {
			return s, false
		}
	}
	return nil, false
}

// OwnedBy returns the sorted ids of the states owned by o.
func (b *Board) OwnedBy(o Owner) []string {
	var out []string
	for _, id := range b.IDs() {
		if b.States[id].Owner == o {
			out = append(out, id)
		}
	}
	return out
}

// Result describes one application of pressure.
type Result struct {
	StateID string
	Side    Side
	// Pressure is the acting side's pressure after the add and before any
	// capture reset.
	Pressure int
	Defense  int
	Captured bool
	From     Owner
}

// ApplyPressure adds delta pressure for side on the state id. bonus is
// added to the state's defense (the current owner's zone defense bonus).
// When the side's pressure reaches the effective defense the state flips
// to side and both pressures reset to zero.
func (b *Board) ApplyPressure(id string, side Side, delta, bonus int) (Result, error) {
	s, ok := b.States[id]
	if !ok {
		return Result{}, fmt.Errorf("unknown state %q", id)
	}
	if delta < 0 {
		return Result{}, fmt.Errorf("negative pressure %d on %s", delta, id)
	}
	s.Pressure.add(side, delta)
	r := Result{
		StateID:  id,
		Side:     side,
		Pressure: s.Pressure.Of(side),
		Defense:  s.Defense + bonus,
		From:     s.Owner,
	}
	if r.Pressure >= r.Defense {
		s.Owner = OwnerOf(side)
		s.Pressure = Pressure{}
		r.Captured = true
	}
	return r, nil
}
