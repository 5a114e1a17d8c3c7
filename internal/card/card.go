// Package card defines card definitions and the builder that turns raw
// authored card data into validated, immutable cards.
package card

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// --- Enums ---

type Type int

const (
	TypeAttack Type = iota
	TypeMedia
	TypeZone
)

func (t Type) String() string {
	switch t {
	case TypeAttack:
		return "ATTACK"
	case TypeMedia:
		return "MEDIA"
	case TypeZone:
		return "ZONE"
	default:
		return "UNKNOWN"
	}
}

// ParseType accepts the canonical names in any case. The legacy DEFENSIVE
// type is folded into MEDIA.
func ParseType(s string) (Type, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ATTACK":
		return TypeAttack, true
	case "MEDIA", "DEFENSIVE":
		return TypeMedia, true
	case "ZONE":
		return TypeZone, true
	}
	return 0, false
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Type) UnmarshalText(b []byte) error {
	v, ok := ParseType(string(b))
	if !ok {
		return fmt.Errorf("unknown card type %q", b)
	}
	*t = v
	return nil
}

type Faction int

const (
	FactionTruth Faction = iota
	FactionGovernment
	FactionNeutral
)

func (f Faction) String() string {
	switch f {
	case FactionTruth:
		return "truth"
	case FactionGovernment:
		return "government"
	default:
		return "neutral"
	}
}

func ParseFaction(s string) (Faction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "truth":
		return FactionTruth, true
	case "government":
		return FactionGovernment, true
	case "neutral":
		return FactionNeutral, true
	}
	return 0, false
}

func (f Faction) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *Faction) UnmarshalText(b []byte) error {
	v, ok := ParseFaction(string(b))
	if !ok {
		return fmt.Errorf("unknown faction %q", b)
	}
	*f = v
	return nil
}

type Rarity int

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityLegendary
)

func (r Rarity) String() string {
	switch r {
	case RarityCommon:
		return "common"
	case RarityUncommon:
		return "uncommon"
	case RarityRare:
		return "rare"
	case RarityLegendary:
		return "legendary"
	default:
		return "unknown"
	}
}

func ParseRarity(s string) (Rarity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "common":
		return RarityCommon, true
	case "uncommon":
		return RarityUncommon, true
	case "rare":
		return RarityRare, true
	case "legendary":
		return RarityLegendary, true
	}
	return 0, false
}

func (r Rarity) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Rarity) UnmarshalText(b []byte) error {
	v, ok := ParseRarity(string(b))
	if !ok {
		return fmt.Errorf("unknown rarity %q", b)
	}
	*r = v
	return nil
}

// --- Card ---

// Target describes what a card must be pointed at when played.
type Target struct {
	Scope string `json:"scope" yaml:"scope"`
	Count int    `json:"count" yaml:"count"`
}

// IsSingleState reports whether the target is exactly one state.
func (t *Target) IsSingleState() bool {
	return t != nil && t.Scope == "state" && t.Count == 1
}

// Card is an immutable card definition. Cards are only produced by a Builder,
// so Effects always matches Type.
type Card struct {
	ID      string
	Name    string
	Faction Faction
	Type    Type
	Rarity  Rarity
	Cost    int
	Effects Effects
	Target  *Target
	Text    string
	Flavor  string
	Tags    []string
}

// RequiresTarget reports whether the card needs a target state to be played.
func (c *Card) RequiresTarget() bool {
	return c.Type == TypeZone
}

func (c *Card) String() string {
	return fmt.Sprintf("%s [%s %s %s, %d IP]", c.Name, c.Faction, c.Rarity, c.Type, c.Cost)
}

// Raw returns the card in its authored map form. Building the result again
// yields an equivalent card.
func (c *Card) Raw() map[string]any {
	m := map[string]any{
		"id":      c.ID,
		"name":    c.Name,
		"faction": c.Faction.String(),
		"type":    c.Type.String(),
		"rarity":  c.Rarity.String(),
		"cost":    c.Cost,
	}
	if c.Effects != nil {
		m["effects"] = RawEffects(c.Effects)
	}
	if c.Target != nil {
		m["target"] = map[string]any{"scope": c.Target.Scope, "count": c.Target.Count}
	}
	if c.Text != "" {
		m["text"] = c.Text
	}
	if c.Flavor != "" {
		m["flavor"] = c.Flavor
	}
	if len(c.Tags) > 0 {
		tags := make([]any, len(c.Tags))
		for i, t := range c.Tags {
			tags[i] = t
		}
		m["tags"] = tags
	}
	return m
}

func (c *Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Raw())
}

// UnmarshalJSON rebuilds the card through the extended builder, so a card
// read back from a snapshot is validated exactly like one loaded from data.
func (c *Card) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode card: %w", err)
	}
	built, issues := Builder{Mode: ModeExtended}.Build(raw)
	if len(issues) > 0 {
		return &IssuesError{CardID: fmt.Sprint(raw["id"]), Issues: issues}
	}
	*c = *built
	return nil
}
