package game

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/peterkuimelis/shadowgov/internal/card"
)

//go:embed decks.yaml
var defaultDecksYAML []byte

// DeckFile represents the top-level YAML structure.
type DeckFile struct {
	Decks []DeckEntry `yaml:"decks"`
}

// DeckEntry represents a single deck in the YAML file.
type DeckEntry struct {
	Name    string       `yaml:"name"`
	Faction card.Faction `yaml:"faction"`
	Cards   []CardEntry  `yaml:"cards"`
}

// CardEntry represents a card and its count in a deck. Card is a card id
// or name.
type CardEntry struct {
	Card  string `yaml:"card"`
	Count int    `yaml:"count"`
}

// Deck is a resolved deck list.
type Deck struct {
	Name    string
	Faction card.Faction
	Cards   []*card.Card
}

// ParseDecks resolves every deck in a YAML document against db.
func ParseDecks(data []byte, db *card.Database) ([]Deck, error) {
	var df DeckFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parse deck YAML: %w", err)
	}

	decks := make([]Deck, 0, len(df.Decks))
	for _, entry := range df.Decks {
		d := Deck{Name: entry.Name, Faction: entry.Faction}
		for _, ce := range entry.Cards {
			c, ok := db.Lookup(ce.Card)
			if !ok {
				return nil, fmt.Errorf("deck %q: %w: %s", entry.Name, card.ErrNotFound, ce.Card)
			}
			for i := 0; i < ce.Count; i++ {
				d.Cards = append(d.Cards, c)
			}
		}
		decks = append(decks, d)
	}
	return decks, nil
}

// ParseDeckFile reads decks from a YAML file. An empty path selects the
// built-in decks.
func ParseDeckFile(path string, db *card.Database) ([]Deck, error) {
	if path == "" {
		return ParseDecks(defaultDecksYAML, db)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDecks(data, db)
}

// DeckByNumber returns the Nth deck (1-indexed) from the deck file.
func DeckByNumber(path string, n int, db *card.Database) (Deck, error) {
	decks, err := ParseDeckFile(path, db)
	if err != nil {
		return Deck{}, err
	}
	if n < 1 || n > len(decks) {
		return Deck{}, fmt.Errorf("deck %d not found (have %d decks)", n, len(decks))
	}
	return decks[n-1], nil
}

// FactionDeck builds a deck of size cards from every card of faction f in
// db, plus neutral cards, repeating the pool in id order until the deck is
// full. The result is unshuffled.
func FactionDeck(db *card.Database, f card.Faction, size int) (Deck, error) {
	pool := db.Filter(func(c *card.Card) bool {
		return c.Faction == f || c.Faction == card.FactionNeutral
	})
	if len(pool) == 0 {
		pool = baselinePool(f)
	}
	d := Deck{Name: f.String(), Faction: f}
	for i := 0; i < size; i++ {
		d.Cards = append(d.Cards, pool[i%len(pool)])
	}
	return d, nil
}

// baselinePool is one table-cost card per type and rarity, used when a
// card set has nothing for a faction.
func baselinePool(f card.Faction) []*card.Card {
	var pool []*card.Card
	for _, t := range []card.Type{card.TypeAttack, card.TypeMedia, card.TypeZone} {
		for r := card.RarityCommon; r <= card.RarityLegendary; r++ {
			id := fmt.Sprintf("BASE-%s-%s-%s", strings.ToUpper(f.String()[:3]), t.String()[:1], strings.ToUpper(r.String()[:1]))
			name := fmt.Sprintf("Baseline %s (%s)", t, r)
			pool = append(pool, card.BaselineCard(id, name, f, t, r))
		}
	}
	return pool
}
