package card

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

//go:embed cards.yaml
var defaultCardsYAML []byte

// ErrNotFound is returned when a card reference matches nothing.
var ErrNotFound = errors.New("card not found")

// cardFile is the on-disk layout of a card set. Sections only group cards
// for authors; the builder mode decides what is accepted.
type cardFile struct {
	Cards    []map[string]any `yaml:"cards"`
	Core     []map[string]any `yaml:"core"`
	Expanded []map[string]any `yaml:"expanded"`
}

// Rejected records a card that did not pass validation.
type Rejected struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Issues []Issue `json:"issues"`
}

// Database is a read-only set of validated cards.
type Database struct {
	cards    []*Card
	byID     map[string]*Card
	Rejected []Rejected
}

// Load parses a YAML card set. Invalid cards are left out and listed in
// Rejected; a syntax error or a duplicate id fails the whole load.
func Load(data []byte, b Builder, logger zerolog.Logger) (*Database, error) {
	var f cardFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse card YAML: %w", err)
	}
	logger = logger.With().Str("component", "carddb").Str("mode", b.Mode.String()).Logger()

	raws := append(append(append([]map[string]any{}, f.Cards...), f.Core...), f.Expanded...)
	db := &Database{byID: make(map[string]*Card, len(raws))}
	for _, raw := range raws {
		c, issues := b.Build(raw)
		if len(issues) > 0 {
			id, _ := raw["id"].(string)
			name, _ := raw["name"].(string)
			db.Rejected = append(db.Rejected, Rejected{ID: id, Name: name, Issues: issues})
			logger.Warn().Str("card", id).Int("issues", len(issues)).Msg(issues[0].String())
			continue
		}
		if _, dup := db.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %q", c.ID)
		}
		db.byID[c.ID] = c
		db.cards = append(db.cards, c)
	}
	logger.Debug().Int("cards", len(db.cards)).Int("rejected", len(db.Rejected)).Msg("card set loaded")
	return db, nil
}

// LoadFile reads a YAML card set from disk.
func LoadFile(path string, b Builder, logger zerolog.Logger) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data, b, logger)
}

// Default returns the built-in card set. Strict mode yields only the core
// cards; extended mode adds the expanded ones.
func Default(mode Mode) *Database {
	db, err := Load(defaultCardsYAML, Builder{Mode: mode}, zerolog.Nop())
	if err != nil {
		panic(fmt.Sprintf("built-in card set: %v", err))
	}
	if mode == ModeExtended && len(db.Rejected) > 0 {
		panic(fmt.Sprintf("built-in card set: %v", db.Err()))
	}
	return db
}

// Err joins the issues of every rejected card, or returns nil.
func (db *Database) Err() error {
	var errs []error
	for _, r := range db.Rejected {
		errs = append(errs, &IssuesError{CardID: r.ID, Issues: r.Issues})
	}
	return errors.Join(errs...)
}

// Cards returns the cards in load order.
func (db *Database) Cards() []*Card {
	return db.cards
}

func (db *Database) Len() int {
	return len(db.cards)
}

// Lookup finds a card by id, falling back to a case-insensitive match on
// id or name.
func (db *Database) Lookup(ref string) (*Card, bool) {
	if c, ok := db.byID[ref]; ok {
		return c, true
	}
	for _, c := range db.cards {
		if strings.EqualFold(c.ID, ref) || strings.EqualFold(c.Name, ref) {
			return c, true
		}
	}
	return nil, false
}

// Filter returns the cards matching keep, sorted by id.
func (db *Database) Filter(keep func(*Card) bool) []*Card {
	var out []*Card
	for _, c := range db.cards {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
