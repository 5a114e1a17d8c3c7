package web

import (
	"net/http"

	"github.com/peterkuimelis/shadowgov/internal/game"
)

// DeckInfo is the JSON representation of a deck for the /api/decks endpoint.
type DeckInfo struct {
	Number  int      `json:"number"`
	Name    string   `json:"name"`
	Faction string   `json:"faction"`
	Size    int      `json:"size"`
	Cards   []string `json:"cards"` // distinct names in deck order
}

func deckInfos(decks []game.Deck) []DeckInfo {
	out := make([]DeckInfo, 0, len(decks))
	for i, d := range decks {
		di := DeckInfo{
			Number:  i + 1,
			Name:    d.Name,
			Faction: d.Faction.String(),
			Size:    len(d.Cards),
		}
		// Unique card names for display
		seen := make(map[string]bool)
		for _, c := range d.Cards {
			if !seen[c.Name] {
				di.Cards = append(di.Cards, c.Name)
				seen[c.Name] = true
			}
		}
		out = append(out, di)
	}
	return out
}

func (s *Server) handleDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := game.ParseDeckFile(s.decksFile, s.cards)
	if err != nil {
		s.logger.Error().Err(err).Str("file", s.decksFile).Msg("load decks")
		s.writeError(w, http.StatusInternalServerError, "could not load decks")
		return
	}
	s.writeJSON(w, http.StatusOK, deckInfos(decks))
}
