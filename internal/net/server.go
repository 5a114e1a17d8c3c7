package net

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/rs/zerolog"

	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/game"
	"github.com/peterkuimelis/shadowgov/internal/log"
	"github.com/peterkuimelis/shadowgov/internal/store"
)

// Server hosts a match between the local player and one TCP client.
type Server struct {
	DeckFile string // empty for the built-in decks
	Addr     string
	HostDeck int // host's deck number (1-indexed)
	Cards    *card.Database
	Rules    game.Rules
	Seed     int64
	Diag     zerolog.Logger
	Store    *store.Store // when set, the final state is saved
	Out      io.Writer    // event log; stdout when nil
}

// Run starts the server, waits for a client to join, then runs the match.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	fmt.Fprintf(s.out(), "Waiting for opponent on %s...\n", ln.Addr())
	return s.Serve(ctx, ln, nil)
}

// Serve accepts one joiner on ln and runs the match. The host plays
// through host, or through a terminal REPL when host is nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener, host game.PlayerController) error {
	out := s.out()

	// Accept exactly one connection (the joiner)
	conn, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()

	fmt.Fprintf(out, "Opponent connected from %s\n", conn.RemoteAddr())

	// Read the joiner's deck choice
	dec := json.NewDecoder(conn)
	var joinMsg ClientMessage
	if err := dec.Decode(&joinMsg); err != nil {
		return fmt.Errorf("read join message: %w", err)
	}
	if joinMsg.Type != MsgJoin {
		return fmt.Errorf("expected join message, got %q", joinMsg.Type)
	}
	joinerDeck := joinMsg.DeckNumber
	if joinerDeck == 0 {
		joinerDeck = 2
	}
	hostDeck := s.HostDeck
	if hostDeck == 0 {
		hostDeck = 1
	}

	rules := s.Rules
	if rules == (game.Rules{}) {
		rules = game.DefaultRules()
	}
	db := s.Cards
	if db == nil {
		db = card.Default(rules.Mode)
	}

	hostCards, err := game.DeckByNumber(s.DeckFile, hostDeck, db)
	if err != nil {
		return fmt.Errorf("load host deck: %w", err)
	}
	joinerCards, err := game.DeckByNumber(s.DeckFile, joinerDeck, db)
	if err != nil {
		return fmt.Errorf("load joiner deck: %w", err)
	}

	fmt.Fprintf(out, "Host: %s (%d cards, %s)\n", hostCards.Name, len(hostCards.Cards), hostCards.Faction)
	fmt.Fprintf(out, "Joiner: %s (%d cards, %s)\n", joinerCards.Name, len(joinerCards.Cards), joinerCards.Faction)

	errCh := make(chan error, 2)

	// Without an injected host controller, the host plays through a local
	// pipe to the same REPL the joiner uses.
	var hostCtrl *NetworkController
	if host == nil {
		hostConn, hostServerConn := net.Pipe()
		defer hostConn.Close()
		hostCtrl = NewNetworkController(hostServerConn, game.SidePlayer)
		host = hostCtrl
		go func() {
			client := &Client{conn: hostConn, playerName: "P1", in: os.Stdin, out: out}
			errCh <- client.RunREPL(ctx)
		}()
	}
	// Player 0 = host, Player 1 = joiner
	joinerCtrl := &NetworkController{conn: conn, enc: json.NewEncoder(conn), dec: dec, player: game.SideAI}

	m, err := game.NewMatch(game.MatchConfig{
		Deck0:    hostCards.Cards,
		Deck1:    joinerCards.Cards,
		Faction0: hostCards.Faction,
		Faction1: joinerCards.Faction,
		Rules:    rules,
		Seed:     s.Seed,
		Logger:   log.NewTextLogger(out),
		Diag:     s.Diag,
	}, host, joinerCtrl)
	if err != nil {
		return fmt.Errorf("new match: %w", err)
	}

	go func() {
		winner, err := m.Run(ctx)
		if err != nil {
			errCh <- fmt.Errorf("match error: %w", err)
			return
		}
		if s.Store != nil {
			if _, err := s.Store.Save(ctx, m.State); err != nil {
				s.Diag.Error().Err(err).Msg("save finished match")
			} else {
				fmt.Fprintf(out, "Saved as %s\n", m.State.ID)
			}
		}

		_ = joinerCtrl.SendGameOver(winner, m.State.Result)
		if hostCtrl != nil {
			_ = hostCtrl.SendGameOver(winner, m.State.Result)
		}
		errCh <- nil
	}()

	// Wait for either the match or the REPL to finish
	return <-errCh
}

func (s *Server) out() io.Writer {
	if s.Out == nil {
		return os.Stdout
	}
	return s.Out
}
