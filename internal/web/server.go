package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/peterkuimelis/shadowgov/internal/capture"
	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/store"
)

//go:embed static
var staticFiles embed.FS

// CardInfo is the JSON representation of a card for the /api/cards endpoint.
type CardInfo struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Faction string   `json:"faction"`
	Type    string   `json:"type"`
	Rarity  string   `json:"rarity"`
	Cost    int      `json:"cost"`
	Text    string   `json:"text,omitempty"`
	Flavor  string   `json:"flavor,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Target  string   `json:"target,omitempty"`
}

// StateInfo is one row of /api/states.
type StateInfo struct {
	ID      string `json:"id"`
	FIPS    string `json:"fips"`
	Name    string `json:"name"`
	Defense int    `json:"defense"`
}

// Options configure the web server.
type Options struct {
	Cards     *card.Database
	DecksFile string       // empty for the built-in decks
	Store     *store.Store // nil disables /api/games
	Logger    zerolog.Logger
}

// Server is the web UI server: static files, a read-only JSON API and a
// WebSocket bridge to a TCP game server.
type Server struct {
	cards     *card.Database
	decksFile string
	store     *store.Store
	logger    zerolog.Logger
	mux       *http.ServeMux
}

// NewServer creates a new web server.
func NewServer(opts Options) (*Server, error) {
	if opts.Cards == nil {
		return nil, errors.New("web: card database is required")
	}
	s := &Server{
		cards:     opts.Cards,
		decksFile: opts.DecksFile,
		store:     opts.Store,
		logger:    opts.Logger.With().Str("component", "web").Logger(),
		mux:       http.NewServeMux(),
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) setupRoutes() error {
	// Embedded static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("static files: %w", err)
	}

	// Serve index.html at root
	s.mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		f, err := staticFS.Open("index.html")
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer f.Close()
		_, _ = io.Copy(w, f)
	})

	// Static CSS/JS
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// API endpoints
	s.mux.HandleFunc("GET /api/cards", s.handleCards)
	s.mux.HandleFunc("GET /api/decks", s.handleDecks)
	s.mux.HandleFunc("GET /api/states", s.handleStates)
	s.mux.HandleFunc("GET /api/games", s.handleGames)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleGame)
	s.mux.HandleFunc("DELETE /api/games/{id}", s.handleDeleteGame)

	// WebSocket proxy
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	faction := r.URL.Query().Get("faction")
	cards := []CardInfo{}
	for _, c := range s.cards.Cards() {
		if faction != "" && c.Faction.String() != faction {
			continue
		}
		ci := CardInfo{
			ID:      c.ID,
			Name:    c.Name,
			Faction: c.Faction.String(),
			Type:    c.Type.String(),
			Rarity:  c.Rarity.String(),
			Cost:    c.Cost,
			Text:    c.Text,
			Flavor:  c.Flavor,
			Tags:    c.Tags,
		}
		if c.RequiresTarget() {
			ci.Target = "state"
		}
		cards = append(cards, ci)
	}
	s.writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	states := capture.USAStates()
	out := make([]StateInfo, 0, len(states))
	for _, st := range states {
		out = append(out, StateInfo{ID: st.ID, FIPS: st.FIPS, Name: st.Name, Defense: st.Defense})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "saved games are disabled")
		return
	}
	games, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list games")
		s.writeError(w, http.StatusInternalServerError, "could not list games")
		return
	}
	if games == nil {
		games = []store.Summary{}
	}
	s.writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "saved games are disabled")
		return
	}
	id := r.PathValue("id")
	gs, _, err := s.store.Load(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("game %s not found", id))
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("game", id).Msg("load game")
		s.writeError(w, http.StatusInternalServerError, "could not load game")
		return
	}
	s.writeJSON(w, http.StatusOK, gs)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusNotFound, "saved games are disabled")
		return
	}
	id := r.PathValue("id")
	err := s.store.Delete(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("game %s not found", id))
	case err != nil:
		s.logger.Error().Err(err).Str("game", id).Msg("delete game")
		s.writeError(w, http.StatusInternalServerError, "could not delete game")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow connections from any origin
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket accept")
		return
	}
	defer wsConn.CloseNow()

	ctx := r.Context()

	// Read initial connect message from browser
	_, connectData, err := wsConn.Read(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket read connect")
		return
	}

	var connectMsg struct {
		Type       string `json:"type"`
		Addr       string `json:"addr"`
		DeckNumber int    `json:"deck_number"`
	}
	if err := json.Unmarshal(connectData, &connectMsg); err != nil || connectMsg.Type != "connect" {
		wsConn.Close(websocket.StatusPolicyViolation, "expected connect message")
		return
	}

	// Open TCP connection to game server
	d := net.Dialer{Timeout: 5 * time.Second}
	tcpConn, err := d.DialContext(ctx, "tcp", connectMsg.Addr)
	if err != nil {
		errMsg, _ := json.Marshal(map[string]string{
			"type":   "error",
			"result": fmt.Sprintf("Could not connect to game server at %s: %v", connectMsg.Addr, err),
		})
		_ = wsConn.Write(ctx, websocket.MessageText, errMsg)
		wsConn.Close(websocket.StatusNormalClosure, "connection failed")
		return
	}
	defer tcpConn.Close()

	// Send join message over TCP
	joinMsg, _ := json.Marshal(map[string]any{
		"type":        "join",
		"deck_number": connectMsg.DeckNumber,
	})
	joinMsg = append(joinMsg, '\n')
	if _, err := tcpConn.Write(joinMsg); err != nil {
		s.logger.Warn().Err(err).Msg("tcp write join")
		return
	}

	done := make(chan struct{})

	// TCP → WebSocket (server messages to browser)
	go func() {
		defer close(done)
		dec := json.NewDecoder(tcpConn)
		for {
			var msg json.RawMessage
			if err := dec.Decode(&msg); err != nil {
				if err != io.EOF {
					s.logger.Debug().Err(err).Msg("tcp read")
				}
				return
			}
			if err := wsConn.Write(ctx, websocket.MessageText, msg); err != nil {
				s.logger.Debug().Err(err).Msg("websocket write")
				return
			}
		}
	}()

	// WebSocket → TCP (browser responses to server)
	go func() {
		for {
			_, data, err := wsConn.Read(ctx)
			if err != nil {
				return
			}
			data = append(data, '\n')
			if _, err := tcpConn.Write(data); err != nil {
				s.logger.Debug().Err(err).Msg("tcp write")
				return
			}
		}
	}()

	<-done
	wsConn.Close(websocket.StatusNormalClosure, "game ended")
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
