package mcp

import (
	"context"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/game"
	sgnet "github.com/peterkuimelis/shadowgov/internal/net"
	"github.com/peterkuimelis/shadowgov/internal/store"
)

// Options are the process-wide settings the tools start games with.
type Options struct {
	Rules     game.Rules
	Cards     *card.Database
	DecksFile string // empty for the built-in decks
	Addr      string // listen address for a human opponent
	Seed      int64  // 0 picks a random seed per game
	Diag      zerolog.Logger
	Store     *store.Store
}

// Handler owns the single game session of a stdio process.
type Handler struct {
	opts Options

	mu      sync.Mutex
	session *GameSession
}

// NewHandler fills in default rules and cards.
func NewHandler(opts Options) *Handler {
	if opts.Rules == (game.Rules{}) {
		opts.Rules = game.DefaultRules()
	}
	if opts.Cards == nil {
		opts.Cards = card.Default(opts.Rules.Mode)
	}
	return &Handler{opts: opts}
}

// RegisterTools adds all game tools to the MCP server.
func RegisterTools(s *server.MCPServer, opts Options) *Handler {
	h := NewHandler(opts)
	s.AddTool(startGameTool(), h.handleStartGame)
	s.AddTool(playCardTool(), h.handlePlayCard)
	s.AddTool(discardCardsTool(), h.handleDiscardCards)
	s.AddTool(endTurnTool(), h.handleEndTurn)
	s.AddTool(getGameStateTool(), h.handleGetGameState)
	s.AddTool(checkVictoryTool(), h.handleCheckVictory)
	if opts.Store != nil {
		s.AddTool(listGamesTool(), h.handleListGames)
	}
	return h
}

// --- Tool definitions ---

func startGameTool() mcp.Tool {
	return mcp.NewTool("start_game",
		mcp.WithDescription("Start a new Shadow Government vs Truth Seekers match. Returns the initial state and the first pending decision. "+
			"With opponent 'human', the other player connects via `sgts join --addr <host:port> --deck N` and this call blocks until they do."),
		mcp.WithNumber("ai_deck", mcp.Description("Deck number for the AI (1-indexed from the deck file, default 1)")),
		mcp.WithNumber("ai_player", mcp.Description("Which player the AI is: 0 = goes first, 1 = goes second")),
		mcp.WithString("opponent", mcp.Description("'random' (built-in bot, default) or 'human' (TCP join)"), mcp.Enum(OpponentRandom, OpponentHuman)),
		mcp.WithNumber("seed", mcp.Description("RNG seed for a reproducible match (0 = random)")),
	)
}

func playCardTool() mcp.Tool {
	return mcp.NewTool("play_card",
		mcp.WithDescription("Play a card from your hand. ZONE cards need a target state (abbreviation, FIPS code or name). "+
			"Refused plays come back as a PlayRefused event with a reason code."),
		mcp.WithString("card_id", mcp.Required(), mcp.Description("Id of the card in your hand")),
		mcp.WithString("target", mcp.Description("Target state for ZONE cards")),
	)
}

func discardCardsTool() mcp.Tool {
	return mcp.NewTool("discard_cards",
		mcp.WithDescription("Discard cards from your hand. The first discard each turn is free; each extra one costs IP."),
		mcp.WithString("card_ids", mcp.Required(), mcp.Description("Card ids separated by spaces or commas")),
	)
}

func endTurnTool() mcp.Tool {
	return mcp.NewTool("end_turn",
		mcp.WithDescription("End your turn. Returns the opponent's events and your next decision."),
	)
}

func getGameStateTool() mcp.Tool {
	return mcp.NewTool("get_game_state",
		mcp.WithDescription("Get the current game state, accumulated events, and pending decision without submitting a response. Read-only."),
	)
}

func checkVictoryTool() mcp.Tool {
	return mcp.NewTool("check_victory",
		mcp.WithDescription("Evaluate the victory conditions (10 states, truth threshold, 200 IP) on the current state. Read-only."),
	)
}

func listGamesTool() mcp.Tool {
	return mcp.NewTool("list_games",
		mcp.WithDescription("List finished games saved in the local database."),
	)
}

// --- Tool handlers ---

func (h *Handler) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.session != nil && !h.session.isOver() {
		return mcp.NewToolResultError("A game is already running. Only one game at a time is supported."), nil
	}

	aiDeck := request.GetInt("ai_deck", 1)
	aiPlayer := request.GetInt("ai_player", 0)
	opponent := request.GetString("opponent", OpponentRandom)
	seed := int64(request.GetInt("seed", 0))
	if seed == 0 {
		seed = h.opts.Seed
	}

	if aiDeck < 1 {
		return mcp.NewToolResultError("ai_deck must be >= 1"), nil
	}
	if aiPlayer != 0 && aiPlayer != 1 {
		return mcp.NewToolResultError("ai_player must be 0 or 1"), nil
	}

	sess, err := NewGameSession(ctx, SessionConfig{
		Rules:     h.opts.Rules,
		Cards:     h.opts.Cards,
		DecksFile: h.opts.DecksFile,
		AIDeck:    aiDeck,
		AIPlayer:  game.Side(aiPlayer),
		Opponent:  opponent,
		Addr:      h.opts.Addr,
		Seed:      seed,
		Diag:      h.opts.Diag,
		Store:     h.opts.Store,
	})
	if err != nil {
		return mcp.NewToolResultErrorf("Failed to start game: %v", err), nil
	}
	h.session = sess

	resp, err := sess.waitForPending(ctx)
	if err != nil {
		return mcp.NewToolResultErrorf("Error waiting for first decision: %v", err), nil
	}
	if opponent == OpponentHuman {
		resp.Port = h.opts.Addr
	}
	return result(resp), nil
}

// aiPending returns the AI's open decision, or a tool error explaining why
// there is none.
func (h *Handler) aiPending() (*PendingDecision, *mcp.CallToolResult) {
	if h.session == nil {
		return nil, mcp.NewToolResultError("No game is running. Use start_game first.")
	}
	pending := h.session.currentPending
	switch {
	case pending == nil:
		return nil, mcp.NewToolResultError("No pending decision.")
	case pending.Type == DecisionGameOver:
		return nil, mcp.NewToolResultError("The game is over. Use start_game for a new one.")
	case pending.Player != h.session.aiPlayer:
		return nil, mcp.NewToolResultError("Waiting for the opponent to respond via their terminal.")
	}
	return pending, nil
}

// respond hands the action to the engine and waits for the next decision.
func (h *Handler) respond(ctx context.Context, a game.Action) (*mcp.CallToolResult, error) {
	sess := h.session
	sess.aiCtrl.responseCh <- a

	resp, err := sess.waitForPending(ctx)
	if err != nil {
		return mcp.NewToolResultErrorf("Error waiting for next decision: %v", err), nil
	}
	return result(resp), nil
}

func (h *Handler) handlePlayCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pending, errResult := h.aiPending()
	if errResult != nil {
		return errResult, nil
	}
	cardID := strings.TrimSpace(request.GetString("card_id", ""))
	if cardID == "" {
		return mcp.NewToolResultError("card_id is required"), nil
	}

	me := pending.snap.Player(h.session.aiPlayer)
	c := &card.Card{ID: cardID, Name: cardID} // refused as card-not-in-hand
	if i := me.HandIndex(cardID); i >= 0 {
		c = me.Hand[i]
	}
	return h.respond(ctx, game.Action{
		Type:   game.ActionPlayCard,
		Player: h.session.aiPlayer,
		Card:   c,
		Target: strings.TrimSpace(request.GetString("target", "")),
	})
}

func (h *Handler) handleDiscardCards(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, errResult := h.aiPending(); errResult != nil {
		return errResult, nil
	}
	ids := strings.FieldsFunc(request.GetString("card_ids", ""), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(ids) == 0 {
		return mcp.NewToolResultError("card_ids must name at least one card"), nil
	}
	return h.respond(ctx, game.Action{
		Type:     game.ActionDiscard,
		Player:   h.session.aiPlayer,
		Discards: ids,
	})
}

func (h *Handler) handleEndTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, errResult := h.aiPending(); errResult != nil {
		return errResult, nil
	}
	return h.respond(ctx, game.Action{Type: game.ActionEndTurn, Player: h.session.aiPlayer})
}

func (h *Handler) handleGetGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.session == nil {
		return mcp.NewToolResultError("No game is running. Use start_game first."), nil
	}
	sess := h.session

	sess.mu.Lock()
	resp := &ToolResponse{
		GameID:   sess.ID(),
		GameOver: sess.gameOver,
		Winner:   sess.winner,
		Result:   sess.result,
	}
	sess.mu.Unlock()
	resp.Events = sess.drainEvents()
	resp.State = sgnet.BuildStateView(sess.snapshot(), sess.aiPlayer)

	if p := sess.currentPending; p != nil && p.Type != DecisionGameOver {
		resp.Pending = &PendingView{
			Type:      p.Type,
			ForPlayer: sess.playerLabel(p.Player),
			Actions:   p.Actions,
		}
	}
	return result(resp), nil
}

// VictoryView is the check_victory response.
type VictoryView struct {
	GameID   string `json:"game_id"`
	GameOver bool   `json:"game_over"`
	Winner   int    `json:"winner"` // -1 when nobody has won
	Reason   string `json:"reason,omitempty"`
	Truth    int    `json:"truth"`
	States   [2]int `json:"states"`
	IP       [2]int `json:"ip"`
}

func (h *Handler) handleCheckVictory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.session == nil {
		return mcp.NewToolResultError("No game is running. Use start_game first."), nil
	}
	gs := h.session.snapshot()
	v := game.NewEngine(h.opts.Rules).CheckVictory(gs)

	view := VictoryView{
		GameID:   h.session.ID(),
		GameOver: gs.Over,
		Winner:   -1,
		Reason:   v.Reason,
		Truth:    gs.Truth,
	}
	if v.Won() {
		view.Winner = int(*v.Winner)
	} else if gs.Over {
		view.Reason = gs.Result
	}
	for i, p := range gs.Players {
		view.States[i] = len(p.States)
		view.IP[i] = p.IP
	}
	return mcp.NewToolResultStructured(view, respondJSON(view)), nil
}

func (h *Handler) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	games, err := h.opts.Store.List(ctx)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("list games", err), nil
	}
	if games == nil {
		games = []store.Summary{}
	}
	return mcp.NewToolResultStructured(games, respondJSON(games)), nil
}

func result(resp *ToolResponse) *mcp.CallToolResult {
	return mcp.NewToolResultStructured(resp, respondJSON(resp))
}
