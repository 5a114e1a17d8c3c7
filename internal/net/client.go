package net

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
)

// Client connects to a game server and provides a terminal REPL.
type Client struct {
	conn       net.Conn
	playerName string // "P1" or "P2"
	in         io.Reader
	out        io.Writer
}

// Connect connects to a server, sends the deck choice, and runs the REPL.
func Connect(ctx context.Context, addr string, deckNumber int) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Send join message with deck choice
	enc := json.NewEncoder(conn)
	if err := enc.Encode(ClientMessage{Type: MsgJoin, DeckNumber: deckNumber}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	fmt.Println("Connected! Waiting for game to start...")

	client := &Client{conn: conn, playerName: "P2", in: os.Stdin, out: os.Stdout}
	return client.RunREPL(ctx)
}

// RunREPL reads server messages and handles them interactively.
func (c *Client) RunREPL(ctx context.Context) error {
	dec := json.NewDecoder(c.conn)
	enc := json.NewEncoder(c.conn)
	reader := bufio.NewReader(c.in)

	for {
		var msg ServerMessage
		if err := dec.Decode(&msg); err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		switch msg.Type {
		case MsgNotify:
			c.renderEvent(msg.Event)

		case MsgChooseAction:
			c.renderState(msg.State)
			c.renderActions(msg.Actions)
			idx := c.readChoice(reader, len(msg.Actions))
			if err := enc.Encode(ClientMessage{Type: MsgAction, Index: idx}); err != nil {
				return fmt.Errorf("send action: %w", err)
			}

		case MsgChooseCards:
			c.renderCardChoice(msg.Prompt, msg.Candidates, msg.Min, msg.Max)
			indices := c.readCardIndices(reader, len(msg.Candidates), msg.Min, msg.Max)
			if err := enc.Encode(ClientMessage{Type: MsgCards, Indices: indices}); err != nil {
				return fmt.Errorf("send cards: %w", err)
			}

		case MsgChooseTarget:
			c.renderTargets(msg.Prompt, msg.Targets)
			target := c.readTarget(reader, msg.Targets)
			if err := enc.Encode(ClientMessage{Type: MsgTarget, Target: target}); err != nil {
				return fmt.Errorf("send target: %w", err)
			}

		case MsgGameOver:
			fmt.Fprintln(c.out)
			fmt.Fprintln(c.out, "═══════════════════════════════════")
			fmt.Fprintln(c.out, "          GAME OVER")
			fmt.Fprintln(c.out, "═══════════════════════════════════")
			fmt.Fprintln(c.out, msg.Result)
			fmt.Fprintln(c.out, "═══════════════════════════════════")
			return nil
		}
	}
}

func (c *Client) renderEvent(ev *EventView) {
	if ev == nil {
		return
	}
	// Format like the TextLogger
	fmt.Fprintf(c.out, "T%-3d %-12s| %s\n", ev.Turn, ev.Phase, ev.Details)
}

// truthBar draws truth as a 20-cell gauge.
func truthBar(truth int) string {
	filled := truth / 5
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", 20-filled) + "]"
}

func (c *Client) renderState(sv *StateView) {
	if sv == nil {
		return
	}
	w := c.out

	fmt.Fprintln(w)
	fmt.Fprintln(w, "╔══════════════════════════════════════════════════════╗")
	opp := sv.Opponent
	fmt.Fprintf(w, "║  OPPONENT (%s)  IP: %d  Hand: %d  Deck: %d\n", opp.Faction, opp.IP, opp.HandCount, opp.DeckCount)
	fmt.Fprintf(w, "║  States (%d): %s\n", len(opp.States), strings.Join(opp.States, " "))
	fmt.Fprintln(w, "║──────────────────────────────────────────────────────")
	fmt.Fprintf(w, "║  TRUTH %s %d%%\n", truthBar(sv.Truth), sv.Truth)
	for _, z := range sv.Contested {
		fmt.Fprintf(w, "║    %-3s %-16s def %d  you %d / them %d  (%s)\n",
			z.ID, z.Name, z.Defense, z.YourPressure, z.TheirPressure, z.Owner)
	}
	fmt.Fprintln(w, "║──────────────────────────────────────────────────────")
	you := sv.You
	fmt.Fprintf(w, "║  States (%d): %s\n", len(you.States), strings.Join(you.States, " "))
	status := ""
	if you.BlockAttack {
		status += "  [blocking]"
	}
	if you.Immune {
		status += "  [immune]"
	}
	fmt.Fprintf(w, "║  YOU (%s)  IP: %d  Hand: %d  Deck: %d  Free discards: %d%s\n",
		you.Faction, you.IP, you.HandCount, you.DeckCount, you.FreeDiscards, status)
	fmt.Fprintln(w, "╚══════════════════════════════════════════════════════╝")

	turnInfo := fmt.Sprintf("Turn %d | Round %d | Plays %d", sv.Turn, sv.Round, sv.PlaysMade)
	if sv.IsYourTurn {
		turnInfo += " | Your turn"
	} else {
		turnInfo += " | Opponent's turn"
	}
	fmt.Fprintln(w, turnInfo)

	if len(you.Hand) > 0 {
		fmt.Fprintln(w, "\nHand:")
		for _, cv := range you.Hand {
			fmt.Fprintf(w, "  %s\n", formatCard(cv))
		}
	}
}

func formatCard(cv CardView) string {
	s := fmt.Sprintf("%s (%s %s, %d IP)", cv.Name, cv.Rarity, cv.Type, cv.Cost)
	if cv.Text != "" {
		s += " - " + cv.Text
	}
	return s
}

func (c *Client) renderActions(actions []ActionView) {
	fmt.Fprintln(c.out, "\nActions:")
	for _, a := range actions {
		fmt.Fprintf(c.out, "  %d) %s\n", a.Index+1, a.Desc)
	}
}

func (c *Client) readLine(reader *bufio.Reader) string {
	fmt.Fprint(c.out, "> ")
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func (c *Client) readChoice(reader *bufio.Reader, count int) int {
	for {
		n, err := strconv.Atoi(c.readLine(reader))
		if err != nil || n < 1 || n > count {
			fmt.Fprintf(c.out, "Enter a number between 1 and %d\n", count)
			continue
		}
		return n - 1 // convert to 0-indexed
	}
}

func (c *Client) renderCardChoice(prompt string, candidates []CardView, min, max int) {
	fmt.Fprintf(c.out, "\n%s (select %d", prompt, min)
	if max != min {
		fmt.Fprintf(c.out, "-%d", max)
	}
	fmt.Fprintln(c.out, ")")
	for _, cv := range candidates {
		fmt.Fprintf(c.out, "  %d) %s\n", cv.Index+1, formatCard(cv))
	}
}

func (c *Client) readCardIndices(reader *bufio.Reader, count, min, max int) []int {
	for {
		parts := strings.Fields(c.readLine(reader))

		if len(parts) < min || len(parts) > max {
			fmt.Fprintf(c.out, "Enter %d-%d numbers separated by spaces\n", min, max)
			continue
		}

		var indices []int
		valid := true
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil || n < 1 || n > count {
				fmt.Fprintf(c.out, "Each number must be between 1 and %d\n", count)
				valid = false
				break
			}
			indices = append(indices, n-1) // convert to 0-indexed
		}
		if valid {
			return indices
		}
	}
}

func (c *Client) renderTargets(prompt string, targets []string) {
	fmt.Fprintf(c.out, "\n%s:\n  %s\n", prompt, strings.Join(targets, " "))
}

// readTarget accepts any non-empty answer; the engine resolves names and
// FIPS codes and refuses unknown states.
func (c *Client) readTarget(reader *bufio.Reader, targets []string) string {
	for {
		line := c.readLine(reader)
		if line != "" {
			return line
		}
		fmt.Fprintf(c.out, "Enter a state id, e.g. %s\n", strings.Join(targets[:min(3, len(targets))], ", "))
	}
}
