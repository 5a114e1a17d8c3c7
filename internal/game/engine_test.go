package game

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/peterkuimelis/shadowgov/internal/capture"
	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/log"
)

func eventsOfType(events []log.GameEvent, t log.EventType) []log.GameEvent {
	var out []log.GameEvent
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// TestAttackDrainsOpponent: P1 at 10 IP plays an ATTACK costing 2 that
// drains 3; P1 ends at 8 and P2 loses 3.
func TestAttackDrainsOpponent(t *testing.T) {
	raid := attackCard("T-A-1", "Leak Raid", 2, 3)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{raid}, nil)

	ns, res := eng.PlayCard(gs, SidePlayer, "T-A-1", "")
	if !res.Success {
		t.Fatalf("play refused: %s (%s)", res.Reason, res.Message)
	}
	if ns.Players[0].IP != 8 {
		t.Errorf("P1 IP = %d, want 8", ns.Players[0].IP)
	}
	if ns.Players[1].IP != 7 {
		t.Errorf("P2 IP = %d, want 7", ns.Players[1].IP)
	}
	if ns.PlaysThisTurn != 1 {
		t.Errorf("PlaysThisTurn = %d, want 1", ns.PlaysThisTurn)
	}
	if len(ns.Players[0].Hand) != 4 || len(ns.Players[0].Discard) != 1 {
		t.Errorf("hand %d / discard %d, want 4 / 1", len(ns.Players[0].Hand), len(ns.Players[0].Discard))
	}

	// The input state is untouched.
	if gs.Players[0].IP != 10 || gs.Players[1].IP != 10 || len(gs.Players[0].Hand) != 5 || gs.PlaysThisTurn != 0 {
		t.Error("PlayCard mutated its input state")
	}
}

func TestDrainFloorsAtZero(t *testing.T) {
	raid := attackCard("T-A-1", "Leak Raid", 2, 3)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{raid}, nil)
	gs.Players[1].IP = 1

	ns, res := eng.PlayCard(gs, SidePlayer, "T-A-1", "")
	if !res.Success {
		t.Fatalf("play refused: %s", res.Reason)
	}
	if ns.Players[1].IP != 0 {
		t.Errorf("P2 IP = %d, want 0", ns.Players[1].IP)
	}
}

// TestZoneCaptureAtDefense: pressure equal to the state's defense
// captures it, resets pressure and lists it under the capturer.
func TestZoneCaptureAtDefense(t *testing.T) {
	push := zoneCard("T-Z-1", "Town Hall Push", 4, 3)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{push}, nil)

	ns, res := eng.PlayCard(gs, SidePlayer, "T-Z-1", "OH")
	if !res.Success {
		t.Fatalf("play refused: %s (%s)", res.Reason, res.Message)
	}
	if res.Capture == nil || !res.Capture.Captured {
		t.Fatal("expected OH to be captured")
	}
	oh := ns.Board.States["OH"]
	if oh.Owner != capture.OwnerPlayer {
		t.Errorf("OH owner = %s, want player", oh.Owner)
	}
	if oh.Pressure != (capture.Pressure{}) {
		t.Errorf("OH pressure = %+v, want reset", oh.Pressure)
	}
	if !slices.Equal(ns.Players[0].States, []string{"OH"}) {
		t.Errorf("P1 states = %v, want [OH]", ns.Players[0].States)
	}
	if len(eventsOfType(res.Events, log.EventCapture)) != 1 {
		t.Error("expected one capture event")
	}
	if gs.Board.States["OH"].Owner != capture.OwnerNeutral {
		t.Error("PlayCard mutated the input board")
	}
}

func TestPressureBelowDefenseAccumulates(t *testing.T) {
	nudge := zoneCard("T-Z-1", "Nudge", 1, 1)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{nudge, nudge, nudge}, nil)

	var res PlayResult
	for i := 0; i < 2; i++ {
		gs, res = eng.PlayCard(gs, SidePlayer, "T-Z-1", "CA")
		if !res.Success || res.Capture.Captured {
			t.Fatalf("play %d: success=%v captured=%v", i, res.Success, res.Capture != nil && res.Capture.Captured)
		}
	}
	if got := gs.Board.States["CA"].Pressure.Player; got != 2 {
		t.Errorf("CA pressure = %d, want 2", got)
	}
	if len(gs.Players[0].States) != 0 {
		t.Errorf("P1 states = %v, want none", gs.Players[0].States)
	}
}

// TestCaptureFlipsOwnership: capturing an opponent's state removes it
// from their list.
func TestCaptureFlipsOwnership(t *testing.T) {
	push := zoneCard("T-Z-1", "Town Hall Push", 4, 3)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{push}, nil)
	gs.Board.States["OH"].Owner = capture.OwnerAI
	gs.Players[1].States = []string{"OH"}

	ns, res := eng.PlayCard(gs, SidePlayer, "T-Z-1", "OH")
	if !res.Success || !res.Capture.Captured {
		t.Fatalf("expected capture, got success=%v", res.Success)
	}
	if res.Capture.From != capture.OwnerAI {
		t.Errorf("captured from %s, want ai", res.Capture.From)
	}
	if len(ns.Players[1].States) != 0 {
		t.Errorf("P2 still lists %v", ns.Players[1].States)
	}
	if !slices.Equal(ns.Players[0].States, []string{"OH"}) {
		t.Errorf("P1 states = %v", ns.Players[0].States)
	}
}

func TestZoneDefenseBonusRaisesThreshold(t *testing.T) {
	push := zoneCard("T-Z-1", "Town Hall Push", 4, 3)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{push}, nil)
	gs.Board.States["OH"].Owner = capture.OwnerAI
	gs.Players[1].States = []string{"OH"}
	gs.Players[1].ZoneDefenseBonus = 1

	ns, res := eng.PlayCard(gs, SidePlayer, "T-Z-1", "OH")
	if !res.Success {
		t.Fatalf("play refused: %s", res.Reason)
	}
	if res.Capture.Captured {
		t.Fatal("defense bonus should have held OH")
	}
	if res.Capture.Defense != 4 {
		t.Errorf("effective defense = %d, want 4", res.Capture.Defense)
	}
	if ns.Board.States["OH"].Owner != capture.OwnerAI {
		t.Error("OH changed hands")
	}
}

func TestCaptureBonusPaysOnCapture(t *testing.T) {
	lockdown := buildCard(map[string]any{
		"id": "T-Z-2", "name": "Lockdown", "type": "ZONE", "cost": 3,
		"effects": map[string]any{"pressureDelta": 2, "captureBonus": 3},
		"target":  map[string]any{"scope": "state", "count": 1},
	})
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{lockdown}, nil)

	ns, res := eng.PlayCard(gs, SidePlayer, "T-Z-2", "WY")
	if !res.Success || !res.Capture.Captured {
		t.Fatal("expected WY (defense 2) to be captured")
	}
	if ns.Players[0].IP != 10-3+3 {
		t.Errorf("P1 IP = %d, want 10", ns.Players[0].IP)
	}
}

// TestPlayLimit: the fourth play of a turn is refused and changes nothing.
func TestPlayLimit(t *testing.T) {
	memo := mediaCard("T-M-1", "Memo", 1, 1)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{memo, memo, memo, memo}, nil)

	var res PlayResult
	for i := 0; i < 3; i++ {
		gs, res = eng.PlayCard(gs, SidePlayer, "T-M-1", "")
		if !res.Success {
			t.Fatalf("play %d refused: %s", i+1, res.Reason)
		}
	}
	before := gs
	after, res := eng.PlayCard(gs, SidePlayer, "T-M-1", "")
	if res.Success || res.Reason != ReasonPlayLimit {
		t.Fatalf("4th play: success=%v reason=%q, want play-limit", res.Success, res.Reason)
	}
	if after != before {
		t.Error("refused play returned a different state")
	}
	if len(after.Players[0].Hand) != 2 || after.Players[0].IP != 7 {
		t.Errorf("hand %d IP %d, want 2 and 7", len(after.Players[0].Hand), after.Players[0].IP)
	}
	if len(eventsOfType(res.Events, log.EventPlayRefused)) != 1 {
		t.Error("expected a PlayRefused event")
	}
}

func TestCanPlayGates(t *testing.T) {
	memo := mediaCard("T-M-1", "Memo", 1, 1)
	pricey := mediaCard("T-M-2", "Prime Time Slot", 11, 1)
	push := zoneCard("T-Z-1", "Push", 1, 1)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{memo, pricey, push}, []*card.Card{memo})
	gs.Board.States["TX"].Owner = capture.OwnerPlayer
	gs.Players[0].States = []string{"TX"}

	tests := []struct {
		name   string
		mutate func(gs *GameState)
		side   Side
		card   string
		target string
		want   Reason
	}{
		{"ok", nil, SidePlayer, "T-M-1", "", ReasonNone},
		{"not your turn", nil, SideAI, "T-M-1", "", ReasonNotYourTurn},
		{"play limit", func(gs *GameState) { gs.PlaysThisTurn = 3 }, SidePlayer, "NOPE", "", ReasonPlayLimit},
		{"not in hand", nil, SidePlayer, "NOPE", "", ReasonCardNotInHand},
		{"insufficient ip", nil, SidePlayer, "T-M-2", "", ReasonInsufficientIP},
		{"missing target", nil, SidePlayer, "T-Z-1", "", ReasonMissingTarget},
		{"unknown target", nil, SidePlayer, "T-Z-1", "ZZ", ReasonInvalidTarget},
		{"own state", nil, SidePlayer, "T-Z-1", "TX", ReasonInvalidTarget},
		{"target by name", nil, SidePlayer, "T-Z-1", "ohio", ReasonNone},
		{"game over", func(gs *GameState) { gs.Over = true }, SidePlayer, "T-M-1", "", ReasonGameOver},
		{"unknown side", nil, Side(7), "T-M-1", "", ReasonNotYourTurn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := gs.Clone()
			if tt.mutate != nil {
				tt.mutate(s)
			}
			got, _ := eng.CanPlay(s, tt.side, tt.card, tt.target)
			if got != tt.want {
				t.Errorf("CanPlay = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlayCardRefusesUnknownSide(t *testing.T) {
	memo := mediaCard("T-M-1", "Memo", 1, 1)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{memo}, nil)

	for _, side := range []Side{Side(-1), Side(2)} {
		ns, res := eng.PlayCard(gs, side, "T-M-1", "")
		if res.Success || res.Reason != ReasonNotYourTurn {
			t.Errorf("side %d: result = %+v, want not-your-turn", int(side), res)
		}
		if ns != gs {
			t.Errorf("side %d: refused play changed the state", int(side))
		}
		if len(res.Events) != 1 || res.Events[0].Card != "T-M-1" {
			t.Errorf("side %d: events = %+v", int(side), res.Events)
		}
	}
	if _, res := eng.DiscardCards(gs, Side(5), []string{"TEST-FILLER"}); res.Reason != ReasonNotYourTurn {
		t.Errorf("discard reason = %q, want not-your-turn", res.Reason)
	}
}

func TestTargetResolvedToCanonicalID(t *testing.T) {
	push := zoneCard("T-Z-1", "Push", 1, 1)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{push}, nil)

	ns, res := eng.PlayCard(gs, SidePlayer, "T-Z-1", "new york")
	if !res.Success {
		t.Fatalf("play refused: %s", res.Reason)
	}
	if res.Target != "NY" {
		t.Errorf("target = %q, want NY", res.Target)
	}
	if ns.Board.States["NY"].Pressure.Player != 1 {
		t.Error("pressure not applied to NY")
	}
	if len(eventsOfType(res.Events, log.EventWarning)) != 1 {
		t.Error("expected a warning about the drifted target id")
	}
}

func TestTruthClamp(t *testing.T) {
	leak := mediaCard("T-M-1", "Leak", 1, 5)
	spin := mediaCard("T-M-2", "Spin", 1, -5)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{leak, spin}, nil)

	gs.Truth = 98
	ns, res := eng.PlayCard(gs, SidePlayer, "T-M-1", "")
	if !res.Success {
		t.Fatalf("play refused: %s", res.Reason)
	}
	if ns.Truth != 100 {
		t.Errorf("truth = %d, want 100", ns.Truth)
	}

	gs.Truth = 3
	ns, _ = eng.PlayCard(gs, SidePlayer, "T-M-2", "")
	if ns.Truth != 0 {
		t.Errorf("truth = %d, want 0", ns.Truth)
	}
}

// TestConditionalSeesStateBeforeEffects: a conditional reads the state as
// it was when the card resolved, not the card's own partial effects.
func TestConditionalSeesStateBeforeEffects(t *testing.T) {
	surge := buildCard(map[string]any{
		"id": "T-M-3", "name": "Surge", "type": "MEDIA", "cost": 2,
		"effects": map[string]any{
			"truthDelta": 5,
			"conditional": map[string]any{
				"ifTruthAtLeast": 55,
				"then":           map[string]any{"truthDelta": 10},
			},
		},
	})
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{surge, surge}, nil)

	ns, res := eng.PlayCard(gs, SidePlayer, "T-M-3", "")
	if ns.Truth != 55 {
		t.Fatalf("truth = %d, want 55", ns.Truth)
	}
	if got := res.Effect.AppliedConditionals; len(got) != 1 || !strings.HasSuffix(got[0], "FALSE") {
		t.Errorf("applied conditionals = %v", got)
	}

	ns, _ = eng.PlayCard(ns, SidePlayer, "T-M-3", "")
	if ns.Truth != 70 {
		t.Errorf("second play truth = %d, want 70", ns.Truth)
	}
}

func TestTurnPlaysRecord(t *testing.T) {
	push := zoneCard("T-Z-1", "Push", 1, 3)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{push}, nil)

	ns, _ := eng.PlayCard(gs, SidePlayer, "T-Z-1", "OH")
	if len(ns.TurnPlays) != 2 {
		t.Fatalf("turn plays = %d, want 2", len(ns.TurnPlays))
	}
	play, resolve := ns.TurnPlays[0], ns.TurnPlays[1]
	if play.Stage != "play" || resolve.Stage != "resolve" {
		t.Errorf("stages = %s, %s", play.Stage, resolve.Stage)
	}
	if play.Sequence != 1 || resolve.Sequence != 2 {
		t.Errorf("sequences = %d, %d", play.Sequence, resolve.Sequence)
	}
	if resolve.Target != "OH" || resolve.Metadata["captured"] != "true" || resolve.Metadata["pressure"] != "3" {
		t.Errorf("resolve entry = %+v", resolve)
	}
	if play.Metadata != nil {
		t.Errorf("play entry metadata = %v, want nil", play.Metadata)
	}
}

func TestTurnPlayWithoutDetailsHasNilMetadata(t *testing.T) {
	fund := buildCard(map[string]any{
		"id": "T-M-4", "name": "Slush Fund", "type": "MEDIA", "cost": 1,
		"effects": map[string]any{"incomeBonus": map[string]any{"ip": 2, "duration": 2}},
	})
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{fund}, nil)

	ns, res := eng.PlayCard(gs, SidePlayer, "T-M-4", "")
	if !res.Success {
		t.Fatalf("play refused: %s", res.Message)
	}
	for _, tp := range ns.TurnPlays {
		if tp.Metadata != nil {
			t.Errorf("%s entry metadata = %#v, want nil", tp.Stage, tp.Metadata)
		}
	}
}

func TestBlockReactionCancelsAttack(t *testing.T) {
	raid := attackCard("T-A-1", "Leak Raid", 2, 3)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{raid}, nil)
	gs.Players[1].BlockAttack = true

	ns, res := eng.PlayCard(gs, SidePlayer, "T-A-1", "")
	if !res.Success {
		t.Fatalf("play refused: %s", res.Reason)
	}
	if ns.Players[1].IP != 10 {
		t.Errorf("P2 IP = %d, want 10 (blocked)", ns.Players[1].IP)
	}
	if ns.Players[0].IP != 8 {
		t.Errorf("P1 IP = %d, want 8 (cost still paid)", ns.Players[0].IP)
	}
	if ns.Players[1].BlockAttack {
		t.Error("block should be consumed")
	}
	if len(eventsOfType(res.Events, log.EventReaction)) != 1 {
		t.Error("expected a reaction event")
	}
}

func TestImmunityStopsDrainAndDiscard(t *testing.T) {
	bag := buildCard(map[string]any{
		"id": "T-A-2", "name": "Bag Job", "type": "ATTACK", "cost": 3,
		"effects": map[string]any{"ipDelta": map[string]any{"opponent": 4}, "discardOpponent": 2},
	})
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{bag}, nil)
	gs.Players[1].Immune = true

	ns, _ := eng.PlayCard(gs, SidePlayer, "T-A-2", "")
	if ns.Players[1].IP != 10 || len(ns.Players[1].Hand) != 5 {
		t.Errorf("immune P2 lost IP or cards: IP %d hand %d", ns.Players[1].IP, len(ns.Players[1].Hand))
	}

	gs.Players[1].Immune = false
	ns, _ = eng.PlayCard(gs, SidePlayer, "T-A-2", "")
	if ns.Players[1].IP != 6 || len(ns.Players[1].Hand) != 3 || len(ns.Players[1].Discard) != 2 {
		t.Errorf("P2 IP %d hand %d discard %d, want 6/3/2", ns.Players[1].IP, len(ns.Players[1].Hand), len(ns.Players[1].Discard))
	}
}

func TestExtrasApplied(t *testing.T) {
	fund := buildCard(map[string]any{
		"id": "T-M-4", "name": "Slush Fund", "type": "MEDIA", "cost": 1,
		"effects": map[string]any{
			"draw":        2,
			"zoneDefense": 1,
			"incomeBonus": map[string]any{"ip": 2, "duration": 2},
			"damage":      map[string]any{"fixed": 3},
		},
	})
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{fund}, nil)

	ns, res := eng.PlayCard(gs, SidePlayer, "T-M-4", "")
	if !res.Success {
		t.Fatalf("play refused: %s", res.Reason)
	}
	p := ns.Players[0]
	if len(p.Hand) != 6 {
		t.Errorf("hand = %d, want 6", len(p.Hand))
	}
	if p.ZoneDefenseBonus != 1 {
		t.Errorf("zone defense = %d", p.ZoneDefenseBonus)
	}
	if len(p.Income) != 1 || p.Income[0] != (IncomeEffect{IP: 2, TurnsLeft: 2, Source: "Slush Fund"}) {
		t.Errorf("income = %+v", p.Income)
	}
	if ns.Players[1].IP != 7 {
		t.Errorf("P2 IP = %d, want 7 after 3 damage", ns.Players[1].IP)
	}
}

// TestDiscardCost: the first discard of a turn is free, each further card
// costs one IP.
func TestDiscardCost(t *testing.T) {
	a := mediaCard("T-M-1", "A", 1, 1)
	b := mediaCard("T-M-2", "B", 1, 1)
	c := mediaCard("T-M-3", "C", 1, 1)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{a, b, c}, nil)

	ns, res := eng.DiscardCards(gs, SidePlayer, []string{"T-M-1", "T-M-2", "T-M-3"})
	if !res.Success {
		t.Fatalf("discard refused: %s", res.Reason)
	}
	if res.CostPaid != 2 || ns.Players[0].IP != 8 {
		t.Errorf("cost %d IP %d, want 2 and 8", res.CostPaid, ns.Players[0].IP)
	}
	if res.Message != "Discarded 3 card(s) (paid 2 IP)" {
		t.Errorf("message = %q", res.Message)
	}
	if len(ns.Players[0].Hand) != 2 || len(ns.Players[0].Discard) != 3 {
		t.Errorf("hand %d discard %d", len(ns.Players[0].Hand), len(ns.Players[0].Discard))
	}

	// The free discard is used up for the rest of the turn.
	ns, res = eng.DiscardCards(ns, SidePlayer, []string{"TEST-FILLER"})
	if res.CostPaid != 1 {
		t.Errorf("second discard cost = %d, want 1", res.CostPaid)
	}
}

func TestDiscardIPFloorsAtZero(t *testing.T) {
	eng, gs := newTestGame(t, DefaultRules(), nil, nil)
	gs.Players[0].IP = 1

	ns, res := eng.DiscardCards(gs, SidePlayer, []string{"TEST-FILLER", "TEST-FILLER", "TEST-FILLER"})
	if !res.Success {
		t.Fatalf("discard refused: %s", res.Reason)
	}
	if ns.Players[0].IP != 0 || res.CostPaid != 1 {
		t.Errorf("IP %d paid %d, want 0 and 1", ns.Players[0].IP, res.CostPaid)
	}
}

func TestDiscardRefusals(t *testing.T) {
	eng, gs := newTestGame(t, DefaultRules(), nil, nil)

	if _, res := eng.DiscardCards(gs, SideAI, []string{"TEST-FILLER"}); res.Reason != ReasonNotYourTurn {
		t.Errorf("reason = %q, want not-your-turn", res.Reason)
	}
	if _, res := eng.DiscardCards(gs, SidePlayer, nil); res.Reason != ReasonNoCards {
		t.Errorf("reason = %q, want no-cards", res.Reason)
	}
	ns, res := eng.DiscardCards(gs, SidePlayer, []string{"TEST-FILLER", "NOPE"})
	if res.Reason != ReasonCardNotInHand {
		t.Errorf("reason = %q, want card-not-in-hand", res.Reason)
	}
	if ns != gs || len(gs.Players[0].Hand) != 5 {
		t.Error("refused discard changed the state")
	}
}

func TestStartTurn(t *testing.T) {
	eng, gs := newTestGame(t, DefaultRules(), nil, nil)
	gs.TurnStarted = false
	gs.Players[0].Hand = gs.Players[0].Hand[:2]
	gs.Players[0].States = []string{"CA", "TX"}
	gs.Players[0].BlockAttack = true
	gs.Players[0].FreeDiscardsLeft = 0
	gs.Players[0].Income = []IncomeEffect{{IP: 2, TurnsLeft: 1, Source: "Fund"}}
	gs.PlaysThisTurn = 2

	ns, ts, err := eng.StartTurn(gs)
	if err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	p := ns.Players[0]
	// 5 base + 2 states + 2 ongoing
	if ts.Income.Net != 9 || p.IP != 19 {
		t.Errorf("income %d IP %d, want 9 and 19", ts.Income.Net, p.IP)
	}
	if len(p.Hand) != 5 || len(ts.Drawn) != 3 {
		t.Errorf("hand %d drawn %d, want 5 and 3", len(p.Hand), len(ts.Drawn))
	}
	if len(p.Income) != 0 {
		t.Errorf("expired income effect kept: %+v", p.Income)
	}
	if p.BlockAttack || p.FreeDiscardsLeft != 1 || ns.PlaysThisTurn != 0 || !ns.TurnStarted {
		t.Error("per-turn state not reset")
	}
	if got := eventsOfType(ts.Events, log.EventIncome); len(got) != 1 || !strings.Contains(got[0].Details, "base 5; states 2; ongoing +2") {
		t.Errorf("income events = %+v", got)
	}

	if _, _, err := eng.StartTurn(ns); err == nil {
		t.Error("expected an error starting the same turn twice")
	}
}

func TestStartTurnWithEmptyDeck(t *testing.T) {
	eng, gs := newTestGame(t, DefaultRules(), nil, nil)
	gs.TurnStarted = false
	gs.Players[0].Hand = nil
	gs.Players[0].Deck = gs.Players[0].Deck[:2]

	ns, ts, err := eng.StartTurn(gs)
	if err != nil {
		t.Fatalf("StartTurn: %v", err)
	}
	if len(ns.Players[0].Hand) != 2 || len(ns.Players[0].Deck) != 0 {
		t.Errorf("hand %d deck %d", len(ns.Players[0].Hand), len(ns.Players[0].Deck))
	}
	if len(eventsOfType(ts.Events, log.EventWarning)) != 1 {
		t.Error("expected a deck exhaustion warning")
	}
}

func TestEndTurnAdvancesRound(t *testing.T) {
	eng, gs := newTestGame(t, DefaultRules(), nil, nil)

	ns, err := eng.EndTurn(gs)
	if err != nil {
		t.Fatal(err)
	}
	if ns.CurrentPlayer != SideAI || ns.Turn != 2 || ns.Round != 1 || ns.TurnStarted {
		t.Errorf("after P1: current %s turn %d round %d", ns.CurrentPlayer, ns.Turn, ns.Round)
	}
	ns, _ = eng.EndTurn(ns)
	if ns.CurrentPlayer != SidePlayer || ns.Turn != 3 || ns.Round != 2 {
		t.Errorf("after P2: current %s turn %d round %d", ns.CurrentPlayer, ns.Turn, ns.Round)
	}

	ns.Over = true
	if _, err := eng.EndTurn(ns); !errors.Is(err, ErrGameOver) {
		t.Errorf("err = %v, want ErrGameOver", err)
	}
}

func TestPlayEndsGameOnVictory(t *testing.T) {
	leak := mediaCard("T-M-1", "Leak", 1, 5)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{leak, leak}, nil)
	gs.Truth = 88

	ns, res := eng.PlayCard(gs, SidePlayer, "T-M-1", "")
	if !res.Victory.Won() || *res.Victory.Winner != SidePlayer {
		t.Fatalf("victory = %+v", res.Victory)
	}
	if !ns.Over || ns.Winner == nil || *ns.Winner != SidePlayer {
		t.Error("game not closed")
	}
	if len(eventsOfType(res.Events, log.EventWin)) != 1 {
		t.Error("expected a win event")
	}
	if _, res := eng.PlayCard(ns, SidePlayer, "T-M-1", ""); res.Reason != ReasonGameOver {
		t.Errorf("reason = %q, want game-over", res.Reason)
	}
}

func TestLegalActions(t *testing.T) {
	memo := mediaCard("T-M-1", "Memo", 1, 1)
	push := zoneCard("T-Z-1", "Push", 1, 1)
	eng, gs := newTestGame(t, DefaultRules(), []*card.Card{memo, memo, push}, nil)

	actions := eng.LegalActions(gs)
	var types []ActionType
	for _, a := range actions {
		types = append(types, a.Type)
	}
	// Memo once (duplicates collapse), Push, Discard, End Turn; filler is unaffordable.
	want := []ActionType{ActionPlayCard, ActionPlayCard, ActionDiscard, ActionEndTurn}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("action types = %v, want %v", types, want)
	}
	if n := len(actions[1].Targets); n != 51 {
		t.Errorf("push targets = %d, want 51", n)
	}

	gs.PlaysThisTurn = 3
	if got := eng.LegalActions(gs); len(got) != 2 {
		t.Errorf("at play limit got %d actions, want discard and end turn", len(got))
	}
}

func TestNewGameDealsHands(t *testing.T) {
	db := card.Default(card.ModeStrict)
	decks, err := ParseDeckFile("", db)
	if err != nil {
		t.Fatal(err)
	}
	eng := NewEngine(DefaultRules(), WithSeed(7))
	gs, events, err := eng.NewGame(Setup{
		Factions: [2]card.Faction{decks[0].Faction, decks[1].Faction},
		Decks:    [2][]*card.Card{decks[0].Cards, decks[1].Cards},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gs.ID == "" {
		t.Error("expected a generated game id")
	}
	for i, p := range gs.Players {
		if len(p.Hand) != 5 || p.IP != 10 {
			t.Errorf("P%d hand %d IP %d", i+1, len(p.Hand), p.IP)
		}
		if len(p.Hand)+len(p.Deck) != len(decks[i].Cards) {
			t.Errorf("P%d lost cards while dealing", i+1)
		}
	}
	if gs.Truth != 50 || gs.CurrentPlayer != SidePlayer || gs.Turn != 1 || gs.Round != 1 {
		t.Errorf("unexpected start: truth %d current %s turn %d", gs.Truth, gs.CurrentPlayer, gs.Turn)
	}
	if len(eventsOfType(events, log.EventShuffle)) != 2 {
		t.Error("expected two shuffle events")
	}
	if len(gs.Board.States) != 51 {
		t.Errorf("board has %d states", len(gs.Board.States))
	}

	if _, _, err := eng.NewGame(Setup{Decks: [2][]*card.Card{decks[0].Cards[:3], decks[1].Cards}}); err == nil {
		t.Error("expected an error for a deck smaller than the opening hand")
	}
}
