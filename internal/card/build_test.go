package card

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attackRaw(effects map[string]any) map[string]any {
	return map[string]any{
		"id": "A-1", "name": "Test Attack", "faction": "government",
		"type": "ATTACK", "rarity": "common", "cost": 2, "effects": effects,
	}
}

func zoneTarget() *Target { return &Target{Scope: "state", Count: 1} }

func issueCodes(issues []Issue) []IssueCode {
	var codes []IssueCode
	for _, is := range issues {
		codes = append(codes, is.Code)
	}
	return codes
}

func TestBuildStrictAttack(t *testing.T) {
	c, issues := Builder{}.Build(attackRaw(map[string]any{
		"ipDelta":         map[string]any{"opponent": 3},
		"discardOpponent": 1,
	}))
	require.Empty(t, issues)
	assert.Equal(t, TypeAttack, c.Type)
	assert.Equal(t, FactionGovernment, c.Faction)

	atk, ok := c.Effects.(*AttackEffects)
	require.True(t, ok, "expected *AttackEffects, got %T", c.Effects)
	require.NotNil(t, atk.IPDelta)
	assert.Equal(t, 3, atk.IPDelta.Opponent)
	assert.Equal(t, 1, atk.DiscardOpponent)
}

func TestAttackRejectsPressureDelta(t *testing.T) {
	issues := Builder{}.Validate(map[string]any{"pressureDelta": 2}, TypeAttack, nil)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueInvalidEffectKey, issues[0].Code)
	assert.Equal(t, "pressureDelta", issues[0].Path)

	issues = Builder{Mode: ModeExtended}.Validate(map[string]any{"pressureDelta": 2}, TypeAttack, nil)
	assert.Equal(t, []IssueCode{IssueInvalidEffectKey}, issueCodes(issues))
}

func TestValidateIsIdempotent(t *testing.T) {
	valid := map[string]any{
		"truthDelta": 2,
		"conditional": map[string]any{
			"ifTruthAtLeast": 60,
			"then":           map[string]any{"truthDelta": 5},
			"else":           map[string]any{"truthDelta": -2},
		},
	}
	b := Builder{}
	assert.Empty(t, b.Validate(valid, TypeMedia, nil))
	assert.Empty(t, b.Validate(valid, TypeMedia, nil))

	invalid := map[string]any{"truthDelta": "lots", "bogus": 1, "draw": 2}
	first := b.Validate(invalid, TypeMedia, nil)
	second := b.Validate(invalid, TypeMedia, nil)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestDiscardOpponentRange(t *testing.T) {
	for _, n := range []int{0, 1, 2} {
		issues := Builder{}.Validate(map[string]any{"ipDelta": map[string]any{"opponent": 1}, "discardOpponent": n}, TypeAttack, nil)
		assert.Empty(t, issues, "discardOpponent %d", n)
	}
	issues := Builder{}.Validate(map[string]any{"discardOpponent": 3}, TypeAttack, nil)
	assert.Equal(t, []IssueCode{IssueInvalidEffectValue}, issueCodes(issues))
}

func TestIPDeltaMustBeInteger(t *testing.T) {
	issues := Builder{}.Validate(map[string]any{"ipDelta": map[string]any{"opponent": 1.5}}, TypeAttack, nil)
	assert.Equal(t, []IssueCode{IssueInvalidEffectValue}, issueCodes(issues))

	issues = Builder{}.Validate(map[string]any{"ipDelta": map[string]any{"opponent": json.Number("2")}}, TypeAttack, nil)
	assert.Empty(t, issues)

	issues = Builder{}.Validate(map[string]any{"ipDelta": map[string]any{"opponentPercent": 10}}, TypeAttack, nil)
	assert.Equal(t, []IssueCode{IssueInvalidEffectKey}, issueCodes(issues))
}

func TestZoneRequiresSingleStateTarget(t *testing.T) {
	eff := map[string]any{"pressureDelta": 2}
	assert.Empty(t, Builder{}.Validate(eff, TypeZone, zoneTarget()))

	issues := Builder{}.Validate(eff, TypeZone, nil)
	assert.Equal(t, []IssueCode{IssueInvalidZoneTarget}, issueCodes(issues))

	issues = Builder{}.Validate(eff, TypeZone, &Target{Scope: "state", Count: 2})
	assert.Equal(t, []IssueCode{IssueInvalidZoneTarget}, issueCodes(issues))

	issues = Builder{}.Validate(map[string]any{"pressureDelta": 0}, TypeZone, zoneTarget())
	assert.Equal(t, []IssueCode{IssueInvalidEffectValue}, issueCodes(issues))
}

func TestStrictCostTable(t *testing.T) {
	raw := attackRaw(map[string]any{"ipDelta": map[string]any{"opponent": 1}})
	raw["cost"] = 7
	_, issues := Builder{}.Build(raw)
	assert.Equal(t, []IssueCode{IssueInvalidCost}, issueCodes(issues))

	_, issues = Builder{Mode: ModeExtended}.Build(raw)
	assert.Empty(t, issues)

	raw["cost"] = -1
	_, issues = Builder{Mode: ModeExtended}.Build(raw)
	assert.Equal(t, []IssueCode{IssueInvalidCost}, issueCodes(issues))
}

func TestBuildReportsCardFieldIssues(t *testing.T) {
	_, issues := Builder{}.Build(map[string]any{
		"id": "X", "faction": "aliens", "type": "SPELL", "rarity": "mythic", "cost": 2,
	})
	assert.Equal(t, []IssueCode{IssueInvalidFaction, IssueInvalidType, IssueInvalidRarity, IssueMissingEffects}, issueCodes(issues))
}

func TestDefensiveNormalizesToMedia(t *testing.T) {
	c, issues := Builder{}.Build(map[string]any{
		"id": "D-1", "faction": "truth", "type": "defensive", "rarity": "common", "cost": 3,
		"effects": map[string]any{"truthDelta": 1},
	})
	require.Empty(t, issues)
	assert.Equal(t, TypeMedia, c.Type)
	assert.IsType(t, &MediaEffects{}, c.Effects)
}

func TestBranchesUseParentWhitelist(t *testing.T) {
	issues := Builder{}.Validate(map[string]any{
		"truthDelta": 1,
		"conditional": map[string]any{
			"ifTruthAtLeast": 50,
			"then":           map[string]any{"pressureDelta": 1},
		},
	}, TypeMedia, nil)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueInvalidEffectKey, issues[0].Code)
	assert.Equal(t, "conditional.then.pressureDelta", issues[0].Path)
}

func TestConditionalList(t *testing.T) {
	e, issues := Builder{}.BuildEffects(map[string]any{
		"truthDelta": 1,
		"conditional": []any{
			map[string]any{"ifTruthAtLeast": 60, "then": map[string]any{"truthDelta": 2}},
			map[string]any{"ifRoundAtLeast": 3, "else": map[string]any{"truthDelta": -1}},
		},
	}, TypeMedia, nil)
	require.Empty(t, issues)
	conds := e.Conditionals()
	require.Len(t, conds, 2)
	assert.Equal(t, 60.0, *conds[0].TruthAtLeast)
	assert.Nil(t, conds[0].Else)
	assert.Nil(t, conds[1].Then)
	assert.Equal(t, 3, *conds[1].RoundAtLeast)
}

func TestFractionalTruthValues(t *testing.T) {
	raw := map[string]any{
		"truthDelta": 2.5,
		"conditional": map[string]any{
			"ifTruthAtLeast": 60.5,
			"ifTruthAtMost":  "85.5",
			"then":           map[string]any{"truthDelta": -0.5},
		},
	}
	assert.Empty(t, Builder{}.Validate(raw, TypeMedia, nil))

	e, issues := Builder{}.BuildEffects(raw, TypeMedia, nil)
	require.Empty(t, issues)
	media := e.(*MediaEffects)
	assert.Equal(t, 2.5, *media.TruthDelta)
	c := media.Conditional[0]
	assert.Equal(t, 60.5, *c.TruthAtLeast)
	assert.Equal(t, 85.5, *c.TruthAtMost)
	assert.Equal(t, -0.5, *c.Then.(*MediaEffects).TruthDelta)

	atk, issues := Builder{}.BuildEffects(map[string]any{"truthDelta": 1.25}, TypeAttack, nil)
	require.Empty(t, issues)
	assert.Equal(t, 1.25, *atk.(*AttackEffects).TruthDelta)
}

func TestTruthValueRejections(t *testing.T) {
	for _, v := range []any{100.5, -101, "lots", math.NaN(), math.Inf(1), true} {
		issues := Builder{}.Validate(map[string]any{"truthDelta": v}, TypeMedia, nil)
		assert.Equal(t, []IssueCode{IssueInvalidEffectValue}, issueCodes(issues), "truthDelta %v", v)
	}
	issues := Builder{}.Validate(map[string]any{
		"conditional": map[string]any{"ifTruthAtLeast": "high", "then": map[string]any{"truthDelta": 1}},
	}, TypeMedia, nil)
	assert.Equal(t, []IssueCode{IssueInvalidEffectValue}, issueCodes(issues))
}

func TestConditionalNeedsBranch(t *testing.T) {
	issues := Builder{}.Validate(map[string]any{
		"conditional": map[string]any{"ifTruthAtLeast": 60},
	}, TypeMedia, nil)
	assert.Equal(t, []IssueCode{IssueInvalidEffectValue}, issueCodes(issues))
}

func nestedMedia(depth int) map[string]any {
	eff := map[string]any{"truthDelta": 1}
	for i := 0; i < depth; i++ {
		eff = map[string]any{
			"conditional": map[string]any{"ifRoundAtLeast": i + 1, "then": eff},
		}
	}
	return eff
}

func TestMaxDepth(t *testing.T) {
	b := Builder{MaxDepth: 2}
	assert.Empty(t, b.Validate(nestedMedia(2), TypeMedia, nil))

	issues := b.Validate(nestedMedia(3), TypeMedia, nil)
	assert.Equal(t, []IssueCode{IssueMaxDepthExceeded}, issueCodes(issues))

	assert.Empty(t, Builder{}.Validate(nestedMedia(DefaultMaxDepth), TypeMedia, nil))
}

func TestExtendedKeys(t *testing.T) {
	eff := map[string]any{
		"truthDelta":   2,
		"draw":         1,
		"damage":       map[string]any{"min": 1, "max": 3},
		"incomeBonus":  map[string]any{"ip": 1, "duration": 2},
		"captureBonus": 2,
	}
	issues := Builder{}.Validate(eff, TypeMedia, nil)
	assert.Len(t, issues, 4)
	for _, is := range issues {
		assert.Equal(t, IssueInvalidEffectKey, is.Code)
	}

	e, issues := Builder{Mode: ModeExtended}.BuildEffects(eff, TypeMedia, nil)
	require.Empty(t, issues)
	x := e.Extra()
	assert.Equal(t, 1, x.Draw)
	assert.Equal(t, 2, x.CaptureBonus)
	assert.Equal(t, 3, *x.Damage.Max)
	assert.Equal(t, IncomeBonus{IP: 1, Duration: 2}, *x.IncomeBonus)

	issues = Builder{Mode: ModeExtended}.Validate(map[string]any{"damage": map[string]any{"min": 4, "max": 1}}, TypeAttack, nil)
	assert.Equal(t, []IssueCode{IssueInvalidEffectValue}, issueCodes(issues))
}

func TestWhenExpressionInConditional(t *testing.T) {
	e, issues := Builder{}.BuildEffects(map[string]any{
		"truthDelta": 1,
		"conditional": map[string]any{
			"when": "truth >= 60 and zones >= 2",
			"then": map[string]any{"truthDelta": 3},
		},
	}, TypeMedia, nil)
	require.Empty(t, issues)
	c := e.Conditionals()[0]
	assert.Equal(t, 60.0, *c.TruthAtLeast)
	assert.Equal(t, 2, *c.ZonesAtLeast)

	issues = Builder{}.Validate(map[string]any{
		"conditional": map[string]any{
			"when":           "truth >= 60",
			"ifTruthAtLeast": 50,
			"then":           map[string]any{"truthDelta": 3},
		},
	}, TypeMedia, nil)
	assert.Equal(t, []IssueCode{IssueInvalidEffectValue}, issueCodes(issues))
}

func TestCardJSONRoundTrip(t *testing.T) {
	c := Builder{Mode: ModeExtended}.MustBuild(map[string]any{
		"id": "EXP-1", "name": "Capitol Lockdown", "faction": "government", "type": "ZONE",
		"rarity": "legendary", "cost": 7, "target": map[string]any{"scope": "state", "count": 1},
		"effects": map[string]any{
			"pressureDelta": 2,
			"captureBonus":  3,
			"conditional": map[string]any{
				"ifTargetStateIs": "DC",
				"then":            map[string]any{"pressureDelta": 3},
			},
		},
		"tags": []any{"capital"},
	})

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var back Card
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c.Raw(), back.Raw())
	assert.Equal(t, "DC", back.Effects.Conditionals()[0].TargetStateIs)
}

func TestCardJSONRejectsInvalid(t *testing.T) {
	var c Card
	err := json.Unmarshal([]byte(`{"id":"bad","faction":"truth","type":"ATTACK","rarity":"common","cost":2,"effects":{"pressureDelta":1}}`), &c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCard))
}

func TestBaselineCardsPassStrictValidation(t *testing.T) {
	for _, typ := range []Type{TypeAttack, TypeMedia, TypeZone} {
		for r := RarityCommon; r <= RarityLegendary; r++ {
			c := BaselineCard("B", "Baseline", FactionGovernment, typ, r)
			_, issues := Builder{}.Build(c.Raw())
			assert.Empty(t, issues, "%s %s", typ, r)
		}
	}
	media := BaselineCard("B", "Baseline", FactionGovernment, TypeMedia, RarityRare).Effects.(*MediaEffects)
	assert.Equal(t, -3.0, *media.TruthDelta)
}
