package card

// costTable is the fixed IP cost per type and rarity.
var costTable = [3][4]int{
	TypeAttack: {2, 3, 4, 5},
	TypeMedia:  {3, 4, 5, 6},
	TypeZone:   {4, 5, 6, 7},
}

// ExpectedCost returns the table cost for a card of the given type and rarity.
func ExpectedCost(t Type, r Rarity) int {
	if t < TypeAttack || t > TypeZone || r < RarityCommon || r > RarityLegendary {
		return -1
	}
	return costTable[t][r]
}

// Baseline returns the reference effect payload for a type and rarity.
func Baseline(t Type, r Rarity) Effects {
	strength := int(r) + 1
	truth := float64(strength)
	switch t {
	case TypeAttack:
		e := &AttackEffects{IPDelta: &IPDelta{Opponent: strength}}
		switch r {
		case RarityRare:
			e.DiscardOpponent = 1
		case RarityLegendary:
			e.DiscardOpponent = 2
		}
		return e
	case TypeMedia:
		return &MediaEffects{TruthDelta: &truth}
	default:
		return &ZoneEffects{PressureDelta: strength}
	}
}

// BaselineCard assembles a strict-mode card from the cost table and the
// baseline payload.
func BaselineCard(id, name string, f Faction, t Type, r Rarity) *Card {
	c := &Card{
		ID:      id,
		Name:    name,
		Faction: f,
		Type:    t,
		Rarity:  r,
		Cost:    ExpectedCost(t, r),
		Effects: Baseline(t, r),
	}
	if t == TypeMedia && f == FactionGovernment {
		// Government media pushes the meter toward zero.
		td := -*c.Effects.(*MediaEffects).TruthDelta
		c.Effects = &MediaEffects{TruthDelta: &td}
	}
	if t == TypeZone {
		c.Target = &Target{Scope: "state", Count: 1}
	}
	return c
}
