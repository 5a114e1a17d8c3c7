package card

// Effects is the closed set of effect payloads, one variant per card type.
// Values are only created by Builder, which guarantees that every key a
// variant carries is allowed for its type and mode.
type Effects interface {
	Type() Type
	// Extra returns the generic keys shared by all types in extended mode.
	Extra() *Extras
	Conditionals() []*Conditional
	isEffects()
}

type IPDelta struct {
	Self     int
	Opponent int
}

// Damage is either fixed or a ranged roll. Nil bounds are absent.
type Damage struct {
	Fixed *int
	Min   *int
	Max   *int
}

type IncomeBonus struct {
	IP       int
	Duration int
}

type Reaction struct {
	Block  bool
	Immune bool
}

// Extras holds the keys only accepted in extended mode.
type Extras struct {
	Draw         int
	DiscardSelf  int
	ZoneDefense  int
	CaptureBonus int
	Damage       *Damage
	IncomeBonus  *IncomeBonus
}

// AttackEffects is the payload of an ATTACK card.
type AttackEffects struct {
	IPDelta         *IPDelta
	DiscardOpponent int
	TruthDelta      *float64
	Reaction        *Reaction
	Extras
	Conditional []*Conditional
}

// MediaEffects is the payload of a MEDIA card.
type MediaEffects struct {
	TruthDelta *float64
	Extras
	Conditional []*Conditional
}

// ZoneEffects is the payload of a ZONE card. The target is on the Card.
type ZoneEffects struct {
	PressureDelta int
	Extras
	Conditional []*Conditional
}

func (e *AttackEffects) Type() Type                   { return TypeAttack }
func (e *AttackEffects) Extra() *Extras               { return &e.Extras }
func (e *AttackEffects) Conditionals() []*Conditional { return e.Conditional }
func (*AttackEffects) isEffects()                     {}

func (e *MediaEffects) Type() Type                   { return TypeMedia }
func (e *MediaEffects) Extra() *Extras               { return &e.Extras }
func (e *MediaEffects) Conditionals() []*Conditional { return e.Conditional }
func (*MediaEffects) isEffects()                     {}

func (e *ZoneEffects) Type() Type                   { return TypeZone }
func (e *ZoneEffects) Extra() *Extras               { return &e.Extras }
func (e *ZoneEffects) Conditionals() []*Conditional { return e.Conditional }
func (*ZoneEffects) isEffects()                     {}

// Condition is a conjunction of predicates. Nil fields impose no constraint.
// Truth bounds are percentages and may be fractional; the rest are counts.
type Condition struct {
	TruthAtLeast      *float64
	TruthAtMost       *float64
	ZonesAtLeast      *int
	ZonesAtMost       *int
	IPAtLeast         *int
	IPAtMost          *int
	OpponentIPAtLeast *int
	OpponentIPAtMost  *int
	HandSizeAtLeast   *int
	HandSizeAtMost    *int
	RoundAtLeast      *int
	TargetStateIs     string
}

// Conditional selects Then when its condition holds and Else otherwise.
// Both branches have the same variant as the enclosing payload.
type Conditional struct {
	Condition
	Then Effects
	Else Effects
}

// truthKeys maps the authored truth predicates to condition fields.
var truthKeys = []struct {
	key   string
	field func(*Condition) **float64
}{
	{"ifTruthAtLeast", func(c *Condition) **float64 { return &c.TruthAtLeast }},
	{"ifTruthAtMost", func(c *Condition) **float64 { return &c.TruthAtMost }},
}

// conditionKeys maps the authored count predicates to condition fields.
var conditionKeys = []struct {
	key   string
	field func(*Condition) **int
}{
	{"ifZonesControlledAtLeast", func(c *Condition) **int { return &c.ZonesAtLeast }},
	{"ifZonesControlledAtMost", func(c *Condition) **int { return &c.ZonesAtMost }},
	{"ifIPAtLeast", func(c *Condition) **int { return &c.IPAtLeast }},
	{"ifIPAtMost", func(c *Condition) **int { return &c.IPAtMost }},
	{"ifOpponentIPAtLeast", func(c *Condition) **int { return &c.OpponentIPAtLeast }},
	{"ifOpponentIPAtMost", func(c *Condition) **int { return &c.OpponentIPAtMost }},
	{"ifHandSizeAtLeast", func(c *Condition) **int { return &c.HandSizeAtLeast }},
	{"ifHandSizeAtMost", func(c *Condition) **int { return &c.HandSizeAtMost }},
	{"ifRoundAtLeast", func(c *Condition) **int { return &c.RoundAtLeast }},
}

// IsEmpty reports whether the condition has no predicates at all.
func (c *Condition) IsEmpty() bool {
	if c.TruthAtLeast != nil || c.TruthAtMost != nil {
		return false
	}
	for _, k := range conditionKeys {
		if *k.field(c) != nil {
			return false
		}
	}
	return c.TargetStateIs == ""
}

// --- Raw form ---

// RawEffects renders effects back into their authored key/value form.
func RawEffects(e Effects) map[string]any {
	m := map[string]any{}
	switch v := e.(type) {
	case *AttackEffects:
		if v.IPDelta != nil {
			d := map[string]any{}
			if v.IPDelta.Self != 0 {
				d["self"] = v.IPDelta.Self
			}
			if v.IPDelta.Opponent != 0 {
				d["opponent"] = v.IPDelta.Opponent
			}
			m["ipDelta"] = d
		}
		if v.DiscardOpponent != 0 {
			m["discardOpponent"] = v.DiscardOpponent
		}
		if v.TruthDelta != nil {
			m["truthDelta"] = *v.TruthDelta
		}
		if v.Reaction != nil {
			m["reaction"] = map[string]any{"block": v.Reaction.Block, "immune": v.Reaction.Immune}
		}
	case *MediaEffects:
		if v.TruthDelta != nil {
			m["truthDelta"] = *v.TruthDelta
		}
	case *ZoneEffects:
		if v.PressureDelta != 0 {
			m["pressureDelta"] = v.PressureDelta
		}
	}

	x := e.Extra()
	if x.Draw != 0 {
		m["draw"] = x.Draw
	}
	if x.DiscardSelf != 0 {
		m["discardSelf"] = x.DiscardSelf
	}
	if x.ZoneDefense != 0 {
		m["zoneDefense"] = x.ZoneDefense
	}
	if x.CaptureBonus != 0 {
		m["captureBonus"] = x.CaptureBonus
	}
	if x.Damage != nil {
		d := map[string]any{}
		if x.Damage.Fixed != nil {
			d["fixed"] = *x.Damage.Fixed
		}
		if x.Damage.Min != nil {
			d["min"] = *x.Damage.Min
		}
		if x.Damage.Max != nil {
			d["max"] = *x.Damage.Max
		}
		m["damage"] = d
	}
	if x.IncomeBonus != nil {
		m["incomeBonus"] = map[string]any{"ip": x.IncomeBonus.IP, "duration": x.IncomeBonus.Duration}
	}

	conds := e.Conditionals()
	switch len(conds) {
	case 0:
	case 1:
		m["conditional"] = rawConditional(conds[0])
	default:
		list := make([]any, len(conds))
		for i, c := range conds {
			list[i] = rawConditional(c)
		}
		m["conditional"] = list
	}
	return m
}

func rawConditional(c *Conditional) map[string]any {
	m := map[string]any{}
	for _, k := range truthKeys {
		if p := *k.field(&c.Condition); p != nil {
			m[k.key] = *p
		}
	}
	for _, k := range conditionKeys {
		if p := *k.field(&c.Condition); p != nil {
			m[k.key] = *p
		}
	}
	if c.TargetStateIs != "" {
		m["ifTargetStateIs"] = c.TargetStateIs
	}
	if c.Then != nil {
		m["then"] = RawEffects(c.Then)
	}
	if c.Else != nil {
		m["else"] = RawEffects(c.Else)
	}
	return m
}
