package card

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Mode selects which effect keys a card type may carry.
type Mode int

const (
	// ModeStrict allows only the core key of each type plus conditionals
	// and enforces the cost table.
	ModeStrict Mode = iota
	// ModeExtended also accepts the draw/discard/defense/damage/income keys
	// and the ATTACK truthDelta and reaction keys.
	ModeExtended
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "extended"
}

func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "mvp":
		return ModeStrict, true
	case "extended", "enhanced":
		return ModeExtended, true
	}
	return 0, false
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, ok := ParseMode(string(b))
	if !ok {
		return fmt.Errorf("unknown mode %q", b)
	}
	*m = v
	return nil
}

// DefaultMaxDepth bounds conditional nesting when a Builder leaves MaxDepth unset.
const DefaultMaxDepth = 8

type IssueCode string

const (
	IssueMissingID          IssueCode = "missing-id"
	IssueInvalidFaction     IssueCode = "invalid-faction"
	IssueInvalidType        IssueCode = "invalid-type"
	IssueInvalidRarity      IssueCode = "invalid-rarity"
	IssueMissingEffects     IssueCode = "missing-effects"
	IssueInvalidEffectKey   IssueCode = "invalid-effect-key"
	IssueInvalidEffectValue IssueCode = "invalid-effect-value"
	IssueInvalidZoneTarget  IssueCode = "invalid-zone-target"
	IssueInvalidCost        IssueCode = "invalid-cost"
	IssueMaxDepthExceeded   IssueCode = "max-depth-exceeded"
)

// Issue is a single validation finding. Path locates the offending key
// inside the effect payload, e.g. "conditional[0].then.truthDelta".
type Issue struct {
	Code    IssueCode `json:"code"`
	Path    string    `json:"path,omitempty"`
	Message string    `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("%s: %s", i.Code, i.Message)
	}
	return fmt.Sprintf("%s at %s: %s", i.Code, i.Path, i.Message)
}

// ErrInvalidCard is matched by every IssuesError.
var ErrInvalidCard = errors.New("invalid card")

// IssuesError reports a card that failed validation.
type IssuesError struct {
	CardID string
	Issues []Issue
}

func (e *IssuesError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.String()
	}
	return fmt.Sprintf("card %q: %s", e.CardID, strings.Join(parts, "; "))
}

func (e *IssuesError) Unwrap() error { return ErrInvalidCard }

// --- Whitelists ---

var coreKeys = map[Type]map[string]bool{
	TypeAttack: {"ipDelta": true, "discardOpponent": true, "conditional": true},
	TypeMedia:  {"truthDelta": true, "conditional": true},
	TypeZone:   {"pressureDelta": true, "conditional": true},
}

var extendedKeys = map[Type]map[string]bool{
	TypeAttack: {"truthDelta": true, "reaction": true},
}

var genericKeys = map[string]bool{
	"draw": true, "discardSelf": true, "zoneDefense": true,
	"captureBonus": true, "damage": true, "incomeBonus": true,
}

// Allowed reports whether key may appear in an effect payload of type t.
func (m Mode) Allowed(t Type, key string) bool {
	if coreKeys[t][key] {
		return true
	}
	if m == ModeStrict {
		return false
	}
	return extendedKeys[t][key] || genericKeys[key]
}

// --- Builder ---

// Builder validates raw card data and constructs typed cards. The zero
// value builds in strict mode with DefaultMaxDepth.
type Builder struct {
	Mode     Mode
	MaxDepth int
}

func (b Builder) maxDepth() int {
	if b.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return b.MaxDepth
}

// Validate checks an effect payload for a card of type t. It returns nil
// when the payload is well formed.
func (b Builder) Validate(raw map[string]any, t Type, target *Target) []Issue {
	_, issues := b.BuildEffects(raw, t, target)
	return issues
}

// BuildEffects validates raw and, if it is well formed, returns the typed
// payload. Effects is nil whenever issues are returned.
func (b Builder) BuildEffects(raw map[string]any, t Type, target *Target) (Effects, []Issue) {
	eb := &effectBuilder{mode: b.Mode, maxDepth: b.maxDepth()}
	if len(raw) == 0 {
		eb.add(IssueMissingEffects, "", "card has no effects")
	} else if t < TypeAttack || t > TypeZone {
		eb.add(IssueInvalidType, "", "cannot validate effects for card type %s", t)
	}
	if t == TypeZone && !target.IsSingleState() {
		eb.add(IssueInvalidZoneTarget, "target", "ZONE cards must target exactly one state (scope \"state\", count 1)")
	}
	if len(eb.issues) > 0 {
		return nil, eb.issues
	}
	e := eb.effects(raw, t, "", 0)
	if len(eb.issues) > 0 {
		return nil, eb.issues
	}
	return e, nil
}

// Build validates a raw card record and returns the typed card.
func (b Builder) Build(raw map[string]any) (*Card, []Issue) {
	var issues []Issue
	add := func(code IssueCode, format string, args ...any) {
		issues = append(issues, Issue{Code: code, Message: fmt.Sprintf(format, args...)})
	}

	c := &Card{}
	c.ID, _ = raw["id"].(string)
	if strings.TrimSpace(c.ID) == "" {
		add(IssueMissingID, "card has no id")
	}
	c.Name, _ = raw["name"].(string)
	if c.Name == "" {
		c.Name = c.ID
	}
	c.Text, _ = raw["text"].(string)
	c.Flavor, _ = raw["flavor"].(string)
	if tags, ok := raw["tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				c.Tags = append(c.Tags, s)
			}
		}
	}

	fs, _ := raw["faction"].(string)
	f, factionOK := ParseFaction(fs)
	if !factionOK {
		add(IssueInvalidFaction, "invalid faction %q, expected truth, government or neutral", fs)
	}
	c.Faction = f

	ts, _ := raw["type"].(string)
	t, typeOK := ParseType(ts)
	if !typeOK {
		add(IssueInvalidType, "invalid type %q, expected ATTACK, MEDIA or ZONE", ts)
	}
	c.Type = t

	rs, _ := raw["rarity"].(string)
	r, rarityOK := ParseRarity(rs)
	if !rarityOK {
		add(IssueInvalidRarity, "invalid rarity %q, expected common, uncommon, rare or legendary", rs)
	}
	c.Rarity = r

	cost, ok := toInt(raw["cost"])
	switch {
	case !ok || cost < 0:
		add(IssueInvalidCost, "cost %v is not a non-negative integer", raw["cost"])
	case b.Mode == ModeStrict && typeOK && rarityOK && cost != ExpectedCost(t, r):
		add(IssueInvalidCost, "cost %d does not match %s %s table cost %d", cost, r, t, ExpectedCost(t, r))
	}
	c.Cost = cost

	if rt, ok := raw["target"].(map[string]any); ok {
		scope, _ := rt["scope"].(string)
		count, _ := toInt(rt["count"])
		c.Target = &Target{Scope: scope, Count: count}
	}

	effects, _ := raw["effects"].(map[string]any)
	if raw["effects"] != nil && effects == nil {
		add(IssueMissingEffects, "effects must be an object")
	} else if typeOK {
		e, effIssues := b.BuildEffects(effects, t, c.Target)
		issues = append(issues, effIssues...)
		c.Effects = e
	} else if len(effects) == 0 {
		add(IssueMissingEffects, "card has no effects")
	}

	if len(issues) > 0 {
		return nil, issues
	}
	return c, nil
}

// MustBuild is Build for static data known to be valid.
func (b Builder) MustBuild(raw map[string]any) *Card {
	c, issues := b.Build(raw)
	if len(issues) > 0 {
		id, _ := raw["id"].(string)
		panic(&IssuesError{CardID: id, Issues: issues})
	}
	return c
}

// --- Effect tree walk ---

type effectBuilder struct {
	mode     Mode
	maxDepth int
	issues   []Issue
}

func (eb *effectBuilder) add(code IssueCode, path, format string, args ...any) {
	eb.issues = append(eb.issues, Issue{Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (eb *effectBuilder) effects(raw map[string]any, t Type, path string, depth int) Effects {
	var (
		atk  *AttackEffects
		med  *MediaEffects
		zone *ZoneEffects
		x    *Extras
		cond *[]*Conditional
	)
	switch t {
	case TypeAttack:
		atk = &AttackEffects{}
		x, cond = &atk.Extras, &atk.Conditional
	case TypeMedia:
		med = &MediaEffects{}
		x, cond = &med.Extras, &med.Conditional
	default:
		zone = &ZoneEffects{}
		x, cond = &zone.Extras, &zone.Conditional
	}

	for _, key := range sortedKeys(raw) {
		v := raw[key]
		p := join(path, key)
		if !eb.mode.Allowed(t, key) {
			eb.add(IssueInvalidEffectKey, p, "effect key %q is not allowed on %s cards in %s mode", key, t, eb.mode)
			continue
		}
		switch key {
		case "ipDelta":
			atk.IPDelta = eb.ipDelta(v, p)
		case "discardOpponent":
			n, ok := toInt(v)
			if !ok || n < 0 || n > 2 {
				eb.add(IssueInvalidEffectValue, p, "discardOpponent must be 0, 1 or 2, got %v", v)
				continue
			}
			atk.DiscardOpponent = n
		case "truthDelta":
			n, ok := toFloat(v)
			if !ok || n < -100 || n > 100 {
				eb.add(IssueInvalidEffectValue, p, "truthDelta must be a number between -100 and 100, got %v", v)
				continue
			}
			if atk != nil {
				atk.TruthDelta = &n
			} else {
				med.TruthDelta = &n
			}
		case "pressureDelta":
			n, ok := toInt(v)
			if !ok || n <= 0 {
				eb.add(IssueInvalidEffectValue, p, "pressureDelta must be a positive integer, got %v", v)
				continue
			}
			zone.PressureDelta = n
		case "reaction":
			atk.Reaction = eb.reaction(v, p)
		case "draw":
			x.Draw = eb.count(v, p)
		case "discardSelf":
			x.DiscardSelf = eb.count(v, p)
		case "zoneDefense":
			x.ZoneDefense = eb.count(v, p)
		case "captureBonus":
			x.CaptureBonus = eb.count(v, p)
		case "damage":
			x.Damage = eb.damage(v, p)
		case "incomeBonus":
			x.IncomeBonus = eb.incomeBonus(v, p)
		case "conditional":
			*cond = eb.conditionals(v, t, p, depth)
		}
	}

	switch t {
	case TypeAttack:
		return atk
	case TypeMedia:
		return med
	default:
		return zone
	}
}

func (eb *effectBuilder) count(v any, path string) int {
	n, ok := toInt(v)
	if !ok || n < 0 {
		eb.add(IssueInvalidEffectValue, path, "expected a non-negative integer, got %v", v)
		return 0
	}
	return n
}

func (eb *effectBuilder) object(v any, path string, allowed ...string) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		eb.add(IssueInvalidEffectValue, path, "expected an object, got %T", v)
		return nil
	}
	for _, k := range sortedKeys(m) {
		known := false
		for _, a := range allowed {
			if k == a {
				known = true
				break
			}
		}
		if !known {
			eb.add(IssueInvalidEffectKey, join(path, k), "unknown key %q", k)
		}
	}
	return m
}

func (eb *effectBuilder) ipDelta(v any, path string) *IPDelta {
	m := eb.object(v, path, "self", "opponent")
	if m == nil {
		return nil
	}
	d := &IPDelta{}
	for _, side := range []string{"self", "opponent"} {
		raw, present := m[side]
		if !present {
			continue
		}
		n, ok := toInt(raw)
		if !ok {
			eb.add(IssueInvalidEffectValue, join(path, side), "ipDelta.%s must be an integer, got %v", side, raw)
			continue
		}
		if side == "self" {
			d.Self = n
		} else {
			d.Opponent = n
		}
	}
	return d
}

func (eb *effectBuilder) reaction(v any, path string) *Reaction {
	m := eb.object(v, path, "block", "immune")
	if m == nil {
		return nil
	}
	r := &Reaction{}
	for _, k := range []string{"block", "immune"} {
		raw, present := m[k]
		if !present {
			continue
		}
		b, ok := raw.(bool)
		if !ok {
			eb.add(IssueInvalidEffectValue, join(path, k), "expected a boolean, got %v", raw)
			continue
		}
		if k == "block" {
			r.Block = b
		} else {
			r.Immune = b
		}
	}
	return r
}

func (eb *effectBuilder) damage(v any, path string) *Damage {
	m := eb.object(v, path, "fixed", "min", "max")
	if m == nil {
		return nil
	}
	d := &Damage{}
	for _, k := range []string{"fixed", "min", "max"} {
		raw, present := m[k]
		if !present {
			continue
		}
		n := eb.count(raw, join(path, k))
		switch k {
		case "fixed":
			d.Fixed = &n
		case "min":
			d.Min = &n
		case "max":
			d.Max = &n
		}
	}
	if d.Fixed == nil && d.Min == nil && d.Max == nil {
		eb.add(IssueInvalidEffectValue, path, "damage needs fixed, min or max")
	}
	if d.Min != nil && d.Max != nil && *d.Min > *d.Max {
		eb.add(IssueInvalidEffectValue, path, "damage min %d exceeds max %d", *d.Min, *d.Max)
	}
	return d
}

func (eb *effectBuilder) incomeBonus(v any, path string) *IncomeBonus {
	m := eb.object(v, path, "ip", "duration")
	if m == nil {
		return nil
	}
	ip, ok := toInt(m["ip"])
	if !ok || ip <= 0 {
		eb.add(IssueInvalidEffectValue, join(path, "ip"), "incomeBonus.ip must be a positive integer, got %v", m["ip"])
	}
	dur, ok := toInt(m["duration"])
	if !ok || dur <= 0 {
		eb.add(IssueInvalidEffectValue, join(path, "duration"), "incomeBonus.duration must be a positive integer, got %v", m["duration"])
	}
	return &IncomeBonus{IP: ip, Duration: dur}
}

func (eb *effectBuilder) conditionals(v any, t Type, path string, depth int) []*Conditional {
	if depth+1 > eb.maxDepth {
		eb.add(IssueMaxDepthExceeded, path, "conditional nesting exceeds depth %d", eb.maxDepth)
		return nil
	}
	switch c := v.(type) {
	case map[string]any:
		if cond := eb.conditional(c, t, path, depth+1); cond != nil {
			return []*Conditional{cond}
		}
		return nil
	case []any:
		var out []*Conditional
		for i, item := range c {
			p := fmt.Sprintf("%s[%d]", path, i)
			m, ok := item.(map[string]any)
			if !ok {
				eb.add(IssueInvalidEffectValue, p, "expected a conditional object, got %T", item)
				continue
			}
			if cond := eb.conditional(m, t, p, depth+1); cond != nil {
				out = append(out, cond)
			}
		}
		return out
	default:
		eb.add(IssueInvalidEffectValue, path, "conditional must be an object or a list, got %T", v)
		return nil
	}
}

func (eb *effectBuilder) conditional(m map[string]any, t Type, path string, depth int) *Conditional {
	c := &Conditional{}
	for _, key := range sortedKeys(m) {
		v := m[key]
		p := join(path, key)
		switch key {
		case "then", "else":
			branch, ok := v.(map[string]any)
			if !ok {
				eb.add(IssueInvalidEffectValue, p, "%s must be an effect object, got %T", key, v)
				continue
			}
			e := eb.effects(branch, t, p, depth)
			if key == "then" {
				c.Then = e
			} else {
				c.Else = e
			}
		case "ifTargetStateIs":
			s, ok := v.(string)
			if !ok || strings.TrimSpace(s) == "" {
				eb.add(IssueInvalidEffectValue, p, "ifTargetStateIs must be a state identifier, got %v", v)
				continue
			}
			c.TargetStateIs = s
		case "when":
			s, ok := v.(string)
			if !ok {
				eb.add(IssueInvalidEffectValue, p, "when must be a condition expression, got %T", v)
				continue
			}
			parsed, err := ParseCondition(s)
			if err != nil {
				eb.add(IssueInvalidEffectValue, p, "%v", err)
				continue
			}
			eb.mergeCondition(&c.Condition, parsed, p)
		case "ifTruthAtLeast", "ifTruthAtMost":
			field := truthField(&c.Condition, key)
			n, ok := toFloat(v)
			if !ok {
				eb.add(IssueInvalidEffectValue, p, "%s must be a number, got %v", key, v)
				continue
			}
			if *field != nil {
				eb.add(IssueInvalidEffectValue, p, "%s is set more than once", key)
				continue
			}
			*field = &n
		default:
			field := conditionField(&c.Condition, key)
			if field == nil {
				eb.add(IssueInvalidEffectKey, p, "unknown conditional key %q", key)
				continue
			}
			n, ok := toInt(v)
			if !ok {
				eb.add(IssueInvalidEffectValue, p, "%s must be an integer, got %v", key, v)
				continue
			}
			if *field != nil {
				eb.add(IssueInvalidEffectValue, p, "%s is set more than once", key)
				continue
			}
			*field = &n
		}
	}
	_, hasThen := m["then"]
	_, hasElse := m["else"]
	if !hasThen && !hasElse {
		eb.add(IssueInvalidEffectValue, path, "conditional needs a then or else branch")
	}
	return c
}

func truthField(c *Condition, key string) **float64 {
	for _, k := range truthKeys {
		if k.key == key {
			return k.field(c)
		}
	}
	return nil
}

func conditionField(c *Condition, key string) **int {
	for _, k := range conditionKeys {
		if k.key == key {
			return k.field(c)
		}
	}
	return nil
}

func (eb *effectBuilder) mergeCondition(dst *Condition, src Condition, path string) {
	for _, k := range truthKeys {
		v := *k.field(&src)
		if v == nil {
			continue
		}
		d := k.field(dst)
		if *d != nil {
			eb.add(IssueInvalidEffectValue, path, "%s is set more than once", k.key)
			continue
		}
		*d = v
	}
	for _, k := range conditionKeys {
		v := *k.field(&src)
		if v == nil {
			continue
		}
		d := k.field(dst)
		if *d != nil {
			eb.add(IssueInvalidEffectValue, path, "%s is set more than once", k.key)
			continue
		}
		*d = v
	}
	if src.TargetStateIs != "" {
		if dst.TargetStateIs != "" {
			eb.add(IssueInvalidEffectValue, path, "ifTargetStateIs is set more than once")
			return
		}
		dst.TargetStateIs = src.TargetStateIs
	}
}

// toInt coerces the numeric shapes produced by JSON, YAML and form input.
// Fractional values are rejected.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		if n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	}
	return 0, false
}

// toFloat accepts any finite number in the shapes toInt understands.
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		x, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = x
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
