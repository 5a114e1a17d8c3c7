package card

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Conditions can be authored as a short expression instead of a set of
// if* keys, e.g.
//
//	when: "truth >= 60 and zones >= 2 and target is CA"
//
// Clauses are joined with "and" only.

type condExpr struct {
	Clauses []*condClause `parser:"@@ ( 'and' @@ )*"`
}

type condClause struct {
	Target  string  `parser:"  'target' ( 'is' | '==' | '=' ) @( Ident | Number )"`
	Subject string  `parser:"| @Ident"`
	Op      string  `parser:"  @Op"`
	Value   float64 `parser:"  @Number"`
}

var condParser = participle.MustBuild[condExpr](
	participle.Lexer(lexer.MustSimple([]lexer.SimpleRule{
		{Name: "whitespace", Pattern: `[\s]+`},
		{Name: "Op", Pattern: `>=|<=|==|=`},
		{Name: "Ident", Pattern: `[a-zA-Z_]\w*`},
		{Name: "Number", Pattern: `\d+(?:\.\d+)?`},
	})),
	participle.CaseInsensitive("Ident"),
	participle.UseLookahead(2),
)

// ParseCondition parses a when-expression into a Condition.
func ParseCondition(s string) (Condition, error) {
	var c Condition
	expr, err := condParser.ParseString("", s)
	if err != nil {
		return c, fmt.Errorf("parse condition %q: %w", s, err)
	}
	for _, cl := range expr.Clauses {
		if cl.Target != "" {
			if c.TargetStateIs != "" {
				return c, fmt.Errorf("condition %q names the target twice", s)
			}
			c.TargetStateIs = cl.Target
			continue
		}
		if strings.EqualFold(cl.Subject, "truth") {
			field, err := truthClauseField(&c, cl)
			if err != nil {
				return c, fmt.Errorf("condition %q: %w", s, err)
			}
			if *field != nil {
				return c, fmt.Errorf("condition %q repeats %s %s", s, cl.Subject, cl.Op)
			}
			v := cl.Value
			*field = &v
			continue
		}
		field, err := clauseField(&c, cl)
		if err != nil {
			return c, fmt.Errorf("condition %q: %w", s, err)
		}
		if *field != nil {
			return c, fmt.Errorf("condition %q repeats %s %s", s, cl.Subject, cl.Op)
		}
		v, ok := floatToInt(cl.Value)
		if !ok {
			return c, fmt.Errorf("condition %q: %s needs a whole number", s, cl.Subject)
		}
		*field = &v
	}
	return c, nil
}

func truthClauseField(c *Condition, cl *condClause) (**float64, error) {
	switch cl.Op {
	case ">=":
		return &c.TruthAtLeast, nil
	case "<=":
		return &c.TruthAtMost, nil
	}
	return nil, fmt.Errorf("operator %q needs >= or <=", cl.Op)
}

func clauseField(c *Condition, cl *condClause) (**int, error) {
	atLeast := cl.Op == ">="
	if !atLeast && cl.Op != "<=" {
		return nil, fmt.Errorf("operator %q needs >= or <=", cl.Op)
	}
	switch strings.ToLower(cl.Subject) {
	case "zones", "states":
		if atLeast {
			return &c.ZonesAtLeast, nil
		}
		return &c.ZonesAtMost, nil
	case "ip":
		if atLeast {
			return &c.IPAtLeast, nil
		}
		return &c.IPAtMost, nil
	case "opponent_ip", "opp_ip", "opponentip":
		if atLeast {
			return &c.OpponentIPAtLeast, nil
		}
		return &c.OpponentIPAtMost, nil
	case "hand":
		if atLeast {
			return &c.HandSizeAtLeast, nil
		}
		return &c.HandSizeAtMost, nil
	case "round":
		if atLeast {
			return &c.RoundAtLeast, nil
		}
		return nil, fmt.Errorf("round only supports >=")
	}
	return nil, fmt.Errorf("unknown subject %q", cl.Subject)
}
