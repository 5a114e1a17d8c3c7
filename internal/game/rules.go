package game

import (
	"fmt"

	"github.com/peterkuimelis/shadowgov/internal/card"
)

// Rules holds every tunable number of a match.
type Rules struct {
	Mode card.Mode `yaml:"mode" json:"mode"`

	StartingIP    int `yaml:"starting_ip" json:"startingIp"`
	StartingTruth int `yaml:"starting_truth" json:"startingTruth"`

	BaseIP          int `yaml:"base_ip" json:"baseIp"`
	IPPerState      int `yaml:"ip_per_state" json:"ipPerState"`
	MaxPlaysPerTurn int `yaml:"max_plays_per_turn" json:"maxPlaysPerTurn"`
	HandSize        int `yaml:"hand_size" json:"handSize"`

	FreeDiscardsPerTurn int `yaml:"free_discards_per_turn" json:"freeDiscardsPerTurn"`
	ExtraDiscardCost    int `yaml:"extra_discard_cost" json:"extraDiscardCost"`

	Victory     VictoryRules     `yaml:"victory" json:"victory"`
	Maintenance MaintenanceRules `yaml:"maintenance" json:"maintenance"`
	CatchUp     CatchUpRules     `yaml:"catch_up" json:"catchUp"`
}

// VictoryRules are the thresholds checked after every state change.
type VictoryRules struct {
	States    int `yaml:"states" json:"states"`
	TruthHigh int `yaml:"truth_high" json:"truthHigh"`
	TruthLow  int `yaml:"truth_low" json:"truthLow"`
	IP        int `yaml:"ip" json:"ip"`
}

// MaintenanceRules charge upkeep on hoarded IP: every Divisor IP above
// Threshold costs one IP per turn.
type MaintenanceRules struct {
	Enabled   bool `yaml:"enabled" json:"enabled"`
	Threshold int  `yaml:"threshold" json:"threshold"`
	Divisor   int  `yaml:"divisor" json:"divisor"`
}

// CatchUpRules tax the leader and pay the trailer. Gaps within the grace
// values are free; each modifier is capped at MaxModifier.
type CatchUpRules struct {
	Enabled     bool `yaml:"enabled" json:"enabled"`
	IPGrace     int  `yaml:"ip_grace" json:"ipGrace"`
	IPStep      int  `yaml:"ip_step" json:"ipStep"`
	StateGrace  int  `yaml:"state_grace" json:"stateGrace"`
	MaxModifier int  `yaml:"max_modifier" json:"maxModifier"`
}

// DefaultRules is the classic ruleset: flat income, no upkeep or
// catch-up.
func DefaultRules() Rules {
	return Rules{
		Mode:                card.ModeStrict,
		StartingIP:          10,
		StartingTruth:       50,
		BaseIP:              5,
		IPPerState:          1,
		MaxPlaysPerTurn:     3,
		HandSize:            5,
		FreeDiscardsPerTurn: 1,
		ExtraDiscardCost:    1,
		Victory: VictoryRules{
			States:    10,
			TruthHigh: 90,
			TruthLow:  10,
			IP:        200,
		},
		Maintenance: MaintenanceRules{Threshold: 40, Divisor: 10},
		CatchUp:     CatchUpRules{IPGrace: 10, IPStep: 5, StateGrace: 1, MaxModifier: 4},
	}
}

// CompetitiveRules turn on maintenance and catch-up and allow the
// extended effect vocabulary.
func CompetitiveRules() Rules {
	r := DefaultRules()
	r.Mode = card.ModeExtended
	r.Maintenance.Enabled = true
	r.CatchUp.Enabled = true
	return r
}

// Validate reports the first nonsensical value.
func (r Rules) Validate() error {
	switch {
	case r.StartingTruth < 0 || r.StartingTruth > 100:
		return fmt.Errorf("starting truth %d outside 0..100", r.StartingTruth)
	case r.StartingIP < 0:
		return fmt.Errorf("negative starting IP %d", r.StartingIP)
	case r.MaxPlaysPerTurn < 1:
		return fmt.Errorf("max plays per turn must be positive, got %d", r.MaxPlaysPerTurn)
	case r.HandSize < 1:
		return fmt.Errorf("hand size must be positive, got %d", r.HandSize)
	case r.FreeDiscardsPerTurn < 0 || r.ExtraDiscardCost < 0:
		return fmt.Errorf("discard rules must not be negative")
	case r.Victory.States < 1 || r.Victory.IP < 1:
		return fmt.Errorf("victory thresholds must be positive")
	case r.Victory.TruthLow >= r.Victory.TruthHigh:
		return fmt.Errorf("truth thresholds overlap: low %d, high %d", r.Victory.TruthLow, r.Victory.TruthHigh)
	case r.Maintenance.Enabled && r.Maintenance.Divisor < 1:
		return fmt.Errorf("maintenance divisor must be positive")
	case r.CatchUp.Enabled && r.CatchUp.IPStep < 1:
		return fmt.Errorf("catch-up IP step must be positive")
	}
	return nil
}
