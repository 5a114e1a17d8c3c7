package capture

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed usa_states.yaml
var usaStatesYAML []byte

var (
	usaOnce   sync.Once
	usaStates []State
)

// USAStates returns the fifty states plus DC with their base defense.
func USAStates() []State {
	usaOnce.Do(func() {
		var f struct {
			States []State `yaml:"states"`
		}
		if err := yaml.Unmarshal(usaStatesYAML, &f); err != nil {
			panic(fmt.Sprintf("usa_states.yaml: %v", err))
		}
		usaStates = f.States
	})
	out := make([]State, len(usaStates))
	copy(out, usaStates)
	return out
}

// NewUSABoard returns a neutral board of all USA states.
func NewUSABoard() *Board {
	return NewBoard(USAStates())
}
