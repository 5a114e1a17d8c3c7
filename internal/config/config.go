// Package config loads match settings from a YAML file and the SGTS_*
// environment variables.
package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/game"
)

const (
	PresetClassic     = "classic"
	PresetCompetitive = "competitive"
)

var presets = map[string]func() game.Rules{
	PresetClassic:     game.DefaultRules,
	PresetCompetitive: game.CompetitiveRules,
}

// Config is everything a binary needs to set up a match. Rules start from
// the named preset; the file overrides individual values and the
// environment overrides the file.
type Config struct {
	Preset   string `yaml:"preset" env:"SGTS_PRESET"`
	Seed     int64  `yaml:"seed" env:"SGTS_SEED"` // 0 picks a random seed
	Cards    string `yaml:"cards" env:"SGTS_CARDS"`
	Decks    string `yaml:"decks" env:"SGTS_DECKS"`
	DB       string `yaml:"db" env:"SGTS_DB"`
	Addr     string `yaml:"addr" env:"SGTS_ADDR"`
	LogLevel string `yaml:"log_level" env:"SGTS_LOG_LEVEL"`

	// Mode overrides Rules.Mode when set.
	Mode string `yaml:"-" env:"SGTS_MODE"`

	Rules game.Rules `yaml:"rules"`
}

// Default is the classic preset with no files configured.
func Default() Config {
	return Config{
		Preset:   PresetClassic,
		Addr:     ":9100",
		LogLevel: "warn",
		Rules:    game.DefaultRules(),
	}
}

// Preset returns the rules of a named preset.
func Preset(name string) (game.Rules, error) {
	f, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return game.Rules{}, fmt.Errorf("unknown preset %q (have %s)", name, strings.Join(PresetNames(), ", "))
	}
	return f(), nil
}

// PresetNames lists the known presets in order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load reads path (may be empty) and then the environment.
func Load(path string) (Config, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes and the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	// The preset seeds the rules before the file's own values land on top,
	// so it has to be known first.
	var head struct {
		Preset string `yaml:"preset" env:"SGTS_PRESET"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := env.Parse(&head); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if head.Preset != "" {
		rules, err := Preset(head.Preset)
		if err != nil {
			return Config{}, err
		}
		cfg.Preset = strings.ToLower(head.Preset)
		cfg.Rules = rules
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Preset = strings.ToLower(cfg.Preset)

	if cfg.Mode != "" {
		m, ok := card.ParseMode(cfg.Mode)
		if !ok {
			return Config{}, fmt.Errorf("unknown mode %q", cfg.Mode)
		}
		cfg.Rules.Mode = m
	}
	if err := cfg.Rules.Validate(); err != nil {
		return Config{}, fmt.Errorf("rules: %w", err)
	}
	return cfg, nil
}

// CardDatabase loads the configured card file, or the built-in set for
// the rules' mode.
func (c Config) CardDatabase(logger zerolog.Logger) (*card.Database, error) {
	if c.Cards == "" {
		return card.Default(c.Rules.Mode), nil
	}
	return card.LoadFile(c.Cards, card.Builder{Mode: c.Rules.Mode}, logger)
}

// Logger builds the diagnostics logger at the configured level. Terminals
// get the console writer; anything else gets JSON lines.
func (c Config) Logger(w io.Writer) (zerolog.Logger, error) {
	level := zerolog.WarnLevel
	if c.LogLevel != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
