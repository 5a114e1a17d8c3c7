package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"github.com/peterkuimelis/shadowgov/internal/card"
	"github.com/peterkuimelis/shadowgov/internal/config"
	"github.com/peterkuimelis/shadowgov/internal/effect"
	"github.com/peterkuimelis/shadowgov/internal/game"
	"github.com/peterkuimelis/shadowgov/internal/log"
	sgnet "github.com/peterkuimelis/shadowgov/internal/net"
	"github.com/peterkuimelis/shadowgov/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch os.Args[1] {
	case "host":
		err = runHost(ctx, os.Args[2:])
	case "join":
		err = runJoin(ctx, os.Args[2:])
	case "sim":
		err = runSim(ctx, os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "games":
		err = runGames(ctx, os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  sgts host [--deck N] [--addr ADDR] [--decks FILE] [--config FILE]")
	fmt.Println("  sgts join [--deck N] [--addr ADDR]")
	fmt.Println("  sgts sim [-n GAMES] [--seed S] [-v] [--config FILE]")
	fmt.Println("  sgts validate [--mode strict|extended] FILE")
	fmt.Println("  sgts games [show ID | rm ID] [--db FILE]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  host      Start a game server and play as Player 1")
	fmt.Println("  join      Connect to a game server and play as Player 2")
	fmt.Println("  sim       Play random matches and print the results")
	fmt.Println("  validate  Check a card file and list rejected cards")
	fmt.Println("  games     List, show or delete saved games")
	fmt.Println()
	fmt.Println("Environment: SGTS_PRESET, SGTS_SEED, SGTS_MODE, SGTS_CARDS, SGTS_DECKS, SGTS_DB, SGTS_ADDR, SGTS_LOG_LEVEL")
}

// env is what every subcommand that plays needs.
type env struct {
	cfg   config.Config
	diag  zerolog.Logger
	cards *card.Database
	store *store.Store // nil without a db path
}

func (e *env) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

// commonFlags registers --config and the overrides shared by host, sim
// and games.
type commonFlags struct {
	config *string
	seed   *int64
	preset *string
	decks  *string
	db     *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		config: fs.String("config", "", "path to a YAML config file"),
		seed:   fs.Int64("seed", 0, "RNG seed (0 = random)"),
		preset: fs.String("preset", "", "rules preset: classic or competitive"),
		decks:  fs.String("decks", "", "path to a decks file (default: built-in decks)"),
		db:     fs.String("db", "", "SQLite file for saved games"),
	}
}

func (cf commonFlags) load(ctx context.Context, fs *flag.FlagSet) (*env, error) {
	cfg, err := config.Load(*cf.config)
	if err != nil {
		return nil, err
	}
	// Explicit flags win over the file and the environment.
	var presetErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = *cf.seed
		case "preset":
			cfg.Preset = *cf.preset
			cfg.Rules, presetErr = config.Preset(*cf.preset)
		case "decks":
			cfg.Decks = *cf.decks
		case "db":
			cfg.DB = *cf.db
		}
	})
	if presetErr != nil {
		return nil, presetErr
	}

	diag, err := cfg.Logger(os.Stderr)
	if err != nil {
		return nil, err
	}
	cards, err := cfg.CardDatabase(diag)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	e := &env{cfg: cfg, diag: diag, cards: cards}
	if cfg.DB != "" {
		if e.store, err = store.Open(ctx, cfg.DB, diag); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func runHost(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("host", flag.ExitOnError)
	cf := addCommonFlags(fs)
	deck := fs.Int("deck", 1, "deck number to use (from the decks file)")
	addr := fs.String("addr", "", "TCP address to listen on (default from config, :9100)")
	fs.Parse(args)

	e, err := cf.load(ctx, fs)
	if err != nil {
		return err
	}
	defer e.Close()
	if *addr != "" {
		e.cfg.Addr = *addr
	}

	srv := &sgnet.Server{
		DeckFile: e.cfg.Decks,
		Addr:     e.cfg.Addr,
		HostDeck: *deck,
		Cards:    e.cards,
		Rules:    e.cfg.Rules,
		Seed:     e.cfg.Seed,
		Diag:     e.diag,
		Store:    e.store,
	}
	return srv.Run(ctx)
}

func runJoin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("join", flag.ExitOnError)
	deck := fs.Int("deck", 2, "deck number to use (from the host's decks file)")
	addr := fs.String("addr", "localhost:9100", "server address to connect to")
	fs.Parse(args)

	return sgnet.Connect(ctx, *addr, *deck)
}

func runSim(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sim", flag.ExitOnError)
	cf := addCommonFlags(fs)
	n := fs.Int("n", 10, "number of matches")
	verbose := fs.Bool("v", false, "print every event")
	fs.Parse(args)

	e, err := cf.load(ctx, fs)
	if err != nil {
		return err
	}
	defer e.Close()

	decks, err := game.ParseDeckFile(e.cfg.Decks, e.cards)
	if err != nil {
		return err
	}
	if len(decks) < 2 {
		return fmt.Errorf("need two decks, found %d", len(decks))
	}

	seed := e.cfg.Seed
	if seed == 0 {
		seed = effect.RandomSeed()
	}

	var wins [3]int // P1, P2, draw
	turns := 0
	for i := 0; i < *n; i++ {
		s := seed + int64(i)*3
		var logger log.EventLogger = log.NewZerologLogger(e.diag.With().Str("component", "match").Int64("seed", s).Logger())
		if *verbose {
			logger = log.NewTextLogger(os.Stdout)
		}
		m, err := game.NewMatch(game.MatchConfig{
			Deck0:    decks[0].Cards,
			Deck1:    decks[1].Cards,
			Faction0: decks[0].Faction,
			Faction1: decks[1].Faction,
			Rules:    e.cfg.Rules,
			Seed:     s,
			Logger:   logger,
			Diag:     e.diag,
		}, game.NewRandomController(effect.NewRNG(s+1)), game.NewRandomController(effect.NewRNG(s+2)))
		if err != nil {
			return err
		}
		winner, err := m.Run(ctx)
		if err != nil {
			return err
		}
		if winner < 0 {
			wins[2]++
		} else {
			wins[winner]++
		}
		turns += m.State.Turn
		fmt.Printf("match %d (seed %d): %s\n", i+1, s, m.State.Result)

		if e.store != nil {
			if _, err := e.store.Save(ctx, m.State); err != nil {
				return err
			}
		}
	}

	fmt.Printf("\n%s: %d  %s: %d  draws: %d  avg turns: %.1f\n",
		decks[0].Name, wins[0], decks[1].Name, wins[1], wins[2], float64(turns)/float64(max(*n, 1)))
	return nil
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	mode := fs.String("mode", "strict", "builder mode: strict or extended")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("validate takes exactly one card file")
	}

	m, ok := card.ParseMode(*mode)
	if !ok {
		return fmt.Errorf("unknown mode %q", *mode)
	}
	db, err := card.LoadFile(fs.Arg(0), card.Builder{Mode: m}, zerolog.Nop())
	if err != nil {
		return err
	}

	fmt.Printf("%d cards accepted, %d rejected (%s mode)\n", db.Len(), len(db.Rejected), m)
	for _, r := range db.Rejected {
		fmt.Printf("\n%s %s\n", r.ID, r.Name)
		for _, issue := range r.Issues {
			fmt.Printf("  %s\n", issue)
		}
	}
	if len(db.Rejected) > 0 {
		return fmt.Errorf("%d invalid card(s)", len(db.Rejected))
	}
	return nil
}

func runGames(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("games", flag.ExitOnError)
	cf := addCommonFlags(fs)
	fs.Parse(args)

	e, err := cf.load(ctx, fs)
	if err != nil {
		return err
	}
	defer e.Close()
	if e.store == nil {
		return fmt.Errorf("no database: pass --db or set SGTS_DB")
	}

	switch fs.Arg(0) {
	case "":
		games, err := e.store.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTURN\tTRUTH\tWINNER\tRESULT\tUPDATED")
		for _, g := range games {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\n", g.ID, g.Turn, g.Truth, g.Winner, g.Result, g.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	case "show":
		gs, warnings, err := e.store.Load(ctx, fs.Arg(1))
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(gs)
	case "rm":
		return e.store.Delete(ctx, fs.Arg(1))
	default:
		return fmt.Errorf("unknown games command %q", fs.Arg(0))
	}
}
