package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/peterkuimelis/shadowgov/internal/config"
	"github.com/peterkuimelis/shadowgov/internal/store"
	"github.com/peterkuimelis/shadowgov/internal/web"
)

func main() {
	port := flag.Int("port", 8080, "HTTP port to listen on")
	cfgPath := flag.String("config", "", "path to a YAML config file")
	decks := flag.String("decks", "", "path to decks YAML file (default: built-in decks)")
	db := flag.String("db", "", "SQLite file with saved games")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *port, *cfgPath, *decks, *db); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, port int, cfgPath, decks, db string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if decks != "" {
		cfg.Decks = decks
	}
	if db != "" {
		cfg.DB = db
	}

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}
	cards, err := cfg.CardDatabase(logger)
	if err != nil {
		return fmt.Errorf("load cards: %w", err)
	}

	opts := web.Options{Cards: cards, DecksFile: cfg.Decks, Logger: logger}
	if cfg.DB != "" {
		st, err := store.Open(ctx, cfg.DB, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		opts.Store = st
	}

	srv, err := web.NewServer(opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "web UI listening on http://localhost:%d\n", port)
	return srv.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
}
