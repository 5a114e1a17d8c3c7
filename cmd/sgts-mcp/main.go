package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/peterkuimelis/shadowgov/internal/config"
	sgmcp "github.com/peterkuimelis/shadowgov/internal/mcp"
	"github.com/peterkuimelis/shadowgov/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "path to a YAML config file")
	decks := flag.String("decks", "", "path to decks YAML file (default: built-in decks)")
	addr := flag.String("addr", ":9999", "TCP address for a human opponent")
	db := flag.String("db", "", "SQLite file for finished games")
	flag.Parse()

	if err := run(*cfgPath, *decks, *addr, *db); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, decks, addr, db string) error {
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

	// stdout carries the protocol; diagnostics go to stderr.
	diag, err := cfg.Logger(os.Stderr)
	if err != nil {
		return err
	}
	cards, err := cfg.CardDatabase(diag)
	if err != nil {
		return fmt.Errorf("load cards: %w", err)
	}

	opts := sgmcp.Options{
		Rules:     cfg.Rules,
		Cards:     cards,
		DecksFile: cfg.Decks,
		Addr:      addr,
		Seed:      cfg.Seed,
		Diag:      diag,
	}
	if cfg.DB != "" {
		st, err := store.Open(context.Background(), cfg.DB, diag)
		if err != nil {
			return err
		}
		defer st.Close()
		opts.Store = st
	}

	s := server.NewMCPServer("sgts", "1.0.0")
	sgmcp.RegisterTools(s, opts)

	return server.ServeStdio(s)
}
