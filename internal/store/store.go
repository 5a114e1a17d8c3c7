// Package store keeps game snapshots in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/peterkuimelis/shadowgov/internal/game"
)

const timeFormat = time.RFC3339Nano

var ErrNotFound = errors.New("game not found")

// Summary is the listing row for one saved game.
type Summary struct {
	ID        string    `json:"id"`
	Turn      int       `json:"turn"`
	Round     int       `json:"round"`
	Truth     int       `json:"truth"`
	Over      bool      `json:"over"`
	Winner    string    `json:"winner,omitempty"`
	Result    string    `json:"result,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and applies
// pending migrations.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the snapshot and returns its id. A state without an id is
// given a fresh ULID.
func (s *Store) Save(ctx context.Context, gs *game.GameState) (string, error) {
	if gs == nil {
		return "", fmt.Errorf("nil game state")
	}
	if gs.ID == "" {
		gs.ID = ulid.Make().String()
	}
	data, err := gs.Marshal()
	if err != nil {
		return "", fmt.Errorf("marshal game %s: %w", gs.ID, err)
	}
	winner := ""
	if gs.Winner != nil {
		winner = gs.Winner.String()
	}
	now := s.now().Format(timeFormat)

	_, err = s.db.ExecContext(ctx, `
INSERT INTO games (id, turn, round, truth, over, winner, result, state, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    turn = excluded.turn,
    round = excluded.round,
    truth = excluded.truth,
    over = excluded.over,
    winner = excluded.winner,
    result = excluded.result,
    state = excluded.state,
    updated_at = excluded.updated_at`,
		gs.ID, gs.Turn, gs.Round, gs.Truth, gs.Over, winner, gs.Result, string(data), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("save game %s: %w", gs.ID, err)
	}
	s.logger.Debug().Str("game", gs.ID).Int("turn", gs.Turn).Msg("saved")
	return gs.ID, nil
}

// Load returns the snapshot with id. Normalisation warnings from
// game.Unmarshal are logged and returned.
func (s *Store) Load(ctx context.Context, id string) (*game.GameState, []string, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM games WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load game %s: %w", id, err)
	}
	gs, warnings, err := game.Unmarshal([]byte(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	for _, w := range warnings {
		s.logger.Warn().Str("game", id).Msg(w)
	}
	return gs, warnings, nil
}

// List returns saved games, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, turn, round, truth, over, winner, result, created_at, updated_at
FROM games ORDER BY updated_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum              Summary
			created, updated string
		)
		if err := rows.Scan(&sum.ID, &sum.Turn, &sum.Round, &sum.Truth, &sum.Over,
			&sum.Winner, &sum.Result, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return nil, fmt.Errorf("game %s created_at: %w", sum.ID, err)
		}
		if sum.UpdatedAt, err = time.Parse(timeFormat, updated); err != nil {
			return nil, fmt.Errorf("game %s updated_at: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete game %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete game %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
