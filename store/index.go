package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// recordedLayout is fixed width so recorded_at sorts as text.
const recordedLayout = "2006-01-02T15:04:05.000000000Z"

// IndexEntry is one finished game in the local index.
type IndexEntry struct {
	GameID   string
	Path     string
	Self     int
	Players  int
	Width    int
	Height   int
	Turns    int
	LastTurn int
	Balance  int64
	Units    int
	Recorded time.Time
}

// Index is a small sqlite catalog of archived games, so tools can list games
// without opening every parquet file.
type Index struct {
	db *sql.DB
}

func OpenIndex(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS games (
		game_id TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		self_id INTEGER NOT NULL,
		players INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		turns INTEGER NOT NULL,
		last_turn INTEGER NOT NULL,
		balance INTEGER NOT NULL,
		units INTEGER NOT NULL,
		recorded_at TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create games table: %w", err)
	}
	return &Index{db: db}, nil
}

// Put inserts or replaces the entry for e.GameID. A zero Recorded time is
// replaced with the current time.
func (ix *Index) Put(ctx context.Context, e IndexEntry) error {
	if e.GameID == "" {
		return fmt.Errorf("index entry has no game id")
	}
	if e.Recorded.IsZero() {
		e.Recorded = time.Now()
	}
	_, err := ix.db.ExecContext(ctx, `INSERT OR REPLACE INTO games
		(game_id, path, self_id, players, width, height, turns, last_turn, balance, units, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.GameID, e.Path, e.Self, e.Players, e.Width, e.Height, e.Turns, e.LastTurn, e.Balance, e.Units,
		e.Recorded.UTC().Format(recordedLayout),
	)
	if err != nil {
		return fmt.Errorf("index game %s: %w", e.GameID, err)
	}
	return nil
}

// List returns every indexed game, most recent first.
func (ix *Index) List(ctx context.Context) ([]IndexEntry, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT game_id, path, self_id, players, width, height, turns, last_turn, balance, units, recorded_at
		FROM games ORDER BY recorded_at DESC, game_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IndexEntry
	for rows.Next() {
		var e IndexEntry
		var recorded string
		if err := rows.Scan(&e.GameID, &e.Path, &e.Self, &e.Players, &e.Width, &e.Height, &e.Turns, &e.LastTurn, &e.Balance, &e.Units, &recorded); err != nil {
			return nil, err
		}
		if e.Recorded, err = time.Parse(recordedLayout, recorded); err != nil {
			return nil, fmt.Errorf("game %s: recorded_at: %w", e.GameID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (ix *Index) Close() error { return ix.db.Close() }
