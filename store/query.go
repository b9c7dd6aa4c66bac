package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// GameSummary is one archived game as seen from the recording client.
type GameSummary struct {
	GameID    string
	File      string
	FirstTurn int
	LastTurn  int
	Turns     int
	Width     int
	Height    int
	Self      int
	// Balance and Units are the client's figures on its last recorded turn.
	Balance int64
	Units   int
	// Place is the client's rank by final balance, 1 being the richest.
	Place   int
	Players int
}

// ListArchives finds every finished archive under roots, skipping the tmp/
// directories where recorders keep files that are still being written.
func ListArchives(roots []string) ([]string, error) {
	var files []string
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == "tmp" && path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(d.Name(), ".parquet") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// OpenArchiveDB opens an in-memory DuckDB with a "turns" view over files.
func OpenArchiveDB(files []string) (*sql.DB, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no archive files")
	}
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	// Basic pragmas; ignore errors for compatibility across versions.
	_, _ = db.Exec("PRAGMA threads=4")

	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = "'" + escapeSQLString(f) + "'"
	}
	sqlText := `CREATE OR REPLACE VIEW turns AS
		SELECT * FROM read_parquet([` + strings.Join(quoted, ",") + `], filename=true, union_by_name=true)`
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create turns view: %w", err)
	}
	return db, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

const summaryQuery = `WITH game_stats AS (
	SELECT
		game_id,
		MIN(turn)::INTEGER AS first_turn,
		MAX(turn)::INTEGER AS last_turn,
		COUNT(*)::INTEGER AS turns,
		MIN(width)::INTEGER AS width,
		MIN(height)::INTEGER AS height,
		MIN(self_id)::INTEGER AS self_id,
		MIN(filename)::VARCHAR AS file
	FROM turns
	GROUP BY game_id
),
last_turns AS (
	SELECT game_id, players
	FROM (
		SELECT game_id, players,
			row_number() OVER (PARTITION BY game_id ORDER BY turn DESC) AS rn
		FROM turns
	)
	WHERE rn = 1
),
exploded AS (
	SELECT game_id, unnest(players) AS p FROM last_turns
),
final_state AS (
	SELECT
		game_id,
		struct_extract(p, 'id')::INTEGER AS pid,
		struct_extract(p, 'balance')::BIGINT AS balance,
		len(struct_extract(p, 'unit_id'))::INTEGER AS units,
		rank() OVER (PARTITION BY game_id ORDER BY struct_extract(p, 'balance') DESC)::INTEGER AS place,
		(count(*) OVER (PARTITION BY game_id))::INTEGER AS players
	FROM exploded
)
SELECT
	g.game_id, g.file, g.first_turn, g.last_turn, g.turns, g.width, g.height, g.self_id,
	COALESCE(f.balance, 0), COALESCE(f.units, 0), COALESCE(f.place, 0), COALESCE(f.players, 0)
FROM game_stats g
LEFT JOIN final_state f ON f.game_id = g.game_id AND f.pid = g.self_id
ORDER BY g.game_id`

// Summarize aggregates every archive under roots, one summary per game.
func Summarize(ctx context.Context, roots []string) ([]GameSummary, error) {
	files, err := ListArchives(roots)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	db, err := OpenArchiveDB(files)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, summaryQuery)
	if err != nil {
		return nil, fmt.Errorf("summary query: %w", err)
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.GameID, &g.File, &g.FirstTurn, &g.LastTurn, &g.Turns, &g.Width, &g.Height, &g.Self,
			&g.Balance, &g.Units, &g.Place, &g.Players); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
