// Package store persists played games: a parquet turn archive for analysis
// and replay, and a compressed transcript of every protocol line.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/brensch/halite3/game"
	"github.com/brensch/halite3/protocol"
)

const archiveSchema = "halite_turn_v1"

// TurnRow is one synchronized turn. The first row of a game also carries the
// full initial yield grid (row-major); later rows only carry deltas.
type TurnRow struct {
	GameID string `parquet:"game_id,dict"`
	Turn   int32  `parquet:"turn"`
	Self   int32  `parquet:"self_id"`
	Width  int32  `parquet:"width"`
	Height int32  `parquet:"height"`

	InitialYields []int32 `parquet:"initial_yields"`

	Players []ArchivePlayer `parquet:"players"`

	DeltaX     []int32 `parquet:"delta_x"`
	DeltaY     []int32 `parquet:"delta_y"`
	DeltaYield []int32 `parquet:"delta_yield"`

	// Commands is the exact line this client wrote for the turn.
	Commands string `parquet:"commands"`
}

type ArchivePlayer struct {
	ID      int32 `parquet:"id"`
	Balance int64 `parquet:"balance"`
	HomeX   int32 `parquet:"home_x"`
	HomeY   int32 `parquet:"home_y"`

	UnitID      []int32 `parquet:"unit_id"`
	UnitX       []int32 `parquet:"unit_x"`
	UnitY       []int32 `parquet:"unit_y"`
	UnitCarried []int32 `parquet:"unit_carried"`

	OutpostID []int32 `parquet:"outpost_id"`
	OutpostX  []int32 `parquet:"outpost_x"`
	OutpostY  []int32 `parquet:"outpost_y"`
}

// Recorder writes one TurnRow per turn into dir/tmp and moves the finished
// file into dir on Close, so readers never see a partial archive. It is a
// session observer.
type Recorder struct {
	gameID  string
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[TurnRow]

	hs      protocol.Handshake
	started bool
	rows    int

	lastTurn    int
	lastBalance int
	lastUnits   int
}

func NewRecorder(dir, gameID string) (*Recorder, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive dir is required")
	}
	if gameID == "" || strings.ContainsAny(gameID, `/\`) {
		return nil, fmt.Errorf("invalid game id %q", gameID)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}
	tmpDir := filepath.Join(absDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := gameID + ".parquet"
	tmpPath := filepath.Join(tmpDir, name)
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}
	w := parquet.NewGenericWriter[TurnRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", archiveSchema)
	w.SetKeyValueMetadata("game_id", gameID)

	return &Recorder{
		gameID:  gameID,
		tmpPath: tmpPath,
		outPath: filepath.Join(absDir, name),
		file:    f,
		writer:  w,
	}, nil
}

func (r *Recorder) Rows() int { return r.rows }

func (r *Recorder) ObserveHandshake(hs protocol.Handshake) error {
	r.hs = hs
	return nil
}

func (r *Recorder) ObserveTurn(t protocol.Turn, _ *game.World, cmds []protocol.Command) error {
	if r.writer == nil {
		return fmt.Errorf("recorder is closed")
	}
	line, err := protocol.EncodeCommands(cmds)
	if err != nil {
		return err
	}
	row := r.turnRow(t, line)
	if _, err := r.writer.Write([]TurnRow{row}); err != nil {
		return fmt.Errorf("write turn %d: %w", t.Number, err)
	}
	r.rows++
	r.lastTurn = t.Number
	for _, p := range t.Players {
		if p.Player == r.hs.Self {
			r.lastBalance = p.Balance
			r.lastUnits = len(p.Units)
		}
	}
	return nil
}

// Entry describes the archive for the game index. Path is filled in by the
// caller once Close has moved the file.
func (r *Recorder) Entry() IndexEntry {
	return IndexEntry{
		GameID:   r.gameID,
		Self:     int(r.hs.Self),
		Players:  len(r.hs.Homes),
		Width:    r.hs.Width,
		Height:   r.hs.Height,
		Turns:    r.rows,
		LastTurn: r.lastTurn,
		Balance:  int64(r.lastBalance),
		Units:    r.lastUnits,
	}
}

func (r *Recorder) turnRow(t protocol.Turn, line string) TurnRow {
	row := TurnRow{
		GameID:   r.gameID,
		Turn:     int32(t.Number),
		Self:     int32(r.hs.Self),
		Width:    int32(r.hs.Width),
		Height:   int32(r.hs.Height),
		Commands: line,
	}
	if !r.started {
		row.InitialYields = make([]int32, 0, r.hs.Width*r.hs.Height)
		for _, yrow := range r.hs.Yields {
			for _, v := range yrow {
				row.InitialYields = append(row.InitialYields, int32(v))
			}
		}
		r.started = true
	}

	homes := make(map[game.PlayerID]game.Position, len(r.hs.Homes))
	for _, h := range r.hs.Homes {
		homes[h.Player] = h.Pos
	}
	for _, p := range t.Players {
		ap := ArchivePlayer{
			ID:          int32(p.Player),
			Balance:     int64(p.Balance),
			HomeX:       int32(homes[p.Player].X),
			HomeY:       int32(homes[p.Player].Y),
			UnitID:      make([]int32, 0, len(p.Units)),
			UnitX:       make([]int32, 0, len(p.Units)),
			UnitY:       make([]int32, 0, len(p.Units)),
			UnitCarried: make([]int32, 0, len(p.Units)),
			OutpostID:   make([]int32, 0, len(p.Outposts)),
			OutpostX:    make([]int32, 0, len(p.Outposts)),
			OutpostY:    make([]int32, 0, len(p.Outposts)),
		}
		for _, u := range p.Units {
			ap.UnitID = append(ap.UnitID, int32(u.ID))
			ap.UnitX = append(ap.UnitX, int32(u.Pos.X))
			ap.UnitY = append(ap.UnitY, int32(u.Pos.Y))
			ap.UnitCarried = append(ap.UnitCarried, int32(u.Carried))
		}
		for _, o := range p.Outposts {
			ap.OutpostID = append(ap.OutpostID, int32(o.ID))
			ap.OutpostX = append(ap.OutpostX, int32(o.Pos.X))
			ap.OutpostY = append(ap.OutpostY, int32(o.Pos.Y))
		}
		row.Players = append(row.Players, ap)
	}
	for _, d := range t.Deltas {
		row.DeltaX = append(row.DeltaX, int32(d.Pos.X))
		row.DeltaY = append(row.DeltaY, int32(d.Pos.Y))
		row.DeltaYield = append(row.DeltaYield, int32(d.Yield))
	}
	return row
}

// Close finishes the parquet file and moves it out of tmp/. An archive with no
// rows is discarded and Close returns an empty path.
func (r *Recorder) Close() (string, error) {
	if r.writer == nil && r.file == nil {
		return "", nil
	}
	var closeErr error
	if r.writer != nil {
		closeErr = r.writer.Close()
		r.writer = nil
	}
	var fileErr error
	if r.file != nil {
		_ = r.file.Sync()
		fileErr = r.file.Close()
		r.file = nil
	}
	if closeErr != nil {
		return "", fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return "", fmt.Errorf("close parquet file: %w", fileErr)
	}
	if r.rows == 0 {
		_ = os.Remove(r.tmpPath)
		return "", nil
	}
	if err := os.Rename(r.tmpPath, r.outPath); err != nil {
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return r.outPath, nil
}

// ReadArchive loads every row of an archive file, in turn order as written.
func ReadArchive(path string) ([]TurnRow, error) {
	rows, err := parquet.ReadFile[TurnRow](path)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}
	return rows, nil
}
