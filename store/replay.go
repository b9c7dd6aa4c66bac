package store

import (
	"fmt"

	"github.com/brensch/halite3/game"
)

// Frame is the board as it stood after one archived turn was applied.
type Frame struct {
	Turn     int
	Yields   [][]int
	Units    map[game.Position]game.PlayerID
	Carried  map[game.Position]int
	Sites    map[game.Position]game.PlayerID
	Balances map[game.PlayerID]int
	Commands string
}

// BuildFrames replays an archive through a fresh World, one frame per row.
// Rows must belong to a single game and start with its first recorded turn.
func BuildFrames(rows []TurnRow) ([]Frame, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	first := rows[0]
	w, h := int(first.Width), int(first.Height)
	if len(first.InitialYields) != w*h {
		return nil, fmt.Errorf("first row has %d initial yields, want %d", len(first.InitialYields), w*h)
	}

	yields := make([][]int, h)
	for y := range yields {
		yields[y] = make([]int, w)
		for x := range yields[y] {
			yields[y][x] = int(first.InitialYields[y*w+x])
		}
	}
	m, err := game.NewMap(w, h, yields)
	if err != nil {
		return nil, err
	}
	homes := make([]game.Home, 0, len(first.Players))
	for _, p := range first.Players {
		homes = append(homes, game.Home{Player: game.PlayerID(p.ID), Pos: game.Position{X: int(p.HomeX), Y: int(p.HomeY)}})
	}
	world, err := game.NewWorld(game.PlayerID(first.Self), homes, m, game.DefaultConstants)
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, 0, len(rows))
	for _, row := range rows {
		if row.GameID != first.GameID {
			return nil, fmt.Errorf("turn %d belongs to game %q, want %q", row.Turn, row.GameID, first.GameID)
		}
		world.BeginTurnUpdate()
		for _, p := range row.Players {
			snap, err := snapshotOf(p)
			if err != nil {
				return nil, fmt.Errorf("turn %d: %w", row.Turn, err)
			}
			if err := world.ApplyPlayerSnapshot(snap); err != nil {
				return nil, fmt.Errorf("turn %d: %w", row.Turn, err)
			}
		}
		n := min(len(row.DeltaX), len(row.DeltaY), len(row.DeltaYield))
		deltas := make([]game.YieldDelta, 0, n)
		for i := 0; i < n; i++ {
			deltas = append(deltas, game.YieldDelta{
				Pos:   game.Position{X: int(row.DeltaX[i]), Y: int(row.DeltaY[i])},
				Yield: int(row.DeltaYield[i]),
			})
		}
		world.ApplyYieldDeltas(deltas)
		world.Turn = int(row.Turn)
		frames = append(frames, frameOf(world, row.Commands))
	}
	return frames, nil
}

func snapshotOf(p ArchivePlayer) (game.PlayerSnapshot, error) {
	s := game.PlayerSnapshot{Player: game.PlayerID(p.ID), Balance: int(p.Balance)}
	if n := len(p.UnitID); len(p.UnitX) != n || len(p.UnitY) != n || len(p.UnitCarried) != n {
		return s, fmt.Errorf("player %d: ragged unit columns", p.ID)
	}
	if n := len(p.OutpostID); len(p.OutpostX) != n || len(p.OutpostY) != n {
		return s, fmt.Errorf("player %d: ragged outpost columns", p.ID)
	}
	for i := range p.UnitID {
		s.Units = append(s.Units, game.UnitState{
			ID:      game.EntityID(p.UnitID[i]),
			Pos:     game.Position{X: int(p.UnitX[i]), Y: int(p.UnitY[i])},
			Carried: int(p.UnitCarried[i]),
		})
	}
	for i := range p.OutpostID {
		s.Outposts = append(s.Outposts, game.OutpostState{
			ID:  game.EntityID(p.OutpostID[i]),
			Pos: game.Position{X: int(p.OutpostX[i]), Y: int(p.OutpostY[i])},
		})
	}
	return s, nil
}

func frameOf(w *game.World, commands string) Frame {
	f := Frame{
		Turn:     w.Turn,
		Yields:   w.Map.Yields(),
		Units:    map[game.Position]game.PlayerID{},
		Carried:  map[game.Position]int{},
		Sites:    map[game.Position]game.PlayerID{},
		Balances: map[game.PlayerID]int{},
		Commands: commands,
	}
	for _, p := range w.Players() {
		f.Balances[p.ID] = p.Balance
		for _, s := range p.Structures() {
			f.Sites[s.Pos] = p.ID
		}
		for _, u := range p.Units {
			f.Units[u.Pos] = p.ID
			f.Carried[u.Pos] = u.Carried
		}
	}
	return f
}
