package main

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/brensch/halite3/game"
	"github.com/brensch/halite3/nav"
	"github.com/brensch/halite3/protocol"
	"github.com/brensch/halite3/rules"
)

// collector is the sample policy: mine until nearly full, carry the load to
// the nearest dropoff, and spawn during the first half of the game.
type collector struct {
	logger *slog.Logger

	// returning tracks units heading home; they keep going until they unload.
	returning map[game.EntityID]bool
}

func newCollector(logger *slog.Logger) *collector {
	return &collector{logger: logger, returning: map[game.EntityID]bool{}}
}

func (c *collector) Turn(w *game.World, p *nav.Planner) ([]protocol.Command, error) {
	me := w.Me()
	consts := w.Constants
	turnsLeft := consts.MaxTurns - w.Turn

	units := append([]*game.Entity(nil), me.Units...)
	// Loaded units plan first so they win contested cells on the way home.
	sort.SliceStable(units, func(i, j int) bool { return units[i].Carried > units[j].Carried })

	alive := make(map[game.EntityID]bool, len(units))
	cmds := make([]protocol.Command, 0, len(units)+1)
	for _, u := range units {
		alive[u.ID] = true
		dropoff := rules.NearestDropoff(w, me.ID, u.Pos)
		distHome := w.Distance(u.Pos, dropoff.Pos)

		switch {
		case u.Pos == dropoff.Pos:
			c.returning[u.ID] = false
		case u.Carried*10 >= consts.MaxEnergy*9, distHome+5 >= turnsLeft:
			c.returning[u.ID] = true
		}

		var dir game.Direction
		switch {
		case !rules.CanMove(w, u):
			dir = p.MoveOrStay(u, game.Still)
		case c.returning[u.ID]:
			d, err := p.PlanMoveToward(u, dropoff.Pos)
			if errors.Is(err, nav.ErrExhausted) {
				d = p.MoveOrStay(u, game.Still)
			} else if err != nil {
				return nil, err
			}
			dir = d
		case w.CellAt(u.Pos).Yield*10 < consts.MaxEnergy:
			dir = p.MoveOrStay(u, richestNeighbor(w, u.Pos))
		default:
			dir = p.MoveOrStay(u, game.Still)
		}
		cmds = append(cmds, protocol.Move(u.ID, dir))
	}
	for id := range c.returning {
		if !alive[id] {
			delete(c.returning, id)
		}
	}

	if w.Turn*2 <= consts.MaxTurns && rules.CanSpawn(w, p) {
		p.Claim(me.Home.Pos)
		cmds = append(cmds, protocol.Spawn())
	}
	c.logger.Debug("planned", "turn", w.Turn, "units", len(units), "commands", len(cmds), "claims", p.Claims())
	return cmds, nil
}

func richestNeighbor(w *game.World, pos game.Position) game.Direction {
	best, bestYield := game.Still, -1
	for i, n := range w.Map.Neighbors(pos) {
		if y := w.CellAt(n).Yield; y > bestYield {
			best, bestYield = game.Cardinals[i], y
		}
	}
	return best
}
