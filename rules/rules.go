// Package rules derives gameplay checks from the engine constants. The engine
// is authoritative; these helpers only let a bot predict what it will accept.
package rules

import (
	"github.com/brensch/halite3/game"
	"github.com/brensch/halite3/nav"
)

// MoveCost is what a unit pays to leave a cell with the given yield.
func MoveCost(c game.Constants, yield int, inspired bool) int {
	ratio := c.MoveCostRatio
	if inspired && c.InspirationEnabled {
		ratio = c.InspiredMoveCostRatio
	}
	return yield / ratio
}

// CanMove reports whether u carries enough to leave the cell it stands on.
func CanMove(w *game.World, u *game.Entity) bool {
	cell := w.CellAt(u.Pos)
	return u.Carried >= MoveCost(w.Constants, cell.Yield, IsInspired(w, u))
}

// Extract returns how much a unit staying on a cell removes from it and how
// much it gains in total, inspiration bonus included. Both are capped by the
// unit's remaining capacity.
func Extract(c game.Constants, yield, carried int, inspired bool) (taken, gained int) {
	ratio := c.ExtractRatio
	if inspired && c.InspirationEnabled {
		ratio = c.InspiredExtractRatio
	}
	taken = (yield + ratio - 1) / ratio
	room := c.MaxEnergy - carried
	if room <= 0 {
		return 0, 0
	}
	taken = min(taken, room)
	gained = taken
	if inspired && c.InspirationEnabled {
		bonus := int(float64(taken) * c.InspiredBonusMultiplier)
		gained = min(taken+bonus, room)
	}
	return taken, gained
}

// IsInspired reports whether enough opponent units are within the inspiration
// radius of u.
func IsInspired(w *game.World, u *game.Entity) bool {
	c := w.Constants
	if !c.InspirationEnabled || c.InspirationUnitCount <= 0 {
		return false
	}
	near := 0
	for _, p := range w.Players() {
		if p.ID == u.Owner {
			continue
		}
		for _, o := range p.Units {
			if w.Distance(u.Pos, o.Pos) <= c.InspirationRadius {
				near++
				if near >= c.InspirationUnitCount {
					return true
				}
			}
		}
	}
	return false
}

// IsFull reports whether u has reached MaxEnergy.
func IsFull(c game.Constants, u *game.Entity) bool {
	return u.Carried >= c.MaxEnergy
}

// CanSpawn reports whether the bot can afford a unit and its home cell will be
// free: nobody stands there now and nothing has been planned onto it.
func CanSpawn(w *game.World, p *nav.Planner) bool {
	me := w.Me()
	if me.Balance < w.Constants.UnitCost {
		return false
	}
	home := me.Home.Pos
	return !w.CellAt(home).IsOccupied() && !p.Claimed(home)
}

// CanConvert reports whether u can become an outpost. The unit's cargo and
// the cell's yield both count toward the cost.
func CanConvert(w *game.World, u *game.Entity) bool {
	cell := w.CellAt(u.Pos)
	if cell.HasStructure() {
		return false
	}
	p, ok := w.Player(u.Owner)
	if !ok {
		return false
	}
	return p.Balance+u.Carried+cell.Yield >= w.Constants.OutpostCost
}

// NearestDropoff returns the owner's structure closest to pos.
func NearestDropoff(w *game.World, owner game.PlayerID, pos game.Position) *game.Entity {
	p, ok := w.Player(owner)
	if !ok {
		return nil
	}
	var best *game.Entity
	bestDist := 0
	for _, s := range p.Structures() {
		d := w.Distance(pos, s.Pos)
		if best == nil || d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}
