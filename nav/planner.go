// Package nav assigns one-step moves to a fleet so that no two of its units
// target the same cell in the same turn.
//
// Claims live for one turn. Units planned earlier win contested cells, so
// callers should plan their most important units first.
package nav

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/brensch/halite3/game"
)

// DefaultAttempts is the retry budget used by MoveOrStay and PlanMoveToward.
const DefaultAttempts = 5

// ErrExhausted means no free cell was found within the attempt budget. It is
// recoverable: the caller keeps the unit still.
var ErrExhausted = errors.New("nav: attempt budget exhausted")

type Planner struct {
	world    *game.World
	rng      *rand.Rand
	attempts int
	claims   map[game.Position]game.EntityID
}

// New returns a planner over world. A nil rng gets a fixed seed; attempts <= 0
// means DefaultAttempts.
func New(world *game.World, rng *rand.Rand, attempts int) *Planner {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	return &Planner{
		world:    world,
		rng:      rng,
		attempts: attempts,
		claims:   make(map[game.Position]game.EntityID),
	}
}

// Reset drops every claim. Call it at the start of each turn.
func (p *Planner) Reset() {
	clear(p.claims)
}

// Attempts is the budget used when the caller does not give one.
func (p *Planner) Attempts() int { return p.attempts }

// Claimed reports whether pos has been claimed this turn.
func (p *Planner) Claimed(pos game.Position) bool {
	_, ok := p.claims[p.world.Map.Normalize(pos)]
	return ok
}

// Claim reserves pos for this turn without planning a move, e.g. the home
// cell before spawning. It returns false if pos was already claimed.
func (p *Planner) Claim(pos game.Position) bool {
	pos = p.world.Map.Normalize(pos)
	if _, ok := p.claims[pos]; ok {
		return false
	}
	p.claims[pos] = game.NoEntity
	return true
}

// Claims returns how many cells are reserved this turn.
func (p *Planner) Claims() int { return len(p.claims) }

// blocked reports whether u may not end the turn on target. A unit's own
// occupancy never blocks it from staying put; a claim always does.
func (p *Planner) blocked(u *game.Entity, target game.Position) bool {
	if _, ok := p.claims[target]; ok {
		return true
	}
	occ := p.world.Map.At(target).Unit
	return occ != nil && occ != u
}

// PlanMove tries dir first and then uniformly sampled cardinal directions,
// up to maxAttempts tries in total. On success the target cell is claimed.
//
// The unit's current cell counts as free for it unless claimed. A unit boxed
// in by other units can therefore still be granted Still; blocked neighbours
// alone do not exhaust a Still request.
func (p *Planner) PlanMove(u *game.Entity, dir game.Direction, maxAttempts int) (game.Direction, error) {
	if !dir.Valid() {
		return game.Still, fmt.Errorf("plan unit %d: %v", u.ID, dir)
	}
	return p.plan(u, []game.Direction{dir}, maxAttempts)
}

// PlanMoveToward heads for the toroidally shortest directions to target. When
// u is already on target it holds position.
func (p *Planner) PlanMoveToward(u *game.Entity, target game.Position) (game.Direction, error) {
	dirs := p.world.Map.Towards(u.Pos, target)
	if len(dirs) == 0 {
		dirs = []game.Direction{game.Still}
	}
	return p.plan(u, dirs, p.attempts)
}

// MoveOrStay plans dir with the default budget and falls back to Still. The
// unit's own cell is claimed when it stays.
func (p *Planner) MoveOrStay(u *game.Entity, dir game.Direction) game.Direction {
	d, err := p.PlanMove(u, dir, p.attempts)
	if err == nil {
		return d
	}
	p.claims[p.world.Map.Normalize(u.Pos)] = u.ID
	return game.Still
}

func (p *Planner) plan(u *game.Entity, preferred []game.Direction, maxAttempts int) (game.Direction, error) {
	if !u.IsUnit() {
		return game.Still, fmt.Errorf("plan: %v is not a mobile unit", u)
	}
	for i := 0; i < maxAttempts; i++ {
		var d game.Direction
		if i < len(preferred) {
			d = preferred[i]
		} else {
			d = game.Cardinals[p.rng.Intn(len(game.Cardinals))]
		}
		target := p.world.Map.Offset(u.Pos, d)
		if p.blocked(u, target) {
			continue
		}
		p.claims[target] = u.ID
		return d, nil
	}
	return game.Still, fmt.Errorf("unit %d at %s: %w", u.ID, u.Pos, ErrExhausted)
}
