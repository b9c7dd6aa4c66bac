package nav

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/brensch/halite3/game"
)

// newWorld builds a w x h world for players 0 (self) and 1 with homes parked
// in the far corner, and applies the given snapshot for player 0.
func newWorld(t *testing.T, w, h int, units ...game.UnitState) *game.World {
	t.Helper()
	m, err := game.NewMap(w, h, nil)
	if err != nil {
		t.Fatalf("NewMap: %v", err)
	}
	homes := []game.Home{
		{Player: 0, Pos: game.Position{X: w - 1, Y: h - 1}},
		{Player: 1, Pos: game.Position{X: 0, Y: h - 1}},
	}
	world, err := game.NewWorld(0, homes, m, game.DefaultConstants)
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	world.BeginTurnUpdate()
	if err := world.ApplyPlayerSnapshot(game.PlayerSnapshot{Player: 0, Units: units}); err != nil {
		t.Fatalf("ApplyPlayerSnapshot: %v", err)
	}
	return world
}

func dumpClaims(w *game.World, p *Planner) string {
	var b strings.Builder
	for y := 0; y < w.Map.Height; y++ {
		for x := 0; x < w.Map.Width; x++ {
			pos := game.Position{X: x, Y: y}
			switch {
			case p.Claimed(pos):
				b.WriteByte('#')
			case w.CellAt(pos).IsOccupied():
				b.WriteByte('u')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func unit(t *testing.T, w *game.World, id game.EntityID) *game.Entity {
	t.Helper()
	u, ok := w.Me().Unit(id)
	if !ok {
		t.Fatalf("unit %d missing", id)
	}
	return u
}

func TestPlanMoveWrapsAndClaims(t *testing.T) {
	w := newWorld(t, 5, 5, game.UnitState{ID: 1, Pos: game.Position{X: 4, Y: 4}})
	p := New(w, rand.New(rand.NewSource(7)), 5)

	d, err := p.PlanMove(unit(t, w, 1), game.East, 5)
	if err != nil {
		t.Fatalf("PlanMove: %v", err)
	}
	if d != game.East {
		t.Fatalf("dir=%v want=east", d)
	}
	if !p.Claimed(game.Position{X: 0, Y: 4}) {
		t.Fatalf("wrapped target not claimed:\n%s", dumpClaims(w, p))
	}
}

func TestContestedCellGoesToFirstUnit(t *testing.T) {
	// A at (0,1) and B at (2,1) both want (1,1).
	w := newWorld(t, 5, 5,
		game.UnitState{ID: 1, Pos: game.Position{X: 0, Y: 1}},
		game.UnitState{ID: 2, Pos: game.Position{X: 2, Y: 1}},
	)
	p := New(w, rand.New(rand.NewSource(3)), 5)
	target := game.Position{X: 1, Y: 1}

	da, err := p.PlanMove(unit(t, w, 1), game.East, 5)
	if err != nil || da != game.East {
		t.Fatalf("A got dir=%v err=%v want east", da, err)
	}
	db := p.MoveOrStay(unit(t, w, 2), game.West)
	if db == game.West {
		t.Fatalf("B was granted the contested cell:\n%s", dumpClaims(w, p))
	}
	if got := w.Map.Offset(game.Position{X: 2, Y: 1}, db); got == target {
		t.Fatalf("B target=%s collides with A", got)
	}
}

func TestClaimsNeverDuplicate(t *testing.T) {
	var units []game.UnitState
	for i := 0; i < 12; i++ {
		units = append(units, game.UnitState{ID: game.EntityID(i), Pos: game.Position{X: i % 4, Y: i / 4}})
	}
	w := newWorld(t, 6, 6, units...)

	for seed := int64(0); seed < 20; seed++ {
		p := New(w, rand.New(rand.NewSource(seed)), 5)
		targets := map[game.Position]game.EntityID{}
		for _, u := range w.Me().Units {
			for _, want := range []game.Direction{game.East, game.South} {
				d, err := p.PlanMove(u, want, 5)
				if errors.Is(err, ErrExhausted) {
					continue
				}
				if err != nil {
					t.Fatalf("PlanMove: %v", err)
				}
				tgt := w.Map.Offset(u.Pos, d)
				if other, dup := targets[tgt]; dup {
					t.Fatalf("seed=%d units %d and %d both target %s\n%s", seed, other, u.ID, tgt, dumpClaims(w, p))
				}
				targets[tgt] = u.ID
				break
			}
		}
	}
}

func TestPlanMoveExhaustsWhenBoxedIn(t *testing.T) {
	w := newWorld(t, 5, 5,
		game.UnitState{ID: 1, Pos: game.Position{X: 2, Y: 2}},
		game.UnitState{ID: 2, Pos: game.Position{X: 2, Y: 1}},
		game.UnitState{ID: 3, Pos: game.Position{X: 2, Y: 3}},
		game.UnitState{ID: 4, Pos: game.Position{X: 1, Y: 2}},
	)
	p := New(w, rand.New(rand.NewSource(1)), 5)
	// East is free in the snapshot, so claim it; the own cell is claimed too.
	if !p.Claim(game.Position{X: 3, Y: 2}) || !p.Claim(game.Position{X: 2, Y: 2}) {
		t.Fatalf("fresh claims should succeed")
	}

	u := unit(t, w, 1)
	for _, d := range game.AllDirections {
		got, err := p.PlanMove(u, d, 50)
		if !errors.Is(err, ErrExhausted) {
			t.Fatalf("first=%v got dir=%v err=%v want ErrExhausted\n%s", d, got, err, dumpClaims(w, p))
		}
	}
	if got := p.MoveOrStay(u, game.North); got != game.Still {
		t.Fatalf("MoveOrStay=%v want=still", got)
	}
}

func TestPlanMoveZeroAttempts(t *testing.T) {
	w := newWorld(t, 3, 3, game.UnitState{ID: 1, Pos: game.Position{X: 0, Y: 0}})
	p := New(w, nil, 0)
	if _, err := p.PlanMove(unit(t, w, 1), game.North, 0); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err=%v want ErrExhausted", err)
	}
	if p.Claims() != 0 {
		t.Fatalf("failed plan left claims=%d", p.Claims())
	}
}

func TestStayingOnOwnCell(t *testing.T) {
	w := newWorld(t, 3, 3, game.UnitState{ID: 1, Pos: game.Position{X: 1, Y: 1}})
	p := New(w, nil, 5)
	d, err := p.PlanMove(unit(t, w, 1), game.Still, 1)
	if err != nil || d != game.Still {
		t.Fatalf("dir=%v err=%v want still", d, err)
	}
	if !p.Claimed(game.Position{X: 1, Y: 1}) {
		t.Fatalf("own cell should be claimed after staying")
	}
}

func TestBoxedInUnitMayStayOnUnclaimedCell(t *testing.T) {
	w := newWorld(t, 5, 5,
		game.UnitState{ID: 1, Pos: game.Position{X: 2, Y: 2}},
		game.UnitState{ID: 2, Pos: game.Position{X: 2, Y: 1}},
		game.UnitState{ID: 3, Pos: game.Position{X: 2, Y: 3}},
		game.UnitState{ID: 4, Pos: game.Position{X: 1, Y: 2}},
		game.UnitState{ID: 5, Pos: game.Position{X: 3, Y: 2}},
	)
	p := New(w, rand.New(rand.NewSource(1)), 5)
	u := unit(t, w, 1)
	if _, err := p.PlanMove(u, game.North, 20); !errors.Is(err, ErrExhausted) {
		t.Fatalf("moving out of the box: err=%v want ErrExhausted", err)
	}
	d, err := p.PlanMove(u, game.Still, 1)
	if err != nil || d != game.Still {
		t.Fatalf("dir=%v err=%v want still", d, err)
	}
	if _, err := p.PlanMove(u, game.Still, 1); !errors.Is(err, ErrExhausted) {
		t.Fatalf("own cell is claimed now: err=%v want ErrExhausted", err)
	}
}

func TestPlanMoveTowardPrefersShortestWrap(t *testing.T) {
	w := newWorld(t, 8, 8, game.UnitState{ID: 1, Pos: game.Position{X: 0, Y: 3}})
	p := New(w, nil, 5)
	d, err := p.PlanMoveToward(unit(t, w, 1), game.Position{X: 7, Y: 3})
	if err != nil {
		t.Fatalf("PlanMoveToward: %v", err)
	}
	if d != game.West {
		t.Fatalf("dir=%v want=west (wrap)", d)
	}

	// With west claimed the planner falls through to other directions.
	p.Reset()
	p.Claim(game.Position{X: 7, Y: 3})
	d, err = p.PlanMoveToward(unit(t, w, 1), game.Position{X: 7, Y: 3})
	if err != nil && !errors.Is(err, ErrExhausted) {
		t.Fatalf("PlanMoveToward: %v", err)
	}
	if err == nil && d == game.West {
		t.Fatalf("claimed cell granted")
	}
}

func TestPlanMoveTowardAtTarget(t *testing.T) {
	w := newWorld(t, 4, 4, game.UnitState{ID: 1, Pos: game.Position{X: 2, Y: 2}})
	p := New(w, nil, 5)
	d, err := p.PlanMoveToward(unit(t, w, 1), game.Position{X: 6, Y: 2})
	if err != nil || d != game.Still {
		t.Fatalf("dir=%v err=%v want still", d, err)
	}
}

func TestResetClearsClaims(t *testing.T) {
	w := newWorld(t, 3, 3)
	p := New(w, nil, 5)
	p.Claim(game.Position{X: 1, Y: 1})
	if p.Claim(game.Position{X: 4, Y: 1}) {
		t.Fatalf("wrapped duplicate claim should fail")
	}
	p.Reset()
	if p.Claimed(game.Position{X: 1, Y: 1}) {
		t.Fatalf("claim survived Reset")
	}
}

func TestPlanRejectsStructures(t *testing.T) {
	w := newWorld(t, 3, 3)
	p := New(w, nil, 5)
	if _, err := p.PlanMove(w.Me().Home, game.North, 5); err == nil || errors.Is(err, ErrExhausted) {
		t.Fatalf("err=%v want non-unit error", err)
	}
}
