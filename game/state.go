// Package game defines the client-side world model for Halite-style grid games.
//
// A World is built once from the handshake and then refreshed every turn:
// per-player unit and outpost collections are replaced wholesale from the
// engine's snapshot, cell occupancy is rebuilt from them, and sparse yield
// deltas are applied on top. The model never diffs against the previous
// turn, so it cannot drift from what the engine reported.
package game

import "fmt"

// Home is a player's base position as announced in the handshake.
type Home struct {
	Player PlayerID
	Pos    Position
}

// UnitState is one mobile unit as reported in a turn snapshot.
type UnitState struct {
	ID      EntityID
	Pos     Position
	Carried int
}

// OutpostState is one secondary structure as reported in a turn snapshot.
type OutpostState struct {
	ID  EntityID
	Pos Position
}

// PlayerSnapshot is everything the engine reports about one player in a turn.
type PlayerSnapshot struct {
	Player   PlayerID
	Balance  int
	Units    []UnitState
	Outposts []OutpostState
}

// YieldDelta overwrites the yield of a single cell.
type YieldDelta struct {
	Pos   Position
	Yield int
}

// Player holds a participant's aggregate state. Units and Outposts are in
// snapshot order and are rebuilt from scratch every turn.
type Player struct {
	ID       PlayerID
	Balance  int
	Home     *Entity
	Units    []*Entity
	Outposts []*Entity

	units map[EntityID]*Entity
}

// Unit looks up one of the player's units by id.
func (p *Player) Unit(id EntityID) (*Entity, bool) {
	u, ok := p.units[id]
	return u, ok
}

// Structures returns the home base followed by every outpost.
func (p *Player) Structures() []*Entity {
	out := make([]*Entity, 0, len(p.Outposts)+1)
	out = append(out, p.Home)
	return append(out, p.Outposts...)
}

func (p *Player) String() string {
	return fmt.Sprintf("Player{id=%d,balance=%d,units=%d,outposts=%d}", p.ID, p.Balance, len(p.Units), len(p.Outposts))
}

// World is the authoritative per-turn view of the grid and all players.
type World struct {
	Self      PlayerID
	Turn      int
	Map       *Map
	Constants Constants

	players []*Player // handshake order
	byID    map[PlayerID]*Player
}

// NewWorld builds the world from the handshake. Each home becomes a structure
// owned by its player and is placed on its cell.
func NewWorld(self PlayerID, homes []Home, m *Map, consts Constants) (*World, error) {
	if m == nil {
		return nil, fmt.Errorf("world requires a map")
	}
	w := &World{
		Self:      self,
		Map:       m,
		Constants: consts,
		players:   make([]*Player, 0, len(homes)),
		byID:      make(map[PlayerID]*Player, len(homes)),
	}
	for _, h := range homes {
		if _, dup := w.byID[h.Player]; dup {
			return nil, fmt.Errorf("duplicate player id %d", h.Player)
		}
		home := NewStructure(h.Player, NoEntity, m.Normalize(h.Pos))
		p := &Player{ID: h.Player, Home: home, units: map[EntityID]*Entity{}}
		m.At(home.Pos).Structure = home
		w.players = append(w.players, p)
		w.byID[h.Player] = p
	}
	if _, ok := w.byID[self]; !ok {
		return nil, fmt.Errorf("self id %d not among %d players", self, len(homes))
	}
	return w, nil
}

// Me returns the player this client controls.
func (w *World) Me() *Player { return w.byID[w.Self] }

func (w *World) Player(id PlayerID) (*Player, bool) {
	p, ok := w.byID[id]
	return p, ok
}

// Players returns every player in handshake order.
func (w *World) Players() []*Player { return w.players }

// PlayerIDs returns player ids in handshake order.
func (w *World) PlayerIDs() []PlayerID {
	ids := make([]PlayerID, len(w.players))
	for i, p := range w.players {
		ids[i] = p.ID
	}
	return ids
}

// Opponents returns every player except Self, in handshake order.
func (w *World) Opponents() []*Player {
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		if p.ID != w.Self {
			out = append(out, p)
		}
	}
	return out
}

// BeginTurnUpdate clears every cell's occupant. Structures are untouched.
func (w *World) BeginTurnUpdate() {
	w.Map.clearUnits()
}

// ApplyPlayerSnapshot replaces the player's units and outposts with the
// snapshot's and marks each unit's cell occupied. Outposts are placed as cell
// structures and stay there on later turns.
func (w *World) ApplyPlayerSnapshot(s PlayerSnapshot) error {
	p, ok := w.byID[s.Player]
	if !ok {
		return fmt.Errorf("snapshot for unknown player %d", s.Player)
	}
	if s.Balance < 0 {
		return fmt.Errorf("player %d: negative balance %d", s.Player, s.Balance)
	}

	p.Balance = s.Balance
	p.Units = make([]*Entity, 0, len(s.Units))
	p.Outposts = make([]*Entity, 0, len(s.Outposts))
	p.units = make(map[EntityID]*Entity, len(s.Units))

	for _, us := range s.Units {
		if us.Carried < 0 {
			return fmt.Errorf("player %d unit %d: negative carried %d", s.Player, us.ID, us.Carried)
		}
		u := NewUnit(s.Player, us.ID, w.Map.Normalize(us.Pos), us.Carried)
		p.Units = append(p.Units, u)
		p.units[u.ID] = u
		w.Map.At(u.Pos).MarkOccupied(u)
	}
	for _, op := range s.Outposts {
		o := NewStructure(s.Player, op.ID, w.Map.Normalize(op.Pos))
		p.Outposts = append(p.Outposts, o)
		w.Map.At(o.Pos).Structure = o
	}
	return nil
}

// ApplyYieldDeltas overwrites the yield of each named cell. Cells not named
// keep their previous yield.
func (w *World) ApplyYieldDeltas(deltas []YieldDelta) {
	for _, d := range deltas {
		w.Map.At(d.Pos).Yield = d.Yield
	}
}

// Distance is the toroidal Manhattan distance on the world's map.
func (w *World) Distance(a, b Position) int { return w.Map.Distance(a, b) }

// CellAt returns the cell at p after normalization.
func (w *World) CellAt(p Position) *MapCell { return w.Map.At(p) }

func (w *World) String() string {
	return fmt.Sprintf("World{self=%d,turn=%d,players=%d,map=%s}", w.Self, w.Turn, len(w.players), w.Map)
}
