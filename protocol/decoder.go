package protocol

import (
	"errors"
	"fmt"

	"github.com/brensch/halite3/game"
)

// PlayerOrder is the order in which an engine version emits per-turn player
// records. Every record carries its own player id, so the order is only
// validated, never used to infer identity.
type PlayerOrder uint8

const (
	// OrderHandshake expects records in the order players were announced.
	OrderHandshake PlayerOrder = iota
	// OrderSelfFirst expects the client's own record first, then the rest in
	// handshake order.
	OrderSelfFirst
	// OrderAny accepts any permutation.
	OrderAny
)

func (o PlayerOrder) String() string {
	switch o {
	case OrderHandshake:
		return "handshake"
	case OrderSelfFirst:
		return "self_first"
	case OrderAny:
		return "any"
	}
	return fmt.Sprintf("order(%d)", uint8(o))
}

// ParsePlayerOrder accepts the names returned by PlayerOrder.String.
func ParsePlayerOrder(s string) (PlayerOrder, error) {
	switch s {
	case "", "handshake":
		return OrderHandshake, nil
	case "self_first":
		return OrderSelfFirst, nil
	case "any":
		return OrderAny, nil
	}
	return 0, fmt.Errorf("unknown player order %q", s)
}

// MaxPlayers is the most players an engine seats in one game.
const MaxPlayers = 16

// Layout captures the differences between engine protocol versions.
type Layout struct {
	// ConstantsPreamble is set when the engine sends a JSON constants object
	// as the first handshake line.
	ConstantsPreamble bool
	PlayerOrder       PlayerOrder
}

// Handshake is the decoded initial exchange.
type Handshake struct {
	Constants game.Constants
	Self      game.PlayerID
	Homes     []game.Home
	Width     int
	Height    int
	Yields    [][]int // [y][x]
}

// Turn is one fully decoded turn snapshot.
type Turn struct {
	Number  int
	Players []game.PlayerSnapshot // in wire order
	Deltas  []game.YieldDelta
}

// Decoder reads handshake and turn messages with strict positional decoding:
// every record must carry exactly the fields its position dictates.
type Decoder struct {
	r      *Reader
	layout Layout
	width  int
	height int
}

func NewDecoder(r *Reader, layout Layout) *Decoder {
	return &Decoder{r: r, layout: layout}
}

func (d *Decoder) Layout() Layout { return d.layout }

func (d *Decoder) ints(n int) (Record, []int, error) {
	rec, err := d.r.ReadRecord()
	if err != nil {
		return rec, nil, err
	}
	vals, err := rec.Ints(n)
	return rec, vals, err
}

// ReadHandshake decodes the initial exchange. A stream that closes before
// the first record is ErrStreamClosed; one that closes part way through is a
// violation.
func (d *Decoder) ReadHandshake() (Handshake, error) {
	start := d.r.Lines()
	hs, err := d.readHandshake()
	if err != nil {
		return hs, d.truncated(err, start, "handshake")
	}
	return hs, nil
}

// truncated turns a close after start into a violation.
func (d *Decoder) truncated(err error, start int, what string) error {
	if !errors.Is(err, ErrStreamClosed) || d.r.Lines() == start {
		return err
	}
	return &ViolationError{Line: d.r.Lines(), Reason: fmt.Sprintf("stream closed inside %s after %d lines", what, d.r.Lines()-start)}
}

func (d *Decoder) readHandshake() (Handshake, error) {
	hs := Handshake{Constants: game.DefaultConstants}

	if d.layout.ConstantsPreamble {
		rec, err := d.r.ReadRecord()
		if err != nil {
			return hs, err
		}
		c, err := game.ParseConstants(rec.Raw)
		if err != nil {
			return hs, violation(rec, "%v", err)
		}
		hs.Constants = c
	}

	rec, head, err := d.ints(2)
	if err != nil {
		return hs, err
	}
	numPlayers := head[0]
	hs.Self = game.PlayerID(head[1])
	if numPlayers <= 0 || numPlayers > MaxPlayers {
		return hs, violation(rec, "player count %d", numPlayers)
	}

	hs.Homes = make([]game.Home, 0, numPlayers)
	selfSeen := false
	seen := make(map[game.PlayerID]bool, numPlayers)
	for i := 0; i < numPlayers; i++ {
		rec, v, err := d.ints(3)
		if err != nil {
			return hs, err
		}
		id := game.PlayerID(v[0])
		if seen[id] {
			return hs, violation(rec, "duplicate player %d", id)
		}
		seen[id] = true
		selfSeen = selfSeen || id == hs.Self
		hs.Homes = append(hs.Homes, game.Home{Player: id, Pos: game.Position{X: v[1], Y: v[2]}})
	}
	if !selfSeen {
		return hs, &ViolationError{Reason: fmt.Sprintf("self id %d not among announced players", hs.Self)}
	}

	rec, dims, err := d.ints(2)
	if err != nil {
		return hs, err
	}
	hs.Width, hs.Height = dims[0], dims[1]
	if hs.Width <= 0 || hs.Height <= 0 || hs.Width > game.MaxMapSide || hs.Height > game.MaxMapSide {
		return hs, violation(rec, "map dimensions %dx%d", hs.Width, hs.Height)
	}
	for _, h := range hs.Homes {
		if !d.inBounds(h.Pos, hs.Width, hs.Height) {
			return hs, &ViolationError{Reason: fmt.Sprintf("home of player %d at %s is off the %dx%d map", h.Player, h.Pos, hs.Width, hs.Height)}
		}
	}

	hs.Yields = make([][]int, hs.Height)
	for y := 0; y < hs.Height; y++ {
		rec, row, err := d.ints(hs.Width)
		if err != nil {
			return hs, err
		}
		for x, v := range row {
			if v < 0 {
				return hs, violation(rec, "negative yield %d at x=%d", v, x)
			}
		}
		hs.Yields[y] = row
	}

	d.width, d.height = hs.Width, hs.Height
	return hs, nil
}

// ReadTurn decodes one turn. ids is the handshake player order and self the
// client's own id; together with the layout they fix which record order is
// acceptable. A close before the turn number is ErrStreamClosed; a close
// after it is a violation, since the turn can no longer be synchronized.
func (d *Decoder) ReadTurn(self game.PlayerID, ids []game.PlayerID) (Turn, error) {
	if d.width == 0 {
		return Turn{}, fmt.Errorf("read turn before handshake")
	}
	start := d.r.Lines()
	t, err := d.readTurn(self, ids)
	if err != nil {
		return t, d.truncated(err, start, "turn")
	}
	return t, nil
}

func (d *Decoder) readTurn(self game.PlayerID, ids []game.PlayerID) (Turn, error) {
	var t Turn

	rec, v, err := d.ints(1)
	if err != nil {
		return t, err
	}
	t.Number = v[0]
	if t.Number < 0 {
		return t, violation(rec, "turn number %d", t.Number)
	}

	expected := d.expectedOrder(self, ids)
	known := make(map[game.PlayerID]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	seen := make(map[game.PlayerID]bool, len(ids))

	t.Players = make([]game.PlayerSnapshot, 0, len(ids))
	for i := range ids {
		rec, hdr, err := d.ints(4)
		if err != nil {
			return t, err
		}
		id := game.PlayerID(hdr[0])
		switch {
		case !known[id]:
			return t, violation(rec, "unknown player %d", id)
		case seen[id]:
			return t, violation(rec, "duplicate record for player %d", id)
		case expected != nil && expected[i] != id:
			return t, violation(rec, "player %d out of order, want %d (%s)", id, expected[i], d.layout.PlayerOrder)
		}
		seen[id] = true

		units, outposts, balance := hdr[1], hdr[2], hdr[3]
		if units < 0 || outposts < 0 || balance < 0 {
			return t, violation(rec, "negative count or balance")
		}
		// Counts come off the wire, so they only size capacity up to the
		// number of cells.
		cells := d.width * d.height
		snap := game.PlayerSnapshot{
			Player:   id,
			Balance:  balance,
			Units:    make([]game.UnitState, 0, min(units, cells)),
			Outposts: make([]game.OutpostState, 0, min(outposts, cells)),
		}
		for j := 0; j < units; j++ {
			rec, u, err := d.ints(4)
			if err != nil {
				return t, err
			}
			pos := game.Position{X: u[1], Y: u[2]}
			if !d.inBounds(pos, d.width, d.height) {
				return t, violation(rec, "unit %d at %s is off the map", u[0], pos)
			}
			if u[3] < 0 {
				return t, violation(rec, "unit %d carries %d", u[0], u[3])
			}
			snap.Units = append(snap.Units, game.UnitState{ID: game.EntityID(u[0]), Pos: pos, Carried: u[3]})
		}
		for j := 0; j < outposts; j++ {
			rec, o, err := d.ints(3)
			if err != nil {
				return t, err
			}
			pos := game.Position{X: o[1], Y: o[2]}
			if !d.inBounds(pos, d.width, d.height) {
				return t, violation(rec, "outpost %d at %s is off the map", o[0], pos)
			}
			snap.Outposts = append(snap.Outposts, game.OutpostState{ID: game.EntityID(o[0]), Pos: pos})
		}
		t.Players = append(t.Players, snap)
	}

	rec, v, err = d.ints(1)
	if err != nil {
		return t, err
	}
	count := v[0]
	if count < 0 {
		return t, violation(rec, "delta count %d", count)
	}
	t.Deltas = make([]game.YieldDelta, 0, min(count, d.width*d.height))
	for i := 0; i < count; i++ {
		rec, c, err := d.ints(3)
		if err != nil {
			return t, err
		}
		pos := game.Position{X: c[0], Y: c[1]}
		if !d.inBounds(pos, d.width, d.height) {
			return t, violation(rec, "delta at %s is off the map", pos)
		}
		if c[2] < 0 {
			return t, violation(rec, "negative yield %d", c[2])
		}
		t.Deltas = append(t.Deltas, game.YieldDelta{Pos: pos, Yield: c[2]})
	}
	return t, nil
}

func (d *Decoder) expectedOrder(self game.PlayerID, ids []game.PlayerID) []game.PlayerID {
	switch d.layout.PlayerOrder {
	case OrderHandshake:
		return ids
	case OrderSelfFirst:
		out := make([]game.PlayerID, 0, len(ids))
		out = append(out, self)
		for _, id := range ids {
			if id != self {
				out = append(out, id)
			}
		}
		return out
	}
	return nil
}

func (d *Decoder) inBounds(p game.Position, w, h int) bool {
	return p.X >= 0 && p.X < w && p.Y >= 0 && p.Y < h
}
