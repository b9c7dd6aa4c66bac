package protocol

import (
	"errors"
	"strings"
	"testing"

	"github.com/brensch/halite3/game"
)

func newTestDecoder(input string, layout Layout) *Decoder {
	return NewDecoder(NewReader(strings.NewReader(input)), layout)
}

const twoPlayerHandshake = "2 1\n0 0 0\n1 2 2\n3 3\n0 0 0\n0 0 0\n0 0 0\n"

func TestReadHandshake(t *testing.T) {
	d := newTestDecoder(twoPlayerHandshake, Layout{})
	hs, err := d.ReadHandshake()
	if err != nil {
		t.Fatalf("ReadHandshake: %v", err)
	}
	if hs.Self != 1 || len(hs.Homes) != 2 {
		t.Fatalf("self=%d homes=%d want=1,2", hs.Self, len(hs.Homes))
	}
	if hs.Homes[1].Pos != (game.Position{X: 2, Y: 2}) {
		t.Fatalf("home[1]=%s want=(2,2)", hs.Homes[1].Pos)
	}
	if hs.Width != 3 || hs.Height != 3 {
		t.Fatalf("dims=%dx%d want=3x3", hs.Width, hs.Height)
	}
	if hs.Constants != game.DefaultConstants {
		t.Fatalf("constants without preamble should be defaults")
	}
	for y, row := range hs.Yields {
		for x, v := range row {
			if v != 0 {
				t.Fatalf("yield(%d,%d)=%d want=0", x, y, v)
			}
		}
	}
}

func TestReadHandshakeToleratesCRLF(t *testing.T) {
	in := strings.ReplaceAll(twoPlayerHandshake, "\n", "\r\n")
	hs, err := newTestDecoder(in, Layout{}).ReadHandshake()
	if err != nil {
		t.Fatalf("ReadHandshake: %v", err)
	}
	if hs.Width != 3 || len(hs.Yields[2]) != 3 {
		t.Fatalf("CRLF handshake decoded badly: %+v", hs)
	}
}

func TestReadHandshakeWithConstantsPreamble(t *testing.T) {
	in := `{"MAX_ENERGY": 500, "NEW_ENTITY_ENERGY_COST": 750, "INSPIRATION_ENABLED": false, "SOMETHING_NEW": "x"}` + "\n" + twoPlayerHandshake
	hs, err := newTestDecoder(in, Layout{ConstantsPreamble: true}).ReadHandshake()
	if err != nil {
		t.Fatalf("ReadHandshake: %v", err)
	}
	if hs.Constants.MaxEnergy != 500 || hs.Constants.UnitCost != 750 || hs.Constants.InspirationEnabled {
		t.Fatalf("constants=%+v", hs.Constants)
	}
	if hs.Constants.OutpostCost != game.DefaultConstants.OutpostCost {
		t.Fatalf("unset constant should keep default, got %d", hs.Constants.OutpostCost)
	}
}

func TestReadHandshakeViolations(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"extra header field", "2 1 7\n"},
		{"non-integer", "2 x\n"},
		{"no players", "0 0\n"},
		{"self missing", "2 5\n0 0 0\n1 2 2\n3 3\n0 0 0\n0 0 0\n0 0 0\n"},
		{"duplicate player", "2 0\n0 0 0\n0 2 2\n"},
		{"short yield row", "2 1\n0 0 0\n1 2 2\n3 3\n0 0\n"},
		{"negative yield", "2 1\n0 0 0\n1 2 2\n3 3\n0 0 -1\n0 0 0\n0 0 0\n"},
		{"home off map", "2 1\n0 0 0\n1 5 2\n3 3\n"},
		{"bad dims", "2 1\n0 0 0\n1 2 2\n0 3\n"},
		{"huge player count", "100000000000000 0\n"},
		{"too many players", "17 0\n"},
		{"huge height", "2 1\n0 0 0\n1 2 2\n2 100000000000000\n"},
		{"huge width", "2 1\n0 0 0\n1 2 2\n100000000000000 2\n"},
		{"map side over limit", "2 1\n0 0 0\n1 2 2\n257 3\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestDecoder(tc.input, Layout{}).ReadHandshake()
			if !IsViolation(err) {
				t.Fatalf("err=%v want violation", err)
			}
		})
	}
}

func TestReadHandshakeEmptyIsStreamClosed(t *testing.T) {
	_, err := newTestDecoder("", Layout{}).ReadHandshake()
	if !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("err=%v want ErrStreamClosed", err)
	}
}

func TestReadHandshakeTruncatedIsViolation(t *testing.T) {
	_, err := newTestDecoder("2 1\n0 0 0\n", Layout{}).ReadHandshake()
	if !IsViolation(err) || errors.Is(err, ErrStreamClosed) {
		t.Fatalf("err=%v want violation", err)
	}
}

func TestReadTurn(t *testing.T) {
	turn := "4\n" +
		"0 1 1 1200\n" +
		"7 1 2 300\n" +
		"3 0 0\n" +
		"1 0 0 50\n" +
		"2\n" +
		"2 1 17\n" +
		"0 2 4\n"
	d := newTestDecoder(twoPlayerHandshake+turn, Layout{})
	if _, err := d.ReadHandshake(); err != nil {
		t.Fatalf("ReadHandshake: %v", err)
	}
	tr, err := d.ReadTurn(1, []game.PlayerID{0, 1})
	if err != nil {
		t.Fatalf("ReadTurn: %v", err)
	}
	if tr.Number != 4 || len(tr.Players) != 2 || len(tr.Deltas) != 2 {
		t.Fatalf("turn=%+v", tr)
	}
	p0 := tr.Players[0]
	if p0.Balance != 1200 || len(p0.Units) != 1 || len(p0.Outposts) != 1 {
		t.Fatalf("player 0=%+v", p0)
	}
	if p0.Units[0] != (game.UnitState{ID: 7, Pos: game.Position{X: 1, Y: 2}, Carried: 300}) {
		t.Fatalf("unit=%+v", p0.Units[0])
	}
	if p0.Outposts[0].ID != 3 {
		t.Fatalf("outpost=%+v", p0.Outposts[0])
	}
	if tr.Players[1].Balance != 50 || len(tr.Players[1].Units) != 0 {
		t.Fatalf("player 1=%+v", tr.Players[1])
	}
	if tr.Deltas[0] != (game.YieldDelta{Pos: game.Position{X: 2, Y: 1}, Yield: 17}) {
		t.Fatalf("delta=%+v", tr.Deltas[0])
	}
}

func TestReadTurnPlayerOrder(t *testing.T) {
	selfFirst := "1\n1 0 0 10\n0 0 0 20\n0\n"
	handshakeOrder := "1\n0 0 0 20\n1 0 0 10\n0\n"
	cases := []struct {
		name   string
		order  PlayerOrder
		turn   string
		wantOK bool
	}{
		{"handshake accepts handshake order", OrderHandshake, handshakeOrder, true},
		{"handshake rejects self first", OrderHandshake, selfFirst, false},
		{"self first accepts self first", OrderSelfFirst, selfFirst, true},
		{"self first rejects handshake order", OrderSelfFirst, handshakeOrder, false},
		{"any accepts self first", OrderAny, selfFirst, true},
		{"any accepts handshake order", OrderAny, handshakeOrder, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newTestDecoder(twoPlayerHandshake+tc.turn, Layout{PlayerOrder: tc.order})
			if _, err := d.ReadHandshake(); err != nil {
				t.Fatalf("ReadHandshake: %v", err)
			}
			tr, err := d.ReadTurn(1, []game.PlayerID{0, 1})
			if tc.wantOK {
				if err != nil {
					t.Fatalf("ReadTurn: %v", err)
				}
				for _, p := range tr.Players {
					want := map[game.PlayerID]int{0: 20, 1: 10}[p.Player]
					if p.Balance != want {
						t.Fatalf("player %d balance=%d want=%d", p.Player, p.Balance, want)
					}
				}
				return
			}
			if !IsViolation(err) {
				t.Fatalf("err=%v want violation", err)
			}
		})
	}
}

func TestReadTurnViolations(t *testing.T) {
	cases := []struct {
		name string
		turn string
	}{
		{"unknown player", "1\n9 0 0 0\n1 0 0 0\n0\n"},
		{"duplicate player", "1\n0 0 0 0\n0 0 0 0\n0\n"},
		{"short player header", "1\n0 0 0\n"},
		{"unit off map", "1\n0 1 0 0\n5 3 0 0\n1 0 0 0\n0\n"},
		{"negative carried", "1\n0 1 0 0\n5 0 0 -4\n1 0 0 0\n0\n"},
		{"negative balance", "1\n0 0 0 -1\n1 0 0 0\n0\n"},
		{"delta off map", "1\n0 0 0 0\n1 0 0 0\n1\n0 9 1\n"},
		{"negative delta count", "1\n0 0 0 0\n1 0 0 0\n-1\n"},
		{"garbage turn number", "one\n"},
		{"huge unit count", "1\n0 100000000000000 0 0\n"},
		{"huge outpost count", "1\n0 0 100000000000000 0\n"},
		{"huge delta count", "1\n0 0 0 0\n1 0 0 0\n100000000000000\n"},
		{"closed after turn number", "1\n"},
		{"closed inside player block", "1\n0 2 0 0\n5 0 0 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newTestDecoder(twoPlayerHandshake+tc.turn, Layout{})
			if _, err := d.ReadHandshake(); err != nil {
				t.Fatalf("ReadHandshake: %v", err)
			}
			_, err := d.ReadTurn(1, []game.PlayerID{0, 1})
			if !IsViolation(err) {
				t.Fatalf("err=%v want violation", err)
			}
		})
	}
}

func TestReadTurnAfterLastTurnIsStreamClosed(t *testing.T) {
	d := newTestDecoder(twoPlayerHandshake, Layout{})
	if _, err := d.ReadHandshake(); err != nil {
		t.Fatalf("ReadHandshake: %v", err)
	}
	_, err := d.ReadTurn(1, []game.PlayerID{0, 1})
	if !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("err=%v want ErrStreamClosed", err)
	}
}

func TestReadTurnBeforeHandshake(t *testing.T) {
	_, err := newTestDecoder("1\n", Layout{}).ReadTurn(0, []game.PlayerID{0})
	if err == nil || IsViolation(err) {
		t.Fatalf("err=%v want usage error", err)
	}
}

func TestReaderStreamClosed(t *testing.T) {
	r := NewReader(strings.NewReader("5 6"))
	rec, err := r.ReadRecord()
	if err != nil {
		t.Fatalf("unterminated last line should be returned: %v", err)
	}
	if len(rec.Fields) != 2 || rec.Line != 1 {
		t.Fatalf("record=%+v", rec)
	}
	if _, err := r.ReadRecord(); !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("err=%v want ErrStreamClosed", err)
	}
}

func TestParsePlayerOrder(t *testing.T) {
	for _, o := range []PlayerOrder{OrderHandshake, OrderSelfFirst, OrderAny} {
		got, err := ParsePlayerOrder(o.String())
		if err != nil || got != o {
			t.Fatalf("ParsePlayerOrder(%q)=%v,%v", o.String(), got, err)
		}
	}
	if _, err := ParsePlayerOrder("random"); err == nil {
		t.Fatalf("expected error for unknown order")
	}
}
