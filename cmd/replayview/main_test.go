package main

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/halite3/game"
	"github.com/brensch/halite3/store"
)

func testFrames() []store.Frame {
	mk := func(turn int, unitAt game.Position) store.Frame {
		return store.Frame{
			Turn:     turn,
			Yields:   [][]int{{0, 50, 250}, {450, 900, 0}},
			Units:    map[game.Position]game.PlayerID{unitAt: 1},
			Carried:  map[game.Position]int{unitAt: 10},
			Sites:    map[game.Position]game.PlayerID{{X: 0, Y: 0}: 0},
			Balances: map[game.PlayerID]int{0: 5000, 1: 4000},
			Commands: "m 1 e",
		}
	}
	return []store.Frame{mk(1, game.Position{X: 1, Y: 1}), mk(2, game.Position{X: 2, Y: 1})}
}

func TestRenderGrid(t *testing.T) {
	lines := strings.Split(strings.TrimSuffix(renderGrid(testFrames()[0]), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%q", lines)
	}
	if !strings.Contains(lines[0], "H") || !strings.Contains(lines[0], ".") || !strings.Contains(lines[0], ":") {
		t.Fatalf("row 0=%q", lines[0])
	}
	if !strings.Contains(lines[1], "*") || !strings.Contains(lines[1], "@") {
		t.Fatalf("row 1=%q", lines[1])
	}
}

func TestUpdateSteps(t *testing.T) {
	var m tea.Model = model{gameID: "g", frames: testFrames(), delay: time.Millisecond}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if got := m.(model).idx; got != 1 {
		t.Fatalf("idx=%d want=1", got)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if got := m.(model).idx; got != 1 {
		t.Fatalf("idx past end: %d", got)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if got := m.(model).idx; got != 0 {
		t.Fatalf("idx=%d want=0", got)
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	if !m.(model).playing || cmd == nil {
		t.Fatalf("space should start playback")
	}
	m, _ = m.Update(TickMsg(time.Now()))
	if got := m.(model).idx; got != 1 {
		t.Fatalf("tick should advance, idx=%d", got)
	}
	m, _ = m.Update(TickMsg(time.Now()))
	if m.(model).playing {
		t.Fatalf("playback should stop at the last frame")
	}

	if !strings.Contains(m.View(), "turn 2") {
		t.Fatalf("view=%q", m.View())
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Fatalf("q should quit")
	}
}

func TestPlayerStyleNegativeID(t *testing.T) {
	n := len(playerColors)
	for _, tc := range []struct {
		id   game.PlayerID
		want int
	}{
		{0, 0},
		{game.PlayerID(n + 1), 1},
		{-1, n - 1},
		{game.PlayerID(-n), 0},
	} {
		if got := playerStyle(tc.id).GetForeground(); got != playerColors[tc.want] {
			t.Fatalf("player %d colour=%v want=%v", tc.id, got, playerColors[tc.want])
		}
	}
}
