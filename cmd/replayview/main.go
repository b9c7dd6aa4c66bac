// Command replayview steps through a recorded parquet game archive in the
// terminal.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/halite3/game"
	"github.com/brensch/halite3/store"
)

var (
	playerColors = []lipgloss.Color{"9", "12", "10", "11"}
	titleStyle   = lipgloss.NewStyle().Bold(true)
	helpStyle    = lipgloss.NewStyle().Faint(true)
)

type model struct {
	gameID  string
	self    game.PlayerID
	frames  []store.Frame
	idx     int
	playing bool
	delay   time.Duration
}

type TickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "right", "l":
			m.idx = min(m.idx+1, len(m.frames)-1)
		case "left", "h":
			m.idx = max(m.idx-1, 0)
		case "home", "g":
			m.idx = 0
		case "end", "G":
			m.idx = len(m.frames) - 1
		case " ", "space":
			m.playing = !m.playing
			if m.playing {
				return m, tickCmd(m.delay)
			}
		}
	case TickMsg:
		if !m.playing {
			return m, nil
		}
		if m.idx >= len(m.frames)-1 {
			m.playing = false
			return m, nil
		}
		m.idx++
		return m, tickCmd(m.delay)
	}
	return m, nil
}

func (m model) View() string {
	f := m.frames[m.idx]
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  turn %d  (%d/%d)", m.gameID, f.Turn, m.idx+1, len(m.frames))))
	b.WriteString("\n\n")
	b.WriteString(renderGrid(f))
	b.WriteString("\n")
	b.WriteString(renderBalances(f, m.self))
	b.WriteString(fmt.Sprintf("commands: %s\n\n", f.Commands))
	b.WriteString(helpStyle.Render("←/→ step  space play/pause  g/G first/last  q quit"))
	b.WriteString("\n")
	return b.String()
}

func playerStyle(p game.PlayerID) lipgloss.Style {
	i := int(p) % len(playerColors)
	if i < 0 {
		i += len(playerColors)
	}
	return lipgloss.NewStyle().Foreground(playerColors[i]).Bold(true)
}

// yieldGlyph buckets a cell's yield for display.
func yieldGlyph(y int) string {
	switch {
	case y == 0:
		return " "
	case y < 100:
		return "."
	case y < 300:
		return ":"
	case y < 600:
		return "*"
	}
	return "#"
}

func renderGrid(f store.Frame) string {
	var b strings.Builder
	for y, row := range f.Yields {
		for x, v := range row {
			pos := game.Position{X: x, Y: y}
			switch owner, unit := f.Units[pos]; {
			case unit:
				b.WriteString(playerStyle(owner).Render("@"))
			default:
				if site, ok := f.Sites[pos]; ok {
					b.WriteString(playerStyle(site).Render("H"))
				} else {
					b.WriteString(yieldGlyph(v))
				}
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderBalances(f store.Frame, self game.PlayerID) string {
	ids := make([]game.PlayerID, 0, len(f.Balances))
	for id := range f.Balances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var b strings.Builder
	for _, id := range ids {
		units := 0
		for _, owner := range f.Units {
			if owner == id {
				units++
			}
		}
		marker := " "
		if id == self {
			marker = "*"
		}
		b.WriteString(playerStyle(id).Render(fmt.Sprintf("%s player %d", marker, id)))
		b.WriteString(fmt.Sprintf("  balance %6d  units %3d\n", f.Balances[id], units))
	}
	return b.String()
}

func main() {
	delay := flag.Duration("delay", 150*time.Millisecond, "Delay between frames while playing")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: replayview [-delay 150ms] game.parquet")
		os.Exit(2)
	}

	rows, err := store.ReadArchive(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read archive: %v", err)
	}
	frames, err := store.BuildFrames(rows)
	if err != nil {
		log.Fatalf("Failed to rebuild game: %v", err)
	}
	if len(frames) == 0 {
		log.Fatalf("Archive %s has no turns", flag.Arg(0))
	}

	m := model{
		gameID: rows[0].GameID,
		self:   game.PlayerID(rows[0].Self),
		frames: frames,
		delay:  *delay,
	}
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatalf("Viewer failed: %v", err)
	}
}
