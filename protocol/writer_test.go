package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/brensch/halite3/game"
)

type recordingTap struct {
	in, out []string
}

func (r *recordingTap) Inbound(line string)  { r.in = append(r.in, line) }
func (r *recordingTap) Outbound(line string) { r.out = append(r.out, line) }

func TestWriteCommands(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	cmds := []Command{Spawn(), Move(3, game.East), Convert(9), Move(4, game.Still)}
	if err := w.WriteCommands(cmds); err != nil {
		t.Fatalf("WriteCommands: %v", err)
	}
	if got, want := buf.String(), "g m 3 e c 9 m 4 o\n"; got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}
}

func TestWriteCommandsEmptyStillWritesLine(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteCommands(nil); err != nil {
		t.Fatalf("WriteCommands: %v", err)
	}
	if buf.String() != "\n" {
		t.Fatalf("got=%q want=%q", buf.String(), "\n")
	}
}

func TestWriteCommandsRejectsInvalid(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).WriteCommands([]Command{Spawn(), Move(1, game.Direction('x'))})
	if err == nil {
		t.Fatalf("expected error for invalid direction")
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written, got %q", buf.String())
	}
}

func TestCommandRoundTrip(t *testing.T) {
	var cmds []Command
	for i, d := range game.AllDirections {
		cmds = append(cmds, Move(game.EntityID(i*11), d))
	}
	cmds = append(cmds, Convert(42), Spawn())

	line, err := EncodeCommands(cmds)
	if err != nil {
		t.Fatalf("EncodeCommands: %v", err)
	}
	back, err := ParseCommands(line)
	if err != nil {
		t.Fatalf("ParseCommands(%q): %v", line, err)
	}
	if len(back) != len(cmds) {
		t.Fatalf("len=%d want=%d", len(back), len(cmds))
	}
	for i := range cmds {
		if back[i] != cmds[i] {
			t.Fatalf("cmd[%d]=%+v want=%+v", i, back[i], cmds[i])
		}
	}
}

func TestParseCommandsErrors(t *testing.T) {
	for _, line := range []string{"m 1", "m x n", "m 1 q", "c", "z"} {
		if _, err := ParseCommands(line); err == nil {
			t.Fatalf("ParseCommands(%q) should fail", line)
		}
	}
}

func TestWriteName(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteName("  "); err == nil {
		t.Fatalf("empty name should be rejected")
	}
	if err := w.WriteName("bad\nname"); err == nil {
		t.Fatalf("name with newline should be rejected")
	}
	long := strings.Repeat("ab", 20)
	if err := w.WriteName(long); err != nil {
		t.Fatalf("WriteName: %v", err)
	}
	if got := strings.TrimSuffix(buf.String(), "\n"); len(got) != MaxNameLength {
		t.Fatalf("name length=%d want=%d", len(got), MaxNameLength)
	}
}

func TestTapSeesBothDirections(t *testing.T) {
	tap := &recordingTap{}
	r := NewReader(strings.NewReader("1 2\r\n"))
	r.SetTap(tap)
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.SetTap(tap)

	if _, err := r.ReadRecord(); err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if err := w.WriteCommands([]Command{Spawn()}); err != nil {
		t.Fatalf("WriteCommands: %v", err)
	}
	if len(tap.in) != 1 || tap.in[0] != "1 2" {
		t.Fatalf("inbound=%q", tap.in)
	}
	if len(tap.out) != 1 || tap.out[0] != "g" {
		t.Fatalf("outbound=%q", tap.out)
	}
}
