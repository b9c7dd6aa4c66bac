package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// MaxNameLength is where the engine truncates bot names.
const MaxNameLength = 30

// Writer emits protocol lines and flushes after each one.
type Writer struct {
	bw  *bufio.Writer
	tap Tap
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// SetTap installs an observer for every raw line written.
func (w *Writer) SetTap(t Tap) { w.tap = t }

// WriteLine writes s followed by a line feed and flushes. Lines containing
// their own line breaks are refused so the session cannot desynchronize.
func (w *Writer) WriteLine(s string) error {
	if strings.ContainsAny(s, "\r\n") {
		return fmt.Errorf("refusing to write line with embedded line break")
	}
	if _, err := w.bw.WriteString(s); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if w.tap != nil {
		w.tap.Outbound(s)
	}
	return nil
}

// WriteName announces the bot's display name, truncated to MaxNameLength.
func (w *Writer) WriteName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("bot name must not be empty")
	}
	if r := []rune(name); len(r) > MaxNameLength {
		name = string(r[:MaxNameLength])
	}
	return w.WriteLine(name)
}

// WriteCommands writes one turn of commands as a single line. An empty slice
// still produces a (blank) line.
func (w *Writer) WriteCommands(cmds []Command) error {
	line, err := EncodeCommands(cmds)
	if err != nil {
		return err
	}
	return w.WriteLine(line)
}
