package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Tap observes raw protocol lines as they cross the wire.
type Tap interface {
	Inbound(line string)
	Outbound(line string)
}

// Record is one decoded input line split into whitespace-separated fields.
type Record struct {
	Line   int
	Raw    string
	Fields []string
}

// Int parses field i as a decimal integer.
func (r Record) Int(i int) (int, error) {
	if i < 0 || i >= len(r.Fields) {
		return 0, violation(r, "field %d missing (have %d)", i, len(r.Fields))
	}
	v, err := strconv.Atoi(r.Fields[i])
	if err != nil {
		return 0, violation(r, "field %d: %q is not an integer", i, r.Fields[i])
	}
	return v, nil
}

// Ints parses every field as an integer and requires exactly n of them.
func (r Record) Ints(n int) ([]int, error) {
	if len(r.Fields) != n {
		return nil, violation(r, "got %d fields, want %d", len(r.Fields), n)
	}
	out := make([]int, n)
	for i := range out {
		v, err := r.Int(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Reader pulls one line-feed terminated record at a time. Carriage returns
// are stripped so either line ending works.
type Reader struct {
	br   *bufio.Reader
	line int
	tap  Tap
}

func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// SetTap installs an observer for every raw line read.
func (r *Reader) SetTap(t Tap) { r.tap = t }

// Lines returns how many lines have been read so far.
func (r *Reader) Lines() int { return r.line }

// ReadRecord blocks until a full line is available. A final line without a
// terminator is still returned; a stream that yields nothing more returns
// ErrStreamClosed.
func (r *Reader) ReadRecord() (Record, error) {
	s, err := r.br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return Record{}, fmt.Errorf("read line %d: %w", r.line+1, err)
		}
		if s == "" {
			return Record{}, ErrStreamClosed
		}
	}
	r.line++
	s = strings.TrimRight(s, "\r\n")
	if r.tap != nil {
		r.tap.Inbound(s)
	}
	return Record{Line: r.line, Raw: s, Fields: strings.Fields(s)}, nil
}
