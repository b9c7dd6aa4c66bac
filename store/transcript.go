package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const (
	DirIn  = "in"
	DirOut = "out"
)

// TranscriptEntry is one raw protocol line. Seq counts lines in both
// directions from 1.
type TranscriptEntry struct {
	Seq  int    `json:"seq"`
	Dir  string `json:"dir"`
	Line string `json:"line"`
}

// Transcript writes every protocol line as zstd-compressed JSONL. It satisfies
// protocol.Tap; since taps cannot fail, the first write error is kept and
// reported by Err and Close.
type Transcript struct {
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
	seq int
	err error
}

func NewTranscript(path string) (*Transcript, error) {
	if path == "" {
		return nil, fmt.Errorf("transcript path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	return &Transcript{f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}, nil
}

func (t *Transcript) Inbound(line string) { t.write(DirIn, line, false) }

// Outbound lines end an exchange, so the encoder is flushed to keep the file
// readable up to the last completed turn.
func (t *Transcript) Outbound(line string) { t.write(DirOut, line, true) }

func (t *Transcript) Err() error { return t.err }

func (t *Transcript) write(dir, line string, flush bool) {
	if t.err != nil || t.w == nil {
		return
	}
	t.seq++
	b, err := json.Marshal(TranscriptEntry{Seq: t.seq, Dir: dir, Line: line})
	if err != nil {
		t.err = err
		return
	}
	if _, err := t.w.Write(b); err != nil {
		t.err = err
		return
	}
	if err := t.w.WriteByte('\n'); err != nil {
		t.err = err
		return
	}
	if !flush {
		return
	}
	if err := t.w.Flush(); err != nil {
		t.err = err
		return
	}
	if err := t.enc.Flush(); err != nil {
		t.err = err
	}
}

func (t *Transcript) Close() error {
	if t.w == nil {
		return t.err
	}
	flushErr := t.w.Flush()
	encErr := t.enc.Close()
	fileErr := t.f.Close()
	t.w, t.enc, t.f = nil, nil, nil
	switch {
	case t.err != nil:
		return t.err
	case flushErr != nil:
		return fmt.Errorf("flush transcript: %w", flushErr)
	case encErr != nil:
		return fmt.Errorf("close zstd writer: %w", encErr)
	case fileErr != nil:
		return fmt.Errorf("close transcript: %w", fileErr)
	}
	return nil
}

// ReadTranscript decodes a whole transcript.
func ReadTranscript(path string) ([]TranscriptEntry, error) {
	pb, err := OpenPlayback(path)
	if err != nil {
		return nil, err
	}
	defer pb.Close()
	var out []TranscriptEntry
	for {
		e, err := pb.next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}

// Playback replays the inbound side of a transcript as a plain line stream,
// so a recorded game can be fed back through a session in place of stdin.
// Outbound lines are collected as they are passed over.
type Playback struct {
	f        *os.File
	dec      *zstd.Decoder
	sc       *bufio.Scanner
	buf      []byte
	outbound []string
}

func OpenPlayback(path string) (*Playback, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &Playback{f: f, dec: dec, sc: sc}, nil
}

func (p *Playback) next() (TranscriptEntry, error) {
	var e TranscriptEntry
	for p.sc.Scan() {
		if len(p.sc.Bytes()) == 0 {
			continue
		}
		if err := json.Unmarshal(p.sc.Bytes(), &e); err != nil {
			return e, fmt.Errorf("decode transcript entry: %w", err)
		}
		return e, nil
	}
	if err := p.sc.Err(); err != nil {
		return e, err
	}
	return e, io.EOF
}

func (p *Playback) Read(b []byte) (int, error) {
	for len(p.buf) == 0 {
		e, err := p.next()
		if err != nil {
			return 0, err
		}
		switch e.Dir {
		case DirIn:
			p.buf = append(append(p.buf[:0], e.Line...), '\n')
		case DirOut:
			p.outbound = append(p.outbound, e.Line)
		}
	}
	n := copy(b, p.buf)
	p.buf = p.buf[n:]
	return n, nil
}

// Outbound returns the recorded replies read past so far.
func (p *Playback) Outbound() []string { return p.outbound }

func (p *Playback) Close() error {
	p.dec.Close()
	return p.f.Close()
}
