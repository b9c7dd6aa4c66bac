package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultPath names one log file per player id.
const DefaultPath = "bot-{id}.log"

type Options struct {
	// Path is the log file. "{id}" is replaced by ID. Empty logs to stderr.
	Path string
	// Format is "text", "json" or "pretty". Empty means text.
	Format string
	// Level is a slog level name such as "debug" or "warn". Empty means info.
	Level string
	ID    int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ResolvePath substitutes the player id into a path template.
func ResolvePath(path string, id int) string {
	return strings.ReplaceAll(path, "{id}", strconv.Itoa(id))
}

// Open builds a logger from opts. The closer releases the log file, if any.
func Open(opts Options) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if opts.Path != "" {
		path := ResolvePath(opts.Path, opts.ID)
		switch path {
		case "-", "stdout", "/dev/stdout":
			return nil, nil, fmt.Errorf("log path %q would corrupt the protocol stream", opts.Path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}

	hopts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch opts.Format {
	case "", "text":
		h = slog.NewTextHandler(w, hopts)
	case "json":
		h = slog.NewJSONHandler(w, hopts)
	case "pretty":
		h = NewPrettyJSONHandler(w, hopts)
	default:
		_ = closer.Close()
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return slog.New(h), closer, nil
}
