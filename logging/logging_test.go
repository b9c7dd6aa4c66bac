package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrettyJSONHandlerOrdersFixedFields(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	log.With("player", 2).WithGroup("turn").Debug("synced", "number", 7, "units", 3)

	out := buf.String()
	if !strings.HasPrefix(out, "{\n  \"time\":") {
		t.Fatalf("time should come first: %q", out)
	}
	if strings.Index(out, `"level"`) > strings.Index(out, `"msg"`) {
		t.Fatalf("level should precede msg: %q", out)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got["msg"] != "synced" || got["level"] != "DEBUG" {
		t.Fatalf("got=%v", got)
	}
	turn, ok := got["turn"].(map[string]any)
	if !ok || turn["number"] != float64(7) || got["player"] != float64(2) {
		t.Fatalf("grouped attrs=%v", got["turn"])
	}
}

func TestPrettyJSONHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyJSONHandler(&buf, nil))
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info: %q", buf.String())
	}
}

func TestOpenWritesFilePerID(t *testing.T) {
	dir := t.TempDir()
	log, closer, err := Open(Options{Path: filepath.Join(dir, "logs", "bot-{id}.log"), Format: "json", Level: "debug", ID: 3})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	log.Debug("hello", "k", "v")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "logs", "bot-3.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"msg":"hello"`) {
		t.Fatalf("log=%q", b)
	}
}

func TestOpenRejectsStdout(t *testing.T) {
	for _, p := range []string{"-", "/dev/stdout"} {
		if _, _, err := Open(Options{Path: p}); err == nil {
			t.Fatalf("Open(%q) should fail", p)
		}
	}
	if _, _, err := Open(Options{Format: "xml"}); err == nil {
		t.Fatalf("unknown format should fail")
	}
	if _, _, err := Open(Options{Level: "loud"}); err == nil {
		t.Fatalf("unknown level should fail")
	}
}
