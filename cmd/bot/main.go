// Command bot plays one game over stdin/stdout, a websocket relay, or a
// recorded transcript. Its side log never touches stdout.
//
// Exit status is 0 when the engine closes the stream and 1 on any protocol
// violation or internal error.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brensch/halite3/config"
	"github.com/brensch/halite3/logging"
	"github.com/brensch/halite3/protocol"
	"github.com/brensch/halite3/session"
	"github.com/brensch/halite3/store"
	"github.com/brensch/halite3/transport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, protocol.ErrStreamClosed) || errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "bot: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(args []string) (config.Config, error) {
	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("HLT_CONFIG"), "YAML config file")
	name := fs.String("name", "", "Bot display name")
	seed := fs.Int64("seed", 0, "Planner RNG seed (also accepted as the first positional argument)")
	attempts := fs.Int("nav-attempts", 0, "Planner retry budget")
	logPath := fs.String("log-path", "", "Side log path; {id} becomes the player id")
	logFormat := fs.String("log-format", "", "Side log format: text, json or pretty")
	logLevel := fs.String("log-level", "", "Side log level")
	recordDir := fs.String("record-dir", "", "Directory for parquet game archives")
	recordIndex := fs.String("record-index", "", "sqlite index updated with each finished archive")
	transcript := fs.String("transcript", "", "zstd JSONL transcript of every protocol line")
	wsURL := fs.String("ws-url", "", "Websocket relay URL instead of stdio")
	playback := fs.String("playback", "", "Replay a recorded transcript instead of stdin")
	order := fs.String("player-order", "", "Per-turn player order: handshake, self_first or any")
	preamble := fs.Bool("constants-preamble", false, "Engine sends a JSON constants line first")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	c, err := config.Load(*configPath)
	if err != nil {
		return c, err
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return c, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			c.Name = *name
		case "seed":
			c.Seed = *seed
		case "nav-attempts":
			c.NavAttempts = *attempts
		case "log-path":
			c.Log.Path = *logPath
		case "log-format":
			c.Log.Format = *logFormat
		case "log-level":
			c.Log.Level = *logLevel
		case "record-dir":
			c.Record.Dir = *recordDir
		case "record-index":
			c.Record.Index = *recordIndex
		case "transcript":
			c.Record.Transcript = *transcript
		case "ws-url":
			c.Transport.URL = *wsURL
		case "playback":
			c.Playback = *playback
		case "player-order":
			c.Engine.PlayerOrder = *order
		case "constants-preamble":
			c.Engine.ConstantsPreamble = *preamble
		}
	})
	if fs.NArg() > 0 {
		s, err := strconv.ParseInt(fs.Arg(0), 10, 64)
		if err != nil {
			return c, fmt.Errorf("seed argument %q: %w", fs.Arg(0), err)
		}
		c.Seed = s
	}
	c.Normalize()
	return c, c.Validate()
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	layout, err := cfg.Layout()
	if err != nil {
		return err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	// Until the player id is known, diagnostics go to stderr.
	boot := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var (
		in      io.Reader = os.Stdin
		out     io.Writer = os.Stdout
		pb      *store.Playback
		replies bytes.Buffer
	)
	switch {
	case cfg.Playback != "":
		pb, err = store.OpenPlayback(cfg.Playback)
		if err != nil {
			return err
		}
		defer pb.Close()
		in, out = pb, &replies
	case cfg.Transport.URL != "":
		timeout, err := time.ParseDuration(cfg.Transport.ConnectTimeout)
		if err != nil {
			return fmt.Errorf("transport.connect_timeout: %w", err)
		}
		conn, err := transport.Dial(context.Background(), cfg.Transport.URL, timeout)
		if err != nil {
			return err
		}
		defer conn.Close()
		in, out = conn, conn
	}

	opts := []session.Option{
		session.WithLayout(layout),
		session.WithLogger(boot),
		session.WithRand(rand.New(rand.NewSource(cfg.Seed))),
		session.WithNavAttempts(cfg.NavAttempts),
	}
	if cfg.Record.Transcript != "" {
		tr, err := store.NewTranscript(cfg.Record.Transcript)
		if err != nil {
			return err
		}
		defer func() {
			if err := tr.Close(); err != nil {
				boot.Error("close transcript", "err", err)
			}
		}()
		opts = append(opts, session.WithTap(tr))
	}
	var rec *store.Recorder
	if cfg.Record.Dir != "" {
		gameID := fmt.Sprintf("%s-%d", sanitize(cfg.Name), time.Now().UnixNano())
		rec, err = store.NewRecorder(cfg.Record.Dir, gameID)
		if err != nil {
			return err
		}
		opts = append(opts, session.WithObserver(rec))
	}

	s := session.New(in, out, opts...)
	world, err := s.Handshake()
	if err != nil {
		return err
	}

	logger, closer, err := logging.Open(logging.Options{
		Path:   cfg.Log.Path,
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
		ID:     int(world.Self),
	})
	if err != nil {
		return err
	}
	defer closer.Close()
	logger = logger.With("player", int(world.Self))
	s.SetLogger(logger)
	logger.Info("game start",
		"name", cfg.Name,
		"seed", cfg.Seed,
		"map", fmt.Sprintf("%dx%d", world.Map.Width, world.Map.Height),
		"opponents", len(world.Opponents()),
	)

	playErr := s.Play(cfg.Name, newCollector(logger))

	if rec != nil {
		path, err := rec.Close()
		if err != nil {
			logger.Error("close archive", "err", err)
		} else if path != "" {
			logger.Info("archive written", "path", path, "turns", rec.Rows())
			if cfg.Record.Index != "" {
				if err := indexGame(cfg.Record.Index, rec, path); err != nil {
					logger.Error("index game", "err", err)
				}
			}
		}
	}
	if pb != nil {
		reportPlayback(logger, pb.Outbound(), replies.String())
	}
	if playErr != nil {
		logger.Error("game aborted", "turn", world.Turn, "err", playErr, "violation", protocol.IsViolation(playErr))
		return playErr
	}
	logger.Info("game over", "turn", world.Turn, "balance", world.Me().Balance)
	return nil
}

func indexGame(dbPath string, rec *store.Recorder, archive string) error {
	ix, err := store.OpenIndex(dbPath)
	if err != nil {
		return err
	}
	defer ix.Close()
	e := rec.Entry()
	e.Path = archive
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ix.Put(ctx, e)
}

// reportPlayback compares the replies given now with the recorded ones.
func reportPlayback(logger *slog.Logger, recorded []string, produced string) {
	got := strings.Split(strings.TrimSuffix(produced, "\n"), "\n")
	diverged := 0
	for i := 0; i < min(len(got), len(recorded)); i++ {
		if got[i] != recorded[i] {
			if diverged == 0 {
				logger.Warn("playback diverged", "line", i+1, "recorded", recorded[i], "produced", got[i])
			}
			diverged++
		}
	}
	logger.Info("playback finished", "lines", len(got), "recorded", len(recorded), "diverged", diverged)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
