// Package session drives the handshake and turn cycle over a protocol stream.
//
// The cycle is strictly pull based: Next blocks until a whole turn has been
// read and applied to the world, the caller plans, and EndTurn writes exactly
// one command line. A Session owns its world and planner; nothing is shared
// between sessions.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"

	"github.com/brensch/halite3/game"
	"github.com/brensch/halite3/nav"
	"github.com/brensch/halite3/protocol"
)

var (
	// ErrNotReady is returned by Next before the handshake and name
	// announcement have completed.
	ErrNotReady = errors.New("session: handshake not complete")
	// ErrState is returned for calls made out of order.
	ErrState = errors.New("session: call out of order")
)

type State uint8

const (
	AwaitingHandshake State = iota
	InTurn
)

func (s State) String() string {
	if s == InTurn {
		return "in_turn"
	}
	return "awaiting_handshake"
}

// Observer sees every handshake and every completed turn, after the command
// line has been written. An observer error ends the session.
type Observer interface {
	ObserveHandshake(hs protocol.Handshake) error
	ObserveTurn(t protocol.Turn, w *game.World, cmds []protocol.Command) error
}

// Strategy decides one turn's commands. It is the only place a bot's policy
// lives.
type Strategy interface {
	Turn(w *game.World, p *nav.Planner) ([]protocol.Command, error)
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(w *game.World, p *nav.Planner) ([]protocol.Command, error)

func (f StrategyFunc) Turn(w *game.World, p *nav.Planner) ([]protocol.Command, error) {
	return f(w, p)
}

type Option func(*Session)

// WithLayout selects the engine protocol version.
func WithLayout(l protocol.Layout) Option { return func(s *Session) { s.layout = l } }

func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.logger = l } }

// WithObserver adds an observer. Observers run in the order they were added.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// WithTap mirrors every raw line in both directions to t.
func WithTap(t protocol.Tap) Option { return func(s *Session) { s.tap = t } }

// WithRand seeds the planner's direction sampling.
func WithRand(r *rand.Rand) Option { return func(s *Session) { s.rng = r } }

// WithNavAttempts sets the planner's default retry budget.
func WithNavAttempts(n int) Option { return func(s *Session) { s.attempts = n } }

type Session struct {
	reader *protocol.Reader
	dec    *protocol.Decoder
	out    *protocol.Writer

	layout    protocol.Layout
	logger    *slog.Logger
	observers []Observer
	tap       protocol.Tap
	rng       *rand.Rand
	attempts  int

	state     State
	announced bool
	pending   bool
	ids       []game.PlayerID
	world     *game.World
	planner   *nav.Planner
	turn      protocol.Turn
}

// New wraps an engine stream: r carries engine output, w receives ours.
func New(r io.Reader, w io.Writer, opts ...Option) *Session {
	s := &Session{
		logger:   slog.Default(),
		attempts: nav.DefaultAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reader = protocol.NewReader(r)
	s.out = protocol.NewWriter(w)
	if s.tap != nil {
		s.reader.SetTap(s.tap)
		s.out.SetTap(s.tap)
	}
	s.dec = protocol.NewDecoder(s.reader, s.layout)
	return s
}

func (s *Session) State() State { return s.state }

// Handshake reads the initial exchange and builds the world.
func (s *Session) Handshake() (*game.World, error) {
	if s.state != AwaitingHandshake {
		return nil, fmt.Errorf("handshake in state %s: %w", s.state, ErrState)
	}
	hs, err := s.dec.ReadHandshake()
	if err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}
	m, err := game.NewMap(hs.Width, hs.Height, hs.Yields)
	if err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}
	world, err := game.NewWorld(hs.Self, hs.Homes, m, hs.Constants)
	if err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}
	for _, o := range s.observers {
		if err := o.ObserveHandshake(hs); err != nil {
			return nil, fmt.Errorf("observe handshake: %w", err)
		}
	}

	s.world = world
	s.ids = world.PlayerIDs()
	s.planner = nav.New(world, s.rng, s.attempts)
	s.state = InTurn
	s.logger.Info("handshake complete",
		"self", hs.Self,
		"players", len(hs.Homes),
		"width", hs.Width,
		"height", hs.Height,
		"order", s.layout.PlayerOrder.String(),
	)
	return world, nil
}

// Announce sends the bot's name. It must follow Handshake and precede the
// first Next.
func (s *Session) Announce(name string) error {
	if s.state != InTurn || s.announced {
		return fmt.Errorf("announce: %w", ErrState)
	}
	if err := s.out.WriteName(name); err != nil {
		return fmt.Errorf("announce: %w", err)
	}
	s.announced = true
	return nil
}

// Next blocks until the next turn is fully read and applied, then hands back
// the world and a planner with no claims. The caller must answer with
// EndTurn before calling Next again.
func (s *Session) Next() (*game.World, *nav.Planner, error) {
	if s.state != InTurn || !s.announced {
		return nil, nil, ErrNotReady
	}
	if s.pending {
		return nil, nil, fmt.Errorf("next with turn %d unanswered: %w", s.turn.Number, ErrState)
	}
	t, err := s.dec.ReadTurn(s.world.Self, s.ids)
	if err != nil {
		return nil, nil, fmt.Errorf("turn after %d: %w", s.world.Turn, err)
	}

	s.world.BeginTurnUpdate()
	for _, snap := range t.Players {
		if err := s.world.ApplyPlayerSnapshot(snap); err != nil {
			return nil, nil, fmt.Errorf("turn %d: %w", t.Number, err)
		}
	}
	s.world.ApplyYieldDeltas(t.Deltas)
	s.world.Turn = t.Number
	s.planner.Reset()

	s.turn = t
	s.pending = true
	s.logger.Debug("turn synchronized",
		"turn", t.Number,
		"units", len(s.world.Me().Units),
		"balance", s.world.Me().Balance,
		"deltas", len(t.Deltas),
	)
	return s.world, s.planner, nil
}

// EndTurn writes the turn's command line, possibly empty.
func (s *Session) EndTurn(cmds []protocol.Command) error {
	if !s.pending {
		return fmt.Errorf("end turn: %w", ErrState)
	}
	if err := s.out.WriteCommands(cmds); err != nil {
		return fmt.Errorf("turn %d: %w", s.turn.Number, err)
	}
	s.pending = false
	for _, o := range s.observers {
		if err := o.ObserveTurn(s.turn, s.world, cmds); err != nil {
			return fmt.Errorf("observe turn %d: %w", s.turn.Number, err)
		}
	}
	return nil
}

// SetLogger swaps the logger, e.g. once the player id is known and the
// per-player log file can be opened.
func (s *Session) SetLogger(l *slog.Logger) { s.logger = l }

// Run plays a whole game: handshake, name, then one strategy call per turn
// until the engine closes the stream. A clean close returns nil.
func (s *Session) Run(name string, strategy Strategy) error {
	if _, err := s.Handshake(); err != nil {
		return err
	}
	return s.Play(name, strategy)
}

// Play is Run for a session whose handshake is already done.
func (s *Session) Play(name string, strategy Strategy) error {
	if err := s.Announce(name); err != nil {
		return err
	}
	for {
		w, p, err := s.Next()
		if errors.Is(err, protocol.ErrStreamClosed) {
			s.logger.Info("stream closed", "last_turn", s.world.Turn)
			return nil
		}
		if err != nil {
			return err
		}
		cmds, err := strategy.Turn(w, p)
		if err != nil {
			return fmt.Errorf("strategy turn %d: %w", w.Turn, err)
		}
		if err := s.EndTurn(cmds); err != nil {
			return err
		}
	}
}
