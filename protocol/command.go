package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brensch/halite3/game"
)

// CommandKind selects the outbound instruction.
type CommandKind uint8

const (
	CommandSpawn CommandKind = iota + 1
	CommandConvert
	CommandMove
)

// Command is a single outbound instruction. Commands are built fresh every
// turn and do not depend on each other.
type Command struct {
	Kind CommandKind
	Unit game.EntityID
	Dir  game.Direction
}

// Spawn asks the engine to build a unit at the home base.
func Spawn() Command { return Command{Kind: CommandSpawn} }

// Convert turns a unit into an outpost.
func Convert(unit game.EntityID) Command { return Command{Kind: CommandConvert, Unit: unit} }

// Move moves a unit one step. Still is a valid direction.
func Move(unit game.EntityID, d game.Direction) Command {
	return Command{Kind: CommandMove, Unit: unit, Dir: d}
}

func (c Command) Validate() error {
	switch c.Kind {
	case CommandSpawn:
		return nil
	case CommandConvert:
		if c.Unit < 0 {
			return fmt.Errorf("convert: invalid unit id %d", c.Unit)
		}
		return nil
	case CommandMove:
		if c.Unit < 0 {
			return fmt.Errorf("move: invalid unit id %d", c.Unit)
		}
		if !c.Dir.Valid() {
			return fmt.Errorf("move unit %d: %v", c.Unit, c.Dir)
		}
		return nil
	}
	return fmt.Errorf("unknown command kind %d", c.Kind)
}

// Tokens returns the wire tokens for c.
func (c Command) Tokens() []string {
	switch c.Kind {
	case CommandSpawn:
		return []string{"g"}
	case CommandConvert:
		return []string{"c", strconv.Itoa(int(c.Unit))}
	case CommandMove:
		return []string{"m", strconv.Itoa(int(c.Unit)), string(rune(c.Dir))}
	}
	return nil
}

func (c Command) String() string { return strings.Join(c.Tokens(), " ") }

// EncodeCommands renders a turn's commands as one line, without terminator.
func EncodeCommands(cmds []Command) (string, error) {
	parts := make([]string, 0, len(cmds))
	for _, c := range cmds {
		if err := c.Validate(); err != nil {
			return "", err
		}
		parts = append(parts, c.String())
	}
	return strings.Join(parts, " "), nil
}

// ParseCommands decodes an outbound command line back into commands.
func ParseCommands(line string) ([]Command, error) {
	toks := strings.Fields(line)
	var out []Command
	for i := 0; i < len(toks); i++ {
		switch toks[i] {
		case "g":
			out = append(out, Spawn())
		case "c":
			if i+1 >= len(toks) {
				return nil, fmt.Errorf("convert: missing unit id")
			}
			id, err := strconv.Atoi(toks[i+1])
			if err != nil {
				return nil, fmt.Errorf("convert: bad unit id %q", toks[i+1])
			}
			out = append(out, Convert(game.EntityID(id)))
			i++
		case "m":
			if i+2 >= len(toks) {
				return nil, fmt.Errorf("move: want unit id and direction")
			}
			id, err := strconv.Atoi(toks[i+1])
			if err != nil {
				return nil, fmt.Errorf("move: bad unit id %q", toks[i+1])
			}
			if len(toks[i+2]) != 1 {
				return nil, fmt.Errorf("move: bad direction %q", toks[i+2])
			}
			d, err := game.ParseDirection(toks[i+2][0])
			if err != nil {
				return nil, fmt.Errorf("move: %w", err)
			}
			out = append(out, Move(game.EntityID(id), d))
			i += 2
		default:
			return nil, fmt.Errorf("unknown command token %q", toks[i])
		}
	}
	return out, nil
}
