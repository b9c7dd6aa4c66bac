package game

import (
	"encoding/json"
	"fmt"
	"math"
)

// Constants are the engine's gameplay parameters. Engines that send a
// constants preamble override these; otherwise DefaultConstants applies.
type Constants struct {
	MaxEnergy     int // most a unit can carry
	UnitCost      int // cost to spawn a unit
	OutpostCost   int // cost to convert a unit into an outpost
	MaxTurns      int
	ExtractRatio  int // a unit collects ceil(yield/ExtractRatio) per turn
	MoveCostRatio int // leaving a cell costs floor(yield/MoveCostRatio)

	InspirationEnabled      bool
	InspirationRadius       int
	InspirationUnitCount    int
	InspiredExtractRatio    int
	InspiredBonusMultiplier float64
	InspiredMoveCostRatio   int
}

// DefaultConstants are the starter-kit defaults.
var DefaultConstants = Constants{
	MaxEnergy:     1000,
	UnitCost:      1000,
	OutpostCost:   4000,
	MaxTurns:      500,
	ExtractRatio:  4,
	MoveCostRatio: 10,

	InspirationEnabled:      true,
	InspirationRadius:       4,
	InspirationUnitCount:    2,
	InspiredExtractRatio:    4,
	InspiredBonusMultiplier: 2,
	InspiredMoveCostRatio:   12,
}

// ParseConstants decodes the engine's JSON constants object on top of
// DefaultConstants. Unknown keys are ignored.
func ParseConstants(raw string) (Constants, error) {
	c := DefaultConstants
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return c, fmt.Errorf("decode constants: %w", err)
	}

	ints := map[string]*int{
		"MAX_ENERGY":               &c.MaxEnergy,
		"NEW_ENTITY_ENERGY_COST":   &c.UnitCost,
		"DROPOFF_COST":             &c.OutpostCost,
		"MAX_TURNS":                &c.MaxTurns,
		"EXTRACT_RATIO":            &c.ExtractRatio,
		"MOVE_COST_RATIO":          &c.MoveCostRatio,
		"INSPIRATION_RADIUS":       &c.InspirationRadius,
		"INSPIRATION_SHIP_COUNT":   &c.InspirationUnitCount,
		"INSPIRED_EXTRACT_RATIO":   &c.InspiredExtractRatio,
		"INSPIRED_MOVE_COST_RATIO": &c.InspiredMoveCostRatio,
	}
	for key, dst := range ints {
		v, ok := fields[key]
		if !ok {
			continue
		}
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return c, fmt.Errorf("constant %s: want integer, got %v", key, v)
		}
		*dst = int(f)
	}

	if v, ok := fields["INSPIRED_BONUS_MULTIPLIER"]; ok {
		f, ok := v.(float64)
		if !ok {
			return c, fmt.Errorf("constant INSPIRED_BONUS_MULTIPLIER: want number, got %v", v)
		}
		c.InspiredBonusMultiplier = f
	}
	if v, ok := fields["INSPIRATION_ENABLED"]; ok {
		b, ok := v.(bool)
		if !ok {
			return c, fmt.Errorf("constant INSPIRATION_ENABLED: want bool, got %v", v)
		}
		c.InspirationEnabled = b
	}

	if c.ExtractRatio <= 0 || c.MoveCostRatio <= 0 || c.InspiredExtractRatio <= 0 || c.InspiredMoveCostRatio <= 0 {
		return c, fmt.Errorf("constants: ratios must be positive")
	}
	return c, nil
}
