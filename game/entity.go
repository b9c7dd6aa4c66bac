package game

import "fmt"

// PlayerID identifies a participant.
type PlayerID int

// EntityID identifies a unit or outpost. IDs are unique within their kind.
type EntityID int

// NoEntity is the id carried by structures the engine does not number,
// which in practice is every player's home base.
const NoEntity EntityID = -1

// Kind tags an Entity as a mobile unit or a fixed structure.
type Kind uint8

const (
	KindUnit Kind = iota + 1
	KindStructure
)

// Entity is either a mobile unit or a structure. Carried is only meaningful
// for units; structures never move.
type Entity struct {
	Kind    Kind
	ID      EntityID
	Owner   PlayerID
	Pos     Position
	Carried int
}

func NewUnit(owner PlayerID, id EntityID, pos Position, carried int) *Entity {
	return &Entity{Kind: KindUnit, ID: id, Owner: owner, Pos: pos, Carried: carried}
}

func NewStructure(owner PlayerID, id EntityID, pos Position) *Entity {
	return &Entity{Kind: KindStructure, ID: id, Owner: owner, Pos: pos}
}

func (e *Entity) IsUnit() bool { return e != nil && e.Kind == KindUnit }

func (e *Entity) IsStructure() bool { return e != nil && e.Kind == KindStructure }

// IsHome reports whether e is a player's home base.
func (e *Entity) IsHome() bool { return e.IsStructure() && e.ID == NoEntity }

func (e *Entity) String() string {
	switch e.Kind {
	case KindUnit:
		return fmt.Sprintf("Unit{id=%d,owner=%d,pos=%s,carried=%d}", e.ID, e.Owner, e.Pos, e.Carried)
	case KindStructure:
		if e.IsHome() {
			return fmt.Sprintf("Home{owner=%d,pos=%s}", e.Owner, e.Pos)
		}
		return fmt.Sprintf("Outpost{id=%d,owner=%d,pos=%s}", e.ID, e.Owner, e.Pos)
	}
	return fmt.Sprintf("Entity{kind=%d,id=%d}", e.Kind, e.ID)
}
