package player

import (
	"github.com/annel0/levelforge/internal/vec"
)

// Action — тип действия игрока над блоком
type Action byte

const (
	ActionDelete Action = iota
	ActionPlace
)

func (a Action) String() string {
	if a == ActionPlace {
		return "place"
	}
	return "delete"
}

// BlockChangeArgs — сырое действие игрока до применения к уровню
type BlockChangeArgs struct {
	Session Session
	Pos     vec.Vec3S
	Action  Action
	Holding byte
}
