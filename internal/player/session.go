package player

import (
	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/vec"
)

// Session — подключённый игрок со стороны сетевого слоя.
// Реализует level.Viewer, поэтому может подписываться на изменения уровня.
type Session interface {
	ID() string
	Name() string
	// Level возвращает уровень, на котором находится игрок (может быть nil)
	Level() *level.Level
	// SendBlockChange отправляет игроку состояние одного блока
	SendBlockChange(pos vec.Vec3S, id byte)
	// SendMessage отправляет текстовую строку в чат игрока
	SendMessage(text string)
	// Holding возвращает блок в руке
	Holding() byte
}

var _ level.Viewer = Session(nil)
