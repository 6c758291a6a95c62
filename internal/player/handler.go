package player

import (
	"fmt"
	"sync"

	"github.com/annel0/levelforge/internal/eventbus"
	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/logging"
	"github.com/annel0/levelforge/internal/vec"
)

// BlockChangeHandler принимает действия игроков над блоками, прогоняет их через
// шину событий и, если ни один обработчик не отменил событие, применяет к уровню.
type BlockChangeHandler struct {
	bus *eventbus.Bus[BlockChangeArgs]

	mu           sync.RWMutex
	onDisconnect []func(Session)
}

// NewBlockChangeHandler создаёт обработчик с собственной шиной
func NewBlockChangeHandler() *BlockChangeHandler {
	return &BlockChangeHandler{bus: eventbus.New[BlockChangeArgs]("block_change")}
}

// Bus возвращает шину событий изменения блоков
func (h *BlockChangeHandler) Bus() *eventbus.Bus[BlockChangeArgs] {
	return h.bus
}

// HandleBlockChange обрабатывает действие игрока. Возвращает true, если блок на
// уровне изменился.
func (h *BlockChangeHandler) HandleBlockChange(sess Session, pos vec.Vec3S, action Action, holding byte) bool {
	ev := h.bus.Dispatch(sess.ID(), BlockChangeArgs{
		Session: sess,
		Pos:     pos,
		Action:  action,
		Holding: holding,
	})
	if ev.Canceled() {
		return false
	}

	l := sess.Level()
	if l == nil {
		return false
	}

	id := block.Air
	if action == ActionPlace {
		if !block.Valid(holding) {
			// клиент показал блок, которого нет: возвращаем ему настоящее состояние
			logging.Warn("Игрок %s пытался поставить неизвестный блок %d в %v", sess.Name(), holding, pos)
			sess.SendBlockChange(pos, l.GetBlock(pos))
			return false
		}
		id = holding
	}

	if !l.IsInBounds(pos) {
		return false
	}
	from := l.GetBlock(pos)
	changed := l.BlockChange(pos, id, sess)
	if changed {
		logging.LogBlockChange(l.Name, pos.X, pos.Z, pos.Y, from, id)
	}
	return changed
}

// Click имитирует установку блока игроком (для команд, которым нужен клик)
func (h *BlockChangeHandler) Click(sess Session, pos vec.Vec3S, holding byte) bool {
	return h.HandleBlockChange(sess, pos, ActionPlace, holding)
}

// OnDisconnect добавляет функцию, вызываемую при отключении игрока
func (h *BlockChangeHandler) OnDisconnect(fn func(Session)) {
	h.mu.Lock()
	h.onDisconnect = append(h.onDisconnect, fn)
	h.mu.Unlock()
}

// Disconnect снимает все подписки игрока. Возвращает их число.
func (h *BlockChangeHandler) Disconnect(sess Session) int {
	h.mu.RLock()
	hooks := h.onDisconnect
	h.mu.RUnlock()
	for _, fn := range hooks {
		fn(sess)
	}

	n := h.bus.UnregisterOwner(sess.ID())
	if n > 0 {
		logging.Debug("Игрок %s отключился, снято подписок: %d", sess.Name(), n)
	}
	return n
}

// Describe форматирует событие для логов шины
func Describe(args BlockChangeArgs) string {
	return fmt.Sprintf("%s %s %v holding=%s", args.Session.Name(), args.Action, args.Pos, block.Name(args.Holding))
}
