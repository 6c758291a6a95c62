package cuboid

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/annel0/levelforge/internal/eventbus"
	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/logging"
	"github.com/annel0/levelforge/internal/player"
	"github.com/annel0/levelforge/internal/vec"
)

// Stage — этап захвата углов
type Stage int

const (
	StageIdle Stage = iota
	StageAwaitingFirstCorner
	StageAwaitingSecondCorner
	StageApplying
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAwaitingFirstCorner:
		return "awaiting_first_corner"
	case StageAwaitingSecondCorner:
		return "awaiting_second_corner"
	case StageApplying:
		return "applying"
	default:
		return "unknown"
	}
}

type (
	blockEvent = eventbus.Event[player.BlockChangeArgs]
	blockSub   = eventbus.Subscription[player.BlockChangeArgs]
)

// PendingEdit — незавершённая правка одного игрока
type PendingEdit struct {
	Stage    Stage
	First    *vec.Vec3S
	Second   *vec.Vec3S
	Block    byte
	BlockSet bool
	Mode     Mode

	sub *blockSub
}

// Capturer ведёт захват двух углов кликами игрока и заполняет область.
// Состояние каждого игрока хранится отдельно; в шину передаётся только ID сессии.
type Capturer struct {
	bus *eventbus.Bus[player.BlockChangeArgs]

	mu      sync.Mutex
	pending map[string]*PendingEdit

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewCapturer создаёт захватчик поверх шины изменений блоков. rng может быть nil.
func NewCapturer(bus *eventbus.Bus[player.BlockChangeArgs], rng *rand.Rand) *Capturer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Capturer{
		bus:     bus,
		pending: make(map[string]*PendingEdit),
		rng:     rng,
	}
}

// BeginCapture начинает захват углов. Незавершённый захват этого игрока отменяется.
// Если blockSet == false, используется блок в руке на втором клике.
func (c *Capturer) BeginCapture(sess player.Session, mode Mode, id byte, blockSet bool) {
	c.Abort(sess)

	key := sess.ID()
	edit := &PendingEdit{
		Stage:    StageAwaitingFirstCorner,
		Block:    id,
		BlockSet: blockSet,
		Mode:     mode,
	}

	c.mu.Lock()
	c.pending[key] = edit
	edit.sub = c.bus.Register(c.firstCorner, eventbus.PriorityNormal, key, key)
	c.mu.Unlock()
}

// current возвращает правку, если подписка всё ещё её
func (c *Capturer) current(sub *blockSub, stage Stage) (*PendingEdit, string) {
	key, _ := sub.Data().(string)
	c.mu.Lock()
	defer c.mu.Unlock()
	edit := c.pending[key]
	if edit == nil || edit.sub != sub || edit.Stage != stage {
		return nil, key
	}
	return edit, key
}

func (c *Capturer) firstCorner(ev *blockEvent, sub *blockSub) {
	edit, key := c.current(sub, StageAwaitingFirstCorner)
	if edit == nil {
		sub.Unregister()
		return
	}

	args := ev.Payload
	pos := args.Pos

	c.mu.Lock()
	edit.First = &pos
	c.mu.Unlock()

	revert(args)
	ev.Cancel()
	sub.Unregister()

	c.mu.Lock()
	if c.pending[key] == edit {
		edit.sub = c.bus.Register(c.secondCorner, eventbus.PriorityNormal, key, key)
		edit.Stage = StageAwaitingSecondCorner
	}
	c.mu.Unlock()
}

func (c *Capturer) secondCorner(ev *blockEvent, sub *blockSub) {
	edit, key := c.current(sub, StageAwaitingSecondCorner)
	if edit == nil {
		sub.Unregister()
		return
	}

	args := ev.Payload
	pos := args.Pos

	c.mu.Lock()
	edit.Second = &pos
	edit.Stage = StageApplying
	edit.sub = nil
	first := *edit.First
	c.mu.Unlock()

	revert(args)
	ev.Cancel()
	sub.Unregister()

	id := args.Holding
	if edit.BlockSet {
		id = edit.Block
	}

	if block.Valid(id) {
		c.ApplyLiteral(args.Session, first, pos, edit.Mode, id)
	} else {
		args.Session.SendMessage("Invalid block or type!")
	}

	c.mu.Lock()
	if c.pending[key] == edit {
		edit.Stage = StageIdle
		delete(c.pending, key)
	}
	c.mu.Unlock()
}

// revert возвращает игроку настоящее состояние блока, который он «поставил»
func revert(args player.BlockChangeArgs) {
	l := args.Session.Level()
	if l == nil {
		return
	}
	args.Session.SendBlockChange(args.Pos, l.GetBlock(args.Pos))
}

// ApplyLiteral заполняет область без захвата и сообщает игроку "<n> blocks.",
// где n — число фактически изменённых блоков. Его же и возвращает.
func (c *Capturer) ApplyLiteral(sess player.Session, c1, c2 vec.Vec3S, mode Mode, id byte) int {
	l := sess.Level()
	if l == nil {
		return 0
	}

	var rng *rand.Rand
	if mode == Random {
		// общий генератор не потокобезопасен: под замком берём только зерно
		c.rngMu.Lock()
		rng = rand.New(rand.NewSource(c.rng.Int63()))
		c.rngMu.Unlock()
	}
	positions := Plan(l, c1, c2, id, mode, rng)

	// изменения рассылаются всем, включая автора: его клики были откачены
	n := Apply(l, positions, id, nil)
	sess.SendMessage(fmt.Sprintf("%d blocks.", n))
	logging.Debug("Cuboid %s: %s %v-%v %s, изменено %d", sess.Name(), mode, c1, c2, block.Name(id), n)
	return n
}

// Abort отменяет незавершённый захват игрока. Возвращает false, если захвата не было.
func (c *Capturer) Abort(sess player.Session) bool {
	return c.abortKey(sess.ID())
}

func (c *Capturer) abortKey(key string) bool {
	c.mu.Lock()
	edit, ok := c.pending[key]
	var sub *blockSub
	if ok {
		sub = edit.sub
		edit.sub = nil
		delete(c.pending, key)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	if sub != nil {
		sub.Unregister()
	}
	return true
}

// AbortAll отменяет все захваты и возвращает их число
func (c *Capturer) AbortAll() int {
	c.mu.Lock()
	keys := make([]string, 0, len(c.pending))
	for k := range c.pending {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	n := 0
	for _, k := range keys {
		if c.abortKey(k) {
			n++
		}
	}
	return n
}

// Pending возвращает копию незавершённой правки игрока
func (c *Capturer) Pending(sess player.Session) (PendingEdit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	edit, ok := c.pending[sess.ID()]
	if !ok {
		return PendingEdit{}, false
	}
	cp := *edit
	cp.sub = nil
	return cp, true
}
