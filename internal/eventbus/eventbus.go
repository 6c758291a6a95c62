package eventbus

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/annel0/levelforge/internal/logging"
)

// Priority определяет порядок вызова обработчиков: меньшее значение вызывается раньше.
// При равном приоритете порядок совпадает с порядком регистрации.
type Priority int

const (
	PrioritySystem Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
	// PriorityMonitor вызывается последним и не должен менять событие
	PriorityMonitor
)

// Event — одно срабатывание шины. Отмена не прерывает обход:
// обработчики с меньшим приоритетом всё равно вызываются и видят флаг.
type Event[T any] struct {
	Payload  T
	Source   string
	canceled bool
}

// Cancel отменяет действие по умолчанию
func (e *Event[T]) Cancel() { e.canceled = true }

// Allow снимает отмену, выставленную ранее
func (e *Event[T]) Allow() { e.canceled = false }

// Canceled сообщает, отменено ли событие
func (e *Event[T]) Canceled() bool { return e.canceled }

// Handler потребляет событие. sub — подписка, через которую пришёл вызов;
// через неё доступны данные подписки и отписка изнутри обработчика.
type Handler[T any] func(ev *Event[T], sub *Subscription[T])

// Subscription — регистрация обработчика в шине
type Subscription[T any] struct {
	bus      *Bus[T]
	handler  Handler[T]
	priority Priority
	data     any
	owner    string
	once     bool
	active   atomic.Bool
}

// Data возвращает непрозрачные данные, переданные при регистрации
func (s *Subscription[T]) Data() any { return s.data }

// Owner возвращает владельца подписки ("" — события от любого источника)
func (s *Subscription[T]) Owner() string { return s.owner }

// Priority возвращает приоритет подписки
func (s *Subscription[T]) Priority() Priority { return s.priority }

// Active сообщает, зарегистрирована ли подписка
func (s *Subscription[T]) Active() bool { return s.active.Load() }

// Unregister удаляет подписку. Повторный вызов ничего не делает,
// вызов из собственного обработчика безопасен.
func (s *Subscription[T]) Unregister() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.bus.remove(s)
}

// Stats — счётчики шины
type Stats struct {
	Dispatched    uint64
	Canceled      uint64
	Handled       uint64
	Panics        uint64
	Subscriptions int
}

// Bus — синхронная шина событий с приоритетами и отменой.
// Dispatch обходит снимок списка подписок, поэтому обработчики могут
// регистрировать и удалять подписки во время обхода: новые подписки
// не вызываются в текущем обходе, удалённые пропускаются.
type Bus[T any] struct {
	name string

	mu   sync.RWMutex
	subs []*Subscription[T] // отсортирован по приоритету, копируется при изменении

	dispatched atomic.Uint64
	canceled   atomic.Uint64
	handled    atomic.Uint64
	panics     atomic.Uint64
}

// New создаёт пустую шину
func New[T any](name string) *Bus[T] {
	return &Bus[T]{name: name}
}

// Name возвращает имя шины (используется в логах и метриках)
func (b *Bus[T]) Name() string { return b.name }

// Register добавляет обработчик. owner ограничивает подписку событиями
// от этого источника; пустой owner получает все события.
func (b *Bus[T]) Register(handler Handler[T], priority Priority, data any, owner string) *Subscription[T] {
	return b.register(handler, priority, data, owner, false)
}

// RegisterOnce добавляет обработчик, который снимается перед первым вызовом
func (b *Bus[T]) RegisterOnce(handler Handler[T], priority Priority, data any, owner string) *Subscription[T] {
	return b.register(handler, priority, data, owner, true)
}

func (b *Bus[T]) register(handler Handler[T], priority Priority, data any, owner string, once bool) *Subscription[T] {
	sub := &Subscription[T]{
		bus:      b,
		handler:  handler,
		priority: priority,
		data:     data,
		owner:    owner,
		once:     once,
	}
	sub.active.Store(true)

	b.mu.Lock()
	// вставляем после всех подписок с тем же приоритетом
	i, _ := slices.BinarySearchFunc(b.subs, priority, func(s *Subscription[T], p Priority) int {
		if s.priority <= p {
			return -1
		}
		return 1
	})
	b.subs = slices.Insert(slices.Clip(b.subs), i, sub)
	b.mu.Unlock()
	return sub
}

func (b *Bus[T]) remove(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := slices.Index(b.subs, sub)
	if i < 0 {
		return
	}
	b.subs = slices.Delete(slices.Clone(b.subs), i, i+1)
}

// Dispatch синхронно вызывает подходящие обработчики и возвращает событие.
// Паника обработчика логируется и не прерывает обход.
func (b *Bus[T]) Dispatch(source string, payload T) *Event[T] {
	ev := &Event[T]{Payload: payload, Source: source}

	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	b.dispatched.Add(1)
	for _, sub := range subs {
		if sub.owner != "" && sub.owner != source {
			continue
		}
		if sub.once {
			if !sub.active.CompareAndSwap(true, false) {
				continue
			}
			b.remove(sub)
		} else if !sub.Active() {
			continue
		}
		b.call(sub, ev)
	}

	if ev.canceled {
		b.canceled.Add(1)
	}
	return ev
}

func (b *Bus[T]) call(sub *Subscription[T], ev *Event[T]) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			logging.Error("[EventBus %s] паника в обработчике (src=%s prio=%d): %v", b.name, ev.Source, sub.priority, r)
		}
	}()
	sub.handler(ev, sub)
	b.handled.Add(1)
}

// UnregisterOwner снимает все подписки владельца и возвращает их число
func (b *Bus[T]) UnregisterOwner(owner string) int {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	n := 0
	for _, sub := range subs {
		if sub.owner == owner && sub.active.CompareAndSwap(true, false) {
			b.remove(sub)
			n++
		}
	}
	return n
}

// Len возвращает число активных подписок
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Stats возвращает текущие счётчики
func (b *Bus[T]) Stats() Stats {
	return Stats{
		Dispatched:    b.dispatched.Load(),
		Canceled:      b.canceled.Load(),
		Handled:       b.handled.Load(),
		Panics:        b.panics.Load(),
		Subscriptions: b.Len(),
	}
}
