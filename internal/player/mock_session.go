package player

import (
	"sync"

	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/vec"
)

// SentBlock — блок, отправленный игроку
type SentBlock struct {
	Pos vec.Vec3S
	ID  byte
}

// MockSession — сессия без сети, записывающая всё, что ей отправили.
// Используется в тестах и утилитах.
type MockSession struct {
	id      string
	name    string
	level   *level.Level
	mu      sync.Mutex
	holding byte
	blocks  []SentBlock
	msgs    []string
}

// NewMockSession создаёт сессию на уровне l
func NewMockSession(id, name string, l *level.Level) *MockSession {
	return &MockSession{id: id, name: name, level: l}
}

func (m *MockSession) ID() string          { return m.id }
func (m *MockSession) Name() string        { return m.name }
func (m *MockSession) Level() *level.Level { return m.level }

func (m *MockSession) SendBlockChange(pos vec.Vec3S, id byte) {
	m.mu.Lock()
	m.blocks = append(m.blocks, SentBlock{Pos: pos, ID: id})
	m.mu.Unlock()
}

func (m *MockSession) SendMessage(text string) {
	m.mu.Lock()
	m.msgs = append(m.msgs, text)
	m.mu.Unlock()
}

func (m *MockSession) Holding() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holding
}

// SetHolding меняет блок в руке
func (m *MockSession) SetHolding(id byte) {
	m.mu.Lock()
	m.holding = id
	m.mu.Unlock()
}

// Blocks возвращает копию отправленных блоков
func (m *MockSession) Blocks() []SentBlock {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentBlock(nil), m.blocks...)
}

// Messages возвращает копию отправленных сообщений
func (m *MockSession) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.msgs...)
}

// LastMessage возвращает последнее сообщение или ""
func (m *MockSession) LastMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.msgs) == 0 {
		return ""
	}
	return m.msgs[len(m.msgs)-1]
}

// Reset очищает записанные блоки и сообщения
func (m *MockSession) Reset() {
	m.mu.Lock()
	m.blocks = nil
	m.msgs = nil
	m.mu.Unlock()
}
