// Package plugin — узкий контракт расширений сервера.
// Как плагины находятся (статическая регистрация, отдельный процесс) — дело
// вызывающего кода; сервер зависит только от интерфейса Plugin.
package plugin

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/annel0/levelforge/internal/command"
	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/logging"
	"github.com/annel0/levelforge/internal/player"
)

// ErrAlreadyLoaded — плагин с таким именем уже загружен
var ErrAlreadyLoaded = errors.New("плагин уже загружен")

// ErrNotLoaded — плагин с таким именем не загружен
var ErrNotLoaded = errors.New("плагин не загружен")

// Plugin — расширение сервера
type Plugin interface {
	Name() string
	Initialize(host *Host) error
	Unload() error
}

// Host — то, что сервер предоставляет плагинам
type Host struct {
	Levels       *level.Registry
	Commands     *command.Registry
	BlockChanges *player.BlockChangeHandler
}

// Manager загружает и выгружает плагины
type Manager struct {
	host *Host

	mu      sync.Mutex
	plugins map[string]Plugin
}

// NewManager создаёт менеджер для хоста
func NewManager(host *Host) *Manager {
	return &Manager{host: host, plugins: make(map[string]Plugin)}
}

// Load инициализирует плагин. При ошибке инициализации плагин не считается загруженным.
func (m *Manager) Load(p Plugin) error {
	key := strings.ToLower(p.Name())

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plugins[key]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, p.Name())
	}
	if err := p.Initialize(m.host); err != nil {
		return fmt.Errorf("инициализация плагина %s: %w", p.Name(), err)
	}
	m.plugins[key] = p
	logging.Info("🔌 Плагин %s загружен", p.Name())
	return nil
}

// Unload выгружает плагин по имени без учёта регистра
func (m *Manager) Unload(name string) error {
	key := strings.ToLower(name)

	m.mu.Lock()
	p, ok := m.plugins[key]
	delete(m.plugins, key)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	if err := p.Unload(); err != nil {
		return fmt.Errorf("выгрузка плагина %s: %w", p.Name(), err)
	}
	logging.Info("Плагин %s выгружен", p.Name())
	return nil
}

// Names возвращает имена загруженных плагинов по алфавиту
func (m *Manager) Names() []string {
	m.mu.Lock()
	names := make([]string, 0, len(m.plugins))
	for _, p := range m.plugins {
		names = append(names, p.Name())
	}
	m.mu.Unlock()

	sort.Strings(names)
	return names
}

// UnloadAll выгружает все плагины, ошибки объединяются
func (m *Manager) UnloadAll() error {
	var errs []error
	for _, name := range m.Names() {
		if err := m.Unload(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
