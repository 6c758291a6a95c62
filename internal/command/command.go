// Package command описывает контракт команд чата и статический реестр.
package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/annel0/levelforge/internal/logging"
	"github.com/annel0/levelforge/internal/player"
)

// ErrDuplicate — имя или псевдоним уже заняты другой командой
var ErrDuplicate = errors.New("команда уже зарегистрирована")

// Command — команда, которую игрок вызывает из чата
type Command interface {
	Name() string
	Aliases() []string
	Use(sess player.Session, args []string)
	Help(sess player.Session)
}

// Registry — набор команд. Команды добавляются только явной регистрацией.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Command
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Command)}
}

// Register добавляет команду под её именем и псевдонимами
func (r *Registry) Register(cmd Command) error {
	keys := append([]string{cmd.Name()}, cmd.Aliases()...)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range keys {
		if _, ok := r.byName[strings.ToLower(k)]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicate, k)
		}
	}
	for _, k := range keys {
		r.byName[strings.ToLower(k)] = cmd
	}
	logging.Debug("Команда %s зарегистрирована (%v)", cmd.Name(), cmd.Aliases())
	return nil
}

// Unregister удаляет команду вместе с псевдонимами
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cmd, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return false
	}
	for k, c := range r.byName {
		if c == cmd {
			delete(r.byName, k)
		}
	}
	return true
}

// Find ищет команду по имени или псевдониму без учёта регистра
func (r *Registry) Find(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.byName[strings.ToLower(name)]
	return cmd, ok
}

// Names возвращает основные имена команд по алфавиту
func (r *Registry) Names() []string {
	r.mu.RLock()
	seen := make(map[Command]struct{}, len(r.byName))
	names := make([]string, 0, len(r.byName))
	for _, cmd := range r.byName {
		if _, ok := seen[cmd]; ok {
			continue
		}
		seen[cmd] = struct{}{}
		names = append(names, cmd.Name())
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Execute разбирает строку чата ("/cuboid stone walls") и выполняет команду.
// Возвращает false, если команда не найдена.
func (r *Registry) Execute(sess player.Session, line string) bool {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if len(fields) == 0 {
		return false
	}

	cmd, ok := r.Find(fields[0])
	if !ok {
		sess.SendMessage(fmt.Sprintf("Unknown command \"%s\"!", fields[0]))
		return false
	}

	logging.Debug("Игрок %s: /%s %v", sess.Name(), cmd.Name(), fields[1:])
	cmd.Use(sess, fields[1:])
	return true
}
