package level

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/annel0/levelforge/internal/logging"
)

// ErrLevelExists — уровень с таким именем уже загружен
var ErrLevelExists = errors.New("уровень уже загружен")

// Store — постоянное хранилище уровней
type Store interface {
	Load(ctx context.Context, name string) (*Level, error)
	Save(ctx context.Context, l *Level) error
}

// Registry — набор загруженных уровней сервера.
// Имена сравниваются без учёта регистра.
type Registry struct {
	mu      sync.RWMutex
	levels  map[string]*Level
	store   Store
	metrics *Metrics
}

// NewRegistry создаёт реестр поверх хранилища. store может быть nil —
// тогда уровни только генерируются и не сохраняются.
func NewRegistry(store Store) *Registry {
	return &Registry{
		levels: make(map[string]*Level),
		store:  store,
	}
}

// WithMetrics подключает метрики: каждый добавленный уровень начинает считать изменения
func (r *Registry) WithMetrics(m *Metrics) *Registry {
	r.mu.Lock()
	r.metrics = m
	r.mu.Unlock()
	return r
}

func key(name string) string {
	return strings.ToLower(name)
}

// Add добавляет уровень в реестр
func (r *Registry) Add(l *Level) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(l.Name)
	if _, ok := r.levels[k]; ok {
		return fmt.Errorf("%w: %s", ErrLevelExists, l.Name)
	}
	r.levels[k] = l
	if r.metrics != nil {
		r.metrics.Observe(l)
		r.metrics.setLoaded(len(r.levels))
	}
	return nil
}

// Find ищет уровень по имени
func (r *Registry) Find(name string) (*Level, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.levels[key(name)]
	return l, ok
}

// Remove убирает уровень из реестра (без сохранения)
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(name)
	if _, ok := r.levels[k]; !ok {
		return false
	}
	delete(r.levels, k)
	r.metrics.setLoaded(len(r.levels))
	return true
}

// All возвращает уровни, отсортированные по имени
func (r *Registry) All() []*Level {
	r.mu.RLock()
	all := make([]*Level, 0, len(r.levels))
	for _, l := range r.levels {
		all = append(all, l)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return key(all[i].Name) < key(all[j].Name)
	})
	return all
}

// Names возвращает имена уровней в порядке All
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, l := range all {
		names[i] = l.Name
	}
	return names
}

// LoadOrCreate загружает уровень из хранилища или генерирует новый.
// Ошибка хранилища не фатальна: она логируется, и уровень создаётся заново.
func (r *Registry) LoadOrCreate(ctx context.Context, name string, fallback GenerateSpec) (*Level, error) {
	if l, ok := r.Find(name); ok {
		return l, nil
	}

	var l *Level
	if r.store != nil {
		loaded, err := r.store.Load(ctx, name)
		if err != nil {
			logging.Warn("Не удалось загрузить уровень %s: %v, создаём новый (%s)", name, err, fallback.Type)
		} else {
			l = loaded
			l.Name = name
			logging.Info("Уровень %s загружен (%v)", name, l.Size())
		}
	}

	if l == nil {
		generated, err := Generate(name, fallback.Size, fallback.Type, fallback.Seed)
		if err != nil {
			return nil, fmt.Errorf("генерация уровня %s: %w", name, err)
		}
		l = generated
		logging.Info("Уровень %s сгенерирован: %s %v", name, fallback.Type, fallback.Size)
	}

	if err := r.Add(l); err != nil {
		// Гонка с параллельной загрузкой: возвращаем уже добавленный экземпляр
		if existing, ok := r.Find(name); ok {
			return existing, nil
		}
		return nil, err
	}
	return l, nil
}

// Save сохраняет один уровень и отмечает его сохранённым
func (r *Registry) Save(ctx context.Context, l *Level) error {
	if r.store == nil {
		return nil
	}
	changes := l.ChangeCount()
	err := r.store.Save(ctx, l)
	r.metrics.saveResult(err)
	if err != nil {
		return fmt.Errorf("сохранение уровня %s: %w", l.Name, err)
	}
	l.MarkSaved(changes)
	return nil
}

// SaveAll сохраняет все уровни с несохранёнными изменениями.
// Ошибки по отдельным уровням объединяются.
func (r *Registry) SaveAll(ctx context.Context) error {
	var errs []error
	for _, l := range r.All() {
		if !l.Dirty() {
			continue
		}
		if err := r.Save(ctx, l); err != nil {
			logging.Error("%v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RunAutosave периодически вызывает SaveAll до отмены ctx
func (r *Registry) RunAutosave(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.SaveAll(ctx); err != nil {
				logging.Warn("Автосохранение завершилось с ошибками: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
