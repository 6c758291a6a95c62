package level

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/vec"
)

var (
	// ErrInvalidSize — размер уровня должен быть положительным по всем осям
	ErrInvalidSize = errors.New("некорректный размер уровня")
	// ErrDataLength — длина массива блоков не совпадает с X*Z*Y
	ErrDataLength = errors.New("длина данных не совпадает с размером уровня")
)

// Viewer получает уведомления об изменении блоков уровня
type Viewer interface {
	ID() string
	SendBlockChange(pos vec.Vec3S, id byte)
}

// ChangeHook вызывается после каждого фактического изменения блока.
// originator может быть nil.
type ChangeHook func(l *Level, pos vec.Vec3S, id byte, originator Viewer)

// Level — воксельный уровень: плоский массив блоков, точка появления и метаданные.
// Запись сериализуется мьютексом уровня, последняя запись выигрывает.
type Level struct {
	Name string

	size     vec.Vec3S
	spawnPos vec.Vec3S
	spawnRot [2]byte
	data     []byte
	meta     map[string]string

	changes    uint64
	savedAt    uint64
	mu         sync.RWMutex
	viewersMu  sync.RWMutex
	viewers    map[string]Viewer
	hooks      map[int]ChangeHook
	nextHookID int
}

// Snapshot — копия состояния уровня на момент вызова
type Snapshot struct {
	Name     string
	Size     vec.Vec3S
	SpawnPos vec.Vec3S
	SpawnRot [2]byte
	Metadata map[string]string
	Blocks   []byte
	// Changes — значение ChangeCount на момент снимка, для MarkSaved
	Changes uint64
}

// New создаёт пустой уровень (все блоки — воздух)
func New(name string, size vec.Vec3S) (*Level, error) {
	if size.X <= 0 || size.Z <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}
	return newLevel(name, size, make([]byte, size.Volume())), nil
}

// FromData создаёт уровень поверх готового массива блоков (без копирования)
func FromData(name string, size vec.Vec3S, data []byte) (*Level, error) {
	if size.X <= 0 || size.Z <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}
	if len(data) != size.Volume() {
		return nil, fmt.Errorf("%w: %d != %d", ErrDataLength, len(data), size.Volume())
	}
	return newLevel(name, size, data), nil
}

func newLevel(name string, size vec.Vec3S, data []byte) *Level {
	return &Level{
		Name:     name,
		size:     size,
		spawnPos: vec.Vec3S{X: size.X / 2, Z: size.Z / 2, Y: size.Y},
		data:     data,
		meta:     make(map[string]string),
		viewers:  make(map[string]Viewer),
		hooks:    make(map[int]ChangeHook),
	}
}

// Size возвращает размеры уровня
func (l *Level) Size() vec.Vec3S {
	return l.size
}

// TotalBlocks возвращает X*Z*Y
func (l *Level) TotalBlocks() int {
	return len(l.data)
}

// IsInBounds проверяет, что позиция внутри уровня
func (l *Level) IsInBounds(pos vec.Vec3S) bool {
	_, ok := PosToIndex(pos, l.size)
	return ok
}

// Spawn возвращает точку появления и поворот
func (l *Level) Spawn() (vec.Vec3S, [2]byte) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.spawnPos, l.spawnRot
}

// SetSpawn меняет точку появления
func (l *Level) SetSpawn(pos vec.Vec3S, rot [2]byte) {
	l.mu.Lock()
	l.spawnPos = pos
	l.spawnRot = rot
	l.mu.Unlock()
}

// GetBlock возвращает ID блока или block.Unknown за пределами уровня
func (l *Level) GetBlock(pos vec.Vec3S) byte {
	idx, ok := PosToIndex(pos, l.size)
	if !ok {
		return block.Unknown
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.data[idx]
}

// GetBlockIndex возвращает блок по индексу массива
func (l *Level) GetBlockIndex(idx int) byte {
	if idx < 0 || idx >= len(l.data) {
		return block.Unknown
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.data[idx]
}

// SetBlock записывает блок без уведомлений. Вне уровня — ничего не делает.
func (l *Level) SetBlock(pos vec.Vec3S, id byte) {
	idx, ok := PosToIndex(pos, l.size)
	if !ok {
		return
	}
	l.mu.Lock()
	l.data[idx] = id
	l.mu.Unlock()
}

// BlockChange — основная точка изменения уровня. Записывает блок и рассылает
// изменение всем зрителям, кроме originator (nil — всем).
// Возвращает true, если блок действительно изменился.
func (l *Level) BlockChange(pos vec.Vec3S, id byte, originator Viewer) bool {
	// Y == высоте уровня игнорируется отдельно, как в исходном сервере
	if pos.Y == l.size.Y {
		return false
	}
	idx, ok := PosToIndex(pos, l.size)
	if !ok {
		return false
	}

	l.mu.Lock()
	if l.data[idx] == id {
		l.mu.Unlock()
		return false
	}
	l.data[idx] = id
	l.changes++
	l.mu.Unlock()

	l.notify(pos, id, originator)
	return true
}

func (l *Level) notify(pos vec.Vec3S, id byte, originator Viewer) {
	l.viewersMu.RLock()
	viewers := make([]Viewer, 0, len(l.viewers))
	for _, v := range l.viewers {
		if originator != nil && v.ID() == originator.ID() {
			continue
		}
		viewers = append(viewers, v)
	}
	hooks := make([]ChangeHook, 0, len(l.hooks))
	for _, h := range l.hooks {
		hooks = append(hooks, h)
	}
	l.viewersMu.RUnlock()

	for _, v := range viewers {
		v.SendBlockChange(pos, id)
	}
	for _, h := range hooks {
		h(l, pos, id, originator)
	}
}

// AddViewer подписывает зрителя на изменения блоков
func (l *Level) AddViewer(v Viewer) {
	l.viewersMu.Lock()
	l.viewers[v.ID()] = v
	l.viewersMu.Unlock()
}

// RemoveViewer отписывает зрителя
func (l *Level) RemoveViewer(v Viewer) {
	l.viewersMu.Lock()
	delete(l.viewers, v.ID())
	l.viewersMu.Unlock()
}

// Viewers возвращает текущих зрителей
func (l *Level) Viewers() []Viewer {
	l.viewersMu.RLock()
	defer l.viewersMu.RUnlock()
	return slices.Collect(maps.Values(l.viewers))
}

// OnChange добавляет хук изменений. Возвращает функцию удаления хука.
func (l *Level) OnChange(hook ChangeHook) (remove func()) {
	l.viewersMu.Lock()
	id := l.nextHookID
	l.nextHookID++
	l.hooks[id] = hook
	l.viewersMu.Unlock()

	return func() {
		l.viewersMu.Lock()
		delete(l.hooks, id)
		l.viewersMu.Unlock()
	}
}

// Positions возвращает ленивый обход всех позиций в порядке хранения
// (X меняется быстрее всего, Y — медленнее всего)
func (l *Level) Positions() iter.Seq[vec.Vec3S] {
	size := l.size
	return func(yield func(vec.Vec3S) bool) {
		for y := int16(0); y < size.Y; y++ {
			for z := int16(0); z < size.Z; z++ {
				for x := int16(0); x < size.X; x++ {
					if !yield(vec.Vec3S{X: x, Z: z, Y: y}) {
						return
					}
				}
			}
		}
	}
}

// Indices возвращает ленивый обход всех индексов массива блоков
func (l *Level) Indices() iter.Seq[int] {
	n := len(l.data)
	return func(yield func(int) bool) {
		for i := 0; i < n; i++ {
			if !yield(i) {
				return
			}
		}
	}
}

// ForEachBlockXZY вызывает fn для каждой позиции уровня
func (l *Level) ForEachBlockXZY(fn func(pos vec.Vec3S)) {
	for pos := range l.Positions() {
		fn(pos)
	}
}

// ForEachBlock вызывает fn для каждого индекса массива блоков
func (l *Level) ForEachBlock(fn func(idx int)) {
	for i := range l.Indices() {
		fn(i)
	}
}

// Meta возвращает значение метаданных
func (l *Level) Meta(key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.meta[key]
	return v, ok
}

// SetMeta записывает значение метаданных
func (l *Level) SetMeta(key, value string) {
	l.mu.Lock()
	l.meta[key] = value
	l.changes++
	l.mu.Unlock()
}

// DeleteMeta удаляет ключ метаданных
func (l *Level) DeleteMeta(key string) {
	l.mu.Lock()
	if _, ok := l.meta[key]; ok {
		delete(l.meta, key)
		l.changes++
	}
	l.mu.Unlock()
}

// MetaSnapshot возвращает копию метаданных
func (l *Level) MetaSnapshot() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.meta)
}

// Snapshot копирует состояние уровня. Изменения после вызова в копию не попадают.
func (l *Level) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	blocks := make([]byte, len(l.data))
	copy(blocks, l.data)

	return Snapshot{
		Name:     l.Name,
		Size:     l.size,
		SpawnPos: l.spawnPos,
		SpawnRot: l.spawnRot,
		Metadata: maps.Clone(l.meta),
		Blocks:   blocks,
		Changes:  l.changes,
	}
}

// ChangeCount возвращает число изменений с момента создания уровня
func (l *Level) ChangeCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.changes
}

// Dirty сообщает, есть ли несохранённые изменения
func (l *Level) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.changes != l.savedAt
}

// MarkSaved отмечает состояние на момент снимка как сохранённое
func (l *Level) MarkSaved(changes uint64) {
	l.mu.Lock()
	if changes > l.savedAt {
		l.savedAt = changes
	}
	l.mu.Unlock()
}
