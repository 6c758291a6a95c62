package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/lvlfile"
	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SnapshotInfo описывает одну резервную копию уровня
type SnapshotInfo struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
	Size      int       `json:"size"`
}

// key возвращает ключ BadgerDB. Время дополнено нулями, чтобы ключи сортировались по времени.
func (i SnapshotInfo) key() []byte {
	return []byte(fmt.Sprintf("level:%s:%019d:%s", i.Level, i.CreatedAt.UnixNano(), i.ID))
}

func prefix(name string) []byte {
	return []byte("level:" + name + ":")
}

func parseKey(key []byte, size int) (SnapshotInfo, bool) {
	parts := strings.Split(string(key), ":")
	if len(parts) != 4 || parts[0] != "level" {
		return SnapshotInfo{}, false
	}
	ns, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return SnapshotInfo{}, false
	}
	return SnapshotInfo{
		ID:        parts[3],
		Level:     parts[1],
		CreatedAt: time.Unix(0, ns),
		Size:      size,
	}, true
}

// BackupStore хранит версии уровней в BadgerDB. Значение — закодированный .lvl файл.
type BackupStore struct {
	db      *badger.DB
	mutex   sync.RWMutex
	isReady bool
	now     func() time.Time
}

// NewBackupStore открывает базу в каталоге path. Пустой path — база в памяти.
func NewBackupStore(path string) (*BackupStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BackupStore{
		db:      db,
		isReady: true,
		now:     time.Now,
	}, nil
}

// Close закрывает базу
func (bs *BackupStore) Close() error {
	bs.mutex.Lock()
	defer bs.mutex.Unlock()

	if !bs.isReady {
		return nil
	}

	bs.isReady = false
	return bs.db.Close()
}

// Put сохраняет снимок уровня как новую версию
func (bs *BackupStore) Put(ctx context.Context, l *level.Level) (info SnapshotInfo, err error) {
	_, span := tracer.Start(ctx, "BackupStore.Put", trace.WithAttributes(attribute.String("level", l.Name)))
	defer func() { endSpan(span, err) }()

	if err := ValidateName(l.Name); err != nil {
		return SnapshotInfo{}, err
	}

	var buf bytes.Buffer
	if err := lvlfile.EncodeSnapshot(&buf, l.Snapshot()); err != nil {
		return SnapshotInfo{}, fmt.Errorf("кодирование уровня %s: %w", l.Name, err)
	}

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	if !bs.isReady {
		return SnapshotInfo{}, ErrNotReady
	}

	info = SnapshotInfo{
		ID:        uuid.NewString(),
		Level:     l.Name,
		CreatedAt: bs.now(),
		Size:      buf.Len(),
	}
	err = bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(info.key(), buf.Bytes())
	})
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return info, nil
}

// List возвращает версии уровня от старой к новой
func (bs *BackupStore) List(name string) ([]SnapshotInfo, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	if !bs.isReady {
		return nil, ErrNotReady
	}

	var infos []SnapshotInfo
	err := bs.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix(name)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if info, ok := parseKey(item.Key(), int(item.ValueSize())); ok {
				infos = append(infos, info)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	return infos, nil
}

// Latest загружает самую новую версию уровня
func (bs *BackupStore) Latest(ctx context.Context, name string) (l *level.Level, info SnapshotInfo, err error) {
	_, span := tracer.Start(ctx, "BackupStore.Latest", trace.WithAttributes(attribute.String("level", name)))
	defer func() { endSpan(span, err) }()

	infos, err := bs.List(name)
	if err != nil {
		return nil, SnapshotInfo{}, err
	}
	if len(infos) == 0 {
		return nil, SnapshotInfo{}, fmt.Errorf("%w: %s", ErrNoBackup, name)
	}
	info = infos[len(infos)-1]

	l, err = bs.load(info)
	if err != nil {
		return nil, SnapshotInfo{}, err
	}
	return l, info, nil
}

func (bs *BackupStore) load(info SnapshotInfo) (*level.Level, error) {
	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	if !bs.isReady {
		return nil, ErrNotReady
	}

	var data []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(info.key())
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoBackup, info.Level, info.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	l, err := lvlfile.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("резервная копия %s/%s: %w", info.Level, info.ID, err)
	}
	l.Name = info.Level
	return l, nil
}

// Prune оставляет keep самых новых версий и возвращает число удалённых
func (bs *BackupStore) Prune(name string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	infos, err := bs.List(name)
	if err != nil {
		return 0, err
	}
	if len(infos) <= keep {
		return 0, nil
	}
	stale := infos[:len(infos)-keep]

	bs.mutex.RLock()
	defer bs.mutex.RUnlock()
	if !bs.isReady {
		return 0, ErrNotReady
	}

	err = bs.db.Update(func(txn *badger.Txn) error {
		for _, info := range stale {
			if err := txn.Delete(info.key()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return len(stale), nil
}
