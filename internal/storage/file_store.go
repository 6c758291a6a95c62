package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/logging"
	"github.com/annel0/levelforge/internal/lvlfile"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FileStore хранит каждый уровень в файле <Dir>/<name>.lvl
type FileStore struct {
	Dir string
}

// NewFileStore создаёт каталог, если его нет
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("создание каталога уровней %s: %w", dir, err)
	}
	return &FileStore{Dir: dir}, nil
}

// Path возвращает путь к файлу уровня
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.Dir, name+Ext)
}

// Load читает и разбирает файл уровня. Поддерживаются оба формата .lvl.
func (s *FileStore) Load(ctx context.Context, name string) (l *level.Level, err error) {
	_, span := tracer.Start(ctx, "FileStore.Load", trace.WithAttributes(attribute.String("level", name)))
	defer func() { endSpan(span, err) }()

	if err := ValidateName(name); err != nil {
		return nil, err
	}

	path := s.Path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrLevelNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("чтение %s: %w", path, err)
	}

	l, report, err := lvlfile.DecodeWithReport(data)
	if err != nil {
		logging.LogCodecError(path, err, data)
		return nil, fmt.Errorf("разбор %s: %w", path, err)
	}
	l.Name = name

	span.SetAttributes(
		attribute.String("format", report.Format.String()),
		attribute.Int("bytes", len(data)),
	)
	logging.Debug("Уровень %s загружен из %s (%s, %d байт)", name, path, report.Format, len(data))
	return l, nil
}

// Save записывает уровень во временный файл и переименовывает его поверх основного.
// Основной файл либо остаётся прежним, либо содержит новый уровень целиком.
func (s *FileStore) Save(ctx context.Context, l *level.Level) (err error) {
	_, span := tracer.Start(ctx, "FileStore.Save", trace.WithAttributes(attribute.String("level", l.Name)))
	defer func() { endSpan(span, err) }()

	if err := ValidateName(l.Name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.Dir, l.Name+Ext+".tmp-*")
	if err != nil {
		return fmt.Errorf("создание временного файла: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err := lvlfile.Encode(tmp, l); err != nil {
		return fmt.Errorf("кодирование уровня %s: %w", l.Name, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("закрытие %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.Path(l.Name)); err != nil {
		return fmt.Errorf("переименование %s: %w", tmpPath, err)
	}
	committed = true

	logging.Debug("Уровень %s сохранён в %s", l.Name, s.Path(l.Name))
	return nil
}

// List возвращает имена уровней в каталоге по алфавиту
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("чтение каталога %s: %w", s.Dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(e.Name(), Ext)
		if !ok || ValidateName(name) != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Exists сообщает, есть ли файл уровня
func (s *FileStore) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	info, err := os.Stat(s.Path(name))
	return err == nil && !info.IsDir()
}

// Delete удаляет файл уровня
func (s *FileStore) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	err := os.Remove(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrLevelNotFound, name)
	}
	return err
}
