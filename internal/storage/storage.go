// Package storage хранит уровни на диске (.lvl файлы) и их резервные копии в BadgerDB.
package storage

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/annel0/levelforge/internal/level"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrLevelNotFound — файла уровня нет
	ErrLevelNotFound = errors.New("уровень не найден")
	// ErrInvalidName — имя уровня нельзя использовать как имя файла или ключа
	ErrInvalidName = errors.New("недопустимое имя уровня")
	// ErrNoBackup — для уровня нет ни одной резервной копии
	ErrNoBackup = errors.New("резервные копии отсутствуют")
	// ErrNotReady — хранилище закрыто
	ErrNotReady = errors.New("хранилище не готово")
)

// Ext — расширение файлов уровней
const Ext = ".lvl"

var validName = regexp.MustCompile(`^[A-Za-z0-9_+\-][A-Za-z0-9_.+\-]{0,63}$`)

var tracer = otel.Tracer("github.com/annel0/levelforge/internal/storage")

var (
	_ level.Store = (*FileStore)(nil)
	_ level.Store = (*ChainStore)(nil)
)

// ValidateName проверяет, что имя уровня безопасно для файловой системы
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// endSpan фиксирует ошибку в span и закрывает его
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
