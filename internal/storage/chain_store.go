package storage

import (
	"context"
	"errors"

	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/logging"
)

// ChainStore — файлы уровней плюс резервные копии.
// Если файл не читается, уровень восстанавливается из последней копии.
type ChainStore struct {
	Files   *FileStore
	Backups *BackupStore // может быть nil
	// BackupOnSave — делать копию при каждом сохранении
	BackupOnSave bool
	// Keep — сколько копий хранить на уровень (0 — без ограничения)
	Keep int
}

// Load читает файл уровня, при ошибке пробует резервную копию
func (c *ChainStore) Load(ctx context.Context, name string) (*level.Level, error) {
	l, err := c.Files.Load(ctx, name)
	if err == nil || c.Backups == nil || errors.Is(err, ErrInvalidName) {
		return l, err
	}

	restored, info, berr := c.Backups.Latest(ctx, name)
	if berr != nil {
		if !errors.Is(berr, ErrNoBackup) {
			logging.Warn("Резервная копия уровня %s недоступна: %v", name, berr)
		}
		return nil, err
	}

	logging.Warn("Уровень %s восстановлен из копии %s от %s: %v", name, info.ID, info.CreatedAt.Format("2006-01-02 15:04:05"), err)
	return restored, nil
}

// Save записывает файл и, если включено, резервную копию.
// Ошибка копии не отменяет сохранение файла.
func (c *ChainStore) Save(ctx context.Context, l *level.Level) error {
	if err := c.Files.Save(ctx, l); err != nil {
		return err
	}
	if !c.BackupOnSave || c.Backups == nil {
		return nil
	}

	if _, err := c.Backups.Put(ctx, l); err != nil {
		logging.Warn("Не удалось сделать копию уровня %s: %v", l.Name, err)
		return nil
	}
	if c.Keep > 0 {
		if _, err := c.Backups.Prune(l.Name, c.Keep); err != nil {
			logging.Warn("Не удалось удалить старые копии уровня %s: %v", l.Name, err)
		}
	}
	return nil
}
