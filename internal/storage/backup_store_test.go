package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) *BackupStore {
	t.Helper()
	bs, err := NewBackupStore("")
	require.NoError(t, err, "Не удалось создать хранилище")
	t.Cleanup(func() { bs.Close() })

	// монотонные часы, чтобы порядок версий не зависел от разрешения таймера
	base := time.Unix(1_700_000_000, 0)
	tick := 0
	bs.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return bs
}

func TestBackupPutAndLatest(t *testing.T) {
	ctx := context.Background()
	bs := setupTestStorage(t)

	l := testLevel(t, "main")
	first, err := bs.Put(ctx, l)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Positive(t, first.Size)

	l.SetBlock(vec.New(0, 0, 0), block.Obsidian)
	second, err := bs.Put(ctx, l)
	require.NoError(t, err)

	got, info, err := bs.Latest(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, second.ID, info.ID)
	assert.True(t, second.CreatedAt.Equal(info.CreatedAt))
	assert.Equal(t, "main", got.Name)
	assert.Equal(t, block.Obsidian, got.GetBlock(vec.New(0, 0, 0)))

	infos, err := bs.List("main")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, first.ID, infos[0].ID)
	assert.Equal(t, second.ID, infos[1].ID)
}

func TestBackupLevelsAreSeparate(t *testing.T) {
	ctx := context.Background()
	bs := setupTestStorage(t)

	_, err := bs.Put(ctx, testLevel(t, "main"))
	require.NoError(t, err)
	_, err = bs.Put(ctx, testLevel(t, "main2"))
	require.NoError(t, err)

	infos, err := bs.List("main")
	require.NoError(t, err)
	assert.Len(t, infos, 1)

	_, _, err = bs.Latest(ctx, "other")
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestBackupPrune(t *testing.T) {
	ctx := context.Background()
	bs := setupTestStorage(t)
	l := testLevel(t, "main")

	var last SnapshotInfo
	for i := 0; i < 5; i++ {
		info, err := bs.Put(ctx, l)
		require.NoError(t, err)
		last = info
	}

	removed, err := bs.Prune("main", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	infos, err := bs.List("main")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, last.ID, infos[1].ID)

	removed, err = bs.Prune("main", 2)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestBackupClosed(t *testing.T) {
	bs := setupTestStorage(t)
	require.NoError(t, bs.Close())
	require.NoError(t, bs.Close())

	_, err := bs.Put(context.Background(), testLevel(t, "main"))
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestChainStoreRestoresFromBackup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)

	chain := &ChainStore{Files: fs, Backups: setupTestStorage(t), BackupOnSave: true, Keep: 2}

	l := testLevel(t, "main")
	for i := 0; i < 3; i++ {
		require.NoError(t, chain.Save(ctx, l))
	}
	infos, err := chain.Backups.List("main")
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	// портим файл: загрузка должна взять последнюю копию
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.lvl"), []byte{1, 2, 3}, 0o644))
	got, err := chain.Load(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, block.Glass, got.GetBlock(vec.New(7, 3, 5)))

	_, err = chain.Load(ctx, "absent")
	assert.ErrorIs(t, err, ErrLevelNotFound)
}
