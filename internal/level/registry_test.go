package level

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/vec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	levels  map[string]Snapshot
	saves   int
	failFor string
}

func newMemStore() *memStore {
	return &memStore{levels: make(map[string]Snapshot)}
}

func (s *memStore) Load(_ context.Context, name string) (*Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.levels[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return FromData(snap.Name, snap.Size, append([]byte(nil), snap.Blocks...))
}

func (s *memStore) Save(_ context.Context, l *Level) error {
	if l.Name == s.failFor {
		return errors.New("disk full")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[l.Name] = l.Snapshot()
	s.saves++
	return nil
}

var smallFlat = GenerateSpec{Size: vec.Vec3S{X: 4, Z: 4, Y: 4}, Type: Flat}

func TestRegistryFindIsCaseInsensitive(t *testing.T) {
	r := NewRegistry(nil)
	l, err := New("Main", vec.Vec3S{X: 2, Z: 2, Y: 2})
	require.NoError(t, err)
	require.NoError(t, r.Add(l))

	found, ok := r.Find("main")
	require.True(t, ok)
	assert.Same(t, l, found)

	dup, _ := New("MAIN", vec.Vec3S{X: 2, Z: 2, Y: 2})
	assert.ErrorIs(t, r.Add(dup), ErrLevelExists)

	assert.True(t, r.Remove("mAiN"))
	assert.False(t, r.Remove("main"))
}

func TestRegistryAllSorted(t *testing.T) {
	r := NewRegistry(nil)
	for _, name := range []string{"zeta", "Alpha", "beta"} {
		l, err := New(name, vec.Vec3S{X: 1, Z: 1, Y: 1})
		require.NoError(t, err)
		require.NoError(t, r.Add(l))
	}
	assert.Equal(t, []string{"Alpha", "beta", "zeta"}, r.Names())
}

func TestLoadOrCreateFallsBackToGenerator(t *testing.T) {
	store := newMemStore()
	r := NewRegistry(store)

	l, err := r.LoadOrCreate(context.Background(), "main", smallFlat)
	require.NoError(t, err)
	assert.Equal(t, block.Grass, l.GetBlock(vec.Vec3S{X: 1, Z: 1, Y: 2}))

	again, err := r.LoadOrCreate(context.Background(), "main", smallFlat)
	require.NoError(t, err)
	assert.Same(t, l, again)
}

func TestLoadOrCreateUsesStore(t *testing.T) {
	store := newMemStore()
	saved, err := New("main", vec.Vec3S{X: 4, Z: 4, Y: 4})
	require.NoError(t, err)
	saved.SetBlock(vec.Vec3S{X: 1, Z: 2, Y: 3}, block.GoldBlock)
	require.NoError(t, store.Save(context.Background(), saved))

	r := NewRegistry(store)
	l, err := r.LoadOrCreate(context.Background(), "main", smallFlat)
	require.NoError(t, err)
	assert.Equal(t, block.GoldBlock, l.GetBlock(vec.Vec3S{X: 1, Z: 2, Y: 3}))
}

func TestSaveAllSavesOnlyDirtyLevels(t *testing.T) {
	store := newMemStore()
	store.failFor = "broken"
	r := NewRegistry(store)

	for _, name := range []string{"clean", "dirty", "broken"} {
		_, err := r.LoadOrCreate(context.Background(), name, smallFlat)
		require.NoError(t, err)
	}
	dirty, _ := r.Find("dirty")
	broken, _ := r.Find("broken")
	dirty.BlockChange(vec.Vec3S{X: 0, Z: 1, Y: 3}, block.Stone, nil)
	broken.BlockChange(vec.Vec3S{X: 0, Z: 1, Y: 3}, block.Stone, nil)

	err := r.SaveAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, 1, store.saves)

	assert.False(t, dirty.Dirty())
	assert.True(t, broken.Dirty())
}

func TestRunAutosaveStopsOnCancel(t *testing.T) {
	store := newMemStore()
	r := NewRegistry(store)
	l, err := r.LoadOrCreate(context.Background(), "main", smallFlat)
	require.NoError(t, err)
	l.BlockChange(vec.Vec3S{X: 0, Z: 1, Y: 3}, block.Stone, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.RunAutosave(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return !l.Dirty() }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("автосохранение не остановилось")
	}
}

func TestRegistryMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := NewRegistry(newMemStore()).WithMetrics(m)

	l, err := r.LoadOrCreate(context.Background(), "main", smallFlat)
	require.NoError(t, err)

	l.BlockChange(vec.Vec3S{X: 0, Z: 1, Y: 3}, block.Stone, nil)
	l.BlockChange(vec.Vec3S{X: 0, Z: 1, Y: 3}, block.Stone, nil)
	l.BlockChange(vec.Vec3S{X: 1, Z: 1, Y: 3}, block.Stone, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.blockChanges.WithLabelValues("main")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loaded))

	require.NoError(t, r.SaveAll(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saves.WithLabelValues("ok")))
}
