package plugin

import (
	"errors"
	"testing"

	"github.com/annel0/levelforge/internal/command"
	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlugin struct {
	name      string
	initErr   error
	unloadErr error
	host      *Host
	unloaded  bool
}

func (p *fakePlugin) Name() string { return p.name }

func (p *fakePlugin) Initialize(host *Host) error {
	if p.initErr != nil {
		return p.initErr
	}
	p.host = host
	return nil
}

func (p *fakePlugin) Unload() error {
	p.unloaded = true
	return p.unloadErr
}

func newHost() *Host {
	return &Host{
		Levels:       level.NewRegistry(nil),
		Commands:     command.NewRegistry(),
		BlockChanges: player.NewBlockChangeHandler(),
	}
}

func TestManagerLifecycle(t *testing.T) {
	host := newHost()
	m := NewManager(host)

	p := &fakePlugin{name: "Building"}
	require.NoError(t, m.Load(p))
	assert.Same(t, host, p.host)
	assert.ErrorIs(t, m.Load(&fakePlugin{name: "building"}), ErrAlreadyLoaded)

	assert.Equal(t, []string{"Building"}, m.Names())

	require.NoError(t, m.Unload("BUILDING"))
	assert.True(t, p.unloaded)
	assert.ErrorIs(t, m.Unload("building"), ErrNotLoaded)
}

func TestManagerInitFailure(t *testing.T) {
	m := NewManager(newHost())
	boom := errors.New("boom")

	err := m.Load(&fakePlugin{name: "broken", initErr: boom})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, m.Names())
}

func TestUnloadAllJoinsErrors(t *testing.T) {
	m := NewManager(newHost())
	boom := errors.New("boom")
	ok := &fakePlugin{name: "a"}
	bad := &fakePlugin{name: "b", unloadErr: boom}
	require.NoError(t, m.Load(ok))
	require.NoError(t, m.Load(bad))

	err := m.UnloadAll()
	assert.ErrorIs(t, err, boom)
	assert.True(t, ok.unloaded)
	assert.True(t, bad.unloaded)
	assert.Empty(t, m.Names())
}
