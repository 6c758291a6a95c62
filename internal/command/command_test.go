package command

import (
	"testing"

	"github.com/annel0/levelforge/internal/player"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoCommand struct {
	name    string
	aliases []string
	got     [][]string
}

func (c *echoCommand) Name() string      { return c.name }
func (c *echoCommand) Aliases() []string { return c.aliases }
func (c *echoCommand) Use(sess player.Session, args []string) {
	c.got = append(c.got, args)
	sess.SendMessage("ok")
}
func (c *echoCommand) Help(sess player.Session) { sess.SendMessage("/" + c.name) }

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry()
	cmd := &echoCommand{name: "cuboid", aliases: []string{"z"}}
	require.NoError(t, r.Register(cmd))

	sess := player.NewMockSession("1", "builder", nil)

	assert.True(t, r.Execute(sess, "/Z stone  walls"))
	assert.True(t, r.Execute(sess, "cuboid"))
	assert.Equal(t, [][]string{{"stone", "walls"}, {}}, cmd.got)

	assert.False(t, r.Execute(sess, "/fly"))
	assert.Equal(t, `Unknown command "fly"!`, sess.LastMessage())
	assert.False(t, r.Execute(sess, "   "))
}

func TestRegistryDuplicatesAndUnregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&echoCommand{name: "cuboid", aliases: []string{"z"}}))
	assert.ErrorIs(t, r.Register(&echoCommand{name: "zap", aliases: []string{"Z"}}), ErrDuplicate)
	require.NoError(t, r.Register(&echoCommand{name: "help"}))

	assert.Equal(t, []string{"cuboid", "help"}, r.Names())

	assert.True(t, r.Unregister("z"))
	_, ok := r.Find("cuboid")
	assert.False(t, ok)
	assert.False(t, r.Unregister("cuboid"))
}
