package cuboid

import (
	"errors"
	"fmt"

	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/player"
)

// Command — команда /cuboid (псевдоним /z)
type Command struct {
	capturer *Capturer
}

// NewCommand создаёт команду поверх захватчика
func NewCommand(c *Capturer) *Command {
	return &Command{capturer: c}
}

func (c *Command) Name() string      { return "cuboid" }
func (c *Command) Aliases() []string { return []string{"z"} }

// Use выполняет команду. Любой вызов отменяет незавершённый захват игрока.
func (c *Command) Use(sess player.Session, args []string) {
	c.capturer.Abort(sess)

	req, err := ParseArgs(args)
	if err != nil {
		c.reportError(sess, args, err)
		return
	}

	if req.Corners != nil {
		id := block.Stone
		if req.BlockSet {
			id = req.Block
		}
		c.capturer.ApplyLiteral(sess, req.Corners[0], req.Corners[1], req.Mode, id)
		return
	}

	sess.SendMessage("Place two blocks to determine the corners.")
	c.capturer.BeginCapture(sess, req.Mode, req.Block, req.BlockSet)
}

func (c *Command) reportError(sess player.Session, args []string, err error) {
	var argErr *ArgError
	errors.As(err, &argErr)

	switch {
	case errors.Is(err, ErrInvalidCoordinate):
		sess.SendMessage(fmt.Sprintf("Invalid coordinate \"%s\"!", argErr.Token))
	case errors.Is(err, ErrInvalidBlockOrMode):
		sess.SendMessage("Invalid block or type!")
	case errors.Is(err, ErrArgumentCount):
		if looksNumeric(args) {
			sess.SendMessage("You need 6 coordinates for cuboid to work like that!")
			return
		}
		sess.SendMessage("Invalid arguments!")
		c.Help(sess)
	default:
		sess.SendMessage(err.Error())
	}
}

// Help выводит справку по команде
func (c *Command) Help(sess player.Session) {
	sess.SendMessage("/cuboid [block] [type] - Creates a cuboid of blocks.")
	sess.SendMessage("/cuboid x1 z1 y1 x2 z2 y2 [block] [type] - Creates a cuboid at the specified coordinates.")
	sess.SendMessage("Available types: <solid/hollow/walls/holes/wire/random>")
	sess.SendMessage("Note that [block] and [type] are optional and can be in any order.")
}
