package cuboid

import (
	"math/rand"

	"github.com/annel0/levelforge/internal/player"
	"github.com/annel0/levelforge/internal/plugin"
)

// BuildingPlugin подключает команду /cuboid к серверу
type BuildingPlugin struct {
	rng      *rand.Rand
	host     *plugin.Host
	capturer *Capturer
	command  *Command
}

// NewBuildingPlugin создаёт плагин. rng может быть nil.
func NewBuildingPlugin(rng *rand.Rand) *BuildingPlugin {
	return &BuildingPlugin{rng: rng}
}

func (p *BuildingPlugin) Name() string { return "Building" }

// Initialize регистрирует команду и отмену захвата при отключении игрока
func (p *BuildingPlugin) Initialize(host *plugin.Host) error {
	p.host = host
	p.capturer = NewCapturer(host.BlockChanges.Bus(), p.rng)
	p.command = NewCommand(p.capturer)

	if err := host.Commands.Register(p.command); err != nil {
		return err
	}
	host.BlockChanges.OnDisconnect(func(sess player.Session) {
		p.capturer.Abort(sess)
	})
	return nil
}

// Unload снимает команду и все незавершённые захваты
func (p *BuildingPlugin) Unload() error {
	if p.host == nil {
		return nil
	}
	p.host.Commands.Unregister(p.command.Name())
	p.capturer.AbortAll()
	return nil
}

// Capturer возвращает захватчик плагина (nil до Initialize)
func (p *BuildingPlugin) Capturer() *Capturer {
	return p.capturer
}
