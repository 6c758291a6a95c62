package level

import (
	"fmt"
	"strings"

	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/util"
	"github.com/annel0/levelforge/internal/vec"
)

// Type — тип генерируемого уровня
type Type int

const (
	// Flat — трава на половине высоты, ниже земля
	Flat Type = iota
	// Pixel — белые стены по периметру и чёрный пол, для пиксель-арта
	Pixel
	// Hell — рельеф на шуме Перлина: камень, гравий, лава и обсидиан
	Hell
)

// Константы генерации адского рельефа
const (
	hellNoiseScale = 0.04
	hellLavaLevel  = 0.25 // доля высоты, ниже которой пустоты заливаются лавой
	hellMinHeight  = 0.20
	hellMaxHeight  = 0.75
)

// String возвращает имя типа
func (t Type) String() string {
	switch t {
	case Flat:
		return "flat"
	case Pixel:
		return "pixel"
	case Hell:
		return "hell"
	default:
		return "unknown"
	}
}

// ParseType разбирает имя типа без учёта регистра
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat", "":
		return Flat, nil
	case "pixel":
		return Pixel, nil
	case "hell":
		return Hell, nil
	default:
		return Flat, fmt.Errorf("неизвестный тип уровня %q", s)
	}
}

// GenerateSpec описывает уровень, который создаётся при отсутствии сохранения
type GenerateSpec struct {
	Size vec.Vec3S
	Type Type
	Seed int64
}

// Generate создаёт новый уровень указанного типа
func Generate(name string, size vec.Vec3S, t Type, seed int64) (*Level, error) {
	l, err := New(name, size)
	if err != nil {
		return nil, err
	}

	switch t {
	case Flat:
		generateFlat(l)
	case Pixel:
		generatePixel(l)
	case Hell:
		generateHell(l, util.NewNoise(seed))
	default:
		return nil, fmt.Errorf("неизвестный тип уровня %d", t)
	}

	l.spawnPos = spawnAbove(l)
	l.spawnRot = [2]byte{0, 0}
	return l, nil
}

func generateFlat(l *Level) {
	middle := l.size.Y / 2
	for y := middle - 1; y > 0; y-- {
		fillPlaneXZ(l, y, block.Dirt)
	}
	fillPlaneXZ(l, middle, block.Grass)
	// Красный столб в углу — ориентир для игроков
	for y := int16(0); y < l.size.Y; y++ {
		l.SetBlock(vec.Vec3S{X: 0, Z: 0, Y: y}, block.RedCloth)
	}
}

func generatePixel(l *Level) {
	for pos := range l.Positions() {
		if pos.X == 0 || pos.X == l.size.X-1 || pos.Z == 0 || pos.Z == l.size.Z-1 {
			l.SetBlock(pos, block.WhiteCloth)
		}
		if pos.Y == 0 {
			l.SetBlock(pos, block.BlackCloth)
		}
	}
}

func generateHell(l *Level, noise *util.Noise) {
	height := float64(l.size.Y)
	lava := int16(height * hellLavaLevel)

	for x := int16(0); x < l.size.X; x++ {
		for z := int16(0); z < l.size.Z; z++ {
			n := noise.Noise2D(float64(x)*hellNoiseScale, float64(z)*hellNoiseScale)
			top := int16(height * (hellMinHeight + n*(hellMaxHeight-hellMinHeight)))

			for y := int16(0); y < l.size.Y; y++ {
				pos := vec.Vec3S{X: x, Z: z, Y: y}
				switch {
				case y == 0:
					l.SetBlock(pos, block.Adminium)
				case y < top-2:
					l.SetBlock(pos, block.Stone)
				case y < top:
					l.SetBlock(pos, block.Gravel)
				case y == top:
					l.SetBlock(pos, block.Obsidian)
				case y <= lava:
					l.SetBlock(pos, block.StillLava)
				}
			}
		}
	}
}

func fillPlaneXZ(l *Level, y int16, id byte) {
	for x := int16(0); x < l.size.X; x++ {
		for z := int16(0); z < l.size.Z; z++ {
			l.SetBlock(vec.Vec3S{X: x, Z: z, Y: y}, id)
		}
	}
}

// spawnAbove ищет в центре уровня первую свободную ячейку над поверхностью.
// Если столб заполнен до верха, точка появления остаётся на высоте уровня.
func spawnAbove(l *Level) vec.Vec3S {
	x, z := l.size.X/2, l.size.Z/2
	for y := l.size.Y - 1; y >= 0; y-- {
		if l.GetBlock(vec.Vec3S{X: x, Z: z, Y: y}) != block.Air {
			if y+1 < l.size.Y {
				return vec.Vec3S{X: x, Z: z, Y: y + 1}
			}
			break
		}
	}
	return vec.Vec3S{X: x, Z: z, Y: l.size.Y}
}
