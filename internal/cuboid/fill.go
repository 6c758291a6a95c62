package cuboid

import (
	"math/rand"
	"time"

	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/vec"
)

// BlockReader — то, что нужно для построения плана заполнения
type BlockReader interface {
	GetBlock(pos vec.Vec3S) byte
	Size() vec.Vec3S
}

// BlockWriter — уровень, к которому применяется план
type BlockWriter interface {
	BlockReader
	BlockChange(pos vec.Vec3S, id byte, originator level.Viewer) bool
}

// Plan перечисляет позиции, которые изменятся при заполнении области c1-c2 блоком id.
// Границы включительные по каждой оси, вырожденная область допустима.
// Обход: X внешний, затем Z, затем Y. Позиции вне уровня не перебираются,
// позиции, где уже стоит id, пропускаются. rng нужен только режиму Random (nil — свой генератор).
func Plan(l BlockReader, c1, c2 vec.Vec3S, id byte, mode Mode, rng *rand.Rand) []vec.Vec3S {
	lo, hi := vec.Min(c1, c2), vec.Max(c1, c2)
	if mode == Random && rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	// Обходим только пересечение области с уровнем; грани считаются по исходной области.
	size := l.Size()
	x0, x1 := max(int(lo.X), 0), min(int(hi.X), int(size.X)-1)
	z0, z1 := max(int(lo.Z), 0), min(int(hi.Z), int(size.Z)-1)
	y0, y1 := max(int(lo.Y), 0), min(int(hi.Y), int(size.Y)-1)
	if x0 > x1 || z0 > z1 || y0 > y1 {
		return nil
	}

	var out []vec.Vec3S
	if mode == Solid || mode == Random {
		out = make([]vec.Vec3S, 0, min((x1-x0+1)*(z1-z0+1)*(y1-y0+1), 1<<16))
	}

	for x := x0; x <= x1; x++ {
		onX := x == int(lo.X) || x == int(hi.X)
		for z := z0; z <= z1; z++ {
			onZ := z == int(lo.Z) || z == int(hi.Z)
			for y := y0; y <= y1; y++ {
				onY := y == int(lo.Y) || y == int(hi.Y)

				if !included(mode, x, z, y, onX, onZ, onY, rng) {
					continue
				}
				pos := vec.New(x, z, y)
				if l.GetBlock(pos) == id {
					continue
				}
				out = append(out, pos)
			}
		}
	}
	return out
}

func included(mode Mode, x, z, y int, onX, onZ, onY bool, rng *rand.Rand) bool {
	switch mode {
	case Solid:
		return true
	case Hollow:
		return onX || onZ || onY
	case Walls:
		return onX || onZ
	case Holes:
		// шахматный порядок в абсолютных координатах
		return ((x+z+y)%2+2)%2 == 0
	case Wire:
		n := 0
		for _, on := range [3]bool{onX, onZ, onY} {
			if on {
				n++
			}
		}
		return n >= 2
	case Random:
		return rng.Intn(2) == 0
	default:
		return false
	}
}

// Apply записывает id во все позиции через BlockChange и возвращает число изменённых
func Apply(l BlockWriter, positions []vec.Vec3S, id byte, originator level.Viewer) int {
	n := 0
	for _, pos := range positions {
		if l.BlockChange(pos, id, originator) {
			n++
		}
	}
	return n
}

// Fill строит план целиком и только потом применяет его
func Fill(l BlockWriter, c1, c2 vec.Vec3S, id byte, mode Mode, originator level.Viewer, rng *rand.Rand) int {
	return Apply(l, Plan(l, c1, c2, id, mode, rng), id, originator)
}
