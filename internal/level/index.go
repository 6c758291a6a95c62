package level

import "github.com/annel0/levelforge/internal/vec"

// PosToIndex переводит позицию в индекс плоского массива блоков.
// Порядок хранения XZY: index = x + z*X + y*X*Z.
// Возвращает false, если хотя бы одна ось вне [0, размер).
func PosToIndex(pos, size vec.Vec3S) (int, bool) {
	if pos.X < 0 || pos.X >= size.X {
		return -1, false
	}
	if pos.Z < 0 || pos.Z >= size.Z {
		return -1, false
	}
	if pos.Y < 0 || pos.Y >= size.Y {
		return -1, false
	}
	sx, sz := int(size.X), int(size.Z)
	return int(pos.X) + int(pos.Z)*sx + int(pos.Y)*sx*sz, true
}

// IndexToPos — обратное преобразование для корректных индексов
func IndexToPos(index int, size vec.Vec3S) vec.Vec3S {
	sx, sz := int(size.X), int(size.Z)
	y := index / (sx * sz)
	index -= y * sx * sz
	z := index / sx
	index -= z * sx
	return vec.Vec3S{X: int16(index), Z: int16(z), Y: int16(y)}
}
