package vec

import "fmt"

// Vec3S представляет позицию блока в уровне.
// Порядок осей как у клиента: X — ширина, Z — глубина, Y — высота.
type Vec3S struct {
	X int16
	Z int16
	Y int16
}

// New создаёт позицию из int-координат (значения обрезаются до int16)
func New(x, z, y int) Vec3S {
	return Vec3S{X: int16(x), Z: int16(z), Y: int16(y)}
}

// Volume возвращает X*Z*Y как int (для размеров уровня)
func (v Vec3S) Volume() int {
	return int(v.X) * int(v.Z) * int(v.Y)
}

// String возвращает позицию в формате (x,z,y)
func (v Vec3S) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Z, v.Y)
}

// Min возвращает покомпонентный минимум
func Min(a, b Vec3S) Vec3S {
	return Vec3S{X: min(a.X, b.X), Z: min(a.Z, b.Z), Y: min(a.Y, b.Y)}
}

// Max возвращает покомпонентный максимум
func Max(a, b Vec3S) Vec3S {
	return Vec3S{X: max(a.X, b.X), Z: max(a.Z, b.Z), Y: max(a.Y, b.Y)}
}
