package cuboid

import "strings"

// Mode — способ заполнения области
type Mode int

const (
	Solid Mode = iota
	Hollow
	Walls
	Holes
	Wire
	Random
)

var modeNames = [...]string{"solid", "hollow", "walls", "holes", "wire", "random"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// ParseMode разбирает имя режима без учёта регистра
func ParseMode(s string) (Mode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames {
		if name == s {
			return Mode(i), true
		}
	}
	return Solid, false
}

// Modes возвращает имена всех режимов
func Modes() []string {
	return append([]string(nil), modeNames[:]...)
}
