package block

// legacyTable переводит собственные блоки старого формата уровней
// в видимые классические блоки. ID 0-49 совпадают и переносятся как есть.
var legacyTable = map[byte]byte{
	// op_* блоки
	100: Glass,
	101: Obsidian,
	102: Brick,
	103: Stone,
	104: Cobblestone,
	105: Air,
	106: Water,
	107: Lava,

	// плавающее дерево и быстрые жидкости
	110: Wood,
	112: Lava,

	// двери
	111: Log,
	113: Obsidian,
	114: Glass,
	115: Stone,
	116: Leaves,
	117: Sand,
	118: Wood,
	119: GreenCloth,
	120: TNT,
	121: Stair,

	// активные жидкости и волны
	140: Water,
	141: Lava,
	142: Water,
	143: Lava,
	145: Water,
	146: Lava,

	// пористые блоки и гейзеры
	190: Sponge,
	191: Water,
	192: Lava,
}

// LegacyToCurrent переводит ID блока из старого формата.
// Возвращает false, если у блока нет классического эквивалента.
func LegacyToCurrent(old byte) (byte, bool) {
	if Valid(old) {
		return old, true
	}
	id, ok := legacyTable[old]
	return id, ok
}
