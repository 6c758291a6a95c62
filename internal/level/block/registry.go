package block

import "strings"

// Идентификаторы классических блоков (один байт на ячейку уровня)
const (
	Air byte = iota
	Stone
	Grass
	Dirt
	Cobblestone
	Wood
	Sapling
	Adminium
	Water
	StillWater
	Lava
	StillLava
	Sand
	Gravel
	GoldOre
	IronOre
	CoalOre
	Log
	Leaves
	Sponge
	Glass
	RedCloth
	OrangeCloth
	YellowCloth
	LimeCloth
	GreenCloth
	AquaCloth
	CyanCloth
	BlueCloth
	PurpleCloth
	IndigoCloth
	VioletCloth
	MagentaCloth
	PinkCloth
	BlackCloth
	GrayCloth
	WhiteCloth
	YellowFlower
	RedFlower
	BrownMushroom
	RedMushroom
	GoldBlock
	IronBlock
	DoubleStair
	Stair
	Brick
	TNT
	Bookcase
	MossyCobblestone
	Obsidian

	// Unknown возвращается при чтении за пределами уровня
	Unknown byte = 255
)

var names = [...]string{
	"air", "stone", "grass", "dirt", "cobblestone", "wood", "sapling", "adminium",
	"water", "still_water", "lava", "still_lava", "sand", "gravel", "gold_ore",
	"iron_ore", "coal_ore", "log", "leaves", "sponge", "glass", "red_cloth",
	"orange_cloth", "yellow_cloth", "lime_cloth", "green_cloth", "aqua_cloth",
	"cyan_cloth", "blue_cloth", "purple_cloth", "indigo_cloth", "violet_cloth",
	"magenta_cloth", "pink_cloth", "black_cloth", "gray_cloth", "white_cloth",
	"yellow_flower", "red_flower", "brown_mushroom", "red_mushroom", "gold_block",
	"iron_block", "double_stair", "stair", "brick", "tnt", "bookcase",
	"mossy_cobblestone", "obsidian",
}

// aliases — альтернативные имена, которые принимают команды
var aliases = map[string]byte{
	"bedrock":    Adminium,
	"tree":       Log,
	"trunk":      Log,
	"rock":       Stone,
	"cobble":     Cobblestone,
	"plank":      Wood,
	"planks":     Wood,
	"rose":       RedFlower,
	"flower":     YellowFlower,
	"slab":       Stair,
	"bookshelf":  Bookcase,
	"mossy":      MossyCobblestone,
	"white":      WhiteCloth,
	"black":      BlackCloth,
	"red":        RedCloth,
	"gold":       GoldBlock,
	"iron":       IronBlock,
	"lightgreen": LimeCloth,
}

var byName = func() map[string]byte {
	m := make(map[string]byte, len(names)+len(aliases))
	for id, name := range names {
		m[name] = byte(id)
	}
	for name, id := range aliases {
		m[name] = id
	}
	return m
}()

// Count — количество известных блоков
const Count = len(names)

// Valid проверяет, является ли ID известным блоком
func Valid(id byte) bool {
	return int(id) < Count
}

// Name возвращает имя блока или "unknown"
func Name(id byte) string {
	if !Valid(id) {
		return "unknown"
	}
	return names[id]
}

// FromName ищет блок по имени без учёта регистра
func FromName(name string) (byte, bool) {
	id, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// ValidName проверяет, известно ли имя блока
func ValidName(name string) bool {
	_, ok := FromName(name)
	return ok
}
