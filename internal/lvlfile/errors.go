package lvlfile

import "errors"

var (
	// ErrUnrecognizedFormat — данные не являются уровнем ни в одном из поддерживаемых форматов
	ErrUnrecognizedFormat = errors.New("нераспознанный формат уровня")
	// ErrTruncated — файл оборван: нет маркера EOF или не хватает данных
	ErrTruncated = errors.New("файл уровня обрезан")
	// ErrLegacyBlockUnmapped — в старом формате встретились блоки без соответствия.
	// Не фатальна: такие ячейки остаются воздухом.
	ErrLegacyBlockUnmapped = errors.New("неизвестные блоки старого формата")
)
