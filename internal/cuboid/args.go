package cuboid

import (
	"errors"
	"strconv"

	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/vec"
)

var (
	// ErrInvalidCoordinate — координата не число или вне диапазона int16
	ErrInvalidCoordinate = errors.New("некорректная координата")
	// ErrInvalidBlockOrMode — токен не является ни блоком, ни режимом
	ErrInvalidBlockOrMode = errors.New("неизвестный блок или режим")
	// ErrArgumentCount — неподдерживаемое число аргументов
	ErrArgumentCount = errors.New("неверное число аргументов")
)

// ArgError — ошибка разбора с токеном, на котором она возникла
type ArgError struct {
	Kind  error
	Token string
}

func (e *ArgError) Error() string {
	if e.Token == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + strconv.Quote(e.Token)
}

func (e *ArgError) Unwrap() error { return e.Kind }

// Request — разобранные аргументы команды
type Request struct {
	// Corners задаются только явными координатами (6-8 аргументов)
	Corners  *[2]vec.Vec3S
	Block    byte
	BlockSet bool
	Mode     Mode
}

// ParseArgs разбирает аргументы команды:
//
//	[блок] [режим]                    — в любом порядке, оба необязательны
//	x1 z1 y1 x2 z2 y2 [блок] [режим]  — явные углы
func ParseArgs(args []string) (Request, error) {
	req := Request{Mode: Solid}

	switch len(args) {
	case 0:
		return req, nil
	case 1, 2:
		return req, parseExtras(&req, args)
	case 6, 7, 8:
		var coords [6]int
		for i := 0; i < 6; i++ {
			v, err := strconv.ParseInt(args[i], 10, 16)
			if err != nil {
				return req, &ArgError{Kind: ErrInvalidCoordinate, Token: args[i]}
			}
			coords[i] = int(v)
		}
		req.Corners = &[2]vec.Vec3S{
			vec.New(coords[0], coords[1], coords[2]),
			vec.New(coords[3], coords[4], coords[5]),
		}
		return req, parseExtras(&req, args[6:])
	default:
		return req, &ArgError{Kind: ErrArgumentCount}
	}
}

// parseExtras принимает блок и режим в любом порядке, каждый не более одного раза
func parseExtras(req *Request, tokens []string) error {
	modeSet := false
	for _, tok := range tokens {
		if m, ok := ParseMode(tok); ok && !modeSet {
			req.Mode = m
			modeSet = true
			continue
		}
		if id, ok := block.FromName(tok); ok && !req.BlockSet {
			req.Block = id
			req.BlockSet = true
			continue
		}
		return &ArgError{Kind: ErrInvalidBlockOrMode, Token: tok}
	}
	return nil
}

// looksNumeric сообщает, похож ли первый аргумент на координату
func looksNumeric(args []string) bool {
	if len(args) == 0 {
		return false
	}
	_, err := strconv.ParseInt(args[0], 10, 16)
	return err == nil
}
