// Package lvlfile читает и пишет файлы уровней .lvl.
//
// Текущий формат: магическое число (int64 LE), строки размера, точки появления
// и поворота, метаданные, сжатый gzip массив блоков и маркер "EOF".
// Старый формат целиком сжат gzip и начинается с тега 1874; его блоки
// переводятся в классические через block.LegacyToCurrent.
package lvlfile

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/logging"
	"github.com/annel0/levelforge/internal/vec"
	"github.com/klauspost/compress/gzip"
)

const (
	// Magic открывает файл текущего формата
	Magic int64 = 0x6567726f66636d
	// LegacyTag — первые два байта распакованного файла старого формата
	LegacyTag uint16 = 1874
	// MaxBlocks — верхняя граница объёма уровня при чтении
	MaxBlocks = 1 << 30

	legacyHeaderLen = 16
	eofMarker       = "EOF"
)

// Format — формат файла уровня
type Format int

const (
	FormatCurrent Format = iota
	FormatLegacy
)

func (f Format) String() string {
	if f == FormatLegacy {
		return "legacy"
	}
	return "current"
}

// Header — заголовок файла без массива блоков
type Header struct {
	Format     Format
	Size       vec.Vec3S
	SpawnPos   vec.Vec3S
	SpawnRot   [2]byte
	Metadata   map[string]string
	BlockCount int
}

// Report — сведения о разборе, которые не являются ошибками
type Report struct {
	Format   Format
	Unmapped int // ячейки старого формата без соответствия (остались воздухом)
}

// Decode читает уровень из r. Имя уровня в файле не хранится, его задаёт вызывающий.
func Decode(r io.Reader) (*level.Level, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("чтение уровня: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes разбирает уровень из памяти
func DecodeBytes(data []byte) (*level.Level, error) {
	l, _, err := DecodeWithReport(data)
	return l, err
}

// DecodeWithReport разбирает уровень и возвращает сведения о формате.
// Неизвестные блоки старого формата логируются как предупреждение.
func DecodeWithReport(data []byte) (*level.Level, Report, error) {
	if isCurrent(data) {
		l, err := decodeCurrent(data)
		return l, Report{Format: FormatCurrent}, err
	}

	l, unmapped, err := decodeLegacy(data)
	report := Report{Format: FormatLegacy, Unmapped: unmapped}
	if err != nil {
		return nil, report, err
	}
	if unmapped > 0 {
		logging.Warn("%v", fmt.Errorf("%w: %d ячеек заменены воздухом", ErrLegacyBlockUnmapped, unmapped))
	}
	return l, report, nil
}

// Info читает только заголовок файла
func Info(r io.Reader) (Header, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Header{}, fmt.Errorf("чтение уровня: %w", err)
	}
	if isCurrent(data) {
		rd := &reader{buf: data, off: 8}
		return readCurrentHeader(rd)
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	defer zr.Close()
	return readLegacyHeader(zr)
}

func isCurrent(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	rd := &reader{buf: data}
	v, err := rd.int64()
	return err == nil && v == Magic
}

func decodeCurrent(data []byte) (*level.Level, error) {
	rd := &reader{buf: data, off: 8}
	h, err := readCurrentHeader(rd)
	if err != nil {
		return nil, err
	}

	compressedLen, err := rd.int32()
	if err != nil {
		return nil, err
	}
	if compressedLen < 0 {
		return nil, fmt.Errorf("%w: отрицательная длина данных %d", ErrUnrecognizedFormat, compressedLen)
	}
	compressed, err := rd.take(int(compressedLen))
	if err != nil {
		return nil, err
	}
	blocks, err := decompress(compressed, h.BlockCount)
	if err != nil {
		return nil, err
	}

	marker, err := rd.string()
	if err != nil || marker != eofMarker {
		return nil, fmt.Errorf("%w: нет маркера EOF", ErrTruncated)
	}

	return build(h, blocks)
}

func readCurrentHeader(rd *reader) (Header, error) {
	h := Header{Format: FormatCurrent}

	s, err := rd.string()
	if err != nil {
		return h, err
	}
	x, y, z, err := parseTriple(s, "@")
	if err != nil {
		return h, err
	}
	if h.Size, err = checkSize(x, z, y); err != nil {
		return h, err
	}

	if s, err = rd.string(); err != nil {
		return h, err
	}
	x, y, z, err = parseTriple(s, "!")
	if err != nil {
		return h, err
	}
	if h.SpawnPos, err = checkSpawn(x, z, y); err != nil {
		return h, err
	}

	if s, err = rd.string(); err != nil {
		return h, err
	}
	if h.SpawnRot, err = parseRotation(s); err != nil {
		return h, err
	}

	count, err := rd.int32()
	if err != nil {
		return h, err
	}
	if count < 0 {
		return h, fmt.Errorf("%w: отрицательное число метаданных %d", ErrUnrecognizedFormat, count)
	}
	h.Metadata = make(map[string]string, min(int(count), 64))
	for i := int32(0); i < count; i++ {
		key, err := rd.string()
		if err != nil {
			return h, err
		}
		value, err := rd.string()
		if err != nil {
			return h, err
		}
		h.Metadata[key] = value
	}

	total, err := rd.int32()
	if err != nil {
		return h, err
	}
	if int(total) != h.Size.Volume() {
		return h, fmt.Errorf("%w: число блоков %d не совпадает с размером %v", ErrUnrecognizedFormat, total, h.Size)
	}
	h.BlockCount = int(total)
	return h, nil
}

func decompress(compressed []byte, want int) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, truncatedOr(err, "сжатые данные блоков")
	}
	defer zr.Close()

	// +1 байт, чтобы заметить лишние данные
	blocks, err := io.ReadAll(io.LimitReader(zr, int64(want)+1))
	if err != nil {
		return nil, truncatedOr(err, "сжатые данные блоков")
	}
	if len(blocks) != want {
		return nil, fmt.Errorf("%w: распаковано %d блоков из %d", ErrTruncated, len(blocks), want)
	}
	return blocks, nil
}

func build(h Header, blocks []byte) (*level.Level, error) {
	l, err := level.FromData("", h.Size, blocks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}
	l.SetSpawn(h.SpawnPos, h.SpawnRot)
	for k, v := range h.Metadata {
		l.SetMeta(k, v)
	}
	// Только что прочитанный уровень не считается изменённым
	l.MarkSaved(l.ChangeCount())
	return l, nil
}

func parseTriple(s, sep string) (a, b, c int, err error) {
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: ожидалось три числа в %q", ErrUnrecognizedFormat, s)
	}
	var vals [3]int
	for i, p := range parts {
		vals[i], err = strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q: %v", ErrUnrecognizedFormat, s, err)
		}
	}
	return vals[0], vals[1], vals[2], nil
}

func parseRotation(s string) ([2]byte, error) {
	parts := strings.Split(s, "~")
	if len(parts) != 2 {
		return [2]byte{}, fmt.Errorf("%w: поворот %q", ErrUnrecognizedFormat, s)
	}
	var rot [2]byte
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return [2]byte{}, fmt.Errorf("%w: поворот %q", ErrUnrecognizedFormat, s)
		}
		rot[i] = byte(v)
	}
	return rot, nil
}

func checkSize(x, z, y int) (vec.Vec3S, error) {
	const maxExtent = 1<<15 - 1
	if x <= 0 || z <= 0 || y <= 0 || x > maxExtent || z > maxExtent || y > maxExtent {
		return vec.Vec3S{}, fmt.Errorf("%w: размер %dx%dx%d", ErrUnrecognizedFormat, x, z, y)
	}
	if x*z*y > MaxBlocks {
		return vec.Vec3S{}, fmt.Errorf("%w: объём %d превышает %d", ErrUnrecognizedFormat, x*z*y, MaxBlocks)
	}
	return vec.New(x, z, y), nil
}

func checkSpawn(x, z, y int) (vec.Vec3S, error) {
	const lo, hi = -1 << 15, 1<<15 - 1
	if x < lo || x > hi || z < lo || z > hi || y < lo || y > hi {
		return vec.Vec3S{}, fmt.Errorf("%w: точка появления (%d,%d,%d)", ErrUnrecognizedFormat, x, z, y)
	}
	return vec.New(x, z, y), nil
}

// Encode пишет уровень в текущем формате. Данные берутся из снимка,
// так что правки во время записи не портят файл.
func Encode(w io.Writer, l *level.Level) error {
	return EncodeSnapshot(w, l.Snapshot())
}

// EncodeBytes возвращает уровень в текущем формате
func EncodeBytes(l *level.Level) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeSnapshot пишет снимок в текущем формате. Ключи метаданных упорядочены.
func EncodeSnapshot(w io.Writer, s level.Snapshot) error {
	compressed, err := compress(s.Blocks)
	if err != nil {
		return err
	}

	var out writer
	out.int64(Magic)
	// высота записывается второй
	out.string(fmt.Sprintf("%d@%d@%d", s.Size.X, s.Size.Y, s.Size.Z))
	out.string(fmt.Sprintf("%d!%d!%d", s.SpawnPos.X, s.SpawnPos.Y, s.SpawnPos.Z))
	out.string(fmt.Sprintf("%d~%d", s.SpawnRot[0], s.SpawnRot[1]))

	out.int32(int32(len(s.Metadata)))
	for _, k := range slices.Sorted(maps.Keys(s.Metadata)) {
		out.string(k)
		out.string(s.Metadata[k])
	}

	out.int32(int32(len(s.Blocks)))
	out.int32(int32(len(compressed)))
	out.Write(compressed)
	out.string(eofMarker)

	if _, err := w.Write(out.Bytes()); err != nil {
		return fmt.Errorf("запись уровня: %w", err)
	}
	return nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("сжатие блоков: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("сжатие блоков: %w", err)
	}
	return buf.Bytes(), nil
}
