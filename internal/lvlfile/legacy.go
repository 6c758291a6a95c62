package lvlfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/vec"
	"github.com/klauspost/compress/gzip"
)

// Заголовок старого формата (16 байт после тега, uint16 LE):
//
//	0: X   2: Z   4: Y (высота)
//	6: spawn X   8: spawn Y   10: spawn Z
//	12: heading  13: pitch    14-15: не используются
func readLegacyHeader(r io.Reader) (Header, error) {
	h := Header{Format: FormatLegacy, Metadata: map[string]string{}}

	var tag [2]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return h, fmt.Errorf("%w: нет тега старого формата: %v", ErrUnrecognizedFormat, err)
	}
	if v := binary.LittleEndian.Uint16(tag[:]); v != LegacyTag {
		return h, fmt.Errorf("%w: тег %d", ErrUnrecognizedFormat, v)
	}

	var raw [legacyHeaderLen]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return h, truncatedOr(err, "заголовок старого формата")
	}
	u16 := func(off int) int { return int(binary.LittleEndian.Uint16(raw[off:])) }

	var err error
	if h.Size, err = checkSize(u16(0), u16(2), u16(4)); err != nil {
		return h, err
	}
	h.SpawnPos = vec.Vec3S{X: int16(u16(6)), Z: int16(u16(10)), Y: int16(u16(8))}
	h.SpawnRot = [2]byte{raw[12], raw[13]}
	h.BlockCount = h.Size.Volume()
	return h, nil
}

// decodeLegacy возвращает уровень и число блоков без соответствия
func decodeLegacy(data []byte) (*level.Level, int, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: не gzip и нет магического числа", ErrUnrecognizedFormat)
	}
	defer zr.Close()

	h, err := readLegacyHeader(zr)
	if err != nil {
		return nil, 0, err
	}

	raw := make([]byte, h.BlockCount)
	if _, err := io.ReadFull(zr, raw); err != nil {
		return nil, 0, truncatedOr(err, "блоки старого формата")
	}

	// Раскладка индексов совпадает с текущей, переводим поэлементно
	blocks := make([]byte, len(raw))
	unmapped := 0
	for i, old := range raw {
		id, ok := block.LegacyToCurrent(old)
		if !ok {
			unmapped++
			continue
		}
		blocks[i] = id
	}

	l, err := build(h, blocks)
	if err != nil {
		return nil, 0, err
	}
	return l, unmapped, nil
}

// EncodeLegacy пишет снимок в старом формате. Блоки записываются как есть,
// без обратного перевода. Нужен утилитам и тестам, сервер так не сохраняет.
func EncodeLegacy(w io.Writer, s level.Snapshot) error {
	var body bytes.Buffer
	put := func(v uint16) {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], v)
		body.Write(b[:])
	}

	put(LegacyTag)
	put(uint16(s.Size.X))
	put(uint16(s.Size.Z))
	put(uint16(s.Size.Y))
	put(uint16(s.SpawnPos.X))
	put(uint16(s.SpawnPos.Y))
	put(uint16(s.SpawnPos.Z))
	body.Write([]byte{s.SpawnRot[0], s.SpawnRot[1], 0, 0})
	body.Write(s.Blocks)

	zw := gzip.NewWriter(w)
	if _, err := zw.Write(body.Bytes()); err != nil {
		return fmt.Errorf("запись старого формата: %w", err)
	}
	return zw.Close()
}
