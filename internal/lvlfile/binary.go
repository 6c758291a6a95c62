package lvlfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// reader читает примитивы в раскладке .NET BinaryReader (little-endian,
// строки с префиксом длины в 7-битной кодировке)
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, fmt.Errorf("%w: нужно %d байт, осталось %d", ErrTruncated, n, r.remaining())
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) int64() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (r *reader) int32() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// uvarint7 читает 7-битное число длины строки (не более 5 байт)
func (r *reader) uvarint7() (int, error) {
	var v uint32
	for shift := 0; shift < 35; shift += 7 {
		b, err := r.take(1)
		if err != nil {
			return 0, err
		}
		v |= uint32(b[0]&0x7f) << shift
		if b[0]&0x80 == 0 {
			if v > 1<<31-1 {
				return 0, fmt.Errorf("%w: длина строки %d", ErrUnrecognizedFormat, v)
			}
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("%w: некорректная длина строки", ErrUnrecognizedFormat)
}

func (r *reader) string() (string, error) {
	n, err := r.uvarint7()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: строка не в UTF-8", ErrUnrecognizedFormat)
	}
	return string(b), nil
}

// writer — обратная сторона reader
type writer struct {
	bytes.Buffer
	scratch [8]byte
}

func (w *writer) int64(v int64) {
	binary.LittleEndian.PutUint64(w.scratch[:8], uint64(v))
	w.Write(w.scratch[:8])
}

func (w *writer) int32(v int32) {
	binary.LittleEndian.PutUint32(w.scratch[:4], uint32(v))
	w.Write(w.scratch[:4])
}

func (w *writer) string(s string) {
	n := uint32(len(s))
	for n >= 0x80 {
		w.WriteByte(byte(n) | 0x80)
		n >>= 7
	}
	w.WriteByte(byte(n))
	w.WriteString(s)
}

// truncatedOr переводит ошибки обрыва потока в ErrTruncated, остальные — в ErrUnrecognizedFormat
func truncatedOr(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s", ErrTruncated, what)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnrecognizedFormat, what, err)
}
