package lvlfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/annel0/levelforge/internal/level"
	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/vec"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLevel(t *testing.T) *level.Level {
	t.Helper()
	l, err := level.New("sample", vec.Vec3S{X: 5, Z: 3, Y: 4})
	require.NoError(t, err)

	l.SetBlock(vec.Vec3S{X: 0, Z: 0, Y: 0}, block.Stone)
	l.SetBlock(vec.Vec3S{X: 4, Z: 2, Y: 3}, block.Obsidian)
	l.SetBlock(vec.Vec3S{X: 2, Z: 1, Y: 2}, block.WhiteCloth)
	l.SetSpawn(vec.Vec3S{X: 2, Z: 1, Y: 3}, [2]byte{64, 128})
	l.SetMeta("motd", "привет")
	l.SetMeta("author", "builder")
	return l
}

func TestRoundTrip(t *testing.T) {
	l := sampleLevel(t)

	data, err := EncodeBytes(l)
	require.NoError(t, err)

	got, err := DecodeBytes(data)
	require.NoError(t, err)

	want := l.Snapshot()
	have := got.Snapshot()
	assert.Equal(t, want.Size, have.Size)
	assert.Equal(t, want.SpawnPos, have.SpawnPos)
	assert.Equal(t, want.SpawnRot, have.SpawnRot)
	assert.Equal(t, want.Metadata, have.Metadata)
	assert.Equal(t, want.Blocks, have.Blocks)
	assert.False(t, got.Dirty())
}

func TestEncodeLayout(t *testing.T) {
	l := sampleLevel(t)
	data, err := EncodeBytes(l)
	require.NoError(t, err)

	assert.Equal(t, uint64(0x6567726f66636d), binary.LittleEndian.Uint64(data[:8]))
	// строка размера: 7-битная длина, затем "X@Y@Z" с высотой на втором месте
	assert.Equal(t, byte(len("5@4@3")), data[8])
	assert.Equal(t, "5@4@3", string(data[9:14]))
	assert.True(t, bytes.HasSuffix(data, []byte{3, 'E', 'O', 'F'}))

	// ключи метаданных упорядочены: запись детерминирована
	again, err := EncodeBytes(l)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestInfoReadsHeader(t *testing.T) {
	l := sampleLevel(t)
	data, err := EncodeBytes(l)
	require.NoError(t, err)

	h, err := Info(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FormatCurrent, h.Format)
	assert.Equal(t, vec.Vec3S{X: 5, Z: 3, Y: 4}, h.Size)
	assert.Equal(t, 60, h.BlockCount)
	assert.Equal(t, "builder", h.Metadata["author"])
}

func TestDecodeLegacy(t *testing.T) {
	size := vec.Vec3S{X: 4, Z: 4, Y: 4}
	raw := make([]byte, size.Volume())
	raw[0] = block.Stone
	raw[1] = 105 // op_* блок
	raw[2] = 142 // активная жидкость
	raw[63] = 250

	var buf bytes.Buffer
	require.NoError(t, EncodeLegacy(&buf, level.Snapshot{
		Size:     size,
		SpawnPos: vec.Vec3S{X: 1, Y: 1, Z: 2},
		SpawnRot: [2]byte{0, 0},
		Blocks:   raw,
	}))

	l, report, err := DecodeWithReport(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, FormatLegacy, report.Format)
	assert.Equal(t, 1, report.Unmapped)

	assert.Equal(t, size, l.Size())
	spawn, rot := l.Spawn()
	assert.Equal(t, vec.Vec3S{X: 1, Y: 1, Z: 2}, spawn)
	assert.Equal(t, [2]byte{0, 0}, rot)

	for i, old := range raw {
		want, ok := block.LegacyToCurrent(old)
		if !ok {
			want = block.Air
		}
		assert.Equal(t, want, l.GetBlockIndex(i), "ячейка %d", i)
	}
}

func TestDecodeLegacyHeaderOffsets(t *testing.T) {
	var body bytes.Buffer
	words := []uint16{LegacyTag, 2, 3, 4, 7, 8, 9}
	for _, w := range words {
		binary.Write(&body, binary.LittleEndian, w)
	}
	body.Write([]byte{10, 20, 0, 0})
	body.Write(make([]byte, 2*3*4))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(body.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	h, err := Info(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, vec.Vec3S{X: 2, Z: 3, Y: 4}, h.Size)
	assert.Equal(t, vec.Vec3S{X: 7, Y: 8, Z: 9}, h.SpawnPos)
	assert.Equal(t, [2]byte{10, 20}, h.SpawnRot)
}

func TestDecodeErrors(t *testing.T) {
	good, err := EncodeBytes(sampleLevel(t))
	require.NoError(t, err)

	t.Run("missing EOF", func(t *testing.T) {
		_, err := DecodeBytes(good[:len(good)-4])
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("wrong EOF", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[len(bad)-1] = 'X'
		_, err := DecodeBytes(bad)
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("cut payload", func(t *testing.T) {
		_, err := DecodeBytes(good[:len(good)-20])
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeBytes([]byte("definitely not a level file"))
		assert.ErrorIs(t, err, ErrUnrecognizedFormat)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Decode(bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrUnrecognizedFormat)
	})

	t.Run("unknown legacy tag", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		binary.Write(zw, binary.LittleEndian, uint16(1873))
		zw.Write(make([]byte, 64))
		require.NoError(t, zw.Close())

		_, err := DecodeBytes(buf.Bytes())
		assert.ErrorIs(t, err, ErrUnrecognizedFormat)
	})

	t.Run("short legacy blocks", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, EncodeLegacy(&buf, level.Snapshot{
			Size:   vec.Vec3S{X: 4, Z: 4, Y: 4},
			Blocks: make([]byte, 10),
		}))
		_, err := DecodeBytes(buf.Bytes())
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("bad size string", func(t *testing.T) {
		var w writer
		w.int64(Magic)
		w.string("4@four@4")
		_, err := DecodeBytes(w.Bytes())
		assert.ErrorIs(t, err, ErrUnrecognizedFormat)
	})
}
