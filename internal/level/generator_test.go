package level

import (
	"testing"

	"github.com/annel0/levelforge/internal/level/block"
	"github.com/annel0/levelforge/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"flat", Flat, false},
		{"PIXEL", Pixel, false},
		{" hell ", Hell, false},
		{"", Flat, false},
		{"lava", Flat, true},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestGenerateFlat(t *testing.T) {
	l, err := Generate("flat", vec.Vec3S{X: 8, Z: 8, Y: 8}, Flat, 0)
	require.NoError(t, err)

	assert.Equal(t, block.Grass, l.GetBlock(vec.Vec3S{X: 3, Z: 3, Y: 4}))
	assert.Equal(t, block.Dirt, l.GetBlock(vec.Vec3S{X: 3, Z: 3, Y: 3}))
	assert.Equal(t, block.Dirt, l.GetBlock(vec.Vec3S{X: 3, Z: 3, Y: 1}))
	assert.Equal(t, block.Air, l.GetBlock(vec.Vec3S{X: 3, Z: 3, Y: 0}))
	assert.Equal(t, block.Air, l.GetBlock(vec.Vec3S{X: 3, Z: 3, Y: 5}))
	assert.Equal(t, block.RedCloth, l.GetBlock(vec.Vec3S{X: 0, Z: 0, Y: 7}))

	spawn, rot := l.Spawn()
	assert.Equal(t, vec.Vec3S{X: 4, Z: 4, Y: 5}, spawn)
	assert.Equal(t, [2]byte{0, 0}, rot)
	assert.False(t, l.Dirty(), "сгенерированный уровень не считается изменённым")
}

func TestGeneratePixel(t *testing.T) {
	l, err := Generate("pixel", vec.Vec3S{X: 6, Z: 5, Y: 4}, Pixel, 0)
	require.NoError(t, err)

	assert.Equal(t, block.BlackCloth, l.GetBlock(vec.Vec3S{X: 2, Z: 2, Y: 0}))
	assert.Equal(t, block.WhiteCloth, l.GetBlock(vec.Vec3S{X: 0, Z: 2, Y: 3}))
	assert.Equal(t, block.WhiteCloth, l.GetBlock(vec.Vec3S{X: 5, Z: 2, Y: 3}))
	assert.Equal(t, block.WhiteCloth, l.GetBlock(vec.Vec3S{X: 2, Z: 4, Y: 1}))
	assert.Equal(t, block.Air, l.GetBlock(vec.Vec3S{X: 2, Z: 2, Y: 1}))
}

func TestGenerateHellIsDeterministic(t *testing.T) {
	size := vec.Vec3S{X: 16, Z: 16, Y: 16}
	a, err := Generate("hell", size, Hell, 42)
	require.NoError(t, err)
	b, err := Generate("hell", size, Hell, 42)
	require.NoError(t, err)

	assert.Equal(t, a.Snapshot().Blocks, b.Snapshot().Blocks)

	for x := int16(0); x < size.X; x++ {
		for z := int16(0); z < size.Z; z++ {
			assert.Equal(t, block.Adminium, a.GetBlock(vec.Vec3S{X: x, Z: z, Y: 0}))
		}
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	_, err := Generate("bad", vec.Vec3S{X: 0, Z: 1, Y: 1}, Flat, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Generate("bad", vec.Vec3S{X: 1, Z: 1, Y: 1}, Type(99), 0)
	assert.Error(t, err)
}
