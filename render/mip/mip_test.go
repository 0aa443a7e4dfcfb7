package mip_test

import (
	"testing"

	"github.com/oliverbestmann/treads/render/mip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCount(t *testing.T) {
	cases := []struct {
		w, h, count int
	}{
		{1, 1, 1},
		{2, 2, 2},
		{4, 4, 3},
		{256, 256, 9},
		{640, 480, 10},
		{1, 512, 10},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.count, mip.Count(tc.w, tc.h), "%dx%d", tc.w, tc.h)
	}
}

func TestBuildChainShape(t *testing.T) {
	pixels := make([]byte, 8*4*4)

	chain, err := mip.Build(pixels, 8, 4, 4)
	require.NoError(t, err)
	require.Len(t, chain.Levels, 4)

	assert.Equal(t, 8, chain.Levels[0].Width)
	assert.Equal(t, 4, chain.Levels[0].Height)
	assert.Equal(t, 4, chain.Levels[1].Width)
	assert.Equal(t, 2, chain.Levels[1].Height)
	assert.Equal(t, 2, chain.Levels[2].Width)
	assert.Equal(t, 1, chain.Levels[2].Height)
	assert.Equal(t, 1, chain.Levels[3].Width)
	assert.Equal(t, 1, chain.Levels[3].Height)

	// levels are laid out back to back in one buffer
	for idx := 1; idx < len(chain.Levels); idx++ {
		prev := chain.Levels[idx-1]
		assert.Equal(t, prev.Offset+prev.Size, chain.Levels[idx].Offset)
	}
}

func TestBuildBoxFilter(t *testing.T) {
	// 2x2 single channel image averages into one pixel
	chain, err := mip.Build([]byte{0, 100, 100, 200}, 2, 2, 1)
	require.NoError(t, err)
	require.Len(t, chain.Levels, 2)

	assert.Equal(t, []byte{100}, chain.Pixels(1))
}

func TestBuildUniformImageStaysUniform(t *testing.T) {
	pixels := make([]byte, 16*16*4)
	for idx := range pixels {
		pixels[idx] = 0x80
	}

	chain, err := mip.Build(pixels, 16, 16, 4)
	require.NoError(t, err)

	for level := range chain.Levels {
		for _, b := range chain.Pixels(level) {
			require.Equal(t, byte(0x80), b)
		}
	}
}

func TestBuildOddDimensions(t *testing.T) {
	// 3x3 halves to 1x1, edge pixels are repeated rather than read
	// out of bounds
	pixels := []byte{
		10, 20, 30,
		40, 50, 60,
		70, 80, 90,
	}

	chain, err := mip.Build(pixels, 3, 3, 1)
	require.NoError(t, err)
	require.Len(t, chain.Levels, 2)

	// average of the top left 2x2 block
	assert.Equal(t, []byte{30}, chain.Pixels(1))
}

func TestBuildRejectsChannels(t *testing.T) {
	_, err := mip.Build(make([]byte, 4*4*3), 4, 4, 3)
	assert.Error(t, err)

	_, err = mip.Build(make([]byte, 4*4*2), 4, 4, 2)
	assert.Error(t, err)
}

func TestBuildRejectsShortData(t *testing.T) {
	_, err := mip.Build(make([]byte, 10), 4, 4, 4)
	assert.Error(t, err)
}
