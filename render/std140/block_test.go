package std140_test

import (
	"testing"

	"github.com/oliverbestmann/treads/render/std140"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSet() *std140.Set {
	return std140.NewSet(std140.NewBlock("frame", 0, []std140.Member{
		{Name: "u_time", Type: std140.Float},
		{Name: "u_proj", Type: std140.Mat4},
	}))
}

func TestSetResolve(t *testing.T) {
	set := testSet()

	ref, ok := set.Resolve("u_proj")
	require.True(t, ok)
	assert.Equal(t, uint32(16), ref.Offset)
	assert.Equal(t, uint32(64), ref.Size)
	assert.Equal(t, std140.Mat4, ref.Type)

	// cached lookup returns the same ref
	again, ok := set.Resolve("u_proj")
	require.True(t, ok)
	assert.Equal(t, ref, again)

	_, ok = set.Resolve("u_missing")
	assert.False(t, ok)
}

func TestSetWriteMarksDirty(t *testing.T) {
	set := testSet()

	value := float32(1.5)
	set.Write("u_time", std140.Float, std140.AsBytes(&value))

	block := set.Blocks[0]
	assert.True(t, block.Dirty())
	assert.Equal(t, []byte{0x00, 0x00, 0xc0, 0x3f}, block.Bytes()[:4])

	var uploads int
	set.DirtyBlocks(func(b *std140.Block) {
		uploads++
		assert.Same(t, block, b)
	})

	assert.Equal(t, 1, uploads)
	assert.False(t, block.Dirty())

	// nothing changed, so no further upload happens
	set.DirtyBlocks(func(*std140.Block) {
		t.Fatal("unexpected upload of a clean block")
	})
}

func TestSetWriteUnknownName(t *testing.T) {
	set := testSet()

	value := float32(1)
	set.Write("u_missing", std140.Float, std140.AsBytes(&value))

	assert.False(t, set.Blocks[0].Dirty())
}

func TestBlockWriteClamped(t *testing.T) {
	block := std140.NewBlock("small", 0, []std140.Member{
		{Name: "u_value", Type: std140.Vec4},
	})

	src := make([]byte, 32)
	for idx := range src {
		src[idx] = 0xff
	}

	block.Write(8, src)

	// only the bytes within the block were written
	data := block.Bytes()
	assert.Equal(t, byte(0), data[0])
	assert.Equal(t, byte(0xff), data[8])
	assert.Equal(t, byte(0xff), data[15])
	assert.True(t, block.Dirty())

	// entirely out of range writes are dropped
	before := append([]byte(nil), data...)
	block.Write(64, src)
	assert.Equal(t, before, block.Bytes())
}
