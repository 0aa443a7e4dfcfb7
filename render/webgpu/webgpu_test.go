package webgpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oliverbestmann/treads/render"
	"github.com/stretchr/testify/assert"
)

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(0), alignUp(0, 256))
	assert.Equal(t, uint64(256), alignUp(1, 256))
	assert.Equal(t, uint64(256), alignUp(256, 256))
	assert.Equal(t, uint64(512), alignUp(257, 256))
}

func TestVertexFormatMapping(t *testing.T) {
	assert.Equal(t, wgpu.VertexFormatFloat32x2, wgpuVertexFormat(render.Float2))
	assert.Equal(t, wgpu.VertexFormatFloat32x4, wgpuVertexFormat(render.Float4))
	assert.Equal(t, wgpu.VertexFormatUnorm8x4, wgpuVertexFormat(render.UByte4N))
}

func TestBlendMapping(t *testing.T) {
	assert.Nil(t, wgpuBlend(render.BlendNone))

	alpha := wgpuBlend(render.BlendAlpha)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, alpha.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, alpha.Color.DstFactor)

	additive := wgpuBlend(render.BlendAdditive)
	assert.Equal(t, wgpu.BlendFactorOne, additive.Color.DstFactor)

	multiply := wgpuBlend(render.BlendMultiply)
	assert.Equal(t, wgpu.BlendFactorDst, multiply.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorZero, multiply.Color.DstFactor)

	premultiplied := wgpuBlend(render.BlendPremultiplied)
	assert.Equal(t, wgpu.BlendFactorOne, premultiplied.Color.SrcFactor)
}

func TestTopologyMapping(t *testing.T) {
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, wgpuTopology(render.Triangles))
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, wgpuTopology(render.Lines))
	assert.Equal(t, wgpu.PrimitiveTopologyPointList, wgpuTopology(render.Points))
}

func TestFormatMapping(t *testing.T) {
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, wgpuFormat(render.RGBA8))
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, wgpuFormat(render.RGB8))
	assert.Equal(t, wgpu.TextureFormatR8Unorm, wgpuFormat(render.R8))
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, wgpuFormat(render.Depth24))
}

func TestExpandRGB(t *testing.T) {
	out := expandRGB([]byte{1, 2, 3, 4, 5, 6})
	assert.Equal(t, []byte{1, 2, 3, 0xff, 4, 5, 6, 0xff}, out)
}

func TestPadRows(t *testing.T) {
	// a row of 8 bytes gets padded to the 256 byte pitch
	pixels := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}

	padded, pitch := padRows(pixels, 2, 2, 4)
	assert.Equal(t, uint32(256), pitch)
	assert.Len(t, padded, 512)
	assert.Equal(t, pixels[:8], padded[:8])
	assert.Equal(t, pixels[8:], padded[256:264])

	// rows already at the pitch pass through untouched
	wide := make([]byte, 256*2)
	through, pitch := padRows(wide, 64, 2, 4)
	assert.Equal(t, uint32(256), pitch)
	assert.Same(t, &wide[0], &through[0])
}

func TestAttrLocation(t *testing.T) {
	desc := render.ShaderDesc{Attrs: []string{"a_pos", "a_uv", "a_color"}}

	assert.Equal(t, 0, attrLocation(&desc, "a_pos"))
	assert.Equal(t, 2, attrLocation(&desc, "a_color"))
	assert.Equal(t, -1, attrLocation(&desc, "a_normal"))
}
