package render

import "github.com/oliverbestmann/treads/render/std140"

// PixelFormat is the texel format of textures and render targets.
type PixelFormat uint8

const (
	// RGBA8 is four bytes per pixel and the default format.
	RGBA8 PixelFormat = iota

	// RGB8 is three bytes per pixel without alpha.
	RGB8

	// R8 is a single channel byte per pixel, used for font atlases.
	R8

	// Depth24 is a depth texture, uploads take one uint32 per pixel.
	Depth24
)

// Channels returns the number of bytes per pixel.
func (f PixelFormat) Channels() int {
	switch f {
	case R8:
		return 1
	case RGB8:
		return 3
	default:
		return 4
	}
}

// Filter selects how textures are sampled.
type Filter uint8

const (
	FilterLinear Filter = iota
	FilterNearest
)

// Wrap selects how texture coordinates outside [0, 1] behave.
type Wrap uint8

const (
	WrapRepeat Wrap = iota
	WrapClamp
	WrapMirror
)

// BufferKind distinguishes vertex from index buffers.
type BufferKind uint8

const (
	VertexBuffer BufferKind = iota
	IndexBuffer
)

// BufferUsage hints how often buffer contents change.
type BufferUsage uint8

const (
	// UsageStatic buffers are filled once at creation.
	UsageStatic BufferUsage = iota

	// UsageDynamic buffers are updated now and then.
	UsageDynamic

	// UsageStream buffers are rewritten every frame.
	UsageStream
)

// Primitive is the topology draws are assembled with.
type Primitive uint8

const (
	Triangles Primitive = iota
	TriangleStrip
	Lines
	LineStrip
	Points
)

// Blend selects the fixed function blend state of a pipeline.
type Blend uint8

const (
	BlendNone Blend = iota
	BlendAlpha
	BlendAdditive

	// BlendMultiply darkens by the destination color.
	BlendMultiply

	BlendPremultiplied
)

// Cull selects which triangle faces are discarded.
type Cull uint8

const (
	CullNone Cull = iota
	CullBack
	CullFront
)

// VertexFormat is the data type of one vertex attribute.
type VertexFormat uint8

const (
	Float VertexFormat = iota
	Float2
	Float3
	Float4
	UByte4N
)

// ByteSize returns the size of the attribute in bytes.
func (f VertexFormat) ByteSize() int {
	switch f {
	case Float:
		return 4
	case Float2:
		return 8
	case Float3:
		return 12
	case Float4:
		return 16
	case UByte4N:
		return 4
	default:
		return 0
	}
}

// Components returns the number of components of the attribute.
func (f VertexFormat) Components() int {
	switch f {
	case Float:
		return 1
	case Float2:
		return 2
	case Float3:
		return 3
	case Float4:
		return 4
	case UByte4N:
		return 4
	default:
		return 0
	}
}

// UniformDesc declares one uniform within a block.
type UniformDesc struct {
	Name  string
	Type  std140.Type
	Count uint32
}

// UniformBlockDesc declares one uniform block of a shader. The slot is the
// binding index shared by all backends.
type UniformBlockDesc struct {
	Name     string
	Slot     uint32
	Uniforms []UniformDesc
}

// Members converts the declared uniforms into layout members.
func (d *UniformBlockDesc) Members() []std140.Member {
	members := make([]std140.Member, 0, len(d.Uniforms))

	for _, u := range d.Uniforms {
		members = append(members, std140.Member{
			Name:  u.Name,
			Type:  u.Type,
			Count: u.Count,
		})
	}

	return members
}

// ShaderDesc describes a complete shader program. Sources for all backends
// travel together so the same descriptor works everywhere, a backend picks
// the source it understands.
type ShaderDesc struct {
	Name string

	// GLSL sources for the gl33 backend
	VertexSource   string
	FragmentSource string

	// WGSL module for the webgpu backend
	WGSL string

	Blocks []UniformBlockDesc

	// vertex attribute names in location order
	Attrs []string

	// sampler names in texture slot order
	Textures []string
}

// TextureDesc describes an immutable texture with optional initial pixel
// data. With GenerateMips set the full mip chain is computed on the CPU
// and uploaded level by level.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format PixelFormat

	MinFilter Filter
	MagFilter Filter
	WrapU     Wrap
	WrapV     Wrap

	GenerateMips bool

	Pixels []byte

	// set repeatedly written textures so backends can pick a staging
	// friendly memory type
	Dynamic bool
}

// BufferDesc describes a vertex or index buffer. Either Data or Size must
// be given.
type BufferDesc struct {
	Label string
	Kind  BufferKind
	Usage BufferUsage

	Data []byte
	Size int
}

// ByteSize returns the allocation size of the buffer.
func (d *BufferDesc) ByteSize() int {
	if len(d.Data) > 0 {
		return len(d.Data)
	}

	return d.Size
}

// VertexAttr maps one shader attribute to a location within the vertex.
type VertexAttr struct {
	Name   string
	Format VertexFormat
	Offset int
}

// PipelineDesc is the full fixed function and shader state of a pipeline.
type PipelineDesc struct {
	Label  string
	Shader Shader

	Primitive Primitive
	Blend     Blend
	Cull      Cull

	DepthTest  bool
	DepthWrite bool

	// vertex layout, stride zero means tightly packed
	Stride int
	Attrs  []VertexAttr

	// index buffers hold uint16 values unless this is set
	IndexUint32 bool
}

// VertexStride returns the stride of the vertex layout.
func (d *PipelineDesc) VertexStride() int {
	if d.Stride > 0 {
		return d.Stride
	}

	var stride int
	for _, attr := range d.Attrs {
		stride += attr.Format.ByteSize()
	}

	return stride
}

// RenderTargetDesc describes an offscreen color target with an optional
// depth attachment.
type RenderTargetDesc struct {
	Label  string
	Width  int
	Height int
	Format PixelFormat

	Depth bool
}

// DrawCommand submits one draw. With an index buffer set the draw is
// indexed, ElementCount then counts indices instead of vertices.
type DrawCommand struct {
	Pipeline     Pipeline
	VertexBuffer Buffer
	IndexBuffer  Buffer

	BaseElement  int
	ElementCount int

	// zero draws a single instance
	InstanceCount int
}

// Instances returns the effective instance count.
func (c *DrawCommand) Instances() int {
	return max(1, c.InstanceCount)
}
