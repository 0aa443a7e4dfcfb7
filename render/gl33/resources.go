package gl33

import (
	"log/slog"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/oliverbestmann/treads/render"
	"github.com/oliverbestmann/treads/render/mip"
)

type textureRes struct {
	id            uint32
	width, height int
	format        render.PixelFormat

	owner render.RenderTarget
}

type bufferRes struct {
	id     uint32
	target uint32
	size   int
}

type targetRes struct {
	fbo           uint32
	depthRbo      uint32
	tex           render.Texture
	width, height int
}

func glFormat(format render.PixelFormat) (internal int32, external uint32) {
	switch format {
	case render.R8:
		return gl.R8, gl.RED
	case render.RGB8:
		return gl.RGB8, gl.RGB
	case render.Depth24:
		return gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT
	default:
		return gl.RGBA8, gl.RGBA
	}
}

func glType(format render.PixelFormat) uint32 {
	if format == render.Depth24 {
		return gl.UNSIGNED_INT
	}

	return gl.UNSIGNED_BYTE
}

func glFilter(filter render.Filter, mips bool) int32 {
	switch {
	case filter == render.FilterNearest:
		return gl.NEAREST
	case mips:
		return gl.LINEAR_MIPMAP_LINEAR
	default:
		return gl.LINEAR
	}
}

func glWrap(wrap render.Wrap) int32 {
	switch wrap {
	case render.WrapClamp:
		return gl.CLAMP_TO_EDGE
	case render.WrapMirror:
		return gl.MIRRORED_REPEAT
	default:
		return gl.REPEAT
	}
}

func (b *Backend) CreateTexture(desc *render.TextureDesc) render.Texture {
	id, res := b.textures.Alloc()
	if res == nil {
		return 0
	}

	res.width = desc.Width
	res.height = desc.Height
	res.format = desc.Format

	gl.GenTextures(1, &res.id)
	gl.BindTexture(gl.TEXTURE_2D, res.id)

	internal, external := glFormat(desc.Format)
	xtype := glType(desc.Format)

	// one and three channel rows are not four byte aligned
	if c := desc.Format.Channels(); c == 1 || c == 3 {
		gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
		defer gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	}

	levels := 1

	if desc.GenerateMips && len(desc.Pixels) > 0 && desc.Format != render.Depth24 {
		chain, err := mip.Build(desc.Pixels, desc.Width, desc.Height, desc.Format.Channels())
		if err != nil {
			slog.Warn("Mip generation failed, using base level only",
				slog.String("texture", desc.Label),
				slog.Any("error", err))
		} else {
			levels = len(chain.Levels)

			for i, level := range chain.Levels {
				gl.TexImage2D(gl.TEXTURE_2D, int32(i), internal,
					int32(level.Width), int32(level.Height), 0,
					external, xtype, gl.Ptr(chain.Pixels(i)))
			}
		}
	}

	if levels == 1 {
		if len(desc.Pixels) > 0 {
			gl.TexImage2D(gl.TEXTURE_2D, 0, internal,
				int32(desc.Width), int32(desc.Height), 0,
				external, xtype, gl.Ptr(desc.Pixels))
		} else {
			gl.TexImage2D(gl.TEXTURE_2D, 0, internal,
				int32(desc.Width), int32(desc.Height), 0,
				external, xtype, nil)
		}
	}

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAX_LEVEL, int32(levels-1))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(desc.MinFilter, levels > 1))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(desc.MagFilter, false))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(desc.WrapU))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(desc.WrapV))

	gl.BindTexture(gl.TEXTURE_2D, 0)

	return render.Texture(id)
}

func (b *Backend) UpdateTexture(tex render.Texture, x, y, width, height int, pixels []byte) {
	res := b.textures.Get(uint32(tex))
	if res == nil {
		slog.Warn("Update of invalid texture", slog.Int("texture", int(tex)))
		return
	}

	if x < 0 || y < 0 || x+width > res.width || y+height > res.height {
		slog.Warn("Texture update out of bounds",
			slog.Int("texture", int(tex)),
			slog.Int("x", x), slog.Int("y", y),
			slog.Int("width", width), slog.Int("height", height))

		return
	}

	_, external := glFormat(res.format)

	if c := res.format.Channels(); c == 1 || c == 3 {
		gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
		defer gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	}

	gl.BindTexture(gl.TEXTURE_2D, res.id)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, int32(x), int32(y), int32(width), int32(height),
		external, glType(res.format), gl.Ptr(pixels))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (b *Backend) DestroyTexture(tex render.Texture) {
	res := b.textures.Get(uint32(tex))
	if res == nil {
		return
	}

	gl.DeleteTextures(1, &res.id)
	b.textures.Release(uint32(tex))
}

func (b *Backend) CreateBuffer(desc *render.BufferDesc) render.Buffer {
	id, res := b.buffers.Alloc()
	if res == nil {
		return 0
	}

	res.target = gl.ARRAY_BUFFER
	if desc.Kind == render.IndexBuffer {
		res.target = gl.ELEMENT_ARRAY_BUFFER
	}

	res.size = desc.ByteSize()

	usage := uint32(gl.STATIC_DRAW)
	switch desc.Usage {
	case render.UsageDynamic:
		usage = gl.DYNAMIC_DRAW
	case render.UsageStream:
		usage = gl.STREAM_DRAW
	}

	gl.GenBuffers(1, &res.id)
	gl.BindBuffer(res.target, res.id)

	if len(desc.Data) > 0 {
		gl.BufferData(res.target, res.size, gl.Ptr(desc.Data), usage)
	} else {
		gl.BufferData(res.target, res.size, nil, usage)
	}

	gl.BindBuffer(res.target, 0)

	return render.Buffer(id)
}

func (b *Backend) UpdateBuffer(buf render.Buffer, offset int, data []byte) {
	res := b.buffers.Get(uint32(buf))
	if res == nil {
		slog.Warn("Update of invalid buffer", slog.Int("buffer", int(buf)))
		return
	}

	if offset < 0 || offset+len(data) > res.size {
		slog.Warn("Buffer update out of bounds",
			slog.Int("buffer", int(buf)),
			slog.Int("offset", offset),
			slog.Int("count", len(data)))

		return
	}

	gl.BindBuffer(res.target, res.id)
	gl.BufferSubData(res.target, offset, len(data), gl.Ptr(data))
	gl.BindBuffer(res.target, 0)
}

func (b *Backend) DestroyBuffer(buf render.Buffer) {
	res := b.buffers.Get(uint32(buf))
	if res == nil {
		return
	}

	gl.DeleteBuffers(1, &res.id)
	b.buffers.Release(uint32(buf))
}

func (b *Backend) CreateRenderTarget(desc *render.RenderTargetDesc) render.RenderTarget {
	id, res := b.targets.Alloc()
	if res == nil {
		return 0
	}

	tex := b.CreateTexture(&render.TextureDesc{
		Label:     desc.Label,
		Width:     desc.Width,
		Height:    desc.Height,
		Format:    desc.Format,
		MinFilter: render.FilterLinear,
		MagFilter: render.FilterLinear,
		WrapU:     render.WrapClamp,
		WrapV:     render.WrapClamp,
	})

	if !tex.Valid() {
		b.targets.Release(id)
		return 0
	}

	texRes := b.textures.Get(uint32(tex))
	texRes.owner = render.RenderTarget(id)

	res.tex = tex
	res.width = desc.Width
	res.height = desc.Height

	gl.GenFramebuffers(1, &res.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, res.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, texRes.id, 0)

	if desc.Depth {
		gl.GenRenderbuffers(1, &res.depthRbo)
		gl.BindRenderbuffer(gl.RENDERBUFFER, res.depthRbo)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24,
			int32(desc.Width), int32(desc.Height))
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT,
			gl.RENDERBUFFER, res.depthRbo)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		slog.Error("Framebuffer incomplete",
			slog.String("target", desc.Label),
			slog.Int("status", int(status)))

		res.destroy()
		b.textures.Release(uint32(tex))
		b.targets.Release(id)

		return 0
	}

	return render.RenderTarget(id)
}

func (b *Backend) RenderTargetTexture(target render.RenderTarget) render.Texture {
	res := b.targets.Get(uint32(target))
	if res == nil {
		slog.Warn("Texture of invalid render target", slog.Int("target", int(target)))
		return 0
	}

	return res.tex
}

func (b *Backend) DestroyRenderTarget(target render.RenderTarget) {
	res := b.targets.Get(uint32(target))
	if res == nil {
		return
	}

	// the color texture dies with its target
	b.DestroyTexture(res.tex)
	res.destroy()
	b.targets.Release(uint32(target))

	if b.passes.Target() == uint32(target) {
		b.passes.SetTarget(0)
	}
}

func (res *targetRes) destroy() {
	if res.depthRbo != 0 {
		gl.DeleteRenderbuffers(1, &res.depthRbo)
	}

	gl.DeleteFramebuffers(1, &res.fbo)
}
