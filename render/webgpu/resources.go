package webgpu

import (
	"fmt"
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oliverbestmann/treads/render"
	"github.com/oliverbestmann/treads/render/mip"
)

type textureRes struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView

	width, height int
	format        render.PixelFormat
	sampler       wgpu.SamplerDescriptor

	// render target owning this texture, if any
	owner render.RenderTarget
}

func (res *textureRes) release() {
	if res.view != nil {
		res.view.Release()
	}

	if res.texture != nil {
		res.texture.Release()
	}
}

type bufferRes struct {
	buffer *wgpu.Buffer
	kind   render.BufferKind
	size   int
}

type targetRes struct {
	texture render.Texture

	view      *wgpu.TextureView
	depth     *wgpu.Texture
	depthView *wgpu.TextureView

	width, height int
	format        render.PixelFormat
}

// wgpuFormat maps the pixel format onto a texture format. Three channel
// formats do not exist in wgpu, RGB8 textures are stored as RGBA and the
// uploads expand the pixel data.
func wgpuFormat(format render.PixelFormat) wgpu.TextureFormat {
	switch format {
	case render.R8:
		return wgpu.TextureFormatR8Unorm
	case render.Depth24:
		return wgpu.TextureFormatDepth24Plus
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

// expandRGB widens tightly packed rgb pixels to rgba with full alpha.
func expandRGB(pixels []byte) []byte {
	out := make([]byte, len(pixels)/3*4)

	for i := 0; i < len(pixels)/3; i++ {
		out[i*4+0] = pixels[i*3+0]
		out[i*4+1] = pixels[i*3+1]
		out[i*4+2] = pixels[i*3+2]
		out[i*4+3] = 0xff
	}

	return out
}

func wgpuFilter(filter render.Filter) wgpu.FilterMode {
	if filter == render.FilterNearest {
		return wgpu.FilterModeNearest
	}

	return wgpu.FilterModeLinear
}

func wgpuWrap(wrap render.Wrap) wgpu.AddressMode {
	switch wrap {
	case render.WrapClamp:
		return wgpu.AddressModeClampToEdge
	case render.WrapMirror:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}

func (b *Backend) createTextureRes(desc *render.TextureDesc) (*textureRes, error) {
	mipLevels := uint32(1)
	if desc.GenerateMips && desc.Format != render.Depth24 {
		mipLevels = uint32(mip.Count(desc.Width, desc.Height))
	}

	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if desc.Format == render.Depth24 {
		// depth formats reject queue writes, they are only rendered to
		usage = wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment
	}

	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpuFormat(desc.Format),
		MipLevelCount: mipLevels,
		SampleCount:   1,
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture: %w", err)
	}

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("create texture view: %w", err)
	}

	res := &textureRes{
		texture: texture,
		view:    view,
		width:   desc.Width,
		height:  desc.Height,
		format:  desc.Format,
		sampler: wgpu.SamplerDescriptor{
			AddressModeU:  wgpuWrap(desc.WrapU),
			AddressModeV:  wgpuWrap(desc.WrapV),
			AddressModeW:  wgpu.AddressModeRepeat,
			MagFilter:     wgpuFilter(desc.MagFilter),
			MinFilter:     wgpuFilter(desc.MinFilter),
			MipmapFilter:  wgpu.MipmapFilterModeLinear,
			LodMaxClamp:   32,
			MaxAnisotropy: 1,
		},
	}

	if len(desc.Pixels) > 0 && desc.Format != render.Depth24 {
		if mipLevels > 1 {
			chain, err := mip.Build(desc.Pixels, desc.Width, desc.Height, desc.Format.Channels())
			if err != nil {
				slog.Warn("Mip generation failed, uploading base level only",
					slog.String("texture", desc.Label),
					slog.Any("error", err))

				b.writeTextureLevel(texture, 0, desc.Width, desc.Height, desc.Format, desc.Pixels)
			} else {
				for i, level := range chain.Levels {
					b.writeTextureLevel(texture, uint32(i), level.Width, level.Height, desc.Format, chain.Pixels(i))
				}
			}
		} else {
			b.writeTextureLevel(texture, 0, desc.Width, desc.Height, desc.Format, desc.Pixels)
		}
	}

	return res, nil
}

func (b *Backend) writeTextureLevel(texture *wgpu.Texture, level uint32, width, height int, format render.PixelFormat, pixels []byte) {
	channels := format.Channels()
	if format == render.RGB8 {
		pixels = expandRGB(pixels)
		channels = 4
	}

	err := b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  texture,
			MipLevel: level,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			BytesPerRow:  uint32(width * channels),
			RowsPerImage: uint32(height),
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
	if err != nil {
		slog.Error("Texture upload failed", slog.Any("error", err))
	}
}

func (b *Backend) CreateTexture(desc *render.TextureDesc) render.Texture {
	res, err := b.createTextureRes(desc)
	if err != nil {
		slog.Error("Create texture failed",
			slog.String("label", desc.Label),
			slog.Any("error", err))

		return 0
	}

	id, entry := b.textures.Alloc()
	if entry == nil {
		res.release()
		return 0
	}

	*entry = *res

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

	if res.format == render.Depth24 {
		slog.Warn("Depth textures cannot be updated", slog.Int("texture", int(tex)))
		return
	}

	channels := res.format.Channels()
	if res.format == render.RGB8 {
		pixels = expandRGB(pixels)
		channels = 4
	}

	if b.encoder != nil {
		b.stageTextureUpdate(res, x, y, width, height, channels, pixels)
		return
	}

	err := b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture: res.texture,
			Origin:  wgpu.Origin3D{X: uint32(x), Y: uint32(y)},
			Aspect:  wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			BytesPerRow:  uint32(width * channels),
			RowsPerImage: uint32(height),
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
	if err != nil {
		slog.Error("Texture update failed", slog.Any("error", err))
	}
}

// stageTextureUpdate records a texture update into the frame encoder so it
// lands between the draws already recorded and the ones still to come. A
// queue write would instead run before the whole frame.
func (b *Backend) stageTextureUpdate(res *textureRes, x, y, width, height, channels int, pixels []byte) {
	// the copy cannot be recorded while a render pass is open
	b.passes.Finish()

	padded, bytesPerRow := padRows(pixels, width, height, channels)

	staging, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Texture staging",
		Contents: padded,
		Usage:    wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		slog.Error("Create texture staging buffer failed", slog.Any("error", err))
		return
	}

	b.staging = append(b.staging, staging)

	err = b.encoder.CopyBufferToTexture(
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{
				BytesPerRow:  bytesPerRow,
				RowsPerImage: uint32(height),
			},
		},
		&wgpu.ImageCopyTexture{
			Texture: res.texture,
			Origin:  wgpu.Origin3D{X: uint32(x), Y: uint32(y)},
			Aspect:  wgpu.TextureAspectAll,
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
	if err != nil {
		slog.Error("Staged texture update failed", slog.Any("error", err))
	}
}

// padRows lays pixel rows out at the 256 byte row pitch buffer to texture
// copies require. Rows already at that pitch pass through untouched.
func padRows(pixels []byte, width, height, channels int) ([]byte, uint32) {
	rowBytes := width * channels
	pitch := int(alignUp(uint64(rowBytes), 256))

	if pitch == rowBytes {
		return pixels, uint32(pitch)
	}

	padded := make([]byte, pitch*height)
	for row := range height {
		copy(padded[row*pitch:], pixels[row*rowBytes:(row+1)*rowBytes])
	}

	return padded, uint32(pitch)
}

func (b *Backend) DestroyTexture(tex render.Texture) {
	res := b.textures.Get(uint32(tex))
	if res == nil {
		return
	}

	b.invalidateBindGroups(tex)

	res.release()
	b.textures.Release(uint32(tex))

	for i, bound := range b.bound {
		if bound == tex {
			b.bound[i] = 0
		}
	}
}

func (b *Backend) CreateBuffer(desc *render.BufferDesc) render.Buffer {
	usage := wgpu.BufferUsageCopyDst
	if desc.Kind == render.IndexBuffer {
		usage |= wgpu.BufferUsageIndex
	} else {
		usage |= wgpu.BufferUsageVertex
	}

	size := desc.ByteSize()

	buffer, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Usage: usage,
		Size:  alignUp(uint64(size), 4),
	})
	if err != nil {
		slog.Error("Create buffer failed",
			slog.String("label", desc.Label),
			slog.Any("error", err))

		return 0
	}

	if len(desc.Data) > 0 {
		if err := b.queue.WriteBuffer(buffer, 0, desc.Data); err != nil {
			slog.Error("Buffer upload failed", slog.Any("error", err))
		}
	}

	id, res := b.buffers.Alloc()
	if res == nil {
		buffer.Release()
		return 0
	}

	res.buffer = buffer
	res.kind = desc.Kind
	res.size = size

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
			slog.Int("size", len(data)))

		return
	}

	if b.encoder != nil {
		b.stageBufferUpdate(res, offset, data)
		return
	}

	if err := b.queue.WriteBuffer(res.buffer, uint64(offset), data); err != nil {
		slog.Error("Buffer update failed", slog.Any("error", err))
	}
}

// stageBufferUpdate records a buffer update into the frame encoder, keeping
// it ordered against the draws of the frame. Buffer copies need four byte
// aligned offsets and sizes, updates that miss that fall back to a queue
// write which runs before the frame.
func (b *Backend) stageBufferUpdate(res *bufferRes, offset int, data []byte) {
	if offset%4 != 0 || len(data)%4 != 0 {
		slog.Warn("Unaligned buffer update within a frame",
			slog.Int("offset", offset),
			slog.Int("size", len(data)))

		if err := b.queue.WriteBuffer(res.buffer, uint64(offset), data); err != nil {
			slog.Error("Buffer update failed", slog.Any("error", err))
		}

		return
	}

	b.passes.Finish()

	staging, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Buffer staging",
		Contents: data,
		Usage:    wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		slog.Error("Create buffer staging buffer failed", slog.Any("error", err))
		return
	}

	b.staging = append(b.staging, staging)

	err = b.encoder.CopyBufferToBuffer(staging, 0, res.buffer, uint64(offset), uint64(len(data)))
	if err != nil {
		slog.Error("Staged buffer update failed", slog.Any("error", err))
	}
}

func (b *Backend) DestroyBuffer(buf render.Buffer) {
	res := b.buffers.Get(uint32(buf))
	if res == nil {
		return
	}

	res.buffer.Release()
	b.buffers.Release(uint32(buf))
}

func (b *Backend) CreateRenderTarget(desc *render.RenderTargetDesc) render.RenderTarget {
	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpuFormat(desc.Format),
		MipLevelCount: 1,
		SampleCount:   1,
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		Usage: wgpu.TextureUsageTextureBinding |
			wgpu.TextureUsageRenderAttachment |
			wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		slog.Error("Create render target texture failed",
			slog.String("label", desc.Label),
			slog.Any("error", err))

		return 0
	}

	view, err := texture.CreateView(nil)
	if err != nil {
		slog.Error("Create render target view failed", slog.Any("error", err))
		texture.Release()
		return 0
	}

	texID, texRes := b.textures.Alloc()
	if texRes == nil {
		view.Release()
		texture.Release()
		return 0
	}

	texRes.texture = texture
	texRes.view = view
	texRes.width = desc.Width
	texRes.height = desc.Height
	texRes.format = desc.Format
	texRes.sampler = wgpu.SamplerDescriptor{
		AddressModeU:  wgpuWrap(render.WrapClamp),
		AddressModeV:  wgpuWrap(render.WrapClamp),
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}

	id, res := b.targets.Alloc()
	if res == nil {
		texRes.release()
		b.textures.Release(texID)
		return 0
	}

	res.texture = render.Texture(texID)
	res.view = view
	res.width = desc.Width
	res.height = desc.Height
	res.format = desc.Format

	texRes.owner = render.RenderTarget(id)

	if desc.Depth {
		depth, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         desc.Label + " depth",
			Dimension:     wgpu.TextureDimension2D,
			Format:        wgpu.TextureFormatDepth32Float,
			MipLevelCount: 1,
			SampleCount:   1,
			Size: wgpu.Extent3D{
				Width:              uint32(desc.Width),
				Height:             uint32(desc.Height),
				DepthOrArrayLayers: 1,
			},
			Usage: wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			slog.Error("Create render target depth failed", slog.Any("error", err))
		} else {
			depthView, err := depth.CreateView(nil)
			if err != nil {
				slog.Error("Create render target depth view failed", slog.Any("error", err))
				depth.Release()
			} else {
				res.depth = depth
				res.depthView = depthView
			}
		}
	}

	return render.RenderTarget(id)
}

func (b *Backend) RenderTargetTexture(target render.RenderTarget) render.Texture {
	res := b.targets.Get(uint32(target))
	if res == nil {
		return 0
	}

	return res.texture
}

func (b *Backend) DestroyRenderTarget(target render.RenderTarget) {
	res := b.targets.Get(uint32(target))
	if res == nil {
		return
	}

	if b.passes.Target() == uint32(target) {
		b.passes.SetTarget(0)
	}

	b.DestroyTexture(res.texture)

	if res.depthView != nil {
		res.depthView.Release()
	}

	if res.depth != nil {
		res.depth.Release()
	}

	b.targets.Release(uint32(target))
}
