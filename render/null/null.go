// Package null implements a backend that talks to no graphics API at all.
// It still does the full resource bookkeeping, uniform layout and pass
// tracking, which makes it the backend of choice for tests and for running
// a game headless.
package null

import (
	"image"
	"log/slog"

	"github.com/oliverbestmann/treads/render"
	"github.com/oliverbestmann/treads/render/mip"
	"github.com/oliverbestmann/treads/render/pass"
	"github.com/oliverbestmann/treads/render/slot"
	"github.com/oliverbestmann/treads/render/std140"
)

func init() {
	render.RegisterBackend("null", func() render.Backend {
		return New()
	})
}

// Stats counts what the backend was asked to do. Tests assert on these.
type Stats struct {
	Frames       int
	Passes       int
	Draws        int
	SkippedDraws int
	BlockUploads int
}

type shaderRes struct {
	desc     *render.ShaderDesc
	uniforms *std140.Set
}

type textureRes struct {
	width, height int
	format        render.PixelFormat
	mipLevels     int
	pixels        []byte

	// handle of the render target this texture belongs to, zero for
	// ordinary textures
	owner render.RenderTarget
}

type bufferRes struct {
	kind  render.BufferKind
	usage render.BufferUsage
	data  []byte
}

type pipelineRes struct {
	desc render.PipelineDesc
}

type targetRes struct {
	desc render.RenderTargetDesc
	tex  render.Texture
}

// Backend is the null backend. Create one through render.New with the
// backend name "null", or directly with New for tests.
type Backend struct {
	width, height int
	dpiScale      float32

	shaders   *slot.Table[shaderRes]
	textures  *slot.Table[textureRes]
	buffers   *slot.Table[bufferRes]
	pipelines *slot.Table[pipelineRes]
	targets   *slot.Table[targetRes]

	passes pass.Manager
	bound  [render.MaxTextureSlots]render.Texture

	Stats Stats
}

func New() *Backend {
	b := &Backend{
		shaders:   slot.NewTable[shaderRes]("shaders", render.MaxShaders),
		textures:  slot.NewTable[textureRes]("textures", render.MaxTextures),
		buffers:   slot.NewTable[bufferRes]("buffers", render.MaxBuffers),
		pipelines: slot.NewTable[pipelineRes]("pipelines", render.MaxPipelines),
		targets:   slot.NewTable[targetRes]("render targets", render.MaxRenderTargets),
	}

	b.passes.Begin = func(uint32, pass.Action) {
		b.Stats.Passes++
	}
	b.passes.End = func() {}

	return b
}

func (b *Backend) Name() string {
	return "null"
}

func (b *Backend) Init(config *render.Config) error {
	b.width = config.Width
	b.height = config.Height
	b.dpiScale = config.DPIScale

	return nil
}

func (b *Backend) Close() {}

func (b *Backend) Viewport() (int, int) {
	return b.width, b.height
}

func (b *Backend) SetViewport(width, height int) {
	b.width, b.height = width, height
}

func (b *Backend) DPIScale() float32 {
	return b.dpiScale
}

func (b *Backend) CreateShader(desc *render.ShaderDesc) render.Shader {
	id, res := b.shaders.Alloc()
	if res == nil {
		return 0
	}

	blocks := make([]*std140.Block, 0, len(desc.Blocks))
	for _, block := range desc.Blocks {
		blocks = append(blocks, std140.NewBlock(block.Name, block.Slot, block.Members()))
	}

	res.desc = desc
	res.uniforms = std140.NewSet(blocks...)

	return render.Shader(id)
}

// ReloadShader swaps the sources of a live shader. The handle and the
// uniform state survive, source fields left empty keep their current text.
func (b *Backend) ReloadShader(shader render.Shader, desc *render.ShaderDesc) {
	res := b.shaders.Get(uint32(shader))
	if res == nil {
		slog.Warn("Reload of invalid shader", slog.Int("shader", int(shader)))
		return
	}

	merged := *res.desc

	if desc.VertexSource != "" {
		merged.VertexSource = desc.VertexSource
	}

	if desc.FragmentSource != "" {
		merged.FragmentSource = desc.FragmentSource
	}

	if desc.WGSL != "" {
		merged.WGSL = desc.WGSL
	}

	res.desc = &merged
}

func (b *Backend) DestroyShader(shader render.Shader) {
	b.shaders.Release(uint32(shader))
}

func (b *Backend) CreateTexture(desc *render.TextureDesc) render.Texture {
	id, res := b.textures.Alloc()
	if res == nil {
		return 0
	}

	res.width = desc.Width
	res.height = desc.Height
	res.format = desc.Format
	res.mipLevels = 1
	res.pixels = append([]byte(nil), desc.Pixels...)

	if desc.GenerateMips && len(desc.Pixels) > 0 && desc.Format != render.Depth24 {
		chain, err := mip.Build(desc.Pixels, desc.Width, desc.Height, desc.Format.Channels())
		if err != nil {
			slog.Warn("Mip generation failed, using base level only",
				slog.String("texture", desc.Label),
				slog.Any("error", err))
		} else {
			res.mipLevels = len(chain.Levels)
		}
	}

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

	if len(res.pixels) == 0 {
		res.pixels = make([]byte, res.width*res.height*res.format.Channels())
	}

	ch := res.format.Channels()
	for row := range height {
		src := pixels[row*width*ch : (row+1)*width*ch]
		dst := ((y+row)*res.width + x) * ch
		copy(res.pixels[dst:], src)
	}
}

func (b *Backend) DestroyTexture(tex render.Texture) {
	b.textures.Release(uint32(tex))
}

func (b *Backend) CreateBuffer(desc *render.BufferDesc) render.Buffer {
	id, res := b.buffers.Alloc()
	if res == nil {
		return 0
	}

	res.kind = desc.Kind
	res.usage = desc.Usage
	res.data = make([]byte, desc.ByteSize())
	copy(res.data, desc.Data)

	return render.Buffer(id)
}

func (b *Backend) UpdateBuffer(buf render.Buffer, offset int, data []byte) {
	res := b.buffers.Get(uint32(buf))
	if res == nil {
		slog.Warn("Update of invalid buffer", slog.Int("buffer", int(buf)))
		return
	}

	if offset < 0 || offset+len(data) > len(res.data) {
		slog.Warn("Buffer update out of bounds",
			slog.Int("buffer", int(buf)),
			slog.Int("offset", offset),
			slog.Int("count", len(data)))

		return
	}

	copy(res.data[offset:], data)
}

func (b *Backend) DestroyBuffer(buf render.Buffer) {
	b.buffers.Release(uint32(buf))
}

func (b *Backend) CreatePipeline(desc *render.PipelineDesc) render.Pipeline {
	if !b.shaders.Used(uint32(desc.Shader)) {
		slog.Warn("Pipeline refers to invalid shader", slog.Int("shader", int(desc.Shader)))
		return 0
	}

	id, res := b.pipelines.Alloc()
	if res == nil {
		return 0
	}

	res.desc = *desc

	return render.Pipeline(id)
}

func (b *Backend) DestroyPipeline(pipeline render.Pipeline) {
	b.pipelines.Release(uint32(pipeline))
}

func (b *Backend) CreateRenderTarget(desc *render.RenderTargetDesc) render.RenderTarget {
	id, res := b.targets.Alloc()
	if res == nil {
		return 0
	}

	tex := b.CreateTexture(&render.TextureDesc{
		Label:  desc.Label,
		Width:  desc.Width,
		Height: desc.Height,
		Format: desc.Format,
	})

	if !tex.Valid() {
		b.targets.Release(id)
		return 0
	}

	b.textures.Get(uint32(tex)).owner = render.RenderTarget(id)

	res.desc = *desc
	res.tex = tex

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

	// the color texture dies with its target, later binds of a stale
	// handle report an invalid texture instead of touching freed state
	b.textures.Release(uint32(res.tex))
	b.targets.Release(uint32(target))

	if b.passes.Target() == uint32(target) {
		b.passes.SetTarget(0)
	}
}

func (b *Backend) BeginFrame() {
	b.Stats.Frames++
}

func (b *Backend) EndFrame() {
	b.passes.Finish()

	if b.passes.Target() != 0 {
		b.passes.SetTarget(0)
	}
}

func (b *Backend) SetRenderTarget(target render.RenderTarget) {
	if target.Valid() && !b.targets.Used(uint32(target)) {
		slog.Warn("Switch to invalid render target", slog.Int("target", int(target)))
		return
	}

	b.passes.SetTarget(uint32(target))
}

func (b *Backend) Clear(r, g, bl, a, depth float32) {
	b.passes.ClearAll(r, g, bl, a, depth)
}

func (b *Backend) ClearColor(r, g, bl, a float32) {
	b.passes.ClearColor(r, g, bl, a)
}

func (b *Backend) ClearDepth(depth float32) {
	b.passes.ClearDepth(depth)
}

func (b *Backend) SetUniform(shader render.Shader, name string, ty std140.Type, data []byte) {
	res := b.shaders.Get(uint32(shader))
	if res == nil {
		slog.Warn("Uniform write to invalid shader", slog.Int("shader", int(shader)))
		return
	}

	res.uniforms.Write(name, ty, data)
}

func (b *Backend) BindTexture(texSlot int, tex render.Texture) {
	if texSlot < 0 || texSlot >= render.MaxTextureSlots {
		slog.Warn("Texture slot out of range", slog.Int("slot", texSlot))
		return
	}

	if tex.Valid() && !b.textures.Used(uint32(tex)) {
		slog.Warn("Bind of invalid texture",
			slog.Int("slot", texSlot),
			slog.Int("texture", int(tex)))

		b.bound[texSlot] = 0
		return
	}

	b.bound[texSlot] = tex
}

func (b *Backend) Draw(cmd *render.DrawCommand) {
	pipeline := b.pipelines.Get(uint32(cmd.Pipeline))
	if pipeline == nil {
		slog.Warn("Draw with invalid pipeline", slog.Int("pipeline", int(cmd.Pipeline)))
		b.Stats.SkippedDraws++
		return
	}

	shader := b.shaders.Get(uint32(pipeline.desc.Shader))
	if shader == nil {
		slog.Warn("Draw with pipeline whose shader is gone",
			slog.Int("pipeline", int(cmd.Pipeline)))
		b.Stats.SkippedDraws++
		return
	}

	vertices := b.buffers.Get(uint32(cmd.VertexBuffer))
	if vertices == nil || vertices.kind != render.VertexBuffer {
		slog.Warn("Draw with invalid vertex buffer", slog.Int("buffer", int(cmd.VertexBuffer)))
		b.Stats.SkippedDraws++
		return
	}

	if cmd.IndexBuffer.Valid() {
		indices := b.buffers.Get(uint32(cmd.IndexBuffer))
		if indices == nil || indices.kind != render.IndexBuffer {
			slog.Warn("Draw with invalid index buffer", slog.Int("buffer", int(cmd.IndexBuffer)))
			b.Stats.SkippedDraws++
			return
		}
	}

	if cmd.ElementCount <= 0 {
		b.Stats.SkippedDraws++
		return
	}

	b.passes.Ensure()

	shader.uniforms.DirtyBlocks(func(*std140.Block) {
		b.Stats.BlockUploads++
	})

	b.Stats.Draws++
}

func (b *Backend) Screenshot() (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, b.width, b.height)), nil
}

// TexturePixels exposes the stored pixel data of a texture for tests.
func (b *Backend) TexturePixels(tex render.Texture) []byte {
	res := b.textures.Get(uint32(tex))
	if res == nil {
		return nil
	}

	return res.pixels
}

// TextureMipLevels exposes the mip level count of a texture for tests.
func (b *Backend) TextureMipLevels(tex render.Texture) int {
	res := b.textures.Get(uint32(tex))
	if res == nil {
		return 0
	}

	return res.mipLevels
}

// ShaderUniforms exposes the uniform state of a shader for tests.
func (b *Backend) ShaderUniforms(shader render.Shader) *std140.Set {
	res := b.shaders.Get(uint32(shader))
	if res == nil {
		return nil
	}

	return res.uniforms
}

// ShaderSources exposes the stored sources of a shader for tests.
func (b *Backend) ShaderSources(shader render.Shader) (vert, frag string) {
	res := b.shaders.Get(uint32(shader))
	if res == nil {
		return "", ""
	}

	return res.desc.VertexSource, res.desc.FragmentSource
}

// BoundTexture exposes the texture bound to a slot for tests.
func (b *Backend) BoundTexture(texSlot int) render.Texture {
	return b.bound[texSlot]
}
