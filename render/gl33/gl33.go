// Package gl33 implements the render backend on OpenGL 3.3 core. The
// backend expects a current GL context on the calling thread, window and
// context setup live in the wsi package.
package gl33

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/oliverbestmann/treads/render"
	"github.com/oliverbestmann/treads/render/pass"
	"github.com/oliverbestmann/treads/render/slot"
	"github.com/oliverbestmann/treads/render/std140"
)

func init() {
	render.RegisterBackend("gl33", func() render.Backend {
		return &Backend{}
	})
}

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
}

func (b *Backend) Name() string {
	return "gl33"
}

func (b *Backend) Init(config *render.Config) error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("load gl functions: %w", err)
	}

	b.width = config.Width
	b.height = config.Height
	b.dpiScale = config.DPIScale

	b.shaders = slot.NewTable[shaderRes]("shaders", render.MaxShaders)
	b.textures = slot.NewTable[textureRes]("textures", render.MaxTextures)
	b.buffers = slot.NewTable[bufferRes]("buffers", render.MaxBuffers)
	b.pipelines = slot.NewTable[pipelineRes]("pipelines", render.MaxPipelines)
	b.targets = slot.NewTable[targetRes]("render targets", render.MaxRenderTargets)

	b.passes.Begin = b.beginPass
	b.passes.End = func() {}

	slog.Info("OpenGL context ready",
		slog.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		slog.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	return nil
}

func (b *Backend) Close() {
	b.shaders.Each(func(_ uint32, res *shaderRes) {
		res.destroy()
	})
	b.textures.Each(func(_ uint32, res *textureRes) {
		gl.DeleteTextures(1, &res.id)
	})
	b.buffers.Each(func(_ uint32, res *bufferRes) {
		gl.DeleteBuffers(1, &res.id)
	})
	b.pipelines.Each(func(_ uint32, res *pipelineRes) {
		gl.DeleteVertexArrays(1, &res.vao)
	})
	b.targets.Each(func(_ uint32, res *targetRes) {
		res.destroy()
	})
}

func (b *Backend) Viewport() (int, int) {
	return b.width, b.height
}

func (b *Backend) SetViewport(width, height int) {
	b.width, b.height = width, height
}

func (b *Backend) DPIScale() float32 {
	return b.dpiScale
}

func (b *Backend) BeginFrame() {}

func (b *Backend) EndFrame() {
	b.passes.Finish()

	if b.passes.Target() != 0 {
		b.passes.SetTarget(0)
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
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

// beginPass binds the pass target and applies the queued clear.
func (b *Backend) beginPass(target uint32, action pass.Action) {
	width, height := b.width, b.height

	if target != 0 {
		res := b.targets.Get(target)
		gl.BindFramebuffer(gl.FRAMEBUFFER, res.fbo)
		width, height = res.width, res.height
	} else {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	}

	gl.Viewport(0, 0, int32(width), int32(height))

	var mask uint32

	if action.ColorOp == pass.Clear {
		c := action.Color
		gl.ClearColor(c[0], c[1], c[2], c[3])
		mask |= gl.COLOR_BUFFER_BIT
	}

	if action.DepthOp == pass.Clear {
		// depth writes must be on for the clear to reach the buffer
		gl.DepthMask(true)
		gl.ClearDepth(float64(action.Depth))
		mask |= gl.DEPTH_BUFFER_BIT
	}

	if mask != 0 {
		gl.Clear(mask)
	}
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

func (b *Backend) SetUniform(shader render.Shader, name string, ty std140.Type, data []byte) {
	res := b.shaders.Get(uint32(shader))
	if res == nil {
		slog.Warn("Uniform write to invalid shader", slog.Int("shader", int(shader)))
		return
	}

	res.setUniform(name, ty, data)
}
