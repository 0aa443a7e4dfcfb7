package render

import (
	"image"

	"github.com/oliverbestmann/treads/render/std140"
)

// Backend executes the render operations for one graphics API. Backends
// never return errors from handle based operations, they validate handles
// themselves, log the problem and carry on.
type Backend interface {
	Name() string

	Init(config *Config) error
	Close()

	Viewport() (int, int)
	SetViewport(width, height int)
	DPIScale() float32

	CreateShader(desc *ShaderDesc) Shader
	ReloadShader(shader Shader, desc *ShaderDesc)
	DestroyShader(shader Shader)

	CreateTexture(desc *TextureDesc) Texture
	UpdateTexture(tex Texture, x, y, width, height int, pixels []byte)
	DestroyTexture(tex Texture)

	CreateBuffer(desc *BufferDesc) Buffer
	UpdateBuffer(buf Buffer, offset int, data []byte)
	DestroyBuffer(buf Buffer)

	CreatePipeline(desc *PipelineDesc) Pipeline
	DestroyPipeline(pipeline Pipeline)

	CreateRenderTarget(desc *RenderTargetDesc) RenderTarget
	RenderTargetTexture(target RenderTarget) Texture
	DestroyRenderTarget(target RenderTarget)

	BeginFrame()
	EndFrame()

	SetRenderTarget(target RenderTarget)
	Clear(r, g, b, a, depth float32)
	ClearColor(r, g, b, a float32)
	ClearDepth(depth float32)

	SetUniform(shader Shader, name string, ty std140.Type, data []byte)
	BindTexture(slot int, tex Texture)
	Draw(cmd *DrawCommand)

	Screenshot() (*image.RGBA, error)
}

// Config selects and configures the backend.
type Config struct {
	// Backend names the backend to use. Empty picks the best registered
	// one, the TREADS_BACKEND environment variable overrides both.
	Backend string

	Width  int
	Height int

	// DPIScale defaults to one.
	DPIScale float32

	// Surface carries the window surface for presenting backends. The
	// webgpu backend expects a *wgpu.SurfaceDescriptor here and runs
	// headless without one.
	Surface any
}
