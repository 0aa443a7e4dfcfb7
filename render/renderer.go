package render

import (
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/oliverbestmann/treads/glm"
	"github.com/oliverbestmann/treads/render/std140"
)

// Renderer is the facade game code talks to. It forwards every operation
// to the active backend and offers typed convenience wrappers on top of
// the raw backend interface.
type Renderer struct {
	backend Backend
}

// New selects a backend, initializes it and returns the renderer. The
// TREADS_BACKEND environment variable overrides the configured backend
// name, which helps when bisecting backend specific glitches.
func New(config *Config) (*Renderer, error) {
	if config == nil {
		config = &Config{}
	}

	if config.Width <= 0 {
		config.Width = 1280
	}

	if config.Height <= 0 {
		config.Height = 720
	}

	if config.DPIScale <= 0 {
		config.DPIScale = 1
	}

	name := config.Backend
	if env := os.Getenv("TREADS_BACKEND"); env != "" {
		name = env
	}

	backend, err := newBackend(name)
	if err != nil {
		return nil, err
	}

	if err := backend.Init(config); err != nil {
		return nil, fmt.Errorf("initialize %s backend: %w", backend.Name(), err)
	}

	slog.Info("Renderer initialized",
		slog.String("backend", backend.Name()),
		slog.Int("width", config.Width),
		slog.Int("height", config.Height))

	return &Renderer{backend: backend}, nil
}

// NewWithBackend wraps an already constructed backend. Useful for tests
// and for callers that configure a backend beyond what Config carries.
func NewWithBackend(backend Backend, config *Config) (*Renderer, error) {
	if config == nil {
		config = &Config{Width: 1280, Height: 720, DPIScale: 1}
	}

	if err := backend.Init(config); err != nil {
		return nil, fmt.Errorf("initialize %s backend: %w", backend.Name(), err)
	}

	return &Renderer{backend: backend}, nil
}

// Close shuts the backend down. The renderer must not be used afterwards.
func (r *Renderer) Close() {
	r.backend.Close()
}

// Backend returns the name of the active backend.
func (r *Renderer) Backend() string {
	return r.backend.Name()
}

func (r *Renderer) Viewport() (int, int) {
	return r.backend.Viewport()
}

func (r *Renderer) SetViewport(width, height int) {
	r.backend.SetViewport(width, height)
}

func (r *Renderer) DPIScale() float32 {
	return r.backend.DPIScale()
}

func (r *Renderer) CreateShader(desc *ShaderDesc) Shader {
	return r.backend.CreateShader(desc)
}

// CreateShaderByName creates a shader from the descriptor registry.
func (r *Renderer) CreateShaderByName(name string) (Shader, error) {
	desc, err := ShaderDescByName(name)
	if err != nil {
		return 0, err
	}

	return r.backend.CreateShader(desc), nil
}

func (r *Renderer) DestroyShader(shader Shader) {
	r.backend.DestroyShader(shader)
}

func (r *Renderer) CreateTexture(desc *TextureDesc) Texture {
	return r.backend.CreateTexture(desc)
}

// UpdateTexture replaces a rectangular region of the texture. The pixel
// data must match the texture format.
func (r *Renderer) UpdateTexture(tex Texture, x, y, width, height int, pixels []byte) {
	r.backend.UpdateTexture(tex, x, y, width, height, pixels)
}

func (r *Renderer) DestroyTexture(tex Texture) {
	r.backend.DestroyTexture(tex)
}

func (r *Renderer) CreateBuffer(desc *BufferDesc) Buffer {
	return r.backend.CreateBuffer(desc)
}

func (r *Renderer) UpdateBuffer(buf Buffer, offset int, data []byte) {
	r.backend.UpdateBuffer(buf, offset, data)
}

func (r *Renderer) DestroyBuffer(buf Buffer) {
	r.backend.DestroyBuffer(buf)
}

func (r *Renderer) CreatePipeline(desc *PipelineDesc) Pipeline {
	return r.backend.CreatePipeline(desc)
}

func (r *Renderer) DestroyPipeline(pipeline Pipeline) {
	r.backend.DestroyPipeline(pipeline)
}

func (r *Renderer) CreateRenderTarget(desc *RenderTargetDesc) RenderTarget {
	return r.backend.CreateRenderTarget(desc)
}

// RenderTargetTexture returns the color attachment of the target as a
// texture that can be bound for sampling.
func (r *Renderer) RenderTargetTexture(target RenderTarget) Texture {
	return r.backend.RenderTargetTexture(target)
}

func (r *Renderer) DestroyRenderTarget(target RenderTarget) {
	r.backend.DestroyRenderTarget(target)
}

func (r *Renderer) BeginFrame() {
	r.backend.BeginFrame()
}

func (r *Renderer) EndFrame() {
	r.backend.EndFrame()
}

// SetRenderTarget redirects subsequent draws into the given target. The
// zero handle selects the default framebuffer.
func (r *Renderer) SetRenderTarget(target RenderTarget) {
	r.backend.SetRenderTarget(target)
}

func (r *Renderer) Clear(red, green, blue, alpha, depth float32) {
	r.backend.Clear(red, green, blue, alpha, depth)
}

func (r *Renderer) ClearColor(red, green, blue, alpha float32) {
	r.backend.ClearColor(red, green, blue, alpha)
}

func (r *Renderer) ClearDepth(depth float32) {
	r.backend.ClearDepth(depth)
}

func (r *Renderer) SetUniformFloat(shader Shader, name string, value float32) {
	r.backend.SetUniform(shader, name, std140.Float, std140.AsBytes(&value))
}

func (r *Renderer) SetUniformInt(shader Shader, name string, value int32) {
	r.backend.SetUniform(shader, name, std140.Int, std140.AsBytes(&value))
}

func (r *Renderer) SetUniformVec2(shader Shader, name string, value glm.Vec2f) {
	r.backend.SetUniform(shader, name, std140.Vec2, std140.AsBytes(&value))
}

func (r *Renderer) SetUniformVec3(shader Shader, name string, value glm.Vec3f) {
	r.backend.SetUniform(shader, name, std140.Vec3, std140.AsBytes(&value))
}

func (r *Renderer) SetUniformVec4(shader Shader, name string, value glm.Vec4f) {
	r.backend.SetUniform(shader, name, std140.Vec4, std140.AsBytes(&value))
}

func (r *Renderer) SetUniformMat4(shader Shader, name string, value glm.Mat4f) {
	r.backend.SetUniform(shader, name, std140.Mat4, std140.AsBytes(&value))
}

// BindTexture binds a texture to a sampler slot for the following draws.
func (r *Renderer) BindTexture(slot int, tex Texture) {
	r.backend.BindTexture(slot, tex)
}

func (r *Renderer) Draw(cmd *DrawCommand) {
	r.backend.Draw(cmd)
}

// Screenshot reads back the current framebuffer contents.
func (r *Renderer) Screenshot() (*image.RGBA, error) {
	return r.backend.Screenshot()
}
