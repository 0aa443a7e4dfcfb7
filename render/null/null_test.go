package null_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oliverbestmann/treads/glm"
	"github.com/oliverbestmann/treads/render"
	"github.com/oliverbestmann/treads/render/null"
	"github.com/oliverbestmann/treads/render/std140"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) (*render.Renderer, *null.Backend) {
	t.Helper()

	backend := null.New()

	r, err := render.NewWithBackend(backend, &render.Config{Width: 320, Height: 200})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	return r, backend
}

func spriteShader() *render.ShaderDesc {
	return &render.ShaderDesc{
		Name: "sprite",
		Blocks: []render.UniformBlockDesc{
			{
				Name: "frame",
				Slot: 0,
				Uniforms: []render.UniformDesc{
					{Name: "u_time", Type: std140.Float},
					{Name: "u_camera", Type: std140.Vec3},
					{Name: "u_proj", Type: std140.Mat4},
				},
			},
		},
		Attrs:    []string{"a_pos", "a_uv"},
		Textures: []string{"u_albedo"},
	}
}

func spriteSetup(t *testing.T, r *render.Renderer) (render.Shader, render.Pipeline, render.Buffer) {
	t.Helper()

	shader := r.CreateShader(spriteShader())
	require.True(t, shader.Valid())

	pipeline := r.CreatePipeline(&render.PipelineDesc{
		Shader: shader,
		Attrs: []render.VertexAttr{
			{Name: "a_pos", Format: render.Float2, Offset: 0},
			{Name: "a_uv", Format: render.Float2, Offset: 8},
		},
	})
	require.True(t, pipeline.Valid())

	vertices := r.CreateBuffer(&render.BufferDesc{
		Kind: render.VertexBuffer,
		Data: make([]byte, 6*16),
	})
	require.True(t, vertices.Valid())

	return shader, pipeline, vertices
}

func TestCreateDestroyRoundTrip(t *testing.T) {
	r, _ := newRenderer(t)

	tex := r.CreateTexture(&render.TextureDesc{Width: 4, Height: 4})
	require.True(t, tex.Valid())

	r.DestroyTexture(tex)

	// the slot is recycled for the next texture
	again := r.CreateTexture(&render.TextureDesc{Width: 8, Height: 8})
	assert.Equal(t, tex, again)
}

func TestShaderPoolExhaustion(t *testing.T) {
	r, _ := newRenderer(t)

	handles := make([]render.Shader, 0, render.MaxShaders)
	for range render.MaxShaders {
		shader := r.CreateShader(&render.ShaderDesc{Name: "filler"})
		require.True(t, shader.Valid())
		handles = append(handles, shader)
	}

	// the pool is full, creation fails without disturbing live handles
	assert.False(t, r.CreateShader(&render.ShaderDesc{Name: "overflow"}).Valid())

	r.DestroyShader(handles[7])
	assert.True(t, r.CreateShader(&render.ShaderDesc{Name: "again"}).Valid())
}

func TestUniformFlow(t *testing.T) {
	r, backend := newRenderer(t)
	shader, pipeline, vertices := spriteSetup(t, r)

	r.SetUniformFloat(shader, "u_time", 1.25)
	r.SetUniformVec3(shader, "u_camera", glm.Vec3f{1, 2, 3})
	r.SetUniformMat4(shader, "u_proj", glm.IdentityMat4[float32]())

	// writing an unknown uniform is a silent no-op
	r.SetUniformFloat(shader, "u_gone", 0)

	set := backend.ShaderUniforms(shader)
	ref, ok := set.Resolve("u_proj")
	require.True(t, ok)
	assert.Equal(t, uint32(32), ref.Offset)

	r.Draw(&render.DrawCommand{
		Pipeline:     pipeline,
		VertexBuffer: vertices,
		ElementCount: 6,
	})

	// one dirty block got uploaded with the draw
	assert.Equal(t, 1, backend.Stats.BlockUploads)
	assert.Equal(t, 1, backend.Stats.Draws)

	// clean blocks are not uploaded again
	r.Draw(&render.DrawCommand{
		Pipeline:     pipeline,
		VertexBuffer: vertices,
		ElementCount: 6,
	})
	assert.Equal(t, 1, backend.Stats.BlockUploads)

	r.SetUniformFloat(shader, "u_time", 2.5)
	r.Draw(&render.DrawCommand{
		Pipeline:     pipeline,
		VertexBuffer: vertices,
		ElementCount: 6,
	})
	assert.Equal(t, 2, backend.Stats.BlockUploads)
}

func TestDrawValidation(t *testing.T) {
	r, backend := newRenderer(t)
	_, pipeline, vertices := spriteSetup(t, r)

	// invalid pipeline
	r.Draw(&render.DrawCommand{VertexBuffer: vertices, ElementCount: 3})

	// invalid vertex buffer
	r.Draw(&render.DrawCommand{Pipeline: pipeline, ElementCount: 3})

	// index buffer of the wrong kind
	r.Draw(&render.DrawCommand{
		Pipeline:     pipeline,
		VertexBuffer: vertices,
		IndexBuffer:  vertices,
		ElementCount: 3,
	})

	assert.Equal(t, 0, backend.Stats.Draws)
	assert.Equal(t, 3, backend.Stats.SkippedDraws)
}

func TestClearsCoalesceIntoSinglePass(t *testing.T) {
	r, backend := newRenderer(t)
	_, pipeline, vertices := spriteSetup(t, r)

	r.BeginFrame()
	r.ClearColor(0, 0, 0, 1)
	r.ClearDepth(1)
	r.Clear(0.2, 0.2, 0.2, 1, 1)

	r.Draw(&render.DrawCommand{
		Pipeline:     pipeline,
		VertexBuffer: vertices,
		ElementCount: 6,
	})
	r.Draw(&render.DrawCommand{
		Pipeline:     pipeline,
		VertexBuffer: vertices,
		ElementCount: 6,
	})
	r.EndFrame()

	assert.Equal(t, 1, backend.Stats.Passes)
	assert.Equal(t, 2, backend.Stats.Draws)
}

func TestClearWithoutDrawStillRunsAPass(t *testing.T) {
	r, backend := newRenderer(t)

	r.BeginFrame()
	r.Clear(0, 0, 0, 1, 1)
	r.EndFrame()

	assert.Equal(t, 1, backend.Stats.Passes)
}

func TestRenderTargetFlow(t *testing.T) {
	r, backend := newRenderer(t)
	_, pipeline, vertices := spriteSetup(t, r)

	target := r.CreateRenderTarget(&render.RenderTargetDesc{
		Width: 128, Height: 128, Depth: true,
	})
	require.True(t, target.Valid())

	tex := r.RenderTargetTexture(target)
	require.True(t, tex.Valid())

	// draw into the target, then sample it on the default framebuffer
	r.BeginFrame()
	r.SetRenderTarget(target)
	r.Clear(0, 0, 0, 1, 1)
	r.Draw(&render.DrawCommand{
		Pipeline:     pipeline,
		VertexBuffer: vertices,
		ElementCount: 6,
	})

	r.SetRenderTarget(0)
	r.BindTexture(0, tex)
	r.Draw(&render.DrawCommand{
		Pipeline:     pipeline,
		VertexBuffer: vertices,
		ElementCount: 6,
	})
	r.EndFrame()

	assert.Equal(t, 2, backend.Stats.Passes)
	assert.Equal(t, tex, backend.BoundTexture(0))
}

func TestDestroyedRenderTargetInvalidatesTexture(t *testing.T) {
	r, backend := newRenderer(t)

	target := r.CreateRenderTarget(&render.RenderTargetDesc{Width: 64, Height: 64})
	tex := r.RenderTargetTexture(target)

	r.DestroyRenderTarget(target)

	// binding the stale texture handle is harmless and binds nothing
	r.BindTexture(0, tex)
	assert.Equal(t, render.Texture(0), backend.BoundTexture(0))
}

func TestReloadShaderKeepsHandleAndUniforms(t *testing.T) {
	r, backend := newRenderer(t)
	shader, pipeline, vertices := spriteSetup(t, r)

	r.SetUniformFloat(shader, "u_time", 4.5)

	dir := t.TempDir()
	vertPath := filepath.Join(dir, "sprite.vert")
	fragPath := filepath.Join(dir, "sprite.frag")
	require.NoError(t, os.WriteFile(vertPath, []byte("new vertex"), 0o644))
	require.NoError(t, os.WriteFile(fragPath, []byte("new fragment"), 0o644))

	require.NoError(t, r.ReloadShader(shader, vertPath, fragPath))

	vert, frag := backend.ShaderSources(shader)
	assert.Equal(t, "new vertex", vert)
	assert.Equal(t, "new fragment", frag)

	// the uniform state survived the reload
	set := backend.ShaderUniforms(shader)
	_, ok := set.Resolve("u_time")
	require.True(t, ok)

	// pipelines built on the shader keep drawing
	r.Draw(&render.DrawCommand{
		Pipeline:     pipeline,
		VertexBuffer: vertices,
		ElementCount: 6,
	})
	assert.Equal(t, 1, backend.Stats.Draws)
}

func TestReloadShaderMissingFile(t *testing.T) {
	r, _ := newRenderer(t)
	shader, _, _ := spriteSetup(t, r)

	err := r.ReloadShader(shader, filepath.Join(t.TempDir(), "gone.vert"), "gone.frag")
	assert.Error(t, err)
}

func TestTextureMips(t *testing.T) {
	r, backend := newRenderer(t)

	tex := r.CreateTexture(&render.TextureDesc{
		Width:        16,
		Height:       16,
		Pixels:       make([]byte, 16*16*4),
		GenerateMips: true,
	})

	assert.Equal(t, 5, backend.TextureMipLevels(tex))
}

func TestTextureRGB8MipsFallBackToBaseLevel(t *testing.T) {
	r, backend := newRenderer(t)

	// three channel images cannot be downsampled, only level zero is kept
	tex := r.CreateTexture(&render.TextureDesc{
		Width:        16,
		Height:       16,
		Format:       render.RGB8,
		Pixels:       make([]byte, 16*16*3),
		GenerateMips: true,
	})

	require.True(t, tex.Valid())
	assert.Equal(t, 1, backend.TextureMipLevels(tex))
}

func TestUpdateTexture(t *testing.T) {
	r, backend := newRenderer(t)

	tex := r.CreateTexture(&render.TextureDesc{
		Width:  4,
		Height: 4,
		Format: render.R8,
		Pixels: make([]byte, 16),
	})

	r.UpdateTexture(tex, 1, 1, 2, 2, []byte{1, 2, 3, 4})

	pixels := backend.TexturePixels(tex)
	assert.Equal(t, byte(1), pixels[1*4+1])
	assert.Equal(t, byte(2), pixels[1*4+2])
	assert.Equal(t, byte(3), pixels[2*4+1])
	assert.Equal(t, byte(4), pixels[2*4+2])

	// out of bounds updates are rejected
	r.UpdateTexture(tex, 3, 3, 2, 2, make([]byte, 4))
	assert.Equal(t, byte(0), pixels[3*4+3])
}

func TestRegistryCreatesNullBackend(t *testing.T) {
	t.Setenv("TREADS_BACKEND", "null")

	r, err := render.New(&render.Config{})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "null", r.Backend())

	w, h := r.Viewport()
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)
}

func TestRegistryUnknownBackend(t *testing.T) {
	_, err := render.New(&render.Config{Backend: "missing"})
	assert.ErrorIs(t, err, render.ErrBackendNotAvailable)
}
