package gl33

import (
	"image"
	"log/slog"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/oliverbestmann/treads/render"
)

type pipelineRes struct {
	desc render.PipelineDesc
	vao  uint32
}

func glPrimitive(primitive render.Primitive) uint32 {
	switch primitive {
	case render.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case render.Lines:
		return gl.LINES
	case render.LineStrip:
		return gl.LINE_STRIP
	case render.Points:
		return gl.POINTS
	default:
		return gl.TRIANGLES
	}
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
	gl.GenVertexArrays(1, &res.vao)

	return render.Pipeline(id)
}

func (b *Backend) DestroyPipeline(pipeline render.Pipeline) {
	res := b.pipelines.Get(uint32(pipeline))
	if res == nil {
		return
	}

	gl.DeleteVertexArrays(1, &res.vao)
	b.pipelines.Release(uint32(pipeline))
}

// applyState sets the fixed function state of the pipeline.
func applyState(desc *render.PipelineDesc) {
	switch desc.Blend {
	case render.BlendNone:
		gl.Disable(gl.BLEND)
	case render.BlendAlpha:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	case render.BlendAdditive:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE)
	case render.BlendMultiply:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.DST_COLOR, gl.ZERO)
	case render.BlendPremultiplied:
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	}

	switch desc.Cull {
	case render.CullNone:
		gl.Disable(gl.CULL_FACE)
	case render.CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	case render.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	}

	if desc.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}

	gl.DepthMask(desc.DepthWrite)
}

// bindAttrs points the shader attributes into the vertex buffer. Attribute
// locations come from the program, attributes the shader optimized away
// are skipped.
func bindAttrs(shader *shaderRes, desc *render.PipelineDesc) {
	stride := int32(desc.VertexStride())

	for _, attr := range desc.Attrs {
		loc := shader.attrLocation(attr.Name)
		if loc < 0 {
			continue
		}

		xtype := uint32(gl.FLOAT)
		normalized := false

		if attr.Format == render.UByte4N {
			xtype = gl.UNSIGNED_BYTE
			normalized = true
		}

		gl.EnableVertexAttribArray(uint32(loc))
		gl.VertexAttribPointer(uint32(loc), int32(attr.Format.Components()),
			xtype, normalized, stride, gl.PtrOffset(attr.Offset))
	}
}

func (b *Backend) Draw(cmd *render.DrawCommand) {
	pipeline := b.pipelines.Get(uint32(cmd.Pipeline))
	if pipeline == nil {
		slog.Warn("Draw with invalid pipeline", slog.Int("pipeline", int(cmd.Pipeline)))
		return
	}

	shader := b.shaders.Get(uint32(pipeline.desc.Shader))
	if shader == nil {
		slog.Warn("Draw with pipeline whose shader is gone",
			slog.Int("pipeline", int(cmd.Pipeline)))
		return
	}

	vertices := b.buffers.Get(uint32(cmd.VertexBuffer))
	if vertices == nil || vertices.target != gl.ARRAY_BUFFER {
		slog.Warn("Draw with invalid vertex buffer", slog.Int("buffer", int(cmd.VertexBuffer)))
		return
	}

	var indices *bufferRes
	if cmd.IndexBuffer.Valid() {
		indices = b.buffers.Get(uint32(cmd.IndexBuffer))
		if indices == nil || indices.target != gl.ELEMENT_ARRAY_BUFFER {
			slog.Warn("Draw with invalid index buffer", slog.Int("buffer", int(cmd.IndexBuffer)))
			return
		}
	}

	if cmd.ElementCount <= 0 {
		return
	}

	b.passes.Ensure()

	gl.UseProgram(shader.program)
	applyState(&pipeline.desc)

	gl.BindVertexArray(pipeline.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vertices.id)
	bindAttrs(shader, &pipeline.desc)

	// bind the sampler slots the shader declares
	for i, name := range shader.desc.Textures {
		gl.ActiveTexture(uint32(gl.TEXTURE0 + i))

		tex := b.bound[i]
		if res := b.textures.Get(uint32(tex)); res != nil {
			gl.BindTexture(gl.TEXTURE_2D, res.id)
		} else {
			gl.BindTexture(gl.TEXTURE_2D, 0)
		}

		if loc := shader.uniformLocation(name); loc >= 0 {
			gl.Uniform1i(loc, int32(i))
		}
	}

	shader.flushUniforms()

	mode := glPrimitive(pipeline.desc.Primitive)

	if indices != nil {
		xtype := uint32(gl.UNSIGNED_SHORT)
		indexSize := 2

		if pipeline.desc.IndexUint32 {
			xtype = gl.UNSIGNED_INT
			indexSize = 4
		}

		offset := cmd.BaseElement * indexSize

		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, indices.id)

		if cmd.Instances() > 1 {
			gl.DrawElementsInstanced(mode, int32(cmd.ElementCount), xtype,
				gl.PtrOffset(offset), int32(cmd.Instances()))
		} else {
			gl.DrawElements(mode, int32(cmd.ElementCount), xtype, gl.PtrOffset(offset))
		}
	} else {
		if cmd.Instances() > 1 {
			gl.DrawArraysInstanced(mode, int32(cmd.BaseElement),
				int32(cmd.ElementCount), int32(cmd.Instances()))
		} else {
			gl.DrawArrays(mode, int32(cmd.BaseElement), int32(cmd.ElementCount))
		}
	}

	gl.BindVertexArray(0)
}

// Screenshot reads the default framebuffer back into an image. GL rows
// start at the bottom, the copy flips them.
func (b *Backend) Screenshot() (*image.RGBA, error) {
	b.passes.Finish()

	width, height := b.width, b.height

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	raw := make([]byte, width*height*4)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(raw))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		src := raw[(height-1-y)*width*4 : (height-y)*width*4]
		copy(img.Pix[y*img.Stride:], src)
	}

	return img, nil
}
