package gl33

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/oliverbestmann/treads/render"
	"github.com/oliverbestmann/treads/render/std140"
)

// pendingUniform buffers a uniform value for shaders that declare no
// uniform blocks. The glUniform call needs the program bound, so the value
// is applied at draw time.
type pendingUniform struct {
	ty   std140.Type
	data []byte
}

type shaderRes struct {
	program uint32
	desc    *render.ShaderDesc

	// std140 shadow blocks and their backing uniform buffer objects,
	// only present when the descriptor declares blocks
	uniforms *std140.Set
	ubos     map[uint32]uint32

	// fallback path for blockless glsl
	pending map[string]pendingUniform
	locs    map[string]int32

	attrLocs map[string]int32
}

func (b *Backend) CreateShader(desc *render.ShaderDesc) render.Shader {
	program, err := linkProgram(desc.VertexSource, desc.FragmentSource)
	if err != nil {
		slog.Error("Shader compilation failed",
			slog.String("shader", desc.Name),
			slog.Any("error", err))

		return 0
	}

	id, res := b.shaders.Alloc()
	if res == nil {
		gl.DeleteProgram(program)
		return 0
	}

	res.program = program
	res.desc = desc
	res.pending = map[string]pendingUniform{}
	res.locs = map[string]int32{}
	res.attrLocs = map[string]int32{}

	if len(desc.Blocks) > 0 {
		res.initBlocks(desc)
	}

	return render.Shader(id)
}

// ReloadShader recompiles a live shader from new sources. The handle keeps
// working either way, a failed compile leaves the old program in place.
// Source fields left empty keep their current text. The uniform buffers and
// their values survive the reload, only the location caches are rebuilt.
func (b *Backend) ReloadShader(shader render.Shader, desc *render.ShaderDesc) {
	res := b.shaders.Get(uint32(shader))
	if res == nil {
		slog.Warn("Reload of invalid shader", slog.Int("shader", int(shader)))
		return
	}

	vert := res.desc.VertexSource
	if desc.VertexSource != "" {
		vert = desc.VertexSource
	}

	frag := res.desc.FragmentSource
	if desc.FragmentSource != "" {
		frag = desc.FragmentSource
	}

	program, err := linkProgram(vert, frag)
	if err != nil {
		slog.Error("Shader reload failed, keeping previous program",
			slog.String("shader", res.desc.Name),
			slog.Any("error", err))

		return
	}

	gl.DeleteProgram(res.program)
	res.program = program

	merged := *res.desc
	merged.VertexSource = vert
	merged.FragmentSource = frag
	res.desc = &merged

	clear(res.locs)
	clear(res.attrLocs)

	// wire the existing uniform buffers to the blocks of the new program
	for _, blockDesc := range merged.Blocks {
		index := gl.GetUniformBlockIndex(res.program, gl.Str(blockDesc.Name+"\x00"))
		if index == gl.INVALID_INDEX {
			slog.Warn("Uniform block not found in program",
				slog.String("shader", merged.Name),
				slog.String("block", blockDesc.Name))

			continue
		}

		gl.UniformBlockBinding(res.program, index, blockDesc.Slot)
	}
}

func (b *Backend) DestroyShader(shader render.Shader) {
	res := b.shaders.Get(uint32(shader))
	if res == nil {
		return
	}

	res.destroy()
	b.shaders.Release(uint32(shader))
}

// initBlocks creates one uniform buffer per declared block and wires the
// block to its binding slot.
func (res *shaderRes) initBlocks(desc *render.ShaderDesc) {
	blocks := make([]*std140.Block, 0, len(desc.Blocks))
	res.ubos = map[uint32]uint32{}

	for _, blockDesc := range desc.Blocks {
		block := std140.NewBlock(blockDesc.Name, blockDesc.Slot, blockDesc.Members())
		blocks = append(blocks, block)

		var ubo uint32
		gl.GenBuffers(1, &ubo)
		gl.BindBuffer(gl.UNIFORM_BUFFER, ubo)
		gl.BufferData(gl.UNIFORM_BUFFER, int(block.Size), nil, gl.DYNAMIC_DRAW)

		res.ubos[blockDesc.Slot] = ubo

		index := gl.GetUniformBlockIndex(res.program, gl.Str(blockDesc.Name+"\x00"))
		if index == gl.INVALID_INDEX {
			slog.Warn("Uniform block not found in program",
				slog.String("shader", desc.Name),
				slog.String("block", blockDesc.Name))

			continue
		}

		gl.UniformBlockBinding(res.program, index, blockDesc.Slot)
	}

	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)

	res.uniforms = std140.NewSet(blocks...)
}

func (res *shaderRes) setUniform(name string, ty std140.Type, data []byte) {
	if res.uniforms != nil {
		res.uniforms.Write(name, ty, data)
		return
	}

	res.pending[name] = pendingUniform{ty: ty, data: append([]byte(nil), data...)}
}

// flushUniforms uploads everything that changed since the last draw. The
// program must be in use.
func (res *shaderRes) flushUniforms() {
	if res.uniforms != nil {
		res.uniforms.DirtyBlocks(func(block *std140.Block) {
			ubo := res.ubos[block.Slot]
			gl.BindBuffer(gl.UNIFORM_BUFFER, ubo)
			gl.BufferSubData(gl.UNIFORM_BUFFER, 0, int(block.Size), gl.Ptr(block.Bytes()))
			gl.BindBufferBase(gl.UNIFORM_BUFFER, block.Slot, ubo)
		})

		return
	}

	for name, value := range res.pending {
		loc := res.uniformLocation(name)
		if loc < 0 {
			continue
		}

		ptr := gl.Ptr(value.data)

		switch value.ty {
		case std140.Float:
			gl.Uniform1fv(loc, 1, (*float32)(ptr))
		case std140.Vec2:
			gl.Uniform2fv(loc, 1, (*float32)(ptr))
		case std140.Vec3:
			gl.Uniform3fv(loc, 1, (*float32)(ptr))
		case std140.Vec4:
			gl.Uniform4fv(loc, 1, (*float32)(ptr))
		case std140.Mat4:
			gl.UniformMatrix4fv(loc, 1, false, (*float32)(ptr))
		case std140.Int:
			gl.Uniform1iv(loc, 1, (*int32)(ptr))
		}
	}

	clear(res.pending)
}

func (res *shaderRes) uniformLocation(name string) int32 {
	if loc, ok := res.locs[name]; ok {
		return loc
	}

	loc := gl.GetUniformLocation(res.program, gl.Str(name+"\x00"))
	res.locs[name] = loc

	return loc
}

func (res *shaderRes) attrLocation(name string) int32 {
	if loc, ok := res.attrLocs[name]; ok {
		return loc
	}

	loc := gl.GetAttribLocation(res.program, gl.Str(name+"\x00"))
	res.attrLocs[name] = loc

	return loc
}

func (res *shaderRes) destroy() {
	for _, ubo := range res.ubos {
		gl.DeleteBuffers(1, &ubo)
	}

	gl.DeleteProgram(res.program)
}

func linkProgram(vertexSource, fragmentSource string) (uint32, error) {
	vertex, err := compileShader(gl.VERTEX_SHADER, vertexSource)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}

	defer gl.DeleteShader(vertex)

	fragment, err := compileShader(gl.FRAGMENT_SHADER, fragmentSource)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}

	defer gl.DeleteShader(fragment)

	program := gl.CreateProgram()
	gl.AttachShader(program, vertex)
	gl.AttachShader(program, fragment)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))

		gl.DeleteProgram(program)

		return 0, fmt.Errorf("link: %s", strings.TrimRight(log, "\x00"))
	}

	return program, nil
}

func compileShader(shaderType uint32, source string) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()

	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))

		gl.DeleteShader(shader)

		return 0, fmt.Errorf("compile: %s", strings.TrimRight(log, "\x00"))
	}

	return shader, nil
}
