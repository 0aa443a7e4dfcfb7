package webgpu

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oliverbestmann/treads/render"
	"github.com/oliverbestmann/treads/render/std140"
)

// maxUniformBlocks bounds the number of uniform blocks a single shader may
// declare. The bind group cache key embeds one ring offset per block.
const maxUniformBlocks = 4

type shaderRes struct {
	desc   render.ShaderDesc
	module *wgpu.ShaderModule

	uniforms *std140.Set

	// ring offset of the most recent upload, per block slot
	blockOffsets [maxUniformBlocks]uint64
}

func (b *Backend) CreateShader(desc *render.ShaderDesc) render.Shader {
	if desc.WGSL == "" {
		slog.Error("Shader has no WGSL source", slog.String("name", desc.Name))
		return 0
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.WGSL,
		},
	})
	if err != nil {
		slog.Error("Compile shader failed",
			slog.String("name", desc.Name),
			slog.Any("error", err))

		return 0
	}

	var blocks []*std140.Block
	for _, blockDesc := range desc.Blocks {
		if int(blockDesc.Slot) >= maxUniformBlocks {
			slog.Warn("Uniform block slot out of range",
				slog.String("shader", desc.Name),
				slog.String("block", blockDesc.Name),
				slog.Int("slot", int(blockDesc.Slot)))

			continue
		}

		blocks = append(blocks, std140.NewBlock(blockDesc.Name, blockDesc.Slot, blockDesc.Members()))
	}

	id, res := b.shaders.Alloc()
	if res == nil {
		module.Release()
		return 0
	}

	res.desc = *desc
	res.module = module
	res.uniforms = std140.NewSet(blocks...)

	return render.Shader(id)
}

// ReloadShader swaps the WGSL module of a live shader for newly compiled
// source. The handle and the uniform state stay valid, pipelines built on
// the shader are respecialized on their next draw. Source fields left empty
// keep their current text, a reload that carries only GLSL changes nothing
// here.
func (b *Backend) ReloadShader(shader render.Shader, desc *render.ShaderDesc) {
	res := b.shaders.Get(uint32(shader))
	if res == nil {
		slog.Warn("Reload of invalid shader", slog.Int("shader", int(shader)))
		return
	}

	if desc.WGSL == "" {
		return
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: res.desc.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.WGSL,
		},
	})
	if err != nil {
		slog.Error("Shader reload failed, keeping previous module",
			slog.String("name", res.desc.Name),
			slog.Any("error", err))

		return
	}

	res.module.Release()
	res.module = module
	res.desc.WGSL = desc.WGSL

	b.invalidatePipelines(shader)
}

// invalidatePipelines drops every cached pipeline specialization built on
// the given shader.
func (b *Backend) invalidatePipelines(shader render.Shader) {
	for _, key := range b.pipelines.Keys() {
		res := b.pipelineTable.Get(key.pipeline)
		if res != nil && res.desc.Shader == shader {
			b.pipelines.Remove(key)
		}
	}
}

func (b *Backend) DestroyShader(shader render.Shader) {
	res := b.shaders.Get(uint32(shader))
	if res == nil {
		return
	}

	res.module.Release()
	b.shaders.Release(uint32(shader))
}

// flushUniforms uploads all dirty uniform blocks to the ring and records
// the resulting offsets so the bind group for this draw sees them.
func (b *Backend) flushUniforms(res *shaderRes) {
	res.uniforms.DirtyBlocks(func(block *std140.Block) {
		res.blockOffsets[block.Slot] = b.ring.push(block.Bytes())
	})
}

// attrLocation resolves a vertex attribute name to its shader location,
// which is the index of the name in the shader's attribute list.
func attrLocation(desc *render.ShaderDesc, name string) int {
	for i, attr := range desc.Attrs {
		if attr == name {
			return i
		}
	}

	return -1
}
