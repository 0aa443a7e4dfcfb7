package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oliverbestmann/treads/render"
)

// bindKey identifies a bind group by everything that goes into it. Equal
// keys produce equal bind groups, so they can be reused across draws.
type bindKey struct {
	layout   *wgpu.BindGroupLayout
	shader   uint32
	textures [render.MaxTextureSlots]render.Texture
	offsets  [maxUniformBlocks]uint64
}

func (b *Backend) sampler(desc wgpu.SamplerDescriptor) (*wgpu.Sampler, error) {
	if sampler, ok := b.samplers.Get(desc); ok {
		return sampler, nil
	}

	sampler, err := b.device.CreateSampler(&desc)
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}

	b.samplers.Add(desc, sampler)

	return sampler, nil
}

// bindGroup builds (or reuses) the bind group for a draw. Uniform blocks
// occupy the first bindings in slot order, each texture then takes two
// bindings, one for the view and one for its sampler.
func (b *Backend) bindGroup(shaderID uint32, shader *shaderRes, layout *wgpu.BindGroupLayout) (*wgpu.BindGroup, error) {
	key := bindKey{
		layout:  layout,
		shader:  shaderID,
		offsets: shader.blockOffsets,
	}

	for i := range shader.desc.Textures {
		key.textures[i] = b.bound[i]
	}

	if group, ok := b.bindGroups.Get(key); ok {
		return group, nil
	}

	var entries []wgpu.BindGroupEntry

	for _, block := range shader.uniforms.Blocks {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: block.Slot,
			Buffer:  b.ring.buffer,
			Offset:  shader.blockOffsets[block.Slot],
			Size:    uint64(block.Size),
		})
	}

	textureBase := uint32(len(shader.desc.Blocks))

	for i := range shader.desc.Textures {
		res := b.textures.Get(uint32(b.bound[i]))
		if res == nil {
			res = b.white
		}

		sampler, err := b.sampler(res.sampler)
		if err != nil {
			return nil, err
		}

		entries = append(entries,
			wgpu.BindGroupEntry{
				Binding:     textureBase + uint32(2*i),
				TextureView: res.view,
			},
			wgpu.BindGroupEntry{
				Binding: textureBase + uint32(2*i) + 1,
				Sampler: sampler,
			},
		)
	}

	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}

	b.bindGroups.Add(key, group)

	return group, nil
}

// invalidateBindGroups drops cached bind groups that reference a texture
// which is going away.
func (b *Backend) invalidateBindGroups(tex render.Texture) {
	for _, key := range b.bindGroups.Keys() {
		for _, bound := range key.textures {
			if bound == tex {
				b.bindGroups.Remove(key)
				break
			}
		}
	}
}

