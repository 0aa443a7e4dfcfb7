package webgpu

import (
	"fmt"
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oliverbestmann/treads/render"
)

type pipelineRes struct {
	desc render.PipelineDesc
}

// pipelineKey specializes a pipeline for the pass it is used in. The same
// logical pipeline needs separate gpu pipelines per attachment layout.
type pipelineKey struct {
	pipeline uint32
	format   wgpu.TextureFormat
	hasDepth bool
}

type cachedPipeline struct {
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.BindGroupLayout
}

func (c cachedPipeline) release() {
	if c.layout != nil {
		c.layout.Release()
	}

	if c.pipeline != nil {
		c.pipeline.Release()
	}
}

func (b *Backend) CreatePipeline(desc *render.PipelineDesc) render.Pipeline {
	if b.shaders.Get(uint32(desc.Shader)) == nil {
		slog.Warn("Pipeline references invalid shader",
			slog.String("label", desc.Label),
			slog.Int("shader", int(desc.Shader)))

		return 0
	}

	id, res := b.pipelineTable.Alloc()
	if res == nil {
		return 0
	}

	res.desc = *desc

	return render.Pipeline(id)
}

func (b *Backend) DestroyPipeline(pipeline render.Pipeline) {
	if b.pipelineTable.Get(uint32(pipeline)) == nil {
		return
	}

	// drop all specializations of this pipeline
	for _, key := range b.pipelines.Keys() {
		if key.pipeline == uint32(pipeline) {
			b.pipelines.Remove(key)
		}
	}

	b.pipelineTable.Release(uint32(pipeline))
}

// specialize returns the gpu pipeline for the given pipeline in the current
// pass, building and caching it on first use.
func (b *Backend) specialize(id uint32, res *pipelineRes, format wgpu.TextureFormat, hasDepth bool) (cachedPipeline, error) {
	key := pipelineKey{pipeline: id, format: format, hasDepth: hasDepth}
	if cached, ok := b.pipelines.Get(key); ok {
		return cached, nil
	}

	shader := b.shaders.Get(uint32(res.desc.Shader))
	if shader == nil {
		return cachedPipeline{}, fmt.Errorf("pipeline %q references a destroyed shader", res.desc.Label)
	}

	pipeline, err := b.buildPipeline(&res.desc, shader, format, hasDepth)
	if err != nil {
		return cachedPipeline{}, err
	}

	layout := pipeline.GetBindGroupLayout(0)

	cached := cachedPipeline{pipeline: pipeline, layout: layout}
	b.pipelines.Add(key, cached)

	return cached, nil
}

func (b *Backend) buildPipeline(desc *render.PipelineDesc, shader *shaderRes, format wgpu.TextureFormat, hasDepth bool) (*wgpu.RenderPipeline, error) {
	var attributes []wgpu.VertexAttribute

	for _, attr := range desc.Attrs {
		location := attrLocation(&shader.desc, attr.Name)
		if location < 0 {
			slog.Warn("Vertex attribute not declared by shader",
				slog.String("pipeline", desc.Label),
				slog.String("attribute", attr.Name))

			continue
		}

		attributes = append(attributes, wgpu.VertexAttribute{
			Format:         wgpuVertexFormat(attr.Format),
			Offset:         uint64(attr.Offset),
			ShaderLocation: uint32(location),
		})
	}

	var depthStencil *wgpu.DepthStencilState
	if hasDepth {
		compare := wgpu.CompareFunctionAlways
		if desc.DepthTest {
			compare = wgpu.CompareFunctionLess
		}

		depthStencil = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: desc.DepthWrite,
			DepthCompare:      compare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilReadMask:  0xFFFFFFFF,
			StencilWriteMask: 0xFFFFFFFF,
		}
	}

	return b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: desc.Label,
		Vertex: wgpu.VertexState{
			Module:     shader.module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(desc.VertexStride()),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes:  attributes,
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader.module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					Blend:     wgpuBlend(desc.Blend),
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpuTopology(desc.Primitive),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpuCull(desc.Cull),
		},
		DepthStencil: depthStencil,
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
}

func wgpuVertexFormat(format render.VertexFormat) wgpu.VertexFormat {
	switch format {
	case render.Float:
		return wgpu.VertexFormatFloat32
	case render.Float2:
		return wgpu.VertexFormatFloat32x2
	case render.Float3:
		return wgpu.VertexFormatFloat32x3
	case render.Float4:
		return wgpu.VertexFormatFloat32x4
	case render.UByte4N:
		return wgpu.VertexFormatUnorm8x4
	default:
		return wgpu.VertexFormatFloat32
	}
}

func wgpuTopology(primitive render.Primitive) wgpu.PrimitiveTopology {
	switch primitive {
	case render.TriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	case render.Lines:
		return wgpu.PrimitiveTopologyLineList
	case render.LineStrip:
		return wgpu.PrimitiveTopologyLineStrip
	case render.Points:
		return wgpu.PrimitiveTopologyPointList
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func wgpuCull(cull render.Cull) wgpu.CullMode {
	switch cull {
	case render.CullBack:
		return wgpu.CullModeBack
	case render.CullFront:
		return wgpu.CullModeFront
	default:
		return wgpu.CullModeNone
	}
}

func wgpuBlend(blend render.Blend) *wgpu.BlendState {
	switch blend {
	case render.BlendAlpha:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}

	case render.BlendAdditive:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
		}

	case render.BlendMultiply:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorDst,
				DstFactor: wgpu.BlendFactorZero,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorDst,
				DstFactor: wgpu.BlendFactorZero,
				Operation: wgpu.BlendOperationAdd,
			},
		}

	case render.BlendPremultiplied:
		return &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}

	default:
		return nil
	}
}
