package webgpu

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/oliverbestmann/treads/render"
)

func (b *Backend) Draw(cmd *render.DrawCommand) {
	pipeline := b.pipelineTable.Get(uint32(cmd.Pipeline))
	if pipeline == nil {
		slog.Warn("Draw with invalid pipeline", slog.Int("pipeline", int(cmd.Pipeline)))
		return
	}

	shaderID := uint32(pipeline.desc.Shader)

	shader := b.shaders.Get(shaderID)
	if shader == nil {
		slog.Warn("Draw with destroyed shader", slog.Int("shader", int(shaderID)))
		return
	}

	vertices := b.buffers.Get(uint32(cmd.VertexBuffer))
	if vertices == nil || vertices.kind != render.VertexBuffer {
		slog.Warn("Draw with invalid vertex buffer", slog.Int("buffer", int(cmd.VertexBuffer)))
		return
	}

	var indices *bufferRes
	if cmd.IndexBuffer.Valid() {
		indices = b.buffers.Get(uint32(cmd.IndexBuffer))
		if indices == nil || indices.kind != render.IndexBuffer {
			slog.Warn("Draw with invalid index buffer", slog.Int("buffer", int(cmd.IndexBuffer)))
			return
		}
	}

	if cmd.ElementCount <= 0 {
		return
	}

	format, hasDepth := b.targetLayout()

	b.passes.Ensure()

	if b.renderPass == nil {
		return
	}

	cached, err := b.specialize(uint32(cmd.Pipeline), pipeline, format, hasDepth)
	if err != nil {
		slog.Error("Pipeline specialization failed", slog.Any("error", err))
		return
	}

	b.flushUniforms(shader)

	group, err := b.bindGroup(shaderID, shader, cached.layout)
	if err != nil {
		slog.Error("Bind group creation failed", slog.Any("error", err))
		return
	}

	pass := b.renderPass
	pass.SetPipeline(cached.pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.SetVertexBuffer(0, vertices.buffer, 0, wgpu.WholeSize)

	instances := uint32(cmd.Instances())

	if indices != nil {
		indexFormat := wgpu.IndexFormatUint16
		if pipeline.desc.IndexUint32 {
			indexFormat = wgpu.IndexFormatUint32
		}

		pass.SetIndexBuffer(indices.buffer, indexFormat, 0, wgpu.WholeSize)
		pass.DrawIndexed(uint32(cmd.ElementCount), instances, uint32(cmd.BaseElement), 0, 0)
	} else {
		pass.Draw(uint32(cmd.ElementCount), instances, uint32(cmd.BaseElement), 0)
	}
}

// targetLayout reports the color format and depth presence of the target
// the next pass will render into.
func (b *Backend) targetLayout() (wgpu.TextureFormat, bool) {
	target := b.passes.Target()
	if target != 0 {
		res := b.targets.Get(target)
		if res != nil {
			return wgpuFormat(res.format), res.depthView != nil
		}
	}

	_, format := b.defaultView()

	return format, b.depthView != nil
}

func (b *Backend) Screenshot() (*image.RGBA, error) {
	b.passes.Finish()

	var source *wgpu.Texture
	var format wgpu.TextureFormat

	if b.surface != nil {
		if b.surfaceTexture == nil {
			return nil, fmt.Errorf("no frame in flight to read back")
		}

		source = b.surfaceTexture
		format = b.surfaceConfig.Format
	} else {
		source = b.screen.texture
		format = wgpu.TextureFormatRGBA8Unorm
	}

	width, height := b.width, b.height

	// rows in the readback buffer are padded to the copy alignment
	bytesPerRow := alignUp(uint64(width*4), 256)
	size := bytesPerRow * uint64(height)

	readback, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Screenshot",
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	if err != nil {
		return nil, fmt.Errorf("create readback buffer: %w", err)
	}

	defer readback.Release()

	encoder := b.encoder
	if encoder == nil {
		encoder, err = b.device.CreateCommandEncoder(nil)
		if err != nil {
			return nil, fmt.Errorf("create command encoder: %w", err)
		}
	}

	err = encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture: source,
			Aspect:  wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: readback,
			Layout: wgpu.TextureDataLayout{
				BytesPerRow:  uint32(bytesPerRow),
				RowsPerImage: uint32(height),
			},
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
	if err != nil {
		encoder.Release()

		if encoder == b.encoder {
			b.encoder = nil
		}

		return nil, fmt.Errorf("copy to readback buffer: %w", err)
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish command encoder: %w", err)
	}

	b.queue.Submit(cmdBuffer)
	cmdBuffer.Release()
	encoder.Release()

	if b.encoder != nil {
		// the frame encoder was consumed, continue recording into a new one
		b.encoder, err = b.device.CreateCommandEncoder(nil)
		if err != nil {
			return nil, fmt.Errorf("create command encoder: %w", err)
		}
	}

	var mapErr error
	done := false

	err = readback.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("map readback buffer: status %v", status)
		}

		done = true
	})
	if err != nil {
		return nil, fmt.Errorf("map readback buffer: %w", err)
	}

	for !done {
		b.device.Poll(true, nil)
	}

	if mapErr != nil {
		return nil, mapErr
	}

	defer readback.Unmap()

	data := readback.GetMappedRange(0, uint(size))

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		row := data[uint64(y)*bytesPerRow:][:width*4]
		copy(img.Pix[y*img.Stride:], row)
	}

	if format == wgpu.TextureFormatBGRA8Unorm {
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}

	return img, nil
}
