package webgpu

import (
	"log/slog"

	"github.com/cogentcore/webgpu/wgpu"
)

// uniformOffsetAlignment is the required alignment for dynamic and bind
// group buffer offsets.
const uniformOffsetAlignment = 256

// uniformRingSize holds one frame worth of uniform block uploads. At 256
// bytes per upload this is 4096 dirty blocks per frame.
const uniformRingSize = 1 << 20

// uniformRing is a single buffer that uniform block contents are appended
// to as draws flush their dirty blocks. Bind groups reference slices of it
// by offset. The ring restarts every frame, so submit order and write order
// agree within a frame.
type uniformRing struct {
	buffer *wgpu.Buffer
	queue  *wgpu.Queue
	offset uint64
}

func newUniformRing(device *wgpu.Device) *uniformRing {
	buffer, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Uniforms",
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:  uniformRingSize,
	})
	if err != nil {
		slog.Error("Create uniform buffer failed", slog.Any("error", err))
		return &uniformRing{queue: device.GetQueue()}
	}

	return &uniformRing{buffer: buffer, queue: device.GetQueue()}
}

func (r *uniformRing) reset() {
	r.offset = 0
}

// push uploads data to the ring and returns the offset it was written at.
func (r *uniformRing) push(data []byte) uint64 {
	if r.buffer == nil {
		return 0
	}

	size := alignUp(uint64(len(data)), uniformOffsetAlignment)

	if r.offset+size > uniformRingSize {
		slog.Warn("Uniform buffer exhausted, restarting within frame")
		r.offset = 0
	}

	offset := r.offset
	r.offset += size

	if err := r.queue.WriteBuffer(r.buffer, offset, data); err != nil {
		slog.Error("Uniform upload failed", slog.Any("error", err))
	}

	return offset
}

func (r *uniformRing) release() {
	if r.buffer != nil {
		r.buffer.Release()
	}

	if r.queue != nil {
		r.queue.Release()
	}
}

func alignUp(value, alignment uint64) uint64 {
	return (value + alignment - 1) &^ (alignment - 1)
}
