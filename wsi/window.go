// Package wsi opens the window the webgpu backend presents into and feeds
// input and resize events to the frame loop.
package wsi

import "github.com/cogentcore/webgpu/wgpu"

type Window interface {
	// Size returns the current framebuffer size in pixels.
	Size() (int, int)

	// DPIScale returns the content scale of the monitor the window is on.
	DPIScale() float32

	// SurfaceDescriptor returns the platform surface for the backend config.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Run drives the frame loop until the window is closed or frame
	// returns an error. The input state passed to frame is only valid for
	// that frame.
	Run(frame func(input InputState) error) error

	Terminate()
}
