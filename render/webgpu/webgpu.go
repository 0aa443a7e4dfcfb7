// Package webgpu implements the render backend on wgpu-native. With a
// surface descriptor in the config it presents to a window, without one it
// renders into an offscreen texture, which is enough for screenshots and
// automated runs.
package webgpu

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oliverbestmann/treads/render"
	"github.com/oliverbestmann/treads/render/pass"
	"github.com/oliverbestmann/treads/render/slot"
	"github.com/oliverbestmann/treads/render/std140"
)

var forceFallbackAdapter = os.Getenv("WGPU_FORCE_FALLBACK_ADAPTER") == "1"

func init() {
	runtime.LockOSThread()

	switch strings.ToUpper(os.Getenv("WGPU_LOG_LEVEL")) {
	case "OFF":
		wgpu.SetLogLevel(wgpu.LogLevelOff)
	case "ERROR":
		wgpu.SetLogLevel(wgpu.LogLevelError)
	case "WARN":
		wgpu.SetLogLevel(wgpu.LogLevelWarn)
	case "INFO":
		wgpu.SetLogLevel(wgpu.LogLevelInfo)
	case "DEBUG":
		wgpu.SetLogLevel(wgpu.LogLevelDebug)
	case "TRACE":
		wgpu.SetLogLevel(wgpu.LogLevelTrace)
	}

	render.RegisterBackend("webgpu", func() render.Backend {
		return &Backend{}
	})
}

type Backend struct {
	device  *wgpu.Device
	queue   *wgpu.Queue
	adapter *wgpu.Adapter

	surface       *wgpu.Surface
	surfaceConfig *wgpu.SurfaceConfiguration

	width, height int
	dpiScale      float32

	// offscreen color target used when no surface is configured
	screen *screenTexture

	// depth attachment for the default target
	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	// per frame state
	surfaceTexture *wgpu.Texture
	surfaceView    *wgpu.TextureView
	encoder        *wgpu.CommandEncoder
	renderPass     *wgpu.RenderPassEncoder

	// staging buffers for updates recorded into the frame encoder, they
	// live until the frame is submitted
	staging []*wgpu.Buffer

	ring *uniformRing

	samplers   *lru.Cache[wgpu.SamplerDescriptor, *wgpu.Sampler]
	bindGroups *lru.Cache[bindKey, *wgpu.BindGroup]
	pipelines  *lru.Cache[pipelineKey, cachedPipeline]

	shaders       *slot.Table[shaderRes]
	textures      *slot.Table[textureRes]
	buffers       *slot.Table[bufferRes]
	pipelineTable *slot.Table[pipelineRes]
	targets       *slot.Table[targetRes]

	// placeholder bound to texture slots nothing was bound to
	white *textureRes

	passes pass.Manager
	bound  [render.MaxTextureSlots]render.Texture
}

type screenTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (b *Backend) Name() string {
	return "webgpu"
}

func (b *Backend) Init(config *render.Config) error {
	b.width = config.Width
	b.height = config.Height
	b.dpiScale = config.DPIScale

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	var compatibleSurface *wgpu.Surface

	if sd, ok := config.Surface.(*wgpu.SurfaceDescriptor); ok && sd != nil {
		b.surface = instance.CreateSurface(sd)
		compatibleSurface = b.surface
	}

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    compatibleSurface,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}

	b.adapter = adapter

	b.device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}

	b.queue = b.device.GetQueue()

	if b.surface != nil {
		caps := b.surface.GetCapabilities(b.adapter)
		slog.Info("Available surface formats", slog.Any("formats", caps.Formats))

		b.surfaceConfig = &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
			Format:      wgpu.TextureFormatBGRA8Unorm,
			PresentMode: wgpu.PresentModeFifo,
			AlphaMode:   caps.AlphaModes[0],
		}

		b.configureSurface()
	} else {
		if err := b.createScreenTexture(); err != nil {
			return err
		}
	}

	if err := b.createDepthTexture(); err != nil {
		return err
	}

	b.ring = newUniformRing(b.device)

	b.samplers, _ = lru.NewWithEvict[wgpu.SamplerDescriptor, *wgpu.Sampler](16,
		func(_ wgpu.SamplerDescriptor, sampler *wgpu.Sampler) {
			sampler.Release()
		})

	b.bindGroups, _ = lru.NewWithEvict[bindKey, *wgpu.BindGroup](64,
		func(_ bindKey, group *wgpu.BindGroup) {
			group.Release()
		})

	b.pipelines, _ = lru.NewWithEvict[pipelineKey, cachedPipeline](16,
		func(_ pipelineKey, cached cachedPipeline) {
			cached.release()
		})

	b.shaders = slot.NewTable[shaderRes]("shaders", render.MaxShaders)
	b.textures = slot.NewTable[textureRes]("textures", render.MaxTextures)
	b.buffers = slot.NewTable[bufferRes]("buffers", render.MaxBuffers)
	b.pipelineTable = slot.NewTable[pipelineRes]("pipelines", render.MaxPipelines)
	b.targets = slot.NewTable[targetRes]("render targets", render.MaxRenderTargets)

	white, err := b.createTextureRes(&render.TextureDesc{
		Label:  "White",
		Width:  1,
		Height: 1,
		Pixels: []byte{0xff, 0xff, 0xff, 0xff},
	})
	if err != nil {
		return fmt.Errorf("create placeholder texture: %w", err)
	}

	b.white = white

	b.passes.Begin = b.beginPass
	b.passes.End = b.endPass

	return nil
}

func (b *Backend) Close() {
	b.passes.Finish()
	b.abortFrame()

	b.textures.Each(func(_ uint32, res *textureRes) {
		res.release()
	})
	b.buffers.Each(func(_ uint32, res *bufferRes) {
		res.buffer.Release()
	})
	b.shaders.Each(func(_ uint32, res *shaderRes) {
		res.module.Release()
	})

	if b.white != nil {
		b.white.release()
	}

	b.bindGroups.Purge()
	b.pipelines.Purge()
	b.samplers.Purge()

	if b.ring != nil {
		b.ring.release()
	}

	b.releaseDepthTexture()

	if b.screen != nil {
		b.screen.view.Release()
		b.screen.texture.Release()
	}

	if b.queue != nil {
		b.queue.Release()
	}

	if b.device != nil {
		b.device.Release()
	}

	if b.adapter != nil {
		b.adapter.Release()
	}

	if b.surface != nil {
		b.surface.Release()
	}
}

func (b *Backend) Viewport() (int, int) {
	return b.width, b.height
}

func (b *Backend) SetViewport(width, height int) {
	if width == b.width && height == b.height {
		return
	}

	b.width, b.height = width, height

	if b.surface != nil {
		b.configureSurface()
	} else if err := b.createScreenTexture(); err != nil {
		slog.Error("Resize offscreen target failed", slog.Any("error", err))
	}

	if err := b.createDepthTexture(); err != nil {
		slog.Error("Resize depth texture failed", slog.Any("error", err))
	}
}

func (b *Backend) DPIScale() float32 {
	return b.dpiScale
}

func (b *Backend) configureSurface() {
	b.surfaceConfig.Width = uint32(b.width)
	b.surfaceConfig.Height = uint32(b.height)
	b.surface.Configure(b.adapter, b.device, b.surfaceConfig)
}

func (b *Backend) createScreenTexture() error {
	if b.screen != nil {
		b.screen.view.Release()
		b.screen.texture.Release()
		b.screen = nil
	}

	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Screen",
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
		Size: wgpu.Extent3D{
			Width:              uint32(b.width),
			Height:             uint32(b.height),
			DepthOrArrayLayers: 1,
		},
		Usage: wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create offscreen target: %w", err)
	}

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return fmt.Errorf("create offscreen target view: %w", err)
	}

	b.screen = &screenTexture{texture: texture, view: view}

	return nil
}

func (b *Backend) releaseDepthTexture() {
	if b.depthView != nil {
		b.depthView.Release()
		b.depthView = nil
	}

	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

func (b *Backend) createDepthTexture() error {
	b.releaseDepthTexture()

	texture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth",
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		MipLevelCount: 1,
		SampleCount:   1,
		Size: wgpu.Extent3D{
			Width:              uint32(b.width),
			Height:             uint32(b.height),
			DepthOrArrayLayers: 1,
		},
		Usage: wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}

	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return fmt.Errorf("create depth texture view: %w", err)
	}

	b.depthTexture = texture
	b.depthView = view

	return nil
}

func (b *Backend) BeginFrame() {
	b.ring.reset()

	if b.surface != nil {
		texture, err := b.surface.GetCurrentTexture()
		if err != nil {
			// surface got outdated, reconfigure and try again
			slog.Warn("Acquire surface texture failed, reconfiguring", slog.Any("error", err))

			b.configureSurface()

			texture, err = b.surface.GetCurrentTexture()
			if err != nil {
				slog.Error("Acquire surface texture failed", slog.Any("error", err))
				return
			}
		}

		view, err := texture.CreateView(nil)
		if err != nil {
			slog.Error("Create surface view failed", slog.Any("error", err))
			return
		}

		b.surfaceTexture = texture
		b.surfaceView = view
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		slog.Error("Create command encoder failed", slog.Any("error", err))
		return
	}

	b.encoder = encoder
}

func (b *Backend) EndFrame() {
	b.passes.Finish()

	if b.passes.Target() != 0 {
		b.passes.SetTarget(0)
	}

	if b.encoder != nil {
		cmdBuffer, err := b.encoder.Finish(nil)
		if err != nil {
			slog.Error("Finish command encoder failed", slog.Any("error", err))
		} else {
			b.queue.Submit(cmdBuffer)
			cmdBuffer.Release()
		}

		b.encoder.Release()
		b.encoder = nil
	}

	if b.surface != nil && b.surfaceTexture != nil {
		b.surface.Present()
	}

	b.releaseFrameState()
}

// abortFrame drops a half recorded frame without submitting it.
func (b *Backend) abortFrame() {
	if b.encoder != nil {
		b.encoder.Release()
		b.encoder = nil
	}

	b.releaseFrameState()
}

func (b *Backend) releaseFrameState() {
	for _, staging := range b.staging {
		staging.Release()
	}

	b.staging = b.staging[:0]

	if b.surfaceView != nil {
		b.surfaceView.Release()
		b.surfaceView = nil
	}

	if b.surfaceTexture != nil {
		b.surfaceTexture.Release()
		b.surfaceTexture = nil
	}
}

// defaultView returns the color view of the default target together with
// its format and whether a depth attachment exists.
func (b *Backend) defaultView() (*wgpu.TextureView, wgpu.TextureFormat) {
	if b.surface != nil {
		return b.surfaceView, b.surfaceConfig.Format
	}

	return b.screen.view, wgpu.TextureFormatRGBA8Unorm
}

func (b *Backend) beginPass(target uint32, action pass.Action) {
	if b.encoder == nil {
		return
	}

	var view *wgpu.TextureView
	var depthView *wgpu.TextureView

	if target != 0 {
		res := b.targets.Get(target)
		if res == nil {
			return
		}

		view = res.view
		depthView = res.depthView
	} else {
		view, _ = b.defaultView()
		depthView = b.depthView
	}

	if view == nil {
		return
	}

	colorLoadOp := wgpu.LoadOpLoad
	if action.ColorOp == pass.Clear {
		colorLoadOp = wgpu.LoadOpClear
	}

	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  colorLoadOp,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(action.Color[0]),
					G: float64(action.Color[1]),
					B: float64(action.Color[2]),
					A: float64(action.Color[3]),
				},
			},
		},
	}

	if depthView != nil {
		depthLoadOp := wgpu.LoadOpLoad
		if action.DepthOp == pass.Clear {
			depthLoadOp = wgpu.LoadOpClear
		}

		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     depthLoadOp,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: action.Depth,
		}
	}

	b.renderPass = b.encoder.BeginRenderPass(desc)
}

func (b *Backend) endPass() {
	if b.renderPass == nil {
		return
	}

	if err := b.renderPass.End(); err != nil {
		slog.Error("End render pass failed", slog.Any("error", err))
	}

	b.renderPass.Release()
	b.renderPass = nil
}

func (b *Backend) SetRenderTarget(target render.RenderTarget) {
	if target.Valid() && !b.targets.Used(uint32(target)) {
		slog.Warn("Switch to invalid render target", slog.Int("target", int(target)))
		return
	}

	b.passes.SetTarget(uint32(target))
}

func (b *Backend) Clear(r, g, bl, a, depth float32) {
	b.passes.ClearAll(r, g, bl, a, depth)
}

func (b *Backend) ClearColor(r, g, bl, a float32) {
	b.passes.ClearColor(r, g, bl, a)
}

func (b *Backend) ClearDepth(depth float32) {
	b.passes.ClearDepth(depth)
}

func (b *Backend) BindTexture(texSlot int, tex render.Texture) {
	if texSlot < 0 || texSlot >= render.MaxTextureSlots {
		slog.Warn("Texture slot out of range", slog.Int("slot", texSlot))
		return
	}

	if tex.Valid() && !b.textures.Used(uint32(tex)) {
		slog.Warn("Bind of invalid texture",
			slog.Int("slot", texSlot),
			slog.Int("texture", int(tex)))

		b.bound[texSlot] = 0
		return
	}

	b.bound[texSlot] = tex
}

func (b *Backend) SetUniform(shader render.Shader, name string, ty std140.Type, data []byte) {
	res := b.shaders.Get(uint32(shader))
	if res == nil {
		slog.Warn("Uniform write to invalid shader", slog.Int("shader", int(shader)))
		return
	}

	res.uniforms.Write(name, ty, data)
}
