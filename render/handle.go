package render

// Resource handles are small opaque ids handed out by the active backend.
// The zero value of every handle type is invalid, operations on invalid
// handles are logged and skipped instead of failing.

type Shader uint32

type Texture uint32

type Buffer uint32

type Pipeline uint32

type RenderTarget uint32

func (h Shader) Valid() bool       { return h != 0 }
func (h Texture) Valid() bool      { return h != 0 }
func (h Buffer) Valid() bool       { return h != 0 }
func (h Pipeline) Valid() bool     { return h != 0 }
func (h RenderTarget) Valid() bool { return h != 0 }

// Default capacities of the per resource slot tables.
const (
	MaxShaders       = 64
	MaxTextures      = 256
	MaxBuffers       = 256
	MaxPipelines     = 64
	MaxRenderTargets = 32
)

// MaxTextureSlots is the number of sampler slots draws can bind.
const MaxTextureSlots = 8
