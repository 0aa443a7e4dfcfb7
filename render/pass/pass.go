// Package pass tracks the render pass state shared by all backends. Clears
// do not start a pass by themselves, they only queue a load action. The
// pass begins lazily with the first draw, so repeated clears and target
// switches without any draws cost nothing on the GPU.
package pass

// LoadOp selects what happens to an attachment when a pass begins.
type LoadOp uint8

const (
	// Load keeps the previous contents of the attachment.
	Load LoadOp = iota

	// Clear fills the attachment with the queued clear value.
	Clear
)

// Action is the queued load action for the next pass.
type Action struct {
	ColorOp LoadOp
	Color   [4]float32

	DepthOp LoadOp
	Depth   float32
}

// Manager drives the begin/end pairs for one backend. Begin and End are
// provided by the backend and do the actual API calls.
type Manager struct {
	Begin func(target uint32, action Action)
	End   func()

	active  bool
	target  uint32
	pending Action
}

func defaultAction() Action {
	return Action{Depth: 1}
}

// Target returns the render target the next pass will draw into. Zero is
// the default framebuffer.
func (m *Manager) Target() uint32 {
	return m.target
}

// Active reports whether a pass is currently open.
func (m *Manager) Active() bool {
	return m.active
}

// SetTarget switches the render target, flushing any open pass or queued
// clear on the previous target.
func (m *Manager) SetTarget(target uint32) {
	m.Finish()
	m.target = target
}

// ClearAll queues a clear of both color and depth, replacing any queued
// action. An open pass is closed so the clear takes effect.
func (m *Manager) ClearAll(r, g, b, a, depth float32) {
	m.close()

	m.pending = Action{
		ColorOp: Clear,
		Color:   [4]float32{r, g, b, a},
		DepthOp: Clear,
		Depth:   depth,
	}
}

// ClearColor queues a color clear. A depth clear queued earlier stays in
// effect, so consecutive clears fold into a single pass.
func (m *Manager) ClearColor(r, g, b, a float32) {
	m.close()

	m.pending.ColorOp = Clear
	m.pending.Color = [4]float32{r, g, b, a}
}

// ClearDepth queues a depth clear.
func (m *Manager) ClearDepth(depth float32) {
	m.close()

	m.pending.DepthOp = Clear
	m.pending.Depth = depth
}

// Ensure opens a pass with the queued action if none is active. Every draw
// calls this first.
func (m *Manager) Ensure() {
	if m.active {
		return
	}

	m.Begin(m.target, m.pending)
	m.active = true

	// the clear is consumed, further passes on this target load
	m.pending = defaultAction()
}

// Finish closes the open pass. A queued clear that no draw consumed still
// runs as an empty pass, so clearing a target without drawing works.
// Called when the target changes and at end of frame.
func (m *Manager) Finish() {
	if !m.active && (m.pending.ColorOp == Clear || m.pending.DepthOp == Clear) {
		m.Ensure()
	}

	m.close()
	m.pending = defaultAction()
}

func (m *Manager) close() {
	if m.active {
		m.End()
		m.active = false
	}
}
