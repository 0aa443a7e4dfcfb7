package wsi

import "github.com/go-gl/glfw/v3.3/glfw"

type Key uint32

const (
	KeyUnknown Key = iota
	KeyW
	KeyA
	KeyS
	KeyD
	KeyQ
	KeyE
	KeyR
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeySpace
	KeyEnter
	KeyEscape
	KeyLeftShift
	KeyLeftControl
	KeyTab
	KeyF1
	KeyF12
)

func (k Key) String() string {
	switch k {
	case KeyW:
		return "W"
	case KeyA:
		return "A"
	case KeyS:
		return "S"
	case KeyD:
		return "D"
	case KeyQ:
		return "Q"
	case KeyE:
		return "E"
	case KeyR:
		return "R"
	case KeyUp:
		return "Up"
	case KeyDown:
		return "Down"
	case KeyLeft:
		return "Left"
	case KeyRight:
		return "Right"
	case KeySpace:
		return "Space"
	case KeyEnter:
		return "Enter"
	case KeyEscape:
		return "Escape"
	case KeyLeftShift:
		return "LeftShift"
	case KeyLeftControl:
		return "LeftControl"
	case KeyTab:
		return "Tab"
	case KeyF1:
		return "F1"
	case KeyF12:
		return "F12"
	default:
		return "Unknown"
	}
}

var glfwToKey = map[glfw.Key]Key{
	glfw.KeyW:           KeyW,
	glfw.KeyA:           KeyA,
	glfw.KeyS:           KeyS,
	glfw.KeyD:           KeyD,
	glfw.KeyQ:           KeyQ,
	glfw.KeyE:           KeyE,
	glfw.KeyR:           KeyR,
	glfw.KeyUp:          KeyUp,
	glfw.KeyDown:        KeyDown,
	glfw.KeyLeft:        KeyLeft,
	glfw.KeyRight:       KeyRight,
	glfw.KeySpace:       KeySpace,
	glfw.KeyEnter:       KeyEnter,
	glfw.KeyEscape:      KeyEscape,
	glfw.KeyLeftShift:   KeyLeftShift,
	glfw.KeyLeftControl: KeyLeftControl,
	glfw.KeyTab:         KeyTab,
	glfw.KeyF1:          KeyF1,
	glfw.KeyF12:         KeyF12,
}
