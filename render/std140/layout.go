// Package std140 computes GPU uniform block layouts following the std140
// rules shared by OpenGL uniform buffers and WGSL uniform address space,
// and maintains CPU side shadow copies of the block contents.
package std140

// Type enumerates the uniform data types understood by the layout engine.
type Type uint8

const (
	Invalid Type = iota
	Float
	Vec2
	Vec3
	Vec4
	Mat4
	Int
)

func (t Type) String() string {
	switch t {
	case Float:
		return "float"
	case Vec2:
		return "vec2"
	case Vec3:
		return "vec3"
	case Vec4:
		return "vec4"
	case Mat4:
		return "mat4"
	case Int:
		return "int"
	default:
		return "invalid"
	}
}

// Alignment returns the base alignment of the type in bytes. Vec3 aligns
// to 16 like vec4, which keeps layouts portable across backends.
func (t Type) Alignment() uint32 {
	switch t {
	case Float, Int:
		return 4
	case Vec2:
		return 8
	case Vec3, Vec4, Mat4:
		return 16
	default:
		return 0
	}
}

// Size returns the size of a single element in bytes. Vec3 occupies a full
// 16 byte register.
func (t Type) Size() uint32 {
	switch t {
	case Float, Int:
		return 4
	case Vec2:
		return 8
	case Vec3, Vec4:
		return 16
	case Mat4:
		return 64
	default:
		return 0
	}
}

// ArrayStride returns the distance between consecutive array elements.
// Array elements are rounded up to at least one 16 byte register.
func (t Type) ArrayStride() uint32 {
	return max(16, t.Size())
}

// Member describes one declared member of a uniform block.
type Member struct {
	Name  string
	Type  Type
	Count uint32 // zero is treated as one, values above one declare an array
}

func (m Member) span() uint32 {
	if m.Count > 1 {
		return m.Type.ArrayStride() * m.Count
	}

	return m.Type.Size()
}

// Field is the placed form of a Member after layout.
type Field struct {
	Name   string
	Type   Type
	Count  uint32
	Offset uint32
	Size   uint32
}

func alignUp(value, alignment uint32) uint32 {
	return (value + alignment - 1) &^ (alignment - 1)
}

// Layout places the members in declaration order and returns the placed
// fields together with the total block size. The block size is rounded up
// to a multiple of 16 so blocks can be tightly packed into one buffer.
func Layout(members []Member) ([]Field, uint32) {
	fields := make([]Field, 0, len(members))

	var cursor uint32

	for _, m := range members {
		align := m.Type.Alignment()
		if m.Count > 1 {
			align = max(align, 16)
		}

		cursor = alignUp(cursor, align)

		fields = append(fields, Field{
			Name:   m.Name,
			Type:   m.Type,
			Count:  m.Count,
			Offset: cursor,
			Size:   m.span(),
		})

		cursor += m.span()
	}

	return fields, alignUp(cursor, 16)
}
