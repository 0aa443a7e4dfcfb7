package std140_test

import (
	"testing"

	"github.com/oliverbestmann/treads/render/std140"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeSizes(t *testing.T) {
	cases := []struct {
		ty        std140.Type
		alignment uint32
		size      uint32
		stride    uint32
	}{
		{std140.Float, 4, 4, 16},
		{std140.Int, 4, 4, 16},
		{std140.Vec2, 8, 8, 16},
		{std140.Vec3, 16, 16, 16},
		{std140.Vec4, 16, 16, 16},
		{std140.Mat4, 16, 64, 64},
	}

	for _, tc := range cases {
		t.Run(tc.ty.String(), func(t *testing.T) {
			assert.Equal(t, tc.alignment, tc.ty.Alignment())
			assert.Equal(t, tc.size, tc.ty.Size())
			assert.Equal(t, tc.stride, tc.ty.ArrayStride())
		})
	}
}

func TestLayoutOffsets(t *testing.T) {
	fields, size := std140.Layout([]std140.Member{
		{Name: "u_a", Type: std140.Float},
		{Name: "u_b", Type: std140.Vec3},
		{Name: "u_c", Type: std140.Mat4},
	})

	require.Len(t, fields, 3)
	assert.Equal(t, uint32(0), fields[0].Offset)
	assert.Equal(t, uint32(16), fields[1].Offset)
	assert.Equal(t, uint32(32), fields[2].Offset)
	assert.GreaterOrEqual(t, size, uint32(96))
}

func TestLayoutAlignmentLaw(t *testing.T) {
	members := []std140.Member{
		{Name: "a", Type: std140.Float},
		{Name: "b", Type: std140.Vec2},
		{Name: "c", Type: std140.Float},
		{Name: "d", Type: std140.Vec4},
		{Name: "e", Type: std140.Int},
		{Name: "f", Type: std140.Vec3},
		{Name: "g", Type: std140.Mat4},
		{Name: "h", Type: std140.Float, Count: 3},
	}

	fields, size := std140.Layout(members)

	for idx, field := range fields {
		align := field.Type.Alignment()
		if field.Count > 1 {
			align = 16
		}

		assert.Zerof(t, field.Offset%align, "field %q misaligned", field.Name)

		// no overlap with the previous field
		if idx > 0 {
			prev := fields[idx-1]
			assert.GreaterOrEqual(t, field.Offset, prev.Offset+prev.Size)
		}
	}

	last := fields[len(fields)-1]
	assert.GreaterOrEqual(t, size, last.Offset+last.Size)
	assert.Zero(t, size%16)
}

func TestLayoutDeterministic(t *testing.T) {
	members := []std140.Member{
		{Name: "a", Type: std140.Vec3},
		{Name: "b", Type: std140.Float},
		{Name: "c", Type: std140.Mat4, Count: 4},
	}

	first, firstSize := std140.Layout(members)
	second, secondSize := std140.Layout(members)

	assert.Equal(t, first, second)
	assert.Equal(t, firstSize, secondSize)
}

func TestLayoutArrayStride(t *testing.T) {
	fields, _ := std140.Layout([]std140.Member{
		{Name: "floats", Type: std140.Float, Count: 4},
		{Name: "after", Type: std140.Float},
	})

	// four array elements of 16 bytes each
	assert.Equal(t, uint32(64), fields[0].Size)
	assert.Equal(t, uint32(64), fields[1].Offset)
}
