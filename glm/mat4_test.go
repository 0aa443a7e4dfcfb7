package glm_test

import (
	"math"
	"testing"

	"github.com/oliverbestmann/treads/glm"
	"github.com/stretchr/testify/assert"
)

func TestMulIdentity(t *testing.T) {
	m := glm.TranslationMat4[float32](1, 2, 3).RotateZ(0.5)

	assert.Equal(t, m, m.Mul(glm.IdentityMat4[float32]()))
	assert.Equal(t, m, glm.IdentityMat4[float32]().Mul(m))
}

func TestTranslationTransform(t *testing.T) {
	m := glm.TranslationMat4[float32](1, 2, 3)

	v := m.Transform(glm.Vec4f{0, 0, 0, 1})
	assert.Equal(t, glm.Vec4f{1, 2, 3, 1}, v)

	// direction vectors are unaffected by translation
	d := m.Transform(glm.Vec4f{1, 0, 0, 0})
	assert.Equal(t, glm.Vec4f{1, 0, 0, 0}, d)
}

func TestRotationZ(t *testing.T) {
	m := glm.RotationZMat4[float32](glm.DegToRad[float32](90))

	v := m.Transform(glm.Vec4f{1, 0, 0, 1})
	assert.InDelta(t, 0, v[0], 1e-6)
	assert.InDelta(t, 1, v[1], 1e-6)
}

func TestDegToRad(t *testing.T) {
	assert.InDelta(t, math.Pi, float64(glm.DegToRad[float32](180)), 1e-6)
	assert.InDelta(t, 180, float64(glm.RadToDeg[float32](glm.Rad(math.Pi))), 1e-4)
}

func TestVecOps(t *testing.T) {
	assert.Equal(t, glm.Vec3f{0, 0, 1}, glm.Vec3f{1, 0, 0}.Cross(glm.Vec3f{0, 1, 0}))
	assert.Equal(t, float32(20), glm.Vec4f{1, 2, 3, 4}.Dot(glm.Vec4f{4, 3, 2, 1}))
}
