package glm

import (
	"math"

	"github.com/chewxy/math32"
)

// Rad is an angle in radians.
type Rad float32

func DegToRad[T numeric](deg T) Rad {
	return Rad(float64(deg) * (math.Pi / 180))
}

func RadToDeg[T numeric](rad Rad) (deg T) {
	return T(rad * (180 / math.Pi))
}

func sincos(r Rad) (float32, float32) {
	return math32.Sin(float32(r)), math32.Cos(float32(r))
}
