package glm

// Vec2 is a two component vector. It mostly travels as plain vertex data,
// the arithmetic lives on Vec3 and Vec4.
type Vec2[T numeric] [2]T
