package std140

import "unsafe"

// AsBytes reinterprets a value as its in-memory byte representation. Uniform
// values are plain float32 or int32 aggregates, so this matches the layout
// the GPU expects on little endian targets.
func AsBytes[T any](value *T) []byte {
	var zeroT T

	n := unsafe.Sizeof(zeroT)
	ptr := (*byte)(unsafe.Pointer(value))

	return unsafe.Slice(ptr, n)
}
