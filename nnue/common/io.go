// I/O helpers for the quantized network binary format.

package common

import (
	"encoding/binary"
	"io"
)

// Alignment is the byte alignment required by the vector kernels.
const Alignment = 32

// CeilToMultiple rounds n up to be a multiple of base.
func CeilToMultiple(n, base int) int {
	return (n + base - 1) / base * base
}

// ReadLittleEndian reads a value from a stream in little-endian order.
// Works with any fixed-size integer type.
func ReadLittleEndian[T any](r io.Reader) (T, error) {
	var result T
	err := binary.Read(r, binary.LittleEndian, &result)
	return result, err
}

// WriteLittleEndian writes a value to a stream in little-endian order.
func WriteLittleEndian[T any](w io.Writer, value T) error {
	return binary.Write(w, binary.LittleEndian, value)
}
