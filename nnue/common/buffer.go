package common

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"
)

// Aligned buffers provide owning, 32-byte-aligned storage for the tensors
// used by the vector kernels. Go's allocator gives no alignment guarantee
// beyond the element size, so each buffer over-allocates and slices its
// backing array at the first aligned element.

// Int8Buffer is a 32-byte-aligned []int8.
type Int8Buffer struct {
	backing []int8
	data    []int8
}

// Int16Buffer is a 32-byte-aligned []int16.
type Int16Buffer struct {
	backing []int16
	data    []int16
}

// Int32Buffer is a 32-byte-aligned []int32.
type Int32Buffer struct {
	backing []int32
	data    []int32
}

// Float32Buffer is a 32-byte-aligned []float32.
type Float32Buffer struct {
	backing []float32
	data    []float32
}

func alignOffset[T any](s []T) int {
	size := int(unsafe.Sizeof(s[0]))
	addr := uintptr(unsafe.Pointer(&s[0]))
	pad := (Alignment - int(addr)%Alignment) % Alignment
	return pad / size
}

// NewInt8Buffer returns a zeroed aligned buffer of length n.
func NewInt8Buffer(n int) *Int8Buffer {
	backing := make([]int8, n+Alignment)
	off := alignOffset(backing)
	return &Int8Buffer{backing: backing, data: backing[off : off+n]}
}

// NewInt16Buffer returns a zeroed aligned buffer of length n.
func NewInt16Buffer(n int) *Int16Buffer {
	backing := make([]int16, n+Alignment/2)
	off := alignOffset(backing)
	return &Int16Buffer{backing: backing, data: backing[off : off+n]}
}

// NewInt32Buffer returns a zeroed aligned buffer of length n.
func NewInt32Buffer(n int) *Int32Buffer {
	backing := make([]int32, n+Alignment/4)
	off := alignOffset(backing)
	return &Int32Buffer{backing: backing, data: backing[off : off+n]}
}

// NewFloat32Buffer returns a zeroed aligned buffer of length n.
func NewFloat32Buffer(n int) *Float32Buffer {
	backing := make([]float32, n+Alignment/4)
	off := alignOffset(backing)
	return &Float32Buffer{backing: backing, data: backing[off : off+n]}
}

// ReadInt8Buffer fills a new aligned buffer of length n from a raw
// little-endian byte stream.
func ReadInt8Buffer(r io.Reader, n int) (*Int8Buffer, error) {
	buf := NewInt8Buffer(n)
	raw := make([]byte, n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading int8 tensor of %d elements: %w", n, err)
	}
	for i, b := range raw {
		buf.data[i] = int8(b)
	}
	return buf, nil
}

// ReadInt16Buffer fills a new aligned buffer of length n from a raw
// little-endian byte stream.
func ReadInt16Buffer(r io.Reader, n int) (*Int16Buffer, error) {
	buf := NewInt16Buffer(n)
	raw := make([]byte, 2*n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading int16 tensor of %d elements: %w", n, err)
	}
	for i := 0; i < n; i++ {
		buf.data[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return buf, nil
}

// ReadInt32Buffer fills a new aligned buffer of length n from a raw
// little-endian byte stream.
func ReadInt32Buffer(r io.Reader, n int) (*Int32Buffer, error) {
	buf := NewInt32Buffer(n)
	raw := make([]byte, 4*n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading int32 tensor of %d elements: %w", n, err)
	}
	for i := 0; i < n; i++ {
		buf.data[i] = int32(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return buf, nil
}

// Slice returns the aligned contents.
func (b *Int8Buffer) Slice() []int8 { return b.data }

// Len returns the number of elements.
func (b *Int8Buffer) Len() int { return len(b.data) }

// Slice returns the aligned contents.
func (b *Int16Buffer) Slice() []int16 { return b.data }

// Len returns the number of elements.
func (b *Int16Buffer) Len() int { return len(b.data) }

// CopyFrom copies the contents of another buffer of the same length.
func (b *Int16Buffer) CopyFrom(other *Int16Buffer) {
	copy(b.data, other.data)
}

// Slice returns the aligned contents.
func (b *Int32Buffer) Slice() []int32 { return b.data }

// Len returns the number of elements.
func (b *Int32Buffer) Len() int { return len(b.data) }

// Slice returns the aligned contents.
func (b *Float32Buffer) Slice() []float32 { return b.data }

// Len returns the number of elements.
func (b *Float32Buffer) Len() int { return len(b.data) }
