// Package isa holds the device-independent instruction-set support types:
// element types, operand layouts, memory references and the opcode class
// model shared by every chip variant.
package isa

import "fmt"

// DType identifies the element type of a memory-resident operand.
type DType uint32

const (
	Float32 DType = iota
	Float16
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32

	dtypeCount
)

// ParseDType validates a container dtype code.
func ParseDType(code uint32) (DType, error) {
	if code >= uint32(dtypeCount) {
		return 0, fmt.Errorf("unknown dtype code %d", code)
	}
	return DType(code), nil
}

// ItemSize returns the element size in bytes.
func (d DType) ItemSize() int64 {
	switch d {
	case Float32, Int32, Uint32:
		return 4
	case Float16, Int16, Uint16:
		return 2
	case Int8, Uint8:
		return 1
	}
	return 0
}

func (d DType) String() string {
	switch d {
	case Float32:
		return "f32"
	case Float16:
		return "f16"
	case Int8:
		return "i8"
	case Uint8:
		return "u8"
	case Int16:
		return "i16"
	case Uint16:
		return "u16"
	case Int32:
		return "i32"
	case Uint32:
		return "u32"
	}
	return fmt.Sprintf("dtype(%d)", uint32(d))
}

// Layout tags how a tensor is laid out in device memory. The zero value
// means standard row-major contiguous storage.
type Layout uint8

const (
	LayoutContiguous Layout = iota
	// LayoutXN marks 2N/4N packed storage, where 4/itemsize narrow
	// elements share one 32-bit lane.
	LayoutXN
)

func (l Layout) String() string {
	if l == LayoutXN {
		return "continuous_xn"
	}
	return "continuous"
}

// ContiguousStride computes row-major element strides for a shape:
// stride[i] is the number of elements between consecutive indices of
// dimension i.
func ContiguousStride(shape []int64) []int64 {
	stride := make([]int64, len(shape))
	acc := int64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		stride[i] = acc
		acc *= shape[i]
	}
	return stride
}

// Elems returns the total element count of a shape.
func Elems(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		n *= d
	}
	return n
}
