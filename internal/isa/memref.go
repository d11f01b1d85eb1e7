package isa

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMemory is returned by MemRef data access when no memory backend
// has been bound, i.e. the owning context has no active runner.
var ErrNoMemory = errors.New("memref has no memory backend bound")

// MemBackend provides typed access to simulated device memory. It is
// implemented by the simulator's segmented memory.
type MemBackend interface {
	Data(m *MemRef) ([]float64, error)
	SetData(m *MemRef, values []float64) error
}

// MemRef describes a memory-resident operand: a typed, strided view over
// a region of device memory. Address, shape, dtype, stride and layout are
// fixed at construction; the memory backend is the only mutable part and
// is injected when the owning context holds an active runner.
type MemRef struct {
	Addr   uint64
	Shape  []int64
	DType  DType
	Stride []int64
	Layout Layout

	mem MemBackend
}

// NewMemRef constructs a memory reference. Stride is in elements per
// dimension and must match the shape's rank.
func NewMemRef(addr uint64, shape []int64, dtype DType, stride []int64, layout Layout) (*MemRef, error) {
	if len(stride) != len(shape) {
		return nil, fmt.Errorf("stride rank %d does not match shape rank %d", len(stride), len(shape))
	}
	return &MemRef{
		Addr:   addr,
		Shape:  shape,
		DType:  dtype,
		Stride: stride,
		Layout: layout,
	}, nil
}

// BindMemory attaches the backend that Data and SetData route through.
func (m *MemRef) BindMemory(b MemBackend) {
	m.mem = b
}

// Data reads the referenced elements from the bound memory backend.
func (m *MemRef) Data() ([]float64, error) {
	if m.mem == nil {
		return nil, ErrNoMemory
	}
	return m.mem.Data(m)
}

// SetData writes values through the bound memory backend.
func (m *MemRef) SetData(values []float64) error {
	if m.mem == nil {
		return ErrNoMemory
	}
	return m.mem.SetData(m, values)
}

func (m *MemRef) String() string {
	dims := make([]string, len(m.Shape))
	for i, d := range m.Shape {
		dims[i] = fmt.Sprintf("%d", d)
	}
	s := fmt.Sprintf("memref<%sx%s, 0x%x>", strings.Join(dims, "x"), m.DType, m.Addr)
	if m.Layout == LayoutXN {
		return s + " {layout = continuous_xn}"
	}
	return s
}
