package device

import (
	"errors"
	"fmt"

	"github.com/accelkit/bmdis/internal/decode"
	"github.com/accelkit/bmdis/internal/isa"
	"github.com/accelkit/bmdis/internal/sim"
	"github.com/accelkit/bmdis/pkg/bmodel"
)

// ErrNoRunner is returned by Execute when no simulator has been
// constructed for the context.
var ErrNoRunner = errors.New("context has no active runner")

// Context is one decode session for a single chip variant. The variant
// and its resolved opcode/operand sets never change after construction.
// A Context is not safe for concurrent use.
type Context struct {
	variant Variant
	ops     *isa.OpSet
	memmap  isa.MemMap
	newSim  func(uint64) (*sim.Simulator, error)

	// decoder is constructed on first use and then reused for the
	// lifetime of the context.
	decoder *decode.Decoder

	// Capability binding is instance-scoped: a runner and its dispatch
	// table live on the context, never on shared class state, so two
	// contexts for two devices may hold live runners at the same time.
	runner  *sim.Simulator
	compute map[isa.Category]func(rawCmd []byte) error
}

// NewContext resolves a variant against the device registry.
func NewContext(v Variant) (*Context, error) {
	e, ok := registry[v]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedDevice, v)
	}
	return &Context{
		variant: v,
		ops:     e.opset,
		memmap:  e.memmap,
		newSim:  e.newSimulator,
	}, nil
}

// NewContextForChip resolves a container chip tag.
func NewContextForChip(tag string) (*Context, error) {
	v, err := ParseVariant(tag)
	if err != nil {
		return nil, err
	}
	return NewContext(v)
}

// Variant returns the context's chip variant.
func (c *Context) Variant() Variant { return c.variant }

// MemMap returns the resolved operand memory layout.
func (c *Context) MemMap() isa.MemMap { return c.memmap }

// OpSet returns the resolved opcode-definition set.
func (c *Context) OpSet() *isa.OpSet { return c.ops }

// Decoder returns the context's decoder. The first call constructs it;
// every later call on the same context returns the identical decoder.
// Distinct contexts never share a decoder.
func (c *Context) Decoder() *decode.Decoder {
	if c.decoder == nil {
		c.decoder = decode.NewDecoder(c.ops)
	}
	return c.decoder
}

// Runner constructs the device simulator sized to memorySize bytes of
// global memory and binds its compute entry points and memory backend to
// this context. Memory references produced by TensorToMemRef after this
// call route their data access through the simulator's segmented memory.
func (c *Context) Runner(memorySize uint64) (*sim.Simulator, error) {
	s, err := c.newSim(memorySize)
	if err != nil {
		return nil, err
	}
	c.runner = s
	c.compute = map[isa.Category]func([]byte) error{
		isa.CatTIU: s.TIUCompute,
		isa.CatDMA: s.DMACompute,
	}
	return s, nil
}

// Execute runs a decoded instruction on the bound runner, dispatching on
// its category.
func (c *Context) Execute(inst *isa.Inst) error {
	if c.compute == nil {
		return ErrNoRunner
	}
	fn, ok := c.compute[inst.Class.Category]
	if !ok {
		return fmt.Errorf("no compute entry for category %v", inst.Class.Category)
	}
	return fn(inst.Cmd)
}

// TensorToMemRef converts a container tensor descriptor into a memory
// reference. Packed 2N/4N storage modes are only valid on BM1684; the
// stride of a packed reference is the contiguous stride scaled by
// 4/itemsize so that narrow elements share 32-bit lanes.
func (c *Context) TensorToMemRef(t *bmodel.Tensor) (*isa.MemRef, error) {
	if t.PadH != 0 {
		return nil, fmt.Errorf("%w: pad_h = %d", ErrPadH, t.PadH)
	}
	dt, err := isa.ParseDType(t.DType)
	if err != nil {
		return nil, err
	}

	var (
		stride []int64
		layout isa.Layout
	)
	if t.STMode == 1 || t.STMode == 2 { // 2N/4N
		if c.variant != BM1684 {
			return nil, fmt.Errorf("%w: storage mode %d on %v", ErrPackedStorage, t.STMode, c.variant)
		}
		xn := 4 / dt.ItemSize()
		stride = isa.ContiguousStride(t.Shape)
		for i := range stride {
			stride[i] *= xn
		}
		layout = isa.LayoutXN
	} else {
		stride = isa.ContiguousStride(t.Shape)
		layout = isa.LayoutContiguous
	}

	ref, err := isa.NewMemRef(t.DeviceAddr, t.Shape, dt, stride, layout)
	if err != nil {
		return nil, err
	}
	if c.runner != nil {
		ref.BindMemory(c.runner.Memory())
	}
	return ref, nil
}

// BModelToModule builds the module projection of an already-parsed
// container through the context's decoder.
func (c *Context) BModelToModule(f *bmodel.File) (*decode.Module, error) {
	return c.Decoder().BuildModule(f)
}
