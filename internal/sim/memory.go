package sim

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/x448/float16"

	"github.com/accelkit/bmdis/internal/isa"
)

// Memory is the simulator's segmented device memory: the local scratch
// region and the global DDR region. It implements isa.MemBackend so that
// memory references constructed under an active runner route their data
// access here.
type Memory struct {
	localRegion  isa.Region
	globalRegion isa.Region
	local        []byte
	global       []byte
}

func newMemory(mm isa.MemMap, memorySize uint64) (*Memory, error) {
	if memorySize == 0 {
		return nil, fmt.Errorf("sim: zero global memory size")
	}
	if memorySize > mm.Global.Size {
		return nil, fmt.Errorf("sim: memory size %d exceeds %s window of %d bytes",
			memorySize, mm.Global.Name, mm.Global.Size)
	}
	global := mm.Global
	global.Size = memorySize
	return &Memory{
		localRegion:  mm.Local,
		globalRegion: global,
		local:        make([]byte, mm.Local.Size),
		global:       make([]byte, memorySize),
	}, nil
}

// slice resolves [addr, addr+n) to the backing bytes of whichever region
// contains it. Ranges may not straddle regions.
func (m *Memory) slice(addr, n uint64) ([]byte, error) {
	switch {
	case m.localRegion.Contains(addr):
		off := addr - m.localRegion.Start
		if off+n > uint64(len(m.local)) {
			return nil, fmt.Errorf("sim: range [%#x,+%d) exceeds %s", addr, n, m.localRegion.Name)
		}
		return m.local[off : off+n], nil
	case m.globalRegion.Contains(addr):
		off := addr - m.globalRegion.Start
		if off+n > uint64(len(m.global)) {
			return nil, fmt.Errorf("sim: range [%#x,+%d) exceeds %s", addr, n, m.globalRegion.Name)
		}
		return m.global[off : off+n], nil
	}
	return nil, fmt.Errorf("sim: address %#x outside %s and %s", addr, m.localRegion.Name, m.globalRegion.Name)
}

// Data reads the elements referenced by ref as float64 values in
// row-major index order.
func (m *Memory) Data(ref *isa.MemRef) ([]float64, error) {
	total := isa.Elems(ref.Shape)
	out := make([]float64, 0, total)
	itemSize := uint64(ref.DType.ItemSize())

	err := m.walk(ref, func(addr uint64) error {
		raw, err := m.slice(addr, itemSize)
		if err != nil {
			return err
		}
		out = append(out, decodeElem(raw, ref.DType))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetData writes values through ref in row-major index order.
func (m *Memory) SetData(ref *isa.MemRef, values []float64) error {
	total := isa.Elems(ref.Shape)
	if int64(len(values)) != total {
		return fmt.Errorf("sim: %d values for %d elements", len(values), total)
	}
	itemSize := uint64(ref.DType.ItemSize())

	i := 0
	return m.walk(ref, func(addr uint64) error {
		raw, err := m.slice(addr, itemSize)
		if err != nil {
			return err
		}
		encodeElem(raw, ref.DType, values[i])
		i++
		return nil
	})
}

// walk visits the byte address of every element of ref in row-major
// order, honoring the per-dimension element strides.
func (m *Memory) walk(ref *isa.MemRef, visit func(addr uint64) error) error {
	itemSize := uint64(ref.DType.ItemSize())
	if itemSize == 0 {
		return fmt.Errorf("sim: invalid dtype %v", ref.DType)
	}
	rank := len(ref.Shape)
	if rank == 0 {
		return visit(ref.Addr)
	}

	idx := make([]int64, rank)
	for {
		var elemOff int64
		for d := 0; d < rank; d++ {
			elemOff += idx[d] * ref.Stride[d]
		}
		if err := visit(ref.Addr + uint64(elemOff)*itemSize); err != nil {
			return err
		}

		d := rank - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < ref.Shape[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return nil
		}
	}
}

func decodeElem(raw []byte, dt isa.DType) float64 {
	switch dt {
	case isa.Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(raw)))
	case isa.Float16:
		return float64(float16.Frombits(binary.LittleEndian.Uint16(raw)).Float32())
	case isa.Int8:
		return float64(int8(raw[0]))
	case isa.Uint8:
		return float64(raw[0])
	case isa.Int16:
		return float64(int16(binary.LittleEndian.Uint16(raw)))
	case isa.Uint16:
		return float64(binary.LittleEndian.Uint16(raw))
	case isa.Int32:
		return float64(int32(binary.LittleEndian.Uint32(raw)))
	case isa.Uint32:
		return float64(binary.LittleEndian.Uint32(raw))
	}
	return 0
}

func encodeElem(raw []byte, dt isa.DType, v float64) {
	switch dt {
	case isa.Float32:
		binary.LittleEndian.PutUint32(raw, math.Float32bits(float32(v)))
	case isa.Float16:
		binary.LittleEndian.PutUint16(raw, float16.Fromfloat32(float32(v)).Bits())
	case isa.Int8:
		raw[0] = byte(int8(v))
	case isa.Uint8:
		raw[0] = byte(uint8(v))
	case isa.Int16:
		binary.LittleEndian.PutUint16(raw, uint16(int16(v)))
	case isa.Uint16:
		binary.LittleEndian.PutUint16(raw, uint16(v))
	case isa.Int32:
		binary.LittleEndian.PutUint32(raw, uint32(int32(v)))
	case isa.Uint32:
		binary.LittleEndian.PutUint32(raw, uint32(v))
	}
}
