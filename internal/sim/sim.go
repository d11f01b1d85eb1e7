// Package sim implements the behavioural simulator for decoded programs.
// It executes raw TIU and DMA commands against emulated segmented device
// memory. Coverage is intentionally partial: data-movement and simple
// arithmetic commands execute, the remaining classes report that no
// behaviour is implemented.
package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/accelkit/bmdis/internal/decode"
	"github.com/accelkit/bmdis/internal/isa"
)

// ErrNoBehavior marks a decodable command whose semantics the simulator
// does not implement.
var ErrNoBehavior = errors.New("no simulator behavior for operation")

// Config selects the device personality of a simulator.
type Config struct {
	Chip       string
	OpSet      *isa.OpSet
	MemMap     isa.MemMap
	MemorySize uint64
}

// Simulator executes one device's command streams. It is not safe for
// concurrent use.
type Simulator struct {
	chip string
	dec  *decode.Decoder
	mem  *Memory
}

// New constructs a simulator with MemorySize bytes of global memory.
func New(cfg Config) (*Simulator, error) {
	if cfg.OpSet == nil {
		return nil, fmt.Errorf("sim: nil opcode set")
	}
	mem, err := newMemory(cfg.MemMap, cfg.MemorySize)
	if err != nil {
		return nil, err
	}
	return &Simulator{
		chip: cfg.Chip,
		dec:  decode.NewDecoder(cfg.OpSet),
		mem:  mem,
	}, nil
}

// Chip returns the device tag the simulator emulates.
func (s *Simulator) Chip() string { return s.chip }

// Memory returns the simulator's segmented memory.
func (s *Simulator) Memory() *Memory { return s.mem }

// TIUCompute executes a single raw TIU command.
func (s *Simulator) TIUCompute(rawCmd []byte) error {
	inst, err := s.dec.DecodeCmd(rawCmd, isa.CatTIU, 0)
	if err != nil {
		return err
	}
	return s.computeTIU(inst)
}

// DMACompute executes a single raw DMA command.
func (s *Simulator) DMACompute(rawCmd []byte) error {
	inst, err := s.dec.DecodeCmd(rawCmd, isa.CatDMA, 0)
	if err != nil {
		return err
	}
	return s.computeDMA(inst)
}

func (s *Simulator) computeTIU(inst *isa.Inst) error {
	switch inst.Class.Name {
	case "arith.add":
		return s.tiuAdd(inst)
	case "arith.copy":
		return s.tiuCopy(inst)
	case "sys.end":
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNoBehavior, inst.Class.FullName())
}

func (s *Simulator) computeDMA(inst *isa.Inst) error {
	switch inst.Class.Name {
	case "tensor":
		return s.dmaTensor(inst)
	case "const":
		return s.dmaConst(inst)
	case "sys":
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNoBehavior, inst.Class.FullName())
}

// tiuAdd performs elementwise f32 addition: res0 = opd0 + opd1.
func (s *Simulator) tiuAdd(inst *isa.Inst) error {
	res, err := s.regSlice(inst, "res0_addr", "length", 4)
	if err != nil {
		return err
	}
	a, err := s.regSlice(inst, "opd0_addr", "length", 4)
	if err != nil {
		return err
	}
	b, err := s.regSlice(inst, "opd1_addr", "length", 4)
	if err != nil {
		return err
	}
	for i := 0; i+4 <= len(res); i += 4 {
		x := math.Float32frombits(binary.LittleEndian.Uint32(a[i:]))
		y := math.Float32frombits(binary.LittleEndian.Uint32(b[i:]))
		binary.LittleEndian.PutUint32(res[i:], math.Float32bits(x+y))
	}
	return nil
}

// tiuCopy copies f32 elements: res0 = opd0.
func (s *Simulator) tiuCopy(inst *isa.Inst) error {
	res, err := s.regSlice(inst, "res0_addr", "length", 4)
	if err != nil {
		return err
	}
	src, err := s.regSlice(inst, "opd0_addr", "length", 4)
	if err != nil {
		return err
	}
	copy(res, src)
	return nil
}

// dmaTensor copies length raw bytes from src_addr to dst_addr, in either
// direction between the local and global regions.
func (s *Simulator) dmaTensor(inst *isa.Inst) error {
	length, ok := inst.Reg.Get("length")
	if !ok {
		return fmt.Errorf("sim: %s missing length", inst.Class.FullName())
	}
	srcAddr, ok := inst.Reg.Get("src_addr")
	if !ok {
		return fmt.Errorf("sim: %s missing src_addr", inst.Class.FullName())
	}
	dstAddr, ok := inst.Reg.Get("dst_addr")
	if !ok {
		return fmt.Errorf("sim: %s missing dst_addr", inst.Class.FullName())
	}
	src, err := s.mem.slice(srcAddr, length)
	if err != nil {
		return err
	}
	dst, err := s.mem.slice(dstAddr, length)
	if err != nil {
		return err
	}
	copy(dst, src)
	return nil
}

// dmaConst fills length bytes at dst_addr with a repeating 32-bit value.
func (s *Simulator) dmaConst(inst *isa.Inst) error {
	length, ok := inst.Reg.Get("length")
	if !ok {
		return fmt.Errorf("sim: %s missing length", inst.Class.FullName())
	}
	dstAddr, ok := inst.Reg.Get("dst_addr")
	if !ok {
		return fmt.Errorf("sim: %s missing dst_addr", inst.Class.FullName())
	}
	value, ok := inst.Reg.Get("value")
	if !ok {
		return fmt.Errorf("sim: %s missing value", inst.Class.FullName())
	}
	dst, err := s.mem.slice(dstAddr, length)
	if err != nil {
		return err
	}
	var pattern [4]byte
	binary.LittleEndian.PutUint32(pattern[:], uint32(value))
	for i := range dst {
		dst[i] = pattern[i%4]
	}
	return nil
}

// regSlice resolves a (base address, element count) register pair into
// backing memory, with elemSize bytes per element.
func (s *Simulator) regSlice(inst *isa.Inst, addrField, lenField string, elemSize uint64) ([]byte, error) {
	addr, ok := inst.Reg.Get(addrField)
	if !ok {
		return nil, fmt.Errorf("sim: %s missing %s", inst.Class.FullName(), addrField)
	}
	n, ok := inst.Reg.Get(lenField)
	if !ok {
		return nil, fmt.Errorf("sim: %s missing %s", inst.Class.FullName(), lenField)
	}
	return s.mem.slice(addr, n*elemSize)
}
