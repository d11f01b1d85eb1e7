// Package bm1684 provides the BM1684 chip variant: its opcode-definition
// set, operand memory layout and behavioural simulator constructor.
//
// BM1684 uses fixed 32-byte commands for both categories and is the only
// variant supporting 2N/4N packed tensor storage.
package bm1684

import (
	"github.com/accelkit/bmdis/internal/isa"
	"github.com/accelkit/bmdis/internal/sim"
)

// Chip is the container chip tag of this variant.
const Chip = "BM1684"

const (
	lmemSize     = 2 << 20
	ddrStart     = 1 << 32
	ddrMaxWindow = 1 << 32
)

// MemMap returns the operand memory layout of the variant.
func MemMap() isa.MemMap {
	return isa.MemMap{
		Local:  isa.Region{Name: "LMEM", Start: 0, Size: lmemSize},
		Global: isa.Region{Name: "DDR", Start: ddrStart, Size: ddrMaxWindow},
	}
}

// NewSimulator constructs a BM1684 simulator with memorySize bytes of
// global memory.
func NewSimulator(memorySize uint64) (*sim.Simulator, error) {
	return sim.New(sim.Config{
		Chip:       Chip,
		OpSet:      OpSet(),
		MemMap:     MemMap(),
		MemorySize: memorySize,
	})
}
