// Package bm1684x provides the BM1684X chip variant: its opcode-definition
// set, operand memory layout and behavioural simulator constructor.
//
// BM1684X uses 16-byte TIU and 24-byte DMA commands. It does not support
// 2N/4N packed tensor storage.
package bm1684x

import (
	"github.com/accelkit/bmdis/internal/isa"
	"github.com/accelkit/bmdis/internal/sim"
)

// Chip is the container chip tag of this variant.
const Chip = "BM1684X"

const (
	lmemSize     = 4 << 20
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

// NewSimulator constructs a BM1684X simulator with memorySize bytes of
// global memory.
func NewSimulator(memorySize uint64) (*sim.Simulator, error) {
	return sim.New(sim.Config{
		Chip:       Chip,
		OpSet:      OpSet(),
		MemMap:     MemMap(),
		MemorySize: memorySize,
	})
}
