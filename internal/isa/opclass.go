package isa

import "fmt"

// Category partitions opcode classes into compute and data-movement
// instructions.
type Category uint8

const (
	CatTIU Category = iota
	CatDMA
)

func (c Category) String() string {
	if c == CatDMA {
		return "dma"
	}
	return "tiu"
}

// Field describes one register field of a command as a bit slice.
// Off and Len are in bits; bit 0 is the least significant bit of the
// first command byte.
type Field struct {
	Name string
	Off  uint32
	Len  uint32
}

// OpClass describes one opcode's binary shape. Classes are immutable
// after registry construction.
type OpClass struct {
	Name     string
	Category Category
	Opcode   uint64
	Fields   []Field
}

// FullName returns the category-qualified operation name, e.g.
// "tiu.arith.add".
func (c *OpClass) FullName() string {
	return c.Category.String() + "." + c.Name
}

// OpSet is one device's opcode-definition set: the TIU and DMA classes
// in table order plus the fixed command sizes of the variant.
type OpSet struct {
	TIU []*OpClass
	DMA []*OpClass

	TIUCmdBytes int
	DMACmdBytes int

	tiuByOpcode map[uint64]*OpClass
	dmaByOpcode map[uint64]*OpClass
}

// NewOpSet builds the opcode lookup indices. It panics on duplicate
// opcodes or misfiled categories since the tables are compile-time data.
func NewOpSet(tiuCmdBytes, dmaCmdBytes int, tiu, dma []*OpClass) *OpSet {
	s := &OpSet{
		TIU:         tiu,
		DMA:         dma,
		TIUCmdBytes: tiuCmdBytes,
		DMACmdBytes: dmaCmdBytes,
		tiuByOpcode: make(map[uint64]*OpClass, len(tiu)),
		dmaByOpcode: make(map[uint64]*OpClass, len(dma)),
	}
	for _, c := range tiu {
		if c.Category != CatTIU {
			panic(fmt.Sprintf("isa: %s filed under tiu", c.FullName()))
		}
		if _, dup := s.tiuByOpcode[c.Opcode]; dup {
			panic(fmt.Sprintf("isa: duplicate tiu opcode %#x", c.Opcode))
		}
		s.tiuByOpcode[c.Opcode] = c
	}
	for _, c := range dma {
		if c.Category != CatDMA {
			panic(fmt.Sprintf("isa: %s filed under dma", c.FullName()))
		}
		if _, dup := s.dmaByOpcode[c.Opcode]; dup {
			panic(fmt.Sprintf("isa: duplicate dma opcode %#x", c.Opcode))
		}
		s.dmaByOpcode[c.Opcode] = c
	}
	return s
}

// Lookup resolves an opcode value within a category.
func (s *OpSet) Lookup(cat Category, opcode uint64) (*OpClass, bool) {
	if cat == CatDMA {
		c, ok := s.dmaByOpcode[opcode]
		return c, ok
	}
	c, ok := s.tiuByOpcode[opcode]
	return c, ok
}

// CmdBytes returns the fixed command size of a category.
func (s *OpSet) CmdBytes(cat Category) int {
	if cat == CatDMA {
		return s.DMACmdBytes
	}
	return s.TIUCmdBytes
}

// Categories returns the category-name mapping over the class tables.
func (s *OpSet) Categories() map[string][]*OpClass {
	return map[string][]*OpClass{
		CatTIU.String(): s.TIU,
		CatDMA.String(): s.DMA,
	}
}

// Region is one named address range of a device memory map.
type Region struct {
	Name  string
	Start uint64
	Size  uint64
}

// Contains reports whether addr falls inside the region.
func (r Region) Contains(addr uint64) bool {
	return addr >= r.Start && addr-r.Start < r.Size
}

// MemMap is a device's operand memory layout: the local scratch region
// and the global DDR region.
type MemMap struct {
	Local  Region
	Global Region
}
