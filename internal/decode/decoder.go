// Package decode turns raw BModel command buffers into structured
// instruction streams using one device's opcode-definition set.
package decode

import (
	"errors"
	"fmt"

	"github.com/accelkit/bmdis/internal/isa"
	"github.com/accelkit/bmdis/pkg/bmodel"
)

var (
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrTruncatedCmd  = errors.New("truncated command buffer")
)

// Decoder decodes command buffers against one opcode-definition set.
// Construct it through a device context so the set matches the container's
// chip.
type Decoder struct {
	ops *isa.OpSet
}

// NewDecoder binds a decoder to an opcode-definition set.
func NewDecoder(ops *isa.OpSet) *Decoder {
	return &Decoder{ops: ops}
}

// DecodeTIUBits decodes a raw TIU command buffer.
func (d *Decoder) DecodeTIUBits(buf []byte) ([]*isa.Inst, error) {
	return d.decode(buf, isa.CatTIU)
}

// DecodeDMABits decodes a raw DMA command buffer.
func (d *Decoder) DecodeDMABits(buf []byte) ([]*isa.Inst, error) {
	return d.decode(buf, isa.CatDMA)
}

func (d *Decoder) decode(buf []byte, cat isa.Category) ([]*isa.Inst, error) {
	cmdBytes := d.ops.CmdBytes(cat)
	if len(buf)%cmdBytes != 0 {
		return nil, fmt.Errorf("%w: %s buffer of %d bytes is not a multiple of %d",
			ErrTruncatedCmd, cat, len(buf), cmdBytes)
	}

	insts := make([]*isa.Inst, 0, len(buf)/cmdBytes)
	for off, idx := 0, 0; off < len(buf); off, idx = off+cmdBytes, idx+1 {
		cmd := buf[off : off+cmdBytes : off+cmdBytes]
		inst, err := d.DecodeCmd(cmd, cat, idx)
		if err != nil {
			return nil, fmt.Errorf("%s command %d: %w", cat, idx, err)
		}
		insts = append(insts, inst)
	}
	return insts, nil
}

// DecodeCmd decodes a single fixed-size command.
func (d *Decoder) DecodeCmd(cmd []byte, cat isa.Category, index int) (*isa.Inst, error) {
	if len(cmd) != d.ops.CmdBytes(cat) {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrTruncatedCmd, len(cmd), d.ops.CmdBytes(cat))
	}

	// The opcode always lives in the low byte of the command.
	opcode, err := isa.ExtractBits(cmd, 0, 8)
	if err != nil {
		return nil, err
	}
	cls, ok := d.ops.Lookup(cat, opcode)
	if !ok {
		return nil, fmt.Errorf("%w: %s %#x", ErrUnknownOpcode, cat, opcode)
	}

	reg := make(isa.RegMap, 0, len(cls.Fields))
	for _, f := range cls.Fields {
		v, err := isa.ExtractBits(cmd, f.Off, f.Len)
		if err != nil {
			return nil, fmt.Errorf("%s field %s: %w", cls.FullName(), f.Name, err)
		}
		reg = append(reg, isa.RegEntry{Name: f.Name, Value: v})
	}

	return &isa.Inst{Class: cls, Reg: reg, Cmd: cmd, Index: index}, nil
}

// Bundle is the decoded form of one command group: the ordered TIU and
// DMA instruction sequences of a subnet.
type Bundle struct {
	SubNetID uint32
	TIU      []*isa.Inst
	DMA      []*isa.Inst
}

// All returns the bundle's instructions merged into one sequence, ordered
// by command index with TIU commands first on ties.
func (b *Bundle) All() []*isa.Inst {
	out := make([]*isa.Inst, 0, len(b.TIU)+len(b.DMA))
	i, j := 0, 0
	for i < len(b.TIU) && j < len(b.DMA) {
		if b.TIU[i].Index <= b.DMA[j].Index {
			out = append(out, b.TIU[i])
			i++
		} else {
			out = append(out, b.DMA[j])
			j++
		}
	}
	out = append(out, b.TIU[i:]...)
	out = append(out, b.DMA[j:]...)
	return out
}

// DecodeCmdGroup decodes both command buffers of a group.
func (d *Decoder) DecodeCmdGroup(g *bmodel.CmdGroup, subnetID uint32) (*Bundle, error) {
	tiu, err := d.DecodeTIUBits(g.TIU)
	if err != nil {
		return nil, fmt.Errorf("subnet %d: %w", subnetID, err)
	}
	dma, err := d.DecodeDMABits(g.DMA)
	if err != nil {
		return nil, fmt.Errorf("subnet %d: %w", subnetID, err)
	}
	return &Bundle{SubNetID: subnetID, TIU: tiu, DMA: dma}, nil
}
