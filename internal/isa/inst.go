package isa

import (
	"fmt"
	"strings"
)

// RegEntry is one named register value of a decoded command.
type RegEntry struct {
	Name  string
	Value uint64
}

// RegMap is the ordered register mapping of a decoded command. Order
// follows the opcode class's field table.
type RegMap []RegEntry

// Get returns the value of a named field.
func (r RegMap) Get(name string) (uint64, bool) {
	for i := range r {
		if r[i].Name == name {
			return r[i].Value, true
		}
	}
	return 0, false
}

// MarshalJSON keeps the field table order instead of sorting keys.
func (r RegMap) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%d", r[i].Name, r[i].Value)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// Inst is one decoded instruction. Class and Cmd are read-only; Cmd
// aliases the container's command buffer.
type Inst struct {
	Class *OpClass
	Reg   RegMap
	Cmd   []byte

	// Index is the command's position within its category stream.
	Index int
}

// String renders the module-form projection of the instruction.
func (i *Inst) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%%%d = %q () ", i.Index, i.Class.FullName())
	b.WriteString(i.RegText())
	return b.String()
}

// RegText renders the raw attribute projection: the ordered register
// mapping as an MLIR-style attribute dictionary.
func (i *Inst) RegText() string {
	var b strings.Builder
	b.WriteByte('{')
	for j := range i.Reg {
		if j > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = %d", i.Reg[j].Name, i.Reg[j].Value)
	}
	b.WriteByte('}')
	return b.String()
}

// BitsText renders the raw command bytes as hex.
func (i *Inst) BitsText() string {
	var b strings.Builder
	for _, x := range i.Cmd {
		fmt.Fprintf(&b, "%02x", x)
	}
	return b.String()
}

// ExtractBits reads a little-endian bit slice [off, off+n) out of a
// command buffer. Bit 0 is the least significant bit of cmd[0]. n must
// be at most 64 and the slice must lie inside the buffer.
func ExtractBits(cmd []byte, off, n uint32) (uint64, error) {
	if n == 0 || n > 64 {
		return 0, fmt.Errorf("bit field length %d out of range", n)
	}
	end := uint64(off) + uint64(n)
	if end > uint64(len(cmd))*8 {
		return 0, fmt.Errorf("bit field [%d,%d) exceeds command size %d bytes", off, end, len(cmd))
	}
	var v uint64
	for i := uint32(0); i < n; i++ {
		bit := off + i
		if cmd[bit/8]>>(bit%8)&1 == 1 {
			v |= 1 << i
		}
	}
	return v, nil
}
