// Package bmodel implements the BModel container file format.
//
// A BModel is a single-file, memory-mappable container for compiled
// accelerator programs. It holds the target chip identity and one or more
// instruction graphs, each carrying raw TIU (compute) and DMA
// (data-movement) command buffers plus the tensor descriptors of its
// inputs and outputs. The container describes structure and data only; it
// never implies runtime behaviour.
package bmodel

// BModel global constants must never change.
const (
	// Magic is the file magic for all BModel containers, encoded as "BMDL".
	Magic = "BMDL"

	// CurrentMajor: any change indicates a breaking format change.
	CurrentMajor uint16 = 1

	// CurrentMinor: versions may add new optional fields.
	CurrentMinor uint16 = 0
)

const (
	headerSize = 48
	chipTagLen = 16
)

// Header is the fixed little-endian file header.
type Header struct {
	Magic      [4]byte
	Major      uint16
	Minor      uint16
	HeaderSize uint32
	NetCount   uint32
	Chip       [chipTagLen]byte
	FileSize   uint64
	Flags      uint64
}

// Valid reports whether the header carries the BModel magic and a sane size.
func (h *Header) Valid() bool {
	if string(h.Magic[:]) != Magic {
		return false
	}
	return h.HeaderSize >= headerSize
}

// Compatible reports whether this reader understands the file's major version.
func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

// ChipTag returns the chip identity with NUL padding stripped.
func (h *Header) ChipTag() string {
	tag := h.Chip[:]
	for i, b := range tag {
		if b == 0 {
			return string(tag[:i])
		}
	}
	return string(tag)
}

// Net is one network of the container.
type Net struct {
	Parameters []Parameter
}

// Parameter groups the subnets of one parameterisation of a net together
// with the tensor descriptors of its inputs and outputs.
type Parameter struct {
	SubNets []SubNet
	Tensors []Tensor
}

// SubNet is one instruction graph. IDs are unique within a net.
type SubNet struct {
	ID        uint32
	CmdGroups []CmdGroup
}

// CmdGroup holds one contiguous block of raw instruction bytes per
// category. The buffers alias the file mapping and must be treated as
// immutable; they become invalid after File.Close.
type CmdGroup struct {
	TIU []byte
	DMA []byte
}

// Tensor describes one memory-resident operand.
type Tensor struct {
	DeviceAddr uint64
	DType      uint32
	STMode     uint32
	PadH       uint32
	Shape      []int64
}
