// Package device resolves a chip variant to its opcode-definition set,
// operand layout and simulator, and exposes the decode session context.
package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/accelkit/bmdis/internal/device/bm1684"
	"github.com/accelkit/bmdis/internal/device/bm1684x"
	"github.com/accelkit/bmdis/internal/isa"
	"github.com/accelkit/bmdis/internal/sim"
)

var (
	ErrUnsupportedDevice = errors.New("unsupported device")
	ErrPadH              = errors.New("nonzero height padding is not supported")
	ErrPackedStorage     = errors.New("packed 2N/4N storage is not supported on this device")
)

// Variant is the closed set of supported chip variants.
type Variant uint8

const (
	BM1684X Variant = iota + 1
	BM1684
)

func (v Variant) String() string {
	switch v {
	case BM1684X:
		return bm1684x.Chip
	case BM1684:
		return bm1684.Chip
	}
	return fmt.Sprintf("variant(%d)", uint8(v))
}

// ParseVariant resolves a container chip tag to a variant.
func ParseVariant(tag string) (Variant, error) {
	switch strings.ToUpper(tag) {
	case bm1684x.Chip:
		return BM1684X, nil
	case bm1684.Chip:
		return BM1684, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedDevice, tag)
}

type entry struct {
	opset        *isa.OpSet
	memmap       isa.MemMap
	newSimulator func(memorySize uint64) (*sim.Simulator, error)
}

// registry is built once at startup; context construction is a pure
// lookup.
var registry = map[Variant]entry{
	BM1684X: {
		opset:        bm1684x.OpSet(),
		memmap:       bm1684x.MemMap(),
		newSimulator: bm1684x.NewSimulator,
	},
	BM1684: {
		opset:        bm1684.OpSet(),
		memmap:       bm1684.MemMap(),
		newSimulator: bm1684.NewSimulator,
	},
}
