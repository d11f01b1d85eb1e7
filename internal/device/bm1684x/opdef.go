package bm1684x

import (
	"sync"

	"github.com/accelkit/bmdis/internal/isa"
)

const (
	tiuCmdBytes = 16
	dmaCmdBytes = 24
)

// TIU task types.
const (
	tskConv   = 0
	tskMM     = 1
	tskAdd    = 2
	tskCopy   = 3
	tskPool   = 4
	tskTIUEnd = 15
)

// DMA command types.
const (
	cmdTensor = 0
	cmdMatrix = 1
	cmdConst  = 2
	cmdDMAEnd = 15
)

var (
	opSetOnce sync.Once
	opSet     *isa.OpSet
)

// OpSet returns the variant's opcode-definition set. The tables are built
// once; the returned set is immutable.
func OpSet() *isa.OpSet {
	opSetOnce.Do(func() {
		opSet = isa.NewOpSet(tiuCmdBytes, dmaCmdBytes, tiuClasses(), dmaClasses())
	})
	return opSet
}

func tiuClasses() []*isa.OpClass {
	return []*isa.OpClass{
		{
			Name: "conv.normal", Category: isa.CatTIU, Opcode: tskConv,
			Fields: []isa.Field{
				{Name: "tsk_typ", Off: 0, Len: 8},
				{Name: "cmd_id", Off: 8, Len: 16},
				{Name: "res0_addr", Off: 24, Len: 24},
				{Name: "opd0_addr", Off: 48, Len: 24},
				{Name: "opd1_addr", Off: 72, Len: 24},
				{Name: "res_n", Off: 96, Len: 8},
				{Name: "res_c", Off: 104, Len: 8},
				{Name: "res_h", Off: 112, Len: 8},
				{Name: "res_w", Off: 120, Len: 8},
			},
		},
		{
			Name: "mm.normal", Category: isa.CatTIU, Opcode: tskMM,
			Fields: []isa.Field{
				{Name: "tsk_typ", Off: 0, Len: 8},
				{Name: "cmd_id", Off: 8, Len: 16},
				{Name: "res0_addr", Off: 24, Len: 24},
				{Name: "opd0_addr", Off: 48, Len: 24},
				{Name: "opd1_addr", Off: 72, Len: 24},
				{Name: "left_rows", Off: 96, Len: 16},
				{Name: "left_cols", Off: 112, Len: 16},
			},
		},
		{
			Name: "arith.add", Category: isa.CatTIU, Opcode: tskAdd,
			Fields: []isa.Field{
				{Name: "tsk_typ", Off: 0, Len: 8},
				{Name: "cmd_id", Off: 8, Len: 16},
				{Name: "res0_addr", Off: 24, Len: 24},
				{Name: "opd0_addr", Off: 48, Len: 24},
				{Name: "opd1_addr", Off: 72, Len: 24},
				{Name: "length", Off: 96, Len: 32},
			},
		},
		{
			Name: "arith.copy", Category: isa.CatTIU, Opcode: tskCopy,
			Fields: []isa.Field{
				{Name: "tsk_typ", Off: 0, Len: 8},
				{Name: "cmd_id", Off: 8, Len: 16},
				{Name: "res0_addr", Off: 24, Len: 24},
				{Name: "opd0_addr", Off: 48, Len: 24},
				{Name: "length", Off: 96, Len: 32},
			},
		},
		{
			Name: "pool.avg", Category: isa.CatTIU, Opcode: tskPool,
			Fields: []isa.Field{
				{Name: "tsk_typ", Off: 0, Len: 8},
				{Name: "cmd_id", Off: 8, Len: 16},
				{Name: "res0_addr", Off: 24, Len: 24},
				{Name: "opd0_addr", Off: 48, Len: 24},
				{Name: "kh", Off: 72, Len: 8},
				{Name: "kw", Off: 80, Len: 8},
			},
		},
		{
			Name: "sys.end", Category: isa.CatTIU, Opcode: tskTIUEnd,
			Fields: []isa.Field{
				{Name: "tsk_typ", Off: 0, Len: 8},
				{Name: "cmd_id", Off: 8, Len: 16},
			},
		},
	}
}

func dmaClasses() []*isa.OpClass {
	return []*isa.OpClass{
		{
			Name: "tensor", Category: isa.CatDMA, Opcode: cmdTensor,
			Fields: []isa.Field{
				{Name: "cmd_type", Off: 0, Len: 8},
				{Name: "cmd_id", Off: 8, Len: 16},
				{Name: "src_addr", Off: 24, Len: 40},
				{Name: "dst_addr", Off: 64, Len: 40},
				{Name: "length", Off: 104, Len: 32},
			},
		},
		{
			Name: "matrix", Category: isa.CatDMA, Opcode: cmdMatrix,
			Fields: []isa.Field{
				{Name: "cmd_type", Off: 0, Len: 8},
				{Name: "cmd_id", Off: 8, Len: 16},
				{Name: "src_addr", Off: 24, Len: 40},
				{Name: "dst_addr", Off: 64, Len: 40},
				{Name: "rows", Off: 104, Len: 16},
				{Name: "cols", Off: 120, Len: 16},
			},
		},
		{
			Name: "const", Category: isa.CatDMA, Opcode: cmdConst,
			Fields: []isa.Field{
				{Name: "cmd_type", Off: 0, Len: 8},
				{Name: "cmd_id", Off: 8, Len: 16},
				{Name: "dst_addr", Off: 64, Len: 40},
				{Name: "length", Off: 104, Len: 32},
				{Name: "value", Off: 136, Len: 32},
			},
		},
		{
			Name: "sys", Category: isa.CatDMA, Opcode: cmdDMAEnd,
			Fields: []isa.Field{
				{Name: "cmd_type", Off: 0, Len: 8},
				{Name: "cmd_id", Off: 8, Len: 16},
			},
		},
	}
}
