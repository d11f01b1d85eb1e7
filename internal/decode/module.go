package decode

import (
	"fmt"
	"strings"

	"github.com/accelkit/bmdis/internal/isa"
	"github.com/accelkit/bmdis/pkg/bmodel"
)

// Module is the whole-container module projection: one function per
// subnet, in container order.
type Module struct {
	Chip  string
	Funcs []*Func
}

// Func is one subnet rendered as a pseudo-function. Path is the index
// path (net, parameter, subnet) within the container.
type Func struct {
	Path     []int
	SubNetID uint32
	Ops      []*isa.Inst
}

// Name returns the function label derived from the index path, e.g.
// "graph001" for net 0, parameter 0, subnet 1.
func (f *Func) Name() string {
	var b strings.Builder
	b.WriteString("graph")
	for _, x := range f.Path {
		fmt.Fprintf(&b, "%d", x)
	}
	return b.String()
}

func (m *Module) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "module attributes {chip = %q} {\n", m.Chip)
	for _, fn := range m.Funcs {
		fmt.Fprintf(&b, "  func.func @%s() {\n", fn.Name())
		for _, op := range fn.Ops {
			b.WriteString("    ")
			b.WriteString(op.String())
			b.WriteByte('\n')
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// BuildModule decodes every command group of the container into the
// module projection. Groups of one subnet are concatenated in container
// order.
func (d *Decoder) BuildModule(f *bmodel.File) (*Module, error) {
	m := &Module{Chip: f.Chip}
	for ni := range f.Nets {
		for pi := range f.Nets[ni].Parameters {
			param := &f.Nets[ni].Parameters[pi]
			for si := range param.SubNets {
				sn := &param.SubNets[si]
				fn := &Func{Path: []int{ni, pi, si}, SubNetID: sn.ID}
				for gi := range sn.CmdGroups {
					bundle, err := d.DecodeCmdGroup(&sn.CmdGroups[gi], sn.ID)
					if err != nil {
						return nil, fmt.Errorf("net %d parameter %d: %w", ni, pi, err)
					}
					fn.Ops = append(fn.Ops, bundle.All()...)
				}
				m.Funcs = append(m.Funcs, fn)
			}
		}
	}
	return m, nil
}
