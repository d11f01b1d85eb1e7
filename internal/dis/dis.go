// Package dis is the conversion pipeline: it turns a parsed container
// into one of three interchangeable projections. The textual module
// form, the per-subnet register dump, and the raw binary export all
// read the same decoded instruction streams.
package dis

import (
	"fmt"
	"iter"
	"os"

	"github.com/accelkit/bmdis/internal/decode"
	"github.com/accelkit/bmdis/internal/device"
	"github.com/accelkit/bmdis/pkg/bmodel"
)

// ToModule decodes the whole container into a single module object.
func ToModule(ctx *device.Context, f *bmodel.File) (*decode.Module, error) {
	return ctx.BModelToModule(f)
}

// RegItem is one element of the register-form stream.
type RegItem struct {
	SubNetID uint32
	Cmds     *decode.Bundle
}

// RegStream walks Net → Parameter → SubNet → CmdGroup in container order
// and decodes each command group on demand. The sequence is finite,
// single-pass and not restartable; re-iteration requires a fresh call.
// A decode failure is yielded as the final element's error.
func RegStream(ctx *device.Context, f *bmodel.File) iter.Seq2[*RegItem, error] {
	dec := ctx.Decoder()
	return func(yield func(*RegItem, error) bool) {
		for ni := range f.Nets {
			for pi := range f.Nets[ni].Parameters {
				param := &f.Nets[ni].Parameters[pi]
				for si := range param.SubNets {
					sn := &param.SubNets[si]
					for gi := range sn.CmdGroups {
						bundle, err := dec.DecodeCmdGroup(&sn.CmdGroups[gi], sn.ID)
						if err != nil {
							yield(nil, err)
							return
						}
						if !yield(&RegItem{SubNetID: sn.ID, Cmds: bundle}, nil) {
							return
						}
					}
				}
			}
		}
	}
}

// ExportBin writes every command group's raw buffers next to the
// container as <path>.<subnetID>.tiu.bin and <path>.<subnetID>.dma.bin.
// Existing files are overwritten without confirmation; writes are not
// transactional.
func ExportBin(f *bmodel.File, path string) error {
	for ni := range f.Nets {
		for pi := range f.Nets[ni].Parameters {
			param := &f.Nets[ni].Parameters[pi]
			for si := range param.SubNets {
				sn := &param.SubNets[si]
				for gi := range sn.CmdGroups {
					g := &sn.CmdGroups[gi]
					tiuPath := fmt.Sprintf("%s.%d.tiu.bin", path, sn.ID)
					if err := os.WriteFile(tiuPath, g.TIU, 0o644); err != nil {
						return err
					}
					dmaPath := fmt.Sprintf("%s.%d.dma.bin", path, sn.ID)
					if err := os.WriteFile(dmaPath, g.DMA, 0o644); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
