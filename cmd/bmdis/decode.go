package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/accelkit/bmdis/internal/device"
	"github.com/accelkit/bmdis/internal/dis"
	"github.com/accelkit/bmdis/internal/isa"
	"github.com/accelkit/bmdis/internal/logger"
	"github.com/accelkit/bmdis/pkg/bmodel"
)

// openModel opens a container and resolves the device context for its
// chip tag.
func openModel(log logger.Logger, path string) (*bmodel.File, *device.Context, error) {
	f, err := bmodel.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	ctx, err := device.NewContextForChip(f.Chip)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug("opened bmodel", "path", path, "chip", f.Chip, "subnets", f.SubNetCount())
	return f, ctx, nil
}

// decodeOne handles the single-container path of the CLI.
func decodeOne(log logger.Logger, path string) error {
	if formatFlag == "bits" {
		return errors.New("bits mode is not implemented for a single bmodel")
	}

	f, ctx, err := openModel(log, path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	switch formatFlag {
	case "mlir":
		module, err := dis.ToModule(ctx, f)
		if err != nil {
			return err
		}
		fmt.Print(module.String())
		return nil

	case "reg":
		return printReg(ctx, f)

	case "bin":
		if err := dis.ExportBin(f, path); err != nil {
			return err
		}
		log.Info("exported command buffers", "path", path, "subnets", f.SubNetCount())
		return nil
	}
	return fmt.Errorf("unknown format %q", formatFlag)
}

// subnetRegs is the register-form JSON shape of one subnet.
type subnetRegs struct {
	TIU []isa.RegMap `json:"tiu"`
	DMA []isa.RegMap `json:"dma"`
}

// printReg materialises the register-form stream into a JSON document
// keyed by subnet id.
func printReg(ctx *device.Context, f *bmodel.File) error {
	out := make(map[string]*subnetRegs)
	for item, err := range dis.RegStream(ctx, f) {
		if err != nil {
			return err
		}
		key := strconv.FormatUint(uint64(item.SubNetID), 10)
		regs := out[key]
		if regs == nil {
			regs = &subnetRegs{}
			out[key] = regs
		}
		for _, op := range item.Cmds.TIU {
			regs.TIU = append(regs.TIU, op.Reg)
		}
		for _, op := range item.Cmds.DMA {
			regs.DMA = append(regs.DMA, op.Reg)
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
