package bmodel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Writer builds a BModel file. The header is reserved up-front and
// patched during Finalise so the body can be streamed net by net.
type Writer struct {
	f        *os.File
	chip     string
	netCount uint32
	closed   bool

	buf [8]byte
}

// NewWriter creates a new BModel writer targeting the given file.
// It truncates the file and reserves space for the header.
func NewWriter(f *os.File, chip string) (*Writer, error) {
	if f == nil {
		return nil, errors.New("bmodel: nil file")
	}
	if len(chip) == 0 || len(chip) > chipTagLen {
		return nil, fmt.Errorf("bmodel: invalid chip tag %q", chip)
	}

	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	w := &Writer{f: f, chip: chip}

	// Reserve fixed header bytes (actual bytes, not a seek hole).
	var zeros [headerSize]byte
	if err := writeFull(f, zeros[:]); err != nil {
		return nil, err
	}
	return w, nil
}

// WriteNet appends one net to the container body.
func (w *Writer) WriteNet(net Net) error {
	if w.closed {
		return errors.New("bmodel: writer already finalised")
	}
	if err := w.u32(uint32(len(net.Parameters))); err != nil {
		return err
	}
	for i := range net.Parameters {
		if err := w.writeParameter(&net.Parameters[i]); err != nil {
			return err
		}
	}
	w.netCount++
	return nil
}

func (w *Writer) writeParameter(p *Parameter) error {
	if err := w.u32(uint32(len(p.SubNets))); err != nil {
		return err
	}
	if err := w.u32(uint32(len(p.Tensors))); err != nil {
		return err
	}
	for i := range p.SubNets {
		if err := w.writeSubNet(&p.SubNets[i]); err != nil {
			return err
		}
	}
	for i := range p.Tensors {
		if err := w.writeTensor(&p.Tensors[i]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeSubNet(sn *SubNet) error {
	if err := w.u32(sn.ID); err != nil {
		return err
	}
	if err := w.u32(uint32(len(sn.CmdGroups))); err != nil {
		return err
	}
	for i := range sn.CmdGroups {
		g := &sn.CmdGroups[i]
		if err := w.u32(uint32(len(g.TIU))); err != nil {
			return err
		}
		if err := w.u32(uint32(len(g.DMA))); err != nil {
			return err
		}
		if err := writeFull(w.f, g.TIU); err != nil {
			return err
		}
		if err := writeFull(w.f, g.DMA); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeTensor(t *Tensor) error {
	if len(t.Shape) > maxDimCount {
		return fmt.Errorf("bmodel: tensor rank %d exceeds limit", len(t.Shape))
	}
	if err := w.u64(t.DeviceAddr); err != nil {
		return err
	}
	if err := w.u32(t.DType); err != nil {
		return err
	}
	if err := w.u32(t.STMode); err != nil {
		return err
	}
	if err := w.u32(t.PadH); err != nil {
		return err
	}
	if err := w.u32(uint32(len(t.Shape))); err != nil {
		return err
	}
	for _, d := range t.Shape {
		if d < 0 || d > int64(^uint32(0)) {
			return fmt.Errorf("bmodel: tensor dim %d out of range", d)
		}
		if err := w.u32(uint32(d)); err != nil {
			return err
		}
	}
	return nil
}

// Finalise patches the header. After Finalise, the writer must not be
// used again.
func (w *Writer) Finalise() error {
	if w.closed {
		return errors.New("bmodel: writer already finalised")
	}
	w.closed = true

	fileSize, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := w.f.Truncate(fileSize); err != nil {
		return err
	}

	var header Header
	copy(header.Magic[:], Magic)
	header.Major = CurrentMajor
	header.Minor = CurrentMinor
	header.HeaderSize = headerSize
	header.NetCount = w.netCount
	copy(header.Chip[:], w.chip)
	header.FileSize = uint64(fileSize)

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	var hdrBuf [headerSize]byte
	if !encodeHeader(hdrBuf[:], header) {
		return errors.New("bmodel: encode header failed")
	}
	if err := writeFull(w.f, hdrBuf[:]); err != nil {
		return err
	}
	return w.f.Sync()
}

func (w *Writer) u32(v uint32) error {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	return writeFull(w.f, w.buf[:4])
}

func (w *Writer) u64(v uint64) error {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	return writeFull(w.f, w.buf[:8])
}

func writeFull(f *os.File, p []byte) error {
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// WriteFile builds a complete container at path in one call.
func WriteFile(path, chip string, nets []Net) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w, err := NewWriter(f, chip)
	if err != nil {
		_ = f.Close()
		return err
	}
	for _, net := range nets {
		if err := w.WriteNet(net); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Finalise(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
