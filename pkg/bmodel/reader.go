package bmodel

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// maxDimCount bounds tensor rank; real programs use at most 4-D shapes
// plus a batch dimension.
const maxDimCount = 8

// File is a parsed, read-only BModel container. CmdGroup buffers alias
// the underlying mapping, so the file must stay open while they are used.
type File struct {
	Header Header
	Chip   string
	Nets   []Net

	data    []byte
	mmapped bool
}

// Open maps a BModel file read-only and parses its structure.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// The returned file must be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size64 := stat.Size()
	if size64 < 0 || size64 > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	size := int(size64)
	if size < headerSize {
		return nil, ErrCorruptFile
	}

	// Prefer mmap where available for zero-copy command buffers.
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		bf, parseErr := parseFileData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return bf, nil
	}

	// Fallback path that does not require mmap support.
	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

// OpenReaderAt loads and parses a BModel from a random-access reader
// without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrCorruptFile
	}
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parseFileData(data []byte, mmapped bool) (*File, error) {
	if len(data) < headerSize {
		return nil, ErrCorruptFile
	}
	hdr, ok := decodeHeader(data[:headerSize])
	if !ok {
		return nil, ErrCorruptFile
	}
	if !hdr.Valid() {
		return nil, ErrInvalidMagic
	}
	if !hdr.Compatible() {
		return nil, ErrUnsupportedMajor
	}
	if hdr.FileSize != uint64(len(data)) {
		return nil, ErrCorruptFile
	}
	if uint64(hdr.HeaderSize) > uint64(len(data)) {
		return nil, ErrCorruptFile
	}

	c := &cursor{data: data, off: int(hdr.HeaderSize)}
	nets := make([]Net, 0, hdr.NetCount)
	for i := uint32(0); i < hdr.NetCount; i++ {
		net, err := parseNet(c)
		if err != nil {
			return nil, fmt.Errorf("%w: net %d: %v", ErrCorruptFile, i, err)
		}
		nets = append(nets, net)
	}
	if c.off != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptFile, len(data)-c.off)
	}

	return &File{
		Header:  hdr,
		Chip:    hdr.ChipTag(),
		Nets:    nets,
		data:    data,
		mmapped: mmapped,
	}, nil
}

func parseNet(c *cursor) (Net, error) {
	var net Net
	paramCount, ok := c.u32()
	if !ok {
		return net, fmt.Errorf("parameter count out of bounds")
	}
	net.Parameters = make([]Parameter, 0, paramCount)
	for i := uint32(0); i < paramCount; i++ {
		param, err := parseParameter(c)
		if err != nil {
			return net, fmt.Errorf("parameter %d: %w", i, err)
		}
		net.Parameters = append(net.Parameters, param)
	}
	return net, nil
}

func parseParameter(c *cursor) (Parameter, error) {
	var param Parameter
	subnetCount, ok := c.u32()
	if !ok {
		return param, fmt.Errorf("subnet count out of bounds")
	}
	tensorCount, ok := c.u32()
	if !ok {
		return param, fmt.Errorf("tensor count out of bounds")
	}

	param.SubNets = make([]SubNet, 0, subnetCount)
	for i := uint32(0); i < subnetCount; i++ {
		sn, err := parseSubNet(c)
		if err != nil {
			return param, fmt.Errorf("subnet %d: %w", i, err)
		}
		param.SubNets = append(param.SubNets, sn)
	}

	param.Tensors = make([]Tensor, 0, tensorCount)
	for i := uint32(0); i < tensorCount; i++ {
		tensor, err := parseTensor(c)
		if err != nil {
			return param, fmt.Errorf("tensor %d: %w", i, err)
		}
		param.Tensors = append(param.Tensors, tensor)
	}
	return param, nil
}

func parseSubNet(c *cursor) (SubNet, error) {
	var sn SubNet
	id, ok := c.u32()
	if !ok {
		return sn, fmt.Errorf("id out of bounds")
	}
	groupCount, ok := c.u32()
	if !ok {
		return sn, fmt.Errorf("command group count out of bounds")
	}
	sn.ID = id
	sn.CmdGroups = make([]CmdGroup, 0, groupCount)
	for i := uint32(0); i < groupCount; i++ {
		tiuLen, ok := c.u32()
		if !ok {
			return sn, fmt.Errorf("group %d: tiu length out of bounds", i)
		}
		dmaLen, ok := c.u32()
		if !ok {
			return sn, fmt.Errorf("group %d: dma length out of bounds", i)
		}
		tiu, ok := c.bytes(int(tiuLen))
		if !ok {
			return sn, fmt.Errorf("group %d: tiu buffer out of bounds", i)
		}
		dma, ok := c.bytes(int(dmaLen))
		if !ok {
			return sn, fmt.Errorf("group %d: dma buffer out of bounds", i)
		}
		sn.CmdGroups = append(sn.CmdGroups, CmdGroup{TIU: tiu, DMA: dma})
	}
	return sn, nil
}

func parseTensor(c *cursor) (Tensor, error) {
	var t Tensor
	addr, ok := c.u64()
	if !ok {
		return t, fmt.Errorf("device address out of bounds")
	}
	dtype, ok := c.u32()
	if !ok {
		return t, fmt.Errorf("dtype out of bounds")
	}
	stMode, ok := c.u32()
	if !ok {
		return t, fmt.Errorf("storage mode out of bounds")
	}
	padH, ok := c.u32()
	if !ok {
		return t, fmt.Errorf("pad_h out of bounds")
	}
	dimCount, ok := c.u32()
	if !ok {
		return t, fmt.Errorf("dim count out of bounds")
	}
	if dimCount > maxDimCount {
		return t, fmt.Errorf("dim count %d exceeds limit", dimCount)
	}
	shape := make([]int64, 0, dimCount)
	for i := uint32(0); i < dimCount; i++ {
		d, ok := c.u32()
		if !ok {
			return t, fmt.Errorf("dim %d out of bounds", i)
		}
		shape = append(shape, int64(d))
	}
	t.DeviceAddr = addr
	t.DType = dtype
	t.STMode = stMode
	t.PadH = padH
	t.Shape = shape
	return t, nil
}

// Close releases file resources and any mmap backing. Command buffers
// obtained from this file must not be used afterwards.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	if f.data != nil {
		var err error
		if f.mmapped {
			err = unix.Munmap(f.data)
		}
		f.data = nil
		f.Nets = nil
		f.mmapped = false
		return err
	}
	f.Nets = nil
	return nil
}

// SubNetCount returns the total number of subnets across all nets.
func (f *File) SubNetCount() int {
	n := 0
	for i := range f.Nets {
		for j := range f.Nets[i].Parameters {
			n += len(f.Nets[i].Parameters[j].SubNets)
		}
	}
	return n
}
