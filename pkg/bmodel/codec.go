package bmodel

import "encoding/binary"

// All on-disk integers are little-endian. The header is encoded field by
// field rather than via unsafe casts so the layout is independent of the
// host architecture.

func encodeHeader(dst []byte, h Header) bool {
	if len(dst) < headerSize {
		return false
	}
	copy(dst[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(dst[4:6], h.Major)
	binary.LittleEndian.PutUint16(dst[6:8], h.Minor)
	binary.LittleEndian.PutUint32(dst[8:12], h.HeaderSize)
	binary.LittleEndian.PutUint32(dst[12:16], h.NetCount)
	copy(dst[16:16+chipTagLen], h.Chip[:])
	binary.LittleEndian.PutUint64(dst[32:40], h.FileSize)
	binary.LittleEndian.PutUint64(dst[40:48], h.Flags)
	return true
}

func decodeHeader(src []byte) (Header, bool) {
	var h Header
	if len(src) < headerSize {
		return h, false
	}
	copy(h.Magic[:], src[0:4])
	h.Major = binary.LittleEndian.Uint16(src[4:6])
	h.Minor = binary.LittleEndian.Uint16(src[6:8])
	h.HeaderSize = binary.LittleEndian.Uint32(src[8:12])
	h.NetCount = binary.LittleEndian.Uint32(src[12:16])
	copy(h.Chip[:], src[16:16+chipTagLen])
	h.FileSize = binary.LittleEndian.Uint64(src[32:40])
	h.Flags = binary.LittleEndian.Uint64(src[40:48])
	return h, true
}

// cursor walks the container body with bounds checking. Every read fails
// with ok=false once the cursor has run past the mapped data.
type cursor struct {
	data []byte
	off  int
}

func (c *cursor) u32() (uint32, bool) {
	if c.off+4 > len(c.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(c.data[c.off : c.off+4])
	c.off += 4
	return v, true
}

func (c *cursor) u64() (uint64, bool) {
	if c.off+8 > len(c.data) {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(c.data[c.off : c.off+8])
	c.off += 8
	return v, true
}

// bytes returns a zero-copy slice over the next n bytes of the mapping.
func (c *cursor) bytes(n int) ([]byte, bool) {
	if n < 0 || c.off+n > len(c.data) || c.off+n < c.off {
		return nil, false
	}
	b := c.data[c.off : c.off+n : c.off+n]
	c.off += n
	return b, true
}
