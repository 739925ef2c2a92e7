package lzw

import "io"

const (
	minCodeWidth = 2
	maxCodeWidth = 12
)

// CodeReader reads variable width codes packed least significant bit
// first, the GIF bit order.
type CodeReader struct {
	r     io.ByteReader
	bits  uint32
	nBits uint
}

func NewCodeReader(r io.ByteReader) *CodeReader {
	return &CodeReader{r: r}
}

// Next returns the next code of the given width. io.EOF is returned when the
// underlying sub-blocks ended, leftover bits being padding. Running out of
// input without a terminator yields ErrTruncated.
func (c *CodeReader) Next(width int) (uint16, error) {
	if width < minCodeWidth || width > maxCodeWidth {
		return 0, ErrUnsupportedWidth
	}
	for c.nBits < uint(width) {
		x, err := c.r.ReadByte()
		if err == io.EOF {
			return 0, io.EOF
		}
		if err != nil {
			return 0, truncated(err)
		}
		c.bits |= uint32(x) << c.nBits
		c.nBits += 8
	}
	code := uint16(c.bits & (1<<uint(width) - 1))
	c.bits >>= uint(width)
	c.nBits -= uint(width)
	return code, nil
}

// CodeWriter is the inverse of CodeReader.
type CodeWriter struct {
	w     io.ByteWriter
	bits  uint32
	nBits uint
}

func NewCodeWriter(w io.ByteWriter) *CodeWriter {
	return &CodeWriter{w: w}
}

func (c *CodeWriter) Emit(code uint16, width int) error {
	if width < minCodeWidth || width > maxCodeWidth {
		return ErrUnsupportedWidth
	}
	c.bits |= uint32(code&(1<<uint(width)-1)) << c.nBits
	c.nBits += uint(width)
	for c.nBits >= 8 {
		if err := c.w.WriteByte(uint8(c.bits)); err != nil {
			return err
		}
		c.bits >>= 8
		c.nBits -= 8
	}
	return nil
}

// Flush writes the remaining bits, zero padded to a byte boundary.
func (c *CodeWriter) Flush() error {
	if c.nBits == 0 {
		return nil
	}
	err := c.w.WriteByte(uint8(c.bits))
	c.bits, c.nBits = 0, 0
	return err
}
