package lzw

import (
	"errors"
	"io"
)

// MaxBlockSize is the largest payload a single sub-block can carry.
const MaxBlockSize = 255

var (
	ErrTruncated        = errors.New("lzw: truncated data")
	ErrUnsupportedWidth = errors.New("lzw: unsupported literal width")
	ErrInvalidCode      = errors.New("lzw: invalid code")
	ErrInvalidLiteral   = errors.New("lzw: literal out of range")
)

// BlockReader exposes the payload of a sequence of length-prefixed
// sub-blocks as a contiguous byte stream. It returns io.EOF once the
// zero-length terminator block has been consumed.
type BlockReader struct {
	r    io.ByteReader
	buf  [MaxBlockSize]byte
	size int
	next int
	done bool
}

func NewBlockReader(r io.ByteReader) *BlockReader {
	return &BlockReader{r: r}
}

func (b *BlockReader) readNextBlock() error {
	n, err := b.r.ReadByte()
	if err != nil {
		return truncated(err)
	}
	if n == 0 {
		b.done = true
		return io.EOF
	}
	for i := 0; i < int(n); i++ {
		c, err := b.r.ReadByte()
		if err != nil {
			return truncated(err)
		}
		b.buf[i] = c
	}
	b.size = int(n)
	b.next = 0
	return nil
}

func (b *BlockReader) ReadByte() (byte, error) {
	if b.done {
		return 0, io.EOF
	}
	if b.next >= b.size {
		if err := b.readNextBlock(); err != nil {
			return 0, err
		}
	}
	c := b.buf[b.next]
	b.next++
	return c, nil
}

func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}

// BlockWriter splits a byte stream into sub-blocks of at most 255 bytes.
// Close flushes the pending block and writes the terminator.
type BlockWriter struct {
	w   io.Writer
	buf [1 + MaxBlockSize]byte
	n   int
	err error
}

func NewBlockWriter(w io.Writer) *BlockWriter {
	return &BlockWriter{w: w}
}

func (b *BlockWriter) WriteByte(c byte) error {
	if b.err != nil {
		return b.err
	}
	b.buf[1+b.n] = c
	b.n++
	if b.n == MaxBlockSize {
		b.flush()
	}
	return b.err
}

func (b *BlockWriter) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := b.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

func (b *BlockWriter) flush() {
	if b.n == 0 || b.err != nil {
		return
	}
	b.buf[0] = byte(b.n)
	_, b.err = b.w.Write(b.buf[:b.n+1])
	b.n = 0
}

func (b *BlockWriter) Close() error {
	b.flush()
	if b.err != nil {
		return b.err
	}
	_, b.err = b.w.Write([]byte{0})
	return b.err
}
