// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package lzw implements the variable code width LZW variant used by GIF
// image data, together with the sub-block framing that carries it.
package lzw

import "io"

const (
	dictSize    = 1 << maxCodeWidth
	invalidCode = 0xffff
)

// Reader decompresses a code stream incrementally, so that callers can
// consume a large image row by row.
type Reader struct {
	cr *CodeReader

	litWidth int
	width    int

	clear, eof uint16
	// hi is the next dictionary slot to be defined.
	hi       uint16
	overflow uint16
	last     uint16

	suffix [dictSize]uint8
	prefix [dictSize]uint16
	// stack[out:] is the expansion of the last code not yet returned
	stack [dictSize]uint8
	out   int

	err error
}

// NewReader returns a Reader decoding codes from src. The code width grows
// as soon as the next slot to be defined needs one more bit. Once the
// dictionary holds 4096 entries it is frozen until the encoder sends a clear
// code.
func NewReader(src io.ByteReader, litWidth int) (*Reader, error) {
	if litWidth < minCodeWidth || litWidth > 8 {
		return nil, ErrUnsupportedWidth
	}

	d := &Reader{
		cr:       NewCodeReader(src),
		litWidth: litWidth,
	}
	d.clear = 1 << litWidth
	d.eof = d.clear + 1
	d.out = len(d.stack)
	d.reset()
	return d, nil
}

// Read implements io.Reader. It returns io.EOF at the end-of-information
// code or at the end of the sub-blocks.
func (d *Reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if d.out < len(d.stack) {
			c := copy(p[n:], d.stack[d.out:])
			n += c
			d.out += c
			continue
		}
		if d.err != nil {
			break
		}
		d.err = d.decode()
	}
	if n > 0 || len(p) == 0 {
		return n, nil
	}
	return 0, d.err
}

// decode expands the next code into the stack.
func (d *Reader) decode() error {
	code, err := d.cr.Next(d.width)
	if err != nil {
		return err
	}

	switch {
	case code < d.clear:
		d.out = len(d.stack) - 1
		d.stack[d.out] = uint8(code)
		if d.last != invalidCode {
			d.suffix[d.hi] = uint8(code)
			d.prefix[d.hi] = d.last
		}

	case code == d.clear:
		d.reset()
		return nil

	case code == d.eof:
		return io.EOF

	case code <= d.hi:
		c, i := code, len(d.stack)-1
		if code == d.hi && d.last != invalidCode {
			// The code being defined expands to the previous string
			// followed by its own first byte.
			c = d.last
			for c >= d.clear {
				c = d.prefix[c]
			}
			d.stack[i] = uint8(c)
			i--
			c = d.last
		}
		for c >= d.clear {
			d.stack[i] = d.suffix[c]
			i--
			c = d.prefix[c]
		}
		d.stack[i] = uint8(c)
		d.out = i

		if d.last != invalidCode {
			d.suffix[d.hi] = uint8(c)
			d.prefix[d.hi] = d.last
		}

	default:
		return ErrInvalidCode
	}

	d.last, d.hi = code, d.hi+1
	if d.hi >= d.overflow {
		if d.width == maxCodeWidth {
			d.last = invalidCode
			d.hi--
		} else {
			d.width++
			d.overflow = 1 << d.width
		}
	}
	return nil
}

func (d *Reader) reset() {
	d.width = d.litWidth + 1
	d.hi = d.eof
	d.overflow = 1 << d.width
	d.last = invalidCode
}

// Decode decompresses codes read from src into dst and returns the number of
// bytes written. It stops at the end-of-information code, at the end of the
// sub-blocks or as soon as dst is full, whichever comes first.
func Decode(src io.ByteReader, litWidth int, dst []byte) (int, error) {
	r, err := NewReader(src, litWidth)
	if err != nil {
		return 0, err
	}

	n := 0
	for n < len(dst) {
		m, err := r.Read(dst[n:])
		n += m
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
