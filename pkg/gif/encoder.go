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
package gif

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"

	"github.com/ostafen/gifkit/internal/lzw"
)

const maxDimension = 1<<16 - 1

// EncodeFrame is one raster handed to the encoder. The raster is written at
// Image.Rect inside the logical screen.
type EncodeFrame struct {
	Image    *image.Paletted
	Disposal Disposal
	// Transparency is the palette index treated as transparent, or -1.
	Transparency int
	// Delay is expressed in hundredths of a second.
	Delay int
}

type EncodeOptions struct {
	// LoopCount is stored in the NETSCAPE2.0 extension: 0 loops forever,
	// n repeats the animation n more times and -1 writes no extension. It
	// is ignored for single frame streams.
	LoopCount int
	// Optimize trims color tables, drops local tables whose colors are all
	// in the global one and crops frames to the region they change.
	Optimize  bool
	Interlace bool

	BackgroundIndex uint8
	// Width and Height of the logical screen. When both are zero the union
	// of the frame bounds is used.
	Width, Height int

	Logger *slog.Logger
}

// Encode writes frames to w as a GIF89a stream. Frames are validated before
// anything is written.
func Encode(w io.Writer, frames []EncodeFrame, opts *EncodeOptions) error {
	if opts == nil {
		opts = &EncodeOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := validate(frames, opts); err != nil {
		return err
	}

	p := newPlan(frames, opts, logger)

	bw := bufio.NewWriter(w)
	e := &encoder{w: bw, p: p}
	if err := e.writeStream(); err != nil {
		return err
	}
	return bw.Flush()
}

func EncodeBytes(frames []EncodeFrame, opts *EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, frames, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func validate(frames []EncodeFrame, opts *EncodeOptions) error {
	if len(frames) == 0 {
		return fmt.Errorf("gif: no frames to encode: %w", ErrInvalidFrame)
	}
	if opts.Width < 0 || opts.Height < 0 || opts.Width > maxDimension || opts.Height > maxDimension {
		return fmt.Errorf("gif: invalid screen size %dx%d: %w", opts.Width, opts.Height, ErrInvalidFrame)
	}
	if opts.LoopCount < -1 || opts.LoopCount > maxDimension {
		return fmt.Errorf("gif: invalid loop count %d: %w", opts.LoopCount, ErrInvalidFrame)
	}
	explicitSize := opts.Width != 0 || opts.Height != 0

	for i, f := range frames {
		m := f.Image
		if m == nil {
			return invalidFrame(i, "nil image")
		}
		if len(m.Palette) == 0 {
			return invalidFrame(i, "empty palette")
		}
		if len(m.Palette) > 256 {
			return invalidFrame(i, "palette has %d colors", len(m.Palette))
		}
		r := m.Rect
		if r.Empty() || r.Min.X < 0 || r.Min.Y < 0 || r.Max.X > maxDimension || r.Max.Y > maxDimension {
			return invalidFrame(i, "invalid bounds %v", r)
		}
		if explicitSize && (r.Max.X > opts.Width || r.Max.Y > opts.Height) {
			return invalidFrame(i, "bounds %v outside %dx%d screen", r, opts.Width, opts.Height)
		}
		if len(m.Pix) < m.PixOffset(r.Max.X-1, r.Max.Y-1)+1 {
			return invalidFrame(i, "pixel buffer too short for bounds %v", r)
		}
		if !f.Disposal.Valid() {
			return invalidFrame(i, "invalid disposal %d", f.Disposal)
		}
		if f.Transparency < -1 || f.Transparency >= len(m.Palette) {
			return invalidFrame(i, "transparency index %d with %d colors", f.Transparency, len(m.Palette))
		}
		if f.Delay < 0 || f.Delay > maxDimension {
			return invalidFrame(i, "invalid delay %d", f.Delay)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			off := m.PixOffset(r.Min.X, y)
			for _, v := range m.Pix[off : off+r.Dx()] {
				if int(v) >= len(m.Palette) {
					return invalidFrame(i, "pixel index %d with %d colors", v, len(m.Palette))
				}
			}
		}
	}

	if int(opts.BackgroundIndex) >= len(frames[0].Image.Palette) {
		return fmt.Errorf("gif: background index %d with %d global colors: %w", opts.BackgroundIndex, len(frames[0].Image.Palette), ErrInvalidFrame)
	}
	return nil
}

type encoder struct {
	w   *bufio.Writer
	p   *plan
	buf [16]byte
}

func (e *encoder) writeStream() error {
	if err := e.writeHeader(); err != nil {
		return err
	}
	if e.p.loopCount >= 0 && len(e.p.frames) > 1 {
		if err := e.writeLoop(); err != nil {
			return err
		}
	}
	for i := range e.p.frames {
		if err := e.writeFrame(&e.p.frames[i]); err != nil {
			return err
		}
	}
	return e.w.WriteByte(sTrailer)
}

func (e *encoder) writeHeader() error {
	if _, err := e.w.WriteString(version89a); err != nil {
		return err
	}
	writeUint16(e.buf[0:2], e.p.width)
	writeUint16(e.buf[2:4], e.p.height)
	// 8 bits of color resolution.
	e.buf[4] = fColorTable | 7<<4 | tableBits(len(e.p.global))
	e.buf[5] = e.p.background
	e.buf[6] = 0 // aspect ratio
	if _, err := e.w.Write(e.buf[:7]); err != nil {
		return err
	}
	return e.writeColorTable(e.p.global)
}

func (e *encoder) writeColorTable(p color.Palette) error {
	for _, c := range p {
		rgb := toRGB(c)
		if _, err := e.w.Write(rgb[:]); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writeLoop() error {
	e.buf[0] = sExtension
	e.buf[1] = eApplication
	e.buf[2] = 11
	if _, err := e.w.Write(e.buf[:3]); err != nil {
		return err
	}
	if _, err := e.w.WriteString("NETSCAPE2.0"); err != nil {
		return err
	}
	e.buf[0] = 3 // block size
	e.buf[1] = 1 // sub-block index
	writeUint16(e.buf[2:4], e.p.loopCount)
	e.buf[4] = 0 // block terminator
	_, err := e.w.Write(e.buf[:5])
	return err
}

func (e *encoder) writeFrame(f *planFrame) error {
	var flags byte
	if f.transparency >= 0 {
		flags |= gcTransparentColorSet
	}
	flags |= (byte(f.disposal) << 2) & gcDisposalMethodMask

	e.buf[0] = sExtension
	e.buf[1] = eGraphicControl
	e.buf[2] = 4 // block size
	e.buf[3] = flags
	writeUint16(e.buf[4:6], f.delay)
	e.buf[6] = 0
	if f.transparency >= 0 {
		e.buf[6] = uint8(f.transparency)
	}
	e.buf[7] = 0 // block terminator
	if _, err := e.w.Write(e.buf[:8]); err != nil {
		return err
	}

	e.buf[0] = sImageDescriptor
	writeUint16(e.buf[1:3], f.bounds.Min.X)
	writeUint16(e.buf[3:5], f.bounds.Min.Y)
	writeUint16(e.buf[5:7], f.bounds.Dx())
	writeUint16(e.buf[7:9], f.bounds.Dy())
	e.buf[9] = 0
	tableLen := len(e.p.global)
	if f.palette != nil {
		e.buf[9] |= fColorTable | tableBits(len(f.palette))
		tableLen = len(f.palette)
	}
	if e.p.interlace {
		e.buf[9] |= fInterlace
	}
	if _, err := e.w.Write(e.buf[:10]); err != nil {
		return err
	}
	if f.palette != nil {
		if err := e.writeColorTable(f.palette); err != nil {
			return err
		}
	}

	pix := f.pix
	if e.p.interlace {
		pix = interlace(pix, f.bounds.Dx(), f.bounds.Dy())
	}

	lw := litWidth(tableLen)
	if err := e.w.WriteByte(uint8(lw)); err != nil {
		return err
	}
	bw := lzw.NewBlockWriter(e.w)
	if err := lzw.Encode(bw, lw, pix); err != nil {
		return fmt.Errorf("gif: compressing image data: %w", err)
	}
	return bw.Close()
}

func writeUint16(b []uint8, v int) {
	b[0] = uint8(v)
	b[1] = uint8(v >> 8)
}
