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
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"iter"
	"log/slog"
	"slices"

	"github.com/ostafen/gifkit/internal/lzw"
)

type DecodeOptions struct {
	// Logger receives diagnostics such as clamped pixel indices. Nil
	// discards them.
	Logger *slog.Logger
	// StrictIndices turns out of range pixel indices into
	// ErrPixelIndexOutOfRange instead of clamping them to the last entry of
	// the color table.
	StrictIndices bool
}

// Decoder is a cursor over the frames of a stream. Frames are parsed from
// the source only as the cursor advances; their compressed data is kept so
// that Seek can replay the composition from the first frame.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	p      *parser
	logger *slog.Logger
	strict bool

	err    error // sticky parse error
	raw    []*RawFrame
	canvas *canvas
	pos    int // index of the next frame Advance returns
}

func NewDecoder(r io.Reader, opts *DecodeOptions) *Decoder {
	if opts == nil {
		opts = &DecodeOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Decoder{
		p:      newParser(r, logger),
		logger: logger,
		strict: opts.StrictIndices,
	}
}

// Screen reads the header and logical screen descriptor if needed.
func (d *Decoder) Screen() (*Screen, error) {
	if d.p.screen == nil && d.err == nil {
		d.err = d.p.readHeaderAndScreenDescriptor()
	}
	if d.p.screen == nil {
		return nil, d.err
	}
	return d.p.screen, nil
}

// Tell returns the index of the frame the next Advance will return.
func (d *Decoder) Tell() int {
	return d.pos
}

// FrameCount returns the number of frames in the stream. The count is only
// known once the trailer has been parsed, see Scan.
func (d *Decoder) FrameCount() (int, bool) {
	if d.p.trailer {
		return len(d.raw), true
	}
	return 0, false
}

// Scan parses the rest of the stream without decoding pixels and returns
// the total number of frames.
func (d *Decoder) Scan() (int, error) {
	for {
		_, err := d.rawFrame(len(d.raw))
		if err == io.EOF {
			return len(d.raw), nil
		}
		if err != nil {
			return len(d.raw), err
		}
	}
}

// rawFrame returns the i-th frame skeleton, parsing forward as needed.
func (d *Decoder) rawFrame(i int) (*RawFrame, error) {
	if _, err := d.Screen(); err != nil {
		return nil, err
	}
	for len(d.raw) <= i {
		if d.err != nil {
			return nil, d.err
		}
		f, err := d.p.next()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			d.err = err
			return nil, err
		}
		if len(d.raw) == 0 {
			d.fitScreen(f)
		}
		d.raw = append(d.raw, f)
	}
	return d.raw[i], nil
}

// fitScreen widens an empty logical screen to the first frame.
func (d *Decoder) fitScreen(f *RawFrame) {
	s := d.p.screen
	if s.Width > 0 && s.Height > 0 {
		return
	}
	d.logger.Warn("empty logical screen, using first frame bounds", "bounds", f.Bounds)
	s.Width = max(s.Width, f.Bounds.Max.X)
	s.Height = max(s.Height, f.Bounds.Max.Y)
}

// Advance decodes and composites the next frame. It returns
// ErrEndOfSequence after the last frame.
func (d *Decoder) Advance() (*Frame, error) {
	raw, err := d.rawFrame(d.pos)
	if err == io.EOF {
		return nil, ErrEndOfSequence
	}
	if err != nil {
		return nil, err
	}

	if d.canvas == nil {
		d.canvas = newCanvas(d.p.screen)
	}

	f, err := d.decodeFrame(d.pos, raw)
	if err != nil {
		return nil, err
	}

	d.canvas.dispose()
	d.canvas.draw(f.Raster, f.Transparency, f.Disposal)
	f.Canvas = d.canvas.snapshotRGBA()
	f.Indexed = d.canvas.snapshotIndexed()

	d.pos++
	return f, nil
}

// Seek positions the cursor on frame index and returns it. Seeking backwards
// replays the composition from the first frame, since every canvas depends
// on all the frames before it.
func (d *Decoder) Seek(index int) (*Frame, error) {
	if index < 0 {
		return nil, fmt.Errorf("gif: negative frame index %d", index)
	}
	if index < d.pos {
		d.canvas = nil
		d.pos = 0
	}
	for {
		f, err := d.Advance()
		if err != nil {
			return nil, err
		}
		if f.Index == index {
			return f, nil
		}
	}
}

// Frames iterates over the remaining frames. Iteration stops after the last
// frame or after yielding the first error.
func (d *Decoder) Frames() iter.Seq2[*Frame, error] {
	return func(yield func(*Frame, error) bool) {
		for {
			f, err := d.Advance()
			if err == ErrEndOfSequence {
				return
			}
			if !yield(f, err) || err != nil {
				return
			}
		}
	}
}

func (d *Decoder) decodeFrame(index int, raw *RawFrame) (*Frame, error) {
	pal := raw.LocalColorTable
	if pal == nil {
		pal = d.p.screen.GlobalColorTable
	}
	colors := len(pal)
	if raw.Transparency >= colors {
		// keep the transparency index addressable in the raster
		pal = slices.Clone(pal)
		for len(pal) <= raw.Transparency {
			pal = append(pal, color.RGBA{})
		}
	}

	fill := uint8(0)
	if raw.Transparency >= 0 {
		fill = uint8(raw.Transparency)
	}

	// Only the part of the frame inside the screen is kept, rows and
	// columns outside are decoded and dropped.
	clip := raw.Bounds.Intersect(d.p.screen.Bounds())
	m := image.NewPaletted(clip, pal)

	f := &Frame{
		Index:        index,
		Bounds:       raw.Bounds,
		Raster:       m,
		Local:        raw.LocalColorTable != nil,
		Disposal:     raw.Disposal,
		Delay:        raw.Delay,
		Transparency: raw.Transparency,
		Interlaced:   raw.Interlaced,
	}
	if clip.Empty() {
		d.logger.Warn("frame outside the logical screen", "frame", index, "bounds", raw.Bounds)
		return f, nil
	}

	lr, err := lzw.NewReader(lzw.NewBlockReader(bytes.NewReader(raw.Data)), raw.LitWidth)
	if err != nil {
		return nil, fmt.Errorf("gif: frame %d: %w", index, readErr("image data", raw.Offset, err))
	}

	var (
		row     = make([]uint8, raw.Bounds.Dx())
		left    = clip.Min.X - raw.Bounds.Min.X
		right   = clip.Max.X - raw.Bounds.Min.X
		decoded int
		short   bool
	)
	for y := range rows(raw.Bounds.Dy(), raw.Interlaced) {
		y += raw.Bounds.Min.Y
		if !raw.Interlaced && y >= clip.Max.Y {
			break
		}

		n := 0
		if !short {
			n, err = io.ReadFull(lr, row)
			decoded += n
			switch {
			case err == io.EOF || err == io.ErrUnexpectedEOF:
				short = true
			case err != nil:
				return nil, fmt.Errorf("gif: frame %d: %w", index, readErr("image data", raw.Offset, err))
			}
		}
		if y < clip.Min.Y || y >= clip.Max.Y {
			continue
		}

		dst := m.Pix[m.PixOffset(clip.Min.X, y):m.PixOffset(clip.Max.X-1, y)+1]
		copy(dst, row[left:max(left, min(n, right))])
		for i := max(0, n-left); i < len(dst); i++ {
			dst[i] = fill
		}
	}
	if short {
		d.logger.Warn("not enough image data", "frame", index, "want", raw.Bounds.Dx()*raw.Bounds.Dy(), "got", decoded)
	}
	if clip != raw.Bounds {
		d.logger.Warn("frame clipped to the logical screen", "frame", index, "bounds", raw.Bounds, "clip", clip)
	}

	// Out of range indices are clamped to the last table entry.
	maxIdx := uint8(colors - 1)
	for i, v := range m.Pix {
		if v <= maxIdx || int(v) == raw.Transparency {
			continue
		}
		if d.strict {
			return nil, fmt.Errorf("gif: frame %d: index %d with %d colors: %w", index, v, colors, ErrPixelIndexOutOfRange)
		}
		m.Pix[i] = maxIdx
		f.Clamped++
	}
	if f.Clamped > 0 {
		d.logger.Warn("clamped out of range pixel indices", "frame", index, "pixels", f.Clamped, "colors", colors)
	}
	return f, nil
}

// DecodeAll decodes every frame of r. On error no partial result is
// returned.
func DecodeAll(r io.Reader, opts *DecodeOptions) (*Stream, error) {
	d := NewDecoder(r, opts)

	s := &Stream{}
	for f, err := range d.Frames() {
		if err != nil {
			return nil, err
		}
		s.Frames = append(s.Frames, f)
	}
	if len(s.Frames) == 0 {
		if _, err := d.Screen(); err != nil {
			return nil, err
		}
	}
	s.Screen = d.p.screen
	return s, nil
}

// DecodeConfig reads the header and logical screen descriptor only.
func DecodeConfig(r io.Reader) (*Screen, error) {
	return NewDecoder(r, nil).Screen()
}
