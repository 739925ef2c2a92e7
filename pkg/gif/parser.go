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
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
)

// Section indicators.
const (
	sExtension       = 0x21
	sImageDescriptor = 0x2C
	sTrailer         = 0x3B
)

// Extensions.
const (
	eText           = 0x01 // Plain Text
	eGraphicControl = 0xF9 // Graphic Control
	eComment        = 0xFE // Comment
	eApplication    = 0xFF // Application
)

// Masks
const (
	// Fields.
	fColorTable         = 1 << 7
	fInterlace          = 1 << 6
	fColorTableBitsMask = 7

	// Graphic control flags.
	gcTransparentColorSet = 1 << 0
	gcUserInput           = 1 << 1
	gcDisposalMethodMask  = 7 << 2
)

const (
	version87a = "GIF87a"
	version89a = "GIF89a"
)

// parser walks the block structure of a stream and yields one RawFrame per
// image descriptor. Pixels are left compressed.
type parser struct {
	r      *countingReader
	logger *slog.Logger

	screen  *Screen
	trailer bool

	// graphic control extension waiting for the next image
	hasGraphicControl bool
	disposal          Disposal
	userInput         bool
	delay             int
	transparency      int

	tmp [1024]byte // must be at least 768 so we can read color table
}

func newParser(r io.Reader, logger *slog.Logger) *parser {
	return &parser{
		r:      newCountingReader(r),
		logger: logger,
	}
}

func (p *parser) readHeaderAndScreenDescriptor() error {
	n, err := io.ReadFull(p.r, p.tmp[:13])
	version := string(p.tmp[:min(n, 6)])
	if version != version87a && version != version89a {
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return fmt.Errorf("gif: reading header: %w", err)
		}
		return fmt.Errorf("gif: can't recognize format %q: %w", version, ErrInvalidFormat)
	}
	if err != nil {
		return readErr("header", p.r.Offset(), err)
	}

	s := &Screen{
		Version:         version,
		Width:           int(p.tmp[6]) + int(p.tmp[7])<<8,
		Height:          int(p.tmp[8]) + int(p.tmp[9])<<8,
		BackgroundIndex: p.tmp[11],
		AspectRatio:     p.tmp[12],
		LoopCount:       -1,
	}
	if fields := p.tmp[10]; fields&fColorTable != 0 {
		s.GlobalColorTable, err = p.readColorTable(fields)
		if err != nil {
			return err
		}
	}
	p.screen = s
	return nil
}

func (p *parser) readColorTable(fields byte) (color.Palette, error) {
	n := 1 << (1 + uint(fields&fColorTableBitsMask))
	if err := p.r.readFull(p.tmp[:3*n]); err != nil {
		return nil, readErr("color table", p.r.Offset(), err)
	}
	pal := make(color.Palette, n)
	for i := range pal {
		pal[i] = color.RGBA{p.tmp[3*i], p.tmp[3*i+1], p.tmp[3*i+2], 0xFF}
	}
	return pal, nil
}

// next returns the next image of the stream, or io.EOF once the trailer has
// been read.
func (p *parser) next() (*RawFrame, error) {
	if p.trailer {
		return nil, io.EOF
	}
	for {
		c, err := p.r.ReadByte()
		if err == io.EOF {
			return nil, fmt.Errorf("gif: missing trailer at offset %d: %w", p.r.Offset(), ErrInvalidFormat)
		}
		if err != nil {
			return nil, readErr("block", p.r.Offset(), err)
		}

		switch c {
		case sExtension:
			if err := p.readExtension(); err != nil {
				return nil, err
			}
		case sImageDescriptor:
			return p.readImageDescriptor()
		case sTrailer:
			p.trailer = true
			return nil, io.EOF
		default:
			return nil, fmt.Errorf("gif: unknown block type 0x%.2x at offset %d: %w", c, p.r.Offset()-1, ErrInvalidFormat)
		}
	}
}

func (p *parser) readExtension() error {
	extension, err := p.r.ReadByte()
	if err != nil {
		return readErr("extension", p.r.Offset(), err)
	}
	size := 0
	switch extension {
	case eText:
		size = 13
		// the control extension applied to this text, not to the next image
		p.resetGraphicControl()
	case eGraphicControl:
		return p.readGraphicControl()
	case eComment:
		// nothing to do but read the data.
	case eApplication:
		b, err := p.r.ReadByte()
		if err != nil {
			return readErr("extension", p.r.Offset(), err)
		}
		// GIF89a mandates 11, some encoders write 10.
		size = int(b)
	default:
		p.logger.Debug("skipping unknown extension", "label", extension, "offset", p.r.Offset())
	}
	if size > 0 {
		if err := p.r.readFull(p.tmp[:size]); err != nil {
			return readErr("extension", p.r.Offset(), err)
		}
	}

	// Application Extension with "NETSCAPE2.0" as string and 1 in data means
	// this extension defines a loop count.
	if extension == eApplication && (string(p.tmp[:size]) == "NETSCAPE2.0" || string(p.tmp[:size]) == "ANIMEXTS1.0") {
		n, err := p.readBlock()
		if err != nil {
			return readErr("extension", p.r.Offset(), err)
		}
		if n == 0 {
			return nil
		}
		if n == 3 && p.tmp[0] == 1 {
			p.screen.LoopCount = int(p.tmp[1]) | int(p.tmp[2])<<8
		}
	}
	return p.skipBlocks("extension")
}

func (p *parser) readGraphicControl() error {
	if err := p.r.readFull(p.tmp[:6]); err != nil {
		return readErr("graphic control", p.r.Offset(), err)
	}
	if p.tmp[0] != 4 {
		return fmt.Errorf("gif: invalid graphic control extension block size %d: %w", p.tmp[0], ErrInvalidFormat)
	}
	if p.tmp[5] != 0 {
		return fmt.Errorf("gif: invalid graphic control extension block terminator %d: %w", p.tmp[5], ErrInvalidFormat)
	}

	flags := p.tmp[1]
	p.hasGraphicControl = true
	p.disposal = Disposal((flags & gcDisposalMethodMask) >> 2)
	if !p.disposal.Valid() {
		p.logger.Warn("reserved disposal method, using unspecified", "value", uint8(p.disposal))
		p.disposal = Unspecified
	}
	p.userInput = flags&gcUserInput != 0
	p.delay = int(p.tmp[2]) | int(p.tmp[3])<<8
	p.transparency = -1
	if flags&gcTransparentColorSet != 0 {
		p.transparency = int(p.tmp[4])
	}
	return nil
}

func (p *parser) resetGraphicControl() {
	p.hasGraphicControl = false
	p.disposal = Unspecified
	p.userInput = false
	p.delay = 0
	p.transparency = -1
}

func (p *parser) readImageDescriptor() (*RawFrame, error) {
	offset := p.r.Offset() - 1
	if err := p.r.readFull(p.tmp[:9]); err != nil {
		return nil, readErr("image descriptor", p.r.Offset(), err)
	}
	left := int(p.tmp[0]) + int(p.tmp[1])<<8
	top := int(p.tmp[2]) + int(p.tmp[3])<<8
	width := int(p.tmp[4]) + int(p.tmp[5])<<8
	height := int(p.tmp[6]) + int(p.tmp[7])<<8
	fields := p.tmp[8]

	f := &RawFrame{
		Offset:       offset,
		Bounds:       image.Rect(left, top, left+width, top+height),
		Interlaced:   fields&fInterlace != 0,
		Disposal:     Unspecified,
		Transparency: -1,
	}
	if p.hasGraphicControl {
		f.Disposal = p.disposal
		f.UserInput = p.userInput
		f.Delay = p.delay
		f.Transparency = p.transparency
	}
	p.resetGraphicControl()

	if fields&fColorTable != 0 {
		pal, err := p.readColorTable(fields)
		if err != nil {
			return nil, err
		}
		f.LocalColorTable = pal
	} else if p.screen.GlobalColorTable == nil {
		return nil, fmt.Errorf("gif: image at offset %d has no color table: %w", offset, ErrInvalidFormat)
	}

	litWidth, err := p.r.ReadByte()
	if err != nil {
		return nil, readErr("image data", p.r.Offset(), err)
	}
	if litWidth < 2 || litWidth > 8 {
		return nil, fmt.Errorf("gif: pixel size in decode out of range: %d: %w", litWidth, ErrUnsupportedFeature)
	}
	f.LitWidth = int(litWidth)

	// keep the LZW encoded blocks, framing included
	for {
		n, err := p.r.ReadByte()
		if err != nil {
			return nil, readErr("image data", p.r.Offset(), err)
		}
		f.Data = append(f.Data, n)
		if n == 0 {
			// 0 means end of LZW data.
			break
		}
		start := len(f.Data)
		f.Data = append(f.Data, make([]byte, n)...)
		if err := p.r.readFull(f.Data[start:]); err != nil {
			return nil, readErr("image data", p.r.Offset(), err)
		}
	}
	return f, nil
}

func (p *parser) readBlock() (int, error) {
	n, err := p.r.ReadByte()
	if n == 0 || err != nil {
		return 0, err
	}
	if err := p.r.readFull(p.tmp[:n]); err != nil {
		return 0, err
	}
	return int(n), nil
}

func (p *parser) skipBlocks(what string) error {
	for {
		n, err := p.readBlock()
		if err != nil {
			return readErr(what, p.r.Offset(), err)
		}
		if n == 0 {
			return nil
		}
	}
}
