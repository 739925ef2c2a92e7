package gif

import (
	"image"
	"image/color"
	"log/slog"
)

// planFrame is a frame ready to be written: its raster already cropped and
// remapped, and its palette padded to a power of two.
type planFrame struct {
	bounds       image.Rectangle
	pix          []uint8
	palette      color.Palette // local table, nil when the global one is used
	transparency int
	disposal     Disposal
	delay        int
}

type plan struct {
	width, height int
	global        color.Palette
	background    uint8
	loopCount     int
	interlace     bool
	frames        []planFrame
}

// tableSize returns the smallest valid color table size holding n entries.
func tableSize(n int) int {
	size := 2
	for size < n {
		size <<= 1
	}
	return size
}

// tableBits returns log2(size)-1, the value stored in the packed fields.
func tableBits(size int) uint8 {
	var bits uint8
	for 2<<bits < size {
		bits++
	}
	return bits
}

// litWidth returns the LZW minimum code size for a table of the given size.
func litWidth(size int) int {
	return max(2, int(tableBits(size))+1)
}

// pad extends p with opaque black up to a valid table size holding n entries.
// Entries past n are dropped.
func pad(p color.Palette, n int) color.Palette {
	out := make(color.Palette, tableSize(n))
	for i := range out {
		if i < len(p) && i < n {
			out[i] = p[i]
		} else {
			out[i] = color.RGBA{A: 0xFF}
		}
	}
	return out
}

type rgb [3]uint8

// toRGB drops the alpha channel of c without darkening it.
func toRGB(c color.Color) rgb {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return rgb{n.R, n.G, n.B}
}

// framePixels copies the rows of m inside its bounds into a packed buffer.
func framePixels(m *image.Paletted) []uint8 {
	r := m.Rect
	w := r.Dx()
	pix := make([]uint8, w*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := m.PixOffset(r.Min.X, y)
		copy(pix[(y-r.Min.Y)*w:], m.Pix[off:off+w])
	}
	return pix
}

// usedIndices reports which palette entries a raster references. The
// transparency index counts as used when set.
func usedIndices(pix []uint8, transparency int) (used [256]bool, highest int) {
	highest = -1
	for _, v := range pix {
		used[v] = true
		highest = max(highest, int(v))
	}
	if transparency >= 0 {
		used[transparency] = true
		highest = max(highest, transparency)
	}
	return used, highest
}

// sharesGlobal reports whether every used index of p names the same color
// in global, so the frame can be written without a local table.
func sharesGlobal(p, global color.Palette, used *[256]bool) bool {
	for i, ok := range used {
		if !ok {
			continue
		}
		if i >= len(global) || i >= len(p) || toRGB(p[i]) != toRGB(global[i]) {
			return false
		}
	}
	return true
}

// remapToGlobal rewrites pix onto the global table when every opaque color
// the frame uses is present there. The transparency index is moved to a
// global slot no opaque pixel maps to.
func remapToGlobal(pix []uint8, p, global color.Palette, transparency int, used *[256]bool) ([]uint8, int, bool) {
	lookup := make(map[rgb]uint8, len(global))
	for i := len(global) - 1; i >= 0; i-- {
		lookup[toRGB(global[i])] = uint8(i)
	}

	var (
		mapping [256]uint8
		taken   [256]bool
	)
	for i, ok := range used {
		if !ok || i == transparency {
			continue
		}
		g, found := lookup[toRGB(p[i])]
		if !found {
			return nil, 0, false
		}
		mapping[i] = g
		taken[g] = true
	}

	newTransparency := -1
	if transparency >= 0 {
		if transparency < len(global) && !taken[transparency] {
			newTransparency = transparency
		} else {
			for i := range global {
				if !taken[i] {
					newTransparency = i
					break
				}
			}
		}
		if newTransparency < 0 {
			return nil, 0, false
		}
		mapping[transparency] = uint8(newTransparency)
	}

	out := make([]uint8, len(pix))
	for i, v := range pix {
		out[i] = mapping[v]
	}
	return out, newTransparency, true
}

// newPlan lays out the frames as they will be written. Without optimization
// the input is only padded; with it, color tables are trimmed to the indices
// in use, frames are remapped onto the global table where possible and
// frames that leave the previous canvas alone are cropped to what changed.
func newPlan(frames []EncodeFrame, opts *EncodeOptions, logger *slog.Logger) *plan {
	p := &plan{
		width:      opts.Width,
		height:     opts.Height,
		background: opts.BackgroundIndex,
		loopCount:  opts.LoopCount,
		interlace:  opts.Interlace,
	}
	if p.width == 0 && p.height == 0 {
		for _, f := range frames {
			p.width = max(p.width, f.Image.Rect.Max.X)
			p.height = max(p.height, f.Image.Rect.Max.Y)
		}
	}

	type scanned struct {
		pix     []uint8
		used    [256]bool
		highest int
	}
	scans := make([]scanned, len(frames))
	for i, f := range frames {
		s := &scans[i]
		s.pix = framePixels(f.Image)
		s.used, s.highest = usedIndices(s.pix, f.Transparency)
	}

	first := frames[0].Image.Palette
	if opts.Optimize {
		// the global table keeps every index used by a frame that can share it
		highest := int(opts.BackgroundIndex)
		for i, f := range frames {
			if sharesGlobal(f.Image.Palette, first, &scans[i].used) {
				highest = max(highest, scans[i].highest)
			}
		}
		p.global = pad(first, highest+1)
	} else {
		p.global = pad(first, len(first))
	}

	for i, f := range frames {
		s := &scans[i]
		pf := planFrame{
			bounds:       f.Image.Rect,
			pix:          s.pix,
			transparency: f.Transparency,
			disposal:     f.Disposal,
			delay:        f.Delay,
		}

		switch {
		case sharesGlobal(f.Image.Palette, p.global, &s.used):
		case opts.Optimize:
			if remapped, t, ok := remapToGlobal(s.pix, f.Image.Palette, p.global, f.Transparency, &s.used); ok {
				logger.Debug("remapped frame onto global color table", "frame", i)
				pf.pix, pf.transparency = remapped, t
			} else {
				pf.palette = pad(f.Image.Palette, s.highest+1)
			}
		default:
			pf.palette = pad(f.Image.Palette, len(f.Image.Palette))
		}
		p.frames = append(p.frames, pf)
	}

	if opts.Optimize {
		p.crop(logger)
	}
	return p
}

// crop replays the frames on a canvas the way a decoder would and shrinks
// every frame after the first that does not dispose of its region to the
// bounding box of the pixels it actually changes.
func (p *plan) crop(logger *slog.Logger) {
	c := newCanvas(&Screen{
		Width:            p.width,
		Height:           p.height,
		GlobalColorTable: p.global,
		BackgroundIndex:  p.background,
	})

	for i := range p.frames {
		f := &p.frames[i]
		pal := f.palette
		if pal == nil {
			pal = p.global
		}

		c.dispose()
		if i > 0 && (f.disposal == Unspecified || f.disposal == DoNotDispose) {
			changed := c.changedBounds(f.bounds, f.pix, pal, f.transparency)
			if changed.Empty() {
				changed = image.Rect(f.bounds.Min.X, f.bounds.Min.Y, f.bounds.Min.X+1, f.bounds.Min.Y+1)
			}
			if changed != f.bounds {
				logger.Debug("cropped frame", "frame", i, "from", f.bounds, "to", changed)
				f.pix = subPixels(f.pix, f.bounds, changed)
				f.bounds = changed
			}
			f.disposal = DoNotDispose
		}

		c.draw(&image.Paletted{
			Pix:     f.pix,
			Stride:  f.bounds.Dx(),
			Rect:    f.bounds,
			Palette: pal,
		}, f.transparency, f.disposal)
	}
}

// changedBounds returns the smallest rectangle covering the pixels of a
// frame that would alter the canvas.
func (c *canvas) changedBounds(bounds image.Rectangle, pix []uint8, pal color.Palette, transparency int) image.Rectangle {
	var colors [256]color.NRGBA
	for i, col := range pal {
		colors[i] = color.NRGBAModel.Convert(col).(color.NRGBA)
	}

	var changed image.Rectangle
	r := bounds.Intersect(c.bounds)
	w := bounds.Dx()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := pix[(y-bounds.Min.Y)*w+x-bounds.Min.X]
			if int(v) == transparency {
				continue
			}
			if c.idx[y*c.bounds.Dx()+x] == v && c.rgba.NRGBAAt(x, y) == colors[v] {
				continue
			}
			changed = changed.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return changed
}

// subPixels extracts the rows of sub from a packed raster covering bounds.
func subPixels(pix []uint8, bounds, sub image.Rectangle) []uint8 {
	w := bounds.Dx()
	out := make([]uint8, 0, sub.Dx()*sub.Dy())
	for y := sub.Min.Y; y < sub.Max.Y; y++ {
		off := (y-bounds.Min.Y)*w + sub.Min.X - bounds.Min.X
		out = append(out, pix[off:off+sub.Dx()]...)
	}
	return out
}
