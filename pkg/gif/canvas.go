package gif

import (
	"image"
	"image/color"
	"slices"
)

// canvas composites frames the way a viewer displays them. It keeps an RGBA
// raster, a palette index raster and a single snapshot for RestorePrevious.
type canvas struct {
	bounds image.Rectangle

	rgba *image.NRGBA
	idx  []uint8

	bg      color.NRGBA
	bgIndex uint8

	// palette of the index raster; indexed goes false for good once a frame
	// with another color table is drawn
	palette color.Palette
	indexed bool

	snapRGBA []uint8
	snapIdx  []uint8

	// region and disposal of the last drawn frame, applied by dispose
	pending     bool
	lastRect    image.Rectangle
	lastDispose Disposal
}

func newCanvas(s *Screen) *canvas {
	c := &canvas{
		bounds:  s.Bounds(),
		bgIndex: s.BackgroundIndex,
		indexed: true,
	}
	if int(s.BackgroundIndex) < len(s.GlobalColorTable) {
		c.bg = color.NRGBAModel.Convert(s.GlobalColorTable[s.BackgroundIndex]).(color.NRGBA)
	}
	c.rgba = image.NewNRGBA(c.bounds)
	c.idx = make([]uint8, c.bounds.Dx()*c.bounds.Dy())
	c.fill(c.bounds)
	return c
}

// fill resets r to the background.
func (c *canvas) fill(r image.Rectangle) {
	r = r.Intersect(c.bounds)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c.rgba.SetNRGBA(x, y, c.bg)
			c.idx[y*c.bounds.Dx()+x] = c.bgIndex
		}
	}
}

// dispose applies the disposal method of the last drawn frame.
func (c *canvas) dispose() {
	if !c.pending {
		return
	}
	c.pending = false

	switch c.lastDispose {
	case RestoreBackground:
		c.fill(c.lastRect)
	case RestorePrevious:
		copy(c.rgba.Pix, c.snapRGBA)
		copy(c.idx, c.snapIdx)
	}
}

// draw composites a frame raster, skipping transparent pixels. The caller
// must have called dispose first.
func (c *canvas) draw(m *image.Paletted, transparency int, disposal Disposal) {
	if disposal == RestorePrevious {
		c.snapRGBA = append(c.snapRGBA[:0], c.rgba.Pix...)
		c.snapIdx = append(c.snapIdx[:0], c.idx...)
	}

	if c.palette == nil {
		c.palette = m.Palette
	} else if c.indexed && !slices.Equal(c.palette, m.Palette) {
		c.indexed = false
	}

	var colors [256]color.NRGBA
	for i, col := range m.Palette {
		colors[i] = color.NRGBAModel.Convert(col).(color.NRGBA)
	}

	r := m.Rect.Intersect(c.bounds)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		src := m.Pix[m.PixOffset(r.Min.X, y):m.PixOffset(r.Max.X, y)]
		off := y*c.bounds.Dx() + r.Min.X
		for i, v := range src {
			if int(v) == transparency {
				continue
			}
			c.rgba.SetNRGBA(r.Min.X+i, y, colors[v])
			c.idx[off+i] = v
		}
	}

	c.pending = true
	c.lastRect = r
	c.lastDispose = disposal
}

func (c *canvas) snapshotRGBA() *image.NRGBA {
	out := image.NewNRGBA(c.bounds)
	copy(out.Pix, c.rgba.Pix)
	return out
}

func (c *canvas) snapshotIndexed() *image.Paletted {
	if !c.indexed || c.palette == nil {
		return nil
	}
	out := image.NewPaletted(c.bounds, c.palette)
	copy(out.Pix, c.idx)
	return out
}
