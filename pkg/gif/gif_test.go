package gif_test

import (
	"bytes"
	"compress/lzw"
	"image"
	"image/color"
	stdgif "image/gif"
	"math/rand"
	"slices"
	"testing"

	"github.com/ostafen/gifkit/pkg/gif"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/colornames"
)

var pal4 = color.Palette{
	colornames.Red,
	colornames.Green,
	colornames.Blue,
	colornames.Black,
}

func nrgba(c color.RGBA) color.NRGBA {
	return color.NRGBA{c.R, c.G, c.B, c.A}
}

func filled(r image.Rectangle, pal color.Palette, idx uint8) *image.Paletted {
	m := image.NewPaletted(r, pal)
	for i := range m.Pix {
		m.Pix[i] = idx
	}
	return m
}

func randomPaletted(rng *rand.Rand, r image.Rectangle, colors int) *image.Paletted {
	pal := make(color.Palette, colors)
	for i := range pal {
		pal[i] = color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 0xFF}
	}
	m := image.NewPaletted(r, pal)
	for i := range m.Pix {
		m.Pix[i] = uint8(rng.Intn(colors))
	}
	return m
}

func frame(m *image.Paletted) gif.EncodeFrame {
	return gif.EncodeFrame{Image: m, Transparency: -1}
}

func encode(t *testing.T, frames []gif.EncodeFrame, opts *gif.EncodeOptions) []byte {
	t.Helper()

	data, err := gif.EncodeBytes(frames, opts)
	require.NoError(t, err)
	require.Equal(t, "GIF89a", string(data[:6]))
	return data
}

func decodeAll(t *testing.T, data []byte) *gif.Stream {
	t.Helper()

	s, err := gif.DecodeAll(bytes.NewReader(data), nil)
	require.NoError(t, err)
	return s
}

// stream assembles a container block by block.
type stream []byte

func newStream(width, height int, gct color.Palette) stream {
	b := stream("GIF89a")
	b = append(b, byte(width), byte(width>>8), byte(height), byte(height>>8))

	bits := byte(0)
	for 2<<bits < len(gct) {
		bits++
	}
	b = append(b, 0x80|bits, 0, 0)
	for _, c := range gct {
		r, g, bl, _ := c.RGBA()
		b = append(b, byte(r>>8), byte(g>>8), byte(bl>>8))
	}
	return b
}

func (s stream) subBlocks(data []byte) stream {
	for len(data) > 0 {
		n := min(len(data), 255)
		s = append(s, byte(n))
		s = append(s, data[:n]...)
		data = data[n:]
	}
	return append(s, 0)
}

func (s stream) control(d gif.Disposal, delay, transparency int) stream {
	flags := byte(d) << 2
	if transparency >= 0 {
		flags |= 1
	}
	return append(s, 0x21, 0xF9, 4, flags, byte(delay), byte(delay>>8), byte(max(transparency, 0)), 0)
}

func (s stream) comment(text string) stream {
	return append(s, 0x21, 0xFE).subBlocks([]byte(text))
}

func (s stream) application(id string, payload []byte) stream {
	s = append(s, 0x21, 0xFF, byte(len(id)))
	return append(s, id...).subBlocks(payload)
}

func (s stream) plainText(text string) stream {
	s = append(s, 0x21, 0x01, 12)
	s = append(s, make([]byte, 12)...)
	return s.subBlocks([]byte(text))
}

func (s stream) extension(label byte, payload []byte) stream {
	return append(s, 0x21, label).subBlocks(payload)
}

func (s stream) image(r image.Rectangle, interlaced bool, litWidth byte, data []byte) stream {
	fields := byte(0)
	if interlaced {
		fields = 0x40
	}
	s = append(s, 0x2C,
		byte(r.Min.X), byte(r.Min.X>>8), byte(r.Min.Y), byte(r.Min.Y>>8),
		byte(r.Dx()), byte(r.Dx()>>8), byte(r.Dy()), byte(r.Dy()>>8),
		fields, litWidth)
	return s.subBlocks(data)
}

func (s stream) end() []byte {
	return append(s, 0x3B)
}

// rawStream wraps image data produced elsewhere in a minimal single image
// container.
func rawStream(width, height int, gct color.Palette, litWidth byte, data []byte) []byte {
	return newStream(width, height, gct).image(image.Rect(0, 0, width, height), false, litWidth, data).end()
}

func compress(t *testing.T, litWidth int, pix []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := lzw.NewWriter(&buf, lzw.LSB, litWidth)
	_, err := w.Write(pix)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestSanity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := randomPaletted(rng, image.Rect(0, 0, 128, 128), 256)

	s := decodeAll(t, encode(t, []gif.EncodeFrame{frame(m)}, nil))

	require.Equal(t, "GIF89a", s.Screen.Version)
	require.Equal(t, 128, s.Screen.Width)
	require.Equal(t, 128, s.Screen.Height)
	require.Len(t, s.Frames, 1)

	f := s.Frames[0]
	require.Equal(t, m.Pix, f.Raster.Pix)
	require.Equal(t, []color.Color(m.Palette), []color.Color(f.Raster.Palette))
	require.Equal(t, m.Bounds(), f.Canvas.Bounds())
	require.NotNil(t, f.Indexed)
	require.Equal(t, m.Pix, f.Indexed.Pix)
	require.Equal(t, -1, s.Screen.LoopCount)
}

func TestRoundTripIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for _, colors := range []int{1, 2, 3, 7, 16, 100, 256} {
		for _, opts := range []*gif.EncodeOptions{
			nil,
			{Optimize: true},
			{Interlace: true},
			{Optimize: true, Interlace: true},
		} {
			m := randomPaletted(rng, image.Rect(0, 0, 37, 23), colors)

			s := decodeAll(t, encode(t, []gif.EncodeFrame{frame(m)}, opts))
			require.Len(t, s.Frames, 1)
			require.Equal(t, m.Pix, s.Frames[0].Raster.Pix, "colors=%d opts=%+v", colors, opts)
			require.Equal(t, opts != nil && opts.Interlace, s.Frames[0].Interlaced)

			for _, v := range m.Pix {
				require.Equal(t, m.Palette[v], s.Frames[0].Raster.Palette[v])
			}
		}
	}
}

func TestPaletteIdempotence(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	frames := []gif.EncodeFrame{
		frame(randomPaletted(rng, image.Rect(0, 0, 16, 16), 16)),
		frame(randomPaletted(rng, image.Rect(2, 2, 10, 12), 64)),
	}
	first := decodeAll(t, encode(t, frames, nil))

	again := make([]gif.EncodeFrame, len(first.Frames))
	for i, f := range first.Frames {
		again[i] = gif.EncodeFrame{Image: f.Raster, Disposal: f.Disposal, Transparency: f.Transparency, Delay: f.Delay}
	}
	second := decodeAll(t, encode(t, again, nil))

	require.Len(t, second.Frames, len(first.Frames))
	for i := range first.Frames {
		require.Equal(t, first.Frames[i].Raster.Pix, second.Frames[i].Raster.Pix)
		require.Equal(t, first.Frames[i].Raster.Palette, second.Frames[i].Raster.Palette)
		require.Equal(t, first.Frames[i].Canvas.Pix, second.Frames[i].Canvas.Pix)
	}
}

func TestOptimizeShrinksOutput(t *testing.T) {
	gray := make(color.Palette, 256)
	for i := range gray {
		gray[i] = color.Gray{Y: uint8(i)}
	}
	m := image.NewPaletted(image.Rect(0, 0, 1, 1), gray)

	plain := encode(t, []gif.EncodeFrame{frame(m)}, nil)
	optimized := encode(t, []gif.EncodeFrame{frame(m)}, &gif.EncodeOptions{Optimize: true})
	require.Greater(t, len(plain), len(optimized))

	for _, data := range [][]byte{plain, optimized} {
		s := decodeAll(t, data)
		require.Equal(t, []uint8{0}, s.Frames[0].Raster.Pix)
		require.Equal(t, color.NRGBA{0, 0, 0, 0xFF}, s.Frames[0].Canvas.NRGBAAt(0, 0))
	}
}

// disposalStream paints a red 5x1 screen and then moves a single green pixel
// from left to right over five frames using the given disposal.
func disposalStream(t *testing.T, d gif.Disposal) []byte {
	t.Helper()

	frames := []gif.EncodeFrame{{
		Image:        filled(image.Rect(0, 0, 5, 1), pal4, 0),
		Disposal:     gif.DoNotDispose,
		Transparency: -1,
		Delay:        10,
	}}
	for x := 0; x < 5; x++ {
		frames = append(frames, gif.EncodeFrame{
			Image:        filled(image.Rect(x, 0, x+1, 1), pal4, 1),
			Disposal:     d,
			Transparency: -1,
			Delay:        10,
		})
	}
	return encode(t, frames, &gif.EncodeOptions{BackgroundIndex: 2})
}

func TestDisposal(t *testing.T) {
	red, green, blue := nrgba(colornames.Red), nrgba(colornames.Green), nrgba(colornames.Blue)

	cases := []struct {
		disposal gif.Disposal
		expect   func(k, x int) color.NRGBA
	}{
		{gif.DoNotDispose, func(k, x int) color.NRGBA {
			if x < k {
				return green
			}
			return red
		}},
		{gif.RestoreBackground, func(k, x int) color.NRGBA {
			switch {
			case x == k-1:
				return green
			case x < k-1:
				return blue
			}
			return red
		}},
		{gif.RestorePrevious, func(k, x int) color.NRGBA {
			if x == k-1 {
				return green
			}
			return red
		}},
	}

	for _, tc := range cases {
		t.Run(tc.disposal.String(), func(t *testing.T) {
			d := gif.NewDecoder(bytes.NewReader(disposalStream(t, tc.disposal)), nil)

			for k := 0; k < 6; k++ {
				f, err := d.Advance()
				require.NoError(t, err)
				require.Equal(t, k, f.Index)
				require.Equal(t, 10, f.Delay)
				if k > 0 {
					require.Equal(t, tc.disposal, f.Disposal)
				}
				for x := 0; x < 5; x++ {
					require.Equal(t, tc.expect(k, x), f.Canvas.NRGBAAt(x, 0), "frame %d x %d", k, x)
				}
				require.NotNil(t, f.Indexed)
			}

			_, err := d.Advance()
			require.ErrorIs(t, err, gif.ErrEndOfSequence)
			_, err = d.Advance()
			require.ErrorIs(t, err, gif.ErrEndOfSequence)

			n, known := d.FrameCount()
			require.True(t, known)
			require.Equal(t, 6, n)
		})
	}
}

func TestRestoreBackgroundIndexedCanvas(t *testing.T) {
	s := decodeAll(t, disposalStream(t, gif.RestoreBackground))

	require.Equal(t, []uint8{2, 2, 2, 1, 0}, s.Frames[4].Indexed.Pix)
}

func TestTransparencyShowsPreviousFrame(t *testing.T) {
	pal := color.Palette{colornames.Magenta, colornames.Green, colornames.Blue}

	top := filled(image.Rect(0, 0, 4, 4), pal, 0)
	top.SetColorIndex(0, 0, 2)

	s := decodeAll(t, encode(t, []gif.EncodeFrame{
		frame(filled(image.Rect(0, 0, 4, 4), pal, 1)),
		{Image: top, Transparency: 0},
	}, nil))
	require.Len(t, s.Frames, 2)

	f := s.Frames[1]
	require.True(t, f.HasTransparency())
	require.Equal(t, 0, f.Transparency)

	histogram := map[color.NRGBA]int{}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			histogram[f.Canvas.NRGBAAt(x, y)]++
		}
	}
	require.Zero(t, histogram[nrgba(colornames.Magenta)])
	require.Equal(t, 15, histogram[nrgba(colornames.Green)])
	require.Equal(t, 1, histogram[nrgba(colornames.Blue)])
}

func TestClampOutOfRangeIndices(t *testing.T) {
	gct := color.Palette{colornames.Black, colornames.White}
	data := rawStream(4, 1, gct, 2, compress(t, 2, []byte{0, 1, 2, 3}))

	s := decodeAll(t, data)
	f := s.Frames[0]
	require.Equal(t, []uint8{0, 1, 1, 1}, f.Raster.Pix)
	require.Equal(t, 2, f.Clamped)
	require.Equal(t, nrgba(colornames.White), f.Canvas.NRGBAAt(3, 0))

	_, err := gif.DecodeAll(bytes.NewReader(data), &gif.DecodeOptions{StrictIndices: true})
	require.ErrorIs(t, err, gif.ErrPixelIndexOutOfRange)
}

func TestMissingPixelsAreFilled(t *testing.T) {
	gct := color.Palette{colornames.Black, colornames.White}
	data := rawStream(4, 1, gct, 2, compress(t, 2, []byte{1, 1}))

	s := decodeAll(t, data)
	require.Equal(t, []uint8{1, 1, 0, 0}, s.Frames[0].Raster.Pix)
}

func TestOutOfRangeTransparencyIsSkipped(t *testing.T) {
	gct := color.Palette{colornames.Black, colornames.White}
	white := newStream(2, 1, gct).image(image.Rect(0, 0, 2, 1), false, 2, compress(t, 2, []byte{1, 1}))

	cases := []struct {
		name   string
		pixels []byte
		raster []uint8
	}{
		{"declared index", []byte{3, 0}, []uint8{3, 0}},
		{"missing pixels", []byte{0}, []uint8{0, 3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := slices.Clone(white).
				control(gif.DoNotDispose, 0, 3).
				image(image.Rect(0, 0, 2, 1), false, 2, compress(t, 2, tc.pixels)).
				end()

			for _, strict := range []bool{false, true} {
				s, err := gif.DecodeAll(bytes.NewReader(data), &gif.DecodeOptions{StrictIndices: strict})
				require.NoError(t, err)

				f := s.Frames[1]
				require.Equal(t, tc.raster, f.Raster.Pix)
				require.Zero(t, f.Clamped)
				require.Len(t, f.Raster.Palette, 4)
				_, _, _, a := f.Raster.Palette[3].RGBA()
				require.Zero(t, a)

				for x := 0; x < 2; x++ {
					want := nrgba(colornames.Black)
					if tc.raster[x] == 3 {
						want = nrgba(colornames.White)
					}
					require.Equal(t, want, f.Canvas.NRGBAAt(x, 0), "x=%d", x)
				}
			}
		})
	}
}

func TestFramesAreClippedToScreen(t *testing.T) {
	gct := color.Palette{colornames.Black, colornames.White}

	t.Run("oversized", func(t *testing.T) {
		bounds := image.Rect(0, 0, 20000, 20000)
		data := newStream(1, 1, gct).image(bounds, false, 2, compress(t, 2, []byte{1})).end()

		f := decodeAll(t, data).Frames[0]
		require.Equal(t, bounds, f.Bounds)
		require.Equal(t, image.Rect(0, 0, 1, 1), f.Raster.Rect)
		require.Equal(t, []uint8{1}, f.Raster.Pix)
		require.Equal(t, nrgba(colornames.White), f.Canvas.NRGBAAt(0, 0))
	})

	t.Run("partially outside", func(t *testing.T) {
		bounds := image.Rect(2, 1, 6, 3)
		data := newStream(4, 2, gct).image(bounds, false, 2, compress(t, 2, []byte{1, 0, 0, 0, 1, 1, 1, 1})).end()

		f := decodeAll(t, data).Frames[0]
		require.Equal(t, bounds, f.Bounds)
		require.Equal(t, image.Rect(2, 1, 4, 2), f.Raster.Rect)
		require.Equal(t, []uint8{1, 0}, f.Raster.Pix)
		require.Equal(t, nrgba(colornames.White), f.Canvas.NRGBAAt(2, 1))
		require.Equal(t, nrgba(colornames.Black), f.Canvas.NRGBAAt(3, 1))
	})

	t.Run("interlaced", func(t *testing.T) {
		gct8 := make(color.Palette, 8)
		for i := range gct8 {
			gct8[i] = color.RGBA{uint8(i * 30), 0, 0, 0xFF}
		}
		// rows are transmitted as 0, 4, 2, 1, 3
		data := newStream(1, 3, gct8).image(image.Rect(0, 0, 1, 5), true, 3, compress(t, 3, []byte{0, 4, 2, 1, 3})).end()

		f := decodeAll(t, data).Frames[0]
		require.Equal(t, image.Rect(0, 0, 1, 3), f.Raster.Rect)
		require.Equal(t, []uint8{0, 1, 2}, f.Raster.Pix)
	})

	t.Run("outside", func(t *testing.T) {
		data := newStream(2, 2, gct).image(image.Rect(10, 10, 12, 12), false, 2, compress(t, 2, []byte{1, 1, 1, 1})).end()

		f := decodeAll(t, data).Frames[0]
		require.True(t, f.Raster.Rect.Empty())
		require.Equal(t, nrgba(colornames.Black), f.Canvas.NRGBAAt(1, 1))
	})
}

func TestExtensionsBeforeImage(t *testing.T) {
	gct := color.Palette{colornames.Black, colornames.White}
	img := func(s stream) stream {
		return s.image(image.Rect(0, 0, 2, 1), false, 2, compress(t, 2, []byte{0, 1}))
	}

	cases := []struct {
		name         string
		build        func(s stream) stream
		index        int
		disposal     gif.Disposal
		delay        int
		transparency int
	}{
		{
			name:         "no control extension",
			build:        func(s stream) stream { return s },
			disposal:     gif.Unspecified,
			transparency: -1,
		},
		{
			name:         "control extension",
			build:        func(s stream) stream { return s.control(gif.RestoreBackground, 7, 1) },
			disposal:     gif.RestoreBackground,
			delay:        7,
			transparency: 1,
		},
		{
			name: "plain text consumes control extension",
			build: func(s stream) stream {
				return s.control(gif.RestorePrevious, 5, 1).plainText("hello")
			},
			disposal:     gif.Unspecified,
			transparency: -1,
		},
		{
			name: "comment and application extensions are skipped",
			build: func(s stream) stream {
				return s.control(gif.RestorePrevious, 5, 0).
					comment("made by hand").
					application("XMP DataXMP", []byte("<x:xmpmeta/>"))
			},
			disposal:     gif.RestorePrevious,
			delay:        5,
			transparency: 0,
		},
		{
			name: "unknown extension is skipped",
			build: func(s stream) stream {
				return s.control(gif.DoNotDispose, 2, -1).extension(0x99, []byte{1, 2, 3})
			},
			disposal:     gif.DoNotDispose,
			delay:        2,
			transparency: -1,
		},
		{
			name: "control extension applies to the next image only",
			build: func(s stream) stream {
				return img(s.control(gif.RestoreBackground, 9, 0))
			},
			index:        1,
			disposal:     gif.Unspecified,
			transparency: -1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := img(tc.build(newStream(2, 1, gct))).end()

			s := decodeAll(t, data)
			require.Len(t, s.Frames, tc.index+1)
			require.Equal(t, -1, s.Screen.LoopCount)

			f := s.Frames[tc.index]
			require.Equal(t, tc.disposal, f.Disposal)
			require.Equal(t, tc.delay, f.Delay)
			require.Equal(t, tc.transparency, f.Transparency)
			require.Equal(t, []uint8{0, 1}, f.Raster.Pix)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	valid := encode(t, []gif.EncodeFrame{
		frame(randomPaletted(rng, image.Rect(0, 0, 16, 16), 16)),
	}, nil)

	gct := color.Palette{colornames.Black, colornames.White}

	cases := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", nil, gif.ErrInvalidFormat},
		{"bad signature", append([]byte("GIF88a"), valid[6:]...), gif.ErrInvalidFormat},
		{"not a gif", []byte("\x89PNG\r\n\x1a\n"), gif.ErrInvalidFormat},
		{"truncated screen descriptor", valid[:10], gif.ErrTruncatedStream},
		{"truncated color table", valid[:20], gif.ErrTruncatedStream},
		{"truncated image data", valid[:len(valid)/2], gif.ErrTruncatedStream},
		{"missing trailer", valid[:len(valid)-1], gif.ErrInvalidFormat},
		{"unknown block", append(bytes.Clone(valid[:len(valid)-1]), 0x99), gif.ErrInvalidFormat},
		{"code size too large", rawStream(1, 1, gct, 9, []byte{0}), gif.ErrUnsupportedFeature},
		{"code size too small", rawStream(1, 1, gct, 1, []byte{0}), gif.ErrUnsupportedFeature},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := gif.DecodeAll(bytes.NewReader(tc.data), nil)
			require.ErrorIs(t, err, tc.err)
			require.Nil(t, s)
		})
	}
}

func TestTruncatedStreamKeepsEarlierFrames(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	data := encode(t, []gif.EncodeFrame{
		frame(randomPaletted(rng, image.Rect(0, 0, 8, 8), 4)),
		frame(randomPaletted(rng, image.Rect(0, 0, 8, 8), 4)),
	}, nil)

	d := gif.NewDecoder(bytes.NewReader(data[:len(data)-3]), nil)

	f, err := d.Advance()
	require.NoError(t, err)
	require.Equal(t, 0, f.Index)

	_, err = d.Advance()
	require.ErrorIs(t, err, gif.ErrTruncatedStream)
	require.NotNil(t, f.Canvas)
}

func TestSeekReplaysComposition(t *testing.T) {
	data := disposalStream(t, gif.RestorePrevious)
	all := decodeAll(t, data)

	d := gif.NewDecoder(bytes.NewReader(data), nil)
	n, known := d.FrameCount()
	require.False(t, known)
	require.Zero(t, n)

	n, err := d.Scan()
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, 0, d.Tell())

	for _, idx := range []int{4, 1, 1, 5, 0, 3} {
		f, err := d.Seek(idx)
		require.NoError(t, err)
		require.Equal(t, idx, f.Index)
		require.Equal(t, all.Frames[idx].Canvas.Pix, f.Canvas.Pix)
		require.Equal(t, idx+1, d.Tell())
	}

	_, err = d.Seek(6)
	require.ErrorIs(t, err, gif.ErrEndOfSequence)

	_, err = d.Seek(-1)
	require.Error(t, err)
}

func TestFramesIterator(t *testing.T) {
	d := gif.NewDecoder(bytes.NewReader(disposalStream(t, gif.DoNotDispose)), nil)

	var idx []int
	for f, err := range d.Frames() {
		require.NoError(t, err)
		idx = append(idx, f.Index)
	}
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, idx)
}

func TestFramesOwnTheirCanvas(t *testing.T) {
	s := decodeAll(t, disposalStream(t, gif.DoNotDispose))

	require.Equal(t, nrgba(colornames.Red), s.Frames[0].Canvas.NRGBAAt(0, 0))
	require.Equal(t, nrgba(colornames.Green), s.Frames[5].Canvas.NRGBAAt(0, 0))
}

func TestLoopCount(t *testing.T) {
	frames := []gif.EncodeFrame{
		frame(filled(image.Rect(0, 0, 2, 2), pal4, 0)),
		frame(filled(image.Rect(0, 0, 2, 2), pal4, 1)),
	}

	for _, loop := range []int{-1, 0, 3, 65535} {
		s := decodeAll(t, encode(t, frames, &gif.EncodeOptions{LoopCount: loop}))
		require.Equal(t, loop, s.Screen.LoopCount)
	}

	s := decodeAll(t, encode(t, frames[:1], &gif.EncodeOptions{LoopCount: 5}))
	require.Equal(t, -1, s.Screen.LoopCount)
}

func TestOptimizeCropsUnchangedRegions(t *testing.T) {
	base := filled(image.Rect(0, 0, 8, 8), pal4, 0)
	changed := filled(image.Rect(0, 0, 8, 8), pal4, 0)
	changed.SetColorIndex(3, 4, 1)
	same := filled(image.Rect(0, 0, 8, 8), pal4, 0)
	same.SetColorIndex(3, 4, 1)

	frames := []gif.EncodeFrame{frame(base), frame(changed), frame(same)}

	plain := decodeAll(t, encode(t, frames, nil))
	optimized := decodeAll(t, encode(t, frames, &gif.EncodeOptions{Optimize: true}))

	require.Equal(t, image.Rect(0, 0, 8, 8), optimized.Frames[0].Bounds)
	require.Equal(t, image.Rect(3, 4, 4, 5), optimized.Frames[1].Bounds)
	require.Equal(t, image.Rect(0, 0, 1, 1), optimized.Frames[2].Bounds)

	for i := range frames {
		require.Equal(t, plain.Frames[i].Canvas.Pix, optimized.Frames[i].Canvas.Pix)
		require.Equal(t, plain.Frames[i].Indexed.Pix, optimized.Frames[i].Indexed.Pix)
	}
	require.Equal(t, gif.DoNotDispose, optimized.Frames[1].Disposal)
}

func TestOptimizeKeepsDisposingFramesWhole(t *testing.T) {
	frames := []gif.EncodeFrame{
		frame(filled(image.Rect(0, 0, 4, 4), pal4, 0)),
		{Image: filled(image.Rect(0, 0, 4, 4), pal4, 0), Disposal: gif.RestoreBackground, Transparency: -1},
	}
	s := decodeAll(t, encode(t, frames, &gif.EncodeOptions{Optimize: true}))

	require.Equal(t, image.Rect(0, 0, 4, 4), s.Frames[1].Bounds)
	require.Equal(t, gif.RestoreBackground, s.Frames[1].Disposal)
}

func TestOptimizeRemapsOntoGlobalTable(t *testing.T) {
	reversed := color.Palette{colornames.Black, colornames.Blue, colornames.Green, colornames.Red}

	first := image.NewPaletted(image.Rect(0, 0, 4, 1), pal4)
	copy(first.Pix, []uint8{0, 1, 2, 3})
	second := image.NewPaletted(image.Rect(0, 0, 4, 1), reversed)
	copy(second.Pix, []uint8{0, 1, 2, 3})

	frames := []gif.EncodeFrame{frame(first), frame(second)}

	plain := decodeAll(t, encode(t, frames, nil))
	require.True(t, plain.Frames[1].Local)

	optimized := decodeAll(t, encode(t, frames, &gif.EncodeOptions{Optimize: true}))
	require.False(t, optimized.Frames[1].Local)
	require.Equal(t, []uint8{3, 2, 1, 0}, optimized.Frames[1].Raster.Pix)
	require.Equal(t, plain.Frames[1].Canvas.Pix, optimized.Frames[1].Canvas.Pix)
	require.NotNil(t, optimized.Frames[1].Indexed)
	require.Nil(t, plain.Frames[1].Indexed)
}

func TestEncodeKeepsFrameLayoutWithoutOptimize(t *testing.T) {
	reversed := color.Palette{colornames.Black, colornames.Blue, colornames.Green, colornames.Red}

	second := image.NewPaletted(image.Rect(1, 1, 3, 2), reversed)
	copy(second.Pix, []uint8{0, 1})
	frames := []gif.EncodeFrame{
		frame(filled(image.Rect(0, 0, 4, 2), pal4, 0)),
		frame(second),
	}

	s := decodeAll(t, encode(t, frames, nil))
	require.Equal(t, 4, s.Screen.Width)
	require.Equal(t, 2, s.Screen.Height)

	f := s.Frames[1]
	require.Equal(t, image.Rect(1, 1, 3, 2), f.Bounds)
	require.True(t, f.Local)
	require.Equal(t, []uint8{0, 1}, f.Raster.Pix)
	require.Equal(t, nrgba(colornames.Black), f.Canvas.NRGBAAt(1, 1))
	require.Equal(t, nrgba(colornames.Blue), f.Canvas.NRGBAAt(2, 1))
	require.Equal(t, nrgba(colornames.Red), f.Canvas.NRGBAAt(0, 1))
}

func TestEncodeRejectsInvalidFrames(t *testing.T) {
	ok := filled(image.Rect(0, 0, 2, 2), pal4, 0)
	bad := filled(image.Rect(0, 0, 2, 2), pal4, 0)
	bad.Pix[3] = 4

	big := make(color.Palette, 257)
	for i := range big {
		big[i] = colornames.Black
	}

	cases := []struct {
		name   string
		frames []gif.EncodeFrame
		opts   *gif.EncodeOptions
	}{
		{"no frames", nil, nil},
		{"nil image", []gif.EncodeFrame{{Transparency: -1}}, nil},
		{"empty palette", []gif.EncodeFrame{frame(image.NewPaletted(image.Rect(0, 0, 1, 1), nil))}, nil},
		{"palette too large", []gif.EncodeFrame{frame(image.NewPaletted(image.Rect(0, 0, 1, 1), big))}, nil},
		{"empty bounds", []gif.EncodeFrame{frame(image.NewPaletted(image.Rect(0, 0, 0, 3), pal4))}, nil},
		{"negative bounds", []gif.EncodeFrame{frame(filled(image.Rect(-1, 0, 1, 1), pal4, 0))}, nil},
		{"pixel index", []gif.EncodeFrame{frame(ok), frame(bad)}, nil},
		{"disposal", []gif.EncodeFrame{{Image: ok, Disposal: 4, Transparency: -1}}, nil},
		{"transparency", []gif.EncodeFrame{{Image: ok, Transparency: 4}}, nil},
		{"negative transparency", []gif.EncodeFrame{{Image: ok, Transparency: -2}}, nil},
		{"delay", []gif.EncodeFrame{{Image: ok, Transparency: -1, Delay: -1}}, nil},
		{"background", []gif.EncodeFrame{frame(ok)}, &gif.EncodeOptions{BackgroundIndex: 4}},
		{"outside screen", []gif.EncodeFrame{frame(ok)}, &gif.EncodeOptions{Width: 1, Height: 1}},
		{"loop count", []gif.EncodeFrame{frame(ok)}, &gif.EncodeOptions{LoopCount: -2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := gif.Encode(&buf, tc.frames, tc.opts)
			require.ErrorIs(t, err, gif.ErrInvalidFrame)
			require.Zero(t, buf.Len())
		})
	}
}

func TestDecodeStdlibOutput(t *testing.T) {
	rng := rand.New(rand.NewSource(6))

	g := &stdgif.GIF{
		Image: []*image.Paletted{
			randomPaletted(rng, image.Rect(0, 0, 20, 10), 8),
			randomPaletted(rng, image.Rect(0, 0, 20, 10), 200),
			randomPaletted(rng, image.Rect(5, 2, 15, 8), 3),
		},
		Delay:     []int{5, 10, 15},
		Disposal:  []byte{stdgif.DisposalNone, stdgif.DisposalBackground, stdgif.DisposalPrevious},
		LoopCount: 2,
	}
	var buf bytes.Buffer
	require.NoError(t, stdgif.EncodeAll(&buf, g))

	s := decodeAll(t, buf.Bytes())
	require.Len(t, s.Frames, 3)
	require.Equal(t, 2, s.Screen.LoopCount)
	for i, f := range s.Frames {
		require.Equal(t, g.Image[i].Pix, f.Raster.Pix)
		require.Equal(t, g.Image[i].Rect, f.Bounds)
		require.Equal(t, g.Delay[i], f.Delay)
		require.Equal(t, gif.Disposal(g.Disposal[i]), f.Disposal)
	}
}

func TestStdlibDecodesOutput(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	frames := []gif.EncodeFrame{
		{Image: randomPaletted(rng, image.Rect(0, 0, 30, 30), 32), Delay: 7, Transparency: -1},
		{Image: randomPaletted(rng, image.Rect(10, 10, 20, 25), 5), Delay: 3, Disposal: gif.RestoreBackground, Transparency: 2},
		{Image: randomPaletted(rng, image.Rect(0, 0, 30, 30), 256), Delay: 1, Disposal: gif.RestorePrevious, Transparency: -1},
	}

	for _, opts := range []*gif.EncodeOptions{{LoopCount: 4}, {LoopCount: 4, Interlace: true}} {
		data := encode(t, frames, opts)

		g, err := stdgif.DecodeAll(bytes.NewReader(data))
		require.NoError(t, err)
		require.Len(t, g.Image, len(frames))
		require.Equal(t, 4, g.LoopCount)
		for i, f := range frames {
			require.Equal(t, f.Image.Pix, g.Image[i].Pix)
			require.Equal(t, f.Delay, g.Delay[i])
			require.Equal(t, byte(f.Disposal), g.Disposal[i])
		}
	}
}

func TestDecodeConfig(t *testing.T) {
	data := disposalStream(t, gif.DoNotDispose)

	s, err := gif.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 5, s.Width)
	require.Equal(t, 1, s.Height)
	require.Equal(t, uint8(2), s.BackgroundIndex)
	require.Len(t, s.GlobalColorTable, 4)
}

func TestEmptyScreenUsesFirstFrame(t *testing.T) {
	gct := color.Palette{colornames.Black, colornames.White}
	data := rawStream(3, 2, gct, 2, compress(t, 2, []byte{1, 1, 1, 0, 0, 0}))
	// zero the logical screen size, keep the image descriptor
	data[6], data[7], data[8], data[9] = 0, 0, 0, 0

	s := decodeAll(t, data)
	require.Equal(t, 3, s.Screen.Width)
	require.Equal(t, 2, s.Screen.Height)
	require.Equal(t, image.Rect(0, 0, 3, 2), s.Frames[0].Canvas.Bounds())
}
