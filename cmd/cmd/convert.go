package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	_ "image/png"
	"log/slog"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/ostafen/gifkit/internal/format"
)

// rasterFrame is an input image converted for the encoder.
type rasterFrame struct {
	img          *image.Paletted
	transparency int
	delay        int // -1 when the source carries no timing
}

// loadFrames reads a raster file. GIF inputs yield one frame per composited
// canvas, every other format a single frame.
func loadFrames(path string, scale float64, logger *slog.Logger) ([]rasterFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, r, err := format.DetectReader(bufio.NewReader(f))
	if err != nil && !errors.Is(err, format.ErrUnknownFormat) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if h != nil {
		var frames []rasterFrame
		for fr, err := range h.Open(r, logger).Frames() {
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			m, transparency := toPaletted(resize(fr.Canvas, scale))
			frames = append(frames, rasterFrame{img: m, transparency: transparency, delay: fr.Delay})
		}
		return frames, nil
	}

	img, name, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("decoded input", "path", path, "format", name, "bounds", img.Bounds())

	m, transparency := toPaletted(resize(img, scale))
	return []rasterFrame{{img: m, transparency: transparency, delay: -1}}, nil
}

// resize scales img by factor with Catmull-Rom resampling.
func resize(img image.Image, factor float64) image.Image {
	if factor == 1 {
		return img
	}
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*factor+0.5))
	h := max(1, int(float64(b.Dy())*factor+0.5))

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// toPaletted converts img to a paletted image anchored at the origin. Images
// with at most 256 distinct colors keep them exactly, fully transparent
// pixels sharing one transparent entry and partially transparent ones made
// opaque. Richer images are dithered onto the
// Plan 9 palette.
func toPaletted(img image.Image) (*image.Paletted, int) {
	b := img.Bounds()
	rect := image.Rect(0, 0, b.Dx(), b.Dy())

	var (
		pal          color.Palette
		index        = make(map[color.NRGBA]uint8)
		transparency = -1
		pix          = make([]uint8, rect.Dx()*rect.Dy())
	)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			// GIF has no partial alpha: keep the straight color opaque
			if c.A == 0 {
				c = color.NRGBA{}
			} else {
				c.A = 0xFF
			}

			idx, ok := index[c]
			if !ok {
				if len(pal) == 256 {
					return quantize(img), -1
				}
				idx = uint8(len(pal))
				index[c] = idx
				pal = append(pal, c)
				if c.A == 0 {
					transparency = int(idx)
				}
			}
			pix[(y-b.Min.Y)*rect.Dx()+x-b.Min.X] = idx
		}
	}

	if len(pal) == 0 {
		pal = color.Palette{color.Black}
	}
	return &image.Paletted{Pix: pix, Stride: rect.Dx(), Rect: rect, Palette: pal}, transparency
}

func quantize(img image.Image) *image.Paletted {
	b := img.Bounds()
	dst := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette.Plan9)
	draw.FloydSteinberg.Draw(dst, dst.Rect, img, b.Min)
	return dst
}
