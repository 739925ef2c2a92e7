package gif

import "iter"

// interlacing represents the set of scans in an interlaced GIF image.
type interlacing struct {
	skip, start int
}

// interlacingPasses represents the set of passes in an interlaced GIF image.
var interlacingPasses = []interlacing{
	{8, 0}, // Group 1 : Every 8th. row, starting with row 0.
	{8, 4}, // Group 2 : Every 8th. row, starting with row 4.
	{4, 2}, // Group 3 : Every 4th. row, starting with row 2.
	{2, 1}, // Group 4 : Every 2nd. row, starting with row 1.
}

// rows yields, in transmission order, the display row each stored row of an
// image belongs to.
func rows(height int, interlaced bool) iter.Seq[int] {
	return func(yield func(int) bool) {
		if !interlaced {
			for y := 0; y < height; y++ {
				if !yield(y) {
					return
				}
			}
			return
		}
		for _, pass := range interlacingPasses {
			for y := pass.start; y < height; y += pass.skip {
				if !yield(y) {
					return
				}
			}
		}
	}
}

// interlace reorders rows stored in display order into transmission order.
func interlace(pix []byte, width, height int) []byte {
	out := make([]byte, 0, len(pix))
	for y := range rows(height, true) {
		out = append(out, pix[y*width:(y+1)*width]...)
	}
	return out
}
