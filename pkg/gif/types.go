package gif

import (
	"image"
	"image/color"
	"time"
)

// Disposal tells a decoder what to do with a frame's region before the next
// frame is drawn.
type Disposal uint8

const (
	Unspecified       Disposal = iota // treated as DoNotDispose
	DoNotDispose                      // leave the canvas as is
	RestoreBackground                 // clear the region to the background
	RestorePrevious                   // restore the canvas as it was before the frame
)

func (d Disposal) String() string {
	switch d {
	case Unspecified:
		return "unspecified"
	case DoNotDispose:
		return "none"
	case RestoreBackground:
		return "background"
	case RestorePrevious:
		return "previous"
	default:
		return "unknown"
	}
}

// Valid reports whether d is one of the four defined methods.
func (d Disposal) Valid() bool {
	return d <= RestorePrevious
}

// ParseDisposal parses the names returned by Disposal.String.
func ParseDisposal(s string) (Disposal, bool) {
	for d := Unspecified; d <= RestorePrevious; d++ {
		if d.String() == s {
			return d, true
		}
	}
	return 0, false
}

// Screen is the logical screen descriptor of a stream.
type Screen struct {
	Version          string // "GIF87a" or "GIF89a"
	Width, Height    int
	GlobalColorTable color.Palette // nil when absent
	BackgroundIndex  uint8
	AspectRatio      uint8
	// LoopCount is -1 when the stream carries no NETSCAPE2.0 extension and
	// 0 for infinite looping. It is only reliable once the frames preceding
	// the extension have been parsed, which in practice means after the
	// first frame.
	LoopCount int
}

func (s *Screen) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

// RawFrame is the container skeleton of a single image: everything the
// parser learned about it, with the pixel data still LZW compressed.
type RawFrame struct {
	Offset int64 // offset of the image descriptor in the stream

	Bounds          image.Rectangle
	Interlaced      bool
	LocalColorTable color.Palette // nil when the frame uses the global table

	Disposal     Disposal
	UserInput    bool
	Delay        int // hundredths of a second
	Transparency int // -1 when absent

	LitWidth int
	// Data holds the image data sub-blocks, length prefixes and terminator
	// included.
	Data []byte
}

// Frame is a decoded frame together with the canvas it produced.
type Frame struct {
	Index  int
	Bounds image.Rectangle

	// Raster holds the frame's own pixels at Bounds clipped to the logical
	// screen, with the effective color table as palette. A transparency
	// index beyond the table is appended as a transparent entry.
	Raster *image.Paletted
	Local  bool // Raster.Palette is a local color table

	Disposal     Disposal
	Delay        int // hundredths of a second
	Transparency int // -1 when absent
	Interlaced   bool

	// Clamped counts pixels whose index exceeded the color table.
	Clamped int

	// Canvas is the composited screen after drawing this frame. The frame
	// owns it.
	Canvas *image.NRGBA
	// Indexed is the composited screen as palette indices. It is nil as soon
	// as frames with differing color tables have been drawn, since indices
	// are no longer comparable then.
	Indexed *image.Paletted
}

func (f *Frame) Duration() time.Duration {
	return time.Duration(f.Delay) * 10 * time.Millisecond
}

func (f *Frame) HasTransparency() bool {
	return f.Transparency >= 0
}

// Stream is the result of an eager decode.
type Stream struct {
	Screen *Screen
	Frames []*Frame
}
