package gif

import (
	"errors"
	"fmt"
	"io"

	"github.com/ostafen/gifkit/internal/lzw"
)

var (
	// ErrInvalidFormat reports a bad signature or a malformed block structure.
	ErrInvalidFormat = errors.New("gif: invalid format")
	// ErrTruncatedStream reports that the input ended inside a structure.
	ErrTruncatedStream = errors.New("gif: truncated stream")
	// ErrUnsupportedFeature reports code widths or table sizes outside the
	// range the format allows.
	ErrUnsupportedFeature = errors.New("gif: unsupported feature")
	// ErrPixelIndexOutOfRange is only returned in strict mode; otherwise
	// out of range indices are clamped.
	ErrPixelIndexOutOfRange = errors.New("gif: pixel index out of range")
	// ErrEndOfSequence is returned by Advance once every frame was consumed.
	// It is not a fault.
	ErrEndOfSequence = errors.New("gif: end of sequence")
	// ErrInvalidFrame reports an encoder input violating the frame contract.
	ErrInvalidFrame = errors.New("gif: invalid frame")
)

// readErr maps low level read failures onto the error taxonomy. Running out
// of bytes inside a structure always means truncation.
func readErr(what string, off int64, err error) error {
	switch {
	case err == io.EOF, err == io.ErrUnexpectedEOF, errors.Is(err, lzw.ErrTruncated):
		return fmt.Errorf("gif: reading %s at offset %d: %w", what, off, ErrTruncatedStream)
	case errors.Is(err, lzw.ErrUnsupportedWidth):
		return fmt.Errorf("gif: reading %s at offset %d: %w", what, off, ErrUnsupportedFeature)
	case errors.Is(err, lzw.ErrInvalidCode):
		return fmt.Errorf("gif: reading %s at offset %d: %w: %v", what, off, ErrInvalidFormat, err)
	}
	return fmt.Errorf("gif: reading %s at offset %d: %w", what, off, err)
}

func invalidFrame(i int, format string, args ...any) error {
	return fmt.Errorf("gif: frame %d: %w: %s", i, ErrInvalidFrame, fmt.Sprintf(format, args...))
}
