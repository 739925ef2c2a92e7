package format

import (
	"fmt"
	"strconv"
	"time"
)

// FormatBytes formats a byte count with binary units, avoiding .00 for whole
// numbers.
func FormatBytes(b int64) string {
	const (
		_  = iota
		KB = 1 << (10 * iota)
		MB
		GB
		TB
	)

	val := float64(b)
	var unit string

	switch {
	case b >= TB:
		val /= float64(TB)
		unit = "TB"
	case b >= GB:
		val /= float64(GB)
		unit = "GB"
	case b >= MB:
		val /= float64(MB)
		unit = "MB"
	case b >= KB:
		val /= float64(KB)
		unit = "KB"
	default:
		return fmt.Sprintf("%dB", b)
	}

	if val == float64(int(val)) {
		return fmt.Sprintf("%.0f%s", val, unit)
	}
	return fmt.Sprintf("%.2f%s", val, unit)
}

// FormatDelay renders a frame delay given in hundredths of a second.
func FormatDelay(cs int) string {
	if cs == 0 {
		return "0s"
	}
	return (time.Duration(cs) * 10 * time.Millisecond).String()
}

// ParseDelay parses a duration such as "80ms" or "1.5s", or a bare number of
// hundredths of a second, into hundredths of a second.
func ParseDelay(s string) (int, error) {
	cs, err := strconv.Atoi(s)
	if err != nil {
		d, perr := time.ParseDuration(s)
		if perr != nil {
			return 0, fmt.Errorf("invalid delay %q: %w", s, perr)
		}
		cs = int(d / (10 * time.Millisecond))
	}
	if cs < 0 {
		return 0, fmt.Errorf("invalid delay %q: negative", s)
	}
	return cs, nil
}
