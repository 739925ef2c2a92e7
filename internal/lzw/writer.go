package lzw

import "io"

const (
	maxCode = 1<<maxCodeWidth - 1

	// The encoder dictionary is an open addressing hash table keyed by
	// (prefix code, literal) and storing key<<12 | code.
	tableSize    = 4 * dictSize
	tableMask    = tableSize - 1
	invalidEntry = 0
)

type encoder struct {
	cw *CodeWriter

	litWidth int
	width    int
	hi       uint32
	overflow uint32

	table [tableSize]uint32
}

// Encode compresses src, a sequence of literals smaller than 1<<litWidth,
// and writes the codes to dst. The stream starts with a clear code and ends
// with the end-of-information code; a clear code is emitted whenever the
// 12-bit code space runs out.
func Encode(dst io.ByteWriter, litWidth int, src []byte) error {
	if litWidth < minCodeWidth || litWidth > 8 {
		return ErrUnsupportedWidth
	}
	if maxLit := byte(1<<litWidth - 1); maxLit != 0xff {
		for _, x := range src {
			if x > maxLit {
				return ErrInvalidLiteral
			}
		}
	}

	e := &encoder{
		cw:       NewCodeWriter(dst),
		litWidth: litWidth,
	}
	e.reset()

	clear := uint32(1) << litWidth
	eof := clear + 1
	if err := e.emit(clear); err != nil {
		return err
	}

	if len(src) > 0 {
		code := uint32(src[0])
	loop:
		for _, x := range src[1:] {
			literal := uint32(x)
			key := code<<8 | literal
			hash := (key>>12 ^ key) & tableMask
			for h, t := hash, e.table[hash]; t != invalidEntry; {
				if key == t>>12 {
					code = t & maxCode
					continue loop
				}
				h = (h + 1) & tableMask
				t = e.table[h]
			}

			if err := e.emit(code); err != nil {
				return err
			}
			code = literal

			cleared, err := e.incHi()
			if err != nil {
				return err
			}
			if cleared {
				continue
			}
			for {
				if e.table[hash] == invalidEntry {
					e.table[hash] = key<<12 | e.hi
					break
				}
				hash = (hash + 1) & tableMask
			}
		}

		if err := e.emit(code); err != nil {
			return err
		}
		if _, err := e.incHi(); err != nil {
			return err
		}
	}

	if err := e.emit(eof); err != nil {
		return err
	}
	return e.cw.Flush()
}

func (e *encoder) emit(code uint32) error {
	return e.cw.Emit(uint16(code), e.width)
}

// incHi advances the next implied code. When the code space is exhausted
// it emits a clear code, resets the dictionary and reports true.
func (e *encoder) incHi() (bool, error) {
	e.hi++
	if e.hi == e.overflow {
		e.width++
		e.overflow <<= 1
	}
	if e.hi == maxCode {
		if err := e.emit(uint32(1) << e.litWidth); err != nil {
			return false, err
		}
		e.reset()
		return true, nil
	}
	return false, nil
}

func (e *encoder) reset() {
	clear := uint32(1) << e.litWidth
	e.width = e.litWidth + 1
	e.hi = clear + 1
	e.overflow = clear << 1
	for i := range e.table {
		e.table[i] = invalidEntry
	}
}
