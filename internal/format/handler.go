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
package format

import (
	"io"
	"log/slog"

	"github.com/ostafen/gifkit/pkg/gif"
)

// Config is the header level summary of a stream.
type Config struct {
	Format        string
	Version       string
	Width, Height int
	Colors        int // entries of the global color table, 0 when absent
}

// Handler is a supported container format. The set of handlers is closed:
// implementations only live in this package and are listed in Handlers.
type Handler interface {
	Ext() string
	Description() string
	Signatures() [][]byte
	// Probe reads only the header of the stream.
	Probe(r io.Reader) (*Config, error)
	// Open returns a lazy frame decoder over r.
	Open(r io.Reader, logger *slog.Logger) *gif.Decoder

	sealed()
}

type gifHandler struct{}

func (gifHandler) Ext() string { return "gif" }

func (gifHandler) Description() string { return "Graphics Interchange Format" }

func (gifHandler) Signatures() [][]byte {
	return [][]byte{
		[]byte("GIF87a"),
		[]byte("GIF89a"),
	}
}

func (gifHandler) Probe(r io.Reader) (*Config, error) {
	s, err := gif.DecodeConfig(r)
	if err != nil {
		return nil, err
	}
	return &Config{
		Format:  "gif",
		Version: s.Version,
		Width:   s.Width,
		Height:  s.Height,
		Colors:  len(s.GlobalColorTable),
	}, nil
}

func (gifHandler) Open(r io.Reader, logger *slog.Logger) *gif.Decoder {
	return gif.NewDecoder(r, &gif.DecodeOptions{Logger: logger})
}

func (gifHandler) sealed() {}

// Handlers lists every supported format.
var Handlers = []Handler{
	gifHandler{},
}
