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
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ostafen/gifkit/pkg/table"
)

// SignatureLen is the number of leading bytes Detect needs to tell every
// handler apart.
const SignatureLen = 6

var registry = buildRegistry(Handlers...)

func buildRegistry(handlers ...Handler) *table.PrefixTable[[]Handler] {
	t := table.New[[]Handler]()
	for _, h := range handlers {
		for _, sig := range h.Signatures() {
			hs, _ := t.Get(sig)
			t.Insert(sig, append(hs, h))
		}
	}
	return t
}

// Detect returns the handler whose signature is the longest prefix of sig.
func Detect(sig []byte) (Handler, bool) {
	var found Handler
	registry.Walk(sig, func(hs []Handler) bool {
		found = hs[0]
		return false
	})
	return found, found != nil
}

// ErrUnknownFormat is returned when no handler recognizes a signature.
var ErrUnknownFormat = errors.New("unknown format")

// DetectReader peeks at the leading bytes of r. The returned reader yields
// the whole stream, signature included, even when no handler matched.
func DetectReader(r io.Reader) (Handler, io.Reader, error) {
	sig := make([]byte, SignatureLen)
	n, err := io.ReadFull(r, sig)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, nil, err
	}
	sig = sig[:n]
	full := io.MultiReader(bytes.NewReader(sig), r)

	h, ok := Detect(sig)
	if !ok {
		return nil, full, fmt.Errorf("signature %q: %w", sig, ErrUnknownFormat)
	}
	return h, full, nil
}
