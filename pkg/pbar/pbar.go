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
package pbar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ostafen/gifkit/pkg/util/format"
)

const MinRefreshRate = time.Millisecond * 500

const barLength = 20

// ProgressBarState tracks frames processed by a long running command and
// renders them as a single self-overwriting line.
type ProgressBarState struct {
	out io.Writer

	TotalFrames  int
	DoneFrames   int
	BytesWritten int64

	StartTime      time.Time
	LastUpdateTime time.Time
}

func NewProgressBarState(out io.Writer, totalFrames int) *ProgressBarState {
	return &ProgressBarState{
		out:         out,
		TotalFrames: totalFrames,
		StartTime:   time.Now(),
	}
}

// Advance records one more processed frame and the bytes it produced.
func (pbs *ProgressBarState) Advance(written int64) {
	pbs.DoneFrames++
	pbs.BytesWritten += written
	pbs.Render(pbs.DoneFrames == pbs.TotalFrames)
}

// Render prints the progress line, at most once per MinRefreshRate unless
// force is set.
func (pbs *ProgressBarState) Render(force bool) {
	if !force && time.Since(pbs.LastUpdateTime) < MinRefreshRate {
		return
	}
	pbs.LastUpdateTime = time.Now()

	percentage := 0.0
	if pbs.TotalFrames > 0 {
		percentage = float64(pbs.DoneFrames) / float64(pbs.TotalFrames) * 100
	}

	filledLen := min(barLength, int(float64(barLength)*percentage/100))
	var bar string
	if filledLen == barLength {
		bar = strings.Repeat("=", barLength)
	} else {
		bar = strings.Repeat("=", filledLen) + ">" + strings.Repeat(" ", barLength-filledLen-1)
	}

	elapsed := time.Since(pbs.StartTime).Seconds()
	fps := 0.0
	if elapsed > 0 {
		fps = float64(pbs.DoneFrames) / elapsed
	}

	// \r rewinds to the start of the line, trailing spaces clear leftovers
	fmt.Fprintf(pbs.out, "\r[INFO] Progress: [%s] %3.0f%% (%d/%d frames) | %s written | @ %.1f frames/s    ",
		bar,
		percentage,
		pbs.DoneFrames,
		pbs.TotalFrames,
		format.FormatBytes(pbs.BytesWritten),
		fps,
	)
}

// Finish moves the cursor past the progress line.
func (pbs *ProgressBarState) Finish() {
	fmt.Fprintln(pbs.out)
}
