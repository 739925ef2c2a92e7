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
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/ostafen/gifkit/pkg/gif"
	"github.com/ostafen/gifkit/pkg/pbar"
	fmtutil "github.com/ostafen/gifkit/pkg/util/format"
	"github.com/spf13/cobra"
)

const defaultDelay = "100ms"

func DefineEncodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode -o <out.gif> <frame>...",
		Short: "Assemble images into an animated GIF",
		Long: `The 'encode' command reads PNG, BMP, WebP or GIF images and writes them, in order, as
the frames of a single GIF. Images with more than 256 colors are dithered onto a fixed
palette. Frames taken from a GIF input keep their delay unless --delay is given.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         RunEncode,
	}

	cmd.Flags().StringP("output", "o", "", "destination GIF file")
	cmd.Flags().String("delay", defaultDelay, "delay between frames (e.g. 80ms, 1.5s, or hundredths of a second)")
	cmd.Flags().Int("loop", 0, "number of repetitions, 0 loops forever and -1 plays once")
	cmd.Flags().Bool("optimize", false, "trim color tables and crop frames to the changed region")
	cmd.Flags().Bool("interlace", false, "write interlaced frames")
	cmd.Flags().String("disposal", gif.Unspecified.String(), "disposal method: unspecified, none, background or previous")
	cmd.Flags().Float64("scale", 1, "resize factor applied to every frame")

	cmd.MarkFlagRequired("output")
	return cmd
}

type encodeOptions struct {
	Output    string
	Delay     int
	KeepDelay bool
	Loop      int
	Optimize  bool
	Interlace bool
	Disposal  gif.Disposal
	Scale     float64
}

func parseEncodeOptions(cmd *cobra.Command) (*encodeOptions, error) {
	output, _ := cmd.Flags().GetString("output")
	delayStr, _ := cmd.Flags().GetString("delay")
	loop, _ := cmd.Flags().GetInt("loop")
	optimize, _ := cmd.Flags().GetBool("optimize")
	interlace, _ := cmd.Flags().GetBool("interlace")
	disposalStr, _ := cmd.Flags().GetString("disposal")
	scale, _ := cmd.Flags().GetFloat64("scale")

	delay, err := fmtutil.ParseDelay(delayStr)
	if err != nil {
		return nil, err
	}

	disposal, ok := gif.ParseDisposal(disposalStr)
	if !ok {
		return nil, fmt.Errorf("invalid disposal method %q", disposalStr)
	}

	if scale <= 0 {
		return nil, fmt.Errorf("invalid scale factor %v", scale)
	}

	return &encodeOptions{
		Output:    output,
		Delay:     delay,
		KeepDelay: !cmd.Flags().Changed("delay"),
		Loop:      loop,
		Optimize:  optimize,
		Interlace: interlace,
		Disposal:  disposal,
		Scale:     scale,
	}, nil
}

func RunEncode(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	opts, err := parseEncodeOptions(cmd)
	if err != nil {
		return err
	}

	s.console.Infof("Inputs: \t%d", len(args))
	s.console.Infof("Destination: \t%s", absPath(opts.Output))

	start := time.Now()
	progress := pbar.NewProgressBarState(cmd.OutOrStdout(), len(args))

	var frames []gif.EncodeFrame
	for _, path := range args {
		loaded, err := loadFrames(path, opts.Scale, s.codec)
		if err != nil {
			progress.Finish()
			return err
		}

		for _, f := range loaded {
			delay := opts.Delay
			if opts.KeepDelay && f.delay >= 0 {
				delay = f.delay
			}
			frames = append(frames, gif.EncodeFrame{
				Image:        f.img,
				Disposal:     opts.Disposal,
				Transparency: f.transparency,
				Delay:        delay,
			})
		}
		progress.Advance(0)
	}
	progress.Finish()

	if len(frames) == 0 {
		return fmt.Errorf("no frames to encode")
	}

	n, err := writeGIF(opts.Output, frames, &gif.EncodeOptions{
		LoopCount: opts.Loop,
		Optimize:  opts.Optimize,
		Interlace: opts.Interlace,
		Logger:    s.codec,
	})
	if err != nil {
		return err
	}

	s.console.Infof("Encoding completed!")
	s.console.Infof("Frames: \t%d", len(frames))
	s.console.Infof("Total data: \t%s", fmtutil.FormatBytes(n))
	s.console.Infof("Duration: \t%s", time.Since(start).Round(time.Millisecond))
	return nil
}

// writeGIF encodes frames to path and returns the size of the result. The
// file is removed if encoding fails.
func writeGIF(path string, frames []gif.EncodeFrame, opts *gif.EncodeOptions) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %q: %w", path, err)
	}

	w := bufio.NewWriter(f)
	err = gif.Encode(w, frames, opts)
	if err == nil {
		err = w.Flush()
	}

	var size int64
	if err == nil {
		var fi os.FileInfo
		if fi, err = f.Stat(); err == nil {
			size = fi.Size()
		}
	}

	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return size, nil
}
