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
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ostafen/gifkit/pkg/pbar"
	fmtutil "github.com/ostafen/gifkit/pkg/util/format"
	osutil "github.com/ostafen/gifkit/pkg/util/os"
	"github.com/spf13/cobra"
)

func DefineExtractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file.gif>",
		Short: "Write every frame of a GIF as a PNG image",
		Long: `The 'extract' command composites each frame of a GIF the way a viewer displays it and
writes the result to <dir>/<name>-<index>.png. With --raw the frame rasters are written
as stored in the file, without compositing.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunExtract,
	}

	cmd.Flags().StringP("dir", "d", ".", "destination directory")
	cmd.Flags().Bool("raw", false, "write the frame rasters instead of the composited canvas")
	return cmd
}

type extractOptions struct {
	Dir string
	Raw bool
}

func parseExtractOptions(cmd *cobra.Command) extractOptions {
	dir, _ := cmd.Flags().GetString("dir")
	raw, _ := cmd.Flags().GetBool("raw")
	return extractOptions{Dir: dir, Raw: raw}
}

func RunExtract(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := parseExtractOptions(cmd)

	in, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	if _, err := osutil.EnsureDir(opts.Dir, false); err != nil {
		return err
	}

	d := in.decoder(s.codec)
	total, err := d.Scan()
	if err != nil {
		return fmt.Errorf("%s: %w", in.path, err)
	}

	s.console.Infof("Source: \t%s", absPath(in.path))
	s.console.Infof("Destination: \t%s", absPath(opts.Dir))
	s.console.Infof("Frames: \t%d", total)

	name := strings.TrimSuffix(filepath.Base(in.path), filepath.Ext(in.path))
	start := time.Now()
	progress := pbar.NewProgressBarState(cmd.OutOrStdout(), total)

	for f, err := range d.Frames() {
		if err != nil {
			progress.Finish()
			return fmt.Errorf("%s: %w", in.path, err)
		}

		var img image.Image = f.Canvas
		if opts.Raw {
			if f.Raster.Rect.Empty() {
				s.console.Warnf("frame %d lies outside the screen, skipped", f.Index)
				progress.Advance(0)
				continue
			}
			img = f.Raster
		}

		path := filepath.Join(opts.Dir, fmt.Sprintf("%s-%d.png", name, f.Index))
		n, err := writePNG(path, img)
		if err != nil {
			progress.Finish()
			return err
		}
		progress.Advance(n)
	}
	progress.Finish()

	s.console.Infof("Extraction completed!")
	s.console.Infof("Total data: \t%s", fmtutil.FormatBytes(progress.BytesWritten))
	s.console.Infof("Duration: \t%s", time.Since(start).Round(time.Millisecond))
	return nil
}

// writePNG encodes img to path and returns the number of bytes written.
func writePNG(path string, img image.Image) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %q: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := png.Encode(w, img); err != nil {
		return 0, err
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), f.Close()
}
