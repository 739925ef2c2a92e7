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
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ostafen/gifkit/internal/env"
	"github.com/ostafen/gifkit/pkg/gif"
	"github.com/ostafen/gifkit/pkg/report"
	fmtutil "github.com/ostafen/gifkit/pkg/util/format"
	"github.com/spf13/cobra"
)

func DefineInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <file.gif>",
		Short: "Print the logical screen and per-frame metadata of a GIF",
		Long: `The 'info' command decodes every frame of a GIF and prints the logical screen descriptor
followed by one row per frame: bounds, disposal method, delay, transparency and color table usage.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunInfo,
	}

	cmd.Flags().String("xml", "", "also write an XML report to the specified file")
	return cmd
}

func RunInfo(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	xmlPath, _ := cmd.Flags().GetString("xml")

	in, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	cfg, err := in.handler.Probe(in.reader())
	if err != nil {
		return fmt.Errorf("%s: %w", in.path, err)
	}

	d := in.decoder(s.codec)
	screen, err := d.Screen()
	if err != nil {
		return err
	}

	var (
		frames   []*gif.Frame
		duration time.Duration
	)
	for f, err := range d.Frames() {
		if err != nil {
			return fmt.Errorf("%s: %w", in.path, err)
		}
		frames = append(frames, f)
		duration += f.Duration()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:        \t%s (%s)\n", absPath(in.path), fmtutil.FormatBytes(int64(in.file.FileSize)))
	fmt.Fprintf(out, "Format:      \t%s (%s)\n", cfg.Format, cfg.Version)
	fmt.Fprintf(out, "Screen:      \t%dx%d\n", screen.Width, screen.Height)
	fmt.Fprintf(out, "Colors:      \t%d\n", len(screen.GlobalColorTable))
	fmt.Fprintf(out, "Background:  \t%d\n", screen.BackgroundIndex)
	fmt.Fprintf(out, "Loop:        \t%s\n", formatLoop(screen.LoopCount))
	fmt.Fprintf(out, "Frames:      \t%d\n", len(frames))
	fmt.Fprintf(out, "Duration:    \t%s\n", duration)
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tBOUNDS\tDISPOSAL\tDELAY\tTRANSPARENCY\tLOCAL COLORS\tINTERLACED\tCLAMPED")
	for _, f := range frames {
		transparency := "-"
		if f.HasTransparency() {
			transparency = fmt.Sprint(f.Transparency)
		}
		local := "-"
		if f.Local {
			local = fmt.Sprint(len(f.Raster.Palette))
		}
		fmt.Fprintf(w, "%d\t%v\t%s\t%s\t%s\t%s\t%t\t%d\n",
			f.Index,
			f.Bounds,
			f.Disposal,
			fmtutil.FormatDelay(f.Delay),
			transparency,
			local,
			f.Interlaced,
			f.Clamped,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if xmlPath != "" {
		if err := writeReport(xmlPath, in, screen, frames); err != nil {
			return err
		}
		s.console.Infof("Report saved to: \t%s", absPath(xmlPath))
	}
	return nil
}

func formatLoop(n int) string {
	switch {
	case n < 0:
		return "none"
	case n == 0:
		return "forever"
	}
	return fmt.Sprintf("%d repetitions", n)
}

func writeReport(path string, in *input, screen *gif.Screen, frames []*gif.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := report.NewWriter(f)
	err = w.WriteHeader(report.Header{
		XmlOutput: report.XmlOutputVersion,
		Creator: report.Creator{
			Package:              env.AppName,
			Version:              env.Version,
			ExecutionEnvironment: report.GetExecEnv(),
		},
		Source: report.NewSource(absPath(in.path), int64(in.file.FileSize), screen),
	})
	if err != nil {
		return err
	}

	for _, fr := range frames {
		if err := w.WriteFrame(report.NewFrameObject(fr)); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return f.Close()
}
