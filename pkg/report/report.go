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
package report

import (
	"encoding/xml"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"time"

	"github.com/ostafen/gifkit/pkg/gif"
	"github.com/ostafen/gifkit/pkg/sysinfo"
)

const XmlOutputVersion = "1.0"

// Header is the root element of a report together with everything that
// precedes the frame list.
type Header struct {
	XMLName   xml.Name `xml:"gifreport"`
	XmlOutput string   `xml:"xmloutputversion,attr,omitempty"`
	Creator   Creator  `xml:"creator"`
	Source    Source   `xml:"source"`
}

// Creator describes the program and host that produced the report.
type Creator struct {
	Package              string  `xml:"package"`
	Version              string  `xml:"version"`
	ExecutionEnvironment ExecEnv `xml:"execution_environment"`
}

type ExecEnv struct {
	OS      string `xml:"os_sysname"`
	Release string `xml:"os_release"`
	Version string `xml:"os_version"`
	Host    string `xml:"host"`
	Arch    string `xml:"arch"`
	UID     int    `xml:"uid"`
	Start   string `xml:"start_time"`
}

// Source describes the decoded stream.
type Source struct {
	Filename        string `xml:"filename"`
	FileSize        int64  `xml:"filesize"`
	Version         string `xml:"version"`
	Width           int    `xml:"width"`
	Height          int    `xml:"height"`
	GlobalColors    int    `xml:"global_colors"`
	BackgroundIndex int    `xml:"background_index"`
	LoopCount       int    `xml:"loop_count"`
}

// FrameObject describes a single frame.
type FrameObject struct {
	XMLName      xml.Name `xml:"frame"`
	Index        int      `xml:"index,attr"`
	Bounds       Bounds   `xml:"bounds"`
	Disposal     string   `xml:"disposal"`
	Delay        int      `xml:"delay"` // hundredths of a second
	Transparency int      `xml:"transparency"`
	LocalColors  int      `xml:"local_colors"`
	Interlaced   bool     `xml:"interlaced"`
	Clamped      int      `xml:"clamped,omitempty"`
}

type Bounds struct {
	X      int `xml:"x,attr"`
	Y      int `xml:"y,attr"`
	Width  int `xml:"width,attr"`
	Height int `xml:"height,attr"`
}

// NewSource summarizes a logical screen.
func NewSource(filename string, size int64, s *gif.Screen) Source {
	return Source{
		Filename:        filename,
		FileSize:        size,
		Version:         s.Version,
		Width:           s.Width,
		Height:          s.Height,
		GlobalColors:    len(s.GlobalColorTable),
		BackgroundIndex: int(s.BackgroundIndex),
		LoopCount:       s.LoopCount,
	}
}

func NewFrameObject(f *gif.Frame) FrameObject {
	obj := FrameObject{
		Index: f.Index,
		Bounds: Bounds{
			X:      f.Bounds.Min.X,
			Y:      f.Bounds.Min.Y,
			Width:  f.Bounds.Dx(),
			Height: f.Bounds.Dy(),
		},
		Disposal:     f.Disposal.String(),
		Delay:        f.Delay,
		Transparency: f.Transparency,
		Interlaced:   f.Interlaced,
		Clamped:      f.Clamped,
	}
	if f.Local {
		obj.LocalColors = len(f.Raster.Palette)
	}
	return obj
}

// GetExecEnv describes the running process.
func GetExecEnv() ExecEnv {
	sinfo := sysinfo.Stat()

	host, err := os.Hostname()
	if err != nil {
		host = "unknown_host"
	}

	uid := 0
	if u, err := user.Current(); err == nil {
		if v, err := strconv.Atoi(u.Uid); err == nil {
			uid = v
		}
	}

	return ExecEnv{
		OS:      sinfo.Name,
		Release: sinfo.Release,
		Version: sinfo.Version,
		Host:    host,
		Arch:    runtime.GOARCH,
		UID:     uid,
		Start:   time.Now().UTC().Format(time.RFC3339),
	}
}
