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
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ostafen/gifkit/internal/format"
	"github.com/ostafen/gifkit/internal/logger"
	"github.com/ostafen/gifkit/internal/mmap"
	"github.com/ostafen/gifkit/pkg/gif"
	"github.com/spf13/cobra"
)

// session bundles what every command needs: a console for user facing
// output and a structured logger for codec diagnostics.
type session struct {
	console *logger.Logger
	codec   *slog.Logger
	logFile *os.File
}

func newSession(cmd *cobra.Command) (*session, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	logFilePath, _ := cmd.Flags().GetString("log-file")

	level := logger.ParseLevel(levelName)
	s := &session{
		console: logger.New(cmd.OutOrStdout(), level),
	}
	if logFilePath == "" {
		s.codec = s.console.Slog()
		return s, nil
	}

	codec, f, err := setupLogger(logFilePath, level.SlogLevel())
	if err != nil {
		return nil, err
	}
	s.codec, s.logFile = codec, f
	return s, nil
}

func (s *session) Close() error {
	if s.logFile != nil {
		return s.logFile.Close()
	}
	return nil
}

func setupLogger(logFilePath string, minLevel slog.Level) (*slog.Logger, *os.File, error) {
	logDir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}

	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %q: %w", logFilePath, err)
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{
		Level:     minLevel,
		AddSource: true,
	})
	return slog.New(handler), f, nil
}

// input is a memory mapped file whose format has been detected.
type input struct {
	path    string
	file    *mmap.MmapFile
	handler format.Handler
}

func openInput(path string) (*input, error) {
	m, err := mmap.NewMmapFile(path)
	if err != nil {
		return nil, err
	}

	h, ok := format.Detect(m.Data)
	if !ok {
		m.Close()
		return nil, fmt.Errorf("%s: unsupported file format", path)
	}
	return &input{path: path, file: m, handler: h}, nil
}

func (in *input) reader() io.Reader {
	return bytes.NewReader(in.file.Data)
}

func (in *input) decoder(logger *slog.Logger) *gif.Decoder {
	return in.handler.Open(in.reader(), logger)
}

func (in *input) Close() error {
	return in.file.Close()
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
