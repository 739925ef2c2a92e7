package mmap

import (
	"fmt"
	"os"
)

// MmapFile is a read-only view of a whole file.
type MmapFile struct {
	Data     []byte   // file contents
	File     *os.File // underlying file, nil once closed
	FileSize int

	mapped bool // Data is a memory mapping rather than a heap copy
}

// NewMmapFile maps filePath read-only. On platforms without mmap support the
// file is read into memory instead.
func NewMmapFile(filePath string) (*MmapFile, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", filePath, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to get file info for %q: %w", filePath, err)
	}
	if fi.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%q is a directory", filePath)
	}

	m := &MmapFile{
		File:     f,
		FileSize: int(fi.Size()),
	}
	if m.FileSize == 0 {
		// an empty mapping is invalid, but an empty file is not
		return m, nil
	}

	if err := m.mapFile(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to map file %q: %w", filePath, err)
	}
	return m, nil
}

// Close releases the mapping and closes the underlying file.
func (m *MmapFile) Close() error {
	var err error
	if m.Data != nil {
		err = m.unmap()
		m.Data = nil
	}
	if m.File != nil {
		if closeErr := m.File.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", closeErr)
		}
		m.File = nil
	}
	return err
}
