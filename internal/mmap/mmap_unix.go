//go:build unix

package mmap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func (m *MmapFile) mapFile() error {
	data, err := unix.Mmap(int(m.File.Fd()), 0, m.FileSize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	m.Data = data
	m.mapped = true
	return nil
}

func (m *MmapFile) unmap() error {
	if !m.mapped {
		return nil
	}
	if err := unix.Munmap(m.Data); err != nil {
		return fmt.Errorf("failed to munmap: %w", err)
	}
	return nil
}
