//go:build !unix

package mmap

import "io"

func (m *MmapFile) mapFile() error {
	m.Data = make([]byte, m.FileSize)
	_, err := io.ReadFull(m.File, m.Data)
	return err
}

func (m *MmapFile) unmap() error {
	return nil
}
