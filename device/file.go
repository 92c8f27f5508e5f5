// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"fmt"
	"os"
	"sync"

	"github.com/ffutop/flash-gateway/flash"
)

// File backs a flash part with a regular file. Every row program is written
// through and synced so the part survives a crash of the gateway process.
type File struct {
	base   uint32
	size   uint32
	rowLen uint32

	mu sync.Mutex
	f  *os.File
}

// OpenFile opens (or creates) a file-backed part of the given size mapped at
// base. A freshly created backing starts fully erased.
func OpenFile(path string, base, size, rowLen uint32) (*File, error) {
	if err := checkGeometry(size, rowLen); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("device: failed to open backing file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	fresh := fi.Size() == 0
	if fi.Size() != int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("device: failed to resize backing file: %w", err)
		}
	}
	if fresh {
		if err := fillErased(f, size, rowLen); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &File{base: base, size: size, rowLen: rowLen, f: f}, nil
}

// fillErased writes the erase pattern across a fresh backing, one row at a time.
func fillErased(f *os.File, size, rowLen uint32) error {
	row := make([]byte, rowLen)
	for i := range row {
		row[i] = flash.EraseValue
	}
	for off := uint32(0); off < size; off += rowLen {
		if _, err := f.WriteAt(row, int64(off)); err != nil {
			return fmt.Errorf("device: failed to initialize backing file: %w", err)
		}
	}
	return f.Sync()
}

// ProgramRow programs one row and syncs it to disk.
func (d *File) ProgramRow(addr uint32, row []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := checkRow(d.base, d.size, d.rowLen, addr, row); err != nil {
		return err
	}
	if _, err := d.f.WriteAt(row, int64(addr-d.base)); err != nil {
		return fmt.Errorf("device: failed to program row at 0x%08X: %w", addr, err)
	}
	if err := d.f.Sync(); err != nil {
		return fmt.Errorf("device: failed to sync row at 0x%08X: %w", addr, err)
	}
	return nil
}

// ReadAt serves the part contents. off is an absolute address.
func (d *File) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if off < int64(d.base) || off > int64(d.base)+int64(d.size) {
		return 0, fmt.Errorf("device: read at 0x%08X outside part window", off)
	}
	return d.f.ReadAt(p, off-int64(d.base))
}

// Close closes the backing file.
func (d *File) Close() error {
	return d.f.Close()
}
