// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"

	"github.com/ffutop/flash-gateway/flash"
)

// Mmap backs a flash part with a memory-mapped file. Reads are straight
// copies out of the mapping, which makes it the closest analog of on-chip
// flash living in the address space; programs copy into the mapping and
// flush so the OS persists them.
type Mmap struct {
	base   uint32
	rowLen uint32

	mu   sync.Mutex
	f    *os.File
	data mmap.MMap
}

// OpenMmap opens (or creates) an mmap-backed part of the given size mapped
// at base. A freshly created backing starts fully erased.
func OpenMmap(path string, base, size, rowLen uint32) (*Mmap, error) {
	if err := checkGeometry(size, rowLen); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("device: failed to open mmap file: %w", err)
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
			return nil, fmt.Errorf("device: failed to resize mmap file: %w", err)
		}
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("device: mmap failed: %w", err)
	}

	if fresh {
		for i := range data {
			data[i] = flash.EraseValue
		}
		if err := data.Flush(); err != nil {
			data.Unmap()
			f.Close()
			return nil, fmt.Errorf("device: failed to initialize mmap file: %w", err)
		}
	}

	return &Mmap{base: base, rowLen: rowLen, f: f, data: data}, nil
}

// ProgramRow programs one row into the mapping and flushes it.
func (d *Mmap) ProgramRow(addr uint32, row []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := checkRow(d.base, uint32(len(d.data)), d.rowLen, addr, row); err != nil {
		return err
	}
	copy(d.data[addr-d.base:], row)
	if err := d.data.Flush(); err != nil {
		return fmt.Errorf("device: failed to flush row at 0x%08X: %w", addr, err)
	}
	return nil
}

// ReadAt copies directly out of the mapping. off is an absolute address.
func (d *Mmap) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if off < int64(d.base) || off > int64(d.base)+int64(len(d.data)) {
		return 0, fmt.Errorf("device: read at 0x%08X outside part window", off)
	}
	n := copy(p, d.data[off-int64(d.base):])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps and closes the backing file.
func (d *Mmap) Close() error {
	var err error
	if d.data != nil {
		if e := d.data.Unmap(); e != nil {
			err = e
		}
		d.data = nil
	}
	if d.f != nil {
		if e := d.f.Close(); e != nil {
			err = e
		}
		d.f = nil
	}
	return err
}
