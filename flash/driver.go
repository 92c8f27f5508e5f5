// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package flash

import (
	"fmt"
	"unsafe"
)

// Driver is the bounded block device adapter. It validates offsets, lengths
// and alignment against its Region and drives the part one row at a time.
//
// Driver does no locking of its own: the part programs one row at a time and
// the layer owning the device is responsible for serializing access.
type Driver struct {
	cfg Region
	dev Device
}

// NewDriver builds a driver for the given region over the given part.
func NewDriver(cfg Region, dev Device) (*Driver, error) {
	if dev == nil {
		return nil, fmt.Errorf("flash: device cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Driver{cfg: cfg, dev: dev}, nil
}

// Region returns the geometry the driver was built with.
func (d *Driver) Region() Region {
	return d.cfg
}

// Size returns the total region size in bytes.
func (d *Driver) Size() int64 {
	return int64(d.cfg.MaxAddr - d.cfg.BaseAddr)
}

// Parameters returns the static parameter block for the part.
func (d *Driver) Parameters() Params {
	return Params{
		WriteBlockSize: d.cfg.WriteBlockSize,
		EraseValue:     EraseValue,
		Caps:           Capabilities{NoExplicitErase: true},
	}
}

// PageLayout returns the page layout table: a single run of row-sized pages.
func (d *Driver) PageLayout() []PageInfo {
	return []PageInfo{{
		PagesCount: d.cfg.Size() / d.cfg.WriteBlockSize,
		PagesSize:  d.cfg.WriteBlockSize,
	}}
}

// Read copies len(p) bytes starting at the region-relative offset into p.
// Reads have no alignment requirement.
func (d *Driver) Read(off int64, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if off < 0 || int64(d.cfg.MaxAddr-d.cfg.BaseAddr) < off {
		return fmt.Errorf("read offset %d outside region: %w", off, ErrInvalidArgument)
	}
	addr := d.cfg.BaseAddr + uint32(off)
	if uint64(d.cfg.MaxAddr-addr) < uint64(len(p)) {
		return fmt.Errorf("read of %d bytes at offset %d overruns region: %w", len(p), off, ErrInvalidArgument)
	}
	if _, err := d.dev.ReadAt(p, int64(addr)); err != nil {
		return fmt.Errorf("read at 0x%08X: %w: %w", addr, ErrIO, err)
	}
	return nil
}

// Write programs len(p) bytes at the region-relative offset. Offset and
// length must be multiples of the write block size. On failure some prefix
// of the range may already be programmed; nothing is rolled back.
func (d *Driver) Write(off int64, p []byte) error {
	rowLen := int64(d.cfg.WriteBlockSize)

	if len(p) == 0 {
		return nil
	}
	if off < 0 {
		return fmt.Errorf("write offset %d: %w", off, ErrInvalidArgument)
	}
	if int64(d.cfg.MaxAddr-d.cfg.BaseAddr) < off {
		return fmt.Errorf("write offset %d outside region: %w", off, ErrInvalidArgument)
	}
	addr := d.cfg.BaseAddr + uint32(off)
	// Second, independent bound check. Subtracting before comparing keeps
	// this overflow-safe near the top of the address space; do not turn it
	// into a checked addition.
	if uint64(d.cfg.MaxAddr-addr) < uint64(len(p)) {
		return fmt.Errorf("write of %d bytes at offset %d overruns region: %w", len(p), off, ErrInvalidArgument)
	}
	if off%rowLen != 0 || int64(len(p))%rowLen != 0 {
		return fmt.Errorf("write offset %d / length %d not aligned to write block %d: %w",
			off, len(p), rowLen, ErrInvalidArgument)
	}

	src := p
	// rowLen is always a multiple of 4, so the source alignment is invariant
	// across rows: check once before the loop, not per iteration.
	if uintptr(unsafe.Pointer(&src[0]))&0x3 != 0 {
		// Source not 4-byte aligned; stage each row through an aligned buffer.
		row := make([]byte, rowLen)
		for len(src) > 0 {
			copy(row, src[:rowLen])
			if err := d.dev.ProgramRow(addr, row); err != nil {
				return fmt.Errorf("program row at 0x%08X: %w: %w", addr, ErrIO, err)
			}
			addr += d.cfg.WriteBlockSize
			src = src[rowLen:]
		}
	} else {
		for len(src) > 0 {
			if err := d.dev.ProgramRow(addr, src[:rowLen:rowLen]); err != nil {
				return fmt.Errorf("program row at 0x%08X: %w: %w", addr, ErrIO, err)
			}
			addr += d.cfg.WriteBlockSize
			src = src[rowLen:]
		}
	}
	return nil
}

// Erase resets size bytes at the region-relative offset to EraseValue.
// Offset and size must be multiples of the erase block size.
//
// The part auto-erases a row while programming it, so erase is emulated by
// programming the range with EraseValue. Callers never need an explicit
// erase before Write; the Params capability says so.
func (d *Driver) Erase(off, size int64) error {
	if size == 0 {
		return nil
	}
	if off < 0 || size < 0 {
		return fmt.Errorf("erase offset %d size %d: %w", off, size, ErrInvalidArgument)
	}
	if int64(d.cfg.MaxAddr-d.cfg.BaseAddr) < off {
		return fmt.Errorf("erase offset %d outside region: %w", off, ErrInvalidArgument)
	}
	addr := d.cfg.BaseAddr + uint32(off)
	if uint64(d.cfg.MaxAddr-addr) < uint64(size) {
		return fmt.Errorf("erase of %d bytes at offset %d overruns region: %w", size, off, ErrInvalidArgument)
	}
	blockLen := int64(d.cfg.EraseBlockSize)
	if off%blockLen != 0 || size%blockLen != 0 {
		return fmt.Errorf("erase offset %d / size %d not aligned to erase block %d: %w",
			off, size, blockLen, ErrInvalidArgument)
	}

	// The erase block is a whole number of rows, so the range is walked at
	// row granularity with a staged all-EraseValue row.
	rowLen := int64(d.cfg.WriteBlockSize)
	row := make([]byte, rowLen)
	for i := range row {
		row[i] = EraseValue
	}
	for remaining := size; remaining > 0; remaining -= rowLen {
		if err := d.dev.ProgramRow(addr, row); err != nil {
			return fmt.Errorf("erase row at 0x%08X: %w: %w", addr, ErrIO, err)
		}
		addr += d.cfg.WriteBlockSize
	}
	return nil
}
