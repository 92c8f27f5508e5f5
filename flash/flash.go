// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package flash

import (
	"fmt"
	"io"
)

// EraseValue is the byte value of an erased cell. Programming a row filled
// with this value is equivalent to erasing it on auto-erase-on-write parts.
const EraseValue = 0xFF

// Region describes the physical flash range a driver is authorized to touch.
// It is resolved once from static configuration and is read-only afterwards.
type Region struct {
	// BaseAddr and MaxAddr bound the part's address window: [BaseAddr, MaxAddr).
	BaseAddr uint32
	MaxAddr  uint32

	// WriteBlockSize is the row size: the minimum programmable unit.
	WriteBlockSize uint32

	// EraseBlockSize is the minimum erasable unit. May differ from the row size.
	EraseBlockSize uint32
}

// Size returns the total region size in bytes.
func (r Region) Size() uint32 {
	return r.MaxAddr - r.BaseAddr
}

// Validate checks the geometry invariants.
func (r Region) Validate() error {
	if r.MaxAddr <= r.BaseAddr {
		return fmt.Errorf("flash: max_addr 0x%08X must be greater than base_addr 0x%08X", r.MaxAddr, r.BaseAddr)
	}
	if r.WriteBlockSize == 0 {
		return fmt.Errorf("flash: write_block_size must be greater than 0")
	}
	if r.EraseBlockSize == 0 {
		return fmt.Errorf("flash: erase_block_size must be greater than 0")
	}
	if r.WriteBlockSize%4 != 0 {
		return fmt.Errorf("flash: write_block_size %d must be a multiple of 4", r.WriteBlockSize)
	}
	if r.EraseBlockSize%r.WriteBlockSize != 0 {
		return fmt.Errorf("flash: erase_block_size %d must be a multiple of write_block_size %d", r.EraseBlockSize, r.WriteBlockSize)
	}
	if r.Size()%r.WriteBlockSize != 0 {
		return fmt.Errorf("flash: region size %d is not a multiple of write_block_size %d", r.Size(), r.WriteBlockSize)
	}
	if r.Size()%r.EraseBlockSize != 0 {
		return fmt.Errorf("flash: region size %d is not a multiple of erase_block_size %d", r.Size(), r.EraseBlockSize)
	}
	return nil
}

// Capabilities describes fixed properties of the part.
type Capabilities struct {
	// NoExplicitErase is set when the hardware auto-erases a row while
	// programming it, so callers may write over non-erased rows directly.
	NoExplicitErase bool
}

// Params is the static parameter block exposed to the storage layer.
type Params struct {
	WriteBlockSize uint32
	EraseValue     byte
	Caps           Capabilities
}

// PageInfo describes one run of uniformly sized pages.
type PageInfo struct {
	PagesCount uint32
	PagesSize  uint32
}

// Device is the vendor seam: a memory-mapped, row-programmable flash part.
//
// ProgramRow writes exactly one row at a row-aligned absolute address inside
// the part, auto-erasing it first. The source slice must hold one full row
// and be 4-byte aligned in memory. ReadAt serves the mapped address space;
// addresses are absolute, not region-relative.
type Device interface {
	ProgramRow(addr uint32, row []byte) error
	io.ReaderAt
}
