// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/ffutop/flash-gateway/flash"
)

// Device is a closable flash part a driver can be built on.
type Device interface {
	flash.Device
	io.Closer
}

// ErrProgramFault is returned by a part whose programming circuitry failed.
// The Mem simulator raises it on demand for fault-injection tests.
var ErrProgramFault = errors.New("device: program fault")

// checkRow enforces the row-program contract shared by every backing:
// one full row, row-aligned, inside the part window, from a 4-byte aligned
// source buffer. base and size describe the part window, rowLen the row.
func checkRow(base, size, rowLen, addr uint32, row []byte) error {
	if uint32(len(row)) != rowLen {
		return fmt.Errorf("device: row buffer is %d bytes, part rows are %d", len(row), rowLen)
	}
	if addr < base || addr-base >= size {
		return fmt.Errorf("device: row address 0x%08X outside part window", addr)
	}
	off := addr - base
	if off%rowLen != 0 {
		return fmt.Errorf("device: row address 0x%08X not row-aligned", addr)
	}
	if size-off < rowLen {
		return fmt.Errorf("device: row at 0x%08X overruns part window", addr)
	}
	if uintptr(unsafe.Pointer(&row[0]))&0x3 != 0 {
		return fmt.Errorf("device: source buffer not 4-byte aligned")
	}
	return nil
}

// checkGeometry validates the constructor arguments common to all backings.
func checkGeometry(size, rowLen uint32) error {
	if size == 0 {
		return fmt.Errorf("device: part size must be greater than 0")
	}
	if rowLen == 0 || rowLen%4 != 0 {
		return fmt.Errorf("device: row size %d must be a positive multiple of 4", rowLen)
	}
	if size%rowLen != 0 {
		return fmt.Errorf("device: part size %d is not a multiple of row size %d", size, rowLen)
	}
	return nil
}
