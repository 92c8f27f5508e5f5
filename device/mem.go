// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package device

import (
	"fmt"
	"io"
	"sync"

	"github.com/ffutop/flash-gateway/flash"
)

// Mem simulates a flash part in memory. Rows auto-erase on program, the
// window starts erased, and programming can be made to fail on demand, so
// it stands in for hardware in tests and in gateways that serve a scratch
// region.
type Mem struct {
	base   uint32
	rowLen uint32

	mu        sync.Mutex
	buf       []byte
	programs  int
	failAfter int
}

// NewMem creates a simulated part of the given size mapped at base.
func NewMem(base, size, rowLen uint32) (*Mem, error) {
	if err := checkGeometry(size, rowLen); err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = flash.EraseValue
	}
	return &Mem{
		base:      base,
		rowLen:    rowLen,
		buf:       buf,
		failAfter: -1,
	}, nil
}

// ProgramRow programs one row. The row is implicitly erased first, which for
// a byte buffer means a plain overwrite.
func (m *Mem) ProgramRow(addr uint32, row []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkRow(m.base, uint32(len(m.buf)), m.rowLen, addr, row); err != nil {
		return err
	}
	if m.failAfter >= 0 && m.programs >= m.failAfter {
		return ErrProgramFault
	}
	copy(m.buf[addr-m.base:], row)
	m.programs++
	return nil
}

// ReadAt serves the mapped address space. off is an absolute address.
func (m *Mem) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if off < int64(m.base) || off > int64(m.base)+int64(len(m.buf)) {
		return 0, fmt.Errorf("device: read at 0x%08X outside part window", off)
	}
	n := copy(p, m.buf[off-int64(m.base):])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close is a no-op; the simulated part has nothing to release.
func (m *Mem) Close() error {
	return nil
}

// FailAfter arms fault injection: the next n row programs succeed, every one
// after that returns ErrProgramFault. A negative n disarms it.
func (m *Mem) FailAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.programs = 0
}

// Programs returns the number of successful row programs so far.
func (m *Mem) Programs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.programs
}

// Snapshot returns a copy of the part contents.
func (m *Mem) Snapshot() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.buf))
	copy(out, m.buf)
	return out
}
