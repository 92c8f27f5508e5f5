// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package crc

const (
	initialValue = 0xFFFF
	polynomial   = 0xA001
)

// CRC computes the 16-bit cyclic redundancy check used to frame row
// protocol packets (CRC-16/MODBUS: reflected 0x8005, init 0xFFFF).
type CRC struct {
	value uint16
}

// Reset initializes the CRC to the starting value.
func (crc *CRC) Reset() *CRC {
	crc.value = initialValue
	return crc
}

// PushBytes folds bs into the running CRC.
func (crc *CRC) PushBytes(bs []byte) *CRC {
	for _, b := range bs {
		crc.value ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc.value&1 != 0 {
				crc.value = (crc.value >> 1) ^ polynomial
			} else {
				crc.value >>= 1
			}
		}
	}
	return crc
}

// Value returns the current CRC value.
func (crc *CRC) Value() uint16 {
	return crc.value
}
