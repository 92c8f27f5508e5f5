// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ffutop/flash-gateway/wire/crc"
)

var ErrCRCMismatch = errors.New("wire: crc mismatch")

// Frame is one row protocol packet. Op carries the operation code in a
// request and the status code in a response.
//
// Encoded layout:
//
//	[SOP][OP][LEN_L][LEN_H][DATA...][CRC_L][CRC_H][EOP]
//
// with the CRC computed over OP..DATA.
type Frame struct {
	Op   byte
	Data []byte
}

// Encode serializes the frame.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Data) > MaxDataSize {
		return nil, fmt.Errorf("wire: payload length %d exceeds maximum %d", len(f.Data), MaxDataSize)
	}

	raw := make([]byte, 0, OverheadSize+len(f.Data))
	raw = append(raw, StartOfFrame)
	raw = append(raw, f.Op)
	raw = binary.LittleEndian.AppendUint16(raw, uint16(len(f.Data)))
	raw = append(raw, f.Data...)

	var c crc.CRC
	c.Reset().PushBytes(raw[1:])
	raw = binary.LittleEndian.AppendUint16(raw, c.Value())
	raw = append(raw, EndOfFrame)
	return raw, nil
}

// Decode parses a complete encoded frame.
func Decode(raw []byte) (Frame, error) {
	if len(raw) < OverheadSize {
		return Frame{}, fmt.Errorf("wire: frame too short: %d bytes", len(raw))
	}
	if raw[0] != StartOfFrame {
		return Frame{}, fmt.Errorf("wire: bad start marker 0x%02X", raw[0])
	}
	if raw[len(raw)-1] != EndOfFrame {
		return Frame{}, fmt.Errorf("wire: bad end marker 0x%02X", raw[len(raw)-1])
	}
	dataLen := int(binary.LittleEndian.Uint16(raw[2:4]))
	if len(raw) != OverheadSize+dataLen {
		return Frame{}, fmt.Errorf("wire: frame length %d does not match payload length %d", len(raw), dataLen)
	}

	var c crc.CRC
	c.Reset().PushBytes(raw[1 : 4+dataLen])
	if c.Value() != binary.LittleEndian.Uint16(raw[4+dataLen:]) {
		return Frame{}, ErrCRCMismatch
	}

	data := make([]byte, dataLen)
	copy(data, raw[4:4+dataLen])
	return Frame{Op: raw[1], Data: data}, nil
}

// ReadFrame reads one complete frame from the stream.
func ReadFrame(r io.Reader) (Frame, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}
	if header[0] != StartOfFrame {
		return Frame{}, fmt.Errorf("wire: bad start marker 0x%02X", header[0])
	}
	dataLen := int(binary.LittleEndian.Uint16(header[2:4]))
	if dataLen > MaxDataSize {
		return Frame{}, fmt.Errorf("wire: payload length %d exceeds maximum %d", dataLen, MaxDataSize)
	}

	raw := make([]byte, OverheadSize+dataLen)
	copy(raw, header)
	if _, err := io.ReadFull(r, raw[4:]); err != nil {
		return Frame{}, err
	}
	return Decode(raw)
}

// Status builds an empty response frame carrying a status code.
func Status(code byte) Frame {
	return Frame{Op: code}
}

// Info is the geometry/parameter block exchanged by GetInfo.
type Info struct {
	BaseAddr        uint32
	Size            uint32
	WriteBlockSize  uint32
	EraseBlockSize  uint32
	EraseValue      byte
	NoExplicitErase bool
}

// Encode serializes the info payload.
func (i Info) Encode() []byte {
	data := make([]byte, 0, InfoSize)
	data = binary.LittleEndian.AppendUint32(data, i.BaseAddr)
	data = binary.LittleEndian.AppendUint32(data, i.Size)
	data = binary.LittleEndian.AppendUint32(data, i.WriteBlockSize)
	data = binary.LittleEndian.AppendUint32(data, i.EraseBlockSize)
	data = append(data, i.EraseValue)
	var caps byte
	if i.NoExplicitErase {
		caps |= 0x01
	}
	data = append(data, caps)
	return data
}

// DecodeInfo parses a GetInfo response payload.
func DecodeInfo(data []byte) (Info, error) {
	if len(data) != InfoSize {
		return Info{}, fmt.Errorf("wire: info payload is %d bytes, want %d", len(data), InfoSize)
	}
	return Info{
		BaseAddr:        binary.LittleEndian.Uint32(data[0:4]),
		Size:            binary.LittleEndian.Uint32(data[4:8]),
		WriteBlockSize:  binary.LittleEndian.Uint32(data[8:12]),
		EraseBlockSize:  binary.LittleEndian.Uint32(data[12:16]),
		EraseValue:      data[16],
		NoExplicitErase: data[17]&0x01 != 0,
	}, nil
}

// ReadRequest builds an OpRead payload.
func ReadRequest(off uint32, length uint16) []byte {
	data := make([]byte, 0, ReadRequestSize)
	data = binary.LittleEndian.AppendUint32(data, off)
	data = binary.LittleEndian.AppendUint16(data, length)
	return data
}

// DecodeReadRequest parses an OpRead payload.
func DecodeReadRequest(data []byte) (off uint32, length uint16, err error) {
	if len(data) != ReadRequestSize {
		return 0, 0, fmt.Errorf("wire: read request is %d bytes, want %d", len(data), ReadRequestSize)
	}
	return binary.LittleEndian.Uint32(data[0:4]), binary.LittleEndian.Uint16(data[4:6]), nil
}

// WriteRequest builds an OpWrite payload.
func WriteRequest(off uint32, p []byte) []byte {
	data := make([]byte, 0, 4+len(p))
	data = binary.LittleEndian.AppendUint32(data, off)
	return append(data, p...)
}

// DecodeWriteRequest parses an OpWrite payload.
func DecodeWriteRequest(data []byte) (off uint32, p []byte, err error) {
	if len(data) < 4 {
		return 0, nil, fmt.Errorf("wire: write request is %d bytes, want at least 4", len(data))
	}
	return binary.LittleEndian.Uint32(data[0:4]), data[4:], nil
}

// EraseRequest builds an OpErase payload.
func EraseRequest(off, size uint32) []byte {
	data := make([]byte, 0, EraseRequestSize)
	data = binary.LittleEndian.AppendUint32(data, off)
	data = binary.LittleEndian.AppendUint32(data, size)
	return data
}

// DecodeEraseRequest parses an OpErase payload.
func DecodeEraseRequest(data []byte) (off, size uint32, err error) {
	if len(data) != EraseRequestSize {
		return 0, 0, fmt.Errorf("wire: erase request is %d bytes, want %d", len(data), EraseRequestSize)
	}
	return binary.LittleEndian.Uint32(data[0:4]), binary.LittleEndian.Uint32(data[4:8]), nil
}
