// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package wire

// Frame markers, bootloader style.
const (
	// StartOfFrame is the frame start marker.
	StartOfFrame = 0x01

	// EndOfFrame is the frame end marker.
	EndOfFrame = 0x17

	// OverheadSize is SOP(1) + OP(1) + LEN(2) + CRC(2) + EOP(1).
	OverheadSize = 7

	// MaxDataSize caps the payload of a single frame. Transfers larger than
	// this are chunked by the client.
	MaxDataSize = 8192

	// MaxFrameSize is the largest encoded frame.
	MaxFrameSize = MaxDataSize + OverheadSize
)

// Request operation codes.
const (
	// OpGetInfo queries region geometry and part parameters. Empty payload.
	OpGetInfo = 0x30

	// OpRead reads bytes: offset(4,LE) + length(2,LE).
	OpRead = 0x31

	// OpWrite programs bytes: offset(4,LE) + data.
	OpWrite = 0x32

	// OpErase erases a range: offset(4,LE) + size(4,LE).
	OpErase = 0x33
)

// Response status codes, carried in the OP slot of a response frame.
const (
	// StatusSuccess indicates the request was executed.
	StatusSuccess = 0x00

	// StatusInvalidArgument indicates a bounds or alignment violation.
	StatusInvalidArgument = 0x04

	// StatusBadRequest indicates a malformed or unrecognized request frame.
	StatusBadRequest = 0x08

	// StatusIOError indicates the row-program primitive failed.
	StatusIOError = 0x0F
)

// InfoSize is the payload size of a GetInfo response:
// base(4) + size(4) + write_block(4) + erase_block(4) + erase_value(1) + caps(1).
const InfoSize = 18

// ReadRequestSize is the payload size of a Read request.
const ReadRequestSize = 6

// EraseRequestSize is the payload size of an Erase request.
const EraseRequestSize = 8
