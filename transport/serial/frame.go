// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ffutop/flash-gateway/wire"
)

var ErrRequestTimedOut = errors.New("flash: request timed out")

// readFrame scans the line for a start marker and reads one complete raw
// frame. Bytes before the marker are line noise and are discarded.
func readFrame(port io.Reader, deadline time.Time) ([]byte, error) {
	one := make([]byte, 1)
	for {
		if time.Now().After(deadline) {
			return nil, ErrRequestTimedOut
		}
		n, err := port.Read(one)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		if one[0] == wire.StartOfFrame {
			break
		}
	}

	// OP + LEN
	header := make([]byte, 3)
	if err := readFull(port, header, deadline); err != nil {
		return nil, err
	}
	dataLen := int(binary.LittleEndian.Uint16(header[1:3]))
	if dataLen > wire.MaxDataSize {
		return nil, fmt.Errorf("flash: payload length %d exceeds maximum %d", dataLen, wire.MaxDataSize)
	}

	// payload + CRC + EOP
	rest := make([]byte, dataLen+3)
	if err := readFull(port, rest, deadline); err != nil {
		return nil, err
	}

	raw := make([]byte, 0, wire.OverheadSize+dataLen)
	raw = append(raw, wire.StartOfFrame)
	raw = append(raw, header...)
	raw = append(raw, rest...)
	return raw, nil
}

func readFull(r io.Reader, buf []byte, deadline time.Time) error {
	for read := 0; read < len(buf); {
		if time.Now().After(deadline) {
			return ErrRequestTimedOut
		}
		n, err := r.Read(buf[read:])
		if err != nil {
			return err
		}
		read += n
	}
	return nil
}
