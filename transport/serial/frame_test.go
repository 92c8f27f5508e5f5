// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serial

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ffutop/flash-gateway/wire"
)

func TestReadFrameSkipsLineNoise(t *testing.T) {
	f := wire.Frame{Op: wire.OpRead, Data: wire.ReadRequest(0x40, 8)}
	encoded, err := f.Encode()
	if err != nil {
		t.Fatal(err)
	}
	line := append([]byte{0xFF, 0x00, 0x7E, 0x7E}, encoded...)

	raw, err := readFrame(bytes.NewReader(line), time.Now().Add(time.Second))
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if !bytes.Equal(raw, encoded) {
		t.Errorf("readFrame = % X, want % X", raw, encoded)
	}

	got, err := wire.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.Op != f.Op || !bytes.Equal(got.Data, f.Data) {
		t.Error("decoded frame does not match the original")
	}
}

func TestReadFrameTimeout(t *testing.T) {
	// A line that never delivers a byte.
	idle := readerFunc(func(p []byte) (int, error) { return 0, nil })

	_, err := readFrame(idle, time.Now().Add(-time.Millisecond))
	if !errors.Is(err, ErrRequestTimedOut) {
		t.Errorf("readFrame on an idle line = %v, want ErrRequestTimedOut", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	f := wire.Frame{Op: wire.OpWrite, Data: wire.WriteRequest(0, make([]byte, 16))}
	encoded, err := f.Encode()
	if err != nil {
		t.Fatal(err)
	}

	// The line goes quiet mid-frame.
	_, err = readFrame(bytes.NewReader(encoded[:len(encoded)/2]), time.Now().Add(time.Second))
	if err == nil {
		t.Error("readFrame accepted a truncated frame")
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	raw := []byte{wire.StartOfFrame, wire.OpRead, 0xFF, 0xFF}
	_, err := readFrame(bytes.NewReader(raw), time.Now().Add(time.Second))
	if err == nil {
		t.Error("readFrame accepted an oversized declared length")
	}
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
