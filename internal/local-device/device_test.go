// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package localdevice

import (
	"bytes"
	"testing"

	"github.com/ffutop/flash-gateway/device"
	"github.com/ffutop/flash-gateway/flash"
	"github.com/ffutop/flash-gateway/wire"
)

func newLocal(t *testing.T) (*LocalDevice, *device.Mem) {
	t.Helper()
	mem, err := device.NewMem(0x1000, 0x1000, 256)
	if err != nil {
		t.Fatal(err)
	}
	drv, err := flash.NewDriver(flash.Region{
		BaseAddr:       0x1000,
		MaxAddr:        0x2000,
		WriteBlockSize: 256,
		EraseBlockSize: 256,
	}, mem)
	if err != nil {
		t.Fatal(err)
	}
	return New(drv), mem
}

func process(t *testing.T, d *LocalDevice, req wire.Frame) wire.Frame {
	t.Helper()
	resp, err := d.Process(req)
	if err != nil {
		t.Fatalf("Process(op=0x%02X): %v", req.Op, err)
	}
	return resp
}

func TestGetInfo(t *testing.T) {
	d, _ := newLocal(t)

	resp := process(t, d, wire.Frame{Op: wire.OpGetInfo})
	if resp.Op != wire.StatusSuccess {
		t.Fatalf("GetInfo status = 0x%02X", resp.Op)
	}
	info, err := wire.DecodeInfo(resp.Data)
	if err != nil {
		t.Fatal(err)
	}
	if info.BaseAddr != 0x1000 || info.Size != 0x1000 || info.WriteBlockSize != 256 {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.EraseValue != flash.EraseValue || !info.NoExplicitErase {
		t.Errorf("unexpected part parameters: %+v", info)
	}

	// GetInfo takes no payload.
	resp = process(t, d, wire.Frame{Op: wire.OpGetInfo, Data: []byte{0x00}})
	if resp.Op != wire.StatusBadRequest {
		t.Errorf("GetInfo with payload status = 0x%02X, want BadRequest", resp.Op)
	}
}

func TestWriteReadErase(t *testing.T) {
	d, _ := newLocal(t)

	data := bytes.Repeat([]byte{0xA5}, 256)
	resp := process(t, d, wire.Frame{Op: wire.OpWrite, Data: wire.WriteRequest(0, data)})
	if resp.Op != wire.StatusSuccess {
		t.Fatalf("Write status = 0x%02X", resp.Op)
	}

	resp = process(t, d, wire.Frame{Op: wire.OpRead, Data: wire.ReadRequest(0, 256)})
	if resp.Op != wire.StatusSuccess {
		t.Fatalf("Read status = 0x%02X", resp.Op)
	}
	if !bytes.Equal(resp.Data, data) {
		t.Error("read-back differs from written data")
	}

	resp = process(t, d, wire.Frame{Op: wire.OpErase, Data: wire.EraseRequest(0, 256)})
	if resp.Op != wire.StatusSuccess {
		t.Fatalf("Erase status = 0x%02X", resp.Op)
	}
	resp = process(t, d, wire.Frame{Op: wire.OpRead, Data: wire.ReadRequest(0, 256)})
	for i, b := range resp.Data {
		if b != flash.EraseValue {
			t.Fatalf("byte %d = 0x%02X after erase", i, b)
		}
	}
}

func TestStatusMapping(t *testing.T) {
	d, mem := newLocal(t)
	row := make([]byte, 256)

	tests := []struct {
		name string
		req  wire.Frame
		want byte
	}{
		{"UnknownOp", wire.Frame{Op: 0x7F}, wire.StatusBadRequest},
		{"ShortReadPayload", wire.Frame{Op: wire.OpRead, Data: []byte{1, 2}}, wire.StatusBadRequest},
		{"ShortWritePayload", wire.Frame{Op: wire.OpWrite, Data: []byte{1, 2, 3}}, wire.StatusBadRequest},
		{"ShortErasePayload", wire.Frame{Op: wire.OpErase, Data: []byte{1}}, wire.StatusBadRequest},
		{"OversizedRead", wire.Frame{Op: wire.OpRead, Data: wire.ReadRequest(0, wire.MaxDataSize+1)}, wire.StatusBadRequest},
		{"UnalignedWrite", wire.Frame{Op: wire.OpWrite, Data: wire.WriteRequest(100, row)}, wire.StatusInvalidArgument},
		{"OutOfRangeWrite", wire.Frame{Op: wire.OpWrite, Data: wire.WriteRequest(0x1000, row)}, wire.StatusInvalidArgument},
		{"OutOfRangeRead", wire.Frame{Op: wire.OpRead, Data: wire.ReadRequest(0x1000, 1)}, wire.StatusInvalidArgument},
		{"UnalignedErase", wire.Frame{Op: wire.OpErase, Data: wire.EraseRequest(100, 256)}, wire.StatusInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := process(t, d, tt.req); resp.Op != tt.want {
				t.Errorf("status = 0x%02X, want 0x%02X", resp.Op, tt.want)
			}
		})
	}

	// A part fault surfaces as an I/O error status.
	mem.FailAfter(0)
	resp := process(t, d, wire.Frame{Op: wire.OpWrite, Data: wire.WriteRequest(0, row)})
	if resp.Op != wire.StatusIOError {
		t.Errorf("faulted write status = 0x%02X, want IOError", resp.Op)
	}
}
