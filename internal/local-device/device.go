// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package localdevice

import (
	"errors"

	"github.com/ffutop/flash-gateway/flash"
	"github.com/ffutop/flash-gateway/wire"
)

// LocalDevice executes row protocol requests against a local flash driver.
// Every request goes through the driver, so remote callers get the same
// bounds and alignment enforcement as in-process ones.
type LocalDevice struct {
	drv *flash.Driver
}

// New creates a LocalDevice over a driver.
func New(drv *flash.Driver) *LocalDevice {
	return &LocalDevice{drv: drv}
}

// Process executes one request frame and returns the response frame.
// Malformed requests yield a StatusBadRequest response, never an error;
// the error return is reserved for transport-level failures.
func (d *LocalDevice) Process(req wire.Frame) (wire.Frame, error) {
	switch req.Op {
	case wire.OpGetInfo:
		return d.handleGetInfo(req)
	case wire.OpRead:
		return d.handleRead(req)
	case wire.OpWrite:
		return d.handleWrite(req)
	case wire.OpErase:
		return d.handleErase(req)
	default:
		return wire.Status(wire.StatusBadRequest), nil
	}
}

func (d *LocalDevice) handleGetInfo(req wire.Frame) (wire.Frame, error) {
	if len(req.Data) != 0 {
		return wire.Status(wire.StatusBadRequest), nil
	}
	cfg := d.drv.Region()
	params := d.drv.Parameters()
	info := wire.Info{
		BaseAddr:        cfg.BaseAddr,
		Size:            cfg.Size(),
		WriteBlockSize:  cfg.WriteBlockSize,
		EraseBlockSize:  cfg.EraseBlockSize,
		EraseValue:      params.EraseValue,
		NoExplicitErase: params.Caps.NoExplicitErase,
	}
	return wire.Frame{Op: wire.StatusSuccess, Data: info.Encode()}, nil
}

func (d *LocalDevice) handleRead(req wire.Frame) (wire.Frame, error) {
	off, length, err := wire.DecodeReadRequest(req.Data)
	if err != nil {
		return wire.Status(wire.StatusBadRequest), nil
	}
	// The response must fit a single frame.
	if int(length) > wire.MaxDataSize {
		return wire.Status(wire.StatusBadRequest), nil
	}
	buf := make([]byte, length)
	if err := d.drv.Read(int64(off), buf); err != nil {
		return wire.Status(statusOf(err)), nil
	}
	return wire.Frame{Op: wire.StatusSuccess, Data: buf}, nil
}

func (d *LocalDevice) handleWrite(req wire.Frame) (wire.Frame, error) {
	off, data, err := wire.DecodeWriteRequest(req.Data)
	if err != nil {
		return wire.Status(wire.StatusBadRequest), nil
	}
	if err := d.drv.Write(int64(off), data); err != nil {
		return wire.Status(statusOf(err)), nil
	}
	return wire.Status(wire.StatusSuccess), nil
}

func (d *LocalDevice) handleErase(req wire.Frame) (wire.Frame, error) {
	off, size, err := wire.DecodeEraseRequest(req.Data)
	if err != nil {
		return wire.Status(wire.StatusBadRequest), nil
	}
	if err := d.drv.Erase(int64(off), int64(size)); err != nil {
		return wire.Status(statusOf(err)), nil
	}
	return wire.Status(wire.StatusSuccess), nil
}

// statusOf maps driver errors to wire status codes.
func statusOf(err error) byte {
	switch {
	case errors.Is(err, flash.ErrInvalidArgument):
		return wire.StatusInvalidArgument
	case errors.Is(err, flash.ErrIO):
		return wire.StatusIOError
	default:
		return wire.StatusIOError
	}
}
