// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"context"
	"fmt"
	"math"

	"github.com/ffutop/flash-gateway/flash"
	"github.com/ffutop/flash-gateway/wire"
)

// Remote is the client-side view of a served flash region. It fetches the
// geometry on Connect, chunks transfers to frame-sized pieces, and decodes
// status codes back into the driver's error taxonomy.
//
// Write and erase requests are validated locally against the cached geometry
// before anything is sent, so an invalid request never programs a partial
// prefix just because it was chunked across frames.
type Remote struct {
	ds   Downstream
	info wire.Info
}

// NewRemote creates a remote view over a downstream connection.
func NewRemote(ds Downstream) *Remote {
	return &Remote{ds: ds}
}

// Connect connects the downstream and caches the region geometry.
func (r *Remote) Connect(ctx context.Context) error {
	if err := r.ds.Connect(ctx); err != nil {
		return err
	}
	resp, err := r.ds.Exchange(ctx, wire.Frame{Op: wire.OpGetInfo})
	if err != nil {
		return fmt.Errorf("get info: %w", err)
	}
	if err := statusErr(resp.Op); err != nil {
		return fmt.Errorf("get info: %w", err)
	}
	info, err := wire.DecodeInfo(resp.Data)
	if err != nil {
		return err
	}
	r.info = info
	return nil
}

// Close closes the downstream connection.
func (r *Remote) Close() error {
	return r.ds.Close()
}

// Size returns the total region size in bytes.
func (r *Remote) Size() int64 {
	return int64(r.info.Size)
}

// Parameters returns the served part's parameter block.
func (r *Remote) Parameters() flash.Params {
	return flash.Params{
		WriteBlockSize: r.info.WriteBlockSize,
		EraseValue:     r.info.EraseValue,
		Caps:           flash.Capabilities{NoExplicitErase: r.info.NoExplicitErase},
	}
}

// Region returns the served region geometry.
func (r *Remote) Region() flash.Region {
	return flash.Region{
		BaseAddr:       r.info.BaseAddr,
		MaxAddr:        r.info.BaseAddr + r.info.Size,
		WriteBlockSize: r.info.WriteBlockSize,
		EraseBlockSize: r.info.EraseBlockSize,
	}
}

// Read reads len(p) bytes at the region-relative offset.
func (r *Remote) Read(ctx context.Context, off int64, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if off < 0 || off > int64(r.info.Size) {
		return fmt.Errorf("read offset %d outside region: %w", off, flash.ErrInvalidArgument)
	}
	if uint64(r.info.Size)-uint64(off) < uint64(len(p)) {
		return fmt.Errorf("read of %d bytes at offset %d overruns region: %w", len(p), off, flash.ErrInvalidArgument)
	}

	for done := 0; done < len(p); {
		n := len(p) - done
		if n > wire.MaxDataSize {
			n = wire.MaxDataSize
		}
		req := wire.Frame{Op: wire.OpRead, Data: wire.ReadRequest(uint32(off)+uint32(done), uint16(n))}
		resp, err := r.ds.Exchange(ctx, req)
		if err != nil {
			return err
		}
		if err := statusErr(resp.Op); err != nil {
			return fmt.Errorf("read at offset %d: %w", off+int64(done), err)
		}
		if len(resp.Data) != n {
			return fmt.Errorf("read at offset %d: got %d bytes, want %d", off+int64(done), len(resp.Data), n)
		}
		copy(p[done:], resp.Data)
		done += n
	}
	return nil
}

// Write programs len(p) bytes at the region-relative offset.
func (r *Remote) Write(ctx context.Context, off int64, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	wb := int64(r.info.WriteBlockSize)
	if wb == 0 {
		return fmt.Errorf("transport: remote not connected")
	}
	if off < 0 || off > int64(r.info.Size) {
		return fmt.Errorf("write offset %d outside region: %w", off, flash.ErrInvalidArgument)
	}
	if uint64(r.info.Size)-uint64(off) < uint64(len(p)) {
		return fmt.Errorf("write of %d bytes at offset %d overruns region: %w", len(p), off, flash.ErrInvalidArgument)
	}
	if off%wb != 0 || int64(len(p))%wb != 0 {
		return fmt.Errorf("write offset %d / length %d not aligned to write block %d: %w",
			off, len(p), wb, flash.ErrInvalidArgument)
	}

	// Chunks stay multiples of the write block so every frame is a valid
	// write on its own.
	max := (int64(wire.MaxDataSize) - 4) / wb * wb
	if max == 0 {
		return fmt.Errorf("transport: write block %d does not fit a frame", wb)
	}

	for done := int64(0); done < int64(len(p)); {
		n := int64(len(p)) - done
		if n > max {
			n = max
		}
		req := wire.Frame{Op: wire.OpWrite, Data: wire.WriteRequest(uint32(off+done), p[done:done+n])}
		resp, err := r.ds.Exchange(ctx, req)
		if err != nil {
			return err
		}
		if err := statusErr(resp.Op); err != nil {
			return fmt.Errorf("write at offset %d: %w", off+done, err)
		}
		done += n
	}
	return nil
}

// Erase erases size bytes at the region-relative offset.
func (r *Remote) Erase(ctx context.Context, off, size int64) error {
	if size == 0 {
		return nil
	}
	if off < 0 || size < 0 || off > math.MaxUint32 || size > math.MaxUint32 {
		return fmt.Errorf("erase offset %d size %d: %w", off, size, flash.ErrInvalidArgument)
	}
	req := wire.Frame{Op: wire.OpErase, Data: wire.EraseRequest(uint32(off), uint32(size))}
	resp, err := r.ds.Exchange(ctx, req)
	if err != nil {
		return err
	}
	if err := statusErr(resp.Op); err != nil {
		return fmt.Errorf("erase at offset %d: %w", off, err)
	}
	return nil
}

// statusErr maps a response status code back to the driver error taxonomy.
func statusErr(code byte) error {
	switch code {
	case wire.StatusSuccess:
		return nil
	case wire.StatusInvalidArgument:
		return flash.ErrInvalidArgument
	case wire.StatusIOError:
		return flash.ErrIO
	case wire.StatusBadRequest:
		return fmt.Errorf("transport: request rejected as malformed")
	default:
		return fmt.Errorf("transport: unknown status code 0x%02X", code)
	}
}
