// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ffutop/flash-gateway/device"
	"github.com/ffutop/flash-gateway/flash"
	localdevice "github.com/ffutop/flash-gateway/internal/local-device"
	"github.com/ffutop/flash-gateway/transport"
	"github.com/ffutop/flash-gateway/wire"
)

// startTestServer brings up a TCP server over an in-memory part and waits
// until the port accepts connections.
func startTestServer(t *testing.T) (addr string, mem *device.Mem) {
	t.Helper()

	// Grab a free port first; the server listens on it right after.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr = l.Addr().String()
	l.Close()

	mem, err = device.NewMem(0x1000, 0x1000, 256)
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
	local := localdevice.New(drv)

	srv := NewServer(addr)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go srv.Start(ctx, func(ctx context.Context, req wire.Frame) (wire.Frame, error) {
		return local.Process(req)
	})

	// Wait for the listener to come up.
	for i := 0; i < 50; i++ {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return addr, mem
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server on %s did not come up", addr)
	return "", nil
}

func TestServerServesRemote(t *testing.T) {
	addr, _ := startTestServer(t)
	ctx := context.Background()

	r := transport.NewRemote(NewClient(addr))
	if err := r.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer r.Close()

	if r.Size() != 0x1000 {
		t.Errorf("Size() = %#x, want 0x1000", r.Size())
	}

	data := bytes.Repeat([]byte{0xC3}, 512)
	if err := r.Write(ctx, 0, data); err != nil {
		t.Fatalf("Write over TCP: %v", err)
	}

	got := make([]byte, 512)
	if err := r.Read(ctx, 0, got); err != nil {
		t.Fatalf("Read over TCP: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("TCP read-back differs from written data")
	}

	if err := r.Write(ctx, 100, data); !errors.Is(err, flash.ErrInvalidArgument) {
		t.Errorf("unaligned write over TCP = %v, want ErrInvalidArgument", err)
	}

	if err := r.Erase(ctx, 0, 512); err != nil {
		t.Fatalf("Erase over TCP: %v", err)
	}
	if err := r.Read(ctx, 0, got); err != nil {
		t.Fatal(err)
	}
	for i, b := range got {
		if b != flash.EraseValue {
			t.Fatalf("byte %d = 0x%02X after erase over TCP", i, b)
		}
	}
}

func TestServerRejectsCorruptFrame(t *testing.T) {
	addr, _ := startTestServer(t)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	req := wire.Frame{Op: wire.OpGetInfo}
	raw, err := req.Encode()
	if err != nil {
		t.Fatal(err)
	}
	// Flip a CRC bit; the frame is still well-formed on the stream.
	raw[len(raw)-2] ^= 0x01
	if _, err := conn.Write(raw); err != nil {
		t.Fatal(err)
	}

	resp, err := wire.ReadFrame(conn)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if resp.Op != wire.StatusBadRequest {
		t.Errorf("corrupt frame status = 0x%02X, want BadRequest", resp.Op)
	}

	// The connection stays usable after the rejection.
	good, _ := req.Encode()
	if _, err := conn.Write(good); err != nil {
		t.Fatal(err)
	}
	resp, err = wire.ReadFrame(conn)
	if err != nil {
		t.Fatalf("ReadFrame after rejection: %v", err)
	}
	if resp.Op != wire.StatusSuccess {
		t.Errorf("follow-up request status = 0x%02X, want Success", resp.Op)
	}
}

func TestServerMultipleRequestsPerConnection(t *testing.T) {
	addr, _ := startTestServer(t)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	for i := 0; i < 3; i++ {
		req := wire.Frame{Op: wire.OpRead, Data: wire.ReadRequest(0, 16)}
		raw, err := req.Encode()
		if err != nil {
			t.Fatal(err)
		}
		if _, err := conn.Write(raw); err != nil {
			t.Fatal(err)
		}
		resp, err := wire.ReadFrame(conn)
		if err != nil {
			t.Fatalf("request #%d: %v", i, err)
		}
		if resp.Op != wire.StatusSuccess || len(resp.Data) != 16 {
			t.Errorf("request #%d: status 0x%02X, %d bytes", i, resp.Op, len(resp.Data))
		}
	}
}
