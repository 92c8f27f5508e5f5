// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package serial

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/ffutop/flash-gateway/wire"
)

// mockPort plays a serial line: it records what the client writes and
// replays a canned response.
type mockPort struct {
	wrote bytes.Buffer
	resp  *bytes.Reader
}

func (m *mockPort) Read(p []byte) (int, error) {
	if m.resp == nil || m.resp.Len() == 0 {
		return 0, io.EOF
	}
	return m.resp.Read(p)
}

func (m *mockPort) Write(p []byte) (int, error) {
	return m.wrote.Write(p)
}

func (m *mockPort) Close() error { return nil }

func newMockClient(t *testing.T, response []byte) (*Client, *mockPort) {
	t.Helper()
	mock := &mockPort{resp: bytes.NewReader(response)}
	client := &Client{}
	client.Config.BaudRate = 115200
	client.Config.Timeout = time.Second
	client.port = mock
	return client, mock
}

func TestClientExchange(t *testing.T) {
	resp := wire.Status(wire.StatusSuccess)
	respRaw, err := resp.Encode()
	if err != nil {
		t.Fatal(err)
	}
	// Line noise before the response start marker must be skipped.
	line := append([]byte{0x00, 0xFF, 0x42}, respRaw...)

	client, mock := newMockClient(t, line)

	req := wire.Frame{Op: wire.OpErase, Data: wire.EraseRequest(0x1000, 0x200)}
	got, err := client.Exchange(context.Background(), req)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if got.Op != wire.StatusSuccess || len(got.Data) != 0 {
		t.Errorf("Exchange response = %+v", got)
	}

	// What went over the line is exactly the encoded request.
	wantRaw, _ := req.Encode()
	if !bytes.Equal(mock.wrote.Bytes(), wantRaw) {
		t.Errorf("wrote % X, want % X", mock.wrote.Bytes(), wantRaw)
	}

	sent, err := wire.Decode(mock.wrote.Bytes())
	if err != nil {
		t.Fatalf("request on the line does not decode: %v", err)
	}
	if sent.Op != wire.OpErase {
		t.Errorf("sent op 0x%02X, want OpErase", sent.Op)
	}
}

func TestClientExchangeCorruptResponse(t *testing.T) {
	resp := wire.Frame{Op: wire.StatusSuccess, Data: []byte{0x01, 0x02}}
	respRaw, err := resp.Encode()
	if err != nil {
		t.Fatal(err)
	}
	respRaw[len(respRaw)-2] ^= 0x01 // break the CRC

	client, _ := newMockClient(t, respRaw)
	if _, err := client.Exchange(context.Background(), wire.Frame{Op: wire.OpGetInfo}); err == nil {
		t.Error("Exchange accepted a corrupt response")
	}
}

func TestClientExchangeCancelled(t *testing.T) {
	client, _ := newMockClient(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Exchange(ctx, wire.Frame{Op: wire.OpGetInfo}); err == nil {
		t.Error("Exchange succeeded with a cancelled context")
	}
}

func TestCalculateDelay(t *testing.T) {
	tr := &frameSerialTransporter{}

	tr.BaudRate = 9600
	if got := tr.calculateDelay(10); got != 19265*time.Microsecond {
		t.Errorf("9600 baud delay = %v, want 19.265ms", got)
	}

	tr.BaudRate = 115200
	if got := tr.calculateDelay(10); got != 9250*time.Microsecond {
		t.Errorf("115200 baud delay = %v, want 9.25ms", got)
	}
}
