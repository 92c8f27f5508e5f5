// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ffutop/flash-gateway/wire"
)

const (
	tcpTimeout = 10 * time.Second
)

// Client implements Downstream (row protocol over TCP).
type Client struct {
	Address string
	Timeout time.Duration
}

// NewClient allocates and initializes a TCP Client.
func NewClient(address string) *Client {
	return &Client{
		Address: address,
		Timeout: tcpTimeout,
	}
}

// Exchange sends one request frame and reads the response frame.
func (mb *Client) Exchange(ctx context.Context, req wire.Frame) (wire.Frame, error) {
	raw, err := req.Encode()
	if err != nil {
		return wire.Frame{}, fmt.Errorf("failed to encode request: %w", err)
	}

	conn, err := net.DialTimeout("tcp", mb.Address, mb.Timeout)
	if err != nil {
		return wire.Frame{}, fmt.Errorf("flash: failed to connect to %s: %w", mb.Address, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(mb.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err = conn.SetDeadline(deadline); err != nil {
		return wire.Frame{}, err
	}

	if _, err := conn.Write(raw); err != nil {
		return wire.Frame{}, err
	}

	resp, err := wire.ReadFrame(conn)
	if err != nil {
		return wire.Frame{}, fmt.Errorf("failed to read response frame: %w", err)
	}
	return resp, nil
}

// Connect implements Connector interface.
func (mb *Client) Connect(ctx context.Context) error {
	// Check if address is valid
	_, err := net.ResolveTCPAddr("tcp", mb.Address)
	return err
}

// Close implements Connector interface.
func (mb *Client) Close() error {
	return nil
}
