// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"context"

	"github.com/ffutop/flash-gateway/wire"
)

// RequestHandler executes one row protocol request and produces the
// response frame. The transport is agnostic about the operation: framing
// happens here, execution happens behind the handler.
type RequestHandler func(ctx context.Context, req wire.Frame) (wire.Frame, error)

// Upstream is a listener serving a flash region to remote tooling.
// It acts as a server on its medium.
type Upstream interface {
	// Start starts the server and blocks. It should be called in a goroutine.
	Start(ctx context.Context, handler RequestHandler) error
	Close() error
}

// Downstream is a connection to a served flash region.
// It acts as a client on its medium.
type Downstream interface {
	// Exchange sends one request frame and returns the response frame.
	Exchange(ctx context.Context, req wire.Frame) (wire.Frame, error)
	Connect(ctx context.Context) error
	Close() error
}
