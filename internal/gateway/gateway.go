// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package gateway

import (
	"context"
	"log/slog"
	"sync"

	localdevice "github.com/ffutop/flash-gateway/internal/local-device"
	"github.com/ffutop/flash-gateway/transport"
	"github.com/ffutop/flash-gateway/wire"
)

// Gateway serves one flash region: it bridges the upstream listeners to the
// local driver behind them. The driver assumes one in-flight operation at a
// time against the part; the device backings serialize, so requests from
// several upstreams do not interleave mid-row.
type Gateway struct {
	Name      string
	Upstreams []transport.Upstream
	Local     *localdevice.LocalDevice
}

// NewGateway creates a new Gateway instance
func NewGateway(name string, upstreams []transport.Upstream, local *localdevice.LocalDevice) *Gateway {
	return &Gateway{
		Name:      name,
		Upstreams: upstreams,
		Local:     local,
	}
}

// Start starts all upstream servers and blocks until the context is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	for i, us := range g.Upstreams {
		wg.Add(1)
		go func(ups transport.Upstream, idx int) {
			defer wg.Done()
			slog.Info("Starting upstream", "gateway", g.Name, "index", idx)
			if err := ups.Start(ctx, g.handleRequest); err != nil {
				slog.Error("Upstream stopped with error", "gateway", g.Name, "index", idx, "err", err)
			}
		}(us, i)
	}

	<-ctx.Done()

	// Graceful shutdown
	for _, us := range g.Upstreams {
		us.Close()
	}
	wg.Wait()
	return nil
}

func (g *Gateway) handleRequest(ctx context.Context, req wire.Frame) (wire.Frame, error) {
	return g.Local.Process(req)
}
