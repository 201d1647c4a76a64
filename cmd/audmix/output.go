// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"

	"github.com/ik5/audmix/device"
	"github.com/ik5/audmix/internal/config"
)

// output is the device side of the engine: something that calls Render
// once per period until stopped.
type output interface {
	Run(ctx context.Context) error
	Err() error
	Close() error
}

func openOutput(cfg config.DeviceConfig, r device.Renderer) (output, error) {
	if cfg.Backend == config.BackendNull {
		m, err := device.NewManual(cfg.Config, r, nil)
		if err != nil {
			return nil, err
		}
		return &nullOutput{m: m}, nil
	}

	p, err := device.NewPlayer(cfg.Config, r)
	if err != nil {
		return nil, err
	}
	return &playerOutput{p: p}, nil
}

type nullOutput struct{ m *device.Manual }

func (o *nullOutput) Run(ctx context.Context) error { return o.m.Run(ctx) }
func (o *nullOutput) Err() error                    { return nil }
func (o *nullOutput) Close() error                  { return nil }

type playerOutput struct{ p *device.Player }

func (o *playerOutput) Run(ctx context.Context) error {
	o.p.Start()
	<-ctx.Done()
	return nil
}

func (o *playerOutput) Err() error   { return o.p.Err() }
func (o *playerOutput) Close() error { return o.p.Close() }
