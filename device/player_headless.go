// SPDX-License-Identifier: EPL-2.0

//go:build headless

package device

import (
	"context"
	"sync"
)

// Player renders on a wall-clock timer and discards the output, for builds
// without audio hardware.
type Player struct {
	m      *Manual
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func NewPlayer(cfg Config, r Renderer) (*Player, error) {
	m, err := NewManual(cfg, r, nil)
	if err != nil {
		return nil, err
	}
	return &Player{m: m}, nil
}

func (p *Player) Config() Config { return p.m.Config() }

func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		err := p.m.Run(ctx)
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
	}()
}

func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Player) Close() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
