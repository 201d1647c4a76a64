// SPDX-License-Identifier: EPL-2.0

//go:build !headless

package device

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Player plays a Renderer through the system audio device.
//
// oto pulls bytes from Read on its own goroutine; each pull renders exactly
// the requested number of frames into a buffer allocated up front.
type Player struct {
	cfg    Config
	r      Renderer
	ctx    *oto.Context
	player *oto.Player
	buf    []float32

	mu      sync.Mutex
	started bool
}

// NewPlayer opens the default output device. Only one Player may exist per
// process.
func NewPlayer(cfg Config, r Renderer) (*Player, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   cfg.Period(),
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDevice, err)
	}
	<-ready

	p := &Player{
		cfg: cfg,
		r:   r,
		ctx: ctx,
		buf: make([]float32, 4*cfg.PeriodFrames*cfg.Channels),
	}
	p.player = ctx.NewPlayer(p)

	return p, nil
}

func (p *Player) Config() Config { return p.cfg }

// Read implements io.Reader for oto.
func (p *Player) Read(b []byte) (int, error) {
	frameBytes := 4 * p.cfg.Channels
	frames := len(b) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	samples := frames * p.cfg.Channels
	// Should not happen after the first pulls settle.
	if len(p.buf) < samples {
		p.buf = make([]float32, samples)
	}
	out := p.buf[:samples]

	p.r.Render(out)

	return copy(b, floatBytes(out)), nil
}

// Start begins playback.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.player.Play()
		p.started = true
	}
}

// Err reports a device failure, if any.
func (p *Player) Err() error {
	if err := p.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDevice, err)
	}
	if err := p.player.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDevice, err)
	}
	return nil
}

// Close stops playback and releases the player.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = false
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrDevice, err)
	}
	return nil
}
