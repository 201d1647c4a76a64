// SPDX-License-Identifier: EPL-2.0

package device

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// Manual drives a Renderer without audio hardware. Tick renders exactly one
// period; Run renders one period per period duration and optionally writes
// the raw float32 stream to w.
type Manual struct {
	cfg   Config
	r     Renderer
	w     io.Writer
	buf   []float32
	ticks atomic.Uint64
}

// NewManual returns a manual device; w may be nil.
func NewManual(cfg Config, r Renderer, w io.Writer) (*Manual, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manual{
		cfg: cfg,
		r:   r,
		w:   w,
		buf: make([]float32, cfg.PeriodFrames*cfg.Channels),
	}, nil
}

func (m *Manual) Config() Config { return m.cfg }

// Ticks returns the number of rendered periods.
func (m *Manual) Ticks() uint64 { return m.ticks.Load() }

// Tick renders one period. The returned slice is reused by the next call.
func (m *Manual) Tick() []float32 {
	m.r.Render(m.buf)
	m.ticks.Add(1)
	return m.buf
}

// Run renders periods in real time until ctx is done or writing fails.
func (m *Manual) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Period())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			out := m.Tick()
			if m.w == nil {
				continue
			}
			if _, err := m.w.Write(floatBytes(out)); err != nil {
				return fmt.Errorf("%w: write: %w", ErrDevice, err)
			}
		}
	}
}
