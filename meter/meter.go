// SPDX-License-Identifier: EPL-2.0

// Package meter measures the level of the rendered mix.
//
// Update runs on the mixer goroutine and only stores atomics; Read may be
// called from any goroutine.
package meter

import (
	"math"
	"sync/atomic"
)

// holdSeconds is how long the long peak stays put before falling.
const holdSeconds = 1.0

// Levels is a snapshot per channel.
type Levels struct {
	Peak     []float32
	LongPeak []float32
	RMS      []float32
}

// Meter tracks peak, held peak and RMS for each channel of a fixed layout.
type Meter struct {
	channels   int
	sampleRate float64

	peak     []atomic.Uint32
	longPeak []atomic.Uint32
	rms      []atomic.Uint32

	// Mixer-owned scratch.
	sinceLong []float64
	maxes     []float32
	squares   []float64
}

func New(channels, sampleRate int) *Meter {
	return &Meter{
		channels:   channels,
		sampleRate: float64(sampleRate),
		peak:       make([]atomic.Uint32, channels),
		longPeak:   make([]atomic.Uint32, channels),
		rms:        make([]atomic.Uint32, channels),
		sinceLong:  make([]float64, channels),
		maxes:      make([]float32, channels),
		squares:    make([]float64, channels),
	}
}

func (m *Meter) Channels() int { return m.channels }

// Update measures one block of interleaved samples. Never allocates.
func (m *Meter) Update(samples []float32) {
	frames := len(samples) / m.channels
	if frames == 0 {
		return
	}

	clear(m.maxes)
	clear(m.squares)

	for f := range frames {
		frame := samples[f*m.channels : (f+1)*m.channels]
		for c, s := range frame {
			a := float32(math.Abs(float64(s)))
			if a > m.maxes[c] {
				m.maxes[c] = a
			}
			m.squares[c] += float64(s) * float64(s)
		}
	}

	elapsed := float64(frames) / m.sampleRate

	for c := range m.channels {
		peak := m.maxes[c]
		store(&m.peak[c], peak)
		store(&m.rms[c], float32(math.Sqrt(m.squares[c]/float64(frames))))

		long := load(&m.longPeak[c])
		if peak >= long {
			store(&m.longPeak[c], peak)
			m.sinceLong[c] = 0
			continue
		}

		m.sinceLong[c] += elapsed
		if m.sinceLong[c] > holdSeconds {
			store(&m.longPeak[c], max(0, long-float32(elapsed)))
		}
	}
}

// Read returns the latest levels.
func (m *Meter) Read() Levels {
	l := Levels{
		Peak:     make([]float32, m.channels),
		LongPeak: make([]float32, m.channels),
		RMS:      make([]float32, m.channels),
	}
	for c := range m.channels {
		l.Peak[c] = load(&m.peak[c])
		l.LongPeak[c] = load(&m.longPeak[c])
		l.RMS[c] = load(&m.rms[c])
	}
	return l
}

func store(a *atomic.Uint32, v float32) { a.Store(math.Float32bits(v)) }
func load(a *atomic.Uint32) float32     { return math.Float32frombits(a.Load()) }
