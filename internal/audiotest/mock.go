// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides deterministic sources for tests.
package audiotest

import (
	"errors"
	"io"
	"math"
	"sync/atomic"
)

// ErrInjected is returned by sources built with NewFailingSource.
var ErrInjected = errors.New("audiotest: injected read failure")

// MockSource is a test helper that generates audio data for testing.
// It satisfies audio.Source and audio.Seeker without importing the audio
// package.
type MockSource struct {
	sampleRate  int
	channels    int
	totalFrames int
	position    int
	waveform    func(frame int, channel int) float32

	failAt int // frame at which reads fail; -1 disables
	closed atomic.Int32
}

// NewMockSource creates a mock source of totalFrames frames whose samples are
// produced by waveform.
func NewMockSource(sampleRate, channels, totalFrames int, waveform func(frame int, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate:  sampleRate,
		channels:    channels,
		totalFrames: totalFrames,
		waveform:    waveform,
		failAt:      -1,
	}
}

// NewSilentSource creates a mock source that generates silence (all zeros).
func NewSilentSource(sampleRate, channels, totalFrames int) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(int, int) float32 {
		return 0.0
	})
}

// NewSineSource creates a mock source that generates a sine wave.
func NewSineSource(sampleRate, channels, totalFrames int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(frame int, _ int) float32 {
		t := float64(frame) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

// NewConstantSource creates a mock source with constant value.
func NewConstantSource(sampleRate, channels, totalFrames int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(int, int) float32 {
		return value
	})
}

// NewRampSource creates a source whose frame i carries RampValue(i) on every
// channel: a ramp of 256 steps that repeats.
func NewRampSource(sampleRate, channels, totalFrames int) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(frame int, _ int) float32 {
		return RampValue(frame)
	})
}

// RampValue is the sample NewRampSource emits for frame.
func RampValue(frame int) float32 {
	return float32(frame%256) / 256
}

// NewFailingSource creates a constant source whose reads fail with
// ErrInjected once failAt frames have been produced.
func NewFailingSource(sampleRate, channels, failAt int, value float32) *MockSource {
	m := NewConstantSource(sampleRate, channels, math.MaxInt32, value)
	m.failAt = failAt
	return m
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }

func (m *MockSource) Close() error {
	m.closed.Add(1)
	return nil
}

// Closed reports how many times Close was called. Safe for concurrent use.
func (m *MockSource) Closed() int { return int(m.closed.Load()) }

// Reset rewinds the source to its first frame.
func (m *MockSource) Reset() {
	m.position = 0
}

// SeekFrame moves the read position. Positions past the end are kept and
// the next read reports io.EOF.
func (m *MockSource) SeekFrame(frame int64) error {
	if frame < 0 {
		frame = 0
	}
	m.position = int(min(frame, int64(m.totalFrames)))
	return nil
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.failAt >= 0 && m.position >= m.failAt {
		return 0, ErrInjected
	}
	if m.position >= m.totalFrames {
		return 0, io.EOF
	}

	frames := min(len(dst)/m.channels, m.totalFrames-m.position)
	if m.failAt >= 0 {
		frames = min(frames, m.failAt-m.position)
	}

	for frame := range frames {
		idx := m.position + frame
		for ch := range m.channels {
			dst[frame*m.channels+ch] = m.waveform(idx, ch)
		}
	}
	m.position += frames

	if m.position >= m.totalFrames {
		return frames * m.channels, io.EOF
	}
	return frames * m.channels, nil
}
