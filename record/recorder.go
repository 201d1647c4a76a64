// SPDX-License-Identifier: EPL-2.0

// Package record captures the final mix into a 16-bit PCM WAV file.
//
// The mixer pushes each rendered period into a single-producer tap without
// blocking; Run drains the tap on its own goroutine and encodes it with
// go-audio/wav. Frames that do not fit in the tap are counted and lost.
package record

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/audmix/ring"
	"github.com/ik5/audmix/utils"
)

var ErrInvalidFormat = errors.New("invalid recorder format")

// Recorder is a WAV sink for the mixer output.
type Recorder struct {
	sampleRate int
	channels   int
	interval   time.Duration
	log        *slog.Logger

	tap     *ring.SampleBuffer
	dropped atomic.Uint64
	written atomic.Uint64
}

// Option configures a Recorder.
type Option func(*Recorder)

func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

// WithInterval sets how often Run drains the tap. Defaults to 10ms.
func WithInterval(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.interval = d
		}
	}
}

// New returns a recorder for interleaved float32 at sampleRate with the
// given channel count, buffering up to capacityFrames frames.
func New(sampleRate, channels, capacityFrames int, opts ...Option) (*Recorder, error) {
	if sampleRate <= 0 || channels <= 0 || capacityFrames <= 0 {
		return nil, fmt.Errorf("%w: rate=%d channels=%d capacity=%d",
			ErrInvalidFormat, sampleRate, channels, capacityFrames)
	}

	r := &Recorder{
		sampleRate: sampleRate,
		channels:   channels,
		interval:   10 * time.Millisecond,
		log:        slog.Default(),
		tap:        ring.New(capacityFrames, channels),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

func (r *Recorder) SampleRate() int { return r.sampleRate }
func (r *Recorder) Channels() int   { return r.channels }

// Push copies whole frames of samples into the tap. Called by a single
// producer; never blocks or allocates.
func (r *Recorder) Push(samples []float32) {
	frames := len(samples) / r.channels
	if n := r.tap.Write(samples); n < frames {
		r.dropped.Add(uint64(frames - n))
	}
}

// Dropped returns the number of frames lost because the tap was full.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Written returns the number of frames handed to the encoder.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Run encodes tapped frames into ws until ctx is done, then flushes what is
// left and finalizes the WAV header.
func (r *Recorder) Run(ctx context.Context, ws io.WriteSeeker) error {
	enc := wav.NewEncoder(ws, r.sampleRate, 16, r.channels, 1)

	frames := r.tap.Capacity()
	floats := make([]float32, frames*r.channels)
	ib := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: r.channels,
			SampleRate:  r.sampleRate,
		},
		SourceBitDepth: 16,
		Data:           make([]int, len(floats)),
	}

	drain := func() error {
		for {
			n := r.tap.Read(floats)
			if n == 0 {
				return nil
			}
			samples := n * r.channels
			utils.Float32ToInts(ib.Data[:samples], floats[:samples])
			ib.Data = ib.Data[:samples]
			err := enc.Write(ib)
			ib.Data = ib.Data[:cap(ib.Data)]
			if err != nil {
				return fmt.Errorf("record: encode: %w", err)
			}
			r.written.Add(uint64(n))
		}
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			err := drain()
			if cerr := enc.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("record: finalize: %w", cerr))
			}
			r.log.Debug("recording closed",
				slog.Uint64("frames", r.written.Load()),
				slog.Uint64("dropped", r.dropped.Load()))
			return err
		case <-ticker.C:
			if err := drain(); err != nil {
				_ = enc.Close()
				return err
			}
		}
	}
}
