// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/voice"
)

// chain converts a native Source to the internal format.
type chain struct {
	src audio.Source
	out audio.Source
	rs  *audio.Resampler
}

func (p *Pipeline) newChain(src audio.Source) *chain {
	c := &chain{src: src}
	c.out = audio.Convert(src, p.cfg.SampleRate, p.cfg.Channels,
		audio.WithQuality(p.cfg.Quality),
		audio.WithChunkFrames(p.cfg.ChunkFrames),
	)
	c.rs, _ = c.out.(*audio.Resampler)

	return c
}

// seek moves the chain so its next output frame is frame, given at the
// internal rate. With a resampler in the chain the source is positioned one
// frame early to refill the interpolation window.
func (c *chain) seek(frame int64) error {
	s, ok := c.src.(audio.Seeker)
	if !ok {
		return audio.ErrNotSeekable
	}

	native := frame
	if c.rs != nil {
		native = c.rs.SeekTo(uint64(max(frame, 0)))
	}
	return s.SeekFrame(native)
}

func validSource(src audio.Source) error {
	switch {
	case src == nil:
		return errors.New("nil source")
	case src.SampleRate() <= 0:
		return fmt.Errorf("%w: %d", audio.ErrInvalidRate, src.SampleRate())
	case src.Channels() <= 0:
		return fmt.Errorf("%w: %d", audio.ErrInvalidChannels, src.Channels())
	}
	return nil
}

// runTask fills v's buffer for task generation gen until the source ends,
// fails, or the task is superseded.
func (p *Pipeline) runTask(ctx context.Context, v *voice.Voice, gen uint64) {
	defer v.Exit(gen)

	src := v.Source()
	if err := validSource(src); err != nil {
		v.Fail(gen, fmt.Errorf("%w: voice %d: %w", audio.ErrDecode, v.ID(), err))
		return
	}

	var (
		c       = p.newChain(src)
		buf     = v.Buffer()
		ch      = p.cfg.Channels
		chunk   = make([]float32, p.cfg.ChunkFrames*ch)
		data    []float32
		eof     bool
		playing bool
		format  = fmt.Sprintf("%T", src)
		timer   = time.NewTimer(p.cfg.PollInterval)
		log     = p.log.With(slog.Uint64("voice", uint64(v.ID())), slog.Uint64("gen", gen))
	)
	defer timer.Stop()

	wait := func() bool {
		timer.Reset(p.cfg.PollInterval)
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		}
	}

	for {
		if ctx.Err() != nil || v.Cancelled() || v.TaskGen() != gen {
			return
		}

		if reqGen, frame := v.SeekRequest(); reqGen != ackGen(v) {
			if err := c.seek(frame); err != nil {
				if !errors.Is(err, audio.ErrNotSeekable) {
					err = fmt.Errorf("%w: %w", audio.ErrDecode, err)
				}
				v.Fail(gen, fmt.Errorf("seek voice %d to %d: %w", v.ID(), frame, err))
				return
			}
			data, eof = nil, false
			v.AckSeek(reqGen, buf.WriteCursor())
			log.Debug("seeked", slog.Int64("frame", frame))
			continue
		}

		if len(data) > 0 {
			n := buf.Write(data)
			data = data[n*ch:]
			if len(data) > 0 {
				if !wait() {
					return
				}
				continue
			}
			if !playing {
				v.Publish(gen, voice.Playing)
				playing = true
			}
		}

		if eof {
			v.Publish(gen, voice.Draining)
			log.Debug("source exhausted")
			return
		}

		start := time.Now()
		n, err := c.out.ReadSamples(chunk)
		p.metrics.RecordDecode(ctx, format, time.Since(start))
		data = chunk[:n-n%ch]

		switch {
		case errors.Is(err, io.EOF):
			eof = true
		case err != nil:
			v.Fail(gen, fmt.Errorf("%w: voice %d: %w", audio.ErrDecode, v.ID(), err))
			log.Debug("decode failed", slog.Any("error", err))
			return
		case n == 0:
			if !wait() {
				return
			}
		}
	}
}

func ackGen(v *voice.Voice) uint64 {
	gen, _ := v.SeekAck()
	return gen
}
