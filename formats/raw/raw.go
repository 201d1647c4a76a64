// SPDX-License-Identifier: EPL-2.0

package raw

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/utils"
)

const (
	DefaultSampleRate = 48000
	DefaultChannels   = 2

	defaultBufFrames = 2048
)

var ErrInvalidFormat = errors.New("raw: invalid format")

// Buffer is a seekable Source over interleaved float32 samples held in
// memory. It does not copy samples.
type Buffer struct {
	rate     int
	channels int
	samples  []float32
	pos      int
}

// NewSource returns a Buffer over samples. A trailing partial frame is
// ignored.
func NewSource(rate, channels int, samples []float32) (*Buffer, error) {
	if rate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("%w: %d Hz x %d", ErrInvalidFormat, rate, channels)
	}
	return &Buffer{
		rate:     rate,
		channels: channels,
		samples:  samples[:len(samples)-len(samples)%channels],
	}, nil
}

func (b *Buffer) SampleRate() int { return b.rate }
func (b *Buffer) Channels() int   { return b.channels }
func (b *Buffer) BufSize() int    { return defaultBufFrames * b.channels }
func (b *Buffer) Close() error    { return nil }

// Frames is the total length in frames.
func (b *Buffer) Frames() int64 { return int64(len(b.samples) / b.channels) }

func (b *Buffer) ReadSamples(dst []float32) (int, error) {
	if b.pos >= len(b.samples) {
		return 0, io.EOF
	}
	n := copy(dst[:len(dst)-len(dst)%b.channels], b.samples[b.pos:])
	b.pos += n
	return n, nil
}

func (b *Buffer) SeekFrame(frame int64) error {
	b.pos = int(min(max(frame, 0), b.Frames())) * b.channels
	return nil
}

type stream struct {
	r        io.Reader
	rs       io.ReadSeeker
	start    int64
	rate     int
	channels int
	buf      []byte
}

func (s *stream) SampleRate() int { return s.rate }
func (s *stream) Channels() int   { return s.channels }
func (s *stream) BufSize() int    { return cap(s.buf) / 2 }
func (s *stream) Close() error    { return audio.CloseReader(s.r) }

func (s *stream) ReadSamples(dst []float32) (int, error) {
	want := 2 * (len(dst) - len(dst)%s.channels)
	if want == 0 {
		return 0, nil
	}
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}

	n, err := io.ReadFull(s.r, s.buf[:want])
	n -= n % (2 * s.channels)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if n == 0 {
			return 0, io.EOF
		}
	default:
		return 0, fmt.Errorf("reading raw pcm: %w", err)
	}
	return utils.PCM16LEToFloat32(dst, s.buf[:n]), nil
}

// SeekFrame does not know the stream length; seeking past the end leaves
// the next read at EOF.
func (s *stream) SeekFrame(frame int64) error {
	if s.rs == nil {
		return audio.ErrNotSeekable
	}
	size := int64(2 * s.channels)
	off := s.start + min(max(frame, 0), (math.MaxInt64-s.start)/size)*size
	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("seeking raw pcm: %w", err)
	}
	return nil
}

// Decoder reads headerless interleaved signed 16-bit little-endian PCM.
// Zero fields fall back to DefaultSampleRate and DefaultChannels.
type Decoder struct {
	SampleRate int
	Channels   int
}

func (d Decoder) Decode(r io.Reader) (audio.Source, error) {
	rate := cmp.Or(d.SampleRate, DefaultSampleRate)
	channels := cmp.Or(d.Channels, DefaultChannels)
	if rate < 0 || channels < 0 {
		return nil, fmt.Errorf("%w: %d Hz x %d", ErrInvalidFormat, rate, channels)
	}

	s := &stream{
		r:        r,
		rate:     rate,
		channels: channels,
		buf:      make([]byte, defaultBufFrames*2*channels),
	}
	if rs, ok := r.(io.ReadSeeker); ok {
		if off, err := rs.Seek(0, io.SeekCurrent); err == nil {
			s.rs = rs
			s.start = off
		}
	}
	return s, nil
}
