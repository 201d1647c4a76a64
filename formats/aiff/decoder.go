// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/ik5/audmix/audio"
)

const defaultBufSamples = 4096

// aiffReader is the subset of aiff.Decoder the source needs.
type aiffReader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// opener rewinds the input and returns a decoder positioned at the first
// sample.
type opener func() (aiffReader, error)

type source struct {
	dec  aiffReader
	open opener
	in   io.Reader

	sampleRate int
	channels   int
	scale      float32

	ints *goaudio.IntBuffer
	done bool
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) BufSize() int    { return cap(s.ints.Data) }
func (s *source) Close() error    { return audio.CloseReader(s.in) }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	want := len(dst) - len(dst)%s.channels
	if want == 0 {
		return 0, nil
	}

	n, err := s.fill(want)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("decoding aiff: %w", err)
	}
	n -= n % s.channels
	if n < want {
		// go-audio reports a short buffer at the end of the SSND chunk
		// without an error.
		s.done = true
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i, v := range s.ints.Data[:n] {
		dst[i] = float32(v) * s.scale
	}
	return n, nil
}

func (s *source) fill(n int) (int, error) {
	if cap(s.ints.Data) < n {
		s.ints.Data = make([]int, n)
	}
	s.ints.Data = s.ints.Data[:n]
	return s.dec.PCMBuffer(s.ints)
}

// SeekFrame reopens the stream and decodes forward to frame; AIFF has no
// seek table.
func (s *source) SeekFrame(frame int64) error {
	dec, err := s.open()
	if err != nil {
		return fmt.Errorf("seeking aiff: %w", err)
	}
	s.dec = dec
	s.done = false

	skip := min(max(frame, 0), math.MaxInt64/int64(s.channels)) * int64(s.channels)
	chunk := int64(cap(s.ints.Data) - cap(s.ints.Data)%s.channels)
	for skip > 0 {
		n, err := s.fill(int(min(skip, chunk)))
		skip -= int64(n)
		if err == io.EOF || n == 0 {
			s.done = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("seeking aiff: %w", err)
		}
	}
	return nil
}

// Decoder decodes uncompressed AIFF files through github.com/go-audio/aiff.
// Inputs that cannot seek are read into memory, since the library needs an
// io.ReadSeeker to walk the chunk list.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, err := audio.Seekable(r)
	if err != nil {
		return nil, err
	}

	dec, err := openDecoder(rs)
	if err != nil {
		return nil, err
	}

	open := func() (aiffReader, error) {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		return openDecoder(rs)
	}

	f := dec.Format()
	return newSource(dec, open, r, f.SampleRate, f.NumChannels, int(dec.BitDepth))
}

func openDecoder(rs io.ReadSeeker) (*aiff.Decoder, error) {
	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()
	if f := dec.Format(); f == nil || f.NumChannels <= 0 || f.SampleRate <= 0 {
		return nil, ErrUnsupportedAiffLayout
	}
	return dec, nil
}

func newSource(dec aiffReader, open opener, in io.Reader, rate, channels, bits int) (*source, error) {
	switch bits {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bits)
	}

	return &source{
		dec:        dec,
		open:       open,
		in:         in,
		sampleRate: rate,
		channels:   channels,
		scale:      1 / float32(int64(1)<<(bits-1)),
		ints: &goaudio.IntBuffer{
			Data:           make([]int, defaultBufSamples-defaultBufSamples%channels),
			Format:         dec.Format(),
			SourceBitDepth: bits,
		},
	}, nil
}
