// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"
	"io"

	"github.com/ik5/audmix/audio"
	"github.com/jfreymuth/oggvorbis"
)

// oggReader is the subset of oggvorbis.Reader the source needs. Read
// reports interleaved values, always a multiple of Channels.
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
	SetPosition(int64) error
	Length() int64
}

type source struct {
	dec      oggReader
	in       io.Reader
	seekable bool
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return s.dec.Channels() }
func (s *source) BufSize() int    { return 4096 }
func (s *source) Close() error    { return audio.CloseReader(s.in) }

// ReadSamples decodes straight into dst.
func (s *source) ReadSamples(dst []float32) (int, error) {
	ch := s.dec.Channels()
	dst = dst[:len(dst)-len(dst)%ch]
	if len(dst) == 0 {
		return 0, nil
	}

	n, err := s.dec.Read(dst)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("decoding vorbis: %w", err)
	}
	if n > 0 {
		return n, nil
	}
	return 0, err
}

func (s *source) SeekFrame(frame int64) error {
	if !s.seekable {
		return audio.ErrNotSeekable
	}

	if err := s.dec.SetPosition(min(max(frame, 0), s.dec.Length())); err != nil {
		return fmt.Errorf("seeking vorbis: %w", err)
	}
	return nil
}

// Decoder decodes Ogg Vorbis streams.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening ogg stream: %w", err)
	}

	_, seekable := r.(io.Seeker)
	return &source{dec: dec, in: r, seekable: seekable}, nil
}
