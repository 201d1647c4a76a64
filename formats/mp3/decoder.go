// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/utils"
)

const (
	channels   = 2
	frameBytes = channels * 2 // go-mp3 always emits 16-bit stereo

	defaultBufFrames = 2048
)

// mp3Reader is the subset of gomp3.Decoder the source needs.
type mp3Reader interface {
	Read([]byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	SampleRate() int
	Length() int64
}

type source struct {
	dec mp3Reader
	in  io.Reader
	buf []byte
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return channels }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }
func (s *source) Close() error    { return audio.CloseReader(s.in) }

func (s *source) ReadSamples(dst []float32) (int, error) {
	want := (len(dst) / channels) * frameBytes
	if want == 0 {
		return 0, nil
	}
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	buf := s.buf[:want]

	n, err := io.ReadFull(s.dec, buf)
	n -= n % frameBytes
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if n == 0 {
			return 0, io.EOF
		}
	default:
		return 0, fmt.Errorf("decoding mp3: %w", err)
	}

	return utils.PCM16LEToFloat32(dst, buf[:n]), nil
}

// SeekFrame moves to frame, clamped to the decoded length. go-mp3 only
// knows the length of seekable inputs.
func (s *source) SeekFrame(frame int64) error {
	l := s.dec.Length()
	if l < 0 {
		return audio.ErrNotSeekable
	}
	off := min(max(frame, 0), l/frameBytes) * frameBytes

	if _, err := s.dec.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("seeking mp3: %w", err)
	}
	return nil
}

// Decoder decodes MPEG-1/2 layer III streams into stereo float32 samples.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("opening mp3 stream: %w", err)
	}

	return newSource(dec, r), nil
}

func newSource(dec mp3Reader, in io.Reader) *source {
	return &source{
		dec: dec,
		in:  in,
		buf: make([]byte, defaultBufFrames*frameBytes),
	}
}
