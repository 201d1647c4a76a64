// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/utils"
)

const (
	formatPCM        = 1
	formatExtensible = 0xfffe

	defaultBufFrames = 2048
)

type source struct {
	r          io.Reader
	rs         io.ReadSeeker // nil when the input cannot seek
	data       io.LimitedReader
	dataOffset int64
	dataSize   int64

	sampleRate int
	channels   int
	blockAlign int

	buf []byte
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }
func (s *source) Close() error    { return audio.CloseReader(s.r) }

func (s *source) ReadSamples(dst []float32) (int, error) {
	frames := len(dst) / s.channels
	if frames == 0 {
		return 0, nil
	}

	want := frames * s.blockAlign
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
	}
	buf := s.buf[:want]

	n, err := io.ReadFull(&s.data, buf)
	n -= n % s.blockAlign
	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if n == 0 {
			return 0, io.EOF
		}
	default:
		return 0, fmt.Errorf("reading wav data: %w", err)
	}

	return utils.PCM16LEToFloat32(dst, buf[:n]), nil
}

// SeekFrame positions the stream at frame, clamped to the end of the data
// chunk. It requires the underlying reader to be an io.ReadSeeker.
func (s *source) SeekFrame(frame int64) error {
	if s.rs == nil {
		return audio.ErrNotSeekable
	}

	off := s.dataSize
	if frame = max(frame, 0); frame < s.dataSize/int64(s.blockAlign) {
		off = frame * int64(s.blockAlign)
	}
	if _, err := s.rs.Seek(s.dataOffset+off, io.SeekStart); err != nil {
		return fmt.Errorf("seeking wav data: %w", err)
	}
	s.data.N = s.dataSize - off

	return nil
}

// Decoder reads RIFF/WAVE files holding 16-bit PCM. Chunks other than fmt and
// data are skipped.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWavFile, err)
	}
	if !bytes.Equal(riff[:4], []byte("RIFF")) || !bytes.Equal(riff[8:12], []byte("WAVE")) {
		return nil, ErrNotWavFile
	}

	s := &source{r: r}
	haveFmt := false

	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if haveFmt {
				return nil, ErrMissingDataChunk
			}
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedWavLayout, err)
		}
		id := string(hdr[:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, ErrUnsupportedWavLayout
			}
			body := make([]byte, size+size&1)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrUnsupportedWavLayout, err)
			}
			if err := s.parseFmt(body); err != nil {
				return nil, err
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, ErrUnsupportedWavLayout
			}
			s.dataSize = size - size%int64(s.blockAlign)
			s.data = io.LimitedReader{R: r, N: s.dataSize}
			if rs, ok := r.(io.ReadSeeker); ok {
				off, err := rs.Seek(0, io.SeekCurrent)
				if err == nil {
					s.rs = rs
					s.dataOffset = off
				}
			}
			s.buf = make([]byte, defaultBufFrames*s.blockAlign)
			return s, nil

		default:
			if _, err := io.CopyN(io.Discard, r, size+size&1); err != nil {
				return nil, fmt.Errorf("%w: skipping %q: %w", ErrUnsupportedWavLayout, id, err)
			}
		}
	}
}

func (s *source) parseFmt(b []byte) error {
	format := binary.LittleEndian.Uint16(b[0:2])
	channels := int(binary.LittleEndian.Uint16(b[2:4]))
	rate := int(binary.LittleEndian.Uint32(b[4:8]))
	bits := int(binary.LittleEndian.Uint16(b[14:16]))

	if format == formatExtensible && len(b) >= 26 {
		// The first two bytes of the sub-format GUID carry the real tag.
		format = binary.LittleEndian.Uint16(b[24:26])
	}
	if format != formatPCM || bits != 16 {
		return ErrOnlyPCM16bitSupported
	}
	if channels <= 0 || rate <= 0 {
		return ErrUnsupportedWavLayout
	}

	s.channels = channels
	s.sampleRate = rate
	s.blockAlign = channels * 2

	return nil
}
