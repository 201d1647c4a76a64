// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelMixer converts a source to a different channel count.
// Mono is duplicated onto every output channel; wider layouts folding into
// fewer channels are averaged.
type ChannelMixer struct {
	src      Source
	channels int
	tmp      []float32
}

// NewChannelMixer returns a Source producing channels interleaved channels
// from src.
func NewChannelMixer(src Source, channels int) *ChannelMixer {
	return &ChannelMixer{
		src:      src,
		channels: channels,
		tmp:      make([]float32, 4096),
	}
}

// NewMonoMixer averages all channels of src down to one.
func NewMonoMixer(src Source) *ChannelMixer {
	return NewChannelMixer(src, 1)
}

func (m *ChannelMixer) SampleRate() int { return m.src.SampleRate() }
func (m *ChannelMixer) Channels() int   { return m.channels }
func (m *ChannelMixer) BufSize() int    { return m.src.BufSize() }

func (m *ChannelMixer) Close() error {
	err := m.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// ReadSamples returns the number of output samples written. Trailing dst
// samples that do not form a full output frame are left untouched.
func (m *ChannelMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	inCh := m.src.Channels()
	if inCh == m.channels {
		return m.src.ReadSamples(dst)
	}

	frames := len(dst) / m.channels
	samplesNeeded := frames * inCh

	// Grows once to the largest request seen.
	if cap(m.tmp) < samplesNeeded {
		m.tmp = make([]float32, max(samplesNeeded, 8192))
	}

	n, err := m.src.ReadSamples(m.tmp[:samplesNeeded])
	if n == 0 {
		return 0, err
	}

	got := MapChannels(dst, m.tmp[:n], inCh, m.channels)

	return got * m.channels, err
}

// MapChannels converts whole frames from src (inCh channels) into dst (outCh
// channels) and returns the number of frames converted. It never allocates.
func MapChannels(dst, src []float32, inCh, outCh int) int {
	frames := min(len(src)/inCh, len(dst)/outCh)

	switch {
	case inCh == outCh:
		copy(dst[:frames*outCh], src[:frames*inCh])

	case outCh == 1:
		switch inCh {
		case 2:
			for f := range frames {
				idx := f << 1
				dst[f] = (src[idx] + src[idx+1]) * 0.5
			}
		default:
			inv := float32(1.0) / float32(inCh)
			for f := range frames {
				sum := float32(0)
				base := f * inCh
				for c := range inCh {
					sum += src[base+c]
				}
				dst[f] = sum * inv
			}
		}

	case inCh == 1:
		for f := range frames {
			v := src[f]
			base := f * outCh
			for c := range outCh {
				dst[base+c] = v
			}
		}

	case outCh > inCh:
		for f := range frames {
			in := src[f*inCh : (f+1)*inCh]
			out := dst[f*outCh : (f+1)*outCh]
			for c := range outCh {
				out[c] = in[c%inCh]
			}
		}

	default:
		// Fold: output channel c averages input channels c, c+outCh, ...
		for f := range frames {
			in := src[f*inCh : (f+1)*inCh]
			out := dst[f*outCh : (f+1)*outCh]
			for c := range outCh {
				sum := float32(0)
				cnt := 0
				for i := c; i < inCh; i += outCh {
					sum += in[i]
					cnt++
				}
				out[c] = sum / float32(cnt)
			}
		}
	}

	return frames
}
