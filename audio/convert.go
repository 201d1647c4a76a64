// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audmix/utils"
)

// Convert returns src in the given format. Channels are mapped before the
// rate is changed, so the Resampler, when one is needed, is the outermost
// Source. src is returned unwrapped when it already matches.
func Convert(src Source, rate, channels int, opts ...ResamplerOption) Source {
	out := src
	if src.Channels() != channels {
		out = NewChannelMixer(out, channels)
	}
	if src.SampleRate() != rate {
		out = NewResampler(out, rate, opts...)
	}
	return out
}

// ReadAll16 drains src into interleaved 16-bit PCM, reading bufFrames
// frames at a time. Samples outside [-1, 1] are clipped.
func ReadAll16(src Source, bufFrames int) ([]int16, error) {
	if bufFrames <= 0 {
		return nil, fmt.Errorf("audio: invalid buffer of %d frames", bufFrames)
	}

	var pcm []int16
	buf := make([]float32, bufFrames*src.Channels())

	for {
		n, err := src.ReadSamples(buf)
		for _, s := range buf[:n] {
			pcm = append(pcm, utils.Float32ToInt16(s))
		}

		if errors.Is(err, io.EOF) {
			return pcm, nil
		}
		if err != nil {
			return pcm, err
		}
	}
}
