// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"testing"

	"github.com/ik5/audmix/internal/audiotest"
)

func TestConvert_Wrapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		rate, ch      int
		wantResampler bool
		wantMixer     bool
	}{
		{"identity", 44100, 2, false, false},
		{"channels only", 44100, 1, false, true},
		{"rate only", 48000, 2, true, false},
		{"both", 8000, 1, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewSilentSource(44100, 2, 100)
			out := Convert(src, tt.rate, tt.ch)

			if out.SampleRate() != tt.rate || out.Channels() != tt.ch {
				t.Errorf("format = %d x %d, want %d x %d", out.SampleRate(), out.Channels(), tt.rate, tt.ch)
			}
			if _, ok := out.(*Resampler); ok != tt.wantResampler {
				t.Errorf("outer Resampler = %v, want %v", ok, tt.wantResampler)
			}
			if _, ok := out.(*ChannelMixer); ok != tt.wantMixer {
				t.Errorf("outer ChannelMixer = %v, want %v", ok, tt.wantMixer)
			}
			if !tt.wantResampler && !tt.wantMixer && out != Source(src) {
				t.Error("matching source was wrapped")
			}
		})
	}
}

func TestReadAll16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     Source
		rate    int
		ch      int
		want    int
		tol     int
		wantVal int16
	}{
		{"stereo sine to 8k mono", audiotest.NewSineSource(44100, 2, 44100, 440), 8000, 1, 8000, 200, 0},
		{"constant mono 16k to 8k", audiotest.NewConstantSource(16000, 1, 16000, 0.5), 8000, 1, 8000, 200, 16383},
		{"upsample keeps channels", audiotest.NewConstantSource(8000, 2, 8000, -0.25), 16000, 2, 32000, 400, -8191},
		{"empty", audiotest.NewSilentSource(44100, 2, 0), 8000, 1, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pcm, err := ReadAll16(Convert(tt.src, tt.rate, tt.ch), 1024)
			if err != nil {
				t.Fatalf("ReadAll16() error = %v", err)
			}
			if len(pcm) < tt.want-tt.tol || len(pcm) > tt.want+tt.tol {
				t.Errorf("got %d samples, want %d (±%d)", len(pcm), tt.want, tt.tol)
			}
			if tt.wantVal != 0 && len(pcm) > 100 {
				if got := pcm[len(pcm)/2]; got < tt.wantVal-2 || got > tt.wantVal+2 {
					t.Errorf("middle sample = %d, want ≈%d", got, tt.wantVal)
				}
			}
		})
	}
}

func TestReadAll16_Clipping(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(8000, 1, 3, func(frame, _ int) float32 {
		return []float32{2, -2, 0}[frame]
	})

	pcm, err := ReadAll16(src, 16)
	if err != nil {
		t.Fatalf("ReadAll16() error = %v", err)
	}
	want := []int16{32767, -32767, 0}
	for i, w := range want {
		if pcm[i] != w {
			t.Errorf("pcm[%d] = %d, want %d", i, pcm[i], w)
		}
	}
}

func TestReadAll16_Errors(t *testing.T) {
	t.Parallel()

	if _, err := ReadAll16(audiotest.NewSilentSource(8000, 1, 10), 0); err == nil {
		t.Error("ReadAll16(bufFrames=0) error = nil")
	}

	pcm, err := ReadAll16(audiotest.NewFailingSource(8000, 1, 100, 0.5), 32)
	if !errors.Is(err, audiotest.ErrInjected) {
		t.Errorf("ReadAll16() error = %v, want ErrInjected", err)
	}
	if len(pcm) == 0 || len(pcm) > 100 {
		t.Errorf("kept %d samples before the failure, want (0, 100]", len(pcm))
	}
}

func BenchmarkReadAll16(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		src := audiotest.NewSineSource(44100, 2, 44100, 440)
		_, _ = ReadAll16(Convert(src, 8000, 1), 4096)
	}
}
