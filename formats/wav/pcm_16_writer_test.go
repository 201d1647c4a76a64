// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestWriteWAV16_Header(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteWAV16(&buf, 44100, 2, []int16{1, -1, 2, -2}); err != nil {
		t.Fatalf("WriteWAV16() error = %v", err)
	}
	b := buf.Bytes()

	if len(b) != 44+8 {
		t.Fatalf("len = %d, want 52", len(b))
	}

	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"riff size", binary.LittleEndian.Uint32(b[4:]), 44},
		{"channels", uint32(binary.LittleEndian.Uint16(b[22:])), 2},
		{"sample rate", binary.LittleEndian.Uint32(b[24:]), 44100},
		{"byte rate", binary.LittleEndian.Uint32(b[28:]), 44100 * 4},
		{"block align", uint32(binary.LittleEndian.Uint16(b[32:])), 4},
		{"bits", uint32(binary.LittleEndian.Uint16(b[34:])), 16},
		{"data size", binary.LittleEndian.Uint32(b[40:]), 8},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}

	if got := int16(binary.LittleEndian.Uint16(b[46:])); got != -1 {
		t.Errorf("second sample = %d, want -1", got)
	}
}

func TestWriteWAV16_LargeRoundTrip(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 3*writeChunk+7)
	for i := range samples {
		samples[i] = int16(i % 3000)
	}

	src, err := Decoder{}.Decode(bytes.NewReader(encode(t, 16000, 1, samples)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	got := readAll(t, src, 4096)
	if len(got) != len(samples) {
		t.Fatalf("round trip read %d samples, want %d", len(got), len(samples))
	}
	if want := float32(samples[len(samples)-1]) / 32768; got[len(got)-1] != want {
		t.Errorf("last sample = %v, want %v", got[len(got)-1], want)
	}
}

func TestWriteWAV16_InvalidFormat(t *testing.T) {
	t.Parallel()

	if err := WriteWAV16(&bytes.Buffer{}, 8000, 0, nil); !errors.Is(err, ErrUnsupportedWavLayout) {
		t.Errorf("WriteWAV16(channels=0) error = %v, want ErrUnsupportedWavLayout", err)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteWAV16_WriteError(t *testing.T) {
	t.Parallel()

	if err := WriteWAV16(failWriter{}, 8000, 1, []int16{1}); err == nil {
		t.Error("WriteWAV16() error = nil, want write failure")
	}
}

func BenchmarkWriteWAV16(b *testing.B) {
	samples := make([]int16, 48000*2)
	var buf bytes.Buffer

	b.ReportAllocs()
	for b.Loop() {
		buf.Reset()
		_ = WriteWAV16(&buf, 48000, 2, samples)
	}
}
