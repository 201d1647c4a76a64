// SPDX-License-Identifier: EPL-2.0

package utils

import "testing"

func TestPCM16LEToFloat32(t *testing.T) {
	t.Parallel()

	src := []byte{
		0x00, 0x00, // 0
		0x00, 0x40, // 16384
		0x00, 0x80, // -32768
		0xff, 0x7f, // 32767
		0x01, // dangling
	}
	dst := make([]float32, 8)

	n := PCM16LEToFloat32(dst, src)
	if n != 4 {
		t.Fatalf("PCM16LEToFloat32() = %d, want 4", n)
	}

	want := []float32{0, 0.5, -1, 32767.0 / 32768.0}
	for i, w := range want {
		if dst[i] != w {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], w)
		}
	}
}

func TestPCM16LEToFloat32_ShortDst(t *testing.T) {
	t.Parallel()

	if n := PCM16LEToFloat32(make([]float32, 1), []byte{1, 0, 2, 0}); n != 1 {
		t.Errorf("PCM16LEToFloat32() = %d, want 1", n)
	}
}
