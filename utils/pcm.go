// SPDX-License-Identifier: EPL-2.0

package utils

import "encoding/binary"

// PCM16LEToFloat32 converts little-endian signed 16-bit samples in src to
// float32 in [-1, 1). It returns the number of samples written, limited by
// both slices; a trailing odd byte is ignored.
func PCM16LEToFloat32(dst []float32, src []byte) int {
	n := min(len(dst), len(src)/2)
	for i := range n {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(src[2*i:]))) / 32768.0
	}
	return n
}
