// SPDX-License-Identifier: EPL-2.0

package utils

func Float32ToInt16(x float32) int16 {
	// Use 32767 for positive max to avoid overflow
	return int16(Clamp(x, -1, 1) * 32767.0)
}

// Float32ToInts converts src into 16-bit sample values stored as int, the
// layout go-audio's IntBuffer uses. It returns the number of values written.
func Float32ToInts(dst []int, src []float32) int {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = int(Float32ToInt16(src[i]))
	}
	return n
}
