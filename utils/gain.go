// SPDX-License-Identifier: EPL-2.0

package utils

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Clamp64 is Clamp for float64.
func Clamp64(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// PanGains returns the left and right gains for pan in [-1, 1] using a
// balance law: the centre leaves both channels at unity and moving to one
// side attenuates the other linearly.
func PanGains(pan float32) (left, right float32) {
	pan = Clamp(pan, -1, 1)
	return Clamp(1-pan, 0, 1), Clamp(1+pan, 0, 1)
}
