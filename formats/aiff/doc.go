// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes uncompressed AIFF files using github.com/go-audio/aiff.
//
// 8, 16, 24 and 32-bit big-endian PCM is accepted and scaled to [-1, 1).
// AIFF carries no seek table, so SeekFrame rewinds the input and decodes
// forward to the requested frame.
package aiff
