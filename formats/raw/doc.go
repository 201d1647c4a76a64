// SPDX-License-Identifier: EPL-2.0

// Package raw provides headerless PCM sources: Buffer plays float32 samples
// already in memory, and Decoder reads s16le streams such as the output of
// `ffmpeg -f s16le`.
package raw
