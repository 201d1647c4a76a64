// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"
)

const writeChunk = 8192

// WriteWAV16 writes interleaved 16-bit PCM samples as a canonical WAV file
// with the given rate and channel count.
func WriteWAV16(w io.Writer, sampleRate, channels int, samples []int16) error {
	if channels <= 0 || sampleRate <= 0 {
		return ErrUnsupportedWavLayout
	}

	blockAlign := channels * 2
	dataSize := uint32(len(samples) * 2)

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], formatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], 16)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing wav header: %w", err)
	}
	if len(samples) == 0 {
		return nil
	}

	buf := make([]byte, 2*min(len(samples), writeChunk))
	for i := 0; i < len(samples); i += writeChunk {
		chunk := samples[i:min(i+writeChunk, len(samples))]
		b := buf[:2*len(chunk)]
		for j, s := range chunk {
			binary.LittleEndian.PutUint16(b[2*j:], uint16(s))
		}
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("writing wav data: %w", err)
		}
	}

	return nil
}
