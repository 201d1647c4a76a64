// SPDX-License-Identifier: EPL-2.0

package ring

import "sync/atomic"

// SampleBuffer is a fixed-capacity single-producer/single-consumer ring of
// interleaved float32 frames.
//
// Both cursors count frames and only ever grow. The producer owns the write
// cursor and the consumer owns the read cursor; each side only loads the
// other's cursor. Capacity is a power of two and never changes.
//
// Thread assignment:
//   - Write, Free, WriteCursor: producer
//   - Read, Available, SkipTo, Discard: consumer
type SampleBuffer struct {
	write atomic.Uint64
	_     [56]byte
	read  atomic.Uint64
	_     [56]byte

	data     []float32
	channels uint64
	frames   uint64
	mask     uint64
}

// New creates a buffer holding at least minFrames frames of the given channel
// count. The frame capacity is rounded up to the next power of two.
func New(minFrames, channels int) *SampleBuffer {
	if channels < 1 {
		channels = 1
	}
	size := 1
	for size < minFrames {
		size <<= 1
	}

	return &SampleBuffer{
		data:     make([]float32, size*channels),
		channels: uint64(channels),
		frames:   uint64(size),
		mask:     uint64(size - 1),
	}
}

// Channels returns the number of interleaved channels per frame.
func (b *SampleBuffer) Channels() int { return int(b.channels) }

// Capacity returns the capacity in frames.
func (b *SampleBuffer) Capacity() int { return int(b.frames) }

// Write copies as many whole frames from src as fit and returns the number of
// frames written. Trailing samples that do not form a full frame are ignored.
func (b *SampleBuffer) Write(src []float32) int {
	w := b.write.Load()
	r := b.read.Load()

	free := b.frames - (w - r)
	n := uint64(len(src)) / b.channels
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	b.copyIn(w, src[:n*b.channels])
	b.write.Store(w + n)

	return int(n)
}

func (b *SampleBuffer) copyIn(at uint64, src []float32) {
	pos := (at & b.mask) * b.channels
	first := uint64(len(b.data)) - pos
	n := uint64(len(src))
	if first >= n {
		copy(b.data[pos:pos+n], src)
		return
	}
	copy(b.data[pos:], src[:first])
	copy(b.data[:n-first], src[first:])
}

// Read copies up to len(dst)/Channels() frames into dst and returns the
// number of frames read. It never pads; the caller decides what missing
// frames mean.
func (b *SampleBuffer) Read(dst []float32) int {
	r := b.read.Load()
	w := b.write.Load()

	n := uint64(len(dst)) / b.channels
	if avail := w - r; n > avail {
		n = avail
	}
	if n == 0 {
		return 0
	}

	pos := (r & b.mask) * b.channels
	samples := n * b.channels
	first := uint64(len(b.data)) - pos
	if first >= samples {
		copy(dst[:samples], b.data[pos:pos+samples])
	} else {
		copy(dst[:first], b.data[pos:])
		copy(dst[first:samples], b.data[:samples-first])
	}

	b.read.Store(r + n)
	return int(n)
}

// Available returns the number of frames ready to read.
func (b *SampleBuffer) Available() int {
	return int(b.write.Load() - b.read.Load())
}

// Free returns the number of frames that can be written.
func (b *SampleBuffer) Free() int {
	return int(b.frames - (b.write.Load() - b.read.Load()))
}

// WriteCursor returns the total number of frames ever written.
func (b *SampleBuffer) WriteCursor() uint64 { return b.write.Load() }

// ReadCursor returns the total number of frames ever consumed.
func (b *SampleBuffer) ReadCursor() uint64 { return b.read.Load() }

// SkipTo drops every frame before the absolute position pos. Positions behind
// the read cursor are ignored and positions past the write cursor are clamped
// to it.
func (b *SampleBuffer) SkipTo(pos uint64) {
	r := b.read.Load()
	if w := b.write.Load(); pos > w {
		pos = w
	}
	if pos > r {
		b.read.Store(pos)
	}
}

// Discard drops every frame currently readable.
func (b *SampleBuffer) Discard() {
	b.SkipTo(b.write.Load())
}
