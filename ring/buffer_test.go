// SPDX-License-Identifier: EPL-2.0

package ring

import (
	"sync"
	"testing"
)

func TestSampleBuffer_Capacity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		minFrames int
		channels  int
		want      int
	}{
		{"exact power of two", 8, 2, 8},
		{"rounded up", 9, 2, 16},
		{"single frame", 1, 1, 1},
		{"zero channels treated as mono", 4, 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := New(tt.minFrames, tt.channels)
			if got := b.Capacity(); got != tt.want {
				t.Errorf("Capacity() = %d, want %d", got, tt.want)
			}
			if b.Free() != tt.want {
				t.Errorf("Free() = %d, want %d", b.Free(), tt.want)
			}
		})
	}
}

func TestSampleBuffer_WriteRead(t *testing.T) {
	t.Parallel()

	b := New(4, 2)
	src := []float32{1, 2, 3, 4, 5, 6}

	if n := b.Write(src); n != 3 {
		t.Fatalf("Write() = %d frames, want 3", n)
	}
	if b.Available() != 3 {
		t.Errorf("Available() = %d, want 3", b.Available())
	}

	dst := make([]float32, 8)
	if n := b.Read(dst); n != 3 {
		t.Fatalf("Read() = %d frames, want 3", n)
	}
	for i, v := range src {
		if dst[i] != v {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], v)
		}
	}
}

func TestSampleBuffer_PartialFrameIgnored(t *testing.T) {
	t.Parallel()

	b := New(4, 2)
	if n := b.Write([]float32{1, 2, 3}); n != 1 {
		t.Errorf("Write() = %d frames, want 1", n)
	}
}

func TestSampleBuffer_FullNeverGrows(t *testing.T) {
	t.Parallel()

	b := New(4, 1)
	if n := b.Write([]float32{1, 2, 3, 4, 5, 6}); n != 4 {
		t.Fatalf("Write() = %d, want 4", n)
	}
	if n := b.Write([]float32{7}); n != 0 {
		t.Errorf("Write() on full buffer = %d, want 0", n)
	}
	if b.Capacity() != 4 {
		t.Errorf("Capacity() = %d after overflow, want 4", b.Capacity())
	}
}

func TestSampleBuffer_WrapAround(t *testing.T) {
	t.Parallel()

	b := New(4, 1)
	dst := make([]float32, 3)

	b.Write([]float32{1, 2, 3})
	b.Read(dst)

	b.Write([]float32{4, 5, 6, 7})
	out := make([]float32, 4)
	if n := b.Read(out); n != 4 {
		t.Fatalf("Read() = %d, want 4", n)
	}

	want := []float32{4, 5, 6, 7}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestSampleBuffer_SkipTo(t *testing.T) {
	t.Parallel()

	b := New(8, 1)
	b.Write([]float32{0, 1, 2, 3, 4, 5})

	b.SkipTo(4)
	if b.ReadCursor() != 4 {
		t.Fatalf("ReadCursor() = %d, want 4", b.ReadCursor())
	}

	// Behind the read cursor: no-op.
	b.SkipTo(2)
	if b.ReadCursor() != 4 {
		t.Errorf("ReadCursor() = %d after backwards skip, want 4", b.ReadCursor())
	}

	// Past the write cursor: clamped.
	b.SkipTo(100)
	if b.ReadCursor() != 6 {
		t.Errorf("ReadCursor() = %d, want 6", b.ReadCursor())
	}
	if b.Available() != 0 {
		t.Errorf("Available() = %d, want 0", b.Available())
	}
}

func TestSampleBuffer_Discard(t *testing.T) {
	t.Parallel()

	b := New(8, 2)
	b.Write(make([]float32, 10))
	b.Discard()

	if b.Available() != 0 {
		t.Errorf("Available() = %d after Discard, want 0", b.Available())
	}
	if b.Free() != b.Capacity() {
		t.Errorf("Free() = %d, want %d", b.Free(), b.Capacity())
	}
}

func TestSampleBuffer_ConcurrentProducerConsumer(t *testing.T) {
	t.Parallel()

	const total = 100000

	b := New(256, 1)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		chunk := make([]float32, 37)
		next := 0
		for next < total {
			n := min(len(chunk), total-next)
			for i := range n {
				chunk[i] = float32(next + i)
			}
			next += b.Write(chunk[:n])
		}
	}()

	dst := make([]float32, 64)
	expect := 0
	for expect < total {
		n := b.Read(dst)
		for i := range n {
			if dst[i] != float32(expect) {
				t.Fatalf("sample %d = %v, want %v", expect, dst[i], float32(expect))
			}
			expect++
		}
	}

	wg.Wait()
}

func TestSampleBuffer_ZeroAllocs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping allocation test in short mode")
	}

	b := New(1024, 2)
	src := make([]float32, 512)
	dst := make([]float32, 512)

	allocs := testing.AllocsPerRun(1000, func() {
		b.Write(src)
		b.Read(dst)
	})

	if allocs > 0 {
		t.Errorf("Write/Read allocated %v times, want 0", allocs)
	}
}

func BenchmarkSampleBuffer_Period(b *testing.B) {
	buf := New(8192, 2)
	src := make([]float32, 1024)
	dst := make([]float32, 1024)

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		buf.Write(src)
		buf.Read(dst)
	}
}
