// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/internal/audiotest"
	"github.com/ik5/audmix/voice"
)

func testConfig() Config {
	return Config{
		SampleRate:    48000,
		Channels:      2,
		ChunkFrames:   256,
		Quality:       audio.QualityCubic,
		MaxTasks:      4,
		QueueCapacity: 64,
		PollInterval:  time.Millisecond,
	}
}

func runPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func progressIs(v *voice.Voice, gen uint64, s voice.State) func() bool {
	return func() bool {
		g, got := v.Progress()
		return g == gen && got == s
	}
}

// startVoice leases v for src and starts its first task.
func startVoice(t *testing.T, p *Pipeline, v *voice.Voice, src audio.Source) uint64 {
	t.Helper()

	v.Lease(1, src, 1, 0)
	gen := v.NextTaskGen()
	if !p.Start(v, gen) {
		t.Fatal("Start() = false")
	}
	return gen
}

// drainAll reads v's buffer until the task publishes Draining and the
// buffer is empty.
func drainAll(t *testing.T, v *voice.Voice, gen uint64) []float32 {
	t.Helper()

	var out []float32
	tmp := make([]float32, 512*v.Buffer().Channels())
	deadline := time.Now().Add(5 * time.Second)

	for {
		n := v.Buffer().Read(tmp)
		out = append(out, tmp[:n*v.Buffer().Channels()]...)
		if n > 0 {
			continue
		}
		if g, s := v.Progress(); g == gen && s == voice.Draining && v.Buffer().Available() == 0 {
			return out
		}
		if g, s := v.Progress(); g == gen && s == voice.Failed {
			t.Fatalf("voice failed: %v", v.Err())
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out draining voice")
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.SampleRate = 0
	cfg.MaxTasks = 0

	_, err := New(cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("New() error = %v, want ErrInvalidConfig", err)
	}
	if !errors.Is(err, audio.ErrInvalidRate) {
		t.Errorf("New() error = %v, want it to include ErrInvalidRate", err)
	}
}

func TestPipeline_DecodesWholeSource(t *testing.T) {
	t.Parallel()

	p := runPipeline(t, testConfig())
	v := voice.New(8192, 2)
	src := audiotest.NewRampSource(48000, 2, 3000)

	gen := startVoice(t, p, v, src)
	out := drainAll(t, v, gen)

	if len(out) != 3000*2 {
		t.Fatalf("got %d samples, want %d", len(out), 3000*2)
	}
	for f := range 3000 {
		if out[f*2] != audiotest.RampValue(f) {
			t.Fatalf("frame %d = %v, want %v", f, out[f*2], audiotest.RampValue(f))
		}
	}

	waitFor(t, "task exit", func() bool { return v.ExitedGen() == gen })
}

func TestPipeline_Backpressure(t *testing.T) {
	t.Parallel()

	p := runPipeline(t, testConfig())
	// Buffer much smaller than the source: the task has to wait for reads.
	v := voice.New(128, 2)
	src := audiotest.NewRampSource(48000, 2, 5000)

	gen := startVoice(t, p, v, src)
	out := drainAll(t, v, gen)

	if len(out) != 5000*2 {
		t.Fatalf("got %d samples, want %d", len(out), 5000*2)
	}
	for f := range 5000 {
		if out[f*2+1] != audiotest.RampValue(f) {
			t.Fatalf("frame %d = %v, want %v", f, out[f*2+1], audiotest.RampValue(f))
		}
	}
}

func TestPipeline_ConvertsFormat(t *testing.T) {
	t.Parallel()

	p := runPipeline(t, testConfig())
	v := voice.New(16384, 2)
	src := audiotest.NewConstantSource(24000, 1, 2400, 0.25)

	gen := startVoice(t, p, v, src)
	out := drainAll(t, v, gen)

	frames := len(out) / 2
	if frames < 4790 || frames > 4810 {
		t.Errorf("got %d frames, want about 4800", frames)
	}
	for i := 0; i < len(out); i += 2 {
		if out[i] != out[i+1] {
			t.Fatalf("frame %d: left %v != right %v", i/2, out[i], out[i+1])
		}
	}
	mid := out[len(out)/2]
	if mid < 0.249 || mid > 0.251 {
		t.Errorf("mid sample = %v, want 0.25", mid)
	}
}

func TestPipeline_DecodeErrorFailsVoice(t *testing.T) {
	t.Parallel()

	p := runPipeline(t, testConfig())
	v := voice.New(8192, 2)
	src := audiotest.NewFailingSource(48000, 2, 300, 0.5)

	gen := startVoice(t, p, v, src)
	waitFor(t, "failure", progressIs(v, gen, voice.Failed))

	if !errors.Is(v.Err(), audio.ErrDecode) {
		t.Errorf("Err() = %v, want ErrDecode", v.Err())
	}
	if !errors.Is(v.Err(), audiotest.ErrInjected) {
		t.Errorf("Err() = %v, want it to wrap ErrInjected", v.Err())
	}
	if v.Buffer().Available() != 300 {
		t.Errorf("Available() = %d, want 300 frames decoded before failure", v.Buffer().Available())
	}
}

func TestPipeline_CancelAndRelease(t *testing.T) {
	t.Parallel()

	p := runPipeline(t, testConfig())
	v := voice.New(256, 2)
	src := audiotest.NewConstantSource(48000, 2, 1_000_000, 0.1)

	v.Lease(1, src, 1, 0)
	lease := v.LeaseNumber()
	gen := v.NextTaskGen()
	p.Start(v, gen)

	waitFor(t, "playing", progressIs(v, gen, voice.Playing))

	v.Cancel()
	if !p.Release(v, lease) {
		t.Fatal("Release() = false")
	}

	waitFor(t, "release", func() bool { return v.Released() == lease })

	if v.ExitedGen() != gen {
		t.Errorf("ExitedGen() = %d, want %d", v.ExitedGen(), gen)
	}
	if src.Closed() != 1 {
		t.Errorf("source closed %d times, want 1", src.Closed())
	}
}

func TestPipeline_Discard(t *testing.T) {
	t.Parallel()

	p := runPipeline(t, testConfig())
	src := audiotest.NewSilentSource(48000, 2, 10)

	if !p.Discard(src) {
		t.Fatal("Discard() = false")
	}
	if !p.Discard(nil) {
		t.Fatal("Discard(nil) = false")
	}

	waitFor(t, "close", func() bool { return src.Closed() == 1 })
}

func TestPipeline_SeekMatchesFreshDecode(t *testing.T) {
	t.Parallel()

	const target = 1000

	p := runPipeline(t, testConfig())
	v := voice.New(512, 2)
	src := audiotest.NewRampSource(48000, 2, 4000)

	gen := startVoice(t, p, v, src)
	waitFor(t, "playing", progressIs(v, gen, voice.Playing))

	seekGen := v.RequestSeek(target)
	waitFor(t, "seek ack", func() bool {
		g, _ := v.SeekAck()
		return g == seekGen
	})

	_, mark := v.SeekAck()
	v.Buffer().SkipTo(mark)

	out := drainAll(t, v, gen)
	if len(out) != (4000-target)*2 {
		t.Fatalf("got %d samples after seek, want %d", len(out), (4000-target)*2)
	}
	for i := range 4000 - target {
		if want := audiotest.RampValue(target + i); out[i*2] != want {
			t.Fatalf("frame %d after seek = %v, want %v", i, out[i*2], want)
		}
	}
}

func TestPipeline_SeekMatchesFreshDecodeAcrossRates(t *testing.T) {
	t.Parallel()

	const target = 1001

	p := runPipeline(t, testConfig())

	fv := voice.New(512, 2)
	fgen := startVoice(t, p, fv, audiotest.NewRampSource(24000, 2, 1500))
	fresh := drainAll(t, fv, fgen)

	v := voice.New(512, 2)
	gen := startVoice(t, p, v, audiotest.NewRampSource(24000, 2, 1500))
	waitFor(t, "playing", progressIs(v, gen, voice.Playing))

	seekGen := v.RequestSeek(target)
	waitFor(t, "seek ack", func() bool {
		g, _ := v.SeekAck()
		return g == seekGen
	})
	_, mark := v.SeekAck()
	v.Buffer().SkipTo(mark)

	out := drainAll(t, v, gen)
	want := fresh[target*2:]
	if len(out) != len(want) {
		t.Fatalf("got %d frames after seek, want %d", len(out)/2, len(want)/2)
	}
	for i := range out {
		if out[i] != want[i] {
			t.Fatalf("sample %d after seek = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestPipeline_SeekPastEndDrains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rate  int
		frame int64
	}{
		{"same rate", 48000, 10_000},
		{"same rate huge", 48000, 1 << 60},
		{"same rate max", 48000, math.MaxInt64},
		{"resampled", 24000, 10_000},
		{"resampled huge", 44100, 1 << 60},
		{"resampled max", 44100, math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := runPipeline(t, testConfig())
			v := voice.New(8192, 2)
			src := audiotest.NewRampSource(tt.rate, 2, 500)

			v.Lease(1, src, 1, 0)
			v.RequestSeek(tt.frame)
			gen := v.NextTaskGen()
			p.Start(v, gen)

			waitFor(t, "draining", progressIs(v, gen, voice.Draining))

			_, mark := v.SeekAck()
			v.Buffer().SkipTo(mark)
			if v.Buffer().Available() != 0 {
				t.Errorf("Available() = %d after seeking to %d, want 0", v.Buffer().Available(), tt.frame)
			}
		})
	}
}

// opaque hides every method but the Source ones.
type opaque struct{ audio.Source }

func TestPipeline_SeekNotSeekable(t *testing.T) {
	t.Parallel()

	p := runPipeline(t, testConfig())
	v := voice.New(256, 2)
	src := opaque{audiotest.NewConstantSource(48000, 2, 1_000_000, 0.1)}

	v.Lease(1, src, 1, 0)
	v.RequestSeek(10)
	gen := v.NextTaskGen()
	p.Start(v, gen)

	waitFor(t, "failure", progressIs(v, gen, voice.Failed))

	if !errors.Is(v.Err(), audio.ErrNotSeekable) {
		t.Errorf("Err() = %v, want ErrNotSeekable", v.Err())
	}
}

func TestPipeline_RestartAfterDraining(t *testing.T) {
	t.Parallel()

	p := runPipeline(t, testConfig())
	v := voice.New(8192, 2)
	src := audiotest.NewRampSource(48000, 2, 500)

	gen := startVoice(t, p, v, src)
	drainAll(t, v, gen)
	waitFor(t, "exit", func() bool { return v.ExitedGen() == gen })

	v.RequestSeek(400)
	gen2 := v.NextTaskGen()
	p.Start(v, gen2)

	out := drainAll(t, v, gen2)
	if len(out) != 100*2 {
		t.Fatalf("got %d samples after restart, want %d", len(out), 100*2)
	}
	if out[0] != audiotest.RampValue(400) {
		t.Errorf("first frame = %v, want %v", out[0], audiotest.RampValue(400))
	}
}

func TestPipeline_ShutdownClosesQueuedSources(t *testing.T) {
	t.Parallel()

	p, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}

	src := audiotest.NewSilentSource(48000, 2, 10)
	p.Discard(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if src.Closed() != 1 {
		t.Errorf("source closed %d times, want 1", src.Closed())
	}
}
