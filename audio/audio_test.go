// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/ik5/audmix/internal/audiotest"
)

// rateDecoder yields a silent source at a fixed rate, so tests can tell
// which decoder served a lookup.
type rateDecoder int

func (d rateDecoder) Decode(io.Reader) (Source, error) {
	return audiotest.NewSilentSource(int(d), 2, 100), nil
}

var errCorrupt = errors.New("corrupt header")

type corruptDecoder struct{}

func (corruptDecoder) Decode(io.Reader) (Source, error) { return nil, errCorrupt }

func TestRegistry_Lookup(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("wav", rateDecoder(8000))
	reg.Register("OGG", rateDecoder(16000))
	reg.Register("Wav", rateDecoder(22050)) // replaces "wav"

	tests := []struct {
		format   string
		wantRate int
		wantOK   bool
	}{
		{"wav", 22050, true},
		{"WAV", 22050, true},
		{"ogg", 16000, true},
		{"Ogg", 16000, true},
		{"mp3", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			d, ok := reg.Get(tt.format)
			if ok != tt.wantOK {
				t.Fatalf("Get(%q) ok = %v, want %v", tt.format, ok, tt.wantOK)
			}
			if ok && int(d.(rateDecoder)) != tt.wantRate {
				t.Errorf("Get(%q) = %d Hz decoder, want %d", tt.format, d, tt.wantRate)
			}
		})
	}

	if got, want := reg.Formats(), []string{"ogg", "wav"}; !slices.Equal(got, want) {
		t.Errorf("Formats() = %v, want %v", got, want)
	}
}

func TestRegistry_FormatsIsACopy(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("wav", rateDecoder(8000))

	keys := reg.Formats()
	keys[0] = "changed"

	if _, ok := reg.Get("wav"); !ok {
		t.Error("mutating Formats() result changed the registry")
	}
}

func TestRegistry_Decode(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("wav", rateDecoder(44100))
	reg.Register("bad", corruptDecoder{})

	tests := []struct {
		name     string
		format   string
		wantErrs []error
		wantMsg  string
	}{
		{name: "registered", format: "WAV"},
		{name: "unknown", format: "flac", wantErrs: []error{ErrUnknownFormat}, wantMsg: `"flac"`},
		{name: "decoder failure", format: "bad", wantErrs: []error{ErrDecode, errCorrupt}, wantMsg: "bad: corrupt header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src, err := reg.Decode(tt.format, bytes.NewReader(nil))
			if len(tt.wantErrs) == 0 {
				if err != nil {
					t.Fatalf("Decode() error = %v", err)
				}
				if src.SampleRate() != 44100 {
					t.Errorf("SampleRate() = %d, want 44100", src.SampleRate())
				}
				return
			}

			if src != nil {
				t.Errorf("Decode() returned a source with error %v", err)
			}
			for _, want := range tt.wantErrs {
				if !errors.Is(err, want) {
					t.Errorf("Decode() error = %v, want %v in chain", err, want)
				}
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Decode() error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestRegistry_ConcurrentRegisterDecode(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("wav", rateDecoder(8000))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Go(func() {
			reg.Register(fmt.Sprintf("fmt%d", i), rateDecoder(8000))
		})
		wg.Go(func() {
			if _, err := reg.Decode("wav", bytes.NewReader(nil)); err != nil {
				t.Errorf("Decode() error = %v", err)
			}
			_ = reg.Formats()
		})
	}
	wg.Wait()

	if n := len(reg.Formats()); n != 9 {
		t.Errorf("len(Formats()) = %d, want 9", n)
	}
}

func BenchmarkRegistry_Decode(b *testing.B) {
	reg := NewRegistry()
	reg.Register("wav", rateDecoder(8000))
	r := bytes.NewReader(nil)

	b.ReportAllocs()
	for b.Loop() {
		_, _ = reg.Decode("wav", r)
	}
}

func TestSeekable(t *testing.T) {
	t.Parallel()

	br := bytes.NewReader([]byte("abc"))
	rs, err := Seekable(br)
	if err != nil || rs != br {
		t.Fatalf("Seekable(bytes.Reader) = %v, %v; want the same reader", rs, err)
	}

	rs, err = Seekable(strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Seekable() error = %v", err)
	}
	if _, err := rs.Seek(1, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	b, _ := io.ReadAll(rs)
	if string(b) != "ello" {
		t.Errorf("read %q after seek, want %q", b, "ello")
	}

	failing := io.MultiReader(strings.NewReader("x"), iotestErr{})
	if _, err := Seekable(failing); !errors.Is(err, errCorrupt) {
		t.Errorf("Seekable(failing) error = %v, want %v", err, errCorrupt)
	}
}

type iotestErr struct{}

func (iotestErr) Read([]byte) (int, error) { return 0, errCorrupt }

type countingCloser struct {
	io.Reader
	closed int
}

func (c *countingCloser) Close() error {
	c.closed++
	return nil
}

func TestCloseReader(t *testing.T) {
	t.Parallel()

	if err := CloseReader(strings.NewReader("x")); err != nil {
		t.Errorf("CloseReader(non-closer) error = %v", err)
	}

	c := &countingCloser{Reader: strings.NewReader("x")}
	if err := CloseReader(c); err != nil {
		t.Fatalf("CloseReader() error = %v", err)
	}
	if c.closed != 1 {
		t.Errorf("closed %d times, want 1", c.closed)
	}
}
