// SPDX-License-Identifier: EPL-2.0

package device

import (
	"errors"
	"fmt"
	"time"
	"unsafe"
)

// ErrDevice wraps failures reported by an output backend.
var ErrDevice = errors.New("audio device error")

// ErrInvalidConfig is returned for unusable device settings.
var ErrInvalidConfig = errors.New("invalid device config")

// Renderer fills out with interleaved float32 frames in the device format.
// It is called from the device's callback goroutine.
type Renderer interface {
	Render(out []float32)
}

// RenderFunc adapts a function to Renderer.
type RenderFunc func(out []float32)

func (f RenderFunc) Render(out []float32) { f(out) }

// Config is the output format and preferred period size.
type Config struct {
	SampleRate   int `yaml:"sample_rate"`
	Channels     int `yaml:"channels"`
	PeriodFrames int `yaml:"period_frames"`
}

// DefaultConfig is 48 kHz stereo with 512-frame periods.
func DefaultConfig() Config {
	return Config{SampleRate: 48000, Channels: 2, PeriodFrames: 512}
}

func (c Config) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate %d must be positive", c.SampleRate))
	}
	if c.Channels <= 0 {
		errs = append(errs, fmt.Errorf("channels %d must be positive", c.Channels))
	}
	if c.PeriodFrames <= 0 {
		errs = append(errs, fmt.Errorf("period frames %d must be positive", c.PeriodFrames))
	}
	if err := errors.Join(errs...); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}

// Period is the wall-clock length of one period.
func (c Config) Period() time.Duration {
	return time.Duration(c.PeriodFrames) * time.Second / time.Duration(c.SampleRate)
}

// floatBytes views samples as little-endian bytes without copying.
func floatBytes(samples []float32) []byte {
	if len(samples) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*4)
}
