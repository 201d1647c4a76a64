// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ik5/audmix/audio"
)

// Config sets the internal format and the fixed resources of an Engine.
type Config struct {
	// SampleRate and Channels are the internal bus format every voice is
	// converted to.
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`

	// MaxVoices is the number of preallocated voices and the bound on
	// concurrent decode tasks.
	MaxVoices int `yaml:"max_voices"`

	// BufferFrames is the per-voice sample buffer size, rounded up to a
	// power of two. Keep it well above the device period.
	BufferFrames int `yaml:"buffer_frames"`

	CommandCapacity int `yaml:"command_capacity"`
	CommandBatch    int `yaml:"command_batch"`

	ChunkFrames  int           `yaml:"chunk_frames"`
	PollInterval time.Duration `yaml:"poll_interval"`

	// Quality is "cubic" or "linear".
	Quality string `yaml:"quality"`

	RecordCapacity  int           `yaml:"record_capacity"`
	MonitorInterval time.Duration `yaml:"monitor_interval"`
}

// DefaultConfig returns 48 kHz stereo with room for 64 voices.
func DefaultConfig() Config {
	return Config{
		SampleRate:      48000,
		Channels:        2,
		MaxVoices:       64,
		BufferFrames:    8192,
		CommandCapacity: 256,
		CommandBatch:    64,
		ChunkFrames:     1024,
		PollInterval:    2 * time.Millisecond,
		Quality:         audio.QualityCubic.String(),
		RecordCapacity:  16384,
		MonitorInterval: time.Second,
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	positive := []struct {
		name string
		v    int
	}{
		{"sample_rate", c.SampleRate},
		{"channels", c.Channels},
		{"max_voices", c.MaxVoices},
		{"buffer_frames", c.BufferFrames},
		{"command_capacity", c.CommandCapacity},
		{"command_batch", c.CommandBatch},
		{"chunk_frames", c.ChunkFrames},
		{"record_capacity", c.RecordCapacity},
	}
	for _, p := range positive {
		if p.v <= 0 {
			errs = append(errs, fmt.Errorf("engine.%s: must be positive, got %d", p.name, p.v))
		}
	}

	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("engine.poll_interval: must be positive, got %s", c.PollInterval))
	}
	if c.MonitorInterval <= 0 {
		errs = append(errs, fmt.Errorf("engine.monitor_interval: must be positive, got %s", c.MonitorInterval))
	}
	if _, err := audio.ParseQuality(c.Quality); err != nil {
		errs = append(errs, fmt.Errorf("engine.quality: %w", err))
	}
	if c.BufferFrames > 0 && c.ChunkFrames > c.BufferFrames {
		errs = append(errs, fmt.Errorf("engine.chunk_frames: %d exceeds buffer_frames %d", c.ChunkFrames, c.BufferFrames))
	}

	return errors.Join(errs...)
}
