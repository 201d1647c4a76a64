// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"log/slog"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/device"
	"github.com/ik5/audmix/internal/observe"
	"github.com/ik5/audmix/record"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets the instruments the monitor updates.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRegistry sets the decoders used by Open. Defaults to every bundled
// format.
func WithRegistry(r *audio.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithRecorder copies every rendered period to rec.
func WithRecorder(rec *record.Recorder) Option {
	return func(e *Engine) { e.recorder = rec }
}

// WithDevice sets the output format Render produces. Defaults to the
// internal format with 512-frame periods.
func WithDevice(cfg device.Config) Option {
	return func(e *Engine) { e.dev = cfg; e.devSet = true }
}

type playOptions struct {
	volume float32
	pan    float32
}

// PlayOption configures a single Play call.
type PlayOption func(*playOptions)

// WithVolume sets the initial volume, clamped to [0, 1]. Defaults to 1.
func WithVolume(v float32) PlayOption {
	return func(o *playOptions) { o.volume = v }
}

// WithPan sets the initial pan, clamped to [-1, 1]. Defaults to 0.
func WithPan(p float32) PlayOption {
	return func(o *playOptions) { o.pan = p }
}
