// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/command"
	"github.com/ik5/audmix/device"
	"github.com/ik5/audmix/formats"
	"github.com/ik5/audmix/internal/observe"
	"github.com/ik5/audmix/meter"
	"github.com/ik5/audmix/mixer"
	"github.com/ik5/audmix/pipeline"
	"github.com/ik5/audmix/record"
	"github.com/ik5/audmix/voice"
)

// Engine mixes any number of voices into one output stream.
//
// Control methods may be called from any goroutine and never block.
// Render belongs to the device callback goroutine.
type Engine struct {
	cfg    Config
	dev    device.Config
	devSet bool

	log      *slog.Logger
	metrics  *observe.Metrics
	registry *audio.Registry
	recorder *record.Recorder

	cmds *command.Channel
	pipe *pipeline.Pipeline
	mix  *mixer.Mixer

	nextID atomic.Uint64
	closed atomic.Bool

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	g       *errgroup.Group
	devErr  error

	recDropped uint64 // monitor-owned
}

// New validates cfg and preallocates every voice, buffer and queue.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		log:     slog.Default(),
		metrics: observe.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if !e.devSet {
		e.dev = device.Config{SampleRate: cfg.SampleRate, Channels: cfg.Channels, PeriodFrames: 512}
	}
	if err := e.dev.Validate(); err != nil {
		return nil, err
	}
	if e.registry == nil {
		e.registry = formats.Default()
	}

	quality, _ := audio.ParseQuality(cfg.Quality)

	pipe, err := pipeline.New(pipeline.Config{
		SampleRate:    cfg.SampleRate,
		Channels:      cfg.Channels,
		ChunkFrames:   cfg.ChunkFrames,
		Quality:       quality,
		MaxTasks:      cfg.MaxVoices,
		QueueCapacity: 4*cfg.MaxVoices + 2*cfg.CommandBatch,
		PollInterval:  cfg.PollInterval,
	}, pipeline.WithLogger(e.log), pipeline.WithMetrics(e.metrics))
	if err != nil {
		return nil, err
	}
	e.pipe = pipe

	var mixOpts []mixer.Option
	if e.recorder != nil {
		if e.recorder.SampleRate() != e.dev.SampleRate || e.recorder.Channels() != e.dev.Channels {
			return nil, fmt.Errorf("%w: recorder %d Hz/%d ch, device %d Hz/%d ch", ErrRecorderFormat,
				e.recorder.SampleRate(), e.recorder.Channels(), e.dev.SampleRate, e.dev.Channels)
		}
		mixOpts = append(mixOpts, mixer.WithTap(e.recorder))
	}

	e.cmds = command.NewChannel(cfg.CommandCapacity)
	e.mix, err = mixer.New(mixer.Config{
		SampleRate:      cfg.SampleRate,
		Channels:        cfg.Channels,
		DeviceRate:      e.dev.SampleRate,
		DeviceChannels:  e.dev.Channels,
		MaxVoices:       cfg.MaxVoices,
		BufferFrames:    cfg.BufferFrames,
		CommandBatch:    cfg.CommandBatch,
		MaxPeriodFrames: e.dev.PeriodFrames,
		Quality:         quality,
	}, e.cmds, e.pipe, mixOpts...)
	if err != nil {
		return nil, err
	}

	return e, nil
}

// Device returns the output format Render produces.
func (e *Engine) Device() device.Config { return e.dev }

// Start runs the decode pipeline and the monitor until ctx is done or
// Close is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed.Load() {
		return ErrClosed
	}
	if e.started {
		return ErrStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.pipe.Run(gctx) })
	g.Go(func() error { return e.monitor(gctx) })

	e.started, e.cancel, e.g = true, cancel, g
	e.log.Info("engine started",
		slog.Int("sample_rate", e.cfg.SampleRate),
		slog.Int("channels", e.cfg.Channels),
		slog.Int("max_voices", e.cfg.MaxVoices),
		slog.Int("device_rate", e.dev.SampleRate),
		slog.Int("device_channels", e.dev.Channels))

	return nil
}

// Play submits src and returns the id of its voice. On error the caller
// still owns src.
//
// The voice is admitted on the next render tick. When all MaxVoices voices
// are busy then, the source is closed, State reports the id as unknown and
// the monitor logs the voice as failed with ErrPoolExhausted.
func (e *Engine) Play(src audio.Source, opts ...PlayOption) (voice.ID, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	if src == nil {
		return 0, ErrNilSource
	}

	o := playOptions{volume: 1}
	for _, opt := range opts {
		opt(&o)
	}

	id := voice.ID(e.nextID.Add(1))
	if err := e.send(command.NewPlay(id, src, o.volume, o.pan)); err != nil {
		return 0, err
	}
	return id, nil
}

// Open decodes r with the decoder registered for format and plays it.
func (e *Engine) Open(format string, r io.Reader, opts ...PlayOption) (voice.ID, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}

	src, err := e.registry.Decode(format, r)
	if err != nil {
		return 0, err
	}

	id, err := e.Play(src, opts...)
	if err != nil {
		_ = src.Close()
		return 0, err
	}
	return id, nil
}

func (e *Engine) Stop(id voice.ID) error {
	return e.send(command.NewStop(id))
}

func (e *Engine) SetVolume(id voice.ID, volume float32) error {
	return e.send(command.NewSetVolume(id, volume))
}

func (e *Engine) SetPan(id voice.ID, pan float32) error {
	return e.send(command.NewSetPan(id, pan))
}

// Seek moves voice id to frame, counted at the internal sample rate.
// Seeking past the end lets the voice finish.
func (e *Engine) Seek(id voice.ID, frame int64) error {
	if frame < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFrame, frame)
	}
	return e.send(command.NewSeek(id, frame))
}

func (e *Engine) send(cmd command.Command) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := e.cmds.Send(cmd); err != nil {
		e.metrics.QueueFull.Add(context.Background(), 1)
		return err
	}
	return nil
}

// Render fills out with the next period in the device format. It must not
// be called concurrently with itself or after Close.
func (e *Engine) Render(out []float32) {
	if e.closed.Load() {
		clear(out)
		return
	}
	e.mix.Process(out)
}

// State reports the state of voice id. The second value is false once the
// voice's slot was reused or the id was never issued.
func (e *Engine) State(id voice.ID) (voice.State, bool) {
	return e.mix.VoiceState(id)
}

func (e *Engine) Stats() mixer.Stats { return e.mix.Stats() }

func (e *Engine) Meter() meter.Levels { return e.mix.Meter().Read() }

// ReportDeviceError records a failure of the output device. The first one
// is kept and returned by Err.
func (e *Engine) ReportDeviceError(err error) {
	if err == nil {
		return
	}
	if !errors.Is(err, ErrDevice) {
		err = fmt.Errorf("%w: %w", ErrDevice, err)
	}

	e.mu.Lock()
	first := e.devErr == nil
	if first {
		e.devErr = err
	}
	e.mu.Unlock()

	if first {
		e.log.Error("device failure", slog.Any("error", err))
	}
}

// Err returns the first reported device error.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.devErr
}

// Close stops the pipeline and closes every source the engine still owns.
// The device must have stopped calling Render.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}

	e.mu.Lock()
	cancel, g, started := e.cancel, e.g, e.started
	e.mu.Unlock()

	var err error
	if started {
		cancel()
		err = g.Wait()
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err = e.pipe.Run(ctx)
	}

	var errs []error
	if err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}

	// Sources of Play commands the mixer never received.
	pending := make([]command.Command, 64)
	for {
		n := e.cmds.TryRecvBatch(pending)
		if n == 0 {
			break
		}
		for _, cmd := range pending[:n] {
			if cmd.Kind == command.Play && cmd.Source != nil {
				errs = append(errs, cmd.Source.Close())
			}
		}
	}

	for _, src := range e.mix.Sources() {
		errs = append(errs, src.Close())
	}

	e.log.Info("engine closed")
	return errors.Join(errs...)
}
