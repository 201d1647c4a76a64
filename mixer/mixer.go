// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/command"
	"github.com/ik5/audmix/internal/lockfree"
	"github.com/ik5/audmix/meter"
	"github.com/ik5/audmix/utils"
	"github.com/ik5/audmix/voice"
)

var (
	ErrInvalidConfig = errors.New("invalid mixer config")

	// ErrSchedulerBusy is reported on a voice whose decode task could not
	// be requested.
	ErrSchedulerBusy = errors.New("pipeline request queue full")

	// ErrPoolExhausted is reported on a Play whose voice found every pooled
	// voice in use.
	ErrPoolExhausted = errors.New("voice pool exhausted")
)

// Scheduler runs the blocking side of each voice. Every method is called
// from the mixer goroutine and must not block or allocate.
type Scheduler interface {
	// Start requests a decode task of generation gen for v.
	Start(v *voice.Voice, gen uint64) bool
	// Release requests the source of v's lease be closed once its task has
	// exited, acknowledged through v.MarkReleased.
	Release(v *voice.Voice, lease uint64) bool
	// Discard closes a source that never became a voice.
	Discard(src audio.Source) bool
}

// Tap receives every rendered device period.
type Tap interface {
	Push(samples []float32)
}

// Config describes both sides of the mixer: the internal bus the voices
// are summed on, and the device format Process renders.
type Config struct {
	SampleRate int
	Channels   int

	DeviceRate     int
	DeviceChannels int

	MaxVoices    int
	BufferFrames int
	CommandBatch int

	// MaxPeriodFrames sizes scratch buffers. Longer periods are rendered
	// in several blocks.
	MaxPeriodFrames int

	Quality audio.Quality
}

func (c Config) validate() error {
	var errs []error
	if c.SampleRate <= 0 || c.DeviceRate <= 0 {
		errs = append(errs, audio.ErrInvalidRate)
	}
	if c.Channels <= 0 || c.DeviceChannels <= 0 {
		errs = append(errs, audio.ErrInvalidChannels)
	}
	if c.MaxVoices <= 0 || c.BufferFrames <= 0 || c.CommandBatch <= 0 || c.MaxPeriodFrames <= 0 {
		errs = append(errs, errors.New("max voices, buffer frames, command batch and period frames must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}

// EventKind tags an Event.
type EventKind uint8

const (
	VoiceFinished EventKind = iota + 1
	VoiceFailed
)

func (k EventKind) String() string {
	switch k {
	case VoiceFinished:
		return "finished"
	case VoiceFailed:
		return "failed"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event reports a voice leaving the registry.
type Event struct {
	Kind      EventKind
	Voice     voice.ID
	Underruns uint64
	Err       error
}

// Stats are cumulative counters since the mixer was created, except
// ActiveVoices.
type Stats struct {
	Ticks             uint64
	Underruns         uint64
	CommandsApplied   uint64
	CommandsDropped   uint64
	UnknownVoice      uint64
	DuplicateVoices   uint64
	ActiveVoices      uint64
	VoicesStarted     uint64
	VoicesFinished    uint64
	VoicesFailed      uint64
	EventsDropped     uint64
	SchedulerRejected uint64
}

type counters struct {
	ticks, underruns, applied, dropped, unknown, duplicates atomic.Uint64
	active, started, finished, failed, events, rejected     atomic.Uint64
}

// Mixer sums voices into the device output. Process and everything it
// reaches belong to one goroutine; Stats, VoiceState, Events and Meter may
// be used from any goroutine.
type Mixer struct {
	cfg   Config
	cmds  *command.Channel
	sched Scheduler
	pool  *voice.Pool
	reg   voice.Registry

	meter  *meter.Meter
	tap    Tap
	events *lockfree.Queue[Event]

	batch []command.Command
	bus   []float64
	tmp   []float32
	block []float32 // internal-format block
	out   []float32 // device-rate, internal channels

	conv *audio.Resampler
	bsrc *busSource

	tick  uint64
	stats counters
}

// Option configures a Mixer.
type Option func(*Mixer)

// WithTap sends a copy of every rendered period to t.
func WithTap(t Tap) Option {
	return func(m *Mixer) { m.tap = t }
}

// New builds a mixer reading commands from cmds and handing decode work to
// sched. All voices and scratch buffers are allocated here.
func New(cfg Config, cmds *command.Channel, sched Scheduler, opts ...Option) (*Mixer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Mixer{
		cfg:    cfg,
		cmds:   cmds,
		sched:  sched,
		pool:   voice.NewPool(cfg.MaxVoices, cfg.BufferFrames, cfg.Channels),
		meter:  meter.New(cfg.DeviceChannels, cfg.DeviceRate),
		events: lockfree.New[Event](cfg.MaxVoices * 4),
		batch:  make([]command.Command, cfg.CommandBatch),
		bus:    make([]float64, cfg.MaxPeriodFrames*cfg.Channels),
		tmp:    make([]float32, cfg.MaxPeriodFrames*cfg.Channels),
		block:  make([]float32, cfg.MaxPeriodFrames*cfg.Channels),
		out:    make([]float32, cfg.MaxPeriodFrames*cfg.Channels),
	}

	if cfg.SampleRate != cfg.DeviceRate {
		m.bsrc = &busSource{m: m}
		m.conv = audio.NewResampler(m.bsrc, cfg.DeviceRate,
			audio.WithQuality(cfg.Quality),
			audio.WithChunkFrames(cfg.MaxPeriodFrames),
		)
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Process renders len(out)/DeviceChannels frames into out. It never blocks
// or allocates.
func (m *Mixer) Process(out []float32) {
	m.tick++
	m.stats.ticks.Add(1)

	m.applyCommands()

	dch := m.cfg.DeviceChannels
	frames := len(out) / dch

	for done := 0; done < frames; {
		n := min(frames-done, m.cfg.MaxPeriodFrames)
		dst := out[done*dch : (done+n)*dch]
		m.renderDevice(dst, n)
		done += n
	}
	clear(out[frames*dch:])

	m.sweep()
	m.recycle()

	block := out[:frames*dch]
	m.meter.Update(block)
	if m.tap != nil {
		m.tap.Push(block)
	}
}

// renderDevice fills n device frames.
func (m *Mixer) renderDevice(dst []float32, n int) {
	ich := m.cfg.Channels
	src := m.block[:n*ich]

	if m.conv == nil {
		m.renderInternal(src)
	} else {
		// The bus never ends or stalls, so the read is always full.
		got, _ := m.conv.ReadSamples(m.out[:n*ich])
		clear(m.out[got : n*ich])
		src = m.out[:n*ich]
	}

	audio.MapChannels(dst, src, ich, m.cfg.DeviceChannels)

	for i, s := range dst {
		dst[i] = utils.Clamp(s, -1, 1)
	}
}

// renderInternal sums every voice into dst, len(dst)/Channels frames at the
// internal rate.
func (m *Mixer) renderInternal(dst []float32) {
	frames := len(dst) / m.cfg.Channels
	bus := m.bus[:len(dst)]
	clear(bus)

	for v := m.reg.Front(); v != nil; v = v.Next() {
		m.mixVoice(v, bus, frames)
	}

	for i, s := range bus {
		dst[i] = float32(s)
	}
}

// busSource lets the device-rate resampler pull internal frames on demand.
type busSource struct{ m *Mixer }

func (b *busSource) SampleRate() int { return b.m.cfg.SampleRate }
func (b *busSource) Channels() int   { return b.m.cfg.Channels }
func (b *busSource) BufSize() int    { return b.m.cfg.MaxPeriodFrames }
func (b *busSource) Close() error    { return nil }

func (b *busSource) ReadSamples(dst []float32) (int, error) {
	n := min(len(dst), len(b.m.bus))
	n -= n % b.m.cfg.Channels
	b.m.renderInternal(dst[:n])
	return n, nil
}

// Events moves pending voice events into dst and returns how many.
func (m *Mixer) Events(dst []Event) int { return m.events.RecvBatch(dst) }

func (m *Mixer) pushEvent(e Event) {
	if !m.events.TrySend(e) {
		m.stats.events.Add(1)
	}
}

// Meter returns the output level meter.
func (m *Mixer) Meter() *meter.Meter { return m.meter }

// VoiceState reports the state of id, or false when id is unknown or its
// slot was reused.
func (m *Mixer) VoiceState(id voice.ID) (voice.State, bool) {
	return m.pool.Lookup(id)
}

func (m *Mixer) Stats() Stats {
	return Stats{
		Ticks:             m.stats.ticks.Load(),
		Underruns:         m.stats.underruns.Load(),
		CommandsApplied:   m.stats.applied.Load(),
		CommandsDropped:   m.stats.dropped.Load(),
		UnknownVoice:      m.stats.unknown.Load(),
		DuplicateVoices:   m.stats.duplicates.Load(),
		ActiveVoices:      m.stats.active.Load(),
		VoicesStarted:     m.stats.started.Load(),
		VoicesFinished:    m.stats.finished.Load(),
		VoicesFailed:      m.stats.failed.Load(),
		EventsDropped:     m.stats.events.Load(),
		SchedulerRejected: m.stats.rejected.Load(),
	}
}

// Sources returns the sources of every voice that was not released yet.
// Only valid once Process is no longer called.
func (m *Mixer) Sources() []audio.Source {
	var srcs []audio.Source
	for v := m.reg.Front(); v != nil; v = v.Next() {
		if v.Source() != nil {
			srcs = append(srcs, v.Source())
		}
	}
	for v := m.pool.FrontRetired(); v != nil; v = v.Next() {
		if v.Source() != nil && v.Released() != v.LeaseNumber() {
			srcs = append(srcs, v.Source())
		}
	}
	return srcs
}
