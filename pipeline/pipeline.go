// SPDX-License-Identifier: EPL-2.0

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/internal/lockfree"
	"github.com/ik5/audmix/internal/observe"
	"github.com/ik5/audmix/voice"
)

// ErrInvalidConfig is returned by New for unusable settings.
var ErrInvalidConfig = errors.New("invalid pipeline config")

// Config describes the internal format every task produces.
type Config struct {
	SampleRate  int
	Channels    int
	ChunkFrames int
	Quality     audio.Quality

	// MaxTasks bounds concurrently running decode tasks.
	MaxTasks int

	// QueueCapacity bounds requests the mixer may post between two
	// dispatcher wakeups.
	QueueCapacity int

	PollInterval time.Duration
}

func (c Config) validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, audio.ErrInvalidRate)
	}
	if c.Channels <= 0 {
		errs = append(errs, audio.ErrInvalidChannels)
	}
	if c.ChunkFrames <= 0 || c.MaxTasks <= 0 || c.QueueCapacity <= 0 || c.PollInterval <= 0 {
		errs = append(errs, errors.New("chunk frames, max tasks, queue capacity and poll interval must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}

type reqKind uint8

const (
	reqStart reqKind = iota + 1
	reqRelease
	reqDiscard
)

type request struct {
	kind reqKind
	v    *voice.Voice
	n    uint64 // task generation or lease
	src  audio.Source
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithMetrics sets the instruments decode timings are recorded to.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// Pipeline turns Sources into internal-format frames in each voice's sample
// buffer. The mixer posts requests without blocking; a dispatcher goroutine
// started by Run turns them into decode tasks and source releases.
type Pipeline struct {
	cfg     Config
	log     *slog.Logger
	metrics *observe.Metrics

	reqs *lockfree.Queue[request]

	// Dispatcher-owned.
	pending []request
	started map[*voice.Voice]uint64
	blocked map[*voice.Voice]bool
}

// New validates cfg and returns an idle pipeline.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:     cfg,
		log:     slog.Default(),
		metrics: observe.Discard(),
		reqs:    lockfree.New[request](cfg.QueueCapacity),
		started: make(map[*voice.Voice]uint64, cfg.MaxTasks),
		blocked: make(map[*voice.Voice]bool, cfg.MaxTasks),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Start asks for a decode task of generation gen on v. It returns false if
// the request queue is full. Never blocks or allocates.
func (p *Pipeline) Start(v *voice.Voice, gen uint64) bool {
	return p.reqs.TrySend(request{kind: reqStart, v: v, n: gen})
}

// Release asks for the source of lease to be closed once v's task has
// exited. Completion is signalled through v.MarkReleased.
func (p *Pipeline) Release(v *voice.Voice, lease uint64) bool {
	return p.reqs.TrySend(request{kind: reqRelease, v: v, n: lease, src: v.Source()})
}

// Discard closes a source that never became a voice.
func (p *Pipeline) Discard(src audio.Source) bool {
	if src == nil {
		return true
	}
	return p.reqs.TrySend(request{kind: reqDiscard, src: src})
}

// Run dispatches requests until ctx is done, then waits for every task and
// closes the sources of requests that were still queued.
func (p *Pipeline) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(p.cfg.MaxTasks)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	batch := make([]request, 64)

	for {
		p.dispatch(ctx, &g, batch)

		select {
		case <-ctx.Done():
			_ = g.Wait()
			p.shutdown(batch)
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) dispatch(ctx context.Context, g *errgroup.Group, batch []request) {
	for {
		n := p.reqs.RecvBatch(batch)
		p.pending = append(p.pending, batch[:n]...)
		if n < len(batch) {
			break
		}
	}

	clear(p.blocked)
	kept := p.pending[:0]

	for _, req := range p.pending {
		// Requests for one voice run in the order the mixer posted them.
		if req.v != nil && p.blocked[req.v] {
			kept = append(kept, req)
			continue
		}
		if !p.handle(ctx, g, req) {
			if req.v != nil {
				p.blocked[req.v] = true
			}
			kept = append(kept, req)
		}
	}

	clear(p.pending[len(kept):])
	p.pending = kept
}

// handle reports false when req has to wait for a later pass.
func (p *Pipeline) handle(ctx context.Context, g *errgroup.Group, req request) bool {
	switch req.kind {
	case reqStart:
		if !p.taskExited(req.v) {
			return false
		}
		v, gen := req.v, req.n
		if !g.TryGo(func() error {
			p.runTask(ctx, v, gen)
			return nil
		}) {
			return false
		}
		p.started[v] = gen

	case reqRelease:
		if !p.taskExited(req.v) {
			return false
		}
		p.close(req.src, req.v.ID())
		delete(p.started, req.v)
		req.v.MarkReleased(req.n)

	case reqDiscard:
		p.close(req.src, 0)
	}

	return true
}

func (p *Pipeline) taskExited(v *voice.Voice) bool {
	gen, ok := p.started[v]
	return !ok || v.ExitedGen() == gen
}

func (p *Pipeline) close(src audio.Source, id voice.ID) {
	if src == nil {
		return
	}
	if err := src.Close(); err != nil {
		p.log.Warn("closing source", slog.Uint64("voice", uint64(id)), slog.Any("error", err))
	}
}

func (p *Pipeline) shutdown(batch []request) {
	for {
		n := p.reqs.RecvBatch(batch)
		p.pending = append(p.pending, batch[:n]...)
		if n == 0 {
			break
		}
	}

	for _, req := range p.pending {
		switch req.kind {
		case reqRelease:
			p.close(req.src, req.v.ID())
			req.v.MarkReleased(req.n)
		case reqDiscard:
			p.close(req.src, 0)
		}
	}

	clear(p.pending)
	p.pending = p.pending[:0]
	clear(p.started)
}
