// SPDX-License-Identifier: EPL-2.0

package voice

import (
	"fmt"
	"sync/atomic"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/ring"
	"github.com/ik5/audmix/utils"
)

// ID identifies a voice for the lifetime of an engine. Zero is never issued.
type ID uint64

// State is the lifecycle stage of a voice.
type State int32

const (
	Pending State = iota
	Decoding
	Playing
	Draining
	Finished
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Decoding:
		return "decoding"
	case Playing:
		return "playing"
	case Draining:
		return "draining"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether s is Finished or Failed.
func (s State) Terminal() bool { return s == Finished || s == Failed }

// Active reports whether a voice in state s belongs in a registry.
func (s State) Active() bool { return s == Decoding || s == Playing || s == Draining }

// MixState is scratch space used only by the mixer goroutine.
type MixState struct {
	GainL, GainR float32
	SeekSeen     uint64
	SeekTarget   int64
	UnderrunTick uint64

	// ReleasePosted is set once the pipeline accepted the release request
	// of a retired voice.
	ReleasePosted bool
}

// Voice is one playback instance of a Source.
//
// Every field has a single writer. The mixer goroutine owns state, volume,
// pan, cursor, underruns, the cancel flag, seek requests and the task
// generation. The voice's pipeline task owns progress, seek
// acknowledgements, the exit marker and the terminal error. The release
// marker belongs to whoever releases the source. Fields read across
// goroutines are atomics.
type Voice struct {
	prev, next *Voice
	owner      *list

	id    atomic.Uint64
	state atomic.Int32
	lease uint64

	src audio.Source
	buf *ring.SampleBuffer

	// Mixer-owned.
	Mix       MixState
	volume    float32
	pan       float32
	cursor    atomic.Uint64
	underruns atomic.Uint64
	cancel    atomic.Bool
	seekGen   atomic.Uint64
	seekFrame atomic.Int64
	taskGen   atomic.Uint64

	// Pipeline-owned.
	progress  atomic.Uint64
	exitedGen atomic.Uint64
	seekAck   atomic.Uint64
	seekMark  atomic.Uint64
	released  atomic.Uint64
	err       error
}

// New returns an unlinked voice with its own sample buffer.
func New(bufferFrames, channels int) *Voice {
	v := &Voice{}
	v.init(bufferFrames, channels)
	return v
}

func (v *Voice) init(bufferFrames, channels int) {
	v.buf = ring.New(bufferFrames, channels)
	v.state.Store(int32(Finished))
}

// Lease prepares v for a new playback of src under id and returns the lease
// number the release must acknowledge. Mixer only; the previous task, if
// any, must have exited and released its source.
func (v *Voice) Lease(id ID, src audio.Source, volume, pan float32) uint64 {
	v.lease++
	v.src = src
	v.volume = utils.Clamp(volume, 0, 1)
	v.pan = utils.Clamp(pan, -1, 1)
	v.cursor.Store(0)
	v.underruns.Store(0)
	v.cancel.Store(false)

	ack := v.seekAck.Load()
	v.seekGen.Store(ack)
	v.Mix = MixState{SeekSeen: ack}
	v.Mix.GainL, v.Mix.GainR = v.TargetGains()

	v.buf.Discard()
	v.state.Store(int32(Pending))
	v.id.Store(uint64(id))

	return v.lease
}

func (v *Voice) ID() ID { return ID(v.id.Load()) }

// LeaseNumber returns the current lease. Mixer only.
func (v *Voice) LeaseNumber() uint64 { return v.lease }

func (v *Voice) State() State { return State(v.state.Load()) }

// SetState is called by the mixer only.
func (v *Voice) SetState(s State) { v.state.Store(int32(s)) }

func (v *Voice) Source() audio.Source       { return v.src }
func (v *Voice) Buffer() *ring.SampleBuffer { return v.buf }

func (v *Voice) Volume() float32 { return v.volume }
func (v *Voice) Pan() float32    { return v.pan }

// SetVolume clamps to [0, 1]. Mixer only.
func (v *Voice) SetVolume(vol float32) { v.volume = utils.Clamp(vol, 0, 1) }

// SetPan clamps to [-1, 1]. Mixer only.
func (v *Voice) SetPan(pan float32) { v.pan = utils.Clamp(pan, -1, 1) }

// TargetGains combines volume and pan into per-side gains.
func (v *Voice) TargetGains() (left, right float32) {
	l, r := utils.PanGains(v.pan)
	return l * v.volume, r * v.volume
}

// Cursor is the number of frames the mixer consumed since the start or the
// last seek target.
func (v *Voice) Cursor() uint64         { return v.cursor.Load() }
func (v *Voice) AdvanceCursor(n uint64) { v.cursor.Add(n) }
func (v *Voice) SetCursor(frame uint64) { v.cursor.Store(frame) }

func (v *Voice) Underruns() uint64 { return v.underruns.Load() }
func (v *Voice) AddUnderrun()      { v.underruns.Add(1) }

// Cancel asks the pipeline task to stop at its next safe point.
func (v *Voice) Cancel()         { v.cancel.Store(true) }
func (v *Voice) Cancelled() bool { return v.cancel.Load() }

// RequestSeek records a seek target in internal-rate frames and returns the
// new seek generation. Mixer only.
func (v *Voice) RequestSeek(frame int64) uint64 {
	v.seekFrame.Store(frame)
	return v.seekGen.Add(1)
}

// SeekRequest returns the latest seek generation and its target frame.
func (v *Voice) SeekRequest() (gen uint64, frame int64) {
	gen = v.seekGen.Load()
	return gen, v.seekFrame.Load()
}

// SeekPending reports whether a requested seek is not yet acknowledged.
func (v *Voice) SeekPending() bool { return v.seekGen.Load() != v.seekAck.Load() }

// AckSeek is called by the pipeline task once the source was repositioned.
// mark is the write cursor of the sample buffer at that moment: everything
// before it predates the seek.
func (v *Voice) AckSeek(gen, mark uint64) {
	v.seekMark.Store(mark)
	v.seekAck.Store(gen)
}

// SeekAck returns the last acknowledged seek generation and its mark.
func (v *Voice) SeekAck() (gen, mark uint64) {
	gen = v.seekAck.Load()
	return gen, v.seekMark.Load()
}

func (v *Voice) TaskGen() uint64 { return v.taskGen.Load() }

// NextTaskGen starts a new task generation. Mixer only.
func (v *Voice) NextTaskGen() uint64 { return v.taskGen.Add(1) }

const stageBits = 8

// Publish records the stage reached by the task of generation gen.
func (v *Voice) Publish(gen uint64, s State) {
	v.progress.Store(gen<<stageBits | uint64(s))
}

// Progress returns the last published stage and the generation of the task
// that published it.
func (v *Voice) Progress() (gen uint64, s State) {
	p := v.progress.Load()
	return p >> stageBits, State(p & (1<<stageBits - 1))
}

// Fail stores err and publishes Failed for gen.
func (v *Voice) Fail(gen uint64, err error) {
	v.err = err
	v.Publish(gen, Failed)
}

// Err returns the error stored by Fail. Only valid after Progress reported
// Failed.
func (v *Voice) Err() error { return v.err }

// Exit marks the task of generation gen as returned.
func (v *Voice) Exit(gen uint64)    { v.exitedGen.Store(gen) }
func (v *Voice) ExitedGen() uint64 { return v.exitedGen.Load() }

// MarkReleased acknowledges that the source of lease was closed.
func (v *Voice) MarkReleased(lease uint64) { v.released.Store(lease) }
func (v *Voice) Released() uint64          { return v.released.Load() }

// Next returns the following voice in the same list, or nil.
func (v *Voice) Next() *Voice { return v.next }

// Linked reports whether v currently belongs to a list.
func (v *Voice) Linked() bool { return v.owner != nil }
