// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/command"
	"github.com/ik5/audmix/voice"
)

func (m *Mixer) applyCommands() {
	n := m.cmds.TryRecvBatch(m.batch)
	cmds := m.batch[:n]

	for i := range cmds {
		m.apply(&cmds[i])
		cmds[i] = command.Command{}
	}
}

func (m *Mixer) apply(cmd *command.Command) {
	if cmd.Kind == command.Play {
		m.play(cmd)
		return
	}

	v := m.reg.Find(cmd.Voice)
	if v == nil || v.State().Terminal() {
		m.stats.unknown.Add(1)
		return
	}

	switch cmd.Kind {
	case command.Stop:
		v.Cancel()
		v.SetState(voice.Finished)
	case command.SetVolume:
		v.SetVolume(cmd.Volume)
	case command.SetPan:
		v.SetPan(cmd.Pan)
	case command.Seek:
		m.seek(v, max(cmd.Frame, 0))
	default:
		m.stats.dropped.Add(1)
		return
	}

	m.stats.applied.Add(1)
}

func (m *Mixer) play(cmd *command.Command) {
	if cmd.Source == nil || cmd.Voice == 0 {
		m.stats.dropped.Add(1)
		m.discard(cmd.Source)
		return
	}
	if m.reg.Find(cmd.Voice) != nil {
		m.stats.duplicates.Add(1)
		m.discard(cmd.Source)
		return
	}

	v := m.pool.Acquire()
	if v == nil {
		m.stats.dropped.Add(1)
		m.discard(cmd.Source)
		m.pushEvent(Event{Kind: VoiceFailed, Voice: cmd.Voice, Err: ErrPoolExhausted})
		return
	}

	v.Lease(cmd.Voice, cmd.Source, cmd.Volume, cmd.Pan)
	if _, err := m.reg.Insert(v); err != nil {
		// The source stays with the voice; the release path closes it.
		m.stats.duplicates.Add(1)
		v.SetState(voice.Finished)
		m.pool.Retire(v)
		m.postRelease(v)
		return
	}

	v.SetState(voice.Decoding)
	m.stats.applied.Add(1)
	m.stats.started.Add(1)
	m.stats.active.Add(1)
	m.startTask(v)
}

func (m *Mixer) startTask(v *voice.Voice) {
	gen := v.NextTaskGen()
	if !m.sched.Start(v, gen) {
		m.stats.rejected.Add(1)
		v.SetState(voice.Failed)
	}
}

func (m *Mixer) discard(src audio.Source) {
	if src != nil && !m.sched.Discard(src) {
		m.stats.rejected.Add(1)
	}
}

// seek points v at frame. Frames buffered before the acknowledgement are
// skipped; until then the voice renders silence.
func (m *Mixer) seek(v *voice.Voice, frame int64) {
	v.RequestSeek(frame)
	v.Mix.SeekTarget = frame
	v.SetCursor(uint64(frame))
	m.advance(v)
	m.restartIfIdle(v)
}

// restartIfIdle starts a new task for a voice whose task already exited
// after draining, so a pending seek gets served.
func (m *Mixer) restartIfIdle(v *voice.Voice) {
	if v.State() == voice.Draining && v.SeekPending() {
		v.SetState(voice.Decoding)
		m.startTask(v)
	}
}

// advance folds the progress published by v's current task into its state.
func (m *Mixer) advance(v *voice.Voice) {
	gen, s := v.Progress()
	if gen != v.TaskGen() {
		return
	}

	st := v.State()
	if st.Terminal() {
		return
	}

	switch s {
	case voice.Playing:
		if st == voice.Decoding {
			v.SetState(voice.Playing)
		}
	case voice.Draining:
		if st != voice.Draining {
			v.SetState(voice.Draining)
		}
	case voice.Failed:
		v.SetState(voice.Failed)
	}
}

// mixVoice adds frames of v to bus.
func (m *Mixer) mixVoice(v *voice.Voice, bus []float64, frames int) {
	m.advance(v)
	m.restartIfIdle(v)

	st := v.State()
	if st.Terminal() || v.SeekPending() {
		return
	}

	buf := v.Buffer()
	if gen, mark := v.SeekAck(); gen != v.Mix.SeekSeen {
		buf.SkipTo(mark)
		v.SetCursor(uint64(v.Mix.SeekTarget))
		v.Mix.SeekSeen = gen
	}

	ch := m.cfg.Channels
	got := buf.Read(m.tmp[:frames*ch])
	v.AdvanceCursor(uint64(got))

	if got < frames && st == voice.Playing && v.Mix.UnderrunTick != m.tick {
		v.Mix.UnderrunTick = m.tick
		v.AddUnderrun()
		m.stats.underruns.Add(1)
	}

	m.sum(v, bus, m.tmp[:got*ch], frames)

	if st == voice.Draining && buf.Available() == 0 {
		v.SetState(voice.Finished)
	}
}

// sum adds samples scaled by v's gains, ramping linearly from the previous
// gains to the target over the block. A short block stops the ramp where its
// last frame got to.
func (m *Mixer) sum(v *voice.Voice, bus []float64, samples []float32, frames int) {
	ch := m.cfg.Channels
	got := len(samples) / ch

	l0, r0 := v.Mix.GainL, v.Mix.GainR
	l1, r1 := v.TargetGains()

	if frames == 0 || got >= frames {
		v.Mix.GainL, v.Mix.GainR = l1, r1
	}
	if frames == 0 {
		return
	}

	dl := (float64(l1) - float64(l0)) / float64(frames)
	dr := (float64(r1) - float64(r0)) / float64(frames)
	if got < frames {
		v.Mix.GainL = float32(float64(l0) + dl*float64(got))
		v.Mix.GainR = float32(float64(r0) + dr*float64(got))
	}
	gl, gr := float64(l0), float64(r0)
	vol := float64(v.Volume())

	for f := range got {
		gl += dl
		gr += dr
		in := samples[f*ch : (f+1)*ch]
		out := bus[f*ch : (f+1)*ch]

		switch ch {
		case 1:
			out[0] += float64(in[0]) * (gl + gr) * 0.5
		default:
			out[0] += float64(in[0]) * gl
			out[1] += float64(in[1]) * gr
			for c := 2; c < ch; c++ {
				out[c] += float64(in[c]) * vol
			}
		}
	}
}

// sweep removes every terminal voice from the registry and requests its
// source be released.
func (m *Mixer) sweep() {
	for v := m.reg.Front(); v != nil; {
		next := v.Next()

		if st := v.State(); st.Terminal() {
			m.reg.Unlink(v)
			m.stats.active.Add(^uint64(0))

			e := Event{Kind: VoiceFinished, Voice: v.ID(), Underruns: v.Underruns()}
			if st == voice.Failed {
				e.Kind = VoiceFailed
				e.Err = m.voiceErr(v)
				m.stats.failed.Add(1)
			} else {
				m.stats.finished.Add(1)
			}
			m.pushEvent(e)

			m.pool.Retire(v)
			m.postRelease(v)
		}

		v = next
	}
}

// voiceErr returns the error the task stored, when the failure came from
// the current task.
func (m *Mixer) voiceErr(v *voice.Voice) error {
	if gen, s := v.Progress(); gen == v.TaskGen() && s == voice.Failed {
		return v.Err()
	}
	return ErrSchedulerBusy
}

func (m *Mixer) postRelease(v *voice.Voice) {
	v.Mix.ReleasePosted = m.sched.Release(v, v.LeaseNumber())
}

// recycle returns released voices to the free list and retries releases
// the scheduler could not take earlier.
func (m *Mixer) recycle() {
	for v := m.pool.FrontRetired(); v != nil; {
		next := v.Next()

		switch {
		case !v.Mix.ReleasePosted:
			m.postRelease(v)
		case v.Released() == v.LeaseNumber():
			m.pool.Recycle(v)
		}

		v = next
	}
}
