// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"errors"
	"io"

	"github.com/ik5/audmix/audio"
	"github.com/ik5/audmix/voice"
)

// fakeScheduler decodes synchronously when fill is called, standing in for
// the pipeline. It assumes sources already match the internal format.
type fakeScheduler struct {
	tasks     []fakeTask
	released  int
	discarded []audio.Source
	refuse    bool
	chunk     []float32
}

type fakeTask struct {
	v      *voice.Voice
	gen    uint64
	done   bool
	played bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		tasks:     make([]fakeTask, 0, 256),
		discarded: make([]audio.Source, 0, 256),
		chunk:     make([]float32, 4096),
	}
}

func (s *fakeScheduler) Start(v *voice.Voice, gen uint64) bool {
	if s.refuse {
		return false
	}
	for i := range s.tasks {
		if s.tasks[i].v == v {
			s.tasks[i] = fakeTask{v: v, gen: gen}
			return true
		}
	}
	s.tasks = append(s.tasks, fakeTask{v: v, gen: gen})
	return true
}

func (s *fakeScheduler) Release(v *voice.Voice, lease uint64) bool {
	for i := range s.tasks {
		if s.tasks[i].v == v {
			s.tasks[i].done = true
		}
	}
	if src := v.Source(); src != nil {
		_ = src.Close()
	}
	s.released++
	v.MarkReleased(lease)
	return true
}

func (s *fakeScheduler) Discard(src audio.Source) bool {
	_ = src.Close()
	s.discarded = append(s.discarded, src)
	return true
}

// fill runs one pass of every live task: serve seeks, then top up buffers.
func (s *fakeScheduler) fill() {
	for i := range s.tasks {
		t := &s.tasks[i]
		v := t.v
		if t.done || v.Cancelled() || v.TaskGen() != t.gen {
			continue
		}

		if gen, frame := v.SeekRequest(); v.SeekPending() {
			seeker, ok := v.Source().(audio.Seeker)
			if !ok {
				v.Fail(t.gen, audio.ErrNotSeekable)
				t.done = true
				continue
			}
			_ = seeker.SeekFrame(frame)
			v.AckSeek(gen, v.Buffer().WriteCursor())
		}

		buf := v.Buffer()
		ch := buf.Channels()
		for buf.Free() > 0 {
			want := min(buf.Free()*ch, len(s.chunk))
			want -= want % ch
			n, err := v.Source().ReadSamples(s.chunk[:want])
			buf.Write(s.chunk[:n])
			if n > 0 && !t.played {
				v.Publish(t.gen, voice.Playing)
				t.played = true
			}
			if errors.Is(err, io.EOF) {
				v.Publish(t.gen, voice.Draining)
				t.done = true
				break
			}
			if err != nil {
				v.Fail(t.gen, err)
				t.done = true
				break
			}
			if n == 0 {
				break
			}
		}
	}
}
