// SPDX-License-Identifier: EPL-2.0

package voice

// Pool owns a fixed set of voices and their sample buffers, allocated once.
//
// Voices move between three places: the free list, a Registry while
// playing, and the retired list while their source is being released.
// Acquire, Retire, Recycle and the retired iteration belong to the mixer
// goroutine. Lookup may be called from anywhere.
type Pool struct {
	slots   []Voice
	free    list
	retired list
}

// NewPool allocates size voices, each with a buffer of bufferFrames frames.
func NewPool(size, bufferFrames, channels int) *Pool {
	p := &Pool{slots: make([]Voice, size)}
	for i := range p.slots {
		v := &p.slots[i]
		v.init(bufferFrames, channels)
		p.free.pushBack(v)
	}
	return p
}

// Acquire takes a voice off the free list, or returns nil when none is left.
func (p *Pool) Acquire() *Voice { return p.free.popFront() }

// Retire parks an unlinked voice until its source release is acknowledged.
func (p *Pool) Retire(v *Voice) { p.retired.pushBack(v) }

// Recycle moves a retired voice back to the free list.
func (p *Pool) Recycle(v *Voice) {
	if v.owner == &p.retired {
		p.retired.remove(v)
	}
	p.free.pushBack(v)
}

// Release returns a voice that was acquired but never inserted.
func (p *Pool) Release(v *Voice) {
	v.SetState(Finished)
	p.free.pushBack(v)
}

// FrontRetired returns the first retired voice, or nil.
func (p *Pool) FrontRetired() *Voice { return p.retired.head }

func (p *Pool) Size() int    { return len(p.slots) }
func (p *Pool) Free() int    { return p.free.n }
func (p *Pool) Retired() int { return p.retired.n }

// Lookup reports the state of the voice currently or last holding id.
func (p *Pool) Lookup(id ID) (State, bool) {
	if id == 0 {
		return 0, false
	}
	for i := range p.slots {
		v := &p.slots[i]
		if v.ID() != id {
			continue
		}
		s := v.State()
		if v.ID() == id {
			return s, true
		}
	}
	return 0, false
}

// Voice returns the voice whose slot holds id for inspection, or nil. The
// returned voice may be reused for another id at any time.
func (p *Pool) Voice(id ID) *Voice {
	for i := range p.slots {
		if p.slots[i].ID() == id && id != 0 {
			return &p.slots[i]
		}
	}
	return nil
}
