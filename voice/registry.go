// SPDX-License-Identifier: EPL-2.0

package voice

// Registry is the collection of active voices. It is used by a single
// goroutine and never allocates.
type Registry struct {
	active list
}

// Insert links v at the tail and returns its id.
func (r *Registry) Insert(v *Voice) (ID, error) {
	if v.owner != nil {
		return 0, ErrLinked
	}
	id := v.ID()
	if r.Find(id) != nil {
		return 0, ErrDuplicateVoice
	}

	r.active.pushBack(v)
	return id, nil
}

// Remove unlinks the voice with id and returns it, or nil when id is unknown.
func (r *Registry) Remove(id ID) *Voice {
	v := r.Find(id)
	if v == nil {
		return nil
	}
	r.active.remove(v)
	return v
}

// Unlink removes v, which must belong to r.
func (r *Registry) Unlink(v *Voice) {
	if v.owner == &r.active {
		r.active.remove(v)
	}
}

// Find returns the voice with id, or nil.
func (r *Registry) Find(id ID) *Voice {
	for v := r.active.head; v != nil; v = v.next {
		if v.ID() == id {
			return v
		}
	}
	return nil
}

// ForEach calls fn for each voice in insertion order. fn may remove the
// voice it was given.
func (r *Registry) ForEach(fn func(*Voice)) {
	for v := r.active.head; v != nil; {
		next := v.next
		fn(v)
		v = next
	}
}

// Front returns the first voice, or nil.
func (r *Registry) Front() *Voice { return r.active.head }

func (r *Registry) Len() int { return r.active.n }
