// SPDX-License-Identifier: EPL-2.0

package voice

// list is an intrusive doubly linked list threaded through Voice.prev and
// Voice.next. A voice is in at most one list at a time.
type list struct {
	head, tail *Voice
	n          int
}

func (l *list) pushBack(v *Voice) {
	v.owner = l
	v.prev = l.tail
	v.next = nil
	if l.tail != nil {
		l.tail.next = v
	} else {
		l.head = v
	}
	l.tail = v
	l.n++
}

func (l *list) remove(v *Voice) {
	if v.prev != nil {
		v.prev.next = v.next
	} else {
		l.head = v.next
	}
	if v.next != nil {
		v.next.prev = v.prev
	} else {
		l.tail = v.prev
	}
	v.prev, v.next, v.owner = nil, nil, nil
	l.n--
}

func (l *list) popFront() *Voice {
	v := l.head
	if v != nil {
		l.remove(v)
	}
	return v
}
