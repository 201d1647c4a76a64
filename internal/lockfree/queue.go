// SPDX-License-Identifier: EPL-2.0

// Package lockfree provides a bounded multi-producer/multi-consumer queue
// built only on atomic operations.
//
// The queue is an array of cells, each carrying a sequence number that tells
// producers and consumers whether the cell is free, filled or still being
// written. A producer claims a position with a single CAS on the enqueue
// cursor and publishes the value by storing the cell sequence; a consumer
// does the mirror image on the dequeue cursor. Neither side ever blocks.
package lockfree

import "sync/atomic"

const cacheLine = 64

type cell[T any] struct {
	seq atomic.Uint64
	val T
}

// Queue is a bounded lock-free FIFO. The zero value is not usable, use New.
type Queue[T any] struct {
	_   [cacheLine]byte
	enq atomic.Uint64
	_   [cacheLine - 8]byte
	deq atomic.Uint64
	_   [cacheLine - 8]byte

	mask  uint64
	cells []cell[T]
}

// New returns a queue holding at least capacity elements. The capacity is
// rounded up to a power of two, with a minimum of 2.
func New[T any](capacity int) *Queue[T] {
	size := uint64(2)
	for size < uint64(capacity) {
		size <<= 1
	}

	q := &Queue[T]{
		mask:  size - 1,
		cells: make([]cell[T], size),
	}
	for i := range q.cells {
		q.cells[i].seq.Store(uint64(i))
	}

	return q
}

// Cap returns the number of cells.
func (q *Queue[T]) Cap() int { return len(q.cells) }

// Len is an approximation; it is exact only when no goroutine is sending or
// receiving concurrently.
func (q *Queue[T]) Len() int {
	deq := q.deq.Load()
	enq := q.enq.Load()
	if enq < deq {
		return 0
	}
	return int(enq - deq)
}

// TrySend appends v. It returns false without modifying the queue when the
// queue is full.
func (q *Queue[T]) TrySend(v T) bool {
	pos := q.enq.Load()
	for {
		c := &q.cells[pos&q.mask]
		seq := c.seq.Load()
		switch dif := int64(seq) - int64(pos); {
		case dif == 0:
			if q.enq.CompareAndSwap(pos, pos+1) {
				c.val = v
				c.seq.Store(pos + 1)
				return true
			}
			pos = q.enq.Load()
		case dif < 0:
			return false
		default:
			pos = q.enq.Load()
		}
	}
}

// TryRecv removes the oldest element. The vacated cell is zeroed so the queue
// does not keep references alive.
func (q *Queue[T]) TryRecv() (T, bool) {
	var zero T

	pos := q.deq.Load()
	for {
		c := &q.cells[pos&q.mask]
		seq := c.seq.Load()
		switch dif := int64(seq) - int64(pos+1); {
		case dif == 0:
			if q.deq.CompareAndSwap(pos, pos+1) {
				v := c.val
				c.val = zero
				c.seq.Store(pos + q.mask + 1)
				return v, true
			}
			pos = q.deq.Load()
		case dif < 0:
			return zero, false
		default:
			pos = q.deq.Load()
		}
	}
}

// RecvBatch fills dst with up to len(dst) elements and returns how many were
// received.
func (q *Queue[T]) RecvBatch(dst []T) int {
	n := 0
	for n < len(dst) {
		v, ok := q.TryRecv()
		if !ok {
			break
		}
		dst[n] = v
		n++
	}
	return n
}
