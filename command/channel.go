// SPDX-License-Identifier: EPL-2.0

package command

import (
	"errors"

	"github.com/ik5/audmix/internal/lockfree"
)

// ErrQueueFull is returned by Send when the channel has no free slot.
var ErrQueueFull = errors.New("command queue full")

// Channel carries commands from any number of control goroutines to the
// single mixer goroutine. Commands from one sender arrive in send order.
type Channel struct {
	q *lockfree.Queue[Command]
}

// NewChannel returns a channel with room for at least capacity commands.
func NewChannel(capacity int) *Channel {
	return &Channel{q: lockfree.New[Command](capacity)}
}

// Send enqueues cmd without blocking. On ErrQueueFull the channel is left
// unchanged and the caller still owns any Source in cmd.
func (c *Channel) Send(cmd Command) error {
	if !c.q.TrySend(cmd) {
		return ErrQueueFull
	}
	return nil
}

// TryRecvBatch moves up to len(dst) commands into dst and returns how many.
// Called by the mixer only; never blocks or allocates.
func (c *Channel) TryRecvBatch(dst []Command) int {
	return c.q.RecvBatch(dst)
}

// Len is approximate while senders are active.
func (c *Channel) Len() int { return c.q.Len() }

func (c *Channel) Cap() int { return c.q.Cap() }
